package attendance

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

var (
	ErrMissingSubject  = errors.New("subject name is required")
	ErrInvalidSubject  = errors.New("subject name contains invalid characters")
	ErrSubjectNotFound = errors.New("no attendance folder found")
	ErrNoSessionFiles  = errors.New("no attendance files found")
	// ErrNoSessionData means session files exist but none is usable. It wraps
	// ErrNoSessionFiles so callers treating both alike need a single check.
	ErrNoSessionData = fmt.Errorf("%w: no usable session data", ErrNoSessionFiles)
	ErrNoFaces       = errors.New("no face found for attendance")
	ErrSessionExists = errors.New("session file already exists")
)

// SubjectError attaches the subject to an aggregation or capture failure.
type SubjectError struct {
	Subject string
	Err     error
}

func (e *SubjectError) Error() string {
	return fmt.Sprintf("%s: %v", e.Subject, e.Err)
}

func (e *SubjectError) Unwrap() error {
	return e.Err
}

func subjectErr(subject string, err error) error {
	return &SubjectError{Subject: subject, Err: err}
}

// ValidateSubject trims the subject and rejects names that cannot be used as
// a single directory name.
func ValidateSubject(subject string) (string, error) {
	subject = strings.TrimSpace(subject)
	if subject == "" {
		return "", ErrMissingSubject
	}
	if subject == "." || subject == ".." || strings.ContainsAny(subject, `/\`+"\x00\r\n") ||
		subject != filepath.Base(subject) {
		return "", subjectErr(subject, ErrInvalidSubject)
	}
	return subject, nil
}
