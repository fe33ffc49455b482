// Package notify turns errors into operator advisories and delivers them as
// log lines and, optionally, speech.
package notify

import (
	"errors"
	"fmt"
	"strings"

	"github.com/kozaktomas/attendance/internal/attendance"
	"github.com/kozaktomas/attendance/internal/roster"
	"github.com/kozaktomas/attendance/internal/samples"
	"github.com/kozaktomas/attendance/internal/training"
	"github.com/kozaktomas/attendance/internal/vision"
)

// Level of an advisory.
type Level string

const (
	LevelInfo  Level = "info"
	LevelError Level = "error"
)

// Advisory is a short sentence shown (and spoken) to the operator.
type Advisory struct {
	Level Level  `json:"level"`
	Text  string `json:"text"`
}

// Info returns an informational advisory.
func Info(format string, args ...any) Advisory {
	return Advisory{Level: LevelInfo, Text: fmt.Sprintf(format, args...)}
}

// FromError wraps Message(err) as an error advisory.
func FromError(err error) Advisory {
	return Advisory{Level: LevelError, Text: Message(err)}
}

type rule struct {
	target error
	text   string
}

// First match wins. ErrNoSessionData wraps ErrNoSessionFiles and shares its text.
var rules = []rule{
	{attendance.ErrMissingSubject, "Please enter the subject name."},
	{attendance.ErrInvalidSubject, "Subject name must not contain slashes."},
	{attendance.ErrSubjectNotFound, "No attendance folder found for %s."},
	{attendance.ErrNoSessionFiles, "No attendance files found for %s."},
	{attendance.ErrNoFaces, "No Face found for attendance"},
	{attendance.ErrSessionExists, "Attendance for this session was already saved."},
	{vision.ErrModelNotFound, "Model not found, please train model"},
	{vision.ErrModelUnreadable, "Model file is unreadable, please train model again"},
	{vision.ErrCameraUnavailable, "Unable to access camera."},
	{vision.ErrUnavailable, "Face recognition is not available in this build."},
	{roster.ErrRosterNotFound, "Student details not found. Please register a student first."},
	{roster.ErrCorruptRoster, "Student details file is corrupted. Please register again."},
	{roster.ErrNonNumericEnrollment, "Enrollment IDs must be numeric. Please re-register students."},
	{roster.ErrMissingInput, "Please enter both Enrollment Number and Name."},
	{roster.ErrInvalidEnrollment, "Enrollment must be a number between 1 and 2147483647."},
	{roster.ErrInvalidName, "Name must not contain slashes or line breaks."},
	{roster.ErrDuplicateEnrollment, "This enrollment number is already registered."},
	{training.ErrNoTrainingImages, "No training images found. Please add student photos first."},
	{samples.ErrNotAnImage, "Please upload an image file."},
}

// Message maps an error to the sentence shown to the operator.
func Message(err error) string {
	if err == nil {
		return ""
	}
	subject := ""
	var se *attendance.SubjectError
	if errors.As(err, &se) {
		subject = se.Subject
	}
	for _, r := range rules {
		if errors.Is(err, r.target) {
			if subject == "" {
				subject = "this subject"
			}
			if strings.Contains(r.text, "%s") {
				return fmt.Sprintf(r.text, subject)
			}
			return r.text
		}
	}
	return "Something went wrong. Please check the logs."
}
