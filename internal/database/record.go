package database

import (
	"context"
	"time"

	"github.com/kozaktomas/attendance/internal/attendance"
	"github.com/kozaktomas/attendance/internal/constants"
)

// NewSessionRecord summarizes a written session file for the ledger.
func NewSessionRecord(s *attendance.Session, source string, at time.Time) SessionRecord {
	rec := SessionRecord{
		Subject:    s.Subject,
		FileName:   s.FileName,
		Source:     source,
		RecordedAt: at,
	}
	for _, e := range s.Entries {
		if e.Name == constants.UnknownStudentName {
			rec.Unknown++
		} else {
			rec.Students++
		}
	}
	return rec
}

// RecordAttendance adds s to the ledger of the registered backend. It is a
// no-op when no backend is configured.
func RecordAttendance(ctx context.Context, s *attendance.Session, source string) error {
	if !IsInitialized() {
		return nil
	}
	ledger, err := GetSessionLedger()
	if err != nil {
		return err
	}
	_, err = ledger.RecordSession(ctx, NewSessionRecord(s, source, time.Now()))
	return err
}
