package attendance

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/renameio"

	"github.com/kozaktomas/attendance/internal/constants"
	"github.com/kozaktomas/attendance/internal/logging"
)

var log = logging.Log

const (
	EnrollmentColumn = "Enrollment"
	NameColumn       = "Name"
	SummaryColumn    = "Attendance"

	dateLayout = "2006-01-02"
	timeLayout = "15-04-05"
)

// Entry is one student marked present in a session.
type Entry struct {
	Enrollment int64  `json:"enrollment"`
	Name       string `json:"name"`
}

// Session is a written or parsed session file.
type Session struct {
	Subject  string  `json:"subject"`
	FileName string  `json:"file_name"`
	Path     string  `json:"-"`
	Column   string  `json:"column"`
	Entries  []Entry `json:"entries"`
}

// SessionFileName is "{subject}_{YYYY-MM-DD}_{HH-MM-SS}.csv".
func SessionFileName(subject string, t time.Time) string {
	return fmt.Sprintf("%s_%s_%s.csv", subject, t.Format(dateLayout), t.Format(timeLayout))
}

// Dedupe keeps the first entry of every enrollment, preserving order.
func Dedupe(entries []Entry) []Entry {
	seen := make(map[int64]bool, len(entries))
	out := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if seen[e.Enrollment] {
			continue
		}
		seen[e.Enrollment] = true
		out = append(out, e)
	}
	return out
}

// WriteSession records one capture window as {dir}/{subject}/{SessionFileName}.
// An existing file is never overwritten.
func WriteSession(dir, subject string, t time.Time, entries []Entry) (*Session, error) {
	subject, err := ValidateSubject(subject)
	if err != nil {
		return nil, err
	}
	entries = Dedupe(entries)
	if len(entries) == 0 {
		return nil, subjectErr(subject, ErrNoFaces)
	}

	date := t.Format(dateLayout)
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	_ = w.Write([]string{EnrollmentColumn, NameColumn, date})
	for _, e := range entries {
		_ = w.Write([]string{strconv.FormatInt(e.Enrollment, 10), e.Name, "1"})
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("encoding session: %w", err)
	}

	subjectDir := filepath.Join(dir, subject)
	if err := os.MkdirAll(subjectDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating subject directory: %w", err)
	}

	name := SessionFileName(subject, t)
	path := filepath.Join(subjectDir, name)
	if _, err := os.Stat(path); err == nil {
		return nil, fmt.Errorf("%w: %s", ErrSessionExists, name)
	}
	if err := renameio.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return nil, fmt.Errorf("writing session: %w", err)
	}

	log.Infof("attendance: %s recorded %d students in %s", subject, len(entries), name)
	return &Session{Subject: subject, FileName: name, Path: path, Column: date, Entries: entries}, nil
}

// ReadSession parses a session file. Rows whose enrollment is not numeric are skipped.
func ReadSession(path string) (*Session, error) {
	tbl, err := readSessionTable(path)
	if err != nil {
		return nil, err
	}
	s := &Session{FileName: filepath.Base(path), Path: path, Column: tbl.column}
	s.Subject = filepath.Base(filepath.Dir(path))
	for _, r := range tbl.rows {
		id, err := strconv.ParseInt(r.enrollment, 10, 64)
		if err != nil {
			continue
		}
		s.Entries = append(s.Entries, Entry{Enrollment: id, Name: r.name})
	}
	return s, nil
}

// SessionInfo describes a session file on disk.
type SessionInfo struct {
	FileName string    `json:"file_name"`
	Name     string    `json:"name"`
	Path     string    `json:"-"`
	Size     int64     `json:"size"`
	Modified time.Time `json:"modified"`
}

// ListSessions returns the session files of a subject sorted by name.
// The summary file is never included.
func ListSessions(dir, subject string) ([]SessionInfo, error) {
	subject, err := ValidateSubject(subject)
	if err != nil {
		return nil, err
	}
	subjectDir := filepath.Join(dir, subject)
	entries, err := os.ReadDir(subjectDir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, subjectErr(subject, ErrSubjectNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("reading subject directory: %w", err)
	}

	prefix := subject + "_"
	var out []SessionInfo
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || name == constants.SummaryFileName ||
			!strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, ".csv") {
			continue
		}
		info := SessionInfo{
			FileName: name,
			Name:     strings.TrimSuffix(name, ".csv"),
			Path:     filepath.Join(subjectDir, name),
		}
		if fi, err := e.Info(); err == nil {
			info.Size = fi.Size()
			info.Modified = fi.ModTime()
		}
		out = append(out, info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FileName < out[j].FileName })
	return out, nil
}

// ListSubjects returns every subject folder below dir.
func ListSubjects(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return []string{}, nil
	}
	if err != nil {
		return nil, err
	}
	subjects := []string{}
	for _, e := range entries {
		if e.IsDir() && !strings.HasPrefix(e.Name(), ".") {
			subjects = append(subjects, e.Name())
		}
	}
	sort.Strings(subjects)
	return subjects, nil
}

type sessionRow struct {
	enrollment string
	name       string
	value      string
}

type sessionTable struct {
	column string
	rows   []sessionRow
}

var errUnusableSession = errors.New("session file has no usable columns")

// readSessionTable extracts the key columns and the first non-key column.
func readSessionTable(path string) (*sessionTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, errUnusableSession
	}

	idCol, nameCol, valCol := -1, -1, -1
	for i, h := range records[0] {
		switch strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")) {
		case EnrollmentColumn:
			if idCol < 0 {
				idCol = i
			}
		case NameColumn:
			if nameCol < 0 {
				nameCol = i
			}
		default:
			if valCol < 0 {
				valCol = i
			}
		}
	}
	if idCol < 0 || nameCol < 0 || valCol < 0 {
		return nil, errUnusableSession
	}

	tbl := &sessionTable{column: strings.TrimSpace(records[0][valCol])}
	for _, rec := range records[1:] {
		id := field(rec, idCol)
		name := field(rec, nameCol)
		if id == "" && name == "" {
			continue
		}
		tbl.rows = append(tbl.rows, sessionRow{enrollment: id, name: name, value: field(rec, valCol)})
	}
	return tbl, nil
}

func field(rec []string, i int) string {
	if i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[i])
}
