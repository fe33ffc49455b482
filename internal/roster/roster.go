// Package roster reads and appends the student registry CSV.
package roster

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/google/renameio"

	"github.com/kozaktomas/attendance/internal/logging"
)

var log = logging.Log

const (
	EnrollmentColumn = "Enrollment"
	NameColumn       = "Name"

	// MaxEnrollment is the largest id the recognizer can use as a label.
	MaxEnrollment = math.MaxInt32
)

var (
	ErrRosterNotFound       = errors.New("student details not found")
	ErrCorruptRoster        = errors.New("student details file is corrupted")
	ErrNonNumericEnrollment = errors.New("enrollment must be numeric")
	ErrMissingInput         = errors.New("enrollment and name are required")
	ErrInvalidEnrollment    = errors.New("enrollment must be between 1 and 2147483647")
	ErrInvalidName          = errors.New("name contains invalid characters")
	ErrDuplicateEnrollment  = errors.New("enrollment already registered")
)

// Student is one registered person. Enrollment is unique within the roster.
type Student struct {
	Enrollment int64  `json:"enrollment"`
	Name       string `json:"name"`
}

// ParseEnrollment accepts "101" and integral floats such as "101.0".
func ParseEnrollment(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrMissingInput
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) || math.Abs(f) > math.MaxInt64 {
		return 0, fmt.Errorf("%w: %q", ErrNonNumericEnrollment, s)
	}
	return int64(f), nil
}

// NewStudent builds a Student from raw operator input.
func NewStudent(enrollment, name string) (Student, error) {
	enrollment = strings.TrimSpace(enrollment)
	name = strings.TrimSpace(name)
	if enrollment == "" || name == "" {
		return Student{}, ErrMissingInput
	}
	id, err := ParseEnrollment(enrollment)
	if err != nil {
		return Student{}, err
	}
	s := Student{Enrollment: id, Name: name}
	return s, s.Validate()
}

// Validate checks the fields Register relies on.
func (s Student) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return ErrMissingInput
	}
	if s.Enrollment <= 0 || s.Enrollment > MaxEnrollment {
		return fmt.Errorf("%w: %d", ErrInvalidEnrollment, s.Enrollment)
	}
	if strings.ContainsAny(s.Name, "/\\\r\n\x00") {
		return fmt.Errorf("%w: %q", ErrInvalidName, s.Name)
	}
	return nil
}

// Load reads the roster. A file without the Enrollment/Name header falls back
// to its first two columns; rows with a blank enrollment or name are dropped.
func Load(path string) ([]Student, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrRosterNotFound, path)
	}
	if err != nil {
		return nil, fmt.Errorf("reading roster: %w", err)
	}
	return Parse(bytes.NewReader(data))
}

// Parse reads roster rows from r.
func Parse(r io.Reader) ([]Student, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptRoster, err)
	}
	if len(records) == 0 {
		return []Student{}, nil
	}

	idCol, nameCol := columnIndex(records[0])
	rows := records[1:]
	if idCol < 0 || nameCol < 0 {
		if len(records[0]) < 2 {
			return nil, fmt.Errorf("%w: expected at least two columns", ErrCorruptRoster)
		}
		idCol, nameCol = 0, 1
		if _, err := ParseEnrollment(records[0][0]); err == nil {
			rows = records
		}
	}

	students := make([]Student, 0, len(rows))
	for i, rec := range rows {
		id, name := cell(rec, idCol), cell(rec, nameCol)
		if id == "" || name == "" {
			log.Debugf("roster: dropping incomplete row %d", i+1)
			continue
		}
		enrollment, err := ParseEnrollment(id)
		if err != nil {
			return nil, err
		}
		students = append(students, Student{Enrollment: enrollment, Name: name})
	}
	return students, nil
}

func columnIndex(header []string) (idCol, nameCol int) {
	idCol, nameCol = -1, -1
	for i, h := range header {
		switch strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")) {
		case EnrollmentColumn:
			if idCol < 0 {
				idCol = i
			}
		case NameColumn:
			if nameCol < 0 {
				nameCol = i
			}
		}
	}
	return idCol, nameCol
}

func cell(rec []string, i int) string {
	if i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[i])
}

// registerMu serializes the read-modify-write of Register.
var registerMu sync.Mutex

// Register appends one student to the roster, creating the file (with header)
// when it does not exist or is empty. The file is replaced atomically.
func Register(path string, s Student) error {
	return RegisterWith(path, s, nil)
}

// RegisterWith is Register followed by then, both under the registration lock.
// A failing then does not remove the appended row.
func RegisterWith(path string, s Student, then func() error) error {
	registerMu.Lock()
	defer registerMu.Unlock()

	if err := register(path, s); err != nil {
		return err
	}
	if then != nil {
		return then()
	}
	return nil
}

func register(path string, s Student) error {
	s.Name = strings.TrimSpace(s.Name)
	if err := s.Validate(); err != nil {
		return err
	}

	existing, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("reading roster: %w", err)
	}

	if len(bytes.TrimSpace(existing)) > 0 {
		students, err := Parse(bytes.NewReader(existing))
		if err != nil {
			return err
		}
		if _, ok := Index(students)[s.Enrollment]; ok {
			return fmt.Errorf("%w: %d", ErrDuplicateEnrollment, s.Enrollment)
		}
	} else {
		existing = nil
	}

	var buf bytes.Buffer
	buf.Write(existing)
	if len(existing) > 0 && !bytes.HasSuffix(existing, []byte("\n")) {
		buf.WriteByte('\n')
	}
	w := csv.NewWriter(&buf)
	if existing == nil {
		_ = w.Write([]string{EnrollmentColumn, NameColumn})
	}
	_ = w.Write([]string{strconv.FormatInt(s.Enrollment, 10), s.Name})
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("encoding roster row: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating roster directory: %w", err)
	}
	if err := renameio.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("writing roster: %w", err)
	}
	log.Infof("roster: registered %d %s", s.Enrollment, s.Name)
	return nil
}

// Index maps enrollment to student, keeping the first row of any duplicate.
func Index(students []Student) map[int64]Student {
	idx := make(map[int64]Student, len(students))
	for _, s := range students {
		if _, ok := idx[s.Enrollment]; !ok {
			idx[s.Enrollment] = s
		}
	}
	return idx
}

// Find returns students whose enrollment equals q or whose normalized name contains it.
func Find(students []Student, q string) []Student {
	q = strings.TrimSpace(q)
	if q == "" {
		return students
	}
	if id, err := ParseEnrollment(q); err == nil {
		var out []Student
		for _, s := range students {
			if s.Enrollment == id {
				out = append(out, s)
			}
		}
		return out
	}

	needle := NormalizeName(q)
	var out []Student
	for _, s := range students {
		if strings.Contains(NormalizeName(s.Name), needle) {
			out = append(out, s)
		}
	}
	return out
}
