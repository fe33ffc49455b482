package attendance

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/google/renameio"
	"github.com/montanaflynn/stats"

	"github.com/kozaktomas/attendance/internal/constants"
)

// SummaryRow is one student across all sessions of a subject.
type SummaryRow struct {
	Enrollment string    `json:"enrollment"`
	Name       string    `json:"name"`
	Values     []float64 `json:"values"`
	Percent    int       `json:"percent"`
}

// Attendance is the derived column, e.g. "50%".
func (r SummaryRow) Attendance() string {
	return fmt.Sprintf("%d%%", r.Percent)
}

// Summary is the outer join of every usable session of a subject.
type Summary struct {
	Subject  string       `json:"subject"`
	Sessions []string     `json:"sessions"`
	Skipped  []string     `json:"skipped,omitempty"`
	Rows     []SummaryRow `json:"rows"`
}

type rowKey struct {
	enrollment string
	name       string
}

// Summarize builds the summary of a subject without writing anything.
func Summarize(dir, subject string) (*Summary, error) {
	subject, err := ValidateSubject(subject)
	if err != nil {
		return nil, err
	}
	if info, err := os.Stat(filepath.Join(dir, subject)); err != nil || !info.IsDir() {
		return nil, subjectErr(subject, ErrSubjectNotFound)
	}

	files, err := ListSessions(dir, subject)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, subjectErr(subject, ErrNoSessionFiles)
	}

	sum := &Summary{Subject: subject}
	cells := make(map[rowKey][]float64)
	var keys []rowKey

	for _, f := range files {
		tbl, err := readSessionTable(f.Path)
		if err != nil {
			log.Warnf("attendance: skipping %s: %v", f.FileName, err)
			sum.Skipped = append(sum.Skipped, f.FileName)
			continue
		}

		col := len(sum.Sessions)
		sum.Sessions = append(sum.Sessions, f.Name)
		for k := range cells {
			cells[k] = append(cells[k], 0)
		}

		seen := make(map[rowKey]bool, len(tbl.rows))
		for _, r := range tbl.rows {
			k := rowKey{enrollment: canonicalEnrollment(r.enrollment), name: r.name}
			if seen[k] {
				continue
			}
			seen[k] = true
			if _, ok := cells[k]; !ok {
				cells[k] = make([]float64, col+1)
				keys = append(keys, k)
			}
			cells[k][col] = parseValue(r.value)
		}
	}

	if len(sum.Sessions) == 0 {
		return nil, subjectErr(subject, ErrNoSessionData)
	}

	sort.Slice(keys, func(i, j int) bool { return lessKey(keys[i], keys[j]) })

	sum.Rows = make([]SummaryRow, 0, len(keys))
	for _, k := range keys {
		vals := cells[k]
		mean, err := stats.Mean(vals)
		if err != nil {
			return nil, fmt.Errorf("computing attendance for %s: %w", k.enrollment, err)
		}
		sum.Rows = append(sum.Rows, SummaryRow{
			Enrollment: k.enrollment,
			Name:       k.name,
			Values:     vals,
			Percent:    int(math.RoundToEven(mean * 100)),
		})
	}
	return sum, nil
}

// Aggregate summarizes a subject and writes {dir}/{subject}/attendance.csv,
// replacing any previous summary. Nothing is written when it fails.
func Aggregate(dir, subject string) (*Summary, error) {
	sum, err := Summarize(dir, subject)
	if err != nil {
		return nil, err
	}
	data, err := sum.CSV()
	if err != nil {
		return nil, err
	}
	path := filepath.Join(dir, sum.Subject, constants.SummaryFileName)
	if err := renameio.WriteFile(path, data, 0o644); err != nil {
		return nil, fmt.Errorf("writing summary: %w", err)
	}
	log.Infof("attendance: %s summary written (%d students, %d sessions)", sum.Subject, len(sum.Rows), len(sum.Sessions))
	return sum, nil
}

// SummaryPath is where Aggregate writes the summary of a subject.
func SummaryPath(dir, subject string) string {
	return filepath.Join(dir, subject, constants.SummaryFileName)
}

// CSV renders the summary in its on-disk form.
func (s *Summary) CSV() ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	header := append([]string{EnrollmentColumn, NameColumn}, s.Sessions...)
	_ = w.Write(append(header, SummaryColumn))
	for _, r := range s.Rows {
		rec := make([]string, 0, len(r.Values)+3)
		rec = append(rec, r.Enrollment, r.Name)
		for _, v := range r.Values {
			rec = append(rec, formatValue(v))
		}
		_ = w.Write(append(rec, r.Attendance()))
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("encoding summary: %w", err)
	}
	return buf.Bytes(), nil
}

// canonicalEnrollment maps "101" and "101.0" to the same key.
func canonicalEnrollment(s string) string {
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return strconv.FormatInt(n, 10)
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f == math.Trunc(f) && !math.IsInf(f, 0) {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return s
}

func parseValue(s string) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

func formatValue(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// lessKey orders numeric enrollments numerically and before any other value.
func lessKey(a, b rowKey) bool {
	na, errA := strconv.ParseFloat(a.enrollment, 64)
	nb, errB := strconv.ParseFloat(b.enrollment, 64)
	switch {
	case errA == nil && errB == nil && na != nb:
		return na < nb
	case errA == nil && errB != nil:
		return true
	case errA != nil && errB == nil:
		return false
	case errA != nil && errB != nil && a.enrollment != b.enrollment:
		return a.enrollment < b.enrollment
	}
	return a.name < b.name
}
