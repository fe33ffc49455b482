package roster

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

func writeRoster(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "studentdetails.csv")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write roster: %v", err)
	}
	return path
}

func TestRegister_NewFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "StudentDetails", "studentdetails.csv")

	if err := Register(path, Student{Enrollment: 101, Name: "Asha"}); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read roster: %v", err)
	}
	if string(data) != "Enrollment,Name\n101,Asha\n" {
		t.Errorf("unexpected roster content: %q", string(data))
	}
}

func TestRegister_AppendsOneRow(t *testing.T) {
	path := writeRoster(t, "Enrollment,Name\n100,Ravi")

	if err := Register(path, Student{Enrollment: 101, Name: "Asha"}); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	data, _ := os.ReadFile(path)
	if string(data) != "Enrollment,Name\n100,Ravi\n101,Asha\n" {
		t.Errorf("unexpected roster content: %q", string(data))
	}
}

func TestRegister_EmptyFileGetsHeader(t *testing.T) {
	path := writeRoster(t, "\n")

	if err := Register(path, Student{Enrollment: 7, Name: "Mia"}); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	data, _ := os.ReadFile(path)
	if string(data) != "Enrollment,Name\n7,Mia\n" {
		t.Errorf("unexpected roster content: %q", string(data))
	}
}

func TestRegister_Duplicate(t *testing.T) {
	path := writeRoster(t, "Enrollment,Name\n101,Asha\n")

	err := Register(path, Student{Enrollment: 101, Name: "Other"})
	if !errors.Is(err, ErrDuplicateEnrollment) {
		t.Fatalf("expected ErrDuplicateEnrollment, got %v", err)
	}

	data, _ := os.ReadFile(path)
	if strings.Count(string(data), "\n") != 2 {
		t.Errorf("roster should be unchanged, got %q", string(data))
	}
}

func TestRegister_Concurrent(t *testing.T) {
	path := writeRoster(t, "Enrollment,Name\n1,Seed\n")

	const n = 20
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- Register(path, Student{Enrollment: int64(100 + i), Name: fmt.Sprintf("S%d", i)})
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Errorf("Register() error = %v", err)
		}
	}
	students, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(students) != n+1 {
		t.Errorf("expected %d rows, got %d", n+1, len(students))
	}
}

func TestRegister_ConcurrentDuplicate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "roster.csv")

	var wg sync.WaitGroup
	errs := make(chan error, 10)
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- Register(path, Student{Enrollment: 101, Name: "Asha"})
		}()
	}
	wg.Wait()
	close(errs)

	var ok, dup int
	for err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, ErrDuplicateEnrollment):
			dup++
		default:
			t.Errorf("unexpected error %v", err)
		}
	}
	if ok != 1 || dup != 9 {
		t.Errorf("expected 1 registration and 9 duplicates, got %d and %d", ok, dup)
	}
}

func TestRegisterWith(t *testing.T) {
	path := filepath.Join(t.TempDir(), "roster.csv")
	wantErr := errors.New("folder failed")

	called := false
	err := RegisterWith(path, Student{Enrollment: 5, Name: "Mia"}, func() error {
		called = true
		return wantErr
	})
	if !called || !errors.Is(err, wantErr) {
		t.Fatalf("expected then to run and fail, got called=%v err=%v", called, err)
	}

	err = RegisterWith(path, Student{Enrollment: 5, Name: "Mia"}, func() error {
		t.Error("then must not run when registration fails")
		return nil
	})
	if !errors.Is(err, ErrDuplicateEnrollment) {
		t.Errorf("expected ErrDuplicateEnrollment, got %v", err)
	}
}

func TestRegister_QuotesNamesWithCommas(t *testing.T) {
	path := filepath.Join(t.TempDir(), "roster.csv")

	if err := Register(path, Student{Enrollment: 5, Name: "Rao, Asha"}); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	students, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(students) != 1 || students[0].Name != "Rao, Asha" {
		t.Errorf("unexpected students: %+v", students)
	}
}

func TestRegister_Validation(t *testing.T) {
	tests := []struct {
		name    string
		student Student
		wantErr error
	}{
		{"blank name", Student{Enrollment: 1, Name: "  "}, ErrMissingInput},
		{"zero enrollment", Student{Enrollment: 0, Name: "Asha"}, ErrInvalidEnrollment},
		{"negative enrollment", Student{Enrollment: -3, Name: "Asha"}, ErrInvalidEnrollment},
		{"enrollment above label range", Student{Enrollment: 3000000000, Name: "Asha"}, ErrInvalidEnrollment},
		{"slash in name", Student{Enrollment: 1, Name: "a/b"}, ErrInvalidName},
		{"newline in name", Student{Enrollment: 1, Name: "a\nb"}, ErrInvalidName},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "roster.csv")
			err := Register(path, tt.student)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
			if _, statErr := os.Stat(path); !os.IsNotExist(statErr) {
				t.Error("roster must not be created on validation failure")
			}
		})
	}
}

func TestNewStudent(t *testing.T) {
	tests := []struct {
		enrollment string
		name       string
		wantErr    error
		want       Student
	}{
		{"101", "Asha", nil, Student{101, "Asha"}},
		{" 42 ", " Ravi ", nil, Student{42, "Ravi"}},
		{"", "Asha", ErrMissingInput, Student{}},
		{"101", "", ErrMissingInput, Student{}},
		{"abc", "Asha", ErrNonNumericEnrollment, Student{}},
	}

	for _, tt := range tests {
		t.Run(tt.enrollment+"/"+tt.name, func(t *testing.T) {
			got, err := NewStudent(tt.enrollment, tt.name)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
			if err == nil && got != tt.want {
				t.Errorf("NewStudent() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestLoad_Missing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.csv"))
	if !errors.Is(err, ErrRosterNotFound) {
		t.Errorf("expected ErrRosterNotFound, got %v", err)
	}
}

func TestLoad_Header(t *testing.T) {
	path := writeRoster(t, "Name,Enrollment,Email\nAsha,101,a@example.com\nRavi,102,\n")

	students, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(students) != 2 {
		t.Fatalf("expected 2 students, got %d", len(students))
	}
	if students[0] != (Student{101, "Asha"}) || students[1] != (Student{102, "Ravi"}) {
		t.Errorf("unexpected students: %+v", students)
	}
}

func TestLoad_FallbackFirstTwoColumns(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    int
	}{
		{"unknown header", "ID,Student\n101,Asha\n102,Ravi\n", 2},
		{"headerless", "101,Asha\n102,Ravi\n", 2},
		{"float ids", "Id,Who\n101.0,Asha\n", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			students, err := Load(writeRoster(t, tt.content))
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			if len(students) != tt.want {
				t.Fatalf("expected %d students, got %+v", tt.want, students)
			}
			if students[0] != (Student{101, "Asha"}) {
				t.Errorf("unexpected first student: %+v", students[0])
			}
		})
	}
}

func TestLoad_Corrupt(t *testing.T) {
	_, err := Load(writeRoster(t, "justonecolumn\n101\n"))
	if !errors.Is(err, ErrCorruptRoster) {
		t.Errorf("expected ErrCorruptRoster, got %v", err)
	}
}

func TestLoad_DropsBlankRows(t *testing.T) {
	path := writeRoster(t, "Enrollment,Name\n101,Asha\n,Nobody\n103,\n104,Lee\n")

	students, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(students) != 2 {
		t.Errorf("expected 2 students, got %+v", students)
	}
}

func TestLoad_NonNumeric(t *testing.T) {
	_, err := Load(writeRoster(t, "Enrollment,Name\nA12,Asha\n"))
	if !errors.Is(err, ErrNonNumericEnrollment) {
		t.Errorf("expected ErrNonNumericEnrollment, got %v", err)
	}
}

func TestLoad_Empty(t *testing.T) {
	students, err := Load(writeRoster(t, ""))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(students) != 0 {
		t.Errorf("expected no students, got %+v", students)
	}
}

func TestIndex_KeepsFirst(t *testing.T) {
	idx := Index([]Student{{1, "First"}, {2, "Two"}, {1, "Second"}})

	if len(idx) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(idx))
	}
	if idx[1].Name != "First" {
		t.Errorf("expected first row to win, got %s", idx[1].Name)
	}
}

func TestFind(t *testing.T) {
	students := []Student{{101, "Asha Rao"}, {102, "Jiří Novák"}, {103, "Ravi"}}

	tests := []struct {
		query string
		want  []int64
	}{
		{"102", []int64{102}},
		{"jiri", []int64{102}},
		{"RA", []int64{101, 103}},
		{"asha-rao", []int64{101}},
		{"", []int64{101, 102, 103}},
		{"zzz", nil},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			got := Find(students, tt.query)
			if len(got) != len(tt.want) {
				t.Fatalf("Find(%q) = %+v, want %v", tt.query, got, tt.want)
			}
			for i, s := range got {
				if s.Enrollment != tt.want[i] {
					t.Errorf("Find(%q)[%d] = %d, want %d", tt.query, i, s.Enrollment, tt.want[i])
				}
			}
		})
	}
}
