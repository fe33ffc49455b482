package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_DefaultStorageLayout(t *testing.T) {
	t.Setenv("ATTENDANCE_ROOT", "/srv/class")

	cfg := Load()

	if cfg.Storage.RosterPath != filepath.Join("/srv/class", "StudentDetails", "studentdetails.csv") {
		t.Errorf("unexpected roster path: %s", cfg.Storage.RosterPath)
	}
	if cfg.Storage.TrainingDir != filepath.Join("/srv/class", "TrainingImage") {
		t.Errorf("unexpected training dir: %s", cfg.Storage.TrainingDir)
	}
	if cfg.Storage.ModelPath != filepath.Join("/srv/class", "TrainingImageLabel", "Trainner.yml") {
		t.Errorf("unexpected model path: %s", cfg.Storage.ModelPath)
	}
	if cfg.Storage.AttendanceDir != filepath.Join("/srv/class", "Attendance") {
		t.Errorf("unexpected attendance dir: %s", cfg.Storage.AttendanceDir)
	}
}

func TestLoad_StorageOverrides(t *testing.T) {
	t.Setenv("ROSTER_PATH", "/tmp/roster.csv")
	t.Setenv("ATTENDANCE_DIR", "/tmp/att")

	cfg := Load()

	if cfg.Storage.RosterPath != "/tmp/roster.csv" {
		t.Errorf("expected roster override, got %s", cfg.Storage.RosterPath)
	}
	if cfg.Storage.AttendanceDir != "/tmp/att" {
		t.Errorf("expected attendance override, got %s", cfg.Storage.AttendanceDir)
	}
}

func TestLoad_VisionDefaults(t *testing.T) {
	cfg := Load()

	if cfg.Vision.ConfidenceThreshold != 70 {
		t.Errorf("expected threshold 70, got %v", cfg.Vision.ConfidenceThreshold)
	}
	if cfg.Vision.SessionDuration != 20*time.Second {
		t.Errorf("expected 20s session, got %v", cfg.Vision.SessionDuration)
	}
	if cfg.Vision.CameraDevice != 0 {
		t.Errorf("expected camera 0, got %d", cfg.Vision.CameraDevice)
	}
}

func TestLoad_SessionDuration(t *testing.T) {
	tests := []struct {
		value    string
		expected time.Duration
	}{
		{"45s", 45 * time.Second},
		{"2m", 2 * time.Minute},
		{"30", 30 * time.Second},
		{"invalid", 20 * time.Second},
		{"-5", 20 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			t.Setenv("SESSION_DURATION", tt.value)
			cfg := Load()
			if cfg.Vision.SessionDuration != tt.expected {
				t.Errorf("SESSION_DURATION=%q: got %v, want %v", tt.value, cfg.Vision.SessionDuration, tt.expected)
			}
		})
	}
}

func TestLoad_InvalidThreshold(t *testing.T) {
	t.Setenv("CONFIDENCE_THRESHOLD", "abc")

	cfg := Load()

	if cfg.Vision.ConfidenceThreshold != 70 {
		t.Errorf("expected default threshold for invalid value, got %v", cfg.Vision.ConfidenceThreshold)
	}
}

func TestLoad_WebConfig(t *testing.T) {
	t.Setenv("WEB_PORT", "9090")
	t.Setenv("WEB_PASSWORD", "secret")

	cfg := Load()

	if cfg.Web.Port != 9090 {
		t.Errorf("expected port 9090, got %d", cfg.Web.Port)
	}
	if cfg.Web.Password != "secret" {
		t.Errorf("expected password to be read")
	}
	if len(cfg.Web.AllowedOrigins) != 0 {
		t.Errorf("expected no extra origins, got %v", cfg.Web.AllowedOrigins)
	}
	if cfg.Web.Host != "0.0.0.0" {
		t.Errorf("expected default host, got %s", cfg.Web.Host)
	}
}

func TestDatabaseConfig_Driver(t *testing.T) {
	tests := []struct {
		url    string
		driver string
		dsn    string
	}{
		{"", "", ""},
		{"sqlite:ledger.db", "sqlite", "ledger.db"},
		{"file:ledger.db?_pragma=busy_timeout(5000)", "sqlite", "file:ledger.db?_pragma=busy_timeout(5000)"},
		{"postgres://u:p@localhost/db", "postgres", "postgres://u:p@localhost/db"},
		{"postgresql://u:p@localhost/db", "postgres", "postgresql://u:p@localhost/db"},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			c := DatabaseConfig{URL: tt.url}
			if got := c.Driver(); got != tt.driver {
				t.Errorf("Driver() = %q, want %q", got, tt.driver)
			}
			if tt.driver != "" {
				if got := c.DSN(); got != tt.dsn {
					t.Errorf("DSN() = %q, want %q", got, tt.dsn)
				}
			}
		})
	}
}

func TestStorageConfig_EnsureDirs(t *testing.T) {
	root := t.TempDir()
	s := StorageConfig{
		RosterPath:    filepath.Join(root, "StudentDetails", "studentdetails.csv"),
		TrainingDir:   filepath.Join(root, "TrainingImage"),
		ModelPath:     filepath.Join(root, "TrainingImageLabel", "Trainner.yml"),
		AttendanceDir: filepath.Join(root, "Attendance"),
	}

	if err := s.EnsureDirs(); err != nil {
		t.Fatalf("EnsureDirs() error = %v", err)
	}

	for _, dir := range []string{"StudentDetails", "TrainingImage", "TrainingImageLabel", "Attendance"} {
		info, err := os.Stat(filepath.Join(root, dir))
		if err != nil || !info.IsDir() {
			t.Errorf("expected directory %s to exist", dir)
		}
	}
}

func TestLoad_EmptyEnvVars(t *testing.T) {
	cfg := Load()

	if cfg.Database.URL != "" {
		t.Errorf("expected empty database URL, got %s", cfg.Database.URL)
	}
	if cfg.Speech.Enabled {
		t.Error("expected speech to be disabled by default")
	}
	if cfg.Database.MaxOpenConns != 10 {
		t.Errorf("expected 10 max open conns, got %d", cfg.Database.MaxOpenConns)
	}
}

func TestLoad_AllowedOrigins(t *testing.T) {
	t.Setenv("WEB_ALLOWED_ORIGINS", "https://a.example, ,https://b.example")

	cfg := Load()

	if len(cfg.Web.AllowedOrigins) != 2 {
		t.Fatalf("expected 2 origins, got %v", cfg.Web.AllowedOrigins)
	}
	if cfg.Web.AllowedOrigins[1] != "https://b.example" {
		t.Errorf("unexpected origin: %s", cfg.Web.AllowedOrigins[1])
	}
}
