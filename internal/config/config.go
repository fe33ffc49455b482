package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Storage  StorageConfig
	Vision   VisionConfig
	Speech   SpeechConfig
	Web      WebConfig
	Database DatabaseConfig
	Log      LogConfig
}

// StorageConfig holds the flat-file locations. Every operation receives these
// paths explicitly instead of reading package-level globals.
type StorageConfig struct {
	Root          string // base directory, all defaults are relative to it
	RosterPath    string // CSV roster with Enrollment,Name rows
	TrainingDir   string // one sub-directory of face images per student
	ModelPath     string // serialized recognizer produced by training
	AttendanceDir string // one sub-directory of session files per subject
}

// EnsureDirs creates every directory the storage layout needs.
func (s *StorageConfig) EnsureDirs() error {
	for _, dir := range []string{
		filepath.Dir(s.RosterPath),
		s.TrainingDir,
		filepath.Dir(s.ModelPath),
		s.AttendanceDir,
	} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return nil
}

type VisionConfig struct {
	CascadePath         string        // OpenCV Haar cascade XML
	PigoCascadePath     string        // pigo facefinder cascade (optional, used to crop uploaded samples)
	CameraDevice        int           // video capture device index
	ConfidenceThreshold float64       // accept a prediction when its distance is below this value
	SessionDuration     time.Duration // length of one capture window
	Preview             bool          // show the camera preview window (Esc stops the session)
}

type SpeechConfig struct {
	Enabled         bool
	CredentialsFile string // Google service account JSON
	LanguageCode    string // defaults to en-US
	VoiceName       string // optional voice name, e.g. en-US-Wavenet-D
	PlayerCommand   string // command that plays WAV data from stdin, e.g. "aplay -q"
}

type WebConfig struct {
	Host           string
	Port           int
	Password       string // operator password, empty disables login
	SessionSecret  string
	AllowedOrigins []string // extra CORS origins, localhost is always allowed
}

type DatabaseConfig struct {
	URL          string // sqlite:path, file:path or postgres://... (empty disables the ledger)
	MaxOpenConns int    // Maximum open connections (default 10)
	MaxIdleConns int    // Maximum idle connections (default 2)
}

// Driver returns the database/sql driver name selected by the URL scheme.
func (c *DatabaseConfig) Driver() string {
	switch {
	case c.URL == "":
		return ""
	case strings.HasPrefix(c.URL, "postgres://"), strings.HasPrefix(c.URL, "postgresql://"):
		return "postgres"
	default:
		return "sqlite"
	}
}

// DSN returns the URL stripped of the sqlite: prefix understood by Driver.
func (c *DatabaseConfig) DSN() string {
	if c.Driver() == "sqlite" {
		return strings.TrimPrefix(c.URL, "sqlite:")
	}
	return c.URL
}

type LogConfig struct {
	Level  string // logrus level name, defaults to info
	Format string // text or json
}

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

// envFloat reads a positive float, falling back to defaultVal.
func envFloat(key string, defaultVal float64) float64 {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f > 0 {
		return f
	}
	return defaultVal
}

// envDuration accepts Go durations ("45s") or a plain number of seconds.
func envDuration(key string, defaultVal time.Duration) time.Duration {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if d, err := time.ParseDuration(s); err == nil && d > 0 {
		return d
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return time.Duration(n) * time.Second
	}
	return defaultVal
}

func envBool(key string) bool {
	b, _ := strconv.ParseBool(os.Getenv(key))
	return b
}

// envList splits a comma-separated variable, dropping empty items.
func envList(key string) []string {
	var out []string
	for item := range strings.SplitSeq(os.Getenv(key), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func envString(key, defaultVal string) string {
	if s := os.Getenv(key); s != "" {
		return s
	}
	return defaultVal
}

func Load() *Config {
	root := envString("ATTENDANCE_ROOT", ".")

	return &Config{
		Storage: StorageConfig{
			Root:          root,
			RosterPath:    envString("ROSTER_PATH", filepath.Join(root, "StudentDetails", "studentdetails.csv")),
			TrainingDir:   envString("TRAINING_DIR", filepath.Join(root, "TrainingImage")),
			ModelPath:     envString("MODEL_PATH", filepath.Join(root, "TrainingImageLabel", "Trainner.yml")),
			AttendanceDir: envString("ATTENDANCE_DIR", filepath.Join(root, "Attendance")),
		},
		Vision: VisionConfig{
			CascadePath:         envString("CASCADE_PATH", filepath.Join(root, "haarcascade_frontalface_alt.xml")),
			PigoCascadePath:     os.Getenv("PIGO_CASCADE_PATH"),
			CameraDevice:        envInt("CAMERA_DEVICE", 0),
			ConfidenceThreshold: envFloat("CONFIDENCE_THRESHOLD", 70),
			SessionDuration:     envDuration("SESSION_DURATION", 20*time.Second),
			Preview:             envBool("CAMERA_PREVIEW"),
		},
		Speech: SpeechConfig{
			Enabled:         envBool("SPEECH_ENABLED"),
			CredentialsFile: os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"),
			LanguageCode:    envString("SPEECH_LANGUAGE", "en-US"),
			VoiceName:       os.Getenv("SPEECH_VOICE"),
			PlayerCommand:   os.Getenv("SPEECH_PLAYER"),
		},
		Web: WebConfig{
			Host:           envString("WEB_HOST", "0.0.0.0"),
			Port:           envInt("WEB_PORT", 8080),
			Password:       os.Getenv("WEB_PASSWORD"),
			SessionSecret:  os.Getenv("WEB_SESSION_SECRET"),
			AllowedOrigins: envList("WEB_ALLOWED_ORIGINS"),
		},
		Database: DatabaseConfig{
			URL:          os.Getenv("DATABASE_URL"),
			MaxOpenConns: envInt("DATABASE_MAX_OPEN_CONNS", 10),
			MaxIdleConns: envInt("DATABASE_MAX_IDLE_CONNS", 2),
		},
		Log: LogConfig{
			Level:  envString("LOG_LEVEL", "info"),
			Format: envString("LOG_FORMAT", "text"),
		},
	}
}
