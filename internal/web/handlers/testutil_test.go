package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/kozaktomas/attendance/internal/config"
	"github.com/kozaktomas/attendance/internal/database"
	dbmock "github.com/kozaktomas/attendance/internal/database/mock"
)

// testConfig creates a config whose storage lives in a temporary directory
func testConfig(t *testing.T) *config.Config {
	t.Helper()
	root := t.TempDir()
	return &config.Config{
		Storage: config.StorageConfig{
			Root:          root,
			RosterPath:    filepath.Join(root, "StudentDetails", "studentdetails.csv"),
			TrainingDir:   filepath.Join(root, "TrainingImage"),
			ModelPath:     filepath.Join(root, "TrainingImageLabel", "Trainner.yml"),
			AttendanceDir: filepath.Join(root, "Attendance"),
		},
		Vision: config.VisionConfig{
			ConfidenceThreshold: 70,
			SessionDuration:     20 * time.Second,
		},
	}
}

// writeFile writes content below dir, creating parent directories
func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

// writeRoster writes the roster of cfg
func writeRoster(t *testing.T, cfg *config.Config, content string) {
	t.Helper()
	writeFile(t, cfg.Storage.RosterPath, content)
}

// writeSession writes one session file of subject
func writeSession(t *testing.T, cfg *config.Config, subject, name, content string) {
	t.Helper()
	writeFile(t, filepath.Join(cfg.Storage.AttendanceDir, subject, name), content)
}

// pngImage returns an encoded gray test image
func pngImage(t *testing.T) []byte {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, 32, 32))
	for x := range 32 {
		img.SetGray(x, x, color.Gray{Y: 200})
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

// useLedger registers an in-memory ledger for the duration of the test
func useLedger(t *testing.T) *dbmock.MockSessionLedger {
	t.Helper()
	ledger := dbmock.NewMockSessionLedger()
	sessions := dbmock.NewMockWebSessionStore()
	database.RegisterBackend("mock",
		func() database.SessionLedger { return ledger },
		func() database.WebSessionStore { return sessions },
	)
	t.Cleanup(database.Reset)
	return ledger
}

// requestWithChiParams creates a request with chi URL parameters
func requestWithChiParams(r *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for key, value := range params {
		rctx.URLParams.Add(key, value)
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// parseJSONResponse parses a JSON response body into the target type
func parseJSONResponse(t *testing.T, recorder *httptest.ResponseRecorder, target any) {
	t.Helper()
	if err := json.Unmarshal(recorder.Body.Bytes(), target); err != nil {
		t.Fatalf("failed to parse JSON response: %v\nBody: %s", err, recorder.Body.String())
	}
}

// assertStatusCode checks if the response has the expected status code
func assertStatusCode(t *testing.T, recorder *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if recorder.Code != expected {
		t.Errorf("expected status %d, got %d\nBody: %s", expected, recorder.Code, recorder.Body.String())
	}
}

// assertContentType checks if the response has the expected content type
func assertContentType(t *testing.T, recorder *httptest.ResponseRecorder, expected string) {
	t.Helper()
	ct := recorder.Header().Get("Content-Type")
	if ct != expected {
		t.Errorf("expected Content-Type '%s', got '%s'", expected, ct)
	}
}

// assertJSONError checks if the response is a JSON error with the expected message
func assertJSONError(t *testing.T, recorder *httptest.ResponseRecorder, expectedMessage string) {
	t.Helper()
	var result ErrorResponse
	if err := json.Unmarshal(recorder.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse error response: %v\nBody: %s", err, recorder.Body.String())
	}
	if result.Error != expectedMessage {
		t.Errorf("expected error '%s', got '%s'", expectedMessage, result.Error)
	}
}

// listDir returns the names in dir, or nothing when it does not exist
func listDir(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names, nil
}
