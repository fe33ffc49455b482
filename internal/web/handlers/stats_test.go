package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/kozaktomas/attendance/internal/database"
	"github.com/kozaktomas/attendance/internal/roster"
	"github.com/kozaktomas/attendance/internal/samples"
)

func TestStatsHandler_Get_Empty(t *testing.T) {
	cfg := testConfig(t)
	handler := NewStatsHandler(cfg, samples.NewStore(cfg.Storage.TrainingDir, nil))

	recorder := httptest.NewRecorder()
	handler.Get(recorder, httptest.NewRequest("GET", "/api/v1/stats", nil))

	assertStatusCode(t, recorder, http.StatusOK)
	var stats StatsResponse
	parseJSONResponse(t, recorder, &stats)
	if stats != (StatsResponse{}) {
		t.Errorf("expected zero stats, got %+v", stats)
	}
}

func TestStatsHandler_Get_FromFiles(t *testing.T) {
	cfg := testConfig(t)
	store := samples.NewStore(cfg.Storage.TrainingDir, nil)
	writeRoster(t, cfg, "Enrollment,Name\n101,Asha\n102,Ravi\n")
	if _, err := store.AddSample(roster.Student{Enrollment: 101, Name: "Asha"}, pngImage(t)); err != nil {
		t.Fatal(err)
	}
	writeFile(t, cfg.Storage.ModelPath, "model")
	writeSession(t, cfg, "math", "math_2024-01-01_10-00-00.csv", "Enrollment,Name,2024-01-01\n101,Asha,1\n")
	writeSession(t, cfg, "math", "math_2024-01-02_10-00-00.csv", "Enrollment,Name,2024-01-02\n101,Asha,1\n")
	writeSession(t, cfg, "physics", "physics_2024-01-01_10-00-00.csv", "Enrollment,Name,2024-01-01\n102,Ravi,1\n")

	handler := NewStatsHandler(cfg, store)
	recorder := httptest.NewRecorder()
	handler.Get(recorder, httptest.NewRequest("GET", "/api/v1/stats", nil))

	var stats StatsResponse
	parseJSONResponse(t, recorder, &stats)
	if stats.Students != 2 || stats.TrainingImages != 1 || stats.Subjects != 2 || stats.Sessions != 3 {
		t.Errorf("unexpected stats %+v", stats)
	}
	if !stats.ModelTrained || stats.ModelSize != "5 B" || stats.ModelUpdated == "" {
		t.Errorf("unexpected model stats %+v", stats)
	}
}

func TestStatsHandler_Get_FromLedger(t *testing.T) {
	ledger := useLedger(t)
	cfg := testConfig(t)
	for _, name := range []string{"a.csv", "b.csv"} {
		_, err := ledger.RecordSession(context.Background(), database.SessionRecord{
			Subject: "math", FileName: name, RecordedAt: time.Now().Add(-2 * time.Hour),
		})
		if err != nil {
			t.Fatal(err)
		}
	}

	handler := NewStatsHandler(cfg, samples.NewStore(cfg.Storage.TrainingDir, nil))
	recorder := httptest.NewRecorder()
	handler.Get(recorder, httptest.NewRequest("GET", "/api/v1/stats", nil))

	var stats StatsResponse
	parseJSONResponse(t, recorder, &stats)
	if stats.Sessions != 2 {
		t.Errorf("expected 2 sessions from the ledger, got %d", stats.Sessions)
	}
	if stats.LastSession != "2 hours ago" {
		t.Errorf("unexpected last session %q", stats.LastSession)
	}
}

func TestStatsHandler_Get_Caching(t *testing.T) {
	cfg := testConfig(t)
	handler := NewStatsHandler(cfg, samples.NewStore(cfg.Storage.TrainingDir, nil))

	recorder := httptest.NewRecorder()
	handler.Get(recorder, httptest.NewRequest("GET", "/api/v1/stats", nil))

	writeRoster(t, cfg, "Enrollment,Name\n101,Asha\n")

	recorder = httptest.NewRecorder()
	handler.Get(recorder, httptest.NewRequest("GET", "/api/v1/stats", nil))
	var cached StatsResponse
	parseJSONResponse(t, recorder, &cached)
	if cached.Students != 0 {
		t.Errorf("expected cached stats, got %+v", cached)
	}

	recorder = httptest.NewRecorder()
	handler.Get(recorder, httptest.NewRequest("GET", "/api/v1/stats?refresh=true", nil))
	var fresh StatsResponse
	parseJSONResponse(t, recorder, &fresh)
	if fresh.Students != 1 {
		t.Errorf("expected refreshed stats, got %+v", fresh)
	}
}

func TestStatsHandler_Get_CorruptRoster(t *testing.T) {
	cfg := testConfig(t)
	writeRoster(t, cfg, "onecolumn\n1\n")
	handler := NewStatsHandler(cfg, samples.NewStore(cfg.Storage.TrainingDir, nil))

	recorder := httptest.NewRecorder()
	handler.Get(recorder, httptest.NewRequest("GET", "/api/v1/stats", nil))

	assertStatusCode(t, recorder, http.StatusUnprocessableEntity)
}
