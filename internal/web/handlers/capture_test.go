package handlers

import (
	"fmt"
	"image"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/kozaktomas/attendance/internal/config"
	"github.com/kozaktomas/attendance/internal/database"
	"github.com/kozaktomas/attendance/internal/vision"
	"github.com/kozaktomas/attendance/internal/vision/mock"
)

func newCaptureHandler(t *testing.T, backend *mock.MockBackend) (*CaptureHandler, *config.Config) {
	t.Helper()
	cfg := testConfig(t)
	writeRoster(t, cfg, "Enrollment,Name\n101,Asha\n102,Ravi\n")
	writeFile(t, cfg.Storage.ModelPath, "model")
	return NewCaptureHandler(cfg, backend, NewJobManager()), cfg
}

func startCapture(t *testing.T, h *CaptureHandler, body string) (*httptest.ResponseRecorder, string) {
	t.Helper()
	recorder := httptest.NewRecorder()
	h.Start(recorder, httptest.NewRequest("POST", "/api/v1/capture", strings.NewReader(body)))
	var resp map[string]string
	if recorder.Code == http.StatusAccepted {
		parseJSONResponse(t, recorder, &resp)
	}
	return recorder, resp["job_id"]
}

func waitForJob(t *testing.T, job *CaptureJob) CaptureState {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if isJobTerminal(job.GetStatus()) {
			return job.Snapshot()
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("job %s did not finish", job.ID())
	return CaptureState{}
}

func seen(label int, distance float64) []vision.Match {
	return []vision.Match{{Label: label, Distance: distance, Box: image.Rect(0, 0, 10, 10)}}
}

func TestCaptureHandler_Start_Completes(t *testing.T) {
	ledger := useLedger(t)
	handler, _ := newCaptureHandler(t, mock.NewMockBackend(seen(101, 20), seen(102, 95), seen(101, 10)))

	recorder, jobID := startCapture(t, handler, `{"subject": "math", "duration_seconds": 0.05}`)
	assertStatusCode(t, recorder, http.StatusAccepted)

	state := waitForJob(t, handler.jobManager.GetJob(jobID))
	if state.Status != JobStatusCompleted {
		t.Fatalf("expected completed, got %+v", state)
	}
	if len(state.Recognized) != 1 || state.Recognized[0].Name != "Asha" {
		t.Errorf("unexpected recognized %+v", state.Recognized)
	}
	if state.Session == nil || !strings.HasPrefix(state.Session.FileName, "math_") {
		t.Errorf("expected a written session, got %+v", state.Session)
	}
	if state.Advisory != "Attendance saved for math." {
		t.Errorf("unexpected advisory %q", state.Advisory)
	}

	records := ledger.Records()
	if len(records) != 1 || records[0].Source != database.SourceWeb || records[0].Students != 1 {
		t.Errorf("unexpected ledger records %+v", records)
	}
}

func TestCaptureHandler_Start_Validation(t *testing.T) {
	handler, _ := newCaptureHandler(t, mock.NewMockBackend())

	tests := []struct {
		name string
		body string
	}{
		{"invalid json", `{`},
		{"missing subject", `{"subject": "  "}`},
		{"slash in subject", `{"subject": "a/b"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recorder, _ := startCapture(t, handler, tt.body)
			assertStatusCode(t, recorder, http.StatusBadRequest)
		})
	}
}

func TestCaptureHandler_Start_ModelMissing(t *testing.T) {
	handler, cfg := newCaptureHandler(t, mock.NewMockBackend(seen(101, 10)))
	cfg.Storage.ModelPath += ".missing"

	_, jobID := startCapture(t, handler, `{"subject": "math", "duration_seconds": 0.05}`)

	state := waitForJob(t, handler.jobManager.GetJob(jobID))
	if state.Status != JobStatusFailed || state.Advisory != "Model not found, please train model" {
		t.Errorf("unexpected state %+v", state)
	}
}

func TestCaptureHandler_Start_NoFaces(t *testing.T) {
	handler, _ := newCaptureHandler(t, mock.NewMockBackend(seen(101, 90)))

	_, jobID := startCapture(t, handler, `{"subject": "math", "duration_seconds": 0.05}`)

	state := waitForJob(t, handler.jobManager.GetJob(jobID))
	if state.Status != JobStatusFailed || state.Advisory != "No Face found for attendance" {
		t.Errorf("unexpected state %+v", state)
	}
}

func TestCaptureHandler_OneJobAtATime(t *testing.T) {
	handler, _ := newCaptureHandler(t, mock.NewMockBackend(seen(101, 10)))

	recorder, jobID := startCapture(t, handler, `{"subject": "math", "duration_seconds": 30}`)
	assertStatusCode(t, recorder, http.StatusAccepted)

	recorder, _ = startCapture(t, handler, `{"subject": "physics"}`)
	assertStatusCode(t, recorder, http.StatusConflict)

	active := httptest.NewRecorder()
	handler.Active(active, httptest.NewRequest("GET", "/api/v1/capture", nil))
	var state CaptureState
	parseJSONResponse(t, active, &state)
	if state.ID != jobID {
		t.Errorf("expected active job %s, got %+v", jobID, state)
	}

	stop := httptest.NewRecorder()
	handler.Stop(stop, requestWithChiParams(httptest.NewRequest("POST", "/", nil), map[string]string{"jobId": jobID}))
	assertStatusCode(t, stop, http.StatusOK)

	final := waitForJob(t, handler.jobManager.GetJob(jobID))
	if final.Status != JobStatusCompleted || len(final.Recognized) != 1 {
		t.Errorf("stopped job should save what was seen, got %+v", final)
	}

	recorder, _ = startCapture(t, handler, `{"subject": "physics", "duration_seconds": 0.05}`)
	assertStatusCode(t, recorder, http.StatusAccepted)
}

func TestCaptureHandler_Cancel(t *testing.T) {
	handler, cfg := newCaptureHandler(t, mock.NewMockBackend(seen(101, 10)))

	_, jobID := startCapture(t, handler, `{"subject": "math", "duration_seconds": 30}`)
	req := requestWithChiParams(httptest.NewRequest("POST", "/", nil), map[string]string{"jobId": jobID})

	recorder := httptest.NewRecorder()
	handler.Cancel(recorder, req)
	assertStatusCode(t, recorder, http.StatusOK)

	state := waitForJob(t, handler.jobManager.GetJob(jobID))
	if state.Status != JobStatusCancelled || state.Session != nil {
		t.Errorf("unexpected state %+v", state)
	}

	recorder = httptest.NewRecorder()
	handler.Cancel(recorder, req)
	assertStatusCode(t, recorder, http.StatusConflict)

	if subjects, _ := listDir(cfg.Storage.AttendanceDir + "/math"); len(subjects) != 0 {
		t.Errorf("cancelled job must not write a session, found %v", subjects)
	}
}

func TestCaptureHandler_Status_NotFound(t *testing.T) {
	handler, _ := newCaptureHandler(t, mock.NewMockBackend())

	recorder := httptest.NewRecorder()
	handler.Status(recorder, requestWithChiParams(httptest.NewRequest("GET", "/", nil), map[string]string{"jobId": "nope"}))

	assertStatusCode(t, recorder, http.StatusNotFound)
	assertJSONError(t, recorder, "job not found")
}

func TestCaptureHandler_Events_FinishedJob(t *testing.T) {
	handler, _ := newCaptureHandler(t, mock.NewMockBackend(seen(101, 10)))
	_, jobID := startCapture(t, handler, `{"subject": "math", "duration_seconds": 0.05}`)
	waitForJob(t, handler.jobManager.GetJob(jobID))

	recorder := httptest.NewRecorder()
	handler.Events(recorder, requestWithChiParams(httptest.NewRequest("GET", "/", nil), map[string]string{"jobId": jobID}))

	assertContentType(t, recorder, "text/event-stream")
	body := recorder.Body.String()
	if !strings.HasPrefix(body, "event: status\n") || !strings.Contains(body, `"status":"completed"`) {
		t.Errorf("unexpected stream %q", body)
	}
}

func TestCaptureHandler_CancelKeepsCameraUntilReleased(t *testing.T) {
	backend := mock.NewMockBackend(seen(101, 10))
	backend.Idle = 100 * time.Millisecond
	backend.CloseDelay = 300 * time.Millisecond
	handler, _ := newCaptureHandler(t, backend)

	recorder, jobID := startCapture(t, handler, `{"subject": "math", "duration_seconds": 30}`)
	assertStatusCode(t, recorder, http.StatusAccepted)
	job := handler.jobManager.GetJob(jobID)

	cancel := httptest.NewRecorder()
	handler.Cancel(cancel, requestWithChiParams(httptest.NewRequest("DELETE", "/", nil), map[string]string{"jobId": jobID}))
	assertStatusCode(t, cancel, http.StatusOK)

	recorder, _ = startCapture(t, handler, `{"subject": "physics", "duration_seconds": 0.05}`)
	assertStatusCode(t, recorder, http.StatusConflict)

	if state := waitForJob(t, job); state.Status != JobStatusCancelled {
		t.Fatalf("expected cancelled, got %+v", state)
	}

	recorder, nextID := startCapture(t, handler, `{"subject": "physics", "duration_seconds": 0.05}`)
	assertStatusCode(t, recorder, http.StatusAccepted)
	waitForJob(t, handler.jobManager.GetJob(nextID))

	if backend.MaxOpen() != 1 {
		t.Errorf("camera was opened %d times at once", backend.MaxOpen())
	}
}

func TestCaptureHandler_CancelEvent(t *testing.T) {
	backend := mock.NewMockBackend()
	backend.Idle = 50 * time.Millisecond
	handler, _ := newCaptureHandler(t, backend)

	_, jobID := startCapture(t, handler, `{"subject": "math", "duration_seconds": 30}`)
	job := handler.jobManager.GetJob(jobID)
	ch := job.AddListener()
	defer job.RemoveListener(ch)

	job.Cancel()

	deadline := time.After(5 * time.Second)
	for {
		select {
		case ev := <-ch:
			if ev.Type != "cancelled" {
				continue
			}
			if job.GetStatus() != JobStatusCancelled {
				t.Errorf("cancelled event sent before status changed: %s", job.GetStatus())
			}
			return
		case <-deadline:
			t.Fatal("no cancelled event")
		}
	}
}

func TestCaptureHandler_Start_ModelUnreadable(t *testing.T) {
	backend := mock.NewMockBackend(seen(101, 10))
	backend.OpenCameraError = fmt.Errorf("%w: Trainner.yml: parse error", vision.ErrModelUnreadable)
	handler, _ := newCaptureHandler(t, backend)

	_, jobID := startCapture(t, handler, `{"subject": "math", "duration_seconds": 0.05}`)

	state := waitForJob(t, handler.jobManager.GetJob(jobID))
	if state.Status != JobStatusFailed || state.Advisory != "Model file is unreadable, please train model again" {
		t.Errorf("unexpected state %+v", state)
	}
}
