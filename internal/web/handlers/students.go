package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/kozaktomas/attendance/internal/config"
	"github.com/kozaktomas/attendance/internal/constants"
	"github.com/kozaktomas/attendance/internal/roster"
	"github.com/kozaktomas/attendance/internal/samples"
)

// StudentsHandler handles the roster and training sample endpoints
type StudentsHandler struct {
	config *config.Config
	store  *samples.Store
}

// NewStudentsHandler creates a new students handler
func NewStudentsHandler(cfg *config.Config, store *samples.Store) *StudentsHandler {
	return &StudentsHandler{
		config: cfg,
		store:  store,
	}
}

// StudentResponse is a roster entry with its sample count
type StudentResponse struct {
	Enrollment int64  `json:"enrollment"`
	Name       string `json:"name"`
	Samples    int    `json:"samples"`
}

func (h *StudentsHandler) toResponse(st roster.Student) StudentResponse {
	n, err := h.store.Count(st)
	if err != nil {
		log.Warnf("students: counting samples of %d: %v", st.Enrollment, err)
	}
	return StudentResponse{Enrollment: st.Enrollment, Name: st.Name, Samples: n}
}

// List returns the roster, optionally filtered by ?q=
func (h *StudentsHandler) List(w http.ResponseWriter, r *http.Request) {
	students, err := roster.Load(h.config.Storage.RosterPath)
	if errors.Is(err, roster.ErrRosterNotFound) {
		respondJSON(w, http.StatusOK, []StudentResponse{})
		return
	}
	if err != nil {
		respondFailure(w, err)
		return
	}

	matches := roster.Find(students, r.URL.Query().Get("q"))
	out := make([]StudentResponse, 0, len(matches))
	for _, st := range matches {
		out = append(out, h.toResponse(st))
	}
	respondJSON(w, http.StatusOK, out)
}

// CreateStudentRequest carries raw operator input; enrollment is validated server side.
type CreateStudentRequest struct {
	Enrollment json.Number `json:"enrollment"`
	Name       string      `json:"name"`
}

// Create registers a student and creates their sample folder
func (h *StudentsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateStudentRequest
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	if err := dec.Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}

	st, err := roster.NewStudent(req.Enrollment.String(), req.Name)
	if err != nil {
		respondFailure(w, err)
		return
	}
	if _, err := h.store.Enroll(h.config.Storage.RosterPath, st); err != nil {
		respondFailure(w, err)
		return
	}

	log.Infof("students: registered %d %s", st.Enrollment, sanitizeForLog(st.Name))
	respondJSON(w, http.StatusCreated, h.toResponse(st))
}

func (h *StudentsHandler) findStudent(w http.ResponseWriter, r *http.Request) (roster.Student, bool) {
	id, err := roster.ParseEnrollment(chi.URLParam(r, "enrollment"))
	if err != nil {
		respondFailure(w, err)
		return roster.Student{}, false
	}
	students, err := roster.Load(h.config.Storage.RosterPath)
	if err != nil {
		respondFailure(w, err)
		return roster.Student{}, false
	}
	st, ok := roster.Index(students)[id]
	if !ok {
		respondError(w, http.StatusNotFound, "student not found")
		return roster.Student{}, false
	}
	return st, true
}

// Get returns one student
func (h *StudentsHandler) Get(w http.ResponseWriter, r *http.Request) {
	if st, ok := h.findStudent(w, r); ok {
		respondJSON(w, http.StatusOK, h.toResponse(st))
	}
}

// UploadSamplesResponse reports what happened to every uploaded file
type UploadSamplesResponse struct {
	Added   int      `json:"added"`
	Skipped []string `json:"skipped,omitempty"`
	Samples int      `json:"samples"`
}

// UploadSamples stores every image of a multipart "files" field as a training sample
func (h *StudentsHandler) UploadSamples(w http.ResponseWriter, r *http.Request) {
	st, ok := h.findStudent(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, constants.MaxUploadSize)
	if err := r.ParseMultipartForm(constants.MaxUploadSize); err != nil {
		respondError(w, http.StatusBadRequest, "failed to parse multipart form")
		return
	}

	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		respondError(w, http.StatusBadRequest, "no files uploaded")
		return
	}

	var resp UploadSamplesResponse
	for _, fh := range files {
		data, err := readPart(fh)
		if err != nil {
			respondError(w, http.StatusBadRequest, fmt.Sprintf("failed to read %s", fh.Filename))
			return
		}
		if _, err := h.store.AddSample(st, data); err != nil {
			if errors.Is(err, samples.ErrNotAnImage) {
				resp.Skipped = append(resp.Skipped, fh.Filename)
				continue
			}
			respondFailure(w, err)
			return
		}
		resp.Added++
	}

	if resp.Added == 0 {
		respondFailure(w, samples.ErrNotAnImage)
		return
	}
	resp.Samples, _ = h.store.Count(st)
	log.Infof("students: %d samples added for %d (%s skipped)", resp.Added, st.Enrollment, strings.Join(resp.Skipped, ", "))
	respondJSON(w, http.StatusOK, resp)
}

func readPart(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}
