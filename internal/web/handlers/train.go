package handlers

import (
	"net/http"
	"sync"

	"github.com/kozaktomas/attendance/internal/config"
	"github.com/kozaktomas/attendance/internal/notify"
	"github.com/kozaktomas/attendance/internal/roster"
	"github.com/kozaktomas/attendance/internal/samples"
	"github.com/kozaktomas/attendance/internal/training"
	"github.com/kozaktomas/attendance/internal/vision"
)

// TrainHandler retrains the recognition model from the sample store
type TrainHandler struct {
	config  *config.Config
	store   *samples.Store
	backend vision.Backend
	mu      sync.Mutex
}

// NewTrainHandler creates a new train handler
func NewTrainHandler(cfg *config.Config, store *samples.Store, backend vision.Backend) *TrainHandler {
	return &TrainHandler{
		config:  cfg,
		store:   store,
		backend: backend,
	}
}

// TrainResponse is the training result with its advisory
type TrainResponse struct {
	*training.Result
	Advisory string `json:"advisory"`
}

// Train runs a training pass synchronously
func (h *TrainHandler) Train(w http.ResponseWriter, r *http.Request) {
	if !h.mu.TryLock() {
		respondError(w, http.StatusConflict, "training already in progress")
		return
	}
	defer h.mu.Unlock()

	students, err := roster.Load(h.config.Storage.RosterPath)
	if err != nil {
		respondFailure(w, err)
		return
	}
	collection, err := training.Collect(h.store, students)
	if err != nil {
		respondFailure(w, err)
		return
	}
	res, err := training.Train(r.Context(), h.backend, collection, h.config.Storage.ModelPath, nil)
	if err != nil {
		respondFailure(w, err)
		return
	}

	respondJSON(w, http.StatusOK, TrainResponse{
		Result:   res,
		Advisory: notify.Info("Model trained with %d images", res.Images).Text,
	})
}
