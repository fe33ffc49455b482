package handlers

import (
	"net/http"

	"github.com/kozaktomas/attendance/internal/config"
	"github.com/kozaktomas/attendance/internal/database"
	"github.com/kozaktomas/attendance/internal/vision"
)

// ConfigHandler handles configuration endpoints
type ConfigHandler struct {
	config *config.Config
}

// NewConfigHandler creates a new config handler
func NewConfigHandler(cfg *config.Config) *ConfigHandler {
	return &ConfigHandler{
		config: cfg,
	}
}

// ConfigResponse is what the dashboard needs to know about the server
type ConfigResponse struct {
	VisionAvailable     bool    `json:"vision_available"`
	SpeechEnabled       bool    `json:"speech_enabled"`
	AuthRequired        bool    `json:"auth_required"`
	Database            string  `json:"database,omitempty"`
	SessionSeconds      float64 `json:"session_seconds"`
	ConfidenceThreshold float64 `json:"confidence_threshold"`
}

// Get returns the available configuration
func (h *ConfigHandler) Get(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, ConfigResponse{
		VisionAvailable:     vision.Available(),
		SpeechEnabled:       h.config.Speech.Enabled,
		AuthRequired:        h.config.Web.Password != "",
		Database:            database.BackendName(),
		SessionSeconds:      h.config.Vision.SessionDuration.Seconds(),
		ConfidenceThreshold: h.config.Vision.ConfidenceThreshold,
	})
}
