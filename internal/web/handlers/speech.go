package handlers

import (
	"net/http"
	"strings"

	"github.com/kozaktomas/attendance/internal/speech"
)

const maxSpeechText = 200

// SpeechHandler synthesizes advisories for the dashboard
type SpeechHandler struct {
	synth speech.Synthesizer
}

// NewSpeechHandler creates a speech handler; synth may be nil when speech is disabled
func NewSpeechHandler(synth speech.Synthesizer) *SpeechHandler {
	return &SpeechHandler{synth: synth}
}

// Speak returns WAV audio for ?text=
func (h *SpeechHandler) Speak(w http.ResponseWriter, r *http.Request) {
	if h.synth == nil {
		respondError(w, http.StatusServiceUnavailable, "speech is disabled")
		return
	}
	text := strings.TrimSpace(r.URL.Query().Get("text"))
	if text == "" {
		respondError(w, http.StatusBadRequest, "text is required")
		return
	}
	if len(text) > maxSpeechText {
		respondError(w, http.StatusBadRequest, "text is too long")
		return
	}

	audio, err := h.synth.Synthesize(r.Context(), text)
	if err != nil {
		log.Errorf("speech: %v", err)
		respondError(w, http.StatusBadGateway, "speech synthesis failed")
		return
	}
	w.Header().Set("Content-Type", "audio/wav")
	w.Header().Set("Cache-Control", "private, max-age=3600")
	w.WriteHeader(http.StatusOK)
	w.Write(audio)
}
