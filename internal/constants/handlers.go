// Package constants provides shared constants used across the codebase.
package constants

// Handler pagination constants
const (
	// DefaultHistoryLimit is the number of ledger entries returned by the history endpoint
	DefaultHistoryLimit = 50

	// MaxHistoryLimit caps the history limit query parameter
	MaxHistoryLimit = 500
)

// Event channel constants
const (
	// EventChannelBuffer is the buffer size for event channels
	EventChannelBuffer = 100
)

// File upload constants
const (
	// MaxUploadSize is the maximum file upload size in bytes (100MB)
	MaxUploadSize = 100 << 20
)

// Speech constants
const (
	// SpeechCacheTTL is how long synthesized advisories are kept in memory, in minutes
	SpeechCacheTTL = 60
)
