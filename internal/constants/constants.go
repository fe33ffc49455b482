// Package constants provides shared constants used across the codebase.
// Centralizing these values ensures consistency and makes them easier to modify.
package constants

import "time"

// Storage file names
const (
	// SummaryFileName is the aggregate written next to the session files of a subject
	SummaryFileName = "attendance.csv"

	// SampleIndexFileName maps training directories to student identities
	SampleIndexFileName = "index.yaml"

	// UnknownStudentName is recorded for accepted matches whose label is not on the roster
	UnknownStudentName = "Unknown"
)

// Recognition constants
const (
	// DefaultConfidenceThreshold is the LBPH distance below which a prediction is accepted.
	// Lower values = stricter matching
	DefaultConfidenceThreshold = 70.0

	// DetectScaleFactor and DetectMinNeighbors are the Haar cascade parameters
	DetectScaleFactor  = 1.2
	DetectMinNeighbors = 5

	// MinFaceSize is the smallest face (in pixels) the camera detector reports
	MinFaceSize = 30

	// MaxFailedReads consecutive empty camera frames end the session with an error
	MaxFailedReads = 50

	// FailedReadBackoff is slept after an empty camera frame
	FailedReadBackoff = 20 * time.Millisecond
)

// Processing constants
const (
	// MaxSampleSize is the maximum dimension (width or height) of a stored training sample
	MaxSampleSize = 400

	// MaxImageSize is the maximum dimension (width or height) decoded for face search
	MaxImageSize = 1920

	// PigoMinQuality is the minimum detection score for a pigo face candidate
	PigoMinQuality = 5.0
)
