// Package config builds and validates the three worker binaries'
// configuration, keeping this lineage's own Warning/Validate idiom
// (SPEC_FULL.md §10) but replacing its file-parsed desktop config with the
// flag-derived, sample-rate-aware configs SPEC_FULL.md §4/§6 describe.
package config

// Warning is a non-fatal validation message, logged at startup rather than
// rejected outright.
type Warning struct {
	Message string
}

// OfflineConfig configures the offline transcription worker (SPEC_FULL.md
// §4.2, §6).
type OfflineConfig struct {
	ModelPath   string
	Threads     int
	Serve       bool
	Healthcheck bool
}

// DefaultOffline returns the offline worker's documented defaults.
func DefaultOffline() OfflineConfig {
	return OfflineConfig{Threads: 4}
}

// StreamConfig configures the streaming transducer worker (SPEC_FULL.md
// §4.3, §6). All *Ms fields are the raw millisecond inputs from CLI flags;
// ValidateStream derives their sample-count equivalents.
type StreamConfig struct {
	ModelPath   string
	Threads     int
	Healthcheck bool

	MinAudioMs        int
	DecodeIntervalMs  int
	MaxWindowMs       int
	LeftContextMs     int
	StabilityHoldMs   int
}

// DefaultStream returns the streaming worker's documented defaults
// (SPEC_FULL.md §4.3 table).
func DefaultStream() StreamConfig {
	return StreamConfig{
		Threads:          4,
		MinAudioMs:       120,
		DecodeIntervalMs: 160,
		MaxWindowMs:      6000,
		LeftContextMs:    1000,
		StabilityHoldMs:  220,
	}
}

// TimestampToleranceMs is fixed by SPEC_FULL.md §4.3's parameter table, not
// configurable via flags.
const TimestampToleranceMs = 120

// CaptureConfig configures the audio capture pipeline (SPEC_FULL.md §4.5,
// §6).
type CaptureConfig struct {
	SampleRate int
}

// DefaultCapture returns the capture pipeline's documented default.
func DefaultCapture() CaptureConfig {
	return CaptureConfig{SampleRate: 16000}
}
