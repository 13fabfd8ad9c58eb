package config

import (
	"fmt"
	"strings"
)

// sampleRateHz is the fixed rate the offline and streaming workers operate
// at (SPEC_FULL.md §4.1: audio on the wire is always 16 kHz mono PCM16LE).
const sampleRateHz = 16000

func msToSamples(ms int) int {
	return ms * sampleRateHz / 1000
}

// ValidateOffline enforces OfflineConfig invariants (SPEC_FULL.md §6).
// Healthcheck mode skips model-path and thread validation entirely.
func ValidateOffline(cfg OfflineConfig) ([]Warning, error) {
	if cfg.Healthcheck {
		return nil, nil
	}
	var warnings []Warning

	if strings.TrimSpace(cfg.ModelPath) == "" {
		return nil, fmt.Errorf("--model is required")
	}
	if cfg.Threads < 1 || cfg.Threads > 64 {
		return nil, fmt.Errorf("--threads must be in [1,64], got %d", cfg.Threads)
	}
	if cfg.Threads == 1 {
		warnings = append(warnings, Warning{Message: "--threads=1 disables intra-op parallelism; offline transcription may be slow"})
	}
	return warnings, nil
}

// StreamParams is StreamConfig's millisecond fields converted to sample
// counts at the fixed 16 kHz operating rate, plus the derived trim
// threshold (SPEC_FULL.md §4.3).
type StreamParams struct {
	MinAudioSamples           int
	DecodeIntervalSamples     int
	MaxWindowSamples          int
	LeftContextSamples        int
	StabilityHoldSamples      int
	TimestampToleranceSamples int
	TrimKeepSamples           int
}

// ValidateStream enforces StreamConfig invariants and returns the derived
// StreamParams alongside any non-fatal warnings (SPEC_FULL.md §4.3
// "Validation"). Healthcheck mode skips all validation and returns zero
// StreamParams and no warnings, matching §6's "no model validation" contract.
func ValidateStream(cfg StreamConfig) (StreamParams, []Warning, error) {
	if cfg.Healthcheck {
		return StreamParams{}, nil, nil
	}
	var warnings []Warning

	if strings.TrimSpace(cfg.ModelPath) == "" {
		return StreamParams{}, nil, fmt.Errorf("--model is required")
	}
	if cfg.Threads < 1 || cfg.Threads > 64 {
		return StreamParams{}, nil, fmt.Errorf("--threads must be in [1,64], got %d", cfg.Threads)
	}
	if cfg.MinAudioMs < 40 || cfg.MinAudioMs > 1000 {
		return StreamParams{}, nil, fmt.Errorf("--stream-min-audio-ms must be in [40,1000], got %d", cfg.MinAudioMs)
	}
	if cfg.DecodeIntervalMs < 40 || cfg.DecodeIntervalMs > 1500 {
		return StreamParams{}, nil, fmt.Errorf("--stream-decode-interval-ms must be in [40,1500], got %d", cfg.DecodeIntervalMs)
	}
	if cfg.MaxWindowMs < 800 || cfg.MaxWindowMs > 30000 {
		return StreamParams{}, nil, fmt.Errorf("--stream-max-window-ms must be in [800,30000], got %d", cfg.MaxWindowMs)
	}
	if cfg.LeftContextMs < 200 || cfg.LeftContextMs > 5000 {
		return StreamParams{}, nil, fmt.Errorf("--stream-left-context-ms must be in [200,5000], got %d", cfg.LeftContextMs)
	}
	if cfg.StabilityHoldMs < 80 || cfg.StabilityHoldMs > 1200 {
		return StreamParams{}, nil, fmt.Errorf("--stream-stability-hold-ms must be in [80,1200], got %d", cfg.StabilityHoldMs)
	}
	if cfg.LeftContextMs >= cfg.MaxWindowMs {
		return StreamParams{}, nil, fmt.Errorf("--stream-left-context-ms (%d) must be < --stream-max-window-ms (%d)", cfg.LeftContextMs, cfg.MaxWindowMs)
	}
	if cfg.StabilityHoldMs >= cfg.MaxWindowMs {
		return StreamParams{}, nil, fmt.Errorf("--stream-stability-hold-ms (%d) must be < --stream-max-window-ms (%d)", cfg.StabilityHoldMs, cfg.MaxWindowMs)
	}

	if cfg.DecodeIntervalMs <= 60 {
		warnings = append(warnings, Warning{Message: fmt.Sprintf("--stream-decode-interval-ms=%d is close to its floor; expect frequent re-decodes", cfg.DecodeIntervalMs)})
	}

	leftContextSamples := msToSamples(cfg.LeftContextMs)
	trimKeepSamples := leftContextSamples + sampleRateHz*3/2 // left_context + 1.5s

	return StreamParams{
		MinAudioSamples:           msToSamples(cfg.MinAudioMs),
		DecodeIntervalSamples:     msToSamples(cfg.DecodeIntervalMs),
		MaxWindowSamples:          msToSamples(cfg.MaxWindowMs),
		LeftContextSamples:        leftContextSamples,
		StabilityHoldSamples:      msToSamples(cfg.StabilityHoldMs),
		TimestampToleranceSamples: msToSamples(TimestampToleranceMs),
		TrimKeepSamples:           trimKeepSamples,
	}, warnings, nil
}

// ValidateCapture enforces CaptureConfig invariants (SPEC_FULL.md §6).
func ValidateCapture(cfg CaptureConfig) ([]Warning, error) {
	if cfg.SampleRate < 8000 || cfg.SampleRate > 96000 {
		return nil, fmt.Errorf("--sample-rate must be in [8000,96000], got %d", cfg.SampleRate)
	}
	return nil, nil
}
