// Package offlineworker implements the offline transcription worker's
// request handlers (SPEC_FULL.md §4.2): audio source resolution, the
// warmup/transcribe actions, and wiring against an opaque decode.Decoder.
package offlineworker

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/rbright/sttworkers/internal/decode"
	"github.com/rbright/sttworkers/internal/frame"
	"github.com/rbright/sttworkers/internal/pcm"
	"github.com/rbright/sttworkers/internal/protocol"
)

const expectedSampleRate = 16000

// Worker binds the offline request handlers to a loaded decoder.
type Worker struct {
	decoder decode.Decoder
	logger  *slog.Logger
}

// New builds a Worker. logger may be nil, in which case a discarding logger
// is used.
func New(decoder decode.Decoder, logger *slog.Logger) *Worker {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Worker{decoder: decoder, logger: logger}
}

// Register wires Warmup and Transcribe into mux under their SPEC_FULL.md
// §4.1 action names.
func (w *Worker) Register(mux *frame.Mux) {
	mux.HandleFunc(protocol.ActionWarmup, w.Warmup)
	mux.HandleFunc(protocol.ActionTranscribe, w.Transcribe)
}

// Warmup replies {ready:true} without invoking the decoder (SPEC_FULL.md
// §4.2 "Warmup action").
func (w *Worker) Warmup(_ context.Context, req protocol.Request, _ []byte) protocol.Response {
	return protocol.Success(req.ID, protocol.ReadyResult{Ready: true})
}

// Transcribe resolves the request's audio source, validates its sample
// rate, invokes the decoder, and returns normalized text plus wall-clock
// duration (SPEC_FULL.md §4.2).
func (w *Worker) Transcribe(_ context.Context, req protocol.Request, frameAudio []byte) protocol.Response {
	samples, sampleRate, err := resolveAudio(req, frameAudio)
	if err != nil {
		return protocol.Failure(req.ID, err)
	}
	if sampleRate != expectedSampleRate {
		return protocol.Failure(req.ID, fmt.Errorf("sampleRate mismatch: expected %d, got %d", expectedSampleRate, sampleRate))
	}

	start := time.Now()
	segments, err := w.decoder.Transcribe(samples, sampleRate)
	duration := time.Since(start).Seconds()
	if err != nil {
		w.logger.Error("decode failed", slog.String("id", req.ID), slog.String("error", err.Error()))
		return protocol.Failure(req.ID, err)
	}

	w.logger.Info("transcribe", slog.String("id", req.ID), slog.Duration("latency", time.Since(start)))

	return protocol.Success(req.ID, protocol.TranscriptionResult{
		Text:            segments.Text,
		Language:        "en",
		DurationSeconds: roundMillis(duration),
	})
}

// resolveAudio applies the binary payload > audioBase64 > audio path
// precedence rule (SPEC_FULL.md §3 "Request").
func resolveAudio(req protocol.Request, frameAudio []byte) (samples []float32, sampleRate int, err error) {
	switch {
	case len(frameAudio) > 0:
		samples, err = pcm.Int16LEToFloat32(frameAudio)
		if err != nil {
			return nil, 0, fmt.Errorf("decode frame audio payload: %w", err)
		}
		return samples, req.SampleRate, nil

	case req.AudioBase64 != "":
		raw, decErr := base64.StdEncoding.DecodeString(req.AudioBase64)
		if decErr != nil {
			return nil, 0, fmt.Errorf("decode audioBase64: %w", decErr)
		}
		samples, err = pcm.Int16LEToFloat32(raw)
		if err != nil {
			return nil, 0, fmt.Errorf("decode audioBase64 payload: %w", err)
		}
		return samples, req.SampleRate, nil

	case req.Audio != "":
		wav, wavErr := pcm.DecodeWAVFile(req.Audio)
		if wavErr != nil {
			return nil, 0, fmt.Errorf("decode wav file %q: %w", req.Audio, wavErr)
		}
		samples, err = wav.RequireMono()
		if err != nil {
			return nil, 0, err
		}
		return samples, wav.SampleRate, nil

	default:
		return nil, 0, fmt.Errorf("no audio payload supplied (binary, audioBase64, and audio path are all empty)")
	}
}

// roundMillis rounds seconds to three decimal places (SPEC_FULL.md §4.2
// "Duration").
func roundMillis(seconds float64) float64 {
	return math.Round(seconds*1000) / 1000
}
