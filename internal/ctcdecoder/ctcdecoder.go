// Package ctcdecoder binds the offline transcriber (SPEC_FULL.md §4.2) to a
// ggml-format CTC/attention model through whisper.cpp's CGO Go bindings.
//
// The load-model-once / new-context-per-request shape, and the
// Process-then-iterate-NextSegment call sequence, are grounded directly on
// this pack's own whisper.cpp bindings usage
// (MrWong99-glyphoxa/pkg/provider/stt/whisper/native.go).
package ctcdecoder

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	whisperlib "github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"

	"github.com/rbright/sttworkers/internal/decode"
	"github.com/rbright/sttworkers/internal/transcript"
)

// Decoder wraps one loaded ggml model. Transcribe calls are serialized by an
// internal mutex, so concurrent calls are safe but run one at a time, in line
// with the single-request-at-a-time dispatch loop described in SPEC_FULL.md §5.
type Decoder struct {
	model   whisperlib.Model
	threads int
	mu      sync.Mutex
}

// New loads a ggml model file. threads bounds the context's intra-op
// parallelism (SPEC_FULL.md §5: "inter-op = 1").
func New(modelPath string, threads int) (*Decoder, error) {
	model, err := whisperlib.New(modelPath)
	if err != nil {
		return nil, fmt.Errorf("ctcdecoder: load model %q: %w", modelPath, err)
	}
	return &Decoder{model: model, threads: threads}, nil
}

// Transcribe runs one decode pass over samples, which must already be 16 kHz
// mono float32 (the caller, not this decoder, enforces that invariant per
// SPEC_FULL.md §4.2).
func (d *Decoder) Transcribe(samples []float32, sampleRate int) (decode.Segments, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, err := d.model.NewContext()
	if err != nil {
		return decode.Segments{}, fmt.Errorf("ctcdecoder: new context: %w", err)
	}
	if d.threads > 0 {
		ctx.SetThreads(d.threads)
	}
	ctx.SetLanguage("en")

	if err := ctx.Process(samples, nil, nil, nil); err != nil {
		return decode.Segments{}, fmt.Errorf("ctcdecoder: process: %w", err)
	}

	var parts []string
	var tokens []decode.Token
	for {
		segment, err := ctx.NextSegment()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return decode.Segments{}, fmt.Errorf("ctcdecoder: next segment: %w", err)
		}
		text := strings.TrimSpace(segment.Text)
		if text == "" {
			continue
		}
		parts = append(parts, text)
		tokens = append(tokens, decode.Token{
			Text:         text,
			StartSeconds: segment.Start.Seconds(),
			EndSeconds:   segment.End.Seconds(),
		})
	}

	return decode.Segments{
		Text:   transcript.Normalize(parts),
		Tokens: tokens,
	}, nil
}

// Close releases the underlying model.
func (d *Decoder) Close() error {
	return d.model.Close()
}
