// Package streamworker implements the streaming transducer engine
// (SPEC_FULL.md §4.3): per-session audio buffering, the decode-decision and
// sliding-window selection, stable-token extraction against the commit
// watermark, and buffer trimming.
package streamworker

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/rbright/sttworkers/internal/config"
	"github.com/rbright/sttworkers/internal/decode"
	"github.com/rbright/sttworkers/internal/frame"
	"github.com/rbright/sttworkers/internal/fsm"
	"github.com/rbright/sttworkers/internal/pcm"
	"github.com/rbright/sttworkers/internal/protocol"
	"github.com/rbright/sttworkers/internal/transcript"
)

const (
	sampleRateHz  = 16000
	warmupSamples = 1024
)

// Session holds the streaming worker's single in-flight session. One
// process serves exactly one session (SPEC_FULL.md §3 "Ownership"); the
// session's identity is implicit on the wire.
type Session struct {
	params  config.StreamParams
	decoder decode.Decoder
	logger  *slog.Logger

	state fsm.State

	audio            []float32
	audioStartSample int
	pendingSamples   int

	committedText        string
	committedUntilSample int
	hasCommitted         bool
}

// New builds a Session in state NONE.
func New(params config.StreamParams, decoder decode.Decoder, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Session{params: params, decoder: decoder, logger: logger, state: fsm.StateNone}
}

// Register wires the four stream_* actions, plus warmup, into mux.
func (s *Session) Register(mux *frame.Mux) {
	mux.HandleFunc(protocol.ActionWarmup, s.Warmup)
	mux.HandleFunc(protocol.ActionStreamReset, s.Reset)
	mux.HandleFunc(protocol.ActionStreamPush, s.Push)
	mux.HandleFunc(protocol.ActionStreamFlush, s.Flush)
	mux.HandleFunc(protocol.ActionStreamClose, s.Close)
}

// Warmup performs the streaming worker's extra zero-filled decode pass
// before reporting ready (SPEC_FULL.md §4.2 "Warmup action"), so that the
// ONNX runtime's kernel initialization happens before the first real push
// rather than on it.
func (s *Session) Warmup(_ context.Context, req protocol.Request, _ []byte) protocol.Response {
	if _, err := s.decoder.Transcribe(make([]float32, warmupSamples), sampleRateHz); err != nil {
		s.logger.Warn("warmup decode failed", slog.String("error", err.Error()))
	}
	return protocol.Success(req.ID, protocol.ReadyResult{Ready: true})
}

// Reset replaces any prior session with a fresh one and transitions to OPEN
// (SPEC_FULL.md §4.3 "stream_reset").
func (s *Session) Reset(_ context.Context, req protocol.Request, _ []byte) protocol.Response {
	next, err := fsm.Transition(s.state, fsm.EventReset)
	if err != nil {
		return protocol.Failure(req.ID, err)
	}
	s.resetLocked(next)
	return protocol.Success(req.ID, protocol.ReadyResult{Ready: true})
}

// Close tears the session down to NONE (SPEC_FULL.md §4.3 "stream_close").
func (s *Session) Close(_ context.Context, req protocol.Request, _ []byte) protocol.Response {
	next, err := fsm.Transition(s.state, fsm.EventClose)
	if err != nil {
		return protocol.Failure(req.ID, err)
	}
	s.state = next
	return protocol.Success(req.ID, protocol.ClosedResult{Closed: true})
}

// Push appends a chunk of audio, auto-opening the session if it was NONE,
// and decides whether this push triggers a decode (SPEC_FULL.md §4.3
// "Decode decision").
func (s *Session) Push(_ context.Context, req protocol.Request, frameAudio []byte) protocol.Response {
	next, err := fsm.Transition(s.state, fsm.EventPush)
	if err != nil {
		return protocol.Failure(req.ID, err)
	}
	if s.state == fsm.StateNone {
		s.resetLocked(next)
	}
	s.state = next

	samples, rate, err := resolveAudio(req, frameAudio)
	if err != nil {
		return protocol.Failure(req.ID, err)
	}
	if rate != sampleRateHz {
		return protocol.Failure(req.ID, fmt.Errorf("sampleRate mismatch: expected %d, got %d", sampleRateHz, rate))
	}

	s.audio = append(s.audio, samples...)
	s.pendingSamples += len(samples)

	if len(s.audio) < s.params.MinAudioSamples || s.pendingSamples < s.params.DecodeIntervalSamples {
		return protocol.Success(req.ID, protocol.StreamDeltaResult{Text: "", DurationSeconds: 0})
	}
	s.pendingSamples = 0

	delta, duration, err := s.decodeAndCommit(false)
	if err != nil {
		return protocol.Failure(req.ID, err)
	}
	return protocol.Success(req.ID, protocol.StreamDeltaResult{Text: delta, DurationSeconds: duration})
}

// Flush forces a final decode with no stability hold, and remains OPEN
// (SPEC_FULL.md §4.3 "stream_flush"). The flush window is not capped by
// MaxWindowSamples; it starts at the later of the buffer start and the
// commit watermark minus LeftContextSamples.
func (s *Session) Flush(_ context.Context, req protocol.Request, _ []byte) protocol.Response {
	next, err := fsm.Transition(s.state, fsm.EventFlush)
	if err != nil {
		return protocol.Failure(req.ID, err)
	}
	s.state = next
	if s.state == fsm.StateNone {
		return protocol.Success(req.ID, protocol.StreamDeltaResult{Text: "", DurationSeconds: 0})
	}

	delta, duration, err := s.decodeAndCommit(true)
	if err != nil {
		return protocol.Failure(req.ID, err)
	}
	return protocol.Success(req.ID, protocol.StreamDeltaResult{Text: delta, DurationSeconds: duration})
}

func (s *Session) resetLocked(next fsm.State) {
	s.state = next
	s.audio = nil
	s.audioStartSample = 0
	s.pendingSamples = 0
	s.committedText = ""
	s.committedUntilSample = 0
	s.hasCommitted = false
}

// decodeAndCommit runs one decode pass over the selected window, extracts
// the stable delta, commits it, and trims the buffer. isFlush disables the
// stability hold (SPEC_FULL.md §4.3 "Stable-token extraction").
func (s *Session) decodeAndCommit(isFlush bool) (deltaText string, durationSeconds float64, err error) {
	end := s.audioStartSample + len(s.audio)

	windowStart := s.audioStartSample
	if !isFlush {
		// stream_flush is not capped by MaxWindowSamples (SPEC_FULL.md §4.3
		// "stream_flush ... force a final decode of the entire buffer"); only
		// stream_push bounds the window to MaxWindowSamples. Both still apply
		// the left-context bound below.
		if bound := end - s.params.MaxWindowSamples; bound > windowStart {
			windowStart = bound
		}
	}
	if bound := s.committedUntilSample - s.params.LeftContextSamples; bound > windowStart {
		windowStart = bound
	}

	windowSamples := end - windowStart
	offset := windowStart - s.audioStartSample
	window := s.audio[offset:]

	start := time.Now()
	segments, err := s.decoder.Transcribe(window, sampleRateHz)
	durationSeconds = roundMillis(time.Since(start).Seconds())
	if err != nil {
		return "", durationSeconds, err
	}

	stableCutoff := windowStart + windowSamples
	if !isFlush {
		stableCutoff -= s.params.StabilityHoldSamples
	}

	var delta string
	newestSample := s.committedUntilSample

	for _, tok := range segments.Tokens {
		tokenEndSample := windowStart + int(math.Round(tok.EndSeconds*float64(sampleRateHz)))
		if tokenEndSample > stableCutoff {
			break
		}

		tolerance := 0
		if s.hasCommitted {
			tolerance = s.params.TimestampToleranceSamples
		}
		if tokenEndSample <= s.committedUntilSample+tolerance {
			continue
		}

		piece := strings.TrimSpace(tok.Text)
		if piece == "" {
			continue
		}
		delta = transcript.AppendPiece(delta, piece)
		newestSample = tokenEndSample
	}

	if delta != "" {
		s.committedText = transcript.AppendPiece(s.committedText, delta)
		s.committedUntilSample = newestSample
		s.hasCommitted = true
	}

	s.trim()

	return delta, durationSeconds, nil
}

// trim drops committed audio the decode window no longer needs
// (SPEC_FULL.md §4.3 "Buffer trim").
func (s *Session) trim() {
	trimUntil := s.audioStartSample
	if bound := s.committedUntilSample - s.params.TrimKeepSamples; bound > trimUntil {
		trimUntil = bound
	}

	drop := trimUntil - s.audioStartSample
	if drop <= 0 {
		return
	}
	if drop >= len(s.audio) {
		s.audio = nil
		s.audioStartSample = trimUntil
		return
	}
	s.audio = append([]float32(nil), s.audio[drop:]...)
	s.audioStartSample += drop
}

// resolveAudio applies the binary payload > audioBase64 > audio path
// precedence rule shared with the offline worker (SPEC_FULL.md §3
// "Request"), but downmixes multi-channel WAV input to mono instead of
// rejecting it (SPEC_FULL.md §8 "A WAV file with >1 channel: ... the
// streaming worker downmixes to mono").
func resolveAudio(req protocol.Request, frameAudio []byte) (samples []float32, sampleRate int, err error) {
	switch {
	case len(frameAudio) > 0:
		samples, err = pcm.Int16LEToFloat32(frameAudio)
		if err != nil {
			return nil, 0, fmt.Errorf("decode stream_push audio: %w", err)
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
		return wav.Downmix(), wav.SampleRate, nil

	default:
		return nil, 0, fmt.Errorf("no audio payload supplied (binary, audioBase64, and audio path are all empty)")
	}
}

func roundMillis(seconds float64) float64 {
	return math.Round(seconds*1000) / 1000
}
