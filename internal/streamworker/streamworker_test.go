package streamworker

import (
	"context"
	"encoding/base64"
	"encoding/binary"
	"testing"

	"github.com/rbright/sttworkers/internal/config"
	"github.com/rbright/sttworkers/internal/decode"
	"github.com/rbright/sttworkers/internal/fsm"
	"github.com/rbright/sttworkers/internal/protocol"
)

type queueDecoder struct {
	responses  []decode.Segments
	calls      int
	windowLens []int
}

func (q *queueDecoder) Transcribe(samples []float32, sampleRate int) (decode.Segments, error) {
	resp := q.responses[q.calls]
	q.windowLens = append(q.windowLens, len(samples))
	q.calls++
	return resp, nil
}

func (q *queueDecoder) Close() error { return nil }

func testParams() config.StreamParams {
	return config.StreamParams{
		MinAudioSamples:           4,
		DecodeIntervalSamples:     4,
		MaxWindowSamples:          100,
		LeftContextSamples:        10,
		StabilityHoldSamples:      2,
		TimestampToleranceSamples: 1,
		TrimKeepSamples:           20,
	}
}

func int16LEBytes(n int) []byte {
	out := make([]byte, n*2)
	for i := 0; i < n; i++ {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(100))
	}
	return out
}

func tokenAtSample(sample int, text string) decode.Token {
	return decode.Token{Text: text, EndSeconds: float64(sample) / 16000.0}
}

func TestPushBelowMinAudioReturnsNoDecode(t *testing.T) {
	dec := &queueDecoder{}
	s := New(testParams(), dec, nil)

	resp := s.Push(context.Background(), protocol.Request{ID: "1", SampleRate: 16000}, int16LEBytes(2))

	result, ok := resp.Result.(protocol.StreamDeltaResult)
	if !ok {
		t.Fatalf("unexpected result type %T", resp.Result)
	}
	if result.Text != "" || result.DurationSeconds != 0 {
		t.Fatalf("expected no-decode response, got %+v", result)
	}
	if dec.calls != 0 {
		t.Fatalf("expected 0 decoder calls, got %d", dec.calls)
	}
}

func TestPushTriggersDecodeAndHoldsRecentTokenByStability(t *testing.T) {
	dec := &queueDecoder{responses: []decode.Segments{
		{Tokens: []decode.Token{
			tokenAtSample(3, "hi"),
			tokenAtSample(7, "there"),
			tokenAtSample(9, "late"),
		}},
	}}
	s := New(testParams(), dec, nil)

	resp := s.Push(context.Background(), protocol.Request{ID: "1", SampleRate: 16000}, int16LEBytes(10))

	result := resp.Result.(protocol.StreamDeltaResult)
	if result.Text != "hi there" {
		t.Fatalf("got delta %q, want %q", result.Text, "hi there")
	}
	if s.committedUntilSample != 7 {
		t.Fatalf("committedUntilSample = %d, want 7", s.committedUntilSample)
	}
}

func TestFlushCommitsTokenHeldBackByStability(t *testing.T) {
	dec := &queueDecoder{responses: []decode.Segments{
		{Tokens: []decode.Token{
			tokenAtSample(3, "hi"),
			tokenAtSample(7, "there"),
			tokenAtSample(9, "late"),
		}},
		{Tokens: []decode.Token{
			tokenAtSample(3, "hi"),
			tokenAtSample(7, "there"),
			tokenAtSample(9, "late"),
		}},
	}}
	s := New(testParams(), dec, nil)

	s.Push(context.Background(), protocol.Request{ID: "1", SampleRate: 16000}, int16LEBytes(10))

	resp := s.Flush(context.Background(), protocol.Request{ID: "2"}, nil)
	result := resp.Result.(protocol.StreamDeltaResult)

	if result.Text != "late" {
		t.Fatalf("got flush delta %q, want %q", result.Text, "late")
	}
	if s.committedText != "hi there late" {
		t.Fatalf("committedText = %q", s.committedText)
	}
}

func TestFlushOnEmptySessionReturnsEmptyWithoutDecoding(t *testing.T) {
	dec := &queueDecoder{}
	s := New(testParams(), dec, nil)

	resp := s.Flush(context.Background(), protocol.Request{ID: "1"}, nil)
	result := resp.Result.(protocol.StreamDeltaResult)

	if result.Text != "" || result.DurationSeconds != 0 {
		t.Fatalf("expected empty flush result, got %+v", result)
	}
	if dec.calls != 0 {
		t.Fatalf("expected no decode on empty-session flush, got %d calls", dec.calls)
	}
}

func TestPushAfterCloseAutoReopensFreshSession(t *testing.T) {
	dec := &queueDecoder{responses: []decode.Segments{
		{Tokens: []decode.Token{tokenAtSample(3, "hi"), tokenAtSample(7, "there")}},
		{Tokens: []decode.Token{tokenAtSample(3, "new"), tokenAtSample(7, "session")}},
	}}
	s := New(testParams(), dec, nil)

	s.Push(context.Background(), protocol.Request{ID: "1", SampleRate: 16000}, int16LEBytes(10))
	s.Close(context.Background(), protocol.Request{ID: "2"}, nil)

	resp := s.Push(context.Background(), protocol.Request{ID: "3", SampleRate: 16000}, int16LEBytes(10))
	result := resp.Result.(protocol.StreamDeltaResult)

	if result.Text != "new session" {
		t.Fatalf("got %q, want fresh-session delta %q", result.Text, "new session")
	}
	if s.committedText != "new session" {
		t.Fatalf("committedText should not carry over from the closed session, got %q", s.committedText)
	}
}

func TestResetClearsCommittedState(t *testing.T) {
	dec := &queueDecoder{responses: []decode.Segments{
		{Tokens: []decode.Token{tokenAtSample(3, "hi")}},
	}}
	s := New(testParams(), dec, nil)

	s.Push(context.Background(), protocol.Request{ID: "1", SampleRate: 16000}, int16LEBytes(10))
	s.Reset(context.Background(), protocol.Request{ID: "2"}, nil)

	if s.committedText != "" || s.committedUntilSample != 0 || s.hasCommitted {
		t.Fatalf("expected cleared state after reset, got text=%q until=%d hasCommitted=%v",
			s.committedText, s.committedUntilSample, s.hasCommitted)
	}
	if s.state != fsm.StateOpen {
		t.Fatalf("expected state OPEN after reset, got %q", s.state)
	}
}

func TestFlushDecodesEntireBufferBeyondMaxWindowSamples(t *testing.T) {
	// 12 pushes of 10 samples each, with every push decode returning no
	// tokens, never commit anything, so the retained buffer keeps growing
	// past MaxWindowSamples (100) by the time Flush runs.
	responses := make([]decode.Segments, 12, 13)
	responses = append(responses, decode.Segments{Tokens: []decode.Token{tokenAtSample(3, "final")}})

	dec := &queueDecoder{responses: responses}
	s := New(testParams(), dec, nil)

	for i := 0; i < 12; i++ {
		s.Push(context.Background(), protocol.Request{ID: "push", SampleRate: 16000}, int16LEBytes(10))
	}

	resp := s.Flush(context.Background(), protocol.Request{ID: "flush"}, nil)
	result := resp.Result.(protocol.StreamDeltaResult)

	if result.Text != "final" {
		t.Fatalf("got flush delta %q, want %q", result.Text, "final")
	}

	flushWindowLen := dec.windowLens[len(dec.windowLens)-1]
	if flushWindowLen <= s.params.MaxWindowSamples {
		t.Fatalf("flush window length = %d, want > MaxWindowSamples (%d); stream_flush must decode "+
			"the entire retained buffer uncapped", flushWindowLen, s.params.MaxWindowSamples)
	}
	if flushWindowLen != 120 {
		t.Fatalf("flush window length = %d, want 120 (the full retained buffer)", flushWindowLen)
	}
}

func TestPushFallsBackToAudioBase64WhenFramePayloadEmpty(t *testing.T) {
	dec := &queueDecoder{responses: []decode.Segments{
		{Tokens: []decode.Token{tokenAtSample(3, "hi")}},
	}}
	s := New(testParams(), dec, nil)

	raw := int16LEBytes(10)
	req := protocol.Request{ID: "1", SampleRate: 16000, AudioBase64: base64.StdEncoding.EncodeToString(raw)}

	resp := s.Push(context.Background(), req, nil)
	result := resp.Result.(protocol.StreamDeltaResult)

	if result.Text != "hi" {
		t.Fatalf("got %q, want %q", result.Text, "hi")
	}
}

func TestPushRejectsSampleRateMismatch(t *testing.T) {
	dec := &queueDecoder{}
	s := New(testParams(), dec, nil)

	resp := s.Push(context.Background(), protocol.Request{ID: "1", SampleRate: 8000}, int16LEBytes(10))

	if resp.OK {
		t.Fatal("expected failure response for sample rate mismatch")
	}
}

func TestWarmupPerformsZeroFilledDecode(t *testing.T) {
	dec := &queueDecoder{responses: []decode.Segments{{}}}
	s := New(testParams(), dec, nil)

	resp := s.Warmup(context.Background(), protocol.Request{ID: "1"}, nil)

	if !resp.OK {
		t.Fatalf("expected ok response, got %+v", resp)
	}
	if dec.calls != 1 {
		t.Fatalf("expected 1 warmup decode call, got %d", dec.calls)
	}
}
