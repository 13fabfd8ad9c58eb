package offlineworker

import (
	"context"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"testing"

	"github.com/rbright/sttworkers/internal/decode"
	"github.com/rbright/sttworkers/internal/protocol"
)

type fakeDecoder struct {
	segments decode.Segments
	err      error
	calls    int
	lastRate int
	lastLen  int
}

func (f *fakeDecoder) Transcribe(samples []float32, sampleRate int) (decode.Segments, error) {
	f.calls++
	f.lastRate = sampleRate
	f.lastLen = len(samples)
	if f.err != nil {
		return decode.Segments{}, f.err
	}
	return f.segments, nil
}

func (f *fakeDecoder) Close() error { return nil }

func int16LEBytes(samples []int16) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(s))
	}
	return out
}

func TestWarmupDoesNotInvokeDecoder(t *testing.T) {
	dec := &fakeDecoder{}
	w := New(dec, nil)

	resp := w.Warmup(context.Background(), protocol.Request{ID: "x"}, nil)

	if !resp.OK {
		t.Fatalf("expected ok response, got %+v", resp)
	}
	if dec.calls != 0 {
		t.Fatalf("expected 0 decoder calls, got %d", dec.calls)
	}
}

func TestTranscribePrefersBinaryPayloadOverBase64AndPath(t *testing.T) {
	dec := &fakeDecoder{segments: decode.Segments{Text: "hello"}}
	w := New(dec, nil)

	audio := int16LEBytes([]int16{100, 200, 300})
	req := protocol.Request{ID: "a", SampleRate: 16000, AudioBase64: "ignored", Audio: "ignored.wav"}

	resp := w.Transcribe(context.Background(), req, audio)

	if !resp.OK {
		t.Fatalf("expected ok response, got %+v", resp)
	}
	if dec.lastLen != 3 {
		t.Fatalf("expected 3 decoded samples from binary payload, got %d", dec.lastLen)
	}
}

func TestTranscribeFallsBackToAudioBase64(t *testing.T) {
	dec := &fakeDecoder{segments: decode.Segments{Text: "hello"}}
	w := New(dec, nil)

	raw := int16LEBytes([]int16{1, 2})
	req := protocol.Request{ID: "a", SampleRate: 16000, AudioBase64: base64.StdEncoding.EncodeToString(raw)}

	resp := w.Transcribe(context.Background(), req, nil)

	if !resp.OK {
		t.Fatalf("expected ok response, got %+v", resp)
	}
	if dec.lastLen != 2 {
		t.Fatalf("expected 2 decoded samples, got %d", dec.lastLen)
	}
}

func TestTranscribeRejectsSampleRateMismatch(t *testing.T) {
	dec := &fakeDecoder{}
	w := New(dec, nil)

	audio := int16LEBytes([]int16{1, 2})
	req := protocol.Request{ID: "a", SampleRate: 8000}

	resp := w.Transcribe(context.Background(), req, audio)

	if resp.OK {
		t.Fatal("expected failure response for sample rate mismatch")
	}
	if resp.Error == "" {
		t.Fatal("expected error message")
	}
}

func TestTranscribeRejectsMissingAudioSource(t *testing.T) {
	dec := &fakeDecoder{}
	w := New(dec, nil)

	resp := w.Transcribe(context.Background(), protocol.Request{ID: "a", SampleRate: 16000}, nil)

	if resp.OK {
		t.Fatal("expected failure response for missing audio")
	}
}

func TestTranscribePropagatesDecoderError(t *testing.T) {
	dec := &fakeDecoder{err: errors.New("decode exploded")}
	w := New(dec, nil)

	audio := int16LEBytes([]int16{1, 2})
	resp := w.Transcribe(context.Background(), protocol.Request{ID: "a", SampleRate: 16000}, audio)

	if resp.OK {
		t.Fatal("expected failure response")
	}
	if resp.Error != "decode exploded" {
		t.Fatalf("got error %q, want %q", resp.Error, "decode exploded")
	}
}

func TestRoundMillisRoundsToThreeDecimals(t *testing.T) {
	if got := roundMillis(1.23456); got != 1.235 {
		t.Fatalf("roundMillis(1.23456) = %v, want 1.235", got)
	}
}
