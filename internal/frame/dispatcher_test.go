package frame

import (
	"bufio"
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"testing"

	"github.com/rbright/sttworkers/internal/protocol"
)

func serveOnce(t *testing.T, mux *Mux, jsonBody, audio []byte) protocol.Response {
	t.Helper()
	in := buildRequestFrame(jsonBody, audio)
	var out bytes.Buffer
	w := bufio.NewWriter(&out)
	if err := mux.Serve(context.Background(), bytes.NewReader(in), w); err != nil {
		t.Fatalf("Serve: %v", err)
	}

	bodyLen := binary.LittleEndian.Uint32(out.Bytes()[0:4])
	var resp protocol.Response
	if err := json.Unmarshal(out.Bytes()[4:4+bodyLen], &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	return resp
}

func TestDispatchEchoesRequestID(t *testing.T) {
	mux := NewMux(nil)
	mux.HandleFunc(protocol.ActionWarmup, func(ctx context.Context, req protocol.Request, audio []byte) protocol.Response {
		return protocol.Success(req.ID, protocol.ReadyResult{Ready: true})
	})

	resp := serveOnce(t, mux, []byte(`{"id":"a","action":"warmup"}`), nil)
	if resp.ID != "a" {
		t.Fatalf("ID = %q, want %q", resp.ID, "a")
	}
	if !resp.OK {
		t.Fatalf("OK = false, want true")
	}
}

func TestDispatchDefaultsUnknownIDOnParseFailure(t *testing.T) {
	mux := NewMux(nil)
	resp := serveOnce(t, mux, []byte(`not json`), nil)
	if resp.ID != protocol.UnknownID {
		t.Fatalf("ID = %q, want %q", resp.ID, protocol.UnknownID)
	}
	if resp.OK {
		t.Fatal("OK = true, want false")
	}
}

func TestDispatchUnsupportedActionContinuesSession(t *testing.T) {
	mux := NewMux(nil)
	resp := serveOnce(t, mux, []byte(`{"id":"x","action":"eject"}`), nil)
	if resp.OK {
		t.Fatal("OK = true, want false")
	}
	if resp.Error != "Unsupported action: eject" {
		t.Fatalf("Error = %q", resp.Error)
	}
}

func TestServeAcceptsMultipleFramesThenCleanEOF(t *testing.T) {
	mux := NewMux(nil)
	var calls int
	mux.HandleFunc(protocol.ActionWarmup, func(ctx context.Context, req protocol.Request, audio []byte) protocol.Response {
		calls++
		return protocol.Success(req.ID, protocol.ReadyResult{Ready: true})
	})

	var in bytes.Buffer
	in.Write(buildRequestFrame([]byte(`{"id":"1","action":"warmup"}`), nil))
	in.Write(buildRequestFrame([]byte(`{"id":"2","action":"warmup"}`), nil))

	var out bytes.Buffer
	w := bufio.NewWriter(&out)
	if err := mux.Serve(context.Background(), &in, w); err != nil {
		t.Fatalf("Serve: %v", err)
	}
	if calls != 2 {
		t.Fatalf("calls = %d, want 2", calls)
	}
}

func TestServeAbortsOnSessionFatalHeader(t *testing.T) {
	mux := NewMux(nil)
	header := make([]byte, 8) // json_len == 0 is a hard failure
	var out bytes.Buffer
	w := bufio.NewWriter(&out)
	if err := mux.Serve(context.Background(), bytes.NewReader(header), w); err == nil {
		t.Fatal("expected session-fatal error")
	}
}
