package frame

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"testing"
)

func buildRequestFrame(jsonBody, audio []byte) []byte {
	header := make([]byte, 8)
	binary.LittleEndian.PutUint32(header[0:4], uint32(len(jsonBody)))
	binary.LittleEndian.PutUint32(header[4:8], uint32(len(audio)))
	buf := append(header, jsonBody...)
	buf = append(buf, audio...)
	return buf
}

func TestReadRequestDecodesJSONAndAudio(t *testing.T) {
	frameBytes := buildRequestFrame([]byte(`{"id":"a"}`), []byte{1, 2, 3, 4})
	req, eof, err := ReadRequest(bytes.NewReader(frameBytes))
	if err != nil {
		t.Fatalf("ReadRequest: %v", err)
	}
	if eof {
		t.Fatal("expected eof=false")
	}
	if string(req.JSON) != `{"id":"a"}` {
		t.Fatalf("JSON = %q", req.JSON)
	}
	if !bytes.Equal(req.Audio, []byte{1, 2, 3, 4}) {
		t.Fatalf("Audio = %v", req.Audio)
	}
}

func TestReadRequestCleanEOFAtFirstByte(t *testing.T) {
	_, eof, err := ReadRequest(bytes.NewReader(nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !eof {
		t.Fatal("expected eof=true for empty reader")
	}
}

func TestReadRequestMidFrameEOFIsFatal(t *testing.T) {
	// Header claims 8-byte header but supply only 3 bytes.
	_, _, err := ReadRequest(bytes.NewReader([]byte{1, 2, 3}))
	if err == nil {
		t.Fatal("expected error for mid-header EOF")
	}
	if !errors.Is(err, ErrMidFrameEOF) {
		t.Fatalf("error = %v, want ErrMidFrameEOF", err)
	}
}

func TestReadRequestMidPayloadEOFIsFatal(t *testing.T) {
	header := make([]byte, 8)
	binary.LittleEndian.PutUint32(header[0:4], 100)
	_, _, err := ReadRequest(bytes.NewReader(append(header, []byte("short")...)))
	if err == nil {
		t.Fatal("expected error for truncated json payload")
	}
}

func TestReadRequestRejectsZeroJSONLen(t *testing.T) {
	header := make([]byte, 8)
	_, _, err := ReadRequest(bytes.NewReader(header))
	if err == nil {
		t.Fatal("expected error for json_len == 0")
	}
}

func TestReadRequestRejectsOversizedJSONLen(t *testing.T) {
	header := make([]byte, 8)
	binary.LittleEndian.PutUint32(header[0:4], MaxJSONLen+1)
	_, _, err := ReadRequest(bytes.NewReader(header))
	if err == nil {
		t.Fatal("expected error for json_len exceeding limit")
	}
}

func TestReadRequestRejectsOversizedAudioLen(t *testing.T) {
	header := make([]byte, 8)
	binary.LittleEndian.PutUint32(header[0:4], 1)
	binary.LittleEndian.PutUint32(header[4:8], MaxAudioLen+1)
	_, _, err := ReadRequest(bytes.NewReader(header))
	if err == nil {
		t.Fatal("expected error for audio_len exceeding limit")
	}
}

func TestReadRequestHandlesSplitSyscalls(t *testing.T) {
	frameBytes := buildRequestFrame([]byte(`{"id":"split"}`), []byte{9, 9})
	req, eof, err := ReadRequest(&iotest1ByteReader{data: frameBytes})
	if err != nil {
		t.Fatalf("ReadRequest: %v", err)
	}
	if eof {
		t.Fatal("unexpected eof")
	}
	if string(req.JSON) != `{"id":"split"}` {
		t.Fatalf("JSON = %q", req.JSON)
	}
}

// iotest1ByteReader returns at most one byte per Read call, exercising the
// read-loop discipline required because the parent may write a frame's
// halves in separate syscalls.
type iotest1ByteReader struct {
	data []byte
	pos  int
}

func (r *iotest1ByteReader) Read(p []byte) (int, error) {
	if r.pos >= len(r.data) {
		return 0, io.EOF
	}
	p[0] = r.data[r.pos]
	r.pos++
	return 1, nil
}

func TestWriteResponseFramesBodyWithLengthPrefix(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteResponse(&buf, []byte(`{"ok":true}`)); err != nil {
		t.Fatalf("WriteResponse: %v", err)
	}
	got := buf.Bytes()
	length := binary.LittleEndian.Uint32(got[0:4])
	if int(length) != len(`{"ok":true}`) {
		t.Fatalf("length prefix = %d, want %d", length, len(`{"ok":true}`))
	}
	if string(got[4:]) != `{"ok":true}` {
		t.Fatalf("body = %q", got[4:])
	}
}
