// Package frame implements the length-prefixed binary envelope shared by the
// offline and streaming workers (SPEC_FULL.md §4.1). Request frames carry an
// 8-byte header plus JSON and audio payloads; response frames carry a 4-byte
// header plus a JSON body only — the asymmetry is load-bearing, not a bug.
package frame

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// Limits enforced on a decoded request header. Exceeding either aborts the
// server (SPEC_FULL.md §4.1 Validation).
const (
	MaxJSONLen  = 8 * 1024 * 1024
	MaxAudioLen = 128 * 1024 * 1024
)

// ErrMidFrameEOF marks a session-fatal EOF that struck after a frame had
// already begun (SPEC_FULL.md §3, §7 zone 3).
var ErrMidFrameEOF = errors.New("frame: unexpected EOF mid-frame")

// Request is one decoded request frame: json_len:u32_le | audio_len:u32_le |
// json_bytes | audio_bytes.
type Request struct {
	JSON  []byte
	Audio []byte
}

// ReadRequest reads one request frame from r.
//
// eof reports a clean shutdown: the very first header byte was EOF. Any
// other EOF, or an oversized length field, is returned as a non-nil error
// and is session-fatal per SPEC_FULL.md §7.
func ReadRequest(r io.Reader) (req Request, eof bool, err error) {
	header, ok, err := readExactAllowEOF(r, 8)
	if err != nil {
		return Request{}, false, err
	}
	if !ok {
		return Request{}, true, nil
	}

	jsonLen := binary.LittleEndian.Uint32(header[0:4])
	audioLen := binary.LittleEndian.Uint32(header[4:8])

	if jsonLen == 0 {
		return Request{}, false, fmt.Errorf("frame: json_len must be >= 1, got 0")
	}
	if jsonLen > MaxJSONLen {
		return Request{}, false, fmt.Errorf("frame: json_len %d exceeds limit %d", jsonLen, MaxJSONLen)
	}
	if audioLen > MaxAudioLen {
		return Request{}, false, fmt.Errorf("frame: audio_len %d exceeds limit %d", audioLen, MaxAudioLen)
	}

	jsonBytes, err := readExactRequired(r, int(jsonLen))
	if err != nil {
		return Request{}, false, fmt.Errorf("frame: read json payload: %w", err)
	}
	audioBytes, err := readExactRequired(r, int(audioLen))
	if err != nil {
		return Request{}, false, fmt.Errorf("frame: read audio payload: %w", err)
	}

	return Request{JSON: jsonBytes, Audio: audioBytes}, false, nil
}

// WriteResponse writes one response frame (body_len:u32_le | body_bytes) and
// flushes w if it supports flushing.
func WriteResponse(w io.Writer, body []byte) error {
	header := make([]byte, 4)
	binary.LittleEndian.PutUint32(header, uint32(len(body)))
	if _, err := w.Write(header); err != nil {
		return fmt.Errorf("frame: write response header: %w", err)
	}
	if _, err := w.Write(body); err != nil {
		return fmt.Errorf("frame: write response body: %w", err)
	}
	if f, ok := w.(interface{ Flush() error }); ok {
		if err := f.Flush(); err != nil {
			return fmt.Errorf("frame: flush response: %w", err)
		}
	}
	return nil
}

// readExactAllowEOF reads exactly n bytes, looping across short reads since
// the parent may write a frame's halves in separate syscalls. ok is false
// only when the very first byte read returns io.EOF with zero bytes
// consumed — a clean shutdown. Any EOF after at least one byte has been read
// is reported as an error (ErrMidFrameEOF), since the frame has begun.
func readExactAllowEOF(r io.Reader, n int) (data []byte, ok bool, err error) {
	buf := make([]byte, n)
	read := 0
	for read < n {
		m, rerr := r.Read(buf[read:])
		read += m
		if rerr != nil {
			if errors.Is(rerr, io.EOF) {
				if read == 0 {
					return nil, false, nil
				}
				return nil, false, ErrMidFrameEOF
			}
			return nil, false, rerr
		}
	}
	return buf, true, nil
}

// readExactRequired reads exactly n bytes; any EOF at all is a fatal error.
func readExactRequired(r io.Reader, n int) ([]byte, error) {
	if n == 0 {
		return []byte{}, nil
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, ErrMidFrameEOF
		}
		return nil, err
	}
	return buf, nil
}
