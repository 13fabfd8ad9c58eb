package capture

import (
	"testing"

	pulseproto "github.com/jfreymuth/pulse/proto"
)

func TestClampBounds(t *testing.T) {
	if got := clamp(10, 64, 1024); got != 64 {
		t.Fatalf("clamp(10,64,1024) = %d, want 64", got)
	}
	if got := clamp(2000, 64, 1024); got != 1024 {
		t.Fatalf("clamp(2000,64,1024) = %d, want 1024", got)
	}
	if got := clamp(200, 64, 1024); got != 200 {
		t.Fatalf("clamp(200,64,1024) = %d, want 200", got)
	}
}

func TestBytesPerSampleByFormat(t *testing.T) {
	if got := bytesPerSample(pulseproto.FormatFloat32LE); got != 4 {
		t.Fatalf("float32 bytesPerSample = %d, want 4", got)
	}
	if got := bytesPerSample(pulseproto.FormatInt16LE); got != 2 {
		t.Fatalf("int16 bytesPerSample = %d, want 2", got)
	}
	if got := bytesPerSample(pulseproto.FormatUInt16LE); got != 2 {
		t.Fatalf("uint16 bytesPerSample = %d, want 2", got)
	}
}

func TestResolveFormatRejectsUnsupported(t *testing.T) {
	if _, err := resolveFormat(0xFF); err == nil {
		t.Fatal("expected error for unsupported native sample format")
	}
}

func TestResolveFormatAcceptsKnownFormats(t *testing.T) {
	cases := []byte{pulseproto.SampleFloat32LE, pulseproto.SampleS16LE, pulseproto.SampleU16LE}
	for _, c := range cases {
		if _, err := resolveFormat(c); err != nil {
			t.Fatalf("resolveFormat(%d): unexpected error %v", c, err)
		}
	}
}
