package pcm

import (
	"fmt"
	"os"

	"github.com/go-audio/wav"
)

// WAVFile is the decoded contents of a WAV file needed by the transcribers:
// per-channel-interleaved float32 samples, the channel count, and the file's
// own declared sample rate.
type WAVFile struct {
	Samples    []float32
	Channels   int
	SampleRate int
}

// DecodeWAVFile opens and fully decodes a WAV file at path. Decoding itself
// (RIFF/WAVE chunk parsing, PCM unpacking) is delegated to go-audio/wav; this
// function only adapts its output into the normalized float32 PCM buffer
// shape every decoder in this repo consumes.
func DecodeWAVFile(path string) (WAVFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return WAVFile{}, fmt.Errorf("open wav %q: %w", path, err)
	}
	defer f.Close()

	decoder := wav.NewDecoder(f)
	buf, err := decoder.FullPCMBuffer()
	if err != nil {
		return WAVFile{}, fmt.Errorf("decode wav %q: %w", path, err)
	}
	if buf.Format == nil {
		return WAVFile{}, fmt.Errorf("decode wav %q: missing format chunk", path)
	}

	channels := buf.Format.NumChannels
	if channels <= 0 {
		return WAVFile{}, fmt.Errorf("decode wav %q: invalid channel count %d", path, channels)
	}

	bitDepth := buf.SourceBitDepth
	if bitDepth == 0 {
		bitDepth = 16
	}
	maxVal := float32(int(1)<<(bitDepth-1)) - 1

	samples := make([]float32, len(buf.Data))
	for i, v := range buf.Data {
		samples[i] = float32(v) / maxVal
	}

	return WAVFile{
		Samples:    samples,
		Channels:   channels,
		SampleRate: buf.Format.SampleRate,
	}, nil
}

// RequireMono rejects multi-channel audio for the offline CTC decode path
// (SPEC_FULL.md §4.2: "mono required for the CTC path; multi-channel
// rejected").
func (f WAVFile) RequireMono() ([]float32, error) {
	if f.Channels != 1 {
		return nil, fmt.Errorf("wav file has %d channels, mono required", f.Channels)
	}
	return f.Samples, nil
}

// Downmix collapses multi-channel WAV samples to mono by arithmetic mean,
// used by the streaming worker which tolerates multi-channel input.
func (f WAVFile) Downmix() []float32 {
	return DownmixMono(f.Samples, f.Channels)
}
