package capture

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/jfreymuth/pulse"
	pulseproto "github.com/jfreymuth/pulse/proto"

	"github.com/rbright/sttworkers/internal/pcm"
	"github.com/rbright/sttworkers/internal/resample"
)

// writerQueueDepth bounds the channel between the audio callback and the
// writer goroutine (SPEC_FULL.md §5 "bounded channel").
const writerQueueDepth = 64

// Pipeline owns one open capture stream: the PulseAudio record stream, the
// resampler it feeds, and the writer goroutine draining blocks to stdout.
type Pipeline struct {
	logger *slog.Logger

	client *pulse.Client
	stream *pulse.RecordStream

	channels   int
	format     pulse.Format
	nativeRate int
	targetRate int

	mu    sync.Mutex
	rs    *resample.LinearResampler
	inRaw int // bytes per native sample, used to decode the raw callback buffer

	blocks chan []byte
	out    *bufio.Writer

	stopOnce sync.Once
	done     chan struct{}
}

// Open queries the default input device's native format and opens a record
// stream at that native rate/channels/format, wiring a LinearResampler that
// converts every callback's worth of samples down to targetRate mono before
// handoff to the writer goroutine (SPEC_FULL.md §4.5 "Setup").
func Open(ctx context.Context, targetRate int, out io.Writer, logger *slog.Logger) (*Pipeline, error) {
	client, err := pulse.NewClient(
		pulse.ClientApplicationName("sttworkers-capture"),
		pulse.ClientApplicationIconName("audio-input-microphone"),
	)
	if err != nil {
		return nil, fmt.Errorf("capture: connect pulse server: %w", err)
	}

	source, err := client.DefaultSource()
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("capture: read default source: %w", err)
	}

	nativeRate, channels, format, err := nativeSpec(client, source)
	if err != nil {
		client.Close()
		return nil, err
	}

	p := &Pipeline{
		logger:     logger,
		client:     client,
		channels:   channels,
		format:     format,
		nativeRate: nativeRate,
		targetRate: targetRate,
		rs:         resample.New(nativeRate, targetRate),
		inRaw:      bytesPerSample(format),
		blocks:     make(chan []byte, writerQueueDepth),
		out:        bufio.NewWriterSize(out, 64*1024),
		done:       make(chan struct{}),
	}

	fragmentFrames := clamp(nativeRate/200, 64, 1024)

	writer := pulse.NewWriter(writerFunc(p.onPCM), format)
	stream, err := client.NewRecord(
		writer,
		pulse.RecordSource(source),
		pulse.RecordSampleRate(nativeRate),
		pulse.RecordChannels(pulseChannelMap(channels)),
		pulse.RecordBufferFragmentSize(uint32(fragmentFrames*channels*p.inRaw)),
		pulse.RecordMediaName("sttworkers capture"),
	)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("capture: create pulse record stream: %w", err)
	}
	p.stream = stream

	go p.writeLoop()

	stream.Start()

	go func() {
		<-ctx.Done()
		p.Stop()
	}()

	return p, nil
}

// NativeRate reports the device's native sample rate, for the caller's
// startup "READY" line (SPEC_FULL.md §4.5).
func (p *Pipeline) NativeRate() int {
	return p.nativeRate
}

// TargetRate reports the resampler's output rate.
func (p *Pipeline) TargetRate() int {
	return p.targetRate
}

// Channels reports the native channel count.
func (p *Pipeline) Channels() int {
	return p.channels
}

// onPCM is the PulseAudio callback. It runs on the audio driver's thread;
// SPEC_FULL.md §5 requires it stay short and real-time-safe except for the
// resampler's mutex.
func (p *Pipeline) onPCM(buffer []byte) (int, error) {
	if len(buffer) == 0 {
		return 0, nil
	}

	floats, err := decodeNative(buffer, p.format)
	if err != nil {
		p.logger.Error("capture: decode native PCM failed", "error", err)
		return len(buffer), nil
	}

	mono := pcm.DownmixMono(floats, p.channels)

	p.mu.Lock()
	resampled := p.rs.Push(mono)
	p.mu.Unlock()

	if len(resampled) == 0 {
		return len(buffer), nil
	}

	block := pcm.Float32ToInt16LE(resampled)

	select {
	case p.blocks <- block:
	case <-p.done:
		return 0, io.EOF
	}

	return len(buffer), nil
}

// writeLoop drains blocks and writes them to stdout, flushing after every
// block since sub-frame flushing is intentional (SPEC_FULL.md §4.5 "Writer
// thread").
func (p *Pipeline) writeLoop() {
	for block := range p.blocks {
		if _, err := p.out.Write(block); err != nil {
			p.logger.Error("capture: stdout write failed", "error", err)
			return
		}
		if err := p.out.Flush(); err != nil {
			p.logger.Error("capture: stdout flush failed", "error", err)
			return
		}
	}
}

// Stop halts the stream and releases the client exactly once.
func (p *Pipeline) Stop() {
	p.stopOnce.Do(func() {
		close(p.done)
		if p.stream != nil {
			p.stream.Stop()
			p.stream.Close()
		}
		if p.client != nil {
			p.client.Close()
		}
		close(p.blocks)
	})
}

type writerFunc func([]byte) (int, error)

func (f writerFunc) Write(b []byte) (int, error) { return f(b) }

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func pulseChannelMap(channels int) pulse.ChannelPosition {
	if channels <= 1 {
		return pulse.Mono
	}
	return pulse.FrontLeft
}

func bytesPerSample(format pulse.Format) int {
	switch format {
	case pulseproto.FormatFloat32LE:
		return 4
	default:
		return 2
	}
}

func decodeNative(raw []byte, format pulse.Format) ([]float32, error) {
	switch format {
	case pulseproto.FormatFloat32LE:
		return pcm.Float32LEToFloat32(raw)
	case pulseproto.FormatUInt16LE:
		return pcm.Uint16LEToFloat32(raw)
	default:
		return pcm.Int16LEToFloat32(raw)
	}
}

// nativeSpec resolves the default source's native rate, channel count, and
// sample format by querying its source info (SPEC_FULL.md §4.5 "Setup").
// Unsupported formats (anything but float32/int16/uint16) are rejected at
// startup, matching the spec's explicit format allowlist.
func nativeSpec(client *pulse.Client, source *pulse.Source) (rate int, channels int, format pulse.Format, err error) {
	var infos pulseproto.GetSourceInfoListReply
	if err := client.RawRequest(&pulseproto.GetSourceInfoList{}, &infos); err != nil {
		return 0, 0, 0, fmt.Errorf("capture: list sources: %w", err)
	}

	for _, info := range infos {
		if info == nil || info.SourceName != source.ID() {
			continue
		}
		f, err := resolveFormat(info.SampleSpecFormat)
		if err != nil {
			return 0, 0, 0, err
		}
		return int(info.SampleSpecRate), int(info.SampleSpecChannels), f, nil
	}

	return 0, 0, 0, fmt.Errorf("capture: default source %q not found in source list", source.ID())
}

// resolveFormat maps a PulseAudio wire sample format byte to one of the
// three formats this pipeline can decode.
func resolveFormat(wireFormat byte) (pulse.Format, error) {
	switch wireFormat {
	case pulseproto.SampleFloat32LE:
		return pulseproto.FormatFloat32LE, nil
	case pulseproto.SampleS16LE:
		return pulseproto.FormatInt16LE, nil
	case pulseproto.SampleU16LE:
		return pulseproto.FormatUInt16LE, nil
	default:
		return 0, fmt.Errorf("capture: unsupported native sample format %d", wireFormat)
	}
}
