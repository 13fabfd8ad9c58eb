// Package capture implements the audio capture pipeline (SPEC_FULL.md
// §4.5): device-native-format PulseAudio capture, downmix, float conversion,
// resampling to the target rate, and a dedicated stdout writer.
//
// Device enumeration is trimmed from this lineage's own PulseAudio capture
// code (internal/audio/pulse.go) down to what this binary's diagnostics
// need: the capture binary itself always opens the default source, so only
// ListDevices survives, for the doctor package's device-reachability check.
package capture

import (
	"context"
	"fmt"

	"github.com/jfreymuth/pulse"
	pulseproto "github.com/jfreymuth/pulse/proto"
)

// Device describes one PulseAudio input source.
type Device struct {
	ID          string
	Description string
	Default     bool
}

// ListDevices returns available PulseAudio input sources.
func ListDevices(_ context.Context) ([]Device, error) {
	client, err := pulse.NewClient(
		pulse.ClientApplicationName("sttworkers-capture"),
		pulse.ClientApplicationIconName("audio-input-microphone"),
	)
	if err != nil {
		return nil, fmt.Errorf("connect pulse server: %w", err)
	}
	defer client.Close()

	defaultSource, err := client.DefaultSource()
	if err != nil {
		return nil, fmt.Errorf("read default source: %w", err)
	}
	defaultID := defaultSource.ID()

	var sourceInfos pulseproto.GetSourceInfoListReply
	if err := client.RawRequest(&pulseproto.GetSourceInfoList{}, &sourceInfos); err != nil {
		return nil, fmt.Errorf("list sources: %w", err)
	}

	devices := make([]Device, 0, len(sourceInfos))
	for _, source := range sourceInfos {
		if source == nil {
			continue
		}
		devices = append(devices, Device{
			ID:          source.SourceName,
			Description: source.Device,
			Default:     source.SourceName == defaultID,
		})
	}
	return devices, nil
}
