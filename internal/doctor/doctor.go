// Package doctor runs startup readiness diagnostics shared by the offline,
// streaming, and capture binaries, keeping this lineage's own
// Check/Report shape (internal/doctor/doctor.go) but replacing its
// Riva/Hyprland/clipboard probes with the model-path and audio-device
// checks this worker layer actually needs (SPEC_FULL.md §6, §10).
package doctor

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/rbright/sttworkers/internal/capture"
	"github.com/rbright/sttworkers/internal/transducerdecoder"
)

// Check is one doctor assertion result.
type Check struct {
	Name    string
	Pass    bool
	Message string
}

// Report is the full doctor output contract.
type Report struct {
	Checks []Check
}

// OK returns true when all checks pass.
func (r Report) OK() bool {
	for _, check := range r.Checks {
		if !check.Pass {
			return false
		}
	}
	return true
}

// String renders the report as user-facing text output.
func (r Report) String() string {
	var b strings.Builder
	for _, check := range r.Checks {
		status := "OK"
		if !check.Pass {
			status = "FAIL"
		}
		b.WriteString(fmt.Sprintf("[%s] %s: %s\n", status, check.Name, check.Message))
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// RunOffline checks that modelPath exists as a regular file, without
// loading it through whisper.cpp (SPEC_FULL.md §6: "--healthcheck ...
// without any model validation" implies the non-healthcheck path validates
// the path but not the model contents).
func RunOffline(modelPath string) Report {
	return Report{Checks: []Check{checkFileExists("model", modelPath)}}
}

// RunStreaming checks that modelDir resolves to a complete encoder,
// decoder-joint, and vocabulary set via the same pure filesystem validation
// Open uses internally (SPEC_FULL.md §6 "Model path validation").
func RunStreaming(modelDir string) Report {
	_, _, _, err := transducerdecoder.ResolveModelPaths(modelDir)
	if err != nil {
		return Report{Checks: []Check{{Name: "model", Pass: false, Message: err.Error()}}}
	}
	return Report{Checks: []Check{{Name: "model", Pass: true, Message: fmt.Sprintf("resolved model files under %q", modelDir)}}}
}

// RunCapture checks that at least one PulseAudio input device is reachable.
func RunCapture(ctx context.Context) Report {
	devices, err := capture.ListDevices(ctx)
	if err != nil {
		return Report{Checks: []Check{{Name: "audio.devices", Pass: false, Message: err.Error()}}}
	}
	if len(devices) == 0 {
		return Report{Checks: []Check{{Name: "audio.devices", Pass: false, Message: "no input devices found"}}}
	}
	return Report{Checks: []Check{{Name: "audio.devices", Pass: true, Message: fmt.Sprintf("found %d input device(s)", len(devices))}}}
}

func checkFileExists(name, path string) Check {
	if strings.TrimSpace(path) == "" {
		return Check{Name: name, Pass: false, Message: "path is empty"}
	}
	info, err := os.Stat(path)
	if err != nil {
		return Check{Name: name, Pass: false, Message: err.Error()}
	}
	if info.IsDir() {
		return Check{Name: name, Pass: false, Message: fmt.Sprintf("%q is a directory, expected a file", path)}
	}
	return Check{Name: name, Pass: true, Message: fmt.Sprintf("found at %q", path)}
}
