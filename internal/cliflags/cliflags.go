// Package cliflags implements the three worker binaries' command-line
// parsing with the same hand-rolled arg-loop shape this lineage's own
// internal/cli package uses, rather than reaching for a flags library
// (SPEC_FULL.md §10 "CLI parsing").
package cliflags

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/rbright/sttworkers/internal/config"
)

// OfflineFlags is the offline transcription worker's parsed command line
// (SPEC_FULL.md §6).
type OfflineFlags struct {
	Config   config.OfflineConfig
	ShowHelp bool
	Doctor   bool
}

// ParseOffline parses the offline worker's flags, seeding OfflineConfig with
// its documented defaults before applying overrides.
func ParseOffline(args []string) (OfflineFlags, error) {
	parsed := OfflineFlags{Config: config.DefaultOffline()}

	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch arg {
		case "-h", "--help":
			parsed.ShowHelp = true
		case "--model":
			i++
			if i >= len(args) {
				return OfflineFlags{}, errors.New("--model requires a path")
			}
			parsed.Config.ModelPath = args[i]
		case "--threads":
			i++
			if i >= len(args) {
				return OfflineFlags{}, errors.New("--threads requires a value")
			}
			n, err := strconv.Atoi(args[i])
			if err != nil {
				return OfflineFlags{}, fmt.Errorf("--threads: %w", err)
			}
			parsed.Config.Threads = n
		case "--serve":
			parsed.Config.Serve = true
		case "--healthcheck":
			parsed.Config.Healthcheck = true
		case "--doctor":
			parsed.Doctor = true
		default:
			return OfflineFlags{}, fmt.Errorf("unknown flag: %s", arg)
		}
	}

	return parsed, nil
}

// OfflineHelpText returns the offline worker's --help output.
func OfflineHelpText(binaryName string) string {
	return fmt.Sprintf(`Usage:
  %[1]s --model PATH --serve [--threads N]
  %[1]s --healthcheck
  %[1]s --model PATH --doctor

Flags:
  --model PATH     ggml model file (required unless --healthcheck)
  --threads N      intra-op decode threads, 1-64 (default 4)
  --serve          run the framed stdin/stdout request server
  --healthcheck    print "ok" and exit 0 without loading any model
  --doctor         report whether the model path resolves, without loading it
  -h, --help       show this help
`, binaryName)
}

// StreamingFlags is the streaming transducer worker's parsed command line
// (SPEC_FULL.md §6). --serve is accepted but not required: the streaming
// worker has no one-shot mode and always serves.
type StreamingFlags struct {
	Config   config.StreamConfig
	ShowHelp bool
	Doctor   bool
}

// ParseStreaming parses the streaming worker's flags, seeding StreamConfig
// with its documented defaults before applying overrides.
func ParseStreaming(args []string) (StreamingFlags, error) {
	parsed := StreamingFlags{Config: config.DefaultStream()}

	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch arg {
		case "-h", "--help":
			parsed.ShowHelp = true
		case "--model":
			i++
			if i >= len(args) {
				return StreamingFlags{}, errors.New("--model requires a path")
			}
			parsed.Config.ModelPath = args[i]
		case "--threads":
			n, err := parseIntArg(args, &i, "--threads")
			if err != nil {
				return StreamingFlags{}, err
			}
			parsed.Config.Threads = n
		case "--serve":
			// Serving is the only mode; the flag is accepted and changes nothing.
		case "--healthcheck":
			parsed.Config.Healthcheck = true
		case "--doctor":
			parsed.Doctor = true
		case "--stream-min-audio-ms":
			n, err := parseIntArg(args, &i, "--stream-min-audio-ms")
			if err != nil {
				return StreamingFlags{}, err
			}
			parsed.Config.MinAudioMs = n
		case "--stream-decode-interval-ms":
			n, err := parseIntArg(args, &i, "--stream-decode-interval-ms")
			if err != nil {
				return StreamingFlags{}, err
			}
			parsed.Config.DecodeIntervalMs = n
		case "--stream-max-window-ms":
			n, err := parseIntArg(args, &i, "--stream-max-window-ms")
			if err != nil {
				return StreamingFlags{}, err
			}
			parsed.Config.MaxWindowMs = n
		case "--stream-left-context-ms":
			n, err := parseIntArg(args, &i, "--stream-left-context-ms")
			if err != nil {
				return StreamingFlags{}, err
			}
			parsed.Config.LeftContextMs = n
		case "--stream-stability-hold-ms":
			n, err := parseIntArg(args, &i, "--stream-stability-hold-ms")
			if err != nil {
				return StreamingFlags{}, err
			}
			parsed.Config.StabilityHoldMs = n
		default:
			return StreamingFlags{}, fmt.Errorf("unknown flag: %s", arg)
		}
	}

	return parsed, nil
}

// StreamingHelpText returns the streaming worker's --help output.
func StreamingHelpText(binaryName string) string {
	return fmt.Sprintf(`Usage:
  %[1]s --model PATH [--serve] [--threads N] [--stream-* overrides]
  %[1]s --healthcheck

Flags:
  --model PATH                      transducer model directory (required unless --healthcheck)
  --serve                           accepted; the worker always serves framed stdin/stdout requests
  --threads N                       1-64 (default 4); range-checked only, not passed to the ONNX sessions
  --stream-min-audio-ms N           minimum buffered audio before first decode, 40-1000 (default 120)
  --stream-decode-interval-ms N     minimum new audio between decodes, 40-1500 (default 160)
  --stream-max-window-ms N          upper bound on decode window, 800-30000 (default 6000)
  --stream-left-context-ms N        committed audio retained before the window, 200-5000 (default 1000)
  --stream-stability-hold-ms N      recency zone excluded from commit, 80-1200 (default 220)
  --healthcheck                     print "ok" and exit 0 without loading any model
  --doctor                          report whether the model directory resolves, without loading it
  -h, --help                        show this help
`, binaryName)
}

// CaptureFlags is the audio capture pipeline's parsed command line
// (SPEC_FULL.md §6).
type CaptureFlags struct {
	Config   config.CaptureConfig
	ShowHelp bool
	Doctor   bool
}

// ParseCapture parses the capture pipeline's flags.
func ParseCapture(args []string) (CaptureFlags, error) {
	parsed := CaptureFlags{Config: config.DefaultCapture()}

	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch arg {
		case "-h", "--help":
			parsed.ShowHelp = true
		case "--doctor":
			parsed.Doctor = true
		case "--sample-rate":
			n, err := parseIntArg(args, &i, "--sample-rate")
			if err != nil {
				return CaptureFlags{}, err
			}
			parsed.Config.SampleRate = n
		default:
			return CaptureFlags{}, fmt.Errorf("unknown flag: %s", arg)
		}
	}

	return parsed, nil
}

// CaptureHelpText returns the capture pipeline's --help output.
func CaptureHelpText(binaryName string) string {
	return fmt.Sprintf(`Usage:
  %[1]s [--sample-rate N]
  %[1]s --doctor

Flags:
  --sample-rate N   target output sample rate, 8000-96000 (default 16000)
  --doctor          report whether a default input device is enumerable
  -h, --help        show this help
`, binaryName)
}

// parseIntArg consumes the next argument as an integer value for flag,
// advancing *i. It is shared by every flag that takes a bare integer.
func parseIntArg(args []string, i *int, flag string) (int, error) {
	*i++
	if *i >= len(args) {
		return 0, fmt.Errorf("%s requires a value", flag)
	}
	n, err := strconv.Atoi(args[*i])
	if err != nil {
		return 0, fmt.Errorf("%s: %w", flag, err)
	}
	return n, nil
}
