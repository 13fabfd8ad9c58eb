// Package main is the audio capture pipeline's process entrypoint
// (SPEC_FULL.md §4.5, §6): open the default input device in its native
// format, stream resampled PCM16LE to stdout, and block until signaled.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/rbright/sttworkers/internal/buildinfo"
	"github.com/rbright/sttworkers/internal/capture"
	"github.com/rbright/sttworkers/internal/cliflags"
	"github.com/rbright/sttworkers/internal/config"
	"github.com/rbright/sttworkers/internal/doctor"
	"github.com/rbright/sttworkers/internal/logging"
)

const binaryName = "capture"

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr *os.File) int {
	flags, err := cliflags.ParseCapture(args)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n\n", err)
		fmt.Fprint(stderr, cliflags.CaptureHelpText(binaryName))
		return 1
	}
	if flags.ShowHelp {
		fmt.Fprint(stdout, cliflags.CaptureHelpText(binaryName))
		return 0
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if flags.Doctor {
		report := doctor.RunCapture(ctx)
		fmt.Fprintln(stdout, report.String())
		if !report.OK() {
			return 1
		}
		return 0
	}

	warnings, err := config.ValidateCapture(flags.Config)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}

	logRuntime, err := logging.New(binaryName)
	if err != nil {
		fmt.Fprintf(stderr, "error: setup logging: %v\n", err)
		return 1
	}
	defer func() { _ = logRuntime.Close() }()
	logger := logRuntime.Logger

	logger.Info("startup", slog.String("build", buildinfo.String(binaryName)))
	for _, w := range warnings {
		logger.Warn("config warning", slog.String("message", w.Message))
	}

	pipeline, err := capture.Open(ctx, flags.Config.SampleRate, stdout, logger)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		logger.Error("open capture pipeline failed", slog.String("error", err.Error()))
		return 1
	}
	defer pipeline.Stop()

	fmt.Fprintf(stderr, "READY input_sample_rate=%d target_sample_rate=%d channels=%d\n",
		pipeline.NativeRate(), pipeline.TargetRate(), pipeline.Channels())

	<-ctx.Done()
	return 0
}
