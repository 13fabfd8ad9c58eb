// Package main is the streaming transducer worker's process entrypoint
// (SPEC_FULL.md §4.3, §6): parse flags, validate configuration, load the
// ONNX encoder/decoder-joint pair, then serve framed requests on
// stdin/stdout until EOF. Exactly one session lives for the process's
// lifetime.
package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/rbright/sttworkers/internal/buildinfo"
	"github.com/rbright/sttworkers/internal/cliflags"
	"github.com/rbright/sttworkers/internal/config"
	"github.com/rbright/sttworkers/internal/doctor"
	"github.com/rbright/sttworkers/internal/frame"
	"github.com/rbright/sttworkers/internal/logging"
	"github.com/rbright/sttworkers/internal/streamworker"
	"github.com/rbright/sttworkers/internal/transducerdecoder"
)

const binaryName = "streamworker"

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr *os.File) int {
	flags, err := cliflags.ParseStreaming(args)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n\n", err)
		fmt.Fprint(stderr, cliflags.StreamingHelpText(binaryName))
		return 1
	}
	if flags.ShowHelp {
		fmt.Fprint(stdout, cliflags.StreamingHelpText(binaryName))
		return 0
	}
	if flags.Config.Healthcheck {
		fmt.Fprintln(stdout, "ok")
		return 0
	}
	if flags.Doctor {
		report := doctor.RunStreaming(flags.Config.ModelPath)
		fmt.Fprintln(stdout, report.String())
		if !report.OK() {
			return 1
		}
		return 0
	}

	params, warnings, err := config.ValidateStream(flags.Config)
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

	decoder, err := transducerdecoder.Open(flags.Config.ModelPath, "")
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		logger.Error("load model failed", slog.String("error", err.Error()))
		return 1
	}
	defer func() { _ = decoder.Close() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	session := streamworker.New(params, decoder, logger)
	mux := frame.NewMux(logger)
	session.Register(mux)

	writer := bufio.NewWriter(stdout)
	if err := mux.Serve(ctx, os.Stdin, writer); err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}
	return 0
}
