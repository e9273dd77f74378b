package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mattjoyce/deskbridge/internal/bridge"
	"github.com/mattjoyce/deskbridge/internal/config"
	"github.com/mattjoyce/deskbridge/internal/lock"
	"github.com/mattjoyce/deskbridge/internal/log"
)

const version = "0.2.0"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	switch cmd {
	case "start":
		os.Exit(runStart(args))
	case "version":
		fmt.Printf("bridged version %s\n", version)
		os.Exit(0)
	case "help", "--help", "-h":
		printUsage()
		os.Exit(0)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Print(`bridged - file-backed bridge daemon for the managed desktop app

Usage:
  bridged start [--config FILE]   Run the bridge in the foreground
  bridged version                 Show version information
  bridged help                    Show this help message

The bridge watches its pending directory for action records written by
bridgectl, applies them to the app's JSON configuration or process, and
publishes the outcome back into the queue directory.
`)
}

func runStart(args []string) int {
	fs := flag.NewFlagSet("start", flag.ExitOnError)
	configPath := fs.String("config", "", "path to the bridge YAML config")
	if err := fs.Parse(args); err != nil {
		return 1
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		return 1
	}

	log.Setup(cfg.Service.LogLevel)
	logger := log.WithComponent("main")

	pidLock, err := lock.Acquire(cfg.LockFile())
	if err != nil {
		fmt.Fprintf(os.Stderr, "cannot start: %v\n", err)
		return 1
	}
	defer func() { _ = pidLock.Release() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	b, err := bridge.New(ctx, cfg)
	if err != nil {
		logger.Error("failed to assemble bridge", "error", err)
		return 1
	}

	logger.Info("starting bridge", "version", version, "pid", os.Getpid())
	if err := b.Run(ctx); err != nil {
		logger.Error("bridge exited with error", "error", err)
		return 1
	}
	return 0
}
