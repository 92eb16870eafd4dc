// Command qcrunner runs a configurable pipeline of quality-control steps over
// a set of files in parallel and writes the results as TSV reports.
//
// It parses flags, validates configuration, and then either prints the step
// catalogue (--list-steps), runs diagnostics (--check), or runs the pipeline.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/backmassage/qcrunner/internal/check"
	"github.com/backmassage/qcrunner/internal/config"
	"github.com/backmassage/qcrunner/internal/display"
	"github.com/backmassage/qcrunner/internal/logging"
	"github.com/backmassage/qcrunner/internal/pipeline"
	"github.com/backmassage/qcrunner/internal/steps"
)

// version and commit are injected at build time via -ldflags.
var (
	version = "0.3.0"
	commit  = "unknown"
)

func main() {
	os.Exit(run())
}

func run() int {
	// Phase 1: Bootstrap. No logger yet, so errors go straight to stderr.
	cfg := config.DefaultConfig()
	if err := config.ParseFlags(&cfg, version); err != nil {
		fmt.Fprintf(os.Stderr, "qcrunner: %v\n", err)
		return 1
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "qcrunner: %v\n", err)
		return 1
	}

	reg := steps.Default()
	if cfg.ListSteps {
		if err := check.ListSteps(os.Stdout, reg); err != nil {
			fmt.Fprintf(os.Stderr, "qcrunner: %v\n", err)
			return 1
		}
		return 0
	}

	log := logging.NewLogger(&cfg)
	defer log.Close()

	// Phase 2: Logger available.
	display.PrintBanner(os.Stdout, log.Palette())

	if cfg.CheckOnly {
		if err := check.Run(&cfg, reg, log); err != nil {
			return 1
		}
		return 0
	}

	pf, err := config.LoadFile(cfg.ConfigPath)
	if err != nil {
		log.Error("Cannot load config: %v", err)
		return 1
	}

	log.Info("=== qcrunner v%s (%s) ===", version, commit)
	log.Info("In:     %s", cfg.InputPattern)
	log.Info("Out:    %s", cfg.OutputDir)
	log.Info("Config: %s", pf.Path())

	// Phase 3: Signal handling. Workers stop taking new files; files already
	// running finish and are reported.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			log.Warn("Received interrupt, finishing running files…")
			cancel()
		case <-ctx.Done():
		}
	}()

	// Phase 4: Run.
	stats, err := pipeline.Run(ctx, &cfg, pf, reg, log)
	if err != nil {
		log.Error("Run aborted: %v", err)
		return 1
	}
	if !stats.Clean() {
		return 1
	}
	return 0
}
