// Package check provides the --check diagnostics and the --list-steps
// catalogue. Diagnostics load everything a run would load and probe the
// paths it would touch, without processing any file.
package check

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/backmassage/qcrunner/internal/config"
	"github.com/backmassage/qcrunner/internal/pipeline"
	"github.com/backmassage/qcrunner/internal/steps"
)

// Sentinel errors returned by Run when a run would fail or do nothing.
var (
	ErrConfigUnreadable  = errors.New("config file cannot be loaded")
	ErrPipelineInvalid   = errors.New("pipeline cannot be resolved")
	ErrNoInputs          = errors.New("input pattern matches no files")
	ErrOutputNotWritable = errors.New("output directory is not writable")
	ErrHistoryDirMissing = errors.New("history database directory does not exist")
)

// Logger is the minimal logging interface needed by Run.
type Logger interface {
	Info(string, ...interface{})
	Success(string, ...interface{})
	Warn(string, ...interface{})
	Error(string, ...interface{})
	Debug(string, ...interface{})
}

// Run checks the config file, the pipeline, the input pattern, the output
// root and the history path in that order. Every problem is logged; the
// returned error joins the sentinels of the checks that failed.
func Run(cfg *config.Config, reg *steps.Registry, log Logger) error {
	log.Info("=== Configuration Check ===")

	var errs []error
	if err := checkPipeline(cfg.ConfigPath, reg, log); err != nil {
		errs = append(errs, err)
	}
	if cfg.InputPattern != "" {
		if err := checkInputs(cfg.InputPattern, log); err != nil {
			errs = append(errs, err)
		}
	} else {
		log.Info("Input: no pattern given, skipped")
	}
	if err := checkOutput(cfg.OutputDir, cfg.Force, log); err != nil {
		errs = append(errs, err)
	}
	if cfg.HistoryDB != "" {
		if err := checkHistory(cfg.HistoryDB, log); err != nil {
			errs = append(errs, err)
		}
	}

	if len(errs) == 0 {
		log.Success("All checks passed")
		return nil
	}
	log.Error("%d check(s) failed", len(errs))
	return errors.Join(errs...)
}

func checkPipeline(path string, reg *steps.Registry, log Logger) error {
	pf, err := config.LoadFile(path)
	if err != nil {
		log.Error("Config: %v", err)
		return fmt.Errorf("%w: %v", ErrConfigUnreadable, err)
	}
	log.Success("Config: %s", path)

	queue, err := pipeline.Load(pf, reg)
	if err != nil {
		log.Error("Pipeline: %v", err)
		return fmt.Errorf("%w: %w", ErrPipelineInvalid, err)
	}
	log.Success("Pipeline: %d step(s)", len(queue))
	for _, s := range queue {
		log.Info("  %s (%d params)", s.Ref, len(s.Params))
	}
	log.Debug("pipeline fingerprint %s", queue.Fingerprint())
	return nil
}

func checkInputs(pattern string, log Logger) error {
	files, err := pipeline.Discover(pattern)
	if err != nil {
		log.Error("Input: %v", err)
		return err
	}
	if len(files) == 0 {
		log.Warn("Input: %q matches no files", pattern)
		return ErrNoInputs
	}
	log.Success("Input: %d file(s) match %q", len(files), pattern)
	return nil
}

// checkOutput confirms the output root (or its nearest existing parent) can
// be written and reports what a run would do with a previous report.
func checkOutput(dir string, force bool, log Logger) error {
	probe := dir
	for {
		fi, err := os.Stat(probe)
		if err == nil {
			if !fi.IsDir() {
				log.Error("Output: %s is not a directory", probe)
				return ErrOutputNotWritable
			}
			break
		}
		parent := filepath.Dir(probe)
		if parent == probe {
			log.Error("Output: no existing parent for %s", dir)
			return ErrOutputNotWritable
		}
		probe = parent
	}

	f, err := os.CreateTemp(probe, ".qcrunner-check-*")
	if err != nil {
		log.Error("Output: cannot write to %s: %v", probe, err)
		return fmt.Errorf("%w: %v", ErrOutputNotWritable, err)
	}
	name := f.Name()
	f.Close()
	os.Remove(name)
	log.Success("Output: %s is writable", dir)

	if sum, err := pipeline.ReadSummary(dir); err == nil {
		log.Info("Output: last run %s finished %s (%d processed, %d failed)",
			sum.RunID, sum.FinishedAt.Format("2006-01-02 15:04"), sum.Counts.Processed, sum.Counts.Failed)
		if force {
			log.Info("Output: next run would overwrite (--force set)")
		} else {
			log.Info("Output: next run would append and skip completed files")
		}
	}
	return nil
}

func checkHistory(path string, log Logger) error {
	dir := filepath.Dir(path)
	if fi, err := os.Stat(dir); err != nil || !fi.IsDir() {
		log.Error("History: directory %s does not exist", dir)
		return ErrHistoryDirMissing
	}
	log.Success("History: %s", path)
	return nil
}

// ListSteps writes the step catalogue as an aligned table.
func ListSteps(w io.Writer, reg *steps.Registry) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "STEP\tDESCRIPTION")
	for _, e := range reg.Catalogue() {
		fmt.Fprintf(tw, "%s\t%s\n", e.Ref(), e.Summary)
	}
	return tw.Flush()
}
