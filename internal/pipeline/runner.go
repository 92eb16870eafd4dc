package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/backmassage/qcrunner/internal/config"
	"github.com/backmassage/qcrunner/internal/display"
	"github.com/backmassage/qcrunner/internal/history"
	"github.com/backmassage/qcrunner/internal/logging"
	"github.com/backmassage/qcrunner/internal/naming"
	"github.com/backmassage/qcrunner/internal/record"
	"github.com/backmassage/qcrunner/internal/steps"
)

// ErrorLogFile is where the run's diagnostic log ends up in the output root.
const ErrorLogFile = "error.log"

// Run is the top-level entry point. It loads the pipeline, discovers the
// inputs, processes them on cfg.Workers goroutines and aggregates the results.
// The error is non-nil only when the run could not be carried out at all;
// per-file failures are counted in the returned stats.
func Run(ctx context.Context, cfg *config.Config, pf *config.File, reg *steps.Registry, log *logging.Logger) (RunStats, error) {
	started := time.Now()
	stats := RunStats{RunID: uuid.NewString()}

	if err := log.OpenTemp(stats.RunID); err != nil {
		log.Warn("Diagnostic log unavailable: %v", err)
	}
	outReady := false
	defer func() {
		finishLog(log, cfg.OutputDir, outReady)
	}()
	log.Debug("run %s started", stats.RunID)

	queue, err := Load(pf, reg)
	if err != nil {
		return stats, err
	}
	fingerprint := queue.Fingerprint()
	logQueue(log, queue)

	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		return stats, fmt.Errorf("create output directory: %w", err)
	}
	outReady = true

	previous, err := hasPreviousReport(cfg.OutputDir)
	if err != nil {
		return stats, fmt.Errorf("inspect output directory: %w", err)
	}
	switch {
	case previous && cfg.Force:
		log.Warn("Previous run detected....overwriting (--force set)")
	case previous:
		log.Info("Previous run detected....skipping completed (--force not set)")
		stats.AppendMode = true
	}

	files, err := Discover(cfg.InputPattern)
	if err != nil {
		return stats, err
	}
	files, dropped := excludeUnder(files, cfg.OutputDir)
	for _, f := range dropped {
		log.Debug("ignoring %s: inside the output directory", f)
	}
	stats.Total = len(files)
	stats.InputBytes = totalSize(files)
	logBatchHeader(cfg, log, &stats)

	agg := NewAggregator(cfg.OutputDir, cfg.BatchSize, stats.AppendMode)
	if err := agg.Open(); err != nil {
		return stats, err
	}
	defer agg.Close()

	sink := NewErrorSink(log)
	resolver := naming.NewCollisionResolver()
	tasks := make([]task, 0, len(files))
	for i, path := range files {
		dir := naming.OutputDir(cfg.OutputDir, path)
		if err := resolver.Claim(dir, path); err != nil {
			sink.Record(path, StageDispatch, err)
			stats.Failed++
			continue
		}
		tasks = append(tasks, task{Index: i, Total: len(files), Path: path, OutDir: dir})
	}

	seed, _ := pf.Section(record.SeedSection)
	p := &pool{
		workers:     cfg.Workers,
		file:        pf,
		reg:         reg,
		fingerprint: fingerprint,
		seed:        seed,
		force:       cfg.Force,
		log:         log,
	}
	results, wait := p.start(ctx, tasks)

	interrupted := false
	for o := range results {
		switch {
		case o.NotStarted:
			if !interrupted {
				log.Warn("Interrupted, waiting for running files to finish")
				interrupted = true
			}
			stats.NotStarted++
		case o.Err != nil:
			sink.Record(o.Path, StageProcess, o.Err)
			stats.Failed++
		case o.Skipped:
			stats.Skipped++
		default:
			stats.Processed++
			if err := agg.Write(o.Record); err != nil {
				sink.Record(o.Path, StageAggregate, err)
				stats.AggregateFailed++
			}
		}
	}
	if err := wait(); err != nil {
		return stats, err
	}

	if err := agg.Close(); err != nil {
		log.Warn("Closing report: %v", err)
	}
	stats.Rows = agg.Rows()
	stats.ReportFiles = agg.Files()
	stats.Batches = len(stats.ReportFiles)
	stats.Elapsed = time.Since(started)

	logSummary(log, &stats, sink)
	failures := sink.Failures()

	finished := time.Now()
	summary := buildSummary(cfg, pf, queue, &stats, failures, started, finished)
	if err := writeSummary(filepath.Join(cfg.OutputDir, SummaryFile), summary); err != nil {
		log.Warn("Run summary not written: %v", err)
	}
	if cfg.HistoryDB != "" {
		if err := saveHistory(ctx, cfg.HistoryDB, summary); err != nil {
			log.Warn("Run history not written: %v", err)
		} else {
			log.Debug("run %s recorded in %s", stats.RunID, cfg.HistoryDB)
		}
	}
	return stats, nil
}

// finishLog moves the diagnostic log into the output root when it exists and
// otherwise leaves it in the temp dir and says where.
func finishLog(log *logging.Logger, outRoot string, outReady bool) {
	src := log.FilePath()
	if src == "" {
		return
	}
	if !outReady {
		log.Warn("Diagnostic log kept at %s", src)
		log.Close()
		return
	}
	dst := filepath.Join(outRoot, ErrorLogFile)
	if err := log.Relocate(dst); err != nil {
		log.Warn("Diagnostic log kept at %s: %v", src, err)
	}
}

func buildSummary(cfg *config.Config, pf *config.File, queue Queue, stats *RunStats, failures []Failure, started, finished time.Time) RunSummary {
	s := RunSummary{
		RunID:      stats.RunID,
		StartedAt:  started.UTC(),
		FinishedAt: finished.UTC(),
		Elapsed:    display.FormatDuration(stats.Elapsed),
		Input:      cfg.InputPattern,
		Output:     cfg.OutputDir,
		Config:     pf.Path(),
		Force:      cfg.Force,
		AppendMode: stats.AppendMode,
		BatchSize:  cfg.BatchSize,
		Workers:    cfg.Workers,
		Steps:      queue.Refs(),
		Counts: SummaryCounts{
			Total:           stats.Total,
			Processed:       stats.Processed,
			Skipped:         stats.Skipped,
			Failed:          stats.Failed,
			AggregateFailed: stats.AggregateFailed,
			NotStarted:      stats.NotStarted,
			Rows:            stats.Rows,
		},
		Reports: stats.ReportFiles,
	}
	for _, f := range failures {
		s.Failures = append(s.Failures, SummaryFailure{File: f.File, Stage: f.Stage, Error: f.Err.Error()})
	}
	return s
}

func saveHistory(ctx context.Context, path string, s RunSummary) error {
	store, err := history.Open(path)
	if err != nil {
		return err
	}
	defer store.Close()

	run := history.Run{
		ID:              s.RunID,
		InputPattern:    s.Input,
		OutputDir:       s.Output,
		ConfigPath:      s.Config,
		Steps:           s.Steps,
		Force:           s.Force,
		AppendMode:      s.AppendMode,
		BatchSize:       s.BatchSize,
		Workers:         s.Workers,
		Total:           s.Counts.Total,
		Processed:       s.Counts.Processed,
		Skipped:         s.Counts.Skipped,
		Failed:          s.Counts.Failed,
		AggregateFailed: s.Counts.AggregateFailed,
		NotStarted:      s.Counts.NotStarted,
		Rows:            s.Counts.Rows,
		StartedAt:       s.StartedAt,
		FinishedAt:      s.FinishedAt,
	}
	failures := make([]history.Failure, len(s.Failures))
	for i, f := range s.Failures {
		failures[i] = history.Failure{File: f.File, Stage: string(f.Stage), Message: f.Error}
	}
	// An interrupted run still gets its ledger entry.
	return store.SaveRun(context.WithoutCancel(ctx), run, failures)
}

// --- Logging helpers ---

func logBatchHeader(cfg *config.Config, log *logging.Logger, stats *RunStats) {
	log.Info("Found %s (%s)", display.Plural(stats.Total, "file"), display.FormatBytes(stats.InputBytes))
	log.Info("Workers: %d", cfg.Workers)
	if cfg.Unbounded() {
		log.Info("Report: single file")
	} else {
		log.Info("Report: %d rows per file", cfg.BatchSize)
	}
	if stats.AppendMode {
		log.Info("Mode: append to existing report")
	}
	if cfg.Force {
		log.Info("Force: existing per-file output is regenerated")
	}
	log.Debug("output root %s", cfg.OutputDir)
}

func logSummary(log *logging.Logger, stats *RunStats, sink *ErrorSink) {
	log.Info("==============================")
	log.Info("Done: %d processed, %d skipped, %d failed", stats.Processed, stats.Skipped, stats.Failed+stats.AggregateFailed)
	if stats.NotStarted > 0 {
		log.Warn("  Not started (interrupted): %d", stats.NotStarted)
	}
	log.Info("  Report rows written: %d in %s", stats.Rows, display.Plural(stats.Batches, "file"))
	log.Info("  Elapsed: %s", display.FormatDuration(stats.Elapsed))

	if sink.Len() == 0 {
		if stats.Clean() {
			log.Success("All files completed")
		}
		return
	}
	log.Error("These files failed (%d):", sink.Len())
	for _, f := range sink.Failures() {
		log.Error("\t%s\t%s\t%v", f.File, f.Stage, f.Err)
	}
}
