package pipeline

import (
	"context"
	"fmt"
	"maps"
	"os"

	"github.com/backmassage/qcrunner/internal/logging"
	"github.com/backmassage/qcrunner/internal/record"
)

// task is one file handed to the pool.
type task struct {
	Index  int
	Total  int
	Path   string
	OutDir string
}

// outcome travels from a worker back to the coordinator. Exactly one of
// these holds: Err is set, Record is set, Skipped is set, or NotStarted is set.
type outcome struct {
	task
	Record     *record.Record
	Err        error
	Skipped    bool
	NotStarted bool
}

// worker runs its own copy of the queue over the tasks it receives.
type worker struct {
	id    int
	queue Queue
	seed  map[string]string
	force bool
	log   *logging.Logger
}

func (w *worker) process(ctx context.Context, t task) outcome {
	out := outcome{task: t}

	decision, err := Gate(t.OutDir, w.force)
	if err != nil {
		out.Err = &ProcessError{File: t.Path, Step: "gate", Err: err}
		return out
	}
	switch decision {
	case Skip:
		w.log.Warn("%s already seems to be processed (output directory exists), skipping. To avoid this behavior use --force", t.Path)
		out.Skipped = true
		return out
	case Overwrite:
		w.log.Debug("worker %d: removed previous output %s", w.id, t.OutDir)
	}

	if err := os.MkdirAll(t.OutDir, 0o755); err != nil {
		out.Err = &ProcessError{File: t.Path, Step: "mkdir", Err: err}
		return out
	}

	w.log.Info("-----Working on:\t%s\t\t%d of %d", t.Path, t.Index+1, t.Total)
	rec := record.New(t.Path, t.OutDir, w.seed)
	err = w.runSteps(ctx, rec)
	if rec.HasHandle() {
		w.log.Debug("worker %d: closing shared input handle for %s", w.id, t.Path)
	}
	if serr := rec.Sanitize(); serr != nil {
		w.log.Debug("worker %d: release %s: %v", w.id, t.Path, serr)
	}
	if err != nil {
		out.Err = err
		return out
	}
	out.Record = rec
	return out
}

func (w *worker) runSteps(ctx context.Context, rec *record.Record) error {
	for _, s := range w.queue {
		if err := runStep(ctx, s, rec); err != nil {
			return &ProcessError{File: rec.Path(), Step: s.Ref, Err: err}
		}
		rec.MarkCompleted(s.Function)
		w.log.Debug("worker %d: %s done for %s", w.id, s.Ref, rec.Path())
	}
	return nil
}

// runStep calls the step with its own copy of the params and converts a
// panic into an error.
func runStep(ctx context.Context, s Step, rec *record.Record) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return s.Impl.Run(ctx, rec, maps.Clone(s.Params))
}
