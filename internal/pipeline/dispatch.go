package pipeline

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/backmassage/qcrunner/internal/config"
	"github.com/backmassage/qcrunner/internal/logging"
	"github.com/backmassage/qcrunner/internal/steps"
)

// errQueueMismatch means a worker loaded a different pipeline than the
// coordinator.
var errQueueMismatch = errors.New("worker pipeline differs from coordinator pipeline")

// pool runs the workers. Every worker loads its own queue from file and reg.
type pool struct {
	workers     int
	file        *config.File
	reg         *steps.Registry
	fingerprint string
	seed        map[string]string
	force       bool
	log         *logging.Logger
}

// start submits every task and launches the workers. The returned channel
// yields one outcome per task the workers saw and is closed once all workers
// have exited; wait then reports the first fatal worker error.
func (p *pool) start(ctx context.Context, tasks []task) (results <-chan outcome, wait func() error) {
	queued := make(chan task, len(tasks))
	for _, t := range tasks {
		queued <- t
	}
	close(queued)

	done := make(chan outcome, len(tasks))
	n := p.workers
	if n < 1 {
		n = 1
	}

	var g errgroup.Group
	for id := 1; id <= n; id++ {
		id := id
		g.Go(func() error {
			w, err := p.newWorker(id)
			if err != nil {
				return err
			}
			for t := range queued {
				if ctx.Err() != nil {
					done <- outcome{task: t, NotStarted: true}
					continue
				}
				done <- w.process(ctx, t)
			}
			return nil
		})
	}

	var groupErr error
	finished := make(chan struct{})
	go func() {
		groupErr = g.Wait()
		close(done)
		close(finished)
	}()

	return done, func() error {
		<-finished
		return groupErr
	}
}

func (p *pool) newWorker(id int) (*worker, error) {
	queue, err := Load(p.file, p.reg)
	if err != nil {
		return nil, fmt.Errorf("worker %d: %w", id, err)
	}
	if fp := queue.Fingerprint(); fp != p.fingerprint {
		return nil, fmt.Errorf("worker %d: %w", id, errQueueMismatch)
	}
	p.log.Debug("worker %d: loaded %d steps", id, len(queue))
	return &worker{id: id, queue: queue, seed: p.seed, force: p.force, log: p.log}, nil
}
