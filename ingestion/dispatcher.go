package ingestion

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/poiesic/logsift/core"
)

// handler processes one dispatched job. A nil return completes the job,
// an error fails it.
type handler func(ctx context.Context, state *jobState, job core.Job) error

func (e *Engine) dispatchLoop(ctx context.Context) error {
	ticker := time.NewTicker(e.idleInterval)
	defer ticker.Stop()

	for {
		e.dispatchReady()

		select {
		case <-ctx.Done():
			return nil
		case <-e.wake:
		case <-ticker.C:
		}
	}
}

// dispatchReady starts jobs until the concurrency cap is reached or every
// queue is empty.
func (e *Engine) dispatchReady() {
	for e.inflight.Load() < int64(e.maxConcurrent) {
		id, ok := e.queues.pop()
		if !ok {
			return
		}
		state, ok := e.lookup(id)
		if !ok {
			continue
		}
		// Cancelled jobs fail this transition and are skipped.
		if !state.transition(core.StatusProcessing, e.now()) {
			continue
		}
		e.start(state)
	}
}

func (e *Engine) start(state *jobState) {
	e.inflight.Add(1)
	e.workers.Add(1)

	if err := e.pool.Submit(func() { e.run(state) }); err != nil {
		e.logger.Error("failed to submit job to worker pool", "job", state.job.ID, "err", err)
		state.fail(fmt.Sprintf("worker pool: %v", err), e.now())
		e.finished()
	}
}

func (e *Engine) finished() {
	e.inflight.Add(-1)
	e.workers.Done()
	e.signal()
}

// run executes one job on a pool worker. Panics are contained to the job.
func (e *Engine) run(state *jobState) {
	defer e.finished()

	job := state.snapshot()
	logger := e.logger.With("job", job.ID, "source", job.Source)
	defer func() {
		if r := recover(); r != nil {
			logger.Error("worker panicked", "panic", r)
			state.fail(fmt.Sprintf("panic: %v", r), e.now())
		}
	}()

	logger.Debug("job started", "priority", job.Priority)
	state.progress(0, "started", e.now())

	err := e.handlerFor(job.Source)(e.workerCtx, state, job)
	switch {
	case err == nil:
		state.complete(e.now())
		done := state.snapshot()
		logger.Debug("job completed",
			"lines", done.LinesProcessed,
			"failed", len(done.FailedIDs))
	case errors.Is(err, context.Canceled):
		logger.Warn("job interrupted", "err", err)
		state.fail(fmt.Errorf("%w: %w", ErrInterrupted, err).Error(), e.now())
	default:
		logger.Error("job failed", "err", err)
		state.fail(err.Error(), e.now())
	}
}

func (e *Engine) handlerFor(source core.Source) handler {
	switch source {
	case core.SourceBatchFile:
		return e.processBatch
	case core.SourceStream:
		return e.processStream
	default:
		return e.processStandard
	}
}
