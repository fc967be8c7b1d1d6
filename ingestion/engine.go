// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package ingestion

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"runtime"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/logsift/classify"
	"github.com/poiesic/logsift/core"
	"github.com/poiesic/logsift/stream"
	"golang.org/x/sync/errgroup"
)

// Engine schedules ingestion jobs by priority onto a bounded worker pool.
//
// An Engine accepts submissions as soon as it is created; nothing is
// dispatched until Start is called. Shutdown stops the background loops,
// waits for in-flight jobs and releases the pool. An Engine cannot be
// restarted.
type Engine struct {
	classifier classify.Classifier
	sink       ResultSink
	logger     *slog.Logger
	now        func() time.Time

	maxConcurrent       int
	streamConfig        stream.Config
	batchChunkSize      int
	batchFlushLines     int
	idleInterval        time.Duration
	metricsInterval     time.Duration
	cleanupInterval     time.Duration
	retention           time.Duration
	maxMemoryMB         int
	starvationThreshold int
	retryAttempts       int
	retryDelay          time.Duration

	jobs    sync.Map // job ID -> *jobState
	streams sync.Map // stream ID -> *streamEntry
	seq     atomic.Uint64
	queues  *priorityQueues
	pool    *ants.Pool
	wake    chan struct{}

	inflight       atomic.Int64
	bytesProcessed atomic.Int64
	linesProcessed atomic.Int64
	metrics        atomic.Pointer[MetricsSnapshot]

	lifecycle     sync.Mutex
	started       bool
	closed        atomic.Bool
	loops         *errgroup.Group
	stopLoops     context.CancelFunc
	workerCtx     context.Context
	stopWorkers   context.CancelFunc
	workers       sync.WaitGroup
	shutdownOnce  sync.Once
	shutdownError error
}

// interruptGrace is how long Shutdown waits for workers after cancelling
// them before it gives up on them.
const interruptGrace = 100 * time.Millisecond

// streamEntry ties a stream ID to its buffer and the job draining it.
type streamEntry struct {
	jobID  string
	buffer *stream.Buffer
}

// NewEngine creates an engine that classifies lines with classifier.
func NewEngine(classifier classify.Classifier, opts ...Option) (*Engine, error) {
	if classifier == nil {
		return nil, ErrClassifierRequired
	}

	maxConcurrent := runtime.NumCPU() / 2
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}

	e := &Engine{
		classifier:          classifier,
		logger:              slog.Default(),
		now:                 time.Now,
		maxConcurrent:       maxConcurrent,
		streamConfig:        stream.DefaultConfig(),
		batchChunkSize:      64 * 1024,
		batchFlushLines:     100,
		idleInterval:        50 * time.Millisecond,
		metricsInterval:     5 * time.Second,
		cleanupInterval:     time.Minute,
		retention:           time.Hour,
		maxMemoryMB:         1024,
		starvationThreshold: 32,
		retryAttempts:       1,
		retryDelay:          100 * time.Millisecond,
		wake:                make(chan struct{}, 1),
	}

	for _, opt := range opts {
		if err := opt(e); err != nil {
			return nil, err
		}
	}
	e.logger = e.logger.With("component", "ingestion-engine")
	e.queues = newPriorityQueues(e.starvationThreshold)
	e.workerCtx, e.stopWorkers = context.WithCancel(context.Background())

	pool, err := ants.NewPool(e.maxConcurrent,
		ants.WithLogger(poolLogger{e.logger}),
		ants.WithPanicHandler(func(p any) {
			e.logger.Error("worker pool recovered a panic", "panic", p)
		}),
	)
	if err != nil {
		e.stopWorkers()
		return nil, err
	}
	e.pool = pool
	return e, nil
}

// poolLogger routes ants' printf-style logging into slog.
type poolLogger struct {
	logger *slog.Logger
}

func (l poolLogger) Printf(format string, args ...any) {
	l.logger.Warn(fmt.Sprintf(format, args...), "source", "ants")
}

// Start launches the dispatcher, the metrics collector and the cleanup
// sweeper. They run until ctx is done or Shutdown is called.
func (e *Engine) Start(ctx context.Context) error {
	e.lifecycle.Lock()
	defer e.lifecycle.Unlock()

	if e.closed.Load() {
		return ErrEngineClosed
	}
	if e.started {
		return ErrEngineStarted
	}
	e.started = true

	loopCtx, cancel := context.WithCancel(ctx)
	g, gctx := errgroup.WithContext(loopCtx)
	g.Go(func() error { return e.dispatchLoop(gctx) })
	g.Go(func() error { return e.metricsLoop(gctx) })
	g.Go(func() error { return e.cleanupLoop(gctx) })
	e.loops = g
	e.stopLoops = cancel

	e.logger.Info("engine started",
		"maxConcurrent", e.maxConcurrent,
		"starvationThreshold", e.starvationThreshold)
	return nil
}

// Shutdown stops accepting work and joins the background loops. It then waits
// for in-flight jobs to finish; if ctx expires first, running jobs are
// interrupted and marked failed. A worker that still has not returned after
// a short grace period is abandoned, its job is failed, and the returned
// error wraps ErrInterrupted and ctx.Err(). Open streams are closed so their
// jobs can drain. Jobs still queued stay queued. Calling Shutdown again
// returns the first result.
func (e *Engine) Shutdown(ctx context.Context) error {
	e.shutdownOnce.Do(func() {
		e.shutdownError = e.shutdown(ctx)
	})
	return e.shutdownError
}

func (e *Engine) shutdown(ctx context.Context) error {
	e.lifecycle.Lock()
	e.closed.Store(true)
	loops, stopLoops := e.loops, e.stopLoops
	e.lifecycle.Unlock()

	var loopErr error
	if stopLoops != nil {
		stopLoops()
		loopErr = loops.Wait()
	}

	e.streams.Range(func(_, value any) bool {
		value.(*streamEntry).buffer.Close()
		return true
	})

	done := make(chan struct{})
	go func() {
		e.workers.Wait()
		close(done)
	}()
	var interruptErr error
	select {
	case <-done:
	case <-ctx.Done():
		e.logger.Warn("shutdown deadline reached, interrupting workers", "active", e.inflight.Load())
		e.stopWorkers()
		select {
		case <-done:
		case <-time.After(interruptGrace):
			// Workers stuck in a classifier that ignores cancellation are abandoned.
			n := e.interruptRunning(ctx.Err())
			e.logger.Warn("abandoned unresponsive workers", "jobs", n)
			interruptErr = fmt.Errorf("%w: %w", ErrInterrupted, ctx.Err())
		}
	}
	e.stopWorkers()
	e.pool.Release()

	e.logger.Info("engine stopped")
	return errors.Join(loopErr, interruptErr)
}

// interruptRunning fails every processing job with ErrInterrupted and
// returns how many were failed.
func (e *Engine) interruptRunning(cause error) int {
	reason := fmt.Errorf("%w: %w", ErrInterrupted, cause).Error()
	n := 0
	e.jobs.Range(func(_, value any) bool {
		state := value.(*jobState)
		if state.status() == core.StatusProcessing {
			state.fail(reason, e.now())
			n++
		}
		return true
	})
	return n
}

// Submit validates and queues a job. It never blocks on processing.
func (e *Engine) Submit(source core.Source, priority core.Priority, payload core.Payload, metadata map[string]string) (string, error) {
	if e.closed.Load() {
		return "", ErrEngineClosed
	}
	if err := core.ValidateSubmission(source, priority, payload); err != nil {
		return "", err
	}

	payload.Raw = slices.Clone(payload.Raw)
	id := e.enqueue(core.Job{
		Source:   source,
		Priority: priority,
		Payload:  payload,
		Metadata: maps.Clone(metadata),
	})
	e.logger.Debug("job submitted", "job", id, "source", source, "priority", priority)
	return id, nil
}

func (e *Engine) enqueue(job core.Job) string {
	job.ID = uuid.NewString()
	job.Status = core.StatusQueued
	job.CreatedAt = e.now()
	if job.Metadata == nil {
		job.Metadata = map[string]string{}
	}

	state := &jobState{seq: e.seq.Add(1), job: job}
	e.jobs.Store(job.ID, state)
	e.queues.push(job.Priority, job.ID)
	e.signal()
	return job.ID
}

// GetJobStatus returns a snapshot of the job.
func (e *Engine) GetJobStatus(id string) (core.Job, error) {
	state, ok := e.lookup(id)
	if !ok {
		return core.Job{}, fmt.Errorf("%w: %s", core.ErrJobNotFound, id)
	}
	return state.snapshot(), nil
}

// ListJobs returns snapshots of every job in the registry in submission order.
func (e *Engine) ListJobs() []core.Job {
	var states []*jobState
	e.jobs.Range(func(_, value any) bool {
		states = append(states, value.(*jobState))
		return true
	})
	slices.SortFunc(states, func(a, b *jobState) int {
		return cmp.Compare(a.seq, b.seq)
	})

	jobs := make([]core.Job, len(states))
	for i, state := range states {
		jobs[i] = state.snapshot()
	}
	return jobs
}

// Cancel cancels a queued job. It returns false when the job is unknown or
// already dispatched.
func (e *Engine) Cancel(id string) bool {
	state, ok := e.lookup(id)
	if !ok {
		return false
	}
	if !state.transition(core.StatusCancelled, e.now()) {
		return false
	}

	job := state.snapshot()
	e.queues.remove(job.Priority, id)
	if job.StreamID != "" {
		if entry, ok := e.stream(job.StreamID); ok && entry.jobID == id {
			entry.buffer.Close()
		}
	}
	e.logger.Debug("job cancelled", "job", id)
	return true
}

// OpenStream registers a stream buffer and queues the job that drains it.
func (e *Engine) OpenStream(streamID string, priority core.Priority, metadata map[string]string) (string, error) {
	if e.closed.Load() {
		return "", ErrEngineClosed
	}
	if err := core.ValidateStream(streamID, priority); err != nil {
		return "", err
	}

	id := uuid.NewString()
	entry := &streamEntry{jobID: id, buffer: stream.NewBuffer(streamID, e.streamConfig)}
	if !e.registerStream(streamID, entry) {
		return "", fmt.Errorf("%w: %s", ErrStreamExists, streamID)
	}

	state := &jobState{seq: e.seq.Add(1), job: core.Job{
		ID:        id,
		Source:    core.SourceStream,
		Priority:  priority,
		Status:    core.StatusQueued,
		StreamID:  streamID,
		Metadata:  maps.Clone(metadata),
		CreatedAt: e.now(),
	}}
	if state.job.Metadata == nil {
		state.job.Metadata = map[string]string{}
	}
	e.jobs.Store(id, state)
	e.queues.push(priority, id)
	e.signal()

	e.logger.Debug("stream opened", "stream", streamID, "job", id)
	return id, nil
}

// registerStream stores entry under streamID. An existing entry is only
// replaced once its job has finished, so a stream ID can be reused as soon
// as the previous stream drained.
func (e *Engine) registerStream(streamID string, entry *streamEntry) bool {
	for {
		existing, loaded := e.streams.LoadOrStore(streamID, entry)
		if !loaded {
			return true
		}
		prev := existing.(*streamEntry)
		// A missing job means the previous entry is still being opened or
		// is being swept; either way the ID is not free yet.
		state, ok := e.lookup(prev.jobID)
		if !ok || !state.status().IsTerminal() {
			return false
		}
		if e.streams.CompareAndSwap(streamID, prev, entry) {
			return true
		}
	}
}

// AppendStream adds lines to an open stream and reports whether a flush
// threshold was crossed. Only a crossed threshold wakes the stream's job;
// lines below every threshold wait for the job's flush interval or for
// CloseStream.
func (e *Engine) AppendStream(streamID string, lines ...string) (bool, error) {
	entry, ok := e.stream(streamID)
	if !ok {
		return false, fmt.Errorf("%w: %s", ErrStreamNotFound, streamID)
	}

	needsFlush := false
	for _, line := range lines {
		crossed, err := entry.buffer.AddLine(line)
		if err != nil {
			return needsFlush, err
		}
		needsFlush = needsFlush || crossed
	}
	return needsFlush, nil
}

// CloseStream marks a stream finished. Its job drains what is buffered and completes.
func (e *Engine) CloseStream(streamID string) error {
	entry, ok := e.stream(streamID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrStreamNotFound, streamID)
	}
	entry.buffer.Close()
	return nil
}

// StreamStats returns the buffer counters of an open stream.
func (e *Engine) StreamStats(streamID string) (stream.Stats, error) {
	entry, ok := e.stream(streamID)
	if !ok {
		return stream.Stats{}, fmt.Errorf("%w: %s", ErrStreamNotFound, streamID)
	}
	return entry.buffer.Stats(), nil
}

func (e *Engine) lookup(id string) (*jobState, bool) {
	value, ok := e.jobs.Load(id)
	if !ok {
		return nil, false
	}
	return value.(*jobState), true
}

func (e *Engine) stream(streamID string) (*streamEntry, bool) {
	value, ok := e.streams.Load(streamID)
	if !ok {
		return nil, false
	}
	return value.(*streamEntry), true
}

// signal wakes the dispatcher without blocking.
func (e *Engine) signal() {
	select {
	case e.wake <- struct{}{}:
	default:
	}
}
