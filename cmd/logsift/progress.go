package main

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// ProgressTracker reports the combined progress of a set of jobs.
type ProgressTracker struct {
	writer         io.Writer
	jobs           int
	done           int
	percent        float64
	lines          int64
	reportInterval float64
	lastReported   float64
	startTime      time.Time
	started        bool
	mu             sync.Mutex
}

// NewProgressTracker creates a tracker for jobs jobs that reports every time
// overall progress advances by reportInterval percentage points.
func NewProgressTracker(writer io.Writer, jobs int, reportInterval float64) *ProgressTracker {
	return &ProgressTracker{
		writer:         writer,
		jobs:           jobs,
		reportInterval: reportInterval,
	}
}

// Start begins tracking progress.
func (p *ProgressTracker) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.startTime = time.Now()
	p.started = true
	p.done = 0
	p.percent = 0
	p.lines = 0
	p.lastReported = 0
}

// Update records the number of finished jobs, the mean progress percentage
// across all jobs and the lines processed so far.
func (p *ProgressTracker) Update(done int, percent float64, lines int64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started {
		return
	}

	p.done = min(done, p.jobs)
	p.percent = min(percent, 100)
	p.lines = lines

	if p.percent-p.lastReported >= p.reportInterval {
		p.report()
		p.lastReported = p.percent
	}
}

// Finish prints the final progress line.
func (p *ProgressTracker) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started {
		return
	}

	p.done = p.jobs
	p.percent = 100
	p.report()
	fmt.Fprintln(p.writer)
}

// Elapsed returns the time elapsed since Start was called.
func (p *ProgressTracker) Elapsed() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started {
		return 0
	}

	return time.Since(p.startTime)
}

// report must be called with lock held.
func (p *ProgressTracker) report() {
	rate := float64(p.lines) / time.Since(p.startTime).Seconds()
	fmt.Fprintf(p.writer, "\rProgress: %d/%d jobs (%.1f%%) - %.1f lines/s",
		p.done, p.jobs, p.percent, rate)
}
