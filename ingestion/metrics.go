package ingestion

import (
	"context"
	"runtime"
	"time"

	"github.com/poiesic/logsift/core"
)

const bytesPerMB = 1 << 20

// MetricsSnapshot is one sample taken by the metrics collector.
type MetricsSnapshot struct {
	SampledAt      time.Time
	ActiveWorkers  int
	QueueDepths    map[core.Priority]int
	MemoryMB       float64
	BytesProcessed int64
	LinesProcessed int64
	LinesPerSecond float64
}

// SystemStats combines live registry counts with the latest metrics sample.
type SystemStats struct {
	TotalJobs      int
	QueuedJobs     int
	ActiveJobs     int
	CompletedJobs  int
	FailedJobs     int
	CancelledJobs  int
	ActiveWorkers  int
	MaxConcurrent  int
	QueueDepths    map[core.Priority]int
	OpenStreams    int
	BytesProcessed int64
	LinesProcessed int64

	// Metrics is the latest collector sample, nil before the first one.
	Metrics *MetricsSnapshot
}

// GetSystemStats returns current engine statistics.
func (e *Engine) GetSystemStats() SystemStats {
	stats := SystemStats{
		ActiveWorkers:  int(e.inflight.Load()),
		MaxConcurrent:  e.maxConcurrent,
		QueueDepths:    e.queueDepths(),
		BytesProcessed: e.bytesProcessed.Load(),
		LinesProcessed: e.linesProcessed.Load(),
		Metrics:        e.metrics.Load(),
	}

	e.jobs.Range(func(_, value any) bool {
		stats.TotalJobs++
		switch value.(*jobState).status() {
		case core.StatusQueued:
			stats.QueuedJobs++
		case core.StatusProcessing:
			stats.ActiveJobs++
		case core.StatusCompleted:
			stats.CompletedJobs++
		case core.StatusFailed:
			stats.FailedJobs++
		case core.StatusCancelled:
			stats.CancelledJobs++
		}
		return true
	})
	e.streams.Range(func(_, value any) bool {
		if !value.(*streamEntry).buffer.Closed() {
			stats.OpenStreams++
		}
		return true
	})
	return stats
}

func (e *Engine) queueDepths() map[core.Priority]int {
	depths := e.queues.depths()
	out := make(map[core.Priority]int, len(depths))
	for p, n := range depths {
		out[core.Priority(p)] = n
	}
	return out
}

// metricsLoop samples engine metrics until ctx is done.
func (e *Engine) metricsLoop(ctx context.Context) error {
	ticker := time.NewTicker(e.metricsInterval)
	defer ticker.Stop()

	var prev *MetricsSnapshot
	for {
		prev = e.collectMetrics(prev)

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// collectMetrics takes one sample. A panic is logged and the previous
// sample kept, so one bad pass never stops the loop.
func (e *Engine) collectMetrics(prev *MetricsSnapshot) (next *MetricsSnapshot) {
	next = prev
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("metrics sample failed", "panic", r)
		}
	}()

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	sample := &MetricsSnapshot{
		SampledAt:      e.now(),
		ActiveWorkers:  int(e.inflight.Load()),
		QueueDepths:    e.queueDepths(),
		MemoryMB:       float64(mem.Sys) / bytesPerMB,
		BytesProcessed: e.bytesProcessed.Load(),
		LinesProcessed: e.linesProcessed.Load(),
	}
	if prev != nil {
		if elapsed := sample.SampledAt.Sub(prev.SampledAt).Seconds(); elapsed > 0 {
			sample.LinesPerSecond = float64(sample.LinesProcessed-prev.LinesProcessed) / elapsed
		}
	}
	e.metrics.Store(sample)

	if e.maxMemoryMB > 0 && sample.MemoryMB > float64(e.maxMemoryMB) {
		e.logger.Warn("memory above configured limit",
			"memoryMB", int(sample.MemoryMB),
			"maxMemoryMB", e.maxMemoryMB)
	}
	e.logger.Debug("metrics sampled",
		"activeWorkers", sample.ActiveWorkers,
		"linesPerSecond", sample.LinesPerSecond)
	return sample
}
