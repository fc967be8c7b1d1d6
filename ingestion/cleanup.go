package ingestion

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"time"
)

// cleanupLoop evicts expired jobs until ctx is done.
func (e *Engine) cleanupLoop(ctx context.Context) error {
	ticker := time.NewTicker(e.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			e.sweep(e.now())
		}
	}
}

// sweep removes terminal jobs that finished at least retention before now,
// together with their temporary files and stream buffers. It returns the
// number of jobs removed.
func (e *Engine) sweep(now time.Time) (removed int) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("cleanup sweep failed", "panic", r)
		}
	}()

	e.jobs.Range(func(key, value any) bool {
		job := value.(*jobState).snapshot()
		if !job.IsTerminal() || job.CompletedAt.IsZero() || now.Sub(job.CompletedAt) < e.retention {
			return true
		}

		e.jobs.Delete(key)
		removed++

		if job.Payload.Temporary && job.Payload.FilePath != "" {
			if err := os.Remove(job.Payload.FilePath); err != nil && !errors.Is(err, fs.ErrNotExist) {
				e.logger.Warn("failed to remove temporary file", "job", job.ID, "path", job.Payload.FilePath, "err", err)
			}
		}
		if job.StreamID != "" {
			if entry, ok := e.stream(job.StreamID); ok && entry.jobID == job.ID {
				e.streams.CompareAndDelete(job.StreamID, entry)
			}
		}
		return true
	})

	if removed > 0 {
		e.logger.Debug("swept expired jobs", "count", removed)
	}
	return removed
}
