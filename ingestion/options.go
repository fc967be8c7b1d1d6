package ingestion

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/poiesic/logsift/core"
	"github.com/poiesic/logsift/stream"
)

// ResultSink receives every successfully classified unit.
// storage.ResultRepository satisfies it.
type ResultSink interface {
	AddResults(ctx context.Context, results ...*core.UnitResult) error
}

// Option configures an Engine.
type Option func(*Engine) error

// WithMaxConcurrent sets the global cap on in-flight jobs.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithMaxConcurrent(n int) Option {
	return func(e *Engine) error {
		if n < 1 {
			return errors.New("max concurrent must be positive")
		}
		e.maxConcurrent = n
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) error {
		if logger == nil {
			logger = slog.Default()
		}
		e.logger = logger
		return nil
	}
}

// WithResultSink stores classified units in sink.
func WithResultSink(sink ResultSink) Option {
	return func(e *Engine) error {
		e.sink = sink
		return nil
	}
}

// WithStreamConfig sets the flush thresholds of stream buffers.
func WithStreamConfig(config stream.Config) Option {
	return func(e *Engine) error {
		if config.MaxBytes < 0 || config.MaxLines < 0 || config.FlushInterval < 0 {
			return errors.New("stream thresholds must not be negative")
		}
		e.streamConfig = config
		return nil
	}
}

// WithBatchChunkSize sets the read window, in bytes, for batch files.
// Default is 64 KiB.
func WithBatchChunkSize(size int) Option {
	return func(e *Engine) error {
		if size < 1 {
			return errors.New("batch chunk size must be positive")
		}
		e.batchChunkSize = size
		return nil
	}
}

// WithBatchFlushLines sets how many lines a batch job accumulates before
// classifying them. Default is 100.
func WithBatchFlushLines(n int) Option {
	return func(e *Engine) error {
		if n < 1 {
			return errors.New("batch flush lines must be positive")
		}
		e.batchFlushLines = n
		return nil
	}
}

// WithIdleInterval sets how long the dispatcher sleeps when there is no work.
// Default is 50ms.
func WithIdleInterval(d time.Duration) Option {
	return func(e *Engine) error {
		if d <= 0 {
			return errors.New("idle interval must be positive")
		}
		e.idleInterval = d
		return nil
	}
}

// WithMetricsInterval sets the metrics sampling period. Default is 5s.
func WithMetricsInterval(d time.Duration) Option {
	return func(e *Engine) error {
		if d <= 0 {
			return errors.New("metrics interval must be positive")
		}
		e.metricsInterval = d
		return nil
	}
}

// WithCleanupInterval sets the sweeper period. Default is 1m.
func WithCleanupInterval(d time.Duration) Option {
	return func(e *Engine) error {
		if d <= 0 {
			return errors.New("cleanup interval must be positive")
		}
		e.cleanupInterval = d
		return nil
	}
}

// WithRetention sets how long finished jobs stay queryable. Default is 1h.
func WithRetention(d time.Duration) Option {
	return func(e *Engine) error {
		if d < 0 {
			return errors.New("retention must not be negative")
		}
		e.retention = d
		return nil
	}
}

// WithMaxMemoryMB sets the memory level above which the metrics collector
// logs a warning. It is not enforced. Default is 1024.
func WithMaxMemoryMB(mb int) Option {
	return func(e *Engine) error {
		e.maxMemoryMB = mb
		return nil
	}
}

// WithStarvationThreshold sets how many times a waiting lane may be passed
// over before it is served. 0 means strict priority. Default is 32.
func WithStarvationThreshold(n int) Option {
	return func(e *Engine) error {
		if n < 0 {
			return errors.New("starvation threshold must not be negative")
		}
		e.starvationThreshold = n
		return nil
	}
}

// WithClassifyRetry retries a failed classifier call up to attempts times in
// total, doubling baseDelay between tries. Default is a single attempt.
func WithClassifyRetry(attempts int, baseDelay time.Duration) Option {
	return func(e *Engine) error {
		if attempts < 1 {
			return ErrInvalidMaxAttempts
		}
		e.retryAttempts = attempts
		e.retryDelay = baseDelay
		return nil
	}
}
