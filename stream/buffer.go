package stream

import (
	"sync"
	"time"
)

// Config holds the flush thresholds of a Buffer.
// A zero value disables the corresponding threshold.
type Config struct {
	// MaxBytes triggers a flush once the pending lines hold at least this many bytes.
	MaxBytes int

	// MaxLines triggers a flush once this many lines are pending.
	MaxLines int

	// FlushInterval triggers a flush when a line is added this long after the last flush.
	FlushInterval time.Duration
}

// DefaultConfig returns the thresholds used when none are configured.
func DefaultConfig() Config {
	return Config{
		MaxBytes:      1 << 20,
		MaxLines:      500,
		FlushInterval: 5 * time.Second,
	}
}

// Stats is a snapshot of a Buffer's counters.
type Stats struct {
	ID           string
	PendingLines int
	PendingBytes int
	TotalLines   int64
	TotalBytes   int64
	Flushes      int64
	Closed       bool
}

// Buffer accumulates ordered lines for one logical stream.
// It never flushes itself; AddLine reports when a threshold has been crossed
// and the owner is expected to call Flush.
type Buffer struct {
	id     string
	config Config
	now    func() time.Time

	mu         sync.Mutex
	lines      []string
	size       int
	lastFlush  time.Time
	totalLines int64
	totalBytes int64
	flushes    int64
	closed     bool

	ready chan struct{}
}

// NewBuffer creates an empty buffer for the given stream.
func NewBuffer(id string, config Config) *Buffer {
	return newBuffer(id, config, time.Now)
}

func newBuffer(id string, config Config, now func() time.Time) *Buffer {
	return &Buffer{
		id:        id,
		config:    config,
		now:       now,
		lastFlush: now(),
		ready:     make(chan struct{}, 1),
	}
}

// ID returns the stream ID the buffer belongs to.
func (b *Buffer) ID() string {
	return b.id
}

// AddLine appends a line and reports whether any flush threshold has been crossed.
// The elapsed-time threshold is only evaluated here, lazily.
func (b *Buffer) AddLine(line string) (needsFlush bool, err error) {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return false, ErrBufferClosed
	}

	b.lines = append(b.lines, line)
	b.size += len(line)
	b.totalLines++
	b.totalBytes += int64(len(line))
	needsFlush = b.thresholdCrossed()
	b.mu.Unlock()

	if needsFlush {
		b.signal()
	}
	return needsFlush, nil
}

// thresholdCrossed must be called with b.mu held.
func (b *Buffer) thresholdCrossed() bool {
	if b.config.MaxLines > 0 && len(b.lines) >= b.config.MaxLines {
		return true
	}
	if b.config.MaxBytes > 0 && b.size >= b.config.MaxBytes {
		return true
	}
	if b.config.FlushInterval > 0 && b.now().Sub(b.lastFlush) >= b.config.FlushInterval {
		return true
	}
	return false
}

// Flush empties the buffer and returns every pending line in insertion order.
// Flushing an empty buffer returns an empty slice and still counts as a flush.
func (b *Buffer) Flush() []string {
	b.mu.Lock()
	defer b.mu.Unlock()

	lines := b.lines
	if lines == nil {
		lines = []string{}
	}
	b.lines = nil
	b.size = 0
	b.flushes++
	b.lastFlush = b.now()
	return lines
}

// Close marks the stream as finished. Lines already buffered remain
// available to Flush; further AddLine calls fail with ErrBufferClosed.
func (b *Buffer) Close() {
	b.mu.Lock()
	already := b.closed
	b.closed = true
	b.mu.Unlock()

	if !already {
		b.signal()
	}
}

// Closed reports whether Close has been called.
func (b *Buffer) Closed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}

// Len returns the number of pending lines.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.lines)
}

// Ready returns a channel that receives a value after AddLine crosses a
// threshold or the buffer is closed. Signals coalesce.
func (b *Buffer) Ready() <-chan struct{} {
	return b.ready
}

// FlushInterval returns the configured time threshold.
func (b *Buffer) FlushInterval() time.Duration {
	return b.config.FlushInterval
}

// Stats returns a snapshot of the buffer's counters.
func (b *Buffer) Stats() Stats {
	b.mu.Lock()
	defer b.mu.Unlock()
	return Stats{
		ID:           b.id,
		PendingLines: len(b.lines),
		PendingBytes: b.size,
		TotalLines:   b.totalLines,
		TotalBytes:   b.totalBytes,
		Flushes:      b.flushes,
		Closed:       b.closed,
	}
}

func (b *Buffer) signal() {
	select {
	case b.ready <- struct{}{}:
	default:
	}
}
