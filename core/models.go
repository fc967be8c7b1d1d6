package core

import (
	"encoding/binary"
	"strconv"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// ID is a unique identifier for classified units.
// It is generated using content-based hashing.
type ID uint64

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
// This ensures that identical content produces identical IDs.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// UnitID derives the ID of one unit of text within a job.
// The same line at a different position, or in a different job, gets a different ID.
func UnitID(jobID string, index int, text string) ID {
	return IDFromContent(jobID + "\x00" + strconv.Itoa(index) + "\x00" + text)
}

// Source identifies how a job's text entered the system.
type Source string

const (
	SourceDirectAPI  Source = "direct-api"
	SourceFileUpload Source = "file-upload"
	SourceBatchFile  Source = "batch-file"
	SourceStream     Source = "stream"
	SourceWebhook    Source = "webhook"
)

// Sources lists every valid Source.
var Sources = []Source{SourceDirectAPI, SourceFileUpload, SourceBatchFile, SourceStream, SourceWebhook}

func (s Source) String() string {
	return string(s)
}

// Priority determines which queue a job waits in. Lower values are dispatched first.
type Priority int

const (
	PriorityCritical Priority = iota
	PriorityHigh
	PriorityNormal
	PriorityLow
	PriorityBatch
)

// NumPriorities is the number of priority levels, and therefore queues.
const NumPriorities = int(PriorityBatch) + 1

// Priorities lists every priority from highest to lowest.
var Priorities = []Priority{PriorityCritical, PriorityHigh, PriorityNormal, PriorityLow, PriorityBatch}

func (p Priority) String() string {
	switch p {
	case PriorityCritical:
		return "critical"
	case PriorityHigh:
		return "high"
	case PriorityNormal:
		return "normal"
	case PriorityLow:
		return "low"
	case PriorityBatch:
		return "batch"
	default:
		return "unknown"
	}
}

// ParsePriority converts a priority name into a Priority.
func ParsePriority(name string) (Priority, error) {
	for _, p := range Priorities {
		if p.String() == name {
			return p, nil
		}
	}
	return 0, ErrInvalidPriority
}

// Status is the lifecycle state of a job.
type Status string

const (
	StatusQueued     Status = "queued"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusCancelled  Status = "cancelled"
)

// IsTerminal reports whether no further transitions can occur from s.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

// CanTransition reports whether a job may move from s to next.
// Transitions only move forward, and cancellation is only possible while queued.
func (s Status) CanTransition(next Status) bool {
	switch s {
	case StatusQueued:
		return next == StatusProcessing || next == StatusCancelled
	case StatusProcessing:
		return next == StatusCompleted || next == StatusFailed
	default:
		return false
	}
}

// UnitResult is the classifier output for one unit of a job.
type UnitResult struct {
	Id           ID
	JobID        string
	Index        int
	Source       Source
	Text         string            // Cleaned text returned by the classifier
	Summary      string
	Tags         []string
	Metadata     map[string]string // Classifier-provided metadata
	ClassifiedAt time.Time
}
