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


package core

import (
	"maps"
	"slices"
	"time"
)

// Payload carries the input of a job. Exactly one of Raw, Text or FilePath is set.
type Payload struct {
	Raw      []byte
	Text     string
	FilePath string

	// Temporary marks FilePath as owned by the engine. The file is removed
	// when the job is evicted.
	Temporary bool
}

// PayloadKind names the populated variant of a Payload.
type PayloadKind int

const (
	PayloadNone PayloadKind = iota
	PayloadRaw
	PayloadText
	PayloadFile
)

// Kind returns the populated variant, or PayloadNone when zero or several are set.
func (p Payload) Kind() PayloadKind {
	if p.variants() != 1 {
		return PayloadNone
	}
	switch {
	case len(p.Raw) > 0:
		return PayloadRaw
	case p.Text != "":
		return PayloadText
	default:
		return PayloadFile
	}
}

// variants returns how many payload variants are populated.
func (p Payload) variants() int {
	n := 0
	if len(p.Raw) > 0 {
		n++
	}
	if p.Text != "" {
		n++
	}
	if p.FilePath != "" {
		n++
	}
	return n
}

// ProgressEntry is one line of a job's progress log.
type ProgressEntry struct {
	Time    time.Time
	Percent float64
	Message string
}

// Job is a point-in-time copy of one unit of ingestion work.
// Values returned by the engine are snapshots and never change after they are returned.
type Job struct {
	ID       string
	Source   Source
	Priority Priority
	Status   Status
	Payload  Payload
	StreamID string            // Set only for stream jobs; the stream buffer is their payload
	Metadata map[string]string // Caller-supplied context, never read by the engine

	ProgressPercent float64
	ProgressLog     []ProgressEntry

	BytesProcessed int64
	LinesProcessed int64

	CreatedAt   time.Time
	StartedAt   time.Time // Zero until dispatched
	CompletedAt time.Time // Zero until terminal

	ProcessedIDs  []ID
	FailedIDs     []ID
	ErrorMessages []string
	Error         string // Reason for a failed job
}

// Clone returns a deep copy of the job.
func (j *Job) Clone() Job {
	c := *j
	c.Payload.Raw = slices.Clone(j.Payload.Raw)
	c.Metadata = maps.Clone(j.Metadata)
	c.ProgressLog = slices.Clone(j.ProgressLog)
	c.ProcessedIDs = slices.Clone(j.ProcessedIDs)
	c.FailedIDs = slices.Clone(j.FailedIDs)
	c.ErrorMessages = slices.Clone(j.ErrorMessages)
	return c
}

// IsTerminal reports whether the job has finished.
func (j *Job) IsTerminal() bool {
	return j.Status.IsTerminal()
}
