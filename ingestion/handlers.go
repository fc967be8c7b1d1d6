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
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/poiesic/logsift/classify"
	"github.com/poiesic/logsift/core"
)

// unit is one non-blank line and its 0-based position in the job's input.
type unit struct {
	index int
	text  string
}

// progressSteps is how many progress log entries a job writes at most,
// apart from start and finish.
const progressSteps = 10

// processStandard handles direct-api, file-upload and webhook jobs.
// The whole payload is decoded up front; a decode failure fails the job.
func (e *Engine) processStandard(ctx context.Context, state *jobState, job core.Job) error {
	text, err := decodePayload(job.Payload)
	if err != nil {
		return err
	}
	var units []unit
	for index, piece := range strings.SplitAfter(text, "\n") {
		if piece == "" {
			continue
		}
		units = appendUnit(units, index, piece)
		state.addBytes(int64(len(piece)))
		e.bytesProcessed.Add(int64(len(piece)))
	}

	reporter := newProgressReporter(state, e.now)
	for i, u := range units {
		if err := e.classifyUnits(ctx, state, job, []unit{u}); err != nil {
			return err
		}
		reporter.report(float64(i+1) / float64(len(units)) * 100)
	}
	return nil
}

// decodePayload turns any payload variant into text.
func decodePayload(payload core.Payload) (string, error) {
	switch payload.Kind() {
	case core.PayloadText:
		return payload.Text, nil
	case core.PayloadRaw:
		if !utf8.Valid(payload.Raw) {
			return "", core.ErrDecode
		}
		return string(payload.Raw), nil
	case core.PayloadFile:
		data, err := os.ReadFile(payload.FilePath)
		if err != nil {
			return "", fmt.Errorf("%w: %w", core.ErrIO, err)
		}
		if !utf8.Valid(data) {
			return "", core.ErrDecode
		}
		return string(data), nil
	default:
		return "", core.ErrEmptyPayload
	}
}

// processBatch reads a batch file in fixed-size chunks so memory use does
// not depend on the file size. Lines are classified every batchFlushLines.
func (e *Engine) processBatch(ctx context.Context, state *jobState, job core.Job) error {
	f, err := os.Open(job.Payload.FilePath)
	if err != nil {
		return fmt.Errorf("%w: %w", core.ErrIO, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("%w: %w", core.ErrIO, err)
	}
	size := info.Size()

	reporter := newProgressReporter(state, e.now)
	chunk := make([]byte, e.batchChunkSize)
	var partial []byte
	var pending []unit
	var read int64
	index := 0

	flush := func() error {
		if len(pending) == 0 {
			return nil
		}
		if err := e.classifyUnits(ctx, state, job, pending); err != nil {
			return err
		}
		pending = pending[:0]
		if size > 0 {
			reporter.report(float64(read) / float64(size) * 100)
		}
		return nil
	}

	for {
		n, readErr := f.Read(chunk)
		if n > 0 {
			read += int64(n)
			state.addBytes(int64(n))
			e.bytesProcessed.Add(int64(n))

			data := append(partial, chunk[:n]...)
			for {
				i := bytes.IndexByte(data, '\n')
				if i < 0 {
					break
				}
				pending = appendUnit(pending, index, toText(data[:i]))
				index++
				data = data[i+1:]
			}
			partial = bytes.Clone(data)

			if len(pending) >= e.batchFlushLines {
				if err := flush(); err != nil {
					return err
				}
			}
		}
		if errors.Is(readErr, io.EOF) {
			break
		}
		if readErr != nil {
			return fmt.Errorf("%w: %w", core.ErrIO, readErr)
		}
		if err := ctx.Err(); err != nil {
			return err
		}
	}

	if len(partial) > 0 {
		pending = appendUnit(pending, index, toText(partial))
	}
	return flush()
}

// processStream drains the job's stream buffer until the stream is closed.
func (e *Engine) processStream(ctx context.Context, state *jobState, job core.Job) error {
	entry, ok := e.stream(job.StreamID)
	if !ok || entry.jobID != job.ID {
		return fmt.Errorf("%w: %s", ErrStreamNotFound, job.StreamID)
	}
	buffer := entry.buffer
	logger := e.logger.With("job", job.ID, "stream", buffer.ID())

	interval := buffer.FlushInterval()
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	index := 0
	for {
		closed := buffer.Closed()
		if closed || buffer.Len() > 0 {
			lines := buffer.Flush()
			units := make([]unit, 0, len(lines))
			for _, line := range lines {
				state.addBytes(int64(len(line)))
				e.bytesProcessed.Add(int64(len(line)))
				units = appendUnit(units, index, line)
				index++
			}
			if err := e.classifyUnits(ctx, state, job, units); err != nil {
				return err
			}
			if len(lines) > 0 {
				state.progress(0, fmt.Sprintf("flushed %d lines", len(lines)), e.now())
				logger.Debug("stream flushed", "lines", len(lines))
			}
		}
		if closed {
			logger.Debug("stream drained", "flushes", buffer.Stats().Flushes)
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-buffer.Ready():
		case <-ticker.C:
		}
	}
}

// classifyUnits classifies each unit and records the outcome on the job.
// Classifier failures are recorded per unit; only cancellation is returned.
func (e *Engine) classifyUnits(ctx context.Context, state *jobState, job core.Job, units []unit) error {
	results := make([]*core.UnitResult, 0, len(units))
	for _, u := range units {
		if err := ctx.Err(); err != nil {
			return err
		}

		id := core.UnitID(job.ID, u.index, u.text)
		var res *classify.Result
		err := RetryWithBackoff(ctx, func() error {
			r, err := e.classifier.Classify(ctx, u.text)
			if err != nil {
				return err
			}
			res = r
			return nil
		}, e.retryAttempts, e.retryDelay)
		e.linesProcessed.Add(1)

		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			err = fmt.Errorf("%w: %w", core.ErrProcessing, err)
			state.recordFailure(id, fmt.Sprintf("line %d: %v", u.index+1, err))
			e.logger.Debug("unit failed", "job", job.ID, "line", u.index+1, "err", err)
			continue
		}

		state.recordSuccess(id)
		results = append(results, newUnitResult(id, job, u, res, e.now()))
	}

	if e.sink != nil && len(results) > 0 {
		if err := e.sink.AddResults(ctx, results...); err != nil {
			e.logger.Warn("failed to store results", "job", job.ID, "count", len(results), "err", err)
		}
	}
	return nil
}

func newUnitResult(id core.ID, job core.Job, u unit, res *classify.Result, now time.Time) *core.UnitResult {
	result := &core.UnitResult{
		Id:           id,
		JobID:        job.ID,
		Index:        u.index,
		Source:       job.Source,
		Text:         u.text,
		ClassifiedAt: now,
	}
	if res != nil {
		if res.CleanedText != "" {
			result.Text = res.CleanedText
		}
		result.Summary = res.Summary
		result.Tags = res.Tags
		result.Metadata = res.Metadata
	}
	return result
}

// appendUnit trims the line terminator and skips blank lines.
func appendUnit(units []unit, index int, line string) []unit {
	line = strings.TrimRight(line, "\r\n")
	if strings.TrimSpace(line) == "" {
		return units
	}
	return append(units, unit{index: index, text: line})
}

// toText converts a batch line, replacing invalid UTF-8 instead of failing the job.
func toText(b []byte) string {
	return strings.ToValidUTF8(string(b), "\uFFFD")
}

// progressReporter raises a job's progress and writes a log entry every
// time another tenth of the work is done.
type progressReporter struct {
	state    *jobState
	now      func() time.Time
	lastStep int
}

func newProgressReporter(state *jobState, now func() time.Time) *progressReporter {
	return &progressReporter{state: state, now: now}
}

func (r *progressReporter) report(percent float64) {
	step := int(percent) * progressSteps / 100
	message := ""
	if step > r.lastStep && step < progressSteps {
		r.lastStep = step
		message = fmt.Sprintf("%d%% processed", step*100/progressSteps)
	}
	r.state.progress(percent, message, r.now())
}
