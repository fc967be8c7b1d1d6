package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestProgressTracker_Basic(t *testing.T) {
	var buf bytes.Buffer
	tracker := NewProgressTracker(&buf, 4, 10)

	tracker.Start()
	assert.True(t, tracker.started, "should be started")

	tracker.Update(1, 25, 100)
	tracker.Update(4, 100, 400)

	assert.Greater(t, tracker.Elapsed(), time.Duration(0), "elapsed time should be positive")

	output := buf.String()
	assert.Contains(t, output, "4/4 jobs", "should show completion")
	assert.Contains(t, output, "100.0%", "should show 100%")
}

func TestProgressTracker_ReportInterval(t *testing.T) {
	var buf bytes.Buffer
	tracker := NewProgressTracker(&buf, 1, 50)

	tracker.Start()
	tracker.Update(0, 10, 1)
	assert.Empty(t, buf.String(), "small advances are not reported")

	tracker.Update(0, 60, 6)
	assert.Contains(t, buf.String(), "60.0%")
}

func TestProgressTracker_Finish(t *testing.T) {
	var buf bytes.Buffer
	tracker := NewProgressTracker(&buf, 3, 10)

	tracker.Start()
	tracker.Update(1, 40, 10)
	tracker.Finish()

	output := buf.String()
	assert.Contains(t, output, "3/3 jobs", "finish should set to total")
	assert.Contains(t, output, "100.0%", "finish should show 100%")
	assert.Contains(t, output, "\n", "finish should print newline")
}

func TestProgressTracker_CapsAtTotal(t *testing.T) {
	var buf bytes.Buffer
	tracker := NewProgressTracker(&buf, 2, 10)

	tracker.Start()
	tracker.Update(5, 150, 10)

	output := buf.String()
	assert.Contains(t, output, "2/2 jobs")
	assert.Contains(t, output, "100.0%")
}

func TestProgressTracker_NotStarted(t *testing.T) {
	var buf bytes.Buffer
	tracker := NewProgressTracker(&buf, 2, 10)

	tracker.Update(1, 50, 10)
	tracker.Finish()

	assert.Empty(t, buf.String(), "nothing is reported before Start")
	assert.Equal(t, time.Duration(0), tracker.Elapsed())
}
