package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIDFromContent(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		wantSame bool
	}{
		{
			name:     "same content produces same ID",
			content:  "test content",
			wantSame: true,
		},
		{
			name:     "empty string",
			content:  "",
			wantSame: true,
		},
		{
			name:     "long content",
			content:  "panic: runtime error: invalid memory address or nil pointer dereference",
			wantSame: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id1 := IDFromContent(tt.content)
			id2 := IDFromContent(tt.content)

			if tt.wantSame && id1 != id2 {
				t.Errorf("IDFromContent() produced different IDs for same content: %d vs %d", id1, id2)
			}
		})
	}
}

func TestIDFromContent_Different(t *testing.T) {
	id1 := IDFromContent("content1")
	id2 := IDFromContent("content2")

	if id1 == id2 {
		t.Errorf("IDFromContent() produced same ID for different content")
	}
}

func TestUnitID(t *testing.T) {
	base := UnitID("job-1", 0, "ERROR disk full")

	assert.Equal(t, base, UnitID("job-1", 0, "ERROR disk full"), "should be deterministic")
	assert.NotEqual(t, base, UnitID("job-1", 1, "ERROR disk full"), "position should matter")
	assert.NotEqual(t, base, UnitID("job-2", 0, "ERROR disk full"), "job should matter")
}

func TestParsePriority(t *testing.T) {
	for _, p := range Priorities {
		parsed, err := ParsePriority(p.String())
		require.NoError(t, err)
		assert.Equal(t, p, parsed)
	}

	_, err := ParsePriority("urgent")
	assert.ErrorIs(t, err, ErrInvalidPriority)
}

func TestPriorityOrdering(t *testing.T) {
	assert.Less(t, PriorityCritical, PriorityHigh)
	assert.Less(t, PriorityHigh, PriorityNormal)
	assert.Less(t, PriorityNormal, PriorityLow)
	assert.Less(t, PriorityLow, PriorityBatch)
	assert.Equal(t, 5, NumPriorities)
}

func TestStatus_CanTransition(t *testing.T) {
	tests := []struct {
		from Status
		to   Status
		want bool
	}{
		{StatusQueued, StatusProcessing, true},
		{StatusQueued, StatusCancelled, true},
		{StatusQueued, StatusCompleted, false},
		{StatusProcessing, StatusCompleted, true},
		{StatusProcessing, StatusFailed, true},
		{StatusProcessing, StatusCancelled, false},
		{StatusProcessing, StatusQueued, false},
		{StatusCompleted, StatusFailed, false},
		{StatusFailed, StatusCompleted, false},
		{StatusCancelled, StatusProcessing, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.from.CanTransition(tt.to))
		})
	}
}

func TestStatus_IsTerminal(t *testing.T) {
	assert.False(t, StatusQueued.IsTerminal())
	assert.False(t, StatusProcessing.IsTerminal())
	assert.True(t, StatusCompleted.IsTerminal())
	assert.True(t, StatusFailed.IsTerminal())
	assert.True(t, StatusCancelled.IsTerminal())
}

func TestPayload_Kind(t *testing.T) {
	assert.Equal(t, PayloadNone, Payload{}.Kind())
	assert.Equal(t, PayloadRaw, Payload{Raw: []byte("x")}.Kind())
	assert.Equal(t, PayloadText, Payload{Text: "x"}.Kind())
	assert.Equal(t, PayloadFile, Payload{FilePath: "/tmp/x.log"}.Kind())
	assert.Equal(t, PayloadNone, Payload{Text: "x", FilePath: "/tmp/x.log"}.Kind())
}

func TestJob_Clone(t *testing.T) {
	job := &Job{
		ID:           "job-1",
		Payload:      Payload{Raw: []byte("abc")},
		Metadata:     map[string]string{"project": "api"},
		ProgressLog:  []ProgressEntry{{Time: time.Now(), Percent: 10, Message: "started"}},
		ProcessedIDs: []ID{1, 2},
		FailedIDs:    []ID{3},
	}

	clone := job.Clone()
	require.Equal(t, *job, clone)

	clone.Payload.Raw[0] = 'z'
	clone.Metadata["project"] = "web"
	clone.ProgressLog[0].Message = "changed"
	clone.ProcessedIDs[0] = 99

	assert.Equal(t, byte('a'), job.Payload.Raw[0])
	assert.Equal(t, "api", job.Metadata["project"])
	assert.Equal(t, "started", job.ProgressLog[0].Message)
	assert.Equal(t, ID(1), job.ProcessedIDs[0])
}
