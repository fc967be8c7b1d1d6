package storage

import (
	"testing"
	"time"

	"github.com/poiesic/logsift/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalUnmarshalID(t *testing.T) {
	for _, id := range []core.ID{0, 42, core.ID(18446744073709551615), core.IDFromContent("x")} {
		decoded, err := UnmarshalID(MarshalID(id))
		require.NoError(t, err)
		assert.Equal(t, id, decoded)
	}

	_, err := UnmarshalID([]byte{})
	assert.Error(t, err)
}

func TestMarshalUnmarshalUnitResult(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Microsecond)
	result := &core.UnitResult{
		Id:           core.UnitID("job-1", 3, "ERROR disk full"),
		JobID:        "job-1",
		Index:        3,
		Source:       core.SourceBatchFile,
		Text:         "ERROR disk full",
		Summary:      "The disk is full.",
		Tags:         []string{"disk", "capacity"},
		Metadata:     map[string]string{"severity": "error", "component": "fs"},
		ClassifiedAt: now,
	}

	data := MarshalUnitResult(result)
	assert.Len(t, data, UnitResultMUS.Size(*result))

	decoded, err := UnmarshalUnitResult(data)
	require.NoError(t, err)
	assert.Equal(t, result, decoded)

	n, err := UnitResultMUS.Skip(data)
	require.NoError(t, err)
	assert.Equal(t, len(data), n)
}

func TestMarshalUnitResult_Deterministic(t *testing.T) {
	result := &core.UnitResult{
		JobID:    "job",
		Metadata: map[string]string{"a": "1", "b": "2", "c": "3", "d": "4"},
	}
	first := MarshalUnitResult(result)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, MarshalUnitResult(result), "map order must not leak into the encoding")
	}
}

func TestMarshalUnitResult_EmptyFields(t *testing.T) {
	decoded, err := UnmarshalUnitResult(MarshalUnitResult(&core.UnitResult{Id: 7}))
	require.NoError(t, err)
	assert.Equal(t, &core.UnitResult{Id: 7}, decoded)
}

func TestUnmarshalUnitResult_Truncated(t *testing.T) {
	data := MarshalUnitResult(&core.UnitResult{Id: 1, JobID: "job", Text: "some text", Tags: []string{"x"}})

	for _, cut := range []int{0, 1, len(data) / 2, len(data) - 1} {
		_, err := UnmarshalUnitResult(data[:cut])
		assert.ErrorIs(t, err, ErrSerializationFailed, "cut at %d", cut)
	}
}
