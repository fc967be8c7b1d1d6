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


package storage

import (
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/varint"
	"github.com/poiesic/logsift/core"
)

// MarshalID serializes an ID to bytes.
func MarshalID(id core.ID) []byte {
	buf := make([]byte, varint.Uint64.Size(uint64(id)))
	varint.Uint64.Marshal(uint64(id), buf)
	return buf
}

// UnmarshalID deserializes an ID from bytes.
func UnmarshalID(data []byte) (core.ID, error) {
	v, _, err := varint.Uint64.Unmarshal(data)
	return core.ID(v), err
}

// MarshalUnitResult serializes a UnitResult to bytes.
func MarshalUnitResult(result *core.UnitResult) []byte {
	buf := make([]byte, UnitResultMUS.Size(*result))
	UnitResultMUS.Marshal(*result, buf)
	return buf
}

// UnmarshalUnitResult deserializes a UnitResult from bytes.
func UnmarshalUnitResult(data []byte) (*core.UnitResult, error) {
	result, _, err := UnitResultMUS.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return &result, nil
}

// UnitResultMUS is the MUS serializer for core.UnitResult.
//
// Layout: id, job id, index, source, text, summary, tag count, tags,
// metadata count, metadata pairs sorted by key, classified-at in Unix
// microseconds.
var UnitResultMUS = unitResultMUS{}

type unitResultMUS struct{}

func (unitResultMUS) Marshal(v core.UnitResult, bs []byte) (n int) {
	n = varint.Uint64.Marshal(uint64(v.Id), bs)
	n += ord.String.Marshal(v.JobID, bs[n:])
	n += varint.Int64.Marshal(int64(v.Index), bs[n:])
	n += ord.String.Marshal(string(v.Source), bs[n:])
	n += ord.String.Marshal(v.Text, bs[n:])
	n += ord.String.Marshal(v.Summary, bs[n:])
	n += varint.Int64.Marshal(int64(len(v.Tags)), bs[n:])
	for _, tag := range v.Tags {
		n += ord.String.Marshal(tag, bs[n:])
	}
	n += varint.Int64.Marshal(int64(len(v.Metadata)), bs[n:])
	for _, key := range slices.Sorted(maps.Keys(v.Metadata)) {
		n += ord.String.Marshal(key, bs[n:])
		n += ord.String.Marshal(v.Metadata[key], bs[n:])
	}
	n += varint.Int64.Marshal(timeToMicro(v.ClassifiedAt), bs[n:])
	return n
}

func (unitResultMUS) Unmarshal(bs []byte) (v core.UnitResult, n int, err error) {
	var (
		m     int
		id    uint64
		index int64
		count int64
		str   string
	)
	if id, m, err = varint.Uint64.Unmarshal(bs); err != nil {
		return
	}
	n += m
	v.Id = core.ID(id)
	if v.JobID, m, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += m
	if index, m, err = varint.Int64.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += m
	v.Index = int(index)
	if str, m, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += m
	v.Source = core.Source(str)
	if v.Text, m, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += m
	if v.Summary, m, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += m

	if count, m, err = varint.Int64.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += m
	if count < 0 || count > int64(len(bs)-n) {
		err = ErrSerializationFailed
		return
	}
	if count > 0 {
		v.Tags = make([]string, count)
		for i := range v.Tags {
			if v.Tags[i], m, err = ord.String.Unmarshal(bs[n:]); err != nil {
				return
			}
			n += m
		}
	}

	if count, m, err = varint.Int64.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += m
	if count < 0 || count > int64(len(bs)-n) {
		err = ErrSerializationFailed
		return
	}
	if count > 0 {
		v.Metadata = make(map[string]string, count)
		for i := int64(0); i < count; i++ {
			var key, value string
			if key, m, err = ord.String.Unmarshal(bs[n:]); err != nil {
				return
			}
			n += m
			if value, m, err = ord.String.Unmarshal(bs[n:]); err != nil {
				return
			}
			n += m
			v.Metadata[key] = value
		}
	}

	var micros int64
	if micros, m, err = varint.Int64.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += m
	v.ClassifiedAt = microToTime(micros)
	return
}

func (unitResultMUS) Size(v core.UnitResult) (size int) {
	size = varint.Uint64.Size(uint64(v.Id))
	size += ord.String.Size(v.JobID)
	size += varint.Int64.Size(int64(v.Index))
	size += ord.String.Size(string(v.Source))
	size += ord.String.Size(v.Text)
	size += ord.String.Size(v.Summary)
	size += varint.Int64.Size(int64(len(v.Tags)))
	for _, tag := range v.Tags {
		size += ord.String.Size(tag)
	}
	size += varint.Int64.Size(int64(len(v.Metadata)))
	for key, value := range v.Metadata {
		size += ord.String.Size(key) + ord.String.Size(value)
	}
	return size + varint.Int64.Size(timeToMicro(v.ClassifiedAt))
}

func (s unitResultMUS) Skip(bs []byte) (n int, err error) {
	_, n, err = s.Unmarshal(bs)
	return
}

// timeToMicro maps the zero time to 0 so it survives a round trip.
func timeToMicro(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMicro()
}

func microToTime(micros int64) time.Time {
	if micros == 0 {
		return time.Time{}
	}
	return time.UnixMicro(micros).UTC()
}
