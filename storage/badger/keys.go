package badger

import (
	"encoding/binary"
	"fmt"

	"github.com/poiesic/logsift/core"
)

// Key prefixes for different data types
const (
	resultPrefix      = "unitres"
	resultJobPrefix   = "unitresj"
	resultTagPrefix   = "unitrest"
	keyFieldSeparator = 0x00
)

// makeResultKey generates a key for a unit result by ID.
func makeResultKey(id core.ID) []byte {
	return []byte(fmt.Sprintf("%s:%d", resultPrefix, id))
}

// makeResultJobKey generates a composite key for the job index.
// Format: prefix:jobID 0x00 index id
func makeResultJobKey(jobID string, index int, id core.ID) []byte {
	buf := makePartialResultJobKey(jobID)
	buf = binary.BigEndian.AppendUint64(buf, uint64(index))
	return binary.BigEndian.AppendUint64(buf, uint64(id))
}

// makePartialResultJobKey generates the prefix shared by all results of a job.
// The separator keeps "job-1" from matching "job-10".
func makePartialResultJobKey(jobID string) []byte {
	buf := make([]byte, 0, len(resultJobPrefix)+1+len(jobID)+1+16)
	buf = append(buf, resultJobPrefix...)
	buf = append(buf, ':')
	buf = append(buf, jobID...)
	return append(buf, keyFieldSeparator)
}

// makeResultTagKey generates a composite key for the tag index.
// Format: prefix:tag 0x00 id
func makeResultTagKey(tag string, id core.ID) []byte {
	return binary.BigEndian.AppendUint64(makePartialResultTagKey(tag), uint64(id))
}

// makePartialResultTagKey generates the prefix shared by all results with a tag.
func makePartialResultTagKey(tag string) []byte {
	buf := make([]byte, 0, len(resultTagPrefix)+1+len(tag)+1+8)
	buf = append(buf, resultTagPrefix...)
	buf = append(buf, ':')
	buf = append(buf, tag...)
	return append(buf, keyFieldSeparator)
}
