package stream

import "errors"

var (
	// ErrBufferClosed is returned when a line is added to a closed buffer.
	ErrBufferClosed = errors.New("stream buffer closed")
)
