package demo

import (
	"errors"
	"fmt"
)

var (
	ErrTruncated     = errors.New("demo truncated")
	ErrDecompress    = errors.New("failed to decompress frame")
	ErrFrameTooLarge = errors.New("frame exceeds size limit")
)

// CorruptHeaderError is returned by ReadHeader when the file does not start
// with a valid CS2 demo header.
type CorruptHeaderError struct {
	Reason string
	Err    error
}

func (e *CorruptHeaderError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("corrupt demo header: %s: %v", e.Reason, e.Err)
	}
	return "corrupt demo header: " + e.Reason
}

func (e *CorruptHeaderError) Unwrap() error {
	return e.Err
}
