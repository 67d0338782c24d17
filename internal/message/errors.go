package message

import (
	"errors"
	"fmt"
)

var (
	ErrTruncatedHeader       = errors.New("truncated message header")
	ErrTruncatedBody         = errors.New("truncated message body")
	ErrInvalidFrameLength    = errors.New("invalid frame length")
	ErrMissingRequiredBlock  = errors.New("missing required data block")
	ErrInvalidGateCount      = errors.New("gate count overruns message")
	ErrBlockOutOfRange       = errors.New("data block pointer out of range")
	ErrUnsupportedWordSize   = errors.New("unsupported gate word size")
	ErrInconsistentFlagState = errors.New("inconsistent flag state")
	ErrSegmentCountMismatch  = errors.New("segment count mismatch")
)

// FrameError reports a frame whose header decoded but whose body did not.
// Offset is relative to the start of the decompressed block.
type FrameError struct {
	Offset int
	Header Header
	Err    error
}

func (e *FrameError) Error() string {
	return fmt.Sprintf("decode %s frame at offset %d: %v", e.Header.Type, e.Offset, e.Err)
}

func (e *FrameError) Unwrap() error { return e.Err }
