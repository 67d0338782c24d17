package message

import (
	"errors"
	"io"
)

// Reader walks the frames of one decompressed block.
type Reader struct {
	buf    []byte
	offset int
}

// NewReader returns a Reader positioned at the first frame of block.
func NewReader(block []byte) *Reader {
	return &Reader{buf: block}
}

// Offset returns the block offset of the next frame.
func (r *Reader) Offset() int { return r.offset }

// Next decodes the next frame. It returns io.EOF once fewer than HeaderSize
// bytes remain.
//
// When a body fails to decode the error is a *FrameError and the reader has
// already moved past the frame, so calling Next again resumes at the following
// frame boundary. When the frame length itself cannot be trusted the rest of
// the block is abandoned.
func (r *Reader) Next() (Frame, error) {
	if len(r.buf)-r.offset < HeaderSize {
		r.offset = len(r.buf)
		return Frame{}, io.EOF
	}

	start := r.offset
	f, err := DecodeFrame(r.buf[start:])
	if err != nil {
		if f.Length > 0 {
			r.offset += f.Length
		} else {
			r.offset = len(r.buf)
		}
		if errors.Is(err, ErrTruncatedHeader) {
			return Frame{}, io.EOF
		}
		return Frame{}, &FrameError{Offset: start, Header: f.Header, Err: err}
	}

	f.Offset = start
	r.offset += f.Length
	return f, nil
}

// ReadAll decodes every frame of block, stopping at the first error.
func ReadAll(block []byte) ([]Frame, error) {
	r := NewReader(block)
	var frames []Frame
	for {
		f, err := r.Next()
		if errors.Is(err, io.EOF) {
			return frames, nil
		}
		if err != nil {
			return nil, err
		}
		frames = append(frames, f)
	}
}
