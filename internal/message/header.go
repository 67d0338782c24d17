package message

import (
	"encoding/binary"
	"fmt"
	"time"
)

const (
	// FrameSize is the slot occupied by every message except generic digital radar data.
	FrameSize = 2432
	// CTMHeaderSize is the channel terminal manager prefix ahead of each message header.
	CTMHeaderSize = 12
	// MessageHeaderSize is the message header proper.
	MessageHeaderSize = 16
	// HeaderSize is the full per-frame header consumed before the body.
	HeaderSize = CTMHeaderSize + MessageHeaderSize
	// BodySize is the body length of a fixed-size frame.
	BodySize = FrameSize - HeaderSize
)

// Header is the message header that precedes every frame body.
type Header struct {
	Size             uint16 // halfwords, counted from the message header
	RedundantChannel uint8
	Type             Type
	Sequence         uint16
	Date             uint16 // modified Julian date, day 1 = 1970-01-01
	Millis           uint32 // milliseconds past midnight
	SegmentCount     uint16
	SegmentNumber    uint16
}

// ParseHeader decodes the CTM prefix and message header at the start of buf.
func ParseHeader(buf []byte) (Header, error) {
	if len(buf) < HeaderSize {
		return Header{}, fmt.Errorf("%w: have %d of %d bytes", ErrTruncatedHeader, len(buf), HeaderSize)
	}
	b := buf[CTMHeaderSize:HeaderSize]
	return Header{
		Size:             binary.BigEndian.Uint16(b[0:2]),
		RedundantChannel: b[2],
		Type:             Type(b[3]),
		Sequence:         binary.BigEndian.Uint16(b[4:6]),
		Date:             binary.BigEndian.Uint16(b[6:8]),
		Millis:           binary.BigEndian.Uint32(b[8:12]),
		SegmentCount:     binary.BigEndian.Uint16(b[12:14]),
		SegmentNumber:    binary.BigEndian.Uint16(b[14:16]),
	}, nil
}

// FrameLength returns the number of block bytes the frame occupies, header
// included. Generic digital radar data is sized by its own header.
func (h Header) FrameLength() (int, error) {
	if h.Type != TypeDigitalRadarDataGenericFormat {
		return FrameSize, nil
	}
	n := CTMHeaderSize + 2*int(h.Size)
	if n < HeaderSize {
		return 0, fmt.Errorf("%w: message size %d halfwords is smaller than its header", ErrInvalidFrameLength, h.Size)
	}
	return n, nil
}

// Time returns the message generation time in UTC.
func (h Header) Time() time.Time {
	return julianTime(h.Date, h.Millis)
}

// Segmented reports whether the message is one part of a multi-segment message.
func (h Header) Segmented() bool {
	return h.SegmentCount > 1
}

func julianTime(date uint16, millis uint32) time.Time {
	if date == 0 {
		return time.Time{}
	}
	return time.Unix(0, 0).UTC().
		AddDate(0, 0, int(date)-1).
		Add(time.Duration(millis) * time.Millisecond)
}
