package message

import "fmt"

// Frame is one decoded message together with its position in the block.
type Frame struct {
	Offset  int
	Length  int // bytes consumed, header included
	Header  Header
	Message Message
}

// DecodeFrame decodes the frame at the start of buf. On success Frame.Length
// is exactly the number of bytes the frame occupies: FrameSize for fixed frames
// whether or not the type is recognised, and the header-declared size for
// generic digital radar data.
func DecodeFrame(buf []byte) (Frame, error) {
	hdr, err := ParseHeader(buf)
	if err != nil {
		return Frame{}, err
	}
	length, err := hdr.FrameLength()
	if err != nil {
		return Frame{Header: hdr}, err
	}
	if len(buf) < length {
		return Frame{Header: hdr}, fmt.Errorf("%w: %s frame needs %d bytes, have %d",
			ErrTruncatedBody, hdr.Type, length, len(buf))
	}

	msg, err := decodeBody(hdr, buf[HeaderSize:length])
	if err != nil {
		return Frame{Header: hdr, Length: length}, err
	}
	return Frame{Length: length, Header: hdr, Message: msg}, nil
}

func decodeBody(hdr Header, body []byte) (Message, error) {
	if hdr.Type != TypeDigitalRadarDataGenericFormat && hdr.SegmentNumber > 1 {
		return &Unrecognized{Code: hdr.Type, Segment: hdr.SegmentNumber}, nil
	}

	switch hdr.Type {
	case TypeRDAStatusData:
		return DecodeRDAStatus(body)
	case TypeClutterFilterMap:
		return DecodeClutterFilterMap(body)
	case TypeDigitalRadarDataGenericFormat:
		return DecodeDigitalRadarData(body)
	default:
		return &Unrecognized{Code: hdr.Type, Segment: hdr.SegmentNumber}, nil
	}
}
