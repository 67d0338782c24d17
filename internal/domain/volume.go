package domain

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/couchcryptid/nexrad-etl/internal/archive"
	"github.com/couchcryptid/nexrad-etl/internal/message"
)

// DecodeOptions controls how DecodeVolume treats frames that fail to decode.
type DecodeOptions struct {
	// SkipCorruptFrames continues past frames whose bodies fail to decode.
	// Record level failures always abort.
	SkipCorruptFrames bool
}

// Volume is the decoded content of one Archive II file.
type Volume struct {
	Header     *archive.VolumeHeader
	Compressed bool
	Records    int
	Frames     []message.Frame
	Skipped    []*message.FrameError
}

// DecodeVolume decodes an Archive II file held in memory. A file that carries
// a volume header, or whose first record is bzip2 compressed, is read record by
// record. Only a headerless buffer that opens with a recognizable frame is
// decoded directly as one uncompressed block.
func DecodeVolume(data []byte, opts DecodeOptions) (Volume, error) {
	var v Volume
	body := data
	compressed := archive.StartsWithCompressedRecord(data)
	if archive.HasVolumeHeader(data) {
		h, err := archive.ParseVolumeHeader(data)
		if err != nil {
			return Volume{}, err
		}
		v.Header = &h
		body = data[archive.VolumeHeaderSize:]
		compressed = archive.IsCompressed(data)
	}

	if v.Header == nil && !compressed && startsWithFrame(body) {
		v.Records = 1
		if err := v.decodeBlock(body, opts); err != nil {
			return Volume{}, err
		}
		return v, nil
	}

	v.Compressed = compressed
	r := archive.NewReader(bytes.NewReader(body))
	for {
		rec, err := r.Next()
		if errors.Is(err, io.EOF) {
			return v, nil
		}
		if err != nil {
			return Volume{}, err
		}
		v.Records++
		if err := v.decodeBlock(rec.Data, opts); err != nil {
			return Volume{}, fmt.Errorf("record %d: %w", rec.Index, err)
		}
	}
}

func (v *Volume) decodeBlock(block []byte, opts DecodeOptions) error {
	r := message.NewReader(block)
	for {
		f, err := r.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			var frameErr *message.FrameError
			if opts.SkipCorruptFrames && errors.As(err, &frameErr) {
				v.Skipped = append(v.Skipped, frameErr)
				continue
			}
			return err
		}
		v.Frames = append(v.Frames, f)
	}
}

// Messages returns the decoded messages in stream order.
func (v Volume) Messages() []message.Message {
	out := make([]message.Message, 0, len(v.Frames))
	for _, f := range v.Frames {
		out = append(out, f.Message)
	}
	return out
}

// Radials returns a copy of every type 31 radial in stream order.
func (v Volume) Radials() []Radial {
	var out []Radial
	for _, f := range v.Frames {
		if m, ok := f.Message.(*message.DigitalRadarData); ok {
			out = append(out, NewRadial(m))
		}
	}
	return out
}

// LatestStatus returns the last RDA status message, or nil.
func (v Volume) LatestStatus() *message.RDAStatus {
	var last *message.RDAStatus
	for _, f := range v.Frames {
		if m, ok := f.Message.(*message.RDAStatus); ok {
			last = m
		}
	}
	return last
}

// LatestClutterMap returns the last clutter filter map, or nil.
func (v Volume) LatestClutterMap() *message.ClutterFilterMap {
	var last *message.ClutterFilterMap
	for _, f := range v.Frames {
		if m, ok := f.Message.(*message.ClutterFilterMap); ok {
			last = m
		}
	}
	return last
}

// FirstRadial returns the first type 31 message, or nil.
func (v Volume) FirstRadial() *message.DigitalRadarData {
	for _, f := range v.Frames {
		if m, ok := f.Message.(*message.DigitalRadarData); ok {
			return m
		}
	}
	return nil
}

// FrameCounts returns the number of decoded frames per message type.
func (v Volume) FrameCounts() map[message.Type]int {
	counts := make(map[message.Type]int)
	for _, f := range v.Frames {
		counts[f.Header.Type]++
	}
	return counts
}

// ParseRawEvent decodes the volume carried by a source topic message.
func ParseRawEvent(raw RawEvent, opts DecodeOptions) (Volume, error) {
	v, err := DecodeVolume(raw.Value, opts)
	if err != nil {
		return Volume{}, fmt.Errorf("decode volume %q: %w", raw.Key, err)
	}
	return v, nil
}

// startsWithFrame reports whether buf opens with a message header of a known
// type whose frame fits in buf.
func startsWithFrame(buf []byte) bool {
	h, err := message.ParseHeader(buf)
	if err != nil || !h.Type.Known() {
		return false
	}
	n, err := h.FrameLength()
	return err == nil && n <= len(buf)
}
