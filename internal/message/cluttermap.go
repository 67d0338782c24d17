package message

import (
	"encoding/binary"
	"fmt"
	"time"
)

const clutterMapHeaderSize = 6

// OpCode selects how clutter filtering is applied within a range zone.
type OpCode uint16

const (
	OpCodeBypassFilter       OpCode = 0
	OpCodeBypassMapInControl OpCode = 1
	OpCodeForceFilter        OpCode = 2
)

func (c OpCode) String() string {
	switch c {
	case OpCodeBypassFilter:
		return "bypass filter"
	case OpCodeBypassMapInControl:
		return "bypass map in control"
	case OpCodeForceFilter:
		return "force filter"
	}
	return fmt.Sprintf("op code %d", uint16(c))
}

// RangeZone applies OpCode from the end of the previous zone out to EndRange.
type RangeZone struct {
	OpCode   OpCode
	EndRange uint16 // km
}

// AzimuthSegment holds the range zones of one azimuth bin.
type AzimuthSegment struct {
	Number     int // zero-based azimuth index
	RangeZones []RangeZone
}

// ElevationSegment holds every azimuth segment of one elevation band.
type ElevationSegment struct {
	Number          int
	AzimuthSegments []AzimuthSegment
}

// ClutterFilterMap is message type 15.
type ClutterFilterMap struct {
	GenerationDate        uint16 // modified Julian date
	GenerationTime        uint16 // milliseconds past midnight
	ElevationSegmentCount uint16
	ElevationSegments     []ElevationSegment
}

func (m *ClutterFilterMap) Type() Type { return TypeClutterFilterMap }

// GeneratedAt returns the map generation time in UTC.
func (m *ClutterFilterMap) GeneratedAt() time.Time {
	return julianTime(m.GenerationDate, uint32(m.GenerationTime))
}

// RangeZoneCount returns the total number of range zones across all segments.
func (m *ClutterFilterMap) RangeZoneCount() int {
	n := 0
	for _, el := range m.ElevationSegments {
		for _, az := range el.AzimuthSegments {
			n += len(az.RangeZones)
		}
	}
	return n
}

// DecodeClutterFilterMap decodes a clutter filter map body. Every nested list
// is read against the count declared ahead of it; running out of input before
// a declared count is satisfied is a segment count mismatch.
func DecodeClutterFilterMap(body []byte) (*ClutterFilterMap, error) {
	if len(body) < clutterMapHeaderSize {
		return nil, fmt.Errorf("%w: clutter filter map header needs %d bytes, have %d",
			ErrTruncatedBody, clutterMapHeaderSize, len(body))
	}

	m := &ClutterFilterMap{
		GenerationDate:        binary.BigEndian.Uint16(body[0:2]),
		GenerationTime:        binary.BigEndian.Uint16(body[2:4]),
		ElevationSegmentCount: binary.BigEndian.Uint16(body[4:6]),
	}

	c := cursor{buf: body, off: clutterMapHeaderSize}
	m.ElevationSegments = make([]ElevationSegment, 0, min(int(m.ElevationSegmentCount), c.remaining()/2))
	for i := 0; i < int(m.ElevationSegmentCount); i++ {
		seg, err := decodeElevationSegment(&c, i+1)
		if err != nil {
			return nil, fmt.Errorf("%w: declared %d elevation segments, decoded %d: %v",
				ErrSegmentCountMismatch, m.ElevationSegmentCount, len(m.ElevationSegments), err)
		}
		m.ElevationSegments = append(m.ElevationSegments, seg)
	}
	return m, nil
}

func decodeElevationSegment(c *cursor, number int) (ElevationSegment, error) {
	azCount, ok := c.u16()
	if !ok {
		return ElevationSegment{}, fmt.Errorf("elevation segment %d: missing azimuth segment count", number)
	}

	seg := ElevationSegment{Number: number, AzimuthSegments: make([]AzimuthSegment, 0, min(int(azCount), c.remaining()/2))}
	for a := 0; a < int(azCount); a++ {
		zoneCount, ok := c.u16()
		if !ok {
			return ElevationSegment{}, fmt.Errorf("elevation segment %d: azimuth segment %d: missing range zone count (%d declared)",
				number, a, azCount)
		}
		az := AzimuthSegment{Number: a, RangeZones: make([]RangeZone, 0, min(int(zoneCount), c.remaining()/4))}
		for z := 0; z < int(zoneCount); z++ {
			op, ok1 := c.u16()
			end, ok2 := c.u16()
			if !ok1 || !ok2 {
				return ElevationSegment{}, fmt.Errorf("elevation segment %d: azimuth segment %d: range zone %d of %d truncated",
					number, a, z+1, zoneCount)
			}
			az.RangeZones = append(az.RangeZones, RangeZone{OpCode: OpCode(op), EndRange: end})
		}
		seg.AzimuthSegments = append(seg.AzimuthSegments, az)
	}
	return seg, nil
}

// cursor reads big-endian values sequentially from a bounded buffer.
type cursor struct {
	buf []byte
	off int
}

func (c *cursor) u16() (uint16, bool) {
	if len(c.buf)-c.off < 2 {
		return 0, false
	}
	v := binary.BigEndian.Uint16(c.buf[c.off:])
	c.off += 2
	return v, true
}

func (c *cursor) remaining() int { return len(c.buf) - c.off }
