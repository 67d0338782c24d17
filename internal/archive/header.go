package archive

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
	"time"
)

// VolumeHeaderSize is the size of the optional header that opens an Archive II file.
const VolumeHeaderSize = 24

// ErrTruncatedVolumeHeader is returned when fewer than VolumeHeaderSize bytes are available.
var ErrTruncatedVolumeHeader = errors.New("truncated volume header")

// VolumeHeader is the 24-byte tape header written ahead of the first record.
type VolumeHeader struct {
	Filename  string // e.g. "AR2V0006."
	Extension string // volume sequence, "001".."999"
	Date      uint32 // modified Julian date, day 1 = 1970-01-01
	Millis    uint32 // milliseconds past midnight
	ICAO      string // radar site identifier, e.g. "KTLX"
}

// ParseVolumeHeader decodes the volume header at the start of buf.
func ParseVolumeHeader(buf []byte) (VolumeHeader, error) {
	if len(buf) < VolumeHeaderSize {
		return VolumeHeader{}, fmt.Errorf("%w: have %d bytes", ErrTruncatedVolumeHeader, len(buf))
	}
	return VolumeHeader{
		Filename:  string(buf[0:9]),
		Extension: string(buf[9:12]),
		Date:      binary.BigEndian.Uint32(buf[12:16]),
		Millis:    binary.BigEndian.Uint32(buf[16:20]),
		ICAO:      strings.TrimRight(string(buf[20:24]), "\x00 "),
	}, nil
}

// Time returns the volume start time in UTC.
func (h VolumeHeader) Time() time.Time {
	return timestamp(h.Date, h.Millis)
}

// Version returns the two-digit archive version from the filename tag, or "" for
// headers that predate versioned tags.
func (h VolumeHeader) Version() string {
	if strings.HasPrefix(h.Filename, "AR2V") && len(h.Filename) >= 8 {
		return h.Filename[6:8]
	}
	return ""
}

// HasVolumeHeader reports whether data opens with a recognised volume header tag.
func HasVolumeHeader(data []byte) bool {
	return bytes.HasPrefix(data, []byte("AR2V")) || bytes.HasPrefix(data, []byte("ARCHIVE2"))
}

// IsCompressed reports whether the first record of a volume file carries the
// bzip2 signature: 24 header bytes, 4 length bytes, then "BZ".
func IsCompressed(data []byte) bool {
	return len(data) >= VolumeHeaderSize && StartsWithCompressedRecord(data[VolumeHeaderSize:])
}

// StartsWithCompressedRecord reports whether buf opens with a record length
// followed by a bzip2 stream. Use it on data that has no volume header.
func StartsWithCompressedRecord(buf []byte) bool {
	return len(buf) >= recordLengthSize+2 && buf[recordLengthSize] == 'B' && buf[recordLengthSize+1] == 'Z'
}

func timestamp(date, millis uint32) time.Time {
	if date == 0 {
		return time.Time{}
	}
	return time.Unix(0, 0).UTC().
		AddDate(0, 0, int(date)-1).
		Add(time.Duration(millis) * time.Millisecond)
}
