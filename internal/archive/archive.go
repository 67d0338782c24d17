// Package archive reads NEXRAD Archive II volume files: the optional volume
// header followed by a sequence of size-prefixed, bzip2-compressed records.
package archive

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/dsnet/compress/bzip2"
)

const recordLengthSize = 4

var (
	ErrTruncatedRecordLength = errors.New("truncated record length")
	ErrTruncatedRecordBody   = errors.New("truncated record body")
	ErrDecompression         = errors.New("record decompression failed")
)

var bzipMagic = []byte("BZ")

// Record is one decompressed LDM record.
type Record struct {
	Index          int
	Offset         int64 // stream offset of the length prefix
	CompressedSize int
	Final          bool // the length prefix was negative
	Data           []byte
}

// Reader splits a stream of compressed records. It is not safe for concurrent use.
type Reader struct {
	r      io.Reader
	offset int64
	index  int
	done   bool
}

// NewReader returns a Reader positioned at the first record length prefix. The
// volume header, if any, must already have been consumed.
func NewReader(r io.Reader) *Reader {
	return &Reader{r: r}
}

// Offset returns the number of stream bytes consumed so far.
func (r *Reader) Offset() int64 { return r.offset }

// Next returns the next decompressed record. It returns io.EOF when the stream
// ends cleanly before a length prefix or after the final record.
func (r *Reader) Next() (Record, error) {
	if r.done {
		return Record{}, io.EOF
	}

	var prefix [recordLengthSize]byte
	n, err := io.ReadFull(r.r, prefix[:])
	switch {
	case errors.Is(err, io.EOF):
		r.done = true
		return Record{}, io.EOF
	case errors.Is(err, io.ErrUnexpectedEOF):
		r.done = true
		return Record{}, fmt.Errorf("%w: record %d at offset %d: got %d of %d bytes",
			ErrTruncatedRecordLength, r.index, r.offset, n, recordLengthSize)
	case err != nil:
		return Record{}, fmt.Errorf("read record %d length: %w", r.index, err)
	}

	rec := Record{Index: r.index, Offset: r.offset}
	r.offset += recordLengthSize

	size := int32(binary.BigEndian.Uint32(prefix[:]))
	if size == math.MinInt32 {
		r.done = true
		return Record{}, fmt.Errorf("%w: record %d length prefix %#x has no magnitude",
			ErrTruncatedRecordBody, rec.Index, uint32(size))
	}
	if size < 0 {
		rec.Final = true
		size = -size
	}
	rec.CompressedSize = int(size)

	var body bytes.Buffer
	copied, err := io.CopyN(&body, r.r, int64(size))
	r.offset += copied
	if err != nil {
		r.done = true
		if errors.Is(err, io.EOF) {
			return Record{}, fmt.Errorf("%w: record %d declares %d bytes, %d available",
				ErrTruncatedRecordBody, rec.Index, size, copied)
		}
		return Record{}, fmt.Errorf("read record %d body: %w", rec.Index, err)
	}

	rec.Data, err = Decompress(body.Bytes())
	if err != nil {
		r.done = true
		return Record{}, fmt.Errorf("record %d: %w", rec.Index, err)
	}

	r.index++
	if rec.Final {
		r.done = true
	}
	return rec, nil
}

// Decompress inflates a single bzip2 record payload.
func Decompress(payload []byte) ([]byte, error) {
	if len(payload) == 0 {
		return nil, nil
	}
	if !bytes.HasPrefix(payload, bzipMagic) {
		return nil, fmt.Errorf("%w: missing bzip2 signature", ErrDecompression)
	}
	zr, err := bzip2.NewReader(bytes.NewReader(payload), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecompression, err)
	}
	defer zr.Close()

	out, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecompression, err)
	}
	return out, nil
}
