package domain

import (
	"errors"

	"github.com/couchcryptid/nexrad-etl/internal/archive"
	"github.com/couchcryptid/nexrad-etl/internal/message"
)

// Error kinds used as metric labels and log fields.
const (
	KindTruncation    = "truncation"
	KindStructural    = "structural"
	KindConsistency   = "consistency"
	KindDecompression = "decompression"
	KindSequencing    = "sequencing"
	KindOther         = "other"
)

// ErrorKind classifies a decode error into one of the Kind constants.
func ErrorKind(err error) string {
	switch {
	case errors.Is(err, archive.ErrTruncatedVolumeHeader),
		errors.Is(err, archive.ErrTruncatedRecordLength),
		errors.Is(err, archive.ErrTruncatedRecordBody),
		errors.Is(err, message.ErrTruncatedHeader),
		errors.Is(err, message.ErrTruncatedBody):
		return KindTruncation
	case errors.Is(err, message.ErrInvalidFrameLength),
		errors.Is(err, message.ErrMissingRequiredBlock),
		errors.Is(err, message.ErrInvalidGateCount),
		errors.Is(err, message.ErrBlockOutOfRange),
		errors.Is(err, message.ErrUnsupportedWordSize),
		errors.Is(err, message.ErrSegmentCountMismatch):
		return KindStructural
	case errors.Is(err, message.ErrInconsistentFlagState):
		return KindConsistency
	case errors.Is(err, archive.ErrDecompression):
		return KindDecompression
	case errors.Is(err, ErrMalformedRadialSequence):
		return KindSequencing
	}
	return KindOther
}
