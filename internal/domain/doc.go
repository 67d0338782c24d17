// Package domain turns decoded NEXRAD Level II messages into radar volumes and
// the per-volume summaries published downstream.
//
// # Data Source
//
// Volumes are WSR-88D Archive II files as distributed by the NOAA Big Data
// Program. An upstream collector publishes each file unmodified as one Kafka
// message on the source topic. The file name travels as the message key.
//
// # Level II Conventions
//
// File layout:
//
//	[24-byte volume header] [record] [record] ...
//	record = [4-byte big-endian length] [bzip2 stream]
//	A negative length marks the last record of the volume.
//	Files that predate compression carry message frames directly after the header.
//
// Message frames:
//
//	Each frame opens with 12 bytes of legacy CTM padding and a 16-byte message
//	header. Most message types occupy a fixed 2432-byte frame. Digital radar
//	data (type 31) frames are variable: the header size field counts
//	halfwords, so the frame is 12 + 2*size bytes.
//
// Times:
//
//	Dates are modified Julian days where day 1 is 1970-01-01. Times are
//	milliseconds past midnight UTC.
//
// Radial status:
//
//	Each radial declares its place in the scan. A volume opens with
//	"volume scan start", each sweep after the first opens with "elevation
//	start" (or "elevation start, final cut of the VCP"), and "elevation end"
//	and "volume scan end" close the sweep and the volume. Opening radials are
//	part of the sweep they open. Closing radials carry no new data.
//
// Moments:
//
//	Gate values are stored raw. Physical values are (raw - offset) / scale.
//	Raw 0 means below threshold and raw 1 means range folded.
//
// # ID Generation
//
// Summary IDs are deterministic SHA-256 hashes of site|volume time|source key,
// so redelivered volumes produce the same ID. See [generateID].
package domain
