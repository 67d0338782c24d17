// Package level2test encodes synthetic Archive II volumes for tests and
// fixtures. Builders panic on internal failures, like net/http/httptest.
package level2test

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"

	"github.com/couchcryptid/nexrad-etl/internal/archive"
	"github.com/couchcryptid/nexrad-etl/internal/message"
	"github.com/dsnet/compress/bzip2"
)

// Sample site and time used by the fixture builders.
const (
	Site   = "KTLX"
	Date   = 19840 // 2024-04-26
	Millis = 54_000_000
)

// Header returns a single-segment message header of type t.
func Header(t message.Type) message.Header {
	return message.Header{
		RedundantChannel: 8,
		Type:             t,
		Sequence:         1,
		Date:             Date,
		Millis:           Millis,
		SegmentCount:     1,
		SegmentNumber:    1,
	}
}

// Frame encodes one frame. Fixed frames are zero padded to message.FrameSize;
// generic digital radar data frames are sized to their body. A zero hdr.Size
// is filled in from the body length.
func Frame(hdr message.Header, body []byte) []byte {
	if len(body)%2 == 1 {
		body = append(body, 0)
	}
	if hdr.Size == 0 {
		hdr.Size = uint16((message.MessageHeaderSize + len(body)) / 2)
	}

	length := message.HeaderSize + len(body)
	if hdr.Type != message.TypeDigitalRadarDataGenericFormat {
		if len(body) > message.BodySize {
			panic(fmt.Sprintf("level2test: %d byte body does not fit a fixed frame", len(body)))
		}
		length = message.FrameSize
	}

	buf := make([]byte, length)
	h := buf[message.CTMHeaderSize:]
	binary.BigEndian.PutUint16(h[0:2], hdr.Size)
	h[2] = hdr.RedundantChannel
	h[3] = byte(hdr.Type)
	binary.BigEndian.PutUint16(h[4:6], hdr.Sequence)
	binary.BigEndian.PutUint16(h[6:8], hdr.Date)
	binary.BigEndian.PutUint32(h[8:12], hdr.Millis)
	binary.BigEndian.PutUint16(h[12:14], hdr.SegmentCount)
	binary.BigEndian.PutUint16(h[14:16], hdr.SegmentNumber)
	copy(buf[message.HeaderSize:], body)
	return buf
}

// RDAStatus encodes an RDA status body.
func RDAStatus(m *message.RDAStatus) []byte {
	words := []uint16{
		m.Status,
		m.OperabilityStatus,
		m.ControlStatus,
		m.AuxiliaryPowerGeneratorState,
		m.AverageTransmitterPower,
		uint16(m.HorizontalReflectivityCalibrationCorrection),
		m.DataTransmissionEnabled,
		uint16(m.VolumeCoveragePattern),
		m.RDAControlAuthorization,
		m.BuildNumber,
		m.OperationalMode,
		m.SuperResolutionStatus,
		m.ClutterMitigationDecisionStatus,
		uint16(m.ScanDataFlags),
		m.AlarmSummary,
		m.CommandAcknowledgement,
		m.ChannelControlStatus,
		m.SpotBlankingStatus,
		m.BypassMapGenerationDate,
		m.BypassMapGenerationTime,
		m.ClutterFilterMapGenerationDate,
		m.ClutterFilterMapGenerationTime,
		uint16(m.VerticalReflectivityCalibrationCorrection),
		m.TransitionPowerSourceStatus,
		m.RMSControlStatus,
		m.PerformanceCheckStatus,
	}
	words = append(words, m.AlarmCodes[:]...)
	words = append(words, m.SignalProcessingOptions)

	var b bytes.Buffer
	for _, w := range words {
		putU16(&b, w)
	}
	return b.Bytes()
}

// ClutterFilterMap encodes a clutter filter map body. The declared elevation
// segment count is taken from m.ElevationSegmentCount so callers can encode a
// count that disagrees with the segments present.
func ClutterFilterMap(m *message.ClutterFilterMap) []byte {
	var b bytes.Buffer
	putU16(&b, m.GenerationDate)
	putU16(&b, m.GenerationTime)
	putU16(&b, m.ElevationSegmentCount)
	for _, el := range m.ElevationSegments {
		putU16(&b, uint16(len(el.AzimuthSegments)))
		for _, az := range el.AzimuthSegments {
			putU16(&b, uint16(len(az.RangeZones)))
			for _, z := range az.RangeZones {
				putU16(&b, uint16(z.OpCode))
				putU16(&b, z.EndRange)
			}
		}
	}
	return b.Bytes()
}

// DigitalRadarData encodes a generic format radial. Blocks are laid out VOL,
// ELV, RAD, then moments, skipping nil blocks; the block count, pointers and
// radial length are computed rather than taken from m.
func DigitalRadarData(m *message.DigitalRadarData) []byte {
	var blocks [][]byte
	if m.Volume != nil {
		blocks = append(blocks, volumeBlock(m.Volume))
	}
	if m.Elevation != nil {
		blocks = append(blocks, elevationBlock(m.Elevation))
	}
	if m.Radial != nil {
		blocks = append(blocks, radialBlock(m.Radial))
	}
	for i := range m.Moments {
		blocks = append(blocks, momentBlock(&m.Moments[i]))
	}

	headerLen := 32 + 4*len(blocks)
	total := headerLen
	for _, blk := range blocks {
		total += len(blk)
	}

	buf := make([]byte, headerLen, total)
	copy(buf[0:4], fmt.Sprintf("%-4s", m.RadarID))
	binary.BigEndian.PutUint32(buf[4:8], m.CollectionMillis)
	binary.BigEndian.PutUint16(buf[8:10], m.CollectionDate)
	binary.BigEndian.PutUint16(buf[10:12], m.AzimuthNumber)
	putF32At(buf, 12, m.AzimuthAngle)
	buf[16] = m.CompressionIndicator
	binary.BigEndian.PutUint16(buf[18:20], uint16(total))
	buf[20] = m.AzimuthResolution
	buf[21] = byte(m.RadialStatus)
	buf[22] = m.ElevationNumber
	buf[23] = m.CutSectorNumber
	putF32At(buf, 24, m.ElevationAngle)
	buf[28] = m.SpotBlanking
	buf[29] = m.AzimuthIndexingMode
	binary.BigEndian.PutUint16(buf[30:32], uint16(len(blocks)))

	ptr := headerLen
	for i, blk := range blocks {
		binary.BigEndian.PutUint32(buf[32+4*i:], uint32(ptr))
		ptr += len(blk)
	}
	for _, blk := range blocks {
		buf = append(buf, blk...)
	}
	return buf
}

func volumeBlock(v *message.VolumeData) []byte {
	b := make([]byte, 52)
	copy(b[0:4], "RVOL")
	binary.BigEndian.PutUint16(b[4:6], 52)
	b[6] = v.MajorVersion
	b[7] = v.MinorVersion
	putF32At(b, 8, v.Latitude)
	putF32At(b, 12, v.Longitude)
	binary.BigEndian.PutUint16(b[16:18], uint16(v.SiteHeight))
	binary.BigEndian.PutUint16(b[18:20], v.FeedhornHeight)
	putF32At(b, 20, v.CalibrationConstant)
	putF32At(b, 24, v.HorizontalShvTxPower)
	putF32At(b, 28, v.VerticalShvTxPower)
	putF32At(b, 32, v.SystemDifferentialReflectivity)
	putF32At(b, 36, v.InitialSystemDifferentialPhase)
	binary.BigEndian.PutUint16(b[40:42], v.VolumeCoveragePattern)
	binary.BigEndian.PutUint16(b[42:44], v.ProcessingStatus)
	binary.BigEndian.PutUint16(b[44:46], v.ZDRBiasEstimate)
	return b
}

func elevationBlock(e *message.ElevationData) []byte {
	b := make([]byte, 12)
	copy(b[0:4], "RELV")
	binary.BigEndian.PutUint16(b[4:6], 12)
	binary.BigEndian.PutUint16(b[6:8], uint16(e.AtmosphericAttenuation))
	putF32At(b, 8, e.CalibrationConstant)
	return b
}

func radialBlock(r *message.RadialData) []byte {
	b := make([]byte, 28)
	copy(b[0:4], "RRAD")
	binary.BigEndian.PutUint16(b[4:6], 28)
	binary.BigEndian.PutUint16(b[6:8], uint16(r.UnambiguousRange))
	putF32At(b, 8, r.NoiseLevelHorizontal)
	putF32At(b, 12, r.NoiseLevelVertical)
	binary.BigEndian.PutUint16(b[16:18], uint16(r.NyquistVelocity))
	binary.BigEndian.PutUint16(b[18:20], r.RadialFlags)
	putF32At(b, 20, r.CalibrationHorizontal)
	putF32At(b, 24, r.CalibrationVertical)
	return b
}

func momentBlock(md *message.MomentData) []byte {
	size := 28 + len(md.Gates)*int(md.WordSize)/8
	if size%2 == 1 {
		size++
	}
	b := make([]byte, size)
	b[0] = 'D'
	copy(b[1:4], fmt.Sprintf("%-3s", md.Name))
	binary.BigEndian.PutUint16(b[8:10], md.GateCount)
	binary.BigEndian.PutUint16(b[10:12], uint16(md.FirstGateRange))
	binary.BigEndian.PutUint16(b[12:14], md.GateInterval)
	binary.BigEndian.PutUint16(b[14:16], md.Tover)
	binary.BigEndian.PutUint16(b[16:18], uint16(md.SNRThreshold))
	b[18] = md.ControlFlags
	b[19] = md.WordSize
	putF32At(b, 20, md.Scale)
	putF32At(b, 24, md.Offset)

	data := b[28:]
	for i, g := range md.Gates {
		if md.WordSize == 8 {
			data[i] = byte(g)
		} else {
			binary.BigEndian.PutUint16(data[2*i:], g)
		}
	}
	return b
}

// Compress returns the bzip2 encoding of block.
func Compress(block []byte) []byte {
	var b bytes.Buffer
	zw, err := bzip2.NewWriter(&b, &bzip2.WriterConfig{Level: bzip2.BestSpeed})
	if err != nil {
		panic(fmt.Sprintf("level2test: bzip2 writer: %v", err))
	}
	if _, err := zw.Write(block); err != nil {
		panic(fmt.Sprintf("level2test: bzip2 write: %v", err))
	}
	if err := zw.Close(); err != nil {
		panic(fmt.Sprintf("level2test: bzip2 close: %v", err))
	}
	return b.Bytes()
}

// Record returns block compressed and prefixed with its length.
func Record(block []byte) []byte {
	payload := Compress(block)
	out := make([]byte, 4, 4+len(payload))
	binary.BigEndian.PutUint32(out, uint32(len(payload)))
	return append(out, payload...)
}

// FinalRecord is Record with the negative length that marks the last record.
func FinalRecord(block []byte) []byte {
	rec := Record(block)
	n := int32(binary.BigEndian.Uint32(rec[:4]))
	binary.BigEndian.PutUint32(rec[:4], uint32(-n))
	return rec
}

// VolumeHeader encodes a 24-byte volume header.
func VolumeHeader(h archive.VolumeHeader) []byte {
	b := make([]byte, archive.VolumeHeaderSize)
	copy(b[0:9], fmt.Sprintf("%-9s", h.Filename))
	copy(b[9:12], fmt.Sprintf("%-3s", h.Extension))
	binary.BigEndian.PutUint32(b[12:16], h.Date)
	binary.BigEndian.PutUint32(b[16:20], h.Millis)
	copy(b[20:24], fmt.Sprintf("%-4s", h.ICAO))
	return b
}

// SampleVolumeHeader returns the header used by SampleVolume.
func SampleVolumeHeader(site string) archive.VolumeHeader {
	return archive.VolumeHeader{
		Filename:  "AR2V0006.",
		Extension: "001",
		Date:      Date,
		Millis:    Millis,
		ICAO:      site,
	}
}

// Radial returns a radial carrying VOL, ELV and RAD blocks and an 8-bit
// reflectivity moment holding gates.
func Radial(site string, status message.RadialStatus, elevation uint8, azimuth float32, gates []uint16) *message.DigitalRadarData {
	return &message.DigitalRadarData{
		RadarID:           site,
		CollectionMillis:  Millis + uint32(azimuth*100),
		CollectionDate:    Date,
		AzimuthNumber:     uint16(azimuth) + 1,
		AzimuthAngle:      azimuth,
		AzimuthResolution: 2,
		RadialStatus:      status,
		ElevationNumber:   elevation,
		ElevationAngle:    0.5 * float32(elevation),
		Volume: &message.VolumeData{
			MajorVersion:          1,
			Latitude:              35.333,
			Longitude:             -97.278,
			SiteHeight:            370,
			FeedhornHeight:        20,
			CalibrationConstant:   -44.5,
			VolumeCoveragePattern: 212,
			ProcessingStatus:      1,
		},
		Elevation: &message.ElevationData{AtmosphericAttenuation: -12, CalibrationConstant: -44.5},
		Radial: &message.RadialData{
			UnambiguousRange:     4660,
			NoiseLevelHorizontal: -81.5,
			NoiseLevelVertical:   -81.2,
			NyquistVelocity:      2840,
		},
		Moments: []message.MomentData{{
			Name:           message.Reflectivity,
			GateCount:      uint16(len(gates)),
			FirstGateRange: 2125,
			GateInterval:   250,
			Tover:          50,
			SNRThreshold:   16,
			WordSize:       8,
			Scale:          2,
			Offset:         66,
			Gates:          gates,
		}},
	}
}

// SampleStatus returns an RDA status with AVSET enabled.
func SampleStatus() *message.RDAStatus {
	return &message.RDAStatus{
		Status:                  16,
		OperabilityStatus:       2,
		ControlStatus:           2,
		AverageTransmitterPower: 700,
		VolumeCoveragePattern:   212,
		BuildNumber:             2300,
		OperationalMode:         4,
		SuperResolutionStatus:   2,
		ScanDataFlags:           message.ScanDataFlags(0b00101),
	}
}

// SampleClutterMap returns a clutter filter map with the given number of
// elevation segments, each with one azimuth segment of one range zone.
func SampleClutterMap(segments int) *message.ClutterFilterMap {
	m := &message.ClutterFilterMap{
		GenerationDate:        Date,
		GenerationTime:        60_000,
		ElevationSegmentCount: uint16(segments),
	}
	for i := 0; i < segments; i++ {
		m.ElevationSegments = append(m.ElevationSegments, message.ElevationSegment{
			Number: i + 1,
			AzimuthSegments: []message.AzimuthSegment{{
				RangeZones: []message.RangeZone{{OpCode: message.OpCodeBypassMapInControl, EndRange: 511}},
			}},
		})
	}
	return m
}

// SampleVolume returns a compressed volume: a metadata record holding an RDA
// status and a clutter filter map, then one record of radials per sweep. Each
// sweep holds radialsPerSweep radials, the last of which closes the sweep.
func SampleVolume(site string, sweeps, radialsPerSweep int) []byte {
	metadata := append(
		Frame(Header(message.TypeRDAStatusData), RDAStatus(SampleStatus())),
		Frame(Header(message.TypeClutterFilterMap), ClutterFilterMap(SampleClutterMap(2)))...,
	)

	out := VolumeHeader(SampleVolumeHeader(site))
	out = append(out, Record(metadata)...)

	for s := 0; s < sweeps; s++ {
		var block []byte
		for r := 0; r < radialsPerSweep; r++ {
			status := sweepStatus(s, sweeps, r, radialsPerSweep)
			azimuth := float32(r) * 360 / float32(radialsPerSweep)
			gates := []uint16{0, 1, 80, 120, 160, 200}
			radial := Radial(site, status, uint8(s+1), azimuth, gates)
			block = append(block, Frame(Header(message.TypeDigitalRadarDataGenericFormat), DigitalRadarData(radial))...)
		}
		if s == sweeps-1 {
			out = append(out, FinalRecord(block)...)
		} else {
			out = append(out, Record(block)...)
		}
	}
	return out
}

func sweepStatus(sweep, sweeps, radial, radials int) message.RadialStatus {
	switch {
	case radial == 0 && sweep == 0:
		return message.VolumeScanStart
	case radial == 0 && sweep == sweeps-1:
		return message.ElevationStartVCPFinal
	case radial == 0:
		return message.ElevationStart
	case radial == radials-1 && sweep == sweeps-1:
		return message.VolumeScanEnd
	case radial == radials-1:
		return message.ElevationEnd
	}
	return message.IntermediateRadialData
}

func putU16(b *bytes.Buffer, v uint16) {
	var tmp [2]byte
	binary.BigEndian.PutUint16(tmp[:], v)
	b.Write(tmp[:])
}

func putF32At(b []byte, off int, v float32) {
	binary.BigEndian.PutUint32(b[off:off+4], math.Float32bits(v))
}
