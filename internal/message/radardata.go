package message

import (
	"encoding/binary"
	"fmt"
	"math"
	"strings"
	"time"
)

const (
	dataHeaderSize     = 32
	blockPointerSize   = 4
	blockIDSize        = 4
	volumeBlockSize    = 44
	volumeBlockSizeExt = 52
	elevationBlockSize = 12
	radialBlockSize    = 20
	radialBlockSizeExt = 28
	momentHeaderSize   = 28
)

// RadialStatus marks a radial's position within its sweep and volume.
type RadialStatus uint8

const (
	ElevationStart         RadialStatus = 0
	IntermediateRadialData RadialStatus = 1
	ElevationEnd           RadialStatus = 2
	VolumeScanStart        RadialStatus = 3
	VolumeScanEnd          RadialStatus = 4
	ElevationStartVCPFinal RadialStatus = 5
)

func (s RadialStatus) String() string {
	switch s {
	case ElevationStart:
		return "elevation start"
	case IntermediateRadialData:
		return "intermediate"
	case ElevationEnd:
		return "elevation end"
	case VolumeScanStart:
		return "volume scan start"
	case VolumeScanEnd:
		return "volume scan end"
	case ElevationStartVCPFinal:
		return "elevation start (final in VCP)"
	}
	return fmt.Sprintf("radial status %d", uint8(s))
}

// MomentName is the three character data block name of a moment, with
// padding removed.
type MomentName string

const (
	Reflectivity             MomentName = "REF"
	Velocity                 MomentName = "VEL"
	SpectrumWidth            MomentName = "SW"
	DifferentialReflectivity MomentName = "ZDR"
	DifferentialPhase        MomentName = "PHI"
	CorrelationCoefficient   MomentName = "RHO"
	ClutterFilterPower       MomentName = "CFP"
)

// DigitalRadarData is message type 31, one radial of generic format base data.
type DigitalRadarData struct {
	RadarID              string
	CollectionMillis     uint32
	CollectionDate       uint16
	AzimuthNumber        uint16
	AzimuthAngle         float32 // degrees
	CompressionIndicator uint8
	RadialLength         uint16
	AzimuthResolution    uint8 // 1 = 0.5 degree, 2 = 1.0 degree
	RadialStatus         RadialStatus
	ElevationNumber      uint8
	CutSectorNumber      uint8
	ElevationAngle       float32 // degrees
	SpotBlanking         uint8
	AzimuthIndexingMode  uint8
	DataBlockCount       uint16

	Volume    *VolumeData
	Elevation *ElevationData
	Radial    *RadialData
	Moments   []MomentData
}

// VolumeData is the VOL block.
type VolumeData struct {
	MajorVersion                   uint8
	MinorVersion                   uint8
	Latitude                       float32
	Longitude                      float32
	SiteHeight                     int16  // meters above sea level
	FeedhornHeight                 uint16 // meters above ground
	CalibrationConstant            float32
	HorizontalShvTxPower           float32 // kW
	VerticalShvTxPower             float32 // kW
	SystemDifferentialReflectivity float32
	InitialSystemDifferentialPhase float32
	VolumeCoveragePattern          uint16
	ProcessingStatus               uint16
	ZDRBiasEstimate                uint16 // present in extended blocks only
}

// ElevationData is the ELV block.
type ElevationData struct {
	AtmosphericAttenuation int16 // 0.001 dB/km
	CalibrationConstant    float32
}

// RadialData is the RAD block.
type RadialData struct {
	UnambiguousRange      int16 // 0.1 km
	NoiseLevelHorizontal  float32
	NoiseLevelVertical    float32
	NyquistVelocity       int16 // 0.01 m/s
	RadialFlags           uint16
	CalibrationHorizontal float32
	CalibrationVertical   float32
}

// MomentData is one data moment block. Gates hold the raw encoded samples;
// physical values are (gate - Offset) / Scale for gates above 1.
type MomentData struct {
	Name           MomentName
	GateCount      uint16
	FirstGateRange int16  // meters
	GateInterval   uint16 // meters
	Tover          uint16
	SNRThreshold   int16
	ControlFlags   uint8
	WordSize       uint8 // bits per gate, 8 or 16
	Scale          float32
	Offset         float32
	Gates          []uint16
}

func (m *DigitalRadarData) Type() Type { return TypeDigitalRadarDataGenericFormat }

// CollectionTime returns the radial collection time in UTC.
func (m *DigitalRadarData) CollectionTime() time.Time {
	return julianTime(m.CollectionDate, m.CollectionMillis)
}

// AzimuthSpacing returns the azimuthal width of the radial in degrees.
func (m *DigitalRadarData) AzimuthSpacing() float32 {
	if m.AzimuthResolution == 1 {
		return 0.5
	}
	return 1.0
}

// VolumeCoveragePattern returns the VCP from the VOL block, or 0 when absent.
func (m *DigitalRadarData) VolumeCoveragePattern() uint16 {
	if m.Volume == nil {
		return 0
	}
	return m.Volume.VolumeCoveragePattern
}

// Moment returns the named moment block if the radial carries it.
func (m *DigitalRadarData) Moment(name MomentName) (*MomentData, bool) {
	for i := range m.Moments {
		if m.Moments[i].Name == name {
			return &m.Moments[i], true
		}
	}
	return nil, false
}

// DecodeDigitalRadarData decodes a generic format radial. Block pointers are
// offsets from the start of body; a zero pointer is an absent block.
func DecodeDigitalRadarData(body []byte) (*DigitalRadarData, error) {
	if len(body) < dataHeaderSize {
		return nil, fmt.Errorf("%w: data header block needs %d bytes, have %d", ErrTruncatedBody, dataHeaderSize, len(body))
	}

	m := &DigitalRadarData{
		RadarID:              strings.TrimRight(string(body[0:4]), "\x00 "),
		CollectionMillis:     binary.BigEndian.Uint32(body[4:8]),
		CollectionDate:       binary.BigEndian.Uint16(body[8:10]),
		AzimuthNumber:        binary.BigEndian.Uint16(body[10:12]),
		AzimuthAngle:         float32At(body, 12),
		CompressionIndicator: body[16],
		RadialLength:         binary.BigEndian.Uint16(body[18:20]),
		AzimuthResolution:    body[20],
		RadialStatus:         RadialStatus(body[21]),
		ElevationNumber:      body[22],
		CutSectorNumber:      body[23],
		ElevationAngle:       float32At(body, 24),
		SpotBlanking:         body[28],
		AzimuthIndexingMode:  body[29],
		DataBlockCount:       binary.BigEndian.Uint16(body[30:32]),
	}

	count := int(m.DataBlockCount)
	if len(body) < dataHeaderSize+blockPointerSize*count {
		return nil, fmt.Errorf("%w: %d block pointers overrun %d byte message", ErrTruncatedBody, count, len(body))
	}

	for i := 0; i < count; i++ {
		at := dataHeaderSize + blockPointerSize*i
		ptr := int(binary.BigEndian.Uint32(body[at : at+blockPointerSize]))
		if ptr == 0 {
			continue
		}
		if ptr < dataHeaderSize || ptr+blockIDSize > len(body) {
			return nil, fmt.Errorf("%w: pointer %d is %d, message is %d bytes", ErrBlockOutOfRange, i, ptr, len(body))
		}
		if err := m.decodeBlock(body[ptr:]); err != nil {
			return nil, fmt.Errorf("block %d at offset %d: %w", i, ptr, err)
		}
	}

	var missing []string
	if m.Volume == nil {
		missing = append(missing, "VOL")
	}
	if m.Elevation == nil {
		missing = append(missing, "ELV")
	}
	if m.Radial == nil {
		missing = append(missing, "RAD")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingRequiredBlock, strings.Join(missing, ", "))
	}
	return m, nil
}

func (m *DigitalRadarData) decodeBlock(block []byte) error {
	kind := block[0]
	name := strings.TrimRight(string(block[1:4]), "\x00 ")

	if kind == 'D' {
		moment, err := decodeMoment(MomentName(name), block)
		if err != nil {
			return err
		}
		m.Moments = append(m.Moments, moment)
		return nil
	}

	var err error
	switch name {
	case "VOL":
		m.Volume, err = decodeVolumeData(block)
	case "ELV":
		m.Elevation, err = decodeElevationData(block)
	case "RAD":
		m.Radial, err = decodeRadialData(block)
	}
	return err
}

func decodeVolumeData(block []byte) (*VolumeData, error) {
	if len(block) < volumeBlockSize {
		return nil, fmt.Errorf("%w: VOL block needs %d bytes, have %d", ErrTruncatedBody, volumeBlockSize, len(block))
	}
	v := &VolumeData{
		MajorVersion:                   block[6],
		MinorVersion:                   block[7],
		Latitude:                       float32At(block, 8),
		Longitude:                      float32At(block, 12),
		SiteHeight:                     int16(binary.BigEndian.Uint16(block[16:18])),
		FeedhornHeight:                 binary.BigEndian.Uint16(block[18:20]),
		CalibrationConstant:            float32At(block, 20),
		HorizontalShvTxPower:           float32At(block, 24),
		VerticalShvTxPower:             float32At(block, 28),
		SystemDifferentialReflectivity: float32At(block, 32),
		InitialSystemDifferentialPhase: float32At(block, 36),
		VolumeCoveragePattern:          binary.BigEndian.Uint16(block[40:42]),
		ProcessingStatus:               binary.BigEndian.Uint16(block[42:44]),
	}
	lrtup := int(binary.BigEndian.Uint16(block[4:6]))
	if lrtup >= volumeBlockSizeExt && len(block) >= volumeBlockSizeExt {
		v.ZDRBiasEstimate = binary.BigEndian.Uint16(block[44:46])
	}
	return v, nil
}

func decodeElevationData(block []byte) (*ElevationData, error) {
	if len(block) < elevationBlockSize {
		return nil, fmt.Errorf("%w: ELV block needs %d bytes, have %d", ErrTruncatedBody, elevationBlockSize, len(block))
	}
	return &ElevationData{
		AtmosphericAttenuation: int16(binary.BigEndian.Uint16(block[6:8])),
		CalibrationConstant:    float32At(block, 8),
	}, nil
}

func decodeRadialData(block []byte) (*RadialData, error) {
	if len(block) < radialBlockSize {
		return nil, fmt.Errorf("%w: RAD block needs %d bytes, have %d", ErrTruncatedBody, radialBlockSize, len(block))
	}
	r := &RadialData{
		UnambiguousRange:     int16(binary.BigEndian.Uint16(block[6:8])),
		NoiseLevelHorizontal: float32At(block, 8),
		NoiseLevelVertical:   float32At(block, 12),
		NyquistVelocity:      int16(binary.BigEndian.Uint16(block[16:18])),
		RadialFlags:          binary.BigEndian.Uint16(block[18:20]),
	}
	lrtup := int(binary.BigEndian.Uint16(block[4:6]))
	if lrtup >= radialBlockSizeExt && len(block) >= radialBlockSizeExt {
		r.CalibrationHorizontal = float32At(block, 20)
		r.CalibrationVertical = float32At(block, 24)
	}
	return r, nil
}

func decodeMoment(name MomentName, block []byte) (MomentData, error) {
	if len(block) < momentHeaderSize {
		return MomentData{}, fmt.Errorf("%w: %s moment header needs %d bytes, have %d",
			ErrTruncatedBody, name, momentHeaderSize, len(block))
	}
	md := MomentData{
		Name:           name,
		GateCount:      binary.BigEndian.Uint16(block[8:10]),
		FirstGateRange: int16(binary.BigEndian.Uint16(block[10:12])),
		GateInterval:   binary.BigEndian.Uint16(block[12:14]),
		Tover:          binary.BigEndian.Uint16(block[14:16]),
		SNRThreshold:   int16(binary.BigEndian.Uint16(block[16:18])),
		ControlFlags:   block[18],
		WordSize:       block[19],
		Scale:          float32At(block, 20),
		Offset:         float32At(block, 24),
	}
	if md.WordSize != 8 && md.WordSize != 16 {
		return MomentData{}, fmt.Errorf("%w: %s moment word size %d", ErrUnsupportedWordSize, name, md.WordSize)
	}

	n := int(md.GateCount)
	data := block[momentHeaderSize:]
	if need := n * int(md.WordSize) / 8; need > len(data) {
		return MomentData{}, fmt.Errorf("%w: %s moment declares %d gates (%d bytes), %d bytes remain",
			ErrInvalidGateCount, name, n, need, len(data))
	}

	md.Gates = make([]uint16, n)
	if md.WordSize == 8 {
		for i := range md.Gates {
			md.Gates[i] = uint16(data[i])
		}
	} else {
		for i := range md.Gates {
			md.Gates[i] = binary.BigEndian.Uint16(data[2*i : 2*i+2])
		}
	}
	return md, nil
}

func float32At(b []byte, off int) float32 {
	return math.Float32frombits(binary.BigEndian.Uint32(b[off : off+4]))
}
