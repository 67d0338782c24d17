package message

import (
	"encoding/binary"
	"fmt"
)

const (
	alarmCodeCount = 14
	rdaStatusSize  = 2 * (26 + alarmCodeCount + 1)
)

// ScanDataFlags is the raw RDA scan and data flags word. Accessors decode the
// bits on every call so the raw value stays the single source of truth.
type ScanDataFlags uint16

const (
	flagAVSETEnabled  ScanDataFlags = 1 << 0
	flagAVSETDisabled ScanDataFlags = 1 << 1
	flagEBCEnabled    ScanDataFlags = 1 << 2
	flagRDALogData    ScanDataFlags = 1 << 3
	flagTimeSeries    ScanDataFlags = 1 << 4
)

// Validate checks that exactly one of the AVSET enabled and disabled bits is set.
func (f ScanDataFlags) Validate() error {
	enabled := f&flagAVSETEnabled != 0
	disabled := f&flagAVSETDisabled != 0
	if enabled == disabled {
		return fmt.Errorf("%w: AVSET enabled=%t disabled=%t (flags 0x%04X)",
			ErrInconsistentFlagState, enabled, disabled, uint16(f))
	}
	return nil
}

// AVSETEnabled reports whether automated volume scan evaluation and termination is on.
func (f ScanDataFlags) AVSETEnabled() (bool, error) {
	if err := f.Validate(); err != nil {
		return false, err
	}
	return f&flagAVSETEnabled != 0, nil
}

// EBCEnabled reports whether elevation blockage correction is on.
func (f ScanDataFlags) EBCEnabled() bool { return f&flagEBCEnabled != 0 }

// RDALogDataEnabled reports whether RDA log data is being recorded.
func (f ScanDataFlags) RDALogDataEnabled() bool { return f&flagRDALogData != 0 }

// TimeSeriesRecordingEnabled reports whether time series data recording is on.
func (f ScanDataFlags) TimeSeriesRecordingEnabled() bool { return f&flagTimeSeries != 0 }

// RDAStatus is message type 2.
type RDAStatus struct {
	Status                                      uint16
	OperabilityStatus                           uint16
	ControlStatus                               uint16
	AuxiliaryPowerGeneratorState                uint16
	AverageTransmitterPower                     uint16 // watts
	HorizontalReflectivityCalibrationCorrection int16  // 0.01 dB
	DataTransmissionEnabled                     uint16
	VolumeCoveragePattern                       int16 // negative when selected locally
	RDAControlAuthorization                     uint16
	BuildNumber                                 uint16
	OperationalMode                             uint16
	SuperResolutionStatus                       uint16
	ClutterMitigationDecisionStatus             uint16
	ScanDataFlags                               ScanDataFlags
	AlarmSummary                                uint16
	CommandAcknowledgement                      uint16
	ChannelControlStatus                        uint16
	SpotBlankingStatus                          uint16
	BypassMapGenerationDate                     uint16
	BypassMapGenerationTime                     uint16 // minutes past midnight
	ClutterFilterMapGenerationDate              uint16
	ClutterFilterMapGenerationTime              uint16 // minutes past midnight
	VerticalReflectivityCalibrationCorrection   int16  // 0.01 dB
	TransitionPowerSourceStatus                 uint16
	RMSControlStatus                            uint16
	PerformanceCheckStatus                      uint16
	AlarmCodes                                  [alarmCodeCount]uint16
	SignalProcessingOptions                     uint16
}

func (m *RDAStatus) Type() Type { return TypeRDAStatusData }

// Build returns the RDA software build as a decimal version, e.g. 19.0.
func (m *RDAStatus) Build() float64 {
	if m.BuildNumber >= 1000 {
		return float64(m.BuildNumber) / 100
	}
	return float64(m.BuildNumber) / 10
}

// ActiveAlarms returns the non-zero alarm codes.
func (m *RDAStatus) ActiveAlarms() []uint16 {
	var out []uint16
	for _, code := range m.AlarmCodes {
		if code != 0 {
			out = append(out, code)
		}
	}
	return out
}

// DecodeRDAStatus decodes an RDA status body. The remainder of the fixed frame
// slot after the status words is ignored.
func DecodeRDAStatus(body []byte) (*RDAStatus, error) {
	if len(body) < rdaStatusSize {
		return nil, fmt.Errorf("%w: RDA status needs %d bytes, have %d", ErrTruncatedBody, rdaStatusSize, len(body))
	}

	hw := func(i int) uint16 { return binary.BigEndian.Uint16(body[2*i : 2*i+2]) }

	m := &RDAStatus{
		Status:                                      hw(0),
		OperabilityStatus:                           hw(1),
		ControlStatus:                               hw(2),
		AuxiliaryPowerGeneratorState:                hw(3),
		AverageTransmitterPower:                     hw(4),
		HorizontalReflectivityCalibrationCorrection: int16(hw(5)),
		DataTransmissionEnabled:                     hw(6),
		VolumeCoveragePattern:                       int16(hw(7)),
		RDAControlAuthorization:                     hw(8),
		BuildNumber:                                 hw(9),
		OperationalMode:                             hw(10),
		SuperResolutionStatus:                       hw(11),
		ClutterMitigationDecisionStatus:             hw(12),
		ScanDataFlags:                               ScanDataFlags(hw(13)),
		AlarmSummary:                                hw(14),
		CommandAcknowledgement:                      hw(15),
		ChannelControlStatus:                        hw(16),
		SpotBlankingStatus:                          hw(17),
		BypassMapGenerationDate:                     hw(18),
		BypassMapGenerationTime:                     hw(19),
		ClutterFilterMapGenerationDate:              hw(20),
		ClutterFilterMapGenerationTime:              hw(21),
		VerticalReflectivityCalibrationCorrection:   int16(hw(22)),
		TransitionPowerSourceStatus:                 hw(23),
		RMSControlStatus:                            hw(24),
		PerformanceCheckStatus:                      hw(25),
		SignalProcessingOptions:                     hw(26 + alarmCodeCount),
	}
	for i := range m.AlarmCodes {
		m.AlarmCodes[i] = hw(26 + i)
	}

	if err := m.ScanDataFlags.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}
