// Package message decodes the fixed and variable length message frames carried
// inside decompressed Archive II records.
package message

import "fmt"

// Type is the message type code from the message header.
type Type uint8

const (
	TypeDigitalRadarData              Type = 1
	TypeRDAStatusData                 Type = 2
	TypePerformanceMaintenanceData    Type = 3
	TypeConsoleMessage                Type = 4
	TypeVolumeCoveragePattern         Type = 5
	TypeRDAControlCommands            Type = 6
	TypeRPGVolumeCoveragePattern      Type = 7
	TypeClutterCensorZones            Type = 8
	TypeRequestForData                Type = 9
	TypeRPGConsoleMessage             Type = 10
	TypeLoopbackTestRDAToRPG          Type = 11
	TypeLoopbackTestRPGToRDA          Type = 12
	TypeClutterFilterBypassMap        Type = 13
	TypeClutterFilterMap              Type = 15
	TypeRDAAdaptationData             Type = 18
	TypeDigitalRadarDataGenericFormat Type = 31
	TypeRDAPRFData                    Type = 32
	TypeRDALogData                    Type = 33
)

var typeNames = map[Type]string{
	TypeDigitalRadarData:              "digital radar data",
	TypeRDAStatusData:                 "RDA status data",
	TypePerformanceMaintenanceData:    "performance/maintenance data",
	TypeConsoleMessage:                "console message",
	TypeVolumeCoveragePattern:         "volume coverage pattern",
	TypeRDAControlCommands:            "RDA control commands",
	TypeRPGVolumeCoveragePattern:      "RPG volume coverage pattern",
	TypeClutterCensorZones:            "clutter censor zones",
	TypeRequestForData:                "request for data",
	TypeRPGConsoleMessage:             "RPG console message",
	TypeLoopbackTestRDAToRPG:          "loopback test RDA to RPG",
	TypeLoopbackTestRPGToRDA:          "loopback test RPG to RDA",
	TypeClutterFilterBypassMap:        "clutter filter bypass map",
	TypeClutterFilterMap:              "clutter filter map",
	TypeRDAAdaptationData:             "RDA adaptation data",
	TypeDigitalRadarDataGenericFormat: "digital radar data generic format",
	TypeRDAPRFData:                    "RDA PRF data",
	TypeRDALogData:                    "RDA log data",
}

// Known reports whether t is one of the documented message type codes.
func (t Type) Known() bool {
	_, ok := typeNames[t]
	return ok
}

func (t Type) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("type %d", uint8(t))
}

// Message is the decoded body of a frame. The implementations are *RDAStatus,
// *ClutterFilterMap, *DigitalRadarData and *Unrecognized.
type Message interface {
	Type() Type
	isMessage()
}

// Unrecognized marks a frame whose type has no decoder, or a continuation
// segment of a multi-segment message. The frame is still consumed in full.
type Unrecognized struct {
	Code    Type
	Segment uint16
}

func (m *Unrecognized) Type() Type { return m.Code }

func (*Unrecognized) isMessage() {}
func (*RDAStatus) isMessage() {}
func (*ClutterFilterMap) isMessage() {}
func (*DigitalRadarData) isMessage() {}
