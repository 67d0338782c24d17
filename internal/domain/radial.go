package domain

import (
	"time"

	"github.com/couchcryptid/nexrad-etl/internal/message"
)

// Moment is one moment's gates along a radial, copied out of the decoded frame.
type Moment struct {
	FirstGateRange int16  // meters
	GateInterval   uint16 // meters
	WordSize       uint8
	Scale          float32
	Offset         float32
	Gates          []uint16
}

// Radial is a single beam position of base data.
type Radial struct {
	Site            string
	CollectionTime  time.Time
	AzimuthNumber   uint16
	AzimuthAngle    float32
	AzimuthSpacing  float32
	ElevationNumber uint8
	ElevationAngle  float32
	Status          message.RadialStatus
	CoveragePattern uint16
	Moments         map[message.MomentName]Moment
}

// NewRadial copies a decoded type 31 message into a Radial. The gate slices are
// copied so the Radial never aliases decoder buffers.
func NewRadial(m *message.DigitalRadarData) Radial {
	r := Radial{
		Site:            m.RadarID,
		CollectionTime:  m.CollectionTime(),
		AzimuthNumber:   m.AzimuthNumber,
		AzimuthAngle:    m.AzimuthAngle,
		AzimuthSpacing:  m.AzimuthSpacing(),
		ElevationNumber: m.ElevationNumber,
		ElevationAngle:  m.ElevationAngle,
		Status:          m.RadialStatus,
		CoveragePattern: m.VolumeCoveragePattern(),
		Moments:         make(map[message.MomentName]Moment, len(m.Moments)),
	}
	for _, md := range m.Moments {
		gates := make([]uint16, len(md.Gates))
		copy(gates, md.Gates)
		r.Moments[md.Name] = Moment{
			FirstGateRange: md.FirstGateRange,
			GateInterval:   md.GateInterval,
			WordSize:       md.WordSize,
			Scale:          md.Scale,
			Offset:         md.Offset,
			Gates:          gates,
		}
	}
	return r
}

// Sweep is the set of radials collected at one elevation cut.
type Sweep struct {
	ElevationNumber uint8
	ElevationAngle  float32
	Radials         []Radial
}

// StartTime returns the collection time of the first radial.
func (s Sweep) StartTime() time.Time {
	if len(s.Radials) == 0 {
		return time.Time{}
	}
	return s.Radials[0].CollectionTime
}

// EndTime returns the collection time of the last radial.
func (s Sweep) EndTime() time.Time {
	if len(s.Radials) == 0 {
		return time.Time{}
	}
	return s.Radials[len(s.Radials)-1].CollectionTime
}

// MaxGates returns, per moment, the largest gate count seen on any radial.
func (s Sweep) MaxGates() map[message.MomentName]int {
	out := make(map[message.MomentName]int)
	for _, r := range s.Radials {
		for name, m := range r.Moments {
			if len(m.Gates) > out[name] {
				out[name] = len(m.Gates)
			}
		}
	}
	return out
}

// Scan is one complete volume scan.
type Scan struct {
	CoveragePattern uint16
	Sweeps          []Sweep
}

// RadialCount returns the number of radials across all sweeps.
func (s Scan) RadialCount() int {
	n := 0
	for _, sw := range s.Sweeps {
		n += len(sw.Radials)
	}
	return n
}
