package domain

import (
	"testing"
	"time"

	"github.com/couchcryptid/nexrad-etl/internal/level2test"
	"github.com/couchcryptid/nexrad-etl/internal/message"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRadial_CopiesGates(t *testing.T) {
	gates := []uint16{2, 3, 4}
	m := &message.DigitalRadarData{
		RadarID:           "KTLX",
		AzimuthResolution: 1,
		RadialStatus:      message.IntermediateRadialData,
		Moments:           []message.MomentData{{Name: message.Velocity, GateCount: 3, WordSize: 8, Gates: gates}},
	}

	r := NewRadial(m)
	gates[0] = 99

	require.Contains(t, r.Moments, message.Velocity)
	assert.Equal(t, []uint16{2, 3, 4}, r.Moments[message.Velocity].Gates)
	assert.InDelta(t, 0.5, r.AzimuthSpacing, 0.0001)
	assert.Zero(t, r.CoveragePattern)
}

func TestNewRadial_ReflectivityRoundTrip(t *testing.T) {
	gates := make([]uint16, 920)
	for i := range gates {
		gates[i] = uint16(i % 256)
	}
	frame := level2test.Frame(
		level2test.Header(message.TypeDigitalRadarDataGenericFormat),
		level2test.DigitalRadarData(level2test.Radial("KTLX", message.ElevationStart, 3, 90, gates)),
	)

	f, err := message.DecodeFrame(frame)
	require.NoError(t, err)
	m, ok := f.Message.(*message.DigitalRadarData)
	require.True(t, ok)

	r := NewRadial(m)

	assert.Equal(t, "KTLX", r.Site)
	assert.Equal(t, message.ElevationStart, r.Status)
	assert.Equal(t, uint8(3), r.ElevationNumber)
	assert.InDelta(t, 1.5, r.ElevationAngle, 0.0001)
	assert.InDelta(t, 90.0, r.AzimuthAngle, 0.0001)
	assert.Equal(t, uint16(212), r.CoveragePattern)
	assert.Equal(t, time.Date(2024, time.April, 26, 15, 0, 9, 0, time.UTC), r.CollectionTime)

	require.Contains(t, r.Moments, message.Reflectivity)
	ref := r.Moments[message.Reflectivity]
	assert.Equal(t, gates, ref.Gates)
	assert.Equal(t, int16(2125), ref.FirstGateRange)
	assert.Equal(t, uint16(250), ref.GateInterval)
	assert.Equal(t, uint8(8), ref.WordSize)
}

func TestSweep_Accessors(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		var s Sweep
		assert.True(t, s.StartTime().IsZero())
		assert.True(t, s.EndTime().IsZero())
		assert.Empty(t, s.MaxGates())
	})

	t.Run("populated", func(t *testing.T) {
		start := time.Date(2024, time.April, 26, 15, 0, 0, 0, time.UTC)
		s := Sweep{Radials: []Radial{
			{CollectionTime: start, Moments: map[message.MomentName]Moment{
				message.Reflectivity: {Gates: make([]uint16, 4)},
			}},
			{CollectionTime: start.Add(time.Second), Moments: map[message.MomentName]Moment{
				message.Reflectivity: {Gates: make([]uint16, 6)},
				message.Velocity:     {Gates: make([]uint16, 2)},
			}},
		}}

		assert.Equal(t, start, s.StartTime())
		assert.Equal(t, start.Add(time.Second), s.EndTime())
		assert.Equal(t, map[message.MomentName]int{message.Reflectivity: 6, message.Velocity: 2}, s.MaxGates())
		assert.Equal(t, 2, Scan{Sweeps: []Sweep{s}}.RadialCount())
	})
}
