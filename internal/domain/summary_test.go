package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/couchcryptid/nexrad-etl/internal/level2test"
	"github.com/couchcryptid/nexrad-etl/internal/message"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2024, time.April, 26, 15, 10, 0, 0, time.UTC)

func freezeClock(t *testing.T) {
	t.Helper()
	SetClock(clockwork.NewFakeClockAt(fixedNow))
	t.Cleanup(func() { SetClock(nil) })
}

func TestSummarizeVolume(t *testing.T) {
	freezeClock(t)

	v, err := DecodeVolume(level2test.SampleVolume("KTLX", 2, 4), DecodeOptions{})
	require.NoError(t, err)

	s, err := SummarizeVolume(v, "KTLX20240426_150000_V06")
	require.NoError(t, err)

	assert.Equal(t, "KTLX", s.Site)
	assert.Equal(t, time.Date(2024, time.April, 26, 15, 0, 0, 0, time.UTC), s.VolumeTime)
	assert.Equal(t, "06", s.ArchiveVersion)
	assert.True(t, s.Compressed)
	assert.Equal(t, 3, s.Records)
	assert.Equal(t, fixedNow, s.ProcessedAt)
	assert.Equal(t, "KTLX20240426_150000_V06", s.SourceKey)
	assert.Len(t, s.ID, 64)
	assert.Equal(t, 8, s.FrameCounts[message.TypeDigitalRadarDataGenericFormat.String()])

	require.NotNil(t, s.Status)
	assert.Equal(t, int16(212), s.Status.CoveragePattern)
	assert.True(t, s.Status.AVSETEnabled)
	assert.True(t, s.Status.EBCEnabled)
	assert.False(t, s.Status.RDALogDataEnabled)
	assert.InDelta(t, 23.0, s.Status.Build, 0.001)

	require.NotNil(t, s.ClutterMap)
	assert.Equal(t, 2, s.ClutterMap.ElevationSegments)
	assert.Equal(t, 2, s.ClutterMap.RangeZones)

	require.NotNil(t, s.Location)
	assert.InDelta(t, 35.333, s.Location.Lat, 0.0001)
	assert.InDelta(t, -97.278, s.Location.Lon, 0.0001)
	assert.Equal(t, 370, s.Location.HeightMeters)

	require.Len(t, s.Scans, 1)
	scan := s.Scans[0]
	assert.Equal(t, uint16(212), scan.CoveragePattern)
	require.Len(t, scan.Sweeps, 2)
	for i, sw := range scan.Sweeps {
		assert.Equal(t, uint8(i+1), sw.ElevationNumber)
		assert.Equal(t, 3, sw.Radials)
		assert.Equal(t, map[string]int{"REF": 6}, sw.Gates)
	}
	assert.True(t, scan.EndTime.After(scan.StartTime))
	assert.Zero(t, s.PendingRadials)
}

func TestSummarizeVolume_MalformedSequence(t *testing.T) {
	radial := level2test.Radial("KTLX", message.IntermediateRadialData, 1, 0, []uint16{2, 3})
	data := level2test.Record(level2test.Frame(level2test.Header(message.TypeDigitalRadarDataGenericFormat), level2test.DigitalRadarData(radial)))

	v, err := DecodeVolume(data, DecodeOptions{})
	require.NoError(t, err)

	_, err = SummarizeVolume(v, "")
	require.ErrorIs(t, err, ErrMalformedRadialSequence)
}

func TestSummarizeVolume_HeaderlessUsesFirstRadial(t *testing.T) {
	freezeClock(t)

	radial := level2test.Radial("KOUN", message.VolumeScanStart, 1, 0, []uint16{2, 3})
	data := level2test.Record(level2test.Frame(level2test.Header(message.TypeDigitalRadarDataGenericFormat), level2test.DigitalRadarData(radial)))

	v, err := DecodeVolume(data, DecodeOptions{})
	require.NoError(t, err)

	s, err := SummarizeVolume(v, "")
	require.NoError(t, err)
	assert.Equal(t, "KOUN", s.Site)
	assert.Equal(t, time.Date(2024, time.April, 26, 15, 0, 0, 0, time.UTC), s.VolumeTime)
	assert.Empty(t, s.Scans)
	assert.Equal(t, 1, s.PendingRadials)
	assert.Nil(t, s.Status)
}

func TestGenerateID(t *testing.T) {
	at := time.Date(2024, time.April, 26, 15, 0, 0, 0, time.UTC)

	a := generateID("KTLX", at, "key")
	assert.Equal(t, a, generateID("ktlx", at, "key"), "site is case-insensitive")
	assert.NotEqual(t, a, generateID("KTLX", at.Add(time.Second), "key"))
	assert.NotEqual(t, a, generateID("KTLX", at, "other"))
}

func TestSerializeVolumeSummary(t *testing.T) {
	s := VolumeSummary{
		ID:          "abc123",
		Site:        "KTLX",
		VolumeTime:  time.Date(2024, time.April, 26, 15, 0, 0, 0, time.UTC),
		FrameCounts: map[string]int{"RDA status data": 1},
		Scans:       []ScanSummary{},
		ProcessedAt: fixedNow,
	}

	out, err := SerializeVolumeSummary(s)
	require.NoError(t, err)

	assert.Equal(t, []byte("abc123"), out.Key)
	assert.Equal(t, "KTLX", out.Headers["site"])
	assert.Equal(t, "2024-04-26T15:10:00Z", out.Headers["processed_at"])

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(out.Value, &decoded))
	assert.Equal(t, "abc123", decoded["id"])
	assert.Equal(t, "2024-04-26T15:00:00Z", decoded["volume_time"])
	assert.NotContains(t, decoded, "rda_status")
	assert.NotContains(t, decoded, "geo_source")
}

func TestSetClock(t *testing.T) {
	freezeClock(t)
	assert.Equal(t, fixedNow, clock.Now())

	SetClock(nil)
	assert.WithinDuration(t, time.Now(), clock.Now(), time.Second)
}
