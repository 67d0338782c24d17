package domain

import (
	"testing"

	"github.com/couchcryptid/nexrad-etl/internal/message"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func radialsWithStatus(statuses ...message.RadialStatus) []Radial {
	out := make([]Radial, len(statuses))
	elevation := uint8(1)
	for i, s := range statuses {
		if s == message.ElevationStart || s == message.ElevationStartVCPFinal {
			elevation++
		}
		out[i] = Radial{
			Site:            "KTLX",
			Status:          s,
			ElevationNumber: elevation,
			ElevationAngle:  0.5 * float32(elevation),
			AzimuthNumber:   uint16(i + 1),
			CoveragePattern: 212,
		}
	}
	return out
}

func TestAssembleScans_SweepMembership(t *testing.T) {
	radials := radialsWithStatus(
		message.VolumeScanStart,
		message.IntermediateRadialData,
		message.IntermediateRadialData,
		message.ElevationEnd,
		message.ElevationStart,
		message.IntermediateRadialData,
		message.ElevationEnd,
		message.VolumeScanEnd,
	)

	scans, pending, err := AssembleScans(radials)
	require.NoError(t, err)
	require.Len(t, scans, 1)
	assert.Zero(t, pending)

	scan := scans[0]
	assert.Equal(t, uint16(212), scan.CoveragePattern)
	require.Len(t, scan.Sweeps, 2)
	assert.Len(t, scan.Sweeps[0].Radials, 3)
	assert.Len(t, scan.Sweeps[1].Radials, 2)
	assert.Equal(t, uint8(1), scan.Sweeps[0].ElevationNumber)
	assert.Equal(t, uint8(2), scan.Sweeps[1].ElevationNumber)
	assert.Equal(t, message.VolumeScanStart, scan.Sweeps[0].Radials[0].Status)
	assert.Equal(t, message.ElevationStart, scan.Sweeps[1].Radials[0].Status)
	assert.Equal(t, 5, scan.RadialCount())
}

func TestAssembleScans_VolumeEndClosesOpenSweep(t *testing.T) {
	radials := radialsWithStatus(
		message.VolumeScanStart,
		message.IntermediateRadialData,
		message.VolumeScanEnd,
	)

	scans, _, err := AssembleScans(radials)
	require.NoError(t, err)
	require.Len(t, scans, 1)
	require.Len(t, scans[0].Sweeps, 1)
	assert.Len(t, scans[0].Sweeps[0].Radials, 2)
}

func TestAssembleScans_FinalCutOpensSweep(t *testing.T) {
	radials := radialsWithStatus(
		message.VolumeScanStart,
		message.ElevationEnd,
		message.ElevationStartVCPFinal,
		message.IntermediateRadialData,
		message.VolumeScanEnd,
	)

	scans, _, err := AssembleScans(radials)
	require.NoError(t, err)
	require.Len(t, scans, 1)
	require.Len(t, scans[0].Sweeps, 2)
	assert.Len(t, scans[0].Sweeps[0].Radials, 1)
	assert.Len(t, scans[0].Sweeps[1].Radials, 2)
}

func TestAssembleScans_MalformedSequence(t *testing.T) {
	tests := []struct {
		name      string
		statuses  []message.RadialStatus
		wantIndex int
		wantState string
	}{
		{
			name:      "intermediate with no open sweep",
			statuses:  []message.RadialStatus{message.IntermediateRadialData},
			wantIndex: 0,
			wantState: "awaiting volume start",
		},
		{
			name:      "intermediate after elevation end",
			statuses:  []message.RadialStatus{message.VolumeScanStart, message.ElevationEnd, message.IntermediateRadialData},
			wantIndex: 2,
			wantState: "awaiting sweep start",
		},
		{
			name:      "volume start inside a sweep",
			statuses:  []message.RadialStatus{message.VolumeScanStart, message.IntermediateRadialData, message.VolumeScanStart},
			wantIndex: 2,
			wantState: "in sweep",
		},
		{
			name:      "elevation start before volume start",
			statuses:  []message.RadialStatus{message.ElevationStart},
			wantIndex: 0,
			wantState: "awaiting volume start",
		},
		{
			name:      "unknown status",
			statuses:  []message.RadialStatus{message.VolumeScanStart, message.RadialStatus(9)},
			wantIndex: 1,
			wantState: "in sweep",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := AssembleScans(radialsWithStatus(tt.statuses...))
			require.ErrorIs(t, err, ErrMalformedRadialSequence)

			var seqErr *SequenceError
			require.ErrorAs(t, err, &seqErr)
			assert.Equal(t, tt.wantIndex, seqErr.Index)
			assert.Equal(t, tt.wantState, seqErr.State)
			assert.Equal(t, tt.statuses[tt.wantIndex], seqErr.Status)
		})
	}
}

func TestAssembler_ResetsAfterError(t *testing.T) {
	a := NewAssembler()
	radials := radialsWithStatus(message.VolumeScanStart, message.IntermediateRadialData)
	for _, r := range radials {
		_, err := a.Add(r)
		require.NoError(t, err)
	}
	assert.Equal(t, 2, a.Pending())

	_, err := a.Add(Radial{Status: message.VolumeScanStart})
	require.ErrorIs(t, err, ErrMalformedRadialSequence)
	assert.Zero(t, a.Pending())

	// The assembler accepts a fresh volume after the error.
	scan, err := a.Add(Radial{Status: message.VolumeScanStart})
	require.NoError(t, err)
	assert.Nil(t, scan)
	scan, err = a.Add(Radial{Status: message.VolumeScanEnd})
	require.NoError(t, err)
	require.NotNil(t, scan)
	assert.Len(t, scan.Sweeps, 1)
}

func TestAssembleScans_ReportsPendingRadials(t *testing.T) {
	radials := radialsWithStatus(
		message.VolumeScanStart,
		message.IntermediateRadialData,
		message.ElevationEnd,
		message.ElevationStart,
		message.IntermediateRadialData,
		message.IntermediateRadialData,
	)

	scans, pending, err := AssembleScans(radials)
	require.NoError(t, err)
	assert.Empty(t, scans)
	assert.Equal(t, 5, pending)
}
