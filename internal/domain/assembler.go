package domain

import (
	"errors"
	"fmt"

	"github.com/couchcryptid/nexrad-etl/internal/message"
)

// ErrMalformedRadialSequence is returned when a radial's status is not valid in
// the assembler's current state.
var ErrMalformedRadialSequence = errors.New("malformed radial sequence")

type assemblerState uint8

const (
	awaitingVolumeStart assemblerState = iota
	inSweep
	awaitingSweepStart
)

func (s assemblerState) String() string {
	switch s {
	case awaitingVolumeStart:
		return "awaiting volume start"
	case inSweep:
		return "in sweep"
	case awaitingSweepStart:
		return "awaiting sweep start"
	}
	return fmt.Sprintf("state %d", uint8(s))
}

// SequenceError reports the radial that broke the sweep sequence.
type SequenceError struct {
	Index  int // position of the radial in the input
	State  string
	Status message.RadialStatus
}

func (e *SequenceError) Error() string {
	return fmt.Sprintf("%v: %s radial %d while %s", ErrMalformedRadialSequence, e.Status, e.Index, e.State)
}

func (e *SequenceError) Unwrap() error { return ErrMalformedRadialSequence }

type transitionKey struct {
	from   assemblerState
	status message.RadialStatus
}

type transition struct {
	to         assemblerState
	openScan   bool
	openSweep  bool
	closeSweep bool
	closeScan  bool
}

// transitions lists every accepted (state, status) pair. Anything missing is
// a sequencing error.
var transitions = map[transitionKey]transition{
	{awaitingVolumeStart, message.VolumeScanStart}:       {to: inSweep, openScan: true, openSweep: true},
	{inSweep, message.IntermediateRadialData}:            {to: inSweep},
	{inSweep, message.ElevationEnd}:                      {to: awaitingSweepStart, closeSweep: true},
	{inSweep, message.VolumeScanEnd}:                     {to: awaitingVolumeStart, closeSweep: true, closeScan: true},
	{awaitingSweepStart, message.ElevationStart}:         {to: inSweep, openSweep: true},
	{awaitingSweepStart, message.ElevationStartVCPFinal}: {to: inSweep, openSweep: true},
	{awaitingSweepStart, message.VolumeScanEnd}:          {to: awaitingVolumeStart, closeScan: true},
}

// Assembler groups radials into sweeps and scans by following each radial's
// status. It is not safe for concurrent use.
type Assembler struct {
	state assemblerState
	scan  *Scan
	sweep *Sweep
	seen  int
}

// NewAssembler returns an assembler waiting for a volume scan start radial.
func NewAssembler() *Assembler {
	return &Assembler{}
}

// Add feeds the next radial. It returns the completed scan when r closes the
// volume, and nil otherwise. On error the partial scan is discarded and the
// assembler waits for the next volume scan start.
func (a *Assembler) Add(r Radial) (*Scan, error) {
	index := a.seen
	a.seen++

	t, ok := transitions[transitionKey{a.state, r.Status}]
	if !ok {
		err := &SequenceError{Index: index, State: a.state.String(), Status: r.Status}
		a.Reset()
		return nil, err
	}

	if t.openScan {
		a.scan = &Scan{CoveragePattern: r.CoveragePattern}
	}
	if t.openSweep {
		a.sweep = &Sweep{ElevationNumber: r.ElevationNumber, ElevationAngle: r.ElevationAngle}
	}
	if r.Status == message.IntermediateRadialData || t.openSweep {
		a.sweep.Radials = append(a.sweep.Radials, r)
	}
	if t.closeSweep {
		a.scan.Sweeps = append(a.scan.Sweeps, *a.sweep)
		a.sweep = nil
	}
	a.state = t.to

	if t.closeScan {
		done := a.scan
		a.scan = nil
		return done, nil
	}
	return nil, nil
}

// Pending returns the number of radials held by the unfinished scan.
func (a *Assembler) Pending() int {
	n := 0
	if a.scan != nil {
		n = a.scan.RadialCount()
	}
	if a.sweep != nil {
		n += len(a.sweep.Radials)
	}
	return n
}

// Reset drops any partial scan.
func (a *Assembler) Reset() {
	a.state = awaitingVolumeStart
	a.scan = nil
	a.sweep = nil
}

// AssembleScans folds radials into completed scans. It also returns the number
// of radials left in an unfinished trailing scan. Assembly stops at the first
// sequencing error.
func AssembleScans(radials []Radial) ([]Scan, int, error) {
	a := NewAssembler()
	var scans []Scan
	for _, r := range radials {
		scan, err := a.Add(r)
		if err != nil {
			return scans, 0, err
		}
		if scan != nil {
			scans = append(scans, *scan)
		}
	}
	return scans, a.Pending(), nil
}
