package logic

import "sync/atomic"

// OccupancyDetector turns magnetometer samples into a sticky occupancy flag.
//
// It starts Calibrating: the baseline follows the reading until
// CalibrationSamples consecutive samples stay within CalibrationTolerance of
// it, then the baseline freezes and the detector is Armed for the rest of the
// run. Armed, the flag flips on each rising edge of "disturbed" (any axis
// more than PresenceThreshold from baseline).
//
// Sample is meant to be driven from a single loop. ManualToggle may be called
// from any goroutine.
type OccupancyDetector struct {
	phase         Phase
	baseline      Axes
	last          Axes
	stable        int
	lastDisturbed bool

	occupied atomic.Bool
}

// NewOccupancyDetector creates a detector seeded with an initial reading as
// the provisional baseline.
func NewOccupancyDetector(seed Axes) *OccupancyDetector {
	d := &OccupancyDetector{}
	d.reset(seed)
	return d
}

func (d *OccupancyDetector) reset(seed Axes) {
	seed = seed.clamp()
	d.phase = PhaseCalibrating
	d.baseline = seed
	d.last = seed
	d.stable = 0
	d.lastDisturbed = false
}

// Sample applies one reading and returns the current occupancy flag.
func (d *OccupancyDetector) Sample(reading Axes) bool {
	reading = reading.clamp()
	d.last = reading

	switch d.phase {
	case PhaseCalibrating:
		if reading.withinEach(d.baseline, CalibrationTolerance) {
			d.stable++
			if d.stable >= CalibrationSamples {
				d.phase = PhaseArmed
			}
		} else {
			// Still drifting, track the new reading
			d.stable = 0
			d.baseline = reading
		}

	case PhaseArmed:
		disturbed := reading.exceedsAny(d.baseline, PresenceThreshold)
		if disturbed && !d.lastDisturbed {
			d.flip()
		}
		d.lastDisturbed = disturbed
	}

	return d.occupied.Load()
}

// ManualToggle flips the occupancy flag regardless of the magnetometer and
// returns the new value.
func (d *OccupancyDetector) ManualToggle() bool {
	return d.flip()
}

func (d *OccupancyDetector) flip() bool {
	for {
		old := d.occupied.Load()
		if d.occupied.CompareAndSwap(old, !old) {
			return !old
		}
	}
}

// Recalibrate re-creates the calibration state from a new seed, as on a
// device reset. The occupancy flag is kept.
func (d *OccupancyDetector) Recalibrate(seed Axes) {
	d.reset(seed)
}

// Occupied returns the current occupancy flag.
func (d *OccupancyDetector) Occupied() bool {
	return d.occupied.Load()
}

// Phase returns the current detector phase.
func (d *OccupancyDetector) Phase() Phase {
	return d.phase
}

// IsArmed returns whether calibration has completed.
func (d *OccupancyDetector) IsArmed() bool {
	return d.phase == PhaseArmed
}

// Baseline returns the current (possibly provisional) baseline.
func (d *OccupancyDetector) Baseline() Axes {
	return d.baseline
}

// LastSample returns the most recent clamped reading.
func (d *OccupancyDetector) LastSample() Axes {
	return d.last
}
