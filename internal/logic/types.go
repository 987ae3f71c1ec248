// Package logic contains pure business logic for room occupancy tracking.
// This package has NO external dependencies (no sensor bus, network, OS, or time.Sleep).
// Time is always injectable via time.Time parameters.
package logic

// Phase is the occupancy detector's operating phase.
type Phase string

const (
	PhaseCalibrating Phase = "CALIBRATING"
	PhaseArmed       Phase = "ARMED"
)

const (
	// CalibrationTolerance is the per-axis spread (exclusive) within which
	// consecutive samples count as stable during calibration.
	CalibrationTolerance = 10

	// CalibrationSamples is the number of consecutive stable samples that
	// freezes the baseline.
	CalibrationSamples = 5

	// PresenceThreshold is the per-axis deviation from baseline (exclusive)
	// above which the magnetometer counts as disturbed.
	PresenceThreshold = 250

	// MaxAxisMilliGauss clamps raw magnetometer axes. The LIS2MDL full scale
	// is ±50 gauss at 1.5 mG/LSB.
	MaxAxisMilliGauss = 49152
)

// Axes is a 3-axis magnetometer reading in milligauss.
type Axes struct {
	X, Y, Z int
}

func (a Axes) clamp() Axes {
	return Axes{X: clampAxis(a.X), Y: clampAxis(a.Y), Z: clampAxis(a.Z)}
}

func clampAxis(v int) int {
	if v > MaxAxisMilliGauss {
		return MaxAxisMilliGauss
	}
	if v < -MaxAxisMilliGauss {
		return -MaxAxisMilliGauss
	}
	return v
}

// withinEach reports whether every axis of a differs from b by less than tol.
func (a Axes) withinEach(b Axes, tol int64) bool {
	return absDiff(a.X, b.X) < tol && absDiff(a.Y, b.Y) < tol && absDiff(a.Z, b.Z) < tol
}

// exceedsAny reports whether any axis of a differs from b by more than tol.
func (a Axes) exceedsAny(b Axes, tol int64) bool {
	return absDiff(a.X, b.X) > tol || absDiff(a.Y, b.Y) > tol || absDiff(a.Z, b.Z) > tol
}

func absDiff(a, b int) int64 {
	d := int64(a) - int64(b)
	if d < 0 {
		return -d
	}
	return d
}
