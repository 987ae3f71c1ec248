package sensor

import (
	"math"
	"math/rand/v2"

	"github.com/sweeney/room-sensor/internal/logic"
)

// Simulation bounds
const (
	simMinTemp   = 16.0
	simMaxTemp   = 28.0
	simMaxLight  = 10000
	simDoorShift = 600 // milligauss added on X while the door is open
	simNoise     = 3   // magnetometer noise, well inside calibration tolerance
)

// SimSampler produces plausible room readings without hardware. Temperature
// and light follow a bounded random walk; the magnetometer sits on a fixed
// rest vector with small noise and the simulated door swings open for
// DoorOpenFor reads every DoorEvery reads.
type SimSampler struct {
	rng *rand.Rand

	Rest        logic.Axes
	DoorEvery   int
	DoorOpenFor int

	temp  float64
	light int
	reads int
}

// NewSimSampler creates a SimSampler with a deterministic seed.
func NewSimSampler(seed uint64) *SimSampler {
	return &SimSampler{
		rng:         rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		Rest:        logic.Axes{X: -120, Y: 340, Z: -560},
		DoorEvery:   120,
		DoorOpenFor: 5,
		temp:        21.0,
		light:       4500,
	}
}

// ReadTemperature steps the temperature by -0.1, 0 or +0.1 degrees.
func (s *SimSampler) ReadTemperature() (float64, error) {
	step := float64(s.rng.IntN(3)-1) / 10
	s.temp = math.Min(simMaxTemp, math.Max(simMinTemp, s.temp+step))
	// keep one decimal so unchanged readings compare equal
	s.temp = math.Round(s.temp*10) / 10
	return s.temp, nil
}

// ReadLight steps the light level by up to +/-50 (0.5%).
func (s *SimSampler) ReadLight() (int, error) {
	s.light += s.rng.IntN(101) - 50
	s.light = min(simMaxLight, max(0, s.light))
	return s.light, nil
}

// ReadMagnetometer returns the rest vector plus noise, shifted while the
// door is open.
func (s *SimSampler) ReadMagnetometer() (logic.Axes, error) {
	s.reads++
	a := logic.Axes{
		X: s.Rest.X + s.noise(),
		Y: s.Rest.Y + s.noise(),
		Z: s.Rest.Z + s.noise(),
	}
	if s.DoorOpen() {
		a.X += simDoorShift
	}
	return a, nil
}

// DoorOpen reports whether the most recent magnetometer read fell inside a
// door-open window.
func (s *SimSampler) DoorOpen() bool {
	if s.DoorEvery <= 0 || s.reads == 0 {
		return false
	}
	return s.reads%s.DoorEvery < s.DoorOpenFor && s.reads >= s.DoorEvery
}

func (s *SimSampler) noise() int {
	return s.rng.IntN(2*simNoise+1) - simNoise
}

// Close does nothing.
func (s *SimSampler) Close() error { return nil }
