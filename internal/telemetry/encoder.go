package telemetry

import (
	"time"

	"github.com/sweeney/room-sensor/internal/provisioning"
)

// Initial last-sent values. They count as already sent, so an unoccupied
// room is not reported until it changes or a heartbeat forces it.
const (
	initialTemperature = -1000
	initialLight       = -1
	initialOccupancy   = false
)

// Clock supplies the current time for event timestamps.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

// Now returns time.Now().
func (SystemClock) Now() time.Time { return time.Now() }

// ClockFunc adapts a function to a Clock.
type ClockFunc func() time.Time

// Now calls f.
func (f ClockFunc) Now() time.Time { return f() }

// FixedClock always returns the same instant.
type FixedClock time.Time

// Now returns the fixed instant.
func (c FixedClock) Now() time.Time { return time.Time(c) }

// Encoder applies change detection per metric and encodes payloads.
// It is driven from the single sampling loop.
type Encoder struct {
	clock Clock

	Temperatures *LastSent[float64]
	Lights       *LastSent[int]
	Occupancy    *LastSent[bool]
}

// NewEncoder creates an Encoder with fresh last-sent state.
func NewEncoder(clock Clock) *Encoder {
	return &Encoder{
		clock:        clock,
		Temperatures: NewLastSent[float64](initialTemperature),
		Lights:       NewLastSent(initialLight),
		Occupancy:    NewLastSent(initialOccupancy),
	}
}

// Temperature returns an encoded payload for v and true if it should be sent.
// A suppressed reading returns (nil, false, nil).
func (e *Encoder) Temperature(sensor provisioning.Sensor, hubDeviceID, connectionString string, v float64, force bool) ([]byte, bool, error) {
	if !e.Temperatures.ShouldEmit(v, force) {
		return nil, false, nil
	}
	return e.encode(FormatTemperature(v), sensor, hubDeviceID, connectionString)
}

// Light is Temperature for the raw light value.
func (e *Encoder) Light(sensor provisioning.Sensor, hubDeviceID, connectionString string, raw int, force bool) ([]byte, bool, error) {
	if !e.Lights.ShouldEmit(raw, force) {
		return nil, false, nil
	}
	return e.encode(FormatLight(raw), sensor, hubDeviceID, connectionString)
}

// Motion is Temperature for the occupancy flag.
func (e *Encoder) Motion(sensor provisioning.Sensor, hubDeviceID, connectionString string, occupied bool, force bool) ([]byte, bool, error) {
	if !e.Occupancy.ShouldEmit(occupied, force) {
		return nil, false, nil
	}
	return e.encode(FormatOccupancy(occupied), sensor, hubDeviceID, connectionString)
}

func (e *Encoder) encode(reading string, sensor provisioning.Sensor, hubDeviceID, connectionString string) ([]byte, bool, error) {
	data, err := Encode(reading, sensor, hubDeviceID, connectionString, e.clock.Now())
	return data, true, err
}
