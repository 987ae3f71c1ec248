package sensor

import (
	"errors"
	"sync"

	"github.com/sweeney/room-sensor/internal/logic"
)

// Sample is one scripted sampler reading.
type Sample struct {
	Temperature float64
	Light       int
	Mag         logic.Axes
}

// FakeSampler is a test double that returns scripted readings.
type FakeSampler struct {
	// Samples contains scripted readings. Each call to ReadMagnetometer()
	// advances to the next sample, so one sampling cycle (temperature, light,
	// magnetometer) sees one Sample. Once exhausted the last sample repeats.
	Samples []Sample

	// index tracks current position in Samples
	index int

	// Closed tracks if Close was called
	Closed bool

	// ReadError, if set, will be returned by every read
	ReadError error
}

// NewFakeSampler creates a FakeSampler with the given samples.
func NewFakeSampler(samples []Sample) *FakeSampler {
	return &FakeSampler{Samples: samples}
}

func (f *FakeSampler) current() (Sample, error) {
	if f.ReadError != nil {
		return Sample{}, f.ReadError
	}
	if len(f.Samples) == 0 {
		return Sample{}, errors.New("no samples configured")
	}
	return f.Samples[f.index], nil
}

// ReadTemperature returns the current sample's temperature.
func (f *FakeSampler) ReadTemperature() (float64, error) {
	s, err := f.current()
	return s.Temperature, err
}

// ReadLight returns the current sample's light level.
func (f *FakeSampler) ReadLight() (int, error) {
	s, err := f.current()
	return s.Light, err
}

// ReadMagnetometer returns the current sample's magnetometer reading and
// advances to the next sample.
func (f *FakeSampler) ReadMagnetometer() (logic.Axes, error) {
	s, err := f.current()
	if err != nil {
		return logic.Axes{}, err
	}
	if f.index < len(f.Samples)-1 {
		f.index++
	}
	return s.Mag, nil
}

// Close marks the sampler as closed.
func (f *FakeSampler) Close() error {
	f.Closed = true
	return nil
}

// Reset resets the sampler to the beginning of samples.
func (f *FakeSampler) Reset() {
	f.index = 0
	f.Closed = false
}

// FakeButton is a Button pressed from test code.
type FakeButton struct {
	presses chan struct{}

	mu     sync.Mutex
	closed bool
}

// NewFakeButton creates a FakeButton.
func NewFakeButton() *FakeButton {
	return &FakeButton{presses: make(chan struct{}, pressQueue)}
}

// Press queues one press. It reports false if the queue was full.
func (b *FakeButton) Press() bool {
	select {
	case b.presses <- struct{}{}:
		return true
	default:
		return false
	}
}

// Presses returns the press channel.
func (b *FakeButton) Presses() <-chan struct{} { return b.presses }

// Close marks the button as closed.
func (b *FakeButton) Close() error {
	b.mu.Lock()
	b.closed = true
	b.mu.Unlock()
	return nil
}

// IsClosed reports whether Close was called.
func (b *FakeButton) IsClosed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}

// NoButton is used when no button is configured. It never fires.
type NoButton struct{}

// Presses returns nil, which blocks forever in a select.
func (NoButton) Presses() <-chan struct{} { return nil }

// Close does nothing.
func (NoButton) Close() error { return nil }
