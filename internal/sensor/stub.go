//go:build !linux

package sensor

import (
	"errors"
	"time"
)

// GPIOButton is not available on non-Linux platforms.
type GPIOButton struct{}

// NewGPIOButton returns an error on non-Linux platforms.
func NewGPIOButton(chip string, pin int, debounce time.Duration) (*GPIOButton, error) {
	return nil, errors.New("sensor: gpio button not supported on this platform (requires Linux)")
}

// Presses returns nil on non-Linux platforms.
func (b *GPIOButton) Presses() <-chan struct{} { return nil }

// Close is not implemented on non-Linux platforms.
func (b *GPIOButton) Close() error {
	return nil
}
