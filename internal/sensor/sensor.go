// Package sensor provides the node's sampling collaborators: the
// temperature, light and magnetometer sampler, and the manual-toggle button.
// The real button uses the Linux GPIO character device. Fakes allow testing
// without hardware.
package sensor

import "github.com/sweeney/room-sensor/internal/logic"

// Sampler reads raw sensor values on demand.
type Sampler interface {
	// ReadTemperature returns degrees Celsius.
	ReadTemperature() (float64, error)

	// ReadLight returns light level as percent x 100 (0..10000).
	ReadLight() (int, error)

	// ReadMagnetometer returns a 3-axis reading in milligauss.
	ReadMagnetometer() (logic.Axes, error)

	// Close releases sampler resources.
	Close() error
}

// Button delivers manual-toggle presses.
type Button interface {
	// Presses returns a channel that receives one value per press.
	Presses() <-chan struct{}

	// Close releases button resources. The presses channel is not closed.
	Close() error
}

// Button defaults (BCM numbering)
const (
	DefaultChip = "gpiochip0"
	DefaultPin  = 17
)

// pressQueue is the capacity of button press channels. Presses beyond it
// are dropped until the loop catches up.
const pressQueue = 4
