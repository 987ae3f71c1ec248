//go:build linux

package sensor

import (
	"fmt"
	"time"

	"github.com/warthog618/go-gpiocdev"
)

// GPIOButton is a push button on a Linux GPIO character device line.
// The line is pulled up and the button shorts it to ground, so it is
// requested active-low and a press is a logical rising edge.
type GPIOButton struct {
	line    *gpiocdev.Line
	presses chan struct{}
}

// NewGPIOButton requests pin on chip as a debounced, edge-detecting input.
func NewGPIOButton(chip string, pin int, debounce time.Duration) (*GPIOButton, error) {
	b := &GPIOButton{presses: make(chan struct{}, pressQueue)}

	opts := []gpiocdev.LineReqOption{
		gpiocdev.AsInput,
		gpiocdev.WithPullUp,
		gpiocdev.AsActiveLow,
		gpiocdev.WithRisingEdge,
		gpiocdev.WithEventHandler(b.handle),
	}
	if debounce > 0 {
		opts = append(opts, gpiocdev.WithDebounce(debounce))
	}

	line, err := gpiocdev.RequestLine(chip, pin, opts...)
	if err != nil {
		return nil, fmt.Errorf("request button pin %d on %s: %w", pin, chip, err)
	}
	b.line = line
	return b, nil
}

// handle runs on the gpiocdev event goroutine. It must not block.
func (b *GPIOButton) handle(evt gpiocdev.LineEvent) {
	if evt.Type != gpiocdev.LineEventRisingEdge {
		return
	}
	select {
	case b.presses <- struct{}{}:
	default:
	}
}

// Presses returns the press channel.
func (b *GPIOButton) Presses() <-chan struct{} { return b.presses }

// Close releases the line.
// Reconfigures it to a plain input first so the pin is left in its boot state.
func (b *GPIOButton) Close() error {
	if b.line == nil {
		return nil
	}
	var errs []error
	if err := b.line.Reconfigure(gpiocdev.AsInput, gpiocdev.WithBiasDisabled); err != nil {
		errs = append(errs, fmt.Errorf("reconfigure button pin: %w", err))
	}
	if err := b.line.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close button pin: %w", err))
	}
	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
