//go:build linux

package gpio

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"

	"github.com/sweeney/ace128-sensor/internal/ace128"
)

// RealPins reads encoder pins from actual hardware using the Linux GPIO
// character device.
type RealPins struct {
	chip  *gpiocdev.Chip
	lines [ace128.NumPins]*gpiocdev.Line
}

// linePin adapts a requested line to ace128.Pin.
type linePin struct {
	line *gpiocdev.Line
}

// IsHigh reports whether the line is active. Lines are requested active-high.
func (p linePin) IsHigh() (bool, error) {
	v, err := p.line.Value()
	if err != nil {
		return false, err
	}
	return v != 0, nil
}

func biasOption(pull Pull) gpiocdev.LineReqOption {
	switch pull {
	case PullDown:
		return gpiocdev.WithPullDown
	case PullNone:
		return gpiocdev.WithBiasDisabled
	default:
		return gpiocdev.WithPullUp
	}
}

// NewRealPins requests offsets (P1 first) on chip as inputs with the given bias.
func NewRealPins(chip string, offsets [ace128.NumPins]int, pull Pull) (*RealPins, error) {
	c, err := gpiocdev.NewChip(chip, gpiocdev.WithConsumer("ace128-sensor"))
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}

	r := &RealPins{chip: c}
	for i, offset := range offsets {
		line, err := c.RequestLine(offset, gpiocdev.AsInput, biasOption(pull))
		if err != nil {
			r.Close()
			return nil, fmt.Errorf("request P%d pin %d: %w", i+1, offset, err)
		}
		r.lines[i] = line
	}
	return r, nil
}

// Pins returns the requested lines, P1 first.
func (r *RealPins) Pins() [ace128.NumPins]ace128.Pin {
	var pins [ace128.NumPins]ace128.Pin
	for i, line := range r.lines {
		pins[i] = linePin{line: line}
	}
	return pins
}

// Close releases GPIO resources.
// Lines are reconfigured as plain pulled-down inputs (the Pi boot default)
// before being released.
func (r *RealPins) Close() error {
	var errs []error

	for i, line := range r.lines {
		if line == nil {
			continue
		}
		if err := line.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullDown); err != nil {
			errs = append(errs, fmt.Errorf("reconfigure P%d: %w", i+1, err))
		}
		if err := line.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close P%d: %w", i+1, err))
		}
		r.lines[i] = nil
	}
	if r.chip != nil {
		if err := r.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
		r.chip = nil
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
