package gpio

import (
	"errors"
	"fmt"

	pgpio "periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"

	"github.com/sweeney/ace128-sensor/internal/ace128"
)

// PeriphPins reads encoder pins through periph.io host drivers. It works on
// boards and kernels where the character device is unavailable.
type PeriphPins struct {
	pins [ace128.NumPins]pgpio.PinIO
}

// periphPin adapts a periph pin to ace128.Pin.
type periphPin struct {
	pin pgpio.PinIn
}

func (p periphPin) IsHigh() (bool, error) {
	return p.pin.Read() == pgpio.High, nil
}

func periphPull(pull Pull) pgpio.Pull {
	switch pull {
	case PullDown:
		return pgpio.PullDown
	case PullNone:
		return pgpio.Float
	default:
		return pgpio.PullUp
	}
}

// NewPeriphPins configures BCM pins (P1 first) as inputs with the given bias.
func NewPeriphPins(bcm [ace128.NumPins]int, pull Pull) (*PeriphPins, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("init periph host: %w", err)
	}

	r := &PeriphPins{}
	for i, n := range bcm {
		name := fmt.Sprintf("GPIO%d", n)
		p := gpioreg.ByName(name)
		if p == nil {
			r.Close()
			return nil, fmt.Errorf("P%d: no such pin %s", i+1, name)
		}
		if err := p.In(periphPull(pull), pgpio.NoEdge); err != nil {
			r.Close()
			return nil, fmt.Errorf("configure P%d pin %s: %w", i+1, name, err)
		}
		r.pins[i] = p
	}
	return r, nil
}

// Pins returns the configured pins, P1 first.
func (r *PeriphPins) Pins() [ace128.NumPins]ace128.Pin {
	var pins [ace128.NumPins]ace128.Pin
	for i, p := range r.pins {
		pins[i] = periphPin{pin: p}
	}
	return pins
}

// Close halts the pins.
func (r *PeriphPins) Close() error {
	var errs []error
	for i, p := range r.pins {
		if p == nil {
			continue
		}
		if err := p.Halt(); err != nil {
			errs = append(errs, fmt.Errorf("halt P%d: %w", i+1, err))
		}
		r.pins[i] = nil
	}
	return errors.Join(errs...)
}
