//go:build !linux

package gpio

import (
	"errors"

	"github.com/sweeney/ace128-sensor/internal/ace128"
)

// RealPins is not available on non-Linux platforms.
type RealPins struct{}

// NewRealPins returns an error on non-Linux platforms.
func NewRealPins(chip string, offsets [ace128.NumPins]int, pull Pull) (*RealPins, error) {
	return nil, errors.New("gpio: not supported on this platform (requires Linux)")
}

// Pins returns no pins on non-Linux platforms.
func (r *RealPins) Pins() [ace128.NumPins]ace128.Pin {
	return [ace128.NumPins]ace128.Pin{}
}

// Close is not implemented on non-Linux platforms.
func (r *RealPins) Close() error {
	return nil
}
