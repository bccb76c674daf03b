// Package ace128 decodes the absolute position of a Bourns ACE-128 contact
// encoder from its eight output pins.
//
// The package has no hardware dependencies. Callers supply eight input
// capabilities (see Pin); internal/gpio provides real and fake ones.
package ace128

import (
	"errors"
	"fmt"
	"math"
)

// NumPins is the number of encoder output pins.
const NumPins = 8

// FallbackAngle is returned by ReadAngle when the pins hold a code the
// encoder cannot produce. It lies outside every valid angle range.
const FallbackAngle = 10.0

// ErrNilPin is returned by New when any pin is nil.
var ErrNilPin = errors.New("ace128: nil pin")

// Pin is a single encoder input.
type Pin interface {
	// IsHigh reports whether the pin's logic level is high.
	IsHigh() (bool, error)
}

// PinError reports a failed read of encoder pin P1..P8.
type PinError struct {
	Pin int
	Err error
}

func (e *PinError) Error() string {
	return fmt.Sprintf("read pin P%d: %v", e.Pin, e.Err)
}

func (e *PinError) Unwrap() error { return e.Err }

// AngleRange selects how positions map to radians.
type AngleRange int

const (
	// RangeZeroToTwoPi maps position 0 to 0 and 127 to 2π.
	RangeZeroToTwoPi AngleRange = iota
	// RangeCentered maps position 0 to -π and 127 to π.
	RangeCentered
)

func (r AngleRange) String() string {
	switch r {
	case RangeZeroToTwoPi:
		return "zero-to-two-pi"
	case RangeCentered:
		return "centered"
	default:
		return fmt.Sprintf("AngleRange(%d)", int(r))
	}
}

// Option configures a Decoder.
type Option func(*Decoder)

// WithFallbackAngle sets the angle ReadAngle returns for an unreachable code.
func WithFallbackAngle(a float64) Option {
	return func(d *Decoder) { d.fallback = a }
}

// WithAngleRange sets the position to angle mapping.
func WithAngleRange(r AngleRange) Option {
	return func(d *Decoder) { d.angleRange = r }
}

// Decoder reads the encoder's eight pins and decodes them to a position.
// It holds no state between reads.
type Decoder struct {
	// pins[0] is P1 (least significant), pins[7] is P8 (most significant).
	pins       [NumPins]Pin
	fallback   float64
	angleRange AngleRange
}

// New returns a Decoder for the given pins, P1 first.
func New(pins [NumPins]Pin, opts ...Option) (*Decoder, error) {
	for i, p := range pins {
		if p == nil {
			return nil, fmt.Errorf("%w: P%d", ErrNilPin, i+1)
		}
	}
	d := &Decoder{
		pins:     pins,
		fallback: FallbackAngle,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// SamplePins reads all pins, most significant (P8) first. The first failed
// read aborts the sample.
func (d *Decoder) SamplePins() ([NumPins]bool, error) {
	var states [NumPins]bool
	for i := range states {
		n := NumPins - i
		high, err := d.pins[n-1].IsHigh()
		if err != nil {
			return [NumPins]bool{}, &PinError{Pin: n, Err: err}
		}
		states[i] = high
	}
	return states, nil
}

// Pack folds a pin sample into a code, first element most significant.
func Pack(states [NumPins]bool) uint8 {
	var code uint8
	for _, high := range states {
		code <<= 1
		if high {
			code |= 1
		}
	}
	return code
}

// Read samples the pins and decodes them. ok is false if the pins hold a
// code the encoder cannot produce, typically mid-transition between
// detents; callers should poll again.
func (d *Decoder) Read() (p Position, ok bool, err error) {
	states, err := d.SamplePins()
	if err != nil {
		return 0, false, err
	}
	p, ok = Lookup(Pack(states))
	return p, ok, nil
}

// ReadAngle reads the position and converts it to radians. An unreachable
// code yields the fallback angle; use Read to tell it apart.
func (d *Decoder) ReadAngle() (float64, error) {
	p, ok, err := d.Read()
	if err != nil {
		return 0, err
	}
	if !ok {
		return d.fallback, nil
	}
	return d.angle(p), nil
}

// Fallback returns the angle ReadAngle reports for an unreachable code.
func (d *Decoder) Fallback() float64 { return d.fallback }

// Angle converts p to radians using the decoder's angle range.
func (d *Decoder) Angle(p Position) float64 { return d.angle(p) }

func (d *Decoder) angle(p Position) float64 {
	if d.angleRange == RangeCentered {
		return CenteredAngle(p)
	}
	return PositionToAngle(p)
}

// PositionToAngle converts p to radians in [0, 2π].
func PositionToAngle(p Position) float64 {
	return (2 * math.Pi / 127) * float64(p)
}

// CenteredAngle converts p to radians in [-π, π].
func CenteredAngle(p Position) float64 {
	return PositionToAngle(p) - math.Pi
}

// ParseAngleRange parses the names returned by AngleRange.String.
func ParseAngleRange(s string) (AngleRange, error) {
	switch s {
	case "", "zero-to-two-pi":
		return RangeZeroToTwoPi, nil
	case "centered":
		return RangeCentered, nil
	default:
		return 0, fmt.Errorf("unknown angle range %q", s)
	}
}
