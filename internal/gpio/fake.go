package gpio

import (
	"errors"
	"fmt"

	"github.com/sweeney/ace128-sensor/internal/ace128"
)

// Sample is one scripted read of all eight pins.
type Sample struct {
	// Code is the packed pin levels, P8 as the most significant bit.
	Code uint8

	// Err, if set, is returned by pin ErrPin (P8 when zero) instead of a level.
	Err    error
	ErrPin int
}

// PositionSample returns the sample the encoder produces at position p.
func PositionSample(p ace128.Position) Sample {
	code, ok := ace128.Code(p)
	if !ok {
		panic(fmt.Sprintf("gpio: position %d out of range", p))
	}
	return Sample{Code: code}
}

// FakePins is a test double that presents scripted samples on eight pins.
// A sample is consumed once P1, the last pin the decoder reads, has been
// read, or when a pin returns the sample's error.
type FakePins struct {
	// Samples contains the scripted reads.
	// If samples are exhausted, the last sample is repeated.
	Samples []Sample

	// index tracks current position in Samples
	index int

	// Reads counts IsHigh calls per pin, P1 first.
	Reads [ace128.NumPins]int

	// Closed tracks if Close was called
	Closed bool
}

// NewFakePins creates FakePins with the given samples.
func NewFakePins(samples []Sample) *FakePins {
	return &FakePins{Samples: samples}
}

// SetCode replaces the script with a single code held indefinitely.
func (f *FakePins) SetCode(code uint8) {
	f.Samples = []Sample{{Code: code}}
	f.index = 0
}

// SetPosition replaces the script with the code for position p.
func (f *FakePins) SetPosition(p ace128.Position) {
	f.Samples = []Sample{PositionSample(p)}
	f.index = 0
}

// Pins returns the fake pins, P1 first.
func (f *FakePins) Pins() [ace128.NumPins]ace128.Pin {
	var pins [ace128.NumPins]ace128.Pin
	for i := range pins {
		pins[i] = &FakePin{parent: f, n: i + 1}
	}
	return pins
}

// Close marks the pins as closed.
func (f *FakePins) Close() error {
	f.Closed = true
	return nil
}

// Reset rewinds the script and clears counters.
func (f *FakePins) Reset() {
	f.index = 0
	f.Reads = [ace128.NumPins]int{}
	f.Closed = false
}

func (f *FakePins) advance() {
	if f.index < len(f.Samples)-1 {
		f.index++
	}
}

// FakePin is one of the FakePins lines.
type FakePin struct {
	parent *FakePins
	n      int // 1..8
}

// IsHigh returns this pin's level in the current sample.
func (p *FakePin) IsHigh() (bool, error) {
	f := p.parent
	f.Reads[p.n-1]++

	if len(f.Samples) == 0 {
		return false, errors.New("no samples configured")
	}

	s := f.Samples[f.index]
	if s.Err != nil {
		errPin := s.ErrPin
		if errPin == 0 {
			errPin = ace128.NumPins
		}
		if p.n == errPin {
			f.advance()
			return false, s.Err
		}
	}

	high := s.Code&(1<<(p.n-1)) != 0
	if p.n == 1 {
		f.advance()
	}
	return high, nil
}
