// Package gpio provides the encoder's eight input pins with hardware abstraction.
// RealPins uses the Linux GPIO character device, PeriphPins uses periph.io
// host drivers, and FakePins allows testing without hardware.
package gpio

import (
	"fmt"
	"strings"

	"github.com/sweeney/ace128-sensor/internal/ace128"
)

// Pins owns the encoder's input lines.
type Pins interface {
	// Pins returns the encoder inputs, P1 first.
	Pins() [ace128.NumPins]ace128.Pin

	// Close releases GPIO resources.
	Close() error
}

// DefaultPins are the BCM pin numbers wired to encoder pins P1..P8.
var DefaultPins = [ace128.NumPins]int{4, 17, 27, 22, 5, 6, 13, 19}

// DefaultChip is the GPIO character device on a Raspberry Pi.
const DefaultChip = "gpiochip0"

// Pull is the input bias applied to each line.
type Pull string

const (
	// PullUp suits the ACE-128, whose contacts short pins to common ground.
	PullUp   Pull = "up"
	PullDown Pull = "down"
	PullNone Pull = "none"
)

// ParsePull parses a bias name.
func ParsePull(s string) (Pull, error) {
	switch p := Pull(strings.ToLower(s)); p {
	case PullUp, PullDown, PullNone:
		return p, nil
	case "":
		return PullUp, nil
	default:
		return "", fmt.Errorf("unknown pull %q (want up, down or none)", s)
	}
}
