// Package logic contains pure business logic for encoder position tracking.
// This package has NO external dependencies (no GPIO, MQTT, OS, or time.Sleep).
// Time is always injectable via time.Time parameters.
package logic

import (
	"time"

	"github.com/sweeney/ace128-sensor/internal/ace128"
)

// EventType identifies a published encoder event.
type EventType string

const (
	EventPositionChanged EventType = "POSITION_CHANGED"
)

// Event represents a debounced position change to be published.
type Event struct {
	Timestamp time.Time
	Type      EventType
	Position  ace128.Position
	Previous  ace128.Position
	// Delta is the shortest signed step count from Previous to Position.
	Delta int
	Angle float64
}

// Input represents a single decoded read.
type Input struct {
	Position ace128.Position
	Valid    bool // false for a code the encoder cannot produce
	Time     time.Time
}

// EventCounts tracks activity since startup.
type EventCounts struct {
	Changes int // POSITION_CHANGED events emitted
	Invalid int // reads that decoded to no position
	Errors  int // failed pin reads
}

// HeartbeatData contains information for a heartbeat event.
type HeartbeatData struct {
	Timestamp time.Time
	Uptime    time.Duration
	Counts    EventCounts
}

// Delta returns the shortest signed number of steps from one position to
// another around the 128-slot ring, in [-64, 63].
func Delta(from, to ace128.Position) int {
	d := (int(to) - int(from)) % ace128.NumPositions
	if d < 0 {
		d += ace128.NumPositions
	}
	if d >= ace128.NumPositions/2 {
		d -= ace128.NumPositions
	}
	return d
}
