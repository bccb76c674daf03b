package logic

import (
	"time"

	"github.com/sweeney/ace128-sensor/internal/ace128"
)

// AngleFunc converts a position to radians.
type AngleFunc func(ace128.Position) float64

// Detector tracks the encoder position and detects debounced changes.
type Detector struct {
	debounceDuration time.Duration
	angle            AngleFunc

	stable       ace128.Position
	pending      ace128.Position
	hasPending   bool
	pendingSince time.Time
	baselined    bool

	startTime     time.Time
	eventCounts   EventCounts
	lastHeartbeat time.Time
}

// NewDetector creates a new position detector with the given debounce duration.
// The startTime is used for calculating uptime in heartbeat events.
// Event angles are computed with angle, or ace128.PositionToAngle if nil.
func NewDetector(debounceDuration time.Duration, startTime time.Time, angle AngleFunc) *Detector {
	if angle == nil {
		angle = ace128.PositionToAngle
	}
	return &Detector{
		debounceDuration: debounceDuration,
		angle:            angle,
		startTime:        startTime,
		lastHeartbeat:    startTime,
	}
}

// Process takes a new read and returns any events that should be emitted.
// Events are only returned after baseline is established and on position changes.
// Invalid reads are transitional: they are counted but neither restart nor
// advance a pending observation.
func (d *Detector) Process(input Input) []Event {
	if !input.Valid {
		d.eventCounts.Invalid++
		return nil
	}

	p := input.Position
	now := input.Time

	if d.baselined && p == d.stable {
		// Back at the stable position, drop any pending change
		d.hasPending = false
		return nil
	}

	if !d.hasPending || d.pending != p {
		// New observation
		d.pending = p
		d.pendingSince = now
		d.hasPending = true
		if d.debounceDuration > 0 {
			return nil
		}
	}

	if now.Sub(d.pendingSince) < d.debounceDuration {
		return nil
	}

	d.hasPending = false

	if !d.baselined {
		d.stable = p
		d.baselined = true
		return nil // No event for the baseline itself
	}

	prev := d.stable
	d.stable = p
	d.eventCounts.Changes++

	return []Event{{
		Timestamp: now,
		Type:      EventPositionChanged,
		Position:  p,
		Previous:  prev,
		Delta:     Delta(prev, p),
		Angle:     d.angle(p),
	}}
}

// RecordError counts a failed pin read.
func (d *Detector) RecordError() {
	d.eventCounts.Errors++
}

// IsBaselined returns whether the detector has established a baseline.
func (d *Detector) IsBaselined() bool {
	return d.baselined
}

// CurrentPosition returns the stable position. ok is false before baseline.
func (d *Detector) CurrentPosition() (p ace128.Position, ok bool) {
	return d.stable, d.baselined
}

// EventCountsSnapshot returns a copy of the counters.
func (d *Detector) EventCountsSnapshot() EventCounts {
	return d.eventCounts
}

// CheckHeartbeat returns heartbeat data if the interval has elapsed since the
// last heartbeat (or startup). Returns nil if not yet baselined, if the
// interval has not elapsed, or if interval is <= 0 (disabled).
func (d *Detector) CheckHeartbeat(now time.Time, interval time.Duration) *HeartbeatData {
	if interval <= 0 {
		return nil
	}

	if !d.baselined {
		return nil
	}

	if now.Sub(d.lastHeartbeat) < interval {
		return nil
	}

	d.lastHeartbeat = now
	return &HeartbeatData{
		Timestamp: now,
		Uptime:    now.Sub(d.startTime),
		Counts:    d.eventCounts,
	}
}
