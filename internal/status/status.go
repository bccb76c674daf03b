// Package status provides a thread-safe status tracker for the ace128-sensor daemon.
// It is read by the HTTP handlers and by the MQTT lifecycle events.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/ace128-sensor/internal/ace128"
	"github.com/sweeney/ace128-sensor/internal/logic"
)

// NetworkInfo contains network state.
type NetworkInfo struct {
	Type       string
	IP         string
	Status     string
	Gateway    string
	WifiStatus string
	SSID       string
}

// Config contains daemon configuration for display.
type Config struct {
	PollMs      int64
	DebounceMs  int64
	HeartbeatMs int64
	Broker      string
	HTTPAddr    string
	Backend     string
	Chip        string
	Pins        [ace128.NumPins]int
	Pull        string
	AngleRange  string
}

// Reading is the most recent raw decode, before debouncing.
type Reading struct {
	Position ace128.Position
	Valid    bool
	Angle    float64
	Time     time.Time
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type, safe to use after the lock is released.
type Snapshot struct {
	// Stable is the debounced position; meaningful only when Baselined.
	Stable        ace128.Position
	StableAngle   float64
	Baselined     bool
	Last          Reading
	LastError     string
	Counts        logic.EventCounts
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	Network       *NetworkInfo
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			StartTime: startTime,
			Config:    cfg,
		},
	}
}

// Update sets the debounced position, baseline status, and counters.
// Called from runLoop on every tick.
func (t *Tracker) Update(stable ace128.Position, stableAngle float64, baselined bool, counts logic.EventCounts) {
	t.mu.Lock()
	t.snap.Stable = stable
	t.snap.StableAngle = stableAngle
	t.snap.Baselined = baselined
	t.snap.Counts = counts
	t.mu.Unlock()
}

// SetReading records the latest raw decode and clears the last error.
func (t *Tracker) SetReading(r Reading) {
	t.mu.Lock()
	t.snap.Last = r
	t.snap.LastError = ""
	t.mu.Unlock()
}

// SetError records a failed read.
func (t *Tracker) SetError(err error) {
	t.mu.Lock()
	t.snap.LastError = err.Error()
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// SetNetwork sets the network info.
func (t *Tracker) SetNetwork(info *NetworkInfo) {
	t.mu.Lock()
	t.snap.Network = info
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	t.mu.RUnlock()
	s.Now = time.Now()
	return s
}
