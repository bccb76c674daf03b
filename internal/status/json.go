package status

import (
	"encoding/json"
	"time"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string       `json:"event,omitempty"`
	Reason        string       `json:"reason,omitempty"`
	Position      *int         `json:"position"` // null until baselined
	Angle         *float64     `json:"angle"`
	Ready         bool         `json:"ready"`
	Last          ReadingJSON  `json:"last_read"`
	LastError     string       `json:"last_error,omitempty"`
	UptimeSeconds int64        `json:"uptime_seconds"`
	StartTime     string       `json:"start_time"`
	Timestamp     string       `json:"timestamp"`
	MQTT          MQTTStatus   `json:"mqtt"`
	Counts        CountsJSON   `json:"event_counts"`
	Network       *NetworkJSON `json:"network,omitempty"`
	Config        ConfigJSON   `json:"config"`
}

// ReadingJSON is the latest raw decode.
type ReadingJSON struct {
	Valid     bool    `json:"valid"`
	Position  int     `json:"position"`
	Angle     float64 `json:"angle"`
	Timestamp string  `json:"timestamp,omitempty"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// CountsJSON is the JSON representation of event counts.
type CountsJSON struct {
	Changes int `json:"changes"`
	Invalid int `json:"invalid_reads"`
	Errors  int `json:"read_errors"`
}

// NetworkJSON is the JSON representation of network info.
type NetworkJSON struct {
	Type       string `json:"type"`
	IP         string `json:"ip"`
	Status     string `json:"status"`
	Gateway    string `json:"gateway"`
	WifiStatus string `json:"wifi_status"`
	SSID       string `json:"ssid"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	PollMs      int64  `json:"poll_ms"`
	DebounceMs  int64  `json:"debounce_ms"`
	HeartbeatMs int64  `json:"heartbeat_ms"`
	Broker      string `json:"broker"`
	HTTPAddr    string `json:"http_addr"`
	Backend     string `json:"backend"`
	Chip        string `json:"chip,omitempty"`
	Pins        []int  `json:"pins"`
	Pull        string `json:"pull"`
	AngleRange  string `json:"angle_range"`
}

func buildInner(snap Snapshot) StatusInner {
	inner := StatusInner{
		Ready:         snap.Baselined,
		LastError:     snap.LastError,
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Counts: CountsJSON{
			Changes: snap.Counts.Changes,
			Invalid: snap.Counts.Invalid,
			Errors:  snap.Counts.Errors,
		},
		Config: ConfigJSON{
			PollMs:      snap.Config.PollMs,
			DebounceMs:  snap.Config.DebounceMs,
			HeartbeatMs: snap.Config.HeartbeatMs,
			Broker:      snap.Config.Broker,
			HTTPAddr:    snap.Config.HTTPAddr,
			Backend:     snap.Config.Backend,
			Chip:        snap.Config.Chip,
			Pins:        snap.Config.Pins[:],
			Pull:        snap.Config.Pull,
			AngleRange:  snap.Config.AngleRange,
		},
	}

	if snap.Baselined {
		pos := int(snap.Stable)
		angle := snap.StableAngle
		inner.Position = &pos
		inner.Angle = &angle
	}

	if !snap.Last.Time.IsZero() {
		inner.Last = ReadingJSON{
			Valid:     snap.Last.Valid,
			Position:  int(snap.Last.Position),
			Angle:     snap.Last.Angle,
			Timestamp: snap.Last.Time.UTC().Format(time.RFC3339),
		}
	}

	if snap.Network != nil {
		inner.Network = &NetworkJSON{
			Type:       snap.Network.Type,
			IP:         snap.Network.IP,
			Status:     snap.Network.Status,
			Gateway:    snap.Network.Gateway,
			WifiStatus: snap.Network.WifiStatus,
			SSID:       snap.Network.SSID,
		}
	}
	return inner
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	data, _ := json.MarshalIndent(StatusJSON{Status: buildInner(snap)}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
