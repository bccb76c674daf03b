// Package mqtt provides MQTT publishing with abstraction for testing.
package mqtt

import (
	"encoding/json"
	"time"

	"github.com/sweeney/ace128-sensor/internal/logic"
)

// Topic is the MQTT topic for encoder events.
const Topic = "sensors/ace128/events"

// TopicSystem is the MQTT topic for system lifecycle events.
const TopicSystem = "sensors/ace128/system"

// Publisher publishes events to MQTT.
type Publisher interface {
	// Publish sends an encoder event to the broker.
	// Returns error if publishing fails (should not crash the process).
	Publish(event logic.Event) error

	// PublishSystem sends a system lifecycle event to the broker.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// SystemEvent represents a system lifecycle event (e.g., startup, shutdown, heartbeat).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g., "STARTUP", "SHUTDOWN", "HEARTBEAT"
	Reason     string // e.g., "SIGTERM", "SIGINT" (shutdown only)
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool   // Whether the message should be retained by the broker
}

// Payload represents the MQTT message payload structure.
type Payload struct {
	Encoder EncoderPayload `json:"encoder"`
}

// EncoderPayload contains the encoder event details.
type EncoderPayload struct {
	Timestamp string  `json:"timestamp"`
	Event     string  `json:"event"`
	Position  int     `json:"position"`
	Previous  int     `json:"previous"`
	Delta     int     `json:"delta"`
	Angle     float64 `json:"angle"`
}

// FormatPayload creates the JSON payload for an encoder event.
func FormatPayload(event logic.Event) ([]byte, error) {
	payload := Payload{
		Encoder: EncoderPayload{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     string(event.Type),
			Position:  int(event.Position),
			Previous:  int(event.Previous),
			Delta:     event.Delta,
			Angle:     event.Angle,
		},
	}
	return json.Marshal(payload)
}

// SystemPayload represents the MQTT message payload for system events.
// Used for simple events (LWT, RECONNECTED) that don't carry a full status snapshot.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// If event.RawPayload is set, it is returned directly (used for full status snapshots).
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}

	payload := SystemPayload{
		System: SystemPayloadInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Event,
			Reason:    event.Reason,
		},
	}
	return json.Marshal(payload)
}
