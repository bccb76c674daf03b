package mqtt

import (
	"fmt"
	"log"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/sweeney/ace128-sensor/internal/logic"
)

// DefaultClientID is the MQTT client identifier.
const DefaultClientID = "ace128-sensor"

// bufferCapacity is the number of messages held while disconnected.
const bufferCapacity = 256

// RealPublisher publishes to an actual MQTT broker.
// Messages published while the connection is down are buffered and sent,
// oldest first, once it comes back.
type RealPublisher struct {
	client paho.Client
	now    func() time.Time

	mu            sync.Mutex
	buf           *ringBuffer
	everConnected bool
}

// NewRealPublisher creates a publisher connected to the given broker.
// If the broker is unreachable the client keeps retrying in the background
// and messages are buffered meanwhile.
func NewRealPublisher(broker, clientID string) (*RealPublisher, error) {
	if clientID == "" {
		clientID = DefaultClientID
	}
	p := &RealPublisher{
		now: time.Now,
		buf: newRingBuffer(bufferCapacity),
	}

	will, err := FormatSystemPayload(SystemEvent{
		Timestamp: time.Now(),
		Event:     "SHUTDOWN",
		Reason:    "MQTT_DISCONNECT",
	})
	if err != nil {
		return nil, fmt.Errorf("format will payload: %w", err)
	}

	opts := paho.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5*time.Second).
		SetWill(TopicSystem, string(will), 1, true).
		SetOnConnectHandler(p.onConnect).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			log.Printf("mqtt: connection lost: %v", err)
		})

	p.client = paho.NewClient(opts)
	token := p.client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		log.Printf("mqtt: broker %s not reachable yet, buffering until connected", broker)
		return p, nil
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to broker: %w", err)
	}

	return p, nil
}

// onConnect flushes buffered messages. After a reconnect it also announces
// RECONNECTED on the system topic.
func (p *RealPublisher) onConnect(_ paho.Client) {
	p.mu.Lock()
	reconnect := p.everConnected
	p.everConnected = true
	pending := p.buf.drainAll()
	p.mu.Unlock()

	if len(pending) > 0 {
		log.Printf("mqtt: connected, flushing %d buffered messages", len(pending))
	}
	for _, msg := range pending {
		if err := p.send(msg); err != nil {
			log.Printf("mqtt: flush %s: %v", msg.topic, err)
		}
	}

	if reconnect {
		if err := p.PublishSystem(SystemEvent{Timestamp: p.now(), Event: "RECONNECTED"}); err != nil {
			log.Printf("mqtt: publish reconnected event: %v", err)
		}
	}
}

// deliver sends msg, or buffers it while the connection is down.
func (p *RealPublisher) deliver(msg bufferedMsg) error {
	p.mu.Lock()
	if !p.client.IsConnectionOpen() {
		p.buf.push(msg)
		p.mu.Unlock()
		return nil
	}
	p.mu.Unlock()
	return p.send(msg)
}

func (p *RealPublisher) send(msg bufferedMsg) error {
	token := p.client.Publish(msg.topic, msg.qos, msg.retained, msg.payload)
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("publish timeout")
	}
	return token.Error()
}

// Publish sends an encoder event to the MQTT broker.
func (p *RealPublisher) Publish(event logic.Event) error {
	payload, err := FormatPayload(event)
	if err != nil {
		return fmt.Errorf("format payload: %w", err)
	}

	// QoS 0 (at-most-once), not retained
	if err := p.deliver(bufferedMsg{topic: Topic, payload: payload}); err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	return nil
}

// PublishSystem sends a system lifecycle event to the MQTT broker.
func (p *RealPublisher) PublishSystem(event SystemEvent) error {
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return fmt.Errorf("format system payload: %w", err)
	}

	// QoS 1 (at-least-once) - lifecycle events should be delivered
	msg := bufferedMsg{topic: TopicSystem, payload: payload, qos: 1, retained: event.Retained}
	if err := p.deliver(msg); err != nil {
		return fmt.Errorf("publish system: %w", err)
	}
	return nil
}

// IsConnected reports whether the broker connection is up.
func (p *RealPublisher) IsConnected() bool {
	return p.client.IsConnectionOpen()
}

// Buffered returns the number of messages waiting for a connection.
func (p *RealPublisher) Buffered() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.buf.len()
}

// Close disconnects from the broker.
func (p *RealPublisher) Close() error {
	if n := p.Buffered(); n > 0 {
		log.Printf("mqtt: closing with %d unsent messages", n)
	}
	p.client.Disconnect(1000) // 1 second timeout
	return nil
}
