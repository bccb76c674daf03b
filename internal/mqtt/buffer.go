package mqtt

import "log"

// bufferedMsg stores a serialized MQTT message for replay after reconnection.
type bufferedMsg struct {
	topic    string
	payload  []byte
	qos      byte
	retained bool
}

// ringBuffer is a fixed-capacity FIFO that stores messages while disconnected.
// When full, the oldest message is dropped. Not safe for concurrent use.
type ringBuffer struct {
	buf     []bufferedMsg
	head    int // next write position
	count   int
	dropped int // messages overwritten since last drain
}

func newRingBuffer(capacity int) *ringBuffer {
	return &ringBuffer{buf: make([]bufferedMsg, capacity)}
}

func (r *ringBuffer) push(msg bufferedMsg) {
	r.buf[r.head] = msg
	r.head = (r.head + 1) % len(r.buf)
	if r.count == len(r.buf) {
		if r.dropped == 0 {
			log.Printf("mqtt: buffer full (%d messages), dropping oldest", len(r.buf))
		}
		r.dropped++
		return
	}
	r.count++
}

// drainAll returns buffered messages oldest first and empties the buffer.
func (r *ringBuffer) drainAll() []bufferedMsg {
	if r.count == 0 {
		return nil
	}
	if r.dropped > 0 {
		log.Printf("mqtt: %d buffered messages were dropped while disconnected", r.dropped)
	}

	result := make([]bufferedMsg, r.count)
	start := (r.head - r.count + len(r.buf)) % len(r.buf)
	for i := range result {
		result[i] = r.buf[(start+i)%len(r.buf)]
	}

	r.count = 0
	r.head = 0
	r.dropped = 0
	return result
}

func (r *ringBuffer) len() int {
	return r.count
}
