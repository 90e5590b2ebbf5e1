package mqtt

import "log"

// bufferedMsg is a serialized message waiting to be sent.
type bufferedMsg struct {
	topic    string
	payload  []byte
	qos      byte
	retained bool
}

// ringBuffer is a fixed-capacity FIFO of messages waiting for the sender.
// When full, the oldest message is dropped. Not safe for concurrent use.
type ringBuffer struct {
	buf      []bufferedMsg
	capacity int
	head     int // next write position
	count    int
	dropped  int // messages lost since the last drain
}

func newRingBuffer(capacity int) *ringBuffer {
	if capacity < 1 {
		capacity = 1
	}
	return &ringBuffer{
		buf:      make([]bufferedMsg, capacity),
		capacity: capacity,
	}
}

func (r *ringBuffer) push(msg bufferedMsg) {
	if r.count == r.capacity {
		if r.dropped == 0 {
			log.Printf("mqtt: send queue full (%d messages), dropping oldest", r.capacity)
		}
		r.dropped++
		r.count--
	}
	r.buf[r.head] = msg
	r.head = (r.head + 1) % r.capacity
	r.count++
}

// drainAll returns queued messages oldest first and empties the buffer.
func (r *ringBuffer) drainAll() []bufferedMsg {
	if r.count == 0 {
		return nil
	}
	out := make([]bufferedMsg, r.count)
	start := (r.head - r.count + r.capacity) % r.capacity
	for i := range out {
		out[i] = r.buf[(start+i)%r.capacity]
	}
	r.count = 0
	r.head = 0
	r.dropped = 0
	return out
}

// requeue puts unsent messages back ahead of anything queued since they
// were drained, keeping the newest capacity messages overall.
func (r *ringBuffer) requeue(unsent []bufferedMsg) {
	if len(unsent) == 0 {
		return
	}
	queued := r.drainAll()
	for _, m := range unsent {
		r.push(m)
	}
	for _, m := range queued {
		r.push(m)
	}
}

func (r *ringBuffer) len() int {
	return r.count
}
