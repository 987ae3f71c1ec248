package mqtt

// bufferedMsg is a publish held back until the broker is reachable.
type bufferedMsg struct {
	topic    string
	payload  []byte
	qos      byte
	retained bool
}

// ringBuffer keeps the newest capacity messages in arrival order.
// The Publisher serializes access with its mutex.
type ringBuffer struct {
	slots    []bufferedMsg
	capacity int
	oldest   int // index of the oldest held message
	count    int
	dropped  int // messages overwritten since the last drain
}

func newRingBuffer(capacity int) *ringBuffer {
	capacity = max(capacity, 0)
	return &ringBuffer{slots: make([]bufferedMsg, capacity), capacity: capacity}
}

// push stores msg. When full the oldest message is replaced. It reports true
// only for the first replacement since the last drain, so callers log once
// per outage.
func (r *ringBuffer) push(msg bufferedMsg) bool {
	if r.capacity == 0 {
		return false
	}
	if r.count < r.capacity {
		r.slots[(r.oldest+r.count)%r.capacity] = msg
		r.count++
		return false
	}
	r.slots[r.oldest] = msg
	r.oldest = (r.oldest + 1) % r.capacity
	r.dropped++
	return r.dropped == 1
}

// drainAll empties the buffer, returning messages oldest first, or nil.
func (r *ringBuffer) drainAll() []bufferedMsg {
	if r.count == 0 {
		return nil
	}
	out := make([]bufferedMsg, 0, r.count)
	for i := 0; i < r.count; i++ {
		j := (r.oldest + i) % r.capacity
		out = append(out, r.slots[j])
		r.slots[j] = bufferedMsg{}
	}
	r.oldest, r.count, r.dropped = 0, 0, 0
	return out
}

func (r *ringBuffer) len() int {
	return r.count
}
