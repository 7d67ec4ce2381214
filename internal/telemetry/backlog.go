package telemetry

import "log"

// pendingMsg is a serialized state message waiting for the broker.
type pendingMsg struct {
	topic   string
	payload []byte
}

// backlog keeps the newest state messages produced while disconnected.
// When full, the oldest message is overwritten.
// Not safe for concurrent use; MQTTSink guards it with its mutex.
type backlog struct {
	slots   []pendingMsg
	next    int // slot the next push writes
	size    int
	dropped int // messages overwritten since the last flush
}

func newBacklog(capacity int) *backlog {
	return &backlog{slots: make([]pendingMsg, capacity)}
}

func (b *backlog) push(m pendingMsg) {
	if len(b.slots) == 0 {
		b.dropped++
		return
	}
	if b.size == len(b.slots) {
		if b.dropped == 0 {
			log.Printf("telemetry: backlog full (%d messages), dropping oldest", len(b.slots))
		}
		b.dropped++
	} else {
		b.size++
	}
	b.slots[b.next] = m
	b.next = (b.next + 1) % len(b.slots)
}

// flush returns buffered messages oldest first and empties the backlog.
func (b *backlog) flush() []pendingMsg {
	if b.size == 0 {
		b.dropped = 0
		return nil
	}

	out := make([]pendingMsg, 0, b.size)
	first := (b.next - b.size + len(b.slots)) % len(b.slots)
	for i := 0; i < b.size; i++ {
		out = append(out, b.slots[(first+i)%len(b.slots)])
	}

	b.next, b.size, b.dropped = 0, 0, 0
	return out
}

func (b *backlog) len() int {
	return b.size
}
