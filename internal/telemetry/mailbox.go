package telemetry

import "sync"

// overrideMailbox holds the latest unconsumed light command.
// The MQTT callback goroutine is the only writer; the control loop takes.
// A newer command replaces an older one that was never taken.
type overrideMailbox struct {
	mu      sync.Mutex
	pending *bool
}

func (m *overrideMailbox) put(on bool) {
	m.mu.Lock()
	m.pending = &on
	m.mu.Unlock()
}

func (m *overrideMailbox) take() *bool {
	m.mu.Lock()
	v := m.pending
	m.pending = nil
	m.mu.Unlock()
	return v
}
