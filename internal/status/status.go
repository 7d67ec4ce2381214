// Package status provides a thread-safe status tracker for the growbox daemon.
// It is written by the control loop and read by HTTP handlers.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/growbox/internal/policy"
	"github.com/sweeney/growbox/internal/sensor"
)

// Config contains daemon configuration for display.
type Config struct {
	DeviceID          string
	TickMs            int64
	WatchdogMs        int64
	MoistureThreshold int
	WaterLowThreshold int
	Broker            string
	HTTPAddr          string
}

// Failure classifies a counted, non-fatal fault.
type Failure string

const (
	FailureClimate  Failure = "climate"
	FailureAnalog   Failure = "analog"
	FailureActuator Failure = "actuator"
	FailurePublish  Failure = "publish"
	FailureWatchdog Failure = "watchdog"
)

// Counts are totals since start.
type Counts struct {
	Ticks            uint64
	ClimateFailures  uint64
	AnalogFailures   uint64
	ActuatorFailures uint64
	PublishFailures  uint64
	WatchdogTrips    uint64
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type, safe to use after the lock is released.
type Snapshot struct {
	Phase         string
	Reading       sensor.Snapshot
	HasReading    bool
	State         policy.ActuatorState
	Interlocked   bool
	Display       [2]string
	Counts        Counts
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
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

// Update records a completed tick.
func (t *Tracker) Update(reading sensor.Snapshot, state policy.ActuatorState, interlocked bool, display [2]string) {
	t.mu.Lock()
	t.snap.Reading = reading
	t.snap.HasReading = true
	t.snap.State = state
	t.snap.Interlocked = interlocked
	t.snap.Display = display
	t.snap.Counts.Ticks++
	t.mu.Unlock()
}

// SetState records an actuator change made outside a tick (watchdog, shutdown).
func (t *Tracker) SetState(state policy.ActuatorState) {
	t.mu.Lock()
	t.snap.State = state
	t.mu.Unlock()
}

// SetPhase sets the loop phase name.
func (t *Tracker) SetPhase(phase string) {
	t.mu.Lock()
	t.snap.Phase = phase
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// Count increments the counter for f.
func (t *Tracker) Count(f Failure) {
	t.mu.Lock()
	defer t.mu.Unlock()

	c := &t.snap.Counts
	switch f {
	case FailureClimate:
		c.ClimateFailures++
	case FailureAnalog:
		c.AnalogFailures++
	case FailureActuator:
		c.ActuatorFailures++
	case FailurePublish:
		c.PublishFailures++
	case FailureWatchdog:
		c.WatchdogTrips++
	}
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
