// Package telemetry mirrors controller state to MQTT and receives light overrides,
// with an abstraction for testing.
package telemetry

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/sweeney/growbox/internal/policy"
	"github.com/sweeney/growbox/internal/sensor"
)

// ErrNotConnected is returned by Publish while the broker is unreachable.
// The message may still have been buffered for replay.
var ErrNotConnected = errors.New("telemetry: not connected")

// Sink publishes state outward and receives override commands inward.
type Sink interface {
	// Publish sends one snapshot and actuator state. Best effort and bounded in time;
	// an error must not crash the process.
	Publish(snap sensor.Snapshot, state policy.ActuatorState) error

	// PollOverride returns the most recent unconsumed light override, or nil.
	PollOverride() *bool

	// IsConnected reports whether the broker connection is up.
	IsConnected() bool

	// Close publishes the offline event and disconnects.
	Close() error
}

// Connector is implemented by sinks that need an explicit connection step.
type Connector interface {
	// Connect blocks until connected, the sink's retry budget is spent, or ctx ends.
	Connect(ctx context.Context) error
}

// ReasonCloser is implemented by sinks that report why they were closed.
type ReasonCloser interface {
	CloseWithReason(reason string) error
}

// Topics are the MQTT topics of one device.
type Topics struct {
	State    string // outbound snapshot + actuator state
	System   string // retained lifecycle events, also the LWT
	LightSet string // inbound light override
}

// NewTopics derives the topics under prefix (e.g. "growbox/tent-1").
func NewTopics(prefix string) Topics {
	prefix = strings.TrimSuffix(prefix, "/")
	return Topics{
		State:    prefix + "/state",
		System:   prefix + "/system",
		LightSet: prefix + "/light/set",
	}
}

// Lifecycle events published on the system topic.
const (
	EventOnline  = "ONLINE"
	EventOffline = "OFFLINE"
)

// Payload represents the state message structure.
type Payload struct {
	Growbox StatePayload `json:"growbox"`
}

// StatePayload contains one tick's readings and actuator states.
// Climate fields are null when the climate read failed.
type StatePayload struct {
	Timestamp       string       `json:"timestamp"`
	Tick            uint64       `json:"tick"`
	TemperatureC    *float64     `json:"temperature_c"`
	HumidityPct     *float64     `json:"humidity_pct"`
	ClimateValid    bool         `json:"climate_valid"`
	SoilMoistureRaw int          `json:"soil_moisture_raw"`
	WaterLevelRaw   int          `json:"water_level_raw"`
	Pump            policy.State `json:"pump"`
	Light           policy.State `json:"light"`
}

// FormatPayload creates the JSON payload for a state message.
func FormatPayload(snap sensor.Snapshot, state policy.ActuatorState) ([]byte, error) {
	p := StatePayload{
		Timestamp:       snap.At.UTC().Format(time.RFC3339),
		Tick:            snap.Tick,
		ClimateValid:    snap.ClimateValid,
		SoilMoistureRaw: snap.SoilMoistureRaw,
		WaterLevelRaw:   snap.WaterLevelRaw,
		Pump:            policy.OnOff(state.PumpOn),
		Light:           policy.OnOff(state.LightOn),
	}
	if snap.ClimateValid {
		temp, hum := snap.TemperatureC, snap.HumidityPct
		p.TemperatureC = &temp
		p.HumidityPct = &hum
	}
	return json.Marshal(Payload{Growbox: p})
}

// SystemEvent represents a lifecycle event (ONLINE, OFFLINE).
type SystemEvent struct {
	Timestamp time.Time
	Event     string
	Device    string
	Reason    string // e.g. "SIGTERM", "connection lost"
}

// SystemPayload represents the system message structure.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the lifecycle event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp,omitempty"`
	Event     string `json:"event"`
	Device    string `json:"device"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// A zero Timestamp is omitted (the LWT is registered long before it fires).
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	inner := SystemPayloadInner{
		Event:  event.Event,
		Device: event.Device,
		Reason: event.Reason,
	}
	if !event.Timestamp.IsZero() {
		inner.Timestamp = event.Timestamp.UTC().Format(time.RFC3339)
	}
	return json.Marshal(SystemPayload{System: inner})
}

// ErrBadOverride is returned for payloads that are not a light command.
var ErrBadOverride = errors.New("telemetry: unrecognised light override")

// ParseOverride decodes a light command. Accepted forms, case-insensitive:
// ON, OFF, true, false, 1, 0, or {"light": true|false}.
func ParseOverride(payload []byte) (bool, error) {
	s := strings.TrimSpace(string(payload))

	switch strings.ToLower(s) {
	case "on", "true", "1":
		return true, nil
	case "off", "false", "0":
		return false, nil
	}

	if strings.HasPrefix(s, "{") {
		var cmd struct {
			Light *bool `json:"light"`
		}
		if err := json.Unmarshal([]byte(s), &cmd); err != nil {
			return false, ErrBadOverride
		}
		if cmd.Light == nil {
			return false, ErrBadOverride
		}
		return *cmd.Light, nil
	}

	return false, ErrBadOverride
}
