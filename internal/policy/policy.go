// Package policy contains the pure actuation rules for the enclosure.
// This package has NO hardware, MQTT or OS dependencies; every input is a value.
package policy

import "github.com/sweeney/growbox/internal/sensor"

// State is the display/wire form of a binary actuator.
type State string

const (
	StateOn  State = "ON"
	StateOff State = "OFF"
)

// OnOff converts a boolean actuator flag to its State.
func OnOff(on bool) State {
	if on {
		return StateOn
	}
	return StateOff
}

// ActuatorState is the commanded state of the pump and light relays.
// The zero value is the power-on state.
type ActuatorState struct {
	PumpOn  bool
	LightOn bool
}

// Thresholds are the raw ADC limits used by the pump rule.
type Thresholds struct {
	Moisture int // soil below this is dry
	WaterLow int // reservoir at or below this is unsafe to pump from
}

// Default thresholds of the reference enclosure.
const (
	DefaultMoistureThreshold = 30
	DefaultWaterLowThreshold = 300
)

// DefaultThresholds returns the reference thresholds.
func DefaultThresholds() Thresholds {
	return Thresholds{
		Moisture: DefaultMoistureThreshold,
		WaterLow: DefaultWaterLowThreshold,
	}
}

// Decide computes the next actuator state.
//
// The pump runs only while the soil is dry and the reservoir is above the
// low-water mark; both comparisons are strict and re-evaluated every call.
// The light follows lightOverride when non-nil and otherwise keeps prev.LightOn.
func Decide(snap sensor.Snapshot, prev ActuatorState, lightOverride *bool, th Thresholds) ActuatorState {
	next := ActuatorState{
		PumpOn:  snap.SoilMoistureRaw < th.Moisture && !Interlocked(snap, th),
		LightOn: prev.LightOn,
	}
	if lightOverride != nil {
		next.LightOn = *lightOverride
	}
	return next
}

// Interlocked reports whether the low-water interlock suppresses the pump.
func Interlocked(snap sensor.Snapshot, th Thresholds) bool {
	return snap.WaterLevelRaw <= th.WaterLow
}

// Safe returns the fail-safe state derived from prev: pump off, light unchanged.
func Safe(prev ActuatorState) ActuatorState {
	return ActuatorState{PumpOn: false, LightOn: prev.LightOn}
}
