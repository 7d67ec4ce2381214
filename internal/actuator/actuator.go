// Package actuator drives the pump and light relays with hardware abstraction.
// The real implementation uses the Linux GPIO character device.
// The fake implementation allows testing without hardware.
package actuator

import (
	"fmt"

	"github.com/sweeney/growbox/internal/policy"
)

// Outputs writes the relay lines. Writes are idempotent.
type Outputs interface {
	SetPump(on bool) error
	SetLight(on bool) error

	// Close releases GPIO resources, leaving both relays off.
	Close() error
}

// Pin definitions (BCM numbering)
const (
	DefaultPinPump  = 26
	DefaultPinLight = 27
)

// Apply writes state to out and returns the state actually commanded.
// If the pump write fails, pump-off is attempted once more and the returned
// state reports the pump as off. A light failure leaves the pump untouched.
func Apply(out Outputs, state policy.ActuatorState) (policy.ActuatorState, error) {
	applied := state

	if err := out.SetPump(state.PumpOn); err != nil {
		applied.PumpOn = false
		if state.PumpOn {
			if offErr := out.SetPump(false); offErr != nil {
				return applied, fmt.Errorf("set pump: %w (fail-safe off also failed: %v)", err, offErr)
			}
		}
		if lightErr := out.SetLight(state.LightOn); lightErr != nil {
			return applied, fmt.Errorf("set pump: %w; set light: %v", err, lightErr)
		}
		return applied, fmt.Errorf("set pump: %w", err)
	}

	if err := out.SetLight(state.LightOn); err != nil {
		return applied, fmt.Errorf("set light: %w", err)
	}

	return applied, nil
}
