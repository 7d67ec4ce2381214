// Package display renders the latest snapshot as a two-line status view.
package display

import (
	"fmt"
	"log"

	"github.com/sweeney/growbox/internal/policy"
	"github.com/sweeney/growbox/internal/sensor"
)

// Renderer shows the latest snapshot and actuator state.
type Renderer interface {
	Render(snap sensor.Snapshot, state policy.ActuatorState) error
}

// TemperaturePlaceholder replaces the temperature when the climate read failed.
const TemperaturePlaceholder = "--.--"

// Columns is the width of a line on the character LCD.
const Columns = 16

// FormatLines returns the two display lines, each at most Columns wide:
//
//	Temp: 23.40C
//	Soil:  20 P:ON
func FormatLines(snap sensor.Snapshot, state policy.ActuatorState) [2]string {
	temp := TemperaturePlaceholder
	if snap.ClimateValid {
		temp = fmt.Sprintf("%.2f", snap.TemperatureC)
	}
	return [2]string{
		fmt.Sprintf("Temp: %sC", temp),
		fmt.Sprintf("Soil:%4d P:%s", snap.SoilMoistureRaw, policy.OnOff(state.PumpOn)),
	}
}

// LogRenderer writes the display lines to the process log.
// Used when no LCD is attached.
type LogRenderer struct{}

// Render logs both lines on one entry.
func (LogRenderer) Render(snap sensor.Snapshot, state policy.ActuatorState) error {
	lines := FormatLines(snap, state)
	log.Printf("display: %s | %s", lines[0], lines[1])
	return nil
}
