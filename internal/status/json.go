package status

import (
	"encoding/json"
	"time"

	"github.com/sweeney/growbox/internal/policy"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Phase         string       `json:"phase"`
	Ready         bool         `json:"ready"`
	Reading       *ReadingJSON `json:"reading"`
	Pump          string       `json:"pump"`
	Light         string       `json:"light"`
	WaterLow      bool         `json:"water_low"`
	Display       []string     `json:"display"`
	UptimeSeconds int64        `json:"uptime_seconds"`
	StartTime     string       `json:"start_time"`
	Timestamp     string       `json:"timestamp"`
	MQTT          MQTTStatus   `json:"mqtt"`
	Counts        CountsJSON   `json:"counts"`
	Config        ConfigJSON   `json:"config"`
}

// ReadingJSON is the latest sensor snapshot. Climate fields are null when invalid.
type ReadingJSON struct {
	Tick            uint64   `json:"tick"`
	Timestamp       string   `json:"timestamp"`
	TemperatureC    *float64 `json:"temperature_c"`
	HumidityPct     *float64 `json:"humidity_pct"`
	ClimateValid    bool     `json:"climate_valid"`
	SoilMoistureRaw int      `json:"soil_moisture_raw"`
	WaterLevelRaw   int      `json:"water_level_raw"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// CountsJSON is the JSON representation of counters.
type CountsJSON struct {
	Ticks            uint64 `json:"ticks"`
	ClimateFailures  uint64 `json:"climate_failures"`
	AnalogFailures   uint64 `json:"analog_failures"`
	ActuatorFailures uint64 `json:"actuator_failures"`
	PublishFailures  uint64 `json:"publish_failures"`
	WatchdogTrips    uint64 `json:"watchdog_trips"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	DeviceID          string `json:"device_id"`
	TickMs            int64  `json:"tick_ms"`
	WatchdogMs        int64  `json:"watchdog_ms"`
	MoistureThreshold int    `json:"moisture_threshold"`
	WaterLowThreshold int    `json:"water_low_threshold"`
	Broker            string `json:"broker"`
	HTTPAddr          string `json:"http_addr"`
}

func buildReading(snap Snapshot) *ReadingJSON {
	if !snap.HasReading {
		return nil
	}
	r := snap.Reading
	out := &ReadingJSON{
		Tick:            r.Tick,
		Timestamp:       r.At.UTC().Format(time.RFC3339),
		ClimateValid:    r.ClimateValid,
		SoilMoistureRaw: r.SoilMoistureRaw,
		WaterLevelRaw:   r.WaterLevelRaw,
	}
	if r.ClimateValid {
		temp, hum := r.TemperatureC, r.HumidityPct
		out.TemperatureC = &temp
		out.HumidityPct = &hum
	}
	return out
}

// FormatJSON returns the JSON status for the web endpoint.
func FormatJSON(snap Snapshot) []byte {
	phase := snap.Phase
	if phase == "" {
		phase = "UNKNOWN"
	}

	var display []string
	if snap.HasReading {
		display = []string{snap.Display[0], snap.Display[1]}
	}

	inner := StatusInner{
		Phase:         phase,
		Ready:         snap.HasReading,
		Reading:       buildReading(snap),
		Pump:          string(policy.OnOff(snap.State.PumpOn)),
		Light:         string(policy.OnOff(snap.State.LightOn)),
		WaterLow:      snap.Interlocked,
		Display:       display,
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Counts: CountsJSON{
			Ticks:            snap.Counts.Ticks,
			ClimateFailures:  snap.Counts.ClimateFailures,
			AnalogFailures:   snap.Counts.AnalogFailures,
			ActuatorFailures: snap.Counts.ActuatorFailures,
			PublishFailures:  snap.Counts.PublishFailures,
			WatchdogTrips:    snap.Counts.WatchdogTrips,
		},
		Config: ConfigJSON{
			DeviceID:          snap.Config.DeviceID,
			TickMs:            snap.Config.TickMs,
			WatchdogMs:        snap.Config.WatchdogMs,
			MoistureThreshold: snap.Config.MoistureThreshold,
			WaterLowThreshold: snap.Config.WaterLowThreshold,
			Broker:            snap.Config.Broker,
			HTTPAddr:          snap.Config.HTTPAddr,
		},
	}

	data, _ := json.MarshalIndent(StatusJSON{Status: inner}, "", "  ")
	return data
}
