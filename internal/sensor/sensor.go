// Package sensor provides enclosure sensor reads with hardware abstraction.
// The real implementation uses gobot I2C drivers on a Raspberry Pi.
// The fake implementation allows testing without hardware.
package sensor

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// ErrAnalogRead is returned when the soil or water probe cannot be sampled.
var ErrAnalogRead = errors.New("analog read failed")

// Physical range of the climate sensor. Readings outside are treated as failures.
const (
	MinTemperatureC = -40.0
	MaxTemperatureC = 80.0
	MinHumidityPct  = 0.0
	MaxHumidityPct  = 100.0
)

// DefaultADCMax is the full-scale value of a 12-bit converter.
const DefaultADCMax = 4095

// Hardware reads the physical sensors.
type Hardware interface {
	// ReadTemperatureHumidity returns temperature (C), relative humidity (%)
	// and whether the combined reading succeeded.
	ReadTemperatureHumidity() (float64, float64, bool)

	// ReadSoilMoisture returns the raw soil probe sample.
	ReadSoilMoisture() (int, error)

	// ReadWaterLevel returns the raw reservoir probe sample.
	ReadWaterLevel() (int, error)

	// Close releases hardware resources.
	Close() error
}

// Snapshot is the set of readings captured for one tick.
// It is a value type and must not be modified once produced.
type Snapshot struct {
	Tick uint64
	At   time.Time

	TemperatureC float64
	HumidityPct  float64
	ClimateValid bool // false when the temperature/humidity read failed

	SoilMoistureRaw int
	WaterLevelRaw   int
}

// Source turns raw hardware reads into snapshots.
type Source struct {
	hw     Hardware
	adcMax int
}

// NewSource creates a Source reading from hw. adcMax <= 0 selects DefaultADCMax.
func NewSource(hw Hardware, adcMax int) *Source {
	if adcMax <= 0 {
		adcMax = DefaultADCMax
	}
	return &Source{hw: hw, adcMax: adcMax}
}

// Read samples every sensor once. A failed climate read is reported through
// ClimateValid; a failed analog read is returned as an error wrapping ErrAnalogRead.
// There are no retries.
func (s *Source) Read(tick uint64, at time.Time) (Snapshot, error) {
	snap := Snapshot{Tick: tick, At: at}

	temp, hum, ok := s.hw.ReadTemperatureHumidity()
	if ok && climateInRange(temp, hum) {
		snap.TemperatureC = temp
		snap.HumidityPct = hum
		snap.ClimateValid = true
	}

	soil, err := s.hw.ReadSoilMoisture()
	if err != nil {
		return snap, fmt.Errorf("%w: soil moisture: %v", ErrAnalogRead, err)
	}
	water, err := s.hw.ReadWaterLevel()
	if err != nil {
		return snap, fmt.Errorf("%w: water level: %v", ErrAnalogRead, err)
	}

	snap.SoilMoistureRaw = clamp(soil, 0, s.adcMax)
	snap.WaterLevelRaw = clamp(water, 0, s.adcMax)
	return snap, nil
}

func climateInRange(temp, hum float64) bool {
	if math.IsNaN(temp) || math.IsNaN(hum) {
		return false
	}
	if temp < MinTemperatureC || temp > MaxTemperatureC {
		return false
	}
	return hum >= MinHumidityPct && hum <= MaxHumidityPct
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
