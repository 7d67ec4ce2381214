package sensor

import (
	"errors"
	"math"
	"testing"
	"time"
)

func TestSourceReadValid(t *testing.T) {
	hw := NewFakeHardware([]Sample{{TemperatureC: 23.5, HumidityPct: 61, Soil: 20, Water: 500}})
	src := NewSource(hw, 0)
	at := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	snap, err := src.Read(7, at)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if snap.Tick != 7 {
		t.Errorf("Tick: got %d, want 7", snap.Tick)
	}
	if !snap.At.Equal(at) {
		t.Errorf("At: got %v, want %v", snap.At, at)
	}
	if !snap.ClimateValid {
		t.Error("expected ClimateValid=true")
	}
	if snap.TemperatureC != 23.5 || snap.HumidityPct != 61 {
		t.Errorf("climate: got (%v, %v), want (23.5, 61)", snap.TemperatureC, snap.HumidityPct)
	}
	if snap.SoilMoistureRaw != 20 || snap.WaterLevelRaw != 500 {
		t.Errorf("analog: got (%d, %d), want (20, 500)", snap.SoilMoistureRaw, snap.WaterLevelRaw)
	}
}

func TestSourceClimateFailure(t *testing.T) {
	hw := NewFakeHardware([]Sample{{TemperatureC: 99, HumidityPct: 99, ClimateFail: true, Soil: 10, Water: 400}})
	src := NewSource(hw, 0)

	snap, err := src.Read(1, time.Now())
	if err != nil {
		t.Fatalf("climate failure must not be an error: %v", err)
	}
	if snap.ClimateValid {
		t.Error("expected ClimateValid=false")
	}
	if snap.TemperatureC != 0 || snap.HumidityPct != 0 {
		t.Errorf("invalid climate values should be zeroed, got (%v, %v)", snap.TemperatureC, snap.HumidityPct)
	}
	if snap.SoilMoistureRaw != 10 || snap.WaterLevelRaw != 400 {
		t.Errorf("analog readings must survive climate failure, got (%d, %d)", snap.SoilMoistureRaw, snap.WaterLevelRaw)
	}
}

func TestSourceClimateOutOfRange(t *testing.T) {
	tests := []struct {
		name string
		temp float64
		hum  float64
	}{
		{"nan temperature", math.NaN(), 50},
		{"nan humidity", 20, math.NaN()},
		{"too hot", 120, 50},
		{"too cold", -60, 50},
		{"humidity over 100", 20, 130},
		{"negative humidity", 20, -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hw := NewFakeHardware([]Sample{{TemperatureC: tt.temp, HumidityPct: tt.hum, Soil: 1, Water: 1}})
			snap, err := NewSource(hw, 0).Read(1, time.Now())
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if snap.ClimateValid {
				t.Errorf("expected ClimateValid=false for (%v, %v)", tt.temp, tt.hum)
			}
		})
	}
}

func TestSourceClampsAnalog(t *testing.T) {
	hw := NewFakeHardware([]Sample{{Soil: -5, Water: 5000}})
	snap, err := NewSource(hw, 1023).Read(1, time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if snap.SoilMoistureRaw != 0 {
		t.Errorf("soil: got %d, want 0", snap.SoilMoistureRaw)
	}
	if snap.WaterLevelRaw != 1023 {
		t.Errorf("water: got %d, want 1023", snap.WaterLevelRaw)
	}
}

func TestSourceAnalogErrors(t *testing.T) {
	hw := NewFakeHardware([]Sample{{Soil: 1, Water: 1}})
	hw.SoilError = errors.New("i2c nack")

	_, err := NewSource(hw, 0).Read(1, time.Now())
	if !errors.Is(err, ErrAnalogRead) {
		t.Errorf("soil failure: expected ErrAnalogRead, got %v", err)
	}

	hw.SoilError = nil
	hw.WaterError = errors.New("i2c nack")
	_, err = NewSource(hw, 0).Read(2, time.Now())
	if !errors.Is(err, ErrAnalogRead) {
		t.Errorf("water failure: expected ErrAnalogRead, got %v", err)
	}
}

func TestFakeHardwareRepeatsLastSample(t *testing.T) {
	hw := NewFakeHardware([]Sample{{Soil: 1}, {Soil: 2}})
	src := NewSource(hw, 0)

	want := []int{1, 2, 2, 2}
	for i, w := range want {
		snap, err := src.Read(uint64(i+1), time.Now())
		if err != nil {
			t.Fatalf("read %d: %v", i, err)
		}
		if snap.SoilMoistureRaw != w {
			t.Errorf("read %d: soil got %d, want %d", i, snap.SoilMoistureRaw, w)
		}
	}
}

func TestFakeHardwareNoSamples(t *testing.T) {
	hw := NewFakeHardware(nil)
	if _, err := NewSource(hw, 0).Read(1, time.Now()); err == nil {
		t.Error("expected error with no samples")
	}
}

func TestFakeHardwareCloseAndReset(t *testing.T) {
	hw := NewFakeHardware([]Sample{{Soil: 1}, {Soil: 2}})
	src := NewSource(hw, 0)
	src.Read(1, time.Now())

	if err := hw.Close(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if !hw.Closed {
		t.Error("should be closed after Close()")
	}

	hw.Reset()
	snap, _ := src.Read(2, time.Now())
	if snap.SoilMoistureRaw != 1 {
		t.Errorf("after reset: soil got %d, want 1", snap.SoilMoistureRaw)
	}
}
