package sensor

import "errors"

// FakeHardware is a test double that returns scripted sensor values.
type FakeHardware struct {
	// Samples contains scripted readings to return.
	// Each call to ReadTemperatureHumidity() advances to the next sample;
	// the soil and water reads that follow use the same sample.
	Samples []Sample

	// index tracks current position in Samples
	index int
	// current is the sample selected by the last climate read
	current int

	// Closed tracks if Close was called
	Closed bool

	// SoilError and WaterError, if set, are returned by the analog reads.
	SoilError  error
	WaterError error
}

// Sample represents one scripted set of readings.
type Sample struct {
	TemperatureC float64
	HumidityPct  float64
	ClimateFail  bool // true = the combined sensor read fails
	Soil         int
	Water        int
}

// NewFakeHardware creates a FakeHardware with the given samples.
func NewFakeHardware(samples []Sample) *FakeHardware {
	return &FakeHardware{Samples: samples}
}

// ReadTemperatureHumidity selects the next scripted sample and returns its
// climate values. If samples are exhausted, the last sample repeats.
func (f *FakeHardware) ReadTemperatureHumidity() (float64, float64, bool) {
	if len(f.Samples) == 0 {
		return 0, 0, false
	}

	f.current = f.index
	if f.index < len(f.Samples)-1 {
		f.index++
	}

	s := f.Samples[f.current]
	if s.ClimateFail {
		return 0, 0, false
	}
	return s.TemperatureC, s.HumidityPct, true
}

// ReadSoilMoisture returns the soil value of the current sample.
func (f *FakeHardware) ReadSoilMoisture() (int, error) {
	if f.SoilError != nil {
		return 0, f.SoilError
	}
	if len(f.Samples) == 0 {
		return 0, errors.New("no samples configured")
	}
	return f.Samples[f.current].Soil, nil
}

// ReadWaterLevel returns the water value of the current sample.
func (f *FakeHardware) ReadWaterLevel() (int, error) {
	if f.WaterError != nil {
		return 0, f.WaterError
	}
	if len(f.Samples) == 0 {
		return 0, errors.New("no samples configured")
	}
	return f.Samples[f.current].Water, nil
}

// Close marks the hardware as closed.
func (f *FakeHardware) Close() error {
	f.Closed = true
	return nil
}

// Reset rewinds to the first sample.
func (f *FakeHardware) Reset() {
	f.index = 0
	f.current = 0
	f.Closed = false
}
