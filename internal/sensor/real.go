//go:build linux

package sensor

import (
	"fmt"

	"gobot.io/x/gobot/v2/drivers/i2c"
	"gobot.io/x/gobot/v2/platforms/raspi"
)

// RealHardware reads an SHT2x climate sensor and two ADS1015 channels over I2C.
type RealHardware struct {
	adaptor *raspi.Adaptor
	climate *i2c.SHT2xDriver
	analog  *AnalogInputs
}

// NewRealHardware connects to the Raspberry Pi I2C bus and starts the drivers.
func NewRealHardware(soilChannel, waterChannel int) (*RealHardware, error) {
	a := raspi.NewAdaptor()
	if err := a.Connect(); err != nil {
		return nil, fmt.Errorf("connect raspi adaptor: %w", err)
	}

	climate := i2c.NewSHT2xDriver(a)
	if err := climate.Start(); err != nil {
		a.Finalize()
		return nil, fmt.Errorf("start sht2x: %w", err)
	}

	analog, err := NewAnalogInputs(a, soilChannel, waterChannel)
	if err != nil {
		climate.Halt()
		a.Finalize()
		return nil, err
	}

	return &RealHardware{adaptor: a, climate: climate, analog: analog}, nil
}

// ReadTemperatureHumidity reads the SHT2x. Any bus error marks the reading invalid.
func (r *RealHardware) ReadTemperatureHumidity() (float64, float64, bool) {
	temp, err := r.climate.Temperature()
	if err != nil {
		return 0, 0, false
	}
	hum, err := r.climate.Humidity()
	if err != nil {
		return 0, 0, false
	}
	return float64(temp), float64(hum), true
}

// ReadSoilMoisture returns the soil probe channel in 12-bit counts.
func (r *RealHardware) ReadSoilMoisture() (int, error) {
	return r.analog.ReadSoilMoisture()
}

// ReadWaterLevel returns the reservoir probe channel in 12-bit counts.
func (r *RealHardware) ReadWaterLevel() (int, error) {
	return r.analog.ReadWaterLevel()
}

// Close halts the drivers and releases the I2C bus.
func (r *RealHardware) Close() error {
	var errs []error

	if err := r.analog.Halt(); err != nil {
		errs = append(errs, fmt.Errorf("halt ads1015: %w", err))
	}
	if err := r.climate.Halt(); err != nil {
		errs = append(errs, fmt.Errorf("halt sht2x: %w", err))
	}
	if err := r.adaptor.Finalize(); err != nil {
		errs = append(errs, fmt.Errorf("finalize adaptor: %w", err))
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
