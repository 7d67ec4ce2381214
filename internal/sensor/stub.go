//go:build !linux

package sensor

import "errors"

// RealHardware is not available on non-Linux platforms.
type RealHardware struct{}

// NewRealHardware returns an error on non-Linux platforms.
func NewRealHardware(soilChannel, waterChannel int) (*RealHardware, error) {
	return nil, errors.New("sensor: not supported on this platform (requires Linux)")
}

// ReadTemperatureHumidity always reports an invalid reading.
func (r *RealHardware) ReadTemperatureHumidity() (float64, float64, bool) {
	return 0, 0, false
}

// ReadSoilMoisture is not implemented on non-Linux platforms.
func (r *RealHardware) ReadSoilMoisture() (int, error) {
	return 0, errors.New("sensor: not supported")
}

// ReadWaterLevel is not implemented on non-Linux platforms.
func (r *RealHardware) ReadWaterLevel() (int, error) {
	return 0, errors.New("sensor: not supported")
}

// Close is not implemented on non-Linux platforms.
func (r *RealHardware) Close() error {
	return nil
}
