package sensor

import (
	"fmt"
	"strconv"

	"gobot.io/x/gobot/v2/drivers/i2c"
)

// The ADS1015 conversion register holds a signed 12-bit result left-justified
// in 16 bits. Single-ended inputs only use the positive half.
const (
	ads1015Shift       = 4
	ads1015PositiveMax = 2047
)

// AnalogInputs reads the soil and water probes from two single-ended ADS1015 channels.
type AnalogInputs struct {
	adc   *i2c.ADS1x15Driver
	soil  string
	water string
}

// NewAnalogInputs starts an ADS1015 on the given I2C connector.
func NewAnalogInputs(c i2c.Connector, soilChannel, waterChannel int, options ...func(i2c.Config)) (*AnalogInputs, error) {
	adc := i2c.NewADS1015Driver(c, options...)
	if err := adc.Start(); err != nil {
		return nil, fmt.Errorf("start ads1015: %w", err)
	}
	return &AnalogInputs{
		adc:   adc,
		soil:  strconv.Itoa(soilChannel),
		water: strconv.Itoa(waterChannel),
	}, nil
}

// ReadSoilMoisture returns the soil probe scaled to 0-DefaultADCMax.
func (a *AnalogInputs) ReadSoilMoisture() (int, error) {
	return a.read(a.soil)
}

// ReadWaterLevel returns the reservoir probe scaled to 0-DefaultADCMax.
func (a *AnalogInputs) ReadWaterLevel() (int, error) {
	return a.read(a.water)
}

func (a *AnalogInputs) read(channel string) (int, error) {
	v, err := a.adc.AnalogRead(channel)
	if err != nil {
		return 0, fmt.Errorf("read ads1015 channel %s: %w", channel, err)
	}
	// Single-ended inputs slightly below ground read as small negatives.
	if v < 0 {
		return 0, nil
	}
	return (v >> ads1015Shift) * DefaultADCMax / ads1015PositiveMax, nil
}

// Halt stops the converter driver.
func (a *AnalogInputs) Halt() error {
	return a.adc.Halt()
}
