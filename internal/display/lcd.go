//go:build linux

package display

import (
	"fmt"

	"gobot.io/x/gobot/v2/platforms/raspi"
)

// LCD is a CharLCD on the Raspberry Pi I2C bus.
type LCD struct {
	*CharLCD
	adaptor *raspi.Adaptor
}

// NewLCD connects to the display and clears it.
func NewLCD() (*LCD, error) {
	a := raspi.NewAdaptor()
	if err := a.Connect(); err != nil {
		return nil, fmt.Errorf("connect raspi adaptor: %w", err)
	}

	c, err := NewCharLCD(a)
	if err != nil {
		a.Finalize()
		return nil, err
	}
	return &LCD{CharLCD: c, adaptor: a}, nil
}

// Close clears the display and releases the I2C bus.
func (l *LCD) Close() error {
	var errs []error

	if err := l.Clear(); err != nil {
		errs = append(errs, fmt.Errorf("clear lcd: %w", err))
	}
	if err := l.lcd.Halt(); err != nil {
		errs = append(errs, fmt.Errorf("halt lcd: %w", err))
	}
	if err := l.adaptor.Finalize(); err != nil {
		errs = append(errs, fmt.Errorf("finalize adaptor: %w", err))
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
