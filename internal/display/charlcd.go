package display

import (
	"fmt"
	"strings"

	"gobot.io/x/gobot/v2/drivers/i2c"

	"github.com/sweeney/growbox/internal/policy"
	"github.com/sweeney/growbox/internal/sensor"
)

// CharLCD renders to a 16x2 JHD1313M1 character display reached through c.
type CharLCD struct {
	lcd  *i2c.JHD1313M1Driver
	last [2]string
}

// NewCharLCD starts the display and clears it.
func NewCharLCD(c i2c.Connector) (*CharLCD, error) {
	d := i2c.NewJHD1313M1Driver(c)
	if err := d.Start(); err != nil {
		return nil, fmt.Errorf("start lcd: %w", err)
	}
	if err := d.Clear(); err != nil {
		return nil, fmt.Errorf("clear lcd: %w", err)
	}
	return &CharLCD{lcd: d}, nil
}

// Render redraws both rows when the text changed since the last frame.
// Rows are padded to the full width so stale characters are overwritten.
func (l *CharLCD) Render(snap sensor.Snapshot, state policy.ActuatorState) error {
	lines := FormatLines(snap, state)
	if lines == l.last {
		return nil
	}

	for row, line := range lines {
		if err := l.lcd.SetPosition(row * Columns); err != nil {
			return fmt.Errorf("position lcd row %d: %w", row+1, err)
		}
		if err := l.lcd.Write(fitRow(line)); err != nil {
			return fmt.Errorf("write lcd row %d: %w", row+1, err)
		}
	}
	l.last = lines
	return nil
}

// Clear blanks the display.
func (l *CharLCD) Clear() error {
	l.last = [2]string{}
	return l.lcd.Clear()
}

func fitRow(s string) string {
	if len(s) > Columns {
		return s[:Columns]
	}
	return s + strings.Repeat(" ", Columns-len(s))
}
