//go:build !linux

package display

import (
	"errors"

	"github.com/sweeney/growbox/internal/policy"
	"github.com/sweeney/growbox/internal/sensor"
)

// LCD is not available on non-Linux platforms.
type LCD struct{}

// NewLCD returns an error on non-Linux platforms.
func NewLCD() (*LCD, error) {
	return nil, errors.New("display: lcd not supported on this platform (requires Linux)")
}

// Render is not implemented on non-Linux platforms.
func (l *LCD) Render(snap sensor.Snapshot, state policy.ActuatorState) error {
	return errors.New("display: not supported")
}

// Close is not implemented on non-Linux platforms.
func (l *LCD) Close() error {
	return nil
}
