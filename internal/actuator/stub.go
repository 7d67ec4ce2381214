//go:build !linux

package actuator

import "errors"

// RealOutputs is not available on non-Linux platforms.
type RealOutputs struct{}

// NewRealOutputs returns an error on non-Linux platforms.
func NewRealOutputs(chipName string, pinPump, pinLight int, activeLow bool) (*RealOutputs, error) {
	return nil, errors.New("actuator: not supported on this platform (requires Linux)")
}

// SetPump is not implemented on non-Linux platforms.
func (r *RealOutputs) SetPump(on bool) error {
	return errors.New("actuator: not supported")
}

// SetLight is not implemented on non-Linux platforms.
func (r *RealOutputs) SetLight(on bool) error {
	return errors.New("actuator: not supported")
}

// Close is not implemented on non-Linux platforms.
func (r *RealOutputs) Close() error {
	return nil
}
