//go:build linux

package actuator

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

// RealOutputs drives relay lines through the Linux GPIO character device.
type RealOutputs struct {
	chip      *gpiocdev.Chip
	pumpLine  *gpiocdev.Line
	lightLine *gpiocdev.Line
}

// NewRealOutputs requests the pump and light lines as outputs, initially off.
// activeLow inverts both lines for relay boards that switch on a low level.
func NewRealOutputs(chipName string, pinPump, pinLight int, activeLow bool) (*RealOutputs, error) {
	chip, err := gpiocdev.NewChip(chipName)
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}

	opts := []gpiocdev.LineReqOption{gpiocdev.AsOutput(0)}
	if activeLow {
		opts = append(opts, gpiocdev.AsActiveLow)
	}

	pumpLine, err := chip.RequestLine(pinPump, opts...)
	if err != nil {
		chip.Close()
		return nil, fmt.Errorf("request pump pin %d: %w", pinPump, err)
	}

	lightLine, err := chip.RequestLine(pinLight, opts...)
	if err != nil {
		pumpLine.Close()
		chip.Close()
		return nil, fmt.Errorf("request light pin %d: %w", pinLight, err)
	}

	return &RealOutputs{
		chip:      chip,
		pumpLine:  pumpLine,
		lightLine: lightLine,
	}, nil
}

// SetPump drives the pump relay.
func (r *RealOutputs) SetPump(on bool) error {
	if err := r.pumpLine.SetValue(level(on)); err != nil {
		return fmt.Errorf("write pump pin: %w", err)
	}
	return nil
}

// SetLight drives the light relay.
func (r *RealOutputs) SetLight(on bool) error {
	if err := r.lightLine.SetValue(level(on)); err != nil {
		return fmt.Errorf("write light pin: %w", err)
	}
	return nil
}

// Close switches both relays off and releases the lines.
// Lines are reconfigured as inputs with pull-down (Pi boot default) so the
// relays stay released while the process is down.
func (r *RealOutputs) Close() error {
	var errs []error

	for _, l := range []struct {
		name string
		line *gpiocdev.Line
	}{
		{"pump", r.pumpLine},
		{"light", r.lightLine},
	} {
		if l.line == nil {
			continue
		}
		if err := l.line.SetValue(0); err != nil {
			errs = append(errs, fmt.Errorf("switch off %s pin: %w", l.name, err))
		}
		if err := l.line.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullDown); err != nil {
			errs = append(errs, fmt.Errorf("reconfigure %s pin: %w", l.name, err))
		}
		if err := l.line.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s pin: %w", l.name, err))
		}
	}
	if r.chip != nil {
		if err := r.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}

func level(on bool) int {
	if on {
		return 1
	}
	return 0
}
