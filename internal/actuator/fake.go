package actuator

import "sync"

// FakeOutputs records relay writes for test assertions.
// Safe for concurrent use so the watchdog goroutine can write too.
type FakeOutputs struct {
	mu sync.Mutex

	// Pump and Light hold the last value written.
	Pump  bool
	Light bool

	// PumpWrites and LightWrites record every write in order.
	PumpWrites  []bool
	LightWrites []bool

	// PumpError and LightError, if set, are returned by the setters.
	// PumpOnError only fails writes that switch the pump on.
	PumpError   error
	PumpOnError error
	LightError  error

	// Closed tracks if Close was called.
	Closed bool
}

// NewFakeOutputs creates FakeOutputs with both relays off.
func NewFakeOutputs() *FakeOutputs {
	return &FakeOutputs{}
}

// SetPump records a pump write.
func (f *FakeOutputs) SetPump(on bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.PumpError != nil {
		return f.PumpError
	}
	if on && f.PumpOnError != nil {
		return f.PumpOnError
	}
	f.Pump = on
	f.PumpWrites = append(f.PumpWrites, on)
	return nil
}

// SetLight records a light write.
func (f *FakeOutputs) SetLight(on bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.LightError != nil {
		return f.LightError
	}
	f.Light = on
	f.LightWrites = append(f.LightWrites, on)
	return nil
}

// Close turns both relays off and marks the outputs as closed.
func (f *FakeOutputs) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.Pump = false
	f.Light = false
	f.Closed = true
	return nil
}

// State returns the last written relay values.
func (f *FakeOutputs) State() (pump, light bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Pump, f.Light
}
