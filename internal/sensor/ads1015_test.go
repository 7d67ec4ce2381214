package sensor

import (
	"errors"
	"sync"
	"testing"
	"time"

	"gobot.io/x/gobot/v2/drivers/i2c"
)

// fakeBus stands in for the I2C bus an ADS1015 sits on. Each single-ended
// channel holds a 16-bit conversion register value.
type fakeBus struct {
	mu      sync.Mutex
	conv    [4]uint16
	channel int
	readErr error
}

func (b *fakeBus) GetI2cConnection(address int, busNr int) (i2c.Connection, error) {
	return b, nil
}

func (b *fakeBus) DefaultI2cBus() int { return 1 }

func (b *fakeBus) WriteWordData(reg uint8, val uint16) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if reg == 0x01 {
		config := swap(val)
		b.channel = int(config>>12&0x07) - 4
	}
	return nil
}

func (b *fakeBus) ReadWordData(reg uint8) (uint16, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.readErr != nil {
		return 0, b.readErr
	}
	if reg == 0x01 {
		return swap(0x8000), nil // conversion done
	}
	return swap(b.conv[b.channel]), nil
}

func (b *fakeBus) Read(data []byte) (int, error)               { return len(data), nil }
func (b *fakeBus) Write(data []byte) (int, error)              { return len(data), nil }
func (b *fakeBus) Close() error                                { return nil }
func (b *fakeBus) ReadByte() (byte, error)                     { return 0, nil }
func (b *fakeBus) ReadByteData(reg uint8) (uint8, error)       { return 0, nil }
func (b *fakeBus) ReadBlockData(reg uint8, data []byte) error  { return nil }
func (b *fakeBus) WriteByte(val byte) error                    { return nil }
func (b *fakeBus) WriteBytes(data []byte) error                { return nil }
func (b *fakeBus) WriteByteData(reg uint8, val uint8) error    { return nil }
func (b *fakeBus) WriteBlockData(reg uint8, data []byte) error { return nil }

func swap(v uint16) uint16 { return v<<8 | v>>8 }

// twelveBit places a 12-bit count where the ADS1015 reports it.
func twelveBit(v int) uint16 { return uint16(v << 4) }

// analogOnly is Hardware with a failing climate sensor and real ADS1015 reads.
type analogOnly struct{ *AnalogInputs }

func (analogOnly) ReadTemperatureHumidity() (float64, float64, bool) { return 0, 0, false }
func (analogOnly) Close() error                                      { return nil }

func newTestInputs(t *testing.T, bus *fakeBus) *AnalogInputs {
	t.Helper()
	in, err := NewAnalogInputs(bus, 0, 1, i2c.WithADS1x15WaitSingleCycle())
	if err != nil {
		t.Fatalf("NewAnalogInputs: %v", err)
	}
	return in
}

func TestAnalogInputsScaleToADCRange(t *testing.T) {
	// Register values are 12-bit counts; reads span 0-DefaultADCMax.
	tests := []struct {
		name  string
		count int
		want  int
	}{
		{"zero", 0, 0},
		{"quarter scale", 512, 1024},
		{"half scale", 1024, 2048},
		{"full scale", 2047, 4095},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bus := &fakeBus{}
			bus.conv[0] = twelveBit(tt.count)
			bus.conv[1] = twelveBit(tt.count)
			in := newTestInputs(t, bus)

			soil, err := in.ReadSoilMoisture()
			if err != nil {
				t.Fatalf("ReadSoilMoisture: %v", err)
			}
			water, err := in.ReadWaterLevel()
			if err != nil {
				t.Fatalf("ReadWaterLevel: %v", err)
			}
			if soil != tt.want || water != tt.want {
				t.Errorf("got soil=%d water=%d, want %d", soil, water, tt.want)
			}
		})
	}
}

func TestAnalogInputsNegativeReadsAsZero(t *testing.T) {
	bus := &fakeBus{}
	bus.conv[0] = 0xFFF0 // -16
	in := newTestInputs(t, bus)

	soil, err := in.ReadSoilMoisture()
	if err != nil {
		t.Fatalf("ReadSoilMoisture: %v", err)
	}
	if soil != 0 {
		t.Errorf("got %d, want 0", soil)
	}
}

func TestAnalogInputsBusError(t *testing.T) {
	bus := &fakeBus{readErr: errors.New("i2c timeout")}
	in := newTestInputs(t, bus)

	if _, err := in.ReadWaterLevel(); err == nil {
		t.Fatal("expected error")
	}
}

func TestSourceReadFromADS1015(t *testing.T) {
	bus := &fakeBus{}
	bus.conv[0] = twelveBit(512)
	bus.conv[1] = twelveBit(2047)
	src := NewSource(analogOnly{newTestInputs(t, bus)}, DefaultADCMax)

	snap, err := src.Read(1, time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if snap.SoilMoistureRaw != 1024 || snap.WaterLevelRaw != DefaultADCMax {
		t.Errorf("got soil=%d water=%d, want 1024/%d", snap.SoilMoistureRaw, snap.WaterLevelRaw, DefaultADCMax)
	}
	if snap.ClimateValid {
		t.Error("expected ClimateValid=false")
	}
}

func TestSourceADS1015BusErrorIsAnalogError(t *testing.T) {
	bus := &fakeBus{readErr: errors.New("i2c timeout")}
	src := NewSource(analogOnly{newTestInputs(t, bus)}, DefaultADCMax)

	if _, err := src.Read(1, time.Now()); !errors.Is(err, ErrAnalogRead) {
		t.Errorf("expected ErrAnalogRead, got %v", err)
	}
}
