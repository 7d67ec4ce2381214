// internal/config/config_test.go
package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Thresholds.Moisture != 30 || cfg.Thresholds.WaterLow != 300 {
		t.Errorf("thresholds: got %+v", cfg.Thresholds)
	}
	if cfg.TickPeriod() != time.Second {
		t.Errorf("TickPeriod: got %v, want 1s", cfg.TickPeriod())
	}
	if cfg.MQTT.Broker != "" {
		t.Errorf("telemetry should be disabled by default, broker=%q", cfg.MQTT.Broker)
	}
	if err := Validate(cfg); err != nil {
		t.Errorf("defaults must validate: %v", err)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
device:
  id: tent-1
thresholds:
  moisture: 1200
  water_low: 800
loop:
  tick_ms: 2000
mqtt:
  broker: tcp://broker.local:1883
  username: grower
hardware:
  pump_pin: 5
  light_pin: 6
  lcd: false
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Device.ID != "tent-1" {
		t.Errorf("Device.ID: got %q", cfg.Device.ID)
	}
	th := cfg.PolicyThresholds()
	if th.Moisture != 1200 || th.WaterLow != 800 {
		t.Errorf("thresholds: got %+v", th)
	}
	if cfg.TickPeriod() != 2*time.Second {
		t.Errorf("TickPeriod: got %v", cfg.TickPeriod())
	}
	if cfg.MQTT.Broker != "tcp://broker.local:1883" || cfg.MQTT.Username != "grower" {
		t.Errorf("mqtt: got %+v", cfg.MQTT)
	}
	// Untouched keys keep their defaults.
	if cfg.MQTT.PublishTimeoutMs != 500 {
		t.Errorf("PublishTimeoutMs: got %d, want default 500", cfg.MQTT.PublishTimeoutMs)
	}
	if cfg.Hardware.GPIOChip != "gpiochip0" {
		t.Errorf("GPIOChip: got %q", cfg.Hardware.GPIOChip)
	}
	if cfg.Hardware.LCD {
		t.Error("expected LCD=false")
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	path := writeConfig(t, "thresholds:\n  moisure: 10\n")
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for misspelled key")
	}
}

func TestLoadRejectsBadYAML(t *testing.T) {
	path := writeConfig(t, "loop: [unterminated\n")
	if _, err := Load(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestLoadEmptyFile(t *testing.T) {
	cfg, err := Load(writeConfig(t, ""))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Loop.TickMs != 1000 {
		t.Errorf("TickMs: got %d", cfg.Loop.TickMs)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv(EnvDeviceID, "env-box")
	t.Setenv(EnvMQTTBroker, "tcp://env:1883")
	t.Setenv(EnvMQTTUsername, "envuser")
	t.Setenv(EnvMQTTPassword, "s3cret")

	path := writeConfig(t, "mqtt:\n  broker: tcp://file:1883\n  password: fromfile\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Device.ID != "env-box" {
		t.Errorf("Device.ID: got %q", cfg.Device.ID)
	}
	if cfg.MQTT.Broker != "tcp://env:1883" {
		t.Errorf("Broker: got %q", cfg.MQTT.Broker)
	}
	if cfg.MQTT.Username != "envuser" || cfg.MQTT.Password != "s3cret" {
		t.Errorf("credentials not overridden: %+v", cfg.MQTT)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"defaults", func(c *Config) {}, ""},
		{"empty device id", func(c *Config) { c.Device.ID = " " }, "device.id"},
		{"device id with slash", func(c *Config) { c.Device.ID = "a/b" }, "device.id"},
		{"moisture above adc", func(c *Config) { c.Thresholds.Moisture = 5000 }, "thresholds.moisture"},
		{"adc max above converter range", func(c *Config) { c.Hardware.ADCMax = 32767 }, "hardware.adc_max"},
		{"zero adc max", func(c *Config) { c.Hardware.ADCMax = 0 }, "hardware.adc_max"},
		{"negative water low", func(c *Config) { c.Thresholds.WaterLow = -1 }, "thresholds.water_low"},
		{"zero tick", func(c *Config) { c.Loop.TickMs = 0 }, "loop.tick_ms"},
		{"watchdog shorter than tick", func(c *Config) { c.Loop.WatchdogMs = 500 }, "loop.watchdog_ms"},
		{"bad broker scheme", func(c *Config) { c.MQTT.Broker = "http://x:1883" }, "unsupported scheme"},
		{"broker without host", func(c *Config) { c.MQTT.Broker = "tcp://" }, "missing host"},
		{"unbounded connect", func(c *Config) {
			c.MQTT.Broker = "tcp://b:1883"
			c.MQTT.ConnectTimeoutMs = 0
		}, "connect_timeout_ms"},
		{"publish slower than tick", func(c *Config) {
			c.MQTT.Broker = "tcp://b:1883"
			c.MQTT.PublishTimeoutMs = 1000
		}, "publish_timeout_ms"},
		{"wildcard prefix", func(c *Config) {
			c.MQTT.Broker = "tcp://b:1883"
			c.MQTT.TopicPrefix = "grow/#"
		}, "wildcards"},
		{"same pins", func(c *Config) { c.Hardware.LightPin = c.Hardware.PumpPin }, "must differ"},
		{"channel out of range", func(c *Config) { c.Hardware.WaterChannel = 4 }, "water_channel"},
		{"same channels", func(c *Config) { c.Hardware.WaterChannel = c.Hardware.SoilChannel }, "must differ"},
		{"valid telemetry", func(c *Config) { c.MQTT.Broker = "tcp://b:1883" }, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := Validate(cfg)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("expected error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestValidateDoesNotMutate(t *testing.T) {
	cfg := Default()
	cfg.MQTT.Broker = "tcp://b:1883"
	before := *cfg
	if err := Validate(cfg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if *cfg != before {
		t.Error("Validate mutated the config")
	}
}

func TestNormalize(t *testing.T) {
	cfg := Default()
	cfg.Device.ID = "tent-2"
	cfg.MQTT.Broker = "tcp://b:1883"
	Normalize(cfg)

	if cfg.Loop.WatchdogMs != 5000 {
		t.Errorf("WatchdogMs: got %d, want 5000", cfg.Loop.WatchdogMs)
	}
	if cfg.WatchdogTimeout() != 5*time.Second {
		t.Errorf("WatchdogTimeout: got %v", cfg.WatchdogTimeout())
	}
	if cfg.MQTT.TopicPrefix != "growbox/tent-2" {
		t.Errorf("TopicPrefix: got %q", cfg.MQTT.TopicPrefix)
	}
	if !strings.HasPrefix(cfg.MQTT.ClientID, "tent-2-") || len(cfg.MQTT.ClientID) != len("tent-2-")+8 {
		t.Errorf("ClientID: got %q", cfg.MQTT.ClientID)
	}
}

func TestNormalizeKeepsExplicitValues(t *testing.T) {
	cfg := Default()
	cfg.MQTT.Broker = "tcp://b:1883"
	cfg.MQTT.TopicPrefix = "/farm/box/"
	cfg.MQTT.ClientID = "fixed"
	cfg.Loop.WatchdogMs = 9000
	Normalize(cfg)

	if cfg.MQTT.TopicPrefix != "farm/box" {
		t.Errorf("TopicPrefix: got %q", cfg.MQTT.TopicPrefix)
	}
	if cfg.MQTT.ClientID != "fixed" {
		t.Errorf("ClientID: got %q", cfg.MQTT.ClientID)
	}
	if cfg.Loop.WatchdogMs != 9000 {
		t.Errorf("WatchdogMs: got %d", cfg.Loop.WatchdogMs)
	}
}

func TestNormalizeWithoutBroker(t *testing.T) {
	cfg := Default()
	Normalize(cfg)
	if cfg.MQTT.ClientID != "" || cfg.MQTT.TopicPrefix != "" {
		t.Errorf("MQTT fields should stay empty when telemetry is disabled: %+v", cfg.MQTT)
	}
	Normalize(nil)
}
