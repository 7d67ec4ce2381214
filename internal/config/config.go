// Package config loads the growbox YAML file and applies environment overrides.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sweeney/growbox/internal/actuator"
	"github.com/sweeney/growbox/internal/policy"
	"github.com/sweeney/growbox/internal/sensor"
)

// Environment overrides. Secrets belong here, not in the file.
const (
	EnvDeviceID     = "GROWBOX_DEVICE_ID"
	EnvMQTTBroker   = "GROWBOX_MQTT_BROKER"
	EnvMQTTUsername = "GROWBOX_MQTT_USERNAME"
	EnvMQTTPassword = "GROWBOX_MQTT_PASSWORD"
)

// Config is the daemon configuration as read from the YAML file.
type Config struct {
	Device     DeviceConfig     `yaml:"device"`
	Thresholds ThresholdsConfig `yaml:"thresholds"`
	Loop       LoopConfig       `yaml:"loop"`
	MQTT       MQTTConfig       `yaml:"mqtt"`
	Hardware   HardwareConfig   `yaml:"hardware"`
	HTTP       HTTPConfig       `yaml:"http"`
}

// DeviceConfig identifies this enclosure in topics and status output.
type DeviceConfig struct {
	ID string `yaml:"id"`
}

// ThresholdsConfig holds the policy thresholds in ADC counts.
type ThresholdsConfig struct {
	Moisture int `yaml:"moisture"`
	WaterLow int `yaml:"water_low"`
}

// LoopConfig sets the tick period and the watchdog timeout.
type LoopConfig struct {
	TickMs     int `yaml:"tick_ms"`
	WatchdogMs int `yaml:"watchdog_ms"` // 0 = 5x tick
}

// MQTTConfig configures the telemetry sink.
type MQTTConfig struct {
	Broker           string `yaml:"broker"` // empty = telemetry disabled
	ClientID         string `yaml:"client_id"`
	Username         string `yaml:"username"`
	Password         string `yaml:"password"`
	TopicPrefix      string `yaml:"topic_prefix"`
	ConnectTimeoutMs int    `yaml:"connect_timeout_ms"`
	PublishTimeoutMs int    `yaml:"publish_timeout_ms"`
	BufferSize       int    `yaml:"buffer_size"`
}

// HardwareConfig maps relays and probes to GPIO lines and ADC channels.
type HardwareConfig struct {
	GPIOChip     string `yaml:"gpio_chip"`
	PumpPin      int    `yaml:"pump_pin"`
	LightPin     int    `yaml:"light_pin"`
	ActiveLow    bool   `yaml:"active_low"`
	SoilChannel  int    `yaml:"soil_channel"`
	WaterChannel int    `yaml:"water_channel"`
	ADCMax       int    `yaml:"adc_max"`
	LCD          bool   `yaml:"lcd"`
}

// HTTPConfig configures the status server.
type HTTPConfig struct {
	Addr string `yaml:"addr"` // empty = disabled
}

// Default returns the configuration used for any key the file leaves out.
func Default() *Config {
	return &Config{
		Device: DeviceConfig{ID: "growbox"},
		Thresholds: ThresholdsConfig{
			Moisture: policy.DefaultMoistureThreshold,
			WaterLow: policy.DefaultWaterLowThreshold,
		},
		Loop: LoopConfig{TickMs: 1000},
		MQTT: MQTTConfig{
			ConnectTimeoutMs: 30000,
			PublishTimeoutMs: 500,
			BufferSize:       60,
		},
		Hardware: HardwareConfig{
			GPIOChip:     "gpiochip0",
			PumpPin:      actuator.DefaultPinPump,
			LightPin:     actuator.DefaultPinLight,
			SoilChannel:  0,
			WaterChannel: 1,
			ADCMax:       sensor.DefaultADCMax,
			LCD:          true,
		},
		HTTP: HTTPConfig{Addr: ":80"},
	}
}

// Load reads a YAML config file over the defaults and applies environment overrides.
// A missing file is not an error; defaults and environment are used.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("read config: %w", err)
	default:
		if err := decode(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	applyEnv(cfg)
	return cfg, nil
}

func decode(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv(EnvDeviceID); v != "" {
		cfg.Device.ID = v
	}
	if v := os.Getenv(EnvMQTTBroker); v != "" {
		cfg.MQTT.Broker = v
	}
	if v := os.Getenv(EnvMQTTUsername); v != "" {
		cfg.MQTT.Username = v
	}
	if v := os.Getenv(EnvMQTTPassword); v != "" {
		cfg.MQTT.Password = v
	}
}

// PolicyThresholds returns the policy thresholds.
func (c *Config) PolicyThresholds() policy.Thresholds {
	return policy.Thresholds{
		Moisture: c.Thresholds.Moisture,
		WaterLow: c.Thresholds.WaterLow,
	}
}

// TickPeriod returns the control loop period.
func (c *Config) TickPeriod() time.Duration {
	return time.Duration(c.Loop.TickMs) * time.Millisecond
}

// WatchdogTimeout returns how long a tick may stall before the pump is forced off.
func (c *Config) WatchdogTimeout() time.Duration {
	return time.Duration(c.Loop.WatchdogMs) * time.Millisecond
}
