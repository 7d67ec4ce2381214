package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/sweeney/growbox/internal/sensor"
)

// Validate checks configuration correctness.
// It performs declarative validation only.
// It MUST NOT mutate configuration.
func Validate(cfg *Config) error {
	// ------------------------------------------------------------
	// DEVICE
	// ------------------------------------------------------------

	if strings.TrimSpace(cfg.Device.ID) == "" {
		return fmt.Errorf("device.id must not be empty")
	}
	if strings.ContainsAny(cfg.Device.ID, "/+#") {
		return fmt.Errorf("device.id %q must not contain MQTT topic characters (/ + #)", cfg.Device.ID)
	}

	// ------------------------------------------------------------
	// THRESHOLDS (raw ADC counts)
	// ------------------------------------------------------------

	adcMax := cfg.Hardware.ADCMax
	if adcMax <= 0 || adcMax > sensor.DefaultADCMax {
		return fmt.Errorf("hardware.adc_max must be 1-%d, got %d", sensor.DefaultADCMax, adcMax)
	}
	if cfg.Thresholds.Moisture < 0 || cfg.Thresholds.Moisture > adcMax {
		return fmt.Errorf("thresholds.moisture %d outside ADC range 0-%d", cfg.Thresholds.Moisture, adcMax)
	}
	if cfg.Thresholds.WaterLow < 0 || cfg.Thresholds.WaterLow > adcMax {
		return fmt.Errorf("thresholds.water_low %d outside ADC range 0-%d", cfg.Thresholds.WaterLow, adcMax)
	}

	// ------------------------------------------------------------
	// LOOP
	// ------------------------------------------------------------

	if cfg.Loop.TickMs <= 0 {
		return fmt.Errorf("loop.tick_ms must be > 0, got %d", cfg.Loop.TickMs)
	}
	if cfg.Loop.WatchdogMs < 0 {
		return fmt.Errorf("loop.watchdog_ms must be >= 0, got %d", cfg.Loop.WatchdogMs)
	}
	if cfg.Loop.WatchdogMs > 0 && cfg.Loop.WatchdogMs <= cfg.Loop.TickMs {
		return fmt.Errorf("loop.watchdog_ms (%d) must exceed loop.tick_ms (%d)", cfg.Loop.WatchdogMs, cfg.Loop.TickMs)
	}

	// ------------------------------------------------------------
	// MQTT (optional)
	// ------------------------------------------------------------

	if cfg.MQTT.Broker != "" {
		u, err := url.Parse(cfg.MQTT.Broker)
		if err != nil {
			return fmt.Errorf("mqtt.broker %q: %w", cfg.MQTT.Broker, err)
		}
		switch u.Scheme {
		case "tcp", "ssl", "tls", "mqtt", "mqtts", "ws", "wss":
		default:
			return fmt.Errorf("mqtt.broker %q: unsupported scheme %q", cfg.MQTT.Broker, u.Scheme)
		}
		if u.Host == "" {
			return fmt.Errorf("mqtt.broker %q: missing host", cfg.MQTT.Broker)
		}
		if cfg.MQTT.ConnectTimeoutMs <= 0 {
			return fmt.Errorf("mqtt.connect_timeout_ms must be > 0 (connect retries are bounded)")
		}
		if cfg.MQTT.PublishTimeoutMs <= 0 {
			return fmt.Errorf("mqtt.publish_timeout_ms must be > 0")
		}
		if cfg.MQTT.PublishTimeoutMs >= cfg.Loop.TickMs {
			return fmt.Errorf("mqtt.publish_timeout_ms (%d) must be shorter than loop.tick_ms (%d)",
				cfg.MQTT.PublishTimeoutMs, cfg.Loop.TickMs)
		}
		if cfg.MQTT.BufferSize < 0 {
			return fmt.Errorf("mqtt.buffer_size must be >= 0")
		}
		if strings.ContainsAny(cfg.MQTT.TopicPrefix, "+#") {
			return fmt.Errorf("mqtt.topic_prefix %q must not contain wildcards", cfg.MQTT.TopicPrefix)
		}
	}

	// ------------------------------------------------------------
	// HARDWARE
	// ------------------------------------------------------------

	if cfg.Hardware.PumpPin < 0 || cfg.Hardware.LightPin < 0 {
		return fmt.Errorf("hardware pins must be >= 0")
	}
	if cfg.Hardware.PumpPin == cfg.Hardware.LightPin {
		return fmt.Errorf("hardware.pump_pin and hardware.light_pin must differ (both %d)", cfg.Hardware.PumpPin)
	}
	for name, ch := range map[string]int{
		"soil_channel":  cfg.Hardware.SoilChannel,
		"water_channel": cfg.Hardware.WaterChannel,
	} {
		if ch < 0 || ch > 3 {
			return fmt.Errorf("hardware.%s must be 0-3, got %d", name, ch)
		}
	}
	if cfg.Hardware.SoilChannel == cfg.Hardware.WaterChannel {
		return fmt.Errorf("hardware.soil_channel and hardware.water_channel must differ (both %d)", cfg.Hardware.SoilChannel)
	}

	return nil
}
