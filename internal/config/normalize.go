package config

import (
	"strings"

	"github.com/google/uuid"
)

// Normalize applies post-validation normalization.
// It is allowed to mutate configuration.
// It MUST be called only after Validate().
func Normalize(cfg *Config) {
	if cfg == nil {
		return
	}

	cfg.Device.ID = strings.TrimSpace(cfg.Device.ID)

	// Watchdog defaults to five missed ticks.
	if cfg.Loop.WatchdogMs == 0 {
		cfg.Loop.WatchdogMs = 5 * cfg.Loop.TickMs
	}

	// ------------------------------------------------------------
	// MQTT NORMALIZATION (only when telemetry is enabled)
	// ------------------------------------------------------------

	if cfg.MQTT.Broker == "" {
		return
	}

	prefix := strings.Trim(cfg.MQTT.TopicPrefix, "/")
	if prefix == "" {
		prefix = "growbox/" + cfg.Device.ID
	}
	cfg.MQTT.TopicPrefix = prefix

	// Broker sessions are keyed by client ID; two devices must never share one.
	if cfg.MQTT.ClientID == "" {
		cfg.MQTT.ClientID = cfg.Device.ID + "-" + uuid.NewString()[:8]
	}
}
