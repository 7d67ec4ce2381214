// Command growbox reads enclosure sensors, drives the pump and grow light,
// and mirrors its state to MQTT, an LCD and an HTTP status page.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sweeney/growbox/internal/actuator"
	"github.com/sweeney/growbox/internal/config"
	"github.com/sweeney/growbox/internal/control"
	"github.com/sweeney/growbox/internal/display"
	"github.com/sweeney/growbox/internal/metrics"
	"github.com/sweeney/growbox/internal/policy"
	"github.com/sweeney/growbox/internal/sensor"
	"github.com/sweeney/growbox/internal/status"
	"github.com/sweeney/growbox/internal/telemetry"
	"github.com/sweeney/growbox/internal/web"
)

func main() {
	configPath := flag.String("config", "/etc/growbox/config.yaml", "Path to YAML config")
	printState := flag.Bool("print-state", false, "Read sensors once, print the display lines and exit")
	httpAddr := flag.String("http", "", "HTTP status address, overrides http.addr (\"off\" disables)")
	verbose := flag.Bool("v", false, "Log sensor readings on every tick")

	flag.Parse()

	cfg, err := loadConfig(*configPath, *httpAddr)
	if err != nil {
		log.Fatalf("fatal: %v", err)
	}
	if err := run(cfg, *printState, *verbose); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

// loadConfig reads, overrides, validates and normalizes the configuration.
func loadConfig(path, httpAddr string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	switch httpAddr {
	case "":
	case "off":
		cfg.HTTP.Addr = ""
	default:
		cfg.HTTP.Addr = httpAddr
	}
	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	config.Normalize(cfg)
	return cfg, nil
}

func run(cfg *config.Config, printState, verbose bool) error {
	hw, err := sensor.NewRealHardware(cfg.Hardware.SoilChannel, cfg.Hardware.WaterChannel)
	if err != nil {
		return fmt.Errorf("init sensors: %w", err)
	}
	defer hw.Close()
	source := sensor.NewSource(hw, cfg.Hardware.ADCMax)

	// Print state mode
	if printState {
		return printOnce(os.Stdout, source, cfg.PolicyThresholds())
	}

	outputs, err := actuator.NewRealOutputs(cfg.Hardware.GPIOChip, cfg.Hardware.PumpPin, cfg.Hardware.LightPin, cfg.Hardware.ActiveLow)
	if err != nil {
		return fmt.Errorf("init gpio: %w", err)
	}
	defer outputs.Close()

	var renderer display.Renderer = display.LogRenderer{}
	if cfg.Hardware.LCD {
		lcd, err := display.NewLCD()
		if err != nil {
			log.Printf("lcd unavailable, logging display lines instead: %v", err)
		} else {
			defer lcd.Close()
			renderer = lcd
		}
	}

	var sink telemetry.Sink = telemetry.NopSink{}
	if cfg.MQTT.Broker != "" {
		sink = telemetry.NewMQTTSink(sinkOptions(cfg))
	} else {
		log.Printf("telemetry disabled (no mqtt.broker)")
	}

	tracker := status.NewTracker(time.Now(), statusConfig(cfg))
	m := metrics.New()

	// Start HTTP status server
	if cfg.HTTP.Addr != "" {
		srv := web.New(cfg.HTTP.Addr, tracker, m.Handler())
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Printf("http server error: %v", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		log.Printf("http status server listening on %s", cfg.HTTP.Addr)
	}

	loop := control.New(control.Config{
		Thresholds:      cfg.PolicyThresholds(),
		WatchdogTimeout: cfg.WatchdogTimeout(),
		LogReadings:     verbose,
	}, control.Deps{
		Sensors:  source,
		Outputs:  outputs,
		Sink:     sink,
		Renderer: renderer,
		Tracker:  tracker,
		Metrics:  m,
	})

	log.Printf("started: device=%s tick=%v moisture<%d water>%d broker=%q",
		cfg.Device.ID, cfg.TickPeriod(), cfg.Thresholds.Moisture, cfg.Thresholds.WaterLow, cfg.MQTT.Broker)

	ticker := time.NewTicker(cfg.TickPeriod())
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	return runLoop(loop, ticker.C, sigCh)
}

// runLoop initializes the loop and runs it until a signal arrives.
// The signal name becomes the shutdown reason in the OFFLINE event.
func runLoop(loop *control.Loop, tick <-chan time.Time, sig <-chan os.Signal) error {
	ctx, cancel := context.WithCancelCause(context.Background())
	defer cancel(nil)

	go func() {
		select {
		case s := <-sig:
			log.Printf("received %v, shutting down", s)
			cancel(errors.New(signalName(s)))
		case <-ctx.Done():
		}
	}()

	if err := loop.Initialize(ctx); err != nil {
		return err
	}
	return loop.Run(ctx, tick)
}

func signalName(s os.Signal) string {
	switch s {
	case syscall.SIGINT:
		return "SIGINT"
	case syscall.SIGTERM:
		return "SIGTERM"
	}
	return "UNKNOWN"
}

// printOnce reads the sensors once and prints what the display would show,
// with the pump state the policy would choose.
func printOnce(w io.Writer, source control.Reader, th policy.Thresholds) error {
	snap, err := source.Read(0, time.Now())
	if err != nil {
		return fmt.Errorf("read sensors: %w", err)
	}
	state := policy.Decide(snap, policy.ActuatorState{}, nil, th)
	lines := display.FormatLines(snap, state)
	fmt.Fprintf(w, "%s\n%s\n", lines[0], lines[1])
	if snap.ClimateValid {
		fmt.Fprintf(w, "Humidity: %.1f%% Water: %d\n", snap.HumidityPct, snap.WaterLevelRaw)
	} else {
		fmt.Fprintf(w, "Humidity: n/a Water: %d\n", snap.WaterLevelRaw)
	}
	return nil
}

func sinkOptions(cfg *config.Config) telemetry.Options {
	return telemetry.Options{
		Broker:         cfg.MQTT.Broker,
		ClientID:       cfg.MQTT.ClientID,
		Username:       cfg.MQTT.Username,
		Password:       cfg.MQTT.Password,
		DeviceID:       cfg.Device.ID,
		TopicPrefix:    cfg.MQTT.TopicPrefix,
		ConnectTimeout: time.Duration(cfg.MQTT.ConnectTimeoutMs) * time.Millisecond,
		PublishTimeout: time.Duration(cfg.MQTT.PublishTimeoutMs) * time.Millisecond,
		BufferSize:     cfg.MQTT.BufferSize,
	}
}

func statusConfig(cfg *config.Config) status.Config {
	return status.Config{
		DeviceID:          cfg.Device.ID,
		TickMs:            int64(cfg.Loop.TickMs),
		WatchdogMs:        int64(cfg.Loop.WatchdogMs),
		MoistureThreshold: cfg.Thresholds.Moisture,
		WaterLowThreshold: cfg.Thresholds.WaterLow,
		Broker:            cfg.MQTT.Broker,
		HTTPAddr:          cfg.HTTP.Addr,
	}
}
