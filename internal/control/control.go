// Package control runs the sense, decide, actuate, report cycle of the enclosure.
package control

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sweeney/growbox/internal/actuator"
	"github.com/sweeney/growbox/internal/display"
	"github.com/sweeney/growbox/internal/metrics"
	"github.com/sweeney/growbox/internal/policy"
	"github.com/sweeney/growbox/internal/sensor"
	"github.com/sweeney/growbox/internal/status"
	"github.com/sweeney/growbox/internal/telemetry"
)

// Phase is the lifecycle phase of the loop.
type Phase string

const (
	PhaseInitializing Phase = "INITIALIZING"
	PhaseRunning      Phase = "RUNNING"
	PhaseStopped      Phase = "STOPPED"
)

// Connectivity is the telemetry link state seen by the loop.
type Connectivity string

const (
	Connected    Connectivity = "CONNECTED"
	Disconnected Connectivity = "DISCONNECTED"
)

// Reader produces one snapshot per call. *sensor.Source implements it.
type Reader interface {
	Read(tick uint64, at time.Time) (sensor.Snapshot, error)
}

// Config holds the loop tunables.
type Config struct {
	Thresholds      policy.Thresholds
	WatchdogTimeout time.Duration // 0 disables the watchdog
	LogReadings     bool          // log one line per tick
}

// Deps are the collaborators of a Loop. Tracker and Metrics may be nil.
type Deps struct {
	Sensors  Reader
	Outputs  actuator.Outputs
	Sink     telemetry.Sink
	Renderer display.Renderer
	Tracker  *status.Tracker
	Metrics  *metrics.Metrics
}

// Loop owns the tick counter, the last snapshot and the actuator state.
// Tick and Run must be called from one goroutine; the watchdog is the
// only other writer of the outputs. It shares outMu with the loop unless a
// write is stuck holding it, in which case it goes to the pump line directly.
type Loop struct {
	cfg      Config
	sensors  Reader
	outputs  actuator.Outputs
	sink     telemetry.Sink
	renderer display.Renderer
	tracker  *status.Tracker
	metrics  *metrics.Metrics

	phase        Phase
	connectivity Connectivity
	tick         uint64
	last         sensor.Snapshot
	haveLast     bool

	outMu      sync.Mutex
	state      policy.ActuatorState
	pumpForced atomic.Bool // set when the watchdog bypassed outMu

	wdMu     sync.Mutex
	watchdog *time.Timer
}

// New creates a Loop in PhaseInitializing.
func New(cfg Config, d Deps) *Loop {
	l := &Loop{
		cfg:          cfg,
		sensors:      d.Sensors,
		outputs:      d.Outputs,
		sink:         d.Sink,
		renderer:     d.Renderer,
		tracker:      d.Tracker,
		metrics:      d.Metrics,
		phase:        PhaseInitializing,
		connectivity: Disconnected,
	}
	if l.sink == nil {
		l.sink = telemetry.NopSink{}
	}
	if l.renderer == nil {
		l.renderer = display.LogRenderer{}
	}
	if l.tracker == nil {
		l.tracker = status.NewTracker(time.Now(), status.Config{})
	}
	if l.metrics == nil {
		l.metrics = metrics.New()
	}
	l.tracker.SetPhase(string(l.phase))
	return l
}

// Phase returns the current lifecycle phase.
func (l *Loop) Phase() Phase {
	return l.phase
}

// Connectivity returns the link state observed at the start of the last tick.
func (l *Loop) Connectivity() Connectivity {
	return l.connectivity
}

// State returns the actuator state last written to the outputs.
func (l *Loop) State() policy.ActuatorState {
	l.outMu.Lock()
	defer l.outMu.Unlock()
	return l.state
}

// Initialize drives both relays off, then gives the telemetry sink its bounded
// chance to connect. A connect failure is not an error: the loop runs
// disconnected and the sink keeps retrying on its own.
func (l *Loop) Initialize(ctx context.Context) error {
	l.setPhase(PhaseInitializing)

	l.outMu.Lock()
	l.state = policy.ActuatorState{}
	_, err := actuator.Apply(l.outputs, l.state)
	l.outMu.Unlock()
	if err != nil {
		return fmt.Errorf("initialize outputs: %w", err)
	}
	l.metrics.SetActuators(false, false)

	if c, ok := l.sink.(telemetry.Connector); ok {
		if err := c.Connect(ctx); err != nil {
			log.Printf("control: telemetry unavailable, running disconnected: %v", err)
		}
	}
	l.refreshConnectivity()

	l.setPhase(PhaseRunning)
	log.Printf("control: running (telemetry %s)", l.connectivity)
	return nil
}

// Tick performs one cycle. A sensor failure fails safe and is returned;
// every other fault is logged, counted and absorbed.
func (l *Loop) Tick(now time.Time) error {
	start := time.Now()
	th := l.cfg.Thresholds

	l.refreshConnectivity()

	l.tick++
	snap, err := l.sensors.Read(l.tick, now)
	if err != nil {
		l.failSafe()
		return fmt.Errorf("tick %d: %w", l.tick, err)
	}
	if !snap.ClimateValid {
		l.count(status.FailureClimate)
	}

	override := l.sink.PollOverride()
	if override != nil {
		log.Printf("control: light override %s applied", policy.OnOff(*override))
	}

	prev := l.State()
	applied, err := l.apply(policy.Decide(snap, prev, override, th))
	if err != nil {
		log.Printf("control: actuator write failed, pump forced off: %v", err)
		l.count(status.FailureActuator)
	}
	if applied.PumpOn != prev.PumpOn {
		log.Printf("control: pump %s (soil=%d water=%d)", policy.OnOff(applied.PumpOn), snap.SoilMoistureRaw, snap.WaterLevelRaw)
	}

	if err := l.sink.Publish(snap, applied); err != nil && !errors.Is(err, telemetry.ErrNotConnected) {
		// Don't crash on publish failure
		log.Printf("control: publish error: %v", err)
		l.count(status.FailurePublish)
	}

	if err := l.renderer.Render(snap, applied); err != nil {
		log.Printf("control: render error: %v", err)
	}

	if l.cfg.LogReadings {
		log.Printf("control: tick %d temp=%s hum=%s soil=%d water=%d pump=%s light=%s",
			snap.Tick, climate(snap.ClimateValid, snap.TemperatureC), climate(snap.ClimateValid, snap.HumidityPct),
			snap.SoilMoistureRaw, snap.WaterLevelRaw, policy.OnOff(applied.PumpOn), policy.OnOff(applied.LightOn))
	}

	l.last, l.haveLast = snap, true
	l.tracker.Update(snap, applied, policy.Interlocked(snap, th), display.FormatLines(snap, applied))
	l.metrics.ObserveTick(metrics.Reading{
		ClimateValid:    snap.ClimateValid,
		TemperatureC:    snap.TemperatureC,
		HumidityPct:     snap.HumidityPct,
		SoilMoistureRaw: snap.SoilMoistureRaw,
		WaterLevelRaw:   snap.WaterLevelRaw,
	}, applied.PumpOn, applied.LightOn, time.Since(start))
	l.kickWatchdog()
	return nil
}

// failSafe handles a tick without a usable snapshot: pump off, light kept,
// nothing published, the previous snapshot re-rendered.
func (l *Loop) failSafe() {
	l.count(status.FailureAnalog)

	applied, err := l.apply(policy.Safe(l.State()))
	if err != nil {
		log.Printf("control: fail-safe write failed: %v", err)
		l.count(status.FailureActuator)
	}

	if l.haveLast {
		if err := l.renderer.Render(l.last, applied); err != nil {
			log.Printf("control: render error: %v", err)
		}
	}
	l.tracker.SetState(applied)
	l.metrics.SetActuators(applied.PumpOn, applied.LightOn)
	l.kickWatchdog()
}

// Run ticks on every value from tick until ctx is cancelled, then shuts down.
// The cancellation cause, if any, is reported as the shutdown reason.
func (l *Loop) Run(ctx context.Context, tick <-chan time.Time) error {
	if l.cfg.WatchdogTimeout > 0 {
		l.wdMu.Lock()
		l.watchdog = time.AfterFunc(l.cfg.WatchdogTimeout, l.tripWatchdog)
		l.wdMu.Unlock()
	}

	for {
		select {
		case <-ctx.Done():
			reason := "shutdown"
			if cause := context.Cause(ctx); cause != nil && !errors.Is(cause, context.Canceled) {
				reason = cause.Error()
			}
			return l.Shutdown(reason)

		case now := <-tick:
			if err := l.Tick(now); err != nil {
				log.Printf("control: %v", err)
			}
		}
	}
}

// Shutdown stops the watchdog, drives both relays off and closes the sink,
// which publishes the OFFLINE event.
func (l *Loop) Shutdown(reason string) error {
	log.Printf("control: shutting down (%s)", reason)

	l.wdMu.Lock()
	if l.watchdog != nil {
		l.watchdog.Stop()
		l.watchdog = nil
	}
	l.wdMu.Unlock()

	l.outMu.Lock()
	l.state = policy.ActuatorState{}
	_, outErr := actuator.Apply(l.outputs, l.state)
	l.pumpForced.Store(false)
	l.outMu.Unlock()

	l.tracker.SetState(policy.ActuatorState{})
	l.metrics.SetActuators(false, false)
	l.setPhase(PhaseStopped)

	var sinkErr error
	if rc, ok := l.sink.(telemetry.ReasonCloser); ok {
		sinkErr = rc.CloseWithReason(reason)
	} else {
		sinkErr = l.sink.Close()
	}
	l.tracker.SetMQTTConnected(false)
	l.metrics.SetConnected(false)

	var errs []error
	if outErr != nil {
		errs = append(errs, fmt.Errorf("outputs: %w", outErr))
	}
	if sinkErr != nil {
		errs = append(errs, fmt.Errorf("telemetry: %w", sinkErr))
	}
	if len(errs) > 0 {
		return fmt.Errorf("shutdown errors: %v", errs)
	}
	return nil
}

// apply writes next to the outputs under outMu and records what was applied.
// If the watchdog forced the pump off while the write was stuck, the pump is
// driven off again once the write returns.
func (l *Loop) apply(next policy.ActuatorState) (policy.ActuatorState, error) {
	l.outMu.Lock()
	defer l.outMu.Unlock()

	applied, err := actuator.Apply(l.outputs, next)
	if l.pumpForced.Swap(false) && applied.PumpOn {
		if perr := l.outputs.SetPump(false); perr != nil && err == nil {
			err = fmt.Errorf("pump off after watchdog: %w", perr)
		}
		applied.PumpOn = false
	}
	l.state = applied
	return applied, err
}

func (l *Loop) kickWatchdog() {
	l.wdMu.Lock()
	if l.watchdog != nil {
		l.watchdog.Reset(l.cfg.WatchdogTimeout)
	}
	l.wdMu.Unlock()
}

// tripWatchdog runs on the timer goroutine when no tick completed in time.
func (l *Loop) tripWatchdog() {
	l.wdMu.Lock()
	armed := l.watchdog != nil
	l.wdMu.Unlock()
	if !armed {
		return
	}

	var (
		err   error
		state policy.ActuatorState
	)
	if l.outMu.TryLock() {
		err = l.outputs.SetPump(false)
		l.state.PumpOn = false
		state = l.state
		l.outMu.Unlock()
	} else {
		// The stall is a write inside Tick that still holds outMu.
		l.pumpForced.Store(true)
		err = l.outputs.SetPump(false)
		state = l.tracker.Snapshot().State
		state.PumpOn = false
		log.Printf("control: watchdog: outputs busy, writing pump line directly")
	}

	log.Printf("control: watchdog: no tick for %v, pump forced off", l.cfg.WatchdogTimeout)
	if err != nil {
		log.Printf("control: watchdog pump-off failed: %v", err)
		l.count(status.FailureActuator)
	}
	l.count(status.FailureWatchdog)
	l.tracker.SetState(state)
	l.metrics.SetActuators(state.PumpOn, state.LightOn)
}

func (l *Loop) refreshConnectivity() {
	c := Disconnected
	if l.sink.IsConnected() {
		c = Connected
	}
	if c != l.connectivity && l.phase == PhaseRunning {
		log.Printf("control: telemetry %s", c)
	}
	l.connectivity = c
	l.tracker.SetMQTTConnected(c == Connected)
	l.metrics.SetConnected(c == Connected)
}

func (l *Loop) setPhase(p Phase) {
	l.phase = p
	l.tracker.SetPhase(string(p))
}

func (l *Loop) count(f status.Failure) {
	l.tracker.Count(f)
	l.metrics.Failure(string(f))
}

func climate(valid bool, v float64) string {
	if !valid {
		return "n/a"
	}
	return fmt.Sprintf("%.2f", v)
}
