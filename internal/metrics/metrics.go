// Package metrics exposes controller counters and gauges in Prometheus format.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "growbox"

// Metrics holds the collectors fed by the control loop.
// Each instance owns its registry so tests can create as many as they like.
type Metrics struct {
	registry *prometheus.Registry

	ticks        prometheus.Counter
	failures     *prometheus.CounterVec
	tickDuration prometheus.Histogram
	pump         prometheus.Gauge
	light        prometheus.Gauge
	connected    prometheus.Gauge
	soil         prometheus.Gauge
	water        prometheus.Gauge
	temperature  prometheus.Gauge
	humidity     prometheus.Gauge
}

// New creates and registers the collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		ticks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "ticks_total",
			Help: "Control loop ticks completed.",
		}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "failures_total",
			Help: "Non-fatal faults by kind (climate, analog, actuator, publish, watchdog).",
		}, []string{"kind"}),
		tickDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Name: "tick_duration_seconds",
			Help:    "Time spent in one control loop tick.",
			Buckets: []float64{.001, .005, .01, .05, .1, .25, .5, 1},
		}),
		pump: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "pump_on",
			Help: "1 when the pump relay is energized.",
		}),
		light: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "light_on",
			Help: "1 when the grow light relay is energized.",
		}),
		connected: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "mqtt_connected",
			Help: "1 while the telemetry broker connection is up.",
		}),
		soil: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "soil_moisture_raw",
			Help: "Last soil moisture ADC reading.",
		}),
		water: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "water_level_raw",
			Help: "Last water level ADC reading.",
		}),
		temperature: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "temperature_celsius",
			Help: "Last valid air temperature.",
		}),
		humidity: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "humidity_percent",
			Help: "Last valid relative humidity.",
		}),
	}

	m.registry.MustRegister(
		m.ticks, m.failures, m.tickDuration,
		m.pump, m.light, m.connected,
		m.soil, m.water, m.temperature, m.humidity,
	)
	return m
}

// Reading is the subset of a sensor snapshot exported as gauges.
type Reading struct {
	ClimateValid    bool
	TemperatureC    float64
	HumidityPct     float64
	SoilMoistureRaw int
	WaterLevelRaw   int
}

// ObserveTick records a completed tick.
func (m *Metrics) ObserveTick(r Reading, pumpOn, lightOn bool, took time.Duration) {
	m.ticks.Inc()
	m.tickDuration.Observe(took.Seconds())
	m.SetActuators(pumpOn, lightOn)
	m.soil.Set(float64(r.SoilMoistureRaw))
	m.water.Set(float64(r.WaterLevelRaw))
	if r.ClimateValid {
		m.temperature.Set(r.TemperatureC)
		m.humidity.Set(r.HumidityPct)
	}
}

// SetActuators updates the relay gauges.
func (m *Metrics) SetActuators(pumpOn, lightOn bool) {
	m.pump.Set(boolGauge(pumpOn))
	m.light.Set(boolGauge(lightOn))
}

// SetConnected updates the broker connection gauge.
func (m *Metrics) SetConnected(connected bool) {
	m.connected.Set(boolGauge(connected))
}

// Failure counts one fault of the given kind.
func (m *Metrics) Failure(kind string) {
	m.failures.WithLabelValues(kind).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func boolGauge(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
