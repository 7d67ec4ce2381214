package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveTick(t *testing.T) {
	m := New()
	m.ObserveTick(Reading{ClimateValid: true, TemperatureC: 23.5, HumidityPct: 40, SoilMoistureRaw: 20, WaterLevelRaw: 900}, true, false, 3*time.Millisecond)
	m.ObserveTick(Reading{ClimateValid: false, SoilMoistureRaw: 50, WaterLevelRaw: 800}, false, true, time.Millisecond)

	if got := testutil.ToFloat64(m.ticks); got != 2 {
		t.Errorf("ticks: got %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.pump); got != 0 {
		t.Errorf("pump: got %v, want 0", got)
	}
	if got := testutil.ToFloat64(m.light); got != 1 {
		t.Errorf("light: got %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.soil); got != 50 {
		t.Errorf("soil: got %v, want 50", got)
	}
	// Invalid climate keeps the last valid value.
	if got := testutil.ToFloat64(m.temperature); got != 23.5 {
		t.Errorf("temperature: got %v, want 23.5", got)
	}
}

func TestFailureAndConnected(t *testing.T) {
	m := New()
	m.Failure("publish")
	m.Failure("publish")
	m.Failure("watchdog")
	m.SetConnected(true)

	if got := testutil.ToFloat64(m.failures.WithLabelValues("publish")); got != 2 {
		t.Errorf("publish failures: got %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.failures.WithLabelValues("watchdog")); got != 1 {
		t.Errorf("watchdog failures: got %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.connected); got != 1 {
		t.Errorf("connected: got %v, want 1", got)
	}
}

func TestHandler(t *testing.T) {
	m := New()
	m.Failure("analog")
	m.SetActuators(true, true)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	if rec.Code != 200 {
		t.Fatalf("status: got %d", rec.Code)
	}
	body, _ := io.ReadAll(rec.Body)
	for _, want := range []string{
		`growbox_failures_total{kind="analog"} 1`,
		"growbox_pump_on 1",
		"growbox_light_on 1",
	} {
		if !strings.Contains(string(body), want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}

func TestIndependentRegistries(t *testing.T) {
	a, b := New(), New()
	a.Failure("climate")
	if got := testutil.ToFloat64(b.failures.WithLabelValues("climate")); got != 0 {
		t.Errorf("registries should be independent, got %v", got)
	}
}
