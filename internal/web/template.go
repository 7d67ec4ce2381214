package web

import (
	"fmt"
	"html/template"
	"io"
	"log"
	"time"

	"github.com/sweeney/growbox/internal/policy"
	"github.com/sweeney/growbox/internal/status"
)

var indexTmpl = template.Must(template.New("index").Funcs(template.FuncMap{
	"uptime": func(d time.Duration) string {
		d = d.Truncate(time.Second)
		days := int(d.Hours()) / 24
		h := int(d.Hours()) % 24
		m := int(d.Minutes()) % 60
		s := int(d.Seconds()) % 60
		if days > 0 {
			return fmt.Sprintf("%dd %dh %dm %ds", days, h, m, s)
		}
		if h > 0 {
			return fmt.Sprintf("%dh %dm %ds", h, m, s)
		}
		if m > 0 {
			return fmt.Sprintf("%dm %ds", m, s)
		}
		return fmt.Sprintf("%ds", s)
	},
	"onOff": func(b bool) string {
		return string(policy.OnOff(b))
	},
	"phaseOrUnknown": func(s string) string {
		if s == "" {
			return "UNKNOWN"
		}
		return s
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<meta http-equiv="refresh" content="5">
<title>Growbox {{.Config.DeviceID}}</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
pre.lcd { background: #1b3; color: #010; padding: 8px; width: 17ch; }
.on { color: green; font-weight: bold; }
.off { color: #888; }
.warn { color: orange; font-weight: bold; }
.connected { color: green; }
.disconnected { color: red; }
</style>
</head>
<body>
<h1>Growbox {{.Config.DeviceID}}</h1>

{{if .HasReading}}<pre class="lcd" id="lcd">{{index .Display 0}}
{{index .Display 1}}</pre>{{end}}

<h2>Actuators</h2>
<table>
<tr><th>Pump</th><td id="pump" class="{{if .State.PumpOn}}on{{else}}off{{end}}">{{onOff .State.PumpOn}}</td></tr>
<tr><th>Light</th><td id="light" class="{{if .State.LightOn}}on{{else}}off{{end}}">{{onOff .State.LightOn}}</td></tr>
<tr><th>Water interlock</th><td>{{if .Interlocked}}<span class="warn">LOW WATER</span>{{else}}ok{{end}}</td></tr>
<tr><th>Phase</th><td>{{phaseOrUnknown .Phase}}</td></tr>
</table>

<h2>Sensors</h2>
{{if .HasReading}}<table>
<tr><th>Tick</th><td>{{.Reading.Tick}}</td></tr>
<tr><th>Temperature</th><td>{{if .Reading.ClimateValid}}{{printf "%.2f" .Reading.TemperatureC}} &deg;C{{else}}<span class="warn">read failed</span>{{end}}</td></tr>
<tr><th>Humidity</th><td>{{if .Reading.ClimateValid}}{{printf "%.1f" .Reading.HumidityPct}} %{{else}}<span class="warn">read failed</span>{{end}}</td></tr>
<tr><th>Soil moisture</th><td>{{.Reading.SoilMoistureRaw}} (threshold {{.Config.MoistureThreshold}})</td></tr>
<tr><th>Water level</th><td>{{.Reading.WaterLevelRaw}} (low at {{.Config.WaterLowThreshold}})</td></tr>
</table>{{else}}<p>waiting for first reading</p>{{end}}

<h2>Connectivity</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{if .Config.Broker}}{{.Config.Broker}}{{else}}disabled{{end}}</td></tr>
</table>

<h2>Counters</h2>
<table>
<tr><th>Ticks</th><td>{{.Counts.Ticks}}</td></tr>
<tr><th>Climate read failures</th><td>{{.Counts.ClimateFailures}}</td></tr>
<tr><th>Analog read failures</th><td>{{.Counts.AnalogFailures}}</td></tr>
<tr><th>Actuator failures</th><td>{{.Counts.ActuatorFailures}}</td></tr>
<tr><th>Publish failures</th><td>{{.Counts.PublishFailures}}</td></tr>
<tr><th>Watchdog trips</th><td>{{.Counts.WatchdogTrips}}</td></tr>
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Tick</th><td>{{.Config.TickMs}}ms</td></tr>
<tr><th>Watchdog</th><td>{{.Config.WatchdogMs}}ms</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPAddr}}</td></tr>
</table>

<p><a href="/index.json">JSON</a> | <a href="/metrics">metrics</a></p>
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot) {
	// Snapshot has Uptime() method but template needs a Duration field.
	data := struct {
		status.Snapshot
		Uptime time.Duration
	}{
		Snapshot: snap,
		Uptime:   snap.Uptime(),
	}
	if err := indexTmpl.Execute(w, data); err != nil {
		log.Printf("web: render index: %v", err)
	}
}
