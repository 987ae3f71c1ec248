package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/sweeney/room-sensor/internal/status"
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
	"phaseOrUnknown": func(s string) string {
		if s == "" {
			return "UNKNOWN"
		}
		return s
	},
	"pct": func(raw int) string {
		return fmt.Sprintf("%.2f%%", float64(raw)/100)
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<meta http-equiv="refresh" content="10">
<title>Room Sensor</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.occupied { color: green; font-weight: bold; }
.vacant { color: #888; }
.unknown { color: orange; }
.connected { color: green; }
.disconnected { color: red; }
</style>
</head>
<body>
<h1>Room Sensor</h1>

<h2>Room</h2>
<table>
<tr><th>Occupancy</th><td id="occupancy" class="{{if .Occupied}}occupied{{else}}vacant{{end}}">{{if .Occupied}}OCCUPIED{{else}}VACANT{{end}}</td></tr>
<tr><th>Phase</th><td class="{{if eq (printf "%s" .Phase) "ARMED"}}connected{{else}}unknown{{end}}">{{phaseOrUnknown (printf "%s" .Phase)}}</td></tr>
<tr><th>Baseline</th><td>{{.Baseline.X}}, {{.Baseline.Y}}, {{.Baseline.Z}}</td></tr>
{{if .Readings}}<tr><th>Temperature</th><td>{{printf "%.1f" .Readings.Temperature}} &deg;C</td></tr>
<tr><th>Light</th><td>{{pct .Readings.Light}}</td></tr>
<tr><th>Magnetometer</th><td>{{.Readings.Mag.X}}, {{.Readings.Mag.Y}}, {{.Readings.Mag.Z}}</td></tr>{{end}}
</table>

<h2>Identity</h2>
<table>
<tr><th>Hardware ID</th><td>{{.Config.HardwareID}}</td></tr>
{{if .Provisioned}}<tr><th>Hub device</th><td>{{.Identity.HubDeviceID}}</td></tr>
<tr><th>Device</th><td>{{.Identity.DeviceID}}</td></tr>
<tr><th>Space</th><td>{{.Identity.SpaceID}}</td></tr>
<tr><th>Sensors</th><td>{{.Identity.Sensors}}</td></tr>
{{else}}<tr><th>Provisioning</th><td class="disconnected">pending</td></tr>{{end}}
</table>

<h2>Telemetry</h2>
<table>
<tr><th>Transport</th><td class="{{if .TransportConnected}}connected{{else}}disconnected{{end}}">{{.Config.Transport}} {{if .TransportConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Destination</th><td>{{.Config.Destination}}</td></tr>
<tr><th>Temperature sent</th><td>{{index .Counts.Sent "temperature"}}</td></tr>
<tr><th>Light sent</th><td>{{index .Counts.Sent "light"}}</td></tr>
<tr><th>Motion sent</th><td>{{index .Counts.Sent "motion"}}</td></tr>
<tr><th>Suppressed</th><td>{{.Counts.Suppressed}}</td></tr>
<tr><th>Send errors</th><td>{{.Counts.SendErrors}}</td></tr>
<tr><th>Too large</th><td>{{.Counts.TooLarge}}</td></tr>
<tr><th>Manual toggles</th><td>{{.Counts.ManualToggles}}</td></tr>
{{if .LastError}}<tr><th>Last error</th><td class="disconnected">{{.LastError}}</td></tr>{{end}}
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Poll</th><td>{{.Config.PollMs}}ms</td></tr>
<tr><th>Heartbeat</th><td>{{if eq .Config.HeartbeatMs 0}}disabled{{else}}{{.Config.HeartbeatMs}}ms{{end}}</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPAddr}}</td></tr>
</table>

<p><a href="/index.json">JSON</a> | <a href="/metrics">metrics</a></p>
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot) error {
	// Snapshot has Uptime() method but template needs a Duration field.
	data := struct {
		status.Snapshot
		Uptime time.Duration
	}{
		Snapshot: snap,
		Uptime:   snap.Uptime(),
	}
	return indexTmpl.Execute(w, data)
}
