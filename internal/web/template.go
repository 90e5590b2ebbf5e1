package web

import (
	"fmt"
	"html/template"
	"io"
	"log"
	"strings"
	"time"

	"github.com/sweeney/backup-sensor/internal/display"
	"github.com/sweeney/backup-sensor/internal/status"
)

// RefreshSeconds is how often the status page reloads itself.
const RefreshSeconds = 2

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
	"bandOrUnknown": func(s string) string {
		if s == "" {
			return "UNKNOWN"
		}
		return s
	},
	"lower":    strings.ToLower,
	"distance": display.FormatDistance,
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<meta http-equiv="refresh" content="{{.Refresh}}">
<title>Backup Sensor</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.danger { color: red; font-weight: bold; }
.near { color: orangered; font-weight: bold; }
.close { color: darkorange; }
.caution { color: goldenrod; }
.clear { color: green; }
.unknown { color: #888; }
.connected { color: green; }
.disconnected { color: red; }
</style>
</head>
<body>
<h1>Backup Sensor</h1>

<h2>Range</h2>
<table>
<tr><th>Distance</th><td id="distance">{{if .Ready}}{{distance .Sample.CM .Sample.Echo}}{{else}}-{{end}}</td></tr>
<tr><th>Band</th><td id="band" class="{{lower (bandOrUnknown (printf "%s" .Band))}}">{{bandOrUnknown (printf "%s" .Band)}}</td></tr>
<tr><th>Alert</th><td class="{{if .Alert}}danger{{else}}clear{{end}}">{{if .Alert}}STOP{{else}}no{{end}}</td></tr>
<tr><th>Echo</th><td>{{if .Sample.Echo}}yes{{else if .Ready}}no echo{{else}}-{{end}}</td></tr>
<tr><th>Ticks</th><td>{{.Sample.Ticks}}</td></tr>
</table>

<h2>Connectivity</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{if .Config.Broker}}{{.Config.Broker}}{{else}}disabled{{end}}</td></tr>
{{if .Network}}<tr><th>Network</th><td>{{.Network.Status}} ({{.Network.Type}}{{if .Network.SSID}}, {{.Network.SSID}}{{end}})</td></tr>
<tr><th>IP</th><td>{{.Network.IP}}</td></tr>{{end}}
</table>

<h2>Event Counts</h2>
<table>
<tr><th>Cycles</th><td>{{.Counts.Cycles}}</td></tr>
<tr><th>No echo</th><td>{{.Counts.NoEcho}}</td></tr>
<tr><th>Spurious edges</th><td>{{.Spurious}}</td></tr>
<tr><th>Alerts</th><td>{{.Counts.Alerts}}</td></tr>
<tr><th>Band changes</th><td>{{.Counts.BandChanges}}</td></tr>
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Interval</th><td>{{.Config.IntervalMs}}ms</td></tr>
<tr><th>Echo timeout</th><td>{{.Config.EchoTimeoutMs}}ms</td></tr>
<tr><th>Calibration</th><td>{{.Config.K}} ticks/cm, bias {{.Config.Bias}} cm</td></tr>
<tr><th>Alert</th><td>enter &le; {{.Config.AlertEnter}} cm, exit &ge; {{.Config.AlertExit}} cm</td></tr>
<tr><th>Heartbeat</th><td>{{if eq .Config.HeartbeatMs 0}}disabled{{else}}{{.Config.HeartbeatMs}}ms{{end}}</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPPort}}</td></tr>
</table>

<p><a href="/index.json">JSON</a></p>
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot) {
	// Snapshot has Uptime() method but template needs a Duration field.
	data := struct {
		status.Snapshot
		Uptime  time.Duration
		Refresh int
	}{
		Snapshot: snap,
		Uptime:   snap.Uptime(),
		Refresh:  RefreshSeconds,
	}
	if err := indexTmpl.Execute(w, data); err != nil {
		log.Printf("web: render index: %v", err)
	}
}
