package web

import (
	"fmt"
	"html/template"
	"io"
	"math"
	"time"

	"github.com/sweeney/ace128-sensor/internal/status"
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
	"degrees": func(rad float64) string {
		return fmt.Sprintf("%.1f°", rad*180/math.Pi)
	},
	"radians": func(rad float64) string {
		return fmt.Sprintf("%.4f", rad)
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>ACE-128 Sensor</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.pos { font-weight: bold; }
.unknown { color: orange; }
.connected { color: green; }
.disconnected { color: red; }
</style>
</head>
<body>
<h1>ACE-128 Sensor</h1>

<h2>Position</h2>
<table>
{{if .Baselined}}<tr><th>Position</th><td id="position" class="pos">{{.Stable}}</td></tr>
<tr><th>Angle</th><td id="angle">{{radians .StableAngle}} rad ({{degrees .StableAngle}})</td></tr>
{{else}}<tr><th>Position</th><td id="position" class="unknown">UNKNOWN</td></tr>
<tr><th>Angle</th><td id="angle" class="unknown">UNKNOWN</td></tr>
{{end}}<tr><th>Ready</th><td id="ready">{{if .Baselined}}yes{{else}}no{{end}}</td></tr>
<tr><th>Last read</th><td id="last">{{if .Last.Valid}}{{.Last.Position}}{{else if .Last.Time.IsZero}}none{{else}}transitional{{end}}</td></tr>
{{if .LastError}}<tr><th>Last error</th><td class="disconnected">{{.LastError}}</td></tr>{{end}}
</table>

<h2>Connectivity</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{.Config.Broker}}</td></tr>
{{if .Network}}<tr><th>Network</th><td>{{.Network.Status}} ({{.Network.Type}}{{if .Network.SSID}}, {{.Network.SSID}}{{end}})</td></tr>
<tr><th>IP</th><td>{{.Network.IP}}</td></tr>{{end}}
</table>

<h2>Event Counts</h2>
<table>
<tr><th>Position changes</th><td>{{.Counts.Changes}}</td></tr>
<tr><th>Transitional reads</th><td>{{.Counts.Invalid}}</td></tr>
<tr><th>Read errors</th><td>{{.Counts.Errors}}</td></tr>
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Backend</th><td>{{.Config.Backend}}{{if .Config.Chip}} ({{.Config.Chip}}){{end}}</td></tr>
<tr><th>Pins P1..P8</th><td>{{range $i, $p := .Config.Pins}}{{if $i}}, {{end}}{{$p}}{{end}} (pull {{.Config.Pull}})</td></tr>
<tr><th>Angle range</th><td>{{.Config.AngleRange}}</td></tr>
<tr><th>Poll</th><td>{{.Config.PollMs}}ms</td></tr>
<tr><th>Debounce</th><td>{{.Config.DebounceMs}}ms</td></tr>
<tr><th>Heartbeat</th><td>{{if eq .Config.HeartbeatMs 0}}disabled{{else}}{{.Config.HeartbeatMs}}ms{{end}}</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPAddr}}</td></tr>
</table>

<p><a href="/index.json">JSON</a></p>
<script>
(function() {
  var posEl = document.getElementById("position");
  var angleEl = document.getElementById("angle");
  var readyEl = document.getElementById("ready");
  var lastEl = document.getElementById("last");

  function refresh() {
    fetch("/index.json").then(function(r) { return r.json(); }).then(function(msg) {
      var s = msg.status;
      if (s.position === null) {
        posEl.textContent = "UNKNOWN";
        posEl.className = "unknown";
        angleEl.textContent = "UNKNOWN";
        angleEl.className = "unknown";
      } else {
        posEl.textContent = s.position;
        posEl.className = "pos";
        angleEl.textContent = s.angle.toFixed(4) + " rad (" + (s.angle * 180 / Math.PI).toFixed(1) + "°)";
        angleEl.className = "";
      }
      readyEl.textContent = s.ready ? "yes" : "no";
      lastEl.textContent = !s.last_read.timestamp ? "none" : s.last_read.valid ? s.last_read.position : "transitional";
    }).catch(function() {});
  }

  setInterval(refresh, {{.RefreshMs}});
})();
</script>
</body>
</html>
`

// refreshMs is how often the page polls /index.json.
const refreshMs = 500

func renderHTML(w io.Writer, snap status.Snapshot) error {
	// Snapshot has Uptime() method but template needs a Duration field.
	data := struct {
		status.Snapshot
		Uptime    time.Duration
		RefreshMs int
	}{
		Snapshot:  snap,
		Uptime:    snap.Uptime(),
		RefreshMs: refreshMs,
	}
	return indexTmpl.Execute(w, data)
}
