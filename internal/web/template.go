package web

import (
	"html/template"
	"io"
	"log"
	"time"

	"github.com/sweeney/safety-interlock/internal/interlock"
)

var indexTmpl = template.Must(template.New("index").Funcs(template.FuncMap{
	"since": func(t time.Time) string {
		if t.IsZero() {
			return "-"
		}
		return t.Format("2006-01-02 15:04:05")
	},
	"triggerName": func(v int) string {
		if v == 0 {
			return "LOW"
		}
		return "HIGH"
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<meta http-equiv="refresh" content="2">
<title>Safety Interlock</title>
<style>
body { font-family: monospace; max-width: 700px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
.normal { color: green; font-weight: bold; }
.limited { color: red; font-weight: bold; }
.latched { color: red; font-weight: bold; }
.clear { color: #888; }
</style>
</head>
<body>
<h1>Safety Interlock</h1>

<p>System state:
{{if eq .State.String "limited"}}<span class="limited">LIMITED</span>{{else}}<span class="normal">NORMAL</span>{{end}}
&mdash; configured limited speed {{.LimitedSpeed}}%</p>

<h2>Channels</h2>
{{if .Channels}}
<table>
<tr><th>Channel</th><th>Description</th><th>Trigger</th><th>Reset channel</th><th>Latch</th><th>Since</th></tr>
{{range .Channels}}
<tr>
<td>{{.Channel}}</td>
<td>{{.Description}}</td>
<td>{{triggerName .TriggerValue}}</td>
<td>{{if .ResetChannel}}{{.ResetChannel}}{{else}}-{{end}}</td>
<td>{{if .Triggered}}<span class="latched">TRIPPED</span>{{else}}<span class="clear">clear</span>{{end}}</td>
<td>{{since .TriggerTime}}</td>
</tr>
{{end}}
</table>
{{else}}
<p>No channels configured.</p>
{{end}}

<h2>Robots</h2>
<table>
<tr><th>Robot</th><th>Run status</th><th>Recorded job</th></tr>
{{range .Robots}}
<tr>
<td>{{.ID}}</td>
<td>{{.RunStatus}}</td>
<td>{{if .LastJob}}{{.LastJob}}{{else}}-{{end}}</td>
</tr>
{{end}}
</table>

</body>
</html>
`

func renderHTML(w io.Writer, snap interlock.Snapshot) {
	if err := indexTmpl.Execute(w, snap); err != nil {
		log.Printf("web: render status page: %v", err)
	}
}
