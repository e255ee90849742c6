package status

import (
	"fmt"
	htmltemplate "html/template"
	"log"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/bathbot/entitycache/config"
)

// StartHTTPServer starts the status page and metrics server in the
// background, if an address is configured.
func StartHTTPServer(c config.Config, l logrus.FieldLogger) {
	if c.HTTP.Address == "" {
		l.Info("HTTP stats server disabled")
		return
	}
	l.WithField("address", c.HTTP.Address).Info("HTTP stats server enabled")
	http.Handle("/metrics", promhttp.Handler())
	http.Handle("/", NewPage(c))
	go func() {
		err := http.ListenAndServe(c.HTTP.Address, nil)
		l.Fatalf("HTTP server error: %v", err)
	}()
}

type Page struct {
	c config.Config
	i *info
}

func NewPage(c config.Config) *Page {
	return &Page{c: c, i: &gi}
}

const statusTemplateString = `<!DOCTYPE html>
<html>
<head>
	<meta charset="UTF-8">
	<title>entitycache status</title>
	<style>
		body          { font-family: sans-serif; }
		table, td, th { border: 1px solid #ccc; border-collapse: collapse; }
		td, th        { padding: 5px; text-align: left; }
		td.num        { text-align: right; }
		td.error      { background-color: #ffb8b8; }
		a             { text-decoration: none; color: #3c6ac5; }
	</style>
</head>
<body>
	<h1>entitycache status</h1>
	<p>
		<a href="/metrics">Prometheus metrics</a>
		| <a href="/healthz">Health</a>
	</p>

	<h2>Cache</h2>
	{{ with .Info.CacheStats }}
	<p>Counted at {{ .Time.Format "2006-01-02 15:04:05" }} in {{ .TimeTaken }}</p>
	<table>
		<tr><th>Guilds</th><td class="num">{{ .Guilds }}</td></tr>
		<tr><th>Unavailable guilds</th><td class="num">{{ .UnavailableGuilds }}</td></tr>
		<tr><th>Channels</th><td class="num">{{ .Channels }}</td></tr>
		<tr><th>Roles</th><td class="num">{{ .Roles }}</td></tr>
		<tr><th>Members</th><td class="num">{{ .Members }}</td></tr>
		<tr><th>Users</th><td class="num">{{ .Users }}</td></tr>
	</table>
	{{ else }}
	<p>No stats yet</p>
	{{ end }}

	<h3>Kinds</h3>
	<table>
		<tr><th>Kind</th><th>Ignored</th><th>In-place patches</th><th>Rewrites</th></tr>
		{{ range .Info.Kinds }}
		<tr>
			<td>{{ .Name }}</td>
			<td>{{ if .Ignored }}yes{{ end }}</td>
			<td class="num">{{ index .Patches "in_place" }}</td>
			<td class="num">{{ index .Patches "rewrite" }}</td>
		</tr>
		{{ end }}
	</table>

	{{ range .Info.DBInfo }}
	<h2>LMDB {{ .Name }}</h2>
	{{ if .Err }}
	<table><tr><td class="error">{{ .Err }}</td></tr></table>
	{{ else }}
	<p>Map size {{ .MapSize.HR }}, used {{ .Used.HR }}, readers {{ .Info.NumReaders }}/{{ .Info.MaxReaders }}</p>
	<table>
		<tr><th>Namespace</th><th>Entries</th><th>Depth</th><th>Used</th></tr>
		{{ range .DBIStats }}
		<tr>
			<td>{{ .Name }}</td>
			<td class="num">{{ .Entries }}</td>
			<td class="num">{{ .Depth }}</td>
			<td class="num">{{ .Used.HR }}</td>
		</tr>
		{{ end }}
	</table>
	{{ end }}
	{{ end }}

	{{ with .Info.Exports }}{{ if .Enabled }}
	<h2>Exports</h2>
	{{ if .Err }}
	<table><tr><td class="error">{{ .Err }}</td></tr></table>
	{{ else }}
	<table>
		<tr><th>Name</th><th>Size</th></tr>
		{{ range .Blobs }}
		<tr><td>{{ .Name }}</td><td class="num">{{ .Size }}</td></tr>
		{{ end }}
	</table>
	{{ end }}
	{{ end }}{{ end }}

	<h2>Config</h2>
	<pre>{{ .Config.String }}</pre>

</body>
</html>`

var statusTemplate *htmltemplate.Template

func init() {
	var err error
	statusTemplate, err = htmltemplate.New("status").Parse(statusTemplateString)
	if err != nil {
		log.Fatalf("BUG: Error in status HTML template: %v", err)
	}
}

func (p *Page) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	data := struct {
		Config config.Config
		Info   *info
	}{
		Config: p.c,
		Info:   p.i,
	}

	err := statusTemplate.Execute(w, data)
	if err != nil {
		w.WriteHeader(500)
		_, _ = w.Write([]byte(fmt.Sprintf("Template execution error: %v", err)))
	}
}
