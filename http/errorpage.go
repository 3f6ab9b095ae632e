package http

import (
	"html/template"
	"log/slog"
	"net/http"
	"sort"
)

var unknownRouteTmpl = template.Must(template.New("404").Parse(`<html>
<head><title>404 Not Found</title></head>
<body>
<center><h1>404 Not Found</h1></center>
<p>No GridFS route serves <code>{{.Path}}</code>.</p>
{{- if .Prefixes}}
<p>Served prefixes:</p>
<ul>
{{- range .Prefixes}}
<li><code>{{.}}</code></li>
{{- end}}
</ul>
{{- end}}
<hr><center>gridfetch</center>
</body>
</html>
`))

// writeUnknownRoute answers a request that no route prefix matched.
func writeUnknownRoute(w http.ResponseWriter, path string, prefixes []string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusNotFound)

	err := unknownRouteTmpl.Execute(w, struct {
		Path     string
		Prefixes []string
	}{Path: path, Prefixes: prefixes})
	if err != nil {
		slog.Warn("failed to render not found page", "error", err)
	}
}

func routePrefixes(h *Handler) []string {
	var out []string
	for _, root := range h.config.Routes {
		for _, loc := range root.Flatten() {
			out = append(out, loc.Prefix)
		}
	}
	sort.Strings(out)
	return out
}
