// ABOUTME: Template loading and rendering for server pages.
// ABOUTME: Embeds HTML templates and executes them with per-request gate functions.

package web

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"
	"net/url"
	"strings"

	"github.com/2389/teamhub/internal/gates"
	"github.com/dustin/go-humanize"
)

//go:embed templates/*.html
var templateFS embed.FS

var pageFiles = map[string]string{
	"channel":     "templates/channel.html",
	"settings":    "templates/settings.html",
	"new-channel": "templates/new_channel.html",
	"roles":       "templates/roles.html",
	"members":     "templates/members.html",
	"error":       "templates/error.html",
}

var baseFuncs = template.FuncMap{
	"timeAgo": humanize.Time,
	"comma":   func(n int) string { return humanize.Comma(int64(n)) },
	"path":    serverPath,
}

var pageTmpls = parsePageTemplates()

func parsePageTemplates() map[string]*template.Template {
	funcs := template.FuncMap{}
	for k, v := range baseFuncs {
		funcs[k] = v
	}
	for k, v := range gates.FuncMap(gates.Nobody) {
		funcs[k] = v
	}

	layout := template.Must(template.New("layout").Funcs(funcs).ParseFS(templateFS, "templates/layout.html"))
	tmpls := make(map[string]*template.Template, len(pageFiles))
	for name, file := range pageFiles {
		tmpl := template.Must(layout.Clone())
		tmpls[name] = template.Must(tmpl.ParseFS(templateFS, file))
	}
	return tmpls
}

// page is the data every layout render receives
type page struct {
	Title    string
	ServerID string
	Viewer   string
	Data     any
}

// renderPage executes page name inside the layout. g supplies the permission
// functions for the request; nil means the viewer has no server context.
func renderPage(w http.ResponseWriter, status int, name string, g *gates.Gates, p page) {
	tmpl, ok := pageTmpls[name]
	if !ok {
		http.Error(w, "unknown page", http.StatusInternalServerError)
		return
	}
	if g == nil {
		g = gates.New(gates.Nobody)
	}

	// Clone so per-request funcs never leak between viewers
	t := template.Must(tmpl.Clone()).Funcs(g.FuncMap())

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", p); err != nil {
		http.Error(w, "failed to render page", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

type errorData struct {
	Status  int
	Message string
}

func renderError(w http.ResponseWriter, status int, serverID, message string) {
	renderPage(w, status, "error", nil, page{
		Title:    http.StatusText(status),
		ServerID: serverID,
		Data:     errorData{Status: status, Message: message},
	})
}

// serverPath builds an escaped /servers/{id}/... path
func serverPath(serverID string, rest ...string) string {
	parts := []string{"", "servers", url.PathEscape(serverID)}
	for _, r := range rest {
		parts = append(parts, url.PathEscape(r))
	}
	return strings.Join(parts, "/")
}
