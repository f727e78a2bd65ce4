package web

import (
	"embed"
	"html/template"
	"net/http"

	"github.com/m-mizutani/ctxlog"
	"github.com/zalepa/crimedash/dashboard"
	"github.com/zalepa/crimedash/incident"
)

//go:embed pages/*.html
var pageFS embed.FS

var pages = template.Must(template.ParseFS(pageFS, "pages/*.html"))

type pageData struct {
	View  dashboard.View
	Views int64
}

// Dimensions lists the filter dimensions in the order the pages show them.
func (pageData) Dimensions() []incident.Dimension {
	return incident.FilterDimensions
}

func renderPage(w http.ResponseWriter, r *http.Request, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := pages.ExecuteTemplate(w, name, data); err != nil {
		ctxlog.From(r.Context()).Error("failed to render page", "page", name, "error", err)
	}
}
