package http

import (
	"bytes"
	"fmt"
	"html/template"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"

	"spendview/internal/core"
	applog "spendview/internal/log"
	appweb "spendview/web"
)

func templateFuncs() template.FuncMap {
	return template.FuncMap{
		"money": core.FormatMoney,
		"pct": func(p float64) string {
			return strconv.FormatFloat(p, 'f', 1, 64) + "%"
		},
		"rounded": func(p float64) string {
			return fmt.Sprintf("%.0f%%", math.Round(p))
		},
		"width": func(p float64) string {
			return strconv.FormatFloat(p, 'f', 1, 64)
		},
		"date": func(t core.Timestamp) string {
			if t.IsZero() {
				return "-"
			}
			return t.Format("02 Jan 2006")
		},
		"day": func(d core.Day) string {
			if d.IsZero() {
				return ""
			}
			return d.String()
		},
		"until": func(d core.Day) string {
			if d.IsZero() {
				return "no deadline"
			}
			return humanize.Time(d.Time)
		},
		"overdue": func(d core.Day) bool {
			return !d.IsZero() && d.Before(time.Now().Truncate(24*time.Hour))
		},
		"chartsJSON": chartsJSON,
		"count": func(n int) string {
			return humanize.Comma(int64(n))
		},
	}
}

func parseTemplates() (*template.Template, error) {
	return template.New("").Funcs(templateFuncs()).ParseFS(appweb.TemplatesFS, "templates/*.html")
}

// render executes a named template into a buffer so a failing template never
// sends a half-written page.
func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, name string, data any) {
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		s.structured.LogError(r.Context(), "Template execution failed", err,
			applog.ComponentTemplate, applog.OpRender, applog.NewFields().WithView(name))
		ErrorResponse(http.StatusInternalServerError, "Failed to render page").Write(w)
		return
	}
	NewHTMXResponse().Status(status).BodyHTML(buf.Bytes()).Write(w)
}
