package http

import (
	"bytes"
	"net/http"
	"sync/atomic"

	"spendview/internal/export"
	applog "spendview/internal/log"
)

// handleExport streams the filtered expenses as an attachment.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	format, err := export.ParseFormat(q.Get("format"))
	if err != nil {
		s.writeError(w, r, badRequest("%s", err.Error()), applog.OpExport)
		return
	}
	filter, err := ParseExpenseFilter(q)
	if err != nil {
		s.writeError(w, r, err, applog.OpExport)
		return
	}

	rows, settings, err := s.tracker.ExportExpenses(r.Context(), filter)
	if err != nil {
		s.writeError(w, r, err, applog.OpExport)
		return
	}

	now := s.now()
	var buf bytes.Buffer
	if err := export.Write(&buf, format, rows, settings.Currency, now); err != nil {
		fields := applog.NewFields().WithErrorType(applog.ErrorTypeInternal)
		fields[applog.FieldFormat] = string(format)
		s.structured.LogError(r.Context(), "Export failed", err, applog.ComponentExport, applog.OpExport, fields)
		Failure(http.StatusInternalServerError, "Export failed").Write(w)
		return
	}

	atomic.AddInt64(&s.metrics.exports, 1)
	applog.FromContext(r.Context()).WithComponent(applog.ComponentExport).InfoContext(r.Context(), "Expenses exported",
		applog.FieldFormat, string(format),
		applog.FieldCount, len(rows))

	NewHTMXResponse().
		Attachment(format.ContentType(), export.Filename(format, now), buf.Bytes()).
		Write(w)
}
