package http

import (
	"encoding/json"
	"html/template"
	"net/http"
	"strconv"
	"time"

	"spendview/internal/views"
)

// HX-Trigger event names the shell script listens for.
const (
	eventFormReset    = "form:reset"
	eventNotification = "show-notification"
	eventThemeChanged = "theme:changed"
)

// NotificationType selects the toast style.
type NotificationType string

const (
	NotificationSuccess NotificationType = "success"
	NotificationError   NotificationType = "error"
)

const (
	successToast = 3 * time.Second
	errorToast   = 5 * time.Second
)

// notification is the show-notification event detail.
type notification struct {
	Type     NotificationType `json:"type"`
	Message  string           `json:"message"`
	Duration int64            `json:"duration"`
}

// HTMXResponseBuilder assembles a response with HX-Trigger events.
// Events are encoded once, as a JSON object, when the response is written.
type HTMXResponseBuilder struct {
	status   int
	header   http.Header
	triggers map[string]any
	body     []byte
}

// NewHTMXResponse starts a 200 response.
func NewHTMXResponse() *HTMXResponseBuilder {
	return &HTMXResponseBuilder{
		status:   http.StatusOK,
		header:   http.Header{},
		triggers: map[string]any{},
	}
}

func (b *HTMXResponseBuilder) Status(code int) *HTMXResponseBuilder {
	b.status = code
	return b
}

// Trigger adds an event. detail is its event.detail in the browser.
func (b *HTMXResponseBuilder) Trigger(name string, detail any) *HTMXResponseBuilder {
	if detail == nil {
		detail = struct{}{}
	}
	b.triggers[name] = detail
	return b
}

// TriggerFormReset clears the submitted form.
func (b *HTMXResponseBuilder) TriggerFormReset() *HTMXResponseBuilder {
	return b.Trigger(eventFormReset, nil)
}

// TriggerRefresh reloads every view that shows entity.
func (b *HTMXResponseBuilder) TriggerRefresh(entity string) *HTMXResponseBuilder {
	for _, event := range views.RefreshEvents(entity) {
		b.Trigger(event, nil)
	}
	return b
}

// TriggerThemeChanged tells the shell to swap its theme class.
func (b *HTMXResponseBuilder) TriggerThemeChanged(theme string) *HTMXResponseBuilder {
	return b.Trigger(eventThemeChanged, map[string]string{"theme": theme})
}

func (b *HTMXResponseBuilder) TriggerNotification(kind NotificationType, message string, d time.Duration) *HTMXResponseBuilder {
	return b.Trigger(eventNotification, notification{Type: kind, Message: message, Duration: d.Milliseconds()})
}

func (b *HTMXResponseBuilder) TriggerSuccessNotification(message string) *HTMXResponseBuilder {
	return b.TriggerNotification(NotificationSuccess, message, successToast)
}

func (b *HTMXResponseBuilder) TriggerErrorNotification(message string) *HTMXResponseBuilder {
	return b.TriggerNotification(NotificationError, message, errorToast)
}

func (b *HTMXResponseBuilder) Header(name, value string) *HTMXResponseBuilder {
	b.header.Set(name, value)
	return b
}

// Body sets a raw body; the caller picks the Content-Type.
func (b *HTMXResponseBuilder) Body(content []byte) *HTMXResponseBuilder {
	b.body = content
	return b
}

func (b *HTMXResponseBuilder) BodyHTML(html []byte) *HTMXResponseBuilder {
	return b.Header("Content-Type", "text/html; charset=utf-8").Body(html)
}

// JSON sets an uncached JSON body.
func (b *HTMXResponseBuilder) JSON(body []byte) *HTMXResponseBuilder {
	return b.Header("Content-Type", "application/json").
		Header("Cache-Control", "no-store").
		Body(body)
}

// Attachment sets a download body named filename.
func (b *HTMXResponseBuilder) Attachment(contentType, filename string, body []byte) *HTMXResponseBuilder {
	return b.Header("Content-Type", contentType).
		Header("Content-Disposition", `attachment; filename="`+filename+`"`).
		Header("Content-Length", strconv.Itoa(len(body))).
		Header("Cache-Control", "no-store").
		Body(body)
}

// Write sends headers, triggers, status and body.
func (b *HTMXResponseBuilder) Write(w http.ResponseWriter) {
	h := w.Header()
	for name, values := range b.header {
		h[name] = values
	}
	if len(b.triggers) > 0 {
		if events, err := json.Marshal(b.triggers); err == nil {
			h.Set("HX-Trigger", string(events))
		}
	}
	w.WriteHeader(b.status)
	if len(b.body) > 0 {
		_, _ = w.Write(b.body)
	}
}

// ErrorResponse renders message, escaped, as an alert fragment.
func ErrorResponse(status int, message string) *HTMXResponseBuilder {
	return NewHTMXResponse().
		Status(status).
		BodyHTML([]byte(`<div class="error" role="alert">` + template.HTMLEscapeString(message) + `</div>`))
}

// Failure is an error fragment that also raises an error toast.
func Failure(status int, message string) *HTMXResponseBuilder {
	return ErrorResponse(status, message).TriggerErrorNotification(message)
}
