package http

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"spendview/internal/backend/rest"
	"spendview/internal/core"
	applog "spendview/internal/log"
)

// failure is how an error is shown to the user and logged.
type failure struct {
	status    int
	message   string
	errorType string
}

// classify maps service and backend errors to a status and a user message.
func classify(err error) failure {
	var verr *rest.ValidationError
	var serr *rest.StatusError
	switch {
	case errors.Is(err, errBadRequest):
		return failure{http.StatusBadRequest, strings.TrimPrefix(err.Error(), errBadRequest.Error()+": "), applog.ErrorTypeValidation}
	case core.IsValidation(err):
		return failure{http.StatusUnprocessableEntity, validationMessage(err), applog.ErrorTypeValidation}
	case errors.As(err, &verr):
		return failure{http.StatusUnprocessableEntity, backendValidationMessage(verr), applog.ErrorTypeValidation}
	case errors.Is(err, rest.ErrMissingCSRFToken), errors.Is(err, rest.ErrUnauthorized):
		return failure{http.StatusUnauthorized, "Your session has expired. Sign in again.", applog.ErrorTypeAuth}
	case errors.Is(err, rest.ErrNotFound):
		return failure{http.StatusNotFound, "That record no longer exists.", applog.ErrorTypeNotFound}
	case errors.Is(err, context.DeadlineExceeded):
		return failure{http.StatusGatewayTimeout, "The server took too long to answer.", applog.ErrorTypeTimeout}
	case errors.Is(err, rest.ErrResponseTooLarge):
		return failure{http.StatusBadGateway, "The server sent more data than can be shown. Narrow the filters.", applog.ErrorTypeNetwork}
	case errors.As(err, &serr):
		return failure{http.StatusBadGateway, "The server rejected the request.", applog.ErrorTypeNetwork}
	}
	return failure{http.StatusBadGateway, "Could not reach the server.", applog.ErrorTypeNetwork}
}

func validationMessage(err error) string {
	switch {
	case errors.Is(err, core.ErrInvalidAmount):
		return "Enter an amount greater than zero, like 12.50."
	case errors.Is(err, core.ErrEmptyCategory):
		return "Category is required."
	case errors.Is(err, core.ErrEmptyName):
		return "Name is required."
	case errors.Is(err, core.ErrInvalidFrequency):
		return "Choose daily, weekly or monthly."
	case errors.Is(err, core.ErrInvalidPeriod):
		return "Choose a monthly or yearly period."
	case errors.Is(err, core.ErrInvalidCurrency):
		return "Unsupported currency."
	case errors.Is(err, core.ErrInvalidTheme):
		return "Unsupported theme."
	case errors.Is(err, core.ErrInvalidDeadline):
		return "Enter a deadline as YYYY-MM-DD."
	case errors.Is(err, core.ErrLabelTooLong):
		return "Keep names and categories under 100 characters."
	}
	return "Invalid input."
}

func backendValidationMessage(verr *rest.ValidationError) string {
	msg := strings.TrimPrefix(verr.Error(), "rest: validation failed")
	msg = strings.TrimPrefix(msg, ": ")
	if msg == "" {
		return "The server rejected the input."
	}
	return msg
}

// writeError logs err and answers with an error fragment plus a notification.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error, operation string) {
	f := classify(err)
	fields := applog.NewFields().
		WithErrorType(f.errorType).
		WithHTTPRequest(r.Method, r.URL.Path, "", "", "")
	if f.status >= http.StatusInternalServerError {
		s.structured.LogError(r.Context(), "Request failed", err, applog.ComponentHTTP, operation, fields)
	} else {
		applog.FromContext(r.Context()).WarnContext(r.Context(), "Request rejected",
			append(fields.WithError(err).WithOperation(operation).ToSlice(), applog.FieldStatusCode, f.status)...)
	}
	Failure(f.status, f.message).Write(w)
}
