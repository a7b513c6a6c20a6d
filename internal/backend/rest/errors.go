package rest

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrUnauthorized indicates the session is missing, expired, or was refused.
	ErrUnauthorized = errors.New("rest: unauthorized")
	// ErrNotFound indicates the record does not exist or belongs to another user.
	ErrNotFound = errors.New("rest: not found")
	// ErrMissingCSRFToken is returned before any I/O when a mutation has no token.
	ErrMissingCSRFToken = errors.New("rest: missing CSRF token")
	// ErrResponseTooLarge is returned when a successful response exceeds maxBodySize.
	ErrResponseTooLarge = errors.New("rest: response too large")
)

// ValidationError carries the per-field messages of a 400 response.
type ValidationError struct {
	Fields map[string][]string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "rest: validation failed"
	}
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+strings.Join(e.Fields[k], " "))
	}
	return "rest: validation failed: " + strings.Join(parts, "; ")
}

// StatusError is any other non-2xx answer.
type StatusError struct {
	Method string
	Path   string
	Code   int
	Body   string
}

func (e *StatusError) Error() string {
	msg := fmt.Sprintf("rest: %s %s: unexpected status %d", e.Method, e.Path, e.Code)
	if e.Body != "" {
		msg += ": " + e.Body
	}
	return msg
}

// parseValidationError decodes a DRF style error body. Values may be a list
// of strings, a single string, or anything else, which is kept as raw JSON.
func parseValidationError(body []byte) *ValidationError {
	verr := &ValidationError{Fields: map[string][]string{}}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		if text := strings.TrimSpace(string(body)); text != "" {
			verr.Fields["detail"] = []string{snippet(text)}
		}
		return verr
	}
	for field, value := range raw {
		var list []string
		if err := json.Unmarshal(value, &list); err == nil {
			verr.Fields[field] = list
			continue
		}
		var single string
		if err := json.Unmarshal(value, &single); err == nil {
			verr.Fields[field] = []string{single}
			continue
		}
		verr.Fields[field] = []string{string(value)}
	}
	return verr
}

func snippet(s string) string {
	const max = 200
	s = strings.TrimSpace(s)
	if len(s) > max {
		return s[:max] + "..."
	}
	return s
}
