package rest

import (
	"context"
	"net/http"
)

const (
	SessionCookie = "sessionid"
	CSRFCookie    = "csrftoken"
	CSRFHeader    = "X-CSRFToken"
)

// Credentials are the browser's backend session, forwarded per request.
type Credentials struct {
	SessionID string
	CSRFToken string
}

type credentialsKey struct{}

// WithCredentials returns a context carrying creds for backend calls.
func WithCredentials(ctx context.Context, creds Credentials) context.Context {
	return context.WithValue(ctx, credentialsKey{}, creds)
}

// CredentialsFrom returns the credentials stored in ctx, or the zero value.
func CredentialsFrom(ctx context.Context) Credentials {
	creds, _ := ctx.Value(credentialsKey{}).(Credentials)
	return creds
}

// CredentialsFromRequest reads the session and CSRF cookies of an incoming request.
func CredentialsFromRequest(r *http.Request) Credentials {
	var creds Credentials
	if c, err := r.Cookie(SessionCookie); err == nil {
		creds.SessionID = c.Value
	}
	if c, err := r.Cookie(CSRFCookie); err == nil {
		creds.CSRFToken = c.Value
	}
	return creds
}

func (c Credentials) apply(req *http.Request, mutating bool) {
	if c.SessionID != "" {
		req.AddCookie(&http.Cookie{Name: SessionCookie, Value: c.SessionID})
	}
	if c.CSRFToken != "" {
		req.AddCookie(&http.Cookie{Name: CSRFCookie, Value: c.CSRFToken})
		if mutating {
			req.Header.Set(CSRFHeader, c.CSRFToken)
		}
	}
}
