// Package rest is an HTTP client for the expense tracker REST API.
package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"spendview/internal/core"
)

const (
	defaultTimeout = 10 * time.Second
	maxBodySize    = 1 << 20 // 1 MB
	userAgent      = "spendview/1.0"
)

// Client talks to the REST backend on behalf of the caller whose
// Credentials are stored in the request context.
type Client struct {
	baseURL string
	timeout  time.Duration
	http     *http.Client
	group    singleflight.Group
	defaults core.Settings
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout sets the per-request timeout. Zero keeps the default.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.http = h
		}
	}
}

// WithDefaultSettings sets what Settings returns for a user without a
// settings row. Invalid fields keep the built-in defaults.
func WithDefaultSettings(s core.Settings) Option {
	return func(c *Client) {
		c.defaults = s.Normalize()
	}
}

// NewClient creates a client for the API rooted at baseURL, for example
// "http://localhost:8000". The /api prefix is added per endpoint.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil {
		return nil, fmt.Errorf("rest: parsing base URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("rest: unsupported base URL scheme %q", u.Scheme)
	}
	c := &Client{
		baseURL: strings.TrimRight(u.String(), "/"),
		timeout:  defaultTimeout,
		http:     &http.Client{},
		defaults: core.DefaultSettings(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Timeout returns the per-request timeout.
func (c *Client) Timeout() time.Duration {
	return c.timeout
}

// getJSON fetches path and decodes it into out. Identical concurrent GETs
// for the same session share one round trip.
func (c *Client) getJSON(ctx context.Context, path string, query url.Values, out any) error {
	body, err := c.get(ctx, path, query)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("rest: parsing %s: %w", path, err)
	}
	return nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values) ([]byte, error) {
	target := c.url(path, query)
	creds := CredentialsFrom(ctx)
	key := creds.SessionID + " " + target

	v, err, _ := c.group.Do(key, func() (any, error) {
		return c.do(ctx, http.MethodGet, path, target, nil)
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

// send performs a mutating request. in is encoded as JSON when non-nil and
// the response is decoded into out when out is non-nil.
func (c *Client) send(ctx context.Context, method, path string, in, out any) error {
	if CredentialsFrom(ctx).CSRFToken == "" {
		return ErrMissingCSRFToken
	}
	var payload []byte
	if in != nil {
		var err error
		if payload, err = json.Marshal(in); err != nil {
			return fmt.Errorf("rest: encoding %s body: %w", path, err)
		}
	}
	body, err := c.do(ctx, method, path, c.url(path, nil), payload)
	if err != nil {
		return err
	}
	if out == nil || len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("rest: parsing %s response: %w", path, err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path, target string, payload []byte) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, fmt.Errorf("rest: creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	mutating := method != http.MethodGet
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if mutating {
		// Django checks the Referer of secure unsafe requests.
		req.Header.Set("Referer", c.baseURL+"/")
	}
	CredentialsFrom(ctx).apply(req, mutating)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("rest: %s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize+1))
	if err != nil {
		return nil, fmt.Errorf("rest: reading %s response: %w", path, err)
	}
	tooLarge := len(body) > maxBodySize
	if tooLarge {
		body = body[:maxBodySize]
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		return nil, ErrUnauthorized
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrNotFound
	case resp.StatusCode == http.StatusBadRequest:
		return nil, parseValidationError(body)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return nil, &StatusError{Method: method, Path: path, Code: resp.StatusCode, Body: snippet(string(body))}
	case tooLarge:
		return nil, fmt.Errorf("%w: %s %s exceeds %d bytes", ErrResponseTooLarge, method, path, maxBodySize)
	}
	return body, nil
}

func (c *Client) url(path string, query url.Values) string {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	return target
}

// IsClientError reports whether err was caused by the caller's input or
// session rather than by the backend being unavailable.
func IsClientError(err error) bool {
	var verr *ValidationError
	return errors.Is(err, ErrUnauthorized) ||
		errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrMissingCSRFToken) ||
		errors.As(err, &verr)
}
