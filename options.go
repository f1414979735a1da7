package runeq

// Functional options that configure a Client during construction. Keeping
// them in a standalone file makes it easy to discover all available knobs at
// a glance.

import (
	"net/http"
	"time"
)

// Option configures a Client during construction in NewClient.
//
// Options run before the transports are built, so transport-related options
// (like debug logging) affect every request. Options must be deterministic
// and side-effect free.
type Option func(*Client) error

// WithHTTPTimeout sets the underlying http.Client timeout used by both
// transports.
//
// Prefer per-request context deadlines where possible; this timeout is a
// coarse safety net bounding the total time spent on a single HTTP request.
// The value must be greater than zero.
func WithHTTPTimeout(d time.Duration) Option {
	return func(c *Client) error {
		if d <= 0 {
			return Usagef("http timeout must be > 0")
		}
		c.http.Timeout = d
		return nil
	}
}

// WithHTTPClient replaces the underlying http.Client entirely. The caller
// owns timeout and transport configuration.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) error {
		if hc == nil {
			return Usagef("http client cannot be nil")
		}
		c.http = hc
		return nil
	}
}

// WithDebugLogging wraps the HTTP transport so each request and response is
// dumped to the log when enabled is true.
//
// Do not enable in production: dumps include auth headers and full bodies.
func WithDebugLogging(enabled bool) Option {
	return func(c *Client) error {
		if enabled {
			base := c.http.Transport
			if base == nil {
				base = http.DefaultTransport
			}
			c.http.Transport = &debugTransport{base: base}
		}
		return nil
	}
}
