package api

import (
	"log/slog"
	"net/http"
	"time"
)

// Option is a functional option for configuring a Client.
type Option func(*Client)

// WithBaseURL sets the backend address.
// If not set, defaults to the STOCKDECK_API_BASE_URL environment
// variable, then DefaultBaseURL.
func WithBaseURL(addr string) Option {
	return func(c *Client) {
		c.baseURL = addr
	}
}

// WithTimeout sets the HTTP request timeout.
// If not set, defaults to 15 seconds.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
	}
}

// WithHTTPClient sets a custom http.Client for making requests.
// This is useful for testing, proxying, or custom transport
// configurations.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithLogger sets the logger used by the pipeline.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithMetrics attaches Prometheus metrics to the pipeline.
func WithMetrics(m *Metrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// WithOnSessionInvalidated registers the callback invoked after an
// irrecoverable authorization failure has cleared the session. The
// callback runs on the calling goroutine; keep it cheap (typically a
// channel send into the application shell).
func WithOnSessionInvalidated(fn func()) Option {
	return func(c *Client) {
		c.onInvalidated = fn
	}
}
