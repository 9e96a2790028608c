package memclient

import (
	"net/http"
	"time"

	"github.com/hyp3rd/memclient/pkg/retry"
	"github.com/hyp3rd/memclient/pkg/transport"
)

// Option is a function type that can be used to configure the `Client` struct.
type Option func(*Client)

// WithTransport replaces the HTTP transport. Requests are still decorated with the
// authorization, content-type and user-agent headers.
func WithTransport(t transport.Transport) Option {
	return func(c *Client) {
		c.transport = t
	}
}

// WithHTTPClient sets the net/http client used by the default transport.
// It is ignored when WithTransport is used.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithRetryPolicy overrides the retry policy of the configuration. Nil disables retries.
func WithRetryPolicy(p *retry.Policy) Option {
	return func(c *Client) {
		c.retries = p
	}
}

// WithTimeout overrides the per-request timeout of the configuration.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d >= 0 {
			c.timeout = d
		}
	}
}

// WithLogger sets the logger used to report retried attempts.
func WithLogger(l Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithUserAgent overrides the user agent sent with every request.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}

// WithStreamChunkSize sets the read size used by the NDJSON decoder of streaming operations.
func WithStreamChunkSize(n int) Option {
	return func(c *Client) {
		c.chunkSize = n
	}
}
