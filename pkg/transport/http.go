package transport

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hyp3rd/ewrap"

	"github.com/hyp3rd/memclient/internal/constants"
	"github.com/hyp3rd/memclient/internal/sentinel"
)

const (
	errMsgNewRequest = "new request"
	errMsgDoRequest  = "do request"
	errMsgReadBody   = "read body"
)

// HTTPTransport implements Transport over net/http.
type HTTPTransport struct {
	client  *http.Client
	baseURL *url.URL
	timeout time.Duration
}

// HTTPOption configures an HTTPTransport.
type HTTPOption func(*HTTPTransport)

// WithHTTPClient replaces the underlying client. Its Timeout should be zero:
// streaming bodies outlive any fixed client timeout.
func WithHTTPClient(c *http.Client) HTTPOption {
	return func(t *HTTPTransport) {
		if c != nil {
			t.client = c
		}
	}
}

// WithTimeout bounds buffered requests end-to-end and streaming requests up to the response headers.
func WithTimeout(d time.Duration) HTTPOption {
	return func(t *HTTPTransport) { t.timeout = d }
}

// NewHTTPTransport creates a transport rooted at baseURL.
func NewHTTPTransport(baseURL string, opts ...HTTPOption) (*HTTPTransport, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, ewrap.Wrap(sentinel.ErrInvalidBaseURL, err.Error())
	}

	if u.Scheme == "" || u.Host == "" {
		return nil, ewrap.Wrap(sentinel.ErrInvalidBaseURL, baseURL)
	}

	t := &HTTPTransport{
		baseURL: u,
		timeout: constants.DefaultTimeout,
	}

	for _, opt := range opts {
		opt(t)
	}

	if t.client == nil {
		t.client = &http.Client{Transport: newRoundTripper(t.timeout)}
	}

	return t, nil
}

func newRoundTripper(headerTimeout time.Duration) http.RoundTripper {
	base, ok := http.DefaultTransport.(*http.Transport)
	if !ok {
		return http.DefaultTransport
	}

	rt := base.Clone()
	if headerTimeout > 0 {
		rt.ResponseHeaderTimeout = headerTimeout
	}

	return rt
}

// BaseURL returns the root every request path is resolved against.
func (t *HTTPTransport) BaseURL() string { return t.baseURL.String() }

// Do issues req. Non-2xx statuses are returned as responses, not errors.
func (t *HTTPTransport) Do(ctx context.Context, req *Request) (*Response, error) {
	cancel := context.CancelFunc(func() {})
	if !req.Stream && t.timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, t.timeout)
	}

	hreq, err := t.newRequest(ctx, req)
	if err != nil {
		cancel()

		return nil, err
	}

	resp, err := t.client.Do(hreq)
	if err != nil {
		cancel()

		return nil, ewrap.Wrap(err, errMsgDoRequest)
	}

	out := &Response{StatusCode: resp.StatusCode, Header: resp.Header}

	if req.Stream && out.OK() {
		out.Stream = resp.Body

		return out, nil
	}

	defer cancel()

	defer func() {
		_ = resp.Body.Close() //nolint:errcheck // best-effort
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, ewrap.Wrap(err, errMsgReadBody)
	}

	out.Body = body

	return out, nil
}

func (t *HTTPTransport) newRequest(ctx context.Context, req *Request) (*http.Request, error) {
	u := *t.baseURL
	u.RawPath = t.baseURL.EscapedPath() + req.Path

	path, err := url.PathUnescape(u.RawPath)
	if err != nil {
		return nil, ewrap.Wrap(err, errMsgNewRequest)
	}

	u.Path = path

	if len(req.Query) > 0 {
		u.RawQuery = req.Query.Encode()
	}

	var body io.Reader
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
	}

	hreq, err := http.NewRequestWithContext(ctx, req.Method, u.String(), body)
	if err != nil {
		return nil, ewrap.Wrap(err, errMsgNewRequest)
	}

	for k, vs := range req.Header {
		for _, v := range vs {
			hreq.Header.Add(k, v)
		}
	}

	return hreq, nil
}
