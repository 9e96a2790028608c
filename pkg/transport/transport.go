// Package transport defines the single-request HTTP capability consumed by the
// memclient client, and an implementation over net/http.
//
// A transport returns a Response for every status code, 4xx and 5xx included;
// an error means no status was received (connection failure, timeout, abort).
// Classification of both is the caller's concern (see pkg/memerr).
package transport

import (
	"context"
	"io"
	"net/http"
	"net/url"
)

// Request describes one HTTP call relative to the transport's base URL.
type Request struct {
	Method string
	// Path is the escaped request path, e.g. /api/v1/memories/a%2Fb.
	Path   string
	Query  url.Values
	Header http.Header
	Body   []byte
	// Stream asks for an unbuffered body: Response.Stream is set instead of Response.Body.
	Stream bool
}

// Response is the outcome of a request that produced a status.
type Response struct {
	StatusCode int
	Header     http.Header
	// Body holds the full payload of buffered requests.
	Body []byte
	// Stream is the open payload of streaming requests with a 2xx status. The caller must close it.
	Stream io.ReadCloser
}

// OK reports a 2xx status.
func (r *Response) OK() bool {
	return r.StatusCode >= http.StatusOK && r.StatusCode < http.StatusMultipleChoices
}

// Transport issues a single HTTP request.
type Transport interface {
	Do(ctx context.Context, req *Request) (*Response, error)
}

// Func adapts a function to the Transport interface.
type Func func(ctx context.Context, req *Request) (*Response, error)

// Do calls f.
func (f Func) Do(ctx context.Context, req *Request) (*Response, error) { return f(ctx, req) }

// Middleware wraps a Transport with additional behavior.
type Middleware func(Transport) Transport

// Chain applies middlewares so that the first one is the outermost.
func Chain(t Transport, mw ...Middleware) Transport {
	for i := len(mw) - 1; i >= 0; i-- {
		t = mw[i](t)
	}

	return t
}

// WithHeaders returns a middleware that sets static headers on every request
// unless the request already carries them.
func WithHeaders(h http.Header) Middleware {
	return func(next Transport) Transport {
		return Func(func(ctx context.Context, req *Request) (*Response, error) {
			if req.Header == nil {
				req.Header = http.Header{}
			}

			for k, vs := range h {
				if req.Header.Get(k) != "" {
					continue
				}

				for _, v := range vs {
					req.Header.Add(k, v)
				}
			}

			return next.Do(ctx, req)
		})
	}
}
