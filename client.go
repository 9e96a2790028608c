// Package memclient is a typed client for a remote key-value "memory" store
// exposed over HTTP. Values are opaque strings, base64-encoded on the wire and
// scoped to a namespace fixed at construction.
//
// Every operation goes through a bounded fixed-delay retry loop (when a policy is
// configured) and reports failures as one of the classified errors of pkg/memerr.
// "Not found" is recovered locally by Get (absent), Delete (true) and Exists (false).
//
//	cfg := memclient.NewConfig("agents", "https://memory.example.com", apiKey)
//	cfg.Retries = &retry.Policy{Attempts: 3, Delay: 200 * time.Millisecond}
//
//	client, err := memclient.New(cfg)
//	if err != nil { ... }
//
//	err = client.Put(ctx, "user:42", "prefers dark mode")
//	value, found, err := client.Get(ctx, "user:42")
package memclient

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/hyp3rd/ewrap"

	"github.com/hyp3rd/memclient/internal/constants"
	"github.com/hyp3rd/memclient/internal/sentinel"
	"github.com/hyp3rd/memclient/pkg/codec"
	"github.com/hyp3rd/memclient/pkg/memerr"
	"github.com/hyp3rd/memclient/pkg/retry"
	"github.com/hyp3rd/memclient/pkg/transport"
)

// Operation names, used in logs.
const (
	opPut         = "put"
	opGet         = "get"
	opDelete      = "delete"
	opExists      = "exists"
	opClear       = "clear"
	opPutMany     = "putMany"
	opDeleteMany  = "deleteMany"
	opGetMany     = "getMany"
	opListAllKeys = "listAllKeys"
	opSearch      = "streamSearch"
)

// Client is the remote memory store client. It holds no mutable state and is safe for concurrent use.
type Client struct {
	namespace  string
	transport  transport.Transport
	httpClient *http.Client
	retries    *retry.Policy
	timeout    time.Duration
	logger     Logger
	userAgent  string
	chunkSize  int
}

// memoryRecord is the wire form of a single memory.
type memoryRecord struct {
	ID        string `json:"id"`
	Value     string `json:"value"`
	Namespace string `json:"namespace,omitempty"`
}

// New creates a client from cfg and options. Options take precedence over cfg.
func New(cfg *Config, opts ...Option) (*Client, error) {
	if cfg == nil {
		return nil, ewrap.Wrap(sentinel.ErrParamCannotBeEmpty, "config")
	}

	err := cfg.Validate()
	if err != nil {
		return nil, err
	}

	c := &Client{
		namespace: cfg.Namespace,
		retries:   cfg.Retries,
		timeout:   cfg.Timeout,
		logger:    nopLogger{},
		userAgent: cfg.UserAgent,
	}

	if c.timeout == 0 {
		c.timeout = constants.DefaultTimeout
	}

	if c.userAgent == "" {
		c.userAgent = constants.DefaultUserAgent
	}

	for _, opt := range opts {
		opt(c)
	}

	err = c.retries.Validate()
	if err != nil {
		return nil, err
	}

	if c.transport == nil {
		httpOpts := []transport.HTTPOption{transport.WithTimeout(c.timeout)}
		if c.httpClient != nil {
			httpOpts = append(httpOpts, transport.WithHTTPClient(c.httpClient))
		}

		ht, herr := transport.NewHTTPTransport(cfg.BaseURL, httpOpts...)
		if herr != nil {
			return nil, herr
		}

		c.transport = ht
	}

	c.transport = transport.Chain(c.transport, transport.WithHeaders(http.Header{
		constants.HeaderAuthorization: {constants.BearerPrefix + cfg.APIKey},
		constants.HeaderContentType:   {constants.MediaTypeJSON},
		constants.HeaderUserAgent:     {c.userAgent},
	}))

	return c, nil
}

// Namespace returns the namespace every operation is scoped to.
func (c *Client) Namespace() string { return c.namespace }

// Put creates or replaces the value stored under key.
func (c *Client) Put(ctx context.Context, key, value string) error {
	err := validateKey(key)
	if err != nil {
		return err
	}

	body, err := marshal(memoryRecord{ID: key, Value: codec.Encode(value), Namespace: c.namespace})
	if err != nil {
		return err
	}

	_, err = c.call(ctx, opPut, key, &transport.Request{
		Method: http.MethodPost,
		Path:   constants.PathMemories,
		Body:   body,
	})

	return err
}

// Get retrieves the value stored under key. A missing key is reported as found=false, not as an error.
func (c *Client) Get(ctx context.Context, key string) (string, bool, error) {
	err := validateKey(key)
	if err != nil {
		return "", false, err
	}

	resp, err := c.call(ctx, opGet, key, c.memoryRequest(http.MethodGet, key))
	if err != nil {
		if memerr.IsNotFound(err) {
			return "", false, nil
		}

		return "", false, err
	}

	var rec memoryRecord

	err = json.Unmarshal(resp.Body, &rec)
	if err != nil {
		return "", false, malformed(err, "decode memory")
	}

	value, err := codec.Decode(rec.Value)
	if err != nil {
		return "", false, malformed(err, "decode value")
	}

	return value, true, nil
}

// Delete removes key. Deleting a key that does not exist is a success: Delete reports true in both cases.
func (c *Client) Delete(ctx context.Context, key string) (bool, error) {
	err := validateKey(key)
	if err != nil {
		return false, err
	}

	_, err = c.call(ctx, opDelete, key, c.memoryRequest(http.MethodDelete, key))
	if err != nil && !memerr.IsNotFound(err) {
		return false, err
	}

	return true, nil
}

// Exists reports whether key is stored. The value is neither returned nor decoded.
func (c *Client) Exists(ctx context.Context, key string) (bool, error) {
	err := validateKey(key)
	if err != nil {
		return false, err
	}

	_, err = c.call(ctx, opExists, key, c.memoryRequest(http.MethodGet, key))
	if err != nil {
		if memerr.IsNotFound(err) {
			return false, nil
		}

		return false, err
	}

	return true, nil
}

// Clear removes every key of the namespace.
func (c *Client) Clear(ctx context.Context) error {
	_, err := c.call(ctx, opClear, "", &transport.Request{
		Method: http.MethodDelete,
		Path:   constants.PathMemories,
		Query:  url.Values{constants.QueryNamespace: {c.namespace}},
	})

	return err
}

// memoryRequest addresses a single memory. The namespace travels as a query parameter.
func (c *Client) memoryRequest(method, key string) *transport.Request {
	return &transport.Request{
		Method: method,
		Path:   constants.PathMemories + "/" + url.PathEscape(key),
		Query:  url.Values{constants.QueryNamespace: {c.namespace}},
	}
}

// call runs req under the retry policy and classifies every unsuccessful attempt.
// key is the NotFound attribution context, empty for requests without one.
// All attempts of one call share a request id.
func (c *Client) call(ctx context.Context, op, key string, req *transport.Request) (*transport.Response, error) {
	requestID := uuid.NewString()

	return retry.Do(ctx, c.retries, func(ctx context.Context) (*transport.Response, error) {
		attempt := *req

		attempt.Header = req.Header.Clone()
		if attempt.Header == nil {
			attempt.Header = http.Header{}
		}

		attempt.Header.Set(constants.HeaderRequestID, requestID)

		resp, err := c.transport.Do(ctx, &attempt)
		if err != nil {
			return nil, memerr.Classify(memerr.Outcome{Err: err, Key: key})
		}

		if !resp.OK() {
			if resp.Stream != nil {
				_ = resp.Stream.Close() //nolint:errcheck // error payload is not needed
			}

			return nil, memerr.Classify(memerr.Outcome{
				StatusCode: resp.StatusCode,
				Header:     resp.Header,
				Body:       resp.Body,
				Key:        key,
			})
		}

		return resp, nil
	}, retry.WithOnRetry(c.retryLogger(op, key)))
}

func (c *Client) retryLogger(op, key string) retry.Hook {
	return func(attempt int, err error, wait time.Duration) {
		if key == "" {
			c.logger.Printf("memclient: %s attempt %d failed (%s), retrying in %s", op, attempt, memerr.KindOf(err), wait)

			return
		}

		c.logger.Printf("memclient: %s %q attempt %d failed (%s), retrying in %s", op, key, attempt, memerr.KindOf(err), wait)
	}
}

func validateKey(key string) error {
	if strings.TrimSpace(key) == "" {
		return &memerr.ValidationError{Message: "key cannot be empty", Cause: sentinel.ErrInvalidKey}
	}

	return nil
}

func marshal(v any) ([]byte, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return nil, &memerr.ValidationError{Message: "cannot encode request", Cause: ewrap.Wrap(err, "marshal request")}
	}

	return body, nil
}

// malformed reports a 2xx response the client could not decode.
func malformed(err error, msg string) error {
	return &memerr.ValidationError{Message: "malformed response", Details: msg, Cause: ewrap.Wrap(err, msg)}
}
