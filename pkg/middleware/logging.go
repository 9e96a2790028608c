// Package middleware provides decorators around memclient.Service: execution time
// logging, stats collection, OpenTelemetry tracing and OpenTelemetry metrics.
// They compose with memclient.ApplyMiddleware.
package middleware

import (
	"context"
	"time"

	"github.com/hyp3rd/memclient"
	"github.com/hyp3rd/memclient/pkg/stream"
)

// LoggingMiddleware is a middleware that logs the time it takes to execute the next middleware.
// Values are never logged, only their length.
// Must implement the memclient.Service interface.
type LoggingMiddleware struct {
	next   memclient.Service
	logger memclient.Logger
}

// NewLoggingMiddleware returns a new LoggingMiddleware.
func NewLoggingMiddleware(next memclient.Service, logger memclient.Logger) memclient.Service {
	return &LoggingMiddleware{next: next, logger: logger}
}

// Logging returns the LoggingMiddleware as a memclient.Middleware.
func Logging(logger memclient.Logger) memclient.Middleware {
	return func(next memclient.Service) memclient.Service { return NewLoggingMiddleware(next, logger) }
}

func (mw LoggingMiddleware) took(method string, begin time.Time, err error) {
	if err != nil {
		mw.logger.Printf("method %s took: %s, error: %v", method, time.Since(begin), err)

		return
	}

	mw.logger.Printf("method %s took: %s", method, time.Since(begin))
}

// Namespace returns the namespace of the next service.
func (mw LoggingMiddleware) Namespace() string { return mw.next.Namespace() }

// Put logs the time it takes to execute the next middleware.
func (mw LoggingMiddleware) Put(ctx context.Context, key, value string) (err error) {
	defer func(begin time.Time) { mw.took("Put", begin, err) }(time.Now())

	mw.logger.Printf("Put method called with key: %s value length: %d", key, len(value))

	return mw.next.Put(ctx, key, value)
}

// Get logs the time it takes to execute the next middleware.
func (mw LoggingMiddleware) Get(ctx context.Context, key string) (value string, found bool, err error) {
	defer func(begin time.Time) { mw.took("Get", begin, err) }(time.Now())

	mw.logger.Printf("Get method called with key: %s", key)

	return mw.next.Get(ctx, key)
}

// Delete logs the time it takes to execute the next middleware.
func (mw LoggingMiddleware) Delete(ctx context.Context, key string) (deleted bool, err error) {
	defer func(begin time.Time) { mw.took("Delete", begin, err) }(time.Now())

	mw.logger.Printf("Delete method called with key: %s", key)

	return mw.next.Delete(ctx, key)
}

// Exists logs the time it takes to execute the next middleware.
func (mw LoggingMiddleware) Exists(ctx context.Context, key string) (exists bool, err error) {
	defer func(begin time.Time) { mw.took("Exists", begin, err) }(time.Now())

	mw.logger.Printf("Exists method called with key: %s", key)

	return mw.next.Exists(ctx, key)
}

// Clear logs the time it takes to execute the next middleware.
func (mw LoggingMiddleware) Clear(ctx context.Context) (err error) {
	defer func(begin time.Time) { mw.took("Clear", begin, err) }(time.Now())

	mw.logger.Printf("Clear method called for namespace: %s", mw.next.Namespace())

	return mw.next.Clear(ctx)
}

// PutMany logs the time it takes to execute the next middleware.
func (mw LoggingMiddleware) PutMany(ctx context.Context, items []memclient.Item) (err error) {
	defer func(begin time.Time) { mw.took("PutMany", begin, err) }(time.Now())

	mw.logger.Printf("PutMany method called with %d items", len(items))

	return mw.next.PutMany(ctx, items)
}

// DeleteMany logs the time it takes to execute the next middleware.
func (mw LoggingMiddleware) DeleteMany(ctx context.Context, keys []string) (err error) {
	defer func(begin time.Time) { mw.took("DeleteMany", begin, err) }(time.Now())

	mw.logger.Printf("DeleteMany method called with keys: %s", keys)

	return mw.next.DeleteMany(ctx, keys)
}

// GetMany logs the time it takes to execute the next middleware.
func (mw LoggingMiddleware) GetMany(ctx context.Context, keys []string) (res map[string]memclient.Lookup, err error) {
	defer func(begin time.Time) { mw.took("GetMany", begin, err) }(time.Now())

	mw.logger.Printf("GetMany method called with keys: %s", keys)

	return mw.next.GetMany(ctx, keys)
}

// ListAllKeys logs the time it takes to open the stream.
func (mw LoggingMiddleware) ListAllKeys(ctx context.Context) (s *stream.Stream[string], err error) {
	defer func(begin time.Time) { mw.took("ListAllKeys", begin, err) }(time.Now())

	mw.logger.Printf("ListAllKeys method called for namespace: %s", mw.next.Namespace())

	return mw.next.ListAllKeys(ctx)
}

// StreamSearch logs the time it takes to open the stream.
func (mw LoggingMiddleware) StreamSearch(
	ctx context.Context,
	query string,
	opts ...memclient.SearchOption,
) (s *stream.Stream[memclient.SearchResult], err error) {
	defer func(begin time.Time) { mw.took("StreamSearch", begin, err) }(time.Now())

	mw.logger.Printf("StreamSearch method called with query length: %d", len(query))

	return mw.next.StreamSearch(ctx, query, opts...)
}
