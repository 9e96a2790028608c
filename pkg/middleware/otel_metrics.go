package middleware

import (
	"context"
	"time"

	"github.com/hyp3rd/ewrap"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/hyp3rd/memclient"
	"github.com/hyp3rd/memclient/internal/telemetry/attrs"
	"github.com/hyp3rd/memclient/pkg/memerr"
	"github.com/hyp3rd/memclient/pkg/stream"
)

// OTelMetricsMiddleware emits OpenTelemetry metrics for service methods.
type OTelMetricsMiddleware struct {
	next  memclient.Service
	meter metric.Meter

	// instruments
	calls     metric.Int64Counter
	errors    metric.Int64Counter
	durations metric.Float64Histogram
}

// NewOTelMetricsMiddleware constructs a metrics middleware using the provided meter.
func NewOTelMetricsMiddleware(next memclient.Service, meter metric.Meter) (memclient.Service, error) {
	calls, err := meter.Int64Counter("memclient.calls")
	if err != nil {
		return nil, ewrap.Wrap(err, "create counter")
	}

	failures, err := meter.Int64Counter("memclient.errors")
	if err != nil {
		return nil, ewrap.Wrap(err, "create error counter")
	}

	durations, err := meter.Float64Histogram("memclient.duration.ms")
	if err != nil {
		return nil, ewrap.Wrap(err, "create histogram")
	}

	return &OTelMetricsMiddleware{next: next, meter: meter, calls: calls, errors: failures, durations: durations}, nil
}

// Namespace returns the namespace of the next service.
func (mw *OTelMetricsMiddleware) Namespace() string { return mw.next.Namespace() }

// Put implements Service.Put with metrics.
func (mw *OTelMetricsMiddleware) Put(ctx context.Context, key, value string) error {
	start := time.Now()
	err := mw.next.Put(ctx, key, value)
	mw.rec(ctx, "Put", start, err, attribute.Int(attrs.AttrKeyLength, len(key)))

	return err
}

// Get implements Service.Get with metrics.
func (mw *OTelMetricsMiddleware) Get(ctx context.Context, key string) (string, bool, error) {
	start := time.Now()
	v, found, err := mw.next.Get(ctx, key)
	mw.rec(ctx, "Get", start, err, attribute.Int(attrs.AttrKeyLength, len(key)), attribute.Bool(attrs.AttrFound, found))

	return v, found, err
}

// Delete implements Service.Delete with metrics.
func (mw *OTelMetricsMiddleware) Delete(ctx context.Context, key string) (bool, error) {
	start := time.Now()
	deleted, err := mw.next.Delete(ctx, key)
	mw.rec(ctx, "Delete", start, err, attribute.Int(attrs.AttrKeyLength, len(key)))

	return deleted, err
}

// Exists implements Service.Exists with metrics.
func (mw *OTelMetricsMiddleware) Exists(ctx context.Context, key string) (bool, error) {
	start := time.Now()
	exists, err := mw.next.Exists(ctx, key)
	mw.rec(ctx, "Exists", start, err, attribute.Bool(attrs.AttrFound, exists))

	return exists, err
}

// Clear implements Service.Clear with metrics.
func (mw *OTelMetricsMiddleware) Clear(ctx context.Context) error {
	start := time.Now()
	err := mw.next.Clear(ctx)
	mw.rec(ctx, "Clear", start, err)

	return err
}

// PutMany implements Service.PutMany with metrics.
func (mw *OTelMetricsMiddleware) PutMany(ctx context.Context, items []memclient.Item) error {
	start := time.Now()
	err := mw.next.PutMany(ctx, items)
	mw.rec(ctx, "PutMany", start, err, attribute.Int(attrs.AttrKeysCount, len(items)))

	return err
}

// DeleteMany implements Service.DeleteMany with metrics.
func (mw *OTelMetricsMiddleware) DeleteMany(ctx context.Context, keys []string) error {
	start := time.Now()
	err := mw.next.DeleteMany(ctx, keys)
	mw.rec(ctx, "DeleteMany", start, err, attribute.Int(attrs.AttrKeysCount, len(keys)))

	return err
}

// GetMany implements Service.GetMany with metrics.
func (mw *OTelMetricsMiddleware) GetMany(ctx context.Context, keys []string) (map[string]memclient.Lookup, error) {
	start := time.Now()
	res, err := mw.next.GetMany(ctx, keys)
	mw.rec(ctx, "GetMany", start, err, attribute.Int(attrs.AttrKeysCount, len(keys)), attribute.Int(attrs.AttrResultCount, len(res)))

	return res, err
}

// ListAllKeys implements Service.ListAllKeys with metrics on the stream opening.
func (mw *OTelMetricsMiddleware) ListAllKeys(ctx context.Context) (*stream.Stream[string], error) {
	start := time.Now()
	s, err := mw.next.ListAllKeys(ctx)
	mw.rec(ctx, "ListAllKeys", start, err)

	return s, err
}

// StreamSearch implements Service.StreamSearch with metrics on the stream opening.
func (mw *OTelMetricsMiddleware) StreamSearch(
	ctx context.Context,
	query string,
	opts ...memclient.SearchOption,
) (*stream.Stream[memclient.SearchResult], error) {
	start := time.Now()
	s, err := mw.next.StreamSearch(ctx, query, opts...)
	mw.rec(ctx, "StreamSearch", start, err)

	return s, err
}

// rec records call count, duration and, on failure, the error kind.
func (mw *OTelMetricsMiddleware) rec(ctx context.Context, method string, start time.Time, err error, attributes ...attribute.KeyValue) {
	base := []attribute.KeyValue{attribute.String("method", method)}
	if len(attributes) > 0 {
		base = append(base, attributes...)
	}

	mw.calls.Add(ctx, 1, metric.WithAttributes(base...))
	mw.durations.Record(ctx, float64(time.Since(start).Milliseconds()), metric.WithAttributes(base...))

	if err != nil {
		mw.errors.Add(ctx, 1, metric.WithAttributes(
			attribute.String("method", method),
			attribute.String(attrs.AttrErrorKind, memerr.KindOf(err).String())))
	}
}
