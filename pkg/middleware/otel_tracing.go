package middleware

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/hyp3rd/memclient"
	"github.com/hyp3rd/memclient/internal/telemetry/attrs"
	"github.com/hyp3rd/memclient/pkg/memerr"
	"github.com/hyp3rd/memclient/pkg/stream"
)

// OTelTracingMiddleware wraps memclient.Service methods with OpenTelemetry spans.
type OTelTracingMiddleware struct {
	next   memclient.Service
	tracer trace.Tracer
	// static attributes applied to all spans
	commonAttrs []attribute.KeyValue
}

// OTelTracingOption allows configuring the tracing middleware.
type OTelTracingOption func(*OTelTracingMiddleware)

// WithCommonAttributes sets attributes applied to all spans.
func WithCommonAttributes(attributes ...attribute.KeyValue) OTelTracingOption {
	return func(m *OTelTracingMiddleware) { m.commonAttrs = append(m.commonAttrs, attributes...) }
}

// NewOTelTracingMiddleware creates a tracing middleware.
func NewOTelTracingMiddleware(next memclient.Service, tracer trace.Tracer, opts ...OTelTracingOption) memclient.Service {
	mw := &OTelTracingMiddleware{next: next, tracer: tracer}
	for _, o := range opts {
		o(mw)
	}

	return mw
}

// Namespace returns the namespace of the next service.
func (mw OTelTracingMiddleware) Namespace() string { return mw.next.Namespace() }

// Put implements Service.Put with tracing.
func (mw OTelTracingMiddleware) Put(ctx context.Context, key, value string) error {
	ctx, span := mw.startSpan(ctx, "memclient.Put",
		attribute.Int(attrs.AttrKeyLength, len(key)),
		attribute.Int(attrs.AttrValueLength, len(value)))
	defer span.End()

	err := mw.next.Put(ctx, key, value)
	recordError(span, err)

	return err
}

// Get implements Service.Get with tracing.
func (mw OTelTracingMiddleware) Get(ctx context.Context, key string) (string, bool, error) {
	ctx, span := mw.startSpan(ctx, "memclient.Get", attribute.Int(attrs.AttrKeyLength, len(key)))
	defer span.End()

	v, found, err := mw.next.Get(ctx, key)
	span.SetAttributes(attribute.Bool(attrs.AttrFound, found))
	recordError(span, err)

	return v, found, err
}

// Delete implements Service.Delete with tracing.
func (mw OTelTracingMiddleware) Delete(ctx context.Context, key string) (bool, error) {
	ctx, span := mw.startSpan(ctx, "memclient.Delete", attribute.Int(attrs.AttrKeyLength, len(key)))
	defer span.End()

	deleted, err := mw.next.Delete(ctx, key)
	recordError(span, err)

	return deleted, err
}

// Exists implements Service.Exists with tracing.
func (mw OTelTracingMiddleware) Exists(ctx context.Context, key string) (bool, error) {
	ctx, span := mw.startSpan(ctx, "memclient.Exists", attribute.Int(attrs.AttrKeyLength, len(key)))
	defer span.End()

	exists, err := mw.next.Exists(ctx, key)
	span.SetAttributes(attribute.Bool(attrs.AttrFound, exists))
	recordError(span, err)

	return exists, err
}

// Clear implements Service.Clear with tracing.
func (mw OTelTracingMiddleware) Clear(ctx context.Context) error {
	ctx, span := mw.startSpan(ctx, "memclient.Clear")
	defer span.End()

	err := mw.next.Clear(ctx)
	recordError(span, err)

	return err
}

// PutMany implements Service.PutMany with tracing.
func (mw OTelTracingMiddleware) PutMany(ctx context.Context, items []memclient.Item) error {
	ctx, span := mw.startSpan(ctx, "memclient.PutMany", attribute.Int(attrs.AttrKeysCount, len(items)))
	defer span.End()

	err := mw.next.PutMany(ctx, items)
	recordError(span, err)

	return err
}

// DeleteMany implements Service.DeleteMany with tracing.
func (mw OTelTracingMiddleware) DeleteMany(ctx context.Context, keys []string) error {
	ctx, span := mw.startSpan(ctx, "memclient.DeleteMany", attribute.Int(attrs.AttrKeysCount, len(keys)))
	defer span.End()

	err := mw.next.DeleteMany(ctx, keys)
	recordError(span, err)

	return err
}

// GetMany implements Service.GetMany with tracing.
func (mw OTelTracingMiddleware) GetMany(ctx context.Context, keys []string) (map[string]memclient.Lookup, error) {
	ctx, span := mw.startSpan(ctx, "memclient.GetMany", attribute.Int(attrs.AttrKeysCount, len(keys)))
	defer span.End()

	res, err := mw.next.GetMany(ctx, keys)
	span.SetAttributes(attribute.Int(attrs.AttrResultCount, len(res)))
	recordError(span, err)

	return res, err
}

// ListAllKeys implements Service.ListAllKeys with a span covering the stream opening.
func (mw OTelTracingMiddleware) ListAllKeys(ctx context.Context) (*stream.Stream[string], error) {
	spanCtx, span := mw.startSpan(ctx, "memclient.ListAllKeys")
	defer span.End()

	s, err := mw.next.ListAllKeys(spanCtx)
	recordError(span, err)

	return s, err
}

// StreamSearch implements Service.StreamSearch with a span covering the stream opening.
func (mw OTelTracingMiddleware) StreamSearch(
	ctx context.Context,
	query string,
	opts ...memclient.SearchOption,
) (*stream.Stream[memclient.SearchResult], error) {
	spanCtx, span := mw.startSpan(ctx, "memclient.StreamSearch")
	defer span.End()

	s, err := mw.next.StreamSearch(spanCtx, query, opts...)
	recordError(span, err)

	return s, err
}

// startSpan starts a span with common and provided attributes.
func (mw OTelTracingMiddleware) startSpan(ctx context.Context, name string, attributes ...attribute.KeyValue) (context.Context, trace.Span) {
	ctx, span := mw.tracer.Start(ctx, name, trace.WithSpanKind(trace.SpanKindClient))

	span.SetAttributes(attribute.String(attrs.AttrNamespace, mw.next.Namespace()))

	if len(mw.commonAttrs) > 0 {
		span.SetAttributes(mw.commonAttrs...)
	}

	if len(attributes) > 0 {
		span.SetAttributes(attributes...)
	}

	return ctx, span
}

// recordError marks the span failed and tags it with the error kind and, for batches, the failed count.
func recordError(span trace.Span, err error) {
	if err == nil {
		return
	}

	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	span.SetAttributes(attribute.String(attrs.AttrErrorKind, memerr.KindOf(err).String()))

	var pf *memerr.PartialFailureError
	if errors.As(err, &pf) {
		span.SetAttributes(attribute.Int(attrs.AttrFailedCount, len(pf.Failures)))
	}
}
