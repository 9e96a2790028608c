package middleware

import (
	"context"
	"time"

	"github.com/hyp3rd/memclient"
	"github.com/hyp3rd/memclient/pkg/memerr"
	"github.com/hyp3rd/memclient/pkg/stats"
	"github.com/hyp3rd/memclient/pkg/stream"
)

// StatsCollectorMiddleware is a middleware that collects stats: a duration, a count
// and, on failure, an error count per method, named "memclient_{method}_{stat}".
// Must implement the memclient.Service interface.
type StatsCollectorMiddleware struct {
	next           memclient.Service
	statsCollector stats.ICollector
}

// NewStatsCollectorMiddleware returns a new StatsCollectorMiddleware.
func NewStatsCollectorMiddleware(next memclient.Service, statsCollector stats.ICollector) memclient.Service {
	return &StatsCollectorMiddleware{next: next, statsCollector: statsCollector}
}

// StatsCollector returns the StatsCollectorMiddleware as a memclient.Middleware.
func StatsCollector(collector stats.ICollector) memclient.Middleware {
	return func(next memclient.Service) memclient.Service { return NewStatsCollectorMiddleware(next, collector) }
}

func (mw StatsCollectorMiddleware) collect(method string, start time.Time, err error) {
	prefix := "memclient_" + method

	mw.statsCollector.Timing(stats.Stat(prefix+"_duration"), time.Since(start).Nanoseconds())
	mw.statsCollector.Incr(stats.Stat(prefix+"_count"), 1)

	if err != nil {
		mw.statsCollector.Incr(stats.Stat(prefix+"_"+memerr.KindOf(err).String()+"_errors"), 1)
	}
}

// Namespace returns the namespace of the next service.
func (mw StatsCollectorMiddleware) Namespace() string { return mw.next.Namespace() }

// Put collects stats for the Put method.
func (mw StatsCollectorMiddleware) Put(ctx context.Context, key, value string) (err error) {
	defer func(start time.Time) { mw.collect("put", start, err) }(time.Now())

	return mw.next.Put(ctx, key, value)
}

// Get collects stats for the Get method, plus hit and miss counts.
func (mw StatsCollectorMiddleware) Get(ctx context.Context, key string) (string, bool, error) {
	start := time.Now()
	value, found, err := mw.next.Get(ctx, key)
	mw.collect("get", start, err)

	if err == nil {
		if found {
			mw.statsCollector.Incr("memclient_get_hits", 1)
		} else {
			mw.statsCollector.Incr("memclient_get_misses", 1)
		}
	}

	return value, found, err
}

// Delete collects stats for the Delete method.
func (mw StatsCollectorMiddleware) Delete(ctx context.Context, key string) (deleted bool, err error) {
	defer func(start time.Time) { mw.collect("delete", start, err) }(time.Now())

	return mw.next.Delete(ctx, key)
}

// Exists collects stats for the Exists method.
func (mw StatsCollectorMiddleware) Exists(ctx context.Context, key string) (exists bool, err error) {
	defer func(start time.Time) { mw.collect("exists", start, err) }(time.Now())

	return mw.next.Exists(ctx, key)
}

// Clear collects stats for the Clear method.
func (mw StatsCollectorMiddleware) Clear(ctx context.Context) (err error) {
	defer func(start time.Time) { mw.collect("clear", start, err) }(time.Now())

	return mw.next.Clear(ctx)
}

// PutMany collects stats for the PutMany method, plus the batch size.
func (mw StatsCollectorMiddleware) PutMany(ctx context.Context, items []memclient.Item) (err error) {
	defer func(start time.Time) { mw.collect("put_many", start, err) }(time.Now())

	mw.statsCollector.Histogram("memclient_put_many_size", int64(len(items)))

	return mw.next.PutMany(ctx, items)
}

// DeleteMany collects stats for the DeleteMany method, plus the batch size.
func (mw StatsCollectorMiddleware) DeleteMany(ctx context.Context, keys []string) (err error) {
	defer func(start time.Time) { mw.collect("delete_many", start, err) }(time.Now())

	mw.statsCollector.Histogram("memclient_delete_many_size", int64(len(keys)))

	return mw.next.DeleteMany(ctx, keys)
}

// GetMany collects stats for the GetMany method, plus the batch size.
func (mw StatsCollectorMiddleware) GetMany(ctx context.Context, keys []string) (res map[string]memclient.Lookup, err error) {
	defer func(start time.Time) { mw.collect("get_many", start, err) }(time.Now())

	mw.statsCollector.Histogram("memclient_get_many_size", int64(len(keys)))

	return mw.next.GetMany(ctx, keys)
}

// ListAllKeys collects stats for opening the keys stream.
func (mw StatsCollectorMiddleware) ListAllKeys(ctx context.Context) (s *stream.Stream[string], err error) {
	defer func(start time.Time) { mw.collect("list_all_keys", start, err) }(time.Now())

	return mw.next.ListAllKeys(ctx)
}

// StreamSearch collects stats for opening the search stream.
func (mw StatsCollectorMiddleware) StreamSearch(
	ctx context.Context,
	query string,
	opts ...memclient.SearchOption,
) (s *stream.Stream[memclient.SearchResult], err error) {
	defer func(start time.Time) { mw.collect("stream_search", start, err) }(time.Now())

	return mw.next.StreamSearch(ctx, query, opts...)
}
