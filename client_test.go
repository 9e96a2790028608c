package memclient

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/longbridgeapp/assert"

	"github.com/hyp3rd/memclient/internal/sentinel"
	"github.com/hyp3rd/memclient/pkg/batch"
	"github.com/hyp3rd/memclient/pkg/memerr"
	"github.com/hyp3rd/memclient/pkg/retry"
)

const testAPIKey = "test-key"

func newTestClient(t *testing.T, handler http.HandlerFunc, opts ...Option) *Client {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := New(NewConfig("agents", srv.URL, testAPIKey), opts...)
	assert.Nil(t, err)

	return c
}

func TestClient_PutRequestShape(t *testing.T) {
	var (
		header http.Header
		method string
		path   string
		rec    memoryRecord
	)

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		header = r.Header.Clone()
		method = r.Method
		path = r.URL.Path

		_ = json.NewDecoder(r.Body).Decode(&rec)

		w.WriteHeader(http.StatusCreated)
	})

	err := c.Put(context.Background(), "user:42", "héllo ✓")
	assert.Nil(t, err)

	assert.Equal(t, http.MethodPost, method)
	assert.Equal(t, "/api/v1/memories", path)
	assert.Equal(t, "Bearer "+testAPIKey, header.Get("Authorization"))
	assert.Equal(t, "application/json", header.Get("Content-Type"))
	assert.True(t, header.Get("X-Request-Id") != "")
	assert.Equal(t, "user:42", rec.ID)
	assert.Equal(t, "agents", rec.Namespace)
	assert.Equal(t, "aMOpbGxvIOKckw==", rec.Value)
}

func TestClient_GetDecodesValue(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/memories/a/b", r.URL.Path)
		assert.Equal(t, "/api/v1/memories/a%2Fb", r.URL.EscapedPath())
		assert.Equal(t, "agents", r.URL.Query().Get("namespace"))

		_, _ = w.Write([]byte(`{"id":"a/b","value":"aGk=","namespace":"agents"}`))
	})

	value, found, err := c.Get(context.Background(), "a/b")
	assert.Nil(t, err)
	assert.True(t, found)
	assert.Equal(t, "hi", value)
}

func TestClient_NotFoundSemantics(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	ctx := context.Background()

	value, found, err := c.Get(ctx, "missing")
	assert.Nil(t, err)
	assert.False(t, found)
	assert.Equal(t, "", value)

	deleted, err := c.Delete(ctx, "missing")
	assert.Nil(t, err)
	assert.True(t, deleted)

	exists, err := c.Exists(ctx, "missing")
	assert.Nil(t, err)
	assert.False(t, exists)

	// clear carries no key context, so a 404 is not recovered
	err = c.Clear(ctx)
	assert.Equal(t, memerr.KindValidation, memerr.KindOf(err))
}

func TestClient_EmptyKeyRejectedLocally(t *testing.T) {
	var calls atomic.Int32

	c := newTestClient(t, func(http.ResponseWriter, *http.Request) { calls.Add(1) })

	ctx := context.Background()

	err := c.Put(ctx, "", "v")
	assert.Equal(t, memerr.KindValidation, memerr.KindOf(err))
	assert.True(t, errors.Is(err, sentinel.ErrInvalidKey))

	_, _, err = c.Get(ctx, "  ")
	assert.Equal(t, memerr.KindValidation, memerr.KindOf(err))

	_, err = c.Delete(ctx, "")
	assert.Equal(t, memerr.KindValidation, memerr.KindOf(err))

	_, err = c.Exists(ctx, "")
	assert.Equal(t, memerr.KindValidation, memerr.KindOf(err))

	assert.Equal(t, int32(0), calls.Load())
}

func TestClient_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32

	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}, WithRetryPolicy(&retry.Policy{Attempts: 3, Delay: 10 * time.Millisecond}))

	err := c.Put(context.Background(), "k", "v")

	var serverErr *memerr.ServerError

	assert.True(t, errors.As(err, &serverErr))
	assert.Equal(t, http.StatusInternalServerError, serverErr.Status)
	assert.Equal(t, int32(3), calls.Load())
}

func TestClient_RetryWaitsAndKeepsRequestID(t *testing.T) {
	var (
		mu    sync.Mutex
		times []time.Time
		ids   []string
	)

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()

		times = append(times, time.Now())
		ids = append(ids, r.Header.Get("X-Request-Id"))

		if len(times) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)

			return
		}

		w.WriteHeader(http.StatusOK)
	}, WithRetryPolicy(&retry.Policy{Attempts: 2, Delay: 100 * time.Millisecond}))

	err := c.Put(context.Background(), "k", "v")
	assert.Nil(t, err)

	mu.Lock()
	defer mu.Unlock()

	assert.Equal(t, 2, len(times))
	assert.True(t, times[1].Sub(times[0]) >= 100*time.Millisecond)
	assert.Equal(t, ids[0], ids[1])
}

func TestClient_UnauthorizedNotRetried(t *testing.T) {
	var calls atomic.Int32

	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}, WithRetryPolicy(&retry.Policy{Attempts: 5, Delay: 10 * time.Millisecond}))

	_, _, err := c.Get(context.Background(), "k")
	assert.Equal(t, memerr.KindValidation, memerr.KindOf(err))
	assert.Equal(t, int32(1), calls.Load())
}

func TestClient_RateLimited(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Retry-After", "2")
		w.WriteHeader(http.StatusTooManyRequests)
	})

	err := c.Put(context.Background(), "k", "v")

	var rl *memerr.RateLimitedError

	assert.True(t, errors.As(err, &rl))
	assert.True(t, rl.HasRetryAfter)
	assert.Equal(t, 2*time.Second, rl.RetryAfter)
}

func TestClient_NetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	c, err := New(NewConfig("agents", url, testAPIKey))
	assert.Nil(t, err)

	err = c.Put(context.Background(), "k", "v")
	assert.Equal(t, memerr.KindNetwork, memerr.KindOf(err))
}

func TestClient_TimeoutIsNetwork(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(300 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}, WithTimeout(50*time.Millisecond))

	err := c.Put(context.Background(), "k", "v")
	assert.Equal(t, memerr.KindNetwork, memerr.KindOf(err))
}

func TestClient_PutManyReportsUnprocessed(t *testing.T) {
	var got []batch.WriteItem

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/memories/batch", r.URL.Path)

		_ = json.NewDecoder(r.Body).Decode(&got)
		_, _ = w.Write([]byte(`{"results":[{"id":"a","status":200},{"id":"c","status":400,"error":"too large"}]}`))
	})

	err := c.PutMany(context.Background(), []Item{{Key: "a", Value: "1"}, {Key: "b", Value: "2"}, {Key: "c", Value: "3"}})

	var pf *memerr.PartialFailureError

	assert.True(t, errors.As(err, &pf))
	assert.Equal(t, 1, pf.SuccessCount)
	assert.Equal(t, []string{"b", "c"}, pf.Keys())
	assert.True(t, batch.IsNotProcessed(pf.Failures[0].Err))
	assert.Equal(t, memerr.KindValidation, pf.Failures[1].Err.Kind())

	assert.Equal(t, 3, len(got))
	assert.Equal(t, "MQ==", got[0].Value)
	assert.Equal(t, "agents", got[0].Namespace)
}

func TestClient_DeleteManyMissingKey(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)

		_, _ = w.Write([]byte(`{"results":[{"id":"a","status":200},{"id":"b","status":404,"error":"not found"}]}`))
	})

	err := c.DeleteMany(context.Background(), []string{"a", "b"})

	var pf *memerr.PartialFailureError

	assert.True(t, errors.As(err, &pf))
	assert.Equal(t, []string{"b"}, pf.Keys())
	assert.Equal(t, memerr.KindNotFound, pf.Failures[0].Err.Kind())
}

func TestClient_GetManyReturnsEveryKey(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/memories/batchGet", r.URL.Path)

		_, _ = w.Write([]byte(`{"results":[{"id":"a","status":200,"value":"eA=="},{"id":"b","status":404,"error":"not found"}]}`))
	})

	got, err := c.GetMany(context.Background(), []string{"a", "b", "c"})
	assert.Nil(t, err)
	assert.Equal(t, 3, len(got))
	assert.Equal(t, Lookup{Value: "x", Found: true}, got["a"])
	assert.False(t, got["b"].Found)
	assert.False(t, got["c"].Found)
}

func TestClient_GetManyReportsItemFailures(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"results":[{"id":"a","status":200,"value":"eA=="},{"id":"b","status":500,"error":"boom"},{"id":"c","status":200,"value":"%%"}]}`))
	})

	got, err := c.GetMany(context.Background(), []string{"a", "b", "c"})
	assert.Equal(t, 3, len(got))
	assert.True(t, got["a"].Found)

	var pf *memerr.PartialFailureError

	assert.True(t, errors.As(err, &pf))
	assert.Equal(t, 1, pf.SuccessCount)
	assert.Equal(t, []string{"b", "c"}, pf.Keys())
}

func TestClient_GetManyDecodeFailureOnly(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"results":[{"id":"a","status":200,"value":"eA=="},{"id":"c","status":200,"value":"%%"}]}`))
	})

	got, err := c.GetMany(context.Background(), []string{"a", "c"})
	assert.Equal(t, Lookup{Value: "x", Found: true}, got["a"])
	assert.False(t, got["c"].Found)

	var pf *memerr.PartialFailureError

	assert.True(t, errors.As(err, &pf))
	assert.Equal(t, 1, pf.SuccessCount)
	assert.Equal(t, []string{"c"}, pf.Keys())
	assert.Equal(t, memerr.KindValidation, pf.Failures[0].Err.Kind())
}

func TestClient_BatchRequestFailure(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	err := c.PutMany(context.Background(), []Item{{Key: "a", Value: "1"}})
	assert.Equal(t, memerr.KindServer, memerr.KindOf(err))

	_, err = c.GetMany(context.Background(), []string{"a"})
	assert.Equal(t, memerr.KindServer, memerr.KindOf(err))
}

func TestClient_ListAllKeys(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/keys/agents", r.URL.Path)
		assert.Equal(t, "application/x-ndjson", r.Header.Get("Accept"))

		_, _ = io.WriteString(w, "{\"key\":\"a\"}\n\n{\"key\":\"b\"}\n{\"key\":\"c\"}")
	}, WithStreamChunkSize(5))

	s, err := c.ListAllKeys(context.Background())
	assert.Nil(t, err)

	keys, err := s.Collect()
	assert.Nil(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, keys)
}

func TestClient_ListAllKeysEarlyBreak(t *testing.T) {
	release := make(chan struct{})

	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		flusher, _ := w.(http.Flusher)

		for i := range 3 {
			_, _ = io.WriteString(w, `{"key":"k`+string(rune('0'+i))+"\"}\n")
		}

		flusher.Flush()

		// hold the stream open; only an early close by the client ends the test promptly
		select {
		case <-release:
		case <-time.After(5 * time.Second):
		}
	})
	t.Cleanup(func() { close(release) })

	s, err := c.ListAllKeys(context.Background())
	assert.Nil(t, err)

	start := time.Now()

	var got []string

	for key, err := range s.All() {
		assert.Nil(t, err)

		got = append(got, key)
		if len(got) == 2 {
			break
		}
	}

	assert.Equal(t, []string{"k0", "k1"}, got)
	assert.True(t, time.Since(start) < time.Second)
}

func TestClient_StreamInitialFailure(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	s, err := c.ListAllKeys(context.Background())
	assert.True(t, s == nil)
	assert.Equal(t, memerr.KindServer, memerr.KindOf(err))
}

func TestClient_StreamSearch(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/search/agents/stream", r.URL.Path)
		assert.Equal(t, "dark mode", r.URL.Query().Get("q"))
		assert.Equal(t, "2", r.URL.Query().Get("limit"))

		_, _ = io.WriteString(w, `{"id":"a","value":"ZGFyaw==","score":0.9,"metadata":{"source":"chat"}}`+"\n")
		_, _ = io.WriteString(w, `{"id":"b","value":"bm90IGJhc2U2NA!!","score":0.1}`+"\n")
	})

	s, err := c.StreamSearch(context.Background(), "dark mode", WithSearchLimit(2))
	assert.Nil(t, err)

	results, err := s.Collect()
	assert.Equal(t, 1, len(results))
	assert.Equal(t, "a", results[0].Key)
	assert.Equal(t, "dark", results[0].Value)
	assert.Equal(t, 0.9, results[0].Score)
	assert.Equal(t, "chat", results[0].Metadata["source"])

	var streamErr *memerr.StreamError

	assert.True(t, errors.As(err, &streamErr))
	assert.Equal(t, 2, streamErr.Line)
}

func TestClient_StreamSearchEmptyQuery(t *testing.T) {
	var calls atomic.Int32

	c := newTestClient(t, func(http.ResponseWriter, *http.Request) { calls.Add(1) })

	_, err := c.StreamSearch(context.Background(), " ")
	assert.Equal(t, memerr.KindValidation, memerr.KindOf(err))
	assert.Equal(t, int32(0), calls.Load())
}

type recordingLogger struct {
	mu    sync.Mutex
	lines int
}

func (l *recordingLogger) Printf(string, ...any) {
	l.mu.Lock()
	l.lines++
	l.mu.Unlock()
}

func TestClient_LogsRetries(t *testing.T) {
	logger := &recordingLogger{}

	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}, WithRetryPolicy(&retry.Policy{Attempts: 3}), WithLogger(logger))

	_ = c.Put(context.Background(), "k", "v")

	logger.mu.Lock()
	defer logger.mu.Unlock()

	assert.Equal(t, 2, logger.lines)
}

func TestNew_Validation(t *testing.T) {
	_, err := New(nil)
	assert.True(t, errors.Is(err, sentinel.ErrParamCannotBeEmpty))

	_, err = New(NewConfig("", "http://localhost", "k"))
	assert.True(t, errors.Is(err, sentinel.ErrParamCannotBeEmpty))

	_, err = New(NewConfig("ns", "localhost", "k"))
	assert.True(t, errors.Is(err, sentinel.ErrInvalidBaseURL))

	_, err = New(NewConfig("ns", "http://localhost", "k"), WithRetryPolicy(&retry.Policy{Attempts: 0}))
	assert.True(t, errors.Is(err, sentinel.ErrInvalidRetryPolicy))
}
