package memclient_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/longbridgeapp/assert"

	"github.com/hyp3rd/memclient"
	"github.com/hyp3rd/memclient/pkg/memerr"
	"github.com/hyp3rd/memclient/pkg/memserver"
	"github.com/hyp3rd/memclient/pkg/retry"
)

const e2eAPIKey = "e2e-key"

func startMemServer(t *testing.T) *memserver.Server {
	t.Helper()

	srv := memserver.New("127.0.0.1:0", memserver.NewMemoryStore(), memserver.WithAPIKey(e2eAPIKey))
	assert.Nil(t, srv.Start(context.Background()))

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		_ = srv.Shutdown(ctx)
	})

	return srv
}

func newE2EClient(t *testing.T, srv *memserver.Server, namespace string) *memclient.Client {
	t.Helper()

	cfg := memclient.NewConfig(namespace, srv.BaseURL(), e2eAPIKey)
	cfg.Retries = &retry.Policy{Attempts: 2, Delay: 10 * time.Millisecond}

	c, err := memclient.New(cfg)
	assert.Nil(t, err)

	return c
}

func TestE2E_RoundTrip(t *testing.T) {
	srv := startMemServer(t)
	c := newE2EClient(t, srv, "agents")
	ctx := context.Background()

	for _, value := range []string{"", "plain", "multi-byte ✓ 日本語", "emoji 🚀"} {
		assert.Nil(t, c.Put(ctx, "k", value))

		got, found, err := c.Get(ctx, "k")
		assert.Nil(t, err)
		assert.True(t, found)
		assert.Equal(t, value, got)
	}

	exists, err := c.Exists(ctx, "k")
	assert.Nil(t, err)
	assert.True(t, exists)

	deleted, err := c.Delete(ctx, "k")
	assert.Nil(t, err)
	assert.True(t, deleted)

	// deleting again is still a success
	deleted, err = c.Delete(ctx, "k")
	assert.Nil(t, err)
	assert.True(t, deleted)

	_, found, err := c.Get(ctx, "k")
	assert.Nil(t, err)
	assert.False(t, found)
}

func TestE2E_KeysWithReservedCharacters(t *testing.T) {
	srv := startMemServer(t)
	c := newE2EClient(t, srv, "agents")
	ctx := context.Background()

	assert.Nil(t, c.Put(ctx, "user/42?x#y", "v"))

	got, found, err := c.Get(ctx, "user/42?x#y")
	assert.Nil(t, err)
	assert.True(t, found)
	assert.Equal(t, "v", got)
}

func TestE2E_NamespacesAreIsolated(t *testing.T) {
	srv := startMemServer(t)
	a := newE2EClient(t, srv, "a")
	b := newE2EClient(t, srv, "b")
	ctx := context.Background()

	assert.Nil(t, a.Put(ctx, "k", "from a"))
	assert.Nil(t, a.Clear(ctx))
	assert.Nil(t, b.Put(ctx, "k", "from b"))

	_, found, err := a.Get(ctx, "k")
	assert.Nil(t, err)
	assert.False(t, found)

	got, found, err := b.Get(ctx, "k")
	assert.Nil(t, err)
	assert.True(t, found)
	assert.Equal(t, "from b", got)
}

func TestE2E_Batch(t *testing.T) {
	srv := startMemServer(t)
	c := newE2EClient(t, srv, "agents")
	ctx := context.Background()

	err := c.PutMany(ctx, []memclient.Item{{Key: "a", Value: "1"}, {Key: "b", Value: "2"}, {Key: "c", Value: "3"}})
	assert.Nil(t, err)

	got, err := c.GetMany(ctx, []string{"a", "c", "missing"})
	assert.Nil(t, err)
	assert.Equal(t, 3, len(got))
	assert.Equal(t, memclient.Lookup{Value: "1", Found: true}, got["a"])
	assert.Equal(t, memclient.Lookup{Value: "3", Found: true}, got["c"])
	assert.False(t, got["missing"].Found)

	err = c.DeleteMany(ctx, []string{"a", "missing"})

	var pf *memerr.PartialFailureError

	assert.True(t, errors.As(err, &pf))
	assert.Equal(t, 1, pf.SuccessCount)
	assert.Equal(t, []string{"missing"}, pf.Keys())
	assert.True(t, memerr.IsNotFound(pf.Failures[0].Err))
}

func TestE2E_Streams(t *testing.T) {
	srv := startMemServer(t)
	c := newE2EClient(t, srv, "agents")
	ctx := context.Background()

	err := c.PutMany(ctx, []memclient.Item{
		{Key: "pref:theme", Value: "dark mode, dark editor"},
		{Key: "pref:font", Value: "mono"},
		{Key: "note", Value: "dark chocolate"},
	})
	assert.Nil(t, err)

	s, err := c.ListAllKeys(ctx)
	assert.Nil(t, err)

	keys, err := s.Collect()
	assert.Nil(t, err)
	assert.Equal(t, []string{"note", "pref:font", "pref:theme"}, keys)

	results, err := c.StreamSearch(ctx, "dark")
	assert.Nil(t, err)

	var hits []memclient.SearchResult

	for r, err := range results.All() {
		assert.Nil(t, err)

		hits = append(hits, r)
	}

	assert.Equal(t, 2, len(hits))
	assert.Equal(t, "pref:theme", hits[0].Key)
	assert.Equal(t, "dark mode, dark editor", hits[0].Value)
	assert.Equal(t, "agents", hits[0].Metadata["namespace"])

	limited, err := c.StreamSearch(ctx, "dark", memclient.WithSearchLimit(1))
	assert.Nil(t, err)

	one, err := limited.Collect()
	assert.Nil(t, err)
	assert.Equal(t, 1, len(one))
}

func TestE2E_WrongAPIKey(t *testing.T) {
	srv := startMemServer(t)

	c, err := memclient.New(memclient.NewConfig("agents", srv.BaseURL(), "wrong"))
	assert.Nil(t, err)

	err = c.Put(context.Background(), "k", "v")
	assert.Equal(t, memerr.KindValidation, memerr.KindOf(err))
}

type profile struct {
	Name  string   `codec:"name"  json:"name"  msgpack:"name"`
	Langs []string `codec:"langs" json:"langs" msgpack:"langs"`
}

func TestE2E_Typed(t *testing.T) {
	srv := startMemServer(t)
	c := newE2EClient(t, srv, "agents")
	ctx := context.Background()

	for _, name := range []string{"json", "msgpack", "cbor"} {
		t.Run(name, func(t *testing.T) {
			store, err := memclient.NewTyped[profile](c, name)
			assert.Nil(t, err)

			in := profile{Name: "Ada", Langs: []string{"en", "fr"}}
			assert.Nil(t, store.Put(ctx, "profile:"+name, in))

			out, found, err := store.Get(ctx, "profile:"+name)
			assert.Nil(t, err)
			assert.True(t, found)
			assert.Equal(t, in, out)

			_, found, err = store.Get(ctx, "profile:none")
			assert.Nil(t, err)
			assert.False(t, found)
		})
	}
}

func TestNewTyped_Errors(t *testing.T) {
	_, err := memclient.NewTyped[profile](nil, "json")
	assert.True(t, err != nil)

	srv := startMemServer(t)

	_, err = memclient.NewTyped[profile](newE2EClient(t, srv, "agents"), "xml")
	assert.True(t, err != nil)
}
