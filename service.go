package memclient

import (
	"context"

	"github.com/hyp3rd/memclient/pkg/stream"
)

// Service is the interface of the remote memory store client.
// It enables middleware to be added to the client.
type Service interface {
	crud
	batchOps
	streaming
	// Namespace returns the namespace every operation is scoped to
	Namespace() string
}

type crud interface {
	// Put creates or replaces the value stored under key
	Put(ctx context.Context, key, value string) error
	// Get retrieves the value stored under key; found is false when the key does not exist
	Get(ctx context.Context, key string) (value string, found bool, err error)
	// Delete removes key; it reports true whether or not the key existed
	Delete(ctx context.Context, key string) (bool, error)
	// Exists reports whether key is stored
	Exists(ctx context.Context, key string) (bool, error)
	// Clear removes every key of the namespace
	Clear(ctx context.Context) error
}

type batchOps interface {
	// PutMany stores every item in one request; a partial failure is a *memerr.PartialFailureError
	PutMany(ctx context.Context, items []Item) error
	// DeleteMany removes every key in one request; a partial failure is a *memerr.PartialFailureError
	DeleteMany(ctx context.Context, keys []string) error
	// GetMany retrieves every key in one request; the result has exactly one entry per requested key
	GetMany(ctx context.Context, keys []string) (map[string]Lookup, error)
}

type streaming interface {
	// ListAllKeys streams every key of the namespace
	ListAllKeys(ctx context.Context) (*stream.Stream[string], error)
	// StreamSearch streams the search results matching query
	StreamSearch(ctx context.Context, query string, opts ...SearchOption) (*stream.Stream[SearchResult], error)
}

// Middleware describes a service middleware.
type Middleware func(Service) Service

// ApplyMiddleware applies middlewares to a service.
func ApplyMiddleware(svc Service, mw ...Middleware) Service {
	// Apply each middleware in the chain
	for _, m := range mw {
		svc = m(svc)
	}
	// Return the decorated service
	return svc
}
