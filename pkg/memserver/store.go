package memserver

import (
	"context"
	"slices"
	"sync"

	"github.com/cespare/xxhash/v2"
)

// Store persists the wire form of memories, partitioned by namespace.
// Values are kept exactly as received (base64 text).
type Store interface {
	Put(ctx context.Context, namespace, key, value string) error
	Get(ctx context.Context, namespace, key string) (string, bool, error)
	// Delete reports whether the key existed.
	Delete(ctx context.Context, namespace, key string) (bool, error)
	Clear(ctx context.Context, namespace string) error
	// Keys returns the keys of namespace in ascending order.
	Keys(ctx context.Context, namespace string) ([]string, error)
}

const (
	// ShardCount is the number of shards of a MemoryStore. Must be a power of two.
	ShardCount = 32
	// ShardCount64 is ShardCount pre-casted for the shard mask.
	ShardCount64 uint64 = uint64(ShardCount)
)

type storeKey struct {
	namespace string
	key       string
}

type memoryShard struct {
	sync.RWMutex

	items map[storeKey]string
}

// MemoryStore is a Store held in process memory, divided into ShardCount shards to
// reduce lock contention.
type MemoryStore struct {
	shards []*memoryShard
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	shards := make([]*memoryShard, ShardCount)
	for i := range ShardCount {
		shards[i] = &memoryShard{items: make(map[storeKey]string)}
	}

	return &MemoryStore{shards: shards}
}

// shardFor hashes the namespaced key with xxhash.
func (m *MemoryStore) shardFor(k storeKey) *memoryShard {
	sum := xxhash.Sum64String(k.namespace + "\x00" + k.key)

	return m.shards[sum&(ShardCount64-1)]
}

// Put stores value under key.
func (m *MemoryStore) Put(_ context.Context, namespace, key, value string) error {
	k := storeKey{namespace: namespace, key: key}
	shard := m.shardFor(k)

	shard.Lock()
	shard.items[k] = value
	shard.Unlock()

	return nil
}

// Get returns the value stored under key.
func (m *MemoryStore) Get(_ context.Context, namespace, key string) (string, bool, error) {
	k := storeKey{namespace: namespace, key: key}
	shard := m.shardFor(k)

	shard.RLock()
	value, ok := shard.items[k]
	shard.RUnlock()

	return value, ok, nil
}

// Delete removes key.
func (m *MemoryStore) Delete(_ context.Context, namespace, key string) (bool, error) {
	k := storeKey{namespace: namespace, key: key}
	shard := m.shardFor(k)

	shard.Lock()

	_, ok := shard.items[k]
	delete(shard.items, k)
	shard.Unlock()

	return ok, nil
}

// Clear removes every key of namespace.
func (m *MemoryStore) Clear(_ context.Context, namespace string) error {
	for _, shard := range m.shards {
		shard.Lock()

		for k := range shard.items {
			if k.namespace == namespace {
				delete(shard.items, k)
			}
		}

		shard.Unlock()
	}

	return nil
}

// Keys returns the sorted keys of namespace.
func (m *MemoryStore) Keys(_ context.Context, namespace string) ([]string, error) {
	var keys []string

	for _, shard := range m.shards {
		shard.RLock()

		for k := range shard.items {
			if k.namespace == namespace {
				keys = append(keys, k.key)
			}
		}

		shard.RUnlock()
	}

	slices.Sort(keys)

	return keys, nil
}
