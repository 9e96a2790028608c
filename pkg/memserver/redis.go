package memserver

import (
	"context"
	"errors"
	"slices"

	"github.com/hyp3rd/ewrap"
	"github.com/redis/go-redis/v9"

	"github.com/hyp3rd/memclient/internal/sentinel"
)

const defaultRedisPrefix = "memclient"

// RedisStore keeps each namespace in one Redis hash named "{prefix}:{namespace}".
type RedisStore struct {
	rdb    redis.UniversalClient
	prefix string
}

// RedisOption configures a RedisStore.
type RedisOption func(*RedisStore)

// WithKeyPrefix sets the prefix of the namespace hashes.
func WithKeyPrefix(prefix string) RedisOption {
	return func(s *RedisStore) {
		if prefix != "" {
			s.prefix = prefix
		}
	}
}

// NewRedisStore creates a RedisStore over rdb.
func NewRedisStore(rdb redis.UniversalClient, opts ...RedisOption) (*RedisStore, error) {
	if rdb == nil {
		return nil, sentinel.ErrNilClient
	}

	s := &RedisStore{rdb: rdb, prefix: defaultRedisPrefix}
	for _, opt := range opts {
		opt(s)
	}

	return s, nil
}

func (s *RedisStore) hash(namespace string) string { return s.prefix + ":" + namespace }

// Put stores value under key.
func (s *RedisStore) Put(ctx context.Context, namespace, key, value string) error {
	err := s.rdb.HSet(ctx, s.hash(namespace), key, value).Err()
	if err != nil {
		return ewrap.Wrap(err, "failed to set memory in redis")
	}

	return nil
}

// Get returns the value stored under key.
func (s *RedisStore) Get(ctx context.Context, namespace, key string) (string, bool, error) {
	value, err := s.rdb.HGet(ctx, s.hash(namespace), key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}

		return "", false, ewrap.Wrap(err, "failed to get memory from redis")
	}

	return value, true, nil
}

// Delete removes key.
func (s *RedisStore) Delete(ctx context.Context, namespace, key string) (bool, error) {
	n, err := s.rdb.HDel(ctx, s.hash(namespace), key).Result()
	if err != nil {
		return false, ewrap.Wrap(err, "failed to delete memory from redis")
	}

	return n > 0, nil
}

// Clear removes the namespace hash.
func (s *RedisStore) Clear(ctx context.Context, namespace string) error {
	err := s.rdb.Del(ctx, s.hash(namespace)).Err()
	if err != nil {
		return ewrap.Wrap(err, "failed to clear namespace in redis")
	}

	return nil
}

// Keys returns the sorted keys of namespace.
func (s *RedisStore) Keys(ctx context.Context, namespace string) ([]string, error) {
	keys, err := s.rdb.HKeys(ctx, s.hash(namespace)).Result()
	if err != nil {
		return nil, ewrap.Wrap(err, "failed to list keys from redis")
	}

	slices.Sort(keys)

	return keys, nil
}

// PutMany stores every pair in one pipeline. Failed commands are collected per key.
func (s *RedisStore) PutMany(ctx context.Context, namespace string, pairs map[string]string) error {
	cmds, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for key, value := range pairs {
			pipe.HSet(ctx, s.hash(namespace), key, value)
		}

		return nil
	})

	eg := ewrap.NewErrorGroup()

	for _, cmd := range cmds {
		if cmd.Err() != nil {
			eg.Add(ewrap.Wrap(cmd.Err(), "pipelined hset"))
		}
	}

	if err != nil && eg.ErrorOrNil() == nil {
		eg.Add(ewrap.Wrap(err, "failed to execute redis pipeline"))
	}

	return eg.ErrorOrNil()
}
