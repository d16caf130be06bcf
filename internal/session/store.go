package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// maxUpdateRetries bounds optimistic-lock retries in RedisStore.Update.
const maxUpdateRetries = 16

// Store is the key-value contract the session service depends on. Keys are
// already derived; values are opaque bytes. Expiry is enforced by the store.
type Store interface {
	// Set writes value under key with the given TTL, replacing any prior value.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Get returns the value under key, or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// Touch returns the value under key and resets its TTL in one step,
	// or ErrNotFound.
	Touch(ctx context.Context, key string, ttl time.Duration) ([]byte, error)

	// Update applies fn to the current value (nil when absent) and writes
	// the result with ttl. Concurrent writers to the same key are detected
	// and fn is re-run against the fresh value.
	Update(ctx context.Context, key string, ttl time.Duration, fn func(current []byte) ([]byte, error)) error

	// Delete removes keys. Missing keys are ignored.
	Delete(ctx context.Context, keys ...string) error

	// Ping reports whether the store is reachable.
	Ping(ctx context.Context) error
}

// RedisStore implements Store on a go-redis client.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore wraps an already-connected Redis client.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// Set writes value with ttl.
func (s *RedisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := s.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Get reads a value.
func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get: %w", err)
	}
	return data, nil
}

// Touch reads a value and slides its TTL with GETEX.
func (s *RedisStore) Touch(ctx context.Context, key string, ttl time.Duration) ([]byte, error) {
	data, err := s.client.GetEx(ctx, key, ttl).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis getex: %w", err)
	}
	return data, nil
}

// Update performs a WATCH/MULTI read-modify-write on key.
func (s *RedisStore) Update(ctx context.Context, key string, ttl time.Duration, fn func(current []byte) ([]byte, error)) error {
	txf := func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			current = nil
		} else if err != nil {
			return fmt.Errorf("redis get: %w", err)
		}

		next, err := fn(current)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, next, ttl)
			return nil
		})
		return err
	}

	for range maxUpdateRetries {
		err := s.client.Watch(ctx, txf, key)
		if err == nil {
			return nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return fmt.Errorf("redis watch: %w", err)
	}
	return ErrIndexContention
}

// Delete removes keys in a single DEL.
func (s *RedisStore) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

// Ping checks connectivity.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
