package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore is a Store shared by every replica of the service.
//
// Each tag owns a generation counter. Data keys embed the current
// generation, so bumping the counter orphans every entry of the tag at once
// and redis expires them on their own TTL.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisStore wraps client. Keys are namespaced by prefix.
func NewRedisStore(client redis.UniversalClient, prefix string) *RedisStore {
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) generationKey(tag string) string {
	return s.prefix + ":" + tag + ":generation"
}

func (s *RedisStore) dataKey(tag string, generation int64, key string) string {
	return s.prefix + ":" + tag + ":" + strconv.FormatInt(generation, 10) + ":" + key
}

func (s *RedisStore) generation(ctx context.Context, tag string) (int64, error) {
	gen, errGet := s.client.Get(ctx, s.generationKey(tag)).Int64()
	if errors.Is(errGet, redis.Nil) {
		return 0, nil
	}
	if errGet != nil {
		return 0, fmt.Errorf("cache: read generation of %s: %w", tag, errGet)
	}
	return gen, nil
}

// Get implements Store.
func (s *RedisStore) Get(ctx context.Context, tag, key string) ([]byte, bool, error) {
	gen, errGen := s.generation(ctx, tag)
	if errGen != nil {
		return nil, false, errGen
	}
	value, errGet := s.client.Get(ctx, s.dataKey(tag, gen, key)).Bytes()
	if errors.Is(errGet, redis.Nil) {
		return nil, false, nil
	}
	if errGet != nil {
		return nil, false, fmt.Errorf("cache: get %s/%s: %w", tag, key, errGet)
	}
	return value, true, nil
}

// Set implements Store.
func (s *RedisStore) Set(ctx context.Context, tag, key string, value []byte, ttl time.Duration) error {
	gen, errGen := s.generation(ctx, tag)
	if errGen != nil {
		return errGen
	}
	return s.SetAt(ctx, tag, gen, key, value, ttl)
}

// Generation implements Store.
func (s *RedisStore) Generation(ctx context.Context, tag string) (int64, error) {
	return s.generation(ctx, tag)
}

// SetAt implements Store. A stale generation writes into an orphaned
// namespace that readers never consult.
func (s *RedisStore) SetAt(ctx context.Context, tag string, generation int64, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	if errSet := s.client.Set(ctx, s.dataKey(tag, generation, key), value, ttl).Err(); errSet != nil {
		return fmt.Errorf("cache: set %s/%s: %w", tag, key, errSet)
	}
	return nil
}

// Delete implements Store.
func (s *RedisStore) Delete(ctx context.Context, tag, key string) error {
	gen, errGen := s.generation(ctx, tag)
	if errGen != nil {
		return errGen
	}
	if errDel := s.client.Del(ctx, s.dataKey(tag, gen, key)).Err(); errDel != nil {
		return fmt.Errorf("cache: delete %s/%s: %w", tag, key, errDel)
	}
	return nil
}

// InvalidateAll bumps the generation of every tag inside one MULTI/EXEC.
func (s *RedisStore) InvalidateAll(ctx context.Context, tags ...string) error {
	if len(tags) == 0 {
		return nil
	}
	_, errExec := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, tag := range tags {
			pipe.Incr(ctx, s.generationKey(tag))
		}
		return nil
	})
	if errExec != nil {
		return fmt.Errorf("cache: invalidate %v: %w", tags, errExec)
	}
	return nil
}

// Close closes the redis client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
