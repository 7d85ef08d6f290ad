// Package cache holds the TTL stores behind the auth, permission and row
// permission caches.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/Murabei-OpenSource-Codes/pumpwood-djangoauth-sub000/internal/config"
	"github.com/redis/go-redis/v9"
)

// Cache namespaces. Invalidation always targets whole namespaces.
const (
	TagAuth          = "auth"
	TagPermission    = "permission"
	TagRowPermission = "row_permission"
)

// AllTags lists every namespace used by the service.
var AllTags = []string{TagAuth, TagPermission, TagRowPermission}

// Store is a TTL key/value store partitioned by tag.
type Store interface {
	// Get returns the value stored under tag/key. Expired entries are reported missing.
	Get(ctx context.Context, tag, key string) ([]byte, bool, error)
	// Set stores value under tag/key for ttl.
	Set(ctx context.Context, tag, key string, value []byte, ttl time.Duration) error
	// Generation returns the invalidation counter of tag.
	Generation(ctx context.Context, tag string) (int64, error)
	// SetAt stores value only in the given generation of tag. A write whose
	// generation was invalidated meanwhile is never visible to readers.
	SetAt(ctx context.Context, tag string, generation int64, key string, value []byte, ttl time.Duration) error
	// Delete removes a single entry.
	Delete(ctx context.Context, tag, key string) error
	// InvalidateAll drops every entry of the given tags in one step.
	InvalidateAll(ctx context.Context, tags ...string) error
	// Close releases background resources.
	Close() error
}

// Open builds the store selected by cfg.Backend.
func Open(cfg config.CacheConfig) (Store, error) {
	switch cfg.Backend {
	case "", "memory":
		return NewMemoryStore(time.Minute), nil
	case "redis":
		opts, errParse := redis.ParseURL(cfg.RedisURL)
		if errParse != nil {
			return nil, fmt.Errorf("cache: parse redis url: %w", errParse)
		}
		return NewRedisStore(redis.NewClient(opts), "pumpwood-auth"), nil
	default:
		return nil, fmt.Errorf("cache: unsupported backend %q", cfg.Backend)
	}
}
