package cache

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/Murabei-OpenSource-Codes/pumpwood-djangoauth-sub000/internal/metrics"
	"github.com/Murabei-OpenSource-Codes/pumpwood-djangoauth-sub000/internal/models"
	log "github.com/sirupsen/logrus"
)

// ReadThrough is a JSON typed view of one tag of a Store.
// Store failures are logged and the value is computed directly.
type ReadThrough[T any] struct {
	store Store
	tag   string
	ttl   time.Duration
}

// NewReadThrough binds a typed view over tag with the given ttl.
func NewReadThrough[T any](store Store, tag string, ttl time.Duration) *ReadThrough[T] {
	return &ReadThrough[T]{store: store, tag: tag, ttl: ttl}
}

// Get returns the cached value for key, or computes, stores and returns it.
// Errors from compute are returned as is and never cached. The value is
// stored in the generation observed before computing, so an invalidation
// racing with compute discards it.
func (r *ReadThrough[T]) Get(ctx context.Context, key string, compute func(context.Context) (T, error)) (T, error) {
	gen, cacheable := r.generation(ctx)
	if cacheable {
		if value, ok := r.lookup(ctx, key); ok {
			return value, nil
		}
	}
	value, errCompute := compute(ctx)
	if errCompute != nil {
		return value, errCompute
	}
	if cacheable {
		r.write(ctx, gen, key, value)
	}
	return value, nil
}

func (r *ReadThrough[T]) generation(ctx context.Context) (int64, bool) {
	if r.store == nil {
		return 0, false
	}
	gen, errGen := r.store.Generation(ctx, r.tag)
	if errGen != nil {
		metrics.CacheLookups.WithLabelValues(r.tag, "error").Inc()
		log.WithError(errGen).WithField("cache", r.tag).Warn("cache read failed, computing directly")
		return 0, false
	}
	return gen, true
}

func (r *ReadThrough[T]) lookup(ctx context.Context, key string) (T, bool) {
	var zero T
	raw, ok, errGet := r.store.Get(ctx, r.tag, key)
	if errGet != nil {
		metrics.CacheLookups.WithLabelValues(r.tag, "error").Inc()
		log.WithError(errGet).WithField("cache", r.tag).Warn("cache read failed, computing directly")
		return zero, false
	}
	if !ok {
		metrics.CacheLookups.WithLabelValues(r.tag, "miss").Inc()
		return zero, false
	}
	var value T
	if errDecode := json.Unmarshal(raw, &value); errDecode != nil {
		metrics.CacheLookups.WithLabelValues(r.tag, "error").Inc()
		log.WithError(errDecode).WithField("cache", r.tag).Warn("cache entry undecodable, computing directly")
		return zero, false
	}
	metrics.CacheLookups.WithLabelValues(r.tag, "hit").Inc()
	return value, true
}

func (r *ReadThrough[T]) write(ctx context.Context, gen int64, key string, value T) {
	raw, errEncode := json.Marshal(value)
	if errEncode != nil {
		log.WithError(errEncode).WithField("cache", r.tag).Warn("cache entry not encodable")
		return
	}
	if errSet := r.store.SetAt(ctx, r.tag, gen, key, raw, r.ttl); errSet != nil {
		log.WithError(errSet).WithField("cache", r.tag).Warn("cache write failed")
	}
}

// Forget drops a single key.
func (r *ReadThrough[T]) Forget(ctx context.Context, key string) {
	if r.store == nil {
		return
	}
	if errDel := r.store.Delete(ctx, r.tag, key); errDel != nil {
		log.WithError(errDel).WithField("cache", r.tag).Warn("cache delete failed")
	}
}

// InvalidateEverything drops every namespace of store at once.
func InvalidateEverything(ctx context.Context, store Store) error {
	return store.InvalidateAll(ctx, AllTags...)
}

// PermissionCache caches permission decisions keyed by route prefix, role and user.
type PermissionCache struct {
	rt *ReadThrough[bool]
}

// NewPermissionCache builds a PermissionCache over store.
func NewPermissionCache(store Store, ttl time.Duration) *PermissionCache {
	return &PermissionCache{rt: NewReadThrough[bool](store, TagPermission, ttl)}
}

// PermissionKey is the cache key of one permission decision.
func PermissionKey(routePrefix, role string, userID uint64) string {
	return routePrefix + "|" + role + "|" + strconv.FormatUint(userID, 10)
}

// Resolve returns the cached decision or computes it.
func (c *PermissionCache) Resolve(ctx context.Context, routePrefix, role string, userID uint64, compute func(context.Context) (bool, error)) (bool, error) {
	return c.rt.Get(ctx, PermissionKey(routePrefix, role, userID), compute)
}

// RowCache caches the visible row permission tags of a user.
type RowCache struct {
	rt *ReadThrough[[]uint64]
}

// NewRowCache builds a RowCache over store.
func NewRowCache(store Store, ttl time.Duration) *RowCache {
	return &RowCache{rt: NewReadThrough[[]uint64](store, TagRowPermission, ttl)}
}

// Resolve returns the cached tag ids or computes them.
func (c *RowCache) Resolve(ctx context.Context, userID uint64, compute func(context.Context) ([]uint64, error)) ([]uint64, error) {
	return c.rt.Get(ctx, strconv.FormatUint(userID, 10), compute)
}

// Identity is the cached outcome of a successful token resolution.
type Identity struct {
	UserID        uint64    `json:"user_id"`
	Username      string    `json:"username"`
	Email         string    `json:"email"`
	IsActive      bool      `json:"is_active"`
	IsStaff       bool      `json:"is_staff"`
	IsSuperuser   bool      `json:"is_superuser"`
	IsServiceUser bool      `json:"is_service_user"`
	GroupIDs      []uint64  `json:"group_ids"`
	TokenID       uint64    `json:"token_id"`
	TokenKey      string    `json:"token_key"`
	Expiry        time.Time `json:"expiry"`
}

// NewIdentity snapshots user and token. Groups must be preloaded.
func NewIdentity(user models.User, token models.AuthToken) Identity {
	return Identity{
		UserID:        user.ID,
		Username:      user.Username,
		Email:         user.Email,
		IsActive:      user.IsActive,
		IsStaff:       user.IsStaff,
		IsSuperuser:   user.IsSuperuser,
		IsServiceUser: user.IsServiceUser,
		GroupIDs:      user.GroupIDs(),
		TokenID:       token.ID,
		TokenKey:      token.TokenKey,
		Expiry:        token.Expiry,
	}
}

// User rebuilds the user fields relevant to permission checks.
func (i Identity) User() models.User {
	u := models.User{
		ID:            i.UserID,
		Username:      i.Username,
		Email:         i.Email,
		IsActive:      i.IsActive,
		IsStaff:       i.IsStaff,
		IsSuperuser:   i.IsSuperuser,
		IsServiceUser: i.IsServiceUser,
	}
	for _, id := range i.GroupIDs {
		u.Groups = append(u.Groups, models.Group{ID: id})
	}
	return u
}

// AuthCache caches token digest to identity lookups.
type AuthCache struct {
	rt  *ReadThrough[Identity]
	now func() time.Time
}

// NewAuthCache builds an AuthCache over store.
func NewAuthCache(store Store, ttl time.Duration) *AuthCache {
	return &AuthCache{rt: NewReadThrough[Identity](store, TagAuth, ttl), now: time.Now}
}

// Resolve returns the cached identity of digest or computes it.
// A cached identity whose token already expired is recomputed.
func (c *AuthCache) Resolve(ctx context.Context, digest string, compute func(context.Context) (Identity, error)) (Identity, error) {
	gen, cacheable := c.rt.generation(ctx)
	if cacheable {
		if identity, ok := c.rt.lookup(ctx, digest); ok && c.now().Before(identity.Expiry) {
			return identity, nil
		}
	}
	identity, errCompute := compute(ctx)
	if errCompute != nil {
		return identity, errCompute
	}
	if cacheable {
		c.rt.write(ctx, gen, digest, identity)
	}
	return identity, nil
}

// Forget drops the cached identity of digest.
func (c *AuthCache) Forget(ctx context.Context, digest string) {
	c.rt.Forget(ctx, digest)
}
