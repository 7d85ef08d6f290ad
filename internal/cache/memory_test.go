package cache

import (
	"context"
	"errors"
	"testing"
	"time"
)

type fakeClock struct{ t time.Time }

func (f *fakeClock) now() time.Time { return f.t }

func newTestStore(t *testing.T) (*MemoryStore, *fakeClock) {
	t.Helper()
	clock := &fakeClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	s := NewMemoryStore(time.Hour)
	s.now = clock.now
	t.Cleanup(func() { _ = s.Close() })
	return s, clock
}

func TestMemoryStoreRoundTripAndExpiry(t *testing.T) {
	ctx := context.Background()
	s, clock := newTestStore(t)

	if err := s.Set(ctx, TagPermission, "k", []byte("v"), 30*time.Second); err != nil {
		t.Fatalf("set: %v", err)
	}
	got, ok, err := s.Get(ctx, TagPermission, "k")
	if err != nil || !ok || string(got) != "v" {
		t.Fatalf("expected v, got %q ok=%v err=%v", got, ok, err)
	}

	clock.t = clock.t.Add(30 * time.Second)
	if _, ok, _ := s.Get(ctx, TagPermission, "k"); ok {
		t.Fatalf("expected entry to be absent once ttl elapsed")
	}
}

func TestMemoryStoreInvalidateAllIsPerTag(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	_ = s.Set(ctx, TagPermission, "k", []byte("p"), time.Minute)
	_ = s.Set(ctx, TagAuth, "k", []byte("a"), time.Minute)

	if err := s.InvalidateAll(ctx, TagPermission); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	if _, ok, _ := s.Get(ctx, TagPermission, "k"); ok {
		t.Fatalf("expected permission entry to be dropped")
	}
	if _, ok, _ := s.Get(ctx, TagAuth, "k"); !ok {
		t.Fatalf("expected auth entry to survive")
	}

	if err := InvalidateEverything(ctx, s); err != nil {
		t.Fatalf("invalidate everything: %v", err)
	}
	if _, ok, _ := s.Get(ctx, TagAuth, "k"); ok {
		t.Fatalf("expected auth entry to be dropped")
	}
}

func TestMemoryStoreReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	buf := []byte("abc")
	_ = s.Set(ctx, TagAuth, "k", buf, time.Minute)
	buf[0] = 'x'
	got, _, _ := s.Get(ctx, TagAuth, "k")
	if string(got) != "abc" {
		t.Fatalf("expected stored value to be isolated from caller buffer, got %q", got)
	}
}

type failingStore struct{}

func (failingStore) Get(context.Context, string, string) ([]byte, bool, error) {
	return nil, false, errors.New("connection refused")
}
func (failingStore) Set(context.Context, string, string, []byte, time.Duration) error {
	return errors.New("connection refused")
}
func (failingStore) Generation(context.Context, string) (int64, error) {
	return 0, errors.New("connection refused")
}
func (failingStore) SetAt(context.Context, string, int64, string, []byte, time.Duration) error {
	return errors.New("connection refused")
}
func (failingStore) Delete(context.Context, string, string) error { return nil }
func (failingStore) InvalidateAll(context.Context, ...string) error { return nil }
func (failingStore) Close() error { return nil }

func TestPermissionCacheIsReadThrough(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)
	c := NewPermissionCache(s, time.Minute)

	calls := 0
	compute := func(context.Context) (bool, error) {
		calls++
		return true, nil
	}
	for i := 0; i < 3; i++ {
		allowed, err := c.Resolve(ctx, "/rest/user/", "can_list", 7, compute)
		if err != nil || !allowed {
			t.Fatalf("expected allowed, got %v err=%v", allowed, err)
		}
	}
	if calls != 1 {
		t.Fatalf("expected a single computation, got %d", calls)
	}

	_ = InvalidateEverything(ctx, s)
	_, _ = c.Resolve(ctx, "/rest/user/", "can_list", 7, compute)
	if calls != 2 {
		t.Fatalf("expected recomputation after invalidation, got %d", calls)
	}
}

func TestMemoryStoreSetAtDropsStaleGeneration(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	gen, err := s.Generation(ctx, TagPermission)
	if err != nil {
		t.Fatalf("generation: %v", err)
	}
	if err := s.InvalidateAll(ctx, TagPermission); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	if err := s.SetAt(ctx, TagPermission, gen, "k", []byte("stale"), time.Minute); err != nil {
		t.Fatalf("set at: %v", err)
	}
	if _, ok, _ := s.Get(ctx, TagPermission, "k"); ok {
		t.Fatalf("expected write from an invalidated generation to be dropped")
	}

	current, _ := s.Generation(ctx, TagPermission)
	if current != gen+1 {
		t.Fatalf("expected generation %d, got %d", gen+1, current)
	}
	_ = s.SetAt(ctx, TagPermission, current, "k", []byte("fresh"), time.Minute)
	if got, ok, _ := s.Get(ctx, TagPermission, "k"); !ok || string(got) != "fresh" {
		t.Fatalf("expected fresh entry, got %q ok=%v", got, ok)
	}
}

func TestPermissionCacheDiscardsDecisionRacingClearCache(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)
	c := NewPermissionCache(s, time.Minute)

	allowed, err := c.Resolve(ctx, "/rest/user/", "can_list", 7, func(ctx context.Context) (bool, error) {
		if errClear := InvalidateEverything(ctx, s); errClear != nil {
			t.Fatalf("invalidate: %v", errClear)
		}
		return true, nil
	})
	if err != nil || !allowed {
		t.Fatalf("expected first decision to be returned, got %v err=%v", allowed, err)
	}

	allowed, err = c.Resolve(ctx, "/rest/user/", "can_list", 7, func(context.Context) (bool, error) {
		return false, nil
	})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if allowed {
		t.Fatalf("expected decision computed before clear-cache not to be served afterwards")
	}
}

func TestReadThroughDegradesOnStoreErrors(t *testing.T) {
	c := NewPermissionCache(failingStore{}, time.Minute)
	allowed, err := c.Resolve(context.Background(), "/rest/user/", "can_list", 7, func(context.Context) (bool, error) {
		return false, nil
	})
	if err != nil {
		t.Fatalf("expected store failure to be absorbed, got %v", err)
	}
	if allowed {
		t.Fatalf("expected computed value false")
	}
}

func TestReadThroughDoesNotCacheErrors(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)
	c := NewRowCache(s, time.Minute)

	calls := 0
	compute := func(context.Context) ([]uint64, error) {
		calls++
		return nil, errors.New("db down")
	}
	_, _ = c.Resolve(ctx, 1, compute)
	_, _ = c.Resolve(ctx, 1, compute)
	if calls != 2 {
		t.Fatalf("expected errors to bypass the cache, got %d calls", calls)
	}
}

func TestAuthCacheRecomputesExpiredIdentity(t *testing.T) {
	ctx := context.Background()
	s, clock := newTestStore(t)
	c := NewAuthCache(s, time.Hour)
	c.now = clock.now

	calls := 0
	compute := func(context.Context) (Identity, error) {
		calls++
		return Identity{UserID: 3, Expiry: clock.t.Add(time.Minute)}, nil
	}
	if _, err := c.Resolve(ctx, "digest", compute); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if _, err := c.Resolve(ctx, "digest", compute); err != nil || calls != 1 {
		t.Fatalf("expected cached identity, calls=%d err=%v", calls, err)
	}
	clock.t = clock.t.Add(2 * time.Minute)
	if _, err := c.Resolve(ctx, "digest", compute); err != nil || calls != 2 {
		t.Fatalf("expected expired token identity to be recomputed, calls=%d err=%v", calls, err)
	}

	c.Forget(ctx, "digest")
	if _, ok, _ := s.Get(ctx, TagAuth, "digest"); ok {
		t.Fatalf("expected forgotten identity to be absent")
	}
}
