package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

func TestRedisStoreKeyLayout(t *testing.T) {
	s := NewRedisStore(nil, "pumpwood-auth")
	if got := s.dataKey(TagAuth, 4, "abc"); got != "pumpwood-auth:auth:4:abc" {
		t.Fatalf("unexpected data key %q", got)
	}
	if got := s.generationKey(TagPermission); got != "pumpwood-auth:permission:generation" {
		t.Fatalf("unexpected generation key %q", got)
	}
}

// Runs against a live server when PUMPWOOD_TEST_REDIS_URL is set.
func TestRedisStoreInvalidation(t *testing.T) {
	url := os.Getenv("PUMPWOOD_TEST_REDIS_URL")
	if url == "" {
		t.Skip("PUMPWOOD_TEST_REDIS_URL not set")
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		t.Fatalf("parse url: %v", err)
	}
	ctx := context.Background()
	s := NewRedisStore(redis.NewClient(opts), "pumpwood-auth-test-"+time.Now().Format("150405.000000"))
	t.Cleanup(func() { _ = s.Close() })

	gen, err := s.Generation(ctx, TagPermission)
	if err != nil {
		t.Fatalf("generation: %v", err)
	}
	if err := s.Set(ctx, TagPermission, "k", []byte("v"), time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}
	got, ok, err := s.Get(ctx, TagPermission, "k")
	if err != nil || !ok || string(got) != "v" {
		t.Fatalf("expected v, got %q ok=%v err=%v", got, ok, err)
	}
	if err := InvalidateEverything(ctx, s); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	if _, ok, _ := s.Get(ctx, TagPermission, "k"); ok {
		t.Fatalf("expected entry to be unreachable after generation bump")
	}
	if err := s.SetAt(ctx, TagPermission, gen, "k", []byte("stale"), time.Minute); err != nil {
		t.Fatalf("set at: %v", err)
	}
	if _, ok, _ := s.Get(ctx, TagPermission, "k"); ok {
		t.Fatalf("expected stale generation write to stay unreachable")
	}
}
