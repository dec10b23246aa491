package cache_test

import (
	"context"
	"testing"
	"time"

	"github.com/eventgate/eventgate/internal/cache"
)

func TestCacheSetGetDelete(t *testing.T) {
	ctx := context.Background()
	c := cache.New(time.Minute)

	if _, ok := c.Get(ctx, "k"); ok {
		t.Fatal("expected miss on empty cache")
	}

	c.Set(ctx, "k", []byte("v"))

	got, ok := c.Get(ctx, "k")
	if !ok || string(got) != "v" {
		t.Fatalf("Get = %q, %v; want v, true", got, ok)
	}

	c.Delete(ctx, "k")

	if _, ok := c.Get(ctx, "k"); ok {
		t.Fatal("expected miss after delete")
	}
}

func TestCacheExpiry(t *testing.T) {
	ctx := context.Background()
	c := cache.New(10 * time.Millisecond)

	c.Set(ctx, "k", []byte("v"))
	time.Sleep(25 * time.Millisecond)

	if _, ok := c.Get(ctx, "k"); ok {
		t.Fatal("expected entry to expire")
	}
}
