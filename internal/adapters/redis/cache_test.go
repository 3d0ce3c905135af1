package redisad_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	redisad "property_manager/internal/adapters/redis"
	"property_manager/internal/domain"
)

func newCache(t *testing.T) (*redisad.Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	c := redisad.NewFromClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { _ = c.Close() })
	return c, mr
}

func TestCache_RoundTrip(t *testing.T) {
	ctx := context.Background()
	c, mr := newCache(t)

	var got []domain.DayRate
	if ok, err := c.Get(ctx, "rates:1", &got); ok || err != nil {
		t.Fatalf("empty cache: ok=%v err=%v", ok, err)
	}

	want := []domain.DayRate{{Date: "2024-07-04", Rate: 150, IsCustom: true}}
	if err := c.Set(ctx, "rates:1", want, 60); err != nil {
		t.Fatal(err)
	}
	if !mr.Exists("propman:rates:1") {
		t.Fatal("keys should be namespaced")
	}
	if ok, err := c.Get(ctx, "rates:1", &got); !ok || err != nil {
		t.Fatalf("get: ok=%v err=%v", ok, err)
	}
	if len(got) != 1 || got[0] != want[0] {
		t.Fatalf("got %+v", got)
	}

	if err := c.Del(ctx, "rates:1"); err != nil {
		t.Fatal(err)
	}
	if ok, _ := c.Get(ctx, "rates:1", &got); ok {
		t.Fatal("deleted key still served")
	}
}

func TestCache_TTL(t *testing.T) {
	ctx := context.Background()
	c, mr := newCache(t)

	if err := c.Set(ctx, "short", 1, 30); err != nil {
		t.Fatal(err)
	}
	if err := c.Set(ctx, "forever", 2, 0); err != nil {
		t.Fatal(err)
	}
	mr.FastForward(time.Minute)

	var v int
	if ok, _ := c.Get(ctx, "short", &v); ok {
		t.Fatal("expired key still served")
	}
	if ok, _ := c.Get(ctx, "forever", &v); !ok || v != 2 {
		t.Fatalf("ttl 0 should persist: ok=%v v=%d", ok, v)
	}
}

func TestCache_Unreachable(t *testing.T) {
	c, mr := newCache(t)
	mr.Close()
	var v int
	if _, err := c.Get(context.Background(), "k", &v); err == nil {
		t.Fatal("expected error when redis is down")
	}
	if err := c.Ping(context.Background()); err == nil {
		t.Fatal("expected ping error")
	}
}
