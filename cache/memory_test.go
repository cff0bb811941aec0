package cache

import (
	"context"
	"testing"
	"time"

	"github.com/xraph/keeper"
)

func articlesQuery(actor string) keeper.Fingerprint {
	return keeper.Fingerprint{
		Collection: "articles",
		Actor:      actor,
		Filter:     map[string]any{"status": "published", "views": map[string]any{"$gt": 10}},
		Limit:      20,
	}
}

func TestMemoryCacheHitMiss(t *testing.T) {
	ctx := context.Background()
	c := NewMemory(WithTTL(time.Minute))

	fp := articlesQuery("usr_1")
	records := []keeper.Record{{"id": "rec_1", "title": "alpha"}}

	// Miss
	if _, _, ok := c.Get(ctx, fp); ok {
		t.Fatal("expected cache miss")
	}

	// Set + Hit
	c.Set(ctx, fp, records, 42)
	got, count, ok := c.Get(ctx, fp)
	if !ok {
		t.Fatal("expected cache hit")
	}
	if len(got) != 1 || got[0]["id"] != "rec_1" {
		t.Fatalf("got %v", got)
	}
	if count != 42 {
		t.Fatalf("count = %d, want 42", count)
	}
}

func TestMemoryCacheTTLExpiry(t *testing.T) {
	ctx := context.Background()
	c := NewMemory(WithTTL(1 * time.Millisecond))

	c.Set(ctx, articlesQuery("usr_1"), []keeper.Record{{"id": "rec_1"}}, 1)
	time.Sleep(5 * time.Millisecond)

	if _, _, ok := c.Get(ctx, articlesQuery("usr_1")); ok {
		t.Fatal("expected cache miss after TTL expiry")
	}
}

func TestMemoryCacheInvalidate(t *testing.T) {
	ctx := context.Background()
	c := NewMemory(WithTTL(time.Minute))

	c.Set(ctx, articlesQuery("usr_1"), []keeper.Record{{"id": "rec_1"}}, 1)
	other := keeper.Fingerprint{Collection: "orders", Actor: "usr_1"}
	c.Set(ctx, other, []keeper.Record{{"id": "rec_9"}}, 1)

	c.Invalidate(ctx, "articles")

	if _, _, ok := c.Get(ctx, articlesQuery("usr_1")); ok {
		t.Fatal("expected invalidated collection to miss")
	}
	if _, _, ok := c.Get(ctx, other); !ok {
		t.Fatal("expected other collection to survive")
	}
}

func TestMemoryCacheActorScoping(t *testing.T) {
	ctx := context.Background()
	c := NewMemory(WithTTL(time.Minute))

	c.Set(ctx, articlesQuery("usr_1"), []keeper.Record{{"id": "rec_1"}}, 1)

	// Same query under a different identity must not hit.
	if _, _, ok := c.Get(ctx, articlesQuery("usr_2")); ok {
		t.Fatal("cache leaked a result set across identities")
	}
}

func TestMemoryCacheMaxSize(t *testing.T) {
	ctx := context.Background()
	c := NewMemory(WithTTL(time.Minute), WithMaxSize(2))

	for i, actor := range []string{"usr_1", "usr_2", "usr_3"} {
		c.Set(ctx, articlesQuery(actor), []keeper.Record{{"n": i}}, 1)
	}

	c.mu.RLock()
	size := len(c.entries)
	c.mu.RUnlock()
	if size > 2 {
		t.Fatalf("entries = %d, want at most 2", size)
	}
}

func TestKeyDeterministic(t *testing.T) {
	a := keeper.Fingerprint{
		Collection: "articles",
		Actor:      "usr_1",
		Filter:     map[string]any{"b": 2, "a": 1, "nested": map[string]any{"y": 2, "x": 1}},
	}
	b := keeper.Fingerprint{
		Collection: "articles",
		Actor:      "usr_1",
		Filter:     map[string]any{"nested": map[string]any{"x": 1, "y": 2}, "a": 1, "b": 2},
	}
	if Key(a) != Key(b) {
		t.Fatal("equal queries produced different keys")
	}

	c := a
	c.Limit = 5
	if Key(a) == Key(c) {
		t.Fatal("different queries produced the same key")
	}
}
