package cache

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"
)

func TestLRU_EvictsLeastRecentlyUsed(t *testing.T) {
	ctx := context.Background()
	c := NewLRU[int](2, time.Hour)

	c.Set(ctx, "a", 1)
	c.Set(ctx, "b", 2)
	if _, ok, _ := c.Get(ctx, "a"); !ok {
		t.Fatal("a should be present")
	}
	c.Set(ctx, "c", 3)

	if _, ok, _ := c.Get(ctx, "b"); ok {
		t.Error("b should have been evicted")
	}
	for _, k := range []string{"a", "c"} {
		if _, ok, _ := c.Get(ctx, k); !ok {
			t.Errorf("%s should be present", k)
		}
	}
	if c.Len() != 2 {
		t.Errorf("Len = %d, want 2", c.Len())
	}
}

func TestLRU_UpdateKeepsSingleEntry(t *testing.T) {
	ctx := context.Background()
	c := NewLRU[string](3, time.Hour)

	c.Set(ctx, "k", "old")
	c.Set(ctx, "k", "new")

	v, ok, err := c.Get(ctx, "k")
	if err != nil || !ok || v != "new" {
		t.Errorf("Get = %q, %v, %v", v, ok, err)
	}
	if c.Len() != 1 {
		t.Errorf("Len = %d, want 1", c.Len())
	}
}

func TestLRU_Expiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewLRU[int](10, time.Minute)
	c.now = func() time.Time { return now }

	c.Set(ctx, "k", 7)
	now = now.Add(59 * time.Second)
	if v, ok, _ := c.Get(ctx, "k"); !ok || v != 7 {
		t.Fatalf("entry expired early: %v %v", v, ok)
	}

	now = now.Add(time.Second)
	if _, ok, _ := c.Get(ctx, "k"); ok {
		t.Error("entry should expire at ttl")
	}
	if c.Len() != 0 {
		t.Errorf("expired entry not removed, Len = %d", c.Len())
	}
}

func TestLRU_Defaults(t *testing.T) {
	c := NewLRU[int](0, 0)
	if c.capacity != 10000 || c.ttl != 24*time.Hour {
		t.Errorf("defaults = %d, %v", c.capacity, c.ttl)
	}
}

func TestLRU_Concurrent(t *testing.T) {
	ctx := context.Background()
	c := NewLRU[int](50, time.Hour)

	var wg sync.WaitGroup
	for g := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range 200 {
				key := fmt.Sprintf("%d-%d", g, i%60)
				c.Set(ctx, key, i)
				c.Get(ctx, key)
			}
		}()
	}
	wg.Wait()

	if c.Len() > 50 {
		t.Errorf("Len = %d exceeds capacity", c.Len())
	}
}
