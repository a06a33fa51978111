// Package cachetest provides a conformance suite for cache.Cache backends.
package cachetest

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/ggoodman/incognito-go/cache"
)

// Factory creates a fresh, empty cache for one subtest.
type Factory func(t *testing.T) cache.Cache

// RunCacheTests runs the complete cache test suite against the provided factory.
func RunCacheTests(t *testing.T, factory Factory) {
	t.Run("SaveAndGet", func(t *testing.T) {
		testSaveAndGet(t, factory)
	})
	t.Run("GetMissing", func(t *testing.T) {
		testGetMissing(t, factory)
	})
	t.Run("Overwrite", func(t *testing.T) {
		testOverwrite(t, factory)
	})
	t.Run("Delete", func(t *testing.T) {
		testDelete(t, factory)
	})
	t.Run("TTL", func(t *testing.T) {
		testTTL(t, factory)
	})
	t.Run("EmptyValueIsHit", func(t *testing.T) {
		testEmptyValueIsHit(t, factory)
	})
	t.Run("ConcurrentSave", func(t *testing.T) {
		testConcurrentSave(t, factory)
	})
}

func testSaveAndGet(t *testing.T, factory Factory) {
	c := factory(t)
	ctx := context.Background()

	data := []byte(`{"keys":[]}`)
	if err := c.Save(ctx, cache.NewItem("k", data, true)); err != nil {
		t.Fatalf("Save() failed: %v", err)
	}

	item, err := c.Get(ctx, "k")
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	if !item.IsHit() {
		t.Fatal("Get() reported a miss after Save()")
	}
	if item.Key() != "k" {
		t.Fatalf("Get() returned key %q, want %q", item.Key(), "k")
	}
	if !bytes.Equal(item.Value(), data) {
		t.Fatalf("Get() returned %q, want %q", item.Value(), data)
	}
}

func testGetMissing(t *testing.T, factory Factory) {
	c := factory(t)

	item, err := c.Get(context.Background(), "absent")
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	if item == nil {
		t.Fatal("Get() returned nil item for a miss")
	}
	if item.IsHit() {
		t.Fatal("Get() reported a hit for an absent key")
	}
	if len(item.Value()) != 0 {
		t.Fatalf("miss carried data: %q", item.Value())
	}
}

func testOverwrite(t *testing.T, factory Factory) {
	c := factory(t)
	ctx := context.Background()

	if err := c.Save(ctx, cache.NewItem("k", []byte("one"), true)); err != nil {
		t.Fatalf("Save() failed: %v", err)
	}
	if err := c.Save(ctx, cache.NewItem("k", []byte("two"), true)); err != nil {
		t.Fatalf("Save() failed: %v", err)
	}

	item, err := c.Get(ctx, "k")
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	if string(item.Value()) != "two" {
		t.Fatalf("Get() returned %q after overwrite, want %q", item.Value(), "two")
	}
}

func testDelete(t *testing.T, factory Factory) {
	c := factory(t)
	ctx := context.Background()

	if err := c.Save(ctx, cache.NewItem("k", []byte("v"), true)); err != nil {
		t.Fatalf("Save() failed: %v", err)
	}
	if err := c.Delete(ctx, "k"); err != nil {
		t.Fatalf("Delete() failed: %v", err)
	}
	item, err := c.Get(ctx, "k")
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	if item.IsHit() {
		t.Fatal("Get() reported a hit after Delete()")
	}

	if err := c.Delete(ctx, "never-saved"); err != nil {
		t.Fatalf("Delete() of absent key failed: %v", err)
	}
}

func testTTL(t *testing.T, factory Factory) {
	c := factory(t)
	ctx := context.Background()

	if err := c.Save(ctx, cache.NewItem("ttl", []byte("v"), true), cache.WithTTL(time.Second)); err != nil {
		t.Fatalf("Save() failed: %v", err)
	}

	item, err := c.Get(ctx, "ttl")
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	if !item.IsHit() {
		t.Fatal("Get() reported a miss before TTL elapsed")
	}

	time.Sleep(1500 * time.Millisecond)

	item, err = c.Get(ctx, "ttl")
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	if item.IsHit() {
		t.Fatal("Get() reported a hit after TTL elapsed")
	}
}

func testEmptyValueIsHit(t *testing.T, factory Factory) {
	c := factory(t)
	ctx := context.Background()

	if err := c.Save(ctx, cache.NewItem("empty", nil, true)); err != nil {
		t.Fatalf("Save() failed: %v", err)
	}
	item, err := c.Get(ctx, "empty")
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	if !item.IsHit() {
		t.Fatal("Get() reported a miss for a saved empty value")
	}
	if len(item.Value()) != 0 {
		t.Fatalf("Get() returned %q, want empty", item.Value())
	}
}

func testConcurrentSave(t *testing.T, factory Factory) {
	c := factory(t)
	ctx := context.Background()

	const writers = 8
	var wg sync.WaitGroup
	errs := make(chan error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if err := c.Save(ctx, cache.NewItem("shared", []byte(fmt.Sprintf("value-%d", i)), true)); err != nil {
				errs <- err
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("concurrent Save() failed: %v", err)
	}

	item, err := c.Get(ctx, "shared")
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	if !item.IsHit() {
		t.Fatal("Get() reported a miss after concurrent saves")
	}
	var valid bool
	for i := 0; i < writers; i++ {
		if string(item.Value()) == fmt.Sprintf("value-%d", i) {
			valid = true
			break
		}
	}
	if !valid {
		t.Fatalf("Get() returned a value no writer saved: %q", item.Value())
	}
}
