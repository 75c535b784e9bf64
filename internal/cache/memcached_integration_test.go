//go:build integration
// +build integration

package cache

import (
	"context"
	"strings"
	"testing"
	"time"
)

// TestMemcachedCache_GetSet_Integration verifies that MemcachedCache successfully
// stores and retrieves bodies when memcached server is available.
func TestMemcachedCache_GetSet_Integration(t *testing.T) {
	c, err := NewMemcachedCache("localhost:11211", 500*time.Millisecond, 2)
	if err != nil {
		t.Fatalf("NewMemcachedCache() error = %v", err)
	}
	defer c.Close()

	ctx := context.Background()
	key := "https://avwx.fekke.com/metar/KCRG"
	body := []byte(`[{"station_id":"KCRG"}]`)
	if err := c.Set(ctx, key, body, time.Minute); err != nil {
		t.Skipf("Set failed (memcached may not be running): %v", err)
	}

	got, ok, err := c.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if !ok {
		t.Fatal("Get() ok = false, want true")
	}
	if string(got) != string(body) {
		t.Errorf("Get() = %s, want %s", got, body)
	}
}

// TestMemcachedCache_LongKey_Integration verifies that keys beyond memcached's
// length limit are stored under a digest and still round-trip.
func TestMemcachedCache_LongKey_Integration(t *testing.T) {
	c, err := NewMemcachedCache("localhost:11211", 500*time.Millisecond, 2)
	if err != nil {
		t.Fatalf("NewMemcachedCache() error = %v", err)
	}
	defer c.Close()

	ctx := context.Background()
	key := "https://avwx.fekke.com/metar/" + strings.Repeat("K", 400)
	if err := c.Set(ctx, key, []byte(`[]`), time.Minute); err != nil {
		t.Skipf("Set failed (memcached may not be running): %v", err)
	}
	if _, ok, err := c.Get(ctx, key); err != nil || !ok {
		t.Errorf("Get() = (_, %v, %v), want hit", ok, err)
	}
}

// TestMemcachedCache_Get_Miss_Integration verifies that MemcachedCache returns
// ok=false when requested key does not exist in memcached.
func TestMemcachedCache_Get_Miss_Integration(t *testing.T) {
	c, err := NewMemcachedCache("localhost:11211", 500*time.Millisecond, 2)
	if err != nil {
		t.Fatalf("NewMemcachedCache() error = %v", err)
	}
	defer c.Close()

	ctx := context.Background()
	_, ok, err := c.Get(ctx, "nonexistent")
	if err != nil {
		t.Skipf("Get failed (memcached may not be running): %v", err)
	}
	if ok {
		t.Error("Get() ok = true, want false for miss")
	}
}
