package cache

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"
	"testing"
	"time"
)

func newTestCache(t *testing.T) *InMemoryCache {
	t.Helper()
	c, err := NewInMemoryCache(100)
	if err != nil {
		t.Fatalf("NewInMemoryCache() error = %v", err)
	}
	t.Cleanup(c.Close)
	return c
}

// TestInMemoryCache_GetSet verifies that Set stores bodies and Get retrieves
// them unchanged.
func TestInMemoryCache_GetSet(t *testing.T) {
	ctx := context.Background()
	c := newTestCache(t)

	body := []byte(`[{"station_id":"KCRG"}]`)
	if err := c.Set(ctx, "https://upstream/metar/KCRG", body, time.Minute); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	got, ok, err := c.Get(ctx, "https://upstream/metar/KCRG")
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

// TestInMemoryCache_SetCopiesValue verifies that mutating the caller's slice
// after Set does not change the cached body.
func TestInMemoryCache_SetCopiesValue(t *testing.T) {
	ctx := context.Background()
	c := newTestCache(t)

	body := []byte(`{"a":1}`)
	if err := c.Set(ctx, "k", body, time.Minute); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	body[1] = 'X'

	got, _, _ := c.Get(ctx, "k")
	if string(got) != `{"a":1}` {
		t.Errorf("Get() = %s, want original body", got)
	}
}

// TestInMemoryCache_Get_Miss verifies that Get returns ok=false when
// the requested key does not exist in cache.
func TestInMemoryCache_Get_Miss(t *testing.T) {
	ctx := context.Background()
	c := newTestCache(t)

	_, ok, err := c.Get(ctx, "nonexistent")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if ok {
		t.Error("Get() ok = true, want false for miss")
	}
}

// TestInMemoryCache_Set_ZeroTTL verifies that a non-positive TTL stores nothing.
func TestInMemoryCache_Set_ZeroTTL(t *testing.T) {
	ctx := context.Background()
	c := newTestCache(t)

	if err := c.Set(ctx, "k", []byte("[]"), 0); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if _, ok, _ := c.Get(ctx, "k"); ok {
		t.Error("Get() ok = true, want false for zero TTL")
	}
}

// TestInMemoryCache_Get_Expired verifies that Get returns ok=false once the
// entry's TTL has elapsed.
func TestInMemoryCache_Get_Expired(t *testing.T) {
	ctx := context.Background()
	c := newTestCache(t)

	if err := c.Set(ctx, "k", []byte("[]"), 10*time.Millisecond); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	time.Sleep(50 * time.Millisecond)

	if _, ok, _ := c.Get(ctx, "k"); ok {
		t.Error("Get() ok = true, want false for expired entry")
	}
}

// TestInMemoryCache_CanceledContext verifies that a canceled context is
// reported instead of touching the store.
func TestInMemoryCache_CanceledContext(t *testing.T) {
	c := newTestCache(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, _, err := c.Get(ctx, "k"); err == nil {
		t.Error("Get() error = nil, want context error")
	}
	if err := c.Set(ctx, "k", []byte("[]"), time.Minute); err == nil {
		t.Error("Set() error = nil, want context error")
	}
}

// TestInMemoryCache_ConcurrentAccess exercises concurrent readers and writers;
// run with -race.
func TestInMemoryCache_ConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	c := newTestCache(t)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := fmt.Sprintf("station-%d", i%5)
			_ = c.Set(ctx, key, []byte(key), time.Minute)
			_, _, _ = c.Get(ctx, key)
		}(i)
	}
	wg.Wait()
}

func TestStorageKey(t *testing.T) {
	tests := []struct {
		name       string
		in         string
		wantPrefix string
		hashed     bool
	}{
		{name: "short url", in: "https://avwx.fekke.com/metar/KCRG", wantPrefix: "metar:https://", hashed: false},
		{name: "too long", in: strings.Repeat("a", 300), wantPrefix: "metar:sha256:", hashed: true},
		{name: "contains space", in: "https://x/metar/K C", wantPrefix: "metar:sha256:", hashed: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := storageKey(tt.in)
			if !strings.HasPrefix(got, tt.wantPrefix) {
				t.Errorf("storageKey(%q) = %q, want prefix %q", tt.in, got, tt.wantPrefix)
			}
			if len(got) > maxKeyLen {
				t.Errorf("storageKey(%q) length = %d, want <= %d", tt.in, len(got), maxKeyLen)
			}
			if tt.hashed && storageKey(tt.in) != got {
				t.Error("storageKey should be deterministic")
			}
		})
	}
}

func TestParseAddrs(t *testing.T) {
	got := parseAddrs(" host1:11211, ,host2:11211 ")
	if len(got) != 2 || got[0] != "host1:11211" || got[1] != "host2:11211" {
		t.Errorf("parseAddrs() = %v", got)
	}
}

func TestNewMemcachedCache_NoAddrs(t *testing.T) {
	if _, err := NewMemcachedCache(" , ", time.Second, 2); err == nil {
		t.Error("NewMemcachedCache() error = nil, want error for empty address list")
	}
}

func TestExpiration(t *testing.T) {
	const maxExp = 30 * 24 * 60 * 60
	tests := []struct {
		ttl  time.Duration
		want int32
	}{
		{time.Second, 1},
		{1500 * time.Millisecond, 2},
		{time.Nanosecond, 1},
		{time.Hour, 3600},
		{30 * 24 * time.Hour, maxExp},
		{31 * 24 * time.Hour, maxExp},
		{70 * 365 * 24 * time.Hour, maxExp},
		{time.Duration(math.MaxInt64), maxExp},
	}
	for _, tt := range tests {
		if got := expiration(tt.ttl); got != tt.want {
			t.Errorf("expiration(%v) = %d, want %d", tt.ttl, got, tt.want)
		}
	}
}
