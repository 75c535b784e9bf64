package main

import (
	"testing"

	"github.com/kjstillabower/metar-gateway/internal/cache"
	"github.com/kjstillabower/metar-gateway/internal/config"
)

func TestNewCache(t *testing.T) {
	tests := []struct {
		backend  string
		wantNil  bool
		wantPing bool
	}{
		{backend: cache.BackendNone, wantNil: true},
		{backend: cache.BackendInMemory},
		{backend: cache.BackendMemcached, wantPing: true},
	}
	for _, tt := range tests {
		t.Run(tt.backend, func(t *testing.T) {
			cfg := &config.Config{
				CacheBackend:          tt.backend,
				CacheMaxEntries:       100,
				MemcachedAddrs:        "localhost:11211",
				MemcachedMaxIdleConns: 2,
			}
			c, closeFn, err := newCache(cfg)
			if err != nil {
				t.Fatalf("newCache() error = %v", err)
			}
			defer func() { _ = closeFn() }()

			if (c == nil) != tt.wantNil {
				t.Errorf("cache nil = %v, want %v", c == nil, tt.wantNil)
			}
			if _, ok := c.(cache.Pinger); ok != tt.wantPing {
				t.Errorf("Pinger = %v, want %v", ok, tt.wantPing)
			}
		})
	}
}

func TestNewCache_Unknown(t *testing.T) {
	if _, _, err := newCache(&config.Config{CacheBackend: "redis"}); err == nil {
		t.Error("newCache() expected error for unknown backend")
	}
}
