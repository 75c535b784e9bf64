//go:build integration
// +build integration

package testhelpers

import (
	"os"
	"testing"
	"time"

	"github.com/kjstillabower/metar-gateway/internal/cache"
	"github.com/kjstillabower/metar-gateway/internal/client"
)

// IntegrationTestConfig holds configuration for integration tests.
type IntegrationTestConfig struct {
	UpstreamURL   string
	CacheBackend  string // "none", "in_memory" or "memcached"
	MemcachedAddr string
}

// GetIntegrationConfig loads integration test configuration from environment.
// METAR_UPSTREAM_URL defaults to the public upstream.
func GetIntegrationConfig(t *testing.T) IntegrationTestConfig {
	t.Helper()
	upstreamURL := os.Getenv("METAR_UPSTREAM_URL")
	if upstreamURL == "" {
		upstreamURL = client.DefaultBaseURL
	}

	memcachedAddr := os.Getenv("MEMCACHED_ADDRS")
	if memcachedAddr == "" {
		memcachedAddr = "localhost:11211"
	}

	return IntegrationTestConfig{
		UpstreamURL:   upstreamURL,
		CacheBackend:  os.Getenv("INTEGRATION_CACHE_BACKEND"),
		MemcachedAddr: memcachedAddr,
	}
}

// SetupIntegrationClient creates a METAR client factory against the configured
// upstream and cache backend. Returns the factory and a cleanup function.
func SetupIntegrationClient(t *testing.T, cfg IntegrationTestConfig) (*client.Factory, func()) {
	t.Helper()
	var c cache.Cache
	cleanup := func() {}

	switch cfg.CacheBackend {
	case cache.BackendNone:
	case cache.BackendMemcached:
		mc, err := cache.NewMemcachedCache(cfg.MemcachedAddr, 500*time.Millisecond, 2)
		if err == nil && mc.Ping() == nil {
			c = mc
			cleanup = func() { _ = mc.Close() }
			t.Logf("Using Memcached cache at %s", cfg.MemcachedAddr)
			break
		}
		t.Logf("Memcached not available at %s, using in-memory cache", cfg.MemcachedAddr)
		fallthrough
	default:
		mem, err := cache.NewInMemoryCache(1000)
		if err != nil {
			t.Fatalf("NewInMemoryCache() error = %v", err)
		}
		c = mem
		cleanup = mem.Close
	}

	f, err := client.NewFactory(cfg.UpstreamURL, client.NewHTTPClient(10*time.Second), c, time.Minute)
	if err != nil {
		cleanup()
		t.Fatalf("NewFactory() error = %v", err)
	}
	return f, cleanup
}
