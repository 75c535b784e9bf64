package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kjstillabower/metar-gateway/internal/cache"
	"github.com/kjstillabower/metar-gateway/internal/observability"
)

// DefaultBaseURL is the public METAR REST service the gateway fronts.
const DefaultBaseURL = "https://avwx.fekke.com/"

// metarPath is the path prefix for station lookups, relative to the base URL.
const metarPath = "metar/"

// MetarFetcher returns the raw JSON body the upstream serves for a station.
type MetarFetcher interface {
	GetMetar(ctx context.Context, id string) ([]byte, error)
}

var (
	ErrStationNotFound   = errors.New("station not found")
	ErrUpstreamFailure   = errors.New("upstream failure")
	ErrMalformedResponse = errors.New("malformed upstream response")
)

// StatusError reports a non-2xx upstream response. It unwraps to
// ErrStationNotFound for 404 and ErrUpstreamFailure otherwise.
type StatusError struct {
	StatusCode int
	URL        string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("upstream GET %s: HTTP %d", e.URL, e.StatusCode)
}

func (e *StatusError) Unwrap() error {
	if e.StatusCode == http.StatusNotFound {
		return ErrStationNotFound
	}
	return ErrUpstreamFailure
}

// MetarClient issues station lookups against the upstream service. It is
// cheap to build; the HTTP client and cache it holds are shared handles.
type MetarClient struct {
	baseURL    string
	client     *http.Client
	cache      cache.Cache
	defaultTTL time.Duration
}

// NewHTTPClient returns the HTTP client shared by all MetarClients.
// A zero timeout keeps the transport default.
func NewHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{Timeout: timeout}
}

// Factory builds per-request MetarClients that share one HTTP client and
// one cache handle.
type Factory struct {
	baseURL    string
	client     *http.Client
	cache      cache.Cache
	defaultTTL time.Duration
}

// NewFactory validates baseURL and returns a Factory. c may be nil to disable
// caching; defaultTTL applies to responses without usable Cache-Control headers.
func NewFactory(baseURL string, httpClient *http.Client, c cache.Cache, defaultTTL time.Duration) (*Factory, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid upstream URL: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid upstream URL %q: scheme and host required", baseURL)
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Factory{
		baseURL:    strings.TrimRight(baseURL, "/") + "/",
		client:     httpClient,
		cache:      c,
		defaultTTL: defaultTTL,
	}, nil
}

// New returns a MetarClient bound to the factory's shared handles.
func (f *Factory) New() *MetarClient {
	return &MetarClient{
		baseURL:    f.baseURL,
		client:     f.client,
		cache:      f.cache,
		defaultTTL: f.defaultTTL,
	}
}

// NewMetarClient builds a single client for baseURL. See NewFactory.
func NewMetarClient(baseURL string, httpClient *http.Client, c cache.Cache, defaultTTL time.Duration) (*MetarClient, error) {
	f, err := NewFactory(baseURL, httpClient, c, defaultTTL)
	if err != nil {
		return nil, err
	}
	return f.New(), nil
}

// MetarURL returns the upstream URL for station id. The id is percent-encoded
// as a URI component: everything except letters, digits and - _ . ! ~ * ' ( ).
func (c *MetarClient) MetarURL(id string) string {
	return c.baseURL + metarPath + escapeComponent(id)
}

// componentUnescaper turns QueryEscape output into URI-component encoding.
var componentUnescaper = strings.NewReplacer(
	"+", "%20",
	"%21", "!",
	"%27", "'",
	"%28", "(",
	"%29", ")",
	"%2A", "*",
)

func escapeComponent(s string) string {
	return componentUnescaper.Replace(url.QueryEscape(s))
}

// GetMetar returns the upstream JSON body for station id. A cached body is
// returned without contacting the upstream; otherwise exactly one GET is issued.
func (c *MetarClient) GetMetar(ctx context.Context, id string) ([]byte, error) {
	reqURL := c.MetarURL(id)
	logger := observability.LoggerFromContext(ctx)

	if c.cache != nil {
		body, ok, err := c.cache.Get(ctx, reqURL)
		switch {
		case err != nil:
			observability.CacheLookupsTotal.WithLabelValues("error").Inc()
			logger.Warn("cache get failed", zap.String("url", reqURL), zap.Error(err))
		case ok:
			observability.CacheLookupsTotal.WithLabelValues("hit").Inc()
			logger.Debug("cache hit", zap.String("url", reqURL))
			return body, nil
		default:
			observability.CacheLookupsTotal.WithLabelValues("miss").Inc()
		}
	}

	body, header, err := c.callAPI(ctx, reqURL)
	if err != nil {
		observability.UpstreamErrorsTotal.WithLabelValues(string(CategorizeError(err))).Inc()
		return nil, err
	}

	if c.cache != nil {
		c.store(ctx, reqURL, body, header)
	}
	return body, nil
}

func (c *MetarClient) store(ctx context.Context, key string, body []byte, header http.Header) {
	ttl := CacheTTL(header, time.Now(), c.defaultTTL)
	if ttl <= 0 {
		observability.CacheWritesTotal.WithLabelValues("skipped").Inc()
		return
	}
	if err := c.cache.Set(ctx, key, body, ttl); err != nil {
		observability.CacheWritesTotal.WithLabelValues("error").Inc()
		observability.LoggerFromContext(ctx).Warn("cache set failed", zap.String("url", key), zap.Error(err))
		return
	}
	observability.CacheWritesTotal.WithLabelValues("stored").Inc()
}

func (c *MetarClient) callAPI(ctx context.Context, reqURL string) ([]byte, http.Header, error) {
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		observability.UpstreamCallsTotal.WithLabelValues("error").Inc()
		return nil, nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if corrID := observability.CorrelationID(ctx); corrID != "" {
		req.Header.Set("X-Correlation-ID", corrID)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		observability.UpstreamCallsTotal.WithLabelValues("error").Inc()
		observability.UpstreamDuration.WithLabelValues("error").Observe(time.Since(start).Seconds())
		return nil, nil, fmt.Errorf("%w: %w", ErrUpstreamFailure, err)
	}
	defer resp.Body.Close()

	status := statusLabel(resp.StatusCode)
	observability.UpstreamCallsTotal.WithLabelValues(status).Inc()
	observability.UpstreamDuration.WithLabelValues(status).Observe(time.Since(start).Seconds())

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, nil, &StatusError{StatusCode: resp.StatusCode, URL: reqURL}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: read response body: %w", ErrUpstreamFailure, err)
	}
	if !json.Valid(body) {
		return nil, nil, fmt.Errorf("%w: body is not valid JSON", ErrMalformedResponse)
	}
	return body, resp.Header, nil
}

func statusLabel(statusCode int) string {
	if statusCode >= 200 && statusCode < 300 {
		return "success"
	}
	if statusCode >= 400 && statusCode < 500 {
		return "client_error"
	}
	if statusCode >= 500 {
		return "server_error"
	}
	return "error"
}
