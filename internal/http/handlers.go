package http

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"sync"
	"time"

	"github.com/graphql-go/graphql"
	"go.uber.org/zap"

	"github.com/kjstillabower/metar-gateway/internal/client"
	"github.com/kjstillabower/metar-gateway/internal/graph"
	"github.com/kjstillabower/metar-gateway/internal/lifecycle"
	"github.com/kjstillabower/metar-gateway/internal/observability"
	"github.com/kjstillabower/metar-gateway/internal/traffic"
)

// maxRequestBytes bounds a GraphQL request body.
const maxRequestBytes = 1 << 20

// HealthConfig holds lifecycle thresholds for the health handler.
type HealthConfig struct {
	DegradedWindow       time.Duration
	DegradedErrorPct     int
	IdleWindow           time.Duration
	IdleThresholdQueries int
	MinimumLifespan      time.Duration
	// CachePing, when set, is called to check cache reachability. Used when backend is memcached.
	CachePing func() error
}

// Handler holds dependencies for HTTP handlers.
type Handler struct {
	schema           graphql.Schema
	newMetar         func() client.MetarFetcher
	healthConfig     *HealthConfig
	logger           *zap.Logger
	healthStatusMu   sync.Mutex
	healthStatusPrev string
}

// NewHandler returns a new Handler. newMetar is called once per GraphQL
// request to build that request's upstream client.
func NewHandler(schema graphql.Schema, newMetar func() client.MetarFetcher, healthConfig *HealthConfig, logger *zap.Logger) *Handler {
	return &Handler{
		schema:       schema,
		newMetar:     newMetar,
		healthConfig: healthConfig,
		logger:       logger,
	}
}

// graphQLRequest is the standard GraphQL-over-HTTP request payload.
type graphQLRequest struct {
	Query         string                 `json:"query"`
	OperationName string                 `json:"operationName"`
	Variables     map[string]interface{} `json:"variables"`
}

// ServeGraphQL handles GET and POST on /graphql and /.
func (h *Handler) ServeGraphQL(w http.ResponseWriter, r *http.Request) {
	req, err := parseGraphQLRequest(w, r)
	if err != nil {
		observability.GraphQLOperationsTotal.WithLabelValues("error").Inc()
		writeGraphQLError(w, http.StatusBadRequest, err.Error())
		return
	}

	resolver := graph.NewResolver(h.newMetar())
	result := graph.Execute(r.Context(), h.schema, resolver, req.Query, req.OperationName, req.Variables)

	outcome := "ok"
	if result.HasErrors() {
		outcome = "error"
		observability.LoggerFromContext(r.Context()).Debug("graphql errors",
			zap.String("operation", req.OperationName),
			zap.Int("count", len(result.Errors)))
	}
	observability.GraphQLOperationsTotal.WithLabelValues(outcome).Inc()
	writeJSON(w, http.StatusOK, result)
}

// parseGraphQLRequest reads the operation from URL parameters (GET) or the
// body (POST, application/json or application/graphql).
func parseGraphQLRequest(w http.ResponseWriter, r *http.Request) (graphQLRequest, error) {
	var req graphQLRequest
	switch r.Method {
	case http.MethodGet:
		q := r.URL.Query()
		req.Query = q.Get("query")
		req.OperationName = q.Get("operationName")
		if v := q.Get("variables"); v != "" {
			if err := json.Unmarshal([]byte(v), &req.Variables); err != nil {
				return req, errors.New("variables must be a JSON object")
			}
		}
	case http.MethodPost:
		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxRequestBytes))
		if err != nil {
			return req, errors.New("could not read request body")
		}
		mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
		if mediaType == "application/graphql" {
			req.Query = string(body)
			break
		}
		if err := json.Unmarshal(body, &req); err != nil {
			return req, errors.New("request body must be a JSON object with a query field")
		}
	default:
		return req, errors.New("unsupported method " + r.Method)
	}
	if req.Query == "" {
		return req, errors.New("query is required")
	}
	return req, nil
}

// healthResult holds the computed health status and metadata for logging.
type healthResult struct {
	status     string
	statusCode int
	reason     string
}

// GetHealth handles GET /health.
func (h *Handler) GetHealth(w http.ResponseWriter, r *http.Request) {
	result := h.computeHealthStatus()

	h.healthStatusMu.Lock()
	prev := h.healthStatusPrev
	if prev != "" && prev != result.status {
		h.logger.Info("health status transition",
			zap.String("previous_status", prev),
			zap.String("current_status", result.status),
			zap.String("reason", result.reason))
	}
	h.healthStatusPrev = result.status
	h.healthStatusMu.Unlock()

	checks := make(map[string]string)
	if result.status == "degraded" {
		checks["upstream"] = "unhealthy"
	} else {
		checks["upstream"] = "healthy"
	}
	if h.healthConfig != nil && h.healthConfig.CachePing != nil {
		if h.healthConfig.CachePing() == nil {
			checks["cache"] = "healthy"
		} else {
			checks["cache"] = "unhealthy"
		}
	}
	writeJSON(w, result.statusCode, map[string]interface{}{
		"status":    result.status,
		"service":   "metar-gateway",
		"version":   "dev",
		"checks":    checks,
		"uptime":    lifecycle.Uptime().Truncate(time.Second).String(),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// computeHealthStatus evaluates conditions in priority order:
// shutting-down > degraded > idle > healthy.
func (h *Handler) computeHealthStatus() healthResult {
	if lifecycle.IsShuttingDown() {
		return healthResult{"shutting-down", http.StatusServiceUnavailable, "signal"}
	}
	if h.healthConfig == nil {
		return healthResult{"healthy", http.StatusOK, ""}
	}
	if h.healthConfig.DegradedWindow > 0 && h.healthConfig.DegradedErrorPct > 0 {
		errs, total := traffic.ErrorRate(h.healthConfig.DegradedWindow)
		if total > 0 {
			pct := float64(errs) * 100 / float64(total)
			if pct >= float64(h.healthConfig.DegradedErrorPct) {
				return healthResult{"degraded", http.StatusServiceUnavailable, "error_rate_breach"}
			}
		}
	}
	// Idle only applies once the process has lived past its minimum lifespan.
	if h.healthConfig.IdleWindow > 0 && lifecycle.Uptime() >= h.healthConfig.MinimumLifespan {
		if traffic.QueryCount(h.healthConfig.IdleWindow) < h.healthConfig.IdleThresholdQueries {
			return healthResult{"idle", http.StatusOK, "low_traffic"}
		}
	}
	return healthResult{"healthy", http.StatusOK, ""}
}

// writeJSON writes a JSON response with the specified HTTP status code.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeGraphQLError writes a request-level failure in GraphQL response shape.
func writeGraphQLError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]interface{}{
		"errors": []map[string]interface{}{{
			"message":    message,
			"extensions": map[string]string{"code": "BAD_REQUEST"},
		}},
	})
}
