package http

import (
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/kjstillabower/metar-gateway/internal/observability"
)

// NewRouter wires the gateway routes and middleware around h.
func NewRouter(h *Handler, logger *zap.Logger) *mux.Router {
	router := mux.NewRouter()
	router.Use(InFlightMiddleware)
	router.Use(CorrelationIDMiddleware(logger))
	router.Use(MetricsMiddleware)
	router.HandleFunc("/health", h.GetHealth).Methods(http.MethodGet)
	router.Handle("/metrics", observability.MetricsHandler()).Methods(http.MethodGet)
	router.HandleFunc("/graphql", h.ServeGraphQL).Methods(http.MethodGet, http.MethodPost)
	router.HandleFunc("/", h.ServeGraphQL).Methods(http.MethodGet, http.MethodPost)
	return router
}
