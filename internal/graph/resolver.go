package graph

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/kjstillabower/metar-gateway/internal/client"
	"github.com/kjstillabower/metar-gateway/internal/models"
	"github.com/kjstillabower/metar-gateway/internal/observability"
	"github.com/kjstillabower/metar-gateway/internal/traffic"
	"github.com/kjstillabower/metar-gateway/internal/validation"
)

// rootResolverKey is the root-object entry holding the request's *Resolver.
const rootResolverKey = "resolver"

// Resolver answers the Query fields for a single request. Build one per
// request with that request's data sources and pass it to Execute through
// RootObject.
type Resolver struct {
	metar client.MetarFetcher
}

// NewResolver returns a Resolver backed by the given upstream fetcher.
func NewResolver(metar client.MetarFetcher) *Resolver {
	return &Resolver{metar: metar}
}

// RootObject returns the GraphQL root value carrying r.
func (r *Resolver) RootObject() map[string]interface{} {
	return map[string]interface{}{rootResolverKey: r}
}

// Books resolves Query.books.
func (r *Resolver) Books() []models.Book {
	return Books()
}

// GetMetar resolves Query.getMetar. Blank ids are rejected before any
// upstream call; upstream and mapping failures become *QueryError values.
func (r *Resolver) GetMetar(ctx context.Context, id string) ([]models.MetarReport, error) {
	if err := validation.ValidateStationID(id); err != nil {
		return nil, badUserInput(err)
	}

	logger := observability.LoggerFromContext(ctx)
	start := time.Now()
	observability.RecordMetarQuery(id)

	body, err := r.metar.GetMetar(ctx, id)
	if err != nil {
		traffic.RecordError()
		logger.Debug("upstream error", zap.String("station", id), zap.Error(err))
		return nil, upstreamError(id, err)
	}

	reports, err := DecodeReports(body)
	if err != nil {
		traffic.RecordError()
		logger.Warn("upstream contract violation", zap.String("station", id), zap.Error(err))
		return nil, contractError(id, err)
	}

	traffic.RecordSuccess()
	logger.Debug("metar served",
		zap.String("station", id),
		zap.Int("reports", len(reports)),
		zap.Duration("duration", time.Since(start)))
	return reports, nil
}
