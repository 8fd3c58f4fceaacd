package server

import (
	"context"
	"net/http"

	"github.com/matt-riley/moneycoach/internal/metrics"
	"github.com/matt-riley/moneycoach/internal/resolution"
)

// Resolver is the feature resolution the servers expose.
type Resolver interface {
	Outcome() resolution.Outcome
	Refetch(ctx context.Context) resolution.Outcome
}

var _ Resolver = (*resolution.Resolver)(nil)

// Metrics receives presentation-level metrics from the HTTP server.
type Metrics interface {
	HTTPMiddleware(next http.Handler) http.Handler
	Handler() http.Handler
	SetVisibleProducts(n int)
	RecordSelection(productID string)
	RecordRefetchRateLimited()
}

var _ Metrics = (*metrics.Metrics)(nil)
