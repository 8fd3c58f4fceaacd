package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/matt-riley/moneycoach/internal/catalog"
	"github.com/matt-riley/moneycoach/internal/featurectx"
	"github.com/matt-riley/moneycoach/internal/middleware"
)

// HTTPServer serves the product tiles and the feature resolution outcome.
type HTTPServer struct {
	resolver  Resolver
	presenter *catalog.Presenter
	provider  featurectx.Provider
	navigator catalog.Navigator
	metrics   Metrics
	limiter   *middleware.RateLimiter
	logger    *slog.Logger
}

// HTTPOption configures the handler built by [NewHTTPHandler].
type HTTPOption func(*HTTPServer)

// WithNavigator sets the navigator used by product selection. Defaults to a
// [catalog.LogNavigator].
func WithNavigator(nav catalog.Navigator) HTTPOption {
	return func(s *HTTPServer) {
		if nav != nil {
			s.navigator = nav
		}
	}
}

// WithMetrics instruments the handler and serves GET /metrics.
func WithMetrics(m Metrics) HTTPOption {
	return func(s *HTTPServer) {
		s.metrics = m
	}
}

// WithRefetchLimiter rate-limits POST /v1/features/refetch per client IP.
func WithRefetchLimiter(rl *middleware.RateLimiter) HTTPOption {
	return func(s *HTTPServer) {
		s.limiter = rl
	}
}

// WithLogger sets the fallback logger for requests without a request-scoped
// one.
func WithLogger(logger *slog.Logger) HTTPOption {
	return func(s *HTTPServer) {
		if logger != nil {
			s.logger = logger
		}
	}
}

type selectResponse struct {
	ProductID  string `json:"productId"`
	ScreenName string `json:"screenName"`
}

type healthResponse struct {
	Status  string `json:"status"`
	Outcome string `json:"outcome"`
}

// NewHTTPHandler returns the API handler. Every request sees one snapshot of
// the resolver's outcome, provided through [featurectx].
func NewHTTPHandler(res Resolver, presenter *catalog.Presenter, opts ...HTTPOption) http.Handler {
	if res == nil {
		panic("resolver is nil")
	}
	if presenter == nil {
		panic("presenter is nil")
	}

	server := &HTTPServer{
		resolver:  res,
		presenter: presenter,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(server)
	}
	if server.navigator == nil {
		server.navigator = catalog.LogNavigator{Logger: server.logger.With(slog.String("component", "navigator"))}
	}

	var refetch http.Handler = http.HandlerFunc(server.handleRefetch)
	if server.limiter != nil {
		var onLimited func(*http.Request)
		if server.metrics != nil {
			onLimited = func(*http.Request) { server.metrics.RecordRefetchRateLimited() }
		}
		refetch = middleware.RateLimit(server.limiter, onLimited)(refetch)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/products", server.handleProducts)
	mux.HandleFunc("POST /v1/products/{id}/select", server.handleSelect)
	mux.HandleFunc("GET /v1/features", server.handleFeatures)
	mux.Handle("POST /v1/features/refetch", refetch)
	mux.HandleFunc("GET /healthz", server.handleHealthz)

	var handler http.Handler = mux
	if server.metrics != nil {
		mux.Handle("GET /metrics", server.metrics.Handler())
		handler = server.metrics.HTTPMiddleware(mux)
	}

	return server.provider.Middleware(res)(handler)
}

func (s *HTTPServer) view(r *http.Request) catalog.View {
	snap, _ := featurectx.Lookup(r.Context())
	view := s.presenter.View(snap)
	if s.metrics != nil {
		s.metrics.SetVisibleProducts(len(view.Products))
	}
	return view
}

func (s *HTTPServer) handleProducts(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.view(r))
}

func (s *HTTPServer) handleFeatures(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, featurectx.FromContext(r.Context()))
}

func (s *HTTPServer) handleRefetch(w http.ResponseWriter, r *http.Request) {
	// A client hanging up must not turn the shared outcome into Failed.
	outcome := s.resolver.Refetch(context.WithoutCancel(r.Context()))
	writeJSON(w, http.StatusOK, outcome)
}

func (s *HTTPServer) handleSelect(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(r.PathValue("id"))
	if id == "" {
		writeJSONError(w, http.StatusBadRequest, "product id is required")
		return
	}

	product, err := s.presenter.Catalog().Select(r.Context(), s.view(r), id, s.navigator)
	if err != nil {
		s.writeSelectError(w, r, err)
		return
	}
	if s.metrics != nil {
		s.metrics.RecordSelection(product.ID)
	}

	writeJSON(w, http.StatusOK, selectResponse{ProductID: product.ID, ScreenName: product.ScreenName})
}

func (s *HTTPServer) handleHealthz(w http.ResponseWriter, r *http.Request) {
	outcome := featurectx.FromContext(r.Context())
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok", Outcome: outcome.State().String()})
}

func (s *HTTPServer) writeSelectError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, catalog.ErrUnknownProduct):
		writeJSONError(w, http.StatusNotFound, "product not found")
	case errors.Is(err, catalog.ErrProductNotVisible):
		writeJSONError(w, http.StatusConflict, "product not available")
	default:
		s.requestLogger(r).ErrorContext(r.Context(), "select product", slog.Any("error", err))
		writeJSONError(w, http.StatusInternalServerError, "internal server error")
	}
}

func (s *HTTPServer) requestLogger(r *http.Request) *slog.Logger {
	if _, ok := middleware.RequestIDFromContext(r.Context()); ok {
		return middleware.LoggerFromContext(r.Context())
	}
	return s.logger
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
