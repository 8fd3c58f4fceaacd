// Package metrics provides Prometheus instrumentation for the moneycoach
// server.
//
// All metrics are registered in a custom [prometheus.Registry] (not the global
// default) so that only moneycoach metrics appear on the /metrics endpoint.
package metrics

import (
	"context"
	"net/http"
	"path"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"google.golang.org/grpc"
	"google.golang.org/grpc/status"
)

// Metrics holds all Prometheus collectors used by the moneycoach server.
type Metrics struct {
	Registry *prometheus.Registry

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	GRPCRequestsTotal   *prometheus.CounterVec
	GRPCRequestDuration *prometheus.HistogramVec
	FetchesTotal        *prometheus.CounterVec
	FetchDuration       prometheus.Histogram
	OutcomesTotal       *prometheus.CounterVec
	StaleResultsTotal   prometheus.Counter
	RefetchRateLimited  prometheus.Counter
	SelectionsTotal     *prometheus.CounterVec
	VisibleProducts     prometheus.Gauge
}

// New creates and registers all moneycoach metrics in a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		Registry: reg,

		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "moneycoach_http_requests_total",
			Help: "Total number of HTTP requests.",
		}, []string{"method", "route", "status"}),

		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "moneycoach_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),

		GRPCRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "moneycoach_grpc_requests_total",
			Help: "Total number of gRPC requests.",
		}, []string{"method", "status"}),

		GRPCRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "moneycoach_grpc_request_duration_seconds",
			Help:    "gRPC request latency in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "status"}),

		FetchesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "moneycoach_feature_fetches_total",
			Help: "Total number of partner feature fetches.",
		}, []string{"result"}),

		FetchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "moneycoach_feature_fetch_duration_seconds",
			Help:    "Partner feature fetch latency in seconds.",
			Buckets: prometheus.DefBuckets,
		}),

		OutcomesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "moneycoach_resolution_outcomes_total",
			Help: "Total number of published resolution outcomes.",
		}, []string{"state"}),

		StaleResultsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "moneycoach_stale_results_total",
			Help: "Total number of fetch results dropped because a newer attempt had started.",
		}),

		RefetchRateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "moneycoach_refetch_rate_limited_total",
			Help: "Total number of refetch requests rejected by the rate limiter.",
		}),

		SelectionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "moneycoach_product_selections_total",
			Help: "Total number of product selections.",
		}, []string{"product_id"}),

		VisibleProducts: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "moneycoach_visible_products",
			Help: "Number of product tiles in the most recently presented view.",
		}),
	}

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.GRPCRequestsTotal,
		m.GRPCRequestDuration,
		m.FetchesTotal,
		m.FetchDuration,
		m.OutcomesTotal,
		m.StaleResultsTotal,
		m.RefetchRateLimited,
		m.SelectionsTotal,
		m.VisibleProducts,
	)

	return m
}

// Handler returns an [http.Handler] that serves Prometheus metrics.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}

// HTTPMiddleware records request count and latency. The route label is the
// matched [http.ServeMux] pattern, so it must wrap the mux directly.
func (m *Metrics) HTTPMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)

		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}
		code := strconv.Itoa(sw.status)
		m.HTTPRequestsTotal.WithLabelValues(r.Method, route, code).Inc()
		m.HTTPRequestDuration.WithLabelValues(r.Method, route, code).Observe(time.Since(start).Seconds())
	})
}

type statusWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (w *statusWriter) WriteHeader(code int) {
	if !w.wroteHeader {
		w.status = code
		w.wroteHeader = true
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

// UnaryServerInterceptor returns a gRPC unary interceptor that records
// request count and latency for each method.
func (m *Metrics) UnaryServerInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		m.observeGRPC(info.FullMethod, err, start)
		return resp, err
	}
}

// StreamServerInterceptor returns a gRPC stream interceptor that records
// request count and latency.
func (m *Metrics) StreamServerInterceptor() grpc.StreamServerInterceptor {
	return func(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		start := time.Now()
		err := handler(srv, ss)
		m.observeGRPC(info.FullMethod, err, start)
		return err
	}
}

func (m *Metrics) observeGRPC(fullMethod string, err error, start time.Time) {
	method := path.Base(fullMethod)
	st, _ := status.FromError(err)
	code := st.Code().String()
	m.GRPCRequestsTotal.WithLabelValues(method, code).Inc()
	m.GRPCRequestDuration.WithLabelValues(method, code).Observe(time.Since(start).Seconds())
}

// RecordFetch counts a partner feature fetch and observes its latency.
func (m *Metrics) RecordFetch(success bool, duration time.Duration) {
	result := "success"
	if !success {
		result = "failure"
	}
	m.FetchesTotal.WithLabelValues(result).Inc()
	m.FetchDuration.Observe(duration.Seconds())
}

// RecordOutcome counts a published resolution outcome.
func (m *Metrics) RecordOutcome(state string) {
	m.OutcomesTotal.WithLabelValues(state).Inc()
}

// RecordStale counts a dropped stale fetch result.
func (m *Metrics) RecordStale() {
	m.StaleResultsTotal.Inc()
}

// RecordSelection counts a product selection.
func (m *Metrics) RecordSelection(productID string) {
	m.SelectionsTotal.WithLabelValues(productID).Inc()
}

// SetVisibleProducts reports the number of tiles in the latest view.
func (m *Metrics) SetVisibleProducts(n int) {
	m.VisibleProducts.Set(float64(n))
}

// RecordRefetchRateLimited counts a refetch rejected by the rate limiter.
func (m *Metrics) RecordRefetchRateLimited() {
	m.RefetchRateLimited.Inc()
}
