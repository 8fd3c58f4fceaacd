//go:build integration

package integration

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/matt-riley/moneycoach/internal/catalog"
	"github.com/matt-riley/moneycoach/internal/metrics"
	"github.com/matt-riley/moneycoach/internal/middleware"
	"github.com/matt-riley/moneycoach/internal/partnerapi"
	"github.com/matt-riley/moneycoach/internal/resolution"
	"github.com/matt-riley/moneycoach/internal/server"
)

// stack is the full pipeline served over real listeners.
type stack struct {
	resolver *resolution.Resolver
	http     *httptest.Server
	health   healthpb.HealthClient
}

func startStack(t *testing.T, partnerURL string) *stack {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	m := metrics.New()
	hs := server.NewHealthServer(log)
	resolver := resolution.New(
		partnerapi.NewClient(partnerapi.Config{BaseURL: partnerURL}),
		resolution.WithLogger(log),
		resolution.WithMetrics(m),
		resolution.WithObserver(hs.Observe),
	)
	metrics.RegisterResolutionMetrics(m.Registry, resolver)

	handler := server.NewHTTPHandler(resolver, catalog.NewPresenter(catalog.Default()),
		server.WithLogger(log),
		server.WithMetrics(m),
	)
	httpSrv := httptest.NewServer(middleware.HTTPRequestLogging(log)(handler))
	t.Cleanup(httpSrv.Close)

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen gRPC: %v", err)
	}
	grpcSrv := server.NewGRPCServer(hs, server.GRPCOptions{
		Unary: []grpc.UnaryServerInterceptor{m.UnaryServerInterceptor()},
	})
	go func() { _ = grpcSrv.Serve(lis) }()
	t.Cleanup(grpcSrv.Stop)

	conn, err := grpc.NewClient(lis.Addr().String(), grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		t.Fatalf("dial gRPC: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })

	return &stack{resolver: resolver, http: httpSrv, health: healthpb.NewHealthClient(conn)}
}

func (s *stack) view(t *testing.T) catalog.View {
	t.Helper()
	resp, err := http.Get(s.http.URL + "/v1/products")
	if err != nil {
		t.Fatalf("GET /v1/products: %v", err)
	}
	defer resp.Body.Close()

	var view catalog.View
	if err := json.NewDecoder(resp.Body).Decode(&view); err != nil {
		t.Fatalf("decode view: %v", err)
	}
	return view
}

func (s *stack) serving(t *testing.T) bool {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	resp, err := s.health.Check(ctx, &healthpb.HealthCheckRequest{Service: server.FeaturesService})
	if err != nil {
		t.Fatalf("health check: %v", err)
	}
	return resp.GetStatus() == healthpb.HealthCheckResponse_SERVING
}

func productIDs(view catalog.View) []string {
	ids := make([]string, 0, len(view.Products))
	for _, p := range view.Products {
		ids = append(ids, p.ID)
	}
	return ids
}

func TestPipeline(t *testing.T) {
	partner := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/partners/fp-partner/features":
			_, _ = io.WriteString(w, `{"partnerId":"fp-partner","features":{"fp1":"enabled","fp2":"enabled","fp3":"disabled"}}`)
		case "/api/partners/empty-partner/features":
			_, _ = io.WriteString(w, `{"partnerId":"empty-partner","features":{}}`)
		default:
			http.Error(w, "unknown partner", http.StatusNotFound)
		}
	}))
	t.Cleanup(partner.Close)

	s := startStack(t, partner.URL)

	if view := s.view(t); view.State != catalog.ViewLoading {
		t.Fatalf("initial state = %q, want loading", view.State)
	}
	if s.serving(t) {
		t.Fatal("health should be NOT_SERVING before resolution")
	}

	s.resolver.Resolve(context.Background(), "fp-partner")
	view := s.view(t)
	if view.State != catalog.ViewProducts || fmt.Sprint(productIDs(view)) != "[fp1 fp2]" {
		t.Fatalf("view = %+v, want products fp1, fp2", view)
	}
	if !s.serving(t) {
		t.Fatal("health should be SERVING when ready")
	}

	s.resolver.Resolve(context.Background(), "empty-partner")
	view = s.view(t)
	if view.State != catalog.ViewEmpty || view.Message != catalog.EmptyMessage || view.Outcome != "ready" {
		t.Fatalf("view = %+v, want empty ready view", view)
	}

	s.resolver.Resolve(context.Background(), "missing-partner")
	view = s.view(t)
	if view.State != catalog.ViewEmpty || view.Outcome != "failed" {
		t.Fatalf("view = %+v, want empty failed view", view)
	}
	if s.serving(t) {
		t.Fatal("health should be NOT_SERVING after failure")
	}
}

func TestRefetchSupersedesSlowFetch(t *testing.T) {
	var calls atomic.Int32
	started := make(chan struct{})
	release := make(chan struct{})

	partner := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			close(started)
			select {
			case <-release:
			case <-r.Context().Done():
				return
			}
			_, _ = io.WriteString(w, `{"partnerId":"p","features":{"fp1":"enabled"}}`)
			return
		}
		_, _ = io.WriteString(w, `{"partnerId":"p","features":{"fp2":"enabled"}}`)
	}))
	t.Cleanup(partner.Close)

	s := startStack(t, partner.URL)

	first := make(chan resolution.Outcome, 1)
	go func() { first <- s.resolver.Resolve(context.Background(), "p") }()
	<-started

	resp, err := http.Post(s.http.URL+"/v1/features/refetch", "application/json", nil)
	if err != nil {
		t.Fatalf("POST refetch: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("refetch status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	close(release)
	select {
	case <-first:
	case <-time.After(5 * time.Second):
		t.Fatal("slow resolve did not finish")
	}

	view := s.view(t)
	if fmt.Sprint(productIDs(view)) != "[fp2]" {
		t.Fatalf("products = %v, want [fp2]; stale result must not win", productIDs(view))
	}
}
