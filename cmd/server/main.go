// Package main is the entry point for the moneycoach server.
//
// The bootstrap sequence is:
//  1. Load configuration from environment variables (and .env when present).
//  2. Build the partner features client, resolver and product catalog.
//  3. Resolve the configured partner's features in the background.
//  4. Start the HTTP server (:8080) and gRPC health server (:9090) concurrently.
//  5. Wait for SIGINT/SIGTERM, then gracefully shut down both servers.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"google.golang.org/grpc"

	"github.com/matt-riley/moneycoach/internal/catalog"
	"github.com/matt-riley/moneycoach/internal/config"
	"github.com/matt-riley/moneycoach/internal/logging"
	"github.com/matt-riley/moneycoach/internal/metrics"
	"github.com/matt-riley/moneycoach/internal/middleware"
	"github.com/matt-riley/moneycoach/internal/partnerapi"
	"github.com/matt-riley/moneycoach/internal/resolution"
	"github.com/matt-riley/moneycoach/internal/server"
	"github.com/matt-riley/moneycoach/internal/tracing"
)

const (
	shutdownTimeout       = 10 * time.Second
	httpReadHeaderTimeout = 5 * time.Second
	httpReadTimeout       = 30 * time.Second
	httpIdleTimeout       = 2 * time.Minute
)

func main() {
	if err := run(); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

// app holds the wired components of a running server.
type app struct {
	resolver *resolution.Resolver
	health   *server.HealthServer
	limiter  *middleware.RateLimiter
	handler  http.Handler
	grpc     *grpc.Server
}

func newApp(ctx context.Context, cfg config.Config, log *slog.Logger) (*app, error) {
	products := catalog.Default()
	if cfg.CatalogFile != "" {
		loaded, err := catalog.Load(cfg.CatalogFile)
		if err != nil {
			return nil, fmt.Errorf("load catalog: %w", err)
		}
		products = loaded
	}
	log.Info("product catalog loaded", "products", products.Len(), "file", cfg.CatalogFile)

	m := metrics.New()
	health := server.NewHealthServer(log.With("component", "health"))

	client := partnerapi.NewClient(partnerapi.Config{BaseURL: cfg.FeaturesBaseURL})
	resolver := resolution.New(client,
		resolution.WithLogger(log.With("component", "resolver")),
		resolution.WithMetrics(m),
		resolution.WithObserver(health.Observe),
	)
	metrics.RegisterResolutionMetrics(m.Registry, resolver)

	limiter := middleware.NewRateLimiter(ctx, cfg.RefetchRateLimit)

	apiHandler := server.NewHTTPHandler(resolver, catalog.NewPresenter(products),
		server.WithLogger(log),
		server.WithMetrics(m),
		server.WithRefetchLimiter(limiter),
		server.WithNavigator(catalog.LogNavigator{Logger: log.With("component", "navigator")}),
	)
	handler := otelhttp.NewHandler(middleware.HTTPRequestLogging(log)(apiHandler), "moneycoach-http")

	grpcServer := server.NewGRPCServer(health, server.GRPCOptions{
		Unary: []grpc.UnaryServerInterceptor{
			middleware.UnaryRequestLoggingInterceptor(log),
			m.UnaryServerInterceptor(),
		},
		Stream: []grpc.StreamServerInterceptor{
			middleware.StreamRequestLoggingInterceptor(log),
			m.StreamServerInterceptor(),
		},
	})

	return &app{
		resolver: resolver,
		health:   health,
		limiter:  limiter,
		handler:  handler,
		grpc:     grpcServer,
	}, nil
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log := logging.New(cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(log)

	shutdownTracer, err := tracing.Init(context.Background())
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracer(ctx); err != nil {
			log.Error("tracer shutdown error", "err", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer a.limiter.Stop()

	if cfg.PartnerID == "" {
		log.Warn("PARTNER_ID is not set; features stay loading until a partner is configured")
	}
	go a.resolver.Resolve(ctx, cfg.PartnerID)

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           a.handler,
		ReadHeaderTimeout: httpReadHeaderTimeout,
		ReadTimeout:       httpReadTimeout,
		IdleTimeout:       httpIdleTimeout,
	}

	httpListener, err := net.Listen("tcp", cfg.HTTPAddr)
	if err != nil {
		return fmt.Errorf("listen HTTP %s: %w", cfg.HTTPAddr, err)
	}
	defer httpListener.Close()

	grpcListener, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		return fmt.Errorf("listen gRPC %s: %w", cfg.GRPCAddr, err)
	}
	defer grpcListener.Close()

	serveErrCh := make(chan error, 2)
	go func() {
		if err := httpServer.Serve(httpListener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErrCh <- fmt.Errorf("serve HTTP: %w", err)
		}
	}()
	go func() {
		if err := a.grpc.Serve(grpcListener); err != nil {
			serveErrCh <- fmt.Errorf("serve gRPC: %w", err)
		}
	}()

	log.Info("server started", "http_addr", cfg.HTTPAddr, "grpc_addr", cfg.GRPCAddr, "partner_id", cfg.PartnerID)

	var serveErr error
	select {
	case <-ctx.Done():
	case serveErr = <-serveErrCh:
	}
	stop()

	log.Info("server shutting down")
	a.health.Shutdown()

	httpShutdownCtx, cancelHTTP := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancelHTTP()
	if err := httpServer.Shutdown(httpShutdownCtx); err != nil && !errors.Is(err, context.Canceled) {
		if serveErr != nil {
			return serveErr
		}
		return fmt.Errorf("shutdown HTTP: %w", err)
	}

	stopped := make(chan struct{})
	go func() {
		a.grpc.GracefulStop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(shutdownTimeout):
		a.grpc.Stop()
	}

	return serveErr
}
