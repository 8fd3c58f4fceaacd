package server

import (
	"log/slog"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/matt-riley/moneycoach/internal/resolution"
)

// FeaturesService is the health service name that tracks feature resolution.
const FeaturesService = "moneycoach.v1.Features"

// HealthServer reports SERVING for [FeaturesService] while the feature
// resolution outcome is Ready and NOT_SERVING otherwise. The overall server
// status ("") is SERVING until [HealthServer.Shutdown].
type HealthServer struct {
	*health.Server
	logger *slog.Logger
}

// NewHealthServer returns a health server with the features service
// NOT_SERVING.
func NewHealthServer(logger *slog.Logger) *HealthServer {
	if logger == nil {
		logger = slog.Default()
	}
	h := &HealthServer{Server: health.NewServer(), logger: logger}
	h.SetServingStatus(FeaturesService, healthpb.HealthCheckResponse_NOT_SERVING)
	return h
}

// Observe updates the features service status from outcome. It is meant to be
// registered with [resolution.WithObserver].
func (h *HealthServer) Observe(outcome resolution.Outcome) {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if outcome.State() == resolution.StateReady {
		status = healthpb.HealthCheckResponse_SERVING
	}
	h.SetServingStatus(FeaturesService, status)
	h.logger.Debug("health status updated",
		slog.String("service", FeaturesService),
		slog.String("status", status.String()),
	)
}

// GRPCOptions configures [NewGRPCServer].
type GRPCOptions struct {
	Unary  []grpc.UnaryServerInterceptor
	Stream []grpc.StreamServerInterceptor
}

// NewGRPCServer returns a gRPC server exposing the health service and server
// reflection, traced with otelgrpc.
func NewGRPCServer(h *HealthServer, opts GRPCOptions) *grpc.Server {
	if h == nil {
		panic("health server is nil")
	}

	srv := grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(opts.Unary...),
		grpc.ChainStreamInterceptor(opts.Stream...),
	)
	healthpb.RegisterHealthServer(srv, h)
	reflection.Register(srv)
	return srv
}
