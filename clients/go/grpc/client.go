// Package grpc provides a gRPC client for the moneycoach health service.
package grpc

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	moneycoach "github.com/matt-riley/moneycoach/clients/go"
)

// FeaturesService is the health service that tracks feature resolution.
const FeaturesService = "moneycoach.v1.Features"

// Config holds configuration for the gRPC client.
type Config struct {
	// Address is the host:port of the moneycoach gRPC server, e.g. "localhost:9090".
	Address string
	// DialOpts are additional gRPC dial options (e.g. TLS credentials).
	// If empty, insecure credentials are used.
	DialOpts []grpc.DialOption
}

// Client implements moneycoach.ReadinessWatcher over the gRPC health service.
type Client struct {
	stub healthpb.HealthClient
	conn *grpc.ClientConn
}

var _ moneycoach.ReadinessWatcher = (*Client)(nil)

// NewGRPCClient creates a client for the moneycoach gRPC server.
// Call Close() when done.
func NewGRPCClient(cfg Config) (*Client, error) {
	opts := []grpc.DialOption{}
	if len(cfg.DialOpts) > 0 {
		opts = append(opts, cfg.DialOpts...)
	} else {
		opts = append(opts, grpc.WithTransportCredentials(insecure.NewCredentials()))
	}
	conn, err := grpc.NewClient(cfg.Address, opts...)
	if err != nil {
		return nil, fmt.Errorf("moneycoach: grpc dial: %w", err)
	}
	return &Client{stub: healthpb.NewHealthClient(conn), conn: conn}, nil
}

// Close closes the underlying gRPC connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

// Ready reports whether the server's feature resolution is Ready.
func (c *Client) Ready(ctx context.Context) (bool, error) {
	resp, err := c.stub.Check(ctx, &healthpb.HealthCheckRequest{Service: FeaturesService})
	if err != nil {
		return false, fmt.Errorf("moneycoach: health check: %w", err)
	}
	return resp.GetStatus() == healthpb.HealthCheckResponse_SERVING, nil
}

// WatchReady streams readiness changes. The current status is sent first; the
// channel closes when the stream ends.
func (c *Client) WatchReady(ctx context.Context) (<-chan bool, error) {
	stream, err := c.stub.Watch(ctx, &healthpb.HealthCheckRequest{Service: FeaturesService})
	if err != nil {
		return nil, fmt.Errorf("moneycoach: health watch: %w", err)
	}

	ch := make(chan bool, 1)
	go func() {
		defer close(ch)
		for {
			resp, err := stream.Recv()
			if err != nil {
				return
			}
			select {
			case ch <- resp.GetStatus() == healthpb.HealthCheckResponse_SERVING:
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch, nil
}
