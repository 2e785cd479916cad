// Package health runs the gRPC health service every binary exposes and the
// client side the gateway uses to probe it.
package health

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	grpchealth "google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/jcmexdev/ecommerce-orders/internal/pkg/interceptors"
)

// Server wraps a grpc.Server that only carries the health service.
type Server struct {
	grpc   *grpc.Server
	health *grpchealth.Server
	name   string
	log    *slog.Logger
}

// NewServer registers the health service for serviceName and marks it SERVING.
func NewServer(serviceName string, log *slog.Logger) *Server {
	srv := grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(
			interceptors.UnaryServerInterceptor(),
			interceptors.LoggingServerInterceptor(log),
		),
	)
	hs := grpchealth.NewServer()
	healthpb.RegisterHealthServer(srv, hs)

	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	hs.SetServingStatus(serviceName, healthpb.HealthCheckResponse_SERVING)

	return &Server{grpc: srv, health: hs, name: serviceName, log: log}
}

// Serve blocks until ctx is done, then stops gracefully.
func (s *Server) Serve(ctx context.Context, addr string) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("health: listen %s: %w", addr, err)
	}

	go func() {
		<-ctx.Done()
		s.health.Shutdown()
		s.grpc.GracefulStop()
	}()

	s.log.Info("gRPC health server running", "addr", addr)
	if err := s.grpc.Serve(lis); err != nil {
		return fmt.Errorf("health: serve: %w", err)
	}
	return nil
}

// SetServing flips the status reported for the service.
func (s *Server) SetServing(serving bool) {
	st := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		st = healthpb.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus("", st)
	s.health.SetServingStatus(s.name, st)
}

// Probe checks the health service at a single address.
type Probe struct {
	conn   *grpc.ClientConn
	client healthpb.HealthClient
}

func NewProbe(addr string) (*Probe, error) {
	conn, err := grpc.NewClient(addr,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithStatsHandler(otelgrpc.NewClientHandler()),
		grpc.WithUnaryInterceptor(interceptors.UnaryClientInterceptor()),
	)
	if err != nil {
		return nil, fmt.Errorf("health: dial %s: %w", addr, err)
	}
	return &Probe{conn: conn, client: healthpb.NewHealthClient(conn)}, nil
}

// Check returns the serving status string (e.g. "SERVING").
func (p *Probe) Check(ctx context.Context, service string) (string, error) {
	res, err := p.client.Check(ctx, &healthpb.HealthCheckRequest{Service: service})
	if err != nil {
		return healthpb.HealthCheckResponse_UNKNOWN.String(), err
	}
	return res.GetStatus().String(), nil
}

func (p *Probe) Close() error {
	return p.conn.Close()
}

// TextHandler answers liveness checks with a fixed plain-text body.
func TextHandler(message string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(message))
	}
}
