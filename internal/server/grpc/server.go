// Package grpc exposes the standard gRPC health service. Its status follows
// the reachability of the store.
package grpc

import (
	"context"
	"net"
	"time"

	"github.com/dmitrijs2005/pulsekeeper/internal/logging"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// ServiceName is the health service name reported next to the overall "" entry.
const ServiceName = "pulsekeeper.Ingest"

const defaultProbeInterval = 10 * time.Second

type HealthChecker interface {
	Check(ctx context.Context) error
}

type GRPCServer struct {
	address       string
	checker       HealthChecker
	logger        logging.Logger
	probeInterval time.Duration
	health        *health.Server
}

func NewGRPCServer(a string, l logging.Logger, hc HealthChecker) *GRPCServer {
	return &GRPCServer{
		address:       a,
		checker:       hc,
		logger:        l.With("module", "grpc_server"),
		probeInterval: defaultProbeInterval,
		health:        health.NewServer(),
	}
}

func (s *GRPCServer) Run(ctx context.Context) error {

	// announces address
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	s.logger.Info(ctx, "Starting gRPC server", "address", listen.Addr().String())

	return s.Serve(ctx, listen)
}

// Serve accepts connections on lis until ctx is cancelled.
func (s *GRPCServer) Serve(ctx context.Context, lis net.Listener) error {

	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(s.loggingInterceptor))
	healthpb.RegisterHealthServer(srv, s.health)

	s.probe(ctx)

	go func() {
		ticker := time.NewTicker(s.probeInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				s.logger.Info(ctx, "Stopping gPRC server...")
				s.health.Shutdown()
				srv.GracefulStop()
				return
			case <-ticker.C:
				s.probe(ctx)
			}
		}
	}()

	// starts accepting incoming connections
	if err := srv.Serve(lis); err != nil {
		return err
	}

	return nil
}

func (s *GRPCServer) probe(ctx context.Context) {
	st := healthpb.HealthCheckResponse_SERVING
	if err := s.checker.Check(ctx); err != nil {
		s.logger.Warn(ctx, "store unreachable", "error", err)
		st = healthpb.HealthCheckResponse_NOT_SERVING
	}
	s.health.SetServingStatus("", st)
	s.health.SetServingStatus(ServiceName, st)
}
