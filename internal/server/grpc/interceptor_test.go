package grpc

import (
	"context"
	"sync"
	"testing"

	"github.com/dmitrijs2005/pulsekeeper/internal/logging"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// recordingLogger keeps the messages it was given, per level.
type recordingLogger struct {
	mu    sync.Mutex
	debug []string
	warn  []string
}

func (r *recordingLogger) Debug(_ context.Context, msg string, _ ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.debug = append(r.debug, msg)
}
func (r *recordingLogger) Info(context.Context, string, ...any) {}
func (r *recordingLogger) Warn(_ context.Context, msg string, _ ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.warn = append(r.warn, msg)
}
func (r *recordingLogger) Error(context.Context, string, ...any) {}
func (r *recordingLogger) With(...any) logging.Logger            { return r }

func TestLoggingInterceptor_PassesThrough(t *testing.T) {
	log := &recordingLogger{}
	s := &GRPCServer{logger: log}
	info := &grpc.UnaryServerInfo{FullMethod: "/grpc.health.v1.Health/Check"}

	resp, err := s.loggingInterceptor(context.Background(), nil, info, func(ctx context.Context, req any) (any, error) {
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp != "ok" {
		t.Fatalf("unexpected handler resp: %v", resp)
	}
	if len(log.debug) != 1 || len(log.warn) != 0 {
		t.Fatalf("expected one debug line, got debug=%v warn=%v", log.debug, log.warn)
	}
}

func TestLoggingInterceptor_LogsFailures(t *testing.T) {
	log := &recordingLogger{}
	s := &GRPCServer{logger: log}
	info := &grpc.UnaryServerInfo{FullMethod: "/grpc.health.v1.Health/Check"}

	_, err := s.loggingInterceptor(context.Background(), nil, info, func(ctx context.Context, req any) (any, error) {
		return nil, status.Error(codes.NotFound, "unknown service")
	})
	if status.Code(err) != codes.NotFound {
		t.Fatalf("expected NotFound to pass through, got %v", err)
	}
	if len(log.warn) != 1 {
		t.Fatalf("expected one warn line, got %v", log.warn)
	}
}
