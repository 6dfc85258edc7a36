package server

import (
	"context"
	"net"
	"time"

	"github.com/SARVESHVARADKAR123/RealChat/rooms/internal/observability"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// HealthServer exposes the standard gRPC health service for orchestration
// probes. Its status follows the readiness checks.
type HealthServer struct {
	grpc   *grpc.Server
	health *health.Server
	checks []observability.ReadinessCheck
}

func NewHealthServer(checks ...observability.ReadinessCheck) *HealthServer {
	srv := grpc.NewServer(grpc.StatsHandler(otelgrpc.NewServerHandler()))
	h := health.NewServer()
	healthpb.RegisterHealthServer(srv, h)
	return &HealthServer{grpc: srv, health: h, checks: checks}
}

// Serve blocks until the listener fails or Stop is called.
func (h *HealthServer) Serve(lis net.Listener) error {
	h.refresh(context.Background())
	return h.grpc.Serve(lis)
}

// Watch re-evaluates readiness every interval until ctx is done.
func (h *HealthServer) Watch(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.refresh(ctx)
		}
	}
}

func (h *HealthServer) refresh(ctx context.Context) {
	status := healthpb.HealthCheckResponse_SERVING
	for _, check := range h.checks {
		cctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		err := check(cctx)
		cancel()
		if err != nil {
			observability.GetLogger(ctx).Warn("readiness check failed", zap.Error(err))
			status = healthpb.HealthCheckResponse_NOT_SERVING
			break
		}
	}
	h.health.SetServingStatus("", status)
}

// Stop marks the service NOT_SERVING and drains in-flight calls.
func (h *HealthServer) Stop() {
	h.health.Shutdown()
	h.grpc.GracefulStop()
}
