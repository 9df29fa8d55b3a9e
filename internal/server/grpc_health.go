package server

import (
	"errors"
	"log/slog"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
)

// HealthServer exposes the standard gRPC health service for orchestrators that check liveness over gRPC.
type HealthServer struct {
	grpc   *grpc.Server
	health *health.Server
	logger *slog.Logger
}

func NewHealthServer(logger *slog.Logger) *HealthServer {
	if logger == nil {
		logger = slog.Default()
	}
	gs := grpc.NewServer()
	hs := health.NewServer()
	grpc_health_v1.RegisterHealthServer(gs, hs)
	// empty service name means overall server health
	hs.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	return &HealthServer{grpc: gs, health: hs, logger: logger}
}

// Serve blocks until Shutdown is called or lis fails.
func (h *HealthServer) Serve(lis net.Listener) error {
	h.logger.Info("grpc.health.listening", "addr", lis.Addr().String())
	if err := h.grpc.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return err
	}
	return nil
}

// Shutdown flips every service to NOT_SERVING, then stops gracefully.
func (h *HealthServer) Shutdown() {
	h.health.Shutdown()
	h.grpc.GracefulStop()
}
