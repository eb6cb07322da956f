package grpcapi

import (
	"context"
	"log/slog"
	"sync"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// ServiceName is the name load balancers query for the checkout API.
const ServiceName = "checkout.PaymentService"

type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler serves grpc.health.v1.Health. Its status follows the store:
// without a store the service cannot reconcile payments.
type HealthHandler struct {
	server *health.Server
	store  Pinger

	mu      sync.Mutex
	serving bool
}

func NewHealthHandler(store Pinger) *HealthHandler {
	h := &HealthHandler{
		server: health.NewServer(),
		store:  store,
	}
	h.set(healthpb.HealthCheckResponse_NOT_SERVING)
	return h
}

func (h *HealthHandler) Register(s *grpc.Server) {
	healthpb.RegisterHealthServer(s, h.server)
}

// Probe pings the store once and publishes the result.
func (h *HealthHandler) Probe(ctx context.Context) error {
	err := h.store.Ping(ctx)

	h.mu.Lock()
	defer h.mu.Unlock()
	switch {
	case err != nil && h.serving:
		slog.Error("store ping failed, reporting NOT_SERVING", "error", err.Error())
		h.serving = false
		h.set(healthpb.HealthCheckResponse_NOT_SERVING)
	case err == nil && !h.serving:
		slog.Info("store reachable, reporting SERVING")
		h.serving = true
		h.set(healthpb.HealthCheckResponse_SERVING)
	}
	return err
}

// Shutdown flips every service to NOT_SERVING ahead of a graceful stop.
func (h *HealthHandler) Shutdown() {
	h.server.Shutdown()
}

func (h *HealthHandler) set(status healthpb.HealthCheckResponse_ServingStatus) {
	h.server.SetServingStatus("", status)
	h.server.SetServingStatus(ServiceName, status)
}
