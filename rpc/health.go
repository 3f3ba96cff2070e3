package rpc

import (
	"net"

	"github.com/wfunc/murderboard/logger"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// HealthService is the service name reported next to the empty overall name.
const HealthService = "murderboard"

// HealthServer serves grpc.health.v1.Health.
type HealthServer struct {
	listener net.Listener
	grpc     *grpc.Server
	health   *health.Server
}

func NewHealthServer(addr string) (*HealthServer, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}

	hs := health.NewServer()
	srv := grpc.NewServer()
	healthpb.RegisterHealthServer(srv, hs)

	return &HealthServer{listener: listener, grpc: srv, health: hs}, nil
}

func (h *HealthServer) Addr() string {
	return h.listener.Addr().String()
}

// Start blocks serving until Stop.
func (h *HealthServer) Start() {
	h.SetServing(true)
	logger.Log.Infof("Health server listening on %s", h.Addr())
	if err := h.grpc.Serve(h.listener); err != nil {
		logger.Log.Errorf("health server: %v", err)
	}
}

func (h *HealthServer) SetServing(serving bool) {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		status = healthpb.HealthCheckResponse_SERVING
	}
	h.health.SetServingStatus("", status)
	h.health.SetServingStatus(HealthService, status)
}

func (h *HealthServer) Stop() {
	h.health.Shutdown()
	h.grpc.GracefulStop()
}
