// Package health exposes the standard gRPC health service for the worker
// binaries, which have no HTTP API of their own.
package health

import (
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

type Server struct {
	gs     *grpc.Server
	health *health.Server
}

// Serve starts listening on addr and reports NOT_SERVING for service until
// SetServing is called.
func Serve(addr, service string) (*Server, error) {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	s := New(service)
	go func() {
		_ = s.gs.Serve(lis)
	}()
	return s, nil
}

func New(service string) *Server {
	gs := grpc.NewServer()
	hs := health.NewServer()
	hs.SetServingStatus(service, healthpb.HealthCheckResponse_NOT_SERVING)
	healthpb.RegisterHealthServer(gs, hs)
	return &Server{gs: gs, health: hs}
}

func (s *Server) SetServing(service string, serving bool) {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		status = healthpb.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus(service, status)
}

func (s *Server) GracefulStop() {
	s.health.Shutdown()
	s.gs.GracefulStop()
}
