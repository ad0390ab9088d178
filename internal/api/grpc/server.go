package grpc

import (
	"net"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/keepalive"

	"github.com/GriffinCanCode/applaunchd/internal/infrastructure/monitoring"
)

// Server hosts the launcher and health services
type Server struct {
	srv    *grpc.Server
	health *health.Server
	logger *zap.Logger
}

// NewServer creates a gRPC server for svc
func NewServer(svc AppLauncherServer, metrics *monitoring.Metrics, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}

	srv := grpc.NewServer(
		grpc.ChainUnaryInterceptor(UnaryInterceptor(metrics, logger)),
		grpc.ChainStreamInterceptor(StreamInterceptor(metrics, logger)),
		// Status streams are long-lived and mostly idle
		grpc.KeepaliveEnforcementPolicy(keepalive.EnforcementPolicy{
			MinTime:             30 * time.Second,
			PermitWithoutStream: true,
		}),
		grpc.KeepaliveParams(keepalive.ServerParameters{
			Time:    2 * time.Minute,
			Timeout: 20 * time.Second,
		}),
		grpc.MaxRecvMsgSize(1024*1024),
	)

	hs := health.NewServer()
	RegisterAppLauncherServer(srv, svc)
	healthpb.RegisterHealthServer(srv, hs)
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)

	return &Server{srv: srv, health: hs, logger: logger}
}

// Serve accepts connections on lis until Stop
func (s *Server) Serve(lis net.Listener) error {
	s.logger.Info("gRPC server listening", zap.String("addr", lis.Addr().String()))
	return s.srv.Serve(lis)
}

// Stop marks the server NOT_SERVING, waits up to grace for in-flight
// calls and then closes every connection
func (s *Server) Stop(grace time.Duration) {
	s.health.Shutdown()

	done := make(chan struct{})
	go func() {
		s.srv.GracefulStop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(grace):
		s.logger.Warn("gRPC graceful stop timed out, forcing", zap.Duration("grace", grace))
		s.srv.Stop()
		<-done
	}
}
