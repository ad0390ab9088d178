package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/applaunchd/internal/api/bus"
	grpcapi "github.com/GriffinCanCode/applaunchd/internal/api/grpc"
	httpapi "github.com/GriffinCanCode/applaunchd/internal/api/http"
	"github.com/GriffinCanCode/applaunchd/internal/api/middleware"
	"github.com/GriffinCanCode/applaunchd/internal/api/ws"
	"github.com/GriffinCanCode/applaunchd/internal/domain/broadcast"
	"github.com/GriffinCanCode/applaunchd/internal/domain/launcher"
	"github.com/GriffinCanCode/applaunchd/internal/domain/lifecycle"
	"github.com/GriffinCanCode/applaunchd/internal/domain/registry"
	"github.com/GriffinCanCode/applaunchd/internal/infrastructure/config"
	"github.com/GriffinCanCode/applaunchd/internal/infrastructure/icons"
	"github.com/GriffinCanCode/applaunchd/internal/infrastructure/logging"
	"github.com/GriffinCanCode/applaunchd/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/applaunchd/internal/supervisor/systemd"
)

// Supervisor is the unit supervisor as the daemon uses it
type Supervisor interface {
	registry.UnitLister
	lifecycle.UnitController
	Available() bool
	Close()
}

// Server owns every component of the launcher daemon
type Server struct {
	config  *config.Config
	logger  *logging.Logger
	metrics *monitoring.Metrics

	supervisor  Supervisor
	registry    *registry.Registry
	tracker     *lifecycle.Tracker
	broadcaster *broadcast.Broadcaster
	coordinator *launcher.Coordinator

	bus     *bus.Service
	grpc    *grpcapi.Server
	router  *gin.Engine
	httpSrv *http.Server

	grpcAddr net.Addr
	httpAddr net.Addr
	errs     chan error

	closeOnce sync.Once
}

// NewServer connects to the unit supervisor and assembles the daemon.
// A missing supervisor is not fatal: the daemon serves an empty
// catalog and reports itself unavailable.
func NewServer(ctx context.Context, cfg *config.Config) (*Server, error) {
	logger := logging.NewFromLevel(cfg.Logging.Level, cfg.Logging.Development)

	logger.Info("Initializing launcher daemon",
		zap.String("grpc_addr", cfg.GRPC.Address),
		zap.String("http_addr", cfg.HTTP.Address),
		zap.String("unit_pattern", cfg.Systemd.UnitPattern),
	)

	metrics := monitoring.NewMetrics()

	var sup Supervisor
	conn, err := systemd.Connect(ctx, cfg.Systemd, logger.Component("systemd"), metrics)
	if err != nil {
		logger.Error("Unit supervisor unavailable", zap.Error(err))
	} else {
		sup = conn
	}

	return newServer(ctx, cfg, logger, metrics, sup)
}

func newServer(ctx context.Context, cfg *config.Config, logger *logging.Logger, metrics *monitoring.Metrics, sup Supervisor) (*Server, error) {
	s := &Server{
		config:     cfg,
		logger:     logger,
		metrics:    metrics,
		supervisor: sup,
		errs:       make(chan error, 2),
	}

	// Interface values holding a nil pointer would look connected
	var (
		lister      registry.UnitLister
		controller  lifecycle.UnitController
		availableIf launcher.Supervisor
	)
	if sup != nil {
		lister, controller, availableIf = sup, sup, sup
	}

	resolver := icons.NewResolver(cfg.Icons.SearchDirs(), logger.Component("icons"))
	s.registry = registry.NewRegistry(logger.Component("registry")).WithMetrics(metrics)
	if err := s.registry.Initialize(ctx, lister, resolver, cfg.Systemd.UnitPattern); err != nil {
		return nil, fmt.Errorf("failed to initialize registry: %w", err)
	}

	s.tracker = lifecycle.NewTracker(s.registry, controller, logger.Component("lifecycle")).
		WithMetrics(metrics).
		WithStartTimeout(cfg.Systemd.CallTimeout)
	s.broadcaster = broadcast.NewBroadcaster(logger.Component("broadcast")).WithMetrics(metrics)
	s.tracker.AddObserver(s.broadcaster)

	s.coordinator = launcher.NewCoordinator(s.registry, s.tracker, availableIf, logger.Component("launcher")).
		WithSubscribers(s.broadcaster).
		WithMetrics(metrics)

	if cfg.DBus.Enabled {
		svc, err := bus.Export(cfg.DBus, s.coordinator, logger.Component("dbus"), metrics)
		if err != nil {
			logger.Warn("D-Bus interface disabled", zap.Error(err))
		} else {
			s.bus = svc
			s.tracker.AddObserver(svc.Object())
		}
	}

	if cfg.GRPC.Enabled {
		svc := grpcapi.NewService(s.coordinator, s.broadcaster, logger.Component("grpc"))
		s.grpc = grpcapi.NewServer(svc, metrics, logger.Component("grpc"))
	}

	if cfg.HTTP.Enabled {
		s.router = s.newRouter()
	}

	logger.Info("Launcher daemon initialized",
		zap.Int("apps", s.registry.Len()),
		zap.Bool("supervisor", s.coordinator.Connected()),
		zap.Bool("dbus", s.bus != nil),
	)
	return s, nil
}

func (s *Server) newRouter() *gin.Engine {
	if !s.config.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}

	cfg := httpapi.RouterConfig{CORS: middleware.DefaultCORSConfig()}
	if rl := s.config.RateLimit; rl.Enabled {
		s.logger.Info("Rate limiting enabled",
			zap.Int("rps", rl.RequestsPerSecond),
			zap.Int("burst", rl.Burst),
		)
		cfg.RateLimit = &middleware.RateLimitConfig{
			RequestsPerSecond: rl.RequestsPerSecond,
			Burst:             rl.Burst,
		}
	}

	log := s.logger.Component("http")
	handlers := httpapi.NewHandlers(s.coordinator, s.metrics, log)
	stream := ws.NewHandler(s.broadcaster, s.metrics, log)
	return httpapi.NewRouter(cfg, handlers, stream.HandleConnection, s.metrics, log)
}

// Start binds the enabled listeners and serves them in the background.
// Serve failures are reported on Errors.
func (s *Server) Start() error {
	if s.grpc != nil {
		lis, err := net.Listen("tcp", s.config.GRPC.Address)
		if err != nil {
			return fmt.Errorf("failed to listen on %s: %w", s.config.GRPC.Address, err)
		}
		s.grpcAddr = lis.Addr()
		go func() {
			if err := s.grpc.Serve(lis); err != nil {
				s.errs <- fmt.Errorf("grpc: %w", err)
			}
		}()
	}

	if s.router != nil {
		lis, err := net.Listen("tcp", s.config.HTTP.Address)
		if err != nil {
			return fmt.Errorf("failed to listen on %s: %w", s.config.HTTP.Address, err)
		}
		s.httpAddr = lis.Addr()
		s.httpSrv = &http.Server{
			Handler:           s.router,
			ReadHeaderTimeout: 10 * time.Second,
		}
		s.logger.Info("Starting HTTP server", zap.String("addr", s.httpAddr.String()))
		go func() {
			if err := s.httpSrv.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
				s.errs <- fmt.Errorf("http: %w", err)
			}
		}()
	}

	return nil
}

// Errors reports listeners that stopped unexpectedly
func (s *Server) Errors() <-chan error {
	return s.errs
}

// GRPCAddr returns the bound gRPC address, or empty before Start
func (s *Server) GRPCAddr() string {
	if s.grpcAddr == nil {
		return ""
	}
	return s.grpcAddr.String()
}

// HTTPAddr returns the bound HTTP address, or empty before Start
func (s *Server) HTTPAddr() string {
	if s.httpAddr == nil {
		return ""
	}
	return s.httpAddr.String()
}

// Close shuts the daemon down. Status streams are woken first so the
// listeners can drain within the configured grace period.
func (s *Server) Close() {
	s.closeOnce.Do(func() {
		grace := s.config.ShutdownGrace
		s.logger.Info("Shutting down launcher daemon", zap.Duration("grace", grace))

		s.broadcaster.Shutdown()

		if s.grpc != nil {
			s.grpc.Stop(grace)
		}

		if s.httpSrv != nil {
			ctx, cancel := context.WithTimeout(context.Background(), grace)
			if err := s.httpSrv.Shutdown(ctx); err != nil {
				s.logger.Warn("HTTP server did not drain", zap.Error(err))
				_ = s.httpSrv.Close()
			}
			cancel()
		}

		if s.bus != nil {
			s.bus.Close()
		}

		s.tracker.Close()

		if s.supervisor != nil {
			s.supervisor.Close()
		}

		s.logger.Info("Launcher daemon stopped")
		s.logger.Sync()
	})
}
