package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/GriffinCanCode/applaunchd/internal/infrastructure/config"
	"github.com/GriffinCanCode/applaunchd/internal/infrastructure/server"
)

func main() {
	cfg, err := loadConfig(os.Args[1:])
	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv, err := server.NewServer(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to create server: %v", err)
	}

	if err := srv.Start(); err != nil {
		srv.Close()
		log.Fatalf("Failed to start server: %v", err)
	}

	// Wait for shutdown signal or error
	select {
	case <-ctx.Done():
		srv.Close()
	case err := <-srv.Errors():
		srv.Close()
		log.Fatalf("Server error: %v", err)
	}
}

// loadConfig layers command-line flags over the loaded configuration and
// validates the result.
func loadConfig(args []string) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	fs := flag.NewFlagSet("applaunchd", flag.ContinueOnError)
	fs.StringVar(&cfg.GRPC.Address, "grpc", cfg.GRPC.Address, "gRPC listen address")
	fs.StringVar(&cfg.HTTP.Address, "http", cfg.HTTP.Address, "HTTP listen address")
	fs.StringVar(&cfg.Systemd.UnitPattern, "pattern", cfg.Systemd.UnitPattern, "Application unit pattern")
	fs.BoolVar(&cfg.Systemd.UserBus, "user", cfg.Systemd.UserBus, "Use the per-user systemd instance")
	fs.BoolVar(&cfg.DBus.Enabled, "dbus", cfg.DBus.Enabled, "Export the D-Bus interface")
	fs.StringVar(&cfg.Logging.Level, "log-level", cfg.Logging.Level, "Log level (debug, info, warn, error)")
	fs.BoolVar(&cfg.Logging.Development, "dev", cfg.Logging.Development, "Development logging")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
