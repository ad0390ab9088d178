// Package main is the entry point for the application launcher daemon.
//
// The daemon discovers applications from systemd units matching a
// pattern (agl-app*@*.service by default), starts them on request and
// publishes started/terminated events to subscribers.
//
// Surfaces:
//   - gRPC on -grpc (StartApplication, ListApplications, GetStatusEvents)
//   - D-Bus on the session bus (org.automotivelinux.AppLaunch)
//   - HTTP/WebSocket on -http
//
// Configuration:
//   - Optional YAML file named by APPLAUNCHD_CONFIG
//   - Environment variables (12-factor)
//   - CLI flags (override both)
//
// Usage:
//
//	applaunchd -grpc localhost:50052 -http localhost:8052
//
//	# Per-user instance with debug logs
//	applaunchd -user -log-level debug -dev
//
// Signals:
//   - SIGINT, SIGTERM: Graceful shutdown
package main
