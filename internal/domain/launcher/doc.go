// Package launcher is the caller-facing entry point for start requests
// and the application list. Every transport façade (gRPC, D-Bus, HTTP)
// goes through one Coordinator.
package launcher
