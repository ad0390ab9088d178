// Package config loads launcher configuration.
//
// Sources, in increasing precedence:
//   - Built-in defaults (Default)
//   - A YAML file named by APPLAUNCHD_CONFIG
//   - Environment variables (12-factor)
//
// The merged result is checked against its validate struct tags before
// Load returns.
//
// Example file:
//
//	grpc:
//	  address: 0.0.0.0:50052
//	systemd:
//	  unit_pattern: "agl-app*@*.service"
//	shutdown_grace: 750ms
package config
