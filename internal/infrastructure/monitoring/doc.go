/*
Package monitoring provides Prometheus metrics for the launcher daemon.

# Overview

Metrics live on a private registry so each daemon (and each test) owns an
independent set of collectors. The registry carries the Go runtime and
process collectors alongside launcher metrics.

# Metrics

- Start requests by result (accepted, failed, not_found, unavailable)
- Lifecycle events by kind (started, terminated)
- Registered and running applications
- Live and dropped status subscribers
- Unit supervisor, gRPC, HTTP and D-Bus calls
- WebSocket connections and uptime

# Usage

	metrics := monitoring.NewMetrics()
	router.Use(monitoring.Middleware(metrics))
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	timer := monitoring.NewTimer(metrics, "StartUnit")
	err := conn.StartUnit(...)
	timer.StopErr(err)
*/
package monitoring
