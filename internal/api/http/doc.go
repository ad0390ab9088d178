// Package http exposes the launcher over HTTP/JSON with gin.
//
// Routes:
//   - GET  /health          daemon status and counts
//   - GET  /apps            registered applications
//   - POST /apps/:id/start  start request; 404 unknown id, 503 no supervisor
//   - GET  /stream          lifecycle events over WebSocket
//   - GET  /metrics         Prometheus exposition
//   - GET  /metrics/summary JSON counters for dashboards
package http
