// Package ws serves lifecycle events over WebSocket.
//
// Each connection on GET /stream becomes a broadcast subscriber. Events
// are written as JSON objects:
//
//	{"id": "radio", "status": "started"}
//
// Clients may send {"type": "ping"} and receive {"type": "pong"}. The
// subscription ends when the client disconnects or the daemon shuts
// down; in the latter case the server sends a going-away close frame.
package ws
