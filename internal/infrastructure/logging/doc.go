// Package logging provides structured logging using uber/zap.
//
// Two modes are supported:
//   - Production: JSON output for the journal and log shippers
//   - Development: Colored console output for humans
//
// Components receive a named child logger:
//
//	logger := logging.NewFromLevel("info", false)
//	tracker := lifecycle.NewTracker(reg, units, logger.Component("lifecycle"))
//	logger.Info("Server starting", zap.String("grpc", addr))
package logging
