package grpc

import (
	"context"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/GriffinCanCode/applaunchd/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/applaunchd/internal/infrastructure/tracing"
	"github.com/GriffinCanCode/applaunchd/internal/shared/id"
)

// UnaryInterceptor records metrics, logs each call and turns panics
// into Internal errors
func UnaryInterceptor(metrics *monitoring.Metrics, logger *zap.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp any, err error) {
		start := time.Now()
		ctx, reqID := tracing.FromIncoming(ctx)

		defer func() {
			if r := recover(); r != nil {
				logger.Error("Panic in gRPC handler",
					zap.String("request_id", reqID.String()),
					zap.String("method", info.FullMethod),
					zap.Any("panic", r))
				err = status.Error(codes.Internal, "internal error")
			}
			observe(metrics, logger, reqID, info.FullMethod, err, time.Since(start))
		}()

		return handler(ctx, req)
	}
}

// StreamInterceptor records metrics and logs each stream when it ends
func StreamInterceptor(metrics *monitoring.Metrics, logger *zap.Logger) grpc.StreamServerInterceptor {
	return func(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) (err error) {
		start := time.Now()
		ctx, reqID := tracing.FromIncoming(ss.Context())

		logger.Debug("gRPC stream opened",
			zap.String("request_id", reqID.String()),
			zap.String("method", info.FullMethod))

		defer func() {
			if r := recover(); r != nil {
				logger.Error("Panic in gRPC stream",
					zap.String("request_id", reqID.String()),
					zap.String("method", info.FullMethod),
					zap.Any("panic", r))
				err = status.Error(codes.Internal, "internal error")
			}
			observe(metrics, logger, reqID, info.FullMethod, err, time.Since(start))
		}()

		return handler(srv, &tracedStream{ServerStream: ss, ctx: ctx})
	}
}

// tracedStream carries the request id in the stream context
type tracedStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (s *tracedStream) Context() context.Context {
	return s.ctx
}

func observe(metrics *monitoring.Metrics, logger *zap.Logger, reqID id.RequestID, method string, err error, d time.Duration) {
	code := status.Code(err)
	if metrics != nil {
		metrics.RecordGRPCCall(method, code.String(), d)
	}

	fields := []zap.Field{
		zap.String("request_id", reqID.String()),
		zap.String("method", method),
		zap.String("code", code.String()),
		zap.Duration("duration", d),
	}
	switch code {
	case codes.OK, codes.NotFound, codes.Canceled:
		logger.Debug("gRPC call", fields...)
	default:
		logger.Warn("gRPC call failed", append(fields, zap.Error(err))...)
	}
}
