package tracing

import (
	"context"

	"go.uber.org/zap"
	"google.golang.org/grpc/metadata"

	"github.com/GriffinCanCode/applaunchd/internal/shared/id"
)

const (
	// Header carries the request id over HTTP
	Header = "X-Request-ID"
	// MetadataKey carries the request id over gRPC
	MetadataKey = "x-request-id"
)

// maxIDLength bounds caller-supplied ids
const maxIDLength = 128

type contextKey struct{}

// WithRequestID stores reqID in ctx
func WithRequestID(ctx context.Context, reqID id.RequestID) context.Context {
	return context.WithValue(ctx, contextKey{}, reqID)
}

// RequestID returns the request id stored in ctx, or empty
func RequestID(ctx context.Context) id.RequestID {
	reqID, _ := ctx.Value(contextKey{}).(id.RequestID)
	return reqID
}

// Ensure returns ctx with a request id, generating one if needed
func Ensure(ctx context.Context) (context.Context, id.RequestID) {
	if reqID := RequestID(ctx); reqID != "" {
		return ctx, reqID
	}
	reqID := id.NewRequestID()
	return WithRequestID(ctx, reqID), reqID
}

// FromIncoming adopts the request id sent in incoming gRPC metadata,
// generating one when the caller sent none
func FromIncoming(ctx context.Context) (context.Context, id.RequestID) {
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if vals := md.Get(MetadataKey); len(vals) > 0 && accept(vals[0]) {
			reqID := id.RequestID(vals[0])
			return WithRequestID(ctx, reqID), reqID
		}
	}
	return Ensure(ctx)
}

// Field returns the request id of ctx as a log field
func Field(ctx context.Context) zap.Field {
	return zap.String("request_id", RequestID(ctx).String())
}

func accept(reqID string) bool {
	return reqID != "" && len(reqID) <= maxIDLength
}
