/*
Package tracing correlates log lines that belong to one request.

Every HTTP request, gRPC call and D-Bus method call carries a request id
(req_<ulid>). The id is taken from the caller when present and generated
otherwise, stored in the context and attached to log lines.

# Propagation

  - HTTP: X-Request-ID request and response header
  - gRPC: x-request-id metadata key

# Usage

	// HTTP
	router.Use(tracing.HTTPMiddleware(logger))

	// gRPC server side
	ctx, reqID := tracing.FromIncoming(ctx)

	// gRPC client side
	conn, err := grpc.NewClient(addr,
		grpc.WithUnaryInterceptor(tracing.UnaryClientInterceptor()),
	)

	// Anywhere below
	logger.Warn("start failed", tracing.Field(ctx))
*/
package tracing
