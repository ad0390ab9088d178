// Package grpc exposes the launcher over gRPC as the
// automotivegradelinux.AppLauncher service.
//
// Messages are plain Go structs with a hand-written proto3 encoding, so
// clients generated from proto/applaunch/applaunch.proto interoperate
// without generated code here. A sonic JSON codec is also registered
// under the "json" content-subtype (see WithJSON).
//
//	client, err := grpc.NewClient("localhost:50052")
//	apps, err := client.ListApplications(ctx)
//	events, errs := client.StatusEvents(ctx)
//
// The server also registers the standard health service, which reports
// NOT_SERVING once shutdown begins.
package grpc
