package grpc

import (
	"context"

	"google.golang.org/grpc"
)

// ServiceName is the fully qualified launcher service name
const ServiceName = "automotivegradelinux.AppLauncher"

// Full method names
const (
	MethodStartApplication = "/" + ServiceName + "/StartApplication"
	MethodListApplications = "/" + ServiceName + "/ListApplications"
	MethodGetStatusEvents  = "/" + ServiceName + "/GetStatusEvents"
)

// StartRequest asks for an application to be started
type StartRequest struct {
	ID string `json:"id"`
}

// StartResponse reports whether the start was dispatched
type StartResponse struct {
	Status  bool   `json:"status"`
	Message string `json:"message,omitempty"`
}

// ListRequest asks for the application list
type ListRequest struct{}

// AppInfo describes one launchable application
type AppInfo struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	IconPath string `json:"icon_path"`
}

// ListResponse carries the application list
type ListResponse struct {
	Apps []AppInfo `json:"apps"`
}

// StatusRequest opens the status event stream
type StatusRequest struct{}

// AppStatus is one lifecycle event
type AppStatus struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// StatusResponse is one message on the status event stream
type StatusResponse struct {
	App *AppStatus `json:"app,omitempty"`
}

// AppLauncherServer is the server API for the launcher service
type AppLauncherServer interface {
	StartApplication(ctx context.Context, req *StartRequest) (*StartResponse, error)
	ListApplications(ctx context.Context, req *ListRequest) (*ListResponse, error)
	GetStatusEvents(req *StatusRequest, stream grpc.ServerStream) error
}

// RegisterAppLauncherServer registers srv on s
func RegisterAppLauncherServer(s grpc.ServiceRegistrar, srv AppLauncherServer) {
	s.RegisterService(&serviceDesc, srv)
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*AppLauncherServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "StartApplication", Handler: startApplicationHandler},
		{MethodName: "ListApplications", Handler: listApplicationsHandler},
	},
	Streams: []grpc.StreamDesc{
		{StreamName: "GetStatusEvents", Handler: getStatusEventsHandler, ServerStreams: true},
	},
	Metadata: "applaunch/applaunch.proto",
}

func startApplicationHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(StartRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(AppLauncherServer).StartApplication(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: MethodStartApplication}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(AppLauncherServer).StartApplication(ctx, req.(*StartRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func listApplicationsHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(ListRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(AppLauncherServer).ListApplications(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: MethodListApplications}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(AppLauncherServer).ListApplications(ctx, req.(*ListRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func getStatusEventsHandler(srv any, stream grpc.ServerStream) error {
	in := new(StatusRequest)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	return srv.(AppLauncherServer).GetStatusEvents(in, stream)
}
