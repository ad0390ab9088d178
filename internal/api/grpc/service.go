package grpc

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/GriffinCanCode/applaunchd/internal/domain/broadcast"
	"github.com/GriffinCanCode/applaunchd/internal/domain/launcher"
	"github.com/GriffinCanCode/applaunchd/internal/shared/types"
)

// Launcher is the coordinator API the service exposes
type Launcher interface {
	StartApplication(ctx context.Context, id string) (launcher.StartResult, error)
	ListApplications() ([]types.AppInfo, error)
}

// Subscriber streams lifecycle events to a session
type Subscriber interface {
	Subscribe(session broadcast.Session) error
}

// Service implements AppLauncherServer on top of the domain components
type Service struct {
	launcher   Launcher
	subscriber Subscriber
	logger     *zap.Logger
}

// NewService creates the launcher gRPC service
func NewService(l Launcher, s Subscriber, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{launcher: l, subscriber: s, logger: logger}
}

// StartApplication dispatches a start request
func (s *Service) StartApplication(ctx context.Context, req *StartRequest) (*StartResponse, error) {
	res, err := s.launcher.StartApplication(ctx, req.ID)
	switch {
	case err == nil:
		return &StartResponse{Status: res.Accepted, Message: res.Message}, nil
	case errors.Is(err, types.ErrNotFound):
		return nil, status.Errorf(codes.NotFound, "Unknown application '%s'", req.ID)
	case errors.Is(err, types.ErrUnavailable):
		return nil, status.Error(codes.Unavailable, err.Error())
	case errors.Is(err, types.ErrStartFailed):
		// The request was valid; the outcome travels in the response
		return &StartResponse{Status: false, Message: res.Message}, nil
	default:
		return nil, status.Error(codes.Internal, err.Error())
	}
}

// ListApplications returns every registered application
func (s *Service) ListApplications(ctx context.Context, _ *ListRequest) (*ListResponse, error) {
	apps, err := s.launcher.ListApplications()
	if err != nil {
		if errors.Is(err, types.ErrUnavailable) {
			return nil, status.Error(codes.Unavailable, err.Error())
		}
		return nil, status.Error(codes.Internal, err.Error())
	}

	resp := &ListResponse{Apps: make([]AppInfo, 0, len(apps))}
	for _, app := range apps {
		resp.Apps = append(resp.Apps, AppInfo{ID: app.ID, Name: app.Name, IconPath: app.IconPath})
	}
	return resp, nil
}

// GetStatusEvents streams lifecycle events until the client leaves or
// the server shuts down
func (s *Service) GetStatusEvents(_ *StatusRequest, stream grpc.ServerStream) error {
	err := s.subscriber.Subscribe(&streamSession{stream: stream})
	switch {
	case err == nil:
		return nil
	case errors.Is(err, broadcast.ErrSlowSubscriber):
		return status.Error(codes.ResourceExhausted, err.Error())
	default:
		s.logger.Debug("Status stream ended", zap.Error(err))
		return err
	}
}

// streamSession adapts a server stream to broadcast.Session
type streamSession struct {
	stream grpc.ServerStream
}

func (s *streamSession) Context() context.Context {
	return s.stream.Context()
}

func (s *streamSession) Send(ev types.Event) error {
	return s.stream.SendMsg(&StatusResponse{App: &AppStatus{ID: ev.AppID, Status: string(ev.Kind)}})
}
