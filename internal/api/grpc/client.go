package grpc

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/keepalive"

	"github.com/GriffinCanCode/applaunchd/internal/infrastructure/tracing"
	"github.com/GriffinCanCode/applaunchd/internal/shared/types"
)

// Client talks to a running launcher daemon
type Client struct {
	conn *grpc.ClientConn
	addr string
}

// NewClient creates a client for addr. Messages are sent as protobuf;
// pass WithJSON to use the JSON subtype instead. Extra options are
// appended to the defaults.
func NewClient(addr string, opts ...grpc.DialOption) (*Client, error) {
	defaults := []grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithKeepaliveParams(keepalive.ClientParameters{
			Time:                60 * time.Second,
			Timeout:             20 * time.Second,
			PermitWithoutStream: false,
		}),
		grpc.WithUnaryInterceptor(tracing.UnaryClientInterceptor()),
		grpc.WithStreamInterceptor(tracing.StreamClientInterceptor()),
	}

	conn, err := grpc.NewClient(addr, append(defaults, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to create launcher client: %w", err)
	}
	return &Client{conn: conn, addr: addr}, nil
}

// WithJSON selects the JSON content-subtype for every call
func WithJSON() grpc.DialOption {
	return grpc.WithDefaultCallOptions(grpc.CallContentSubtype(CodecName))
}

// Close closes the connection
func (c *Client) Close() error {
	return c.conn.Close()
}

// StartApplication asks the daemon to start id
func (c *Client) StartApplication(ctx context.Context, id string) (*StartResponse, error) {
	resp := new(StartResponse)
	if err := c.conn.Invoke(ctx, MethodStartApplication, &StartRequest{ID: id}, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// ListApplications returns the daemon's application list
func (c *Client) ListApplications(ctx context.Context) ([]AppInfo, error) {
	resp := new(ListResponse)
	if err := c.conn.Invoke(ctx, MethodListApplications, &ListRequest{}, resp); err != nil {
		return nil, err
	}
	return resp.Apps, nil
}

// StatusEvents streams lifecycle events until ctx is done or the server
// closes the stream. The error channel receives at most one error.
func (c *Client) StatusEvents(ctx context.Context) (<-chan types.Event, <-chan error) {
	eventChan := make(chan types.Event, 16)
	errChan := make(chan error, 1)

	go func() {
		defer close(eventChan)
		defer close(errChan)

		stream, err := c.conn.NewStream(ctx, &serviceDesc.Streams[0], MethodGetStatusEvents)
		if err != nil {
			errChan <- fmt.Errorf("failed to open status stream: %w", err)
			return
		}
		if err := stream.SendMsg(&StatusRequest{}); err != nil {
			errChan <- fmt.Errorf("failed to send request: %w", err)
			return
		}
		if err := stream.CloseSend(); err != nil {
			errChan <- fmt.Errorf("failed to close send: %w", err)
			return
		}

		for {
			msg := new(StatusResponse)
			err := stream.RecvMsg(msg)
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				errChan <- err
				return
			}
			if msg.App == nil {
				continue
			}

			select {
			case eventChan <- types.Event{AppID: msg.App.ID, Kind: types.EventKind(msg.App.Status)}:
			case <-ctx.Done():
				return
			}
		}
	}()

	return eventChan, errChan
}
