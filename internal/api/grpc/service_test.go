package grpc

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"github.com/GriffinCanCode/applaunchd/internal/domain/broadcast"
	"github.com/GriffinCanCode/applaunchd/internal/domain/launcher"
	"github.com/GriffinCanCode/applaunchd/internal/domain/lifecycle"
	"github.com/GriffinCanCode/applaunchd/internal/domain/registry"
	"github.com/GriffinCanCode/applaunchd/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/applaunchd/internal/shared/types"
	"github.com/GriffinCanCode/applaunchd/internal/testutil"
)

type available bool

func (a available) Available() bool { return bool(a) }

type harness struct {
	sup         *testutil.MockSupervisor
	broadcaster *broadcast.Broadcaster
	server      *Server
	client      *Client
	conn        *grpc.ClientConn
	dialer      grpc.DialOption
}

func newHarness(t *testing.T, connected bool) *harness {
	t.Helper()
	logger := zaptest.NewLogger(t)
	metrics := monitoring.NewMetrics()

	sup := testutil.NewMockSupervisor()
	sup.StubCatalog(
		testutil.App{ID: "radio", Description: "Radio"},
		testutil.App{ID: "navigation", Description: "Navigation"},
	)

	reg := registry.NewRegistry(logger)
	require.NoError(t, reg.Initialize(context.Background(), sup, nil, "agl-app*@*.service"))

	b := broadcast.NewBroadcaster(logger)
	tr := lifecycle.NewTracker(reg, sup, logger)
	tr.AddObserver(b)
	coord := launcher.NewCoordinator(reg, tr, available(connected), logger)

	srv := NewServer(NewService(coord, b, logger), metrics, logger)
	lis := bufconn.Listen(1024 * 1024)
	go func() { _ = srv.Serve(lis) }()

	dialer := grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
		return lis.DialContext(ctx)
	})
	client, err := NewClient("passthrough:///bufnet", dialer)
	require.NoError(t, err)

	conn, err := grpc.NewClient("passthrough:///bufnet", dialer, grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)

	h := &harness{sup: sup, broadcaster: b, server: srv, client: client, conn: conn, dialer: dialer}
	t.Cleanup(func() {
		_ = client.Close()
		_ = conn.Close()
		b.Shutdown()
		srv.Stop(500 * time.Millisecond)
	})
	return h
}

func TestListApplications(t *testing.T) {
	h := newHarness(t, true)

	apps, err := h.client.ListApplications(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []AppInfo{
		{ID: "radio", Name: "Radio"},
		{ID: "navigation", Name: "Navigation"},
	}, apps)
}

func TestStartApplicationNotFound(t *testing.T) {
	h := newHarness(t, true)

	_, err := h.client.StartApplication(context.Background(), "nonexistent")
	require.Error(t, err)

	st, ok := status.FromError(err)
	require.True(t, ok)
	assert.Equal(t, codes.NotFound, st.Code())
	assert.Equal(t, "Unknown application 'nonexistent'", st.Message())
	h.sup.AssertNotCalled(t, "StartUnit", mock.Anything, mock.Anything)
}

func TestStartApplicationFailed(t *testing.T) {
	h := newHarness(t, true)
	h.sup.On("Watch", "agl-app@radio.service").Return(nil)
	h.sup.On("StartUnit", mock.Anything, "agl-app@radio.service").Return(errors.New("job failed"))

	resp, err := h.client.StartApplication(context.Background(), "radio")
	require.NoError(t, err)
	assert.False(t, resp.Status)
	assert.Equal(t, "Failed to start application 'radio'", resp.Message)
}

func TestUnavailable(t *testing.T) {
	h := newHarness(t, false)

	_, err := h.client.StartApplication(context.Background(), "radio")
	assert.Equal(t, codes.Unavailable, status.Code(err))

	_, err = h.client.ListApplications(context.Background())
	assert.Equal(t, codes.Unavailable, status.Code(err))
}

func TestStartAndStream(t *testing.T) {
	h := newHarness(t, true)
	h.sup.On("Watch", "agl-app@radio.service").Return(nil)
	h.sup.On("StartUnit", mock.Anything, "agl-app@radio.service").Return(nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events, errs := h.client.StatusEvents(ctx)
	require.Eventually(t, func() bool { return h.broadcaster.Count() == 1 }, 2*time.Second, time.Millisecond)

	resp, err := h.client.StartApplication(ctx, "radio")
	require.NoError(t, err)
	assert.True(t, resp.Status)

	h.sup.Notify("agl-app@radio.service", lifecycle.PropertyActiveState, lifecycle.StateActive)
	h.sup.Notify("agl-app@radio.service", lifecycle.PropertyActiveState, lifecycle.StateInactive)

	var got []types.Event
	for len(got) < 2 {
		select {
		case ev := <-events:
			got = append(got, ev)
		case err := <-errs:
			t.Fatalf("stream failed: %v", err)
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for status events")
		}
	}
	assert.Equal(t, []types.Event{types.Started("radio"), types.Terminated("radio")}, got)
}

func TestStreamEndsOnShutdown(t *testing.T) {
	h := newHarness(t, true)

	events, errs := h.client.StatusEvents(context.Background())
	require.Eventually(t, func() bool { return h.broadcaster.Count() == 1 }, 2*time.Second, time.Millisecond)

	h.broadcaster.Shutdown()

	select {
	case _, open := <-events:
		assert.False(t, open)
	case <-time.After(2 * time.Second):
		t.Fatal("stream still open after shutdown")
	}
	assert.NoError(t, <-errs)
}

func TestHealth(t *testing.T) {
	h := newHarness(t, true)

	resp, err := healthpb.NewHealthClient(h.conn).Check(context.Background(), &healthpb.HealthCheckRequest{Service: ServiceName})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.GetStatus())
}
