package cmd

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	grpcapi "github.com/GriffinCanCode/applaunchd/internal/api/grpc"
	"github.com/GriffinCanCode/applaunchd/internal/domain/broadcast"
	"github.com/GriffinCanCode/applaunchd/internal/domain/launcher"
	"github.com/GriffinCanCode/applaunchd/internal/shared/types"
)

type fakeLauncher struct{}

func (fakeLauncher) StartApplication(_ context.Context, id string) (launcher.StartResult, error) {
	if id != "radio" {
		return launcher.StartResult{}, fmt.Errorf("%w '%s'", types.ErrNotFound, id)
	}
	return launcher.StartResult{Accepted: true}, nil
}

func (fakeLauncher) ListApplications() ([]types.AppInfo, error) {
	return []types.AppInfo{{ID: "radio", Name: "Radio"}}, nil
}

func startDaemon(t *testing.T) (string, *broadcast.Broadcaster) {
	t.Helper()

	b := broadcast.NewBroadcaster(zap.NewNop())
	srv := grpcapi.NewServer(grpcapi.NewService(fakeLauncher{}, b, zap.NewNop()), nil, zap.NewNop())

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go srv.Serve(lis)

	t.Cleanup(func() {
		b.Shutdown()
		srv.Stop(time.Second)
	})
	return lis.Addr().String(), b
}

func run(args ...string) (string, error) {
	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetErr(&buf)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return buf.String(), err
}

func TestList(t *testing.T) {
	addr, _ := startDaemon(t)

	out, err := run("--addr", addr, "--output", "json", "list")
	require.NoError(t, err)
	assert.Contains(t, out, `"id": "radio"`)
	assert.Contains(t, out, `"name": "Radio"`)

	out, err = run("--addr", addr, "--output", "table", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "radio")
	assert.Contains(t, out, "Total applications: 1")
}

func TestStart(t *testing.T) {
	addr, _ := startDaemon(t)

	out, err := run("--addr", addr, "--output", "table", "start", "radio")
	require.NoError(t, err)
	assert.Contains(t, out, "Start requested for 'radio'")

	_, err = run("--addr", addr, "--output", "table", "start", "unknown")
	require.Error(t, err)
	assert.Equal(t, codes.NotFound, status.Code(err))
}

func TestWatch(t *testing.T) {
	addr, b := startDaemon(t)

	type result struct {
		out string
		err error
	}
	done := make(chan result, 1)
	go func() {
		out, err := run("--addr", addr, "--output", "table", "watch")
		done <- result{out, err}
	}()

	require.Eventually(t, func() bool { return b.Count() == 1 }, 2*time.Second, 10*time.Millisecond)
	b.Publish(types.Started("radio"))
	b.Publish(types.Terminated("radio"))

	// Give the stream a moment to drain before the daemon goes away
	time.Sleep(100 * time.Millisecond)
	b.Shutdown()

	select {
	case res := <-done:
		require.NoError(t, res.err)
		assert.Contains(t, res.out, "started")
		assert.Contains(t, res.out, "terminated")
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not return after shutdown")
	}
}
