package launcher

import (
	"context"
	"errors"
	"testing"

	"github.com/GriffinCanCode/applaunchd/internal/domain/broadcast"
	"github.com/GriffinCanCode/applaunchd/internal/domain/lifecycle"
	"github.com/GriffinCanCode/applaunchd/internal/domain/registry"
	"github.com/GriffinCanCode/applaunchd/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/applaunchd/internal/shared/types"
	"github.com/GriffinCanCode/applaunchd/internal/testutil"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type available bool

func (a available) Available() bool { return bool(a) }

type fixture struct {
	sup         *testutil.MockSupervisor
	tracker     *lifecycle.Tracker
	broadcaster *broadcast.Broadcaster
	coordinator *Coordinator
	metrics     *monitoring.Metrics
	events      *testutil.Recorder
}

func newFixture(t *testing.T, connected bool) *fixture {
	t.Helper()
	logger := zaptest.NewLogger(t)

	sup := testutil.NewMockSupervisor()
	sup.StubCatalog(
		testutil.App{ID: "radio", Description: "Radio"},
		testutil.App{ID: "navigation", Description: "Navigation"},
	)

	reg := registry.NewRegistry(logger)
	require.NoError(t, reg.Initialize(context.Background(), sup, nil, "agl-app*@*.service"))

	metrics := monitoring.NewMetrics()
	events := &testutil.Recorder{}
	b := broadcast.NewBroadcaster(logger)
	tr := lifecycle.NewTracker(reg, sup, logger)
	tr.AddObserver(events)
	tr.AddObserver(b)

	c := NewCoordinator(reg, tr, available(connected), logger).
		WithSubscribers(b).
		WithMetrics(metrics)

	t.Cleanup(b.Shutdown)
	return &fixture{sup: sup, tracker: tr, broadcaster: b, coordinator: c, metrics: metrics, events: events}
}

func TestStartApplication(t *testing.T) {
	f := newFixture(t, true)
	f.sup.On("Watch", "agl-app@radio.service").Return(nil)
	f.sup.On("StartUnit", mock.Anything, "agl-app@radio.service").Return(nil)

	res, err := f.coordinator.StartApplication(context.Background(), "radio")
	require.NoError(t, err)
	assert.True(t, res.Accepted)
	assert.Empty(t, res.Message)

	// Accepted does not mean running
	s, _ := f.tracker.Status("radio")
	assert.Equal(t, types.StatusStarting, s)
	assert.Empty(t, f.events.Events())

	f.sup.Notify("agl-app@radio.service", lifecycle.PropertyActiveState, lifecycle.StateActive)
	assert.Equal(t, []types.Event{types.Started("radio")}, f.events.Events())
	assert.Equal(t, 1.0, promtest.ToFloat64(f.metrics.StartRequests.WithLabelValues("accepted")))
}

func TestStartApplicationUnknown(t *testing.T) {
	f := newFixture(t, true)

	res, err := f.coordinator.StartApplication(context.Background(), "nonexistent")
	assert.ErrorIs(t, err, types.ErrNotFound)
	assert.Contains(t, err.Error(), "'nonexistent'")
	assert.False(t, res.Accepted)

	f.sup.AssertNotCalled(t, "Watch", mock.Anything)
	f.sup.AssertNotCalled(t, "StartUnit", mock.Anything, mock.Anything)
	assert.Empty(t, f.events.Events())
	assert.Equal(t, 1.0, promtest.ToFloat64(f.metrics.StartRequests.WithLabelValues("not_found")))
}

func TestStartApplicationMalformedID(t *testing.T) {
	f := newFixture(t, true)

	for _, id := range []string{"", "../radio", "radio app"} {
		_, err := f.coordinator.StartApplication(context.Background(), id)
		assert.ErrorIs(t, err, types.ErrNotFound, id)
	}
	f.sup.AssertNotCalled(t, "Watch", mock.Anything)
}

func TestStartApplicationFailure(t *testing.T) {
	f := newFixture(t, true)
	f.sup.On("Watch", "agl-app@radio.service").Return(nil)
	f.sup.On("StartUnit", mock.Anything, "agl-app@radio.service").Return(errors.New("job failed"))

	res, err := f.coordinator.StartApplication(context.Background(), "radio")
	assert.ErrorIs(t, err, types.ErrStartFailed)
	assert.False(t, res.Accepted)
	assert.Equal(t, "Failed to start application 'radio'", res.Message)
	assert.Equal(t, 1.0, promtest.ToFloat64(f.metrics.StartRequests.WithLabelValues("failed")))
}

func TestStartApplicationUnavailable(t *testing.T) {
	f := newFixture(t, false)

	_, err := f.coordinator.StartApplication(context.Background(), "radio")
	assert.ErrorIs(t, err, types.ErrUnavailable)
	f.sup.AssertNotCalled(t, "StartUnit", mock.Anything, mock.Anything)

	_, err = f.coordinator.ListApplications()
	assert.ErrorIs(t, err, types.ErrUnavailable)
}

func TestNilSupervisorUnavailable(t *testing.T) {
	c := NewCoordinator(registry.NewRegistry(nil), nil, nil, nil)

	_, err := c.StartApplication(context.Background(), "radio")
	assert.ErrorIs(t, err, types.ErrUnavailable)
	assert.False(t, c.Stats().Supervisor)
}

func TestListApplications(t *testing.T) {
	f := newFixture(t, true)

	apps, err := f.coordinator.ListApplications()
	require.NoError(t, err)
	assert.Equal(t, []types.AppInfo{
		{ID: "radio", Name: "Radio"},
		{ID: "navigation", Name: "Navigation"},
	}, apps)
}

func TestStats(t *testing.T) {
	f := newFixture(t, true)

	stats := f.coordinator.Stats()
	assert.Equal(t, types.Stats{RegisteredApps: 2, Subscribers: 0, Supervisor: true}, stats)
}
