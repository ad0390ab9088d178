package bus

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/godbus/dbus/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/GriffinCanCode/applaunchd/internal/domain/launcher"
	"github.com/GriffinCanCode/applaunchd/internal/shared/types"
)

const testPath = dbus.ObjectPath("/org/automotivelinux/AppLaunch")

type mockLauncher struct {
	mock.Mock
}

func (m *mockLauncher) StartApplication(ctx context.Context, id string) (launcher.StartResult, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(launcher.StartResult), args.Error(1)
}

func (m *mockLauncher) ListApplications() ([]types.AppInfo, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.AppInfo), args.Error(1)
}

type emitted struct {
	path   dbus.ObjectPath
	name   string
	values []interface{}
}

type fakeEmitter struct {
	mu    sync.Mutex
	calls []emitted
	err   error
}

func (f *fakeEmitter) Emit(path dbus.ObjectPath, name string, values ...interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, emitted{path: path, name: name, values: values})
	return f.err
}

func TestStart(t *testing.T) {
	l := &mockLauncher{}
	l.On("StartApplication", mock.Anything, "radio").Return(launcher.StartResult{Accepted: true}, nil)

	obj := NewObject(l, &fakeEmitter{}, testPath, zaptest.NewLogger(t))
	assert.Nil(t, obj.Start("radio"))
	l.AssertExpectations(t)
}

func TestStartErrors(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantName string
		wantBody string
	}{
		{
			name:     "unknown application",
			err:      fmt.Errorf("%w 'nonexistent'", types.ErrNotFound),
			wantName: ErrorInvalidArgs,
			wantBody: "Unknown application 'nonexistent'",
		},
		{
			name:     "start failed",
			err:      fmt.Errorf("%w 'nonexistent': %w", types.ErrStartFailed, errors.New("masked")),
			wantName: ErrorFailed,
			wantBody: "Failed to start application 'nonexistent'",
		},
		{
			name:     "unavailable",
			err:      types.ErrUnavailable,
			wantName: ErrorFailed,
			wantBody: types.ErrUnavailable.Error(),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := &mockLauncher{}
			l.On("StartApplication", mock.Anything, "nonexistent").Return(launcher.StartResult{}, tt.err)

			dbusErr := NewObject(l, nil, testPath, zaptest.NewLogger(t)).Start("nonexistent")
			require.NotNil(t, dbusErr)
			assert.Equal(t, tt.wantName, dbusErr.Name)
			assert.Equal(t, []interface{}{tt.wantBody}, dbusErr.Body)
		})
	}
}

func TestListApplications(t *testing.T) {
	l := &mockLauncher{}
	l.On("ListApplications").Return([]types.AppInfo{
		{ID: "radio", Name: "Radio", IconPath: "/usr/share/icons/radio.svg"},
		{ID: "navigation", Name: "Navigation"},
	}, nil)

	apps, dbusErr := NewObject(l, nil, testPath, zaptest.NewLogger(t)).ListApplications(true)
	require.Nil(t, dbusErr)
	require.Len(t, apps, 2)

	assert.Equal(t, "(sss)", apps[0].Signature().String())
	assert.Equal(t, appEntry{ID: "radio", Name: "Radio", IconPath: "/usr/share/icons/radio.svg"}, apps[0].Value())
	assert.Equal(t, appEntry{ID: "navigation", Name: "Navigation"}, apps[1].Value())
}

func TestListApplicationsUnavailable(t *testing.T) {
	l := &mockLauncher{}
	l.On("ListApplications").Return(nil, types.ErrUnavailable)

	_, dbusErr := NewObject(l, nil, testPath, zaptest.NewLogger(t)).ListApplications(false)
	require.NotNil(t, dbusErr)
	assert.Equal(t, ErrorFailed, dbusErr.Name)
}

func TestPublishEmitsSignals(t *testing.T) {
	emitter := &fakeEmitter{}
	obj := NewObject(&mockLauncher{}, emitter, testPath, zaptest.NewLogger(t))

	obj.Publish(types.Started("radio"))
	obj.Publish(types.Terminated("radio"))

	assert.Equal(t, []emitted{
		{path: testPath, name: "org.automotivelinux.AppLaunch.started", values: []interface{}{"radio"}},
		{path: testPath, name: "org.automotivelinux.AppLaunch.terminated", values: []interface{}{"radio"}},
	}, emitter.calls)
}

func TestPublishEmitFailureIsLogged(t *testing.T) {
	emitter := &fakeEmitter{err: errors.New("disconnected")}
	obj := NewObject(&mockLauncher{}, emitter, testPath, zaptest.NewLogger(t))

	assert.NotPanics(t, func() { obj.Publish(types.Started("radio")) })
	assert.Len(t, emitter.calls, 1)
}

func TestIntrospection(t *testing.T) {
	node := introspection(testPath)

	require.Len(t, node.Interfaces, 2)
	iface := node.Interfaces[1]
	assert.Equal(t, Interface, iface.Name)

	var methods, signals []string
	for _, m := range iface.Methods {
		methods = append(methods, m.Name)
	}
	for _, s := range iface.Signals {
		signals = append(signals, s.Name)
	}
	assert.ElementsMatch(t, []string{"start", "listApplications"}, methods)
	assert.ElementsMatch(t, []string{"started", "terminated"}, signals)

	// Every mapped Go method must exist under its bus name
	for _, busName := range methodNames {
		assert.Contains(t, methods, busName)
	}
}
