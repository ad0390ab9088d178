// Package testutil provides test doubles shared by the launcher packages.
package testutil

import (
	"context"
	"sync"

	"github.com/GriffinCanCode/applaunchd/internal/shared/types"
	"github.com/stretchr/testify/mock"
)

// MockSupervisor is a testify mock of the systemd unit supervisor.
//
// Watch registrations are captured so tests can deliver property
// notifications with Notify, the way the systemd dispatch loop would.
type MockSupervisor struct {
	mock.Mock

	mu       sync.Mutex
	next     int
	watchers map[string]watcher
}

type watcher struct {
	id int
	fn func(property, value string)
}

// NewMockSupervisor creates a mock with no expectations.
func NewMockSupervisor() *MockSupervisor {
	return &MockSupervisor{watchers: make(map[string]watcher)}
}

// ListUnits mocks unit file enumeration.
func (m *MockSupervisor) ListUnits(ctx context.Context, pattern string) ([]types.UnitFile, error) {
	args := m.Called(ctx, pattern)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.UnitFile), args.Error(1)
}

// Describe mocks the Description property lookup.
func (m *MockSupervisor) Describe(ctx context.Context, unit string) (string, error) {
	args := m.Called(ctx, unit)
	return args.String(0), args.Error(1)
}

// StartUnit mocks the start command.
func (m *MockSupervisor) StartUnit(ctx context.Context, unit string) error {
	args := m.Called(ctx, unit)
	return args.Error(0)
}

// Watch mocks watch registration and captures fn for Notify.
func (m *MockSupervisor) Watch(unit string, fn func(property, value string)) (func(), error) {
	args := m.Called(unit)
	if err := args.Error(0); err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.next++
	id := m.next
	m.watchers[unit] = watcher{id: id, fn: fn}
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		if w, ok := m.watchers[unit]; ok && w.id == id {
			delete(m.watchers, unit)
		}
	}, nil
}

// Handler returns the live watch handler for unit, or nil.
func (m *MockSupervisor) Handler(unit string) func(property, value string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.watchers[unit].fn
}

// Watching reports whether unit has a live watch.
func (m *MockSupervisor) Watching(unit string) bool {
	return m.Handler(unit) != nil
}

// Notify delivers a property change to the unit's live watcher.
// It reports false when nothing is watching the unit.
func (m *MockSupervisor) Notify(unit, property, value string) bool {
	fn := m.Handler(unit)
	if fn == nil {
		return false
	}
	fn(property, value)
	return true
}

// App describes a unit the mock should report during enumeration.
type App struct {
	ID          string
	Description string
}

// Unit returns the templated unit name for the app.
func (a App) Unit() string {
	return "agl-app@" + a.ID + ".service"
}

// StubCatalog makes ListUnits report apps in order and Describe return
// their descriptions.
func (m *MockSupervisor) StubCatalog(apps ...App) {
	files := make([]types.UnitFile, 0, len(apps))
	for _, app := range apps {
		files = append(files, types.UnitFile{Path: "/usr/lib/systemd/system/" + app.Unit(), State: "enabled"})
		m.On("Describe", mock.Anything, app.Unit()).Return(app.Description, nil).Maybe()
	}
	m.On("ListUnits", mock.Anything, mock.Anything).Return(files, nil).Maybe()
}
