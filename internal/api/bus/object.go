package bus

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/godbus/dbus/v5"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/applaunchd/internal/domain/launcher"
	"github.com/GriffinCanCode/applaunchd/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/applaunchd/internal/infrastructure/tracing"
	"github.com/GriffinCanCode/applaunchd/internal/shared/types"
)

// Interface is the D-Bus interface implemented by Object
const Interface = "org.automotivelinux.AppLaunch"

// Standard error names returned to bus callers
const (
	ErrorInvalidArgs = "org.freedesktop.DBus.Error.InvalidArgs"
	ErrorFailed      = "org.freedesktop.DBus.Error.Failed"
)

// callTimeout bounds a start request made over the bus
const callTimeout = 10 * time.Second

// methodNames maps Go method names to their D-Bus names
var methodNames = map[string]string{
	"Start":            "start",
	"ListApplications": "listApplications",
}

// Launcher is the coordinator API exposed on the bus
type Launcher interface {
	StartApplication(ctx context.Context, id string) (launcher.StartResult, error)
	ListApplications() ([]types.AppInfo, error)
}

// Emitter sends signals from an object path
type Emitter interface {
	Emit(path dbus.ObjectPath, name string, values ...interface{}) error
}

// appEntry is marshalled as the (sss) struct inside each variant
type appEntry struct {
	ID       string
	Name     string
	IconPath string
}

// Object is the exported launcher object. It also observes lifecycle
// events and re-emits them as started/terminated signals.
type Object struct {
	launcher Launcher
	emitter  Emitter
	path     dbus.ObjectPath

	logger  *zap.Logger
	metrics *monitoring.Metrics
}

// NewObject creates the bus object at path
func NewObject(l Launcher, emitter Emitter, path dbus.ObjectPath, logger *zap.Logger) *Object {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Object{launcher: l, emitter: emitter, path: path, logger: logger}
}

// WithMetrics adds metrics tracking to the object
func (o *Object) WithMetrics(metrics *monitoring.Metrics) *Object {
	o.metrics = metrics
	return o
}

// Start handles the start(s) method
func (o *Object) Start(appID string) *dbus.Error {
	ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
	defer cancel()
	ctx, _ = tracing.Ensure(ctx)

	_, err := o.launcher.StartApplication(ctx, appID)
	if err == nil {
		o.record("start", "ok")
		return nil
	}

	o.record("start", "error")
	switch {
	case errors.Is(err, types.ErrNotFound):
		return dbus.NewError(ErrorInvalidArgs, []interface{}{fmt.Sprintf("Unknown application '%s'", appID)})
	case errors.Is(err, types.ErrStartFailed):
		return dbus.NewError(ErrorFailed, []interface{}{fmt.Sprintf("Failed to start application '%s'", appID)})
	default:
		return dbus.NewError(ErrorFailed, []interface{}{err.Error()})
	}
}

// ListApplications handles the listApplications(b) method. Every
// registered application is graphical, so the flag does not filter.
func (o *Object) ListApplications(graphical bool) ([]dbus.Variant, *dbus.Error) {
	apps, err := o.launcher.ListApplications()
	if err != nil {
		o.record("listApplications", "error")
		return nil, dbus.NewError(ErrorFailed, []interface{}{err.Error()})
	}

	out := make([]dbus.Variant, 0, len(apps))
	for _, app := range apps {
		out = append(out, dbus.MakeVariant(appEntry{ID: app.ID, Name: app.Name, IconPath: app.IconPath}))
	}
	o.record("listApplications", "ok")
	return out, nil
}

// Publish emits the lifecycle event as a signal
func (o *Object) Publish(ev types.Event) {
	if o.emitter == nil {
		return
	}
	if err := o.emitter.Emit(o.path, Interface+"."+string(ev.Kind), ev.AppID); err != nil {
		o.logger.Warn("Failed to emit bus signal",
			zap.String("id", ev.AppID),
			zap.String("signal", string(ev.Kind)),
			zap.Error(err))
	}
}

func (o *Object) record(method, status string) {
	if o.metrics != nil {
		o.metrics.RecordBusCall(method, status)
	}
}
