package lifecycle

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/GriffinCanCode/applaunchd/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/applaunchd/internal/shared/types"
	"go.uber.org/zap"
)

// Unit property names and values understood by the tracker
const (
	PropertyActiveState = "ActiveState"
	StateActive         = "active"
	StateInactive       = "inactive"
)

// DefaultStartTimeout bounds a supervisor start call
const DefaultStartTimeout = 5 * time.Second

// UnitController starts units and watches their state
type UnitController interface {
	StartUnit(ctx context.Context, unit string) error
	// Watch registers fn for property changes of unit. Implementations
	// must not invoke fn from within Watch or StartUnit.
	Watch(unit string, fn func(property, value string)) (cancel func(), err error)
}

// Catalog lists the applications to track
type Catalog interface {
	List() []types.AppRecord
}

// Observer receives lifecycle events in transition order
type Observer interface {
	Publish(ev types.Event)
}

// handle is the runtime handle of a starting or running application
type handle struct {
	unit   string
	cancel func()
	// progressed is set once the unit reports a state other than inactive.
	// Until then an inactive report only echoes the queued start job.
	progressed bool
}

func (h *handle) release() {
	if h.cancel != nil {
		h.cancel()
	}
}

type entry struct {
	record types.AppRecord
	status types.Status
	handle *handle // non-nil iff status is Starting or Running
}

// Tracker owns the per-application lifecycle state machine
type Tracker struct {
	mu        sync.Mutex // Serializes every transition
	entries   map[string]*entry
	units     UnitController
	observers []Observer

	startTimeout time.Duration

	logger  *zap.Logger
	metrics *monitoring.Metrics
}

// NewTracker creates a tracker with every catalog application Inactive
func NewTracker(catalog Catalog, units UnitController, logger *zap.Logger) *Tracker {
	if logger == nil {
		logger = zap.NewNop()
	}

	t := &Tracker{
		entries:      make(map[string]*entry),
		units:        units,
		startTimeout: DefaultStartTimeout,
		logger:       logger,
	}
	for _, rec := range catalog.List() {
		t.entries[rec.ID] = &entry{record: rec, status: types.StatusInactive}
	}
	return t
}

// WithMetrics adds metrics tracking to the tracker
func (t *Tracker) WithMetrics(metrics *monitoring.Metrics) *Tracker {
	t.metrics = metrics
	return t
}

// WithStartTimeout sets the bound on each supervisor start call
func (t *Tracker) WithStartTimeout(d time.Duration) *Tracker {
	if d > 0 {
		t.startTimeout = d
	}
	return t
}

// AddObserver registers o for every later event. Not safe to call
// concurrently with transitions; wire observers before serving.
func (t *Tracker) AddObserver(o Observer) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.observers = append(t.observers, o)
}

// RequestStart asks for id to be started.
//
// An Inactive app is watched and started; a Starting app is left alone;
// a Running app gets a fresh started event so clients can raise it.
//
// The supervisor call runs without the tracker lock, so notifications for
// other applications keep flowing while a start is queued.
func (t *Tracker) RequestStart(ctx context.Context, id string) error {
	h, err := t.reserve(id)
	if err != nil || h == nil {
		return err
	}

	// The start outlives the caller: once queued, systemd runs the job
	// whether or not the requester is still connected.
	startCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), t.startTimeout)
	defer cancel()

	if err := t.units.StartUnit(startCtx, h.unit); err != nil {
		t.logger.Error("Failed to start unit",
			zap.String("id", id),
			zap.String("unit", h.unit),
			zap.Error(err))

		t.mu.Lock()
		if e := t.entries[id]; e.handle == h {
			t.release(e)
		}
		t.mu.Unlock()
		return fmt.Errorf("%w '%s': %w", types.ErrStartFailed, id, err)
	}

	t.logger.Info("Application starting",
		zap.String("id", id),
		zap.String("unit", h.unit))
	return nil
}

// reserve moves an Inactive app to Starting under a fresh watched handle.
// A nil handle with a nil error means no start is needed.
func (t *Tracker) reserve(id string) (*handle, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.entries[id]
	if !ok {
		return nil, fmt.Errorf("%w '%s'", types.ErrNotFound, id)
	}

	switch e.status {
	case types.StatusStarting:
		t.logger.Debug("Start already in progress", zap.String("id", id))
		return nil, nil
	case types.StatusRunning:
		t.emit(types.Started(id))
		return nil, nil
	}

	if t.units == nil {
		return nil, fmt.Errorf("%w: application '%s'", types.ErrUnavailable, id)
	}

	h := &handle{unit: e.record.Unit}

	// Watch before starting so the first state change is not missed
	cancel, err := t.units.Watch(h.unit, t.onProperty(id, h))
	if err != nil {
		t.logger.Error("Failed to watch unit",
			zap.String("id", id),
			zap.String("unit", h.unit),
			zap.Error(err))
		return nil, fmt.Errorf("%w '%s': %w", types.ErrStartFailed, id, err)
	}
	h.cancel = cancel

	e.handle = h
	e.status = types.StatusStarting
	t.updateRunning()
	return h, nil
}

// onProperty returns the watch callback bound to one runtime handle
func (t *Tracker) onProperty(id string, h *handle) func(property, value string) {
	return func(property, value string) {
		if property != PropertyActiveState {
			return
		}

		t.mu.Lock()
		defer t.mu.Unlock()

		e := t.entries[id]
		if e.handle == nil {
			err := fmt.Errorf("%w: state change for '%s' without a runtime handle", types.ErrInconsistent, id)
			t.logger.Error("Ignoring unit notification",
				zap.String("id", id),
				zap.String("state", value),
				zap.Error(err))
			return
		}
		if e.handle != h {
			t.logger.Debug("Ignoring stale unit notification",
				zap.String("id", id),
				zap.String("state", value))
			return
		}

		switch value {
		case StateActive:
			h.progressed = true
			if e.status == types.StatusRunning {
				return
			}
			e.status = types.StatusRunning
			t.logger.Info("Application running", zap.String("id", id))
			t.emit(types.Started(id))

		case StateInactive:
			if e.status == types.StatusStarting {
				if !h.progressed {
					t.logger.Debug("Unit still inactive, start job pending", zap.String("id", id))
					return
				}
				t.logger.Warn("Unit went inactive while starting", zap.String("id", id))
			} else {
				t.logger.Info("Application terminated", zap.String("id", id))
			}
			t.release(e)
			t.emit(types.Terminated(id))

		default:
			h.progressed = true
		}
	}
}

// Status returns the current state of id
func (t *Tracker) Status(id string) (types.Status, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.entries[id]
	if !ok {
		return types.StatusInactive, false
	}
	return e.status, true
}

// Active returns the number of Starting or Running applications
func (t *Tracker) Active() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.active()
}

// Close releases every outstanding runtime handle
func (t *Tracker) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, e := range t.entries {
		if e.handle != nil {
			t.release(e)
		}
	}
}

func (t *Tracker) release(e *entry) {
	e.handle.release()
	e.handle = nil
	e.status = types.StatusInactive
	t.updateRunning()
}

// emit must be called with mu held
func (t *Tracker) emit(ev types.Event) {
	if t.metrics != nil {
		t.metrics.RecordLifecycleEvent(string(ev.Kind))
	}
	for _, o := range t.observers {
		o.Publish(ev)
	}
}

func (t *Tracker) active() int {
	n := 0
	for _, e := range t.entries {
		if e.handle != nil {
			n++
		}
	}
	return n
}

func (t *Tracker) updateRunning() {
	if t.metrics != nil {
		t.metrics.SetAppsRunning(t.active())
	}
}
