package systemd

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	sd "github.com/coreos/go-systemd/v22/dbus"
	"github.com/godbus/dbus/v5"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/applaunchd/internal/infrastructure/config"
	"github.com/GriffinCanCode/applaunchd/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/applaunchd/internal/infrastructure/resilience"
	"github.com/GriffinCanCode/applaunchd/internal/shared/types"
)

const (
	// startMode replaces any conflicting queued job for the unit
	startMode = "replace"

	propertyDescription = "Description"
	propertyActiveState = "ActiveState"

	updateBuffer = 64
)

// manager is the subset of the systemd manager connection we use
type manager interface {
	ListUnitFilesByPatternsContext(ctx context.Context, states []string, patterns []string) ([]sd.UnitFile, error)
	StartUnitContext(ctx context.Context, name string, mode string, ch chan<- string) (int, error)
	GetUnitPropertyContext(ctx context.Context, unit string, propertyName string) (*sd.Property, error)
	Subscribe() error
	SetPropertiesSubscriber(updateCh chan<- *sd.PropertiesUpdate, errCh chan<- error)
	Connected() bool
	Close()
}

type watcher struct {
	id uint64
	fn func(property, value string)
}

// Supervisor talks to systemd over D-Bus.
//
// Property changes for watched units are delivered from a single
// dispatch goroutine, never from inside Watch or StartUnit.
type Supervisor struct {
	conn    manager
	breaker *resilience.Breaker
	timeout time.Duration

	mu       sync.Mutex
	watchers map[string]watcher
	nextID   uint64

	updates chan *sd.PropertiesUpdate
	errs    chan error
	done    chan struct{}
	wg      sync.WaitGroup
	once    sync.Once

	logger  *zap.Logger
	metrics *monitoring.Metrics
}

// Connect opens the system (or user) bus and subscribes to unit changes
func Connect(ctx context.Context, cfg config.SystemdConfig, logger *zap.Logger, metrics *monitoring.Metrics) (*Supervisor, error) {
	var (
		conn *sd.Conn
		err  error
	)
	if cfg.UserBus {
		conn, err = sd.NewUserConnectionContext(ctx)
	} else {
		conn, err = sd.NewSystemConnectionContext(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: connect to systemd: %w", types.ErrUnavailable, err)
	}

	s, err := newSupervisor(conn, cfg.CallTimeout, logger, metrics)
	if err != nil {
		conn.Close()
		return nil, err
	}

	logger.Info("Connected to systemd", zap.Bool("user_bus", cfg.UserBus))
	return s, nil
}

func newSupervisor(conn manager, timeout time.Duration, logger *zap.Logger, metrics *monitoring.Metrics) (*Supervisor, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	s := &Supervisor{
		conn:     conn,
		timeout:  timeout,
		watchers: make(map[string]watcher),
		updates:  make(chan *sd.PropertiesUpdate, updateBuffer),
		errs:     make(chan error, 1),
		done:     make(chan struct{}),
		logger:   logger,
		metrics:  metrics,
	}
	s.breaker = resilience.New("systemd", resilience.Settings{
		MaxRequests:   1,
		Interval:      time.Minute,
		Timeout:       10 * time.Second,
		ReadyToTrip:   func(c resilience.Counts) bool { return c.ConsecutiveFailures >= 5 },
		IsSuccessful:  busReachable,
		OnStateChange: resilience.LogStateChange(logger),
	})

	if err := conn.Subscribe(); err != nil {
		return nil, fmt.Errorf("%w: subscribe to systemd: %w", types.ErrUnavailable, err)
	}
	conn.SetPropertiesSubscriber(s.updates, s.errs)

	s.wg.Add(1)
	go s.dispatch()

	return s, nil
}

// busReachable counts method errors replied by systemd as successes:
// the bus answered, so the breaker has no reason to trip.
func busReachable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return true
	}
	var replyErr dbus.Error
	if errors.As(err, &replyErr) {
		return true
	}
	var replyPtr *dbus.Error
	return errors.As(err, &replyPtr)
}

// ListUnits returns unit files matching pattern
func (s *Supervisor) ListUnits(ctx context.Context, pattern string) ([]types.UnitFile, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	timer := monitoring.NewTimer(s.metrics, "ListUnitFilesByPatterns")
	files, err := resilience.Call(s.breaker, func() ([]sd.UnitFile, error) {
		return s.conn.ListUnitFilesByPatternsContext(ctx, nil, []string{pattern})
	})
	timer.StopErr(err)
	if err != nil {
		return nil, s.wrap("list unit files", err)
	}

	out := make([]types.UnitFile, 0, len(files))
	for _, f := range files {
		out = append(out, types.UnitFile{Path: f.Path, State: f.Type})
	}
	return out, nil
}

// Describe returns the unit's Description property
func (s *Supervisor) Describe(ctx context.Context, unit string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	timer := monitoring.NewTimer(s.metrics, "GetUnitProperty")
	prop, err := resilience.Call(s.breaker, func() (*sd.Property, error) {
		return s.conn.GetUnitPropertyContext(ctx, unit, propertyDescription)
	})
	timer.StopErr(err)
	if err != nil {
		return "", s.wrap("describe "+unit, err)
	}

	desc, ok := prop.Value.Value().(string)
	if !ok {
		return "", fmt.Errorf("describe %s: unexpected %s type %s", unit, propertyDescription, prop.Value.Signature())
	}
	return desc, nil
}

// StartUnit queues a start job for unit without waiting for it to finish
func (s *Supervisor) StartUnit(ctx context.Context, unit string) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	timer := monitoring.NewTimer(s.metrics, "StartUnit")
	err := s.breaker.Do(func() error {
		_, err := s.conn.StartUnitContext(ctx, unit, startMode, nil)
		return err
	})
	timer.StopErr(err)
	if err != nil {
		return s.wrap("start "+unit, err)
	}

	s.logger.Debug("Start job queued", zap.String("unit", unit))
	return nil
}

// Watch routes ActiveState changes of unit to fn until cancel is called.
// A later Watch for the same unit replaces the earlier one.
func (s *Supervisor) Watch(unit string, fn func(property, value string)) (func(), error) {
	select {
	case <-s.done:
		return nil, fmt.Errorf("%w: supervisor closed", types.ErrUnavailable)
	default:
	}

	s.mu.Lock()
	s.nextID++
	wid := s.nextID
	s.watchers[unit] = watcher{id: wid, fn: fn}
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if w, ok := s.watchers[unit]; ok && w.id == wid {
			delete(s.watchers, unit)
		}
	}, nil
}

// Available reports whether commands can currently reach systemd
func (s *Supervisor) Available() bool {
	return s.conn.Connected() && s.breaker.State() != resilience.StateOpen
}

// Close stops dispatching and closes the bus connection
func (s *Supervisor) Close() {
	s.once.Do(func() {
		close(s.done)
		s.wg.Wait()
		s.conn.Close()
		s.logger.Info("Disconnected from systemd")
	})
}

func (s *Supervisor) dispatch() {
	defer s.wg.Done()

	for {
		select {
		case <-s.done:
			return

		case err := <-s.errs:
			s.logger.Warn("systemd subscription error", zap.Error(err))

		case update := <-s.updates:
			if update == nil {
				continue
			}
			s.deliver(update)
		}
	}
}

func (s *Supervisor) deliver(update *sd.PropertiesUpdate) {
	state, ok := update.Changed[propertyActiveState]
	if !ok {
		return
	}
	value, ok := state.Value().(string)
	if !ok {
		return
	}

	s.mu.Lock()
	w, watched := s.watchers[update.UnitName]
	s.mu.Unlock()
	if !watched {
		return
	}

	s.logger.Debug("Unit state changed",
		zap.String("unit", update.UnitName),
		zap.String("state", value))

	// Called without s.mu so the handler may cancel its own watch
	w.fn(propertyActiveState, value)
}

func (s *Supervisor) wrap(op string, err error) error {
	if errors.Is(err, resilience.ErrCircuitOpen) || errors.Is(err, resilience.ErrTooManyRequests) {
		return fmt.Errorf("%w: %s: %w", types.ErrUnavailable, op, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
