package registry

import (
	"context"
	"errors"
	"sync"

	"github.com/GriffinCanCode/applaunchd/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/applaunchd/internal/shared/types"
	"go.uber.org/zap"
)

// ErrAlreadyInitialized is returned by a second Initialize call
var ErrAlreadyInitialized = errors.New("registry already initialized")

// UnitLister enumerates and describes supervisor units
type UnitLister interface {
	ListUnits(ctx context.Context, pattern string) ([]types.UnitFile, error)
	Describe(ctx context.Context, unit string) (string, error)
}

// IconResolver finds an icon path for an application id
type IconResolver interface {
	Resolve(ctx context.Context, appID string) string
}

// Registry is the catalog of launchable applications.
// It is filled once by Initialize and read-only afterwards.
type Registry struct {
	mu          sync.RWMutex
	apps        []types.AppRecord // enumeration order
	index       map[string]int    // id -> position in apps
	initialized bool

	logger  *zap.Logger
	metrics *monitoring.Metrics
}

// NewRegistry creates an empty registry
func NewRegistry(logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		index:  make(map[string]int),
		logger: logger,
	}
}

// WithMetrics adds metrics tracking to the registry
func (r *Registry) WithMetrics(metrics *monitoring.Metrics) *Registry {
	r.metrics = metrics
	return r
}

// Initialize populates the registry from units matching pattern.
// Enumeration failures leave the registry empty but are not returned;
// only a repeated call is an error.
func (r *Registry) Initialize(ctx context.Context, lister UnitLister, icons IconResolver, pattern string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.initialized {
		return ErrAlreadyInitialized
	}
	r.initialized = true

	seeder := &seeder{lister: lister, icons: icons, logger: r.logger}
	for _, rec := range seeder.seed(ctx, pattern) {
		if _, dup := r.index[rec.ID]; dup {
			r.logger.Warn("Duplicate application id, keeping first unit",
				zap.String("id", rec.ID),
				zap.String("unit", rec.Unit))
			continue
		}
		r.index[rec.ID] = len(r.apps)
		r.apps = append(r.apps, rec)
	}

	if r.metrics != nil {
		r.metrics.SetAppsRegistered(len(r.apps))
	}
	r.logger.Info("Application registry initialized", zap.Int("apps", len(r.apps)))
	return nil
}

// Lookup returns the record for id
func (r *Registry) Lookup(id string) (types.AppRecord, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	i, ok := r.index[id]
	if !ok {
		return types.AppRecord{}, false
	}
	return r.apps[i], true
}

// List returns all records in enumeration order
func (r *Registry) List() []types.AppRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]types.AppRecord, len(r.apps))
	copy(out, r.apps)
	return out
}

// Len returns the number of registered applications
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.apps)
}
