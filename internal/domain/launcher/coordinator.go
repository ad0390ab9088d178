package launcher

import (
	"context"
	"errors"
	"fmt"

	"github.com/GriffinCanCode/applaunchd/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/applaunchd/internal/infrastructure/tracing"
	"github.com/GriffinCanCode/applaunchd/internal/shared/types"
	"github.com/GriffinCanCode/applaunchd/internal/shared/utils"
	"go.uber.org/zap"
)

// Start request results recorded in metrics
const (
	resultAccepted    = "accepted"
	resultFailed      = "failed"
	resultNotFound    = "not_found"
	resultUnavailable = "unavailable"
)

// Catalog is the read side of the application registry
type Catalog interface {
	Lookup(id string) (types.AppRecord, bool)
	List() []types.AppRecord
	Len() int
}

// Starter requests application starts
type Starter interface {
	RequestStart(ctx context.Context, id string) error
}

// Supervisor reports whether the unit supervisor can take commands
type Supervisor interface {
	Available() bool
}

// SubscriberCounter reports live status subscribers
type SubscriberCounter interface {
	Count() int
}

// StartResult is the caller-facing outcome of a start request
type StartResult struct {
	Accepted bool
	Message  string
}

// Coordinator validates start requests and serves the application list
type Coordinator struct {
	catalog     Catalog
	starter     Starter
	supervisor  Supervisor
	subscribers SubscriberCounter

	logger  *zap.Logger
	metrics *monitoring.Metrics
}

// NewCoordinator creates a coordinator. A nil supervisor means the
// daemon runs without a supervisor connection.
func NewCoordinator(catalog Catalog, starter Starter, supervisor Supervisor, logger *zap.Logger) *Coordinator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Coordinator{
		catalog:    catalog,
		starter:    starter,
		supervisor: supervisor,
		logger:     logger,
	}
}

// WithSubscribers adds a subscriber count source for Stats
func (c *Coordinator) WithSubscribers(counter SubscriberCounter) *Coordinator {
	c.subscribers = counter
	return c
}

// WithMetrics adds metrics tracking to the coordinator
func (c *Coordinator) WithMetrics(metrics *monitoring.Metrics) *Coordinator {
	c.metrics = metrics
	return c
}

// StartApplication asks for id to be started and returns as soon as
// the request is dispatched; it never waits for the app to run.
func (c *Coordinator) StartApplication(ctx context.Context, id string) (StartResult, error) {
	if !c.Connected() {
		c.record(resultUnavailable)
		return StartResult{}, fmt.Errorf("start application '%s': %w", id, types.ErrUnavailable)
	}

	if utils.ValidateAppID(id) != nil {
		c.record(resultNotFound)
		return StartResult{}, fmt.Errorf("%w '%s'", types.ErrNotFound, id)
	}
	if _, ok := c.catalog.Lookup(id); !ok {
		c.record(resultNotFound)
		return StartResult{}, fmt.Errorf("%w '%s'", types.ErrNotFound, id)
	}

	if err := c.starter.RequestStart(ctx, id); err != nil {
		switch {
		case errors.Is(err, types.ErrUnavailable):
			c.record(resultUnavailable)
			return StartResult{}, err
		case errors.Is(err, types.ErrNotFound):
			c.record(resultNotFound)
			return StartResult{}, err
		}

		c.record(resultFailed)
		c.logger.Warn("Start request failed", zap.String("id", id), tracing.Field(ctx), zap.Error(err))
		return StartResult{
			Accepted: false,
			Message:  fmt.Sprintf("Failed to start application '%s'", id),
		}, err
	}

	c.record(resultAccepted)
	return StartResult{Accepted: true}, nil
}

// ListApplications returns every application in registry order
func (c *Coordinator) ListApplications() ([]types.AppInfo, error) {
	if !c.Connected() {
		return nil, fmt.Errorf("list applications: %w", types.ErrUnavailable)
	}

	records := c.catalog.List()
	apps := make([]types.AppInfo, 0, len(records))
	for _, rec := range records {
		apps = append(apps, rec.Info())
	}
	return apps, nil
}

// Connected reports whether a supervisor connection is usable
func (c *Coordinator) Connected() bool {
	return c.supervisor != nil && c.supervisor.Available()
}

// Stats returns counts for health reporting
func (c *Coordinator) Stats() types.Stats {
	stats := types.Stats{
		RegisteredApps: c.catalog.Len(),
		Supervisor:     c.Connected(),
	}
	if c.subscribers != nil {
		stats.Subscribers = c.subscribers.Count()
	}
	return stats
}

func (c *Coordinator) record(result string) {
	if c.metrics != nil {
		c.metrics.RecordStart(result)
	}
}
