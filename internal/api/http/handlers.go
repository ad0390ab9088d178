package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/applaunchd/internal/domain/launcher"
	"github.com/GriffinCanCode/applaunchd/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/applaunchd/internal/shared/types"
)

// startTimeout bounds a single start request
const startTimeout = 10 * time.Second

// Launcher is the coordinator API served over HTTP
type Launcher interface {
	StartApplication(ctx context.Context, id string) (launcher.StartResult, error)
	ListApplications() ([]types.AppInfo, error)
	Stats() types.Stats
}

// Handlers contains HTTP request handlers
type Handlers struct {
	launcher Launcher
	metrics  *monitoring.Metrics
	logger   *zap.Logger
}

// NewHandlers creates a new handlers instance
func NewHandlers(l Launcher, metrics *monitoring.Metrics, logger *zap.Logger) *Handlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handlers{
		launcher: l,
		metrics:  metrics,
		logger:   logger,
	}
}

// Health returns daemon status
func (h *Handlers) Health(c *gin.Context) {
	stats := h.launcher.Stats()

	status := "healthy"
	if !stats.Supervisor {
		status = "degraded"
	}

	resp := gin.H{
		"status":               status,
		"registered_apps":      stats.RegisteredApps,
		"subscribers":          stats.Subscribers,
		"supervisor_connected": stats.Supervisor,
	}
	if h.metrics != nil {
		resp["uptime_seconds"] = int64(h.metrics.Uptime().Seconds())
	}

	c.JSON(http.StatusOK, resp)
}

// ListApps returns all registered applications
func (h *Handlers) ListApps(c *gin.Context) {
	apps, err := h.launcher.ListApplications()
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"apps":  apps,
		"count": len(apps),
	})
}

// StartApp requests an application start. A rejected start is a valid
// request and is reported with status false.
func (h *Handlers) StartApp(c *gin.Context) {
	appID := c.Param("id")

	ctx, cancel := context.WithTimeout(c.Request.Context(), startTimeout)
	defer cancel()

	res, err := h.launcher.StartApplication(ctx, appID)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"status": res.Accepted, "message": res.Message})
	case errors.Is(err, types.ErrStartFailed):
		c.JSON(http.StatusOK, gin.H{"status": false, "message": res.Message})
	case errors.Is(err, types.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("Unknown application '%s'", appID)})
	default:
		h.logger.Warn("Start request rejected", zap.String("id", appID), zap.Error(err))
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
	}
}

// MetricsSummary provides high-level counters
type MetricsSummary struct {
	TotalRequests  int64   `json:"total_requests"`
	ErrorRate      float64 `json:"error_rate"`
	StartsAccepted int64   `json:"starts_accepted"`
	StartsFailed   int64   `json:"starts_failed"`
	RunningApps    int64   `json:"running_apps"`
	Subscribers    int     `json:"subscribers"`
	UptimeSeconds  float64 `json:"uptime_seconds"`
}

// Summary returns a JSON digest of the Prometheus counters
func (h *Handlers) Summary(c *gin.Context) {
	if h.metrics == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "metrics disabled"})
		return
	}

	snap := h.metrics.Snapshot()
	summary := MetricsSummary{
		TotalRequests:  snap.TotalRequests,
		StartsAccepted: snap.StartsAccepted,
		StartsFailed:   snap.StartsFailed,
		RunningApps:    snap.RunningApps,
		Subscribers:    h.launcher.Stats().Subscribers,
		UptimeSeconds:  h.metrics.Uptime().Seconds(),
	}
	if snap.TotalRequests > 0 {
		summary.ErrorRate = float64(snap.TotalErrors) / float64(snap.TotalRequests)
	}

	c.JSON(http.StatusOK, summary)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, types.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, types.ErrUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
