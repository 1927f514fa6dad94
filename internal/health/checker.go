package health

import (
	"context"
	"sync"
	"time"

	"github.com/apnedoctors/minirag/internal/models"
	"github.com/sirupsen/logrus"
)

const (
	StatusHealthy   = "healthy"
	StatusUnhealthy = "unhealthy"
	StatusDegraded  = "degraded"
)

// Probe returns nil when the dependency is reachable.
type Probe func(ctx context.Context) error

type namedProbe struct {
	name  string
	probe Probe
}

// Checker runs dependency probes for the health endpoint
type Checker struct {
	probes  []namedProbe
	timeout time.Duration
	started time.Time
	logger  *logrus.Logger

	mu   sync.RWMutex
	last []models.DependencyHealth
}

func NewChecker(timeout time.Duration, logger *logrus.Logger) *Checker {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &Checker{
		timeout: timeout,
		started: time.Now(),
		logger:  logger,
	}
}

// Register adds a probe. Not safe to call once checks are running.
func (h *Checker) Register(name string, probe Probe) {
	h.probes = append(h.probes, namedProbe{name: name, probe: probe})
}

func (h *Checker) check(ctx context.Context, p namedProbe) models.DependencyHealth {
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	start := time.Now()
	err := p.probe(ctx)
	responseTime := int(time.Since(start).Milliseconds())

	status := StatusHealthy
	errorMsg := ""
	if err != nil {
		status = StatusUnhealthy
		errorMsg = err.Error()
		h.logger.WithError(err).WithField("dependency", p.name).Warn("Health check failed")
	}

	return models.DependencyHealth{
		Name:         p.name,
		Status:       status,
		ResponseTime: responseTime,
		Error:        errorMsg,
		LastChecked:  time.Now().Format(time.RFC3339),
	}
}

// CheckAll probes every dependency concurrently, in registration order.
// Overall status is healthy or degraded; the service itself keeps serving.
func (h *Checker) CheckAll(ctx context.Context) ([]models.DependencyHealth, string) {
	results := make([]models.DependencyHealth, len(h.probes))

	var wg sync.WaitGroup
	for i, p := range h.probes {
		wg.Add(1)
		go func(i int, p namedProbe) {
			defer wg.Done()
			results[i] = h.check(ctx, p)
		}(i, p)
	}
	wg.Wait()

	overall := StatusHealthy
	for _, r := range results {
		if r.Status != StatusHealthy {
			overall = StatusDegraded
			break
		}
	}

	h.mu.Lock()
	h.last = results
	h.mu.Unlock()

	return results, overall
}

// Last returns the most recent results, or nil before the first check.
func (h *Checker) Last() []models.DependencyHealth {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.last
}

// Uptime in seconds since the checker was created.
func (h *Checker) Uptime() float64 {
	return time.Since(h.started).Seconds()
}

// PeriodicHealthCheck runs health checks periodically until ctx is done.
func (h *Checker) PeriodicHealthCheck(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_, status := h.CheckAll(ctx)
			h.logger.WithField("status", status).Debug("Periodic health check completed")
		}
	}
}
