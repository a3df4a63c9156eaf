// Package health provides health check functionality for the browse server.
package health

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"
)

// Status represents the health status of a component.
type Status string

const (
	// StatusHealthy indicates the component is fully operational.
	StatusHealthy Status = "healthy"
	// StatusDegraded indicates the component is operational but with issues.
	StatusDegraded Status = "degraded"
	// StatusUnhealthy indicates the component is not operational.
	StatusUnhealthy Status = "unhealthy"
)

// ComponentStatus represents the health status of a single component.
type ComponentStatus struct {
	Status  Status `json:"status"`
	Message string `json:"message,omitempty"`
}

// Response represents the health check response.
type Response struct {
	Status     Status                     `json:"status"`
	Components map[string]ComponentStatus `json:"components"`
	Version    string                     `json:"version"`
	Uptime     string                     `json:"uptime"`
}

// Pinger is implemented by the backend client.
type Pinger interface {
	Ping(ctx context.Context) error
}

// SnapshotCounter is implemented by the snapshot store.
type SnapshotCounter interface {
	Count(ctx context.Context) (int, error)
}

// Checker reports whether the tracking backend is reachable and whether the
// snapshot cache can stand in for it.
type Checker struct {
	backend   Pinger
	snapshots SnapshotCounter
	startTime time.Time
	version   string
	timeout   time.Duration
	mu        sync.RWMutex
}

// NewChecker creates a new health checker. snapshots may be nil when the
// cache is disabled.
func NewChecker(backend Pinger, snapshots SnapshotCounter, version string) *Checker {
	return &Checker{
		backend:   backend,
		snapshots: snapshots,
		startTime: time.Now(),
		version:   version,
		timeout:   5 * time.Second,
	}
}

// SetTimeout sets the timeout for health checks.
func (c *Checker) SetTimeout(timeout time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.timeout = timeout
}

// Check performs all health checks and returns the aggregated response.
// A failing backend makes the server unhealthy unless cached snapshots are
// available, in which case it is degraded.
func (c *Checker) Check(ctx context.Context) *Response {
	c.mu.RLock()
	timeout := c.timeout
	c.mu.RUnlock()

	checkCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	components := make(map[string]ComponentStatus)
	components["backend"] = c.checkBackend(checkCtx)

	cached := 0
	if c.snapshots != nil {
		var status ComponentStatus
		status, cached = c.checkSnapshots(checkCtx)
		components["snapshot_cache"] = status
	}

	overallStatus := StatusHealthy
	for _, comp := range components {
		if comp.Status == StatusUnhealthy {
			overallStatus = StatusUnhealthy
			break
		}
		if comp.Status == StatusDegraded {
			overallStatus = StatusDegraded
		}
	}
	if overallStatus == StatusUnhealthy && cached > 0 {
		overallStatus = StatusDegraded
	}

	return &Response{
		Status:     overallStatus,
		Components: components,
		Version:    c.version,
		Uptime:     time.Since(c.startTime).Round(time.Second).String(),
	}
}

func (c *Checker) checkBackend(ctx context.Context) ComponentStatus {
	if c.backend == nil {
		return ComponentStatus{
			Status:  StatusUnhealthy,
			Message: "backend not configured",
		}
	}

	if err := c.backend.Ping(ctx); err != nil {
		return ComponentStatus{
			Status:  StatusUnhealthy,
			Message: "backend check failed: " + err.Error(),
		}
	}

	return ComponentStatus{
		Status:  StatusHealthy,
		Message: "connected",
	}
}

func (c *Checker) checkSnapshots(ctx context.Context) (ComponentStatus, int) {
	n, err := c.snapshots.Count(ctx)
	if err != nil {
		return ComponentStatus{
			Status:  StatusDegraded,
			Message: "snapshot cache unavailable: " + err.Error(),
		}, 0
	}
	return ComponentStatus{
		Status:  StatusHealthy,
		Message: fmt.Sprintf("%d snapshots", n),
	}, n
}

// Handler returns an HTTP handler for health checks.
func (c *Checker) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		response := c.Check(r.Context())

		w.Header().Set("Content-Type", "application/json")

		switch response.Status {
		case StatusHealthy, StatusDegraded:
			w.WriteHeader(http.StatusOK)
		case StatusUnhealthy:
			w.WriteHeader(http.StatusServiceUnavailable)
		}

		json.NewEncoder(w).Encode(response)
	}
}
