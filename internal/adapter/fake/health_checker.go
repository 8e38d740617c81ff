package fake

import (
	"context"
	"sync"

	"berth/internal/manifest"
	"berth/internal/orchestrator"
)

var _ orchestrator.HealthChecker = (*HealthChecker)(nil)

// HealthChecker is an in-memory probe whose outcome is scripted per
// container. Unscripted containers are healthy.
type HealthChecker struct {
	CallRecorder
	mu      sync.Mutex
	results map[string]error

	ProbeErr func(ctx context.Context, containerName string) error
}

func NewHealthChecker() *HealthChecker {
	return &HealthChecker{results: make(map[string]error)}
}

// SetHealthy makes future probes of the container succeed.
func (h *HealthChecker) SetHealthy(containerName string) {
	h.mu.Lock()
	delete(h.results, containerName)
	h.mu.Unlock()
}

// SetUnhealthy makes future probes of the container fail with err.
func (h *HealthChecker) SetUnhealthy(containerName string, err error) {
	h.mu.Lock()
	h.results[containerName] = err
	h.mu.Unlock()
}

func (h *HealthChecker) Probe(ctx context.Context, containerName string, hc manifest.HealthCheck) error {
	h.record("Probe", containerName)
	if h.ProbeErr != nil {
		if err := h.ProbeErr(ctx, containerName); err != nil {
			return err
		}
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.results[containerName]
}
