// Package health runs manifest-configured probes by executing the probe
// command inside the target container.
package health

import (
	"context"
	"fmt"

	"berth/internal/manifest"
	"berth/internal/orchestrator"
)

// Checker probes containers through the runtime's exec facility. It
// implements orchestrator.HealthChecker.
type Checker struct {
	rt orchestrator.ContainerRuntime
}

func NewChecker(rt orchestrator.ContainerRuntime) *Checker {
	return &Checker{rt: rt}
}

// Probe runs one probe with the configured timeout. A nil return means
// the probe command exited zero.
func (c *Checker) Probe(ctx context.Context, containerName string, hc manifest.HealthCheck) error {
	cmd, err := probeCommand(hc.Test)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, hc.EffectiveTimeout())
	defer cancel()

	code, err := c.rt.ContainerExec(ctx, containerName, cmd)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return fmt.Errorf("probe timed out after %s", hc.EffectiveTimeout())
		}
		return fmt.Errorf("probe exec: %w", err)
	}
	if code != 0 {
		return fmt.Errorf("probe exited with code %d", code)
	}
	return nil
}

// probeCommand maps the compose test forms onto an argv: ["CMD", ...]
// runs directly, ["CMD-SHELL", s] runs under /bin/sh -c, and a bare argv
// is taken as-is.
func probeCommand(test []string) ([]string, error) {
	if len(test) == 0 {
		return nil, fmt.Errorf("health check has no test command")
	}
	switch test[0] {
	case "CMD":
		if len(test) < 2 {
			return nil, fmt.Errorf("health check CMD form has no command")
		}
		return test[1:], nil
	case "CMD-SHELL":
		if len(test) != 2 {
			return nil, fmt.Errorf("health check CMD-SHELL form wants exactly one argument")
		}
		return []string{"/bin/sh", "-c", test[1]}, nil
	default:
		return test, nil
	}
}
