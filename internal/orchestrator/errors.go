package orchestrator

import "fmt"

// ProvisionError reports a network or volume creation failure. It is fatal
// for everything that references the resource, so Up aborts on it.
type ProvisionError struct {
	Kind string // "network" or "volume"
	Name string
	Err  error
}

func (e *ProvisionError) Error() string {
	return fmt.Sprintf("provision %s %q: %v", e.Kind, e.Name, e.Err)
}

func (e *ProvisionError) Unwrap() error { return e.Err }

// StartError reports a container that failed to create or start after the
// restart policy's attempts were exhausted.
type StartError struct {
	Service   string
	Container string
	Err       error
}

func (e *StartError) Error() string {
	return fmt.Sprintf("start service %q (container %q): %v", e.Service, e.Container, e.Err)
}

func (e *StartError) Unwrap() error { return e.Err }

// HealthCheckError reports a service whose probe failed its configured
// retry budget.
type HealthCheckError struct {
	Service   string
	Container string
	Failures  int
	Err       error
}

func (e *HealthCheckError) Error() string {
	return fmt.Sprintf("service %q (container %q) unhealthy after %d consecutive probe failures: %v",
		e.Service, e.Container, e.Failures, e.Err)
}

func (e *HealthCheckError) Unwrap() error { return e.Err }

// StopError reports a container that could not be stopped or removed.
// It never blocks shutdown of the remaining services.
type StopError struct {
	Service   string
	Container string
	Err       error
}

func (e *StopError) Error() string {
	return fmt.Sprintf("stop service %q (container %q): %v", e.Service, e.Container, e.Err)
}

func (e *StopError) Unwrap() error { return e.Err }
