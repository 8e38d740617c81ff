package orchestrator

import (
	"encoding/json"
	"fmt"
	"strings"

	"berth/internal/check"
)

// ServicePhase is the lifecycle state of one managed service instance.
type ServicePhase uint8

const (
	PhasePending ServicePhase = iota + 1
	PhaseStarting
	PhaseRunning
	PhaseHealthChecking
	PhaseHealthy
	PhaseUnhealthy
	PhaseRestarting
	PhaseStopped
	PhaseFailed
)

func (p ServicePhase) String() string {
	switch p {
	case PhasePending:
		return "pending"
	case PhaseStarting:
		return "starting"
	case PhaseRunning:
		return "running"
	case PhaseHealthChecking:
		return "health_checking"
	case PhaseHealthy:
		return "healthy"
	case PhaseUnhealthy:
		return "unhealthy"
	case PhaseRestarting:
		return "restarting"
	case PhaseStopped:
		return "stopped"
	case PhaseFailed:
		return "failed"
	default:
		return "unknown"
	}
}

func (p ServicePhase) IsValid() bool {
	switch p {
	case PhasePending, PhaseStarting, PhaseRunning, PhaseHealthChecking,
		PhaseHealthy, PhaseUnhealthy, PhaseRestarting, PhaseStopped, PhaseFailed:
		return true
	default:
		return false
	}
}

// Terminal reports whether the phase ends supervision.
func (p ServicePhase) Terminal() bool {
	return p == PhaseStopped || p == PhaseFailed
}

// Transition validates the move from p to the next phase, asserting in
// debug builds and staying put on an invalid move in release builds.
func (p ServicePhase) Transition(to ServicePhase) ServicePhase {
	ok := false
	switch p {
	case PhasePending:
		// Pending -> Running covers adopting a container that is already up.
		ok = to == PhaseStarting || to == PhaseRunning || to == PhaseFailed || to == PhaseStopped
	case PhaseStarting:
		ok = to == PhaseRunning || to == PhaseRestarting || to == PhaseFailed || to == PhaseStopped
	case PhaseRunning:
		ok = to == PhaseHealthChecking || to == PhaseRestarting || to == PhaseStopped || to == PhaseFailed
	case PhaseHealthChecking:
		ok = to == PhaseHealthy || to == PhaseUnhealthy || to == PhaseRestarting || to == PhaseStopped || to == PhaseFailed
	case PhaseHealthy:
		ok = to == PhaseUnhealthy || to == PhaseRestarting || to == PhaseStopped || to == PhaseFailed
	case PhaseUnhealthy:
		ok = to == PhaseHealthy || to == PhaseRestarting || to == PhaseStopped || to == PhaseFailed
	case PhaseRestarting:
		ok = to == PhaseStarting || to == PhaseStopped || to == PhaseFailed
	case PhaseStopped:
		ok = to == PhaseStarting
	case PhaseFailed:
		ok = to == PhaseStarting
	}
	check.Assertf(ok, "service phase transition: %s -> %s", p, to)
	if !ok {
		return p
	}
	return to
}

func (p ServicePhase) MarshalJSON() ([]byte, error) {
	if !p.IsValid() {
		return nil, fmt.Errorf("invalid service phase: %d", p)
	}
	return json.Marshal(p.String())
}

func (p *ServicePhase) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	next, ok := ParseServicePhase(raw)
	if !ok {
		return fmt.Errorf("invalid service phase: %q", raw)
	}
	*p = next
	return nil
}

func ParseServicePhase(raw string) (ServicePhase, bool) {
	switch strings.TrimSpace(raw) {
	case "pending":
		return PhasePending, true
	case "starting":
		return PhaseStarting, true
	case "running":
		return PhaseRunning, true
	case "health_checking":
		return PhaseHealthChecking, true
	case "healthy":
		return PhaseHealthy, true
	case "unhealthy":
		return PhaseUnhealthy, true
	case "restarting":
		return PhaseRestarting, true
	case "stopped":
		return PhaseStopped, true
	case "failed":
		return PhaseFailed, true
	default:
		return 0, false
	}
}
