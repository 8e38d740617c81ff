package orchestrator

import (
	"context"
	"fmt"
	"sort"
	"time"
)

// Observe reconstructs service statuses without a live orchestrator, for
// CLI invocations in a fresh process. Persisted rows give the last known
// phase; the engine's label-filtered listing corrects for containers that
// exited or disappeared since.
func Observe(ctx context.Context, rt ContainerRuntime, store StateStore, project string) ([]ServiceStatus, error) {
	summaries, err := rt.ContainerList(ctx, map[string]string{LabelProject: project})
	if err != nil {
		return nil, fmt.Errorf("list containers for project %q: %w", project, err)
	}
	live := make(map[string]ContainerSummary, len(summaries))
	for _, sum := range summaries {
		if service := sum.Labels[LabelService]; service != "" {
			live[service] = sum
		}
	}

	byService := make(map[string]ServiceStatus)
	if store != nil {
		rows, err := store.ListInstances(ctx, project)
		if err != nil {
			return nil, fmt.Errorf("load instance state for project %q: %w", project, err)
		}
		for _, row := range rows {
			st := ServiceStatus{
				Service:   row.Service,
				Container: row.ContainerName,
				Restarts:  row.Restarts,
				Err:       row.LastError,
			}
			if phase, ok := ParseServicePhase(row.Phase); ok {
				st.Phase = phase
			}
			if t, err := time.Parse(time.RFC3339Nano, row.UpdatedAt); err == nil {
				st.UpdatedAt = t
			}
			byService[row.Service] = st
		}
	}

	for service, sum := range live {
		st, ok := byService[service]
		if !ok {
			st = ServiceStatus{Service: service, Container: sum.Name}
		}
		st.Container = sum.Name
		// The recorded phase is stale if the container state disagrees.
		if sum.Running {
			if !st.Phase.IsValid() || st.Phase.Terminal() || st.Phase == PhasePending {
				st.Phase = PhaseRunning
			}
		} else if !st.Phase.Terminal() {
			st.Phase = PhaseStopped
		}
		byService[service] = st
	}
	for service, st := range byService {
		if _, ok := live[service]; ok {
			continue
		}
		if !st.Phase.Terminal() {
			st.Phase = PhaseStopped
			byService[service] = st
		}
	}

	out := make([]ServiceStatus, 0, len(byService))
	for _, st := range byService {
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Service < out[j].Service })
	return out, nil
}

// Logs fetches the last lines of the named service's container. With
// lines <= 0 the whole log is returned.
func Logs(ctx context.Context, rt ContainerRuntime, project, service string, lines int) (string, error) {
	summaries, err := rt.ContainerList(ctx, map[string]string{
		LabelProject: project,
		LabelService: service,
	})
	if err != nil {
		return "", fmt.Errorf("list containers for service %q: %w", service, err)
	}
	if len(summaries) == 0 {
		return "", fmt.Errorf("no container found for service %q in project %q", service, project)
	}
	return rt.ContainerLogs(ctx, summaries[0].Name, lines)
}
