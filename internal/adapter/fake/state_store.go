package fake

import (
	"context"
	"sync"

	"berth/internal/orchestrator"
)

var _ orchestrator.StateStore = (*StateStore)(nil)

// StateStore keeps instance and run rows in memory.
type StateStore struct {
	CallRecorder
	mu        sync.Mutex
	instances map[string]map[string]orchestrator.InstanceRow
	runs      []orchestrator.RunRow
}

func NewStateStore() *StateStore {
	return &StateStore{instances: make(map[string]map[string]orchestrator.InstanceRow)}
}

func (s *StateStore) UpsertInstance(ctx context.Context, row orchestrator.InstanceRow) error {
	s.record("UpsertInstance", row)
	s.mu.Lock()
	defer s.mu.Unlock()
	byService, ok := s.instances[row.Project]
	if !ok {
		byService = make(map[string]orchestrator.InstanceRow)
		s.instances[row.Project] = byService
	}
	byService[row.Service] = row
	return nil
}

func (s *StateStore) ListInstances(ctx context.Context, project string) ([]orchestrator.InstanceRow, error) {
	s.record("ListInstances", project)
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []orchestrator.InstanceRow
	for _, row := range s.instances[project] {
		out = append(out, row)
	}
	return out, nil
}

func (s *StateStore) DeleteInstances(ctx context.Context, project string) error {
	s.record("DeleteInstances", project)
	s.mu.Lock()
	delete(s.instances, project)
	s.mu.Unlock()
	return nil
}

func (s *StateStore) InsertRun(ctx context.Context, row orchestrator.RunRow) error {
	s.record("InsertRun", row)
	s.mu.Lock()
	s.runs = append(s.runs, row)
	s.mu.Unlock()
	return nil
}

func (s *StateStore) FinishRun(ctx context.Context, id, status, finishedAt string) error {
	s.record("FinishRun", id, status)
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.runs {
		if s.runs[i].ID == id {
			s.runs[i].Status = status
			s.runs[i].FinishedAt = finishedAt
			return nil
		}
	}
	return nil
}

func (s *StateStore) LatestRun(ctx context.Context, project string) (orchestrator.RunRow, bool, error) {
	s.record("LatestRun", project)
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.runs) - 1; i >= 0; i-- {
		if s.runs[i].Project == project {
			return s.runs[i], true, nil
		}
	}
	return orchestrator.RunRow{}, false, nil
}
