package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"berth/internal/orchestrator"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "state", "shop.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestStore_InstanceRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)

	row := orchestrator.InstanceRow{
		Project:       "shop",
		Service:       "api",
		ContainerName: "ct-api",
		RunID:         "run-1",
		Phase:         "running",
		Restarts:      2,
		UpdatedAt:     "2026-01-02T03:04:05Z",
	}
	if err := store.UpsertInstance(ctx, row); err != nil {
		t.Fatalf("UpsertInstance() error = %v", err)
	}

	// Upsert replaces on the same (project, service) key.
	row.Phase = "healthy"
	row.Restarts = 3
	if err := store.UpsertInstance(ctx, row); err != nil {
		t.Fatalf("UpsertInstance() update error = %v", err)
	}

	rows, err := store.ListInstances(ctx, "shop")
	if err != nil {
		t.Fatalf("ListInstances() error = %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("len(rows) = %d, want 1", len(rows))
	}
	if rows[0].Phase != "healthy" || rows[0].Restarts != 3 {
		t.Fatalf("row = %+v, want updated phase and restarts", rows[0])
	}
}

func TestStore_ListScopedByProject(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)

	for _, project := range []string{"shop", "blog"} {
		err := store.UpsertInstance(ctx, orchestrator.InstanceRow{
			Project: project, Service: "api", ContainerName: "ct", RunID: "r",
			Phase: "running", UpdatedAt: "2026-01-02T03:04:05Z",
		})
		if err != nil {
			t.Fatalf("UpsertInstance(%s) error = %v", project, err)
		}
	}

	rows, err := store.ListInstances(ctx, "shop")
	if err != nil {
		t.Fatalf("ListInstances() error = %v", err)
	}
	if len(rows) != 1 || rows[0].Project != "shop" {
		t.Fatalf("rows = %+v, want only shop", rows)
	}
}

func TestStore_DeleteInstances(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)

	err := store.UpsertInstance(ctx, orchestrator.InstanceRow{
		Project: "shop", Service: "api", ContainerName: "ct", RunID: "r",
		Phase: "running", UpdatedAt: "2026-01-02T03:04:05Z",
	})
	if err != nil {
		t.Fatalf("UpsertInstance() error = %v", err)
	}
	if err := store.DeleteInstances(ctx, "shop"); err != nil {
		t.Fatalf("DeleteInstances() error = %v", err)
	}

	rows, err := store.ListInstances(ctx, "shop")
	if err != nil {
		t.Fatalf("ListInstances() error = %v", err)
	}
	if len(rows) != 0 {
		t.Fatalf("rows after delete = %+v, want none", rows)
	}
}

func TestStore_RunLifecycle(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)

	if _, ok, err := store.LatestRun(ctx, "shop"); err != nil || ok {
		t.Fatalf("LatestRun() on empty store = (ok=%v, err=%v), want none", ok, err)
	}

	first := orchestrator.RunRow{ID: "run-1", Project: "shop", Status: "starting", StartedAt: "2026-01-02T03:00:00Z"}
	second := orchestrator.RunRow{ID: "run-2", Project: "shop", Status: "starting", StartedAt: "2026-01-02T04:00:00Z"}
	for _, row := range []orchestrator.RunRow{first, second} {
		if err := store.InsertRun(ctx, row); err != nil {
			t.Fatalf("InsertRun(%s) error = %v", row.ID, err)
		}
	}

	if err := store.FinishRun(ctx, "run-2", "stopped", "2026-01-02T05:00:00Z"); err != nil {
		t.Fatalf("FinishRun() error = %v", err)
	}

	run, ok, err := store.LatestRun(ctx, "shop")
	if err != nil || !ok {
		t.Fatalf("LatestRun() = (ok=%v, err=%v), want run-2", ok, err)
	}
	if run.ID != "run-2" || run.Status != "stopped" || run.FinishedAt == "" {
		t.Fatalf("run = %+v, want finished run-2", run)
	}
}
