package main

import (
	"context"
	"fmt"

	"berth/config"
	"berth/internal/adapter/docker"
	"berth/internal/adapter/sqlite"
	"berth/internal/health"
	"berth/internal/orchestrator"
	"berth/internal/telemetry"
)

// env bundles the per-invocation runtime wiring shared by the commands.
type env struct {
	rt       *docker.Runtime
	store    *sqlite.Store
	shutdown func(context.Context) error
	orch     *orchestrator.Orchestrator
}

func openEnv(ctx context.Context, project string, proj config.Project) (*env, error) {
	rt, err := docker.NewRuntime()
	if err != nil {
		return nil, err
	}

	store, err := sqlite.Open(config.StatePath(project, proj))
	if err != nil {
		_ = rt.Close()
		return nil, err
	}

	tracer, shutdown, err := telemetry.Setup(ctx, "berth")
	if err != nil {
		_ = store.Close()
		_ = rt.Close()
		return nil, err
	}

	orch, err := orchestrator.New(project, orchestrator.Options{
		Runtime: rt,
		Health:  health.NewChecker(rt),
		Store:   store,
		Tracer:  tracer,
	})
	if err != nil {
		_ = shutdown(context.Background())
		_ = store.Close()
		_ = rt.Close()
		return nil, fmt.Errorf("initialize orchestrator: %w", err)
	}

	return &env{rt: rt, store: store, shutdown: shutdown, orch: orch}, nil
}

func (e *env) close() {
	_ = e.shutdown(context.Background())
	_ = e.store.Close()
	_ = e.rt.Close()
}
