package orchestrator_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"berth/internal/adapter/fake"
	"berth/internal/manifest"
	"berth/internal/orchestrator"
)

const testProject = "shop"

func testSet(services ...manifest.ServiceSpec) *manifest.Set {
	return &manifest.Set{
		Project:  testProject,
		Services: services,
		Volumes:  map[string]manifest.VolumeSpec{"data": {Name: "data"}},
		Networks: map[string]manifest.NetworkSpec{"backend": {Name: "backend", Driver: "bridge"}},
	}
}

func plainService(name string) manifest.ServiceSpec {
	return manifest.ServiceSpec{
		Name:          name,
		Image:         "ghcr.io/example/" + name + ":v1",
		ContainerName: "ct-" + name,
		Networks:      []string{"backend"},
	}
}

func probedService(name string) manifest.ServiceSpec {
	svc := plainService(name)
	svc.HealthCheck = &manifest.HealthCheck{
		Test:     []string{"CMD", "true"},
		Interval: 10 * time.Millisecond,
		Timeout:  50 * time.Millisecond,
		Retries:  2,
	}
	return svc
}

type testEnv struct {
	rt     *fake.ContainerRuntime
	health *fake.HealthChecker
	store  *fake.StateStore
	orch   *orchestrator.Orchestrator
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	rt := fake.NewContainerRuntime()
	hc := fake.NewHealthChecker()
	store := fake.NewStateStore()
	orch, err := orchestrator.New(testProject, orchestrator.Options{
		Runtime:        rt,
		Health:         hc,
		Store:          store,
		RestartMax:     3,
		RestartBackoff: 10 * time.Millisecond,
		ReadyTimeout:   2 * time.Second,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(orch.Close)
	return &testEnv{rt: rt, health: hc, store: store, orch: orch}
}

func waitForPhase(t *testing.T, orch *orchestrator.Orchestrator, service string, want orchestrator.ServicePhase) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	st, err := orch.Reporter().WaitFor(ctx, service, func(st orchestrator.ServiceStatus) bool {
		return st.Phase == want
	})
	if err != nil {
		t.Fatalf("service %q never reached %v (last: %+v): %v", service, want, st, err)
	}
}

func TestUp_ProvisionsAndStarts(t *testing.T) {
	e := newTestEnv(t)
	set := testSet(plainService("api"))

	if err := e.orch.Up(context.Background(), set); err != nil {
		t.Fatalf("Up() error = %v", err)
	}

	if !e.rt.NetworkExists("shop_backend") {
		t.Fatal("network shop_backend not created")
	}
	if !e.rt.VolumeExists("shop_data") {
		t.Fatal("volume shop_data not created")
	}
	if !e.rt.ContainerRunning("ct-api") {
		t.Fatal("container ct-api not running")
	}
	if got := len(e.rt.Calls("ImagePull")); got != 1 {
		t.Fatalf("ImagePull calls = %d, want 1", got)
	}

	waitForPhase(t, e.orch, "api", orchestrator.PhaseRunning)
}

func TestUp_HealthyService(t *testing.T) {
	e := newTestEnv(t)
	set := testSet(probedService("api"))

	if err := e.orch.Up(context.Background(), set); err != nil {
		t.Fatalf("Up() error = %v", err)
	}
	waitForPhase(t, e.orch, "api", orchestrator.PhaseHealthy)

	if len(e.health.Calls("Probe")) == 0 {
		t.Fatal("no probes recorded")
	}
}

func TestUp_Idempotent(t *testing.T) {
	e := newTestEnv(t)
	set := testSet(plainService("api"), plainService("web"))

	if err := e.orch.Up(context.Background(), set); err != nil {
		t.Fatalf("first Up() error = %v", err)
	}
	creates := len(e.rt.Calls("ContainerCreate"))
	starts := len(e.rt.Calls("ContainerStart"))

	if err := e.orch.Up(context.Background(), set); err != nil {
		t.Fatalf("second Up() error = %v", err)
	}
	if got := len(e.rt.Calls("ContainerCreate")); got != creates {
		t.Fatalf("ContainerCreate calls after second Up = %d, want %d", got, creates)
	}
	if got := len(e.rt.Calls("ContainerStart")); got != starts {
		t.Fatalf("ContainerStart calls after second Up = %d, want %d", got, starts)
	}
	if got := len(e.rt.Calls("NetworkCreate")); got != 1 {
		t.Fatalf("NetworkCreate calls = %d, want 1", got)
	}
	if got := len(e.rt.Calls("VolumeCreate")); got != 1 {
		t.Fatalf("VolumeCreate calls = %d, want 1", got)
	}
}

func TestUp_EachInvocationRecordsOwnRun(t *testing.T) {
	e := newTestEnv(t)
	set := testSet(plainService("api"))
	ctx := context.Background()

	if err := e.orch.Up(ctx, set); err != nil {
		t.Fatalf("first Up() error = %v", err)
	}
	first, ok, err := e.store.LatestRun(ctx, testProject)
	if err != nil || !ok {
		t.Fatalf("LatestRun after first Up = (%v, %v)", ok, err)
	}

	if err := e.orch.Up(ctx, set); err != nil {
		t.Fatalf("second Up() error = %v", err)
	}
	second, ok, err := e.store.LatestRun(ctx, testProject)
	if err != nil || !ok {
		t.Fatalf("LatestRun after second Up = (%v, %v)", ok, err)
	}

	if first.ID == second.ID {
		t.Fatalf("second Up reused run ID %q", first.ID)
	}
	if second.Status != "running" {
		t.Fatalf("second run status = %q, want running", second.Status)
	}
}

func TestUp_PersistsTimestampsFromClock(t *testing.T) {
	rt := fake.NewContainerRuntime()
	store := fake.NewStateStore()
	start := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	clk := fake.NewClock(start)
	orch, err := orchestrator.New(testProject, orchestrator.Options{
		Runtime:        rt,
		Health:         fake.NewHealthChecker(),
		Store:          store,
		Clock:          clk,
		RestartMax:     3,
		RestartBackoff: 10 * time.Millisecond,
		ReadyTimeout:   2 * time.Second,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(orch.Close)

	svc := plainService("api")
	svc.RestartPolicy = manifest.RestartNever
	ctx := context.Background()
	if err := orch.Up(ctx, testSet(svc)); err != nil {
		t.Fatalf("Up() error = %v", err)
	}
	waitForPhase(t, orch, "api", orchestrator.PhaseRunning)

	rows, err := store.ListInstances(ctx, testProject)
	if err != nil || len(rows) != 1 {
		t.Fatalf("ListInstances = (%v, %v), want one row", rows, err)
	}
	if got, want := rows[0].UpdatedAt, start.Format(time.RFC3339Nano); got != want {
		t.Fatalf("instance UpdatedAt = %q, want %q", got, want)
	}
	run, ok, err := store.LatestRun(ctx, testProject)
	if err != nil || !ok {
		t.Fatalf("LatestRun = (%v, %v)", ok, err)
	}
	if got, want := run.StartedAt, start.Format(time.RFC3339Nano); got != want {
		t.Fatalf("run StartedAt = %q, want %q", got, want)
	}

	clk.Advance(time.Minute)
	rt.SignalExit("ct-api", 3)
	waitForPhase(t, orch, "api", orchestrator.PhaseFailed)

	// The store write trails the reporter publish by a hair.
	want := start.Add(time.Minute).Format(time.RFC3339Nano)
	deadline := time.Now().Add(2 * time.Second)
	for {
		rows, err = store.ListInstances(ctx, testProject)
		if err == nil && len(rows) == 1 && rows[0].UpdatedAt == want {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("instance rows after exit = (%+v, %v), want UpdatedAt %q", rows, err, want)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestUp_AdoptsRunningContainerFromEarlierProcess(t *testing.T) {
	e := newTestEnv(t)
	set := testSet(plainService("api"))

	if err := e.orch.Up(context.Background(), set); err != nil {
		t.Fatalf("Up() error = %v", err)
	}
	// Simulate a process restart: supervisors go away, containers stay.
	e.orch.Close()
	e.rt.Reset()

	orch2, err := orchestrator.New(testProject, orchestrator.Options{
		Runtime:        e.rt,
		Health:         e.health,
		RestartBackoff: 10 * time.Millisecond,
		ReadyTimeout:   2 * time.Second,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer orch2.Close()

	if err := orch2.Up(context.Background(), set); err != nil {
		t.Fatalf("second process Up() error = %v", err)
	}
	if got := len(e.rt.Calls("ContainerCreate")); got != 0 {
		t.Fatalf("ContainerCreate calls = %d, want 0 (adoption)", got)
	}
	if got := len(e.rt.Calls("ContainerStart")); got != 0 {
		t.Fatalf("ContainerStart calls = %d, want 0 (adoption)", got)
	}
	waitForPhase(t, orch2, "api", orchestrator.PhaseRunning)
}

func TestUp_AdoptionRemovesStaleDuplicates(t *testing.T) {
	e := newTestEnv(t)
	svc := plainService("api")
	set := testSet(svc)

	labels := func(hash string) map[string]string {
		return map[string]string{
			orchestrator.LabelProject:    testProject,
			orchestrator.LabelService:    "api",
			orchestrator.LabelConfigHash: hash,
		}
	}
	// One container matches the current spec; two more carry the same
	// service label but are stale (old spec, stopped).
	e.rt.AddContainer(orchestrator.ContainerCreateConfig{
		Name: "ct-api", Image: svc.Image, Labels: labels(orchestrator.ConfigHash(svc)),
	}, true)
	e.rt.AddContainer(orchestrator.ContainerCreateConfig{
		Name: "ct-api-old", Image: "ghcr.io/example/api:v0", Labels: labels("deadbeef0000"),
	}, true)
	e.rt.AddContainer(orchestrator.ContainerCreateConfig{
		Name: "ct-api-stopped", Image: svc.Image, Labels: labels(orchestrator.ConfigHash(svc)),
	}, false)

	if err := e.orch.Up(context.Background(), set); err != nil {
		t.Fatalf("Up() error = %v", err)
	}

	if got := len(e.rt.Calls("ContainerCreate")); got != 0 {
		t.Fatalf("ContainerCreate calls = %d, want 0 (adoption)", got)
	}
	if !e.rt.ContainerRunning("ct-api") {
		t.Fatal("adopted container ct-api not running")
	}
	for _, stale := range []string{"ct-api-old", "ct-api-stopped"} {
		info, err := e.rt.ContainerInspect(context.Background(), stale)
		if err != nil {
			t.Fatalf("ContainerInspect(%q) error = %v", stale, err)
		}
		if info.Exists {
			t.Fatalf("stale container %q survived adoption", stale)
		}
	}
	waitForPhase(t, e.orch, "api", orchestrator.PhaseRunning)
}

func TestUp_RecreatesOnSpecChange(t *testing.T) {
	e := newTestEnv(t)
	set := testSet(plainService("api"))

	if err := e.orch.Up(context.Background(), set); err != nil {
		t.Fatalf("Up() error = %v", err)
	}

	changed := plainService("api")
	changed.Image = "ghcr.io/example/api:v2"
	if err := e.orch.Up(context.Background(), testSet(changed)); err != nil {
		t.Fatalf("Up() with changed spec error = %v", err)
	}

	if got := len(e.rt.Calls("ContainerCreate")); got != 2 {
		t.Fatalf("ContainerCreate calls = %d, want 2 (recreate)", got)
	}
	if got := len(e.rt.Calls("ContainerRemove")); got == 0 {
		t.Fatal("old container never removed")
	}
	waitForPhase(t, e.orch, "api", orchestrator.PhaseRunning)
}

func TestUp_StartsTiersInDependencyOrder(t *testing.T) {
	e := newTestEnv(t)
	db := plainService("db")
	api := plainService("api")
	api.DependsOn = []string{"db"}
	set := testSet(db, api)

	if err := e.orch.Up(context.Background(), set); err != nil {
		t.Fatalf("Up() error = %v", err)
	}

	starts := e.rt.Calls("ContainerStart")
	if len(starts) != 2 {
		t.Fatalf("ContainerStart calls = %d, want 2", len(starts))
	}
	if starts[0].Args[0] != "ct-db" || starts[1].Args[0] != "ct-api" {
		t.Fatalf("start order = %v, %v; want db before api", starts[0].Args[0], starts[1].Args[0])
	}
}

func TestUp_UnhealthyServiceFailsReadiness(t *testing.T) {
	e := newTestEnv(t)
	svc := probedService("api")
	svc.RestartPolicy = manifest.RestartNever
	set := testSet(svc)

	e.health.SetUnhealthy("ct-api", errors.New("connection refused"))

	err := e.orch.Up(context.Background(), set)
	var herr *orchestrator.HealthCheckError
	if !errors.As(err, &herr) {
		t.Fatalf("Up() error = %v, want *HealthCheckError", err)
	}
	if herr.Service != "api" {
		t.Fatalf("HealthCheckError.Service = %q, want api", herr.Service)
	}

	st, ok := e.orch.Reporter().Get("api")
	if !ok || st.Phase != orchestrator.PhaseUnhealthy {
		t.Fatalf("api status = %+v, want unhealthy", st)
	}
}

func TestUp_UnhealthyServiceCanRecover(t *testing.T) {
	e := newTestEnv(t)
	svc := probedService("api")
	svc.RestartPolicy = manifest.RestartNever
	set := testSet(svc)

	e.health.SetUnhealthy("ct-api", errors.New("warming up"))
	if err := e.orch.Up(context.Background(), set); err == nil {
		t.Fatal("Up() error = nil, want readiness failure")
	}

	e.health.SetHealthy("ct-api")
	waitForPhase(t, e.orch, "api", orchestrator.PhaseHealthy)
}

func TestUp_MixedHealthSnapshot(t *testing.T) {
	e := newTestEnv(t)
	good := probedService("good")
	bad := probedService("bad")
	bad.RestartPolicy = manifest.RestartNever
	set := testSet(good, bad)

	e.health.SetUnhealthy("ct-bad", errors.New("boom"))

	if err := e.orch.Up(context.Background(), set); err == nil {
		t.Fatal("Up() error = nil, want readiness failure for bad")
	}

	waitForPhase(t, e.orch, "good", orchestrator.PhaseHealthy)
	st, _ := e.orch.Reporter().Get("bad")
	if st.Phase != orchestrator.PhaseUnhealthy {
		t.Fatalf("bad phase = %v, want unhealthy", st.Phase)
	}
}

func TestSupervisor_RestartsCrashedService(t *testing.T) {
	e := newTestEnv(t)
	svc := plainService("api")
	svc.RestartPolicy = manifest.RestartUnlessStopped
	set := testSet(svc)

	if err := e.orch.Up(context.Background(), set); err != nil {
		t.Fatalf("Up() error = %v", err)
	}

	e.rt.SignalExit("ct-api", 1)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	st, err := e.orch.Reporter().WaitFor(ctx, "api", func(st orchestrator.ServiceStatus) bool {
		return st.Restarts == 1 && st.Phase == orchestrator.PhaseRunning
	})
	if err != nil {
		t.Fatalf("api never restarted (last: %+v): %v", st, err)
	}
	if got := len(e.rt.Calls("ContainerStart")); got != 2 {
		t.Fatalf("ContainerStart calls = %d, want 2 (one restart)", got)
	}
}

func TestSupervisor_CleanExitWithoutRestartPolicy(t *testing.T) {
	e := newTestEnv(t)
	svc := plainService("job")
	svc.RestartPolicy = manifest.RestartNever
	set := testSet(svc)

	if err := e.orch.Up(context.Background(), set); err != nil {
		t.Fatalf("Up() error = %v", err)
	}

	e.rt.SignalExit("ct-job", 0)
	waitForPhase(t, e.orch, "job", orchestrator.PhaseStopped)
}

func TestSupervisor_FailureExitWithoutRestartPolicy(t *testing.T) {
	e := newTestEnv(t)
	svc := plainService("job")
	svc.RestartPolicy = manifest.RestartNever
	set := testSet(svc)

	if err := e.orch.Up(context.Background(), set); err != nil {
		t.Fatalf("Up() error = %v", err)
	}

	e.rt.SignalExit("ct-job", 3)
	waitForPhase(t, e.orch, "job", orchestrator.PhaseFailed)
}

func TestSupervisor_BoundedRestartAttempts(t *testing.T) {
	e := newTestEnv(t)
	svc := plainService("api")
	svc.RestartPolicy = manifest.RestartAlways
	set := testSet(svc)

	if err := e.orch.Up(context.Background(), set); err != nil {
		t.Fatalf("Up() error = %v", err)
	}

	// Crash faster than the supervisor can restart, until the budget runs out.
	done := make(chan struct{})
	go func() {
		defer close(done)
		deadline := time.After(2 * time.Second)
		for {
			select {
			case <-deadline:
				return
			default:
			}
			e.rt.SignalExit("ct-api", 1)
			st, ok := e.orch.Reporter().Get("api")
			if ok && st.Phase == orchestrator.PhaseFailed {
				return
			}
			time.Sleep(5 * time.Millisecond)
		}
	}()
	<-done

	waitForPhase(t, e.orch, "api", orchestrator.PhaseFailed)
	st, _ := e.orch.Reporter().Get("api")
	if st.Restarts > 3 {
		t.Fatalf("Restarts = %d, want <= RestartMax", st.Restarts)
	}
}

func TestUp_StartFailureReturnsStartError(t *testing.T) {
	e := newTestEnv(t)
	svc := plainService("api")
	set := testSet(svc)

	e.rt.ContainerStartErr = func(ctx context.Context, name string) error {
		return errors.New("oci runtime error")
	}

	err := e.orch.Up(context.Background(), set)
	var serr *orchestrator.StartError
	if !errors.As(err, &serr) {
		t.Fatalf("Up() error = %v, want *StartError", err)
	}
	if serr.Service != "api" {
		t.Fatalf("StartError.Service = %q, want api", serr.Service)
	}
}

func TestUp_NetworkProvisionFailure(t *testing.T) {
	e := newTestEnv(t)
	set := testSet(plainService("api"))

	e.rt.NetworkCreateErr = func(ctx context.Context, name, driver string) error {
		return errors.New("address pool exhausted")
	}

	err := e.orch.Up(context.Background(), set)
	var perr *orchestrator.ProvisionError
	if !errors.As(err, &perr) {
		t.Fatalf("Up() error = %v, want *ProvisionError", err)
	}
	if perr.Kind != "network" || perr.Name != "shop_backend" {
		t.Fatalf("ProvisionError = %+v, want network shop_backend", perr)
	}
	if got := len(e.rt.Calls("ContainerCreate")); got != 0 {
		t.Fatalf("ContainerCreate calls = %d, want 0 after provision failure", got)
	}
}

func TestDown_RemovesContainersPreservesVolumes(t *testing.T) {
	e := newTestEnv(t)
	set := testSet(plainService("api"))

	if err := e.orch.Up(context.Background(), set); err != nil {
		t.Fatalf("Up() error = %v", err)
	}
	if err := e.orch.Down(context.Background(), set, false); err != nil {
		t.Fatalf("Down() error = %v", err)
	}

	left, err := e.rt.ContainerList(context.Background(), map[string]string{orchestrator.LabelProject: testProject})
	if err != nil {
		t.Fatalf("ContainerList() error = %v", err)
	}
	if len(left) != 0 {
		t.Fatalf("containers left after Down = %d, want 0", len(left))
	}
	if !e.rt.VolumeExists("shop_data") {
		t.Fatal("volume removed without purge")
	}
	if !e.rt.NetworkExists("shop_backend") {
		t.Fatal("network removed without purge")
	}
}

func TestDown_PurgeRemovesVolumesAndNetworks(t *testing.T) {
	e := newTestEnv(t)
	set := testSet(plainService("api"))

	if err := e.orch.Up(context.Background(), set); err != nil {
		t.Fatalf("Up() error = %v", err)
	}
	if err := e.orch.Down(context.Background(), set, true); err != nil {
		t.Fatalf("Down() error = %v", err)
	}
	if e.rt.VolumeExists("shop_data") {
		t.Fatal("volume survived purge")
	}
	if e.rt.NetworkExists("shop_backend") {
		t.Fatal("network survived purge")
	}
}

func TestDown_StopsHealthPolling(t *testing.T) {
	e := newTestEnv(t)
	set := testSet(probedService("api"))

	if err := e.orch.Up(context.Background(), set); err != nil {
		t.Fatalf("Up() error = %v", err)
	}
	waitForPhase(t, e.orch, "api", orchestrator.PhaseHealthy)

	if err := e.orch.Down(context.Background(), set, false); err != nil {
		t.Fatalf("Down() error = %v", err)
	}

	before := len(e.health.Calls("Probe"))
	time.Sleep(100 * time.Millisecond)
	after := len(e.health.Calls("Probe"))
	if after != before {
		t.Fatalf("probes continued after Down: %d -> %d", before, after)
	}
}

func TestDown_DoesNotResurrectUnlessStopped(t *testing.T) {
	e := newTestEnv(t)
	svc := plainService("api")
	svc.RestartPolicy = manifest.RestartUnlessStopped
	set := testSet(svc)

	if err := e.orch.Up(context.Background(), set); err != nil {
		t.Fatalf("Up() error = %v", err)
	}
	starts := len(e.rt.Calls("ContainerStart"))

	if err := e.orch.Down(context.Background(), set, false); err != nil {
		t.Fatalf("Down() error = %v", err)
	}

	time.Sleep(50 * time.Millisecond)
	if got := len(e.rt.Calls("ContainerStart")); got != starts {
		t.Fatalf("ContainerStart calls after Down = %d, want %d", got, starts)
	}
}

func TestDown_CollectsStopErrors(t *testing.T) {
	e := newTestEnv(t)
	set := testSet(plainService("api"), plainService("web"))

	if err := e.orch.Up(context.Background(), set); err != nil {
		t.Fatalf("Up() error = %v", err)
	}

	e.rt.ContainerStopErr = func(ctx context.Context, name string) error {
		if name == "ct-api" {
			return errors.New("stop timeout")
		}
		return nil
	}

	err := e.orch.Down(context.Background(), set, false)
	var serr *orchestrator.StopError
	if !errors.As(err, &serr) {
		t.Fatalf("Down() error = %v, want *StopError", err)
	}
	// The healthy sibling still went down.
	if e.rt.ContainerRunning("ct-web") {
		t.Fatal("web still running; one failed stop must not block the rest")
	}
}

func TestObserve_MergesStoreAndEngineState(t *testing.T) {
	e := newTestEnv(t)
	set := testSet(plainService("api"))

	if err := e.orch.Up(context.Background(), set); err != nil {
		t.Fatalf("Up() error = %v", err)
	}
	waitForPhase(t, e.orch, "api", orchestrator.PhaseRunning)

	statuses, err := orchestrator.Observe(context.Background(), e.rt, e.store, testProject)
	if err != nil {
		t.Fatalf("Observe() error = %v", err)
	}
	if len(statuses) != 1 || statuses[0].Service != "api" {
		t.Fatalf("Observe() = %+v, want one api row", statuses)
	}
	if statuses[0].Phase != orchestrator.PhaseRunning {
		t.Fatalf("observed phase = %v, want running", statuses[0].Phase)
	}

	// Container dies behind the store's back; Observe must notice.
	e.rt.SignalExit("ct-api", 1)
	e.orch.Close()
	statuses, err = orchestrator.Observe(context.Background(), e.rt, e.store, testProject)
	if err != nil {
		t.Fatalf("Observe() after exit error = %v", err)
	}
	if statuses[0].Phase.Terminal() == false && statuses[0].Phase != orchestrator.PhaseStopped {
		t.Fatalf("observed phase = %v, want terminal after exit", statuses[0].Phase)
	}
}

func TestLogs_FindsServiceContainer(t *testing.T) {
	e := newTestEnv(t)
	set := testSet(plainService("api"))

	if err := e.orch.Up(context.Background(), set); err != nil {
		t.Fatalf("Up() error = %v", err)
	}
	e.rt.SetLogs("ct-api", "hello\nworld")

	out, err := orchestrator.Logs(context.Background(), e.rt, testProject, "api", 100)
	if err != nil {
		t.Fatalf("Logs() error = %v", err)
	}
	if out != "hello\nworld" {
		t.Fatalf("Logs() = %q, want container log content", out)
	}

	if _, err := orchestrator.Logs(context.Background(), e.rt, testProject, "ghost", 0); err == nil {
		t.Fatal("Logs(ghost) error = nil, want not-found error")
	}
}
