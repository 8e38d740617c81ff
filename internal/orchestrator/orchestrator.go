// Package orchestrator drives service containers from a manifest set to a
// healthy steady state and back down, one supervisor goroutine per
// service.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"berth/internal/manifest"
	"berth/internal/plan"
)

// Labels stamped on every managed container. The config-hash label lets a
// later Up recognize containers whose spec is unchanged and adopt them
// instead of recreating.
const (
	LabelProject    = "berth.project"
	LabelService    = "berth.service"
	LabelRunID      = "berth.run_id"
	LabelConfigHash = "berth.config_hash"
)

const (
	DefaultRestartMax     = 5
	DefaultRestartBackoff = 2 * time.Second
)

// Options configures an Orchestrator. Runtime is required; everything
// else has a working default.
type Options struct {
	Runtime ContainerRuntime
	Health  HealthChecker
	Store   StateStore
	Clock   Clock
	Tracer  trace.Tracer

	// RestartMax bounds restart attempts per service before it is marked
	// failed. RestartBackoff is the pause between attempts.
	RestartMax     int
	RestartBackoff time.Duration

	// ReadyTimeout caps how long Up waits for one service to become
	// ready. Zero derives a budget from the service's health check.
	ReadyTimeout time.Duration
}

type Orchestrator struct {
	project  string
	rt       ContainerRuntime
	health   HealthChecker
	store    StateStore
	clock    Clock
	tracer   trace.Tracer
	reporter *Reporter

	restartMax   int
	backoff      time.Duration
	readyTimeout time.Duration

	// ensureMu serializes network and volume ensure-exists so concurrent
	// callers race to at most one create per resource.
	ensureMu sync.Mutex

	mu          sync.Mutex
	supervisors map[string]*supervisor
	runID       string
}

func New(project string, opts Options) (*Orchestrator, error) {
	if project == "" {
		return nil, errors.New("orchestrator: project name required")
	}
	if opts.Runtime == nil {
		return nil, errors.New("orchestrator: container runtime required")
	}
	o := &Orchestrator{
		project:      project,
		rt:           opts.Runtime,
		health:       opts.Health,
		store:        opts.Store,
		clock:        opts.Clock,
		tracer:       opts.Tracer,
		reporter:     NewReporter(),
		restartMax:   opts.RestartMax,
		backoff:      opts.RestartBackoff,
		readyTimeout: opts.ReadyTimeout,
		supervisors:  make(map[string]*supervisor),
	}
	if o.clock == nil {
		o.clock = RealClock{}
	}
	if o.restartMax <= 0 {
		o.restartMax = DefaultRestartMax
	}
	if o.backoff <= 0 {
		o.backoff = DefaultRestartBackoff
	}
	return o, nil
}

// Reporter exposes the read-only status surface.
func (o *Orchestrator) Reporter() *Reporter { return o.reporter }

// Snapshot returns the current status of every managed service.
func (o *Orchestrator) Snapshot() []ServiceStatus { return o.reporter.Snapshot() }

// Up brings the set to its desired state: networks and volumes ensured,
// every service started in dependency order and gated on readiness.
// Calling Up again with an unchanged set is a no-op for services that are
// already up; changed services are recreated.
func (o *Orchestrator) Up(ctx context.Context, set *manifest.Set) (err error) {
	ctx, span := o.startSpan(ctx, "berth.up",
		attribute.String("project", o.project),
		attribute.Int("services", len(set.Services)))
	defer func() { endSpan(span, err) }()

	p, err := plan.Build(set)
	if err != nil {
		return err
	}
	if err := o.rt.WaitReady(ctx); err != nil {
		return fmt.Errorf("container engine not ready: %w", err)
	}

	// Each Up is its own run row, even a fully idempotent re-up.
	runID := uuid.NewString()
	o.mu.Lock()
	o.runID = runID
	o.mu.Unlock()

	if o.store != nil {
		row := RunRow{
			ID:        runID,
			Project:   o.project,
			Status:    "starting",
			StartedAt: o.clock.Now().UTC().Format(time.RFC3339Nano),
		}
		if serr := o.store.InsertRun(ctx, row); serr != nil {
			slog.Warn("persist run", "project", o.project, "err", serr)
		}
		defer func() {
			status := "running"
			if err != nil {
				status = "failed"
			}
			finished := o.clock.Now().UTC().Format(time.RFC3339Nano)
			if serr := o.store.FinishRun(context.Background(), runID, status, finished); serr != nil {
				slog.Warn("finish run", "project", o.project, "err", serr)
			}
		}()
	}

	if err := o.ensureNetworks(ctx, p.Networks); err != nil {
		return err
	}
	if err := o.ensureVolumes(ctx, p.Volumes); err != nil {
		return err
	}
	if err := o.prePullImages(ctx, p.Services()); err != nil {
		return err
	}

	for i, tier := range p.Tiers {
		if err := o.upTier(ctx, set, tier); err != nil {
			return err
		}
		slog.Debug("tier up", "project", o.project, "tier", i, "services", len(tier))
	}
	return nil
}

// upTier starts every service of one tier concurrently, then blocks until
// each is ready (or has conclusively failed) before the caller moves on to
// dependents.
func (o *Orchestrator) upTier(ctx context.Context, set *manifest.Set, tier []manifest.ServiceSpec) error {
	var (
		wg   sync.WaitGroup
		emu  sync.Mutex
		errs []error
	)
	for _, svc := range tier {
		wg.Add(1)
		go func(svc manifest.ServiceSpec) {
			defer wg.Done()
			if uerr := o.upService(ctx, set, svc); uerr != nil {
				emu.Lock()
				errs = append(errs, uerr)
				emu.Unlock()
			}
		}(svc)
	}
	wg.Wait()
	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	for _, svc := range tier {
		if werr := o.waitReady(ctx, svc); werr != nil {
			errs = append(errs, werr)
		}
	}
	return errors.Join(errs...)
}

// upService ensures one service has a running, supervised container.
// Resolution order: an in-process supervisor with an unchanged spec wins;
// then a labeled container with a matching config hash is adopted; anything
// else is recreated from scratch.
func (o *Orchestrator) upService(ctx context.Context, set *manifest.Set, svc manifest.ServiceSpec) error {
	ctx, span := o.startSpan(ctx, "berth.up.service", attribute.String("service", svc.Name))
	var err error
	defer func() { endSpan(span, err) }()

	o.mu.Lock()
	existing := o.supervisors[svc.Name]
	runID := o.runID
	o.mu.Unlock()

	if existing != nil {
		if manifest.SpecEqual(existing.spec, svc) && !o.supervisorDone(existing) {
			slog.Debug("service already supervised", "project", o.project, "service", svc.Name)
			return nil
		}
		existing.stop()
		o.mu.Lock()
		delete(o.supervisors, svc.Name)
		o.mu.Unlock()
		if existing.container != "" {
			if rerr := o.rt.ContainerRemove(ctx, existing.container, true); rerr != nil {
				slog.Warn("remove superseded container", "container", existing.container, "err", rerr)
			}
		}
	}

	hash := ConfigHash(svc)
	summaries, lerr := o.rt.ContainerList(ctx, map[string]string{
		LabelProject: o.project,
		LabelService: svc.Name,
	})
	if lerr != nil {
		err = &StartError{Service: svc.Name, Err: lerr}
		o.reportFailure(svc.Name, "", err)
		return err
	}

	// At most one running container with a matching config hash is kept;
	// every other container under this service label is stale (stopped,
	// superseded spec, or a duplicate) and removed.
	var adopt string
	for _, sum := range summaries {
		if adopt == "" && sum.Running && sum.Labels[LabelConfigHash] == hash {
			adopt = sum.Name
			continue
		}
		if rerr := o.rt.ContainerRemove(ctx, sum.Name, true); rerr != nil {
			err = &StartError{Service: svc.Name, Container: sum.Name,
				Err: fmt.Errorf("remove stale container: %w", rerr)}
			o.reportFailure(svc.Name, sum.Name, err)
			return err
		}
	}
	if adopt != "" {
		info, ierr := o.rt.ContainerInspect(ctx, adopt)
		if ierr == nil && info.Exists && info.Running {
			slog.Info("adopting running container", "project", o.project, "service", svc.Name, "container", adopt)
			o.startSupervisor(svc, adopt, runID, true)
			return nil
		}
		// Exited between listing and adoption; rebuild from the spec.
		if rerr := o.rt.ContainerRemove(ctx, adopt, true); rerr != nil {
			err = &StartError{Service: svc.Name, Container: adopt,
				Err: fmt.Errorf("remove stale container: %w", rerr)}
			o.reportFailure(svc.Name, adopt, err)
			return err
		}
	}

	name := svc.ContainerName
	if name == "" {
		name = ContainerName(o.project, svc.Name)
	}
	cfg := o.createConfig(svc, name, runID, hash)
	if cerr := o.rt.ContainerCreate(ctx, cfg); cerr != nil {
		err = &StartError{Service: svc.Name, Container: name, Err: cerr}
		o.reportFailure(svc.Name, name, err)
		return err
	}

	o.startSupervisor(svc, name, runID, false)
	return nil
}

func (o *Orchestrator) startSupervisor(svc manifest.ServiceSpec, container, runID string, adopted bool) {
	supCtx, cancel := context.WithCancel(context.Background())
	sup := &supervisor{
		project:    o.project,
		spec:       svc,
		container:  container,
		rt:         o.rt,
		health:     o.health,
		reporter:   o.reporter,
		store:      o.store,
		clock:      o.clock,
		runID:      runID,
		restartMax: o.restartMax,
		backoff:    o.backoff,
		adopted:    adopted,
		cancel:     cancel,
		done:       make(chan struct{}),
		phase:      PhasePending,
	}
	o.reporter.set(ServiceStatus{
		Service:   svc.Name,
		Container: container,
		Phase:     PhasePending,
		UpdatedAt: o.clock.Now(),
	})

	o.mu.Lock()
	o.supervisors[svc.Name] = sup
	o.mu.Unlock()

	go sup.run(supCtx)
}

func (o *Orchestrator) supervisorDone(sup *supervisor) bool {
	select {
	case <-sup.done:
		return true
	default:
		return false
	}
}

// waitReady blocks until svc reaches its ready phase: Healthy when it has
// a probe, Running otherwise. A terminal phase short-circuits with the
// matching typed error.
func (o *Orchestrator) waitReady(ctx context.Context, svc manifest.ServiceSpec) error {
	hasProbe := svc.HealthCheck != nil
	ready := PhaseRunning
	if hasProbe {
		ready = PhaseHealthy
	}

	waitCtx, cancel := context.WithTimeout(ctx, o.readyBudget(svc))
	defer cancel()

	st, err := o.reporter.WaitFor(waitCtx, svc.Name, func(st ServiceStatus) bool {
		return st.Phase == ready || st.Phase == PhaseUnhealthy || st.Phase.Terminal()
	})
	if err != nil {
		if hasProbe {
			return &HealthCheckError{Service: svc.Name,
				Err: fmt.Errorf("not healthy within %s: %w", o.readyBudget(svc), err)}
		}
		return &StartError{Service: svc.Name,
			Err: fmt.Errorf("not running within %s: %w", o.readyBudget(svc), err)}
	}

	switch st.Phase {
	case ready:
		return nil
	case PhaseUnhealthy:
		return &HealthCheckError{
			Service:   svc.Name,
			Container: st.Container,
			Failures:  svc.HealthCheck.EffectiveRetries(),
			Err:       errors.New(st.Err),
		}
	case PhaseFailed:
		return &StartError{Service: svc.Name, Container: st.Container, Err: errors.New(st.Err)}
	case PhaseStopped:
		return &StartError{Service: svc.Name, Container: st.Container,
			Err: errors.New("stopped before becoming ready")}
	default:
		return nil
	}
}

// readyBudget derives a generous per-service readiness deadline from the
// probe parameters and restart policy, unless an explicit cap was set.
func (o *Orchestrator) readyBudget(svc manifest.ServiceSpec) time.Duration {
	if o.readyTimeout > 0 {
		return o.readyTimeout
	}
	budget := 30 * time.Second
	budget += time.Duration(o.restartMax) * o.backoff
	if hc := svc.HealthCheck; hc != nil {
		retries := time.Duration(hc.EffectiveRetries() + 1)
		budget += hc.StartPeriod + retries*(hc.EffectiveInterval()+hc.EffectiveTimeout())
	}
	return budget
}

func (o *Orchestrator) reportFailure(service, container string, cause error) {
	o.reporter.set(ServiceStatus{
		Service:   service,
		Container: container,
		Phase:     PhaseFailed,
		Err:       cause.Error(),
		UpdatedAt: o.clock.Now(),
	})
}

// Down stops every managed service of the set and removes their
// containers. Networks and volumes are preserved unless purge is set.
// Individual stop failures are collected, never fatal to the rest.
func (o *Orchestrator) Down(ctx context.Context, set *manifest.Set, purge bool) (err error) {
	ctx, span := o.startSpan(ctx, "berth.down",
		attribute.String("project", o.project),
		attribute.Bool("purge", purge))
	defer func() { endSpan(span, err) }()

	o.mu.Lock()
	sups := make([]*supervisor, 0, len(o.supervisors))
	for _, sup := range o.supervisors {
		sups = append(sups, sup)
	}
	o.supervisors = make(map[string]*supervisor)
	o.mu.Unlock()

	// Interrupt supervisors first so no restart or health poll races the
	// container removal below.
	for _, sup := range sups {
		sup.stop()
	}

	summaries, lerr := o.rt.ContainerList(ctx, map[string]string{LabelProject: o.project})
	if lerr != nil {
		return fmt.Errorf("list containers for project %q: %w", o.project, lerr)
	}

	var (
		wg   sync.WaitGroup
		emu  sync.Mutex
		errs []error
	)
	for _, sum := range summaries {
		wg.Add(1)
		go func(sum ContainerSummary) {
			defer wg.Done()
			service := sum.Labels[LabelService]
			if serr := o.rt.ContainerStop(ctx, sum.Name); serr != nil {
				emu.Lock()
				errs = append(errs, &StopError{Service: service, Container: sum.Name, Err: serr})
				emu.Unlock()
				return
			}
			if rerr := o.rt.ContainerRemove(ctx, sum.Name, false); rerr != nil {
				emu.Lock()
				errs = append(errs, &StopError{Service: service, Container: sum.Name,
					Err: fmt.Errorf("remove: %w", rerr)})
				emu.Unlock()
				return
			}
			o.reporter.set(ServiceStatus{
				Service:   service,
				Container: sum.Name,
				Phase:     PhaseStopped,
				UpdatedAt: o.clock.Now(),
			})
		}(sum)
	}
	wg.Wait()

	if purge {
		for name := range set.Volumes {
			if verr := o.rt.VolumeRemove(ctx, VolumeName(o.project, name), true); verr != nil {
				errs = append(errs, fmt.Errorf("purge volume %q: %w", name, verr))
			}
		}
		for name := range set.Networks {
			if nerr := o.rt.NetworkRemove(ctx, NetworkName(o.project, name)); nerr != nil {
				errs = append(errs, fmt.Errorf("purge network %q: %w", name, nerr))
			}
		}
	}

	if o.store != nil {
		if serr := o.store.DeleteInstances(ctx, o.project); serr != nil {
			slog.Warn("clear instance state", "project", o.project, "err", serr)
		}
		if run, ok, rerr := o.store.LatestRun(ctx, o.project); rerr == nil && ok && run.FinishedAt == "" {
			finished := o.clock.Now().UTC().Format(time.RFC3339Nano)
			if ferr := o.store.FinishRun(ctx, run.ID, "stopped", finished); ferr != nil {
				slog.Warn("finish run", "project", o.project, "err", ferr)
			}
		}
	}

	err = errors.Join(errs...)
	return err
}

// Close stops all supervisors without stopping their containers. Services
// keep running; a later Up adopts them by config hash.
func (o *Orchestrator) Close() {
	o.mu.Lock()
	sups := o.supervisors
	o.supervisors = make(map[string]*supervisor)
	o.mu.Unlock()
	for _, sup := range sups {
		sup.cancel()
		<-sup.done
	}
}

func (o *Orchestrator) ensureNetworks(ctx context.Context, networks []manifest.NetworkSpec) error {
	for _, nw := range networks {
		if err := o.ensureNetwork(ctx, nw); err != nil {
			return err
		}
	}
	return nil
}

// ensureNetwork is idempotent: under ensureMu exactly one caller performs
// the inspect-then-create, so a lost race never double-creates.
func (o *Orchestrator) ensureNetwork(ctx context.Context, nw manifest.NetworkSpec) error {
	o.ensureMu.Lock()
	defer o.ensureMu.Unlock()

	name := NetworkName(o.project, nw.Name)
	info, err := o.rt.NetworkInspect(ctx, name)
	if err != nil {
		return &ProvisionError{Kind: "network", Name: name, Err: err}
	}
	if info.Exists {
		return nil
	}
	slog.Info("creating network", "project", o.project, "network", name, "driver", nw.Driver)
	if err := o.rt.NetworkCreate(ctx, name, nw.Driver); err != nil {
		return &ProvisionError{Kind: "network", Name: name, Err: err}
	}
	return nil
}

func (o *Orchestrator) ensureVolumes(ctx context.Context, volumes []manifest.VolumeSpec) error {
	for _, vol := range volumes {
		if err := o.ensureVolume(ctx, vol); err != nil {
			return err
		}
	}
	return nil
}

func (o *Orchestrator) ensureVolume(ctx context.Context, vol manifest.VolumeSpec) error {
	o.ensureMu.Lock()
	defer o.ensureMu.Unlock()

	name := VolumeName(o.project, vol.Name)
	info, err := o.rt.VolumeInspect(ctx, name)
	if err != nil {
		return &ProvisionError{Kind: "volume", Name: name, Err: err}
	}
	if info.Exists {
		return nil
	}
	slog.Info("creating volume", "project", o.project, "volume", name, "driver", vol.Driver)
	if err := o.rt.VolumeCreate(ctx, name, vol.Driver); err != nil {
		return &ProvisionError{Kind: "volume", Name: name, Err: err}
	}
	return nil
}

// prePullImages pulls every distinct image up front so tier start time is
// not dominated by registry latency mid-rollout.
func (o *Orchestrator) prePullImages(ctx context.Context, services []manifest.ServiceSpec) error {
	usedBy := make(map[string]string, len(services))
	var images []string
	for _, svc := range services {
		if _, ok := usedBy[svc.Image]; ok {
			continue
		}
		usedBy[svc.Image] = svc.Name
		images = append(images, svc.Image)
	}
	sort.Strings(images)

	for _, image := range images {
		slog.Info("pulling image", "project", o.project, "image", image)
		if err := o.rt.ImagePull(ctx, image); err != nil {
			return &StartError{Service: usedBy[image],
				Err: fmt.Errorf("pull image %q: %w", image, err)}
		}
	}
	return nil
}

func (o *Orchestrator) createConfig(svc manifest.ServiceSpec, name, runID, hash string) ContainerCreateConfig {
	labels := make(map[string]string, len(svc.Labels)+4)
	for k, v := range svc.Labels {
		labels[k] = v
	}
	labels[LabelProject] = o.project
	labels[LabelService] = svc.Name
	labels[LabelRunID] = runID
	labels[LabelConfigHash] = hash

	mounts := make([]MountConfig, 0, len(svc.Mounts))
	for _, m := range svc.Mounts {
		source := m.Source
		if m.Kind == manifest.MountVolume {
			source = VolumeName(o.project, m.Source)
		}
		mounts = append(mounts, MountConfig{
			Kind:     m.Kind,
			Source:   source,
			Target:   m.Target,
			ReadOnly: m.ReadOnly,
		})
	}

	ports := make([]PortBinding, 0, len(svc.Ports))
	for _, p := range svc.Ports {
		ports = append(ports, PortBinding{
			HostPort:      p.HostPort,
			ContainerPort: p.ContainerPort,
			Protocol:      p.Protocol,
		})
	}

	networks := make([]string, 0, len(svc.Networks))
	for _, nw := range svc.Networks {
		networks = append(networks, NetworkName(o.project, nw))
	}

	return ContainerCreateConfig{
		Name:       name,
		Image:      svc.Image,
		Entrypoint: svc.Entrypoint,
		Cmd:        svc.Command,
		Env:        svc.Environment,
		Labels:     labels,
		Mounts:     mounts,
		Ports:      ports,
		Networks:   networks,
	}
}

func (o *Orchestrator) startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	if o.tracer == nil {
		return ctx, nil
	}
	return o.tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

func endSpan(span trace.Span, err error) {
	if span == nil {
		return
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
