// Package fake provides in-memory implementations of the orchestrator
// ports for tests.
package fake

import (
	"context"
	"fmt"
	"sync"

	"berth/internal/orchestrator"
)

var _ orchestrator.ContainerRuntime = (*ContainerRuntime)(nil)

type containerState struct {
	Config   orchestrator.ContainerCreateConfig
	Running  bool
	ExitCode int64
	Logs     string
	waiters  []chan int64
}

type execResult struct {
	Code int
	Err  error
}

// ContainerRuntime is an in-memory implementation of
// orchestrator.ContainerRuntime. Containers run until SignalExit or
// ContainerStop; per-method error hooks inject failures.
type ContainerRuntime struct {
	CallRecorder
	mu         sync.Mutex
	ready      bool
	containers map[string]*containerState
	networks   map[string]bool
	volumes    map[string]bool
	images     map[string]bool
	execs      map[string]execResult

	WaitReadyErr       func(ctx context.Context) error
	ImagePullErr       func(ctx context.Context, image string) error
	ContainerCreateErr func(ctx context.Context, cfg orchestrator.ContainerCreateConfig) error
	ContainerStartErr  func(ctx context.Context, name string) error
	ContainerStopErr   func(ctx context.Context, name string) error
	ContainerRemoveErr func(ctx context.Context, name string, force bool) error
	ContainerLogsErr   func(ctx context.Context, name string, lines int) error
	NetworkInspectErr  func(ctx context.Context, name string) error
	NetworkCreateErr   func(ctx context.Context, name, driver string) error
	NetworkRemoveErr   func(ctx context.Context, name string) error
	VolumeInspectErr   func(ctx context.Context, name string) error
	VolumeCreateErr    func(ctx context.Context, name, driver string) error
	VolumeRemoveErr    func(ctx context.Context, name string, force bool) error
}

// NewContainerRuntime creates a ContainerRuntime that is ready by default.
func NewContainerRuntime() *ContainerRuntime {
	return &ContainerRuntime{
		ready:      true,
		containers: make(map[string]*containerState),
		networks:   make(map[string]bool),
		volumes:    make(map[string]bool),
		images:     make(map[string]bool),
		execs:      make(map[string]execResult),
	}
}

// SignalExit marks a running container as exited with the given code and
// wakes every ContainerWait blocked on it.
func (r *ContainerRuntime) SignalExit(name string, code int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cs, ok := r.containers[name]
	if !ok {
		return
	}
	cs.Running = false
	cs.ExitCode = code
	for _, w := range cs.waiters {
		w <- code
	}
	cs.waiters = nil
}

// SetExecResult fixes the outcome of ContainerExec for one container.
func (r *ContainerRuntime) SetExecResult(name string, code int, err error) {
	r.mu.Lock()
	r.execs[name] = execResult{Code: code, Err: err}
	r.mu.Unlock()
}

// SetLogs sets the log content returned for one container.
func (r *ContainerRuntime) SetLogs(name, logs string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cs, ok := r.containers[name]; ok {
		cs.Logs = logs
	}
}

// SetReady controls whether WaitReady succeeds.
func (r *ContainerRuntime) SetReady(ready bool) {
	r.mu.Lock()
	r.ready = ready
	r.mu.Unlock()
}

// AddContainer seeds a pre-existing container, as if created by an
// earlier process.
func (r *ContainerRuntime) AddContainer(cfg orchestrator.ContainerCreateConfig, running bool) {
	r.mu.Lock()
	r.containers[cfg.Name] = &containerState{Config: cfg, Running: running}
	r.mu.Unlock()
}

// ContainerRunning reports whether the named container exists and runs.
func (r *ContainerRuntime) ContainerRunning(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	cs, ok := r.containers[name]
	return ok && cs.Running
}

// NetworkExists reports whether the named network exists.
func (r *ContainerRuntime) NetworkExists(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.networks[name]
}

// VolumeExists reports whether the named volume exists.
func (r *ContainerRuntime) VolumeExists(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.volumes[name]
}

func (r *ContainerRuntime) WaitReady(ctx context.Context) error {
	r.record("WaitReady")
	if r.WaitReadyErr != nil {
		if err := r.WaitReadyErr(ctx); err != nil {
			return err
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.ready {
		return fmt.Errorf("container runtime not ready")
	}
	return nil
}

func (r *ContainerRuntime) ImagePull(ctx context.Context, image string) error {
	r.record("ImagePull", image)
	if r.ImagePullErr != nil {
		if err := r.ImagePullErr(ctx, image); err != nil {
			return err
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.images[image] = true
	return nil
}

func (r *ContainerRuntime) ContainerCreate(ctx context.Context, cfg orchestrator.ContainerCreateConfig) error {
	r.record("ContainerCreate", cfg)
	if r.ContainerCreateErr != nil {
		if err := r.ContainerCreateErr(ctx, cfg); err != nil {
			return err
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.containers[cfg.Name]; exists {
		return fmt.Errorf("container %q already exists", cfg.Name)
	}
	r.containers[cfg.Name] = &containerState{Config: cfg}
	return nil
}

func (r *ContainerRuntime) ContainerStart(ctx context.Context, name string) error {
	r.record("ContainerStart", name)
	if r.ContainerStartErr != nil {
		if err := r.ContainerStartErr(ctx, name); err != nil {
			return err
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	cs, ok := r.containers[name]
	if !ok {
		return fmt.Errorf("container %q not found", name)
	}
	cs.Running = true
	return nil
}

func (r *ContainerRuntime) ContainerStop(ctx context.Context, name string) error {
	r.record("ContainerStop", name)
	if r.ContainerStopErr != nil {
		if err := r.ContainerStopErr(ctx, name); err != nil {
			return err
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	cs, ok := r.containers[name]
	if !ok {
		return nil
	}
	cs.Running = false
	for _, w := range cs.waiters {
		w <- 0
	}
	cs.waiters = nil
	return nil
}

func (r *ContainerRuntime) ContainerRemove(ctx context.Context, name string, force bool) error {
	r.record("ContainerRemove", name, force)
	if r.ContainerRemoveErr != nil {
		if err := r.ContainerRemoveErr(ctx, name, force); err != nil {
			return err
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	cs, ok := r.containers[name]
	if !ok {
		return nil
	}
	if cs.Running && !force {
		return fmt.Errorf("container %q is running", name)
	}
	for _, w := range cs.waiters {
		w <- cs.ExitCode
	}
	delete(r.containers, name)
	return nil
}

func (r *ContainerRuntime) ContainerInspect(ctx context.Context, name string) (orchestrator.ContainerInfo, error) {
	r.record("ContainerInspect", name)
	r.mu.Lock()
	defer r.mu.Unlock()
	cs, ok := r.containers[name]
	if !ok {
		return orchestrator.ContainerInfo{Exists: false}, nil
	}
	return orchestrator.ContainerInfo{
		Exists:   true,
		Running:  cs.Running,
		ExitCode: int(cs.ExitCode),
	}, nil
}

func (r *ContainerRuntime) ContainerWait(ctx context.Context, name string) (int64, error) {
	r.record("ContainerWait", name)
	r.mu.Lock()
	cs, ok := r.containers[name]
	if !ok {
		r.mu.Unlock()
		return 0, fmt.Errorf("container %q not found", name)
	}
	if !cs.Running {
		code := cs.ExitCode
		r.mu.Unlock()
		return code, nil
	}
	ch := make(chan int64, 1)
	cs.waiters = append(cs.waiters, ch)
	r.mu.Unlock()

	select {
	case <-ctx.Done():
		return 0, ctx.Err()
	case code := <-ch:
		return code, nil
	}
}

func (r *ContainerRuntime) ContainerExec(ctx context.Context, name string, cmd []string) (int, error) {
	r.record("ContainerExec", name, cmd)
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.containers[name]; !ok {
		return 0, fmt.Errorf("container %q not found", name)
	}
	res := r.execs[name]
	return res.Code, res.Err
}

func (r *ContainerRuntime) ContainerLogs(ctx context.Context, name string, lines int) (string, error) {
	r.record("ContainerLogs", name, lines)
	if r.ContainerLogsErr != nil {
		if err := r.ContainerLogsErr(ctx, name, lines); err != nil {
			return "", err
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	cs, ok := r.containers[name]
	if !ok {
		return "", fmt.Errorf("container %q not found", name)
	}
	return cs.Logs, nil
}

func (r *ContainerRuntime) ContainerList(ctx context.Context, labels map[string]string) ([]orchestrator.ContainerSummary, error) {
	r.record("ContainerList", labels)
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []orchestrator.ContainerSummary
	for name, cs := range r.containers {
		match := true
		for k, v := range labels {
			if cs.Config.Labels[k] != v {
				match = false
				break
			}
		}
		if !match {
			continue
		}
		copied := make(map[string]string, len(cs.Config.Labels))
		for k, v := range cs.Config.Labels {
			copied[k] = v
		}
		out = append(out, orchestrator.ContainerSummary{
			Name:    name,
			Image:   cs.Config.Image,
			Running: cs.Running,
			Labels:  copied,
		})
	}
	return out, nil
}

func (r *ContainerRuntime) NetworkInspect(ctx context.Context, name string) (orchestrator.NetworkInfo, error) {
	r.record("NetworkInspect", name)
	if r.NetworkInspectErr != nil {
		if err := r.NetworkInspectErr(ctx, name); err != nil {
			return orchestrator.NetworkInfo{}, err
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.networks[name] {
		return orchestrator.NetworkInfo{Exists: false}, nil
	}
	return orchestrator.NetworkInfo{ID: "fake-" + name, Exists: true}, nil
}

func (r *ContainerRuntime) NetworkCreate(ctx context.Context, name, driver string) error {
	r.record("NetworkCreate", name, driver)
	if r.NetworkCreateErr != nil {
		if err := r.NetworkCreateErr(ctx, name, driver); err != nil {
			return err
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.networks[name] {
		return fmt.Errorf("network %q already exists", name)
	}
	r.networks[name] = true
	return nil
}

func (r *ContainerRuntime) NetworkRemove(ctx context.Context, name string) error {
	r.record("NetworkRemove", name)
	if r.NetworkRemoveErr != nil {
		if err := r.NetworkRemoveErr(ctx, name); err != nil {
			return err
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.networks, name)
	return nil
}

func (r *ContainerRuntime) VolumeInspect(ctx context.Context, name string) (orchestrator.VolumeInfo, error) {
	r.record("VolumeInspect", name)
	if r.VolumeInspectErr != nil {
		if err := r.VolumeInspectErr(ctx, name); err != nil {
			return orchestrator.VolumeInfo{}, err
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.volumes[name] {
		return orchestrator.VolumeInfo{Exists: false}, nil
	}
	return orchestrator.VolumeInfo{Name: name, Exists: true}, nil
}

func (r *ContainerRuntime) VolumeCreate(ctx context.Context, name, driver string) error {
	r.record("VolumeCreate", name, driver)
	if r.VolumeCreateErr != nil {
		if err := r.VolumeCreateErr(ctx, name, driver); err != nil {
			return err
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.volumes[name] {
		return fmt.Errorf("volume %q already exists", name)
	}
	r.volumes[name] = true
	return nil
}

func (r *ContainerRuntime) VolumeRemove(ctx context.Context, name string, force bool) error {
	r.record("VolumeRemove", name, force)
	if r.VolumeRemoveErr != nil {
		if err := r.VolumeRemoveErr(ctx, name, force); err != nil {
			return err
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.volumes, name)
	return nil
}

func (r *ContainerRuntime) Close() error {
	r.record("Close")
	return nil
}
