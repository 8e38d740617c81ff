// Package docker implements the container runtime port against the Docker
// Engine API.
package docker

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/containerd/errdefs"
	"github.com/docker/docker/api/types/container"
	dockerfilters "github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/api/types/mount"
	dockernetwork "github.com/docker/docker/api/types/network"
	"github.com/docker/docker/api/types/volume"
	"github.com/docker/docker/client"
	"github.com/docker/go-connections/nat"

	"berth/internal/manifest"
	"berth/internal/orchestrator"
)

var _ orchestrator.ContainerRuntime = (*Runtime)(nil)

// Runtime implements orchestrator.ContainerRuntime using the Docker Engine
// API.
type Runtime struct {
	cli *client.Client
}

// NewRuntime creates a Runtime with a new Docker client from the environment.
func NewRuntime() (*Runtime, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("create docker client: %w", err)
	}
	return &Runtime{cli: cli}, nil
}

// NewRuntimeFromClient wraps an existing Docker client.
func NewRuntimeFromClient(cli *client.Client) *Runtime {
	return &Runtime{cli: cli}
}

func (r *Runtime) WaitReady(ctx context.Context) error {
	return WaitReady(ctx, r.cli)
}

func (r *Runtime) ImagePull(ctx context.Context, img string) error {
	pull, err := r.cli.ImagePull(ctx, img, image.PullOptions{})
	if err != nil {
		return fmt.Errorf("pull image %q: %w", img, err)
	}
	_, _ = io.Copy(io.Discard, pull)
	_ = pull.Close()
	return nil
}

func (r *Runtime) ContainerCreate(ctx context.Context, cfg orchestrator.ContainerCreateConfig) error {
	cc := &container.Config{
		Image:  cfg.Image,
		Cmd:    cfg.Cmd,
		Env:    cfg.Env,
		Labels: cfg.Labels,
	}
	if len(cfg.Entrypoint) > 0 {
		cc.Entrypoint = cfg.Entrypoint
	}

	// Restarts are supervised in-process; the engine must not compete.
	hc := &container.HostConfig{
		RestartPolicy: container.RestartPolicy{Name: container.RestartPolicyDisabled},
	}

	if len(cfg.Ports) > 0 {
		portBindings := make(nat.PortMap, len(cfg.Ports))
		exposedPorts := make(nat.PortSet, len(cfg.Ports))
		for _, p := range cfg.Ports {
			proto := strings.ToLower(strings.TrimSpace(p.Protocol))
			if proto == "" {
				proto = "tcp"
			}
			containerPort := nat.Port(fmt.Sprintf("%d/%s", p.ContainerPort, proto))
			exposedPorts[containerPort] = struct{}{}
			portBindings[containerPort] = []nat.PortBinding{{HostPort: strconv.Itoa(int(p.HostPort))}}
		}
		cc.ExposedPorts = exposedPorts
		hc.PortBindings = portBindings
	}

	hc.Mounts = make([]mount.Mount, 0, len(cfg.Mounts))
	for _, m := range cfg.Mounts {
		kind := mount.TypeVolume
		if m.Kind == manifest.MountBind {
			kind = mount.TypeBind
		}
		hc.Mounts = append(hc.Mounts, mount.Mount{
			Type:     kind,
			Source:   m.Source,
			Target:   m.Target,
			ReadOnly: m.ReadOnly,
		})
	}

	var nc *dockernetwork.NetworkingConfig
	if len(cfg.Networks) > 0 {
		endpoints := make(map[string]*dockernetwork.EndpointSettings, len(cfg.Networks))
		for _, nw := range cfg.Networks {
			endpoints[nw] = &dockernetwork.EndpointSettings{}
		}
		nc = &dockernetwork.NetworkingConfig{EndpointsConfig: endpoints}
	}

	_, err := r.cli.ContainerCreate(ctx, cc, hc, nc, nil, cfg.Name)
	return err
}

func (r *Runtime) ContainerStart(ctx context.Context, name string) error {
	return r.cli.ContainerStart(ctx, name, container.StartOptions{})
}

func (r *Runtime) ContainerStop(ctx context.Context, name string) error {
	if err := r.cli.ContainerStop(ctx, name, container.StopOptions{}); err != nil && !errdefs.IsNotFound(err) {
		return fmt.Errorf("stop container %q: %w", name, err)
	}
	return nil
}

func (r *Runtime) ContainerRemove(ctx context.Context, name string, force bool) error {
	if err := r.cli.ContainerRemove(ctx, name, container.RemoveOptions{Force: force}); err != nil && !errdefs.IsNotFound(err) {
		return fmt.Errorf("remove container %q: %w", name, err)
	}
	return nil
}

func (r *Runtime) ContainerInspect(ctx context.Context, name string) (orchestrator.ContainerInfo, error) {
	info, err := r.cli.ContainerInspect(ctx, name)
	if err != nil {
		if errdefs.IsNotFound(err) {
			return orchestrator.ContainerInfo{Exists: false}, nil
		}
		return orchestrator.ContainerInfo{}, fmt.Errorf("inspect container %q: %w", name, err)
	}
	out := orchestrator.ContainerInfo{Exists: true}
	if info.State != nil {
		out.Running = info.State.Running
		out.ExitCode = info.State.ExitCode
	}
	return out, nil
}

func (r *Runtime) ContainerWait(ctx context.Context, name string) (int64, error) {
	waitCh, errCh := r.cli.ContainerWait(ctx, name, container.WaitConditionNotRunning)
	select {
	case <-ctx.Done():
		return 0, ctx.Err()
	case err := <-errCh:
		return 0, fmt.Errorf("wait for container %q: %w", name, err)
	case resp := <-waitCh:
		if resp.Error != nil {
			return 0, fmt.Errorf("wait for container %q: %s", name, resp.Error.Message)
		}
		return resp.StatusCode, nil
	}
}

func (r *Runtime) ContainerExec(ctx context.Context, name string, cmd []string) (int, error) {
	execResp, err := r.cli.ContainerExecCreate(ctx, name, container.ExecOptions{
		AttachStdout: true,
		AttachStderr: true,
		Cmd:          cmd,
	})
	if err != nil {
		return 0, fmt.Errorf("create exec in %q: %w", name, err)
	}

	attach, err := r.cli.ContainerExecAttach(ctx, execResp.ID, container.ExecAttachOptions{})
	if err != nil {
		return 0, fmt.Errorf("attach exec in %q: %w", name, err)
	}
	defer attach.Close()
	_, _ = io.Copy(io.Discard, attach.Reader)

	inspect, err := r.cli.ContainerExecInspect(ctx, execResp.ID)
	if err != nil {
		return 0, fmt.Errorf("inspect exec in %q: %w", name, err)
	}
	return inspect.ExitCode, nil
}

func (r *Runtime) ContainerLogs(ctx context.Context, name string, lines int) (string, error) {
	opts := container.LogsOptions{
		ShowStdout: true,
		ShowStderr: true,
	}
	if lines > 0 {
		opts.Tail = strconv.Itoa(lines)
	}
	rc, err := r.cli.ContainerLogs(ctx, name, opts)
	if err != nil {
		return "", fmt.Errorf("container logs %q: %w", name, err)
	}
	defer rc.Close()
	data, _ := io.ReadAll(rc)
	// Strip docker stream framing (8-byte header per chunk).
	var clean []byte
	for len(data) >= 8 {
		size := int(data[4])<<24 | int(data[5])<<16 | int(data[6])<<8 | int(data[7])
		data = data[8:]
		if size > len(data) {
			size = len(data)
		}
		clean = append(clean, data[:size]...)
		data = data[size:]
	}
	return string(bytes.TrimSpace(clean)), nil
}

func (r *Runtime) ContainerList(ctx context.Context, labelFilter map[string]string) ([]orchestrator.ContainerSummary, error) {
	filters := dockerfilters.NewArgs()
	for key, value := range labelFilter {
		filters.Add("label", key+"="+value)
	}

	containers, err := r.cli.ContainerList(ctx, container.ListOptions{All: true, Filters: filters})
	if err != nil {
		return nil, fmt.Errorf("list containers: %w", err)
	}

	out := make([]orchestrator.ContainerSummary, 0, len(containers))
	for _, c := range containers {
		name := ""
		if len(c.Names) > 0 {
			name = strings.TrimPrefix(c.Names[0], "/")
		}

		labels := make(map[string]string, len(c.Labels))
		for key, value := range c.Labels {
			labels[key] = value
		}

		out = append(out, orchestrator.ContainerSummary{
			Name:    name,
			Image:   c.Image,
			Running: c.State == "running",
			Labels:  labels,
		})
	}

	return out, nil
}

func (r *Runtime) NetworkInspect(ctx context.Context, name string) (orchestrator.NetworkInfo, error) {
	nw, err := r.cli.NetworkInspect(ctx, name, dockernetwork.InspectOptions{})
	if err != nil {
		if errdefs.IsNotFound(err) {
			return orchestrator.NetworkInfo{Exists: false}, nil
		}
		return orchestrator.NetworkInfo{}, fmt.Errorf("inspect network %q: %w", name, err)
	}
	return orchestrator.NetworkInfo{ID: nw.ID, Exists: true}, nil
}

func (r *Runtime) NetworkCreate(ctx context.Context, name, driver string) error {
	if driver == "" {
		driver = "bridge"
	}
	_, err := r.cli.NetworkCreate(ctx, name, dockernetwork.CreateOptions{
		Driver: driver,
		Scope:  "local",
	})
	if err != nil {
		return fmt.Errorf("create network %q: %w", name, err)
	}
	return nil
}

func (r *Runtime) NetworkRemove(ctx context.Context, name string) error {
	if err := r.cli.NetworkRemove(ctx, name); err != nil && !errdefs.IsNotFound(err) {
		return fmt.Errorf("remove network %q: %w", name, err)
	}
	return nil
}

func (r *Runtime) VolumeInspect(ctx context.Context, name string) (orchestrator.VolumeInfo, error) {
	vol, err := r.cli.VolumeInspect(ctx, name)
	if err != nil {
		if errdefs.IsNotFound(err) {
			return orchestrator.VolumeInfo{Exists: false}, nil
		}
		return orchestrator.VolumeInfo{}, fmt.Errorf("inspect volume %q: %w", name, err)
	}
	return orchestrator.VolumeInfo{Name: vol.Name, Exists: true}, nil
}

func (r *Runtime) VolumeCreate(ctx context.Context, name, driver string) error {
	_, err := r.cli.VolumeCreate(ctx, volume.CreateOptions{Name: name, Driver: driver})
	if err != nil {
		return fmt.Errorf("create volume %q: %w", name, err)
	}
	return nil
}

func (r *Runtime) VolumeRemove(ctx context.Context, name string, force bool) error {
	if err := r.cli.VolumeRemove(ctx, name, force); err != nil && !errdefs.IsNotFound(err) {
		return fmt.Errorf("remove volume %q: %w", name, err)
	}
	return nil
}

func (r *Runtime) Close() error {
	return r.cli.Close()
}
