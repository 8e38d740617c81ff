package orchestrator

import (
	"context"
	"time"

	"berth/internal/manifest"
)

// ContainerCreateConfig is the runtime-agnostic container definition the
// orchestrator hands to a ContainerRuntime.
type ContainerCreateConfig struct {
	Name       string
	Image      string
	Entrypoint []string
	Cmd        []string
	Env        []string
	Labels     map[string]string
	Mounts     []MountConfig
	Ports      []PortBinding
	Networks   []string
}

type MountConfig struct {
	Kind     manifest.MountKind
	Source   string
	Target   string
	ReadOnly bool
}

type PortBinding struct {
	HostPort      uint16
	ContainerPort uint16
	Protocol      string
}

// ContainerInfo is the inspected state of one container.
type ContainerInfo struct {
	Exists   bool
	Running  bool
	ExitCode int
}

// ContainerSummary is one row of a label-filtered container listing.
type ContainerSummary struct {
	Name    string
	Image   string
	Running bool
	Labels  map[string]string
}

type NetworkInfo struct {
	ID     string
	Exists bool
}

type VolumeInfo struct {
	Name   string
	Exists bool
}

// ContainerRuntime abstracts the container engine. The docker adapter is
// the production implementation; tests use the in-memory fake.
type ContainerRuntime interface {
	WaitReady(ctx context.Context) error

	ImagePull(ctx context.Context, image string) error

	ContainerCreate(ctx context.Context, cfg ContainerCreateConfig) error
	ContainerStart(ctx context.Context, name string) error
	ContainerStop(ctx context.Context, name string) error
	ContainerRemove(ctx context.Context, name string, force bool) error
	ContainerInspect(ctx context.Context, name string) (ContainerInfo, error)
	// ContainerWait blocks until the container stops, returning its exit
	// code. It returns promptly with ctx.Err() on cancellation.
	ContainerWait(ctx context.Context, name string) (int64, error)
	// ContainerExec runs cmd inside the container and returns its exit code.
	ContainerExec(ctx context.Context, name string, cmd []string) (int, error)
	ContainerLogs(ctx context.Context, name string, lines int) (string, error)
	ContainerList(ctx context.Context, labels map[string]string) ([]ContainerSummary, error)

	NetworkInspect(ctx context.Context, name string) (NetworkInfo, error)
	NetworkCreate(ctx context.Context, name, driver string) error
	NetworkRemove(ctx context.Context, name string) error

	VolumeInspect(ctx context.Context, name string) (VolumeInfo, error)
	VolumeCreate(ctx context.Context, name, driver string) error
	VolumeRemove(ctx context.Context, name string, force bool) error

	Close() error
}

// HealthChecker runs one configured probe against a container.
type HealthChecker interface {
	Probe(ctx context.Context, containerName string, hc manifest.HealthCheck) error
}

// Clock abstracts time for deterministic tests.
type Clock interface {
	Now() time.Time
}

type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now() }

// InstanceRow is the persisted state of one service instance.
type InstanceRow struct {
	Project       string `json:"project"`
	Service       string `json:"service"`
	ContainerName string `json:"container_name"`
	RunID         string `json:"run_id"`
	Phase         string `json:"phase"`
	Restarts      int    `json:"restarts"`
	LastError     string `json:"last_error,omitempty"`
	UpdatedAt     string `json:"updated_at"`
}

// RunRow records one up/down invocation.
type RunRow struct {
	ID         string `json:"id"`
	Project    string `json:"project"`
	Status     string `json:"status"`
	StartedAt  string `json:"started_at"`
	FinishedAt string `json:"finished_at,omitempty"`
}

// StateStore persists instance and run rows so status survives the
// provisioning process. All methods are best-effort from the
// orchestrator's point of view: persistence failures are logged, never
// fatal to running services.
type StateStore interface {
	UpsertInstance(ctx context.Context, row InstanceRow) error
	ListInstances(ctx context.Context, project string) ([]InstanceRow, error)
	DeleteInstances(ctx context.Context, project string) error

	InsertRun(ctx context.Context, row RunRow) error
	FinishRun(ctx context.Context, id, status, finishedAt string) error
	LatestRun(ctx context.Context, project string) (RunRow, bool, error)
}
