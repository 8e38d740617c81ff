// Package manifest loads compose-style service manifests into a validated,
// immutable model of services, volumes, and networks.
package manifest

import (
	"strings"
	"time"
)

// RestartPolicy controls whether the orchestrator restarts a service after
// its container exits.
type RestartPolicy string

const (
	RestartNever         RestartPolicy = "no"
	RestartOnFailure     RestartPolicy = "on-failure"
	RestartAlways        RestartPolicy = "always"
	RestartUnlessStopped RestartPolicy = "unless-stopped"
)

// ParseRestartPolicy maps a compose restart string onto a RestartPolicy.
// An empty string defaults to RestartNever. The bool is false for values
// outside the compose vocabulary.
func ParseRestartPolicy(raw string) (RestartPolicy, bool) {
	switch strings.TrimSpace(raw) {
	case "", "no", "none", "never":
		return RestartNever, true
	case "on-failure":
		return RestartOnFailure, true
	case "always":
		return RestartAlways, true
	case "unless-stopped":
		return RestartUnlessStopped, true
	default:
		return "", false
	}
}

func (p RestartPolicy) String() string {
	return string(p)
}

// MountKind distinguishes named-volume mounts from host bind mounts.
type MountKind string

const (
	MountVolume MountKind = "volume"
	MountBind   MountKind = "bind"
)

// Mount is one volume or bind mount of a service container.
// For MountVolume the Source is a declared volume name.
type Mount struct {
	Kind     MountKind `json:"kind"`
	Source   string    `json:"source"`
	Target   string    `json:"target"`
	ReadOnly bool      `json:"read_only,omitempty"`
}

// PortMapping publishes one container port on the host.
type PortMapping struct {
	HostPort      uint16 `json:"host_port"`
	ContainerPort uint16 `json:"container_port"`
	Protocol      string `json:"protocol"`
}

// HealthCheck describes the periodic readiness probe of a service.
type HealthCheck struct {
	Test        []string      `json:"test"`
	Interval    time.Duration `json:"interval"`
	Timeout     time.Duration `json:"timeout"`
	Retries     int           `json:"retries"`
	StartPeriod time.Duration `json:"start_period"`
}

// Engine-compatible defaults applied when the manifest leaves a probe
// parameter unset.
const (
	DefaultHealthInterval = 30 * time.Second
	DefaultHealthTimeout  = 30 * time.Second
	DefaultHealthRetries  = 3
)

func (hc HealthCheck) EffectiveInterval() time.Duration {
	if hc.Interval > 0 {
		return hc.Interval
	}
	return DefaultHealthInterval
}

func (hc HealthCheck) EffectiveTimeout() time.Duration {
	if hc.Timeout > 0 {
		return hc.Timeout
	}
	return DefaultHealthTimeout
}

func (hc HealthCheck) EffectiveRetries() int {
	if hc.Retries > 0 {
		return hc.Retries
	}
	return DefaultHealthRetries
}

// ServiceSpec is a normalized, JSON-serializable representation of one
// compose service. Specs are canonicalized on load so equality is
// well-defined; treat values as immutable once returned by Load.
type ServiceSpec struct {
	Name          string            `json:"name"`
	Image         string            `json:"image"`
	ContainerName string            `json:"container_name,omitempty"`
	Command       []string          `json:"command,omitempty"`
	Entrypoint    []string          `json:"entrypoint,omitempty"`
	Environment   []string          `json:"environment,omitempty"`
	Mounts        []Mount           `json:"mounts,omitempty"`
	Ports         []PortMapping     `json:"ports,omitempty"`
	Labels        map[string]string `json:"labels,omitempty"`
	RestartPolicy RestartPolicy     `json:"restart_policy,omitempty"`
	HealthCheck   *HealthCheck      `json:"health_check,omitempty"`
	Networks      []string          `json:"networks,omitempty"`
	DependsOn     []string          `json:"depends_on,omitempty"`
}

// VolumeSpec is a named persistent volume. The orchestrator ensures it
// exists; it never destroys one without an explicit purge.
type VolumeSpec struct {
	Name   string `json:"name"`
	Driver string `json:"driver,omitempty"`
}

// NetworkSpec is a named container network.
type NetworkSpec struct {
	Name   string `json:"name"`
	Driver string `json:"driver,omitempty"`
}

// Set is the validated model of one manifest (or manifest stack).
type Set struct {
	Project  string
	Services []ServiceSpec
	Volumes  map[string]VolumeSpec
	Networks map[string]NetworkSpec
}

// Service returns the service with the given name.
func (s *Set) Service(name string) (ServiceSpec, bool) {
	for _, svc := range s.Services {
		if svc.Name == name {
			return svc, true
		}
	}
	return ServiceSpec{}, false
}
