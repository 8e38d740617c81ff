package manifest

import (
	"fmt"
	"strings"
)

// Validate checks referential integrity and uniqueness constraints over a
// Set. It returns a *ManifestError citing the first offending field; a Set
// that passes is safe to hand to the planner.
func Validate(set *Set) error {
	if set == nil {
		return &ManifestError{Entity: "manifest", Reason: "nil manifest set"}
	}
	if strings.TrimSpace(set.Project) == "" {
		return &ManifestError{Entity: "manifest", Reason: "project name is required"}
	}

	seen := make(map[string]struct{}, len(set.Services))
	for _, svc := range set.Services {
		name := strings.TrimSpace(svc.Name)
		if name == "" {
			return &ManifestError{Entity: "service", Field: "name", Reason: "service name is required"}
		}
		if _, dup := seen[name]; dup {
			return &ManifestError{Entity: "service", Name: name, Reason: "duplicate service name"}
		}
		seen[name] = struct{}{}

		if err := validateService(set, svc); err != nil {
			return err
		}
	}

	return validateHostPorts(set)
}

func validateService(set *Set, svc ServiceSpec) error {
	if strings.TrimSpace(svc.Image) == "" {
		return &ManifestError{Entity: "service", Name: svc.Name, Field: "image", Reason: "image reference is required"}
	}

	if _, ok := ParseRestartPolicy(string(svc.RestartPolicy)); !ok {
		return &ManifestError{
			Entity: "service", Name: svc.Name, Field: "restart",
			Reason: fmt.Sprintf("unknown restart policy %q", svc.RestartPolicy),
		}
	}

	for _, m := range svc.Mounts {
		if m.Kind != MountVolume {
			continue
		}
		if _, ok := set.Volumes[m.Source]; !ok {
			return &ManifestError{
				Entity: "service", Name: svc.Name, Field: "volumes",
				Reason: fmt.Sprintf("references undeclared volume %q", m.Source),
			}
		}
	}

	for _, nw := range svc.Networks {
		if _, ok := set.Networks[nw]; !ok {
			return &ManifestError{
				Entity: "service", Name: svc.Name, Field: "networks",
				Reason: fmt.Sprintf("references undeclared network %q", nw),
			}
		}
	}

	for _, dep := range svc.DependsOn {
		if _, ok := set.Service(dep); !ok {
			return &ManifestError{
				Entity: "service", Name: svc.Name, Field: "depends_on",
				Reason: fmt.Sprintf("references undeclared service %q", dep),
			}
		}
		if dep == svc.Name {
			return &ManifestError{
				Entity: "service", Name: svc.Name, Field: "depends_on",
				Reason: "service cannot depend on itself",
			}
		}
	}

	if hc := svc.HealthCheck; hc != nil {
		if len(hc.Test) == 0 {
			return &ManifestError{
				Entity: "service", Name: svc.Name, Field: "healthcheck.test",
				Reason: "health check command is required",
			}
		}
		if hc.Retries < 0 {
			return &ManifestError{
				Entity: "service", Name: svc.Name, Field: "healthcheck.retries",
				Reason: "retries must not be negative",
			}
		}
	}

	return nil
}

// validateHostPorts enforces the global host port namespace at parse time
// instead of leaving collisions to surface at container start.
func validateHostPorts(set *Set) error {
	type portKey struct {
		port  uint16
		proto string
	}
	owners := make(map[portKey]string)

	for _, svc := range set.Services {
		for _, p := range svc.Ports {
			if p.HostPort == 0 {
				continue
			}
			key := portKey{port: p.HostPort, proto: p.Protocol}
			if owner, taken := owners[key]; taken && owner != svc.Name {
				return &ManifestError{
					Entity: "service", Name: svc.Name, Field: "ports",
					Reason: fmt.Sprintf("host port %d/%s already published by service %q", p.HostPort, p.Protocol, owner),
				}
			}
			owners[key] = svc.Name
		}
	}
	return nil
}
