// Package plan turns a validated manifest set into a deterministic
// creation order: networks and volumes first, then services grouped into
// tiers by their depends_on edges.
package plan

import (
	"fmt"
	"sort"
	"strings"

	"berth/internal/manifest"
)

// Plan is the creation order for one manifest set.
//
// Networks and Volumes are independent of each other and of services; they
// are sorted only for deterministic output. Tiers are started in order;
// services within a tier share no dependency edge and may start
// concurrently.
type Plan struct {
	Project  string
	Networks []manifest.NetworkSpec
	Volumes  []manifest.VolumeSpec
	Tiers    [][]manifest.ServiceSpec
}

// Services returns every service in tier order.
func (p Plan) Services() []manifest.ServiceSpec {
	var out []manifest.ServiceSpec
	for _, tier := range p.Tiers {
		out = append(out, tier...)
	}
	return out
}

// CycleError reports a depends_on cycle.
type CycleError struct {
	Members []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("plan: dependency cycle between services %s", strings.Join(e.Members, ", "))
}

// Build produces the creation order for a validated set. Services with no
// depends_on edges all land in tier zero; the source manifest expresses no
// ordering for them and none is invented.
func Build(set *manifest.Set) (Plan, error) {
	p := Plan{Project: set.Project}

	for _, nw := range set.Networks {
		p.Networks = append(p.Networks, nw)
	}
	sort.Slice(p.Networks, func(i, j int) bool { return p.Networks[i].Name < p.Networks[j].Name })

	for _, vol := range set.Volumes {
		p.Volumes = append(p.Volumes, vol)
	}
	sort.Slice(p.Volumes, func(i, j int) bool { return p.Volumes[i].Name < p.Volumes[j].Name })

	tiers, err := topoTiers(set.Services)
	if err != nil {
		return Plan{}, err
	}
	p.Tiers = tiers
	return p, nil
}

// topoTiers runs Kahn's algorithm, emitting one tier per round of
// zero-indegree services.
func topoTiers(services []manifest.ServiceSpec) ([][]manifest.ServiceSpec, error) {
	byName := make(map[string]manifest.ServiceSpec, len(services))
	indegree := make(map[string]int, len(services))
	dependents := make(map[string][]string, len(services))

	for _, svc := range services {
		byName[svc.Name] = svc
		indegree[svc.Name] = len(svc.DependsOn)
		for _, dep := range svc.DependsOn {
			dependents[dep] = append(dependents[dep], svc.Name)
		}
	}

	var tiers [][]manifest.ServiceSpec
	placed := 0
	for placed < len(services) {
		var ready []string
		for name, deg := range indegree {
			if deg == 0 {
				ready = append(ready, name)
			}
		}
		if len(ready) == 0 {
			var members []string
			for name, deg := range indegree {
				if deg > 0 {
					members = append(members, name)
				}
			}
			sort.Strings(members)
			return nil, &CycleError{Members: members}
		}
		sort.Strings(ready)

		tier := make([]manifest.ServiceSpec, 0, len(ready))
		for _, name := range ready {
			tier = append(tier, byName[name])
			delete(indegree, name)
			for _, dependent := range dependents[name] {
				if _, pending := indegree[dependent]; pending {
					indegree[dependent]--
				}
			}
		}
		tiers = append(tiers, tier)
		placed += len(tier)
	}

	return tiers, nil
}
