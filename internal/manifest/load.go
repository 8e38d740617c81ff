package manifest

import (
	"context"
	"sort"
	"strings"

	"github.com/compose-spec/compose-go/v2/loader"
	compose "github.com/compose-spec/compose-go/v2/types"
)

// File is one manifest document. Later files overlay earlier ones,
// merged by service name.
type File struct {
	Name    string
	Content []byte
}

// Load parses a stack of compose YAML documents into a validated Set.
//
// project overrides the manifest's own name when non-empty. All parse and
// validation failures are reported as *ManifestError; no side effects occur
// beyond in-memory construction.
func Load(ctx context.Context, files []File, project string) (*Set, error) {
	if len(files) == 0 {
		return nil, &ManifestError{Entity: "manifest", Reason: "no manifest files given"}
	}

	configFiles := make([]compose.ConfigFile, 0, len(files))
	for _, f := range files {
		name := f.Name
		if name == "" {
			name = "compose.yaml"
		}
		configFiles = append(configFiles, compose.ConfigFile{Filename: name, Content: f.Content})
	}

	opts := []func(*loader.Options){}
	if trimmed := strings.TrimSpace(project); trimmed != "" {
		opts = append(opts, func(o *loader.Options) {
			o.SetProjectName(trimmed, true)
		})
	}

	proj, err := loader.LoadWithContext(ctx, compose.ConfigDetails{ConfigFiles: configFiles}, opts...)
	if err != nil {
		return nil, &ManifestError{Entity: "manifest", Reason: err.Error()}
	}
	if len(proj.Services) == 0 {
		return nil, &ManifestError{Entity: "manifest", Reason: "no services declared"}
	}

	set := fromProject(proj)
	if err := Validate(set); err != nil {
		return nil, err
	}
	return set, nil
}

func fromProject(proj *compose.Project) *Set {
	set := &Set{
		Project:  proj.Name,
		Volumes:  make(map[string]VolumeSpec, len(proj.Volumes)),
		Networks: make(map[string]NetworkSpec, len(proj.Networks)),
	}

	names := make([]string, 0, len(proj.Services))
	for name := range proj.Services {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		svc := proj.Services[name]
		if svc.Name == "" {
			svc.Name = name
		}
		set.Services = append(set.Services, NormalizeServiceSpec(svc))
	}

	for key, vol := range proj.Volumes {
		set.Volumes[key] = VolumeSpec{Name: key, Driver: vol.Driver}
	}
	for key, nw := range proj.Networks {
		driver := nw.Driver
		if driver == "" {
			driver = "bridge"
		}
		set.Networks[key] = NetworkSpec{Name: key, Driver: driver}
	}
	return set
}
