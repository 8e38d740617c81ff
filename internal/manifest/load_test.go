package manifest

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func load(t *testing.T, project string, docs ...string) (*Set, error) {
	t.Helper()
	files := make([]File, 0, len(docs))
	for i, doc := range docs {
		name := "compose.yaml"
		if i > 0 {
			name = "override.yaml"
		}
		files = append(files, File{Name: name, Content: []byte(doc)})
	}
	return Load(context.Background(), files, project)
}

func mustLoad(t *testing.T, project string, docs ...string) *Set {
	t.Helper()
	set, err := load(t, project, docs...)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	return set
}

func TestLoad_ValidManifest(t *testing.T) {
	set := mustLoad(t, "", `
name: app
services:
  web:
    image: nginx:1.25
    ports:
      - "8080:80"
  api:
    image: ghcr.io/example/api:latest
    depends_on:
      - web
networks:
  backend:
volumes:
  data:
`)

	if set.Project != "app" {
		t.Fatalf("set.Project = %q, want %q", set.Project, "app")
	}
	if len(set.Services) != 2 {
		t.Fatalf("len(set.Services) = %d, want 2", len(set.Services))
	}

	web, ok := set.Service("web")
	if !ok {
		t.Fatal("service web not found")
	}
	if web.Image != "nginx:1.25" {
		t.Fatalf("web image = %q, want %q", web.Image, "nginx:1.25")
	}
	if len(web.Ports) != 1 || web.Ports[0].HostPort != 8080 || web.Ports[0].ContainerPort != 80 {
		t.Fatalf("web ports = %+v, want 8080->80", web.Ports)
	}

	api, ok := set.Service("api")
	if !ok {
		t.Fatal("service api not found")
	}
	if len(api.DependsOn) != 1 || api.DependsOn[0] != "web" {
		t.Fatalf("api depends_on = %v, want [web]", api.DependsOn)
	}

	if nw, ok := set.Networks["backend"]; !ok || nw.Driver != "bridge" {
		t.Fatalf("networks[backend] = %+v, want bridge driver", set.Networks["backend"])
	}
	if _, ok := set.Volumes["data"]; !ok {
		t.Fatal("volume data not declared")
	}
}

func TestLoad_ProjectOverride(t *testing.T) {
	set := mustLoad(t, "renamed", `
name: from-manifest
services:
  web:
    image: nginx:1.25
`)
	if set.Project != "renamed" {
		t.Fatalf("set.Project = %q, want %q", set.Project, "renamed")
	}
}

func TestLoad_OverlayMergesByServiceName(t *testing.T) {
	base := `
name: app
services:
  web:
    image: nginx:1.25
    environment:
      MODE: production
  api:
    image: ghcr.io/example/api:v1
`
	override := `
services:
  api:
    image: ghcr.io/example/api:v2
    environment:
      LOG_LEVEL: debug
`
	set := mustLoad(t, "", base, override)

	api, _ := set.Service("api")
	if api.Image != "ghcr.io/example/api:v2" {
		t.Fatalf("api image = %q, want override to win", api.Image)
	}
	found := false
	for _, kv := range api.Environment {
		if kv == "LOG_LEVEL=debug" {
			found = true
		}
	}
	if !found {
		t.Fatalf("api environment = %v, want LOG_LEVEL=debug merged in", api.Environment)
	}

	// Untouched services survive the overlay.
	web, ok := set.Service("web")
	if !ok || web.Image != "nginx:1.25" {
		t.Fatalf("web = %+v, want base service preserved", web)
	}
}

func TestLoad_NoServices(t *testing.T) {
	_, err := load(t, "", `
name: empty
services: {}
`)
	assertManifestError(t, err, "no services")
}

func TestLoad_MissingImage(t *testing.T) {
	_, err := load(t, "", `
name: app
services:
  web:
    restart: always
`)
	if err == nil {
		t.Fatal("Load() error = nil, want missing-image error")
	}
	var merr *ManifestError
	if !errors.As(err, &merr) {
		t.Fatalf("Load() error = %T, want *ManifestError", err)
	}
}

func TestLoad_UndeclaredVolume(t *testing.T) {
	_, err := load(t, "", `
name: app
services:
  db:
    image: postgres:16
    volumes:
      - pgdata:/var/lib/postgresql/data
`)
	assertManifestError(t, err, "volume")
}

func TestLoad_UndeclaredNetwork(t *testing.T) {
	_, err := load(t, "", `
name: app
services:
  web:
    image: nginx:1.25
    networks:
      - ghost
`)
	if err == nil {
		t.Fatal("Load() error = nil, want undeclared-network error")
	}
	var merr *ManifestError
	if !errors.As(err, &merr) {
		t.Fatalf("Load() error = %T, want *ManifestError", err)
	}
}

func TestLoad_UndeclaredDependency(t *testing.T) {
	_, err := load(t, "", `
name: app
services:
  api:
    image: ghcr.io/example/api:v1
    depends_on:
      - missing
`)
	if err == nil {
		t.Fatal("Load() error = nil, want undeclared-dependency error")
	}
	var merr *ManifestError
	if !errors.As(err, &merr) {
		t.Fatalf("Load() error = %T, want *ManifestError", err)
	}
}

func TestLoad_DuplicateHostPort(t *testing.T) {
	_, err := load(t, "", `
name: app
services:
  web:
    image: nginx:1.25
    ports:
      - "8080:80"
  api:
    image: ghcr.io/example/api:v1
    ports:
      - "8080:8080"
`)
	assertManifestError(t, err, "already published")
}

func TestLoad_SameHostPortDifferentProtocols(t *testing.T) {
	set := mustLoad(t, "", `
name: app
services:
  dns:
    image: coredns/coredns:1.11.1
    ports:
      - "5353:53/udp"
      - "5353:53/tcp"
`)
	dns, _ := set.Service("dns")
	if len(dns.Ports) != 2 {
		t.Fatalf("dns ports = %+v, want tcp and udp to coexist", dns.Ports)
	}
}

func TestLoad_HealthCheckDefaults(t *testing.T) {
	set := mustLoad(t, "", `
name: app
services:
  web:
    image: nginx:1.25
    healthcheck:
      test: ["CMD", "curl", "-f", "http://localhost/health"]
`)
	web, _ := set.Service("web")
	if web.HealthCheck == nil {
		t.Fatal("web.HealthCheck = nil, want configured probe")
	}
	if got := web.HealthCheck.EffectiveInterval(); got != DefaultHealthInterval {
		t.Fatalf("EffectiveInterval() = %v, want %v", got, DefaultHealthInterval)
	}
	if got := web.HealthCheck.EffectiveTimeout(); got != DefaultHealthTimeout {
		t.Fatalf("EffectiveTimeout() = %v, want %v", got, DefaultHealthTimeout)
	}
	if got := web.HealthCheck.EffectiveRetries(); got != DefaultHealthRetries {
		t.Fatalf("EffectiveRetries() = %v, want %v", got, DefaultHealthRetries)
	}
}

func TestLoad_HealthCheckDisabled(t *testing.T) {
	set := mustLoad(t, "", `
name: app
services:
  web:
    image: nginx:1.25
    healthcheck:
      test: ["NONE"]
`)
	web, _ := set.Service("web")
	if web.HealthCheck != nil {
		t.Fatalf("web.HealthCheck = %+v, want nil for NONE test", web.HealthCheck)
	}
}

func assertManifestError(t *testing.T, err error, fragment string) {
	t.Helper()
	if err == nil {
		t.Fatalf("error = nil, want *ManifestError containing %q", fragment)
	}
	var merr *ManifestError
	if !errors.As(err, &merr) {
		t.Fatalf("error = %T (%v), want *ManifestError", err, err)
	}
	if !strings.Contains(err.Error(), fragment) {
		t.Fatalf("error = %q, want it to contain %q", err.Error(), fragment)
	}
}
