// Package config handles CLI project configuration.
//
// Config is stored at $XDG_CONFIG_HOME/berth/config.yaml (defaults to
// ~/.config/berth/config.yaml) and follows the kubeconfig pattern: named
// projects with a current-project selector, so repeated invocations don't
// need the manifest flags every time.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Project describes one manifest stack the CLI can operate on.
type Project struct {
	// Files are manifest paths, later ones layered over earlier ones.
	Files []string `yaml:"files,omitempty"`
	// StateDir overrides where the project's state database lives.
	StateDir string `yaml:"state-dir,omitempty"`
}

// Config holds named projects and the current selection.
type Config struct {
	CurrentProject string             `yaml:"current-project"`
	Projects       map[string]Project `yaml:"projects"`
}

// Path returns the config file location. It respects XDG_CONFIG_HOME,
// falling back to ~/.config/berth/config.yaml.
func Path() string {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return filepath.Join(".config", "berth", "config.yaml")
		}
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, "berth", "config.yaml")
}

// StatePath returns where the named project's state database lives,
// honoring the project's state-dir override.
func StatePath(name string, p Project) string {
	dir := p.StateDir
	if dir == "" {
		base := os.Getenv("XDG_STATE_HOME")
		if base == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				base = filepath.Join(".local", "state")
			} else {
				base = filepath.Join(home, ".local", "state")
			}
		}
		dir = filepath.Join(base, "berth")
	}
	return filepath.Join(dir, name+".db")
}

// Load reads the config file. If the file does not exist, an empty Config
// is returned (not an error).
func Load() (*Config, error) {
	data, err := os.ReadFile(Path())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Config{Projects: make(map[string]Project)}, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if cfg.Projects == nil {
		cfg.Projects = make(map[string]Project)
	}
	return &cfg, nil
}

// Save writes the config to disk, creating directories as needed.
func (c *Config) Save() error {
	p := Path()
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(p, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Current returns the current project name and value.
// The bool is false when no current project is set.
func (c *Config) Current() (string, Project, bool) {
	if c.CurrentProject == "" {
		return "", Project{}, false
	}
	p, ok := c.Projects[c.CurrentProject]
	if !ok {
		return "", Project{}, false
	}
	return c.CurrentProject, p, true
}

// Use sets the current project. It returns an error if the name doesn't exist.
func (c *Config) Use(name string) error {
	if _, ok := c.Projects[name]; !ok {
		return fmt.Errorf("project %q not found", name)
	}
	c.CurrentProject = name
	return nil
}

// Set adds or updates a named project.
func (c *Config) Set(name string, p Project) {
	c.Projects[name] = p
}

// Remove deletes a project. If it was the current project, current-project
// is cleared. Returns an error if the name doesn't exist.
func (c *Config) Remove(name string) error {
	if _, ok := c.Projects[name]; !ok {
		return fmt.Errorf("project %q not found", name)
	}
	delete(c.Projects, name)
	if c.CurrentProject == name {
		c.CurrentProject = ""
	}
	return nil
}
