// Command berth provisions a declarative stack of service containers on a
// single host: up, down, status, logs.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"berth/cmd/berth/ui"
	"berth/config"
	"berth/internal/logging"
	"berth/internal/manifest"
	"berth/internal/orchestrator"
	"berth/internal/plan"
)

// Exit codes by failure class, so scripts can branch on what went wrong.
const (
	exitGeneric   = 1
	exitManifest  = 2
	exitProvision = 3
	exitStart     = 4
	exitHealth    = 5
)

// version is stamped at build time via -ldflags.
var version = "dev"

var (
	flagDebug   bool
	flagNoColor bool
	flagFiles   []string
	flagProject string
)

func main() {
	if err := logging.Configure(logging.LevelWarn); err != nil {
		_, _ = os.Stderr.WriteString("configure logger: " + err.Error() + "\n")
		os.Exit(exitGeneric)
	}

	root := &cobra.Command{
		Use:           "berth",
		Short:         "Declarative single-host container provisioning",
		Version:       version,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level := logging.LevelWarn
			if flagDebug {
				level = logging.LevelDebug
			}
			if err := logging.Configure(level); err != nil {
				return err
			}
			ui.Configure(flagNoColor)
			return nil
		},
	}
	root.PersistentFlags().BoolVar(&flagDebug, "debug", false, "Enable debug logging")
	root.PersistentFlags().BoolVar(&flagNoColor, "no-color", false, "Disable colored output")
	root.PersistentFlags().StringSliceVarP(&flagFiles, "file", "f", nil,
		"Manifest file (repeat to layer overrides, later files win)")
	root.PersistentFlags().StringVarP(&flagProject, "project", "p", "", "Project name")

	root.AddCommand(upCmd())
	root.AddCommand(downCmd())
	root.AddCommand(statusCmd())
	root.AddCommand(logsCmd())
	root.AddCommand(validateCmd())
	root.AddCommand(projectCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, ui.ErrorMsg("%v", err))
		os.Exit(exitCode(err))
	}
}

// exitCode maps the error taxonomy onto distinct exit codes. Invalid
// manifests (including dependency cycles) rank as configuration errors.
func exitCode(err error) int {
	var (
		manifestErr *manifest.ManifestError
		cycleErr    *plan.CycleError
		provErr     *orchestrator.ProvisionError
		startErr    *orchestrator.StartError
		healthErr   *orchestrator.HealthCheckError
	)
	switch {
	case errors.As(err, &manifestErr), errors.As(err, &cycleErr):
		return exitManifest
	case errors.As(err, &provErr):
		return exitProvision
	case errors.As(err, &startErr):
		return exitStart
	case errors.As(err, &healthErr):
		return exitHealth
	default:
		return exitGeneric
	}
}

// resolveProject determines the manifest files and project name from
// flags, falling back to the config file's current project.
func resolveProject() (name string, files []string, proj config.Project, err error) {
	if len(flagFiles) > 0 {
		name = flagProject
		if name == "" {
			abs, aerr := filepath.Abs(flagFiles[0])
			if aerr != nil {
				return "", nil, config.Project{}, fmt.Errorf("resolve manifest path: %w", aerr)
			}
			name = sanitizeProjectName(filepath.Base(filepath.Dir(abs)))
		}
		return name, flagFiles, config.Project{}, nil
	}

	cfg, err := config.Load()
	if err != nil {
		return "", nil, config.Project{}, err
	}
	if flagProject != "" {
		p, ok := cfg.Projects[flagProject]
		if !ok {
			return "", nil, config.Project{}, fmt.Errorf("project %q not configured; pass -f or run 'berth project set'", flagProject)
		}
		return flagProject, p.Files, p, nil
	}
	name, p, ok := cfg.Current()
	if !ok {
		return "", nil, config.Project{}, errors.New("no manifest given; pass -f or select a project with 'berth project use'")
	}
	return name, p.Files, p, nil
}

// sanitizeProjectName lowercases and strips characters compose-style
// project names don't allow.
func sanitizeProjectName(raw string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(raw) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return "default"
	}
	return b.String()
}

// loadSet reads and layers the manifest files into a validated set.
func loadSet(ctx context.Context, project string, paths []string) (*manifest.Set, error) {
	if len(paths) == 0 {
		return nil, errors.New("no manifest files configured")
	}
	files := make([]manifest.File, 0, len(paths))
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read manifest: %w", err)
		}
		files = append(files, manifest.File{Name: path, Content: data})
	}
	return manifest.Load(ctx, files, project)
}

func statusRows(statuses []orchestrator.ServiceStatus) [][]string {
	rows := make([][]string, 0, len(statuses))
	for _, st := range statuses {
		detail := st.Err
		if detail == "" {
			detail = "-"
		}
		rows = append(rows, []string{
			st.Service,
			st.Container,
			ui.Phase(st.Phase.String()),
			fmt.Sprintf("%d", st.Restarts),
			detail,
		})
	}
	return rows
}

var statusHeaders = []string{"SERVICE", "CONTAINER", "PHASE", "RESTARTS", "DETAIL"}
