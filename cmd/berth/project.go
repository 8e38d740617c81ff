package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"berth/cmd/berth/ui"
	"berth/config"
)

func projectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "project",
		Short: "Manage named project configurations",
	}
	cmd.AddCommand(projectListCmd())
	cmd.AddCommand(projectSetCmd())
	cmd.AddCommand(projectUseCmd())
	cmd.AddCommand(projectRemoveCmd())
	return cmd
}

func projectListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List configured projects",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if len(cfg.Projects) == 0 {
				fmt.Println(ui.Muted("no projects configured"))
				return nil
			}

			names := make([]string, 0, len(cfg.Projects))
			for name := range cfg.Projects {
				names = append(names, name)
			}
			sort.Strings(names)

			for _, name := range names {
				marker := " "
				if name == cfg.CurrentProject {
					marker = ui.Accent("*")
				}
				fmt.Printf("%s %s %s\n", marker, ui.Bold(name),
					ui.Muted(fmt.Sprintf("%v", cfg.Projects[name].Files)))
			}
			return nil
		},
	}
}

func projectSetCmd() *cobra.Command {
	var stateDir string

	cmd := &cobra.Command{
		Use:   "set <name> -f <manifest> [-f <override> ...]",
		Short: "Add or update a named project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(flagFiles) == 0 {
				return fmt.Errorf("at least one manifest file is required (-f)")
			}
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			cfg.Set(args[0], config.Project{Files: flagFiles, StateDir: stateDir})
			if cfg.CurrentProject == "" {
				cfg.CurrentProject = args[0]
			}
			if err := cfg.Save(); err != nil {
				return err
			}
			fmt.Println(ui.SuccessMsg("project %s saved", ui.Bold(args[0])))
			return nil
		},
	}
	cmd.Flags().StringVar(&stateDir, "state-dir", "", "Override where the project's state database lives")
	return cmd
}

func projectUseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "use <name>",
		Short: "Select the current project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if err := cfg.Use(args[0]); err != nil {
				return err
			}
			if err := cfg.Save(); err != nil {
				return err
			}
			fmt.Println(ui.SuccessMsg("using project %s", ui.Bold(args[0])))
			return nil
		},
	}
}

func projectRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <name>",
		Short: "Delete a named project configuration",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if err := cfg.Remove(args[0]); err != nil {
				return err
			}
			if err := cfg.Save(); err != nil {
				return err
			}
			fmt.Println(ui.SuccessMsg("project %s removed", ui.Bold(args[0])))
			return nil
		},
	}
}
