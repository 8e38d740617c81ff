package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"berth/cmd/berth/ui"
	"berth/internal/orchestrator"
)

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the current phase of every service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			name, _, proj, err := resolveProject()
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			e, err := openEnv(ctx, name, proj)
			if err != nil {
				return err
			}
			defer e.close()

			statuses, err := orchestrator.Observe(ctx, e.rt, e.store, name)
			if err != nil {
				return err
			}
			if len(statuses) == 0 {
				fmt.Println(ui.Muted(fmt.Sprintf("project %s has no services", name)))
				return nil
			}
			fmt.Println(ui.Table(statusHeaders, statusRows(statuses)))
			return nil
		},
	}
}
