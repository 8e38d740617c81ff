package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"berth/cmd/berth/ui"
)

func downCmd() *cobra.Command {
	var purge bool

	cmd := &cobra.Command{
		Use:   "down",
		Short: "Stop and remove the project's containers",
		Long: `Stop and remove every container of the project. Named volumes and
networks are preserved so data survives; --purge removes them too.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			name, files, proj, err := resolveProject()
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			set, err := loadSet(ctx, name, files)
			if err != nil {
				return err
			}

			e, err := openEnv(ctx, name, proj)
			if err != nil {
				return err
			}
			defer e.close()

			if err := e.orch.Down(ctx, set, purge); err != nil {
				return err
			}
			if purge {
				fmt.Println(ui.SuccessMsg("project %s is down, volumes and networks removed", ui.Bold(name)))
			} else {
				fmt.Println(ui.SuccessMsg("project %s is down, volumes preserved", ui.Bold(name)))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&purge, "purge", false, "Also remove named volumes and networks")
	return cmd
}
