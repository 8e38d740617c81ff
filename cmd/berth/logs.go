package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"berth/internal/orchestrator"
)

func logsCmd() *cobra.Command {
	var tail int

	cmd := &cobra.Command{
		Use:   "logs <service>",
		Short: "Print a service's container logs",
		Args:  cobra.ExactArgs(1),
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

			out, err := orchestrator.Logs(ctx, e.rt, name, args[0], tail)
			if err != nil {
				return err
			}
			if out != "" {
				fmt.Println(out)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&tail, "tail", "n", 100, "Number of trailing lines (0 for all)")
	return cmd
}
