package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"berth/cmd/berth/ui"
	"berth/internal/plan"
)

func validateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check the manifest and print the planned start order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			name, files, _, err := resolveProject()
			if err != nil {
				return err
			}

			set, err := loadSet(cmd.Context(), name, files)
			if err != nil {
				return err
			}
			p, err := plan.Build(set)
			if err != nil {
				return err
			}

			fmt.Println(ui.SuccessMsg("manifest is valid"))
			pairs := []ui.Pair{
				ui.KV("project", name),
				ui.KV("services", fmt.Sprintf("%d", len(set.Services))),
				ui.KV("networks", fmt.Sprintf("%d", len(p.Networks))),
				ui.KV("volumes", fmt.Sprintf("%d", len(p.Volumes))),
			}
			fmt.Print(ui.KeyValues("  ", pairs...))

			for i, tier := range p.Tiers {
				names := make([]string, 0, len(tier))
				for _, svc := range tier {
					names = append(names, svc.Name)
				}
				fmt.Printf("  %s %s\n", ui.Muted(fmt.Sprintf("tier %d:", i)), strings.Join(names, ", "))
			}
			return nil
		},
	}
}
