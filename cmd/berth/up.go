package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"berth/cmd/berth/ui"
)

func upCmd() *cobra.Command {
	var detach bool

	cmd := &cobra.Command{
		Use:   "up",
		Short: "Provision networks and volumes, start services in dependency order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			name, files, proj, err := resolveProject()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			set, err := loadSet(ctx, name, files)
			if err != nil {
				return err
			}

			e, err := openEnv(ctx, name, proj)
			if err != nil {
				return err
			}
			defer e.close()

			if err := e.orch.Up(ctx, set); err != nil {
				// Leave whatever came up running; a later up adopts it,
				// a down cleans it.
				e.orch.Close()
				return err
			}

			fmt.Println(ui.Table(statusHeaders, statusRows(e.orch.Snapshot())))
			fmt.Println(ui.SuccessMsg("project %s is up", ui.Bold(name)))

			if detach {
				e.orch.Close()
				fmt.Println(ui.Muted("detached: containers keep running without restart supervision"))
				return nil
			}

			fmt.Println(ui.Muted("supervising; press Ctrl-C to stop"))
			<-ctx.Done()

			// Restore default signal handling so a second Ctrl-C kills us
			// even if shutdown hangs.
			stop()
			fmt.Println(ui.InfoMsg("stopping project %s", name))
			if err := e.orch.Down(context.Background(), set, false); err != nil {
				return err
			}
			fmt.Println(ui.SuccessMsg("project %s stopped", ui.Bold(name)))
			return nil
		},
	}
	cmd.Flags().BoolVarP(&detach, "detach", "d", false,
		"Exit after the stack is up instead of supervising restarts")
	return cmd
}
