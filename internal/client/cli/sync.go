package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/memoria-app/memoria/internal/client/app"
)

func newSyncCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Reconcile the local store with the remote source now",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(a *app.App) error {
				ok, err := a.ForceSync(cmd.Context())
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				if !ok {
					fmt.Fprintln(out, "sync skipped: remote source unreachable")
				}

				st, err := a.SyncStatus(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "records: %d synced, %d pending, %d failed\n",
					st.Synced, st.Pending, st.Failed)

				entries, err := a.RecentSyncLog(cmd.Context(), 10)
				if err != nil {
					return err
				}
				for _, e := range entries {
					line := fmt.Sprintf("  %s %-10s %-6s %-7s %s",
						e.CreatedAt.Format("15:04:05"), e.Operation, e.Kind, e.Outcome, e.TargetID)
					if e.Error != "" {
						line += " (" + e.Error + ")"
					}
					fmt.Fprintln(out, line)
				}
				return nil
			})
		},
	}
}
