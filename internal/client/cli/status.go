package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/memoria-app/memoria/internal/client/app"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show sync health of the local store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(a *app.App) error {
				st, err := a.SyncStatus(cmd.Context())
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "records: %d total\n", st.Total)
				fmt.Fprintf(out, "  synced:  %d\n", st.Synced)
				fmt.Fprintf(out, "  pending: %d\n", st.Pending)
				fmt.Fprintf(out, "  failed:  %d\n", st.Failed)
				if st.LastSyncAt != nil {
					fmt.Fprintf(out, "last successful sync: %s\n", st.LastSyncAt.Format("2006-01-02 15:04:05"))
				} else {
					fmt.Fprintln(out, "last successful sync: never")
				}
				return nil
			})
		},
	}
}
