package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/memoria-app/memoria/internal/client/app"
	"github.com/memoria-app/memoria/internal/client/models"
)

func newStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show local dataset statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(a *app.App) error {
				st, err := a.GetStatistics(cmd.Context())
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "records:        %d\n", st.Records)
				fmt.Fprintf(out, "media assets:   %d\n", st.MediaAssets)
				fmt.Fprintf(out, "categories:     %d\n", st.Categories)
				fmt.Fprintf(out, "schema version: %d\n", st.SchemaVersion)
				for _, o := range []models.Outcome{models.OutcomeOK, models.OutcomeFailed, models.OutcomeSkipped} {
					if n := st.LogOutcomes[o]; n > 0 {
						fmt.Fprintf(out, "sync log %-8s %d\n", string(o)+":", n)
					}
				}
				return nil
			})
		},
	}
}
