package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/memoria-app/memoria/internal/client/app"
)

func newScanCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "scan <code>",
		Short: "Resolve a scanned memorial code against the local store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(a *app.App) error {
				res, err := a.LookupByCode(cmd.Context(), args[0])
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "%s\n", res.Record.Name)
				if res.Record.Description != "" {
					fmt.Fprintf(out, "%s\n", res.Record.Description)
				}
				fmt.Fprintf(out, "category: %s\n", res.Record.CategoryID)
				if res.Degraded {
					fmt.Fprintln(out, "note: served from cache while offline; may be out of date")
				}

				bundle, err := a.GetBundle(cmd.Context(), res.Record.ID)
				if err != nil {
					return err
				}
				for _, m := range bundle.Media {
					location := m.LocalPath
					if location == "" {
						location = m.RemoteURL + " (not downloaded)"
					}
					fmt.Fprintf(out, "  %-8s %s\n", m.Kind, location)
				}
				return nil
			})
		},
	}
}
