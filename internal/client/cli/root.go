// Package cli implements the memoria command-line interface. Commands are
// thin: each one loads configuration, wires the app, runs a single
// operation and prints the result.
package cli

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/memoria-app/memoria/internal/client/app"
	"github.com/memoria-app/memoria/internal/client/config"
	"github.com/memoria-app/memoria/internal/logging"
)

var verbose bool

// NewRootCmd builds the command tree. The persistent flags mirror the ones
// the config package reads from os.Args, so they show up in --help and
// survive cobra's flag parsing.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "memoria",
		Short: "Offline-first client for scannable memorial records",
		Long: `memoria keeps a local, offline-capable copy of memorial records and
their media, resolves scanned codes against it, and reconciles with the
remote content service in the background.`,
		SilenceUsage: true,
	}

	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	root.PersistentFlags().StringP("config", "c", "", "path to JSON config file")
	root.PersistentFlags().StringP("remote", "a", "", "base URL of the remote content service")
	root.PersistentFlags().StringP("database", "d", "", "path to the local database file")
	root.PersistentFlags().StringP("media-dir", "m", "", "directory for downloaded media payloads")
	root.PersistentFlags().StringP("interval", "i", "", "periodic sync interval (minutes)")

	root.AddCommand(newScanCmd())
	root.AddCommand(newSyncCmd())
	root.AddCommand(newStatusCmd())
	root.AddCommand(newStatsCmd())
	return root
}

// Execute runs the CLI and returns the process exit code.
func Execute() int {
	if err := NewRootCmd().Execute(); err != nil {
		return 1
	}
	return 0
}

func newLogger() logging.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	h := tint.NewHandler(os.Stderr, &tint.Options{
		Level:      level,
		TimeFormat: time.TimeOnly,
		NoColor:    !isatty.IsTerminal(os.Stderr.Fd()),
	})
	return logging.NewSlogLogger(slog.New(h))
}

// withApp loads configuration, wires the app, runs fn and tears down. The
// config package reads its flags straight from os.Args; the matching cobra
// flags exist so parsing accepts them.
func withApp(cmd *cobra.Command, fn func(a *app.App) error) error {
	cfg := config.LoadConfig()

	a, err := app.New(cmd.Context(), cfg, newLogger())
	if err != nil {
		return fmt.Errorf("starting app: %w", err)
	}
	defer a.Close()

	return fn(a)
}
