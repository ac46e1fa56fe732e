package config

import (
	"flag"
	"os"
	"time"

	"github.com/memoria-app/memoria/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags:
//
//	-a, --remote string      base URL of the remote content service
//	-d, --database string    path to the local SQLite database file
//	-m, --media-dir string   directory for downloaded media payloads
//	-i, --interval int       periodic sync interval in minutes
//
// The function filters os.Args to only include the flags it knows about,
// using flagx.FilterArgs, to avoid interference with other components.
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{
		"-a", "--remote",
		"-d", "--database",
		"-m", "--media-dir",
		"-i", "--interval",
	})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.RemoteBaseURL, "a", cfg.RemoteBaseURL, "base URL of the remote content service")
	fs.StringVar(&cfg.RemoteBaseURL, "remote", cfg.RemoteBaseURL, "base URL of the remote content service")
	fs.StringVar(&cfg.DatabasePath, "d", cfg.DatabasePath, "path to the local database file")
	fs.StringVar(&cfg.DatabasePath, "database", cfg.DatabasePath, "path to the local database file")
	fs.StringVar(&cfg.MediaDir, "m", cfg.MediaDir, "directory for downloaded media payloads")
	fs.StringVar(&cfg.MediaDir, "media-dir", cfg.MediaDir, "directory for downloaded media payloads")
	minutes := int(cfg.SyncInterval.Minutes())
	fs.IntVar(&minutes, "i", minutes, "periodic sync interval (in minutes)")
	fs.IntVar(&minutes, "interval", minutes, "periodic sync interval (in minutes)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	cfg.SyncInterval = time.Duration(minutes) * time.Minute
}
