package main

import (
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/deepnoodle-ai/captain"
	"github.com/deepnoodle-ai/captain/fieldops"
	"github.com/deepnoodle-ai/captain/postgres"
	"github.com/spf13/cobra"
)

// CLI configuration shared by all commands. Flags fall back to CAPTAIN_*
// environment variables.
type config struct {
	CatalogFile string
	Store       string
	DSN         string
	PgDriver    string
	DataDir     string
	Verbose     bool
	Seed        bool

	catalog *fieldops.Catalog
	logger  *slog.Logger
	now     func() time.Time
}

func newRootCmd() *cobra.Command {
	cfg := &config{now: time.Now}

	cmd := &cobra.Command{
		Use:           "captain",
		Short:         "Run and inspect field service workflows",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return cfg.load(cmd.ErrOrStderr())
		},
		RunE: func(c *cobra.Command, _ []string) error { return c.Help() },
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&cfg.CatalogFile, "catalog", os.Getenv("CAPTAIN_CATALOG"), "Service catalog YAML (default: built-in catalog)")
	flags.StringVar(&cfg.Store, "store", envOr("CAPTAIN_STORE", "memory"), "Repository backend: memory, sqlite or postgres")
	flags.StringVar(&cfg.DSN, "dsn", os.Getenv("CAPTAIN_DSN"), "SQLite path or PostgreSQL connection string")
	flags.StringVar(&cfg.PgDriver, "pg-driver", envOr("CAPTAIN_PG_DRIVER", postgres.DriverPQ), "PostgreSQL driver: postgres (lib/pq) or pgx")
	flags.StringVar(&cfg.DataDir, "data-dir", os.Getenv("CAPTAIN_DATA_DIR"), "Directory for progress files and event journals")
	flags.BoolVarP(&cfg.Verbose, "verbose", "v", false, "Enable debug logging")
	flags.BoolVar(&cfg.Seed, "seed", false, "Add today's sample jobs to the repository when missing")

	cmd.AddCommand(newServicesCmd(cfg))
	cmd.AddCommand(newStepsCmd(cfg))
	cmd.AddCommand(newValidateCmd(cfg))
	cmd.AddCommand(newRunCmd(cfg))
	cmd.AddCommand(newTUICmd(cfg))
	cmd.AddCommand(newJobsCmd(cfg))
	cmd.AddCommand(newAttendanceCmd(cfg))
	cmd.AddCommand(newHistoryCmd(cfg))
	return cmd
}

func (cfg *config) load(stderr io.Writer) error {
	level := slog.LevelWarn
	if cfg.Verbose {
		level = slog.LevelDebug
	}
	if stderr == os.Stderr {
		cfg.logger = captain.NewLogger(level)
	} else {
		cfg.logger = captain.NewJSONLogger(stderr, level)
	}

	if cfg.CatalogFile == "" {
		cfg.catalog = fieldops.DefaultCatalog()
		return nil
	}
	catalog, err := fieldops.LoadCatalog(cfg.CatalogFile)
	if err != nil {
		return err
	}
	cfg.catalog = catalog
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
