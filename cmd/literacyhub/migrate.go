package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/ai-literacy/literacy-hub/config"
	"github.com/ai-literacy/literacy-hub/internal/infrastructure/persistence/postgres"
	"github.com/ai-literacy/literacy-hub/pkg/logger"
)

var errNoDatabase = errors.New("DATABASE_URL is not set")

// migrateCmd manages the PostgreSQL schema
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage database migrations",
	Long: `Apply, roll back or inspect the PostgreSQL schema migrations.

Available subcommands:
  up     - apply all pending migrations
  down   - roll back the latest applied migration
  status - list migrations and whether they are applied`,
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all pending migrations",
	RunE: withMigrator(func(ctx context.Context, m *postgres.Migrator, log *logger.Logger) error {
		n, err := m.Migrate(ctx)
		if err != nil {
			return err
		}
		log.Info("migrations applied", logger.Int("count", n))
		return nil
	}),
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back the latest migration",
	RunE: withMigrator(func(ctx context.Context, m *postgres.Migrator, log *logger.Logger) error {
		version, err := m.Rollback(ctx)
		if err != nil {
			return err
		}
		if version == 0 {
			log.Info("nothing to roll back")
			return nil
		}
		log.Info("migration rolled back", logger.Int("version", version))
		return nil
	}),
}

var migrateStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show migration status",
	RunE: withMigrator(func(ctx context.Context, m *postgres.Migrator, _ *logger.Logger) error {
		status, err := m.Status(ctx)
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "VERSION\tNAME\tAPPLIED AT")
		for _, mig := range status {
			applied := "pending"
			if mig.IsApplied {
				applied = mig.AppliedAt.Format(time.RFC3339)
			}
			fmt.Fprintf(w, "%d\t%s\t%s\n", mig.Version, mig.Name, applied)
		}
		return w.Flush()
	}),
}

func init() {
	migrateCmd.AddCommand(migrateUpCmd, migrateDownCmd, migrateStatusCmd)
}

// withMigrator opens the database for the duration of one subcommand.
func withMigrator(fn func(ctx context.Context, m *postgres.Migrator, log *logger.Logger) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		cfg, log, err := loadConfig()
		if err != nil {
			return err
		}
		defer func() { _ = log.Sync() }()

		conn, err := connectDatabase(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer conn.Close()

		return fn(cmd.Context(), postgres.NewMigrator(conn), log)
	}
}

func connectDatabase(ctx context.Context, cfg *config.Config) (*postgres.Connection, error) {
	if cfg.UsesMemoryStore() {
		return nil, errNoDatabase
	}
	conn, err := postgres.NewConnection(ctx, cfg.Database.Postgres())
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	return conn, nil
}
