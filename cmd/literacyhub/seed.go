package main

import (
	"github.com/spf13/cobra"

	"github.com/ai-literacy/literacy-hub/internal/infrastructure/persistence/postgres"
	"github.com/ai-literacy/literacy-hub/internal/infrastructure/seed"
)

var catalogFile string

// seedCmd loads the catalog into the database
var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load the topic and lesson catalog into the database",
	Long: `Upsert topics, content templates and course lessons.

Without --file the embedded catalog is used. Seeding is idempotent.`,
	RunE: runSeed,
}

func init() {
	seedCmd.Flags().StringVarP(&catalogFile, "file", "f", "", "Catalog YAML file (default: embedded catalog)")
}

func runSeed(cmd *cobra.Command, _ []string) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	path := catalogFile
	if path == "" {
		path = cfg.Learning.CatalogFile
	}
	s, err := seed.Load(path)
	if err != nil {
		return err
	}

	conn, err := connectDatabase(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer conn.Close()

	return seed.Apply(cmd.Context(), postgres.NewCatalogRepository(conn), s, log)
}
