// Package main is the entry point of the literacy-hub backend: the HTTP API
// that tracks learners through the AI-literacy course and certifies them.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ai-literacy/literacy-hub/config"
	"github.com/ai-literacy/literacy-hub/pkg/logger"
)

var envFiles []string

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "literacyhub",
	Short: "AI literacy learning-progress backend",
	Long: `literacyhub serves the learning-progress API: registration and login,
lesson and topic progress, XP and levels, and course certification.

Configuration is read from the environment and from .env files.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringSliceVar(&envFiles, "env-file", nil, "Env files to load (default: .env)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(seedCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig loads configuration and builds the logger it describes.
func loadConfig() (*config.Config, *logger.Logger, error) {
	cfg, err := config.Load(envFiles...)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	log := logger.New(cfg.Observability.LoggerOptions()).With(
		logger.String("service", cfg.App.Name),
		logger.String("env", string(cfg.App.Environment)),
	)
	return cfg, log, nil
}
