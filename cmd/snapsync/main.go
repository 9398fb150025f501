// Command snapsync pulls repository snapshots from a Git-hosting API
// into a relational file store.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/snapsync/snapsync/internal/config"
	"github.com/snapsync/snapsync/internal/logging"
)

var rootCmd = &cobra.Command{
	Use:   "snapsync",
	Short: "Repository snapshot synchronizer",
	Long: `snapsync pulls a complete file tree for one commit of a remote
repository into a relational store (PostgreSQL or embedded SQLite).

Configuration comes from environment variables (DATABASE_URL,
GITHOST_BASE_URL, GITHOST_TOKEN, ...); the most common ones can be
overridden with flags.`,
	SilenceUsage: true,
}

func loadConfig(dbFlag string) (*config.Config, error) {
	if dbFlag != "" {
		os.Setenv("DATABASE_URL", dbFlag)
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	if err := logging.Init(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat}); err != nil {
		return nil, fmt.Errorf("init logging: %w", err)
	}
	return cfg, nil
}

func main() {
	rootCmd.AddCommand(pullCmd)
	rootCmd.AddCommand(lsCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
