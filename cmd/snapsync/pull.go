package main

import (
	"fmt"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"github.com/snapsync/snapsync/internal/events"
	"github.com/snapsync/snapsync/internal/logging"
	"github.com/snapsync/snapsync/internal/metrics"
	"github.com/snapsync/snapsync/internal/store"
	"github.com/snapsync/snapsync/internal/syncer"
	"github.com/snapsync/snapsync/pkg/githost"
	"github.com/snapsync/snapsync/pkg/retry"
	"go.uber.org/zap"
)

var (
	pullOwner  string
	pullRepo   string
	pullBranch string
	pullCommit string
	pullDB     string
)

var pullCmd = &cobra.Command{
	Use:   "pull",
	Short: "Pull one repository snapshot into the store",
	Long: `Pull the full file tree of one commit into the destination store.

Without --commit the head of --branch (default "main") is resolved
first. Re-running against an unchanged snapshot updates nothing.
Passing an older --commit rolls the stored tree back to that state.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(pullDB)
		if err != nil {
			return err
		}
		defer logging.Sync()

		if cfg.MetricsAddr != "" {
			go func() {
				mux := http.NewServeMux()
				mux.Handle("/metrics", metrics.Handler())
				if err := http.ListenAndServe(cfg.MetricsAddr, mux); err != nil {
					logging.Error("metrics listener failed", zap.Error(err))
				}
			}()
		}

		st, err := store.Open(cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		defer st.Close()

		ctx := cmd.Context()
		if err := st.Init(ctx); err != nil {
			return fmt.Errorf("init store: %w", err)
		}

		retryPolicy := retry.DefaultPolicy()
		retryPolicy.MaxAttempts = cfg.RetryMaxAttempts

		client := githost.New(githost.Config{
			BaseURL:     cfg.HostBaseURL,
			Timeout:     cfg.HostTimeout,
			AuthToken:   cfg.HostToken,
			RetryPolicy: retryPolicy,
		})

		s := syncer.New(client, st, events.NewBroadcaster(), syncer.Options{
			SmallFileThreshold: cfg.SmallFileThreshold,
			MaxBatchBytes:      cfg.MaxBatchBytes,
			MaxFilesPerBatch:   cfg.MaxFilesPerBatch,
		})

		result, err := s.Pull(ctx, syncer.Target{
			Owner:  pullOwner,
			Repo:   pullRepo,
			Branch: pullBranch,
			Commit: pullCommit,
		})
		if err != nil {
			return err
		}

		fmt.Printf("Snapshot %s\n", result.Snapshot)
		fmt.Printf("  fetched: %d  updated: %d  small: %d  large: %d\n",
			result.FilesFetched, result.FilesUpdated, result.SmallFiles, result.LargeFiles)

		if len(result.Failed) > 0 {
			fmt.Printf("  failed: %d\n", len(result.Failed))
			for _, f := range result.Failed {
				fmt.Fprintf(os.Stderr, "    %s (%d bytes): %s\n", f.Path, f.Size, f.Reason)
			}
			os.Exit(1)
		}
		return nil
	},
}

func init() {
	pullCmd.Flags().StringVar(&pullOwner, "owner", "", "repository owner")
	pullCmd.Flags().StringVar(&pullRepo, "repo", "", "repository name")
	pullCmd.Flags().StringVar(&pullBranch, "branch", "", `branch to resolve (default "main")`)
	pullCmd.Flags().StringVar(&pullCommit, "commit", "", "explicit commit SHA (overrides --branch)")
	pullCmd.Flags().StringVar(&pullDB, "db", "", "database URL or SQLite path (overrides DATABASE_URL)")
	pullCmd.MarkFlagRequired("owner")
	pullCmd.MarkFlagRequired("repo")
}
