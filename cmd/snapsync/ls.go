package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/snapsync/snapsync/internal/store"
)

var (
	lsOwner string
	lsRepo  string
	lsDB    string
)

var lsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List files stored for a repository",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(lsDB)
		if err != nil {
			return err
		}

		st, err := store.Open(cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		defer st.Close()

		ctx := cmd.Context()
		repo := lsOwner + "/" + lsRepo

		paths, err := st.ListPaths(ctx, repo)
		if err != nil {
			return err
		}
		for _, p := range paths {
			fmt.Println(p)
		}

		n, err := st.Count(ctx, repo)
		if err != nil {
			return err
		}
		fmt.Printf("%d files\n", n)
		return nil
	},
}

func init() {
	lsCmd.Flags().StringVar(&lsOwner, "owner", "", "repository owner")
	lsCmd.Flags().StringVar(&lsRepo, "repo", "", "repository name")
	lsCmd.Flags().StringVar(&lsDB, "db", "", "database URL or SQLite path (overrides DATABASE_URL)")
	lsCmd.MarkFlagRequired("owner")
	lsCmd.MarkFlagRequired("repo")
}
