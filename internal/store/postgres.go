package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/snapsync/snapsync/internal/logging"
	"github.com/snapsync/snapsync/internal/metrics"
)

// Postgres is a PostgreSQL-backed Store.
type Postgres struct {
	db *sql.DB
}

// NewPostgres opens a PostgreSQL store.
func NewPostgres(databaseURL string) (*Postgres, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &Postgres{db: db}, nil
}

// Close closes the database connection.
func (s *Postgres) Close() error {
	return s.db.Close()
}

// Init creates the schema if needed.
func (s *Postgres) Init(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS repo_files (
			repo       TEXT NOT NULL,
			path       TEXT NOT NULL,
			content    BYTEA NOT NULL,
			blob_sha   TEXT NOT NULL,
			commit_sha TEXT NOT NULL,
			is_binary  BOOLEAN NOT NULL,
			digest     TEXT NOT NULL,
			synced_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			PRIMARY KEY (repo, path)
		)`)
	if err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// UpsertBatch writes all files in one transaction. Any failure rolls the
// whole batch back.
func (s *Postgres) UpsertBatch(ctx context.Context, repo, commit string, files []File) (int, error) {
	start := time.Now()
	defer func() { metrics.RecordStoreQuery("upsert_batch", time.Since(start)) }()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, &PersistenceError{Op: "batch", Err: err}
	}
	defer tx.Rollback()

	updated := 0
	for _, f := range files {
		res, err := tx.ExecContext(ctx, `
			INSERT INTO repo_files (repo, path, content, blob_sha, commit_sha, is_binary, digest, synced_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
			ON CONFLICT (repo, path) DO UPDATE SET
				content    = EXCLUDED.content,
				blob_sha   = EXCLUDED.blob_sha,
				commit_sha = EXCLUDED.commit_sha,
				is_binary  = EXCLUDED.is_binary,
				digest     = EXCLUDED.digest,
				synced_at  = NOW()
			WHERE (repo_files.digest, repo_files.blob_sha, repo_files.commit_sha)
				IS DISTINCT FROM (EXCLUDED.digest, EXCLUDED.blob_sha, EXCLUDED.commit_sha)`,
			repo, f.Path, f.Content, f.BlobSHA, commit, f.Binary, Digest(f.Content))
		if err != nil {
			return 0, &PersistenceError{Op: f.Path, Err: err}
		}
		n, _ := res.RowsAffected()
		updated += int(n)
	}

	if err := tx.Commit(); err != nil {
		return 0, &PersistenceError{Op: "batch commit", Err: err}
	}

	logging.Debug("upserted batch",
		zap.String("repo", repo),
		zap.Int("files", len(files)),
		zap.Int("updated", updated))
	return updated, nil
}

// Get returns the record for one path, or nil if absent.
func (s *Postgres) Get(ctx context.Context, repo, path string) (*Record, error) {
	start := time.Now()
	defer func() { metrics.RecordStoreQuery("get", time.Since(start)) }()

	var r Record
	err := s.db.QueryRowContext(ctx, `
		SELECT repo, path, content, blob_sha, commit_sha, is_binary, digest, synced_at
		FROM repo_files WHERE repo = $1 AND path = $2`, repo, path).
		Scan(&r.Repo, &r.Path, &r.Content, &r.BlobSHA, &r.CommitSHA, &r.Binary, &r.Digest, &r.SyncedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	return &r, nil
}

// ListPaths returns all stored paths for a repository, sorted.
func (s *Postgres) ListPaths(ctx context.Context, repo string) ([]string, error) {
	start := time.Now()
	defer func() { metrics.RecordStoreQuery("list_paths", time.Since(start)) }()

	rows, err := s.db.QueryContext(ctx,
		`SELECT path FROM repo_files WHERE repo = $1 ORDER BY path`, repo)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	var paths []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		paths = append(paths, p)
	}
	return paths, rows.Err()
}

// Count returns the number of stored files for a repository.
func (s *Postgres) Count(ctx context.Context, repo string) (int64, error) {
	start := time.Now()
	defer func() { metrics.RecordStoreQuery("count", time.Since(start)) }()

	var n int64
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM repo_files WHERE repo = $1`, repo).Scan(&n)
	return n, err
}
