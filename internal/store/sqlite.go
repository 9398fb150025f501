package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
	"go.uber.org/zap"

	"github.com/snapsync/snapsync/internal/logging"
	"github.com/snapsync/snapsync/internal/metrics"
)

// SQLite is an embedded SQLite-backed Store for local use. The database
// is opened in WAL mode so readers are not blocked during a pull.
type SQLite struct {
	db   *sql.DB
	path string
}

// NewSQLite opens (or creates) an SQLite store at path.
func NewSQLite(path string) (*SQLite, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &SQLite{db: db, path: path}, nil
}

// Close closes the database connection.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// Init creates the schema if needed.
func (s *SQLite) Init(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS repo_files (
			repo       TEXT NOT NULL,
			path       TEXT NOT NULL,
			content    BLOB NOT NULL,
			blob_sha   TEXT NOT NULL,
			commit_sha TEXT NOT NULL,
			is_binary  INTEGER NOT NULL,
			digest     TEXT NOT NULL,
			synced_at  INTEGER NOT NULL,
			PRIMARY KEY (repo, path)
		)`)
	if err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// UpsertBatch writes all files in one transaction. Any failure rolls the
// whole batch back.
func (s *SQLite) UpsertBatch(ctx context.Context, repo, commit string, files []File) (int, error) {
	start := time.Now()
	defer func() { metrics.RecordStoreQuery("upsert_batch", time.Since(start)) }()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, &PersistenceError{Op: "batch", Err: err}
	}
	defer tx.Rollback()

	updated := 0
	now := time.Now().Unix()
	for _, f := range files {
		res, err := tx.ExecContext(ctx, `
			INSERT INTO repo_files (repo, path, content, blob_sha, commit_sha, is_binary, digest, synced_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (repo, path) DO UPDATE SET
				content    = excluded.content,
				blob_sha   = excluded.blob_sha,
				commit_sha = excluded.commit_sha,
				is_binary  = excluded.is_binary,
				digest     = excluded.digest,
				synced_at  = excluded.synced_at
			WHERE repo_files.digest <> excluded.digest
				OR repo_files.blob_sha <> excluded.blob_sha
				OR repo_files.commit_sha <> excluded.commit_sha`,
			repo, f.Path, f.Content, f.BlobSHA, commit, boolToInt(f.Binary), Digest(f.Content), now)
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
func (s *SQLite) Get(ctx context.Context, repo, path string) (*Record, error) {
	start := time.Now()
	defer func() { metrics.RecordStoreQuery("get", time.Since(start)) }()

	var r Record
	var isBinary int
	var syncedAt int64
	err := s.db.QueryRowContext(ctx, `
		SELECT repo, path, content, blob_sha, commit_sha, is_binary, digest, synced_at
		FROM repo_files WHERE repo = ? AND path = ?`, repo, path).
		Scan(&r.Repo, &r.Path, &r.Content, &r.BlobSHA, &r.CommitSHA, &isBinary, &r.Digest, &syncedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	r.Binary = isBinary != 0
	r.SyncedAt = time.Unix(syncedAt, 0)
	return &r, nil
}

// ListPaths returns all stored paths for a repository, sorted.
func (s *SQLite) ListPaths(ctx context.Context, repo string) ([]string, error) {
	start := time.Now()
	defer func() { metrics.RecordStoreQuery("list_paths", time.Since(start)) }()

	rows, err := s.db.QueryContext(ctx,
		`SELECT path FROM repo_files WHERE repo = ? ORDER BY path`, repo)
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
func (s *SQLite) Count(ctx context.Context, repo string) (int64, error) {
	start := time.Now()
	defer func() { metrics.RecordStoreQuery("count", time.Since(start)) }()

	var n int64
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM repo_files WHERE repo = ?`, repo).Scan(&n)
	return n, err
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
