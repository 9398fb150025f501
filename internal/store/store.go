// Package store persists synchronized file snapshots in a relational
// database, keyed by (repository, path).
package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/zeebo/xxh3"
)

// File is one fetched file ready to be persisted.
type File struct {
	Path    string
	Content []byte
	BlobSHA string
	Binary  bool
}

// Record is the durable row for one path of one repository. Content is
// overwritten on every pull; history stays with the remote host.
type Record struct {
	Repo      string
	Path      string
	Content   []byte
	BlobSHA   string
	CommitSHA string
	Binary    bool
	Digest    string
	SyncedAt  time.Time
}

// PersistenceError wraps a destination store failure. One persistence
// error fails the whole batch being written.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persist %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// Store is a destination for synchronized snapshots.
type Store interface {
	// Init creates the schema if it does not exist.
	Init(ctx context.Context) error

	// UpsertBatch atomically writes a batch of files for one repository
	// and commit, replacing prior content per path. It returns the number
	// of rows actually changed; a row identical to its prior state is not
	// counted.
	UpsertBatch(ctx context.Context, repo, commit string, files []File) (int, error)

	// Get returns the record for one path, or nil if absent.
	Get(ctx context.Context, repo, path string) (*Record, error)

	// ListPaths returns all stored paths for a repository, sorted.
	ListPaths(ctx context.Context, repo string) ([]string, error)

	// Count returns the number of stored files for a repository.
	Count(ctx context.Context, repo string) (int64, error)

	Close() error
}

// Digest computes the content digest used for change detection.
func Digest(content []byte) string {
	return fmt.Sprintf("%x", xxh3.Hash128(content).Bytes())
}

// Open selects a backend from the database URL: postgres:// and
// postgresql:// URLs open the PostgreSQL store, everything else is
// treated as an SQLite database path (an optional sqlite:// prefix is
// stripped).
func Open(databaseURL string) (Store, error) {
	if strings.HasPrefix(databaseURL, "postgres://") || strings.HasPrefix(databaseURL, "postgresql://") {
		return NewPostgres(databaseURL)
	}
	return NewSQLite(strings.TrimPrefix(databaseURL, "sqlite://"))
}
