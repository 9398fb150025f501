// Package syncer pulls a complete repository snapshot from a remote
// hosting API into a relational file store.
//
// A pull runs in two phases. Small files are packed into byte- and
// count-bounded batches, fetched concurrently within each batch, and
// persisted one batch at a time, so peak memory is bounded by one
// batch's worth of content. Large files are fetched and persisted
// strictly one at a time. Individual file failures are recorded and
// never abort the run; only the initial tree listing is fatal.
package syncer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/snapsync/snapsync/internal/classify"
	"github.com/snapsync/snapsync/internal/config"
	"github.com/snapsync/snapsync/internal/events"
	"github.com/snapsync/snapsync/internal/logging"
	"github.com/snapsync/snapsync/internal/metrics"
	"github.com/snapsync/snapsync/internal/planner"
	"github.com/snapsync/snapsync/internal/store"
	"github.com/snapsync/snapsync/pkg/githost"
)

// Remote is the subset of the hosting API the synchronizer needs.
type Remote interface {
	ResolveBranch(ctx context.Context, owner, repo, branch string) (string, error)
	ListTree(ctx context.Context, owner, repo, commit string) ([]githost.FileRef, error)
	FetchBlob(ctx context.Context, owner, repo, sha string, binary bool) (*githost.Blob, error)
}

// FileStore persists fetched batches.
type FileStore interface {
	UpsertBatch(ctx context.Context, repo, commit string, files []store.File) (int, error)
}

// Notifier receives a best-effort signal when a pull completes.
type Notifier interface {
	Publish(events.Event)
}

// Target identifies what to pull. Commit wins over Branch; an empty
// Branch defaults to "main".
type Target struct {
	Owner  string
	Repo   string
	Branch string
	Commit string
}

func (t Target) key() string {
	return t.Owner + "/" + t.Repo
}

// Options bounds the batching behavior. Zero values take the defaults.
type Options struct {
	SmallFileThreshold int64
	MaxBatchBytes      int64
	MaxFilesPerBatch   int
}

func (o Options) withDefaults() Options {
	if o.SmallFileThreshold <= 0 {
		o.SmallFileThreshold = config.DefaultSmallFileThreshold
	}
	if o.MaxBatchBytes <= 0 {
		o.MaxBatchBytes = config.DefaultMaxBatchBytes
	}
	if o.MaxFilesPerBatch <= 0 {
		o.MaxFilesPerBatch = config.DefaultMaxFilesPerBatch
	}
	return o
}

// Syncer orchestrates snapshot pulls.
type Syncer struct {
	remote   Remote
	store    FileStore
	notifier Notifier
	opts     Options
}

// New creates a Syncer. notifier may be nil.
func New(remote Remote, st FileStore, notifier Notifier, opts Options) *Syncer {
	return &Syncer{
		remote:   remote,
		store:    st,
		notifier: notifier,
		opts:     opts.withDefaults(),
	}
}

// Pull synchronizes one snapshot of the target repository into the
// destination store and returns the run's Result.
//
// Resolution and listing failures are fatal: an error is returned and
// nothing is written. Every later failure is contained per file or per
// batch and reported through Result.Failed.
func (s *Syncer) Pull(ctx context.Context, target Target) (*Result, error) {
	start := time.Now()

	// Resolving
	commit := target.Commit
	if commit == "" {
		branch := target.Branch
		if branch == "" {
			branch = "main"
		}
		var err error
		commit, err = s.remote.ResolveBranch(ctx, target.Owner, target.Repo, branch)
		if err != nil {
			metrics.RecordPull("fatal", time.Since(start))
			return nil, fmt.Errorf("resolve snapshot: %w", err)
		}
	}

	// Listing
	refs, err := s.remote.ListTree(ctx, target.Owner, target.Repo, commit)
	if err != nil {
		metrics.RecordPull("fatal", time.Since(start))
		return nil, fmt.Errorf("list snapshot tree: %w", err)
	}

	// Partitioning by size
	var small, large []githost.FileRef
	for _, ref := range refs {
		if ref.Size < s.opts.SmallFileThreshold {
			small = append(small, ref)
		} else {
			large = append(large, ref)
		}
	}

	logging.Info("starting pull",
		zap.String("repo", target.key()),
		zap.String("snapshot", commit),
		zap.Int("small_files", len(small)),
		zap.Int("large_files", len(large)))

	tracker := &failureTracker{}
	var fetched, updated, smallDone, largeDone int

	// Phase 1: batched small files. Batches run sequentially relative to
	// each other; only the files within one batch are fetched concurrently.
	for _, batch := range planner.Plan(small, s.opts.MaxBatchBytes, s.opts.MaxFilesPerBatch) {
		batchStart := time.Now()

		files, sizes := s.fetchBatch(ctx, target, batch.Refs, tracker)
		fetched += len(files)

		if len(files) > 0 {
			n, err := s.store.UpsertBatch(ctx, target.key(), commit, files)
			if err != nil {
				// A partial batch write is indistinguishable from a total
				// one, so every fetched file of the batch is failed.
				for _, f := range files {
					tracker.add(f.Path, sizes[f.Path], err)
					metrics.RecordFileFailed("persist")
				}
			} else {
				updated += n
				smallDone += len(files)
				for range files {
					metrics.RecordFileSynced("batch")
				}
			}
		}

		metrics.RecordBatch(time.Since(batchStart))
	}

	// Phase 2: large files, strictly one at a time. Holding more than one
	// of these in memory simultaneously is the risk being managed.
	for _, ref := range large {
		file, err := s.fetchOne(ctx, target, ref)
		if err != nil {
			tracker.add(ref.Path, ref.Size, err)
			metrics.RecordFileFailed("fetch")
			continue
		}
		fetched++

		n, err := s.store.UpsertBatch(ctx, target.key(), commit, []store.File{*file})
		if err != nil {
			tracker.add(ref.Path, ref.Size, err)
			metrics.RecordFileFailed("persist")
			continue
		}
		updated += n
		largeDone++
		metrics.RecordFileSynced("large")
	}

	// Finalizing
	failed := tracker.list()
	result := &Result{
		Success:        len(failed) == 0,
		PartialSuccess: len(failed) > 0 && fetched > 0,
		Snapshot:       commit,
		FilesFetched:   fetched,
		FilesUpdated:   updated,
		SmallFiles:     smallDone,
		LargeFiles:     largeDone,
		Failed:         failed,
	}

	if s.notifier != nil {
		s.notifier.Publish(events.Event{
			Action:   events.ActionPull,
			Repo:     target.key(),
			Snapshot: commit,
			Files:    fetched,
			Failed:   len(failed),
		})
	}

	outcome := "success"
	if !result.Success {
		outcome = "partial"
	}
	metrics.RecordPull(outcome, time.Since(start))

	logging.Info("pull finished",
		zap.String("repo", target.key()),
		zap.String("snapshot", commit),
		zap.Int("fetched", fetched),
		zap.Int("updated", updated),
		zap.Int("failed", len(failed)),
		zap.Duration("elapsed", time.Since(start)))

	return result, nil
}

// fetchBatch fetches all refs of one batch concurrently and waits for
// every fetch to settle before returning. Failures go straight to the
// tracker; successes are returned along with a path→size index used if
// the batch later fails to persist.
func (s *Syncer) fetchBatch(ctx context.Context, target Target, refs []githost.FileRef, tracker *failureTracker) ([]store.File, map[string]int64) {
	type outcome struct {
		ref  githost.FileRef
		file *store.File
		err  error
	}

	results := make(chan outcome, len(refs))
	var wg sync.WaitGroup

	for _, ref := range refs {
		wg.Add(1)
		go func(ref githost.FileRef) {
			defer wg.Done()
			file, err := s.fetchOne(ctx, target, ref)
			results <- outcome{ref: ref, file: file, err: err}
		}(ref)
	}

	wg.Wait()
	close(results)

	files := make([]store.File, 0, len(refs))
	sizes := make(map[string]int64, len(refs))
	for res := range results {
		if res.err != nil {
			tracker.add(res.ref.Path, res.ref.Size, res.err)
			metrics.RecordFileFailed("fetch")
			continue
		}
		files = append(files, *res.file)
		sizes[res.ref.Path] = res.ref.Size
	}
	return files, sizes
}

// fetchOne retrieves one blob, choosing the decode path from the file's
// extension.
func (s *Syncer) fetchOne(ctx context.Context, target Target, ref githost.FileRef) (*store.File, error) {
	binary := classify.IsBinaryPath(ref.Path)

	blob, err := s.remote.FetchBlob(ctx, target.Owner, target.Repo, ref.SHA, binary)
	if err != nil {
		return nil, err
	}

	metrics.AddBytesDownloaded(int64(len(blob.Content)))
	return &store.File{
		Path:    ref.Path,
		Content: blob.Content,
		BlobSHA: ref.SHA,
		Binary:  blob.Binary,
	}, nil
}
