package store

import (
	"context"
	"path/filepath"
	"testing"
)

func testSQLite(t *testing.T) *SQLite {
	t.Helper()
	s, err := NewSQLite(filepath.Join(t.TempDir(), "snap.db"))
	if err != nil {
		t.Fatalf("NewSQLite: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	if err := s.Init(context.Background()); err != nil {
		t.Fatalf("Init: %v", err)
	}
	return s
}

func TestSQLite_UpsertBatchAndGet(t *testing.T) {
	s := testSQLite(t)
	ctx := context.Background()

	files := []File{
		{Path: "main.go", Content: []byte("package main\n"), BlobSHA: "sha1", Binary: false},
		{Path: "logo.png", Content: []byte("aWNvbg=="), BlobSHA: "sha2", Binary: true},
	}

	updated, err := s.UpsertBatch(ctx, "acme/widgets", "c1", files)
	if err != nil {
		t.Fatalf("UpsertBatch: %v", err)
	}
	if updated != 2 {
		t.Errorf("expected 2 updated rows, got %d", updated)
	}

	rec, err := s.Get(ctx, "acme/widgets", "main.go")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if rec == nil {
		t.Fatal("expected a record")
	}
	if string(rec.Content) != "package main\n" {
		t.Errorf("unexpected content %q", rec.Content)
	}
	if rec.CommitSHA != "c1" || rec.BlobSHA != "sha1" {
		t.Errorf("unexpected SHAs: %+v", rec)
	}
	if rec.Binary {
		t.Error("main.go must not be binary")
	}

	bin, err := s.Get(ctx, "acme/widgets", "logo.png")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if bin == nil || !bin.Binary {
		t.Error("logo.png must be binary")
	}
}

func TestSQLite_UpsertUnchangedNotCounted(t *testing.T) {
	s := testSQLite(t)
	ctx := context.Background()

	files := []File{
		{Path: "a.txt", Content: []byte("one"), BlobSHA: "s1"},
		{Path: "b.txt", Content: []byte("two"), BlobSHA: "s2"},
	}

	if _, err := s.UpsertBatch(ctx, "acme/widgets", "c1", files); err != nil {
		t.Fatalf("first upsert: %v", err)
	}

	// Identical second pull of the same commit: nothing changes.
	updated, err := s.UpsertBatch(ctx, "acme/widgets", "c1", files)
	if err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	if updated != 0 {
		t.Errorf("expected 0 updated on identical re-upsert, got %d", updated)
	}

	// One file changes content.
	files[0].Content = []byte("one changed")
	files[0].BlobSHA = "s1b"
	updated, err = s.UpsertBatch(ctx, "acme/widgets", "c2", files)
	if err != nil {
		t.Fatalf("third upsert: %v", err)
	}
	// The commit SHA moved for both rows, so both count as changed.
	if updated != 2 {
		t.Errorf("expected 2 updated after commit change, got %d", updated)
	}

	rec, err := s.Get(ctx, "acme/widgets", "a.txt")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(rec.Content) != "one changed" {
		t.Errorf("unexpected content %q", rec.Content)
	}
}

func TestSQLite_ListPathsAndCount(t *testing.T) {
	s := testSQLite(t)
	ctx := context.Background()

	files := []File{
		{Path: "b/b.txt", Content: []byte("b"), BlobSHA: "s1"},
		{Path: "a/a.txt", Content: []byte("a"), BlobSHA: "s2"},
		{Path: "c.txt", Content: []byte("c"), BlobSHA: "s3"},
	}
	if _, err := s.UpsertBatch(ctx, "acme/widgets", "c1", files); err != nil {
		t.Fatalf("UpsertBatch: %v", err)
	}
	// A second repository must not leak into the listing.
	if _, err := s.UpsertBatch(ctx, "acme/other", "c1", files[:1]); err != nil {
		t.Fatalf("UpsertBatch: %v", err)
	}

	paths, err := s.ListPaths(ctx, "acme/widgets")
	if err != nil {
		t.Fatalf("ListPaths: %v", err)
	}
	want := []string{"a/a.txt", "b/b.txt", "c.txt"}
	if len(paths) != len(want) {
		t.Fatalf("expected %v, got %v", want, paths)
	}
	for i := range want {
		if paths[i] != want[i] {
			t.Errorf("path %d: expected %s, got %s", i, want[i], paths[i])
		}
	}

	n, err := s.Count(ctx, "acme/widgets")
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if n != 3 {
		t.Errorf("expected 3 files, got %d", n)
	}
}

func TestSQLite_GetMissingReturnsNil(t *testing.T) {
	s := testSQLite(t)

	rec, err := s.Get(context.Background(), "acme/widgets", "nope.txt")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if rec != nil {
		t.Errorf("expected nil for missing path, got %+v", rec)
	}
}

func TestDigest_Deterministic(t *testing.T) {
	a := Digest([]byte("hello"))
	b := Digest([]byte("hello"))
	c := Digest([]byte("hello!"))

	if a != b {
		t.Error("same content must produce the same digest")
	}
	if a == c {
		t.Error("different content must produce different digests")
	}
	if len(a) != 32 {
		t.Errorf("expected 128-bit hex digest, got %d chars", len(a))
	}
}
