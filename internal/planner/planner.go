// Package planner partitions small files into byte- and count-bounded
// batches for concurrent fetching.
package planner

import (
	"sort"

	"github.com/snapsync/snapsync/pkg/githost"
)

// Batch is a group of files fetched concurrently and persisted together.
type Batch struct {
	Refs  []githost.FileRef
	Bytes int64
}

// Plan packs refs into batches such that every batch holds at most
// maxFiles entries and at most maxBytes total content.
//
// Greedy single-pass packing over the refs sorted ascending by size:
// many small files fill a batch before a larger one forces a new batch.
// Not optimal bin-packing, but packing quality only affects the batch
// count, never correctness. Every ref must individually fit within
// maxBytes; the size partition upstream guarantees that.
func Plan(refs []githost.FileRef, maxBytes int64, maxFiles int) []Batch {
	if len(refs) == 0 {
		return nil
	}

	sorted := make([]githost.FileRef, len(refs))
	copy(sorted, refs)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Size < sorted[j].Size
	})

	var batches []Batch
	current := Batch{}

	for _, ref := range sorted {
		if len(current.Refs) > 0 &&
			(current.Bytes+ref.Size > maxBytes || len(current.Refs) >= maxFiles) {
			batches = append(batches, current)
			current = Batch{}
		}
		current.Refs = append(current.Refs, ref)
		current.Bytes += ref.Size
	}

	if len(current.Refs) > 0 {
		batches = append(batches, current)
	}
	return batches
}
