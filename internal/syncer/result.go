package syncer

// FailedFile records one file that did not make it into the destination
// store during a pull.
type FailedFile struct {
	Path   string `json:"path"`
	Size   int64  `json:"size"`
	Reason string `json:"reason"`
}

// Result is the outcome of one pull.
//
// Success is true only when no file failed; that is the only state
// guaranteeing a complete, consistent snapshot in the destination store.
// PartialSuccess means at least one file synced but others failed.
type Result struct {
	Success        bool         `json:"success"`
	PartialSuccess bool         `json:"partial_success"`
	Snapshot       string       `json:"snapshot"`
	FilesFetched   int          `json:"files_fetched"`
	FilesUpdated   int          `json:"files_updated"`
	SmallFiles     int          `json:"small_files"`
	LargeFiles     int          `json:"large_files"`
	Failed         []FailedFile `json:"failed,omitempty"`
}

// failureTracker accumulates per-file failures across the whole run.
// Failures never roll back files already written.
type failureTracker struct {
	failed []FailedFile
}

func (t *failureTracker) add(path string, size int64, err error) {
	t.failed = append(t.failed, FailedFile{Path: path, Size: size, Reason: err.Error()})
}

func (t *failureTracker) list() []FailedFile {
	return t.failed
}
