// Package githost is a client for a Git-hosting HTTP API: branch-head
// resolution, recursive tree listing, and blob content retrieval.
package githost

import "fmt"

// FileRef describes one blob entry of a commit's tree.
type FileRef struct {
	Path string `json:"path"`
	SHA  string `json:"sha"`
	Size int64  `json:"size"`
	Type string `json:"type"`
}

// Blob is the fetched content of one file.
//
// For text files Content holds decoded UTF-8 bytes. For binary files
// (or text files whose payload turned out not to be valid UTF-8) Content
// holds the transport's base64 encoding unchanged and Binary is true.
type Blob struct {
	SHA     string
	Content []byte
	Binary  bool
}

// ResolutionError means the branch or commit could not be found.
type ResolutionError struct {
	Ref string
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("cannot resolve ref %q", e.Ref)
}

// TransportError means a remote call failed at the HTTP level.
type TransportError struct {
	Op     string
	Status int
	Err    error
}

func (e *TransportError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s: server returned %d", e.Op, e.Status)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// ExtractionError means a blob response could not be decoded.
type ExtractionError struct {
	SHA    string
	Reason string
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extract blob %s: %s", e.SHA, e.Reason)
}

type branchResponse struct {
	Name   string `json:"name"`
	Commit struct {
		SHA string `json:"sha"`
	} `json:"commit"`
}

type treeResponse struct {
	SHA       string    `json:"sha"`
	Tree      []FileRef `json:"tree"`
	Truncated bool      `json:"truncated"`
}

type blobResponse struct {
	SHA      string `json:"sha"`
	Size     int64  `json:"size"`
	Encoding string `json:"encoding"`
	Content  string `json:"content"`
}
