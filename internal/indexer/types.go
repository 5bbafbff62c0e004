package indexer

import (
	"fmt"
	"time"
)

// DefaultPattern selects the files a folder import picks up: PDFs directly
// in the folder. Books are keyed by file name, so a recursive pattern must
// not reach two files with the same name.
const DefaultPattern = "*.pdf"

// ImportResult describes the import of one file.
type ImportResult struct {
	Path       string          `json:"path"`
	Filename   string          `json:"filename"`
	Title      string          `json:"title,omitempty"`
	Pages      int             `json:"pages"`
	Chunks     int             `json:"chunks"`
	Skipped    bool            `json:"skipped"`
	Duration   time.Duration   `json:"duration"`
	TokenStats ChunkTokenStats `json:"token_stats"`
}

// FolderOptions controls ImportFolder.
type FolderOptions struct {
	// Pattern is a doublestar glob relative to the folder. Empty means DefaultPattern.
	Pattern string
	// Delete drops the collection and clears the catalog before importing.
	Delete bool
	// Force re-imports files whose content has not changed.
	Force bool
	// Concurrency bounds the number of books imported at once. Values below 1 mean 1.
	Concurrency int
}

// FileFailure is a file that could not be imported.
type FileFailure struct {
	Path string `json:"path"`
	Err  error  `json:"-"`
}

// Error implements error.
func (f FileFailure) Error() string {
	return fmt.Sprintf("%s: %v", f.Path, f.Err)
}

// Unwrap returns the underlying cause.
func (f FileFailure) Unwrap() error {
	return f.Err
}

// FolderReport summarizes a folder import. Imported and Skipped are in file
// order.
type FolderReport struct {
	Folder   string         `json:"folder"`
	Imported []ImportResult `json:"imported"`
	Skipped  []ImportResult `json:"skipped"`
	Failed   []FileFailure  `json:"failed"`
}

// Chunks returns the total number of chunks written.
func (r *FolderReport) Chunks() int {
	total := 0
	for _, res := range r.Imported {
		total += res.Chunks
	}
	return total
}
