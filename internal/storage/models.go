package storage

import "time"

// BookRecord is the catalog entry for an imported book file.
type BookRecord struct {
	Filename     string // Base name of the source file, unique per library
	Title        string
	Authors      string
	Hash         string // SHA256 hex string of file content
	IndexVersion string // Chunker and embedding settings the book was indexed with
	Pages        int
	Chunks       int
	ImportedAt   time.Time
}

// ImportRun records one file or folder import.
type ImportRun struct {
	ID         int64     `json:"id"`
	Kind       string    `json:"kind"` // "file" or "folder"
	Target     string    `json:"target"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at,omitzero"` // zero while running
	Imported   int       `json:"imported"`
	Skipped    int       `json:"skipped"`
	Failed     int       `json:"failed"`
	Error      string    `json:"error,omitempty"`
}

// ImportCounts is the outcome of an import run.
type ImportCounts struct {
	Imported int
	Skipped  int
	Failed   int
}
