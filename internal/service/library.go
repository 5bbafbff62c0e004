package service

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_importer.go -package=mocks raggedbooks/internal/service Importer
//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_library.go -package=mocks raggedbooks/internal/service Library

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"raggedbooks/internal/apperr"
	"raggedbooks/internal/book"
	"raggedbooks/internal/contextutil"
	"raggedbooks/internal/indexer"
	"raggedbooks/internal/rag"
	"raggedbooks/internal/storage"
	"raggedbooks/internal/vectorstore"
)

// maxFacetBooks bounds the per-book chunk count lookup.
const maxFacetBooks = 10000

// DefaultRunsLimit is the number of import runs Runs returns by default.
const DefaultRunsLimit = 20

// Importer is the indexing side of the library.
// This interface is defined from the service layer's perspective (consumer-first).
type Importer interface {
	ImportFile(ctx context.Context, path string, force bool) (*indexer.ImportResult, error)
	ImportFolder(ctx context.Context, folder string, opts indexer.FolderOptions) (*indexer.FolderReport, error)
}

// BookSummary is one entry of the books listing.
type BookSummary struct {
	Filename   string    `json:"filename"`
	Title      string    `json:"title"`
	Authors    string    `json:"authors,omitempty"`
	Pages      int       `json:"pages"`
	Chunks     int       `json:"chunks"`
	ImportedAt time.Time `json:"imported_at,omitzero"`
	// Cataloged is false for books found in the vector store only.
	Cataloged bool `json:"cataloged"`
}

// Library is the facade used by the CLI and the HTTP API.
type Library interface {
	// ImportFile imports one book file and records the run.
	ImportFile(ctx context.Context, path string, force bool) (*indexer.ImportResult, error)
	// ImportFolder imports every matching book under folder. An empty
	// folder means the configured PDF folder.
	ImportFolder(ctx context.Context, folder string, opts indexer.FolderOptions) (*indexer.FolderReport, error)
	// Search returns the chunks most similar to query.
	Search(ctx context.Context, query string, k int) ([]rag.Result, error)
	// Ask answers a question from the indexed books.
	Ask(ctx context.Context, req rag.AskRequest) (rag.AskResponse, error)
	// Books lists imported books with their chunk counts.
	Books(ctx context.Context) ([]BookSummary, error)
	// RemoveBook deletes the chunks and catalog entry of a book file.
	RemoveBook(ctx context.Context, filename string) error
	// Runs returns the most recent import runs, newest first.
	Runs(ctx context.Context, limit int) ([]storage.ImportRun, error)
	// PDFFolder returns the folder books are linked from.
	PDFFolder() string
}

// library implements Library.
type library struct {
	importer    Importer
	engine      rag.Engine
	books       storage.BookStore
	runs        storage.ImportRunStore
	vectorStore vectorstore.VectorStore
	collection  string
	pdfFolder   string
}

// LibraryDeps holds the collaborators of a Library. Books and Runs are
// optional.
type LibraryDeps struct {
	Importer    Importer
	Engine      rag.Engine
	Books       storage.BookStore
	Runs        storage.ImportRunStore
	VectorStore vectorstore.VectorStore
	Collection  string
	PDFFolder   string
}

// NewLibrary creates a new Library.
func NewLibrary(deps LibraryDeps) Library {
	return &library{
		importer:    deps.Importer,
		engine:      deps.Engine,
		books:       deps.Books,
		runs:        deps.Runs,
		vectorStore: deps.VectorStore,
		collection:  deps.Collection,
		pdfFolder:   deps.PDFFolder,
	}
}

func (l *library) PDFFolder() string {
	return l.pdfFolder
}

func (l *library) ImportFile(ctx context.Context, path string, force bool) (result *indexer.ImportResult, err error) {
	logger := contextutil.LoggerFromContext(ctx)

	if strings.TrimSpace(path) == "" {
		return nil, &ValidationError{Field: "path", Message: "cannot be empty"}
	}
	if _, statErr := os.Stat(path); errors.Is(statErr, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	}

	if l.runs != nil {
		runID, startErr := l.runs.Start(ctx, "file", path)
		if startErr != nil {
			logger.WarnContext(ctx, "failed to record import run", "error", startErr)
		} else {
			defer func() {
				var counts storage.ImportCounts
				switch {
				case err != nil:
					counts.Failed = 1
				case result != nil && result.Skipped:
					counts.Skipped = 1
				default:
					counts.Imported = 1
				}
				if finishErr := l.runs.Finish(context.WithoutCancel(ctx), runID, counts, err); finishErr != nil {
					logger.WarnContext(ctx, "failed to finish import run", "error", finishErr)
				}
			}()
		}
	}

	result, err = l.importer.ImportFile(ctx, path, force)
	if err != nil {
		return result, WrapError(err, "failed to import file")
	}
	return result, nil
}

func (l *library) ImportFolder(ctx context.Context, folder string, opts indexer.FolderOptions) (*indexer.FolderReport, error) {
	if strings.TrimSpace(folder) == "" {
		folder = l.pdfFolder
	}
	if folder == "" {
		return nil, &ValidationError{Field: "folder", Message: "cannot be empty"}
	}
	if opts.Concurrency < 0 {
		return nil, &ValidationError{Field: "concurrency", Message: "must not be negative"}
	}

	report, err := l.importer.ImportFolder(ctx, folder, opts)
	if err != nil {
		return report, WrapError(err, "failed to import folder")
	}
	return report, nil
}

func (l *library) Search(ctx context.Context, query string, k int) ([]rag.Result, error) {
	if strings.TrimSpace(query) == "" {
		return nil, &ValidationError{Field: "query", Message: "cannot be empty"}
	}
	if err := validateK(k); err != nil {
		return nil, err
	}

	results, err := l.engine.Search(ctx, query, k)
	if err != nil {
		contextutil.LoggerFromContext(ctx).ErrorContext(ctx, "search failed", "error", err)
		return nil, WrapError(err, "failed to search")
	}
	return results, nil
}

func (l *library) Ask(ctx context.Context, req rag.AskRequest) (rag.AskResponse, error) {
	if strings.TrimSpace(req.Question) == "" {
		return rag.AskResponse{}, &ValidationError{Field: "question", Message: "cannot be empty"}
	}
	if err := validateK(req.K); err != nil {
		return rag.AskResponse{}, err
	}

	resp, err := l.engine.Ask(ctx, req)
	if err != nil {
		contextutil.LoggerFromContext(ctx).ErrorContext(ctx, "ask failed", "error", err)
		return rag.AskResponse{}, WrapError(err, "failed to answer question")
	}
	return resp, nil
}

// Books merges the catalog with chunk counts from the vector store. Books
// present only in the store are listed with their file name as title.
func (l *library) Books(ctx context.Context) ([]BookSummary, error) {
	logger := contextutil.LoggerFromContext(ctx)

	var records []storage.BookRecord
	if l.books != nil {
		var err error
		records, err = l.books.List(ctx)
		if err != nil {
			return nil, WrapError(err, "failed to list books")
		}
	}

	counts := map[string]int{}
	exists, err := l.vectorStore.CollectionExists(ctx, l.collection)
	if err != nil {
		return nil, WrapError(err, "failed to check collection")
	}
	if exists {
		counts, err = l.vectorStore.CountBy(ctx, l.collection, book.PayloadBookFilename, maxFacetBooks)
		if err != nil {
			return nil, WrapError(err, "failed to count chunks")
		}
	}

	summaries := make([]BookSummary, 0, len(records)+len(counts))
	seen := make(map[string]bool, len(records))
	for _, r := range records {
		seen[r.Filename] = true
		summaries = append(summaries, BookSummary{
			Filename:   r.Filename,
			Title:      r.Title,
			Authors:    r.Authors,
			Pages:      r.Pages,
			Chunks:     counts[r.Filename],
			ImportedAt: r.ImportedAt,
			Cataloged:  true,
		})
	}

	var orphans []BookSummary
	for filename, n := range counts {
		if seen[filename] {
			continue
		}
		orphans = append(orphans, BookSummary{Filename: filename, Title: filename, Chunks: n})
	}
	sort.Slice(orphans, func(i, j int) bool { return orphans[i].Filename < orphans[j].Filename })
	if len(orphans) > 0 {
		logger.DebugContext(ctx, "books in vector store without catalog entry", "count", len(orphans))
	}

	return append(summaries, orphans...), nil
}

func (l *library) RemoveBook(ctx context.Context, filename string) error {
	const op = "service.remove_book"
	filename = strings.TrimSpace(filename)
	if filename == "" {
		return &ValidationError{Field: "filename", Message: "cannot be empty"}
	}
	if filename != filepath.Base(filename) {
		return &ValidationError{Field: "filename", Message: "must be a file name, not a path"}
	}

	exists, err := l.vectorStore.CollectionExists(ctx, l.collection)
	if err != nil {
		return WrapError(apperr.VectorStore(op, err), "failed to check collection")
	}
	if exists {
		filter := map[string]any{book.PayloadBookFilename: filename}
		if err := l.vectorStore.DeleteByFilter(ctx, l.collection, filter); err != nil {
			return WrapError(apperr.VectorStore(op, err), "failed to delete chunks")
		}
	}
	if l.books != nil {
		if err := l.books.Delete(ctx, filename); err != nil {
			return WrapError(err, "failed to delete book")
		}
	}

	contextutil.LoggerFromContext(ctx).InfoContext(ctx, "book removed", "book_filename", filename)
	return nil
}

func (l *library) Runs(ctx context.Context, limit int) ([]storage.ImportRun, error) {
	if limit < 0 {
		return nil, &ValidationError{Field: "limit", Message: "must not be negative"}
	}
	if limit == 0 {
		limit = DefaultRunsLimit
	}
	if l.runs == nil {
		return []storage.ImportRun{}, nil
	}
	runs, err := l.runs.ListRecent(ctx, limit)
	if err != nil {
		return nil, WrapError(err, "failed to list import runs")
	}
	return runs, nil
}

func validateK(k int) error {
	if k < 0 || k > rag.MaxTopK {
		return &ValidationError{Field: "k", Message: fmt.Sprintf("must be between 0 and %d", rag.MaxTopK)}
	}
	return nil
}
