package service_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"raggedbooks/internal/apperr"
	"raggedbooks/internal/book"
	"raggedbooks/internal/indexer"
	"raggedbooks/internal/rag"
	rag_mocks "raggedbooks/internal/rag/mocks"
	"raggedbooks/internal/service"
	"raggedbooks/internal/service/mocks"
	"raggedbooks/internal/storage"
	storage_mocks "raggedbooks/internal/storage/mocks"
	vectorstore_mocks "raggedbooks/internal/vectorstore/mocks"

	"go.uber.org/mock/gomock"
)

func init() {
	// Set default logger to discard output for cleaner test output
	slog.SetDefault(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

type fixture struct {
	importer *mocks.MockImporter
	engine   *rag_mocks.MockEngine
	books    *storage_mocks.MockBookStore
	runs     *storage_mocks.MockImportRunStore
	store    *vectorstore_mocks.MockVectorStore
	lib      service.Library
}

func newFixture(t *testing.T) *fixture {
	ctrl := gomock.NewController(t)
	f := &fixture{
		importer: mocks.NewMockImporter(ctrl),
		engine:   rag_mocks.NewMockEngine(ctrl),
		books:    storage_mocks.NewMockBookStore(ctrl),
		runs:     storage_mocks.NewMockImportRunStore(ctrl),
		store:    vectorstore_mocks.NewMockVectorStore(ctrl),
	}
	f.lib = service.NewLibrary(service.LibraryDeps{
		Importer:    f.importer,
		Engine:      f.engine,
		Books:       f.books,
		Runs:        f.runs,
		VectorStore: f.store,
		Collection:  "books",
		PDFFolder:   "/library",
	})
	return f
}

func touch(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "dune.pdf")
	if err := os.WriteFile(path, []byte("%PDF-1.4"), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLibrary_ImportFile_RecordsRun(t *testing.T) {
	errEmbed := errors.New("embedding provider down")

	tests := []struct {
		name       string
		result     *indexer.ImportResult
		importErr  error
		wantCounts storage.ImportCounts
	}{
		{
			name:       "imported",
			result:     &indexer.ImportResult{Filename: "dune.pdf", Chunks: 12},
			wantCounts: storage.ImportCounts{Imported: 1},
		},
		{
			name:       "skipped",
			result:     &indexer.ImportResult{Filename: "dune.pdf", Skipped: true},
			wantCounts: storage.ImportCounts{Skipped: 1},
		},
		{
			name:       "failed",
			result:     &indexer.ImportResult{Filename: "dune.pdf", Chunks: 3},
			importErr:  errEmbed,
			wantCounts: storage.ImportCounts{Failed: 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			path := touch(t)

			gomock.InOrder(
				f.runs.EXPECT().Start(gomock.Any(), "file", path).Return(int64(7), nil),
				f.importer.EXPECT().ImportFile(gomock.Any(), path, true).Return(tt.result, tt.importErr),
				f.runs.EXPECT().Finish(gomock.Any(), int64(7), tt.wantCounts, gomock.Any()).
					DoAndReturn(func(_ context.Context, _ int64, _ storage.ImportCounts, runErr error) error {
						if (runErr != nil) != (tt.importErr != nil) {
							t.Errorf("Finish() runErr = %v, want error %v", runErr, tt.importErr)
						}
						return nil
					}),
			)

			got, err := f.lib.ImportFile(context.Background(), path, true)
			if !errors.Is(err, tt.importErr) {
				t.Errorf("ImportFile() error = %v, want %v", err, tt.importErr)
			}
			if got != tt.result {
				t.Errorf("ImportFile() result = %+v, want %+v", got, tt.result)
			}
		})
	}
}

func TestLibrary_ImportFile_RunStoreFailureDoesNotBlockImport(t *testing.T) {
	f := newFixture(t)
	path := touch(t)

	f.runs.EXPECT().Start(gomock.Any(), "file", path).Return(int64(0), errors.New("database is locked"))
	f.importer.EXPECT().ImportFile(gomock.Any(), path, false).Return(&indexer.ImportResult{Chunks: 1}, nil)

	if _, err := f.lib.ImportFile(context.Background(), path, false); err != nil {
		t.Fatalf("ImportFile() error = %v", err)
	}
}

func TestLibrary_ImportFile_Validation(t *testing.T) {
	f := newFixture(t)

	if _, err := f.lib.ImportFile(context.Background(), " ", false); !errors.Is(err, service.ErrInvalidInput) {
		t.Errorf("ImportFile(blank) error = %v, want ErrInvalidInput", err)
	}
	missing := filepath.Join(t.TempDir(), "missing.pdf")
	if _, err := f.lib.ImportFile(context.Background(), missing, false); !errors.Is(err, service.ErrNotFound) {
		t.Errorf("ImportFile(missing) error = %v, want ErrNotFound", err)
	}
}

func TestLibrary_ImportFolder(t *testing.T) {
	f := newFixture(t)
	opts := indexer.FolderOptions{Pattern: "**/*.pdf", Concurrency: 2}
	report := &indexer.FolderReport{Folder: "/library"}

	f.importer.EXPECT().ImportFolder(gomock.Any(), "/library", opts).Return(report, nil)

	got, err := f.lib.ImportFolder(context.Background(), "", opts)
	if err != nil {
		t.Fatalf("ImportFolder() error = %v", err)
	}
	if got != report {
		t.Errorf("ImportFolder() = %+v, want %+v", got, report)
	}

	if _, err := f.lib.ImportFolder(context.Background(), "/x", indexer.FolderOptions{Concurrency: -1}); !errors.Is(err, service.ErrInvalidInput) {
		t.Errorf("ImportFolder(negative concurrency) error = %v, want ErrInvalidInput", err)
	}
}

func TestLibrary_Search(t *testing.T) {
	tests := []struct {
		name      string
		query     string
		k         int
		mockSetup func(*fixture)
		wantErr   error
		wantLen   int
	}{
		{
			name:  "success",
			query: "spice",
			k:     3,
			mockSetup: func(f *fixture) {
				f.engine.EXPECT().Search(gomock.Any(), "spice", 3).Return([]rag.Result{{Score: 0.9}, {Score: 0.5}}, nil)
			},
			wantLen: 2,
		},
		{
			name:    "empty query",
			query:   "",
			wantErr: service.ErrInvalidInput,
		},
		{
			name:    "k too large",
			query:   "spice",
			k:       rag.MaxTopK + 1,
			wantErr: service.ErrInvalidInput,
		},
		{
			name:  "engine error is wrapped",
			query: "spice",
			mockSetup: func(f *fixture) {
				f.engine.EXPECT().Search(gomock.Any(), "spice", 0).Return(nil, io.ErrUnexpectedEOF)
			},
			wantErr: io.ErrUnexpectedEOF,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			if tt.mockSetup != nil {
				tt.mockSetup(f)
			}
			got, err := f.lib.Search(context.Background(), tt.query, tt.k)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("Search() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Search() error = %v", err)
			}
			if len(got) != tt.wantLen {
				t.Errorf("Search() returned %d results, want %d", len(got), tt.wantLen)
			}
		})
	}
}

func TestLibrary_Ask(t *testing.T) {
	f := newFixture(t)
	req := rag.AskRequest{Question: "Who is Paul?", K: 4}
	want := rag.AskResponse{Answer: "A duke's son.", Books: []string{"Dune"}}
	f.engine.EXPECT().Ask(gomock.Any(), req).Return(want, nil)

	got, err := f.lib.Ask(context.Background(), req)
	if err != nil {
		t.Fatalf("Ask() error = %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Ask() = %+v, want %+v", got, want)
	}

	var validationErr *service.ValidationError
	if _, err := f.lib.Ask(context.Background(), rag.AskRequest{}); !errors.As(err, &validationErr) || validationErr.Field != "question" {
		t.Errorf("Ask(empty) error = %v, want validation error on question", err)
	}
}

func TestLibrary_Books(t *testing.T) {
	importedAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	f := newFixture(t)
	f.books.EXPECT().List(gomock.Any()).Return([]storage.BookRecord{
		{Filename: "dune.pdf", Title: "Dune", Authors: "Frank Herbert", Pages: 600, ImportedAt: importedAt},
		{Filename: "empty.pdf", Title: "Empty", Pages: 2},
	}, nil)
	f.store.EXPECT().CollectionExists(gomock.Any(), "books").Return(true, nil)
	f.store.EXPECT().CountBy(gomock.Any(), "books", book.PayloadBookFilename, gomock.Any()).Return(map[string]int{
		"dune.pdf":   1200,
		"orphan.pdf": 7,
	}, nil)

	got, err := f.lib.Books(context.Background())
	if err != nil {
		t.Fatalf("Books() error = %v", err)
	}
	want := []service.BookSummary{
		{Filename: "dune.pdf", Title: "Dune", Authors: "Frank Herbert", Pages: 600, Chunks: 1200, ImportedAt: importedAt, Cataloged: true},
		{Filename: "empty.pdf", Title: "Empty", Pages: 2, Chunks: 0, Cataloged: true},
		{Filename: "orphan.pdf", Title: "orphan.pdf", Chunks: 7},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Books() =\n%+v\nwant\n%+v", got, want)
	}
}

func TestLibrary_Books_NoCollection(t *testing.T) {
	f := newFixture(t)
	f.books.EXPECT().List(gomock.Any()).Return(nil, nil)
	f.store.EXPECT().CollectionExists(gomock.Any(), "books").Return(false, nil)

	got, err := f.lib.Books(context.Background())
	if err != nil {
		t.Fatalf("Books() error = %v", err)
	}
	if len(got) != 0 {
		t.Errorf("Books() = %+v, want empty", got)
	}
}

func TestLibrary_Books_StoreError(t *testing.T) {
	f := newFixture(t)
	boom := errors.New("qdrant unavailable")
	f.books.EXPECT().List(gomock.Any()).Return(nil, nil)
	f.store.EXPECT().CollectionExists(gomock.Any(), "books").Return(false, boom)

	if _, err := f.lib.Books(context.Background()); !errors.Is(err, boom) {
		t.Errorf("Books() error = %v, want %v", err, boom)
	}
}

func TestLibrary_RemoveBook(t *testing.T) {
	t.Run("deletes chunks and catalog entry", func(t *testing.T) {
		f := newFixture(t)
		gomock.InOrder(
			f.store.EXPECT().CollectionExists(gomock.Any(), "books").Return(true, nil),
			f.store.EXPECT().DeleteByFilter(gomock.Any(), "books", map[string]any{book.PayloadBookFilename: "dune.pdf"}).Return(nil),
			f.books.EXPECT().Delete(gomock.Any(), "dune.pdf").Return(nil),
		)
		if err := f.lib.RemoveBook(context.Background(), "dune.pdf"); err != nil {
			t.Fatalf("RemoveBook() error = %v", err)
		}
	})

	t.Run("missing collection only clears catalog", func(t *testing.T) {
		f := newFixture(t)
		f.store.EXPECT().CollectionExists(gomock.Any(), "books").Return(false, nil)
		f.books.EXPECT().Delete(gomock.Any(), "dune.pdf").Return(nil)
		if err := f.lib.RemoveBook(context.Background(), "dune.pdf"); err != nil {
			t.Fatalf("RemoveBook() error = %v", err)
		}
	})

	t.Run("store failure is a vector store error", func(t *testing.T) {
		f := newFixture(t)
		f.store.EXPECT().CollectionExists(gomock.Any(), "books").Return(true, nil)
		f.store.EXPECT().DeleteByFilter(gomock.Any(), "books", gomock.Any()).Return(errors.New("unavailable"))
		if err := f.lib.RemoveBook(context.Background(), "dune.pdf"); !errors.Is(err, apperr.ErrVectorStore) {
			t.Errorf("RemoveBook() error = %v, want ErrVectorStore", err)
		}
	})

	for _, name := range []string{"", "  ", "../dune.pdf", "sf/dune.pdf"} {
		t.Run("rejects "+name, func(t *testing.T) {
			f := newFixture(t)
			if err := f.lib.RemoveBook(context.Background(), name); !errors.Is(err, service.ErrInvalidInput) {
				t.Errorf("RemoveBook(%q) error = %v, want ErrInvalidInput", name, err)
			}
		})
	}
}

func TestLibrary_Runs(t *testing.T) {
	started := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	runs := []storage.ImportRun{{ID: 2, Kind: "folder", Target: "/library", StartedAt: started, Imported: 3}}

	tests := []struct {
		name      string
		limit     int
		wantLimit int
		wantErr   error
	}{
		{name: "default limit", limit: 0, wantLimit: service.DefaultRunsLimit},
		{name: "explicit limit", limit: 5, wantLimit: 5},
		{name: "negative limit", limit: -1, wantErr: service.ErrInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			if tt.wantErr == nil {
				f.runs.EXPECT().ListRecent(gomock.Any(), tt.wantLimit).Return(runs, nil)
			}
			got, err := f.lib.Runs(context.Background(), tt.limit)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("Runs() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Runs() error = %v", err)
			}
			if !reflect.DeepEqual(got, runs) {
				t.Errorf("Runs() = %+v, want %+v", got, runs)
			}
		})
	}
}
