package storage

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_book_store.go -package=mocks raggedbooks/internal/storage BookStore,ImportRunStore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNotFound is returned when a record is not found.
	ErrNotFound = errors.New("record not found")
)

// BookStore defines the catalog operations used by the importer.
type BookStore interface {
	// GetByFilename returns ErrNotFound if the book was never imported.
	GetByFilename(ctx context.Context, filename string) (*BookRecord, error)
	// Upsert inserts a book or replaces the entry with the same filename.
	Upsert(ctx context.Context, book *BookRecord) error
	// List returns every book ordered by title.
	List(ctx context.Context) ([]BookRecord, error)
	// Delete removes one book entry.
	Delete(ctx context.Context, filename string) error
	// DeleteAll empties the catalog.
	DeleteAll(ctx context.Context) error
}

// BookRepo implements BookStore on SQLite.
type BookRepo struct {
	db *sql.DB
}

// NewBookRepo creates a new BookRepo.
func NewBookRepo(db *sql.DB) *BookRepo {
	return &BookRepo{db: db}
}

const bookColumns = "filename, title, authors, hash, index_version, pages, chunks, imported_at"

// GetByFilename gets a book by its file name.
func (r *BookRepo) GetByFilename(ctx context.Context, filename string) (*BookRecord, error) {
	var book BookRecord
	err := r.db.QueryRowContext(ctx,
		"SELECT "+bookColumns+" FROM books WHERE filename = ?",
		filename,
	).Scan(&book.Filename, &book.Title, &book.Authors, &book.Hash, &book.IndexVersion, &book.Pages, &book.Chunks, &book.ImportedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query book: %w", err)
	}
	return &book, nil
}

// Upsert inserts a new book or updates an existing one. A zero ImportedAt
// is set to the current time.
func (r *BookRepo) Upsert(ctx context.Context, book *BookRecord) error {
	if book.Filename == "" {
		return fmt.Errorf("book filename is required")
	}
	if book.ImportedAt.IsZero() {
		book.ImportedAt = time.Now().UTC()
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO books (`+bookColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (filename) DO UPDATE SET
		 title = excluded.title, authors = excluded.authors, hash = excluded.hash,
		 index_version = excluded.index_version, pages = excluded.pages,
		 chunks = excluded.chunks, imported_at = excluded.imported_at`,
		book.Filename, book.Title, book.Authors, book.Hash, book.IndexVersion, book.Pages, book.Chunks, book.ImportedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert book: %w", err)
	}
	return nil
}

// List returns all books ordered by title, then filename.
func (r *BookRepo) List(ctx context.Context) ([]BookRecord, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT "+bookColumns+" FROM books ORDER BY title, filename")
	if err != nil {
		return nil, fmt.Errorf("failed to query books: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var books []BookRecord
	for rows.Next() {
		var book BookRecord
		if err := rows.Scan(&book.Filename, &book.Title, &book.Authors, &book.Hash, &book.IndexVersion, &book.Pages, &book.Chunks, &book.ImportedAt); err != nil {
			return nil, fmt.Errorf("failed to scan book: %w", err)
		}
		books = append(books, book)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating books: %w", err)
	}
	return books, nil
}

// Delete removes a book entry. Deleting a missing book is not an error.
func (r *BookRepo) Delete(ctx context.Context, filename string) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM books WHERE filename = ?", filename); err != nil {
		return fmt.Errorf("failed to delete book: %w", err)
	}
	return nil
}

// DeleteAll removes every book entry.
func (r *BookRepo) DeleteAll(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM books"); err != nil {
		return fmt.Errorf("failed to delete books: %w", err)
	}
	return nil
}
