package storage

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() {
		_ = db.Close()
	})
	if err := Migrate(db); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	return db
}

func TestBookRepo_GetByFilename(t *testing.T) {
	repo := NewBookRepo(newTestDB(t))
	ctx := context.Background()

	importedAt := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	err := repo.Upsert(ctx, &BookRecord{
		Filename:     "dune.pdf",
		Title:        "Dune",
		Authors:      "Frank Herbert",
		Hash:         "abc123",
		IndexVersion: "v1",
		Pages:        412,
		Chunks:       1200,
		ImportedAt:   importedAt,
	})
	if err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	tests := []struct {
		name     string
		filename string
		wantErr  error
	}{
		{name: "existing book", filename: "dune.pdf"},
		{name: "missing book", filename: "emma.pdf", wantErr: ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := repo.GetByFilename(ctx, tt.filename)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("GetByFilename() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("GetByFilename() unexpected error: %v", err)
			}
			if got.Title != "Dune" || got.Authors != "Frank Herbert" || got.Pages != 412 || got.Chunks != 1200 {
				t.Errorf("GetByFilename() = %+v", got)
			}
			if !got.ImportedAt.Equal(importedAt) {
				t.Errorf("ImportedAt = %v, want %v", got.ImportedAt, importedAt)
			}
		})
	}
}

func TestBookRepo_Upsert(t *testing.T) {
	repo := NewBookRepo(newTestDB(t))
	ctx := context.Background()

	first := &BookRecord{Filename: "dune.pdf", Title: "Dune", Hash: "h1", IndexVersion: "v1"}
	if err := repo.Upsert(ctx, first); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	if first.ImportedAt.IsZero() {
		t.Error("Upsert() should set ImportedAt")
	}

	second := &BookRecord{Filename: "dune.pdf", Title: "Dune (2nd ed.)", Hash: "h2", IndexVersion: "v2", Chunks: 7}
	if err := repo.Upsert(ctx, second); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	got, err := repo.GetByFilename(ctx, "dune.pdf")
	if err != nil {
		t.Fatalf("GetByFilename() error = %v", err)
	}
	if got.Title != "Dune (2nd ed.)" || got.Hash != "h2" || got.IndexVersion != "v2" || got.Chunks != 7 {
		t.Errorf("after second Upsert() = %+v", got)
	}

	if err := repo.Upsert(ctx, &BookRecord{Title: "nameless"}); err == nil {
		t.Error("Upsert() without filename should fail")
	}
}

func TestBookRepo_ListAndDelete(t *testing.T) {
	repo := NewBookRepo(newTestDB(t))
	ctx := context.Background()

	for _, b := range []BookRecord{
		{Filename: "emma.pdf", Title: "Emma", Hash: "e"},
		{Filename: "dune.pdf", Title: "Dune", Hash: "d"},
		{Filename: "anna.pdf", Title: "Anna Karenina", Hash: "a"},
	} {
		if err := repo.Upsert(ctx, &b); err != nil {
			t.Fatalf("Upsert() error = %v", err)
		}
	}

	books, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	want := []string{"Anna Karenina", "Dune", "Emma"}
	if len(books) != len(want) {
		t.Fatalf("List() returned %d books, want %d", len(books), len(want))
	}
	for i, b := range books {
		if b.Title != want[i] {
			t.Errorf("List()[%d] = %s, want %s", i, b.Title, want[i])
		}
	}

	if err := repo.Delete(ctx, "dune.pdf"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := repo.GetByFilename(ctx, "dune.pdf"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetByFilename() after Delete error = %v, want ErrNotFound", err)
	}
	if err := repo.Delete(ctx, "dune.pdf"); err != nil {
		t.Errorf("Delete() of missing book error = %v", err)
	}

	if err := repo.DeleteAll(ctx); err != nil {
		t.Fatalf("DeleteAll() error = %v", err)
	}
	books, err = repo.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(books) != 0 {
		t.Errorf("List() after DeleteAll = %d books, want 0", len(books))
	}
}
