package storage

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestImportRunRepo_Lifecycle(t *testing.T) {
	repo := NewImportRunRepo(newTestDB(t))
	ctx := context.Background()

	clock := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	repo.now = func() time.Time {
		clock = clock.Add(time.Minute)
		return clock
	}

	firstID, err := repo.Start(ctx, "file", "/books/dune.pdf")
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := repo.Finish(ctx, firstID, ImportCounts{Imported: 1}, nil); err != nil {
		t.Fatalf("Finish() error = %v", err)
	}

	secondID, err := repo.Start(ctx, "folder", "/books")
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := repo.Finish(ctx, secondID, ImportCounts{Imported: 2, Skipped: 3, Failed: 1}, errors.New("1 file failed")); err != nil {
		t.Fatalf("Finish() error = %v", err)
	}

	thirdID, err := repo.Start(ctx, "folder", "/more")
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	runs, err := repo.ListRecent(ctx, 10)
	if err != nil {
		t.Fatalf("ListRecent() error = %v", err)
	}
	if len(runs) != 3 {
		t.Fatalf("ListRecent() returned %d runs, want 3", len(runs))
	}

	if runs[0].ID != thirdID || !runs[0].FinishedAt.IsZero() {
		t.Errorf("runs[0] = %+v, want unfinished run %d", runs[0], thirdID)
	}
	second := runs[1]
	if second.ID != secondID || second.Kind != "folder" || second.Imported != 2 || second.Skipped != 3 || second.Failed != 1 {
		t.Errorf("runs[1] = %+v", second)
	}
	if second.Error != "1 file failed" {
		t.Errorf("runs[1].Error = %q", second.Error)
	}
	if !second.FinishedAt.After(second.StartedAt) {
		t.Errorf("FinishedAt %v should be after StartedAt %v", second.FinishedAt, second.StartedAt)
	}
	if runs[2].ID != firstID || runs[2].Error != "" {
		t.Errorf("runs[2] = %+v", runs[2])
	}

	limited, err := repo.ListRecent(ctx, 1)
	if err != nil {
		t.Fatalf("ListRecent() error = %v", err)
	}
	if len(limited) != 1 || limited[0].ID != thirdID {
		t.Errorf("ListRecent(1) = %+v", limited)
	}
}

func TestImportRunRepo_FinishUnknown(t *testing.T) {
	repo := NewImportRunRepo(newTestDB(t))
	if err := repo.Finish(context.Background(), 42, ImportCounts{}, nil); !errors.Is(err, ErrNotFound) {
		t.Errorf("Finish() error = %v, want ErrNotFound", err)
	}
}
