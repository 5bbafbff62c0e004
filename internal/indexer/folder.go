package indexer

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	"golang.org/x/sync/errgroup"

	"raggedbooks/internal/apperr"
	"raggedbooks/internal/contextutil"
	"raggedbooks/internal/storage"
)

// FindBooks returns the files under folder matching pattern, sorted by path.
func FindBooks(folder, pattern string) ([]string, error) {
	if pattern == "" {
		pattern = DefaultPattern
	}
	if !doublestar.ValidatePattern(pattern) {
		return nil, fmt.Errorf("invalid pattern %q", pattern)
	}

	fsys := os.DirFS(folder)
	matches, err := doublestar.Glob(fsys, pattern)
	if err != nil {
		return nil, fmt.Errorf("failed to match %q in %s: %w", pattern, folder, err)
	}

	files := make([]string, 0, len(matches))
	for _, match := range matches {
		info, err := fs.Stat(fsys, match)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		files = append(files, filepath.Join(folder, filepath.FromSlash(match)))
	}
	sort.Strings(files)
	return files, nil
}

// ImportFolder imports every matching file under folder with bounded
// parallelism. A failing file is recorded in the report and does not stop
// the others; only cancellation, a failed Delete or an unusable collection
// aborts the run. Books are keyed by file name, so a file whose name was
// already matched elsewhere in the tree fails instead of replacing it.
func (p *Pipeline) ImportFolder(ctx context.Context, folder string, opts FolderOptions) (report *FolderReport, err error) {
	const op = "indexer.import_folder"
	ctx = contextutil.WithAttrs(ctx, "folder", folder)
	logger := contextutil.LoggerFromContext(ctx)
	report = &FolderReport{Folder: folder}

	info, err := os.Stat(folder)
	if err != nil {
		return report, apperr.Extraction(op, err)
	}
	if !info.IsDir() {
		return report, apperr.Extraction(op, fmt.Errorf("%s is not a directory", folder))
	}

	files, err := FindBooks(folder, opts.Pattern)
	if err != nil {
		return report, apperr.Extraction(op, err)
	}

	if p.runs != nil {
		if runID, startErr := p.runs.Start(ctx, "folder", folder); startErr != nil {
			logger.WarnContext(ctx, "failed to record import run", "error", startErr)
		} else {
			defer func() {
				counts := storage.ImportCounts{Imported: len(report.Imported), Skipped: len(report.Skipped), Failed: len(report.Failed)}
				if finishErr := p.runs.Finish(context.WithoutCancel(ctx), runID, counts, err); finishErr != nil {
					logger.WarnContext(ctx, "failed to finish import run", "error", finishErr)
				}
			}()
		}
	}

	if opts.Delete {
		logger.WarnContext(ctx, "deleting existing embeddings", "collection", p.collection)
		if err := p.vectorStore.DropCollection(ctx, p.collection); err != nil {
			return report, apperr.VectorStore(op, err)
		}
		if p.books != nil {
			if err := p.books.DeleteAll(ctx); err != nil {
				return report, fmt.Errorf("%s: clear catalog: %w", op, err)
			}
		}
	}

	logger.InfoContext(ctx, "starting folder import", "files", len(files), "concurrency", max(opts.Concurrency, 1))

	results := make([]*ImportResult, len(files))
	failures := make([]error, len(files))
	var mu sync.Mutex

	firstSeen := make(map[string]string, len(files))
	for i, path := range files {
		name := filepath.Base(path)
		if prev, ok := firstSeen[name]; ok {
			failures[i] = apperr.Extraction(op, fmt.Errorf("duplicate file name %s, already matched at %s", name, prev))
			logger.WarnContext(ctx, "skipping duplicate file name", "file", path, "first", prev)
			continue
		}
		firstSeen[name] = path
	}

	// Workers must not race to create the collection.
	if len(files) > 0 {
		if err := p.vectorStore.EnsureCollection(ctx, p.collection, p.dimension); err != nil {
			return report, apperr.VectorStore(op, err)
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(opts.Concurrency, 1))
	for i, path := range files {
		if failures[i] != nil {
			continue
		}
		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}
			res, importErr := p.ImportFile(gctx, path, opts.Force)
			mu.Lock()
			defer mu.Unlock()
			results[i] = res
			failures[i] = importErr
			if importErr != nil {
				logger.ErrorContext(ctx, "failed to import file", "file", filepath.Base(path), "error", importErr)
			}
			return nil
		})
	}
	waitErr := g.Wait()

	for i, path := range files {
		switch {
		case failures[i] != nil:
			report.Failed = append(report.Failed, FileFailure{Path: path, Err: failures[i]})
		case results[i] == nil:
			// never started
		case results[i].Skipped:
			report.Skipped = append(report.Skipped, *results[i])
		default:
			report.Imported = append(report.Imported, *results[i])
		}
	}

	logger.InfoContext(ctx, "folder import completed",
		"imported", len(report.Imported),
		"skipped", len(report.Skipped),
		"failed", len(report.Failed),
		"chunks", report.Chunks(),
	)

	if ctxErr := ctx.Err(); ctxErr != nil {
		return report, ctxErr
	}
	if waitErr != nil && !errors.Is(waitErr, context.Canceled) {
		return report, waitErr
	}
	return report, nil
}
