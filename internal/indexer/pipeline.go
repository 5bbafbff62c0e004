package indexer

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"raggedbooks/internal/apperr"
	"raggedbooks/internal/book"
	"raggedbooks/internal/contextutil"
	"raggedbooks/internal/extract"
	"raggedbooks/internal/llm"
	"raggedbooks/internal/metrics"
	"raggedbooks/internal/storage"
	"raggedbooks/internal/vectorstore"
)

// chunkNamespace scopes chunk IDs so they never collide with other UUIDv5 users.
var chunkNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("raggedbooks/chunk"))

// ChunkID returns the stable point ID of the chunk at sequenceIndex within a
// book file. Re-importing a file therefore overwrites rather than duplicates.
func ChunkID(bookFilename string, sequenceIndex int) string {
	return uuid.NewSHA1(chunkNamespace, []byte(fmt.Sprintf("%s#%d", bookFilename, sequenceIndex))).String()
}

// Pipeline extracts books, chunks their pages, embeds the chunks and writes
// them to the vector store, one page at a time.
type Pipeline struct {
	extractor      extract.Extractor
	embedder       llm.Embedder
	vectorStore    vectorstore.VectorStore
	collection     string
	dimension      int
	embeddingModel string
	chunker        *Chunker

	books   storage.BookStore
	runs    storage.ImportRunStore
	metrics *metrics.Metrics
}

// Option configures optional Pipeline collaborators.
type Option func(*Pipeline)

// WithBookStore enables the catalog used to skip unchanged files.
func WithBookStore(books storage.BookStore) Option {
	return func(p *Pipeline) { p.books = books }
}

// WithImportRuns records each file and folder import.
func WithImportRuns(runs storage.ImportRunStore) Option {
	return func(p *Pipeline) { p.runs = runs }
}

// WithMetrics enables instrumentation.
func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Pipeline) { p.metrics = m }
}

// NewPipeline creates a new indexing pipeline. dimension is the embedding
// size the collection is created with; embeddingModel is recorded in the
// catalog so a model change forces re-import.
func NewPipeline(
	extractor extract.Extractor,
	embedder llm.Embedder,
	vectorStore vectorstore.VectorStore,
	collection string,
	dimension int,
	embeddingModel string,
	chunker *Chunker,
	opts ...Option,
) *Pipeline {
	if chunker == nil {
		chunker = NewChunker(DefaultBudget, nil)
	}
	p := &Pipeline{
		extractor:      extractor,
		embedder:       embedder,
		vectorStore:    vectorStore,
		collection:     collection,
		dimension:      dimension,
		embeddingModel: embeddingModel,
		chunker:        chunker,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// IndexVersion returns the fingerprint of the current chunking and
// embedding settings.
func (p *Pipeline) IndexVersion() string {
	return IndexVersion(p.embeddingModel, p.chunker.Budget())
}

// ImportBook writes the chunks of every page of b and returns how many were
// written. Existing chunks of the same file are removed first. Pages are
// processed in order and each page is upserted before the next is chunked,
// so on failure the chunks of completed pages stay in the store and the
// returned count reflects them.
func (p *Pipeline) ImportBook(ctx context.Context, b *book.Book) (int, error) {
	written, _, err := p.importBook(ctx, b)
	return written, err
}

func (p *Pipeline) importBook(ctx context.Context, b *book.Book) (int, []int, error) {
	const op = "indexer.import_book"
	if b == nil || b.Filename == "" {
		return 0, nil, fmt.Errorf("%s: book filename is required", op)
	}

	ctx = contextutil.WithAttrs(ctx, "book_filename", b.Filename)
	logger := contextutil.LoggerFromContext(ctx)

	if err := p.vectorStore.EnsureCollection(ctx, p.collection, p.dimension); err != nil {
		return 0, nil, apperr.VectorStore(op, err)
	}
	if err := p.vectorStore.DeleteByFilter(ctx, p.collection, map[string]any{book.PayloadBookFilename: b.Filename}); err != nil {
		return 0, nil, apperr.VectorStore(op, fmt.Errorf("remove previous chunks: %w", err))
	}

	chapters := book.NewChapterPath(b.Chapters)
	sequence := 0
	written := 0
	tokenCounts := make([]int, 0, len(b.Pages))

	for _, page := range b.Pages {
		if err := ctx.Err(); err != nil {
			return written, tokenCounts, err
		}

		texts := p.chunker.Chunk(page.Text)
		if len(texts) == 0 {
			continue
		}

		start := time.Now()
		embeddings, err := p.embedder.EmbedTexts(ctx, texts)
		p.metrics.ProviderCall(metrics.ProviderEmbedding, time.Since(start), err)
		if err != nil {
			logger.ErrorContext(ctx, "failed to embed page", "page", page.Number, "chunks", len(texts), "error", err)
			return written, tokenCounts, apperr.EmbeddingProvider(op, fmt.Errorf("page %d: %w", page.Number, err))
		}
		if len(embeddings) != len(texts) {
			return written, tokenCounts, apperr.EmbeddingProvider(op,
				fmt.Errorf("page %d: embedding count mismatch: expected %d, got %d", page.Number, len(texts), len(embeddings)))
		}

		chapterPath := chapters.ByPageNumber(page.Number)
		points := make([]vectorstore.Point, len(texts))
		for i, text := range texts {
			if len(embeddings[i]) != p.dimension {
				return written, tokenCounts, apperr.EmbeddingProvider(op,
					fmt.Errorf("page %d: embedding size %d, expected %d", page.Number, len(embeddings[i]), p.dimension))
			}
			chunk := book.Chunk{
				ID:            ChunkID(b.Filename, sequence),
				BookTitle:     b.Title,
				BookFilename:  b.Filename,
				ChapterPath:   chapterPath,
				PageNumber:    page.Number,
				SequenceIndex: sequence,
				Text:          text,
				SourcePath:    b.Path,
				Embedding:     embeddings[i],
			}
			points[i] = vectorstore.Point{ID: chunk.ID, Vec: chunk.Embedding, Meta: chunk.Payload()}
			sequence++
		}

		if err := p.vectorStore.Upsert(ctx, p.collection, points); err != nil {
			return written, tokenCounts, apperr.VectorStore(op, fmt.Errorf("page %d: %w", page.Number, err))
		}
		written += len(points)
		for _, text := range texts {
			tokenCounts = append(tokenCounts, p.chunker.counter.CountTokens(text))
		}
		p.metrics.PageIndexed(len(points))
		logger.DebugContext(ctx, "indexed page", "page", page.Number, "chunks", len(points), "chapter", chapterPath)
	}

	return written, tokenCounts, nil
}

// ImportFile extracts and imports the book at path. Unless force is set, a
// file whose content and index settings match the catalog is skipped.
func (p *Pipeline) ImportFile(ctx context.Context, path string, force bool) (*ImportResult, error) {
	const op = "indexer.import_file"
	filename := filepath.Base(path)
	ctx = contextutil.WithAttrs(ctx, "file", filename)
	logger := contextutil.LoggerFromContext(ctx)
	start := time.Now()
	result := &ImportResult{Path: path, Filename: filename}

	hash, err := hashFile(path)
	if err != nil {
		p.metrics.BookProcessed(metrics.OutcomeFailed, 0)
		return result, apperr.Extraction(op, err)
	}
	version := p.IndexVersion()

	if !force && p.books != nil {
		existing, err := p.books.GetByFilename(ctx, filename)
		switch {
		case err == nil && existing.Hash == hash && existing.IndexVersion == version:
			logger.InfoContext(ctx, "skipping unchanged book", "title", existing.Title)
			p.metrics.BookProcessed(metrics.OutcomeSkipped, 0)
			result.Title = existing.Title
			result.Pages = existing.Pages
			result.Chunks = existing.Chunks
			result.Skipped = true
			return result, nil
		case err != nil && !errors.Is(err, storage.ErrNotFound):
			logger.WarnContext(ctx, "failed to read catalog, importing anyway", "error", err)
		}
	}

	b, err := p.extractor.Extract(ctx, path)
	if err != nil {
		p.metrics.BookProcessed(metrics.OutcomeFailed, 0)
		return result, err
	}
	if abs, err := filepath.Abs(path); err == nil {
		b.Path = abs
	}
	result.Title = b.Title
	result.Pages = len(b.Pages)

	logger.InfoContext(ctx, "importing book", "title", b.Title, "pages", len(b.Pages), "chapters", len(b.Chapters))
	written, tokenCounts, err := p.importBook(ctx, b)
	result.Chunks = written
	result.TokenStats = computeTokenStats(tokenCounts)
	result.Duration = time.Since(start)
	if err != nil {
		p.metrics.BookProcessed(metrics.OutcomeFailed, result.Duration)
		return result, err
	}

	if p.books != nil {
		record := &storage.BookRecord{
			Filename:     filename,
			Title:        b.Title,
			Authors:      b.Authors,
			Hash:         hash,
			IndexVersion: version,
			Pages:        len(b.Pages),
			Chunks:       written,
		}
		if err := p.books.Upsert(ctx, record); err != nil {
			logger.WarnContext(ctx, "failed to update catalog", "error", err)
		}
	}

	p.metrics.BookProcessed(metrics.OutcomeImported, result.Duration)
	avg := time.Duration(0)
	if written > 0 {
		avg = result.Duration / time.Duration(written)
	}
	logger.InfoContext(ctx, "imported book",
		"title", b.Title,
		"chunks", written,
		"duration_ms", result.Duration.Milliseconds(),
		"avg_ms_per_chunk", avg.Milliseconds(),
		"token_p95", result.TokenStats.P95,
	)
	return result, nil
}

func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
