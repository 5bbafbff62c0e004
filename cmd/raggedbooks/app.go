package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"raggedbooks/internal/config"
	"raggedbooks/internal/contextutil"
	"raggedbooks/internal/embedcache"
	"raggedbooks/internal/extract"
	"raggedbooks/internal/indexer"
	"raggedbooks/internal/llm"
	"raggedbooks/internal/metrics"
	"raggedbooks/internal/rag"
	"raggedbooks/internal/service"
	"raggedbooks/internal/storage"
	"raggedbooks/internal/vectorstore"
)

// app holds the wired components shared by every command.
type app struct {
	cfg         *config.Config
	logger      *slog.Logger
	metrics     *metrics.Metrics
	vectorStore vectorstore.VectorStore
	pipeline    *indexer.Pipeline
	library     service.Library

	closers []func() error
}

// newApp loads the configuration and wires storage, providers, the vector
// store and the library. The returned context carries the logger.
func newApp(ctx context.Context, cfgPath string) (context.Context, *app, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return ctx, nil, err
	}

	logger := cfg.NewLogger()
	slog.SetDefault(logger)
	ctx = contextutil.WithLogger(ctx, logger)

	a := &app{cfg: cfg, logger: logger, metrics: metrics.New(metrics.DefaultNamespace)}
	if err := a.wire(ctx); err != nil {
		_ = a.Close()
		return ctx, nil, err
	}
	return ctx, a, nil
}

func (a *app) wire(ctx context.Context) error {
	cfg := a.cfg

	db, err := openDatabase(cfg.DBPath)
	if err != nil {
		return err
	}
	a.closers = append(a.closers, db.Close)
	a.logger.Debug("Database initialized", "path", cfg.DBPath)

	books := storage.NewBookRepo(db)
	runs := storage.NewImportRunRepo(db)

	switch cfg.VectorStore {
	case config.VectorStoreMemory:
		a.vectorStore = vectorstore.NewMemoryStore()
		a.logger.Warn("Using in-memory vector store; indexed chunks are lost on exit")
	default:
		qdrant, err := vectorstore.NewQdrantStore(cfg.QdrantURL, cfg.QdrantAPIKey)
		if err != nil {
			return fmt.Errorf("failed to create Qdrant client: %w", err)
		}
		a.closers = append(a.closers, qdrant.Close)
		a.vectorStore = qdrant
	}

	policy := llm.DefaultRetryPolicy
	policy.MaxRetries = cfg.ProviderMaxRetries
	timeout := llm.WithTimeout(cfg.ProviderTimeout)

	var embedder llm.Embedder = llm.NewRetryingEmbedder(
		llm.NewEmbeddingsClient(cfg.EmbeddingBaseURL, cfg.EmbeddingAPIKey, cfg.EmbeddingModel, cfg.EmbeddingDimensions, timeout),
		policy,
	)
	if cfg.RedisAddr != "" {
		client, err := embedcache.NewClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return err
		}
		a.closers = append(a.closers, client.Close)
		embedder = embedcache.New(embedder, client, cfg.EmbeddingModel, cfg.EmbeddingCacheTTL)
		a.logger.Debug("Embedding cache enabled", "addr", cfg.RedisAddr)
	}

	chat := llm.NewRetryingChatCompleter(
		llm.NewClient(cfg.ChatBaseURL, cfg.ChatAPIKey, cfg.ChatModel, timeout),
		policy,
	)

	counter, err := indexer.NewTokenCounter(cfg.TokenCounter)
	if err != nil {
		return err
	}
	chunker := indexer.NewChunker(indexer.Budget{
		MaxTokensPerLine:      cfg.MaxTokensPerLine,
		MaxTokensPerParagraph: cfg.MaxTokensPerParagraph,
		OverlapTokens:         cfg.OverlapTokens,
	}, counter)

	a.pipeline = indexer.NewPipeline(
		extract.NewPDFExtractor(),
		embedder,
		a.vectorStore,
		cfg.QdrantCollection,
		cfg.EmbeddingDimensions,
		cfg.EmbeddingModel,
		chunker,
		indexer.WithBookStore(books),
		indexer.WithImportRuns(runs),
		indexer.WithMetrics(a.metrics),
	)

	retriever := rag.NewRetriever(embedder, a.vectorStore, cfg.QdrantCollection, cfg.SearchTopK,
		rag.WithRetrieverMetrics(a.metrics))
	synthesizer := rag.NewSynthesizer(chat,
		rag.WithTemperature(float32(cfg.ChatTemperature)),
		rag.WithSynthesizerMetrics(a.metrics))

	a.library = service.NewLibrary(service.LibraryDeps{
		Importer:    a.pipeline,
		Engine:      rag.NewEngine(retriever, synthesizer),
		Books:       books,
		Runs:        runs,
		VectorStore: a.vectorStore,
		Collection:  cfg.QdrantCollection,
		PDFFolder:   cfg.PDFFolder,
	})
	return nil
}

func openDatabase(path string) (*sql.DB, error) {
	db, err := storage.New(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := storage.Migrate(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return db, nil
}

// folderOptions returns the configured folder import settings.
func (a *app) folderOptions() indexer.FolderOptions {
	return indexer.FolderOptions{
		Pattern:     a.cfg.ImportPattern,
		Concurrency: a.cfg.ImportConcurrency,
	}
}

// modelManager returns a client for the Ollama model API.
func (a *app) modelManager() *llm.ModelManager {
	return llm.NewModelManager(a.cfg.OllamaURL)
}

// Close releases everything opened by wire, in reverse order.
func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil
	return errors.Join(errs...)
}

func formatDuration(d time.Duration) string {
	return d.Round(time.Millisecond).String()
}
