// Package rag retrieves book chunks for a question and grounds a chat
// model's answer on them.
package rag

import (
	"context"
	"fmt"
	"sort"
	"time"

	"raggedbooks/internal/apperr"
	"raggedbooks/internal/book"
	"raggedbooks/internal/contextutil"
	"raggedbooks/internal/llm"
	"raggedbooks/internal/metrics"
	"raggedbooks/internal/vectorstore"
)

// DefaultTopK is used when neither the caller nor the retriever sets K.
const DefaultTopK = 5

// MaxTopK caps the number of chunks a single search may return.
const MaxTopK = 50

// Retriever embeds queries and looks up the nearest chunks.
type Retriever struct {
	embedder    llm.Embedder
	vectorStore vectorstore.VectorStore
	collection  string
	defaultK    int
	metrics     *metrics.Metrics
}

// RetrieverOption configures a Retriever.
type RetrieverOption func(*Retriever)

// WithRetrieverMetrics enables search instrumentation.
func WithRetrieverMetrics(m *metrics.Metrics) RetrieverOption {
	return func(r *Retriever) { r.metrics = m }
}

// NewRetriever creates a retriever over collection. The embedder must use
// the same model the collection was indexed with.
func NewRetriever(embedder llm.Embedder, vectorStore vectorstore.VectorStore, collection string, defaultK int, opts ...RetrieverOption) *Retriever {
	if defaultK <= 0 {
		defaultK = DefaultTopK
	}
	r := &Retriever{
		embedder:    embedder,
		vectorStore: vectorStore,
		collection:  collection,
		defaultK:    defaultK,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Search returns at most k chunks most similar to query, best first. A
// missing collection or an empty store yields no results and no error.
func (r *Retriever) Search(ctx context.Context, query string, k int) ([]Result, error) {
	const op = "rag.search"
	logger := contextutil.LoggerFromContext(ctx)

	if k <= 0 {
		k = r.defaultK
	}
	if k > MaxTopK {
		k = MaxTopK
	}

	start := time.Now()
	embeddings, err := r.embedder.EmbedTexts(ctx, []string{query})
	r.metrics.ProviderCall(metrics.ProviderEmbedding, time.Since(start), err)
	if err != nil {
		logger.ErrorContext(ctx, "failed to embed query", "error", err)
		return nil, apperr.EmbeddingProvider(op, err)
	}
	if len(embeddings) != 1 {
		return nil, apperr.EmbeddingProvider(op, fmt.Errorf("expected 1 embedding, got %d", len(embeddings)))
	}

	exists, err := r.vectorStore.CollectionExists(ctx, r.collection)
	if err != nil {
		return nil, apperr.VectorStore(op, err)
	}
	if !exists {
		logger.WarnContext(ctx, "collection does not exist", "collection", r.collection)
		r.metrics.SearchPerformed(0)
		return []Result{}, nil
	}

	hits, err := r.vectorStore.Search(ctx, r.collection, embeddings[0], k, nil)
	if err != nil {
		logger.ErrorContext(ctx, "failed to search vector store", "collection", r.collection, "error", err)
		return nil, apperr.VectorStore(op, err)
	}

	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Score > hits[j].Score
	})
	if len(hits) > k {
		hits = hits[:k]
	}

	results := make([]Result, 0, len(hits))
	for _, hit := range hits {
		results = append(results, Result{
			Score: hit.Score,
			Chunk: book.ChunkFromPayload(hit.PointID, hit.Meta),
		})
	}

	r.metrics.SearchPerformed(len(results))
	if len(results) > 0 {
		logger.InfoContext(ctx, "vector search completed", "results", len(results), "k", k, "top_score", results[0].Score)
	} else {
		logger.InfoContext(ctx, "vector search completed", "results", 0, "k", k)
	}
	return results, nil
}
