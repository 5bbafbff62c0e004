package vectorstore

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_vector_store.go -package=mocks raggedbooks/internal/vectorstore VectorStore

import "context"

// Point represents a vector point with metadata.
type Point struct {
	ID   string
	Vec  []float32
	Meta map[string]any
}

// SearchResult represents a search result from vector search. Vectors are
// never returned.
type SearchResult struct {
	PointID string
	Score   float32
	Meta    map[string]any
}

// VectorStore defines the interface for vector storage operations.
// Filters are exact matches on payload fields; string and integer values
// are supported.
type VectorStore interface {
	// EnsureCollection creates the collection with vectorSize dimensions if
	// missing, and fails if an existing collection has a different size.
	EnsureCollection(ctx context.Context, collection string, vectorSize int) error

	// CollectionExists checks if a collection exists.
	CollectionExists(ctx context.Context, collection string) (bool, error)

	// DropCollection deletes the collection and all of its points.
	DropCollection(ctx context.Context, collection string) error

	// Upsert inserts or updates points in the collection.
	Upsert(ctx context.Context, collection string, points []Point) error

	// Search returns at most k points ordered by descending similarity.
	Search(ctx context.Context, collection string, query []float32, k int, filters map[string]any) ([]SearchResult, error)

	// Delete removes points by their IDs.
	Delete(ctx context.Context, collection string, ids []string) error

	// DeleteByFilter removes every point matching filters.
	DeleteByFilter(ctx context.Context, collection string, filters map[string]any) error

	// CountBy counts points per distinct value of a keyword payload field,
	// returning at most limit values.
	CountBy(ctx context.Context, collection string, key string, limit int) (map[string]int, error)
}
