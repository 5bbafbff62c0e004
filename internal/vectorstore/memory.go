package vectorstore

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
)

// MemoryStore is an in-process VectorStore using brute-force cosine
// similarity. Contents are lost when the process exits.
type MemoryStore struct {
	mu          sync.RWMutex
	collections map[string]*memoryCollection
}

type memoryCollection struct {
	vectorSize int
	points     map[string]Point
	order      []string
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{collections: make(map[string]*memoryCollection)}
}

// EnsureCollection implements VectorStore.
func (s *MemoryStore) EnsureCollection(_ context.Context, collection string, vectorSize int) error {
	if vectorSize <= 0 {
		return fmt.Errorf("vector size must be greater than 0")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if c, ok := s.collections[collection]; ok {
		if c.vectorSize != vectorSize {
			return fmt.Errorf("collection vector size mismatch: expected %d, got %d", vectorSize, c.vectorSize)
		}
		return nil
	}
	s.collections[collection] = &memoryCollection{vectorSize: vectorSize, points: make(map[string]Point)}
	return nil
}

// CollectionExists implements VectorStore.
func (s *MemoryStore) CollectionExists(_ context.Context, collection string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.collections[collection]
	return ok, nil
}

// DropCollection implements VectorStore.
func (s *MemoryStore) DropCollection(_ context.Context, collection string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.collections, collection)
	return nil
}

// Upsert implements VectorStore.
func (s *MemoryStore) Upsert(_ context.Context, collection string, points []Point) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.collection(collection)
	if err != nil {
		return err
	}
	for _, p := range points {
		if len(p.Vec) != c.vectorSize {
			return fmt.Errorf("point %s has vector size %d, expected %d", p.ID, len(p.Vec), c.vectorSize)
		}
	}
	for _, p := range points {
		if _, exists := c.points[p.ID]; !exists {
			c.order = append(c.order, p.ID)
		}
		c.points[p.ID] = p
	}
	return nil
}

// Search implements VectorStore. Ties keep insertion order.
func (s *MemoryStore) Search(_ context.Context, collection string, query []float32, k int, filters map[string]any) ([]SearchResult, error) {
	if k <= 0 {
		return nil, fmt.Errorf("k must be greater than 0")
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, err := s.collection(collection)
	if err != nil {
		return nil, err
	}
	if len(query) != c.vectorSize {
		return nil, fmt.Errorf("query vector size %d, expected %d", len(query), c.vectorSize)
	}

	results := make([]SearchResult, 0, len(c.order))
	for _, id := range c.order {
		p := c.points[id]
		if !matches(p.Meta, filters) {
			continue
		}
		results = append(results, SearchResult{
			PointID: p.ID,
			Score:   cosine(query, p.Vec),
			Meta:    copyMeta(p.Meta),
		})
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}

// Delete implements VectorStore.
func (s *MemoryStore) Delete(_ context.Context, collection string, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.collection(collection)
	if err != nil {
		return err
	}
	remove := make(map[string]bool, len(ids))
	for _, id := range ids {
		remove[id] = true
	}
	c.removeWhere(func(p Point) bool { return remove[p.ID] })
	return nil
}

// DeleteByFilter implements VectorStore.
func (s *MemoryStore) DeleteByFilter(_ context.Context, collection string, filters map[string]any) error {
	if len(filters) == 0 {
		return fmt.Errorf("refusing to delete with an empty filter")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.collection(collection)
	if err != nil {
		return err
	}
	c.removeWhere(func(p Point) bool { return matches(p.Meta, filters) })
	return nil
}

// CountBy implements VectorStore. Values are kept in order of first
// appearance when limit cuts the result.
func (s *MemoryStore) CountBy(_ context.Context, collection string, key string, limit int) (map[string]int, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be greater than 0")
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, err := s.collection(collection)
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int)
	for _, id := range c.order {
		value, ok := c.points[id].Meta[key].(string)
		if !ok {
			continue
		}
		if _, seen := counts[value]; !seen && len(counts) >= limit {
			continue
		}
		counts[value]++
	}
	return counts, nil
}

// Len returns the number of points in collection.
func (s *MemoryStore) Len(collection string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if c, ok := s.collections[collection]; ok {
		return len(c.points)
	}
	return 0
}

// Points returns the stored points of collection in insertion order.
func (s *MemoryStore) Points(collection string) []Point {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.collections[collection]
	if !ok {
		return nil
	}
	points := make([]Point, 0, len(c.order))
	for _, id := range c.order {
		points = append(points, c.points[id])
	}
	return points
}

func (s *MemoryStore) collection(name string) (*memoryCollection, error) {
	c, ok := s.collections[name]
	if !ok {
		return nil, fmt.Errorf("collection %s not found", name)
	}
	return c, nil
}

func (c *memoryCollection) removeWhere(drop func(Point) bool) {
	kept := c.order[:0]
	for _, id := range c.order {
		if drop(c.points[id]) {
			delete(c.points, id)
			continue
		}
		kept = append(kept, id)
	}
	c.order = kept
}

func matches(meta, filters map[string]any) bool {
	for key, want := range filters {
		if fmt.Sprint(meta[key]) != fmt.Sprint(want) {
			return false
		}
	}
	return true
}

func cosine(a, b []float32) float32 {
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}

func copyMeta(meta map[string]any) map[string]any {
	out := make(map[string]any, len(meta))
	for k, v := range meta {
		out[k] = v
	}
	return out
}
