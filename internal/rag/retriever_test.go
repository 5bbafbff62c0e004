package rag

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"raggedbooks/internal/apperr"
	"raggedbooks/internal/book"
	llm_mocks "raggedbooks/internal/llm/mocks"
	"raggedbooks/internal/vectorstore"
	vectorstore_mocks "raggedbooks/internal/vectorstore/mocks"

	"go.uber.org/mock/gomock"
)

const testCollection = "books"

// seededStore holds three chunks whose cosine similarity to (1, 0) is
// 1, 0.6 and 0.
func seededStore(t *testing.T) *vectorstore.MemoryStore {
	t.Helper()
	ctx := context.Background()
	store := vectorstore.NewMemoryStore()
	if err := store.EnsureCollection(ctx, testCollection, 2); err != nil {
		t.Fatalf("EnsureCollection() error = %v", err)
	}

	chunks := []struct {
		chunk book.Chunk
		vec   []float32
	}{
		{
			chunk: book.Chunk{ID: "c", BookTitle: "Dune", BookFilename: "dune.pdf", ChapterPath: "Appendix", PageNumber: 9, SequenceIndex: 2, Text: "unrelated"},
			vec:   []float32{0, 1},
		},
		{
			chunk: book.Chunk{ID: "a", BookTitle: "Dune", BookFilename: "dune.pdf", ChapterPath: "Book One > Arrakis", PageNumber: 3, SequenceIndex: 0, Text: "spice"},
			vec:   []float32{1, 0},
		},
		{
			chunk: book.Chunk{ID: "b", BookTitle: "Hobbit", BookFilename: "hobbit.pdf", ChapterPath: "Riddles", PageNumber: 70, SequenceIndex: 1, Text: "riddles"},
			vec:   []float32{0.6, 0.8},
		},
	}
	points := make([]vectorstore.Point, 0, len(chunks))
	for _, c := range chunks {
		points = append(points, vectorstore.Point{ID: c.chunk.ID, Vec: c.vec, Meta: c.chunk.Payload()})
	}
	if err := store.Upsert(ctx, testCollection, points); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	return store
}

func TestRetriever_Search(t *testing.T) {
	tests := []struct {
		name    string
		k       int
		wantIDs []string
	}{
		{name: "top two", k: 2, wantIDs: []string{"a", "b"}},
		{name: "default k returns everything", k: 0, wantIDs: []string{"a", "b", "c"}},
		{name: "k larger than store", k: 10, wantIDs: []string{"a", "b", "c"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			embedder := llm_mocks.NewMockEmbedder(ctrl)
			embedder.EXPECT().
				EmbedTexts(gomock.Any(), []string{"what is spice?"}).
				Return([][]float32{{1, 0}}, nil)

			r := NewRetriever(embedder, seededStore(t), testCollection, 5)
			got, err := r.Search(context.Background(), "what is spice?", tt.k)
			if err != nil {
				t.Fatalf("Search() error = %v", err)
			}
			if len(got) != len(tt.wantIDs) {
				t.Fatalf("Search() returned %d results, want %d", len(got), len(tt.wantIDs))
			}
			for i, id := range tt.wantIDs {
				if got[i].Chunk.ID != id {
					t.Errorf("result[%d].ID = %q, want %q", i, got[i].Chunk.ID, id)
				}
				if i > 0 && got[i].Score > got[i-1].Score {
					t.Errorf("scores not non-increasing at %d: %v > %v", i, got[i].Score, got[i-1].Score)
				}
				if got[i].Chunk.Embedding != nil {
					t.Errorf("result[%d] carries an embedding", i)
				}
			}

			first := got[0].Chunk
			want := book.Chunk{ID: "a", BookTitle: "Dune", BookFilename: "dune.pdf", ChapterPath: "Book One > Arrakis", PageNumber: 3, SequenceIndex: 0, Text: "spice"}
			if !reflect.DeepEqual(first, want) {
				t.Errorf("result[0].Chunk = %+v, want %+v", first, want)
			}
		})
	}
}

func TestRetriever_Search_MissingCollection(t *testing.T) {
	ctrl := gomock.NewController(t)
	embedder := llm_mocks.NewMockEmbedder(ctrl)
	embedder.EXPECT().EmbedTexts(gomock.Any(), gomock.Any()).Return([][]float32{{1, 0}}, nil)

	r := NewRetriever(embedder, vectorstore.NewMemoryStore(), testCollection, 5)
	got, err := r.Search(context.Background(), "anything", 3)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("Search() = %v, want empty non-nil slice", got)
	}
}

func TestRetriever_Search_Errors(t *testing.T) {
	errBoom := errors.New("boom")

	tests := []struct {
		name     string
		setup    func(*llm_mocks.MockEmbedder, *vectorstore_mocks.MockVectorStore)
		wantKind error
	}{
		{
			name: "embedding fails",
			setup: func(e *llm_mocks.MockEmbedder, _ *vectorstore_mocks.MockVectorStore) {
				e.EXPECT().EmbedTexts(gomock.Any(), gomock.Any()).Return(nil, errBoom)
			},
			wantKind: apperr.ErrEmbeddingProvider,
		},
		{
			name: "embedding count mismatch",
			setup: func(e *llm_mocks.MockEmbedder, _ *vectorstore_mocks.MockVectorStore) {
				e.EXPECT().EmbedTexts(gomock.Any(), gomock.Any()).Return([][]float32{}, nil)
			},
			wantKind: apperr.ErrEmbeddingProvider,
		},
		{
			name: "collection check fails",
			setup: func(e *llm_mocks.MockEmbedder, vs *vectorstore_mocks.MockVectorStore) {
				e.EXPECT().EmbedTexts(gomock.Any(), gomock.Any()).Return([][]float32{{1, 0}}, nil)
				vs.EXPECT().CollectionExists(gomock.Any(), testCollection).Return(false, errBoom)
			},
			wantKind: apperr.ErrVectorStore,
		},
		{
			name: "search fails",
			setup: func(e *llm_mocks.MockEmbedder, vs *vectorstore_mocks.MockVectorStore) {
				e.EXPECT().EmbedTexts(gomock.Any(), gomock.Any()).Return([][]float32{{1, 0}}, nil)
				vs.EXPECT().CollectionExists(gomock.Any(), testCollection).Return(true, nil)
				vs.EXPECT().Search(gomock.Any(), testCollection, []float32{1, 0}, 3, nil).Return(nil, errBoom)
			},
			wantKind: apperr.ErrVectorStore,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			embedder := llm_mocks.NewMockEmbedder(ctrl)
			store := vectorstore_mocks.NewMockVectorStore(ctrl)
			tt.setup(embedder, store)

			r := NewRetriever(embedder, store, testCollection, 3)
			_, err := r.Search(context.Background(), "q", 0)
			if !errors.Is(err, tt.wantKind) {
				t.Errorf("Search() error = %v, want kind %v", err, tt.wantKind)
			}
		})
	}
}

func TestRetriever_Search_SortsAndTruncatesStoreResults(t *testing.T) {
	ctrl := gomock.NewController(t)
	embedder := llm_mocks.NewMockEmbedder(ctrl)
	store := vectorstore_mocks.NewMockVectorStore(ctrl)

	embedder.EXPECT().EmbedTexts(gomock.Any(), gomock.Any()).Return([][]float32{{1, 0}}, nil)
	store.EXPECT().CollectionExists(gomock.Any(), testCollection).Return(true, nil)
	store.EXPECT().Search(gomock.Any(), testCollection, gomock.Any(), 2, nil).Return([]vectorstore.SearchResult{
		{PointID: "low", Score: 0.1},
		{PointID: "high", Score: 0.9},
		{PointID: "mid", Score: 0.5},
	}, nil)

	got, err := NewRetriever(embedder, store, testCollection, 5).Search(context.Background(), "q", 2)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(got) != 2 || got[0].Chunk.ID != "high" || got[1].Chunk.ID != "mid" {
		t.Errorf("Search() = %+v, want [high mid]", got)
	}
}

func TestRetriever_Search_CapsK(t *testing.T) {
	ctrl := gomock.NewController(t)
	embedder := llm_mocks.NewMockEmbedder(ctrl)
	store := vectorstore_mocks.NewMockVectorStore(ctrl)

	embedder.EXPECT().EmbedTexts(gomock.Any(), gomock.Any()).Return([][]float32{{1, 0}}, nil)
	store.EXPECT().CollectionExists(gomock.Any(), testCollection).Return(true, nil)
	store.EXPECT().Search(gomock.Any(), testCollection, gomock.Any(), MaxTopK, nil).Return(nil, nil)

	if _, err := NewRetriever(embedder, store, testCollection, 5).Search(context.Background(), "q", 1000); err != nil {
		t.Fatalf("Search() error = %v", err)
	}
}
