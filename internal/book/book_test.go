package book

import "testing"

func TestChunkFromPayload(t *testing.T) {
	tests := []struct {
		name string
		meta map[string]any
		want Chunk
	}{
		{
			name: "qdrant integer values",
			meta: map[string]any{
				PayloadBook:          "Dune",
				PayloadBookFilename:  "dune.pdf",
				PayloadChapter:       "Book One > Chapter 3",
				PayloadPageNumber:    int64(42),
				PayloadSequenceIndex: int64(17),
				PayloadContent:       "The spice must flow.",
				PayloadSourcePath:    "/books/sf/dune.pdf",
			},
			want: Chunk{
				ID:            "id-1",
				BookTitle:     "Dune",
				BookFilename:  "dune.pdf",
				ChapterPath:   "Book One > Chapter 3",
				PageNumber:    42,
				SequenceIndex: 17,
				Text:          "The spice must flow.",
				SourcePath:    "/books/sf/dune.pdf",
			},
		},
		{
			name: "json decoded floats",
			meta: map[string]any{
				PayloadPageNumber:    float64(7),
				PayloadSequenceIndex: float64(3),
			},
			want: Chunk{ID: "id-1", PageNumber: 7, SequenceIndex: 3},
		},
		{
			name: "missing and mistyped fields",
			meta: map[string]any{
				PayloadBook:       42,
				PayloadPageNumber: "seven",
			},
			want: Chunk{ID: "id-1"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ChunkFromPayload("id-1", tt.meta)
			if got.ID != tt.want.ID || got.BookTitle != tt.want.BookTitle ||
				got.BookFilename != tt.want.BookFilename || got.ChapterPath != tt.want.ChapterPath ||
				got.PageNumber != tt.want.PageNumber || got.SequenceIndex != tt.want.SequenceIndex ||
				got.Text != tt.want.Text || got.SourcePath != tt.want.SourcePath {
				t.Errorf("ChunkFromPayload() = %+v, want %+v", got, tt.want)
			}
			if got.Embedding != nil {
				t.Error("ChunkFromPayload() should not carry an embedding")
			}
		})
	}
}

func TestChunk_PayloadSourcePath(t *testing.T) {
	if _, ok := (Chunk{BookFilename: "dune.pdf"}).Payload()[PayloadSourcePath]; ok {
		t.Error("Payload() should omit an unknown source path")
	}
	meta := Chunk{BookFilename: "dune.pdf", SourcePath: "/books/dune.pdf"}.Payload()
	if meta[PayloadSourcePath] != "/books/dune.pdf" {
		t.Errorf("Payload()[%s] = %v", PayloadSourcePath, meta[PayloadSourcePath])
	}
}
