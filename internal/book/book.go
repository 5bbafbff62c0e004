// Package book holds the document model shared by extraction, indexing and
// retrieval: pages, outline chapters and the chunk records stored in the
// vector store.
package book

// Page is one page of extracted text. Number is 1-based.
type Page struct {
	Number int
	Text   string
}

// Chapter is one outline entry. Level 0 is the top of the outline.
type Chapter struct {
	Title string
	Level int
	Page  int
}

// Book is an extracted document ready for indexing.
type Book struct {
	Title    string
	Authors  string
	Filename string
	// Path is the absolute location of the source file, if known.
	Path     string
	Pages    []Page
	Chapters []Chapter
}

// Payload keys used for chunk metadata in the vector store.
const (
	PayloadBook          = "book"
	PayloadBookFilename  = "book_filename"
	PayloadChapter       = "chapter"
	PayloadPageNumber    = "page_number"
	PayloadSequenceIndex = "sequence_index"
	PayloadContent       = "content"
	PayloadSourcePath    = "source_path"
)

// Chunk is the unit of retrieval: a span of page text with its provenance.
type Chunk struct {
	ID            string    `json:"id"`
	BookTitle     string    `json:"book"`
	BookFilename  string    `json:"book_filename"`
	ChapterPath   string    `json:"chapter"`
	PageNumber    int       `json:"page_number"`
	SequenceIndex int       `json:"sequence_index"`
	Text          string    `json:"content"`
	SourcePath    string    `json:"source_path,omitempty"`
	Embedding     []float32 `json:"-"`
}

// Payload returns the chunk metadata as stored next to its vector.
func (c Chunk) Payload() map[string]any {
	meta := map[string]any{
		PayloadBook:          c.BookTitle,
		PayloadBookFilename:  c.BookFilename,
		PayloadChapter:       c.ChapterPath,
		PayloadPageNumber:    c.PageNumber,
		PayloadSequenceIndex: c.SequenceIndex,
		PayloadContent:       c.Text,
	}
	if c.SourcePath != "" {
		meta[PayloadSourcePath] = c.SourcePath
	}
	return meta
}

// ChunkFromPayload rebuilds chunk metadata from a vector store payload.
// The embedding is never part of the payload and stays nil.
func ChunkFromPayload(id string, meta map[string]any) Chunk {
	return Chunk{
		ID:            id,
		BookTitle:     stringValue(meta[PayloadBook]),
		BookFilename:  stringValue(meta[PayloadBookFilename]),
		ChapterPath:   stringValue(meta[PayloadChapter]),
		PageNumber:    intValue(meta[PayloadPageNumber]),
		SequenceIndex: intValue(meta[PayloadSequenceIndex]),
		Text:          stringValue(meta[PayloadContent]),
		SourcePath:    stringValue(meta[PayloadSourcePath]),
	}
}

func stringValue(v any) string {
	s, _ := v.(string)
	return s
}

func intValue(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case int32:
		return int(n)
	case int64:
		return int(n)
	case float64:
		return int(n)
	case float32:
		return int(n)
	default:
		return 0
	}
}
