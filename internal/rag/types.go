package rag

import (
	"fmt"
	"path"
	"strings"

	"raggedbooks/internal/book"
)

// Result is one retrieved chunk with its similarity score. The chunk never
// carries an embedding.
type Result struct {
	Score float32    `json:"score"`
	Chunk book.Chunk `json:"chunk"`
}

// Link returns a file URL that opens the chunk's book at its page. The file
// the chunk was imported from wins; otherwise the book is looked up by name
// in pdfFolder.
func (r Result) Link(pdfFolder string) string {
	p := path.Join(strings.ReplaceAll(pdfFolder, "\\", "/"), r.Chunk.BookFilename)
	if r.Chunk.SourcePath != "" {
		p = path.Clean(strings.ReplaceAll(r.Chunk.SourcePath, "\\", "/"))
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return fmt.Sprintf("file://%s#page=%d", strings.ReplaceAll(p, " ", "%20"), r.Chunk.PageNumber)
}

// Answer is the outcome of answer synthesis.
type Answer struct {
	// Text is the model's markdown answer, passed through unmodified.
	Text string `json:"text"`
	// NoResults is set when there was nothing to ground an answer on. The
	// chat model is not called in that case and Text is empty.
	NoResults bool `json:"no_results"`
}

// AskRequest represents a RAG query request.
type AskRequest struct {
	// Question is the user's question to answer.
	Question string `json:"question"`
	// K optionally overrides the number of chunks retrieved.
	K int `json:"k,omitempty"`
}

// AskResponse represents the response from a RAG query.
type AskResponse struct {
	// Answer is the generated markdown answer; empty when NoResults is set.
	Answer    string `json:"answer"`
	NoResults bool   `json:"no_results"`
	// Books lists the distinct book titles used, in ranking order.
	Books []string `json:"books"`
	// Sources are the chunks the answer was grounded on.
	Sources []Result `json:"sources"`
}

// DistinctBooks returns the book titles of results in first-seen order.
func DistinctBooks(results []Result) []string {
	seen := make(map[string]bool, len(results))
	books := make([]string, 0, len(results))
	for _, r := range results {
		if seen[r.Chunk.BookTitle] {
			continue
		}
		seen[r.Chunk.BookTitle] = true
		books = append(books, r.Chunk.BookTitle)
	}
	return books
}
