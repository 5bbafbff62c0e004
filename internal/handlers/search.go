package handlers

import (
	"net/http"
	"strconv"

	"raggedbooks/internal/contextutil"
	"raggedbooks/internal/rag"
	"raggedbooks/internal/service"
)

// SearchHandler handles direct chunk lookups.
type SearchHandler struct {
	library service.Library
}

// NewSearchHandler creates a new SearchHandler.
func NewSearchHandler(library service.Library) *SearchHandler {
	return &SearchHandler{library: library}
}

// SearchHit is one result of a search.
type SearchHit struct {
	Score    float32 `json:"score"`
	ID       string  `json:"id"`
	Book     string  `json:"book"`
	Filename string  `json:"filename"`
	Chapter  string  `json:"chapter"`
	Page     int     `json:"page"`
	Link     string  `json:"link"`
	Content  string  `json:"content"`
}

// SearchResponse represents the HTTP response payload for searches.
type SearchResponse struct {
	Query   string      `json:"query"`
	Results []SearchHit `json:"results"`
}

// ServeHTTP handles GET /api/search?q=...&k=...
func (h *SearchHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	query := r.URL.Query().Get("q")
	k, ok := parseK(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "k must be an integer")
		return
	}

	results, err := h.library.Search(ctx, query, k)
	if err != nil {
		handleServiceError(ctx, w, err, "Failed to search")
		return
	}

	writeJSON(w, http.StatusOK, SearchResponse{
		Query:   query,
		Results: toHits(results, h.library.PDFFolder()),
	})
	logger.InfoContext(ctx, "search served", "results", len(results))
}

func toHits(results []rag.Result, pdfFolder string) []SearchHit {
	hits := make([]SearchHit, 0, len(results))
	for _, r := range results {
		hits = append(hits, SearchHit{
			Score:    r.Score,
			ID:       r.Chunk.ID,
			Book:     r.Chunk.BookTitle,
			Filename: r.Chunk.BookFilename,
			Chapter:  r.Chunk.ChapterPath,
			Page:     r.Chunk.PageNumber,
			Link:     r.Link(pdfFolder),
			Content:  r.Chunk.Text,
		})
	}
	return hits
}

// parseK reads the optional k query parameter; absent means 0.
func parseK(r *http.Request) (int, bool) {
	raw := r.URL.Query().Get("k")
	if raw == "" {
		return 0, true
	}
	k, err := strconv.Atoi(raw)
	return k, err == nil
}
