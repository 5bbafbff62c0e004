package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"raggedbooks/internal/service"
	"raggedbooks/internal/storage"
)

// BooksHandler serves the book catalog and import history.
type BooksHandler struct {
	library service.Library
}

// NewBooksHandler creates a new BooksHandler.
func NewBooksHandler(library service.Library) *BooksHandler {
	return &BooksHandler{library: library}
}

// BooksResponse represents the books listing.
type BooksResponse struct {
	Books []service.BookSummary `json:"books"`
}

func (h *BooksHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	books, err := h.library.Books(r.Context())
	if err != nil {
		handleServiceError(r.Context(), w, err, "Failed to list books")
		return
	}
	writeJSON(w, http.StatusOK, BooksResponse{Books: books})
}

// Delete handles DELETE /api/books/{filename}.
func (h *BooksHandler) Delete(w http.ResponseWriter, r *http.Request) {
	filename := chi.URLParam(r, "filename")
	if err := h.library.RemoveBook(r.Context(), filename); err != nil {
		handleServiceError(r.Context(), w, err, "Failed to remove book")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RunsResponse lists recent import runs.
type RunsResponse struct {
	Runs []storage.ImportRun `json:"runs"`
}

// Runs handles GET /api/runs?limit=...
func (h *BooksHandler) Runs(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "limit must be an integer")
			return
		}
		limit = n
	}

	runs, err := h.library.Runs(r.Context(), limit)
	if err != nil {
		handleServiceError(r.Context(), w, err, "Failed to list import runs")
		return
	}
	writeJSON(w, http.StatusOK, RunsResponse{Runs: runs})
}
