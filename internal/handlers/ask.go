package handlers

import (
	"encoding/json"
	"net/http"

	"raggedbooks/internal/contextutil"
	"raggedbooks/internal/rag"
	"raggedbooks/internal/service"
)

// AskHandler handles HTTP requests for RAG queries.
type AskHandler struct {
	library service.Library
}

// NewAskHandler creates a new AskHandler.
func NewAskHandler(library service.Library) *AskHandler {
	return &AskHandler{library: library}
}

// AskRequest represents the HTTP request payload for RAG queries.
type AskRequest struct {
	Question string `json:"question"`
	K        int    `json:"k,omitempty"`
}

// AskResponse represents the HTTP response payload for RAG queries.
type AskResponse struct {
	// The generated markdown answer; empty when NoResults is set
	Answer string `json:"answer"`

	// AnswerHTML is the rendered answer, present with ?format=html
	AnswerHTML string `json:"answer_html,omitempty"`

	// NoResults is set when no indexed chunk matched the question
	NoResults bool `json:"no_results"`

	// Distinct book titles the answer drew on
	Books []string `json:"books"`

	// Chunks the answer was grounded on
	Sources []SearchHit `json:"sources"`
}

// ServeHTTP handles POST /api/ask.
func (h *AskHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	var req AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.WarnContext(ctx, "invalid request body", "error", err)
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	ragResp, err := h.library.Ask(ctx, rag.AskRequest{Question: req.Question, K: req.K})
	if err != nil {
		handleServiceError(ctx, w, err, "Failed to process RAG query")
		return
	}

	resp := AskResponse{
		Answer:    ragResp.Answer,
		NoResults: ragResp.NoResults,
		Books:     ragResp.Books,
		Sources:   toHits(ragResp.Sources, h.library.PDFFolder()),
	}
	if resp.Books == nil {
		resp.Books = []string{}
	}

	if r.URL.Query().Get("format") == "html" && ragResp.Answer != "" {
		html, err := rag.RenderHTML(ragResp.Answer)
		if err != nil {
			logger.ErrorContext(ctx, "failed to render answer", "error", err)
			writeError(w, http.StatusInternalServerError, "Failed to render answer")
			return
		}
		resp.AnswerHTML = html
	}

	writeJSON(w, http.StatusOK, resp)
}
