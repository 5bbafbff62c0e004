package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"raggedbooks/internal/apperr"
	"raggedbooks/internal/contextutil"
	"raggedbooks/internal/service"
)

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// handleServiceError maps service errors to HTTP status codes.
func handleServiceError(ctx context.Context, w http.ResponseWriter, err error, defaultMsg string) {
	logger := contextutil.LoggerFromContext(ctx)

	var validationErr *service.ValidationError
	switch {
	case errors.As(err, &validationErr):
		logger.WarnContext(ctx, "invalid request", "error", err)
		writeError(w, http.StatusBadRequest, validationErr.Error())
	case errors.Is(err, service.ErrInvalidInput):
		logger.WarnContext(ctx, "invalid request", "error", err)
		writeError(w, http.StatusBadRequest, "Invalid input")
	case errors.Is(err, service.ErrNotFound):
		writeError(w, http.StatusNotFound, "Resource not found")
	case errors.Is(err, apperr.ErrVectorStore):
		logger.ErrorContext(ctx, "vector store error", "error", err)
		writeError(w, http.StatusServiceUnavailable, "Vector store unavailable")
	case errors.Is(err, apperr.ErrEmbeddingProvider), errors.Is(err, apperr.ErrChatCompletion):
		logger.ErrorContext(ctx, "provider error", "error", err)
		writeError(w, http.StatusBadGateway, "External service error")
	case errors.Is(err, apperr.ErrExtraction):
		logger.WarnContext(ctx, "extraction error", "error", err)
		writeError(w, http.StatusUnprocessableEntity, "Document could not be read")
	default:
		logger.ErrorContext(ctx, "service error", "error", err)
		writeError(w, http.StatusInternalServerError, defaultMsg)
	}
}

// writeError writes an error response.
func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, ErrorResponse{Error: message})
}

func writeJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(v)
}
