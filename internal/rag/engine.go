package rag

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_engine.go -package=mocks raggedbooks/internal/rag Engine

import (
	"context"
	"errors"
	"strings"

	"raggedbooks/internal/contextutil"
)

// Engine provides RAG (Retrieval-Augmented Generation) functionality.
type Engine interface {
	// Search returns the chunks most similar to query.
	Search(ctx context.Context, query string, k int) ([]Result, error)

	// Ask answers a question by retrieving relevant chunks and generating an answer.
	Ask(ctx context.Context, req AskRequest) (AskResponse, error)
}

// ragEngine implements the Engine interface.
type ragEngine struct {
	retriever   *Retriever
	synthesizer *Synthesizer
}

// NewEngine creates a new RAG engine.
func NewEngine(retriever *Retriever, synthesizer *Synthesizer) Engine {
	return &ragEngine{
		retriever:   retriever,
		synthesizer: synthesizer,
	}
}

func (e *ragEngine) Search(ctx context.Context, query string, k int) ([]Result, error) {
	if strings.TrimSpace(query) == "" {
		return nil, errors.New("query is required")
	}
	return e.retriever.Search(ctx, query, k)
}

// Ask answers a question using RAG.
func (e *ragEngine) Ask(ctx context.Context, req AskRequest) (AskResponse, error) {
	if strings.TrimSpace(req.Question) == "" {
		return AskResponse{}, errors.New("question is required")
	}
	logger := contextutil.LoggerFromContext(ctx)
	logger.InfoContext(ctx, "RAG query started", "question_length", len(req.Question), "k", req.K)

	results, err := e.retriever.Search(ctx, req.Question, req.K)
	if err != nil {
		return AskResponse{}, err
	}

	answer, err := e.synthesizer.Answer(ctx, req.Question, results)
	if err != nil {
		return AskResponse{}, err
	}

	logger.InfoContext(ctx, "RAG query completed",
		"chunks_used", len(results),
		"no_results", answer.NoResults,
		"answer_length", len(answer.Text),
	)
	return AskResponse{
		Answer:    answer.Text,
		NoResults: answer.NoResults,
		Books:     DistinctBooks(results),
		Sources:   results,
	}, nil
}
