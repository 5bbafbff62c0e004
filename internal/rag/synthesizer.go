package rag

import (
	"context"
	"fmt"
	"strings"
	"time"

	"raggedbooks/internal/apperr"
	"raggedbooks/internal/contextutil"
	"raggedbooks/internal/llm"
	"raggedbooks/internal/metrics"
)

// SystemPrompt constrains the model to the supplied book excerpts.
const SystemPrompt = `You can use only the information provided in this chat to answer questions. If you don't know the answer, reply suggesting to refine the question.
For example, if the user asks "What is the capital of France?" and there is no information about France in this chat, reply with something like "This information isn't available in the given context".
You will be given chunks of text from different books to use as context.
You must answer in the same language as the user's question.
You will respond in markdown.`

// Synthesizer turns retrieved chunks and a question into a grounded answer.
// Every call is a single stateless chat turn.
type Synthesizer struct {
	chat        llm.ChatCompleter
	temperature float32
	metrics     *metrics.Metrics
}

// SynthesizerOption configures a Synthesizer.
type SynthesizerOption func(*Synthesizer)

// WithTemperature sets the sampling temperature sent to the chat model.
func WithTemperature(t float32) SynthesizerOption {
	return func(s *Synthesizer) { s.temperature = t }
}

// WithSynthesizerMetrics enables answer instrumentation.
func WithSynthesizerMetrics(m *metrics.Metrics) SynthesizerOption {
	return func(s *Synthesizer) { s.metrics = m }
}

// NewSynthesizer creates a synthesizer backed by chat.
func NewSynthesizer(chat llm.ChatCompleter, opts ...SynthesizerOption) *Synthesizer {
	s := &Synthesizer{chat: chat}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Answer asks the chat model to answer question from results. With no
// results it returns Answer{NoResults: true} without calling the model.
func (s *Synthesizer) Answer(ctx context.Context, question string, results []Result) (Answer, error) {
	const op = "rag.answer"
	logger := contextutil.LoggerFromContext(ctx)

	if len(results) == 0 {
		logger.InfoContext(ctx, "no search results, skipping chat completion")
		s.metrics.AnswerProduced(metrics.OutcomeNoResults)
		return Answer{NoResults: true}, nil
	}

	messages := []llm.Message{
		{Role: llm.RoleSystem, Content: SystemPrompt},
		{Role: llm.RoleUser, Content: BuildPrompt(question, results)},
	}
	logger.DebugContext(ctx, "sending request to chat model",
		"chunks", len(results),
		"user_message_length", len(messages[1].Content),
	)

	start := time.Now()
	text, err := s.chat.ChatWithMessages(ctx, messages, llm.ChatParams{Temperature: s.temperature})
	s.metrics.ProviderCall(metrics.ProviderChat, time.Since(start), err)
	if err != nil {
		logger.ErrorContext(ctx, "failed to get chat completion", "error", err)
		return Answer{}, apperr.ChatCompletion(op, err)
	}

	s.metrics.AnswerProduced(metrics.OutcomeAnswered)
	logger.InfoContext(ctx, "received chat completion", "answer_length", len(text))
	return Answer{Text: text}, nil
}

// BuildPrompt assembles the user turn: an introduction, every chunk
// annotated with its source, and the question last.
func BuildPrompt(question string, results []Result) string {
	var b strings.Builder
	b.WriteString("Using the following information:\n=====\n")
	for _, r := range results {
		b.WriteString("---\n")
		b.WriteString(sourceLabel(r))
		b.WriteString("\n")
		b.WriteString(r.Chunk.Text)
		b.WriteString("\n")
	}
	b.WriteString("\n=====\nAnswer the following question:\n---\n")
	b.WriteString(question)
	b.WriteString("\n")
	return b.String()
}

func sourceLabel(r Result) string {
	parts := make([]string, 0, 3)
	if r.Chunk.BookTitle != "" {
		parts = append(parts, r.Chunk.BookTitle)
	}
	if r.Chunk.ChapterPath != "" {
		parts = append(parts, r.Chunk.ChapterPath)
	}
	parts = append(parts, fmt.Sprintf("Page %d", r.Chunk.PageNumber))
	return "[" + strings.Join(parts, " | ") + "]"
}
