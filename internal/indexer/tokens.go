package indexer

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// TokenCounter measures text in tokens. Implementations must be
// deterministic; the chunker uses one counter for every budget it enforces.
type TokenCounter interface {
	CountTokens(text string) int
}

// WordCounter counts whitespace-separated words.
type WordCounter struct{}

// CountTokens implements TokenCounter.
func (WordCounter) CountTokens(text string) int {
	return len(strings.Fields(text))
}

// EstimateCounter approximates sub-word tokens as one per RunesPerToken
// runes, rounded up.
type EstimateCounter struct{}

// RunesPerToken is the rune-to-token ratio used by EstimateCounter.
const RunesPerToken = 4

// CountTokens implements TokenCounter.
func (EstimateCounter) CountTokens(text string) int {
	n := utf8.RuneCountInString(strings.TrimSpace(text))
	return (n + RunesPerToken - 1) / RunesPerToken
}

// NewTokenCounter returns the counter registered under name ("words" or "estimate").
func NewTokenCounter(name string) (TokenCounter, error) {
	switch strings.ToLower(name) {
	case "", "words":
		return WordCounter{}, nil
	case "estimate":
		return EstimateCounter{}, nil
	default:
		return nil, fmt.Errorf("unknown token counter %q", name)
	}
}
