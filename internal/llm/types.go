package llm

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_llm.go -package=mocks raggedbooks/internal/llm Embedder,ChatCompleter

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// Embedder turns texts into fixed-length vectors, one per input text.
type Embedder interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// ChatCompleter runs one stateless chat completion.
type ChatCompleter interface {
	ChatWithMessages(ctx context.Context, messages []Message, params ChatParams) (string, error)
}

// Message represents a single message in a chat conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Chat roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatParams holds parameters for chat completion requests.
type ChatParams struct {
	// Model overrides the client's default model when set.
	Model string

	// MaxTokens limits the generated tokens; 0 means no limit.
	MaxTokens int

	Temperature float32
}

// StatusError is returned when a provider answers with a non-200 status.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("bad status %d: %s", e.StatusCode, e.Body)
}

// DefaultTimeout bounds a single provider round-trip.
const DefaultTimeout = 120 * time.Second

// ClientOption configures the HTTP side of a provider client.
type ClientOption func(*http.Client)

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *http.Client) {
		c.Timeout = d
	}
}

// WithTransport replaces the HTTP transport.
func WithTransport(rt http.RoundTripper) ClientOption {
	return func(c *http.Client) {
		c.Transport = rt
	}
}

func newHTTPClient(opts ...ClientOption) *http.Client {
	c := &http.Client{Timeout: DefaultTimeout}
	for _, opt := range opts {
		opt(c)
	}
	return c
}
