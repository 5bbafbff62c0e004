// Package apperr defines the error kinds shared by the indexing and
// retrieval components. Callers classify failures with errors.Is against the
// exported kinds and still reach the underlying cause through the chain.
package apperr

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration marks missing or invalid settings detected at startup.
	ErrConfiguration = errors.New("configuration error")
	// ErrExtraction marks a source document that is missing or unparsable.
	ErrExtraction = errors.New("extraction error")
	// ErrEmbeddingProvider marks a failed call to the embedding provider.
	ErrEmbeddingProvider = errors.New("embedding provider error")
	// ErrVectorStore marks connectivity or collection problems in the vector store.
	ErrVectorStore = errors.New("vector store error")
	// ErrChatCompletion marks a failed call to the chat-completion provider.
	ErrChatCompletion = errors.New("chat completion error")
)

// Error carries an error kind, the operation that failed and its cause.
type Error struct {
	Kind error
	Op   string
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Op != "" && e.Err != nil:
		return fmt.Sprintf("%s: %v: %v", e.Op, e.Kind, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%v: %v", e.Kind, e.Err)
	case e.Op != "":
		return fmt.Sprintf("%s: %v", e.Op, e.Kind)
	default:
		return fmt.Sprint(e.Kind)
	}
}

// Unwrap exposes both the kind and the cause to errors.Is and errors.As.
func (e *Error) Unwrap() []error {
	errs := make([]error, 0, 2)
	if e.Kind != nil {
		errs = append(errs, e.Kind)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// New returns an *Error of the given kind. It returns nil when err is nil.
func New(kind error, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// Configuration builds a configuration error from a formatted message.
func Configuration(format string, args ...any) error {
	return &Error{Kind: ErrConfiguration, Err: fmt.Errorf(format, args...)}
}

// Extraction wraps err as an extraction failure for op.
func Extraction(op string, err error) error { return New(ErrExtraction, op, err) }

// EmbeddingProvider wraps err as an embedding provider failure for op.
func EmbeddingProvider(op string, err error) error { return New(ErrEmbeddingProvider, op, err) }

// VectorStore wraps err as a vector store failure for op.
func VectorStore(op string, err error) error { return New(ErrVectorStore, op, err) }

// ChatCompletion wraps err as a chat-completion failure for op.
func ChatCompletion(op string, err error) error { return New(ErrChatCompletion, op, err) }
