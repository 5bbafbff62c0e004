package llm

import (
	"context"
	"errors"
	"math/rand/v2"
	"net"
	"net/http"
	"time"

	"raggedbooks/internal/contextutil"
)

// RetryPolicy bounds how provider calls are retried.
type RetryPolicy struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
}

// DefaultRetryPolicy retries nothing; callers opt in via MaxRetries.
var DefaultRetryPolicy = RetryPolicy{
	MaxRetries: 0,
	BaseDelay:  time.Second,
	MaxDelay:   30 * time.Second,
}

// Backoff returns the delay before retry attempt n (0-based): exponential
// from BaseDelay, capped at MaxDelay, with up to 25% jitter.
func (p RetryPolicy) Backoff(attempt int) time.Duration {
	base := p.BaseDelay
	if base <= 0 {
		base = time.Second
	}
	delay := base << attempt
	if p.MaxDelay > 0 && (delay > p.MaxDelay || delay <= 0) {
		delay = p.MaxDelay
	}
	if delay <= 0 {
		delay = base
	}
	jitter := time.Duration(rand.Int64N(int64(delay)/4 + 1))
	return delay + jitter
}

// IsRetryable reports whether err looks transient: throttling, server
// errors and network failures. Cancellation is never retried.
func IsRetryable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode == http.StatusTooManyRequests || statusErr.StatusCode >= 500
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

func retry[T any](ctx context.Context, p RetryPolicy, op string, fn func() (T, error)) (T, error) {
	var (
		result T
		err    error
	)
	for attempt := 0; ; attempt++ {
		result, err = fn()
		if err == nil || attempt >= p.MaxRetries || !IsRetryable(err) {
			return result, err
		}

		delay := p.Backoff(attempt)
		contextutil.LoggerFromContext(ctx).WarnContext(ctx, "provider call failed, retrying",
			"op", op, "attempt", attempt+1, "delay", delay, "error", err)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return result, err
		case <-timer.C:
		}
	}
}

// RetryingEmbedder retries transient embedding failures.
type RetryingEmbedder struct {
	next   Embedder
	policy RetryPolicy
}

// NewRetryingEmbedder wraps next with policy.
func NewRetryingEmbedder(next Embedder, policy RetryPolicy) *RetryingEmbedder {
	return &RetryingEmbedder{next: next, policy: policy}
}

// EmbedTexts implements Embedder.
func (r *RetryingEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	return retry(ctx, r.policy, "embed", func() ([][]float32, error) {
		return r.next.EmbedTexts(ctx, texts)
	})
}

// RetryingChatCompleter retries transient chat failures.
type RetryingChatCompleter struct {
	next   ChatCompleter
	policy RetryPolicy
}

// NewRetryingChatCompleter wraps next with policy.
func NewRetryingChatCompleter(next ChatCompleter, policy RetryPolicy) *RetryingChatCompleter {
	return &RetryingChatCompleter{next: next, policy: policy}
}

// ChatWithMessages implements ChatCompleter.
func (r *RetryingChatCompleter) ChatWithMessages(ctx context.Context, messages []Message, params ChatParams) (string, error) {
	return retry(ctx, r.policy, "chat", func() (string, error) {
		return r.next.ChatWithMessages(ctx, messages, params)
	})
}
