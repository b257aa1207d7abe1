package llm

import (
	"context"
	"errors"
	"net"
	"time"

	"go.uber.org/zap"
)

const defaultRetryBaseDelay = 300 * time.Millisecond

// WithRetry reintenta Generate hasta attempts veces con backoff exponencial
// desde baseDelay. Solo se reintentan errores transitorios.
func WithRetry(next LLMClient, attempts int, baseDelay time.Duration, logger *zap.Logger) LLMClient {
	if attempts <= 1 {
		return next
	}
	if baseDelay <= 0 {
		baseDelay = defaultRetryBaseDelay
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &retryingClient{next: next, attempts: attempts, base: baseDelay, logger: logger}
}

type retryingClient struct {
	next     LLMClient
	attempts int
	base     time.Duration
	logger   *zap.Logger
}

func (r *retryingClient) Generate(ctx context.Context, prompt string) (string, error) {
	var last error
	for i := 0; i < r.attempts; i++ {
		out, err := r.next.Generate(ctx, prompt)
		if err == nil {
			return out, nil
		}
		last = err
		if !isRetryable(err) || i == r.attempts-1 {
			break
		}

		delay := r.base * time.Duration(1<<i)
		r.logger.Warn("llm call failed, retrying",
			zap.Error(err),
			zap.Int("attempt", i+1),
			zap.Duration("delay", delay),
		)
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return "", ctx.Err()
		case <-timer.C:
		}
	}
	return "", last
}

func isRetryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Temporary()
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
