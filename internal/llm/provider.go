package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Options describe el proveedor a usar. Provider es "openai" (SDK oficial),
// "compatible" (cualquier API con /chat/completions) o "gemini".
type Options struct {
	Provider       string
	BaseURL        string
	APIKey         string
	Model          string
	Timeout        time.Duration
	MaxAttempts    int
	RetryBaseDelay time.Duration
}

// NewClient construye el cliente del proveedor envuelto con reintentos.
func NewClient(ctx context.Context, opts Options, logger *zap.Logger) (LLMClient, error) {
	var client LLMClient
	switch strings.ToLower(strings.TrimSpace(opts.Provider)) {
	case "", "openai":
		client = NewSDKClient(opts.BaseURL, opts.APIKey, opts.Model, opts.Timeout, logger)
	case "compatible":
		client = NewOpenAIClient(opts.BaseURL, opts.APIKey, opts.Model, opts.Timeout, logger)
	case "gemini":
		gc, err := NewGeminiClient(ctx, opts.APIKey, opts.Model)
		if err != nil {
			return nil, err
		}
		client = gc
	default:
		return nil, fmt.Errorf("unknown llm provider %q", opts.Provider)
	}
	return WithRetry(client, opts.MaxAttempts, opts.RetryBaseDelay, logger), nil
}
