package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
	"go.uber.org/zap"
)

const defaultOpenAIModel = "gpt-4o-mini"

// SDKClient usa el SDK oficial de OpenAI. Los reintentos del SDK se apagan:
// los maneja WithRetry para que todos los proveedores se comporten igual.
type SDKClient struct {
	client openai.Client
	model  string
	logger *zap.Logger
}

func NewSDKClient(baseURL, apiKey, model string, timeout time.Duration, logger *zap.Logger) *SDKClient {
	if strings.TrimSpace(model) == "" {
		model = defaultOpenAIModel
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
		option.WithHTTPClient(&http.Client{Timeout: timeout}),
	}
	if baseURL = strings.TrimSpace(baseURL); baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &SDKClient{
		client: openai.NewClient(opts...),
		model:  model,
		logger: logger,
	}
}

func (c *SDKClient) Generate(ctx context.Context, prompt string) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model:    c.model,
		Messages: []openai.ChatCompletionMessageParamUnion{openai.UserMessage(prompt)},
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		},
	}

	started := time.Now()
	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			c.logger.Warn("llm error status",
				zap.Int("status", apiErr.StatusCode),
				zap.String("type", apiErr.Type),
			)
			return "", &StatusError{Code: apiErr.StatusCode, Message: apiErr.Type}
		}
		return "", fmt.Errorf("openai chat: %w", err)
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return "", errors.New("llm empty response")
	}

	c.logger.Debug("llm completion",
		zap.String("model", c.model),
		zap.Duration("elapsed", time.Since(started)),
		zap.Int64("prompt_tokens", resp.Usage.PromptTokens),
		zap.Int64("completion_tokens", resp.Usage.CompletionTokens),
	)
	return resp.Choices[0].Message.Content, nil
}
