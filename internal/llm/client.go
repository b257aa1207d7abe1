package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// LLMClient genera una respuesta (JSON en texto) para un prompt.
type LLMClient interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

const (
	defaultOpenAIBaseURL = "https://api.openai.com/v1"
	maxLoggedBody        = 512
)

// StatusError es una respuesta HTTP no exitosa del proveedor.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("llm http error: status=%d", e.Code)
	}
	return fmt.Sprintf("llm http error: status=%d: %s", e.Code, e.Message)
}

// Temporary es true para rate limit y errores del lado del proveedor.
func (e *StatusError) Temporary() bool {
	return e.Code == http.StatusTooManyRequests || e.Code >= http.StatusInternalServerError
}

// OpenAIClient habla con cualquier API compatible con chat completions.
// El modelo se fuerza a devolver un objeto JSON.
type OpenAIClient struct {
	endpoint    string
	apiKey      string
	model       string
	temperature float64
	client      *http.Client
	logger      *zap.Logger
}

func NewOpenAIClient(baseURL, apiKey, model string, timeout time.Duration, logger *zap.Logger) *OpenAIClient {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = defaultOpenAIBaseURL
	}
	if strings.TrimSpace(model) == "" {
		model = defaultOpenAIModel
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OpenAIClient{
		endpoint:    baseURL + "/chat/completions",
		apiKey:      apiKey,
		model:       model,
		temperature: 0.7,
		client:      &http.Client{Timeout: timeout},
		logger:      logger,
	}
}

func (c *OpenAIClient) Generate(ctx context.Context, prompt string) (string, error) {
	payload, err := json.Marshal(completionRequest{
		Model:          c.model,
		Temperature:    c.temperature,
		Messages:       []completionMessage{{Role: "user", Content: prompt}},
		ResponseFormat: &completionFormat{Type: "json_object"},
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	started := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	var out completionResponse
	decodeErr := json.Unmarshal(body, &out)

	if resp.StatusCode >= http.StatusBadRequest {
		c.logger.Warn("llm error status",
			zap.Int("status", resp.StatusCode),
			zap.String("body", truncate(string(body), maxLoggedBody)),
		)
		statusErr := &StatusError{Code: resp.StatusCode}
		if decodeErr == nil && out.Error != nil {
			statusErr.Message = out.Error.Message
		}
		return "", statusErr
	}
	if decodeErr != nil {
		return "", fmt.Errorf("unmarshal response: %w", decodeErr)
	}
	if out.Error != nil {
		return "", fmt.Errorf("llm api error: %s", out.Error.Message)
	}
	if len(out.Choices) == 0 || strings.TrimSpace(out.Choices[0].Message.Content) == "" {
		return "", errors.New("llm empty response")
	}

	c.logger.Debug("llm completion",
		zap.String("model", c.model),
		zap.Duration("elapsed", time.Since(started)),
		zap.String("finish_reason", out.Choices[0].FinishReason),
	)
	return out.Choices[0].Message.Content, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

type completionRequest struct {
	Model          string              `json:"model"`
	Temperature    float64             `json:"temperature"`
	Messages       []completionMessage `json:"messages"`
	ResponseFormat *completionFormat   `json:"response_format,omitempty"`
}

type completionFormat struct {
	Type string `json:"type"`
}

type completionMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type completionResponse struct {
	Choices []struct {
		Message      completionMessage `json:"message"`
		FinishReason string            `json:"finish_reason"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}
