package service

import (
	"context"

	"go.uber.org/zap"

	"hrbooteh/internal/config"
	"hrbooteh/internal/llm"
)

// NewPoliciesFromConfig elige Responder y Analyzer segun RESPONDER_KIND. Lo
// usan la API y el CLI.
func NewPoliciesFromConfig(ctx context.Context, cfg *config.Config, logger *zap.Logger) (Responder, Analyzer, error) {
	if !cfg.UseLLM() {
		return NewScriptedResponder(cfg.ResponderTurnLimit, nil), NewHeuristicAnalyzer(), nil
	}
	client, err := llm.NewClient(ctx, llm.Options{
		Provider:       cfg.LLMProvider,
		BaseURL:        cfg.LLMBaseURL,
		APIKey:         cfg.LLMAPIKey,
		Model:          cfg.LLMModel,
		Timeout:        cfg.LLMTimeout,
		MaxAttempts:    cfg.LLMMaxAttempts,
		RetryBaseDelay: cfg.LLMRetryBaseDelay,
	}, logger)
	if err != nil {
		return nil, nil, err
	}
	return NewLLMResponder(client, cfg.LLMTimeout, cfg.ResponderMaxUserTurns, logger),
		NewLLMAnalyzer(client, cfg.LLMTimeout, logger), nil
}
