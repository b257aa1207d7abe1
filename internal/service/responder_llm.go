package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"hrbooteh/internal/domain"
	"hrbooteh/internal/llm"
)

const defaultMaxUserTurns = 12

// LLMResponder delega la conversacion en un modelo generativo. Cada llamada
// esta acotada por timeout y, pase lo que pase con el modelo, la evaluacion se
// cierra al llegar a maxUserTurns respuestas del usuario.
type LLMResponder struct {
	client       llm.LLMClient
	timeout      time.Duration
	maxUserTurns int
	logger       *zap.Logger
}

func NewLLMResponder(client llm.LLMClient, timeout time.Duration, maxUserTurns int, logger *zap.Logger) *LLMResponder {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if maxUserTurns <= 0 {
		maxUserTurns = defaultMaxUserTurns
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LLMResponder{
		client:       client,
		timeout:      timeout,
		maxUserTurns: maxUserTurns,
		logger:       logger,
	}
}

type llmReply struct {
	Reply         string `json:"reply"`
	Continue      *bool  `json:"continue"`
	AnalysisReady bool   `json:"analysis_ready"`
}

func (r *LLMResponder) OpenSession(ctx context.Context, assessmentType, userContext string) (Reply, error) {
	var sb strings.Builder
	sb.WriteString(responderInstructions(assessmentType, r.maxUserTurns))
	sb.WriteString("\nThis is the start of the session. Greet the user and ask the first question.\n")
	if ctxText := strings.TrimSpace(userContext); ctxText != "" {
		sb.WriteString("\nWhat the user told us about themselves:\n")
		sb.WriteString(ctxText)
		sb.WriteString("\n")
	}

	parsed, err := r.generate(ctx, sb.String())
	if err != nil {
		return Reply{}, err
	}
	// Sin respuestas del usuario no hay nada que analizar todavia.
	return Reply{Text: parsed.Reply, Continue: true}, nil
}

func (r *LLMResponder) NextUtterance(ctx context.Context, assessmentType string, prior []domain.Turn, latestUserText string) (Reply, error) {
	answers := domain.CountUserTurns(prior) + 1

	var sb strings.Builder
	sb.WriteString(responderInstructions(assessmentType, r.maxUserTurns))
	sb.WriteString("\nConversation so far:\n")
	sb.WriteString(transcriptContext(prior, responderContextWindow))
	sb.WriteString("\n\nLatest user message:\n")
	sb.WriteString(strings.TrimSpace(latestUserText))
	fmt.Fprintf(&sb, "\n\nThe user has answered %d time(s).\n", answers)

	parsed, err := r.generate(ctx, sb.String())
	if err != nil {
		return Reply{}, err
	}

	reply := Reply{
		Text:          parsed.Reply,
		Continue:      true,
		AnalysisReady: parsed.AnalysisReady,
	}
	if parsed.Continue != nil {
		reply.Continue = *parsed.Continue
	}
	if answers >= r.maxUserTurns && !reply.AnalysisReady {
		r.logger.Info("forcing analysis after max user turns",
			zap.String("assessment_type", assessmentType),
			zap.Int("answers", answers),
		)
		reply.AnalysisReady = true
		reply.Continue = false
	}
	return reply, nil
}

func (r *LLMResponder) generate(ctx context.Context, prompt string) (llmReply, error) {
	if r.client == nil {
		return llmReply{}, errors.New("llm client not configured")
	}
	callCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	raw, err := r.client.Generate(callCtx, prompt)
	if err != nil {
		return llmReply{}, fmt.Errorf("llm generate: %w", err)
	}

	var parsed llmReply
	if err := decodeLLMJSON(raw, &parsed); err != nil {
		r.logger.Warn("responder returned unparseable output", zap.Error(err))
		return llmReply{}, err
	}
	parsed.Reply = strings.TrimSpace(parsed.Reply)
	if parsed.Reply == "" {
		return llmReply{}, errors.New("llm reply is empty")
	}
	return parsed, nil
}

func responderInstructions(assessmentType string, maxUserTurns int) string {
	return fmt.Sprintf(`You are an interviewer running a "%s" self-assessment through conversation.
Ask one short, open question per message and adapt it to the previous answers.
Answer in the same language the user writes in (Persian if unsure).
When you have enough material for an analysis (at most %d user answers), thank the user
and set "analysis_ready" to true and "continue" to false.
Return ONLY a JSON object with this format:
{"reply": "...", "continue": true, "analysis_ready": false}
`, assessmentType, maxUserTurns)
}
