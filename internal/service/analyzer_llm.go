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

// LLMAnalyzer pide al modelo un puntaje y un resumen del transcript completo.
type LLMAnalyzer struct {
	client  llm.LLMClient
	timeout time.Duration
	logger  *zap.Logger
	now     func() time.Time
}

func NewLLMAnalyzer(client llm.LLMClient, timeout time.Duration, logger *zap.Logger) *LLMAnalyzer {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LLMAnalyzer{
		client:  client,
		timeout: timeout,
		logger:  logger,
		now:     time.Now,
	}
}

type llmAnalysis struct {
	Score           int      `json:"score"`
	Summary         string   `json:"summary"`
	Recommendations []string `json:"recommendations"`
}

func (a *LLMAnalyzer) Analyze(ctx context.Context, assessmentType string, transcript []domain.Turn) (domain.Analysis, error) {
	if a.client == nil {
		return domain.Analysis{}, errors.New("llm client not configured")
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, `You are an expert career psychologist. Analyse the following "%s" self-assessment interview.
- Give a score from 0 to 100 for the assessed skill.
- Write a short summary (2-4 sentences) in the language the user used.
- Give 2 to 4 concrete recommendations.
Return ONLY a JSON object with this format:
{"score": 70, "summary": "...", "recommendations": ["...", "..."]}

Interview:
`, assessmentType)
	sb.WriteString(transcriptContext(transcript, 0))

	callCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	raw, err := a.client.Generate(callCtx, sb.String())
	if err != nil {
		return domain.Analysis{}, fmt.Errorf("llm generate: %w", err)
	}

	var parsed llmAnalysis
	if err := decodeLLMJSON(raw, &parsed); err != nil {
		a.logger.Warn("analyzer returned unparseable output", zap.Error(err))
		return domain.Analysis{}, err
	}
	summary := strings.TrimSpace(parsed.Summary)
	if summary == "" {
		return domain.Analysis{}, errors.New("llm analysis summary is empty")
	}

	recs := make([]string, 0, len(parsed.Recommendations))
	for _, rec := range parsed.Recommendations {
		if rec = strings.TrimSpace(rec); rec != "" {
			recs = append(recs, rec)
		}
	}
	if len(recs) == 0 {
		recs = recommendationsFor(assessmentType)
	}

	return domain.Analysis{
		AssessmentType:  assessmentType,
		Score:           clampScore(parsed.Score),
		Summary:         summary,
		Recommendations: recs,
		TurnCount:       len(transcript),
		GeneratedAt:     a.now().UTC(),
	}, nil
}

func clampScore(score int) int {
	return max(0, min(100, score))
}
