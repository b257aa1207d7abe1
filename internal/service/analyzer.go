package service

import (
	"context"
	"strings"
	"time"

	"hrbooteh/internal/domain"
)

// Analyzer produce el resultado estructurado a partir del transcript completo.
// Se invoca una sola vez por evaluacion.
type Analyzer interface {
	Analyze(ctx context.Context, assessmentType string, transcript []domain.Turn) (domain.Analysis, error)
}

const (
	heuristicBaseScore    = 20
	heuristicPerTurnScore = 15
	heuristicSummary      = "تحلیل اولیه بر اساس پاسخ‌های ارائه‌شده."
)

var defaultRecommendations = []string{
	"تمرین روزانه ۱۵ دقیقه برای بهبود تمرکز",
	"شرکت در یک کارگاه مرتبط با موضوع",
}

var recommendationsByType = map[string][]string{
	"independence": {
		"هر هفته یک تصمیم کاری را بدون مشورت بگیرید و نتیجه را یادداشت کنید",
		"یک پروژه کوچک را از ابتدا تا انتها به‌تنهایی مدیریت کنید",
	},
	"confidence": {
		"هر روز سه موفقیت کوچک خود را بنویسید",
		"در جلسات تیمی حداقل یک بار نظر خود را بیان کنید",
	},
	"teamwork": {
		"در یک پروژه گروهی نقش هماهنگ‌کننده را بر عهده بگیرید",
		"بازخورد هفتگی از همکاران خود بخواهید",
	},
}

// HeuristicAnalyzer es la politica de referencia: puntaje por largo del
// transcript y recomendaciones fijas por tipo.
type HeuristicAnalyzer struct {
	now func() time.Time
}

func NewHeuristicAnalyzer() *HeuristicAnalyzer {
	return &HeuristicAnalyzer{now: time.Now}
}

func (a *HeuristicAnalyzer) Analyze(_ context.Context, assessmentType string, transcript []domain.Turn) (domain.Analysis, error) {
	return domain.Analysis{
		AssessmentType:  assessmentType,
		Score:           heuristicScore(len(transcript)),
		Summary:         heuristicSummary,
		Recommendations: recommendationsFor(assessmentType),
		TurnCount:       len(transcript),
		GeneratedAt:     a.now().UTC(),
	}, nil
}

func heuristicScore(turnCount int) int {
	return min(100, heuristicBaseScore+heuristicPerTurnScore*turnCount)
}

func recommendationsFor(assessmentType string) []string {
	recs, ok := recommendationsByType[strings.ToLower(strings.TrimSpace(assessmentType))]
	if !ok {
		recs = defaultRecommendations
	}
	return append([]string(nil), recs...)
}
