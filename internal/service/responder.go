package service

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"hrbooteh/internal/domain"
)

// Reply es la salida de un Responder. AnalysisReady manda sobre Continue: si
// es true la evaluacion se completa aunque Continue tambien sea true.
type Reply struct {
	Text          string `json:"message"`
	Continue      bool   `json:"should_continue"`
	AnalysisReady bool   `json:"analysis_ready"`
}

// Responder produce el siguiente mensaje del sistema y las senales de
// continuacion. prior es el transcript antes del ultimo mensaje del usuario,
// que llega aparte en latestUserText.
type Responder interface {
	OpenSession(ctx context.Context, assessmentType, userContext string) (Reply, error)
	NextUtterance(ctx context.Context, assessmentType string, prior []domain.Turn, latestUserText string) (Reply, error)
}

const DefaultTurnThreshold = 5

var scriptedFollowUps = []string{
	"می‌توانید بیشتر توضیح بدهید؟",
	"یک مثال از تجربه‌تان بزنید.",
	"اگر در شرایط سخت قرار بگیرید، چه می‌کنید؟",
	"در یک کلمه، احساس خودتان را توصیف کنید.",
}

const scriptedClosing = "ممنون از توضیحاتتان. تحلیل شما آماده شد."

// ScriptedResponder es la politica de referencia: preguntas genericas elegidas
// al azar hasta que el usuario responde threshold veces, luego cierre.
type ScriptedResponder struct {
	threshold int

	mu  sync.Mutex
	rng *rand.Rand
}

// NewScriptedResponder usa rng si no es nil (tests con semilla fija).
func NewScriptedResponder(threshold int, rng *rand.Rand) *ScriptedResponder {
	if threshold <= 0 {
		threshold = DefaultTurnThreshold
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &ScriptedResponder{threshold: threshold, rng: rng}
}

func (r *ScriptedResponder) OpenSession(_ context.Context, assessmentType, _ string) (Reply, error) {
	greeting := fmt.Sprintf(
		"سلام! به ارزیابی %s خوش آمدید. چند سؤال از شما می‌پرسم تا بتوانم تحلیل دقیقی ارائه دهم. آماده‌اید؟",
		assessmentType,
	)
	return Reply{Text: greeting, Continue: true}, nil
}

func (r *ScriptedResponder) NextUtterance(_ context.Context, _ string, prior []domain.Turn, _ string) (Reply, error) {
	answers := domain.CountUserTurns(prior) + 1
	if answers >= r.threshold {
		return Reply{Text: scriptedClosing, Continue: false, AnalysisReady: true}, nil
	}

	r.mu.Lock()
	idx := r.rng.Intn(len(scriptedFollowUps))
	r.mu.Unlock()
	return Reply{Text: scriptedFollowUps[idx], Continue: true}, nil
}
