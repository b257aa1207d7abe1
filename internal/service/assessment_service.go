package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"hrbooteh/internal/domain"
	"hrbooteh/internal/repository"
)

var (
	ErrAssessmentNotFound = errors.New("assessment not found")
	ErrInvalidState       = errors.New("invalid assessment state")
	ErrDependencyFailure  = errors.New("dependency failure")
	ErrInvalidInput       = errors.New("invalid input")

	ErrAssessmentNotActive    = fmt.Errorf("%w: assessment is not active", ErrInvalidState)
	ErrAssessmentNotCompleted = fmt.Errorf("%w: assessment is not completed yet", ErrInvalidState)
)

const (
	defaultResultsCacheSize = 512
	notifyTimeout           = 30 * time.Second
)

// AssessmentService es la maquina de estados de una evaluacion: active ->
// completed. No guarda estado entre llamadas salvo el cache de resultados, que
// son inmutables una vez completada la evaluacion.
type AssessmentService struct {
	logger    *zap.Logger
	repo      repository.AssessmentRepository
	responder Responder
	analyzer  Analyzer
	notifier  CompletionNotifier
	results   *lru.Cache[string, Results]
	now       func() time.Time
}

type AssessmentOption func(*AssessmentService)

// WithCompletionNotifier avisa (de forma asincrona) cuando una evaluacion se completa.
func WithCompletionNotifier(n CompletionNotifier) AssessmentOption {
	return func(s *AssessmentService) { s.notifier = n }
}

func WithResultsCacheSize(size int) AssessmentOption {
	return func(s *AssessmentService) {
		if size <= 0 {
			s.results = nil
			return
		}
		cache, err := lru.New[string, Results](size)
		if err == nil {
			s.results = cache
		}
	}
}

func WithClock(now func() time.Time) AssessmentOption {
	return func(s *AssessmentService) { s.now = now }
}

func NewAssessmentService(
	logger *zap.Logger,
	repo repository.AssessmentRepository,
	responder Responder,
	analyzer Analyzer,
	opts ...AssessmentOption,
) *AssessmentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	cache, _ := lru.New[string, Results](defaultResultsCacheSize)
	s := &AssessmentService{
		logger:    logger,
		repo:      repo,
		responder: responder,
		analyzer:  analyzer,
		results:   cache,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type StartInput struct {
	OwnerID        string
	AssessmentType string
	UserContext    string
}

type StartResult struct {
	AssessmentID string
	Reply        Reply
}

type AdvanceInput struct {
	AssessmentID string
	OwnerID      string
	Text         string
}

// Results es la vista de una evaluacion completada.
type Results struct {
	Assessment domain.Assessment
	Turns      []domain.Turn
	Analysis   domain.Analysis
}

// Details es la vista de una evaluacion sin el analisis.
type Details struct {
	Assessment domain.Assessment
	Turns      []domain.Turn
}

// Start crea la evaluacion y su primer mensaje del sistema. Ambos se
// persisten en una sola transaccion, despues de obtener la respuesta del
// Responder; si el Responder falla no queda nada escrito.
func (s *AssessmentService) Start(ctx context.Context, in StartInput) (StartResult, error) {
	ownerID := strings.TrimSpace(in.OwnerID)
	assessmentType := strings.TrimSpace(in.AssessmentType)
	if ownerID == "" || assessmentType == "" {
		return StartResult{}, ErrInvalidInput
	}
	userContext := strings.TrimSpace(in.UserContext)

	reply, err := s.responder.OpenSession(ctx, assessmentType, userContext)
	if err != nil {
		s.logger.Error("responder open session failed", zap.Error(err), zap.String("assessment_type", assessmentType))
		return StartResult{}, dependencyError("responder", err)
	}
	if strings.TrimSpace(reply.Text) == "" {
		return StartResult{}, dependencyError("responder", errors.New("empty opening utterance"))
	}

	now := s.now().UTC()
	assessment := domain.Assessment{
		ID:             uuid.NewString(),
		AssessmentType: assessmentType,
		OwnerID:        ownerID,
		Status:         domain.AssessmentStatusActive,
		UserContext:    userContext,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	opening := domain.Turn{
		ID:           uuid.NewString(),
		AssessmentID: assessment.ID,
		Seq:          1,
		Sender:       domain.SenderSystem,
		Text:         reply.Text,
		CreatedAt:    now,
	}
	if err := s.repo.Create(ctx, assessment, opening); err != nil {
		s.logger.Error("create assessment failed", zap.Error(err), zap.String("user_id", ownerID))
		return StartResult{}, dependencyError("store", err)
	}

	s.logger.Info("assessment started",
		zap.String("assessment_id", assessment.ID),
		zap.String("user_id", ownerID),
		zap.String("assessment_type", assessmentType),
	)
	return StartResult{AssessmentID: assessment.ID, Reply: reply}, nil
}

// Advance agrega el mensaje del usuario y la respuesta del sistema y, si el
// Responder indica AnalysisReady, genera el analisis y completa la evaluacion.
// Todo ocurre bajo el lock de la evaluacion: o se confirma completo o nada.
func (s *AssessmentService) Advance(ctx context.Context, in AdvanceInput) (Reply, error) {
	text := strings.TrimSpace(in.Text)
	if text == "" {
		return Reply{}, ErrInvalidInput
	}

	var reply Reply
	updated, err := s.repo.UpdateLocked(ctx, in.AssessmentID, in.OwnerID, func(a *domain.Assessment, turns []domain.Turn) ([]domain.Turn, error) {
		if !a.IsActive() {
			return nil, ErrAssessmentNotActive
		}

		userTurn := domain.Turn{
			ID:           uuid.NewString(),
			AssessmentID: a.ID,
			Seq:          len(turns) + 1,
			Sender:       domain.SenderUser,
			Text:         text,
			CreatedAt:    s.nextTimestamp(turns),
		}

		r, err := s.responder.NextUtterance(ctx, a.AssessmentType, turns, text)
		if err != nil {
			return nil, dependencyError("responder", err)
		}
		if strings.TrimSpace(r.Text) == "" {
			return nil, dependencyError("responder", errors.New("empty utterance"))
		}

		systemTurn := domain.Turn{
			ID:           uuid.NewString(),
			AssessmentID: a.ID,
			Seq:          len(turns) + 2,
			Sender:       domain.SenderSystem,
			Text:         r.Text,
			CreatedAt:    s.nextTimestamp([]domain.Turn{userTurn}),
		}
		appended := []domain.Turn{userTurn, systemTurn}

		if r.AnalysisReady {
			full := make([]domain.Turn, 0, len(turns)+2)
			full = append(full, turns...)
			full = append(full, appended...)
			analysis, err := s.analyzer.Analyze(ctx, a.AssessmentType, full)
			if err != nil {
				return nil, dependencyError("analyzer", err)
			}
			if analysis.AssessmentType == "" {
				analysis.AssessmentType = a.AssessmentType
			}
			a.Complete(analysis, systemTurn.CreatedAt)
		} else {
			a.UpdatedAt = systemTurn.CreatedAt
		}

		reply = r
		return appended, nil
	})
	if err != nil {
		err = s.classifyStoreError(err)
		if errors.Is(err, ErrDependencyFailure) {
			s.logger.Error("advance assessment failed", zap.Error(err), zap.String("assessment_id", in.AssessmentID))
		}
		return Reply{}, err
	}

	if updated.IsCompleted() {
		s.logger.Info("assessment completed",
			zap.String("assessment_id", updated.ID),
			zap.String("user_id", updated.OwnerID),
			zap.Int("score", updated.Analysis.Score),
		)
		s.notifyCompleted(updated)
	}
	return reply, nil
}

// GetResults devuelve la evaluacion completada, su transcript y el analisis.
func (s *AssessmentService) GetResults(ctx context.Context, assessmentID, ownerID string) (Results, error) {
	if s.results != nil {
		if cached, ok := s.results.Get(assessmentID); ok && cached.Assessment.OwnerID == ownerID {
			return copyResults(cached), nil
		}
	}

	assessment, turns, err := s.repo.GetWithTurns(ctx, assessmentID, ownerID)
	if err != nil {
		return Results{}, s.classifyStoreError(err)
	}
	if !assessment.IsCompleted() || assessment.Analysis == nil {
		return Results{}, ErrAssessmentNotCompleted
	}
	domain.SortTurns(turns)

	res := Results{
		Assessment: assessment,
		Turns:      turns,
		Analysis:   *assessment.Analysis,
	}
	if s.results != nil {
		s.results.Add(assessmentID, copyResults(res))
	}
	return res, nil
}

// GetDetails devuelve la evaluacion y su transcript en cualquier estado, sin analisis.
func (s *AssessmentService) GetDetails(ctx context.Context, assessmentID, ownerID string) (Details, error) {
	assessment, turns, err := s.repo.GetWithTurns(ctx, assessmentID, ownerID)
	if err != nil {
		return Details{}, s.classifyStoreError(err)
	}
	domain.SortTurns(turns)
	assessment.Analysis = nil
	return Details{Assessment: assessment, Turns: turns}, nil
}

// ListForOwner devuelve las evaluaciones del usuario, la mas reciente primero.
func (s *AssessmentService) ListForOwner(ctx context.Context, ownerID string) ([]domain.Assessment, error) {
	assessments, err := s.repo.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, s.classifyStoreError(err)
	}
	return assessments, nil
}

// nextTimestamp nunca retrocede respecto del ultimo turno, asi el orden por
// (created_at, seq) coincide con el orden de insercion.
func (s *AssessmentService) nextTimestamp(turns []domain.Turn) time.Time {
	now := s.now().UTC()
	for _, t := range turns {
		if t.CreatedAt.After(now) {
			now = t.CreatedAt
		}
	}
	return now
}

func (s *AssessmentService) classifyStoreError(err error) error {
	switch {
	case errors.Is(err, ErrInvalidState),
		errors.Is(err, ErrDependencyFailure),
		errors.Is(err, ErrInvalidInput),
		errors.Is(err, ErrAssessmentNotFound):
		return err
	case errors.Is(err, pgx.ErrNoRows):
		return ErrAssessmentNotFound
	default:
		return dependencyError("store", err)
	}
}

func (s *AssessmentService) notifyCompleted(assessment domain.Assessment) {
	if s.notifier == nil {
		return
	}
	go func(a domain.Assessment) {
		ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
		defer cancel()
		if err := s.notifier.NotifyCompleted(ctx, a); err != nil {
			s.logger.Warn("completion notification failed", zap.Error(err), zap.String("assessment_id", a.ID))
		}
	}(assessment)
}

func dependencyError(component string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrDependencyFailure, component, err)
}

func copyResults(r Results) Results {
	r.Turns = append([]domain.Turn(nil), r.Turns...)
	r.Analysis.Recommendations = append([]string(nil), r.Analysis.Recommendations...)
	if r.Assessment.Analysis != nil {
		analysis := *r.Assessment.Analysis
		analysis.Recommendations = append([]string(nil), analysis.Recommendations...)
		r.Assessment.Analysis = &analysis
	}
	return r
}
