package repository

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/jackc/pgx/v5"

	"hrbooteh/internal/domain"
)

// MemoryAssessmentRepository guarda evaluaciones en memoria. Sirve para tests y
// para el CLI sin base de datos. UpdateLocked serializa por evaluacion.
type MemoryAssessmentRepository struct {
	mu          sync.RWMutex
	assessments map[string]domain.Assessment
	turns       map[string][]domain.Turn
	locks       map[string]*sync.Mutex
}

func NewMemoryAssessmentRepository() *MemoryAssessmentRepository {
	return &MemoryAssessmentRepository{
		assessments: make(map[string]domain.Assessment),
		turns:       make(map[string][]domain.Turn),
		locks:       make(map[string]*sync.Mutex),
	}
}

func (r *MemoryAssessmentRepository) Create(_ context.Context, assessment domain.Assessment, opening domain.Turn) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.assessments[assessment.ID]; exists {
		return errors.New("assessment already exists")
	}
	r.assessments[assessment.ID] = cloneAssessment(assessment)
	r.turns[assessment.ID] = []domain.Turn{opening}
	r.locks[assessment.ID] = &sync.Mutex{}
	return nil
}

func (r *MemoryAssessmentRepository) GetByID(_ context.Context, id, ownerID string) (domain.Assessment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.assessments[id]
	if !ok || a.OwnerID != ownerID {
		return domain.Assessment{}, pgx.ErrNoRows
	}
	return cloneAssessment(a), nil
}

func (r *MemoryAssessmentRepository) ListTurns(_ context.Context, assessmentID string) ([]domain.Turn, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.snapshotTurns(assessmentID), nil
}

func (r *MemoryAssessmentRepository) GetWithTurns(_ context.Context, id, ownerID string) (domain.Assessment, []domain.Turn, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.assessments[id]
	if !ok || a.OwnerID != ownerID {
		return domain.Assessment{}, nil, pgx.ErrNoRows
	}
	return cloneAssessment(a), r.snapshotTurns(id), nil
}

func (r *MemoryAssessmentRepository) ListByOwner(_ context.Context, ownerID string) ([]domain.Assessment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := []domain.Assessment{}
	for _, a := range r.assessments {
		if a.OwnerID == ownerID {
			result = append(result, cloneAssessment(a))
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].ID > result[j].ID
	})
	return result, nil
}

func (r *MemoryAssessmentRepository) UpdateLocked(_ context.Context, id, ownerID string, fn AssessmentMutation) (domain.Assessment, error) {
	r.mu.RLock()
	lock, ok := r.locks[id]
	r.mu.RUnlock()
	if !ok {
		return domain.Assessment{}, pgx.ErrNoRows
	}

	lock.Lock()
	defer lock.Unlock()

	r.mu.RLock()
	current, ok := r.assessments[id]
	turns := r.snapshotTurns(id)
	r.mu.RUnlock()
	if !ok || current.OwnerID != ownerID {
		return domain.Assessment{}, pgx.ErrNoRows
	}
	current = cloneAssessment(current)

	newTurns, err := fn(&current, turns)
	if err != nil {
		return domain.Assessment{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	stored := r.turns[id]
	for _, t := range newTurns {
		for _, existing := range stored {
			if existing.Seq == t.Seq {
				return domain.Assessment{}, errors.New("duplicate turn seq")
			}
		}
	}
	r.turns[id] = append(stored, newTurns...)
	r.assessments[id] = cloneAssessment(current)
	return cloneAssessment(current), nil
}

func (r *MemoryAssessmentRepository) snapshotTurns(assessmentID string) []domain.Turn {
	stored := r.turns[assessmentID]
	out := make([]domain.Turn, len(stored))
	copy(out, stored)
	domain.SortTurns(out)
	return out
}

func cloneAssessment(a domain.Assessment) domain.Assessment {
	if a.Analysis != nil {
		analysis := *a.Analysis
		analysis.Recommendations = append([]string(nil), a.Analysis.Recommendations...)
		a.Analysis = &analysis
	}
	return a
}
