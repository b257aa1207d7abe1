package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"hrbooteh/internal/db"
	"hrbooteh/internal/domain"
)

// AssessmentMutation recibe la evaluacion bloqueada y su transcript ordenado,
// puede modificar la evaluacion y devuelve los turnos a agregar. Si devuelve
// error no se persiste nada.
type AssessmentMutation func(assessment *domain.Assessment, turns []domain.Turn) ([]domain.Turn, error)

// AssessmentRepository define el contrato de persistencia para evaluaciones y
// su transcript. Las busquedas que no encuentran la evaluacion (o que no
// pertenece al owner) devuelven pgx.ErrNoRows.
type AssessmentRepository interface {
	Create(ctx context.Context, assessment domain.Assessment, opening domain.Turn) error
	GetByID(ctx context.Context, id, ownerID string) (domain.Assessment, error)
	ListTurns(ctx context.Context, assessmentID string) ([]domain.Turn, error)
	// GetWithTurns lee la evaluacion y su transcript del mismo snapshot.
	GetWithTurns(ctx context.Context, id, ownerID string) (domain.Assessment, []domain.Turn, error)
	ListByOwner(ctx context.Context, ownerID string) ([]domain.Assessment, error)
	UpdateLocked(ctx context.Context, id, ownerID string, fn AssessmentMutation) (domain.Assessment, error)
}

// PgAssessmentRepository implementa AssessmentRepository usando pgxpool.
type PgAssessmentRepository struct {
	pool *pgxpool.Pool
}

func NewPgAssessmentRepository(pool *pgxpool.Pool) *PgAssessmentRepository {
	return &PgAssessmentRepository{pool: pool}
}

const assessmentColumns = `id, assessment_type, user_id, status, user_context, analysis, created_at, updated_at`

func (r *PgAssessmentRepository) Create(ctx context.Context, assessment domain.Assessment, opening domain.Turn) error {
	analysis, err := encodeAnalysis(assessment.Analysis)
	if err != nil {
		return err
	}
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		const query = `
			INSERT INTO assessments (` + assessmentColumns + `)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`
		if _, err := tx.Exec(ctx, query,
			assessment.ID,
			assessment.AssessmentType,
			assessment.OwnerID,
			string(assessment.Status),
			assessment.UserContext,
			analysis,
			assessment.CreatedAt,
			assessment.UpdatedAt,
		); err != nil {
			return fmt.Errorf("insert assessment: %w", err)
		}
		return insertTurns(ctx, tx, []domain.Turn{opening})
	})
}

func (r *PgAssessmentRepository) GetByID(ctx context.Context, id, ownerID string) (domain.Assessment, error) {
	if !validUUIDs(id, ownerID) {
		return domain.Assessment{}, pgx.ErrNoRows
	}
	const query = `
		SELECT ` + assessmentColumns + `
		FROM assessments
		WHERE id = $1 AND user_id = $2
	`
	return scanAssessment(r.pool.QueryRow(ctx, query, id, ownerID))
}

func (r *PgAssessmentRepository) ListTurns(ctx context.Context, assessmentID string) ([]domain.Turn, error) {
	if !validUUIDs(assessmentID) {
		return []domain.Turn{}, nil
	}
	return listTurns(ctx, r.pool, assessmentID)
}

func (r *PgAssessmentRepository) GetWithTurns(ctx context.Context, id, ownerID string) (domain.Assessment, []domain.Turn, error) {
	if !validUUIDs(id, ownerID) {
		return domain.Assessment{}, nil, pgx.ErrNoRows
	}
	var (
		assessment domain.Assessment
		turns      []domain.Turn
	)
	err := db.WithReadSnapshot(ctx, r.pool, func(tx pgx.Tx) error {
		const query = `
			SELECT ` + assessmentColumns + `
			FROM assessments
			WHERE id = $1 AND user_id = $2
		`
		a, err := scanAssessment(tx.QueryRow(ctx, query, id, ownerID))
		if err != nil {
			return err
		}
		t, err := listTurns(ctx, tx, id)
		if err != nil {
			return err
		}
		assessment, turns = a, t
		return nil
	})
	if err != nil {
		return domain.Assessment{}, nil, err
	}
	return assessment, turns, nil
}

func (r *PgAssessmentRepository) ListByOwner(ctx context.Context, ownerID string) ([]domain.Assessment, error) {
	if !validUUIDs(ownerID) {
		return []domain.Assessment{}, nil
	}
	const query = `
		SELECT ` + assessmentColumns + `
		FROM assessments
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
	`
	rows, err := r.pool.Query(ctx, query, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	assessments := []domain.Assessment{}
	for rows.Next() {
		a, err := scanAssessment(rows)
		if err != nil {
			return nil, err
		}
		assessments = append(assessments, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return assessments, nil
}

// UpdateLocked toma un lock de fila (SELECT ... FOR UPDATE) sobre la
// evaluacion, carga el transcript, aplica fn y persiste turnos nuevos y estado
// en la misma transaccion. Dos llamadas concurrentes sobre el mismo id se
// serializan.
func (r *PgAssessmentRepository) UpdateLocked(ctx context.Context, id, ownerID string, fn AssessmentMutation) (domain.Assessment, error) {
	if !validUUIDs(id, ownerID) {
		return domain.Assessment{}, pgx.ErrNoRows
	}

	var updated domain.Assessment
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		const lockQuery = `
			SELECT ` + assessmentColumns + `
			FROM assessments
			WHERE id = $1 AND user_id = $2
			FOR UPDATE
		`
		current, err := scanAssessment(tx.QueryRow(ctx, lockQuery, id, ownerID))
		if err != nil {
			return err
		}
		turns, err := listTurns(ctx, tx, id)
		if err != nil {
			return err
		}

		newTurns, err := fn(&current, turns)
		if err != nil {
			return err
		}
		if err := insertTurns(ctx, tx, newTurns); err != nil {
			return err
		}

		analysis, err := encodeAnalysis(current.Analysis)
		if err != nil {
			return err
		}
		const updateQuery = `
			UPDATE assessments
			SET status = $2, analysis = $3, updated_at = $4
			WHERE id = $1
		`
		if _, err := tx.Exec(ctx, updateQuery, id, string(current.Status), analysis, current.UpdatedAt); err != nil {
			return fmt.Errorf("update assessment: %w", err)
		}
		updated = current
		return nil
	})
	if err != nil {
		return domain.Assessment{}, err
	}
	return updated, nil
}

// querier cubre pool y tx para consultas de lectura.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func listTurns(ctx context.Context, q querier, assessmentID string) ([]domain.Turn, error) {
	const query = `
		SELECT id, assessment_id, seq, sender, message, created_at
		FROM assessment_messages
		WHERE assessment_id = $1
		ORDER BY created_at ASC, seq ASC
	`
	rows, err := q.Query(ctx, query, assessmentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	turns := []domain.Turn{}
	for rows.Next() {
		var t domain.Turn
		var sender string
		if err := rows.Scan(&t.ID, &t.AssessmentID, &t.Seq, &sender, &t.Text, &t.CreatedAt); err != nil {
			return nil, err
		}
		t.Sender = domain.Sender(sender)
		turns = append(turns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return turns, nil
}

func insertTurns(ctx context.Context, tx pgx.Tx, turns []domain.Turn) error {
	const query = `
		INSERT INTO assessment_messages (id, assessment_id, seq, sender, message, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	for _, t := range turns {
		if _, err := tx.Exec(ctx, query,
			t.ID,
			t.AssessmentID,
			t.Seq,
			string(t.Sender),
			t.Text,
			t.CreatedAt,
		); err != nil {
			return fmt.Errorf("insert turn %d: %w", t.Seq, err)
		}
	}
	return nil
}

func scanAssessment(row pgx.Row) (domain.Assessment, error) {
	var a domain.Assessment
	var status string
	var analysis []byte
	if err := row.Scan(
		&a.ID,
		&a.AssessmentType,
		&a.OwnerID,
		&status,
		&a.UserContext,
		&analysis,
		&a.CreatedAt,
		&a.UpdatedAt,
	); err != nil {
		return domain.Assessment{}, err
	}
	a.Status = domain.AssessmentStatus(status)
	if len(analysis) > 0 {
		var parsed domain.Analysis
		if err := json.Unmarshal(analysis, &parsed); err != nil {
			return domain.Assessment{}, fmt.Errorf("decode analysis: %w", err)
		}
		a.Analysis = &parsed
	}
	return a, nil
}

func encodeAnalysis(analysis *domain.Analysis) ([]byte, error) {
	if analysis == nil {
		return nil, nil
	}
	raw, err := json.Marshal(analysis)
	if err != nil {
		return nil, fmt.Errorf("encode analysis: %w", err)
	}
	return raw, nil
}

// Las columnas id son UUID; un id mal formado no puede existir.
func validUUIDs(ids ...string) bool {
	for _, id := range ids {
		if _, err := uuid.Parse(id); err != nil {
			return false
		}
	}
	return true
}
