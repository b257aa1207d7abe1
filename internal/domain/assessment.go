package domain

import (
	"sort"
	"time"
)

// AssessmentStatus representa el ciclo de vida de una evaluacion.
// Solo existe la transicion active -> completed.
type AssessmentStatus string

const (
	AssessmentStatusActive    AssessmentStatus = "active"
	AssessmentStatusCompleted AssessmentStatus = "completed"
)

// Sender identifica al autor de un turno del transcript.
type Sender string

const (
	SenderUser   Sender = "user"
	SenderSystem Sender = "system"
)

// Assessment es la raiz del agregado: una sesion de autoevaluacion conversacional.
// Analysis es nil mientras Status es active y no nil una vez completed.
type Assessment struct {
	ID             string           `json:"id"`
	AssessmentType string           `json:"assessment_type"`
	OwnerID        string           `json:"user_id"`
	Status         AssessmentStatus `json:"status"`
	UserContext    string           `json:"user_context,omitempty"`
	Analysis       *Analysis        `json:"analysis,omitempty"`
	CreatedAt      time.Time        `json:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at"`
}

func (a Assessment) IsActive() bool {
	return a.Status == AssessmentStatusActive
}

func (a Assessment) IsCompleted() bool {
	return a.Status == AssessmentStatusCompleted
}

// Complete marca la evaluacion como terminada junto con su analisis.
func (a *Assessment) Complete(analysis Analysis, at time.Time) {
	a.Analysis = &analysis
	a.Status = AssessmentStatusCompleted
	a.UpdatedAt = at
}

// Turn es un mensaje del transcript. Seq es la posicion (1-based) dentro de la
// evaluacion y desempata turnos con el mismo CreatedAt.
type Turn struct {
	ID           string    `json:"id"`
	AssessmentID string    `json:"assessment_id"`
	Seq          int       `json:"seq"`
	Sender       Sender    `json:"sender"`
	Text         string    `json:"message"`
	CreatedAt    time.Time `json:"created_at"`
}

// Analysis es el resultado estructurado de una evaluacion completada.
type Analysis struct {
	AssessmentType  string    `json:"assessment_type"`
	Score           int       `json:"score"`
	Summary         string    `json:"summary"`
	Recommendations []string  `json:"recommendations"`
	TurnCount       int       `json:"turn_count"`
	GeneratedAt     time.Time `json:"generated_at"`
}

// SortTurns ordena por (CreatedAt, Seq) ascendente.
func SortTurns(turns []Turn) {
	sort.SliceStable(turns, func(i, j int) bool {
		if !turns[i].CreatedAt.Equal(turns[j].CreatedAt) {
			return turns[i].CreatedAt.Before(turns[j].CreatedAt)
		}
		return turns[i].Seq < turns[j].Seq
	})
}

// CountUserTurns cuenta los turnos enviados por el usuario.
func CountUserTurns(turns []Turn) int {
	n := 0
	for _, t := range turns {
		if t.Sender == SenderUser {
			n++
		}
	}
	return n
}
