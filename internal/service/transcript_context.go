package service

import (
	"fmt"
	"strings"

	"hrbooteh/internal/domain"
)

// responderContextWindow es la cantidad de turnos recientes que ve el Responder LLM.
const responderContextWindow = 20

// transcriptContext formatea los ultimos window turnos como texto plano, en
// orden cronologico. window <= 0 incluye todo el transcript.
func transcriptContext(turns []domain.Turn, window int) string {
	if len(turns) == 0 {
		return "(empty)"
	}

	ordered := make([]domain.Turn, len(turns))
	copy(ordered, turns)
	domain.SortTurns(ordered)

	if window > 0 && len(ordered) > window {
		ordered = ordered[len(ordered)-window:]
	}

	lines := make([]string, 0, len(ordered))
	for _, t := range ordered {
		role := "Interviewer"
		if t.Sender == domain.SenderUser {
			role = "User"
		}
		lines = append(lines, fmt.Sprintf("%s: %s", role, strings.TrimSpace(t.Text)))
	}
	return strings.Join(lines, "\n")
}
