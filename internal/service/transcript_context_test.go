package service

import (
	"strings"
	"testing"
	"time"

	"hrbooteh/internal/domain"
)

func TestTranscriptContext(t *testing.T) {
	if got := transcriptContext(nil, 5); got != "(empty)" {
		t.Fatalf("expected empty marker, got %q", got)
	}

	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	turns := []domain.Turn{
		{Seq: 3, Sender: domain.SenderSystem, Text: "third", CreatedAt: base},
		{Seq: 1, Sender: domain.SenderSystem, Text: "first", CreatedAt: base},
		{Seq: 2, Sender: domain.SenderUser, Text: " second ", CreatedAt: base},
	}

	all := transcriptContext(turns, 0)
	want := "Interviewer: first\nUser: second\nInterviewer: third"
	if all != want {
		t.Fatalf("unexpected context:\n%s", all)
	}
	if turns[0].Seq != 3 {
		t.Fatalf("input slice must not be reordered")
	}

	windowed := transcriptContext(turns, 2)
	if strings.Contains(windowed, "first") || !strings.HasPrefix(windowed, "User: second") {
		t.Fatalf("expected only the last two turns, got:\n%s", windowed)
	}
}
