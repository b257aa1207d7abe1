package service

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"hrbooteh/internal/domain"
	"hrbooteh/internal/email"
)

type mockEmailSender struct {
	lastTo  string
	lastMsg email.AssessmentCompletedMessage
	err     error
}

func (m *mockEmailSender) SendAssessmentCompleted(_ context.Context, toEmail string, msg email.AssessmentCompletedMessage) error {
	m.lastTo = toEmail
	m.lastMsg = msg
	return m.err
}

func TestEmailCompletionNotifier(t *testing.T) {
	users := newMockUserRepo()
	users.usersByID["u1"] = domain.User{ID: "u1", Email: "test@example.com", FullName: "Test User", IsActive: true}
	sender := &mockEmailSender{}
	n := NewEmailCompletionNotifier(users, sender, zap.NewNop())

	a := domain.Assessment{
		ID:             "a1",
		OwnerID:        "u1",
		AssessmentType: "independence",
		Status:         domain.AssessmentStatusCompleted,
		Analysis:       &domain.Analysis{Score: 80, Summary: "good"},
	}
	if err := n.NotifyCompleted(context.Background(), a); err != nil {
		t.Fatalf("notify: %v", err)
	}
	if sender.lastTo != "test@example.com" {
		t.Fatalf("unexpected recipient %q", sender.lastTo)
	}
	if sender.lastMsg.Score != 80 || sender.lastMsg.FullName != "Test User" || sender.lastMsg.AssessmentID != "a1" {
		t.Fatalf("unexpected message %+v", sender.lastMsg)
	}
}

func TestEmailCompletionNotifierErrors(t *testing.T) {
	users := newMockUserRepo()
	users.usersByID["u1"] = domain.User{ID: "u1", Email: "test@example.com"}
	ctx := context.Background()
	completed := domain.Assessment{ID: "a1", OwnerID: "u1", Analysis: &domain.Analysis{Score: 1}}

	n := NewEmailCompletionNotifier(users, &mockEmailSender{}, nil)
	if err := n.NotifyCompleted(ctx, domain.Assessment{ID: "a1", OwnerID: "u1"}); err == nil {
		t.Fatalf("expected error without analysis")
	}
	missing := completed
	missing.OwnerID = "ghost"
	if err := n.NotifyCompleted(ctx, missing); err == nil {
		t.Fatalf("expected error for unknown owner")
	}

	failing := NewEmailCompletionNotifier(users, &mockEmailSender{err: errors.New("smtp down")}, nil)
	if err := failing.NotifyCompleted(ctx, completed); err == nil {
		t.Fatalf("expected send error")
	}
}
