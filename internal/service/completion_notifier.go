package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"hrbooteh/internal/domain"
	"hrbooteh/internal/email"
	"hrbooteh/internal/repository"
)

// CompletionNotifier recibe la evaluacion recien completada. Se invoca fuera
// de la transaccion; un error no revierte nada.
type CompletionNotifier interface {
	NotifyCompleted(ctx context.Context, assessment domain.Assessment) error
}

// EmailCompletionNotifier envia el resumen de resultados al correo del dueno.
type EmailCompletionNotifier struct {
	users  repository.UserRepository
	sender email.Sender
	logger *zap.Logger
}

func NewEmailCompletionNotifier(users repository.UserRepository, sender email.Sender, logger *zap.Logger) *EmailCompletionNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EmailCompletionNotifier{users: users, sender: sender, logger: logger}
}

func (n *EmailCompletionNotifier) NotifyCompleted(ctx context.Context, a domain.Assessment) error {
	if a.Analysis == nil {
		return errors.New("assessment has no analysis")
	}
	user, err := n.users.GetByID(ctx, a.OwnerID)
	if err != nil {
		return fmt.Errorf("get owner: %w", err)
	}

	msg := email.AssessmentCompletedMessage{
		FullName:       user.FullName,
		AssessmentID:   a.ID,
		AssessmentType: a.AssessmentType,
		Score:          a.Analysis.Score,
		Summary:        a.Analysis.Summary,
	}
	if err := n.sender.SendAssessmentCompleted(ctx, user.Email, msg); err != nil {
		return fmt.Errorf("send completion email: %w", err)
	}
	n.logger.Info("completion email sent", zap.String("assessment_id", a.ID), zap.String("user_id", a.OwnerID))
	return nil
}
