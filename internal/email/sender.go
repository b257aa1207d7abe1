package email

import (
	"context"
	"errors"
)

// Sender define la interfaz para el envio de correos transaccionales.
type Sender interface {
	SendAssessmentCompleted(ctx context.Context, toEmail string, msg AssessmentCompletedMessage) error
}

// AssessmentCompletedMessage agrupa los datos del aviso de resultados listos.
type AssessmentCompletedMessage struct {
	FullName       string
	AssessmentID   string
	AssessmentType string
	Score          int
	Summary        string
}

type disabledSender struct {
	reason string
}

func NewDisabledSender(reason string) Sender {
	return &disabledSender{reason: reason}
}

func (s *disabledSender) SendAssessmentCompleted(_ context.Context, _ string, _ AssessmentCompletedMessage) error {
	if s.reason == "" {
		return errors.New("email sender disabled")
	}
	return errors.New(s.reason)
}
