package email

import (
	"context"
	"errors"
)

// Message es un correo ya renderizado, listo para el transporte.
type Message struct {
	To       string
	Subject  string
	HTMLBody string
}

// Sender define el transporte de correo.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

type disabledSender struct {
	reason string
}

func NewDisabledSender(reason string) Sender {
	return &disabledSender{reason: reason}
}

func (s *disabledSender) Send(_ context.Context, _ Message) error {
	if s.reason == "" {
		return errors.New("email sender disabled")
	}
	return errors.New(s.reason)
}
