package email

import (
	"context"
	"strings"

	"go.uber.org/zap"
)

// Mailer renderiza plantillas y las entrega por un Sender. Nunca propaga
// errores: los fallos se registran y se devuelve false.
type Mailer struct {
	logger  *zap.Logger
	sender  Sender
	baseURL string
}

func NewMailer(logger *zap.Logger, sender Sender, baseURL string) *Mailer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if sender == nil {
		sender = NewDisabledSender("email sender not configured")
	}
	return &Mailer{
		logger:  logger,
		sender:  sender,
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

func (m *Mailer) Send(ctx context.Context, to, templateName string, payload any) bool {
	subject, body, err := Render(templateName, m.baseURL, payload)
	if err != nil {
		m.logger.Error("render email failed", zap.Error(err), zap.String("template", templateName))
		return false
	}
	if err := m.sender.Send(ctx, Message{To: to, Subject: subject, HTMLBody: body}); err != nil {
		m.logger.Warn("send email failed",
			zap.Error(err),
			zap.String("template", templateName),
			zap.String("email", to),
		)
		return false
	}
	m.logger.Info("email sent", zap.String("template", templateName))
	return true
}
