package services

import (
	"context"
	"fmt"
	"log/slog"

	"congresy/internal/domain"
)

type emailService struct {
	logger   *slog.Logger
	mailer   domain.Mailer
	renderer domain.EmailTemplateRenderer
}

// NewEmailService returns an EmailService that uses the given Mailer and template renderer.
func NewEmailService(logger *slog.Logger, mailer domain.Mailer, renderer domain.EmailTemplateRenderer) domain.EmailService {
	return &emailService{logger: logger, mailer: mailer, renderer: renderer}
}

// SendNewMessage tells a receiver that a message is waiting, using the "new_message" template.
func (s *emailService) SendNewMessage(ctx context.Context, data *domain.NewMessageEmailData) error {
	if data == nil {
		return fmt.Errorf("new message email data is nil")
	}
	subject, htmlBody, textBody, err := s.renderer.Render("new_message", data)
	if err != nil {
		return fmt.Errorf("failed to render new_message template: %w", err)
	}
	if err := s.mailer.Send(ctx, data.Email, subject, htmlBody, textBody); err != nil {
		return fmt.Errorf("failed to send new message email: %w", err)
	}
	s.logger.DebugContext(ctx, "new message email sent", "to", data.Email)
	return nil
}
