package domain

import "context"

// Mailer defines the contract for sending emails (infrastructure port).
type Mailer interface {
	Send(ctx context.Context, to, subject, html, text string) error
}

// EmailTemplateRenderer renders email content from a named template with the given data.
type EmailTemplateRenderer interface {
	Render(templateName string, data any) (subject, htmlBody, textBody string, err error)
}

// NewMessageEmailData holds data for the "you have a new message" email.
type NewMessageEmailData struct {
	Email        string
	ReceiverName string
	SenderName   string
	Subject      string
}

// EmailService sends domain-level emails.
type EmailService interface {
	SendNewMessage(ctx context.Context, data *NewMessageEmailData) error
}
