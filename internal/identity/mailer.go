package identity

import (
	"context"

	"securelink-backend/internal/shared/telemetry"
)

// Mailer delivers verification links.
type Mailer interface {
	SendVerification(ctx context.Context, email, link string) error
}

// LogMailer writes the link to the log instead of sending mail.
type LogMailer struct{}

func (LogMailer) SendVerification(_ context.Context, email, link string) error {
	telemetry.Info("identity.verification_link", map[string]any{
		"email": email,
		"link":  link,
	})
	return nil
}
