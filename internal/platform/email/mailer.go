package email

import (
	"context"
	"fmt"

	"github.com/tessera-social/tessera/internal/platform/config"
)

// Mailer composes the transactional mails the auth flows send. The link
// base comes from the configured web domain so emails point at the frontend
// rather than the API.
type Mailer struct {
	sender Sender
	from   string
	domain string
}

// NewMailer wires a Mailer on top of a Sender.
func NewMailer(sender Sender, cfg config.EmailConfig, webDomain string) *Mailer {
	return &Mailer{sender: sender, from: cfg.FromEmail, domain: webDomain}
}

// SendConfirmation sends the account confirmation link.
func (m *Mailer) SendConfirmation(ctx context.Context, to, name, token string) error {
	link := fmt.Sprintf("%s/confirm/%s", m.domain, token)
	body := fmt.Sprintf(
		"<p>Hi %s,</p><p>Welcome to Tessera. Confirm your account by opening the link below:</p><p><a href=%q>%s</a></p>",
		name, link, link)
	return m.sender.Send(ctx, Message{
		From:    m.from,
		To:      []string{to},
		Subject: "Confirm your Tessera account",
		Body:    body,
	})
}

// SendPasswordReset sends the password reset link.
func (m *Mailer) SendPasswordReset(ctx context.Context, to, name, token string) error {
	link := fmt.Sprintf("%s/reset_password/%s", m.domain, token)
	body := fmt.Sprintf(
		"<p>Hi %s,</p><p>A password reset was requested for your account. The link below is valid for a limited time:</p><p><a href=%q>%s</a></p><p>If you did not request this, ignore this email.</p>",
		name, link, link)
	return m.sender.Send(ctx, Message{
		From:    m.from,
		To:      []string{to},
		Subject: "Reset your Tessera password",
		Body:    body,
	})
}
