package email

import (
	"context"

	"github.com/tessera-social/tessera/internal/pkg/log"
)

// LogSender writes outgoing mail to the log instead of the wire. It is the
// fallback when SMTP is not configured, so local environments still show
// confirmation and reset links.
type LogSender struct{}

func (LogSender) Send(ctx context.Context, msg Message) error {
	log.Info("email (not sent, SMTP unconfigured) to=%v subject=%q body=%s", msg.To, msg.Subject, msg.Body)
	return nil
}
