package email

import "context"

// Message is one outbound transactional mail. Body is HTML.
type Message struct {
	From    string
	To      []string
	Subject string
	Body    string
}

// Sender delivers transactional mail. Implementations: SMTPSender for a
// real relay, LogSender when mail is unconfigured.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}
