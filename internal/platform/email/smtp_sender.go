package email

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"
)

// SMTPSender delivers mail through a plain SMTP relay.
type SMTPSender struct {
	addr     string
	host     string
	username string
	password string
}

// NewSMTPSender wires an SMTP relay. Host and port are required; with no
// username the relay is used unauthenticated.
func NewSMTPSender(host, port, username, password string) (*SMTPSender, error) {
	if host == "" || port == "" {
		return nil, fmt.Errorf("smtp: host and port are required")
	}
	return &SMTPSender{
		addr:     fmt.Sprintf("%s:%s", host, port),
		host:     host,
		username: username,
		password: password,
	}, nil
}

// Send builds an RFC 822 HTML message and hands it to the relay. The
// context is checked up front; net/smtp has no cancellation mid-flight.
func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	var auth smtp.Auth
	if s.username != "" {
		auth = smtp.PlainAuth("", s.username, s.password, s.host)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", msg.From)
	fmt.Fprintf(&b, "To: %s\r\n", strings.Join(msg.To, ", "))
	fmt.Fprintf(&b, "Subject: %s\r\n", msg.Subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n\r\n")
	b.WriteString(msg.Body)

	return smtp.SendMail(s.addr, auth, msg.From, msg.To, []byte(b.String()))
}
