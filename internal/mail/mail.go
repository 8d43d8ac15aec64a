// Package mail is the outbound notification port.
//
// The activation service dispatches through the Mailer interface on its own
// goroutine and never waits for (or fails on) the result — registration has
// already committed by the time mail goes out. Delivery failures are the
// mailer's to make observable, which both implementations do by returning an
// error the caller logs.
package mail

import (
	"context"
	"fmt"
	"log/slog"

	gomail "github.com/wneessen/go-mail"
)

// Mailer sends a single plain-text message.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

// SMTPMailer delivers through a real SMTP server using wneessen/go-mail.
type SMTPMailer struct {
	client *gomail.Client
	from   string
}

// NewSMTPMailer creates an SMTPMailer. Username/password are optional —
// some relays (local postfix, mailhog in development) take unauthenticated
// submissions.
func NewSMTPMailer(host string, port int, username, password, from string) (*SMTPMailer, error) {
	opts := []gomail.Option{
		gomail.WithPort(port),
		gomail.WithTLSPolicy(gomail.TLSOpportunistic),
	}
	if username != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(username),
			gomail.WithPassword(password),
		)
	}

	client, err := gomail.NewClient(host, opts...)
	if err != nil {
		return nil, fmt.Errorf("mail: creating SMTP client: %w", err)
	}

	return &SMTPMailer{client: client, from: from}, nil
}

// Send delivers one message. Each call dials, sends, and closes — the
// volume here (one mail per registration or resend) doesn't justify a held
// connection.
func (m *SMTPMailer) Send(ctx context.Context, to, subject, body string) error {
	msg := gomail.NewMsg()
	if err := msg.From(m.from); err != nil {
		return fmt.Errorf("mail: invalid from address %q: %w", m.from, err)
	}
	if err := msg.To(to); err != nil {
		return fmt.Errorf("mail: invalid recipient %q: %w", to, err)
	}
	msg.Subject(subject)
	msg.SetBodyString(gomail.TypeTextPlain, body)

	if err := m.client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("mail: sending to %s: %w", to, err)
	}
	return nil
}

// LogMailer is the stand-in used when SMTP is not configured: it writes the
// would-be message to the log and succeeds. Handy in development — the
// activation code shows up in the server output.
type LogMailer struct {
	logger *slog.Logger
}

// NewLogMailer creates a LogMailer.
func NewLogMailer(logger *slog.Logger) *LogMailer {
	return &LogMailer{logger: logger}
}

// Send logs the message instead of delivering it.
func (m *LogMailer) Send(_ context.Context, to, subject, body string) error {
	m.logger.Info("mail (not delivered — SMTP unconfigured)",
		slog.String("to", to),
		slog.String("subject", subject),
		slog.String("body", body),
	)
	return nil
}
