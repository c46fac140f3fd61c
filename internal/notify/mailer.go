package notify

import (
	"context"
	"fmt"
	"log/slog"
	"text/template"

	"github.com/wneessen/go-mail"
)

// sender is the part of *mail.Client the Mailer uses.
type sender interface {
	DialAndSendWithContext(ctx context.Context, messages ...*mail.Msg) error
}

// MailerConfig holds SMTP parameters.
type MailerConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// Mailer delivers notifications over SMTP. Each send dials a fresh
// connection; moderation mail is rare enough that pooling buys nothing.
type Mailer struct {
	client sender
	from   string
	logger *slog.Logger
}

var _ Notifier = (*Mailer)(nil)

// NewMailer builds an SMTP client. TLS is used when the server offers it;
// authentication only when a username is configured.
func NewMailer(cfg MailerConfig, logger *slog.Logger) (*Mailer, error) {
	opts := []mail.Option{
		mail.WithPort(cfg.Port),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
	}
	if cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.Username),
			mail.WithPassword(cfg.Password),
		)
	}

	client, err := mail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("notify: creating smtp client: %w", err)
	}
	return newMailerWithSender(client, cfg.From, logger), nil
}

func newMailerWithSender(s sender, from string, logger *slog.Logger) *Mailer {
	return &Mailer{client: s, from: from, logger: logger}
}

func (m *Mailer) SendApproved(ctx context.Context, to, eventName, photoURL string) error {
	return m.send(ctx, to, approvedSubject, approvedBody, message{EventName: eventName, PhotoURL: photoURL})
}

func (m *Mailer) SendRejected(ctx context.Context, to, eventName, reason string) error {
	return m.send(ctx, to, rejectedSubject, rejectedBody, message{EventName: eventName, Reason: reason})
}

func (m *Mailer) send(ctx context.Context, to string, subject, body *template.Template, data message) error {
	addr, ok := recipient(m.logger, to)
	if !ok {
		return nil
	}

	msg, err := m.compose(addr, subject, body, data)
	if err != nil {
		return err
	}
	if err := m.client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("notify: sending to %s: %w", addr, err)
	}

	m.logger.Debug("notification sent", slog.String("to", addr), slog.String("event", data.EventName))
	return nil
}

func (m *Mailer) compose(to string, subject, body *template.Template, data message) (*mail.Msg, error) {
	msg := mail.NewMsg()
	if err := msg.From(m.from); err != nil {
		return nil, fmt.Errorf("notify: invalid sender %q: %w", m.from, err)
	}
	if err := msg.To(to); err != nil {
		return nil, fmt.Errorf("notify: invalid recipient: %w", err)
	}

	s, err := render(subject, data)
	if err != nil {
		return nil, fmt.Errorf("notify: rendering subject: %w", err)
	}
	msg.Subject(s)

	if err := msg.SetBodyTextTemplate(body, data); err != nil {
		return nil, fmt.Errorf("notify: rendering body: %w", err)
	}
	return msg, nil
}
