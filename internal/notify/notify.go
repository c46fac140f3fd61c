// Package notify tells photo uploaders about moderation decisions.
//
// Delivery is best-effort throughout: callers log a returned error and move
// on, a moderation change is never rolled back because mail failed.
package notify

import (
	"bytes"
	"context"
	"log/slog"
	netmail "net/mail"
	"text/template"
)

// Notifier sends moderation outcome messages.
type Notifier interface {
	SendApproved(ctx context.Context, to, eventName, photoURL string) error
	SendRejected(ctx context.Context, to, eventName, reason string) error
}

// message is the data every template renders from.
type message struct {
	EventName string
	PhotoURL  string
	Reason    string
}

var (
	approvedSubject = template.Must(template.New("approved-subject").Parse(
		`Your photo for {{.EventName}} is live`))
	approvedBody = template.Must(template.New("approved-body").Parse(
		`Good news!

The photo you shared for "{{.EventName}}" has been approved by the host
and is now visible in the public gallery.

{{.PhotoURL}}

Thanks for sharing,
PhotoLog
`))

	rejectedSubject = template.Must(template.New("rejected-subject").Parse(
		`An update on your photo for {{.EventName}}`))
	rejectedBody = template.Must(template.New("rejected-body").Parse(
		`Hello,

The host of "{{.EventName}}" has decided not to show your photo in the
public gallery.
{{- if .Reason}}

Reason: {{.Reason}}
{{- end}}

Thanks for sharing,
PhotoLog
`))
)

// recipient validates to as a bare email address. uploaded_by may hold a
// user id rather than an email; such recipients are skipped.
func recipient(logger *slog.Logger, to string) (string, bool) {
	addr, err := netmail.ParseAddress(to)
	if err != nil {
		logger.Warn("skipping notification to non-email recipient", slog.String("recipient", to))
		return "", false
	}
	return addr.Address, true
}

func render(t *template.Template, m message) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, m); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// LogNotifier writes would-be messages to the log. It is used when SMTP is
// not configured.
type LogNotifier struct {
	logger *slog.Logger
}

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) SendApproved(_ context.Context, to, eventName, photoURL string) error {
	addr, ok := recipient(n.logger, to)
	if !ok {
		return nil
	}
	n.logger.Info("photo approved notification",
		slog.String("to", addr),
		slog.String("event", eventName),
		slog.String("photoURL", photoURL),
	)
	return nil
}

func (n *LogNotifier) SendRejected(_ context.Context, to, eventName, reason string) error {
	addr, ok := recipient(n.logger, to)
	if !ok {
		return nil
	}
	n.logger.Info("photo rejected notification",
		slog.String("to", addr),
		slog.String("event", eventName),
		slog.String("reason", reason),
	)
	return nil
}
