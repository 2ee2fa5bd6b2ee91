// Package notify delivers batch run reports by email.
package notify

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/jordan-wright/email"

	"grazopac-backend/lib/querylog"
)

type SmtpConfig struct {
	Server       string
	Port         int
	EmailAddress string
	Password     string
}

type Options struct {
	Smtp       SmtpConfig
	Recipients []string
}

type Mailer struct {
	config Options
}

func NewMailer(options Options) Mailer {
	return Mailer{config: options}
}

// Enabled reports whether the mailer has enough configuration to
// deliver anything. Callers skip notification entirely when false.
func (m Mailer) Enabled() bool {
	return m.config.Smtp.Server != "" && len(m.config.Recipients) > 0
}

// FormatBatchReport renders the plain-text body for a finished batch
// run.
func FormatBatchReport(entries []querylog.Entry) string {
	var b strings.Builder

	succeeded := 0
	failed := 0
	for _, entry := range entries {
		if entry.Error == "" {
			succeeded++
		} else {
			failed++
		}
	}
	fmt.Fprintf(&b, "Batch run finished: %d queries, %d succeeded, %d failed.\n\n", len(entries), succeeded, failed)

	for _, entry := range entries {
		if entry.Error == "" {
			fmt.Fprintf(&b, "ok   %-8s %q: %d hits", entry.Kind, entry.Text, entry.Hits)
			if entry.FromCache {
				b.WriteString(" (cached)")
			}
			if entry.Fallback {
				b.WriteString(" (rendered)")
			}
			b.WriteString("\n")
		} else {
			fmt.Fprintf(&b, "FAIL %-8s %q: %s\n", entry.Kind, entry.Text, entry.Error)
		}
	}
	return b.String()
}

func (m Mailer) SendBatchReport(ctx context.Context, entries []querylog.Entry) error {
	ctx, span := tracer.Start(ctx, "mailer:SendBatchReport")
	defer span.End()

	mail := email.NewEmail()
	mail.From = fmt.Sprintf("Katalog-Abgleich <%s>", m.config.Smtp.EmailAddress)
	mail.To = m.config.Recipients
	mail.Subject = fmt.Sprintf("Batch run report: %d queries", len(entries))
	mail.Text = []byte(FormatBatchReport(entries))

	addr := fmt.Sprintf("%s:%d", m.config.Smtp.Server, m.config.Smtp.Port)
	err := mail.Send(addr, smtp.PlainAuth("", m.config.Smtp.EmailAddress, m.config.Smtp.Password, m.config.Smtp.Server))
	if err != nil && strings.Contains(err.Error(), "server doesn't support AUTH") {
		err = mail.Send(addr, nil)
	}
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("send batch report: %w", err)
	}
	return nil
}
