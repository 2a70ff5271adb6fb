// Package email delivers usage alerts and signature reminders over SMTP.
package email

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/smtp"
	"strings"

	appbilling "github.com/propsign/backend/internal/application/billing"
	appdocument "github.com/propsign/backend/internal/application/document"
	"github.com/propsign/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

// Ensure SMTPNotifier implements NotificationService
var _ appdocument.NotificationService = (*SMTPNotifier)(nil)

// SMTPNotifier sends transactional mail through a standard SMTP relay with
// STARTTLS. Works with Gmail, SendGrid, Mailgun, SES and similar relays on
// port 587.
type SMTPNotifier struct {
	host      string
	port      int
	username  string
	password  string
	fromName  string
	fromEmail string
	logger    *zap.Logger

	// send is swapped in tests to avoid a live SMTP connection
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// NewSMTPNotifier creates a notifier from configuration
func NewSMTPNotifier(cfg *config.EmailConfig, logger *zap.Logger) (*SMTPNotifier, error) {
	if cfg == nil {
		return nil, errors.New("email configuration is required")
	}
	if cfg.SMTPHost == "" {
		return nil, errors.New("SMTP host is required")
	}
	if cfg.FromEmail == "" {
		return nil, errors.New("from address is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	n := &SMTPNotifier{
		host:      cfg.SMTPHost,
		port:      cfg.SMTPPort,
		username:  cfg.Username,
		password:  cfg.Password,
		fromName:  cfg.FromName,
		fromEmail: cfg.FromEmail,
		logger:    logger,
	}
	n.send = n.sendViaStartTLS
	return n, nil
}

// SendUsageAlert emails a tenant that a quota threshold was crossed
func (n *SMTPNotifier) SendUsageAlert(ctx context.Context, to string, alert appbilling.ThresholdAlert) error {
	subject := fmt.Sprintf("PropSign usage alert: %s at %d%%", alert.ResourceKind.DisplayName(), alert.Percent)

	var body strings.Builder
	fmt.Fprintf(&body, "Hi,\r\n\r\n")
	fmt.Fprintf(&body, "%s\r\n\r\n", alert.Message)
	fmt.Fprintf(&body, "Current usage: %d of %d %s this billing period.\r\n\r\n",
		alert.Current, alert.Limit, alert.ResourceKind.DisplayName())
	if alert.Threshold >= 100 {
		fmt.Fprintf(&body, "Further requests of this kind will be rejected until the period resets or you upgrade your plan.\r\n\r\n")
	} else {
		fmt.Fprintf(&body, "Consider upgrading your plan if you expect more activity this period.\r\n\r\n")
	}
	fmt.Fprintf(&body, "The PropSign Team\r\n")

	return n.deliver(ctx, to, subject, body.String())
}

// SendSignatureReminder emails one recipient who has not signed yet
func (n *SMTPNotifier) SendSignatureReminder(ctx context.Context, to, recipientName, documentName string) error {
	subject := fmt.Sprintf("Reminder: %q is waiting for your signature", documentName)

	var body strings.Builder
	fmt.Fprintf(&body, "Hi %s,\r\n\r\n", recipientName)
	fmt.Fprintf(&body, "The document %q is still waiting for your signature.\r\n", documentName)
	fmt.Fprintf(&body, "Please check your inbox for the original signing link, or contact the sender.\r\n\r\n")
	fmt.Fprintf(&body, "The PropSign Team\r\n")

	return n.deliver(ctx, to, subject, body.String())
}

func (n *SMTPNotifier) deliver(ctx context.Context, to, subject, body string) error {
	if to == "" {
		return errors.New("recipient address is required")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := n.buildMessage(to, subject, body)

	var auth smtp.Auth
	if n.username != "" {
		auth = smtp.PlainAuth("", n.username, n.password, n.host)
	}

	addr := fmt.Sprintf("%s:%d", n.host, n.port)
	if err := n.send(addr, auth, n.fromEmail, []string{to}, msg); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	n.logger.Debug("email sent",
		zap.String("to", to),
		zap.String("subject", subject))
	return nil
}

func (n *SMTPNotifier) buildMessage(to, subject, body string) []byte {
	from := n.fromEmail
	if n.fromName != "" {
		from = fmt.Sprintf("%s <%s>", n.fromName, n.fromEmail)
	}

	var msg strings.Builder
	fmt.Fprintf(&msg, "From: %s\r\n", from)
	fmt.Fprintf(&msg, "To: %s\r\n", to)
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	fmt.Fprintf(&msg, "MIME-Version: 1.0\r\n")
	fmt.Fprintf(&msg, "Content-Type: text/plain; charset=UTF-8\r\n")
	fmt.Fprintf(&msg, "\r\n%s", body)
	return []byte(msg.String())
}

// sendViaStartTLS speaks plain SMTP, upgrades with STARTTLS when the relay
// offers it, then authenticates and submits the message.
func (n *SMTPNotifier) sendViaStartTLS(addr string, auth smtp.Auth, from string, to []string, msg []byte) error {
	client, err := smtp.Dial(addr)
	if err != nil {
		return err
	}
	defer client.Close()

	if ok, _ := client.Extension("STARTTLS"); ok {
		if err := client.StartTLS(&tls.Config{ServerName: n.host}); err != nil {
			return err
		}
	}

	if auth != nil {
		if ok, _ := client.Extension("AUTH"); ok {
			if err := client.Auth(auth); err != nil {
				return err
			}
		}
	}

	if err := client.Mail(from); err != nil {
		return err
	}
	for _, rcpt := range to {
		if err := client.Rcpt(rcpt); err != nil {
			return err
		}
	}

	w, err := client.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(msg); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}

	return client.Quit()
}
