package email

import (
	"context"
	"net/smtp"
	"testing"

	appbilling "github.com/propsign/backend/internal/application/billing"
	"github.com/propsign/backend/internal/domain/billing"
	"github.com/propsign/backend/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type capturedMail struct {
	addr string
	from string
	to   []string
	msg  string
}

func newCapturingNotifier(t *testing.T) (*SMTPNotifier, *capturedMail) {
	t.Helper()

	notifier, err := NewSMTPNotifier(&config.EmailConfig{
		SMTPHost:  "smtp.test",
		SMTPPort:  587,
		Username:  "apikey",
		Password:  "secret",
		FromName:  "PropSign",
		FromEmail: "noreply@propsign.test",
	}, zap.NewNop())
	require.NoError(t, err)

	captured := &capturedMail{}
	notifier.send = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		captured.addr = addr
		captured.from = from
		captured.to = to
		captured.msg = string(msg)
		return nil
	}
	return notifier, captured
}

func TestNewSMTPNotifier_Validation(t *testing.T) {
	_, err := NewSMTPNotifier(nil, zap.NewNop())
	require.Error(t, err)

	_, err = NewSMTPNotifier(&config.EmailConfig{FromEmail: "a@b.c"}, zap.NewNop())
	require.Error(t, err)

	_, err = NewSMTPNotifier(&config.EmailConfig{SMTPHost: "smtp.test"}, zap.NewNop())
	require.Error(t, err)
}

func TestSMTPNotifier_SendUsageAlert(t *testing.T) {
	notifier, captured := newCapturingNotifier(t)

	err := notifier.SendUsageAlert(context.Background(), "owner@acme.test", appbilling.ThresholdAlert{
		ResourceKind: billing.ResourceKindDocument,
		Threshold:    80,
		Current:      4,
		Limit:        5,
		Percent:      80,
		Message:      "You have used 80% of your document uploads for this period.",
	})

	require.NoError(t, err)
	assert.Equal(t, "smtp.test:587", captured.addr)
	assert.Equal(t, "noreply@propsign.test", captured.from)
	assert.Equal(t, []string{"owner@acme.test"}, captured.to)
	assert.Contains(t, captured.msg, "From: PropSign <noreply@propsign.test>")
	assert.Contains(t, captured.msg, "Subject: PropSign usage alert")
	assert.Contains(t, captured.msg, "4 of 5")
	assert.Contains(t, captured.msg, "Consider upgrading")
}

func TestSMTPNotifier_SendUsageAlertAtHardLimit(t *testing.T) {
	notifier, captured := newCapturingNotifier(t)

	err := notifier.SendUsageAlert(context.Background(), "owner@acme.test", appbilling.ThresholdAlert{
		ResourceKind: billing.ResourceKindEnvelope,
		Threshold:    100,
		Current:      3,
		Limit:        3,
		Percent:      100,
		Message:      "You have reached your signature envelope limit for this period.",
	})

	require.NoError(t, err)
	assert.Contains(t, captured.msg, "will be rejected")
}

func TestSMTPNotifier_SendSignatureReminder(t *testing.T) {
	notifier, captured := newCapturingNotifier(t)

	err := notifier.SendSignatureReminder(context.Background(), "buyer@example.com", "Ana Ruiz", "purchase-agreement.pdf")

	require.NoError(t, err)
	assert.Equal(t, []string{"buyer@example.com"}, captured.to)
	assert.Contains(t, captured.msg, "Hi Ana Ruiz")
	assert.Contains(t, captured.msg, `"purchase-agreement.pdf"`)
	assert.Contains(t, captured.msg, "waiting for your signature")
}

func TestSMTPNotifier_RejectsEmptyRecipient(t *testing.T) {
	notifier, _ := newCapturingNotifier(t)

	err := notifier.SendSignatureReminder(context.Background(), "", "Ana", "doc.pdf")
	require.Error(t, err)
}
