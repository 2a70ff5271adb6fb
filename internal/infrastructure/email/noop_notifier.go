package email

import (
	"context"

	appbilling "github.com/propsign/backend/internal/application/billing"
	appdocument "github.com/propsign/backend/internal/application/document"
	"go.uber.org/zap"
)

// Ensure NoopNotifier implements NotificationService
var _ appdocument.NotificationService = (*NoopNotifier)(nil)

// NoopNotifier logs notifications instead of sending them. Used when
// outbound email is disabled, typically in development.
type NoopNotifier struct {
	logger *zap.Logger
}

// NewNoopNotifier creates a notifier that only logs
func NewNoopNotifier(logger *zap.Logger) *NoopNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NoopNotifier{logger: logger}
}

// SendUsageAlert logs the alert that would have been emailed
func (n *NoopNotifier) SendUsageAlert(ctx context.Context, to string, alert appbilling.ThresholdAlert) error {
	n.logger.Info("email disabled, skipping usage alert",
		zap.String("to", to),
		zap.String("resource_kind", alert.ResourceKind.String()),
		zap.Int("threshold", alert.Threshold))
	return nil
}

// SendSignatureReminder logs the reminder that would have been emailed
func (n *NoopNotifier) SendSignatureReminder(ctx context.Context, to, recipientName, documentName string) error {
	n.logger.Info("email disabled, skipping signature reminder",
		zap.String("to", to),
		zap.String("document", documentName))
	return nil
}
