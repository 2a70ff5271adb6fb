package document

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/propsign/backend/internal/domain/document"
	"go.uber.org/zap"
)

// ReminderConfig holds the reminder sweep's timing rules
type ReminderConfig struct {
	// StaleAfter is how long a signature request must have been open
	// before the first reminder is due.
	StaleAfter time.Duration
	// CoolDown is the minimum gap between two reminders to the same
	// recipient.
	CoolDown time.Duration
}

// DefaultReminderConfig returns the default timing: first reminder after
// three days, then at most one every two days.
func DefaultReminderConfig() ReminderConfig {
	return ReminderConfig{
		StaleAfter: 72 * time.Hour,
		CoolDown:   48 * time.Hour,
	}
}

// SweepResult summarizes one reminder sweep
type SweepResult struct {
	Examined int `json:"examined"`
	Sent     int `json:"sent"`
	Failed   int `json:"failed"`
}

func (r *SweepResult) add(other SweepResult) {
	r.Examined += other.Examined
	r.Sent += other.Sent
	r.Failed += other.Failed
}

// ReminderService finds stale signature requests and nudges their
// recipients. The manual per-tenant trigger and the recurring scheduler
// share the same sweep; a failed send leaves the request untouched so the
// next sweep retries it.
type ReminderService struct {
	sigRepo  document.PendingSignatureRepository
	docRepo  document.Repository
	notifier NotificationService
	config   ReminderConfig
	now      func() time.Time
	logger   *zap.Logger
}

// NewReminderService creates a new ReminderService
func NewReminderService(
	sigRepo document.PendingSignatureRepository,
	docRepo document.Repository,
	notifier NotificationService,
	logger *zap.Logger,
) *ReminderService {
	return &ReminderService{
		sigRepo:  sigRepo,
		docRepo:  docRepo,
		notifier: notifier,
		config:   DefaultReminderConfig(),
		now:      time.Now,
		logger:   logger,
	}
}

// SetConfig sets the timing rules
func (s *ReminderService) SetConfig(config ReminderConfig) {
	s.config = config
}

// SweepTenant sends reminders for every due signature request of one
// tenant. Recipients fail independently: a failed send is logged and
// counted, and the sweep moves on.
func (s *ReminderService) SweepTenant(ctx context.Context, tenantID uuid.UUID) (SweepResult, error) {
	sigs, err := s.sigRepo.FindOpenForTenant(ctx, tenantID)
	if err != nil {
		return SweepResult{}, err
	}

	now := s.now()
	result := SweepResult{Examined: len(sigs)}
	docNames := make(map[uuid.UUID]string)

	for _, sig := range sigs {
		if !sig.NeedsReminder(now, s.config.StaleAfter, s.config.CoolDown) {
			continue
		}

		docName, ok := docNames[sig.DocumentID]
		if !ok {
			doc, err := s.docRepo.FindByID(ctx, sig.DocumentID)
			if err != nil {
				s.logger.Warn("Could not load document for reminder",
					zap.String("document_id", sig.DocumentID.String()),
					zap.Error(err))
				result.Failed++
				continue
			}
			docName = doc.Name
			docNames[sig.DocumentID] = docName
		}

		if err := s.notifier.SendSignatureReminder(ctx, sig.RecipientEmail, sig.RecipientName, docName); err != nil {
			s.logger.Warn("Failed to send signature reminder",
				zap.String("tenant_id", tenantID.String()),
				zap.String("recipient", sig.RecipientEmail),
				zap.Error(err))
			result.Failed++
			continue
		}

		// Only a delivered reminder advances the clock.
		if err := sig.RecordReminder(now); err != nil {
			s.logger.Warn("Could not record reminder",
				zap.String("signature_id", sig.ID.String()),
				zap.Error(err))
			result.Failed++
			continue
		}
		if err := s.sigRepo.Update(ctx, sig); err != nil {
			s.logger.Error("Failed to persist reminder state",
				zap.String("signature_id", sig.ID.String()),
				zap.Error(err))
			result.Failed++
			continue
		}
		result.Sent++
	}

	if result.Sent > 0 || result.Failed > 0 {
		s.logger.Info("Reminder sweep finished",
			zap.String("tenant_id", tenantID.String()),
			zap.Int("examined", result.Examined),
			zap.Int("sent", result.Sent),
			zap.Int("failed", result.Failed))
	}
	return result, nil
}

// SweepAll visits every tenant with open signature requests. One tenant's
// failure does not stop the sweep for the rest.
func (s *ReminderService) SweepAll(ctx context.Context) (SweepResult, error) {
	tenantIDs, err := s.sigRepo.TenantsWithOpenSignatures(ctx)
	if err != nil {
		return SweepResult{}, err
	}

	var total SweepResult
	for _, tenantID := range tenantIDs {
		if ctx.Err() != nil {
			return total, ctx.Err()
		}
		result, err := s.SweepTenant(ctx, tenantID)
		if err != nil {
			s.logger.Error("Reminder sweep failed for tenant",
				zap.String("tenant_id", tenantID.String()),
				zap.Error(err))
			continue
		}
		total.add(result)
	}
	return total, nil
}
