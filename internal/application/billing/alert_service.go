package billing

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/propsign/backend/internal/domain/billing"
	"github.com/propsign/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// ThresholdAlert is one usage alert ready to be handed to the notification
// collaborator. The tenant's contact address is resolved by the caller.
type ThresholdAlert struct {
	ResourceKind billing.ResourceKind `json:"resource_kind"`
	Threshold    int                  `json:"threshold"`
	Current      int64                `json:"current"`
	Limit        int64                `json:"limit"`
	Percent      int                  `json:"percent"`
	Message      string               `json:"message"`
}

// AlertService detects threshold crossings after usage increments and
// guarantees each (tenant, kind, threshold) fires at most once per billing
// period. The dedup fact is an AlertRecord row created with an atomic
// create-if-absent, so two concurrent evaluations of the same crossing
// cannot both fire.
//
// When one increment crosses several thresholds at once, the lowest
// unrecorded threshold fires and the rest are left for subsequent
// evaluations; at most one alert per resource kind per invocation.
type AlertService struct {
	entitlements *EntitlementService
	usage        *UsageService
	alertRepo    billing.AlertRecordRepository
	thresholds   []int
	logger       *zap.Logger
}

// NewAlertService creates a new AlertService with the default 80/90/100
// percent thresholds.
func NewAlertService(
	entitlements *EntitlementService,
	usage *UsageService,
	alertRepo billing.AlertRecordRepository,
	logger *zap.Logger,
) *AlertService {
	return &AlertService{
		entitlements: entitlements,
		usage:        usage,
		alertRepo:    alertRepo,
		thresholds:   billing.DefaultThresholds,
		logger:       logger,
	}
}

// EvaluateThresholds re-checks the tenant's current-period usage against
// its plan limits and returns the alerts that fired on this invocation.
// It is called after every successful usage increment.
func (s *AlertService) EvaluateThresholds(ctx context.Context, tenantID uuid.UUID) ([]ThresholdAlert, error) {
	if tenantID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_TENANT", "Tenant ID cannot be empty")
	}

	plan, err := s.entitlements.GetPlanFor(ctx, tenantID)
	if err != nil {
		if errors.Is(err, shared.ErrNoPlanAssigned) {
			// No limits to cross without a plan.
			return nil, nil
		}
		return nil, err
	}

	period := billing.CurrentPeriod()
	snapshot, err := s.usage.GetUsageForPeriod(ctx, tenantID, period)
	if err != nil {
		return nil, err
	}

	var fired []ThresholdAlert
	for _, kind := range billing.AllResourceKinds() {
		limit := plan.LimitFor(kind)
		if limit <= 0 {
			// Unlimited or zero-limit dimensions never alert.
			continue
		}

		current := snapshot.CountFor(kind)
		percent := billing.UsagePercent(current, limit)

		for _, threshold := range s.thresholds {
			if percent < threshold {
				break
			}

			record, err := billing.NewAlertRecord(tenantID, kind, threshold, period, current, limit)
			if err != nil {
				return nil, err
			}

			created, err := s.alertRepo.TryCreate(ctx, record)
			if err != nil {
				s.logger.Error("Failed to persist alert record",
					zap.String("tenant_id", tenantID.String()),
					zap.String("resource_kind", string(kind)),
					zap.Int("threshold", threshold),
					zap.Error(err))
				return nil, err
			}
			if !created {
				// Already fired this period (possibly by a concurrent
				// call); try the next threshold up.
				continue
			}

			fired = append(fired, ThresholdAlert{
				ResourceKind: kind,
				Threshold:    threshold,
				Current:      current,
				Limit:        limit,
				Percent:      percent,
				Message: fmt.Sprintf(
					"%s usage reached %d%% of your plan limit (%d of %d this period).",
					kind.DisplayName(), threshold, current, limit,
				),
			})

			s.logger.Info("Usage threshold alert fired",
				zap.String("tenant_id", tenantID.String()),
				zap.String("resource_kind", string(kind)),
				zap.Int("threshold", threshold),
				zap.Int64("current", current),
				zap.Int64("limit", limit))

			// One alert per resource kind per invocation.
			break
		}
	}

	return fired, nil
}

// AlertHistory returns every alert already fired for the tenant in the
// current period, for the usage dashboard.
func (s *AlertService) AlertHistory(ctx context.Context, tenantID uuid.UUID) ([]*billing.AlertRecord, error) {
	if tenantID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_TENANT", "Tenant ID cannot be empty")
	}
	return s.alertRepo.FindForPeriod(ctx, tenantID, billing.CurrentPeriod())
}
