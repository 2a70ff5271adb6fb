package billing

import (
	"context"

	"github.com/google/uuid"
	"github.com/propsign/backend/internal/domain/billing"
	"github.com/propsign/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// UsageService is the usage ledger: append-only counters of consumed quota
// per tenant, per resource kind, per billing period. The increment is
// delegated to the repository as one atomic upsert-and-add so concurrent
// calls for the same key never lose updates.
type UsageService struct {
	usageRepo billing.UsageRecordRepository
	logger    *zap.Logger
}

// NewUsageService creates a new UsageService
func NewUsageService(usageRepo billing.UsageRecordRepository, logger *zap.Logger) *UsageService {
	return &UsageService{
		usageRepo: usageRepo,
		logger:    logger,
	}
}

// RecordUsage adds amount (default 1) to the counter for the given key and
// returns the new total. Counters only ever grow; a downstream failure after
// this call does not undo it; usage reflects "attempted".
func (s *UsageService) RecordUsage(ctx context.Context, tenantID uuid.UUID, kind billing.ResourceKind, period billing.Period, amount int64) (int64, error) {
	if tenantID == uuid.Nil {
		return 0, shared.NewDomainError("INVALID_TENANT", "Tenant ID cannot be empty")
	}
	if !kind.IsValid() {
		return 0, shared.NewDomainError("INVALID_RESOURCE_KIND", "Invalid resource kind")
	}
	if !period.IsValid() {
		return 0, shared.NewDomainError("INVALID_PERIOD", "Period must have the form YYYY-MM")
	}
	if amount <= 0 {
		amount = 1
	}

	total, err := s.usageRepo.Increment(ctx, tenantID, kind, period, amount)
	if err != nil {
		s.logger.Error("Failed to increment usage counter",
			zap.String("tenant_id", tenantID.String()),
			zap.String("resource_kind", string(kind)),
			zap.String("period", string(period)),
			zap.Error(err))
		return 0, err
	}

	s.logger.Debug("Recorded usage",
		zap.String("tenant_id", tenantID.String()),
		zap.String("resource_kind", string(kind)),
		zap.String("period", string(period)),
		zap.Int64("amount", amount),
		zap.Int64("new_total", total))

	return total, nil
}

// GetUsageForPeriod aggregates all resource kinds for a tenant and period,
// defaulting absent kinds to zero.
func (s *UsageService) GetUsageForPeriod(ctx context.Context, tenantID uuid.UUID, period billing.Period) (billing.UsageSnapshot, error) {
	if tenantID == uuid.Nil {
		return billing.UsageSnapshot{}, shared.NewDomainError("INVALID_TENANT", "Tenant ID cannot be empty")
	}
	if !period.IsValid() {
		return billing.UsageSnapshot{}, shared.NewDomainError("INVALID_PERIOD", "Period must have the form YYYY-MM")
	}

	counts, err := s.usageRepo.GetPeriodUsage(ctx, tenantID, period)
	if err != nil {
		return billing.UsageSnapshot{}, err
	}
	return billing.NewUsageSnapshot(tenantID, period, counts), nil
}

// GetCurrentCount returns the counter for one kind in the current period
func (s *UsageService) GetCurrentCount(ctx context.Context, tenantID uuid.UUID, kind billing.ResourceKind) (int64, error) {
	return s.usageRepo.GetCount(ctx, tenantID, kind, billing.CurrentPeriod())
}
