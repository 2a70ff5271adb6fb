package billing

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/propsign/backend/internal/domain/billing"
	"github.com/propsign/backend/internal/domain/identity"
	"github.com/propsign/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// EntitlementService resolves a tenant to its current plan's numeric
// limits. A tenant with no plan reference, or one whose referenced plan
// cannot be found, gets ErrNoPlanAssigned. Callers must treat that as
// "deny all metered actions", never as unlimited.
type EntitlementService struct {
	tenantRepo identity.TenantRepository
	planRepo   billing.PlanRepository
	logger     *zap.Logger
}

// NewEntitlementService creates a new EntitlementService
func NewEntitlementService(
	tenantRepo identity.TenantRepository,
	planRepo billing.PlanRepository,
	logger *zap.Logger,
) *EntitlementService {
	return &EntitlementService{
		tenantRepo: tenantRepo,
		planRepo:   planRepo,
		logger:     logger,
	}
}

// GetPlanFor looks up tenant → plan id → plan limits
func (s *EntitlementService) GetPlanFor(ctx context.Context, tenantID uuid.UUID) (*billing.Plan, error) {
	if tenantID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_TENANT", "Tenant ID cannot be empty")
	}

	tenant, err := s.tenantRepo.FindByID(ctx, tenantID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.NewDomainError("TENANT_NOT_FOUND", "Tenant not found")
		}
		s.logger.Error("Failed to find tenant", zap.String("tenant_id", tenantID.String()), zap.Error(err))
		return nil, err
	}

	if !tenant.HasPlan() {
		return nil, shared.ErrNoPlanAssigned
	}

	plan, err := s.planRepo.FindByID(ctx, tenant.PlanID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			// A dangling plan reference is a misconfigured tenant, not an
			// unlimited one.
			s.logger.Warn("Tenant references unknown plan",
				zap.String("tenant_id", tenantID.String()),
				zap.String("plan_id", tenant.PlanID))
			return nil, shared.ErrNoPlanAssigned
		}
		s.logger.Error("Failed to find plan", zap.String("plan_id", tenant.PlanID), zap.Error(err))
		return nil, err
	}

	return plan, nil
}
