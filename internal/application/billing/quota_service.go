package billing

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/propsign/backend/internal/domain/billing"
	"github.com/propsign/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// QuotaExceededError is returned to callers when a metered action is denied
type QuotaExceededError struct {
	ResourceKind billing.ResourceKind
	Current      int64
	Limit        int64
	Message      string
}

// Error implements the error interface
func (e *QuotaExceededError) Error() string {
	return e.Message
}

// HTTPStatusCode returns 429 Too Many Requests
func (e *QuotaExceededError) HTTPStatusCode() int {
	return http.StatusTooManyRequests
}

// NewQuotaExceededError creates a new QuotaExceededError
func NewQuotaExceededError(kind billing.ResourceKind, current, limit int64) *QuotaExceededError {
	return &QuotaExceededError{
		ResourceKind: kind,
		Current:      current,
		Limit:        limit,
		Message: fmt.Sprintf(
			"%s quota reached: %d of %d used this period. Upgrade your plan to continue.",
			kind.DisplayName(), current, limit,
		),
	}
}

// QuotaCheckResult is the gate's decision for one metered action
type QuotaCheckResult struct {
	Allowed      bool                 `json:"allowed"`
	ResourceKind billing.ResourceKind `json:"resource_kind"`
	Current      int64                `json:"current"`
	Limit        int64                `json:"limit"`
	Message      string               `json:"message,omitempty"`
}

// QuotaService is the quota gate: a pure decision function consulted before
// a metered action executes. It has no side effects; the caller performs the
// action and records usage afterward, if and only if the action completed.
// Two concurrent requests can both pass the check before either records
// usage, an accepted soft-limit design, bounded by the number of requests
// in flight.
type QuotaService struct {
	entitlements *EntitlementService
	usage        *UsageService
	logger       *zap.Logger
}

// NewQuotaService creates a new QuotaService
func NewQuotaService(entitlements *EntitlementService, usage *UsageService, logger *zap.Logger) *QuotaService {
	return &QuotaService{
		entitlements: entitlements,
		usage:        usage,
		logger:       logger,
	}
}

// CheckLimit decides whether one more unit of the given resource kind is
// allowed for the tenant in the current period. Allowed is current < limit,
// strictly: a plan with limit L permits exactly L successful actions, and
// the request arriving with current == limit is the first one denied.
func (s *QuotaService) CheckLimit(ctx context.Context, tenantID uuid.UUID, kind billing.ResourceKind) (QuotaCheckResult, error) {
	if !kind.IsValid() {
		return QuotaCheckResult{}, shared.NewDomainError("INVALID_RESOURCE_KIND", "Invalid resource kind")
	}

	plan, err := s.entitlements.GetPlanFor(ctx, tenantID)
	if err != nil {
		if errors.Is(err, shared.ErrNoPlanAssigned) {
			// Misconfigured tenant: deny with a distinguishing message
			// rather than failing the request.
			return QuotaCheckResult{
				Allowed:      false,
				ResourceKind: kind,
				Message:      "No subscription plan assigned. Choose a plan to enable this action.",
			}, nil
		}
		return QuotaCheckResult{}, err
	}

	limit := plan.LimitFor(kind)
	if limit == billing.UnlimitedLimit {
		return QuotaCheckResult{
			Allowed:      true,
			ResourceKind: kind,
			Limit:        limit,
		}, nil
	}

	current, err := s.usage.GetCurrentCount(ctx, tenantID, kind)
	if err != nil {
		s.logger.Error("Failed to read current usage",
			zap.String("tenant_id", tenantID.String()),
			zap.String("resource_kind", string(kind)),
			zap.Error(err))
		return QuotaCheckResult{}, err
	}

	result := QuotaCheckResult{
		Allowed:      current < limit,
		ResourceKind: kind,
		Current:      current,
		Limit:        limit,
	}
	if !result.Allowed {
		result.Message = NewQuotaExceededError(kind, current, limit).Message
		s.logger.Info("Quota check denied action",
			zap.String("tenant_id", tenantID.String()),
			zap.String("resource_kind", string(kind)),
			zap.Int64("current", current),
			zap.Int64("limit", limit))
	}
	return result, nil
}

// CanPerformAction is a thin facade mapping action-kind vocabulary onto
// resource kinds before delegating to CheckLimit.
func (s *QuotaService) CanPerformAction(ctx context.Context, tenantID uuid.UUID, action billing.ActionKind) (QuotaCheckResult, error) {
	kind, err := action.ResourceKind()
	if err != nil {
		return QuotaCheckResult{}, shared.NewDomainError("INVALID_ACTION", err.Error())
	}
	return s.CheckLimit(ctx, tenantID, kind)
}
