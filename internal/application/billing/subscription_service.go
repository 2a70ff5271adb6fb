package billing

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/propsign/backend/internal/domain/billing"
	"github.com/propsign/backend/internal/domain/identity"
	"github.com/propsign/backend/internal/domain/shared"
	infrabilling "github.com/propsign/backend/internal/infrastructure/billing"
	"go.uber.org/zap"
)

// PaymentGateway is the subset of the Stripe adapter the subscription flow
// needs. Kept as an interface so tests run without Stripe credentials.
type PaymentGateway interface {
	CreateCustomer(ctx context.Context, input infrabilling.CreateCustomerInput) (*infrabilling.CreateCustomerOutput, error)
	CreateSubscription(ctx context.Context, input infrabilling.CreateSubscriptionInput) (*infrabilling.CreateSubscriptionOutput, error)
	CancelSubscription(ctx context.Context, subscriptionID string, atPeriodEnd bool) (*infrabilling.CancelSubscriptionOutput, error)
}

// SubscriptionService signs tenants up for plans. Free plans activate
// immediately; paid plans go through Stripe and activate when the
// invoice.paid webhook arrives.
type SubscriptionService struct {
	tenantRepo identity.TenantRepository
	planRepo   billing.PlanRepository
	gateway    PaymentGateway
	logger     *zap.Logger
}

// NewSubscriptionService creates a new SubscriptionService
func NewSubscriptionService(
	tenantRepo identity.TenantRepository,
	planRepo billing.PlanRepository,
	gateway PaymentGateway,
	logger *zap.Logger,
) *SubscriptionService {
	return &SubscriptionService{
		tenantRepo: tenantRepo,
		planRepo:   planRepo,
		gateway:    gateway,
		logger:     logger,
	}
}

// SubscribeResult is returned to the API layer after a subscribe call
type SubscribeResult struct {
	PlanID         string `json:"plan_id"`
	Status         string `json:"status"`
	SubscriptionID string `json:"subscription_id,omitempty"`
	// ClientSecret lets the frontend confirm the initial payment
	ClientSecret string `json:"client_secret,omitempty"`
}

// Subscribe puts a tenant on a plan
func (s *SubscriptionService) Subscribe(ctx context.Context, tenantID uuid.UUID, planID string) (*SubscribeResult, error) {
	if tenantID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_TENANT", "Tenant ID cannot be empty")
	}
	if planID == "" {
		return nil, shared.NewDomainError("INVALID_PLAN", "Plan ID cannot be empty")
	}

	tenant, err := s.tenantRepo.FindByID(ctx, tenantID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.NewDomainError("TENANT_NOT_FOUND", "Tenant not found")
		}
		return nil, err
	}

	plan, err := s.planRepo.FindByID(ctx, planID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.NewDomainError("PLAN_NOT_FOUND", "Plan not found")
		}
		return nil, err
	}
	if !plan.Active {
		return nil, shared.NewDomainError("PLAN_INACTIVE", "Plan is no longer offered")
	}

	// Free plans skip Stripe entirely
	if plan.PriceCents == 0 {
		if err := tenant.AssignPlan(plan.ID); err != nil {
			return nil, err
		}
		if err := s.tenantRepo.Update(ctx, tenant); err != nil {
			return nil, fmt.Errorf("failed to update tenant: %w", err)
		}
		s.logger.Info("tenant subscribed to free plan",
			zap.String("tenant_id", tenantID.String()),
			zap.String("plan_id", plan.ID))
		return &SubscribeResult{PlanID: plan.ID, Status: "active"}, nil
	}

	if s.gateway == nil {
		return nil, shared.NewDomainError("BILLING_UNAVAILABLE", "Payment processing is not configured")
	}

	customerID, err := s.ensureStripeCustomer(ctx, tenant)
	if err != nil {
		return nil, err
	}

	sub, err := s.gateway.CreateSubscription(ctx, infrabilling.CreateSubscriptionInput{
		TenantID:   tenant.ID,
		CustomerID: customerID,
		PlanID:     plan.ID,
		PriceID:    plan.StripePriceID,
	})
	if err != nil {
		return nil, err
	}

	tenant.SetStripeSubscriptionID(sub.SubscriptionID)
	if sub.Status.IsActive() {
		// Trial or already-paid subscription activates the plan right away;
		// otherwise the invoice.paid webhook assigns it.
		if err := tenant.AssignPlan(plan.ID); err != nil {
			return nil, err
		}
		tenant.SetExpiration(sub.CurrentPeriodEnd)
	}
	if err := s.tenantRepo.Update(ctx, tenant); err != nil {
		return nil, fmt.Errorf("failed to update tenant: %w", err)
	}

	s.logger.Info("tenant subscription created",
		zap.String("tenant_id", tenantID.String()),
		zap.String("plan_id", plan.ID),
		zap.String("subscription_id", sub.SubscriptionID),
		zap.String("status", sub.Status.String()))

	return &SubscribeResult{
		PlanID:         plan.ID,
		Status:         sub.Status.String(),
		SubscriptionID: sub.SubscriptionID,
		ClientSecret:   sub.ClientSecret,
	}, nil
}

// Cancel ends a tenant's paid subscription at the period end
func (s *SubscriptionService) Cancel(ctx context.Context, tenantID uuid.UUID) error {
	tenant, err := s.tenantRepo.FindByID(ctx, tenantID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return shared.NewDomainError("TENANT_NOT_FOUND", "Tenant not found")
		}
		return err
	}
	if tenant.StripeSubscriptionID == "" {
		return shared.NewDomainError("NO_SUBSCRIPTION", "Tenant has no active subscription")
	}
	if s.gateway == nil {
		return shared.NewDomainError("BILLING_UNAVAILABLE", "Payment processing is not configured")
	}

	if _, err := s.gateway.CancelSubscription(ctx, tenant.StripeSubscriptionID, true); err != nil {
		return err
	}

	s.logger.Info("tenant subscription set to cancel at period end",
		zap.String("tenant_id", tenantID.String()),
		zap.String("subscription_id", tenant.StripeSubscriptionID))
	return nil
}

// ListPlans returns the offered plan catalog
func (s *SubscriptionService) ListPlans(ctx context.Context) ([]*billing.Plan, error) {
	return s.planRepo.FindAllActive(ctx)
}

func (s *SubscriptionService) ensureStripeCustomer(ctx context.Context, tenant *identity.Tenant) (string, error) {
	if tenant.StripeCustomerID != "" {
		return tenant.StripeCustomerID, nil
	}

	cust, err := s.gateway.CreateCustomer(ctx, infrabilling.CreateCustomerInput{
		TenantID: tenant.ID,
		Email:    tenant.Email,
		Name:     tenant.Name,
	})
	if err != nil {
		return "", err
	}

	tenant.SetStripeCustomerID(cust.CustomerID)
	if err := s.tenantRepo.Update(ctx, tenant); err != nil {
		return "", fmt.Errorf("failed to persist stripe customer id: %w", err)
	}
	return cust.CustomerID, nil
}
