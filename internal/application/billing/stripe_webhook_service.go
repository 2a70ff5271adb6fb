package billing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/propsign/backend/internal/domain/identity"
	"github.com/propsign/backend/internal/domain/shared"
	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/webhook"
	"go.uber.org/zap"
)

// StripeWebhookService verifies, deduplicates and applies Stripe webhook
// events. Stripe redelivers events until acknowledged, so every handler
// must tolerate replays; the idempotency store short-circuits exact
// duplicates before any handler runs.
type StripeWebhookService struct {
	webhookSecret string
	tenantRepo    identity.TenantRepository
	idempotency   shared.IdempotencyStore
	logger        *zap.Logger
}

// NewStripeWebhookService creates a new StripeWebhookService
func NewStripeWebhookService(
	webhookSecret string,
	tenantRepo identity.TenantRepository,
	idempotency shared.IdempotencyStore,
	logger *zap.Logger,
) *StripeWebhookService {
	return &StripeWebhookService{
		webhookSecret: webhookSecret,
		tenantRepo:    tenantRepo,
		idempotency:   idempotency,
		logger:        logger,
	}
}

// WebhookResult contains the result of processing a webhook
type WebhookResult struct {
	EventID   string `json:"event_id"`
	EventType string `json:"event_type"`
	Processed bool   `json:"processed"`
	Message   string `json:"message,omitempty"`
}

// ProcessWebhook verifies the signature and applies a Stripe event.
// A nil result means the signature check failed and the caller should
// answer 401; any other error is a processing failure on a valid event.
func (s *StripeWebhookService) ProcessWebhook(ctx context.Context, payload []byte, signature string) (*WebhookResult, error) {
	event, err := webhook.ConstructEvent(payload, signature, s.webhookSecret)
	if err != nil {
		s.logger.Error("Failed to verify webhook signature", zap.Error(err))
		return nil, fmt.Errorf("webhook signature verification failed: %w", err)
	}

	result := &WebhookResult{
		EventID:   event.ID,
		EventType: string(event.Type),
		Processed: true,
	}

	if s.idempotency != nil {
		fresh, err := s.idempotency.MarkProcessed(ctx, event.ID, shared.DefaultIdempotencyTTL)
		if err != nil {
			s.logger.Warn("idempotency check failed, processing anyway",
				zap.String("event_id", event.ID), zap.Error(err))
		} else if !fresh {
			s.logger.Info("duplicate webhook event ignored",
				zap.String("event_id", event.ID),
				zap.String("event_type", string(event.Type)))
			result.Message = "Duplicate event"
			return result, nil
		}
	}

	s.logger.Info("Processing Stripe webhook event",
		zap.String("event_id", event.ID),
		zap.String("event_type", string(event.Type)))

	switch event.Type {
	case "customer.subscription.created", "customer.subscription.updated":
		err = s.handleSubscriptionChanged(ctx, event)
	case "customer.subscription.deleted":
		err = s.handleSubscriptionDeleted(ctx, event)
	case "invoice.paid":
		err = s.handleInvoicePaid(ctx, event)
	case "invoice.payment_failed":
		err = s.handleInvoicePaymentFailed(ctx, event)
	default:
		s.logger.Debug("Unhandled webhook event type",
			zap.String("event_type", string(event.Type)))
		result.Message = "Event type not handled"
	}

	if err != nil {
		s.logger.Error("Failed to process webhook event",
			zap.String("event_id", event.ID),
			zap.String("event_type", string(event.Type)),
			zap.Error(err))
		result.Processed = false
		result.Message = err.Error()
		return result, err
	}

	return result, nil
}

// handleSubscriptionChanged applies subscription create and update events.
// The plan reference travels in the subscription metadata we set at creation.
func (s *StripeWebhookService) handleSubscriptionChanged(ctx context.Context, event stripe.Event) error {
	var subscription stripe.Subscription
	if err := json.Unmarshal(event.Data.Raw, &subscription); err != nil {
		return fmt.Errorf("failed to unmarshal subscription: %w", err)
	}

	tenant, err := s.findTenantForSubscription(ctx, &subscription)
	if err != nil || tenant == nil {
		return err
	}

	if tenant.StripeSubscriptionID != subscription.ID {
		tenant.SetStripeSubscriptionID(subscription.ID)
	}

	switch subscription.Status {
	case stripe.SubscriptionStatusActive, stripe.SubscriptionStatusTrialing:
		if planID, ok := subscription.Metadata["plan_id"]; ok && tenant.PlanID != planID {
			if err := tenant.AssignPlan(planID); err != nil {
				s.logger.Warn("Failed to assign tenant plan",
					zap.String("plan_id", planID), zap.Error(err))
			}
		}
		if tenant.IsSuspended() {
			tenant.Activate()
		}
		if subscription.CurrentPeriodEnd > 0 {
			tenant.SetExpiration(time.Unix(subscription.CurrentPeriodEnd, 0))
		}
	case stripe.SubscriptionStatusPastDue, stripe.SubscriptionStatusUnpaid:
		s.logger.Warn("Subscription payment issue",
			zap.String("tenant_id", tenant.ID.String()),
			zap.String("status", string(subscription.Status)))
	}

	if err := s.tenantRepo.Update(ctx, tenant); err != nil {
		return fmt.Errorf("failed to update tenant: %w", err)
	}

	s.logger.Info("Subscription event applied",
		zap.String("tenant_id", tenant.ID.String()),
		zap.String("subscription_id", subscription.ID),
		zap.String("status", string(subscription.Status)))
	return nil
}

// handleSubscriptionDeleted drops the tenant to the free plan
func (s *StripeWebhookService) handleSubscriptionDeleted(ctx context.Context, event stripe.Event) error {
	var subscription stripe.Subscription
	if err := json.Unmarshal(event.Data.Raw, &subscription); err != nil {
		return fmt.Errorf("failed to unmarshal subscription: %w", err)
	}

	tenant, err := s.findTenantForSubscription(ctx, &subscription)
	if err != nil || tenant == nil {
		return err
	}

	tenant.SetStripeSubscriptionID("")
	if err := tenant.AssignPlan("free"); err != nil {
		s.logger.Warn("Failed to set tenant to free plan", zap.Error(err))
	}
	tenant.ClearExpiration()

	if err := s.tenantRepo.Update(ctx, tenant); err != nil {
		return fmt.Errorf("failed to update tenant: %w", err)
	}

	s.logger.Info("Subscription deleted, tenant moved to free plan",
		zap.String("tenant_id", tenant.ID.String()),
		zap.String("subscription_id", subscription.ID))
	return nil
}

// handleInvoicePaid reactivates the tenant and extends the period end
func (s *StripeWebhookService) handleInvoicePaid(ctx context.Context, event stripe.Event) error {
	var invoice stripe.Invoice
	if err := json.Unmarshal(event.Data.Raw, &invoice); err != nil {
		return fmt.Errorf("failed to unmarshal invoice: %w", err)
	}

	if invoice.Subscription == nil {
		s.logger.Debug("Invoice is not for a subscription, skipping",
			zap.String("invoice_id", invoice.ID))
		return nil
	}

	tenant, err := s.findTenantForCustomer(ctx, invoice.Customer, invoice.ID)
	if err != nil || tenant == nil {
		return err
	}

	if tenant.IsSuspended() {
		tenant.Activate()
	}
	if invoice.PeriodEnd > 0 {
		tenant.SetExpiration(time.Unix(invoice.PeriodEnd, 0))
	}

	if err := s.tenantRepo.Update(ctx, tenant); err != nil {
		return fmt.Errorf("failed to update tenant: %w", err)
	}

	s.logger.Info("Invoice paid applied",
		zap.String("tenant_id", tenant.ID.String()),
		zap.String("invoice_id", invoice.ID))
	return nil
}

// handleInvoicePaymentFailed suspends the tenant until payment succeeds
func (s *StripeWebhookService) handleInvoicePaymentFailed(ctx context.Context, event stripe.Event) error {
	var invoice stripe.Invoice
	if err := json.Unmarshal(event.Data.Raw, &invoice); err != nil {
		return fmt.Errorf("failed to unmarshal invoice: %w", err)
	}

	if invoice.Subscription == nil {
		return nil
	}

	tenant, err := s.findTenantForCustomer(ctx, invoice.Customer, invoice.ID)
	if err != nil || tenant == nil {
		return err
	}

	if !tenant.IsSuspended() {
		tenant.Suspend()
	}

	if err := s.tenantRepo.Update(ctx, tenant); err != nil {
		return fmt.Errorf("failed to update tenant: %w", err)
	}

	s.logger.Warn("Tenant suspended after failed payment",
		zap.String("tenant_id", tenant.ID.String()),
		zap.String("invoice_id", invoice.ID))
	return nil
}

// findTenantForSubscription resolves the owning tenant of a subscription
// event. A missing tenant is not an error: webhooks can arrive before
// tenant setup completes, and must be acknowledged to stop redelivery.
func (s *StripeWebhookService) findTenantForSubscription(ctx context.Context, subscription *stripe.Subscription) (*identity.Tenant, error) {
	customerID := ""
	if subscription.Customer != nil {
		customerID = subscription.Customer.ID
	}
	if customerID == "" {
		s.logger.Warn("Subscription has no customer ID, skipping",
			zap.String("subscription_id", subscription.ID))
		return nil, nil
	}

	tenant, err := s.tenantRepo.FindByStripeCustomerID(ctx, customerID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			s.logger.Warn("Tenant not found for Stripe customer",
				zap.String("customer_id", customerID))
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find tenant: %w", err)
	}
	return tenant, nil
}

func (s *StripeWebhookService) findTenantForCustomer(ctx context.Context, cust *stripe.Customer, invoiceID string) (*identity.Tenant, error) {
	if cust == nil || cust.ID == "" {
		s.logger.Warn("Invoice has no customer ID, skipping",
			zap.String("invoice_id", invoiceID))
		return nil, nil
	}

	tenant, err := s.tenantRepo.FindByStripeCustomerID(ctx, cust.ID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			s.logger.Warn("Tenant not found for Stripe customer",
				zap.String("customer_id", cust.ID))
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find tenant: %w", err)
	}
	return tenant, nil
}
