// Package billing integrates with Stripe for subscription payments.
package billing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/propsign/backend/internal/infrastructure/config"
	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/customer"
	"github.com/stripe/stripe-go/v81/subscription"
	"go.uber.org/zap"
)

// StripeAdapter wraps the Stripe API for customer and subscription management
type StripeAdapter struct {
	config *config.StripeConfig
	logger *zap.Logger
}

// NewStripeAdapter creates a new Stripe adapter and installs the API key
func NewStripeAdapter(cfg *config.StripeConfig, logger *zap.Logger) (*StripeAdapter, error) {
	if cfg == nil {
		return nil, errors.New("stripe configuration is required")
	}
	if cfg.APIKey == "" {
		return nil, errors.New("stripe API key is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	stripe.Key = cfg.APIKey

	return &StripeAdapter{
		config: cfg,
		logger: logger,
	}, nil
}

// CreateCustomer creates a Stripe customer for a tenant
func (a *StripeAdapter) CreateCustomer(ctx context.Context, input CreateCustomerInput) (*CreateCustomerOutput, error) {
	a.logger.Debug("Creating Stripe customer",
		zap.String("tenant_id", input.TenantID.String()),
		zap.String("email", input.Email))

	params := &stripe.CustomerParams{
		Email: stripe.String(input.Email),
		Name:  stripe.String(input.Name),
	}
	params.Metadata = map[string]string{
		"tenant_id": input.TenantID.String(),
	}

	cust, err := customer.New(params)
	if err != nil {
		a.logger.Error("Failed to create Stripe customer",
			zap.String("tenant_id", input.TenantID.String()),
			zap.Error(err))
		return nil, fmt.Errorf("stripe: failed to create customer: %w", err)
	}

	a.logger.Info("Created Stripe customer",
		zap.String("tenant_id", input.TenantID.String()),
		zap.String("customer_id", cust.ID))

	return &CreateCustomerOutput{
		CustomerID: cust.ID,
		Email:      cust.Email,
		CreatedAt:  time.Unix(cust.Created, 0),
	}, nil
}

// CreateSubscription creates a Stripe subscription for a tenant on a paid
// plan. The free plan never reaches Stripe; callers assign it directly.
func (a *StripeAdapter) CreateSubscription(ctx context.Context, input CreateSubscriptionInput) (*CreateSubscriptionOutput, error) {
	if input.PriceID == "" {
		return nil, fmt.Errorf("stripe: no price configured for plan %s", input.PlanID)
	}

	a.logger.Debug("Creating Stripe subscription",
		zap.String("tenant_id", input.TenantID.String()),
		zap.String("customer_id", input.CustomerID),
		zap.String("plan_id", input.PlanID))

	params := &stripe.SubscriptionParams{
		Customer: stripe.String(input.CustomerID),
		Items: []*stripe.SubscriptionItemsParams{
			{Price: stripe.String(input.PriceID)},
		},
	}
	params.PaymentBehavior = stripe.String("default_incomplete")
	params.AddExpand("latest_invoice.payment_intent")
	params.Metadata = map[string]string{
		"tenant_id": input.TenantID.String(),
		"plan_id":   input.PlanID,
	}

	sub, err := subscription.New(params)
	if err != nil {
		a.logger.Error("Failed to create Stripe subscription",
			zap.String("tenant_id", input.TenantID.String()),
			zap.String("customer_id", input.CustomerID),
			zap.Error(err))
		return nil, fmt.Errorf("stripe: failed to create subscription: %w", err)
	}

	a.logger.Info("Created Stripe subscription",
		zap.String("tenant_id", input.TenantID.String()),
		zap.String("subscription_id", sub.ID),
		zap.String("status", string(sub.Status)))

	output := &CreateSubscriptionOutput{
		SubscriptionID:     sub.ID,
		Status:             mapStripeSubscriptionStatus(sub.Status),
		CurrentPeriodStart: time.Unix(sub.CurrentPeriodStart, 0),
		CurrentPeriodEnd:   time.Unix(sub.CurrentPeriodEnd, 0),
	}
	if sub.Customer != nil {
		output.CustomerID = sub.Customer.ID
	}
	if sub.LatestInvoice != nil {
		output.LatestInvoiceID = sub.LatestInvoice.ID
		if sub.LatestInvoice.PaymentIntent != nil {
			output.ClientSecret = sub.LatestInvoice.PaymentIntent.ClientSecret
		}
	}

	return output, nil
}

// CancelSubscription cancels a Stripe subscription, immediately or at the
// end of the current billing period
func (a *StripeAdapter) CancelSubscription(ctx context.Context, subscriptionID string, atPeriodEnd bool) (*CancelSubscriptionOutput, error) {
	if subscriptionID == "" {
		return nil, errors.New("stripe: subscription ID is required")
	}

	var sub *stripe.Subscription
	var err error
	if atPeriodEnd {
		sub, err = subscription.Update(subscriptionID, &stripe.SubscriptionParams{
			CancelAtPeriodEnd: stripe.Bool(true),
		})
	} else {
		sub, err = subscription.Cancel(subscriptionID, nil)
	}
	if err != nil {
		a.logger.Error("Failed to cancel Stripe subscription",
			zap.String("subscription_id", subscriptionID),
			zap.Error(err))
		return nil, fmt.Errorf("stripe: failed to cancel subscription: %w", err)
	}

	a.logger.Info("Canceled Stripe subscription",
		zap.String("subscription_id", subscriptionID),
		zap.Bool("at_period_end", atPeriodEnd))

	output := &CancelSubscriptionOutput{
		SubscriptionID:    sub.ID,
		Status:            mapStripeSubscriptionStatus(sub.Status),
		CancelAtPeriodEnd: sub.CancelAtPeriodEnd,
		CurrentPeriodEnd:  time.Unix(sub.CurrentPeriodEnd, 0),
	}
	if sub.CanceledAt > 0 {
		t := time.Unix(sub.CanceledAt, 0)
		output.CanceledAt = &t
	}
	return output, nil
}

// WebhookSecret exposes the configured webhook signing secret
func (a *StripeAdapter) WebhookSecret() string {
	return a.config.WebhookSecret
}

func mapStripeSubscriptionStatus(status stripe.SubscriptionStatus) SubscriptionStatus {
	switch status {
	case stripe.SubscriptionStatusActive:
		return SubscriptionStatusActive
	case stripe.SubscriptionStatusTrialing:
		return SubscriptionStatusTrialing
	case stripe.SubscriptionStatusPastDue:
		return SubscriptionStatusPastDue
	case stripe.SubscriptionStatusCanceled:
		return SubscriptionStatusCanceled
	case stripe.SubscriptionStatusUnpaid:
		return SubscriptionStatusUnpaid
	case stripe.SubscriptionStatusIncomplete:
		return SubscriptionStatusIncomplete
	case stripe.SubscriptionStatusIncompleteExpired:
		return SubscriptionStatusIncompleteExpired
	default:
		return SubscriptionStatus(status)
	}
}

// CreateCustomerInput contains input for creating a Stripe customer
type CreateCustomerInput struct {
	TenantID uuid.UUID
	Email    string
	Name     string
}

// CreateCustomerOutput contains the result of creating a Stripe customer
type CreateCustomerOutput struct {
	CustomerID string
	Email      string
	CreatedAt  time.Time
}

// CreateSubscriptionInput contains input for creating a Stripe subscription
type CreateSubscriptionInput struct {
	TenantID   uuid.UUID
	CustomerID string
	PlanID     string
	PriceID    string
}

// CreateSubscriptionOutput contains the result of creating a Stripe subscription
type CreateSubscriptionOutput struct {
	SubscriptionID     string
	CustomerID         string
	Status             SubscriptionStatus
	CurrentPeriodStart time.Time
	CurrentPeriodEnd   time.Time
	ClientSecret       string
	LatestInvoiceID    string
}

// CancelSubscriptionOutput contains the result of canceling a Stripe subscription
type CancelSubscriptionOutput struct {
	SubscriptionID    string
	Status            SubscriptionStatus
	CanceledAt        *time.Time
	CancelAtPeriodEnd bool
	CurrentPeriodEnd  time.Time
}

// SubscriptionStatus represents the status of a Stripe subscription
type SubscriptionStatus string

const (
	SubscriptionStatusActive             SubscriptionStatus = "active"
	SubscriptionStatusTrialing           SubscriptionStatus = "trialing"
	SubscriptionStatusPastDue            SubscriptionStatus = "past_due"
	SubscriptionStatusCanceled           SubscriptionStatus = "canceled"
	SubscriptionStatusUnpaid             SubscriptionStatus = "unpaid"
	SubscriptionStatusIncomplete         SubscriptionStatus = "incomplete"
	SubscriptionStatusIncompleteExpired SubscriptionStatus = "incomplete_expired"
)

// String returns the string representation of SubscriptionStatus
func (s SubscriptionStatus) String() string {
	return string(s)
}

// IsActive returns true if the subscription entitles the tenant to its plan
func (s SubscriptionStatus) IsActive() bool {
	return s == SubscriptionStatusActive || s == SubscriptionStatusTrialing
}
