package billing

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/propsign/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v81"
	"go.uber.org/zap"
)

func newWebhookService(tenantRepo *mockTenantRepository, store shared.IdempotencyStore) *StripeWebhookService {
	return NewStripeWebhookService("whsec_test", tenantRepo, store, zap.NewNop())
}

func makeEvent(t *testing.T, eventType string, payload any) stripe.Event {
	t.Helper()
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	return stripe.Event{
		ID:   "evt_" + eventType,
		Type: stripe.EventType(eventType),
		Data: &stripe.EventData{Raw: raw},
	}
}

func TestProcessWebhookRejectsInvalidSignature(t *testing.T) {
	service := newWebhookService(&mockTenantRepository{}, nil)

	result, err := service.ProcessWebhook(context.Background(), []byte(`{"id":"evt_1"}`), "bad-signature")

	require.Error(t, err)
	assert.Nil(t, result)
}

func TestHandleSubscriptionChangedActivatesPlanFromMetadata(t *testing.T) {
	tenantRepo := &mockTenantRepository{}
	service := newWebhookService(tenantRepo, nil)

	tenant := newTestTenant("free")
	tenant.SetStripeCustomerID("cus_123")
	periodEnd := time.Now().Add(30 * 24 * time.Hour).Unix()

	event := makeEvent(t, "customer.subscription.updated", map[string]any{
		"id":                 "sub_123",
		"status":             "active",
		"customer":           map[string]any{"id": "cus_123"},
		"current_period_end": periodEnd,
		"metadata":           map[string]string{"plan_id": "pro"},
	})

	tenantRepo.On("FindByStripeCustomerID", mock.Anything, "cus_123").Return(tenant, nil)
	tenantRepo.On("Update", mock.Anything, tenant).Return(nil)

	err := service.handleSubscriptionChanged(context.Background(), event)

	require.NoError(t, err)
	assert.Equal(t, "pro", tenant.PlanID)
	assert.Equal(t, "sub_123", tenant.StripeSubscriptionID)
	require.NotNil(t, tenant.ExpiresAt)
}

func TestHandleSubscriptionChangedUnknownCustomerIsAcknowledged(t *testing.T) {
	tenantRepo := &mockTenantRepository{}
	service := newWebhookService(tenantRepo, nil)

	event := makeEvent(t, "customer.subscription.created", map[string]any{
		"id":       "sub_999",
		"status":   "active",
		"customer": map[string]any{"id": "cus_unknown"},
	})

	tenantRepo.On("FindByStripeCustomerID", mock.Anything, "cus_unknown").Return(nil, shared.ErrNotFound)

	err := service.handleSubscriptionChanged(context.Background(), event)

	require.NoError(t, err)
	tenantRepo.AssertNotCalled(t, "Update")
}

func TestHandleSubscriptionDeletedDropsToFreePlan(t *testing.T) {
	tenantRepo := &mockTenantRepository{}
	service := newWebhookService(tenantRepo, nil)

	tenant := newTestTenant("pro")
	tenant.SetStripeCustomerID("cus_123")
	tenant.SetStripeSubscriptionID("sub_123")
	tenant.SetExpiration(time.Now().Add(24 * time.Hour))

	event := makeEvent(t, "customer.subscription.deleted", map[string]any{
		"id":       "sub_123",
		"status":   "canceled",
		"customer": map[string]any{"id": "cus_123"},
	})

	tenantRepo.On("FindByStripeCustomerID", mock.Anything, "cus_123").Return(tenant, nil)
	tenantRepo.On("Update", mock.Anything, tenant).Return(nil)

	err := service.handleSubscriptionDeleted(context.Background(), event)

	require.NoError(t, err)
	assert.Equal(t, "free", tenant.PlanID)
	assert.Empty(t, tenant.StripeSubscriptionID)
	assert.Nil(t, tenant.ExpiresAt)
}

func TestHandleInvoicePaidReactivatesSuspendedTenant(t *testing.T) {
	tenantRepo := &mockTenantRepository{}
	service := newWebhookService(tenantRepo, nil)

	tenant := newTestTenant("pro")
	tenant.SetStripeCustomerID("cus_123")
	tenant.Suspend()

	event := makeEvent(t, "invoice.paid", map[string]any{
		"id":           "in_123",
		"customer":     map[string]any{"id": "cus_123"},
		"subscription": map[string]any{"id": "sub_123"},
		"period_end":   time.Now().Add(30 * 24 * time.Hour).Unix(),
	})

	tenantRepo.On("FindByStripeCustomerID", mock.Anything, "cus_123").Return(tenant, nil)
	tenantRepo.On("Update", mock.Anything, tenant).Return(nil)

	err := service.handleInvoicePaid(context.Background(), event)

	require.NoError(t, err)
	assert.True(t, tenant.IsActive())
	require.NotNil(t, tenant.ExpiresAt)
}

func TestHandleInvoicePaidSkipsNonSubscriptionInvoice(t *testing.T) {
	tenantRepo := &mockTenantRepository{}
	service := newWebhookService(tenantRepo, nil)

	event := makeEvent(t, "invoice.paid", map[string]any{
		"id":       "in_oneoff",
		"customer": map[string]any{"id": "cus_123"},
	})

	err := service.handleInvoicePaid(context.Background(), event)

	require.NoError(t, err)
	tenantRepo.AssertNotCalled(t, "FindByStripeCustomerID")
}

func TestHandleInvoicePaymentFailedSuspendsTenant(t *testing.T) {
	tenantRepo := &mockTenantRepository{}
	service := newWebhookService(tenantRepo, nil)

	tenant := newTestTenant("pro")
	tenant.SetStripeCustomerID("cus_123")

	event := makeEvent(t, "invoice.payment_failed", map[string]any{
		"id":           "in_124",
		"customer":     map[string]any{"id": "cus_123"},
		"subscription": map[string]any{"id": "sub_123"},
	})

	tenantRepo.On("FindByStripeCustomerID", mock.Anything, "cus_123").Return(tenant, nil)
	tenantRepo.On("Update", mock.Anything, tenant).Return(nil)

	err := service.handleInvoicePaymentFailed(context.Background(), event)

	require.NoError(t, err)
	assert.True(t, tenant.IsSuspended())
}
