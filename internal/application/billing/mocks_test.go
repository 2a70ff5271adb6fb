package billing

import (
	"context"

	"github.com/google/uuid"
	"github.com/propsign/backend/internal/domain/billing"
	"github.com/propsign/backend/internal/domain/identity"
	"github.com/propsign/backend/internal/domain/shared"
	infrabilling "github.com/propsign/backend/internal/infrastructure/billing"
	"github.com/stretchr/testify/mock"
)

type mockTenantRepository struct {
	mock.Mock
}

func (m *mockTenantRepository) FindByID(ctx context.Context, id uuid.UUID) (*identity.Tenant, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.Tenant), args.Error(1)
}

func (m *mockTenantRepository) FindByEmail(ctx context.Context, email string) (*identity.Tenant, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.Tenant), args.Error(1)
}

func (m *mockTenantRepository) FindByStripeCustomerID(ctx context.Context, customerID string) (*identity.Tenant, error) {
	args := m.Called(ctx, customerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.Tenant), args.Error(1)
}

func (m *mockTenantRepository) FindAll(ctx context.Context, filter shared.Filter) ([]*identity.Tenant, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*identity.Tenant), args.Error(1)
}

func (m *mockTenantRepository) Save(ctx context.Context, tenant *identity.Tenant) error {
	args := m.Called(ctx, tenant)
	return args.Error(0)
}

func (m *mockTenantRepository) Update(ctx context.Context, tenant *identity.Tenant) error {
	args := m.Called(ctx, tenant)
	return args.Error(0)
}

type mockPlanRepository struct {
	mock.Mock
}

func (m *mockPlanRepository) FindByID(ctx context.Context, id string) (*billing.Plan, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.Plan), args.Error(1)
}

func (m *mockPlanRepository) FindAllActive(ctx context.Context) ([]*billing.Plan, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*billing.Plan), args.Error(1)
}

func (m *mockPlanRepository) Save(ctx context.Context, plan *billing.Plan) error {
	args := m.Called(ctx, plan)
	return args.Error(0)
}

type mockUsageRecordRepository struct {
	mock.Mock
}

func (m *mockUsageRecordRepository) Increment(ctx context.Context, tenantID uuid.UUID, kind billing.ResourceKind, period billing.Period, amount int64) (int64, error) {
	args := m.Called(ctx, tenantID, kind, period, amount)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockUsageRecordRepository) GetCount(ctx context.Context, tenantID uuid.UUID, kind billing.ResourceKind, period billing.Period) (int64, error) {
	args := m.Called(ctx, tenantID, kind, period)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockUsageRecordRepository) GetPeriodUsage(ctx context.Context, tenantID uuid.UUID, period billing.Period) (map[billing.ResourceKind]int64, error) {
	args := m.Called(ctx, tenantID, period)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[billing.ResourceKind]int64), args.Error(1)
}

type mockAlertRecordRepository struct {
	mock.Mock
}

func (m *mockAlertRecordRepository) TryCreate(ctx context.Context, record *billing.AlertRecord) (bool, error) {
	args := m.Called(ctx, record)
	return args.Bool(0), args.Error(1)
}

func (m *mockAlertRecordRepository) FindForPeriod(ctx context.Context, tenantID uuid.UUID, period billing.Period) ([]*billing.AlertRecord, error) {
	args := m.Called(ctx, tenantID, period)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*billing.AlertRecord), args.Error(1)
}

// newTestTenant builds an active tenant on the given plan
func newTestTenant(planID string) *identity.Tenant {
	tenant, _ := identity.NewTenant("Test Agent", "agent@example.com")
	if planID != "" {
		_ = tenant.AssignPlan(planID)
	}
	return tenant
}

type mockPaymentGateway struct {
	mock.Mock
}

func (m *mockPaymentGateway) CreateCustomer(ctx context.Context, input infrabilling.CreateCustomerInput) (*infrabilling.CreateCustomerOutput, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*infrabilling.CreateCustomerOutput), args.Error(1)
}

func (m *mockPaymentGateway) CreateSubscription(ctx context.Context, input infrabilling.CreateSubscriptionInput) (*infrabilling.CreateSubscriptionOutput, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*infrabilling.CreateSubscriptionOutput), args.Error(1)
}

func (m *mockPaymentGateway) CancelSubscription(ctx context.Context, subscriptionID string, atPeriodEnd bool) (*infrabilling.CancelSubscriptionOutput, error) {
	args := m.Called(ctx, subscriptionID, atPeriodEnd)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*infrabilling.CancelSubscriptionOutput), args.Error(1)
}
