package billing

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/propsign/backend/internal/domain/billing"
	"github.com/propsign/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newQuotaFixture() (*QuotaService, *mockTenantRepository, *mockPlanRepository, *mockUsageRecordRepository) {
	tenantRepo := new(mockTenantRepository)
	planRepo := new(mockPlanRepository)
	usageRepo := new(mockUsageRecordRepository)
	logger := zap.NewNop()

	entitlements := NewEntitlementService(tenantRepo, planRepo, logger)
	usage := NewUsageService(usageRepo, logger)
	return NewQuotaService(entitlements, usage, logger), tenantRepo, planRepo, usageRepo
}

func TestCheckLimitAllowsBelowLimit(t *testing.T) {
	svc, tenantRepo, planRepo, usageRepo := newQuotaFixture()
	tenant := newTestTenant("starter")
	plan := &billing.Plan{ID: "starter", DocumentsLimit: 50, EnvelopesLimit: 25, AIRequestsLimit: 100}

	tenantRepo.On("FindByID", mock.Anything, tenant.ID).Return(tenant, nil)
	planRepo.On("FindByID", mock.Anything, "starter").Return(plan, nil)
	usageRepo.On("GetCount", mock.Anything, tenant.ID, billing.ResourceKindDocument, billing.CurrentPeriod()).Return(int64(49), nil)

	result, err := svc.CheckLimit(context.Background(), tenant.ID, billing.ResourceKindDocument)
	require.NoError(t, err)
	assert.True(t, result.Allowed, "the 50th action is still allowed")
	assert.Equal(t, int64(49), result.Current)
	assert.Equal(t, int64(50), result.Limit)
	assert.Empty(t, result.Message)
}

func TestCheckLimitDeniesAtLimit(t *testing.T) {
	svc, tenantRepo, planRepo, usageRepo := newQuotaFixture()
	tenant := newTestTenant("starter")
	plan := &billing.Plan{ID: "starter", DocumentsLimit: 50}

	tenantRepo.On("FindByID", mock.Anything, tenant.ID).Return(tenant, nil)
	planRepo.On("FindByID", mock.Anything, "starter").Return(plan, nil)
	usageRepo.On("GetCount", mock.Anything, tenant.ID, billing.ResourceKindDocument, billing.CurrentPeriod()).Return(int64(50), nil)

	result, err := svc.CheckLimit(context.Background(), tenant.ID, billing.ResourceKindDocument)
	require.NoError(t, err)
	assert.False(t, result.Allowed, "the 51st action is denied")
	assert.Equal(t, int64(50), result.Current)
	assert.NotEmpty(t, result.Message)
}

func TestCheckLimitExampleScenario(t *testing.T) {
	// documentsLimit=2: uploads A and B pass, C is rejected with
	// current=2, limit=2.
	svc, tenantRepo, planRepo, usageRepo := newQuotaFixture()
	tenant := newTestTenant("tiny")
	plan := &billing.Plan{ID: "tiny", DocumentsLimit: 2}

	tenantRepo.On("FindByID", mock.Anything, tenant.ID).Return(tenant, nil)
	planRepo.On("FindByID", mock.Anything, "tiny").Return(plan, nil)

	for i, usage := range []int64{0, 1} {
		usageRepo.ExpectedCalls = nil
		usageRepo.On("GetCount", mock.Anything, tenant.ID, billing.ResourceKindDocument, billing.CurrentPeriod()).Return(usage, nil)
		result, err := svc.CheckLimit(context.Background(), tenant.ID, billing.ResourceKindDocument)
		require.NoError(t, err)
		assert.True(t, result.Allowed, "upload %d", i+1)
	}

	usageRepo.ExpectedCalls = nil
	usageRepo.On("GetCount", mock.Anything, tenant.ID, billing.ResourceKindDocument, billing.CurrentPeriod()).Return(int64(2), nil)
	result, err := svc.CheckLimit(context.Background(), tenant.ID, billing.ResourceKindDocument)
	require.NoError(t, err)
	assert.False(t, result.Allowed)
	assert.Equal(t, int64(2), result.Current)
	assert.Equal(t, int64(2), result.Limit)
}

func TestCheckLimitNoPlanAssigned(t *testing.T) {
	svc, tenantRepo, _, _ := newQuotaFixture()
	tenant := newTestTenant("") // no plan reference

	tenantRepo.On("FindByID", mock.Anything, tenant.ID).Return(tenant, nil)

	result, err := svc.CheckLimit(context.Background(), tenant.ID, billing.ResourceKindDocument)
	require.NoError(t, err)
	assert.False(t, result.Allowed, "no plan means deny, never unlimited")
	assert.Contains(t, result.Message, "No subscription plan")
}

func TestCheckLimitDanglingPlanReference(t *testing.T) {
	svc, tenantRepo, planRepo, _ := newQuotaFixture()
	tenant := newTestTenant("retired-plan")

	tenantRepo.On("FindByID", mock.Anything, tenant.ID).Return(tenant, nil)
	planRepo.On("FindByID", mock.Anything, "retired-plan").Return(nil, shared.ErrNotFound)

	result, err := svc.CheckLimit(context.Background(), tenant.ID, billing.ResourceKindDocument)
	require.NoError(t, err)
	assert.False(t, result.Allowed)
}

func TestCheckLimitUnlimitedPlan(t *testing.T) {
	svc, tenantRepo, planRepo, _ := newQuotaFixture()
	tenant := newTestTenant("enterprise")
	plan := &billing.Plan{ID: "enterprise", DocumentsLimit: billing.UnlimitedLimit}

	tenantRepo.On("FindByID", mock.Anything, tenant.ID).Return(tenant, nil)
	planRepo.On("FindByID", mock.Anything, "enterprise").Return(plan, nil)

	result, err := svc.CheckLimit(context.Background(), tenant.ID, billing.ResourceKindDocument)
	require.NoError(t, err)
	assert.True(t, result.Allowed)
}

func TestCanPerformActionMapsVocabulary(t *testing.T) {
	svc, tenantRepo, planRepo, usageRepo := newQuotaFixture()
	tenant := newTestTenant("starter")
	plan := &billing.Plan{ID: "starter", DocumentsLimit: 10, EnvelopesLimit: 5, AIRequestsLimit: 20}

	tenantRepo.On("FindByID", mock.Anything, tenant.ID).Return(tenant, nil)
	planRepo.On("FindByID", mock.Anything, "starter").Return(plan, nil)
	usageRepo.On("GetCount", mock.Anything, tenant.ID, billing.ResourceKindEnvelope, billing.CurrentPeriod()).Return(int64(5), nil)

	result, err := svc.CanPerformAction(context.Background(), tenant.ID, billing.ActionCreateEnvelope)
	require.NoError(t, err)
	assert.False(t, result.Allowed)
	assert.Equal(t, billing.ResourceKindEnvelope, result.ResourceKind)

	_, err = svc.CanPerformAction(context.Background(), tenant.ID, billing.ActionKind("fax_document"))
	assert.Error(t, err)
}

func TestCheckLimitUnknownTenant(t *testing.T) {
	svc, tenantRepo, _, _ := newQuotaFixture()
	id := uuid.New()
	tenantRepo.On("FindByID", mock.Anything, id).Return(nil, shared.ErrNotFound)

	_, err := svc.CheckLimit(context.Background(), id, billing.ResourceKindDocument)
	require.Error(t, err)

	var domainErr *shared.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "TENANT_NOT_FOUND", domainErr.Code)
}
