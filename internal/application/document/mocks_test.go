package document

import (
	"context"
	"time"

	"github.com/google/uuid"
	appbilling "github.com/propsign/backend/internal/application/billing"
	"github.com/propsign/backend/internal/domain/billing"
	"github.com/propsign/backend/internal/domain/document"
	"github.com/propsign/backend/internal/domain/identity"
	"github.com/propsign/backend/internal/domain/shared"
	"github.com/stretchr/testify/mock"
)

type mockDocumentRepository struct {
	mock.Mock
}

func (m *mockDocumentRepository) FindByID(ctx context.Context, id uuid.UUID) (*document.Document, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*document.Document), args.Error(1)
}

func (m *mockDocumentRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*document.Document, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*document.Document), args.Error(1)
}

func (m *mockDocumentRepository) FindByEnvelopeID(ctx context.Context, envelopeID string) (*document.Document, error) {
	args := m.Called(ctx, envelopeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*document.Document), args.Error(1)
}

func (m *mockDocumentRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) ([]*document.Document, error) {
	args := m.Called(ctx, tenantID, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*document.Document), args.Error(1)
}

func (m *mockDocumentRepository) Save(ctx context.Context, doc *document.Document) error {
	args := m.Called(ctx, doc)
	return args.Error(0)
}

func (m *mockDocumentRepository) Update(ctx context.Context, doc *document.Document) error {
	args := m.Called(ctx, doc)
	return args.Error(0)
}

type mockPendingSignatureRepository struct {
	mock.Mock
}

func (m *mockPendingSignatureRepository) FindByID(ctx context.Context, id uuid.UUID) (*document.PendingSignature, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*document.PendingSignature), args.Error(1)
}

func (m *mockPendingSignatureRepository) FindByEnvelopeAndEmail(ctx context.Context, envelopeID, email string) (*document.PendingSignature, error) {
	args := m.Called(ctx, envelopeID, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*document.PendingSignature), args.Error(1)
}

func (m *mockPendingSignatureRepository) FindByEnvelopeID(ctx context.Context, envelopeID string) ([]*document.PendingSignature, error) {
	args := m.Called(ctx, envelopeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*document.PendingSignature), args.Error(1)
}

func (m *mockPendingSignatureRepository) FindOpenForTenant(ctx context.Context, tenantID uuid.UUID) ([]*document.PendingSignature, error) {
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*document.PendingSignature), args.Error(1)
}

func (m *mockPendingSignatureRepository) TenantsWithOpenSignatures(ctx context.Context) ([]uuid.UUID, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]uuid.UUID), args.Error(1)
}

func (m *mockPendingSignatureRepository) Save(ctx context.Context, sig *document.PendingSignature) error {
	args := m.Called(ctx, sig)
	return args.Error(0)
}

func (m *mockPendingSignatureRepository) SaveBatch(ctx context.Context, sigs []*document.PendingSignature) error {
	args := m.Called(ctx, sigs)
	return args.Error(0)
}

func (m *mockPendingSignatureRepository) Update(ctx context.Context, sig *document.PendingSignature) error {
	args := m.Called(ctx, sig)
	return args.Error(0)
}

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

type mockQuotaGate struct {
	mock.Mock
}

func (m *mockQuotaGate) CanPerformAction(ctx context.Context, tenantID uuid.UUID, action billing.ActionKind) (appbilling.QuotaCheckResult, error) {
	args := m.Called(ctx, tenantID, action)
	return args.Get(0).(appbilling.QuotaCheckResult), args.Error(1)
}

type mockUsageRecorder struct {
	mock.Mock
}

func (m *mockUsageRecorder) RecordUsage(ctx context.Context, tenantID uuid.UUID, kind billing.ResourceKind, period billing.Period, amount int64) (int64, error) {
	args := m.Called(ctx, tenantID, kind, period, amount)
	return args.Get(0).(int64), args.Error(1)
}

type mockThresholdEvaluator struct {
	mock.Mock
}

func (m *mockThresholdEvaluator) EvaluateThresholds(ctx context.Context, tenantID uuid.UUID) ([]appbilling.ThresholdAlert, error) {
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]appbilling.ThresholdAlert), args.Error(1)
}

type mockObjectStorage struct {
	mock.Mock
}

func (m *mockObjectStorage) Upload(ctx context.Context, storageKey string, data []byte, contentType string) error {
	args := m.Called(ctx, storageKey, data, contentType)
	return args.Error(0)
}

func (m *mockObjectStorage) GenerateDownloadURL(ctx context.Context, storageKey string, expiresIn time.Duration) (string, time.Time, error) {
	args := m.Called(ctx, storageKey, expiresIn)
	return args.String(0), args.Get(1).(time.Time), args.Error(2)
}

func (m *mockObjectStorage) DeleteObject(ctx context.Context, storageKey string) error {
	args := m.Called(ctx, storageKey)
	return args.Error(0)
}

type mockDocumentParser struct {
	mock.Mock
}

func (m *mockDocumentParser) Parse(ctx context.Context, downloadURL, documentName string) (*document.ParseResult, error) {
	args := m.Called(ctx, downloadURL, documentName)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*document.ParseResult), args.Error(1)
}

type mockEnvelopeService struct {
	mock.Mock
}

func (m *mockEnvelopeService) CreateEnvelope(ctx context.Context, req CreateEnvelopeRequest) (*EnvelopeResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*EnvelopeResult), args.Error(1)
}

func (m *mockEnvelopeService) SendReminder(ctx context.Context, envelopeID, recipientEmail string) error {
	args := m.Called(ctx, envelopeID, recipientEmail)
	return args.Error(0)
}

type mockNotificationService struct {
	mock.Mock
}

func (m *mockNotificationService) SendUsageAlert(ctx context.Context, to string, alert appbilling.ThresholdAlert) error {
	args := m.Called(ctx, to, alert)
	return args.Error(0)
}

func (m *mockNotificationService) SendSignatureReminder(ctx context.Context, to, recipientName, documentName string) error {
	args := m.Called(ctx, to, recipientName, documentName)
	return args.Error(0)
}

var (
	_ document.Repository                 = (*mockDocumentRepository)(nil)
	_ document.PendingSignatureRepository = (*mockPendingSignatureRepository)(nil)
	_ identity.TenantRepository           = (*mockTenantRepository)(nil)
	_ QuotaGate                           = (*mockQuotaGate)(nil)
	_ UsageRecorder                       = (*mockUsageRecorder)(nil)
	_ ThresholdEvaluator                  = (*mockThresholdEvaluator)(nil)
	_ ObjectStorageService                = (*mockObjectStorage)(nil)
	_ DocumentParser                      = (*mockDocumentParser)(nil)
	_ EnvelopeService                     = (*mockEnvelopeService)(nil)
	_ NotificationService                 = (*mockNotificationService)(nil)
)

type documentServiceFixture struct {
	svc        *DocumentService
	docRepo    *mockDocumentRepository
	sigRepo    *mockPendingSignatureRepository
	tenantRepo *mockTenantRepository
	quota      *mockQuotaGate
	usage      *mockUsageRecorder
	alerts     *mockThresholdEvaluator
	storage    *mockObjectStorage
	parser     *mockDocumentParser
	envelopes  *mockEnvelopeService
	notifier   *mockNotificationService
}

func newDocumentServiceFixture() *documentServiceFixture {
	f := &documentServiceFixture{
		docRepo:    new(mockDocumentRepository),
		sigRepo:    new(mockPendingSignatureRepository),
		tenantRepo: new(mockTenantRepository),
		quota:      new(mockQuotaGate),
		usage:      new(mockUsageRecorder),
		alerts:     new(mockThresholdEvaluator),
		storage:    new(mockObjectStorage),
		parser:     new(mockDocumentParser),
		envelopes:  new(mockEnvelopeService),
		notifier:   new(mockNotificationService),
	}
	f.svc = NewDocumentService(
		f.docRepo, f.sigRepo, f.tenantRepo,
		f.quota, f.usage, f.alerts,
		f.storage, f.parser, f.envelopes, f.notifier,
		newTestLogger(),
	)
	return f
}

func timeNowForTest() time.Time {
	return time.Now().Add(15 * time.Minute)
}

func allowedQuota(kind billing.ResourceKind) appbilling.QuotaCheckResult {
	return appbilling.QuotaCheckResult{Allowed: true, ResourceKind: kind, Current: 0, Limit: 10}
}

func deniedQuota(kind billing.ResourceKind, current, limit int64) appbilling.QuotaCheckResult {
	return appbilling.QuotaCheckResult{
		Allowed:      false,
		ResourceKind: kind,
		Current:      current,
		Limit:        limit,
		Message:      "quota reached",
	}
}
