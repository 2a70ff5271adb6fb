package document

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	appbilling "github.com/propsign/backend/internal/application/billing"
	"github.com/propsign/backend/internal/domain/billing"
	"github.com/propsign/backend/internal/domain/document"
	"github.com/propsign/backend/internal/domain/identity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestLogger() *zap.Logger {
	return zap.NewNop()
}

func newUploadedDocument(t *testing.T, tenantID uuid.UUID) *document.Document {
	t.Helper()
	doc, err := document.NewDocument(tenantID, "lease.pdf", "documents/key", 1024)
	require.NoError(t, err)
	return doc
}

func TestUploadDocumentHappyPath(t *testing.T) {
	f := newDocumentServiceFixture()
	tenantID := uuid.New()

	f.quota.On("CanPerformAction", mock.Anything, tenantID, billing.ActionUploadDocument).
		Return(allowedQuota(billing.ResourceKindDocument), nil)
	f.storage.On("Upload", mock.Anything, mock.Anything, mock.Anything, "application/pdf").Return(nil)
	f.docRepo.On("Save", mock.Anything, mock.Anything).Return(nil)
	f.usage.On("RecordUsage", mock.Anything, tenantID, billing.ResourceKindDocument, billing.CurrentPeriod(), int64(1)).
		Return(int64(1), nil)
	f.alerts.On("EvaluateThresholds", mock.Anything, tenantID).Return([]appbilling.ThresholdAlert{}, nil)

	resp, err := f.svc.UploadDocument(context.Background(), tenantID, UploadDocumentRequest{
		Name:        "lease.pdf",
		ContentType: "application/pdf",
		Content:     []byte("%PDF-1.7 content"),
	})
	require.NoError(t, err)
	assert.Equal(t, "lease.pdf", resp.Name)
	assert.Equal(t, document.StatusUploaded, resp.Status)
	f.storage.AssertExpectations(t)
	f.usage.AssertExpectations(t)
}

func TestUploadDocumentDeniedByQuota(t *testing.T) {
	f := newDocumentServiceFixture()
	tenantID := uuid.New()

	f.quota.On("CanPerformAction", mock.Anything, tenantID, billing.ActionUploadDocument).
		Return(deniedQuota(billing.ResourceKindDocument, 2, 2), nil)

	_, err := f.svc.UploadDocument(context.Background(), tenantID, UploadDocumentRequest{
		Name:        "lease.pdf",
		ContentType: "application/pdf",
		Content:     []byte("data"),
	})
	require.Error(t, err)

	var quotaErr *appbilling.QuotaExceededError
	require.ErrorAs(t, err, &quotaErr)
	assert.Equal(t, int64(2), quotaErr.Current)
	assert.Equal(t, int64(2), quotaErr.Limit)

	// Nothing was stored or metered.
	f.storage.AssertNotCalled(t, "Upload", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	f.usage.AssertNotCalled(t, "RecordUsage", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestUploadDocumentRejectsDisallowedContentType(t *testing.T) {
	f := newDocumentServiceFixture()

	_, err := f.svc.UploadDocument(context.Background(), uuid.New(), UploadDocumentRequest{
		Name:        "script.html",
		ContentType: "text/html",
		Content:     []byte("<script>"),
	})
	require.Error(t, err)
	f.quota.AssertNotCalled(t, "CanPerformAction", mock.Anything, mock.Anything, mock.Anything)
}

func TestUploadDocumentMetersEvenIfLedgerFails(t *testing.T) {
	// A ledger failure after the upload does not fail the request.
	f := newDocumentServiceFixture()
	tenantID := uuid.New()

	f.quota.On("CanPerformAction", mock.Anything, tenantID, billing.ActionUploadDocument).
		Return(allowedQuota(billing.ResourceKindDocument), nil)
	f.storage.On("Upload", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	f.docRepo.On("Save", mock.Anything, mock.Anything).Return(nil)
	f.usage.On("RecordUsage", mock.Anything, tenantID, billing.ResourceKindDocument, billing.CurrentPeriod(), int64(1)).
		Return(int64(0), errors.New("ledger unavailable"))
	f.alerts.On("EvaluateThresholds", mock.Anything, tenantID).Return([]appbilling.ThresholdAlert{}, nil)

	resp, err := f.svc.UploadDocument(context.Background(), tenantID, UploadDocumentRequest{
		Name:        "lease.pdf",
		ContentType: "application/pdf",
		Content:     []byte("data"),
	})
	require.NoError(t, err)
	assert.NotNil(t, resp)
}

func TestUploadDocumentEmailsNewAlerts(t *testing.T) {
	f := newDocumentServiceFixture()
	tenant, err := identity.NewTenant("Acme Realty", "owner@acme.test")
	require.NoError(t, err)
	tenantID := tenant.ID

	alert := appbilling.ThresholdAlert{
		ResourceKind: billing.ResourceKindDocument,
		Threshold:    80,
		Current:      4,
		Limit:        5,
		Percent:      80,
		Message:      "Documents usage reached 80%",
	}

	f.quota.On("CanPerformAction", mock.Anything, tenantID, billing.ActionUploadDocument).
		Return(allowedQuota(billing.ResourceKindDocument), nil)
	f.storage.On("Upload", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	f.docRepo.On("Save", mock.Anything, mock.Anything).Return(nil)
	f.usage.On("RecordUsage", mock.Anything, tenantID, billing.ResourceKindDocument, billing.CurrentPeriod(), int64(1)).
		Return(int64(4), nil)
	f.alerts.On("EvaluateThresholds", mock.Anything, tenantID).Return([]appbilling.ThresholdAlert{alert}, nil)
	f.tenantRepo.On("FindByID", mock.Anything, tenantID).Return(tenant, nil)
	f.notifier.On("SendUsageAlert", mock.Anything, "owner@acme.test", alert).Return(nil)

	_, err = f.svc.UploadDocument(context.Background(), tenantID, UploadDocumentRequest{
		Name:        "lease.pdf",
		ContentType: "application/pdf",
		Content:     []byte("data"),
	})
	require.NoError(t, err)
	f.notifier.AssertExpectations(t)
}

func TestParseDocumentAppliesResult(t *testing.T) {
	f := newDocumentServiceFixture()
	tenantID := uuid.New()
	doc := newUploadedDocument(t, tenantID)

	result := &document.ParseResult{
		DocumentType:    "lease_agreement",
		PropertyAddress: "12 Harbor St",
		Confidence:      0.93,
	}

	f.docRepo.On("FindByIDForTenant", mock.Anything, tenantID, doc.ID).Return(doc, nil)
	f.quota.On("CanPerformAction", mock.Anything, tenantID, billing.ActionAIRequest).
		Return(allowedQuota(billing.ResourceKindAIRequest), nil)
	f.docRepo.On("Update", mock.Anything, doc).Return(nil)
	f.storage.On("GenerateDownloadURL", mock.Anything, doc.StorageKey, mock.Anything).
		Return("https://storage/url", timeNowForTest(), nil)
	f.usage.On("RecordUsage", mock.Anything, tenantID, billing.ResourceKindAIRequest, billing.CurrentPeriod(), int64(1)).
		Return(int64(1), nil)
	f.parser.On("Parse", mock.Anything, "https://storage/url", doc.Name).Return(result, nil)
	f.alerts.On("EvaluateThresholds", mock.Anything, tenantID).Return([]appbilling.ThresholdAlert{}, nil)

	resp, err := f.svc.ParseDocument(context.Background(), tenantID, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, document.StatusParsed, resp.Status)
	assert.Equal(t, "lease_agreement", resp.DocumentType)
	assert.Equal(t, "12 Harbor St", resp.PropertyAddress)
}

func TestParseDocumentFailureKeepsUsage(t *testing.T) {
	// The AI request was consumed even though the parse failed; the
	// document lands in failed and the ledger is not touched again.
	f := newDocumentServiceFixture()
	tenantID := uuid.New()
	doc := newUploadedDocument(t, tenantID)

	f.docRepo.On("FindByIDForTenant", mock.Anything, tenantID, doc.ID).Return(doc, nil)
	f.quota.On("CanPerformAction", mock.Anything, tenantID, billing.ActionAIRequest).
		Return(allowedQuota(billing.ResourceKindAIRequest), nil)
	f.docRepo.On("Update", mock.Anything, doc).Return(nil)
	f.storage.On("GenerateDownloadURL", mock.Anything, doc.StorageKey, mock.Anything).
		Return("https://storage/url", timeNowForTest(), nil)
	f.usage.On("RecordUsage", mock.Anything, tenantID, billing.ResourceKindAIRequest, billing.CurrentPeriod(), int64(1)).
		Return(int64(1), nil)
	f.parser.On("Parse", mock.Anything, "https://storage/url", doc.Name).
		Return(nil, errors.New("provider timeout"))
	f.alerts.On("EvaluateThresholds", mock.Anything, tenantID).Return([]appbilling.ThresholdAlert{}, nil)

	_, err := f.svc.ParseDocument(context.Background(), tenantID, doc.ID)
	require.Error(t, err)
	assert.Equal(t, document.StatusFailed, doc.Status)
	assert.Contains(t, doc.FailureReason, "parse failed")
	f.usage.AssertNumberOfCalls(t, "RecordUsage", 1)
}

func TestParseDocumentDeniedByQuotaDoesNotMeter(t *testing.T) {
	f := newDocumentServiceFixture()
	tenantID := uuid.New()
	doc := newUploadedDocument(t, tenantID)

	f.docRepo.On("FindByIDForTenant", mock.Anything, tenantID, doc.ID).Return(doc, nil)
	f.quota.On("CanPerformAction", mock.Anything, tenantID, billing.ActionAIRequest).
		Return(deniedQuota(billing.ResourceKindAIRequest, 10, 10), nil)

	_, err := f.svc.ParseDocument(context.Background(), tenantID, doc.ID)
	require.Error(t, err)
	assert.Equal(t, document.StatusUploaded, doc.Status)
	f.parser.AssertNotCalled(t, "Parse", mock.Anything, mock.Anything, mock.Anything)
	f.usage.AssertNotCalled(t, "RecordUsage", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestSendForSignatureHappyPath(t *testing.T) {
	f := newDocumentServiceFixture()
	tenantID := uuid.New()
	doc := newUploadedDocument(t, tenantID)

	f.docRepo.On("FindByIDForTenant", mock.Anything, tenantID, doc.ID).Return(doc, nil)
	f.quota.On("CanPerformAction", mock.Anything, tenantID, billing.ActionCreateEnvelope).
		Return(allowedQuota(billing.ResourceKindEnvelope), nil)
	f.storage.On("GenerateDownloadURL", mock.Anything, doc.StorageKey, mock.Anything).
		Return("https://storage/url", timeNowForTest(), nil)
	f.envelopes.On("CreateEnvelope", mock.Anything, mock.MatchedBy(func(req CreateEnvelopeRequest) bool {
		return req.DocumentID == doc.ID && len(req.Signers) == 2
	})).Return(&EnvelopeResult{EnvelopeID: "env-123", Status: "sent"}, nil)
	f.docRepo.On("Update", mock.Anything, doc).Return(nil)
	f.sigRepo.On("SaveBatch", mock.Anything, mock.MatchedBy(func(sigs []*document.PendingSignature) bool {
		return len(sigs) == 2 && sigs[0].EnvelopeID == "env-123"
	})).Return(nil)
	f.usage.On("RecordUsage", mock.Anything, tenantID, billing.ResourceKindEnvelope, billing.CurrentPeriod(), int64(1)).
		Return(int64(1), nil)
	f.alerts.On("EvaluateThresholds", mock.Anything, tenantID).Return([]appbilling.ThresholdAlert{}, nil)

	resp, err := f.svc.SendForSignature(context.Background(), tenantID, doc.ID, SendEnvelopeRequest{
		Signers: []SignerRequest{
			{Name: "Buyer One", Email: "buyer@example.com"},
			{Name: "Seller Two", Email: "seller@example.com"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, document.StatusSent, resp.Status)
	assert.Equal(t, "env-123", resp.EnvelopeID)
	f.sigRepo.AssertExpectations(t)
	f.usage.AssertExpectations(t)
}

func TestSendForSignatureProviderFailureNotMetered(t *testing.T) {
	f := newDocumentServiceFixture()
	tenantID := uuid.New()
	doc := newUploadedDocument(t, tenantID)

	f.docRepo.On("FindByIDForTenant", mock.Anything, tenantID, doc.ID).Return(doc, nil)
	f.quota.On("CanPerformAction", mock.Anything, tenantID, billing.ActionCreateEnvelope).
		Return(allowedQuota(billing.ResourceKindEnvelope), nil)
	f.storage.On("GenerateDownloadURL", mock.Anything, doc.StorageKey, mock.Anything).
		Return("https://storage/url", timeNowForTest(), nil)
	f.envelopes.On("CreateEnvelope", mock.Anything, mock.Anything).
		Return(nil, errors.New("provider unavailable"))
	f.docRepo.On("Update", mock.Anything, doc).Return(nil)

	_, err := f.svc.SendForSignature(context.Background(), tenantID, doc.ID, SendEnvelopeRequest{
		Signers: []SignerRequest{{Name: "Buyer", Email: "buyer@example.com"}},
	})
	require.Error(t, err)
	assert.Equal(t, document.StatusFailed, doc.Status)
	// The envelope never existed, so no envelope usage.
	f.usage.AssertNotCalled(t, "RecordUsage", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	f.sigRepo.AssertNotCalled(t, "SaveBatch", mock.Anything, mock.Anything)
}

func TestSendForSignatureRejectsSecondEnvelope(t *testing.T) {
	f := newDocumentServiceFixture()
	tenantID := uuid.New()
	doc := newUploadedDocument(t, tenantID)
	require.NoError(t, doc.MarkSent("env-existing"))

	f.docRepo.On("FindByIDForTenant", mock.Anything, tenantID, doc.ID).Return(doc, nil)

	_, err := f.svc.SendForSignature(context.Background(), tenantID, doc.ID, SendEnvelopeRequest{
		Signers: []SignerRequest{{Name: "Buyer", Email: "buyer@example.com"}},
	})
	require.Error(t, err)
	f.envelopes.AssertNotCalled(t, "CreateEnvelope", mock.Anything, mock.Anything)
}

func TestHandleSigningEventCompletesWhenAllSigned(t *testing.T) {
	f := newDocumentServiceFixture()
	tenantID := uuid.New()
	doc := newUploadedDocument(t, tenantID)
	require.NoError(t, doc.MarkSent("env-123"))

	sigA, err := document.NewPendingSignature(tenantID, doc.ID, "env-123", "Buyer", "buyer@example.com")
	require.NoError(t, err)
	sigB, err := document.NewPendingSignature(tenantID, doc.ID, "env-123", "Seller", "seller@example.com")
	require.NoError(t, err)
	sigB.MarkSigned()

	f.sigRepo.On("FindByEnvelopeAndEmail", mock.Anything, "env-123", "buyer@example.com").Return(sigA, nil)
	f.docRepo.On("FindByEnvelopeID", mock.Anything, "env-123").Return(doc, nil)
	f.sigRepo.On("Update", mock.Anything, sigA).Return(nil)
	f.sigRepo.On("FindByEnvelopeID", mock.Anything, "env-123").
		Return([]*document.PendingSignature{sigA, sigB}, nil)
	f.docRepo.On("Update", mock.Anything, doc).Return(nil)

	err = f.svc.HandleSigningEvent(context.Background(), SigningEvent{
		EnvelopeID:     "env-123",
		RecipientEmail: "buyer@example.com",
	})
	require.NoError(t, err)
	assert.Equal(t, document.SignatureStatusSigned, sigA.Status)
	assert.Equal(t, document.StatusCompleted, doc.Status)
}

func TestHandleSigningEventPartialSignatureLeavesDocumentSent(t *testing.T) {
	f := newDocumentServiceFixture()
	tenantID := uuid.New()
	doc := newUploadedDocument(t, tenantID)
	require.NoError(t, doc.MarkSent("env-123"))

	sigA, err := document.NewPendingSignature(tenantID, doc.ID, "env-123", "Buyer", "buyer@example.com")
	require.NoError(t, err)
	sigB, err := document.NewPendingSignature(tenantID, doc.ID, "env-123", "Seller", "seller@example.com")
	require.NoError(t, err)

	f.sigRepo.On("FindByEnvelopeAndEmail", mock.Anything, "env-123", "buyer@example.com").Return(sigA, nil)
	f.docRepo.On("FindByEnvelopeID", mock.Anything, "env-123").Return(doc, nil)
	f.sigRepo.On("Update", mock.Anything, sigA).Return(nil)
	f.sigRepo.On("FindByEnvelopeID", mock.Anything, "env-123").
		Return([]*document.PendingSignature{sigA, sigB}, nil)

	err = f.svc.HandleSigningEvent(context.Background(), SigningEvent{
		EnvelopeID:     "env-123",
		RecipientEmail: "buyer@example.com",
	})
	require.NoError(t, err)
	assert.Equal(t, document.StatusSent, doc.Status)
	f.docRepo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}

func TestHandleSigningEventDecline(t *testing.T) {
	f := newDocumentServiceFixture()
	tenantID := uuid.New()
	doc := newUploadedDocument(t, tenantID)
	require.NoError(t, doc.MarkSent("env-123"))

	sig, err := document.NewPendingSignature(tenantID, doc.ID, "env-123", "Buyer", "buyer@example.com")
	require.NoError(t, err)

	f.sigRepo.On("FindByEnvelopeAndEmail", mock.Anything, "env-123", "buyer@example.com").Return(sig, nil)
	f.docRepo.On("FindByEnvelopeID", mock.Anything, "env-123").Return(doc, nil)
	f.sigRepo.On("Update", mock.Anything, sig).Return(nil)
	f.docRepo.On("Update", mock.Anything, doc).Return(nil)

	err = f.svc.HandleSigningEvent(context.Background(), SigningEvent{
		EnvelopeID:     "env-123",
		RecipientEmail: "buyer@example.com",
		Declined:       true,
	})
	require.NoError(t, err)
	assert.Equal(t, document.SignatureStatusDeclined, sig.Status)
	assert.Equal(t, document.StatusDeclined, doc.Status)
}
