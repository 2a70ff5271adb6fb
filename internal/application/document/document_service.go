package document

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	appbilling "github.com/propsign/backend/internal/application/billing"
	"github.com/propsign/backend/internal/domain/billing"
	"github.com/propsign/backend/internal/domain/document"
	"github.com/propsign/backend/internal/domain/identity"
	"github.com/propsign/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// AllowedContentTypes is the whitelist of uploadable content types.
// Real-estate paperwork is PDFs, Office documents and scanned images.
var AllowedContentTypes = map[string]bool{
	"application/pdf":    true,
	"application/msword": true,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": true,
	"image/jpeg": true,
	"image/png":  true,
	"image/tiff": true,
	"text/plain": true,
}

// ObjectStorageService defines the object storage operations the document
// pipeline needs. Implemented by the infrastructure layer (S3-compatible).
type ObjectStorageService interface {
	Upload(ctx context.Context, storageKey string, data []byte, contentType string) error
	GenerateDownloadURL(ctx context.Context, storageKey string, expiresIn time.Duration) (string, time.Time, error)
	DeleteObject(ctx context.Context, storageKey string) error
}

// DocumentParser extracts structured fields from a stored document.
// Implemented by the AI parsing client in the infrastructure layer.
type DocumentParser interface {
	Parse(ctx context.Context, downloadURL, documentName string) (*document.ParseResult, error)
}

// EnvelopeService is the e-signature provider adapter
type EnvelopeService interface {
	CreateEnvelope(ctx context.Context, req CreateEnvelopeRequest) (*EnvelopeResult, error)
	SendReminder(ctx context.Context, envelopeID, recipientEmail string) error
}

// NotificationService delivers outbound email. Delivery failures are logged
// by callers, never propagated; email is best-effort.
type NotificationService interface {
	SendUsageAlert(ctx context.Context, to string, alert appbilling.ThresholdAlert) error
	SendSignatureReminder(ctx context.Context, to, recipientName, documentName string) error
}

// QuotaGate decides whether a metered action may proceed
type QuotaGate interface {
	CanPerformAction(ctx context.Context, tenantID uuid.UUID, action billing.ActionKind) (appbilling.QuotaCheckResult, error)
}

// UsageRecorder appends consumed quota to the usage ledger
type UsageRecorder interface {
	RecordUsage(ctx context.Context, tenantID uuid.UUID, kind billing.ResourceKind, period billing.Period, amount int64) (int64, error)
}

// ThresholdEvaluator detects usage threshold crossings after increments
type ThresholdEvaluator interface {
	EvaluateThresholds(ctx context.Context, tenantID uuid.UUID) ([]appbilling.ThresholdAlert, error)
}

var (
	_ QuotaGate          = (*appbilling.QuotaService)(nil)
	_ UsageRecorder      = (*appbilling.UsageService)(nil)
	_ ThresholdEvaluator = (*appbilling.AlertService)(nil)
)

// DocumentServiceConfig holds tunables for the document pipeline
type DocumentServiceConfig struct {
	MaxUploadBytes    int64
	DownloadURLExpiry time.Duration
}

// DefaultDocumentServiceConfig returns the default configuration
func DefaultDocumentServiceConfig() DocumentServiceConfig {
	return DocumentServiceConfig{
		MaxUploadBytes:    25 << 20, // 25 MiB
		DownloadURLExpiry: 1 * time.Hour,
	}
}

// DocumentService runs the document pipeline: upload, AI parse, envelope
// send, signing callbacks. Every metered step follows the same ordering:
// check the quota gate, perform the action, then record usage and evaluate
// thresholds. Usage is recorded when the action was attempted and is never
// rolled back when a later step fails.
type DocumentService struct {
	docRepo    document.Repository
	sigRepo    document.PendingSignatureRepository
	tenantRepo identity.TenantRepository
	quota      QuotaGate
	usage      UsageRecorder
	alerts     ThresholdEvaluator
	storage    ObjectStorageService
	parser     DocumentParser
	envelopes  EnvelopeService
	notifier   NotificationService
	config     DocumentServiceConfig
	logger     *zap.Logger
}

// NewDocumentService creates a new DocumentService
func NewDocumentService(
	docRepo document.Repository,
	sigRepo document.PendingSignatureRepository,
	tenantRepo identity.TenantRepository,
	quota QuotaGate,
	usage UsageRecorder,
	alerts ThresholdEvaluator,
	storage ObjectStorageService,
	parser DocumentParser,
	envelopes EnvelopeService,
	notifier NotificationService,
	logger *zap.Logger,
) *DocumentService {
	return &DocumentService{
		docRepo:    docRepo,
		sigRepo:    sigRepo,
		tenantRepo: tenantRepo,
		quota:      quota,
		usage:      usage,
		alerts:     alerts,
		storage:    storage,
		parser:     parser,
		envelopes:  envelopes,
		notifier:   notifier,
		config:     DefaultDocumentServiceConfig(),
		logger:     logger,
	}
}

// SetConfig sets the service configuration
func (s *DocumentService) SetConfig(config DocumentServiceConfig) {
	s.config = config
}

// UploadDocument gates the upload against the document quota, stores the
// content and meters one document. The stored object is not removed if the
// usage increment fails afterward; the counter reflects attempted actions.
func (s *DocumentService) UploadDocument(ctx context.Context, tenantID uuid.UUID, req UploadDocumentRequest) (*DocumentResponse, error) {
	if len(req.Content) == 0 {
		return nil, shared.NewDomainError("EMPTY_CONTENT", "Document content cannot be empty")
	}
	if int64(len(req.Content)) > s.config.MaxUploadBytes {
		return nil, shared.NewDomainError("CONTENT_TOO_LARGE",
			fmt.Sprintf("Document exceeds the maximum size of %d bytes", s.config.MaxUploadBytes))
	}
	if !AllowedContentTypes[req.ContentType] {
		return nil, shared.NewDomainError("DISALLOWED_CONTENT_TYPE",
			fmt.Sprintf("Content type '%s' is not allowed", req.ContentType))
	}

	if err := s.checkQuota(ctx, tenantID, billing.ActionUploadDocument); err != nil {
		return nil, err
	}

	storageKey := s.generateStorageKey(tenantID, req.Name)
	doc, err := document.NewDocument(tenantID, req.Name, storageKey, int64(len(req.Content)))
	if err != nil {
		return nil, err
	}

	if err := s.storage.Upload(ctx, storageKey, req.Content, req.ContentType); err != nil {
		s.logger.Error("Failed to store document content",
			zap.String("tenant_id", tenantID.String()),
			zap.String("storage_key", storageKey),
			zap.Error(err))
		return nil, shared.NewDomainError("STORAGE_FAILED", "Failed to store document content")
	}

	if err := s.docRepo.Save(ctx, doc); err != nil {
		return nil, err
	}

	s.meterUsage(ctx, tenantID, billing.ResourceKindDocument)
	s.notifyThresholds(ctx, tenantID)

	s.logger.Info("Document uploaded",
		zap.String("tenant_id", tenantID.String()),
		zap.String("document_id", doc.ID.String()),
		zap.Int64("size_bytes", doc.SizeBytes))

	return ToDocumentResponse(doc), nil
}

// ParseDocument gates one AI request, runs the parser and applies the
// extracted fields. A parser failure leaves the document failed; the AI
// request was consumed and stays on the ledger.
func (s *DocumentService) ParseDocument(ctx context.Context, tenantID, documentID uuid.UUID) (*DocumentResponse, error) {
	doc, err := s.docRepo.FindByIDForTenant(ctx, tenantID, documentID)
	if err != nil {
		return nil, err
	}
	if doc.Status.IsTerminal() {
		return nil, shared.NewDomainError("INVALID_STATE", "Document is in a terminal state")
	}

	if err := s.checkQuota(ctx, tenantID, billing.ActionAIRequest); err != nil {
		return nil, err
	}

	if err := doc.StartParsing(); err != nil {
		return nil, err
	}
	if err := s.docRepo.Update(ctx, doc); err != nil {
		return nil, err
	}

	downloadURL, _, err := s.storage.GenerateDownloadURL(ctx, doc.StorageKey, s.config.DownloadURLExpiry)
	if err != nil {
		doc.MarkFailed("could not generate content URL for parsing")
		if uerr := s.docRepo.Update(ctx, doc); uerr != nil {
			s.logger.Error("Failed to persist document failure", zap.Error(uerr))
		}
		return nil, shared.NewDomainError("STORAGE_FAILED", "Failed to access document content")
	}

	// The request reaches the provider from here on, so it counts.
	s.meterUsage(ctx, tenantID, billing.ResourceKindAIRequest)

	result, err := s.parser.Parse(ctx, downloadURL, doc.Name)
	if err != nil {
		s.logger.Warn("Document parse failed",
			zap.String("tenant_id", tenantID.String()),
			zap.String("document_id", doc.ID.String()),
			zap.Error(err))
		doc.MarkFailed(fmt.Sprintf("parse failed: %v", err))
		if uerr := s.docRepo.Update(ctx, doc); uerr != nil {
			s.logger.Error("Failed to persist document failure", zap.Error(uerr))
		}
		s.notifyThresholds(ctx, tenantID)
		return nil, shared.NewDomainError("PARSE_FAILED", "Document parsing failed")
	}

	if err := doc.ApplyParseResult(*result); err != nil {
		return nil, err
	}
	if err := s.docRepo.Update(ctx, doc); err != nil {
		return nil, err
	}

	s.notifyThresholds(ctx, tenantID)
	return ToDocumentResponse(doc), nil
}

// SendForSignature gates envelope creation, hands the document to the
// signing provider and creates one pending signature per signer. Envelope
// usage is recorded only after the provider accepted the envelope; a
// provider failure marks the document failed without metering.
func (s *DocumentService) SendForSignature(ctx context.Context, tenantID, documentID uuid.UUID, req SendEnvelopeRequest) (*DocumentResponse, error) {
	if len(req.Signers) == 0 {
		return nil, shared.NewDomainError("INVALID_SIGNERS", "At least one signer is required")
	}

	doc, err := s.docRepo.FindByIDForTenant(ctx, tenantID, documentID)
	if err != nil {
		return nil, err
	}
	if doc.Status.IsTerminal() {
		return nil, shared.NewDomainError("INVALID_STATE", "Document is in a terminal state")
	}
	if doc.EnvelopeID != "" {
		return nil, shared.NewDomainError("ENVELOPE_EXISTS", "Document was already sent for signature")
	}

	if err := s.checkQuota(ctx, tenantID, billing.ActionCreateEnvelope); err != nil {
		return nil, err
	}

	downloadURL, _, err := s.storage.GenerateDownloadURL(ctx, doc.StorageKey, s.config.DownloadURLExpiry)
	if err != nil {
		return nil, shared.NewDomainError("STORAGE_FAILED", "Failed to access document content")
	}

	env, err := s.envelopes.CreateEnvelope(ctx, CreateEnvelopeRequest{
		DocumentID:   doc.ID,
		DocumentName: doc.Name,
		DownloadURL:  downloadURL,
		Signers:      req.Signers,
		Message:      req.Message,
	})
	if err != nil {
		s.logger.Error("Envelope creation failed",
			zap.String("tenant_id", tenantID.String()),
			zap.String("document_id", doc.ID.String()),
			zap.Error(err))
		doc.MarkFailed(fmt.Sprintf("envelope creation failed: %v", err))
		if uerr := s.docRepo.Update(ctx, doc); uerr != nil {
			s.logger.Error("Failed to persist document failure", zap.Error(uerr))
		}
		return nil, shared.NewDomainError("ENVELOPE_FAILED", "Failed to create signing envelope")
	}

	if err := doc.MarkSent(env.EnvelopeID); err != nil {
		return nil, err
	}
	if err := s.docRepo.Update(ctx, doc); err != nil {
		return nil, err
	}

	sigs := make([]*document.PendingSignature, 0, len(req.Signers))
	for _, signer := range req.Signers {
		sig, err := document.NewPendingSignature(tenantID, doc.ID, env.EnvelopeID, signer.Name, signer.Email)
		if err != nil {
			return nil, err
		}
		sigs = append(sigs, sig)
	}
	if err := s.sigRepo.SaveBatch(ctx, sigs); err != nil {
		return nil, err
	}

	s.meterUsage(ctx, tenantID, billing.ResourceKindEnvelope)
	s.notifyThresholds(ctx, tenantID)

	s.logger.Info("Document sent for signature",
		zap.String("tenant_id", tenantID.String()),
		zap.String("document_id", doc.ID.String()),
		zap.String("envelope_id", env.EnvelopeID),
		zap.Int("signers", len(sigs)))

	return ToDocumentResponse(doc), nil
}

// SigningEvent is a callback from the e-signature provider
type SigningEvent struct {
	EnvelopeID     string
	RecipientEmail string
	Declined       bool
}

// HandleSigningEvent applies one provider callback: the recipient's request
// becomes signed or declined, and the document completes once every
// recipient signed, or declines as soon as one recipient declined.
func (s *DocumentService) HandleSigningEvent(ctx context.Context, event SigningEvent) error {
	sig, err := s.sigRepo.FindByEnvelopeAndEmail(ctx, event.EnvelopeID, event.RecipientEmail)
	if err != nil {
		return err
	}

	doc, err := s.docRepo.FindByEnvelopeID(ctx, event.EnvelopeID)
	if err != nil {
		return err
	}

	if event.Declined {
		sig.MarkDeclined()
		if err := s.sigRepo.Update(ctx, sig); err != nil {
			return err
		}
		doc.MarkDeclined()
		return s.docRepo.Update(ctx, doc)
	}

	sig.MarkSigned()
	if err := s.sigRepo.Update(ctx, sig); err != nil {
		return err
	}

	all, err := s.sigRepo.FindByEnvelopeID(ctx, event.EnvelopeID)
	if err != nil {
		return err
	}
	for _, other := range all {
		if other.Status != document.SignatureStatusSigned {
			return nil
		}
	}

	doc.MarkCompleted()
	if err := s.docRepo.Update(ctx, doc); err != nil {
		return err
	}

	s.logger.Info("Document fully signed",
		zap.String("document_id", doc.ID.String()),
		zap.String("envelope_id", event.EnvelopeID))
	return nil
}

// GetDocument returns one document with a fresh download URL
func (s *DocumentService) GetDocument(ctx context.Context, tenantID, documentID uuid.UUID) (*DocumentResponse, error) {
	doc, err := s.docRepo.FindByIDForTenant(ctx, tenantID, documentID)
	if err != nil {
		return nil, err
	}

	resp := ToDocumentResponse(doc)
	url, _, err := s.storage.GenerateDownloadURL(ctx, doc.StorageKey, s.config.DownloadURLExpiry)
	if err != nil {
		s.logger.Warn("Failed to generate download URL",
			zap.String("document_id", doc.ID.String()),
			zap.Error(err))
	} else {
		resp.DownloadURL = url
	}
	return resp, nil
}

// ListDocuments returns the tenant's documents, newest first
func (s *DocumentService) ListDocuments(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) ([]*DocumentResponse, error) {
	docs, err := s.docRepo.FindAllForTenant(ctx, tenantID, filter)
	if err != nil {
		return nil, err
	}
	resp := make([]*DocumentResponse, 0, len(docs))
	for _, d := range docs {
		resp = append(resp, ToDocumentResponse(d))
	}
	return resp, nil
}

// ListPendingSignatures returns the tenant's open signature requests
func (s *DocumentService) ListPendingSignatures(ctx context.Context, tenantID uuid.UUID) ([]*PendingSignatureResponse, error) {
	sigs, err := s.sigRepo.FindOpenForTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	resp := make([]*PendingSignatureResponse, 0, len(sigs))
	for _, sig := range sigs {
		resp = append(resp, ToPendingSignatureResponse(sig))
	}
	return resp, nil
}

// checkQuota consults the gate and converts a denial into a
// QuotaExceededError carrying the gate's counters.
func (s *DocumentService) checkQuota(ctx context.Context, tenantID uuid.UUID, action billing.ActionKind) error {
	check, err := s.quota.CanPerformAction(ctx, tenantID, action)
	if err != nil {
		return err
	}
	if !check.Allowed {
		return &appbilling.QuotaExceededError{
			ResourceKind: check.ResourceKind,
			Current:      check.Current,
			Limit:        check.Limit,
			Message:      check.Message,
		}
	}
	return nil
}

// meterUsage records one unit in the current period. The action already
// happened, so a ledger failure is logged and swallowed rather than
// surfaced to the caller.
func (s *DocumentService) meterUsage(ctx context.Context, tenantID uuid.UUID, kind billing.ResourceKind) {
	if _, err := s.usage.RecordUsage(ctx, tenantID, kind, billing.CurrentPeriod(), 1); err != nil {
		s.logger.Error("Failed to record usage",
			zap.String("tenant_id", tenantID.String()),
			zap.String("resource_kind", string(kind)),
			zap.Error(err))
	}
}

// notifyThresholds evaluates usage thresholds and emails any new alerts to
// the tenant contact. Best-effort throughout.
func (s *DocumentService) notifyThresholds(ctx context.Context, tenantID uuid.UUID) {
	alerts, err := s.alerts.EvaluateThresholds(ctx, tenantID)
	if err != nil {
		s.logger.Warn("Threshold evaluation failed",
			zap.String("tenant_id", tenantID.String()),
			zap.Error(err))
		return
	}
	if len(alerts) == 0 {
		return
	}

	tenant, err := s.tenantRepo.FindByID(ctx, tenantID)
	if err != nil {
		s.logger.Warn("Could not resolve tenant contact for usage alert",
			zap.String("tenant_id", tenantID.String()),
			zap.Error(err))
		return
	}

	for _, alert := range alerts {
		if err := s.notifier.SendUsageAlert(ctx, tenant.Email, alert); err != nil {
			s.logger.Warn("Failed to send usage alert email",
				zap.String("tenant_id", tenantID.String()),
				zap.String("resource_kind", string(alert.ResourceKind)),
				zap.Int("threshold", alert.Threshold),
				zap.Error(err))
		}
	}
}

// generateStorageKey builds a unique, tenant-scoped object key
func (s *DocumentService) generateStorageKey(tenantID uuid.UUID, fileName string) string {
	ext := filepath.Ext(fileName)
	base := strings.TrimSuffix(filepath.Base(fileName), ext)
	base = sanitizeFileName(base)
	return fmt.Sprintf("documents/%s/%s-%s%s", tenantID, uuid.New(), base, ext)
}

func sanitizeFileName(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	if b.Len() == 0 {
		return "document"
	}
	return b.String()
}

// IsNotFound reports whether the error is the shared not-found sentinel
func IsNotFound(err error) bool {
	return errors.Is(err, shared.ErrNotFound)
}
