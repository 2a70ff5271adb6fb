package persistence

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/propsign/backend/internal/domain/document"
	"github.com/propsign/backend/internal/domain/shared"
	"gorm.io/gorm"
)

// GormPendingSignatureRepository implements document.PendingSignatureRepository using GORM
type GormPendingSignatureRepository struct {
	db *gorm.DB
}

// NewGormPendingSignatureRepository creates a new GormPendingSignatureRepository
func NewGormPendingSignatureRepository(db *gorm.DB) *GormPendingSignatureRepository {
	return &GormPendingSignatureRepository{db: db}
}

// FindByID finds a signature request by its ID
func (r *GormPendingSignatureRepository) FindByID(ctx context.Context, id uuid.UUID) (*document.PendingSignature, error) {
	var sig document.PendingSignature
	if err := r.db.WithContext(ctx).First(&sig, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &sig, nil
}

// FindByEnvelopeAndEmail finds one recipient's request on an envelope
func (r *GormPendingSignatureRepository) FindByEnvelopeAndEmail(ctx context.Context, envelopeID, email string) (*document.PendingSignature, error) {
	var sig document.PendingSignature
	err := r.db.WithContext(ctx).
		Where("envelope_id = ? AND recipient_email = ?", envelopeID, strings.ToLower(strings.TrimSpace(email))).
		First(&sig).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &sig, nil
}

// FindByEnvelopeID returns all recipients' requests on an envelope
func (r *GormPendingSignatureRepository) FindByEnvelopeID(ctx context.Context, envelopeID string) ([]*document.PendingSignature, error) {
	var sigs []*document.PendingSignature
	err := r.db.WithContext(ctx).
		Where("envelope_id = ?", envelopeID).
		Find(&sigs).Error
	if err != nil {
		return nil, err
	}
	return sigs, nil
}

// FindOpenForTenant returns a tenant's non-terminal signature requests
func (r *GormPendingSignatureRepository) FindOpenForTenant(ctx context.Context, tenantID uuid.UUID) ([]*document.PendingSignature, error) {
	var sigs []*document.PendingSignature
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND status IN ?", tenantID,
			[]string{string(document.SignatureStatusPending), string(document.SignatureStatusReminded)}).
		Order("created_at ASC").
		Find(&sigs).Error
	if err != nil {
		return nil, err
	}
	return sigs, nil
}

// TenantsWithOpenSignatures lists tenants with at least one open request
func (r *GormPendingSignatureRepository) TenantsWithOpenSignatures(ctx context.Context) ([]uuid.UUID, error) {
	var tenantIDs []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&document.PendingSignature{}).
		Where("status IN ?",
			[]string{string(document.SignatureStatusPending), string(document.SignatureStatusReminded)}).
		Distinct("tenant_id").
		Pluck("tenant_id", &tenantIDs).Error
	if err != nil {
		return nil, err
	}
	return tenantIDs, nil
}

// Save creates a new signature request
func (r *GormPendingSignatureRepository) Save(ctx context.Context, sig *document.PendingSignature) error {
	return r.db.WithContext(ctx).Create(sig).Error
}

// SaveBatch creates signature requests for all recipients of one envelope
func (r *GormPendingSignatureRepository) SaveBatch(ctx context.Context, sigs []*document.PendingSignature) error {
	if len(sigs) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).CreateInBatches(sigs, 100).Error
}

// Update persists changes to an existing signature request
func (r *GormPendingSignatureRepository) Update(ctx context.Context, sig *document.PendingSignature) error {
	return r.db.WithContext(ctx).Save(sig).Error
}

// Ensure GormPendingSignatureRepository implements PendingSignatureRepository
var _ document.PendingSignatureRepository = (*GormPendingSignatureRepository)(nil)
