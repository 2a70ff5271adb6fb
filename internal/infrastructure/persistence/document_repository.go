package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/propsign/backend/internal/domain/document"
	"github.com/propsign/backend/internal/domain/shared"
	"gorm.io/gorm"
)

// GormDocumentRepository implements document.Repository using GORM
type GormDocumentRepository struct {
	db *gorm.DB
}

// NewGormDocumentRepository creates a new GormDocumentRepository
func NewGormDocumentRepository(db *gorm.DB) *GormDocumentRepository {
	return &GormDocumentRepository{db: db}
}

// FindByID finds a document by its ID
func (r *GormDocumentRepository) FindByID(ctx context.Context, id uuid.UUID) (*document.Document, error) {
	var doc document.Document
	if err := r.db.WithContext(ctx).First(&doc, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &doc, nil
}

// FindByIDForTenant finds a document by ID within a tenant
func (r *GormDocumentRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*document.Document, error) {
	var doc document.Document
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&doc).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &doc, nil
}

// FindByEnvelopeID finds the document behind a signing envelope
func (r *GormDocumentRepository) FindByEnvelopeID(ctx context.Context, envelopeID string) (*document.Document, error) {
	var doc document.Document
	err := r.db.WithContext(ctx).
		Where("envelope_id = ?", envelopeID).
		First(&doc).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &doc, nil
}

// FindAllForTenant returns a tenant's documents matching the filter
func (r *GormDocumentRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) ([]*document.Document, error) {
	var docs []*document.Document
	query := r.db.WithContext(ctx).Model(&document.Document{}).
		Where("tenant_id = ?", tenantID)

	if filter.Search != "" {
		query = query.Where("LOWER(name) LIKE ?", "%"+filter.Search+"%")
	}
	query = applyFilter(query, filter)

	if err := query.Find(&docs).Error; err != nil {
		return nil, err
	}
	return docs, nil
}

// Save creates a new document
func (r *GormDocumentRepository) Save(ctx context.Context, doc *document.Document) error {
	return r.db.WithContext(ctx).Create(doc).Error
}

// Update persists changes to an existing document
func (r *GormDocumentRepository) Update(ctx context.Context, doc *document.Document) error {
	return r.db.WithContext(ctx).Save(doc).Error
}

// Ensure GormDocumentRepository implements Repository
var _ document.Repository = (*GormDocumentRepository)(nil)
