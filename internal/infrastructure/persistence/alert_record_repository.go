package persistence

import (
	"context"

	"github.com/google/uuid"
	"github.com/propsign/backend/internal/domain/billing"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormAlertRecordRepository implements billing.AlertRecordRepository using GORM
type GormAlertRecordRepository struct {
	db *gorm.DB
}

// NewGormAlertRecordRepository creates a new GormAlertRecordRepository
func NewGormAlertRecordRepository(db *gorm.DB) *GormAlertRecordRepository {
	return &GormAlertRecordRepository{db: db}
}

// TryCreate inserts the alert record unless one already exists for the same
// (tenant, kind, threshold, period). The unique index plus ON CONFLICT DO
// NOTHING make the insert the dedup point: rows-affected zero means another
// caller already fired this alert.
func (r *GormAlertRecordRepository) TryCreate(ctx context.Context, record *billing.AlertRecord) (bool, error) {
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{
				{Name: "tenant_id"}, {Name: "resource_kind"},
				{Name: "threshold"}, {Name: "period"},
			},
			DoNothing: true,
		}).
		Create(record)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// FindForPeriod returns a tenant's alert records for one period, newest first
func (r *GormAlertRecordRepository) FindForPeriod(ctx context.Context, tenantID uuid.UUID, period billing.Period) ([]*billing.AlertRecord, error) {
	var records []*billing.AlertRecord
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND period = ?", tenantID, string(period)).
		Order("created_at DESC").
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}

// Ensure GormAlertRecordRepository implements AlertRecordRepository
var _ billing.AlertRecordRepository = (*GormAlertRecordRepository)(nil)
