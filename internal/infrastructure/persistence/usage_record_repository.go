package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/propsign/backend/internal/domain/billing"
	"gorm.io/gorm"
)

// GormUsageRecordRepository implements billing.UsageRecordRepository using GORM
type GormUsageRecordRepository struct {
	db *gorm.DB
}

// NewGormUsageRecordRepository creates a new GormUsageRecordRepository
func NewGormUsageRecordRepository(db *gorm.DB) *GormUsageRecordRepository {
	return &GormUsageRecordRepository{db: db}
}

// Increment adds amount to the counter for (tenant, kind, period) and
// returns the new total. The whole operation is a single upsert statement,
// so concurrent increments on the same key serialize on the row and no
// update is ever lost. There is deliberately no read-modify-write here.
func (r *GormUsageRecordRepository) Increment(ctx context.Context, tenantID uuid.UUID, kind billing.ResourceKind, period billing.Period, amount int64) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Raw(`
		INSERT INTO usage_records (id, tenant_id, resource_kind, period, count, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, NOW(), NOW())
		ON CONFLICT (tenant_id, resource_kind, period)
		DO UPDATE SET count = usage_records.count + EXCLUDED.count, updated_at = NOW()
		RETURNING count`,
		uuid.New(), tenantID, string(kind), string(period), amount,
	).Scan(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

// GetCount returns the counter for one key, zero when no row exists yet
func (r *GormUsageRecordRepository) GetCount(ctx context.Context, tenantID uuid.UUID, kind billing.ResourceKind, period billing.Period) (int64, error) {
	var record billing.UsageRecord
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND resource_kind = ? AND period = ?", tenantID, string(kind), string(period)).
		First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, nil
		}
		return 0, err
	}
	return record.Count, nil
}

// GetPeriodUsage returns the counters of all resource kinds for a tenant
// and period. Kinds without a row are absent from the map.
func (r *GormUsageRecordRepository) GetPeriodUsage(ctx context.Context, tenantID uuid.UUID, period billing.Period) (map[billing.ResourceKind]int64, error) {
	var records []billing.UsageRecord
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND period = ?", tenantID, string(period)).
		Find(&records).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[billing.ResourceKind]int64, len(records))
	for _, record := range records {
		counts[record.ResourceKind] = record.Count
	}
	return counts, nil
}

// Ensure GormUsageRecordRepository implements UsageRecordRepository
var _ billing.UsageRecordRepository = (*GormUsageRecordRepository)(nil)
