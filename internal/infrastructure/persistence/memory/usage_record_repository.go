// Package memory provides in-memory billing repositories suitable for
// single-instance development setups and testing.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/propsign/backend/internal/domain/billing"
)

type usageKey string

func makeUsageKey(tenantID uuid.UUID, kind billing.ResourceKind, period billing.Period) usageKey {
	return usageKey(fmt.Sprintf("%s|%s|%s", tenantID, kind, period))
}

// UsageRecordRepository implements billing.UsageRecordRepository with a
// mutex-guarded map. Increment holds the write lock across read-modify-write,
// giving the same no-lost-updates guarantee the SQL upsert provides.
type UsageRecordRepository struct {
	mu      sync.RWMutex
	records map[usageKey]*billing.UsageRecord
}

// NewUsageRecordRepository creates an empty in-memory usage ledger
func NewUsageRecordRepository() *UsageRecordRepository {
	return &UsageRecordRepository{
		records: make(map[usageKey]*billing.UsageRecord),
	}
}

// Increment adds amount to the counter and returns the new total
func (r *UsageRecordRepository) Increment(ctx context.Context, tenantID uuid.UUID, kind billing.ResourceKind, period billing.Period, amount int64) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := makeUsageKey(tenantID, kind, period)
	if existing, ok := r.records[key]; ok {
		existing.Count += amount
		return existing.Count, nil
	}

	record, err := billing.NewUsageRecord(tenantID, kind, period, amount)
	if err != nil {
		return 0, err
	}
	r.records[key] = record
	return record.Count, nil
}

// GetCount returns the counter for a single key, zero when absent
func (r *UsageRecordRepository) GetCount(ctx context.Context, tenantID uuid.UUID, kind billing.ResourceKind, period billing.Period) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if record, ok := r.records[makeUsageKey(tenantID, kind, period)]; ok {
		return record.Count, nil
	}
	return 0, nil
}

// GetPeriodUsage returns all counters for a tenant and period
func (r *UsageRecordRepository) GetPeriodUsage(ctx context.Context, tenantID uuid.UUID, period billing.Period) (map[billing.ResourceKind]int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	counts := make(map[billing.ResourceKind]int64)
	for _, record := range r.records {
		if record.TenantID == tenantID && record.Period == period {
			counts[record.ResourceKind] = record.Count
		}
	}
	return counts, nil
}

// Ensure UsageRecordRepository implements billing.UsageRecordRepository
var _ billing.UsageRecordRepository = (*UsageRecordRepository)(nil)
