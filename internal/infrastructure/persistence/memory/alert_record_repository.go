package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/propsign/backend/internal/domain/billing"
)

type alertKey string

func makeAlertKey(record *billing.AlertRecord) alertKey {
	return alertKey(fmt.Sprintf("%s|%s|%d|%s", record.TenantID, record.ResourceKind, record.Threshold, record.Period))
}

// AlertRecordRepository implements billing.AlertRecordRepository with a
// mutex-guarded map. TryCreate is check-and-insert under one write lock, so
// only the first caller for a key wins.
type AlertRecordRepository struct {
	mu      sync.RWMutex
	records map[alertKey]*billing.AlertRecord
}

// NewAlertRecordRepository creates an empty in-memory alert store
func NewAlertRecordRepository() *AlertRecordRepository {
	return &AlertRecordRepository{
		records: make(map[alertKey]*billing.AlertRecord),
	}
}

// TryCreate stores the record unless its key already exists and reports
// whether this call created it
func (r *AlertRecordRepository) TryCreate(ctx context.Context, record *billing.AlertRecord) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := makeAlertKey(record)
	if _, exists := r.records[key]; exists {
		return false, nil
	}
	r.records[key] = record
	return true, nil
}

// FindForPeriod returns every alert fired for a tenant in a period, newest first
func (r *AlertRecordRepository) FindForPeriod(ctx context.Context, tenantID uuid.UUID, period billing.Period) ([]*billing.AlertRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var alerts []*billing.AlertRecord
	for _, record := range r.records {
		if record.TenantID == tenantID && record.Period == period {
			alerts = append(alerts, record)
		}
	}
	sort.Slice(alerts, func(i, j int) bool {
		return alerts[i].CreatedAt.After(alerts[j].CreatedAt)
	})
	return alerts, nil
}

// Ensure AlertRecordRepository implements billing.AlertRecordRepository
var _ billing.AlertRecordRepository = (*AlertRecordRepository)(nil)
