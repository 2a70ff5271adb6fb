package billing

import (
	"context"

	"github.com/google/uuid"
)

// PlanRepository defines the interface for the plan catalog
type PlanRepository interface {
	// FindByID retrieves a plan by its identifier
	FindByID(ctx context.Context, id string) (*Plan, error)

	// FindAllActive retrieves every active plan
	FindAllActive(ctx context.Context) ([]*Plan, error)

	// Save persists a plan (create or replace)
	Save(ctx context.Context, plan *Plan) error
}

// UsageRecordRepository defines the interface for the usage ledger.
// Increment is the only write path and must be a single atomic
// upsert-and-add in the backing store: two concurrent increments for the
// same key must both be reflected in the final count.
type UsageRecordRepository interface {
	// Increment adds amount to the counter for (tenant, kind, period),
	// creating the row with count=amount when absent, and returns the new
	// total after the addition.
	Increment(ctx context.Context, tenantID uuid.UUID, kind ResourceKind, period Period, amount int64) (int64, error)

	// GetCount returns the counter for a single key, zero when absent
	GetCount(ctx context.Context, tenantID uuid.UUID, kind ResourceKind, period Period) (int64, error)

	// GetPeriodUsage returns all counters for a tenant and period keyed by
	// resource kind; absent kinds are simply missing from the map
	GetPeriodUsage(ctx context.Context, tenantID uuid.UUID, period Period) (map[ResourceKind]int64, error)
}

// AlertRecordRepository defines the interface for threshold alert
// deduplication facts.
type AlertRecordRepository interface {
	// TryCreate persists the alert record unless one already exists for the
	// same (tenant, kind, threshold, period). It reports whether this call
	// created the record; false means another caller already fired this
	// threshold and the alert must not be emitted again.
	TryCreate(ctx context.Context, record *AlertRecord) (bool, error)

	// FindForPeriod returns every alert already fired for a tenant in a period
	FindForPeriod(ctx context.Context, tenantID uuid.UUID, period Period) ([]*AlertRecord, error)
}
