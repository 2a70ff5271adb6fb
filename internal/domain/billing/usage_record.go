package billing

import (
	"github.com/google/uuid"
	"github.com/propsign/backend/internal/domain/shared"
)

// UsageRecord is the live counter of consumed quota for one tenant, one
// resource kind and one billing period. There is at most one row per
// (tenant, kind, period); all increments for that key accumulate into it.
// Counters are never decremented: usage reflects attempted work, and a
// downstream failure after metering does not roll it back.
type UsageRecord struct {
	shared.TenantEntity
	ResourceKind ResourceKind `gorm:"type:varchar(20);not null"`
	Period       Period       `gorm:"type:char(7);not null"`
	Count        int64        `gorm:"not null;default:0"`
}

// TableName returns the table name for GORM
func (UsageRecord) TableName() string {
	return "usage_records"
}

// NewUsageRecord creates a counter row with validation
func NewUsageRecord(tenantID uuid.UUID, kind ResourceKind, period Period, count int64) (*UsageRecord, error) {
	if tenantID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_TENANT", "Tenant ID cannot be empty")
	}
	if !kind.IsValid() {
		return nil, shared.NewDomainError("INVALID_RESOURCE_KIND", "Invalid resource kind")
	}
	if !period.IsValid() {
		return nil, shared.NewDomainError("INVALID_PERIOD", "Period must have the form YYYY-MM")
	}
	if count < 0 {
		return nil, shared.NewDomainError("INVALID_COUNT", "Count cannot be negative")
	}
	return &UsageRecord{
		TenantEntity: shared.NewTenantEntity(tenantID),
		ResourceKind: kind,
		Period:       period,
		Count:        count,
	}, nil
}

// UsageSnapshot aggregates a tenant's counters for one period, with absent
// kinds defaulting to zero.
type UsageSnapshot struct {
	TenantID  uuid.UUID              `json:"tenant_id"`
	Period    Period                 `json:"period"`
	Counts    map[ResourceKind]int64 `json:"counts"`
}

// NewUsageSnapshot builds a snapshot with every kind present
func NewUsageSnapshot(tenantID uuid.UUID, period Period, counts map[ResourceKind]int64) UsageSnapshot {
	full := make(map[ResourceKind]int64, len(AllResourceKinds()))
	for _, kind := range AllResourceKinds() {
		full[kind] = counts[kind]
	}
	return UsageSnapshot{TenantID: tenantID, Period: period, Counts: full}
}

// CountFor returns the snapshot count for a kind, zero when absent
func (s UsageSnapshot) CountFor(kind ResourceKind) int64 {
	return s.Counts[kind]
}
