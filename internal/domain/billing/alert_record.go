package billing

import (
	"math"

	"github.com/google/uuid"
	"github.com/propsign/backend/internal/domain/shared"
)

// DefaultThresholds are the usage percentages that trigger a one-time alert
// per resource kind per billing period, evaluated in ascending order.
var DefaultThresholds = []int{80, 90, 100}

// AlertRecord is the persisted fact that threshold T for resource kind R was
// already signaled for a tenant in a period. For a given (tenant, kind,
// threshold, period) at most one record exists; it is created the moment the
// threshold is crossed and never updated.
type AlertRecord struct {
	shared.TenantEntity
	ResourceKind ResourceKind `gorm:"type:varchar(20);not null"`
	Threshold    int          `gorm:"not null"`
	Period       Period       `gorm:"type:char(7);not null"`
	UsageCount   int64        `gorm:"not null"`
	LimitCount   int64        `gorm:"not null"`
}

// TableName returns the table name for GORM
func (AlertRecord) TableName() string {
	return "usage_alerts"
}

// NewAlertRecord creates an alert record with validation
func NewAlertRecord(tenantID uuid.UUID, kind ResourceKind, threshold int, period Period, usage, limit int64) (*AlertRecord, error) {
	if tenantID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_TENANT", "Tenant ID cannot be empty")
	}
	if !kind.IsValid() {
		return nil, shared.NewDomainError("INVALID_RESOURCE_KIND", "Invalid resource kind")
	}
	if !validThreshold(threshold) {
		return nil, shared.NewDomainError("INVALID_THRESHOLD", "Threshold is not a configured alert level")
	}
	if !period.IsValid() {
		return nil, shared.NewDomainError("INVALID_PERIOD", "Period must have the form YYYY-MM")
	}
	return &AlertRecord{
		TenantEntity: shared.NewTenantEntity(tenantID),
		ResourceKind: kind,
		Threshold:    threshold,
		Period:       period,
		UsageCount:   usage,
		LimitCount:   limit,
	}, nil
}

func validThreshold(threshold int) bool {
	for _, t := range DefaultThresholds {
		if t == threshold {
			return true
		}
	}
	return false
}

// UsagePercent returns current usage as a rounded percentage of the limit.
// Unlimited (-1) and zero limits never cross a threshold.
func UsagePercent(current, limit int64) int {
	if limit <= 0 {
		return 0
	}
	return int(math.Round(float64(current) / float64(limit) * 100))
}
