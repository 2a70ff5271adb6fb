package billing

import (
	"time"

	"github.com/propsign/backend/internal/domain/shared"
)

// UnlimitedLimit marks a plan dimension with no cap
const UnlimitedLimit int64 = -1

// Plan is an immutable named tuple of numeric limits. Tenants reference a
// plan by ID and never embed limits; changing a plan's limits is modeled as
// publishing a new plan row, not mutating a referenced one.
type Plan struct {
	ID                string `gorm:"type:varchar(50);primaryKey"`
	Name              string `gorm:"type:varchar(100);not null"`
	DocumentsLimit    int64  `gorm:"not null"`
	EnvelopesLimit    int64  `gorm:"not null"`
	AIRequestsLimit   int64  `gorm:"not null"`
	StorageLimitBytes int64  `gorm:"not null"`
	PriceCents        int64  `gorm:"not null;default:0"`
	StripePriceID     string `gorm:"type:varchar(100)"`
	Active            bool   `gorm:"not null;default:true"`
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// TableName returns the table name for GORM
func (Plan) TableName() string {
	return "plans"
}

// NewPlan creates a plan with validation
func NewPlan(id, name string, documents, envelopes, aiRequests, storageBytes int64) (*Plan, error) {
	if id == "" {
		return nil, shared.NewDomainError("INVALID_PLAN", "Plan ID cannot be empty")
	}
	for _, limit := range []int64{documents, envelopes, aiRequests, storageBytes} {
		if limit < UnlimitedLimit {
			return nil, shared.NewDomainError("INVALID_LIMIT", "Limit must be -1 (unlimited) or non-negative")
		}
	}
	now := time.Now()
	return &Plan{
		ID:                id,
		Name:              name,
		DocumentsLimit:    documents,
		EnvelopesLimit:    envelopes,
		AIRequestsLimit:   aiRequests,
		StorageLimitBytes: storageBytes,
		Active:            true,
		CreatedAt:         now,
		UpdatedAt:         now,
	}, nil
}

// LimitFor returns the plan's limit for a metered resource kind
func (p *Plan) LimitFor(kind ResourceKind) int64 {
	switch kind {
	case ResourceKindDocument:
		return p.DocumentsLimit
	case ResourceKindEnvelope:
		return p.EnvelopesLimit
	case ResourceKindAIRequest:
		return p.AIRequestsLimit
	default:
		return 0
	}
}

// IsUnlimited returns true if the given kind has no cap on this plan
func (p *Plan) IsUnlimited(kind ResourceKind) bool {
	return p.LimitFor(kind) == UnlimitedLimit
}

// DefaultPlans returns the built-in plan catalog used for seeding
func DefaultPlans() []*Plan {
	const gb = int64(1024 * 1024 * 1024)
	return []*Plan{
		{ID: "free", Name: "Free", DocumentsLimit: 5, EnvelopesLimit: 3, AIRequestsLimit: 10, StorageLimitBytes: 1 * gb, PriceCents: 0, Active: true},
		{ID: "starter", Name: "Starter", DocumentsLimit: 50, EnvelopesLimit: 25, AIRequestsLimit: 100, StorageLimitBytes: 10 * gb, PriceCents: 2900, Active: true},
		{ID: "pro", Name: "Professional", DocumentsLimit: 250, EnvelopesLimit: 150, AIRequestsLimit: 500, StorageLimitBytes: 50 * gb, PriceCents: 7900, Active: true},
		{ID: "enterprise", Name: "Enterprise", DocumentsLimit: UnlimitedLimit, EnvelopesLimit: UnlimitedLimit, AIRequestsLimit: UnlimitedLimit, StorageLimitBytes: 500 * gb, PriceCents: 19900, Active: true},
	}
}
