package identity

import (
	"strings"
	"time"

	"github.com/propsign/backend/internal/domain/shared"
)

// TenantStatus represents the status of a tenant
type TenantStatus string

const (
	TenantStatusActive    TenantStatus = "active"
	TenantStatusInactive  TenantStatus = "inactive"
	TenantStatusSuspended TenantStatus = "suspended" // Suspended due to payment issues
)

// Tenant represents a billed account in the multi-tenant system. A tenant
// owns its documents, signature requests, usage counters and alerts, and
// references exactly one subscription plan by ID; the limits live on the
// plan row, never on the tenant.
type Tenant struct {
	shared.BaseEntity
	Name                 string       `gorm:"type:varchar(200);not null"`
	Email                string       `gorm:"type:varchar(200);not null;uniqueIndex"`
	Company              string       `gorm:"type:varchar(200)"`
	LicenseNumber        string       `gorm:"type:varchar(100)"` // Real-estate license, free text
	Status               TenantStatus `gorm:"type:varchar(20);not null;default:'active'"`
	PlanID               string       `gorm:"type:varchar(50);index"` // References plans.id; empty = no plan assigned
	StripeCustomerID     string       `gorm:"type:varchar(100);index"`
	StripeSubscriptionID string       `gorm:"type:varchar(100)"`
	ExpiresAt            *time.Time
}

// TableName returns the table name for GORM
func (Tenant) TableName() string {
	return "tenants"
}

// NewTenant creates a new tenant with validation
func NewTenant(name, email string) (*Tenant, error) {
	name = strings.TrimSpace(name)
	email = strings.ToLower(strings.TrimSpace(email))

	if name == "" {
		return nil, shared.NewDomainError("INVALID_NAME", "Tenant name cannot be empty")
	}
	if email == "" || !strings.Contains(email, "@") {
		return nil, shared.NewDomainError("INVALID_EMAIL", "A valid contact email is required")
	}

	return &Tenant{
		BaseEntity: shared.NewBaseEntity(),
		Name:       name,
		Email:      email,
		Status:     TenantStatusActive,
	}, nil
}

// HasPlan returns true if the tenant references a subscription plan
func (t *Tenant) HasPlan() bool {
	return t.PlanID != ""
}

// AssignPlan sets the tenant's plan reference
func (t *Tenant) AssignPlan(planID string) error {
	if planID == "" {
		return shared.NewDomainError("INVALID_PLAN", "Plan ID cannot be empty")
	}
	t.PlanID = planID
	t.UpdatedAt = time.Now()
	return nil
}

// SetStripeCustomerID links the tenant to its Stripe customer
func (t *Tenant) SetStripeCustomerID(customerID string) {
	t.StripeCustomerID = customerID
	t.UpdatedAt = time.Now()
}

// SetStripeSubscriptionID links the tenant to its Stripe subscription
func (t *Tenant) SetStripeSubscriptionID(subscriptionID string) {
	t.StripeSubscriptionID = subscriptionID
	t.UpdatedAt = time.Now()
}

// SetExpiration records when the current billing period ends
func (t *Tenant) SetExpiration(expiresAt time.Time) {
	t.ExpiresAt = &expiresAt
	t.UpdatedAt = time.Now()
}

// ClearExpiration removes the period end, used when dropping to the free plan
func (t *Tenant) ClearExpiration() {
	t.ExpiresAt = nil
	t.UpdatedAt = time.Now()
}

// IsSuspended returns true if the tenant is blocked over payment issues
func (t *Tenant) IsSuspended() bool {
	return t.Status == TenantStatusSuspended
}

// IsActive returns true if the tenant may perform metered actions
func (t *Tenant) IsActive() bool {
	return t.Status == TenantStatusActive
}

// Suspend marks the tenant suspended, blocking all metered actions
func (t *Tenant) Suspend() {
	t.Status = TenantStatusSuspended
	t.UpdatedAt = time.Now()
}

// Activate restores a suspended or inactive tenant
func (t *Tenant) Activate() {
	t.Status = TenantStatusActive
	t.UpdatedAt = time.Now()
}
