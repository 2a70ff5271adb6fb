package identity

import (
	"context"

	"github.com/google/uuid"
	"github.com/propsign/backend/internal/domain/shared"
)

// TenantRepository defines the interface for tenant persistence
type TenantRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Tenant, error)
	FindByEmail(ctx context.Context, email string) (*Tenant, error)
	FindByStripeCustomerID(ctx context.Context, customerID string) (*Tenant, error)
	FindAll(ctx context.Context, filter shared.Filter) ([]*Tenant, error)
	Save(ctx context.Context, tenant *Tenant) error
	Update(ctx context.Context, tenant *Tenant) error
}
