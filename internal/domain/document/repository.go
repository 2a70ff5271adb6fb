package document

import (
	"context"

	"github.com/google/uuid"
	"github.com/propsign/backend/internal/domain/shared"
)

// Repository defines the interface for document persistence
type Repository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Document, error)
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*Document, error)
	FindByEnvelopeID(ctx context.Context, envelopeID string) (*Document, error)
	FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) ([]*Document, error)
	Save(ctx context.Context, doc *Document) error
	Update(ctx context.Context, doc *Document) error
}

// PendingSignatureRepository defines the interface for signature request
// persistence and the reminder sweep's queries.
type PendingSignatureRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*PendingSignature, error)
	FindByEnvelopeAndEmail(ctx context.Context, envelopeID, email string) (*PendingSignature, error)
	FindByEnvelopeID(ctx context.Context, envelopeID string) ([]*PendingSignature, error)
	FindOpenForTenant(ctx context.Context, tenantID uuid.UUID) ([]*PendingSignature, error)

	// TenantsWithOpenSignatures lists the tenants the recurring sweep visits:
	// those with at least one non-terminal signature request.
	TenantsWithOpenSignatures(ctx context.Context) ([]uuid.UUID, error)

	Save(ctx context.Context, sig *PendingSignature) error
	SaveBatch(ctx context.Context, sigs []*PendingSignature) error
	Update(ctx context.Context, sig *PendingSignature) error
}
