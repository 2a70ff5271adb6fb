package document

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/propsign/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Status represents the lifecycle state of a document
type Status string

const (
	StatusUploaded  Status = "uploaded"  // Content stored, not yet parsed
	StatusParsing   Status = "parsing"   // AI parse in flight
	StatusParsed    Status = "parsed"    // Structured data extracted
	StatusSent      Status = "sent"      // Envelope created, awaiting signatures
	StatusCompleted Status = "completed" // All recipients signed
	StatusDeclined  Status = "declined"  // A recipient declined
	StatusFailed    Status = "failed"    // Terminal: an upstream service failed
)

// IsTerminal returns true if no further transitions are allowed
func (s Status) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusDeclined, StatusFailed:
		return true
	}
	return false
}

// Document represents an uploaded real-estate document owned by a tenant.
// Content lives in object storage under StorageKey; the row carries the
// lifecycle state and the structured fields extracted by the AI parser.
type Document struct {
	shared.TenantEntity
	Name       string `gorm:"type:varchar(255);not null"`
	StorageKey string `gorm:"type:varchar(500);not null"`
	SizeBytes  int64  `gorm:"not null;default:0"`
	Status     Status `gorm:"type:varchar(20);not null;default:'uploaded'"`

	// Fields populated by the AI parser
	DocumentType    string           `gorm:"type:varchar(100)"`
	PropertyAddress string           `gorm:"type:varchar(500)"`
	PropertyValue   *decimal.Decimal `gorm:"type:numeric(14,2)"`
	KeyTerms        string           `gorm:"type:text"`
	Confidence      float64          `gorm:"not null;default:0"`

	// Envelope reference once routed for signature
	EnvelopeID string `gorm:"type:varchar(100);index"`

	// Failure detail when Status is failed
	FailureReason string `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (Document) TableName() string {
	return "documents"
}

// NewDocument creates a document in the uploaded state
func NewDocument(tenantID uuid.UUID, name, storageKey string, sizeBytes int64) (*Document, error) {
	name = strings.TrimSpace(name)
	if tenantID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_TENANT", "Tenant ID cannot be empty")
	}
	if name == "" {
		return nil, shared.NewDomainError("INVALID_NAME", "Document name cannot be empty")
	}
	if storageKey == "" {
		return nil, shared.NewDomainError("INVALID_STORAGE_KEY", "Storage key cannot be empty")
	}
	if sizeBytes < 0 {
		return nil, shared.NewDomainError("INVALID_SIZE", "Document size cannot be negative")
	}

	return &Document{
		TenantEntity: shared.NewTenantEntity(tenantID),
		Name:         name,
		StorageKey:   storageKey,
		SizeBytes:    sizeBytes,
		Status:       StatusUploaded,
	}, nil
}

// ParseResult holds the structured data returned by the AI parser
type ParseResult struct {
	DocumentType    string
	PropertyAddress string
	PropertyValue   *decimal.Decimal
	KeyTerms        string
	Confidence      float64
	Signers         []Signer
}

// Signer identifies one party the parser found in the document
type Signer struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// StartParsing transitions the document into the parsing state
func (d *Document) StartParsing() error {
	if d.Status.IsTerminal() {
		return shared.ErrInvalidState
	}
	d.Status = StatusParsing
	d.UpdatedAt = time.Now()
	return nil
}

// ApplyParseResult records the parser output and marks the document parsed
func (d *Document) ApplyParseResult(result ParseResult) error {
	if d.Status.IsTerminal() {
		return shared.ErrInvalidState
	}
	d.DocumentType = result.DocumentType
	d.PropertyAddress = result.PropertyAddress
	d.PropertyValue = result.PropertyValue
	d.KeyTerms = result.KeyTerms
	d.Confidence = result.Confidence
	d.Status = StatusParsed
	d.UpdatedAt = time.Now()
	return nil
}

// MarkSent records the envelope reference after routing for signature
func (d *Document) MarkSent(envelopeID string) error {
	if d.Status.IsTerminal() {
		return shared.ErrInvalidState
	}
	if envelopeID == "" {
		return shared.NewDomainError("INVALID_ENVELOPE", "Envelope ID cannot be empty")
	}
	d.EnvelopeID = envelopeID
	d.Status = StatusSent
	d.UpdatedAt = time.Now()
	return nil
}

// MarkCompleted marks the document fully signed
func (d *Document) MarkCompleted() {
	d.Status = StatusCompleted
	d.UpdatedAt = time.Now()
}

// MarkDeclined marks the document declined by a recipient
func (d *Document) MarkDeclined() {
	d.Status = StatusDeclined
	d.UpdatedAt = time.Now()
}

// MarkFailed converts the document to the terminal failed state. Usage
// already metered for this document is intentionally not rolled back.
func (d *Document) MarkFailed(reason string) {
	d.Status = StatusFailed
	d.FailureReason = reason
	d.UpdatedAt = time.Now()
}
