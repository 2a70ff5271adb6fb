package document

import (
	"time"

	"github.com/google/uuid"
	"github.com/propsign/backend/internal/domain/document"
	"github.com/shopspring/decimal"
)

// UploadDocumentRequest carries a document upload
type UploadDocumentRequest struct {
	Name        string `json:"name" binding:"required"`
	ContentType string `json:"content_type" binding:"required"`
	Content     []byte `json:"-"`
}

// SignerRequest identifies one signing party on an envelope
type SignerRequest struct {
	Name  string `json:"name" binding:"required"`
	Email string `json:"email" binding:"required,email"`
	Role  string `json:"role"`
}

// SendEnvelopeRequest routes a document for e-signature
type SendEnvelopeRequest struct {
	Signers []SignerRequest `json:"signers" binding:"required,min=1"`
	Message string          `json:"message"`
}

// DocumentResponse is the API representation of a document
type DocumentResponse struct {
	ID              uuid.UUID        `json:"id"`
	Name            string           `json:"name"`
	SizeBytes       int64            `json:"size_bytes"`
	Status          document.Status  `json:"status"`
	DocumentType    string           `json:"document_type,omitempty"`
	PropertyAddress string           `json:"property_address,omitempty"`
	PropertyValue   *decimal.Decimal `json:"property_value,omitempty"`
	KeyTerms        string           `json:"key_terms,omitempty"`
	Confidence      float64          `json:"confidence,omitempty"`
	EnvelopeID      string           `json:"envelope_id,omitempty"`
	FailureReason   string           `json:"failure_reason,omitempty"`
	DownloadURL     string           `json:"download_url,omitempty"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
}

// ToDocumentResponse maps a domain document to its API representation
func ToDocumentResponse(d *document.Document) *DocumentResponse {
	return &DocumentResponse{
		ID:              d.ID,
		Name:            d.Name,
		SizeBytes:       d.SizeBytes,
		Status:          d.Status,
		DocumentType:    d.DocumentType,
		PropertyAddress: d.PropertyAddress,
		PropertyValue:   d.PropertyValue,
		KeyTerms:        d.KeyTerms,
		Confidence:      d.Confidence,
		EnvelopeID:      d.EnvelopeID,
		FailureReason:   d.FailureReason,
		CreatedAt:       d.CreatedAt,
		UpdatedAt:       d.UpdatedAt,
	}
}

// PendingSignatureResponse is the API representation of a signature request
type PendingSignatureResponse struct {
	ID             uuid.UUID                `json:"id"`
	DocumentID     uuid.UUID                `json:"document_id"`
	EnvelopeID     string                   `json:"envelope_id"`
	RecipientName  string                   `json:"recipient_name"`
	RecipientEmail string                   `json:"recipient_email"`
	Status         document.SignatureStatus `json:"status"`
	ReminderCount  int                      `json:"reminder_count"`
	LastReminderAt *time.Time               `json:"last_reminder_at,omitempty"`
	CreatedAt      time.Time                `json:"created_at"`
}

// ToPendingSignatureResponse maps a domain signature request
func ToPendingSignatureResponse(p *document.PendingSignature) *PendingSignatureResponse {
	return &PendingSignatureResponse{
		ID:             p.ID,
		DocumentID:     p.DocumentID,
		EnvelopeID:     p.EnvelopeID,
		RecipientName:  p.RecipientName,
		RecipientEmail: p.RecipientEmail,
		Status:         p.Status,
		ReminderCount:  p.ReminderCount,
		LastReminderAt: p.LastReminderAt,
		CreatedAt:      p.CreatedAt,
	}
}

// CreateEnvelopeRequest is handed to the signing provider
type CreateEnvelopeRequest struct {
	DocumentID   uuid.UUID
	DocumentName string
	DownloadURL  string
	Signers      []SignerRequest
	Message      string
}

// EnvelopeResult is the signing provider's answer to envelope creation
type EnvelopeResult struct {
	EnvelopeID string
	Status     string
}
