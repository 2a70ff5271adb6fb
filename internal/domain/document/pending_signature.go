package document

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/propsign/backend/internal/domain/shared"
)

// SignatureStatus represents the state of one recipient's signature request
type SignatureStatus string

const (
	SignatureStatusPending  SignatureStatus = "pending"
	SignatureStatusReminded SignatureStatus = "reminded"
	SignatureStatusSigned   SignatureStatus = "signed"   // Terminal, set by provider callback
	SignatureStatusDeclined SignatureStatus = "declined" // Terminal, set by provider callback
)

// IsTerminal returns true if the recipient will take no further action
func (s SignatureStatus) IsTerminal() bool {
	return s == SignatureStatusSigned || s == SignatureStatusDeclined
}

// PendingSignature is one (document, recipient) pair awaiting action. The
// reminder sweep reads it to decide eligibility; signing-provider callbacks
// move it to a terminal state.
type PendingSignature struct {
	shared.TenantEntity
	DocumentID     uuid.UUID       `gorm:"type:uuid;not null;index"`
	EnvelopeID     string          `gorm:"type:varchar(100);index"`
	RecipientName  string          `gorm:"type:varchar(200);not null"`
	RecipientEmail string          `gorm:"type:varchar(200);not null"`
	Status         SignatureStatus `gorm:"type:varchar(20);not null;default:'pending'"`
	ReminderCount  int             `gorm:"not null;default:0"`
	LastReminderAt *time.Time
}

// TableName returns the table name for GORM
func (PendingSignature) TableName() string {
	return "pending_signatures"
}

// NewPendingSignature creates a pending signature request
func NewPendingSignature(tenantID, documentID uuid.UUID, envelopeID, name, email string) (*PendingSignature, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if tenantID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_TENANT", "Tenant ID cannot be empty")
	}
	if documentID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_DOCUMENT", "Document ID cannot be empty")
	}
	if email == "" || !strings.Contains(email, "@") {
		return nil, shared.NewDomainError("INVALID_EMAIL", "A valid recipient email is required")
	}

	return &PendingSignature{
		TenantEntity:   shared.NewTenantEntity(tenantID),
		DocumentID:     documentID,
		EnvelopeID:     envelopeID,
		RecipientName:  strings.TrimSpace(name),
		RecipientEmail: email,
		Status:         SignatureStatusPending,
	}, nil
}

// NeedsReminder reports whether a reminder is due at the given time. A
// request is due once it has aged past staleAfter and, when a reminder was
// already sent, the cool-down has fully elapsed since the last one.
func (p *PendingSignature) NeedsReminder(now time.Time, staleAfter, coolDown time.Duration) bool {
	if p.Status.IsTerminal() {
		return false
	}
	if now.Sub(p.CreatedAt) < staleAfter {
		return false
	}
	if p.LastReminderAt != nil && now.Sub(*p.LastReminderAt) <= coolDown {
		return false
	}
	return true
}

// RecordReminder marks a successfully delivered reminder. Only called after
// the notification send succeeded, so a failed attempt is retried by the
// next sweep without an extra cool-down penalty.
func (p *PendingSignature) RecordReminder(now time.Time) error {
	if p.Status.IsTerminal() {
		return shared.ErrInvalidState
	}
	p.Status = SignatureStatusReminded
	p.ReminderCount++
	p.LastReminderAt = &now
	p.UpdatedAt = now
	return nil
}

// MarkSigned records a signed callback from the provider
func (p *PendingSignature) MarkSigned() {
	p.Status = SignatureStatusSigned
	p.UpdatedAt = time.Now()
}

// MarkDeclined records a declined callback from the provider
func (p *PendingSignature) MarkDeclined() {
	p.Status = SignatureStatusDeclined
	p.UpdatedAt = time.Now()
}
