package billing

import "fmt"

// ResourceKind represents a metered billing dimension
type ResourceKind string

const (
	// ResourceKindDocument tracks uploaded documents
	ResourceKindDocument ResourceKind = "document"

	// ResourceKindEnvelope tracks signature envelopes sent to the
	// e-signature provider
	ResourceKindEnvelope ResourceKind = "envelope"

	// ResourceKindAIRequest tracks document parsing calls to the AI service
	ResourceKindAIRequest ResourceKind = "ai_request"
)

// String returns the string representation of ResourceKind
func (k ResourceKind) String() string {
	return string(k)
}

// IsValid returns true if the resource kind is valid
func (k ResourceKind) IsValid() bool {
	switch k {
	case ResourceKindDocument, ResourceKindEnvelope, ResourceKindAIRequest:
		return true
	}
	return false
}

// DisplayName returns a human-readable name for the resource kind
func (k ResourceKind) DisplayName() string {
	switch k {
	case ResourceKindDocument:
		return "Documents"
	case ResourceKindEnvelope:
		return "Envelopes"
	case ResourceKindAIRequest:
		return "AI Requests"
	default:
		return string(k)
	}
}

// AllResourceKinds returns all valid resource kinds
func AllResourceKinds() []ResourceKind {
	return []ResourceKind{
		ResourceKindDocument,
		ResourceKindEnvelope,
		ResourceKindAIRequest,
	}
}

// ParseResourceKind parses a string into a ResourceKind
func ParseResourceKind(s string) (ResourceKind, error) {
	k := ResourceKind(s)
	if !k.IsValid() {
		return "", fmt.Errorf("invalid resource kind: %s", s)
	}
	return k, nil
}

// ActionKind is the vocabulary callers use when asking whether a metered
// action may proceed. Each action maps onto exactly one resource kind.
type ActionKind string

const (
	ActionUploadDocument ActionKind = "upload_document"
	ActionCreateEnvelope ActionKind = "create_envelope"
	ActionAIRequest      ActionKind = "ai_request"
)

// IsValid returns true if the action kind is valid
func (a ActionKind) IsValid() bool {
	switch a {
	case ActionUploadDocument, ActionCreateEnvelope, ActionAIRequest:
		return true
	}
	return false
}

// ResourceKind returns the metered resource kind this action consumes
func (a ActionKind) ResourceKind() (ResourceKind, error) {
	switch a {
	case ActionUploadDocument:
		return ResourceKindDocument, nil
	case ActionCreateEnvelope:
		return ResourceKindEnvelope, nil
	case ActionAIRequest:
		return ResourceKindAIRequest, nil
	default:
		return "", fmt.Errorf("invalid action kind: %s", a)
	}
}
