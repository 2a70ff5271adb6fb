package handler

import (
	"crypto/subtle"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	appdocument "github.com/propsign/backend/internal/application/document"
	"github.com/propsign/backend/internal/domain/shared"
)

// SigningWebhookHandler receives status callbacks from the e-signature
// provider. The provider authenticates with a shared secret header.
type SigningWebhookHandler struct {
	BaseHandler
	documents     *appdocument.DocumentService
	webhookSecret string
}

// NewSigningWebhookHandler creates a new SigningWebhookHandler
func NewSigningWebhookHandler(documents *appdocument.DocumentService, webhookSecret string) *SigningWebhookHandler {
	return &SigningWebhookHandler{
		documents:     documents,
		webhookSecret: webhookSecret,
	}
}

// RegisterRoutes registers the signing webhook route
func (h *SigningWebhookHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/webhooks/signing", h.HandleSigningEvent)
}

// SigningEventRequest is the provider's callback payload
type SigningEventRequest struct {
	EnvelopeID     string `json:"envelope_id" binding:"required"`
	RecipientEmail string `json:"recipient_email" binding:"required,email"`
	Event          string `json:"event" binding:"required,oneof=recipient_signed recipient_declined"`
}

// HandleSigningEvent applies one recipient's signed or declined status.
// Unknown envelopes are acknowledged so the provider stops retrying
// callbacks for documents we no longer track.
func (h *SigningWebhookHandler) HandleSigningEvent(c *gin.Context) {
	if h.webhookSecret != "" {
		provided := c.GetHeader("X-Webhook-Secret")
		if subtle.ConstantTimeCompare([]byte(provided), []byte(h.webhookSecret)) != 1 {
			h.Unauthorized(c, "Invalid webhook secret")
			return
		}
	}

	var req SigningEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "envelope_id, recipient_email and event are required")
		return
	}

	err := h.documents.HandleSigningEvent(c.Request.Context(), appdocument.SigningEvent{
		EnvelopeID:     req.EnvelopeID,
		RecipientEmail: req.RecipientEmail,
		Declined:       req.Event == "recipient_declined",
	})
	if err != nil {
		var domainErr *shared.DomainError
		if errors.As(err, &domainErr) && domainErr.Code == "NOT_FOUND" {
			c.JSON(http.StatusOK, gin.H{"received": true, "message": "Unknown envelope or recipient"})
			return
		}
		h.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"received": true})
}
