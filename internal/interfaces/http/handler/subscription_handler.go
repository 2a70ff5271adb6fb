package handler

import (
	"github.com/gin-gonic/gin"

	appbilling "github.com/propsign/backend/internal/application/billing"
)

// SubscriptionHandler handles plan listing and subscription lifecycle
type SubscriptionHandler struct {
	BaseHandler
	subscriptions *appbilling.SubscriptionService
}

// NewSubscriptionHandler creates a new SubscriptionHandler
func NewSubscriptionHandler(subscriptions *appbilling.SubscriptionService) *SubscriptionHandler {
	return &SubscriptionHandler{subscriptions: subscriptions}
}

// RegisterRoutes registers subscription routes
func (h *SubscriptionHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/plans", h.ListPlans)

	subscription := rg.Group("/subscription")
	{
		subscription.POST("", h.Subscribe)
		subscription.DELETE("", h.Cancel)
	}
}

// SubscribeRequest selects the plan to subscribe to
type SubscribeRequest struct {
	PlanID string `json:"plan_id" binding:"required"`
}

// ListPlans returns the active plans ordered by price
func (h *SubscriptionHandler) ListPlans(c *gin.Context) {
	plans, err := h.subscriptions.ListPlans(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, plans)
}

// Subscribe puts the tenant on the requested plan. Paid plans go through
// Stripe; the response carries a client secret when payment confirmation
// is still pending.
func (h *SubscriptionHandler) Subscribe(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Tenant identity required")
		return
	}

	var req SubscribeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "A 'plan_id' field is required")
		return
	}

	result, err := h.subscriptions.Subscribe(c.Request.Context(), tenantID, req.PlanID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, result)
}

// Cancel schedules the tenant's subscription to end at the period close
func (h *SubscriptionHandler) Cancel(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Tenant identity required")
		return
	}

	if err := h.subscriptions.Cancel(c.Request.Context(), tenantID); err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, gin.H{"cancelled": true})
}
