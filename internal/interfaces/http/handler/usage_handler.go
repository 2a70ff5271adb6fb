package handler

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"

	appbilling "github.com/propsign/backend/internal/application/billing"
	"github.com/propsign/backend/internal/domain/billing"
	"github.com/propsign/backend/internal/domain/shared"
)

// UsageHandler serves the usage dashboard: current counters against plan
// limits, quota pre-checks and the alert history.
type UsageHandler struct {
	BaseHandler
	usage        *appbilling.UsageService
	entitlements *appbilling.EntitlementService
	quota        *appbilling.QuotaService
	alerts       *appbilling.AlertService
}

// NewUsageHandler creates a new UsageHandler
func NewUsageHandler(
	usage *appbilling.UsageService,
	entitlements *appbilling.EntitlementService,
	quota *appbilling.QuotaService,
	alerts *appbilling.AlertService,
) *UsageHandler {
	return &UsageHandler{
		usage:        usage,
		entitlements: entitlements,
		quota:        quota,
		alerts:       alerts,
	}
}

// RegisterRoutes registers usage routes
func (h *UsageHandler) RegisterRoutes(rg *gin.RouterGroup) {
	usage := rg.Group("/usage")
	{
		usage.GET("", h.Summary)
		usage.GET("/check", h.Check)
		usage.GET("/alerts", h.AlertHistory)
	}
}

// UsageMetric is one metered dimension with its current value and limit
type UsageMetric struct {
	Resource    string  `json:"resource"`
	DisplayName string  `json:"display_name"`
	Used        int64   `json:"used"`
	Limit       int64   `json:"limit"`
	Remaining   int64   `json:"remaining"`
	Percentage  float64 `json:"percentage"`
	IsUnlimited bool    `json:"is_unlimited"`
}

// UsageSummaryResponse is the tenant's usage for the current period
type UsageSummaryResponse struct {
	TenantID string        `json:"tenant_id"`
	Period   string        `json:"period"`
	PlanID   string        `json:"plan_id"`
	PlanName string        `json:"plan_name"`
	Metrics  []UsageMetric `json:"metrics"`
	AsOf     time.Time     `json:"as_of"`
}

// Summary returns the tenant's current-period usage against plan limits
func (h *UsageHandler) Summary(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Tenant identity required")
		return
	}

	ctx := c.Request.Context()
	period := billing.CurrentPeriod()

	plan, err := h.entitlements.GetPlanFor(ctx, tenantID)
	if err != nil {
		if errors.Is(err, shared.ErrNoPlanAssigned) {
			h.HandleError(c, shared.ErrNoPlanAssigned)
			return
		}
		h.HandleError(c, err)
		return
	}

	snapshot, err := h.usage.GetUsageForPeriod(ctx, tenantID, period)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	metrics := make([]UsageMetric, 0, len(billing.AllResourceKinds()))
	for _, kind := range billing.AllResourceKinds() {
		used := snapshot.Counts[kind]
		limit := plan.LimitFor(kind)
		metric := UsageMetric{
			Resource:    kind.String(),
			DisplayName: kind.DisplayName(),
			Used:        used,
			Limit:       limit,
		}
		if limit == billing.UnlimitedLimit {
			metric.IsUnlimited = true
			metric.Remaining = billing.UnlimitedLimit
		} else {
			metric.Remaining = max(limit-used, 0)
			if limit > 0 {
				metric.Percentage = float64(used) / float64(limit) * 100
			}
		}
		metrics = append(metrics, metric)
	}

	h.Success(c, UsageSummaryResponse{
		TenantID: tenantID.String(),
		Period:   period.String(),
		PlanID:   plan.ID,
		PlanName: plan.Name,
		Metrics:  metrics,
		AsOf:     time.Now().UTC(),
	})
}

// Check answers whether one more unit of the queried action or resource
// would be allowed, without consuming anything
func (h *UsageHandler) Check(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Tenant identity required")
		return
	}

	ctx := c.Request.Context()

	if action := c.Query("action"); action != "" {
		result, err := h.quota.CanPerformAction(ctx, tenantID, billing.ActionKind(action))
		if err != nil {
			h.HandleError(c, err)
			return
		}
		h.Success(c, result)
		return
	}

	kind, err := billing.ParseResourceKind(c.Query("kind"))
	if err != nil {
		h.BadRequest(c, "A valid 'action' or 'kind' query parameter is required")
		return
	}

	result, err := h.quota.CheckLimit(ctx, tenantID, kind)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// AlertHistory returns the threshold alerts fired for the current period
func (h *UsageHandler) AlertHistory(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Tenant identity required")
		return
	}

	records, err := h.alerts.AlertHistory(c.Request.Context(), tenantID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, records)
}
