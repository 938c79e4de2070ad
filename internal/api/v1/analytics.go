package v1

import (
	"net/http"

	"github.com/cloudbill/cloudbill/internal/api/dto"
	ierr "github.com/cloudbill/cloudbill/internal/errors"
	"github.com/cloudbill/cloudbill/internal/logger"
	"github.com/cloudbill/cloudbill/internal/service"
	"github.com/cloudbill/cloudbill/internal/types"
	"github.com/gin-gonic/gin"
)

type AnalyticsHandler struct {
	analytics service.AnalyticsService
	log       *logger.Logger
}

func NewAnalyticsHandler(analytics service.AnalyticsService, log *logger.Logger) *AnalyticsHandler {
	return &AnalyticsHandler{analytics: analytics, log: log}
}

// GetSummaries returns a month's per-customer, per-group rollup rows.
func (h *AnalyticsHandler) GetSummaries(c *gin.Context) {
	month, err := dto.ParseMonth(c.Query("month"))
	if err != nil {
		c.Error(err)
		return
	}

	rows, err := h.analytics.GetMonthlySummaries(c.Request.Context(), month)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"items": rows, "total": len(rows)})
}

// GetCustomerSnapshots returns a month's per-customer totals with growth
// against the prior month.
func (h *AnalyticsHandler) GetCustomerSnapshots(c *gin.Context) {
	month, err := dto.ParseMonth(c.Query("month"))
	if err != nil {
		c.Error(err)
		return
	}

	rows, err := h.analytics.GetCustomerSnapshots(c.Request.Context(), month)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"items": rows, "total": len(rows)})
}

// GetProviderSnapshots returns a month's per-provider totals and margin.
func (h *AnalyticsHandler) GetProviderSnapshots(c *gin.Context) {
	month, err := dto.ParseMonth(c.Query("month"))
	if err != nil {
		c.Error(err)
		return
	}

	rows, err := h.analytics.GetProviderSnapshots(c.Request.Context(), month)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"items": rows, "total": len(rows)})
}

// Rebuild recomputes snapshots for a run, or for a month's latest
// succeeded run.
func (h *AnalyticsHandler) Rebuild(c *gin.Context) {
	var req dto.RebuildAnalyticsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid request format").
			Mark(ierr.ErrValidation))
		return
	}
	if err := req.Validate(); err != nil {
		c.Error(err)
		return
	}

	ctx := c.Request.Context()
	if req.RunID != "" {
		if err := h.analytics.RebuildForRun(ctx, req.RunID); err != nil {
			c.Error(err)
			return
		}
	} else {
		month, err := types.ParseBillingMonth(req.Month)
		if err != nil {
			c.Error(ierr.WithError(err).
				WithHint("Month must be YYYY-MM").
				Mark(ierr.ErrValidation))
			return
		}
		if err := h.analytics.RebuildForMonth(ctx, month); err != nil {
			c.Error(err)
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{"status": "rebuilt"})
}
