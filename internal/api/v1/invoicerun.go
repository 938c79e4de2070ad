package v1

import (
	"net/http"

	"github.com/cloudbill/cloudbill/internal/api/dto"
	ierr "github.com/cloudbill/cloudbill/internal/errors"
	"github.com/cloudbill/cloudbill/internal/logger"
	"github.com/cloudbill/cloudbill/internal/service"
	"github.com/gin-gonic/gin"
)

type InvoiceRunHandler struct {
	runs service.InvoiceRunService
	log  *logger.Logger
}

func NewInvoiceRunHandler(runs service.InvoiceRunService, log *logger.Logger) *InvoiceRunHandler {
	return &InvoiceRunHandler{runs: runs, log: log}
}

// Trigger starts an invoice run. Re-triggering an already processed
// slice returns the existing run with 200 instead of 201.
func (h *InvoiceRunHandler) Trigger(c *gin.Context) {
	var req dto.TriggerRunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid request format").
			Mark(ierr.ErrValidation))
		return
	}

	opts, err := req.ToRunOptions()
	if err != nil {
		c.Error(err)
		return
	}

	run, err := h.runs.Trigger(c.Request.Context(), opts)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, run)
}

// Get returns one run by ID.
func (h *InvoiceRunHandler) Get(c *gin.Context) {
	run, err := h.runs.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, run)
}

// ListByMonth lists a month's runs, newest first.
func (h *InvoiceRunHandler) ListByMonth(c *gin.Context) {
	month, err := dto.ParseMonth(c.Query("month"))
	if err != nil {
		c.Error(err)
		return
	}

	runs, err := h.runs.ListByMonth(c.Request.Context(), month)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"items": runs, "total": len(runs)})
}
