package v1

import (
	"net/http"

	"github.com/cloudbill/cloudbill/internal/api/dto"
	ierr "github.com/cloudbill/cloudbill/internal/errors"
	"github.com/cloudbill/cloudbill/internal/logger"
	"github.com/cloudbill/cloudbill/internal/service"
	"github.com/gin-gonic/gin"
)

type InvoiceHandler struct {
	invoices service.InvoiceService
	log      *logger.Logger
}

func NewInvoiceHandler(invoices service.InvoiceService, log *logger.Logger) *InvoiceHandler {
	return &InvoiceHandler{invoices: invoices, log: log}
}

// Get returns one invoice with its line items.
func (h *InvoiceHandler) Get(c *gin.Context) {
	inv, err := h.invoices.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, inv)
}

// GetByNumber looks an invoice up by its invoice number.
func (h *InvoiceHandler) GetByNumber(c *gin.Context) {
	inv, err := h.invoices.GetByNumber(c.Request.Context(), c.Param("number"))
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, inv)
}

// List returns invoices filtered by run, customer and month.
func (h *InvoiceHandler) List(c *gin.Context) {
	var req dto.ListInvoicesRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid query parameters").
			Mark(ierr.ErrValidation))
		return
	}

	filter, err := req.ToFilter()
	if err != nil {
		c.Error(err)
		return
	}

	invoices, err := h.invoices.List(c.Request.Context(), filter)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, dto.ListInvoicesResponse{Items: invoices, Total: len(invoices)})
}

// Export returns the invoice bundle sent downstream: the invoice, its
// customer, applied credit entries and the config snapshot.
func (h *InvoiceHandler) Export(c *gin.Context) {
	export, err := h.invoices.Export(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, export)
}

// Lock freezes the invoice against further mutation.
func (h *InvoiceHandler) Lock(c *gin.Context) {
	inv, err := h.invoices.Lock(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, inv)
}
