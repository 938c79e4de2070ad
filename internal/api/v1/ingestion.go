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

type IngestionHandler struct {
	ingestion service.IngestionService
	log       *logger.Logger
}

func NewIngestionHandler(ingestion service.IngestionService, log *logger.Logger) *IngestionHandler {
	return &IngestionHandler{ingestion: ingestion, log: log}
}

// Ingest pulls one provider's cost data for a month.
func (h *IngestionHandler) Ingest(c *gin.Context) {
	var req dto.IngestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid request format").
			Mark(ierr.ErrValidation))
		return
	}

	p, month, err := req.Parse()
	if err != nil {
		c.Error(err)
		return
	}

	result, err := h.ingestion.Ingest(c.Request.Context(), p, month, req.AccountIDs)
	if err != nil {
		c.Error(err)
		return
	}

	status := http.StatusOK
	if result.Created {
		status = http.StatusCreated
	}
	c.JSON(status, dto.IngestResponse{IngestResult: result})
}

// IngestAll fans out over every registered provider.
func (h *IngestionHandler) IngestAll(c *gin.Context) {
	var req dto.IngestAllRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid request format").
			Mark(ierr.ErrValidation))
		return
	}

	month, err := dto.ParseMonth(req.Month)
	if err != nil {
		c.Error(err)
		return
	}

	results, err := h.ingestion.IngestAll(c.Request.Context(), month)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, dto.IngestAllResponse{Results: results, Total: len(results)})
}

// Upload ingests a raw feed body through the provider's parser. The
// provider comes from the path, the month from the query string, and
// the request body is the feed itself.
func (h *IngestionHandler) Upload(c *gin.Context) {
	p := types.Provider(c.Param("provider"))
	if !p.Validate() {
		c.Error(ierr.NewErrorf("unknown provider %q", c.Param("provider")).
			WithHint("Provider must be one of gcp, aws, openai, custom").
			Mark(ierr.ErrValidation))
		return
	}

	month, err := dto.ParseMonth(c.Query("month"))
	if err != nil {
		c.Error(err)
		return
	}

	result, err := h.ingestion.IngestUpload(c.Request.Context(), p, month, c.Request.Body)
	if err != nil {
		c.Error(err)
		return
	}

	status := http.StatusOK
	if result.Created {
		status = http.StatusCreated
	}
	c.JSON(status, dto.IngestResponse{IngestResult: result})
}

// ListBatches lists a month's ingestion batches.
func (h *IngestionHandler) ListBatches(c *gin.Context) {
	month, err := dto.ParseMonth(c.Query("month"))
	if err != nil {
		c.Error(err)
		return
	}

	batches, err := h.ingestion.ListBatches(c.Request.Context(), month)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"items": batches, "total": len(batches)})
}

// GetBatch returns one ingestion batch by ID.
func (h *IngestionHandler) GetBatch(c *gin.Context) {
	batch, err := h.ingestion.GetBatch(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, batch)
}
