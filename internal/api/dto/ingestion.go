package dto

import (
	ierr "github.com/cloudbill/cloudbill/internal/errors"
	"github.com/cloudbill/cloudbill/internal/service"
	"github.com/cloudbill/cloudbill/internal/types"
)

// IngestRequest triggers a pull for one provider and month.
type IngestRequest struct {
	Provider   string   `json:"provider" binding:"required"`
	Month      string   `json:"month" binding:"required"`
	AccountIDs []string `json:"account_ids,omitempty"`
}

func (r *IngestRequest) Parse() (types.Provider, types.BillingMonth, error) {
	p := types.Provider(r.Provider)
	if !p.Validate() {
		return "", "", ierr.NewErrorf("unknown provider %q", r.Provider).
			WithHint("Provider must be one of gcp, aws, openai, custom").
			Mark(ierr.ErrValidation)
	}
	month, err := types.ParseBillingMonth(r.Month)
	if err != nil {
		return "", "", ierr.WithError(err).
			WithHint("Month must be YYYY-MM").
			Mark(ierr.ErrValidation)
	}
	return p, month, nil
}

// IngestAllRequest triggers a pull across every registered provider.
type IngestAllRequest struct {
	Month string `json:"month" binding:"required"`
}

// IngestResponse reports the batch an ingestion resolved to and whether
// it was newly created or an idempotent hit.
type IngestResponse struct {
	*service.IngestResult
}

// IngestAllResponse lists the per-provider outcomes of a fan-out pull.
type IngestAllResponse struct {
	Results []*service.IngestResult `json:"results"`
	Total   int                     `json:"total"`
}
