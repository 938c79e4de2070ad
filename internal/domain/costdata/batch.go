package costdata

import (
	ierr "github.com/cloudbill/cloudbill/internal/errors"
	"github.com/cloudbill/cloudbill/internal/types"
)

// IngestionBatch records one fetch of provider cost data. The tuple
// (provider, source type, invoice month, checksum) is unique: re-fetching
// identical data is a no-op that resolves to the existing batch.
type IngestionBatch struct {
	ID           string             `json:"id"`
	Reference    string             `json:"reference"` // short operator-facing label
	Provider     types.Provider     `json:"provider"`
	SourceType   types.SourceType   `json:"source_type"`
	InvoiceMonth types.BillingMonth `json:"invoice_month"`
	RowCount     int                `json:"row_count"`
	Checksum     string             `json:"checksum"`
	types.BaseModel
}

func (b *IngestionBatch) Validate() error {
	if !b.Provider.Validate() {
		return ierr.NewErrorf("invalid provider %s", b.Provider).
			Mark(ierr.ErrValidation)
	}
	if b.Checksum == "" {
		return ierr.NewError("batch checksum is required").
			Mark(ierr.ErrValidation)
	}
	if err := b.InvoiceMonth.Validate(); err != nil {
		return ierr.WithError(err).
			WithHint("Invoice month must be YYYY-MM").
			Mark(ierr.ErrValidation)
	}
	return nil
}
