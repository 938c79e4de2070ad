package project

import (
	"time"

	ierr "github.com/cloudbill/cloudbill/internal/errors"
	"github.com/cloudbill/cloudbill/internal/types"
)

// Project is a provider-side billing scope (GCP project, AWS account,
// OpenAI organization, ...) that cost lines attach to.
type Project struct {
	ID       string         `json:"id"`
	Name     string         `json:"name"`
	Provider types.Provider `json:"provider"`
	// ProviderAccountID is the vendor identifier matched against line item
	// account ids during ingestion.
	ProviderAccountID string `json:"provider_account_id"`
	types.BaseModel
}

func (p *Project) Validate() error {
	if !p.Provider.Validate() {
		return ierr.NewErrorf("invalid provider %s", p.Provider).
			Mark(ierr.ErrValidation)
	}
	if p.ProviderAccountID == "" {
		return ierr.NewError("provider account id is required").
			Mark(ierr.ErrValidation)
	}
	return nil
}

// CustomerProjectBinding attaches a project to a customer for a bounded
// period. Nil dates are unbounded. Overlap with a billing month is always
// computed, never stored.
type CustomerProjectBinding struct {
	ID         string     `json:"id"`
	CustomerID string     `json:"customer_id"`
	ProjectID  string     `json:"project_id"`
	StartDate  *time.Time `json:"start_date,omitempty"`
	EndDate    *time.Time `json:"end_date,omitempty"`
	types.BaseModel
}

func (b *CustomerProjectBinding) Validate() error {
	if b.CustomerID == "" || b.ProjectID == "" {
		return ierr.NewError("binding requires customer and project ids").
			Mark(ierr.ErrValidation)
	}
	if b.StartDate != nil && b.EndDate != nil && b.EndDate.Before(*b.StartDate) {
		return ierr.NewError("binding end date precedes start date").
			Mark(ierr.ErrValidation)
	}
	return nil
}

// OverlapsMonth reports whether the binding is live during any part of the
// billing month.
func (b *CustomerProjectBinding) OverlapsMonth(month types.BillingMonth) bool {
	return month.OverlapsWindow(b.StartDate, b.EndDate)
}
