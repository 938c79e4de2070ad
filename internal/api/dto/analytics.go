package dto

import (
	ierr "github.com/cloudbill/cloudbill/internal/errors"
	"github.com/cloudbill/cloudbill/internal/types"
)

// RebuildAnalyticsRequest rebuilds snapshots either for a specific run
// or from a month's latest succeeded run.
type RebuildAnalyticsRequest struct {
	RunID string `json:"run_id,omitempty"`
	Month string `json:"month,omitempty"`
}

func (r *RebuildAnalyticsRequest) Validate() error {
	if (r.RunID == "") == (r.Month == "") {
		return ierr.NewError("exactly one of run_id and month is required").
			Mark(ierr.ErrValidation)
	}
	return nil
}

// ParseMonth parses a required month query parameter.
func ParseMonth(s string) (types.BillingMonth, error) {
	if s == "" {
		return "", ierr.NewError("month is required").
			WithHint("Pass month=YYYY-MM").
			Mark(ierr.ErrValidation)
	}
	month, err := types.ParseBillingMonth(s)
	if err != nil {
		return "", ierr.WithError(err).
			WithHint("Month must be YYYY-MM").
			Mark(ierr.ErrValidation)
	}
	return month, nil
}
