package dto

import (
	"time"

	ierr "github.com/cloudbill/cloudbill/internal/errors"
	"github.com/cloudbill/cloudbill/internal/service"
	"github.com/cloudbill/cloudbill/internal/types"
)

// TriggerRunRequest starts an invoice run for one month slice. BatchID
// and the time range bounds are mutually exclusive; neither means the
// whole month.
type TriggerRunRequest struct {
	Month            string     `json:"month" binding:"required"`
	BatchID          string     `json:"batch_id,omitempty"`
	TimeFrom         *time.Time `json:"time_from,omitempty"`
	TimeTo           *time.Time `json:"time_to,omitempty"`
	TargetCustomerID *string    `json:"target_customer_id,omitempty"`
}

func (r *TriggerRunRequest) ToRunOptions() (*service.RunOptions, error) {
	month, err := types.ParseBillingMonth(r.Month)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Month must be YYYY-MM").
			Mark(ierr.ErrValidation)
	}
	opts := &service.RunOptions{
		Month:            month,
		BatchID:          r.BatchID,
		TimeFrom:         r.TimeFrom,
		TimeTo:           r.TimeTo,
		TargetCustomerID: r.TargetCustomerID,
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return opts, nil
}
