package configsnapshot

import (
	"time"

	"github.com/cloudbill/cloudbill/internal/domain/credit"
	"github.com/cloudbill/cloudbill/internal/domain/pricing"
	"github.com/cloudbill/cloudbill/internal/domain/specialrule"
	ierr "github.com/cloudbill/cloudbill/internal/errors"
	"github.com/cloudbill/cloudbill/internal/types"
	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Payload is the frozen configuration in effect when a customer's invoice
// was generated: enough to explain or replay the run even after rules
// change.
type Payload struct {
	SpecialRules []*specialrule.SpecialRule `json:"special_rules"`
	PricingList  *pricing.PricingList       `json:"pricing_list,omitempty"`
	PricingRules []*pricing.PricingRule     `json:"pricing_rules"`
	Credits      []*credit.Credit           `json:"credits"`
}

// ConfigSnapshot binds a frozen Payload to one generated invoice.
type ConfigSnapshot struct {
	ID         string    `json:"id"`
	RunID      string    `json:"run_id"`
	CustomerID string    `json:"customer_id"`
	InvoiceID  string    `json:"invoice_id"`
	TakenAt    time.Time `json:"taken_at"`

	// Raw is the serialized Payload as persisted.
	Raw []byte `json:"raw"`
	types.BaseModel
}

// NewConfigSnapshot freezes the payload for an invoice.
func NewConfigSnapshot(runID, customerID, invoiceID string, p *Payload, now time.Time) (*ConfigSnapshot, error) {
	raw, err := json.Marshal(p)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to serialize config snapshot").
			Mark(ierr.ErrSystem)
	}
	return &ConfigSnapshot{
		ID:         types.GenerateUUIDWithPrefix(types.UUIDPrefixConfigSnapshot),
		RunID:      runID,
		CustomerID: customerID,
		InvoiceID:  invoiceID,
		TakenAt:    now,
		Raw:        raw,
	}, nil
}

// Decode returns the frozen payload.
func (s *ConfigSnapshot) Decode() (*Payload, error) {
	var p Payload
	if err := json.Unmarshal(s.Raw, &p); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Config snapshot payload is corrupt").
			Mark(ierr.ErrSystem)
	}
	return &p, nil
}
