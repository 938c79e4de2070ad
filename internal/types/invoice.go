package types

// InvoiceStatus is the commercial status of an invoice. It is independent
// of the export lock (LockedAt): a DRAFT invoice may be locked for export
// and an ISSUED invoice may still be unlocked.
type InvoiceStatus string

const (
	InvoiceStatusDraft     InvoiceStatus = "DRAFT"
	InvoiceStatusIssued    InvoiceStatus = "ISSUED"
	InvoiceStatusPaid      InvoiceStatus = "PAID"
	InvoiceStatusCancelled InvoiceStatus = "CANCELLED"
)

func (s InvoiceStatus) Validate() bool {
	switch s {
	case InvoiceStatusDraft, InvoiceStatusIssued, InvoiceStatusPaid, InvoiceStatusCancelled:
		return true
	}
	return false
}

// CurrencyMixed is recorded on an invoice whose line items carry more than
// one currency. The pipeline aggregates per currency but never converts.
const CurrencyMixed = "MIXED"
