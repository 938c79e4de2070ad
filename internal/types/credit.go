package types

// CreditType classifies how a customer credit was granted.
type CreditType string

const (
	CreditTypePrepaid     CreditType = "PREPAID"
	CreditTypePromotional CreditType = "PROMOTIONAL"
	CreditTypeGoodwill    CreditType = "GOODWILL"
)

// CreditLedgerEntryType is the kind of movement recorded in the append-only
// credit ledger.
type CreditLedgerEntryType string

const (
	CreditLedgerAllocation CreditLedgerEntryType = "ALLOCATION"
	CreditLedgerUsage      CreditLedgerEntryType = "USAGE"
	CreditLedgerAdjustment CreditLedgerEntryType = "ADJUSTMENT"
	CreditLedgerExpiry     CreditLedgerEntryType = "EXPIRY"
)
