package types

import (
	"fmt"
	"time"
)

// BillingMonth identifies one calendar month of billing, e.g. "2025-07".
// It is stored and transported as a string so that it can be used as a
// stable map and index key.
type BillingMonth string

const billingMonthLayout = "2006-01"

// ParseBillingMonth parses a "YYYY-MM" string into a BillingMonth.
func ParseBillingMonth(s string) (BillingMonth, error) {
	t, err := time.Parse(billingMonthLayout, s)
	if err != nil {
		return "", fmt.Errorf("invalid billing month %q: %w", s, err)
	}
	return BillingMonth(t.Format(billingMonthLayout)), nil
}

// BillingMonthOf returns the billing month containing t (in UTC).
func BillingMonthOf(t time.Time) BillingMonth {
	return BillingMonth(t.UTC().Format(billingMonthLayout))
}

func (m BillingMonth) String() string {
	return string(m)
}

func (m BillingMonth) Validate() error {
	_, err := time.Parse(billingMonthLayout, string(m))
	return err
}

// Start returns the first instant of the month in UTC.
func (m BillingMonth) Start() time.Time {
	t, _ := time.Parse(billingMonthLayout, string(m))
	return t.UTC()
}

// End returns the first instant of the following month in UTC. Intervals
// over a billing month are treated as [Start, End).
func (m BillingMonth) End() time.Time {
	return m.Start().AddDate(0, 1, 0)
}

// Prev returns the preceding billing month.
func (m BillingMonth) Prev() BillingMonth {
	return BillingMonth(m.Start().AddDate(0, -1, 0).Format(billingMonthLayout))
}

// YYYYMM returns the compact form used in invoice numbers, e.g. "202507".
func (m BillingMonth) YYYYMM() string {
	return m.Start().Format("200601")
}

// OverlapsWindow reports whether an effective-date window intersects the
// month. Nil bounds are unbounded.
func (m BillingMonth) OverlapsWindow(start, end *time.Time) bool {
	if start != nil && !start.Before(m.End()) {
		return false
	}
	if end != nil && end.Before(m.Start()) {
		return false
	}
	return true
}
