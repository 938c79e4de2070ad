package provider

import (
	"testing"
	"time"

	"github.com/cloudbill/cloudbill/internal/domain/costdata"
	"github.com/cloudbill/cloudbill/internal/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func checksumItem(account, product string, cost string, start time.Time) *costdata.LineItem {
	return &costdata.LineItem{
		Provider:    types.ProviderGCP,
		AccountID:   account,
		ProductID:   product,
		MeterID:     "meter-1",
		UsageAmount: decimal.NewFromInt(10),
		Cost:        decimal.RequireFromString(cost),
		Currency:    "USD",
		UsageStart:  start,
		UsageEnd:    start.Add(time.Hour),
	}
}

func TestChecksumIsOrderInsensitive(t *testing.T) {
	start := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)
	a := checksumItem("acct-1", "sku-a", "1.25", start)
	b := checksumItem("acct-2", "sku-b", "2.50", start.Add(time.Hour))
	c := checksumItem("acct-1", "sku-c", "0.75", start.Add(2*time.Hour))

	first := Checksum([]*costdata.LineItem{a, b, c})
	second := Checksum([]*costdata.LineItem{c, a, b})

	assert.Equal(t, first, second)
	assert.Len(t, first, 64)
}

func TestChecksumChangesWithContent(t *testing.T) {
	start := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)
	a := checksumItem("acct-1", "sku-a", "1.25", start)
	b := checksumItem("acct-1", "sku-a", "1.26", start)

	assert.NotEqual(t,
		Checksum([]*costdata.LineItem{a}),
		Checksum([]*costdata.LineItem{b}))
}

func TestChecksumEmpty(t *testing.T) {
	assert.Equal(t, Checksum(nil), Checksum([]*costdata.LineItem{}))
}
