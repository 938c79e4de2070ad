package types

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseBillingMonth(t *testing.T) {
	m, err := ParseBillingMonth("2025-07")
	assert.NoError(t, err)
	assert.Equal(t, BillingMonth("2025-07"), m)

	_, err = ParseBillingMonth("2025-13")
	assert.Error(t, err)

	_, err = ParseBillingMonth("202507")
	assert.Error(t, err)
}

func TestBillingMonthBounds(t *testing.T) {
	m := BillingMonth("2025-07")
	assert.Equal(t, time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC), m.Start())
	assert.Equal(t, time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC), m.End())
	assert.Equal(t, BillingMonth("2025-06"), m.Prev())
	assert.Equal(t, "202507", m.YYYYMM())
}

func TestBillingMonthPrevAcrossYear(t *testing.T) {
	assert.Equal(t, BillingMonth("2024-12"), BillingMonth("2025-01").Prev())
}

func TestOverlapsWindow(t *testing.T) {
	m := BillingMonth("2025-07")
	mid := time.Date(2025, 7, 15, 0, 0, 0, 0, time.UTC)
	before := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	after := time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC)

	assert.True(t, m.OverlapsWindow(nil, nil))
	assert.True(t, m.OverlapsWindow(&mid, nil))
	assert.True(t, m.OverlapsWindow(nil, &mid))
	assert.True(t, m.OverlapsWindow(&before, &after))
	assert.False(t, m.OverlapsWindow(&after, nil))
	assert.False(t, m.OverlapsWindow(nil, &before))

	// A window ending exactly at the month start still touches the month.
	start := m.Start()
	assert.True(t, m.OverlapsWindow(nil, &start))
}
