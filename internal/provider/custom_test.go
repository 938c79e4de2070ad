package provider

import (
	"strings"
	"testing"

	"github.com/cloudbill/cloudbill/internal/config"
	ierr "github.com/cloudbill/cloudbill/internal/errors"
	"github.com/cloudbill/cloudbill/internal/httpclient"
	"github.com/cloudbill/cloudbill/internal/logger"
	"github.com/cloudbill/cloudbill/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const customFeedHeader = "account_id,project_id,service_id,product_id,meter_id,usage_amount,usage_unit,cost,currency,usage_start,usage_end"

func newCustomAdapter(t *testing.T) *CustomAdapter {
	t.Helper()
	cfg := config.GetDefaultConfig()
	log, err := logger.NewLogger(cfg)
	require.NoError(t, err)
	return NewCustomAdapter(cfg, httpclient.NewDefaultClient(), log)
}

func TestParseFeed(t *testing.T) {
	feed := strings.Join([]string{
		customFeedHeader,
		"acct-1,proj-1,compute,vm-small,cpu-hours,24,hours,4.80,USD,2025-07-01T00:00:00Z,2025-07-02T00:00:00Z",
		"acct-2,proj-2,storage,bucket-std,gb-months,100,GB,2.30,USD,2025-07-01T00:00:00Z,2025-08-01T00:00:00Z",
	}, "\n")

	a := newCustomAdapter(t)
	result, err := a.ParseFeed(strings.NewReader(feed), types.BillingMonth("2025-07"), nil)
	require.NoError(t, err)

	require.Len(t, result.LineItems, 2)
	assert.Equal(t, 2, result.RowCount)
	assert.Equal(t, types.SourceTypeUpload, result.SourceType)
	assert.NotEmpty(t, result.Checksum)

	first := result.LineItems[0]
	assert.Equal(t, types.ProviderCustom, first.Provider)
	assert.Equal(t, "acct-1", first.AccountID)
	assert.Equal(t, "vm-small", first.ProductID)
	assert.Equal(t, "4.8", first.Cost.String())
	assert.Equal(t, types.BillingMonth("2025-07"), first.InvoiceMonth)
}

func TestParseFeedFiltersAccounts(t *testing.T) {
	feed := strings.Join([]string{
		customFeedHeader,
		"acct-1,proj-1,compute,vm-small,cpu-hours,24,hours,4.80,USD,2025-07-01T00:00:00Z,2025-07-02T00:00:00Z",
		"acct-2,proj-2,storage,bucket-std,gb-months,100,GB,2.30,USD,2025-07-01T00:00:00Z,2025-08-01T00:00:00Z",
	}, "\n")

	a := newCustomAdapter(t)
	result, err := a.ParseFeed(strings.NewReader(feed), types.BillingMonth("2025-07"), []string{"acct-2"})
	require.NoError(t, err)

	require.Len(t, result.LineItems, 1)
	assert.Equal(t, "acct-2", result.LineItems[0].AccountID)
}

func TestParseFeedMissingColumn(t *testing.T) {
	feed := "account_id,cost\nacct-1,4.80"

	a := newCustomAdapter(t)
	_, err := a.ParseFeed(strings.NewReader(feed), types.BillingMonth("2025-07"), nil)
	require.Error(t, err)
	assert.True(t, ierr.IsAdapter(err))
}

func TestParseFeedRejectsBadAmount(t *testing.T) {
	feed := strings.Join([]string{
		customFeedHeader,
		"acct-1,proj-1,compute,vm-small,cpu-hours,not-a-number,hours,4.80,USD,2025-07-01T00:00:00Z,2025-07-02T00:00:00Z",
	}, "\n")

	a := newCustomAdapter(t)
	_, err := a.ParseFeed(strings.NewReader(feed), types.BillingMonth("2025-07"), nil)
	require.Error(t, err)
}
