package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/cloudbill/cloudbill/internal/cache"
	"github.com/cloudbill/cloudbill/internal/config"
	"github.com/cloudbill/cloudbill/internal/domain/costdata"
	ierr "github.com/cloudbill/cloudbill/internal/errors"
	"github.com/cloudbill/cloudbill/internal/httpclient"
	"github.com/cloudbill/cloudbill/internal/logger"
	"github.com/cloudbill/cloudbill/internal/types"
	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"
)

const openAITokenTTL = 30 * time.Minute

// openAIUsageLine is one bucket of the usage API response for a single day.
type openAIUsageLine struct {
	OrganizationID  string          `json:"organization_id"`
	ProjectID       string          `json:"project_id"`
	Model           string          `json:"model"`
	Operation       string          `json:"operation"`
	InputTokens     int64           `json:"n_context_tokens_total"`
	GeneratedTokens int64           `json:"n_generated_tokens_total"`
	Cost            decimal.Decimal `json:"cost"`
	Currency        string          `json:"currency"`
}

type openAIUsageResponse struct {
	Data []openAIUsageLine `json:"data"`
}

// OpenAIAdapter pulls daily usage buckets from the OpenAI usage API. The
// API is aggressively rate limited, so day-window calls go through a
// shared limiter.
type OpenAIAdapter struct {
	cfg     config.OpenAIConfig
	client  httpclient.Client
	cache   cache.Cache
	limiter *rate.Limiter
	logger  *logger.Logger
}

func NewOpenAIAdapter(cfg *config.Configuration, client httpclient.Client, c cache.Cache, logger *logger.Logger) *OpenAIAdapter {
	rpm := cfg.Providers.OpenAI.RequestsPerMinute
	if rpm <= 0 {
		rpm = 5
	}
	return &OpenAIAdapter{
		cfg:     cfg.Providers.OpenAI,
		client:  client,
		cache:   c,
		limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(rpm)), 1),
		logger:  logger,
	}
}

func (a *OpenAIAdapter) Provider() types.Provider {
	return types.ProviderOpenAI
}

// token resolves the API bearer token, keeping the resolved value in the
// TTL cache so restarts of the token exchange do not hit every day-window
// call.
func (a *OpenAIAdapter) token(ctx context.Context) (string, error) {
	key := cache.PrefixProviderToken + string(types.ProviderOpenAI)
	if v, ok := a.cache.Get(ctx, key); ok {
		if tok, ok := v.(string); ok {
			return tok, nil
		}
	}
	if a.cfg.APIKey == "" {
		return "", ierr.NewError("openai api key is not configured").
			WithHint("Set providers.openai.apikey").
			Mark(ierr.ErrAdapter)
	}
	a.cache.Set(ctx, key, a.cfg.APIKey, openAITokenTTL)
	return a.cfg.APIKey, nil
}

func (a *OpenAIAdapter) FetchLineItems(ctx context.Context, req *FetchRequest) (*FetchResult, error) {
	tok, err := a.token(ctx)
	if err != nil {
		return nil, err
	}

	wanted := accountFilter(req.AccountIDs)
	start := req.Month.Start()
	end := req.Month.End()

	var items []*costdata.LineItem
	days := 0
	for day := start; day.Before(end); day = day.AddDate(0, 0, 1) {
		if err := a.limiter.Wait(ctx); err != nil {
			return nil, ierr.WithError(err).Mark(ierr.ErrAdapter)
		}
		lines, err := a.fetchDay(ctx, tok, day)
		if err != nil {
			return nil, err
		}
		days++
		for _, line := range lines {
			if wanted != nil && !wanted[line.OrganizationID] {
				continue
			}
			items = append(items, usageLineItem(line, day, req.Month))
		}
	}

	a.logger.Debugw("fetched openai usage",
		"month", req.Month,
		"days", days,
		"rows", len(items))

	return &FetchResult{
		LineItems:  items,
		RowCount:   len(items),
		Checksum:   Checksum(items),
		SourceType: types.SourceTypeAPI,
		SourceMetadata: map[string]string{
			"api_url": a.cfg.APIURL,
		},
	}, nil
}

func (a *OpenAIAdapter) fetchDay(ctx context.Context, tok string, day time.Time) ([]openAIUsageLine, error) {
	resp, err := a.client.Send(ctx, &httpclient.Request{
		Method: http.MethodGet,
		URL:    fmt.Sprintf("%s/usage?date=%s", a.cfg.APIURL, day.Format("2006-01-02")),
		Headers: map[string]string{
			"Authorization": "Bearer " + tok,
		},
	})
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("OpenAI usage fetch failed").
			WithReportableDetails(map[string]any{"date": day.Format("2006-01-02")}).
			Mark(ierr.ErrAdapter)
	}
	if !resp.IsSuccess() {
		return nil, ierr.NewErrorf("openai usage api returned status %d", resp.StatusCode).
			WithReportableDetails(map[string]any{"date": day.Format("2006-01-02")}).
			Mark(ierr.ErrAdapter)
	}
	var payload openAIUsageResponse
	if err := json.Unmarshal(resp.Body, &payload); err != nil {
		return nil, ierr.WithError(err).
			WithHint("OpenAI usage payload is not valid JSON").
			Mark(ierr.ErrAdapter)
	}
	return payload.Data, nil
}

func usageLineItem(line openAIUsageLine, day time.Time, month types.BillingMonth) *costdata.LineItem {
	currency := line.Currency
	if currency == "" {
		currency = "USD"
	}
	return &costdata.LineItem{
		Provider:     types.ProviderOpenAI,
		AccountID:    line.OrganizationID,
		SubaccountID: line.ProjectID,
		ProjectID:    line.ProjectID,
		ServiceID:    line.Operation,
		ProductID:    line.Model,
		MeterID:      line.Operation,
		UsageAmount:  decimal.NewFromInt(line.InputTokens + line.GeneratedTokens),
		UsageUnit:    "tokens",
		Cost:         line.Cost,
		Currency:     currency,
		UsageStart:   day,
		UsageEnd:     day.AddDate(0, 0, 1),
		InvoiceMonth: month,
	}
}

func (a *OpenAIAdapter) ValidateConnection(ctx context.Context) bool {
	tok, err := a.token(ctx)
	if err != nil {
		return false
	}
	resp, err := a.client.Send(ctx, &httpclient.Request{
		Method: http.MethodGet,
		URL:    a.cfg.APIURL + "/organizations",
		Headers: map[string]string{
			"Authorization": "Bearer " + tok,
		},
	})
	return err == nil && resp.IsSuccess()
}

func (a *OpenAIAdapter) ListAccounts(ctx context.Context) ([]Account, error) {
	tok, err := a.token(ctx)
	if err != nil {
		return nil, err
	}
	resp, err := a.client.Send(ctx, &httpclient.Request{
		Method: http.MethodGet,
		URL:    a.cfg.APIURL + "/organizations",
		Headers: map[string]string{
			"Authorization": "Bearer " + tok,
		},
	})
	if err != nil {
		return nil, err
	}
	if !resp.IsSuccess() {
		return nil, ierr.NewErrorf("openai organizations endpoint returned status %d", resp.StatusCode).
			Mark(ierr.ErrAdapter)
	}
	var payload struct {
		Data []Account `json:"data"`
	}
	if err := json.Unmarshal(resp.Body, &payload); err != nil {
		return nil, ierr.WithError(err).Mark(ierr.ErrAdapter)
	}
	return payload.Data, nil
}
