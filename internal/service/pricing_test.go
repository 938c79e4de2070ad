package service

import (
	"testing"

	"github.com/cloudbill/cloudbill/internal/domain/costdata"
	"github.com/cloudbill/cloudbill/internal/domain/customer"
	"github.com/cloudbill/cloudbill/internal/domain/pricing"
	"github.com/cloudbill/cloudbill/internal/domain/skugroup"
	"github.com/cloudbill/cloudbill/internal/testutil"
	"github.com/cloudbill/cloudbill/internal/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

type PricingServiceSuite struct {
	testutil.BaseServiceTestSuite
	service PricingService
	month   types.BillingMonth
	listID  string
}

func TestPricingService(t *testing.T) {
	suite.Run(t, new(PricingServiceSuite))
}

func (s *PricingServiceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	s.service = NewPricingService(newTestServiceParams(&s.BaseServiceTestSuite, nil))
	s.month = types.BillingMonth("2025-07")

	ctx := s.GetContext()
	s.NoError(s.GetStores().CustomerRepo.Create(ctx, &customer.Customer{
		ID:             "cust_1",
		ExternalID:     "acme",
		Name:           "Acme",
		Currency:       "USD",
		CustomerStatus: types.CustomerStatusActive,
		BaseModel:      types.GetDefaultBaseModel(ctx),
	}))
	for _, code := range []string{"COMPUTE", "STORAGE"} {
		s.NoError(s.GetStores().SkuGroupRepo.CreateGroup(ctx, &skugroup.SkuGroup{
			ID:        code,
			Code:      code,
			Name:      code,
			BaseModel: types.GetDefaultBaseModel(ctx),
		}))
	}

	list := &pricing.PricingList{
		CustomerID: "cust_1",
		Name:       "standard",
		ListStatus: types.PricingListStatusActive,
	}
	s.NoError(s.service.CreateList(ctx, list))
	s.listID = list.ID
}

func (s *PricingServiceSuite) tagged(groupID string, cost float64) TaggedItem {
	return TaggedItem{
		Item: &costdata.LineItem{
			ID:           types.GenerateUUID(),
			Provider:     types.ProviderGCP,
			AccountID:    "acct-1",
			ProductID:    "sku-" + groupID,
			Cost:         decimal.NewFromFloat(cost),
			Currency:     "USD",
			InvoiceMonth: s.month,
		},
		GroupID:   groupID,
		GroupCode: groupID,
	}
}

func (s *PricingServiceSuite) createRule(r *pricing.PricingRule) *pricing.PricingRule {
	r.ListID = s.listID
	s.NoError(s.service.CreateRule(s.GetContext(), r))
	return r
}

func (s *PricingServiceSuite) TestPriceItemsWithoutList() {
	ctx := s.GetContext()
	s.NoError(s.GetStores().CustomerRepo.Create(ctx, &customer.Customer{
		ID:             "cust_bare",
		ExternalID:     "bare",
		Name:           "Bare",
		Currency:       "USD",
		CustomerStatus: types.CustomerStatusActive,
		BaseModel:      types.GetDefaultBaseModel(ctx),
	}))

	result, err := s.service.PriceItems(ctx, "cust_bare", s.month,
		[]TaggedItem{s.tagged("COMPUTE", 1000)})
	s.NoError(err)
	s.Empty(result.ListID)
	s.Len(result.Groups, 1)
	s.True(result.Subtotal.Equal(decimal.NewFromInt(1000)))
	s.True(result.RawTotal.Equal(result.Subtotal))
	s.Nil(result.Groups[0].RuleID)
}

func (s *PricingServiceSuite) TestListDiscount() {
	rule := s.createRule(&pricing.PricingRule{
		Type:         types.PricingRuleListDiscount,
		ListDiscount: &pricing.ListDiscountParams{DiscountRate: decimal.NewFromFloat(0.90)},
	})

	result, err := s.service.PriceItems(s.GetContext(), "cust_1", s.month,
		[]TaggedItem{s.tagged("COMPUTE", 600), s.tagged("COMPUTE", 400)})
	s.NoError(err)
	s.Equal(s.listID, result.ListID)
	s.Len(result.Groups, 1)

	g := result.Groups[0]
	s.True(g.RawAmount.Equal(decimal.NewFromInt(1000)))
	s.True(g.PricedAmount.Equal(decimal.NewFromInt(900)))
	s.Equal(2, g.EntryCount)
	s.Equal(rule.ID, *g.RuleID)
	s.True(result.Subtotal.Equal(decimal.NewFromInt(900)))
}

func (s *PricingServiceSuite) TestTieredUsesGroupTotal() {
	low := decimal.NewFromInt(1000)
	full := decimal.NewFromInt(1)
	discounted := decimal.NewFromFloat(0.8)
	s.createRule(&pricing.PricingRule{
		Type: types.PricingRuleTiered,
		Tiered: &pricing.TieredParams{Tiers: []pricing.Tier{
			{From: decimal.Zero, To: &low, Rate: &full},
			{From: low, Rate: &discounted},
		}},
	})

	// Single items stay under the band boundary; the group total crosses it.
	result, err := s.service.PriceItems(s.GetContext(), "cust_1", s.month,
		[]TaggedItem{s.tagged("COMPUTE", 900), s.tagged("COMPUTE", 600)})
	s.NoError(err)
	s.Len(result.Groups, 1)
	s.True(result.Groups[0].RawAmount.Equal(decimal.NewFromInt(1500)))
	s.True(result.Groups[0].PricedAmount.Equal(decimal.NewFromInt(1200)))
}

func (s *PricingServiceSuite) TestUnitPricePassesRawThrough() {
	rate := decimal.NewFromFloat(0.02)
	rule := s.createRule(&pricing.PricingRule{
		Type:      types.PricingRuleUnitPrice,
		UnitPrice: &pricing.UnitPriceParams{UnitPrice: rate},
	})

	result, err := s.service.PriceItems(s.GetContext(), "cust_1", s.month,
		[]TaggedItem{s.tagged("COMPUTE", 500)})
	s.NoError(err)
	s.True(result.Groups[0].PricedAmount.Equal(decimal.NewFromInt(500)))
	s.Equal(rule.ID, *result.Groups[0].RuleID)
	s.True(result.Groups[0].DiscountRate.Equal(rate))
}

func (s *PricingServiceSuite) TestSpecificRuleBeatsWildcardAtEqualPriority() {
	groupID := "COMPUTE"
	wildcard := s.createRule(&pricing.PricingRule{
		Type:         types.PricingRuleListDiscount,
		Priority:     5,
		ListDiscount: &pricing.ListDiscountParams{DiscountRate: decimal.NewFromFloat(0.95)},
	})
	specific := s.createRule(&pricing.PricingRule{
		Type:         types.PricingRuleListDiscount,
		SkuGroupID:   &groupID,
		Priority:     5,
		ListDiscount: &pricing.ListDiscountParams{DiscountRate: decimal.NewFromFloat(0.80)},
	})

	result, err := s.service.PriceItems(s.GetContext(), "cust_1", s.month,
		[]TaggedItem{s.tagged("COMPUTE", 100), s.tagged("STORAGE", 100)})
	s.NoError(err)
	s.Len(result.Groups, 2)

	byCode := map[string]GroupSummary{}
	for _, g := range result.Groups {
		byCode[g.GroupCode] = g
	}
	s.Equal(specific.ID, *byCode["COMPUTE"].RuleID)
	s.True(byCode["COMPUTE"].PricedAmount.Equal(decimal.NewFromInt(80)))
	s.Equal(wildcard.ID, *byCode["STORAGE"].RuleID)
	s.True(byCode["STORAGE"].PricedAmount.Equal(decimal.NewFromInt(95)))
}

func (s *PricingServiceSuite) TestLowerPriorityValueWins() {
	strong := s.createRule(&pricing.PricingRule{
		Type:         types.PricingRuleListDiscount,
		Priority:     1,
		ListDiscount: &pricing.ListDiscountParams{DiscountRate: decimal.NewFromFloat(0.70)},
	})
	s.createRule(&pricing.PricingRule{
		Type:         types.PricingRuleListDiscount,
		Priority:     9,
		ListDiscount: &pricing.ListDiscountParams{DiscountRate: decimal.NewFromFloat(0.99)},
	})

	result, err := s.service.PriceItems(s.GetContext(), "cust_1", s.month,
		[]TaggedItem{s.tagged("COMPUTE", 100)})
	s.NoError(err)
	s.Equal(strong.ID, *result.Groups[0].RuleID)
	s.True(result.Groups[0].PricedAmount.Equal(decimal.NewFromInt(70)))
}

func (s *PricingServiceSuite) TestRuleOutsideWindowIsSkipped() {
	past := s.month.Prev().Start()
	s.createRule(&pricing.PricingRule{
		Type:         types.PricingRuleListDiscount,
		EffectiveEnd: &past,
		ListDiscount: &pricing.ListDiscountParams{DiscountRate: decimal.NewFromFloat(0.50)},
	})

	result, err := s.service.PriceItems(s.GetContext(), "cust_1", s.month,
		[]TaggedItem{s.tagged("COMPUTE", 100)})
	s.NoError(err)
	s.Nil(result.Groups[0].RuleID)
	s.True(result.Groups[0].PricedAmount.Equal(decimal.NewFromInt(100)))
}

func (s *PricingServiceSuite) TestMixedCurrencies() {
	items := []TaggedItem{s.tagged("COMPUTE", 100), s.tagged("STORAGE", 100)}
	items[1].Item.Currency = "EUR"

	result, err := s.service.PriceItems(s.GetContext(), "cust_1", s.month, items)
	s.NoError(err)
	s.Equal(types.CurrencyMixed, result.Currency)
}

func (s *PricingServiceSuite) TestSecondActiveListRejected() {
	err := s.service.CreateList(s.GetContext(), &pricing.PricingList{
		CustomerID: "cust_1",
		Name:       "duplicate",
		ListStatus: types.PricingListStatusActive,
	})
	s.Error(err)
}
