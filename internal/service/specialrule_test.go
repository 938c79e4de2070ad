package service

import (
	"testing"

	"github.com/cloudbill/cloudbill/internal/audit"
	"github.com/cloudbill/cloudbill/internal/domain/costdata"
	"github.com/cloudbill/cloudbill/internal/domain/customer"
	"github.com/cloudbill/cloudbill/internal/domain/specialrule"
	"github.com/cloudbill/cloudbill/internal/testutil"
	"github.com/cloudbill/cloudbill/internal/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

type SpecialRuleServiceSuite struct {
	testutil.BaseServiceTestSuite
	service SpecialRuleService
	month   types.BillingMonth
}

func TestSpecialRuleService(t *testing.T) {
	suite.Run(t, new(SpecialRuleServiceSuite))
}

func (s *SpecialRuleServiceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	s.service = NewSpecialRuleService(newTestServiceParams(&s.BaseServiceTestSuite, nil))
	s.month = types.BillingMonth("2025-07")

	s.seedCustomer("cust_1", "acme")
	s.seedCustomer("cust_2", "globex")
}

func (s *SpecialRuleServiceSuite) seedCustomer(id, externalID string) {
	err := s.GetStores().CustomerRepo.Create(s.GetContext(), &customer.Customer{
		ID:             id,
		ExternalID:     externalID,
		Name:           externalID,
		Currency:       "USD",
		CustomerStatus: types.CustomerStatusActive,
		BaseModel:      types.GetDefaultBaseModel(s.GetContext()),
	})
	s.NoError(err)
}

func (s *SpecialRuleServiceSuite) tagged(productID, groupID string, cost float64) TaggedItem {
	return TaggedItem{
		Item: &costdata.LineItem{
			ID:           types.GenerateUUID(),
			Provider:     types.ProviderGCP,
			AccountID:    "acct-1",
			ProductID:    productID,
			Cost:         decimal.NewFromFloat(cost),
			Currency:     "USD",
			InvoiceMonth: s.month,
		},
		GroupID:   groupID,
		GroupCode: groupID,
	}
}

func (s *SpecialRuleServiceSuite) TestTransformWithoutRules() {
	items := []TaggedItem{
		s.tagged("sku-vm", "COMPUTE", 100),
		s.tagged("sku-disk", "STORAGE", 40),
	}

	result, err := s.service.Transform(s.GetContext(), "cust_1", s.month, "run_1", items)
	s.NoError(err)
	s.Len(result.Items, 2)
	s.Empty(result.Effects)
	s.Empty(result.MovedItems)
	s.True(result.TotalCostDelta.IsZero())
}

func (s *SpecialRuleServiceSuite) TestExcludeSku() {
	s.NoError(s.service.Create(s.GetContext(), &specialrule.SpecialRule{
		CustomerID: "cust_1",
		Type:       types.SpecialRuleExcludeSku,
		Match:      specialrule.Match{SkuID: "sku-vm"},
		Enabled:    true,
	}))

	items := []TaggedItem{
		s.tagged("sku-vm", "COMPUTE", 100),
		s.tagged("sku-disk", "STORAGE", 40),
	}

	result, err := s.service.Transform(s.GetContext(), "cust_1", s.month, "run_1", items)
	s.NoError(err)
	s.Len(result.Items, 1)
	s.Equal("sku-disk", result.Items[0].Item.ProductID)

	s.Len(result.Effects, 1)
	s.Equal(types.SpecialRuleExcludeSku, result.Effects[0].RuleType)
	s.Equal(1, result.Effects[0].ItemCount)
	s.True(result.Effects[0].CostDelta.Equal(decimal.NewFromInt(-100)))
	s.True(result.TotalCostDelta.Equal(decimal.NewFromInt(-100)))
}

func (s *SpecialRuleServiceSuite) TestOverrideCostLeavesSourceUntouched() {
	half := decimal.NewFromFloat(0.5)
	s.NoError(s.service.Create(s.GetContext(), &specialrule.SpecialRule{
		CustomerID:     "cust_1",
		Type:           types.SpecialRuleOverrideCost,
		Match:          specialrule.Match{SkuGroupID: "COMPUTE"},
		Enabled:        true,
		CostMultiplier: &half,
	}))

	source := s.tagged("sku-vm", "COMPUTE", 100)
	result, err := s.service.Transform(s.GetContext(), "cust_1", s.month, "run_1", []TaggedItem{source})
	s.NoError(err)

	s.Len(result.Items, 1)
	s.True(result.Items[0].Item.Cost.Equal(decimal.NewFromInt(50)))
	// The stored line item keeps its ingested cost.
	s.True(source.Item.Cost.Equal(decimal.NewFromInt(100)))
	s.True(result.TotalCostDelta.Equal(decimal.NewFromInt(-50)))
}

func (s *SpecialRuleServiceSuite) TestMoveToCustomer() {
	target := "cust_2"
	s.NoError(s.service.Create(s.GetContext(), &specialrule.SpecialRule{
		CustomerID:       "cust_1",
		Type:             types.SpecialRuleMoveToCustomer,
		Match:            specialrule.Match{ProjectID: "proj-shared"},
		Enabled:          true,
		TargetCustomerID: &target,
	}))

	moved := s.tagged("sku-vm", "COMPUTE", 75)
	moved.Item.ProjectID = "proj-shared"
	kept := s.tagged("sku-disk", "STORAGE", 40)

	result, err := s.service.Transform(s.GetContext(), "cust_1", s.month, "run_1", []TaggedItem{moved, kept})
	s.NoError(err)
	s.Len(result.Items, 1)
	s.Len(result.MovedItems, 1)
	s.Equal(moved.Item.ID, result.MovedItems[0].ItemID)
	s.Equal("cust_2", result.MovedItems[0].TargetCustomerID)
	s.True(result.TotalCostDelta.Equal(decimal.NewFromInt(-75)))
}

func (s *SpecialRuleServiceSuite) TestCreateRejectsUnknownMoveTarget() {
	target := "cust_missing"
	err := s.service.Create(s.GetContext(), &specialrule.SpecialRule{
		CustomerID:       "cust_1",
		Type:             types.SpecialRuleMoveToCustomer,
		Match:            specialrule.Match{ProjectID: "proj-shared"},
		Enabled:          true,
		TargetCustomerID: &target,
	})
	s.Error(err)
}

func (s *SpecialRuleServiceSuite) TestFirstMatchWinsByPriority() {
	half := decimal.NewFromFloat(0.5)
	s.NoError(s.service.Create(s.GetContext(), &specialrule.SpecialRule{
		CustomerID: "cust_1",
		Type:       types.SpecialRuleExcludeSku,
		Match:      specialrule.Match{SkuID: "sku-vm"},
		Priority:   1,
		Enabled:    true,
	}))
	s.NoError(s.service.Create(s.GetContext(), &specialrule.SpecialRule{
		CustomerID:     "cust_1",
		Type:           types.SpecialRuleOverrideCost,
		Match:          specialrule.Match{SkuGroupID: "COMPUTE"},
		Priority:       2,
		Enabled:        true,
		CostMultiplier: &half,
	}))

	result, err := s.service.Transform(s.GetContext(), "cust_1", s.month, "run_1",
		[]TaggedItem{s.tagged("sku-vm", "COMPUTE", 100)})
	s.NoError(err)

	// The exclusion wins; the override never sees the item.
	s.Empty(result.Items)
	s.Len(result.Effects, 1)
	s.Equal(types.SpecialRuleExcludeSku, result.Effects[0].RuleType)
	s.True(result.TotalCostDelta.Equal(decimal.NewFromInt(-100)))
}

func (s *SpecialRuleServiceSuite) TestDisabledRuleIsIgnored() {
	s.NoError(s.service.Create(s.GetContext(), &specialrule.SpecialRule{
		CustomerID: "cust_1",
		Type:       types.SpecialRuleExcludeSkuGroup,
		Match:      specialrule.Match{SkuGroupID: "COMPUTE"},
		Enabled:    false,
	}))

	result, err := s.service.Transform(s.GetContext(), "cust_1", s.month, "run_1",
		[]TaggedItem{s.tagged("sku-vm", "COMPUTE", 100)})
	s.NoError(err)
	s.Len(result.Items, 1)
	s.Empty(result.Effects)
}

func (s *SpecialRuleServiceSuite) TestTransformEmitsAuditEvents() {
	s.NoError(s.service.Create(s.GetContext(), &specialrule.SpecialRule{
		CustomerID: "cust_1",
		Type:       types.SpecialRuleExcludeSku,
		Match:      specialrule.Match{SkuID: "sku-vm"},
		Enabled:    true,
	}))

	_, err := s.service.Transform(s.GetContext(), "cust_1", s.month, "run_1",
		[]TaggedItem{s.tagged("sku-vm", "COMPUTE", 100)})
	s.NoError(err)

	events := s.GetAudit().EventsOfType(audit.EventRuleApplied)
	s.Len(events, 1)
	s.Equal("run_1", events[0].RunID)
	s.Equal("cust_1", events[0].CustomerID)
}
