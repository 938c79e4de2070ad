package service

import (
	"context"
	"time"

	"github.com/cloudbill/cloudbill/internal/cache"
	"github.com/cloudbill/cloudbill/internal/domain/costdata"
	"github.com/cloudbill/cloudbill/internal/domain/skugroup"
	"github.com/cloudbill/cloudbill/internal/types"
)

const mappingCacheTTL = 5 * time.Minute

// TaggedItem is a cost line item with its sku group resolved. The special
// rule and pricing engines both consume this shape.
type TaggedItem struct {
	Item      *costdata.LineItem
	GroupID   string
	GroupCode string
}

// SkuGroupService resolves vendor product ids to commercial sku groups.
type SkuGroupService interface {
	CreateGroup(ctx context.Context, g *skugroup.SkuGroup) error
	ListGroups(ctx context.Context) ([]*skugroup.SkuGroup, error)
	CreateMapping(ctx context.Context, m *skugroup.Mapping) error

	// TagItems resolves the group of every item. Unmapped products land
	// in the UNMAPPED bucket; a missing mapping is never an error.
	TagItems(ctx context.Context, items []*costdata.LineItem) ([]TaggedItem, error)
}

type skuGroupService struct {
	ServiceParams
}

func NewSkuGroupService(params ServiceParams) SkuGroupService {
	return &skuGroupService{ServiceParams: params}
}

func (s *skuGroupService) CreateGroup(ctx context.Context, g *skugroup.SkuGroup) error {
	if g.ID == "" {
		g.ID = types.GenerateUUIDWithPrefix(types.UUIDPrefixSkuGroup)
	}
	g.BaseModel = types.GetDefaultBaseModel(ctx)
	if err := s.SkuGroupRepo.CreateGroup(ctx, g); err != nil {
		return err
	}
	s.invalidateMappingCache(ctx)
	return nil
}

func (s *skuGroupService) ListGroups(ctx context.Context) ([]*skugroup.SkuGroup, error) {
	return s.SkuGroupRepo.ListGroups(ctx)
}

func (s *skuGroupService) CreateMapping(ctx context.Context, m *skugroup.Mapping) error {
	if m.ID == "" {
		m.ID = types.GenerateUUIDWithPrefix(types.UUIDPrefixSkuGroup)
	}
	m.BaseModel = types.GetDefaultBaseModel(ctx)
	if err := s.SkuGroupRepo.CreateMapping(ctx, m); err != nil {
		return err
	}
	s.invalidateMappingCache(ctx)
	return nil
}

// mappingTable is the cached productID -> group lookup.
type mappingTable struct {
	groups  map[string]string // productID -> groupID
	byGroup map[string]string // groupID -> code
}

func (s *skuGroupService) TagItems(ctx context.Context, items []*costdata.LineItem) ([]TaggedItem, error) {
	table, err := s.loadMappingTable(ctx)
	if err != nil {
		return nil, err
	}

	tagged := make([]TaggedItem, 0, len(items))
	for _, item := range items {
		groupID, ok := table.groups[item.ProductID]
		if !ok {
			tagged = append(tagged, TaggedItem{
				Item:      item,
				GroupID:   skugroup.UnmappedGroupID,
				GroupCode: skugroup.UnmappedGroupCode,
			})
			continue
		}
		code := table.byGroup[groupID]
		if code == "" {
			code = groupID
		}
		tagged = append(tagged, TaggedItem{Item: item, GroupID: groupID, GroupCode: code})
	}
	return tagged, nil
}

func (s *skuGroupService) loadMappingTable(ctx context.Context) (*mappingTable, error) {
	cacheKey := cache.PrefixSkuGroupMapping + "table"
	if v, ok := s.Cache.Get(ctx, cacheKey); ok {
		if table, ok := v.(*mappingTable); ok {
			return table, nil
		}
	}

	mappings, err := s.SkuGroupRepo.ListMappings(ctx)
	if err != nil {
		return nil, err
	}
	groups, err := s.SkuGroupRepo.ListGroups(ctx)
	if err != nil {
		return nil, err
	}

	table := &mappingTable{
		groups:  make(map[string]string, len(mappings)),
		byGroup: make(map[string]string, len(groups)),
	}
	for _, m := range mappings {
		table.groups[m.ProductID] = m.GroupID
	}
	for _, g := range groups {
		table.byGroup[g.ID] = g.Code
	}

	s.Cache.Set(ctx, cacheKey, table, mappingCacheTTL)
	return table, nil
}

func (s *skuGroupService) invalidateMappingCache(ctx context.Context) {
	s.Cache.DeleteByPrefix(ctx, cache.PrefixSkuGroupMapping)
}
