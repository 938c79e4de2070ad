package skugroup

import "context"

// Repository defines the persistence boundary for sku groups and their
// product mappings.
type Repository interface {
	CreateGroup(ctx context.Context, g *SkuGroup) error
	GetGroup(ctx context.Context, id string) (*SkuGroup, error)
	ListGroups(ctx context.Context) ([]*SkuGroup, error)

	CreateMapping(ctx context.Context, m *Mapping) error
	// ListMappings returns the full productID -> groupID lookup table.
	ListMappings(ctx context.Context) ([]*Mapping, error)
}
