package skugroup

import (
	ierr "github.com/cloudbill/cloudbill/internal/errors"
	"github.com/cloudbill/cloudbill/internal/types"
)

// UnmappedGroupID is the sentinel group for products with no mapping. A
// missing mapping is never an error; the item lands in this bucket.
const (
	UnmappedGroupID   = "UNMAPPED"
	UnmappedGroupCode = "UNMAPPED"
)

// SkuGroup is a commercial product grouping used for pricing and display.
type SkuGroup struct {
	ID   string `json:"id"`
	Code string `json:"code"`
	Name string `json:"name"`
	types.BaseModel
}

func (g *SkuGroup) Validate() error {
	if g.Code == "" {
		return ierr.NewError("sku group code is required").
			Mark(ierr.ErrValidation)
	}
	return nil
}

// Mapping is a pure lookup entry from a vendor product id to a group.
// Many product ids map to one group.
type Mapping struct {
	ID        string `json:"id"`
	ProductID string `json:"product_id"`
	GroupID   string `json:"group_id"`
	types.BaseModel
}

func (m *Mapping) Validate() error {
	if m.ProductID == "" || m.GroupID == "" {
		return ierr.NewError("sku mapping requires product and group ids").
			Mark(ierr.ErrValidation)
	}
	return nil
}
