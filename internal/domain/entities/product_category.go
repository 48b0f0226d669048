package entities

import "time"

// ProductCategory field names.
const (
	CategoryFieldID                      = "ProductCategoryID"
	CategoryFieldParentProductCategoryID = "ParentProductCategoryID"
	CategoryFieldName                    = "Name"
	CategoryFieldModifiedDate            = "ModifiedDate"
)

// ProductCategory groups products. Categories form a tree through ParentProductCategoryID.
type ProductCategory struct {
	ProductCategoryID       int
	ParentProductCategoryID *int
	Name                    string
	ModifiedDate            time.Time
}

var _ Record = (*ProductCategory)(nil)

func (c *ProductCategory) Identity() int         { return c.ProductCategoryID }
func (c *ProductCategory) AssignIdentity(id int) { c.ProductCategoryID = id }

func (c *ProductCategory) FieldValue(field string) (any, bool) {
	switch field {
	case CategoryFieldID:
		return c.ProductCategoryID, true
	case CategoryFieldParentProductCategoryID:
		return c.ParentProductCategoryID, true
	case CategoryFieldName:
		return c.Name, true
	case CategoryFieldModifiedDate:
		return c.ModifiedDate, true
	default:
		return nil, false
	}
}

// Clone returns a deep copy.
func (c *ProductCategory) Clone() *ProductCategory {
	cp := *c
	cp.ParentProductCategoryID = clonePtr(c.ParentProductCategoryID)
	return &cp
}

// IsRoot reports whether the category has no parent.
func (c *ProductCategory) IsRoot() bool {
	return c.ParentProductCategoryID == nil
}
