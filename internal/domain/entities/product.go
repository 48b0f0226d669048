// Package entities contains the persistence-shaped records of the product catalog.
// Entities are mutable and compared by their ID, not by their attributes.
//
// SOLID Principles:
// - SRP: Each entity describes one table of the catalog
// - DIP: Doesn't depend on infrastructure (no DB, no HTTP)
//
// Relationships (Category, Type) are populated only when the caller asked the
// provider to include them. A nil relationship means "not loaded", not "absent".
package entities

import (
	"time"

	"github.com/Haleralex/catalog/internal/domain/valueobjects"
)

// Record is implemented by every persisted entity.
// Providers use it to read/assign identity and to evaluate criteria without reflection.
type Record interface {
	Identity() int
	AssignIdentity(id int)
	FieldValue(field string) (any, bool)
}

// Relationship names accepted by Query.Include.
const (
	RelationCategory = "Category"
	RelationType     = "Type"
)

// Product field names (used in criteria and ordering).
const (
	ProductFieldID                = "ProductID"
	ProductFieldName              = "Name"
	ProductFieldProductNumber     = "ProductNumber"
	ProductFieldColor             = "Color"
	ProductFieldStandardCost      = "StandardCost"
	ProductFieldListPrice         = "ListPrice"
	ProductFieldSize              = "Size"
	ProductFieldWeight            = "Weight"
	ProductFieldProductCategoryID = "ProductCategoryID"
	ProductFieldProductTypeID     = "ProductTypeID"
	ProductFieldSellStartDate     = "SellStartDate"
	ProductFieldSellEndDate       = "SellEndDate"
	ProductFieldDiscontinuedDate  = "DiscontinuedDate"
	ProductFieldModifiedDate      = "ModifiedDate"
)

// Product is a sellable catalog item.
type Product struct {
	ProductID         int
	Name              string
	ProductNumber     string
	Color             *string
	StandardCost      valueobjects.Money
	ListPrice         valueobjects.Money
	Size              *string
	Weight            *float64
	ProductCategoryID *int
	ProductTypeID     *int
	SellStartDate     time.Time
	SellEndDate       *time.Time
	DiscontinuedDate  *time.Time
	ModifiedDate      time.Time

	Category *ProductCategory
	Type     *ProductType
}

var _ Record = (*Product)(nil)

// Identity returns ProductID.
func (p *Product) Identity() int { return p.ProductID }

// AssignIdentity sets ProductID.
func (p *Product) AssignIdentity(id int) { p.ProductID = id }

// FieldValue returns the value of a scalar field by name.
func (p *Product) FieldValue(field string) (any, bool) {
	switch field {
	case ProductFieldID:
		return p.ProductID, true
	case ProductFieldName:
		return p.Name, true
	case ProductFieldProductNumber:
		return p.ProductNumber, true
	case ProductFieldColor:
		return p.Color, true
	case ProductFieldStandardCost:
		return p.StandardCost, true
	case ProductFieldListPrice:
		return p.ListPrice, true
	case ProductFieldSize:
		return p.Size, true
	case ProductFieldWeight:
		return p.Weight, true
	case ProductFieldProductCategoryID:
		return p.ProductCategoryID, true
	case ProductFieldProductTypeID:
		return p.ProductTypeID, true
	case ProductFieldSellStartDate:
		return p.SellStartDate, true
	case ProductFieldSellEndDate:
		return p.SellEndDate, true
	case ProductFieldDiscontinuedDate:
		return p.DiscontinuedDate, true
	case ProductFieldModifiedDate:
		return p.ModifiedDate, true
	default:
		return nil, false
	}
}

// Clone returns a deep copy of the scalar fields. Relationships are not copied.
func (p *Product) Clone() *Product {
	c := *p
	c.Color = clonePtr(p.Color)
	c.Size = clonePtr(p.Size)
	c.Weight = clonePtr(p.Weight)
	c.ProductCategoryID = clonePtr(p.ProductCategoryID)
	c.ProductTypeID = clonePtr(p.ProductTypeID)
	c.SellEndDate = clonePtr(p.SellEndDate)
	c.DiscontinuedDate = clonePtr(p.DiscontinuedDate)
	c.Category = nil
	c.Type = nil
	return &c
}

// IsDiscontinued reports whether the product was discontinued at the given moment.
func (p *Product) IsDiscontinued(at time.Time) bool {
	return p.DiscontinuedDate != nil && !p.DiscontinuedDate.After(at)
}

func clonePtr[T any](v *T) *T {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
