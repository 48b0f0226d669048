package entities

import "time"

// ProductType field names.
const (
	TypeFieldID                 = "ProductTypeID"
	TypeFieldName               = "Name"
	TypeFieldCatalogDescription = "CatalogDescription"
	TypeFieldModifiedDate       = "ModifiedDate"
)

// ProductType is the "model" a product is built from (e.g. "HL Road Frame").
type ProductType struct {
	ProductTypeID      int
	Name               string
	CatalogDescription *string
	ModifiedDate       time.Time
}

var _ Record = (*ProductType)(nil)

func (t *ProductType) Identity() int         { return t.ProductTypeID }
func (t *ProductType) AssignIdentity(id int) { t.ProductTypeID = id }

func (t *ProductType) FieldValue(field string) (any, bool) {
	switch field {
	case TypeFieldID:
		return t.ProductTypeID, true
	case TypeFieldName:
		return t.Name, true
	case TypeFieldCatalogDescription:
		return t.CatalogDescription, true
	case TypeFieldModifiedDate:
		return t.ModifiedDate, true
	default:
		return nil, false
	}
}

// Clone returns a deep copy.
func (t *ProductType) Clone() *ProductType {
	cp := *t
	cp.CatalogDescription = clonePtr(t.CatalogDescription)
	return &cp
}
