package memory

import (
	"context"
	"fmt"

	"github.com/Haleralex/catalog/internal/application/ports"
	"github.com/Haleralex/catalog/internal/domain/entities"
	domainErrors "github.com/Haleralex/catalog/internal/domain/errors"
)

// Constraint names (совпадают с migrations/).
const (
	constraintProductNumber   = "product_product_number_key"
	constraintProductCategory = "product_product_category_id_fkey"
	constraintProductType     = "product_product_type_id_fkey"
	constraintCategoryParent  = "product_category_parent_product_category_id_fkey"
)

// ============================================
// Product
// ============================================

var _ ports.ProductProvider = (*productProvider)(nil)

// productProvider - table продуктов плюс проверка уникальности номера.
type productProvider struct {
	*table[entities.Product, *entities.Product]
}

func newProductProvider(sess *session) *productProvider {
	return &productProvider{table: &table[entities.Product, *entities.Product]{
		sess:  sess,
		name:  tableProduct,
		rows:  func(d *dataset) map[int]*entities.Product { return d.products },
		check: checkProduct,
		load:  loadProductRelation,
	}}
}

// ExistsByProductNumber проверяет номер среди всех продуктов, кроме excludeID.
func (p *productProvider) ExistsByProductNumber(ctx context.Context, number string, excludeID int) (bool, error) {
	if err := p.ready(ctx, "exists"); err != nil {
		return false, err
	}
	return productNumberTaken(p.sess.data, number, excludeID), nil
}

func productNumberTaken(d *dataset, number string, excludeID int) bool {
	for id, row := range d.products {
		if id != excludeID && row.ProductNumber == number {
			return true
		}
	}
	return false
}

func checkProduct(d *dataset, p *entities.Product) error {
	const op = tableProduct + ".write"

	if productNumberTaken(d, p.ProductNumber, p.ProductID) {
		return &domainErrors.DatabaseError{
			Op:         op,
			Code:       codeUniqueViolation,
			Constraint: constraintProductNumber,
			Err:        fmt.Errorf("product number %q: %w", p.ProductNumber, domainErrors.ErrEntityAlreadyExists),
		}
	}
	if p.ProductCategoryID != nil {
		if _, ok := d.categories[*p.ProductCategoryID]; !ok {
			return foreignKeyError(op, constraintProductCategory, *p.ProductCategoryID)
		}
	}
	if p.ProductTypeID != nil {
		if _, ok := d.types[*p.ProductTypeID]; !ok {
			return foreignKeyError(op, constraintProductType, *p.ProductTypeID)
		}
	}
	return nil
}

func loadProductRelation(d *dataset, p *entities.Product, relation string) error {
	switch relation {
	case entities.RelationCategory:
		p.Category = nil
		if p.ProductCategoryID != nil {
			if c, ok := d.categories[*p.ProductCategoryID]; ok {
				p.Category = c.Clone()
			}
		}
	case entities.RelationType:
		p.Type = nil
		if p.ProductTypeID != nil {
			if t, ok := d.types[*p.ProductTypeID]; ok {
				p.Type = t.Clone()
			}
		}
	default:
		return domainErrors.NewInvalidStateError(tableProduct+".include", fmt.Sprintf("unknown relation %q", relation))
	}
	return nil
}

// ============================================
// ProductCategory
// ============================================

func newCategoryTable(sess *session) *table[entities.ProductCategory, *entities.ProductCategory] {
	return &table[entities.ProductCategory, *entities.ProductCategory]{
		sess:  sess,
		name:  tableProductCategory,
		rows:  func(d *dataset) map[int]*entities.ProductCategory { return d.categories },
		check: checkCategory,
		guard: guardCategory,
	}
}

func checkCategory(d *dataset, c *entities.ProductCategory) error {
	if c.ParentProductCategoryID == nil {
		return nil
	}
	parent := *c.ParentProductCategoryID
	if _, ok := d.categories[parent]; !ok && parent != c.ProductCategoryID {
		return foreignKeyError(tableProductCategory+".write", constraintCategoryParent, parent)
	}
	return nil
}

// guardCategory запрещает удаление категории, на которую ссылаются (ON DELETE NO ACTION).
func guardCategory(d *dataset, id int) error {
	for _, p := range d.products {
		if p.ProductCategoryID != nil && *p.ProductCategoryID == id {
			return foreignKeyError(tableProductCategory+".delete", constraintProductCategory, id)
		}
	}
	for _, c := range d.categories {
		if c.ParentProductCategoryID != nil && *c.ParentProductCategoryID == id && c.ProductCategoryID != id {
			return foreignKeyError(tableProductCategory+".delete", constraintCategoryParent, id)
		}
	}
	return nil
}

// ============================================
// ProductType
// ============================================

func newTypeTable(sess *session) *table[entities.ProductType, *entities.ProductType] {
	return &table[entities.ProductType, *entities.ProductType]{
		sess:  sess,
		name:  tableProductType,
		rows:  func(d *dataset) map[int]*entities.ProductType { return d.types },
		guard: guardType,
	}
}

func guardType(d *dataset, id int) error {
	for _, p := range d.products {
		if p.ProductTypeID != nil && *p.ProductTypeID == id {
			return foreignKeyError(tableProductType+".delete", constraintProductType, id)
		}
	}
	return nil
}

func foreignKeyError(op, constraint string, id int) *domainErrors.DatabaseError {
	return &domainErrors.DatabaseError{
		Op:         op,
		Code:       codeForeignKeyViolation,
		Constraint: constraint,
		Err:        fmt.Errorf("key %d is referenced or missing", id),
	}
}
