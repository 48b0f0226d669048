package postgres

import (
	"context"
	"fmt"

	"github.com/Haleralex/catalog/internal/application/ports"
	"github.com/Haleralex/catalog/internal/domain/entities"
	domainErrors "github.com/Haleralex/catalog/internal/domain/errors"
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
		sess:   sess,
		schema: productSchema,
		load:   loadProductRelation,
	}}
}

// ExistsByProductNumber проверяет номер без загрузки строки.
func (p *productProvider) ExistsByProductNumber(ctx context.Context, number string, excludeID int) (bool, error) {
	if err := p.ready(ctx, "exists"); err != nil {
		return false, err
	}
	defer observe("exists", p.schema.table)()

	const sql = `SELECT EXISTS (SELECT 1 FROM product WHERE product_number = $1 AND product_id <> $2)`

	var exists bool
	if err := p.sess.querier().QueryRow(ctx, sql, number, excludeID).Scan(&exists); err != nil {
		return false, dbError(p.op("exists"), err)
	}
	return exists, nil
}

// loadProductRelation догружает категории или типы для всех строк одним запросом.
func loadProductRelation(ctx context.Context, sess *session, rows []*entities.Product, relation string) error {
	switch relation {
	case entities.RelationCategory:
		byID, err := sess.uow.categories.byIDs(ctx, foreignKeys(rows, func(p *entities.Product) *int { return p.ProductCategoryID }))
		if err != nil {
			return err
		}
		for _, p := range rows {
			p.Category = nil
			if p.ProductCategoryID != nil {
				p.Category = byID[*p.ProductCategoryID]
			}
		}
	case entities.RelationType:
		byID, err := sess.uow.types.byIDs(ctx, foreignKeys(rows, func(p *entities.Product) *int { return p.ProductTypeID }))
		if err != nil {
			return err
		}
		for _, p := range rows {
			p.Type = nil
			if p.ProductTypeID != nil {
				p.Type = byID[*p.ProductTypeID]
			}
		}
	default:
		return domainErrors.NewInvalidStateError("product.include", fmt.Sprintf("unknown relation %q", relation))
	}
	return nil
}

// foreignKeys собирает уникальные ненулевые значения внешнего ключа.
func foreignKeys[T any](rows []*T, key func(*T) *int) []int {
	seen := make(map[int]struct{}, len(rows))
	ids := make([]int, 0, len(rows))
	for _, row := range rows {
		id := key(row)
		if id == nil {
			continue
		}
		if _, ok := seen[*id]; ok {
			continue
		}
		seen[*id] = struct{}{}
		ids = append(ids, *id)
	}
	return ids
}

// ============================================
// ProductCategory, ProductType
// ============================================

func newCategoryTable(sess *session) *table[entities.ProductCategory, *entities.ProductCategory] {
	return &table[entities.ProductCategory, *entities.ProductCategory]{sess: sess, schema: categorySchema}
}

func newTypeTable(sess *session) *table[entities.ProductType, *entities.ProductType] {
	return &table[entities.ProductType, *entities.ProductType]{sess: sess, schema: typeSchema}
}
