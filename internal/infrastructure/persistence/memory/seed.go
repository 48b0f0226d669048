package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/Haleralex/catalog/internal/application/ports"
	"github.com/Haleralex/catalog/internal/domain/entities"
	"github.com/Haleralex/catalog/internal/domain/valueobjects"
)

// Sample catalog (те же строки, что и migrations/000003_seed_catalog.up.sql).

var seedModified = time.Date(2008, 3, 11, 10, 1, 36, 0, time.UTC)

func ptr[T any](v T) *T { return &v }

// SampleCategories возвращает категории образца.
func SampleCategories() []*entities.ProductCategory {
	return []*entities.ProductCategory{
		{ProductCategoryID: 1, Name: "Bikes", ModifiedDate: seedModified},
		{ProductCategoryID: 2, Name: "Components", ModifiedDate: seedModified},
		{ProductCategoryID: 3, Name: "Clothing", ModifiedDate: seedModified},
		{ProductCategoryID: 4, Name: "Accessories", ModifiedDate: seedModified},
		{ProductCategoryID: 5, ParentProductCategoryID: ptr(1), Name: "Mountain Bikes", ModifiedDate: seedModified},
		{ProductCategoryID: 6, ParentProductCategoryID: ptr(1), Name: "Road Bikes", ModifiedDate: seedModified},
		{ProductCategoryID: 12, ParentProductCategoryID: ptr(2), Name: "Mountain Frames", ModifiedDate: seedModified},
		{ProductCategoryID: 18, ParentProductCategoryID: ptr(2), Name: "Road Frames", ModifiedDate: seedModified},
		{ProductCategoryID: 31, ParentProductCategoryID: ptr(4), Name: "Helmets", ModifiedDate: seedModified},
	}
}

// SampleTypes возвращает типы образца.
func SampleTypes() []*entities.ProductType {
	return []*entities.ProductType{
		{ProductTypeID: 5, Name: "HL Mountain Frame", ModifiedDate: seedModified},
		{ProductTypeID: 6, Name: "HL Road Frame", CatalogDescription: ptr("Our lightest and best quality aluminum frame."), ModifiedDate: seedModified},
		{ProductTypeID: 19, Name: "Mountain-100", CatalogDescription: ptr("Top-of-the-line competition mountain bike."), ModifiedDate: seedModified},
		{ProductTypeID: 33, Name: "Sport-100", ModifiedDate: seedModified},
	}
}

// SampleProducts возвращает продукты образца.
func SampleProducts() []*entities.Product {
	frameStart := time.Date(2002, 6, 1, 0, 0, 0, 0, time.UTC)
	start := time.Date(2005, 7, 1, 0, 0, 0, 0, time.UTC)

	return []*entities.Product{
		{
			ProductID: 680, Name: "HL Road Frame - Black, 58", ProductNumber: "FR-R92B-58",
			Color: ptr("Black"), StandardCost: valueobjects.MustMoney("1059.31"), ListPrice: valueobjects.MustMoney("1431.50"),
			Size: ptr("58"), Weight: ptr(1016.04), ProductCategoryID: ptr(18), ProductTypeID: ptr(6),
			SellStartDate: frameStart, ModifiedDate: seedModified,
		},
		{
			ProductID: 706, Name: "HL Road Frame - Red, 58", ProductNumber: "FR-R92R-58",
			Color: ptr("Red"), StandardCost: valueobjects.MustMoney("1059.31"), ListPrice: valueobjects.MustMoney("1431.50"),
			Size: ptr("58"), Weight: ptr(1016.04), ProductCategoryID: ptr(18), ProductTypeID: ptr(6),
			SellStartDate: frameStart, ModifiedDate: seedModified,
		},
		{
			ProductID: 707, Name: "Sport-100 Helmet, Red", ProductNumber: "HL-U509-R",
			Color: ptr("Red"), StandardCost: valueobjects.MustMoney("13.0863"), ListPrice: valueobjects.MustMoney("34.99"),
			ProductCategoryID: ptr(31), ProductTypeID: ptr(33),
			SellStartDate: start, ModifiedDate: seedModified,
		},
		{
			ProductID: 708, Name: "Sport-100 Helmet, Black", ProductNumber: "HL-U509",
			Color: ptr("Black"), StandardCost: valueobjects.MustMoney("13.0863"), ListPrice: valueobjects.MustMoney("34.99"),
			ProductCategoryID: ptr(31), ProductTypeID: ptr(33),
			SellStartDate: start, ModifiedDate: seedModified,
		},
		{
			ProductID: 771, Name: "Mountain-100 Silver, 38", ProductNumber: "BK-M82S-38",
			Color: ptr("Silver"), StandardCost: valueobjects.MustMoney("1912.1544"), ListPrice: valueobjects.MustMoney("3399.99"),
			Size: ptr("38"), Weight: ptr(9230.56), ProductCategoryID: ptr(5), ProductTypeID: ptr(19),
			SellStartDate: start, ModifiedDate: seedModified,
		},
	}
}

// Seed записывает образец каталога через любую реализацию UnitOfWorkFactory.
func Seed(ctx context.Context, factory ports.UnitOfWorkFactory) error {
	return factory.Execute(ctx, func(ctx context.Context, uow ports.UnitOfWork) error {
		for _, c := range SampleCategories() {
			if err := uow.ProductCategories().Add(ctx, c); err != nil {
				return fmt.Errorf("failed to seed category %d: %w", c.ProductCategoryID, err)
			}
		}
		for _, t := range SampleTypes() {
			if err := uow.ProductTypes().Add(ctx, t); err != nil {
				return fmt.Errorf("failed to seed type %d: %w", t.ProductTypeID, err)
			}
		}
		for _, p := range SampleProducts() {
			if err := uow.Products().Add(ctx, p); err != nil {
				return fmt.Errorf("failed to seed product %d: %w", p.ProductID, err)
			}
		}
		return nil
	})
}
