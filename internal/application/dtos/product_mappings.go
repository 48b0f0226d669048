// Package dtos - декларации карт Product <-> модели.
//
// Pattern: Mapper/Converter
// Отделяет persistence representation от API representation.
// Карты чистые: читают только уже загруженные связи и никогда не обращаются к хранилищу.
package dtos

import (
	"time"

	"github.com/Haleralex/catalog/internal/application/mapping"
	"github.com/Haleralex/catalog/internal/domain/entities"
	"github.com/Haleralex/catalog/internal/domain/valueobjects"
	"github.com/Haleralex/catalog/internal/pkg/optional"
)

// ============================================
// Entity -> Response
// ============================================

// ProductToResponse денормализует категорию и тип через связи продукта.
// Незагруженные связи дают нулевые значения.
var ProductToResponse = mapping.New(
	mapping.Field("ID", func(p *entities.Product) int { return p.ProductID }, func(r *ProductResponse, v int) { r.ID = v }),
	mapping.Field("Name", func(p *entities.Product) string { return p.Name }, func(r *ProductResponse, v string) { r.Name = v }),
	mapping.Field("ProductNumber", func(p *entities.Product) string { return p.ProductNumber }, func(r *ProductResponse, v string) { r.ProductNumber = v }),
	mapping.Field("Color", func(p *entities.Product) *string { return p.Color }, func(r *ProductResponse, v *string) { r.Color = v }),
	mapping.Field("StandardCost", func(p *entities.Product) valueobjects.Money { return p.StandardCost }, func(r *ProductResponse, v valueobjects.Money) { r.StandardCost = v }),
	mapping.Field("ListPrice", func(p *entities.Product) valueobjects.Money { return p.ListPrice }, func(r *ProductResponse, v valueobjects.Money) { r.ListPrice = v }),
	mapping.Field("Size", func(p *entities.Product) *string { return p.Size }, func(r *ProductResponse, v *string) { r.Size = v }),
	mapping.Field("Weight", func(p *entities.Product) *float64 { return p.Weight }, func(r *ProductResponse, v *float64) { r.Weight = v }),
	mapping.Field("ProductCategoryID", func(p *entities.Product) *int { return p.ProductCategoryID }, func(r *ProductResponse, v *int) { r.ProductCategoryID = v }),
	mapping.Field("ParentProductCategoryID", func(p *entities.Product) *int {
		if p.Category == nil {
			return nil
		}
		return p.Category.ParentProductCategoryID
	}, func(r *ProductResponse, v *int) { r.ParentProductCategoryID = v }),
	mapping.Field("CategoryName", func(p *entities.Product) string {
		if p.Category == nil {
			return ""
		}
		return p.Category.Name
	}, func(r *ProductResponse, v string) { r.CategoryName = v }),
	mapping.Field("ProductTypeID", func(p *entities.Product) *int { return p.ProductTypeID }, func(r *ProductResponse, v *int) { r.ProductTypeID = v }),
	mapping.Field("ProductTypeName", func(p *entities.Product) string {
		if p.Type == nil {
			return ""
		}
		return p.Type.Name
	}, func(r *ProductResponse, v string) { r.ProductTypeName = v }),
	mapping.Field("CatalogDescription", func(p *entities.Product) *string {
		if p.Type == nil {
			return nil
		}
		return p.Type.CatalogDescription
	}, func(r *ProductResponse, v *string) { r.CatalogDescription = v }),
	mapping.Field("SellStartDate", func(p *entities.Product) time.Time { return p.SellStartDate }, func(r *ProductResponse, v time.Time) { r.SellStartDate = v }),
	mapping.Field("SellEndDate", func(p *entities.Product) *time.Time { return p.SellEndDate }, func(r *ProductResponse, v *time.Time) { r.SellEndDate = v }),
	mapping.Field("DiscontinuedDate", func(p *entities.Product) *time.Time { return p.DiscontinuedDate }, func(r *ProductResponse, v *time.Time) { r.DiscontinuedDate = v }),
	mapping.Field("LastModifiedDate", func(p *entities.Product) time.Time { return p.ModifiedDate }, func(r *ProductResponse, v time.Time) { r.LastModifiedDate = v }),
)

// ============================================
// Create / Update -> Entity
// ============================================

// CreateRequestToProduct переносит поля модели создания в новую сущность.
var CreateRequestToProduct = mapping.New(
	mapping.Field(entities.ProductFieldName, func(r *ProductCreateRequest) string { return r.Name }, func(p *entities.Product, v string) { p.Name = v }),
	mapping.Field(entities.ProductFieldProductNumber, func(r *ProductCreateRequest) string { return r.ProductNumber }, func(p *entities.Product, v string) { p.ProductNumber = v }),
	mapping.Field(entities.ProductFieldColor, func(r *ProductCreateRequest) *string { return r.Color }, func(p *entities.Product, v *string) { p.Color = v }),
	mapping.Field(entities.ProductFieldStandardCost, func(r *ProductCreateRequest) valueobjects.Money { return r.StandardCost }, func(p *entities.Product, v valueobjects.Money) { p.StandardCost = v }),
	mapping.Field(entities.ProductFieldListPrice, func(r *ProductCreateRequest) valueobjects.Money { return r.ListPrice }, func(p *entities.Product, v valueobjects.Money) { p.ListPrice = v }),
	mapping.Field(entities.ProductFieldSize, func(r *ProductCreateRequest) *string { return r.Size }, func(p *entities.Product, v *string) { p.Size = v }),
	mapping.Field(entities.ProductFieldWeight, func(r *ProductCreateRequest) *float64 { return r.Weight }, func(p *entities.Product, v *float64) { p.Weight = v }),
	mapping.Field(entities.ProductFieldProductCategoryID, func(r *ProductCreateRequest) *int { return r.ProductCategoryID }, func(p *entities.Product, v *int) { p.ProductCategoryID = v }),
	mapping.Field(entities.ProductFieldProductTypeID, func(r *ProductCreateRequest) *int { return r.ProductTypeID }, func(p *entities.Product, v *int) { p.ProductTypeID = v }),
	mapping.Field(entities.ProductFieldSellStartDate, func(r *ProductCreateRequest) time.Time { return r.SellStartDate }, func(p *entities.Product, v time.Time) { p.SellStartDate = v }),
	mapping.Field(entities.ProductFieldSellEndDate, func(r *ProductCreateRequest) *time.Time { return r.SellEndDate }, func(p *entities.Product, v *time.Time) { p.SellEndDate = v }),
	mapping.Field(entities.ProductFieldDiscontinuedDate, func(r *ProductCreateRequest) *time.Time { return r.DiscontinuedDate }, func(p *entities.Product, v *time.Time) { p.DiscontinuedDate = v }),
)

// CategoryUpdateToCategory - частичная карта вложенной модели категории.
var CategoryUpdateToCategory = mapping.New(
	mapping.Optional(entities.CategoryFieldParentProductCategoryID,
		func(r *ProductCategoryUpdate) optional.Value[*int] { return r.ParentProductCategoryID },
		func(c *entities.ProductCategory, v *int) { c.ParentProductCategoryID = v }),
	mapping.Optional(entities.CategoryFieldName,
		func(r *ProductCategoryUpdate) optional.Value[string] { return r.Name },
		func(c *entities.ProductCategory, v string) { c.Name = v }),
)

// RelationProductCategory - имя Nested правила в UpdateRequestToProduct.
const RelationProductCategory = "ProductCategory"

// UpdateRequestToProduct - частичная карта: незаданные поля сущности остаются как есть.
// Вложенная модель категории меняет уже связанную категорию на месте;
// если категория не связана, создаётся новая (без ID) - сервис сохранит и привяжет её.
var UpdateRequestToProduct = mapping.New(
	mapping.Optional(entities.ProductFieldName,
		func(r *ProductUpdateRequest) optional.Value[string] { return r.Name },
		func(p *entities.Product, v string) { p.Name = v }),
	mapping.Optional(entities.ProductFieldProductNumber,
		func(r *ProductUpdateRequest) optional.Value[string] { return r.ProductNumber },
		func(p *entities.Product, v string) { p.ProductNumber = v }),
	mapping.Optional(entities.ProductFieldColor,
		func(r *ProductUpdateRequest) optional.Value[*string] { return r.Color },
		func(p *entities.Product, v *string) { p.Color = v }),
	mapping.Optional(entities.ProductFieldStandardCost,
		func(r *ProductUpdateRequest) optional.Value[valueobjects.Money] { return r.StandardCost },
		func(p *entities.Product, v valueobjects.Money) { p.StandardCost = v }),
	mapping.Optional(entities.ProductFieldListPrice,
		func(r *ProductUpdateRequest) optional.Value[valueobjects.Money] { return r.ListPrice },
		func(p *entities.Product, v valueobjects.Money) { p.ListPrice = v }),
	mapping.Optional(entities.ProductFieldSize,
		func(r *ProductUpdateRequest) optional.Value[*string] { return r.Size },
		func(p *entities.Product, v *string) { p.Size = v }),
	mapping.Optional(entities.ProductFieldWeight,
		func(r *ProductUpdateRequest) optional.Value[*float64] { return r.Weight },
		func(p *entities.Product, v *float64) { p.Weight = v }),
	mapping.Optional(entities.ProductFieldProductCategoryID,
		func(r *ProductUpdateRequest) optional.Value[*int] { return r.ProductCategoryID },
		func(p *entities.Product, v *int) {
			p.ProductCategoryID = v
			p.Category = nil // загруженная связь больше не соответствует ID
		}),
	mapping.Optional(entities.ProductFieldProductTypeID,
		func(r *ProductUpdateRequest) optional.Value[*int] { return r.ProductTypeID },
		func(p *entities.Product, v *int) {
			p.ProductTypeID = v
			p.Type = nil
		}),
	mapping.Optional(entities.ProductFieldSellStartDate,
		func(r *ProductUpdateRequest) optional.Value[time.Time] { return r.SellStartDate },
		func(p *entities.Product, v time.Time) { p.SellStartDate = v }),
	mapping.Optional(entities.ProductFieldSellEndDate,
		func(r *ProductUpdateRequest) optional.Value[*time.Time] { return r.SellEndDate },
		func(p *entities.Product, v *time.Time) { p.SellEndDate = v }),
	mapping.Optional(entities.ProductFieldDiscontinuedDate,
		func(r *ProductUpdateRequest) optional.Value[*time.Time] { return r.DiscontinuedDate },
		func(p *entities.Product, v *time.Time) { p.DiscontinuedDate = v }),
	mapping.Nested(RelationProductCategory,
		func(r *ProductUpdateRequest) optional.Value[*ProductCategoryUpdate] { return r.ProductCategory },
		func(p *entities.Product) *entities.ProductCategory {
			if p.Category == nil {
				p.Category = &entities.ProductCategory{}
			}
			return p.Category
		},
		CategoryUpdateToCategory),
)

// ============================================
// Entity <-> Model (ReverseMap)
// ============================================

// ProductToModel / ModelToProduct объявлены одной декларацией.
var ProductToModel, ModelToProduct = mapping.Bidirectional(
	mapping.Bind(entities.ProductFieldID, "ID",
		func(p *entities.Product) int { return p.ProductID }, func(p *entities.Product, v int) { p.ProductID = v },
		func(m *ProductModel) int { return m.ID }, func(m *ProductModel, v int) { m.ID = v }),
	mapping.Bind(entities.ProductFieldName, "Name",
		func(p *entities.Product) string { return p.Name }, func(p *entities.Product, v string) { p.Name = v },
		func(m *ProductModel) string { return m.Name }, func(m *ProductModel, v string) { m.Name = v }),
	mapping.Bind(entities.ProductFieldProductNumber, "ProductNumber",
		func(p *entities.Product) string { return p.ProductNumber }, func(p *entities.Product, v string) { p.ProductNumber = v },
		func(m *ProductModel) string { return m.ProductNumber }, func(m *ProductModel, v string) { m.ProductNumber = v }),
	mapping.Bind(entities.ProductFieldColor, "Color",
		func(p *entities.Product) *string { return p.Color }, func(p *entities.Product, v *string) { p.Color = v },
		func(m *ProductModel) *string { return m.Color }, func(m *ProductModel, v *string) { m.Color = v }),
	mapping.Bind(entities.ProductFieldStandardCost, "StandardCost",
		func(p *entities.Product) valueobjects.Money { return p.StandardCost }, func(p *entities.Product, v valueobjects.Money) { p.StandardCost = v },
		func(m *ProductModel) valueobjects.Money { return m.StandardCost }, func(m *ProductModel, v valueobjects.Money) { m.StandardCost = v }),
	mapping.Bind(entities.ProductFieldListPrice, "ListPrice",
		func(p *entities.Product) valueobjects.Money { return p.ListPrice }, func(p *entities.Product, v valueobjects.Money) { p.ListPrice = v },
		func(m *ProductModel) valueobjects.Money { return m.ListPrice }, func(m *ProductModel, v valueobjects.Money) { m.ListPrice = v }),
	mapping.Bind(entities.ProductFieldSize, "Size",
		func(p *entities.Product) *string { return p.Size }, func(p *entities.Product, v *string) { p.Size = v },
		func(m *ProductModel) *string { return m.Size }, func(m *ProductModel, v *string) { m.Size = v }),
	mapping.Bind(entities.ProductFieldWeight, "Weight",
		func(p *entities.Product) *float64 { return p.Weight }, func(p *entities.Product, v *float64) { p.Weight = v },
		func(m *ProductModel) *float64 { return m.Weight }, func(m *ProductModel, v *float64) { m.Weight = v }),
	mapping.Bind(entities.ProductFieldProductCategoryID, "ProductCategoryID",
		func(p *entities.Product) *int { return p.ProductCategoryID }, func(p *entities.Product, v *int) { p.ProductCategoryID = v },
		func(m *ProductModel) *int { return m.ProductCategoryID }, func(m *ProductModel, v *int) { m.ProductCategoryID = v }),
	mapping.Bind(entities.ProductFieldProductTypeID, "ProductTypeID",
		func(p *entities.Product) *int { return p.ProductTypeID }, func(p *entities.Product, v *int) { p.ProductTypeID = v },
		func(m *ProductModel) *int { return m.ProductTypeID }, func(m *ProductModel, v *int) { m.ProductTypeID = v }),
	mapping.Bind(entities.ProductFieldSellStartDate, "SellStartDate",
		func(p *entities.Product) time.Time { return p.SellStartDate }, func(p *entities.Product, v time.Time) { p.SellStartDate = v },
		func(m *ProductModel) time.Time { return m.SellStartDate }, func(m *ProductModel, v time.Time) { m.SellStartDate = v }),
	mapping.Bind(entities.ProductFieldSellEndDate, "SellEndDate",
		func(p *entities.Product) *time.Time { return p.SellEndDate }, func(p *entities.Product, v *time.Time) { p.SellEndDate = v },
		func(m *ProductModel) *time.Time { return m.SellEndDate }, func(m *ProductModel, v *time.Time) { m.SellEndDate = v }),
	mapping.Bind(entities.ProductFieldDiscontinuedDate, "DiscontinuedDate",
		func(p *entities.Product) *time.Time { return p.DiscontinuedDate }, func(p *entities.Product, v *time.Time) { p.DiscontinuedDate = v },
		func(m *ProductModel) *time.Time { return m.DiscontinuedDate }, func(m *ProductModel, v *time.Time) { m.DiscontinuedDate = v }),
	mapping.Bind(entities.ProductFieldModifiedDate, "ModifiedDate",
		func(p *entities.Product) time.Time { return p.ModifiedDate }, func(p *entities.Product, v time.Time) { p.ModifiedDate = v },
		func(m *ProductModel) time.Time { return m.ModifiedDate }, func(m *ProductModel, v time.Time) { m.ModifiedDate = v }),
)

// ============================================
// Response -> UpdateRequest
// ============================================

// ResponseToUpdateRequest строит полный UpdateRequest из ответа (все поля заданы).
// Применение такого запроса к той же сущности ничего не меняет.
var ResponseToUpdateRequest = mapping.New(
	mapping.Field("ProductID", func(r *ProductResponse) int { return r.ID }, func(u *ProductUpdateRequest, v int) { u.ProductID = v }),
	mapping.Field("Name", func(r *ProductResponse) string { return r.Name }, func(u *ProductUpdateRequest, v string) { u.Name.Set(v) }),
	mapping.Field("ProductNumber", func(r *ProductResponse) string { return r.ProductNumber }, func(u *ProductUpdateRequest, v string) { u.ProductNumber.Set(v) }),
	mapping.Field("Color", func(r *ProductResponse) *string { return r.Color }, func(u *ProductUpdateRequest, v *string) { u.Color.Set(v) }),
	mapping.Field("StandardCost", func(r *ProductResponse) valueobjects.Money { return r.StandardCost }, func(u *ProductUpdateRequest, v valueobjects.Money) { u.StandardCost.Set(v) }),
	mapping.Field("ListPrice", func(r *ProductResponse) valueobjects.Money { return r.ListPrice }, func(u *ProductUpdateRequest, v valueobjects.Money) { u.ListPrice.Set(v) }),
	mapping.Field("Size", func(r *ProductResponse) *string { return r.Size }, func(u *ProductUpdateRequest, v *string) { u.Size.Set(v) }),
	mapping.Field("Weight", func(r *ProductResponse) *float64 { return r.Weight }, func(u *ProductUpdateRequest, v *float64) { u.Weight.Set(v) }),
	mapping.Field("ProductCategoryID", func(r *ProductResponse) *int { return r.ProductCategoryID }, func(u *ProductUpdateRequest, v *int) { u.ProductCategoryID.Set(v) }),
	mapping.Field("ProductTypeID", func(r *ProductResponse) *int { return r.ProductTypeID }, func(u *ProductUpdateRequest, v *int) { u.ProductTypeID.Set(v) }),
	mapping.Field("SellStartDate", func(r *ProductResponse) time.Time { return r.SellStartDate }, func(u *ProductUpdateRequest, v time.Time) { u.SellStartDate.Set(v) }),
	mapping.Field("SellEndDate", func(r *ProductResponse) *time.Time { return r.SellEndDate }, func(u *ProductUpdateRequest, v *time.Time) { u.SellEndDate.Set(v) }),
	mapping.Field("DiscontinuedDate", func(r *ProductResponse) *time.Time { return r.DiscontinuedDate }, func(u *ProductUpdateRequest, v *time.Time) { u.DiscontinuedDate.Set(v) }),
)
