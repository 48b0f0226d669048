// Package dtos - Product DTOs: модели запросов/ответов сервиса каталога.
package dtos

import (
	"time"

	"github.com/Haleralex/catalog/internal/domain/valueobjects"
	"github.com/Haleralex/catalog/internal/pkg/optional"
)

// ============================================
// Commands (Write операции)
// ============================================

// ProductCreateRequest - модель создания продукта.
// SellStartDate по умолчанию - текущее время сервиса.
type ProductCreateRequest struct {
	Name              string             `json:"name" validate:"required,max=50"`
	ProductNumber     string             `json:"product_number" validate:"required,product_number"` // e.g. "FR-R92B-58"
	Color             *string            `json:"color,omitempty" validate:"omitempty,max=15"`
	StandardCost      valueobjects.Money `json:"standard_cost" validate:"gte=0"`
	ListPrice         valueobjects.Money `json:"list_price" validate:"gte=0"`
	Size              *string            `json:"size,omitempty" validate:"omitempty,max=5"`
	Weight            *float64           `json:"weight,omitempty" validate:"omitempty,gt=0"`
	ProductCategoryID *int               `json:"product_category_id,omitempty" validate:"omitempty,gt=0"`
	ProductTypeID     *int               `json:"product_type_id,omitempty" validate:"omitempty,gt=0"`
	SellStartDate     time.Time          `json:"sell_start_date"`
	SellEndDate       *time.Time         `json:"sell_end_date,omitempty" validate:"omitempty,gtefield=SellStartDate"`
	DiscontinuedDate  *time.Time         `json:"discontinued_date,omitempty"`
}

// ProductUpdateRequest - частичное обновление продукта.
// Применяются только явно заданные поля; null у указателей очищает поле.
//
// ProductCategoryID и ProductCategory взаимоисключающие:
// первый перепривязывает продукт, второй меняет связанную категорию на месте.
type ProductUpdateRequest struct {
	ProductID         int                                    `json:"product_id" validate:"required,gt=0"`
	Name              optional.Value[string]                 `json:"name" validate:"omitempty,max=50"`
	ProductNumber     optional.Value[string]                 `json:"product_number" validate:"omitempty,product_number"`
	Color             optional.Value[*string]                `json:"color" validate:"omitempty,max=15"`
	StandardCost      optional.Value[valueobjects.Money]     `json:"standard_cost" validate:"omitempty,gte=0"`
	ListPrice         optional.Value[valueobjects.Money]     `json:"list_price" validate:"omitempty,gte=0"`
	Size              optional.Value[*string]                `json:"size" validate:"omitempty,max=5"`
	Weight            optional.Value[*float64]               `json:"weight" validate:"omitempty,gt=0"`
	ProductCategoryID optional.Value[*int]                   `json:"product_category_id" validate:"omitempty,gt=0"`
	ProductTypeID     optional.Value[*int]                   `json:"product_type_id" validate:"omitempty,gt=0"`
	SellStartDate     optional.Value[time.Time]              `json:"sell_start_date"`
	SellEndDate       optional.Value[*time.Time]             `json:"sell_end_date"`
	DiscontinuedDate  optional.Value[*time.Time]             `json:"discontinued_date"`
	ProductCategory   optional.Value[*ProductCategoryUpdate] `json:"product_category" validate:"omitempty"`
}

// ProductCategoryUpdate - частичная модель категории, вложенная в ProductUpdateRequest.
type ProductCategoryUpdate struct {
	ParentProductCategoryID optional.Value[*int]   `json:"parent_product_category_id" validate:"omitempty,gt=0"`
	Name                    optional.Value[string] `json:"name" validate:"omitempty,max=50"`
}

// ============================================
// Queries (Read операции)
// ============================================

// ProductFilter - фильтр списка продуктов. nil фильтр означает "все".
// Limit 0 означает "без ограничения".
type ProductFilter struct {
	Name              string   `json:"name,omitempty" form:"name" validate:"omitempty,max=50"` // contains, без учёта регистра
	ProductCategoryID *int     `json:"product_category_id,omitempty" form:"category_id" validate:"omitempty,gt=0"`
	ProductTypeID     *int     `json:"product_type_id,omitempty" form:"type_id" validate:"omitempty,gt=0"`
	Color             string   `json:"color,omitempty" form:"color" validate:"omitempty,max=15"`
	MinListPrice      *float64 `json:"min_list_price,omitempty" form:"min_list_price" validate:"omitempty,gte=0"`
	MaxListPrice      *float64 `json:"max_list_price,omitempty" form:"max_list_price" validate:"omitempty,gte=0"`
	OrderBy           string   `json:"order_by,omitempty" form:"order_by" validate:"omitempty,oneof=name product_number list_price modified_date"`
	Desc              bool     `json:"desc,omitempty" form:"desc"`
	Offset            int      `json:"offset,omitempty" form:"offset" validate:"gte=0"`
	Limit             int      `json:"limit,omitempty" form:"limit" validate:"gte=0,lte=1000"`
}

// ============================================
// Responses
// ============================================

// ProductResponse - продукт с денормализованными данными категории и типа.
// Поля связей заполнены, только если связи были загружены.
type ProductResponse struct {
	ID                      int                `json:"id"`
	Name                    string             `json:"name"`
	ProductNumber           string             `json:"product_number"`
	Color                   *string            `json:"color,omitempty"`
	StandardCost            valueobjects.Money `json:"standard_cost"`
	ListPrice               valueobjects.Money `json:"list_price"`
	Size                    *string            `json:"size,omitempty"`
	Weight                  *float64           `json:"weight,omitempty"`
	ProductCategoryID       *int               `json:"product_category_id,omitempty"`
	ParentProductCategoryID *int               `json:"parent_product_category_id,omitempty"`
	CategoryName            string             `json:"category_name,omitempty"`
	ProductTypeID           *int               `json:"product_type_id,omitempty"`
	ProductTypeName         string             `json:"product_type_name,omitempty"`
	CatalogDescription      *string            `json:"catalog_description,omitempty"`
	SellStartDate           time.Time          `json:"sell_start_date"`
	SellEndDate             *time.Time         `json:"sell_end_date,omitempty"`
	DiscontinuedDate        *time.Time         `json:"discontinued_date,omitempty"`
	LastModifiedDate        time.Time          `json:"last_modified_date"`
}

// ProductModel - плоский снимок продукта без связей.
// Используется как payload событий outbox и их потребителями.
type ProductModel struct {
	ID                int                `json:"id"`
	Name              string             `json:"name"`
	ProductNumber     string             `json:"product_number"`
	Color             *string            `json:"color,omitempty"`
	StandardCost      valueobjects.Money `json:"standard_cost"`
	ListPrice         valueobjects.Money `json:"list_price"`
	Size              *string            `json:"size,omitempty"`
	Weight            *float64           `json:"weight,omitempty"`
	ProductCategoryID *int               `json:"product_category_id,omitempty"`
	ProductTypeID     *int               `json:"product_type_id,omitempty"`
	SellStartDate     time.Time          `json:"sell_start_date"`
	SellEndDate       *time.Time         `json:"sell_end_date,omitempty"`
	DiscontinuedDate  *time.Time         `json:"discontinued_date,omitempty"`
	ModifiedDate      time.Time          `json:"modified_date"`
}

// CreatedResponse - ответ на создание сущности.
type CreatedResponse struct {
	ID int `json:"id"`
}

// ProductNumberFormatArgs возвращает аргументы фразы ошибки формата номера:
// (StandardCost, ProductNumber).
func (r *ProductCreateRequest) ProductNumberFormatArgs() []any {
	return []any{r.StandardCost.String(), r.ProductNumber}
}

// ProductNumberFormatArgs - то же для частичного обновления; незаданная себестоимость пуста.
func (r *ProductUpdateRequest) ProductNumberFormatArgs() []any {
	cost := ""
	if v, ok := r.StandardCost.Get(); ok {
		cost = v.String()
	}
	return []any{cost, r.ProductNumber.OrElse("")}
}
