// Package handlers - Product HTTP handlers.
package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/Haleralex/catalog/internal/adapters/http/common"
	"github.com/Haleralex/catalog/internal/application/dtos"
	"github.com/Haleralex/catalog/internal/domain/result"
)

// ============================================
// Service Interface
// ============================================

// ProductService - операции каталога, которые использует handler.
//
// Реализуется services.ProductsService.
type ProductService interface {
	AddProduct(ctx context.Context, req dtos.ProductCreateRequest) result.Result[int]
	UpdateProduct(ctx context.Context, req dtos.ProductUpdateRequest) result.Result[result.Void]
	DeleteProduct(ctx context.Context, id int) result.Result[result.Void]
	GetProductByID(ctx context.Context, id int) result.Result[dtos.ProductResponse]
	GetProducts(ctx context.Context, filter *dtos.ProductFilter) result.Result[[]dtos.ProductResponse]
	GetProductsWithDetails(ctx context.Context, filter *dtos.ProductFilter) result.Result[[]dtos.ProductResponse]
}

// ============================================
// Product Handler
// ============================================

// ProductHandler обрабатывает HTTP запросы для продуктов.
type ProductHandler struct {
	products ProductService
}

// NewProductHandler создаёт новый ProductHandler.
func NewProductHandler(products ProductService) *ProductHandler {
	return &ProductHandler{products: products}
}

// ProductIDParam - параметр ID продукта из URL.
//
// Неположительный id не отклоняется здесь: сервис отвечает на него NotFound.
type ProductIDParam struct {
	ID int `uri:"id"`
}

// ============================================
// HTTP Handlers
// ============================================

// CreateProduct создаёт продукт.
//
// @Summary Create a product
// @Tags Products
// @Accept json
// @Produce json
// @Param request body dtos.ProductCreateRequest true "Product data"
// @Success 201 {object} common.APIResponse{data=dtos.CreatedResponse}
// @Failure 400 {object} common.APIResponse
// @Failure 500 {object} common.APIResponse
// @Router /api/v1/products [post]
func (h *ProductHandler) CreateProduct(c *gin.Context) {
	var req dtos.ProductCreateRequest
	if !BindJSON(c, &req) {
		return
	}

	created := result.Map(h.products.AddProduct(c.Request.Context(), req), func(id int) dtos.CreatedResponse {
		return dtos.CreatedResponse{ID: id}
	})
	if created.Success() {
		c.Header("Location", c.FullPath()+"/"+strconv.Itoa(created.Value().ID))
	}
	common.Respond(c, http.StatusCreated, created)
}

// GetProduct возвращает продукт по ID вместе с категорией и типом.
//
// @Summary Get product by ID
// @Tags Products
// @Produce json
// @Param id path int true "Product ID"
// @Success 200 {object} common.APIResponse{data=dtos.ProductResponse}
// @Failure 400 {object} common.APIResponse
// @Failure 404 {object} common.APIResponse
// @Failure 500 {object} common.APIResponse
// @Router /api/v1/products/{id} [get]
func (h *ProductHandler) GetProduct(c *gin.Context) {
	var params ProductIDParam
	if !BindURI(c, &params) {
		return
	}

	common.Respond(c, http.StatusOK, h.products.GetProductByID(c.Request.Context(), params.ID))
}

// ListProducts возвращает продукты по фильтру.
//
// with_details=true загружает категорию и тип каждого продукта.
// page/per_page переводятся в offset/limit, если те не заданы явно.
//
// @Summary List products
// @Tags Products
// @Produce json
// @Param name query string false "Name contains"
// @Param category_id query int false "Category ID"
// @Param type_id query int false "Product type ID"
// @Param color query string false "Color"
// @Param min_list_price query number false "Minimal list price"
// @Param max_list_price query number false "Maximal list price"
// @Param order_by query string false "name | product_number | list_price | modified_date"
// @Param desc query bool false "Descending order"
// @Param with_details query bool false "Load category and type"
// @Param page query int false "Page number" default(1)
// @Param per_page query int false "Items per page" default(20)
// @Success 200 {object} common.APIResponse{data=[]dtos.ProductResponse}
// @Failure 400 {object} common.APIResponse
// @Failure 500 {object} common.APIResponse
// @Router /api/v1/products [get]
func (h *ProductHandler) ListProducts(c *gin.Context) {
	var filter dtos.ProductFilter
	if !BindQuery(c, &filter) {
		return
	}

	withDetails := false
	if raw := c.Query("with_details"); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			common.ValidationErrorResponse(c, []common.FieldError{
				{Field: "with_details", Message: "Value must be a boolean", Code: "boolean"},
			})
			return
		}
		withDetails = parsed
	}

	pagination, paged := ParsePagination(c)
	if paged && filter.Offset == 0 && filter.Limit == 0 {
		filter.Offset = pagination.Offset()
		filter.Limit = pagination.PerPage
	}

	var list result.Result[[]dtos.ProductResponse]
	if withDetails {
		list = h.products.GetProductsWithDetails(c.Request.Context(), &filter)
	} else {
		list = h.products.GetProducts(c.Request.Context(), &filter)
	}

	if list.Failure() {
		common.Fail(c, list)
		return
	}

	products := list.Value()
	if products == nil {
		products = []dtos.ProductResponse{}
	}
	common.SuccessWithMeta(c, http.StatusOK, products, BuildMeta(pagination, paged, len(products)))
}

// UpdateProduct частично обновляет продукт.
//
// Меняются только поля, присутствующие в теле запроса; null очищает поле.
//
// @Summary Update a product
// @Tags Products
// @Accept json
// @Produce json
// @Param id path int true "Product ID"
// @Param request body dtos.ProductUpdateRequest true "Fields to change"
// @Success 204
// @Failure 400 {object} common.APIResponse
// @Failure 404 {object} common.APIResponse
// @Failure 500 {object} common.APIResponse
// @Router /api/v1/products/{id} [patch]
func (h *ProductHandler) UpdateProduct(c *gin.Context) {
	var params ProductIDParam
	if !BindURI(c, &params) {
		return
	}

	var req dtos.ProductUpdateRequest
	if !BindJSON(c, &req) {
		return
	}

	if req.ProductID != 0 && req.ProductID != params.ID {
		common.ValidationErrorResponse(c, []common.FieldError{
			{Field: "product_id", Message: "Product ID in body does not match the path", Code: "eqfield"},
		})
		return
	}
	req.ProductID = params.ID

	common.Respond(c, http.StatusOK, h.products.UpdateProduct(c.Request.Context(), req))
}

// DeleteProduct удаляет продукт.
//
// @Summary Delete a product
// @Tags Products
// @Param id path int true "Product ID"
// @Success 204
// @Failure 404 {object} common.APIResponse
// @Failure 500 {object} common.APIResponse
// @Router /api/v1/products/{id} [delete]
func (h *ProductHandler) DeleteProduct(c *gin.Context) {
	var params ProductIDParam
	if !BindURI(c, &params) {
		return
	}

	common.Respond(c, http.StatusOK, h.products.DeleteProduct(c.Request.Context(), params.ID))
}

// ============================================
// Route Registration
// ============================================

// RegisterRoutes регистрирует маршруты для ProductHandler.
//
// write - middleware, которые выполняются только для изменяющих запросов (auth).
//
// Routes:
// - POST   /products     - Create product
// - GET    /products     - List products (?with_details=true)
// - GET    /products/:id - Get product with details
// - PATCH  /products/:id - Partial update
// - DELETE /products/:id - Delete product
func (h *ProductHandler) RegisterRoutes(router *gin.RouterGroup, write ...gin.HandlerFunc) {
	guarded := func(handler gin.HandlerFunc) []gin.HandlerFunc {
		chain := make([]gin.HandlerFunc, 0, len(write)+1)
		return append(append(chain, write...), handler)
	}

	products := router.Group("/products")
	{
		products.GET("", h.ListProducts)
		products.GET("/:id", h.GetProduct)

		products.POST("", guarded(h.CreateProduct)...)
		products.PATCH("/:id", guarded(h.UpdateProduct)...)
		products.DELETE("/:id", guarded(h.DeleteProduct)...)
	}
}
