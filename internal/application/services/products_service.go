// Package services - прикладные сервисы каталога.
//
// Каждая операция проходит один и тот же конвейер:
//
//	validate -> UnitOfWork -> lookups -> (reject) -> map -> provider -> map back -> Ok/Fail
//
// Ошибки тегов не прерывают конвейер: lookup-правила выполняются для полей
// без ошибок формата, и все сообщения возвращаются одним Result. Запись в
// хранилище начинается только когда сообщений нет.
//
// Ожидаемые бизнес-отказы (валидация, NotFound, сбой хранилища) возвращаются
// как result.Result с сообщениями и никогда не паникуют.
package services

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Haleralex/catalog/internal/application/dtos"
	"github.com/Haleralex/catalog/internal/application/ports"
	"github.com/Haleralex/catalog/internal/application/validation"
	"github.com/Haleralex/catalog/internal/domain/entities"
	domainErrors "github.com/Haleralex/catalog/internal/domain/errors"
	"github.com/Haleralex/catalog/internal/domain/events"
	"github.com/Haleralex/catalog/internal/domain/result"
	"github.com/Haleralex/catalog/internal/pkg/localization"
	"github.com/Haleralex/catalog/internal/pkg/logger"
	"github.com/Haleralex/catalog/internal/pkg/metrics"
	"github.com/Haleralex/catalog/internal/pkg/operation"
)

// Operation names (метки метрик и логов).
const (
	OpAddProduct             = "add_product"
	OpUpdateProduct          = "update_product"
	OpDeleteProduct          = "delete_product"
	OpGetProductByID         = "get_product_by_id"
	OpGetProducts            = "get_products"
	OpGetProductsWithDetails = "get_products_with_details"
)

const tracerName = "github.com/Haleralex/catalog/services"

// FieldCategoryParent - поле родителя во вложенной модели категории.
const FieldCategoryParent = "product_category.parent_product_category_id"

// orderFields переводит json имена фильтра в поля сущности.
var orderFields = map[string]string{
	"name":           entities.ProductFieldName,
	"product_number": entities.ProductFieldProductNumber,
	"list_price":     entities.ProductFieldListPrice,
	"modified_date":  entities.ProductFieldModifiedDate,
}

// ProductsService - CRUD сервис продуктов.
//
// Сервис не хранит состояния между вызовами: каждая операция открывает
// (или присоединяется к ambient) UnitOfWork через factory.
type ProductsService struct {
	factory   ports.UnitOfWorkFactory
	validator *validation.Validator
	localizer ports.Localizer
	logger    *slog.Logger
	tracer    trace.Tracer
	now       func() time.Time
}

// Option настраивает ProductsService.
type Option func(*ProductsService)

// WithClock подменяет часы сервиса (ModifiedDate, SellStartDate по умолчанию).
func WithClock(now func() time.Time) Option {
	return func(s *ProductsService) { s.now = now }
}

// WithLogger задаёт базовый логгер. По умолчанию - логгер из context.
func WithLogger(l *slog.Logger) Option {
	return func(s *ProductsService) { s.logger = l }
}

// WithTracerProvider задаёт provider спанов. По умолчанию - глобальный otel provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(s *ProductsService) { s.tracer = tp.Tracer(tracerName) }
}

// NewProductsService создаёт сервис.
func NewProductsService(factory ports.UnitOfWorkFactory, validator *validation.Validator, localizer ports.Localizer, opts ...Option) *ProductsService {
	s := &ProductsService{
		factory:   factory,
		validator: validator,
		localizer: localizer,
		tracer:    otel.Tracer(tracerName),
		now:       func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ============================================
// Commands
// ============================================

// AddProduct создаёт продукт и возвращает присвоенный ID.
func (s *ProductsService) AddProduct(ctx context.Context, req dtos.ProductCreateRequest) result.Result[int] {
	ctx, span := s.startSpan(ctx, OpAddProduct, attribute.String("product.number", req.ProductNumber))
	defer span.End()

	log := s.log(ctx, OpAddProduct)
	log.Debug("adding product", "product_number", req.ProductNumber)

	if req.SellStartDate.IsZero() {
		req.SellStartDate = s.now()
	}
	invalid := s.validator.ProductCreate(ctx, &req)
	if unexpected(invalid) {
		return fail[int](ctx, s, OpAddProduct, &rejection{messages: invalid})
	}

	var id int
	err := s.factory.Execute(ctx, func(ctx context.Context, uow ports.UnitOfWork) error {
		product := dtos.CreateRequestToProduct.To(&req)
		product.ModifiedDate = s.now()

		lookups, err := s.checkReferences(ctx, uow, product, true, invalid)
		if err != nil {
			return err
		}
		if messages := merge(invalid, lookups); len(messages) > 0 {
			return &rejection{messages: messages}
		}

		if err := uow.Products().Add(ctx, product); err != nil {
			if domainErrors.IsUniqueViolation(err) {
				return s.duplicateNumber(ctx, product.ProductNumber)
			}
			return err
		}
		id = product.ProductID

		return uow.Outbox().Publish(ctx, events.NewProductCreated(id, dtos.ProductToModel.To(product)))
	})
	if err != nil {
		return fail[int](ctx, s, OpAddProduct, err)
	}

	log.Info("product added", "product_id", id, "user", operation.UserOrSystem(ctx).String())
	metrics.RecordProductOperation(OpAddProduct, "success")
	return result.Ok(id)
}

// UpdateProduct применяет частичное обновление: меняются только явно заданные поля.
//
// product_category_id перепривязывает продукт к другой категории.
// product_category меняет связанную категорию на месте (или создаёт и привязывает новую).
func (s *ProductsService) UpdateProduct(ctx context.Context, req dtos.ProductUpdateRequest) result.Result[result.Void] {
	ctx, span := s.startSpan(ctx, OpUpdateProduct, attribute.Int("product.id", req.ProductID))
	defer span.End()

	log := s.log(ctx, OpUpdateProduct).With("product_id", req.ProductID)
	log.Debug("updating product")

	// Без валидного ID загружать нечего
	invalid := s.validator.ProductUpdate(ctx, &req)
	if unexpected(invalid) || validation.Failed(invalid, validation.FieldProductID) {
		return fail[result.Void](ctx, s, OpUpdateProduct, &rejection{messages: invalid})
	}

	var changed []string
	err := s.factory.Execute(ctx, func(ctx context.Context, uow ports.UnitOfWork) error {
		product, err := uow.Products().GetByID(ctx, req.ProductID)
		if err != nil {
			if domainErrors.IsNotFound(err) {
				return &rejection{messages: merge(invalid, s.productNotFound(ctx, req.ProductID).messages)}
			}
			return err
		}

		// Вложенная модель категории применяется к уже связанной категории
		if nested, ok := req.ProductCategory.Get(); ok && nested != nil && product.ProductCategoryID != nil {
			category, err := uow.ProductCategories().GetByID(ctx, *product.ProductCategoryID)
			if err != nil && !domainErrors.IsNotFound(err) {
				return err
			}
			product.Category = category
		}

		changed = dtos.UpdateRequestToProduct.Apply(&req, product)
		if len(changed) == 0 && len(invalid) == 0 {
			return nil
		}

		// Все проверки до первой записи: отказ не должен оставлять следов в хранилище
		messages := merge(invalid, nil)
		if !validation.Failed(invalid, validation.FieldSellStartDate) && !validation.Failed(invalid, validation.FieldSellEndDate) {
			messages = append(messages, s.validator.ProductDates(ctx, product)...)
		}
		lookups, err := s.checkReferences(ctx, uow, product, req.ProductNumber.IsSet(), invalid)
		if err != nil {
			return err
		}
		messages = append(messages, lookups...)

		categoryChanged := slices.Contains(changed, dtos.RelationProductCategory)
		if categoryChanged && !validation.Failed(invalid, validation.FieldProductCategory) {
			categoryMessages, err := s.checkCategory(ctx, uow, &req, product, invalid)
			if err != nil {
				return err
			}
			messages = append(messages, categoryMessages...)
		}
		if len(messages) > 0 {
			return &rejection{messages: messages}
		}

		store := events.NewEventStore()
		if categoryChanged {
			if err := s.saveCategory(ctx, uow, product, store); err != nil {
				return err
			}
		}

		product.ModifiedDate = s.now()
		if err := uow.Products().Update(ctx, product); err != nil {
			if domainErrors.IsUniqueViolation(err) {
				return s.duplicateNumber(ctx, product.ProductNumber)
			}
			return err
		}

		store.Add(events.NewProductUpdated(product.ProductID, changed, dtos.ProductToModel.To(product)))
		return uow.Outbox().PublishBatch(ctx, store.GetAll())
	})
	if err != nil {
		return fail[result.Void](ctx, s, OpUpdateProduct, err)
	}

	log.Info("product updated", "changed", changed, "user", operation.UserOrSystem(ctx).String())
	metrics.RecordProductOperation(OpUpdateProduct, "success")
	return result.OkVoid()
}

// checkCategory проверяет категорию, изменённую вложенной моделью. Только чтение.
func (s *ProductsService) checkCategory(ctx context.Context, uow ports.UnitOfWork, req *dtos.ProductUpdateRequest, product *entities.Product, failed []result.Message) ([]result.Message, error) {
	var messages []result.Message

	category := product.Category
	if category.ProductCategoryID == 0 && strings.TrimSpace(category.Name) == "" && !validation.Failed(failed, validation.FieldCategoryName) {
		messages = append(messages, result.ValidationMessage(validation.FieldCategoryName,
			s.localizer.Phrase(ctx, localization.KeyRequired, validation.FieldCategoryName)))
	}

	nested, _ := req.ProductCategory.Get()
	if parent, ok := nested.ParentProductCategoryID.Get(); ok && parent != nil && !validation.Failed(failed, FieldCategoryParent) {
		if _, err := uow.ProductCategories().GetByID(ctx, *parent); err != nil {
			if !domainErrors.IsNotFound(err) {
				return nil, err
			}
			messages = append(messages, result.ValidationMessage(FieldCategoryParent,
				s.localizer.Phrase(ctx, localization.KeyCategoryNotFound, *parent)))
		}
	}

	return messages, nil
}

// saveCategory сохраняет категорию, изменённую вложенной моделью.
// Новая категория (без ID) создаётся и привязывается к продукту.
func (s *ProductsService) saveCategory(ctx context.Context, uow ports.UnitOfWork, product *entities.Product, store *events.EventStore) error {
	category := product.Category
	created := category.ProductCategoryID == 0

	category.ModifiedDate = s.now()
	if created {
		if err := uow.ProductCategories().Add(ctx, category); err != nil {
			return err
		}
		id := category.ProductCategoryID
		product.ProductCategoryID = &id
	} else if err := uow.ProductCategories().Update(ctx, category); err != nil {
		return err
	}

	store.Add(events.NewProductCategoryChanged(category.ProductCategoryID, category.Name, created, product.ProductID))
	return nil
}

// DeleteProduct удаляет продукт. Несуществующий ID - NotFound, хранилище не меняется.
func (s *ProductsService) DeleteProduct(ctx context.Context, id int) result.Result[result.Void] {
	ctx, span := s.startSpan(ctx, OpDeleteProduct, attribute.Int("product.id", id))
	defer span.End()

	log := s.log(ctx, OpDeleteProduct).With("product_id", id)
	log.Debug("deleting product")

	if id <= 0 {
		return fail[result.Void](ctx, s, OpDeleteProduct, s.productNotFound(ctx, id))
	}

	err := s.factory.Execute(ctx, func(ctx context.Context, uow ports.UnitOfWork) error {
		deleted, err := uow.Products().Delete(ctx, id)
		if err != nil {
			return err
		}
		if !deleted {
			return s.productNotFound(ctx, id)
		}
		return uow.Outbox().Publish(ctx, events.NewProductDeleted(id))
	})
	if err != nil {
		return fail[result.Void](ctx, s, OpDeleteProduct, err)
	}

	log.Info("product deleted", "user", operation.UserOrSystem(ctx).String())
	metrics.RecordProductOperation(OpDeleteProduct, "success")
	return result.OkVoid()
}

// ============================================
// Queries
// ============================================

// GetProductByID возвращает продукт с категорией и типом.
func (s *ProductsService) GetProductByID(ctx context.Context, id int) result.Result[dtos.ProductResponse] {
	ctx, span := s.startSpan(ctx, OpGetProductByID, attribute.Int("product.id", id))
	defer span.End()

	s.log(ctx, OpGetProductByID).Debug("getting product", "product_id", id)

	if id <= 0 {
		return fail[dtos.ProductResponse](ctx, s, OpGetProductByID, s.productNotFound(ctx, id))
	}

	var response dtos.ProductResponse
	err := s.factory.Execute(ctx, func(ctx context.Context, uow ports.UnitOfWork) error {
		product, err := uow.Products().GetAll().
			Where(ports.Eq(entities.ProductFieldID, id)).
			Include(entities.RelationCategory, entities.RelationType).
			First(ctx)
		if err != nil {
			if domainErrors.IsNotFound(err) {
				return s.productNotFound(ctx, id)
			}
			return err
		}
		response = *dtos.ProductToResponse.To(product)
		return nil
	})
	if err != nil {
		return fail[dtos.ProductResponse](ctx, s, OpGetProductByID, err)
	}

	metrics.RecordProductOperation(OpGetProductByID, "success")
	return result.Ok(response)
}

// GetProducts возвращает продукты по фильтру без загрузки связей.
// nil фильтр - все продукты.
func (s *ProductsService) GetProducts(ctx context.Context, filter *dtos.ProductFilter) result.Result[[]dtos.ProductResponse] {
	return s.list(ctx, OpGetProducts, filter)
}

// GetProductsWithDetails - то же, что GetProducts, но с категорией и типом каждого продукта.
func (s *ProductsService) GetProductsWithDetails(ctx context.Context, filter *dtos.ProductFilter) result.Result[[]dtos.ProductResponse] {
	return s.list(ctx, OpGetProductsWithDetails, filter, entities.RelationCategory, entities.RelationType)
}

func (s *ProductsService) list(ctx context.Context, op string, filter *dtos.ProductFilter, relations ...string) result.Result[[]dtos.ProductResponse] {
	ctx, span := s.startSpan(ctx, op, attribute.StringSlice("include", relations))
	defer span.End()

	s.log(ctx, op).Debug("listing products", "filter", filter)

	if messages := s.validator.ProductFilter(ctx, filter); len(messages) > 0 {
		return fail[[]dtos.ProductResponse](ctx, s, op, &rejection{messages: messages})
	}

	var responses []dtos.ProductResponse
	err := s.factory.Execute(ctx, func(ctx context.Context, uow ports.UnitOfWork) error {
		query := applyFilter(uow.Products().GetAll(), filter)
		if len(relations) > 0 {
			query = query.Include(relations...)
		}
		products, err := query.List(ctx)
		if err != nil {
			return err
		}
		responses = dtos.ProductToResponse.ToSlice(products)
		return nil
	})
	if err != nil {
		return fail[[]dtos.ProductResponse](ctx, s, op, err)
	}

	metrics.RecordProductOperation(op, "success")
	return result.Ok(responses)
}

// applyFilter переводит фильтр в условия запроса.
func applyFilter(q ports.Query[entities.Product], f *dtos.ProductFilter) ports.Query[entities.Product] {
	if f == nil {
		return q
	}
	if f.Name != "" {
		q = q.Where(ports.Contains(entities.ProductFieldName, f.Name))
	}
	if f.ProductCategoryID != nil {
		q = q.Where(ports.Eq(entities.ProductFieldProductCategoryID, *f.ProductCategoryID))
	}
	if f.ProductTypeID != nil {
		q = q.Where(ports.Eq(entities.ProductFieldProductTypeID, *f.ProductTypeID))
	}
	if f.Color != "" {
		q = q.Where(ports.Eq(entities.ProductFieldColor, f.Color))
	}
	if f.MinListPrice != nil {
		q = q.Where(ports.Gte(entities.ProductFieldListPrice, *f.MinListPrice))
	}
	if f.MaxListPrice != nil {
		q = q.Where(ports.Lte(entities.ProductFieldListPrice, *f.MaxListPrice))
	}
	if field, ok := orderFields[f.OrderBy]; ok {
		q = q.OrderBy(field, f.Desc)
	}
	if f.Offset > 0 {
		q = q.Offset(f.Offset)
	}
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}
	return q
}

// ============================================
// Lookup rules
// ============================================

// checkReferences выполняет правила, которым нужно хранилище:
// уникальность номера и существование категории/типа. Нарушения накапливаются.
// Поле с ошибкой из failed (проход по тегам) не проверяется повторно.
func (s *ProductsService) checkReferences(ctx context.Context, uow ports.UnitOfWork, p *entities.Product, checkNumber bool, failed []result.Message) ([]result.Message, error) {
	var messages []result.Message

	if checkNumber && !validation.Failed(failed, validation.FieldProductNumber) {
		exists, err := uow.Products().ExistsByProductNumber(ctx, p.ProductNumber, p.ProductID)
		if err != nil {
			return nil, err
		}
		if exists {
			messages = append(messages, s.duplicateNumber(ctx, p.ProductNumber).messages...)
		}
	}

	if p.ProductCategoryID != nil && p.Category == nil && !validation.Failed(failed, validation.FieldProductCategoryID) {
		if _, err := uow.ProductCategories().GetByID(ctx, *p.ProductCategoryID); err != nil {
			if !domainErrors.IsNotFound(err) {
				return nil, err
			}
			messages = append(messages, result.ValidationMessage(validation.FieldProductCategoryID,
				s.localizer.Phrase(ctx, localization.KeyCategoryNotFound, *p.ProductCategoryID)))
		}
	}

	if p.ProductTypeID != nil && p.Type == nil && !validation.Failed(failed, validation.FieldProductTypeID) {
		if _, err := uow.ProductTypes().GetByID(ctx, *p.ProductTypeID); err != nil {
			if !domainErrors.IsNotFound(err) {
				return nil, err
			}
			messages = append(messages, result.ValidationMessage(validation.FieldProductTypeID,
				s.localizer.Phrase(ctx, localization.KeyTypeNotFound, *p.ProductTypeID)))
		}
	}

	return messages, nil
}

// merge собирает сообщения прохода по тегам и lookup-правил в один срез.
func merge(invalid, lookups []result.Message) []result.Message {
	messages := make([]result.Message, 0, len(invalid)+len(lookups))
	messages = append(messages, invalid...)
	return append(messages, lookups...)
}

// unexpected - валидатор не смог выполнить проход (не ошибка поля).
func unexpected(messages []result.Message) bool {
	return slices.ContainsFunc(messages, func(m result.Message) bool {
		return m.Code == result.CodeUnexpected
	})
}

// ============================================
// Failures
// ============================================

// rejection - ожидаемый отказ внутри UnitOfWork. Возврат его из Execute откатывает транзакцию.
type rejection struct {
	messages []result.Message
}

func (r *rejection) Error() string {
	phrases := make([]string, 0, len(r.messages))
	for _, m := range r.messages {
		phrases = append(phrases, m.String())
	}
	return "request rejected: " + strings.Join(phrases, "; ")
}

func (s *ProductsService) productNotFound(ctx context.Context, id int) *rejection {
	return &rejection{messages: []result.Message{
		result.NotFoundMessage(s.localizer.Phrase(ctx, localization.KeyProductNotFound, id)),
	}}
}

func (s *ProductsService) duplicateNumber(ctx context.Context, number string) *rejection {
	return &rejection{messages: []result.Message{
		result.ValidationMessage(validation.FieldProductNumber, s.localizer.Phrase(ctx, localization.KeyProductNumberDuplicate, number)),
	}}
}

// fail переводит ошибку операции в failed Result.
//
// rejection отдаёт свои сообщения как есть. Любая другая ошибка (DatabaseError,
// отмена context, нарушение контракта провайдера) становится CodeDatabaseError
// с общей фразой; детали остаются только в логе.
func fail[T any](ctx context.Context, s *ProductsService, op string, err error) result.Result[T] {
	log := s.log(ctx, op)

	var rej *rejection
	if errors.As(err, &rej) {
		r := result.Fail[T](rej.messages...)
		outcome := "invalid"
		if r.NotFound() {
			outcome = "not_found"
		}
		log.Warn("operation rejected", "outcome", outcome, "messages", rej.messages)
		trace.SpanFromContext(ctx).SetAttributes(attribute.String("outcome", outcome))
		metrics.RecordProductOperation(op, outcome)
		return r
	}

	log.Error("operation failed", "error", err)
	span := trace.SpanFromContext(ctx)
	span.RecordError(err)
	span.SetStatus(codes.Error, "database error")
	metrics.RecordProductOperation(op, "error")
	return result.Fail[T](result.DatabaseMessage(s.localizer.Phrase(ctx, localization.KeyDatabaseError)))
}

// startSpan открывает спан "ProductsService.<op>".
func (s *ProductsService) startSpan(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, "ProductsService."+op, trace.WithAttributes(attrs...))
}

func (s *ProductsService) log(ctx context.Context, op string) *slog.Logger {
	l := s.logger
	if l == nil {
		l = logger.FromContext(ctx)
	}
	return l.With("operation", op)
}
