// Package validation - проверка моделей запросов по декларативным правилам.
//
// Правила объявлены тегами `validate:"..."` и проверяются go-playground/validator.
// Каждое нарушенное правило даёт ровно одно сообщение CodeValidationError
// с локализованной фразой. Все нарушения одного прохода накапливаются.
//
// Правила, требующие обращения к хранилищу (уникальность номера, существование
// категории/типа), выполняет сервис внутри UnitOfWork после этого прохода.
package validation

import (
	"context"
	"errors"
	"reflect"
	"regexp"
	"strings"
	"time"
	"unicode"

	"github.com/go-playground/validator/v10"

	"github.com/Haleralex/catalog/internal/application/dtos"
	"github.com/Haleralex/catalog/internal/application/ports"
	"github.com/Haleralex/catalog/internal/domain/entities"
	"github.com/Haleralex/catalog/internal/domain/result"
	"github.com/Haleralex/catalog/internal/domain/valueobjects"
	"github.com/Haleralex/catalog/internal/pkg/localization"
	"github.com/Haleralex/catalog/internal/pkg/optional"
)

// Field names used in messages (json names of request fields).
const (
	FieldProductID         = "product_id"
	FieldName              = "name"
	FieldProductNumber     = "product_number"
	FieldProductCategoryID = "product_category_id"
	FieldProductTypeID     = "product_type_id"
	FieldProductCategory   = "product_category"
	FieldCategoryName      = "product_category.name"
	FieldSellStartDate     = "sell_start_date"
	FieldSellEndDate       = "sell_end_date"
	FieldMinListPrice      = "min_list_price"
	FieldMaxListPrice      = "max_list_price"
)

// ProductNumberMaxLength - максимальная длина номера продукта.
const ProductNumberMaxLength = 25

var productNumberPattern = regexp.MustCompile(`^[A-Z]{1,3}(-?[A-Z0-9]+)+$`)

// IsValidProductNumber проверяет формат номера продукта (e.g. "FR-R92B-58", "A62037").
func IsValidProductNumber(s string) bool {
	return len(s) <= ProductNumberMaxLength && productNumberPattern.MatchString(s)
}

// formatArgs реализуется моделями, у которых есть правило product_number.
type formatArgs interface {
	ProductNumberFormatArgs() []any
}

// Validator проверяет модели запросов. Безопасен для конкурентного использования.
type Validator struct {
	validate  *validator.Validate
	localizer ports.Localizer
}

// New создаёт Validator с правилами каталога.
func New(localizer ports.Localizer) *Validator {
	v := validator.New()

	// Используем json tag для имён полей в сообщениях
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	// Money проверяется как число
	v.RegisterCustomTypeFunc(func(field reflect.Value) any {
		if m, ok := field.Interface().(valueobjects.Money); ok {
			return m.Float64()
		}
		return nil
	}, valueobjects.Money{})

	// optional.Value раскрывается в значение; незаданное поле - nil (пропускается omitempty)
	v.RegisterCustomTypeFunc(optionalValue,
		optional.Value[string]{},
		optional.Value[*string]{},
		optional.Value[*int]{},
		optional.Value[*float64]{},
		optional.Value[valueobjects.Money]{},
		optional.Value[time.Time]{},
		optional.Value[*time.Time]{},
		optional.Value[*dtos.ProductCategoryUpdate]{},
	)

	_ = v.RegisterValidation("product_number", func(fl validator.FieldLevel) bool {
		return IsValidProductNumber(fl.Field().String())
	})

	return &Validator{validate: v, localizer: localizer}
}

func optionalValue(field reflect.Value) any {
	o, ok := field.Interface().(interface{ Any() (any, bool) })
	if !ok {
		return nil
	}
	if v, set := o.Any(); set {
		return v
	}
	return nil
}

// Struct выполняет проход по тегам и возвращает сообщения (пусто = валидно).
func (v *Validator) Struct(ctx context.Context, model any) []result.Message {
	err := v.validate.StructCtx(ctx, model)
	if err == nil {
		return nil
	}

	var fieldErrors validator.ValidationErrors
	if !errors.As(err, &fieldErrors) {
		return []result.Message{result.NewMessage(result.CodeUnexpected, v.localizer.Phrase(ctx, localization.KeyUnexpectedError))}
	}

	messages := make([]result.Message, 0, len(fieldErrors))
	for _, fe := range fieldErrors {
		field := fieldPath(fe.Namespace())
		messages = append(messages, result.ValidationMessage(field, v.phrase(ctx, model, fe, field)))
	}
	return messages
}

// ProductCreate проверяет модель создания.
func (v *Validator) ProductCreate(ctx context.Context, req *dtos.ProductCreateRequest) []result.Message {
	return v.Struct(ctx, req)
}

// ProductUpdate проверяет модель частичного обновления: теги плюс правила,
// которые теги не выражают (заданное пустое значение, взаимоисключающие поля).
func (v *Validator) ProductUpdate(ctx context.Context, req *dtos.ProductUpdateRequest) []result.Message {
	messages := v.Struct(ctx, req)

	if name, ok := req.Name.Get(); ok && strings.TrimSpace(name) == "" {
		messages = append(messages, v.message(ctx, FieldName, localization.KeyNotBlank, FieldName))
	}
	if number, ok := req.ProductNumber.Get(); ok && number == "" {
		messages = append(messages, v.message(ctx, FieldProductNumber, localization.KeyNotBlank, FieldProductNumber))
	}
	if start, ok := req.SellStartDate.Get(); ok && start.IsZero() {
		messages = append(messages, v.message(ctx, FieldSellStartDate, localization.KeyRequired, FieldSellStartDate))
	}

	if category, ok := req.ProductCategory.Get(); ok && category != nil {
		if req.ProductCategoryID.IsSet() {
			messages = append(messages, v.message(ctx, FieldProductCategory, localization.KeyCategoryConflict))
		}
		if name, ok := category.Name.Get(); ok && strings.TrimSpace(name) == "" {
			messages = append(messages, v.message(ctx, FieldCategoryName, localization.KeyNotBlank, FieldCategoryName))
		}
	}

	return messages
}

// ProductFilter проверяет фильтр списка. nil фильтр валиден.
func (v *Validator) ProductFilter(ctx context.Context, filter *dtos.ProductFilter) []result.Message {
	if filter == nil {
		return nil
	}
	messages := v.Struct(ctx, filter)
	if filter.MinListPrice != nil && filter.MaxListPrice != nil && *filter.MaxListPrice < *filter.MinListPrice {
		messages = append(messages, v.message(ctx, FieldMaxListPrice, localization.KeyMinValue, FieldMaxListPrice, FieldMinListPrice))
	}
	return messages
}

// ProductDates проверяет порядок дат уже собранной сущности (после частичного обновления).
func (v *Validator) ProductDates(ctx context.Context, p *entities.Product) []result.Message {
	if p.SellEndDate != nil && p.SellEndDate.Before(p.SellStartDate) {
		return []result.Message{v.message(ctx, FieldSellEndDate, localization.KeyDateOrder, FieldSellEndDate, FieldSellStartDate)}
	}
	return nil
}

// Failed сообщает, есть ли среди сообщений ошибка поля field.
// Используется, чтобы не выполнять lookup-правила для полей с ошибкой формата.
func Failed(messages []result.Message, field string) bool {
	for _, m := range messages {
		if m.Field == field && m.IsError() {
			return true
		}
	}
	return false
}

func (v *Validator) message(ctx context.Context, field, key string, args ...any) result.Message {
	return result.ValidationMessage(field, v.localizer.Phrase(ctx, key, args...))
}

func (v *Validator) phrase(ctx context.Context, model any, fe validator.FieldError, field string) string {
	switch fe.Tag() {
	case "required":
		return v.localizer.Phrase(ctx, localization.KeyRequired, field)
	case "max":
		if fe.Kind() == reflect.String {
			return v.localizer.Phrase(ctx, localization.KeyMaxLength, field, fe.Param())
		}
		return v.localizer.Phrase(ctx, localization.KeyMaxValue, field, fe.Param())
	case "lte":
		return v.localizer.Phrase(ctx, localization.KeyMaxValue, field, fe.Param())
	case "min", "gte":
		return v.localizer.Phrase(ctx, localization.KeyMinValue, field, fe.Param())
	case "gt":
		return v.localizer.Phrase(ctx, localization.KeyGreaterThan, field, fe.Param())
	case "gtefield":
		return v.localizer.Phrase(ctx, localization.KeyDateOrder, field, toSnake(fe.Param()))
	case "oneof":
		return v.localizer.Phrase(ctx, localization.KeyOneOf, field, strings.ReplaceAll(fe.Param(), " ", ", "))
	case "product_number":
		if fa, ok := model.(formatArgs); ok {
			return v.localizer.Phrase(ctx, localization.KeyProductNumberFormat, fa.ProductNumberFormatArgs()...)
		}
		return v.localizer.Phrase(ctx, localization.KeyInvalid, field)
	default:
		return v.localizer.Phrase(ctx, localization.KeyInvalid, field)
	}
}

// fieldPath убирает имя корневой структуры из namespace: "ProductUpdateRequest.product_category.name" -> "product_category.name".
func fieldPath(namespace string) string {
	if i := strings.IndexByte(namespace, '.'); i >= 0 {
		return namespace[i+1:]
	}
	return namespace
}

// toSnake переводит имя Go поля в json-стиль: "SellStartDate" -> "sell_start_date".
func toSnake(s string) string {
	var b strings.Builder
	for i, r := range s {
		if unicode.IsUpper(r) {
			if i > 0 {
				b.WriteByte('_')
			}
			r = unicode.ToLower(r)
		}
		b.WriteRune(r)
	}
	return b.String()
}
