// Package localization - каталог фраз сообщений и выбор культуры.
//
// Фразы - шаблоны с позиционными аргументами (%[1]v, %[2]v), ключи стабильны
// и совпадают для всех культур. Культура запроса хранится в context.
package localization

import (
	"context"
	"fmt"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

// Phrase keys.
const (
	KeyRequired    = "Validation_Required"
	KeyMaxLength   = "Validation_MaxLength"
	KeyMinValue    = "Validation_MinValue"
	KeyGreaterThan = "Validation_GreaterThan"
	KeyMaxValue    = "Validation_MaxValue"
	KeyDateOrder   = "Validation_DateOrder"
	KeyOneOf       = "Validation_OneOf"
	KeyInvalid     = "Validation_Invalid"
	KeyNotBlank    = "Validation_NotBlank"

	KeyProductNumberFormat    = "ProductCreateRequest_ValidationError_1"
	KeyProductNumberDuplicate = "ProductsService_AddProduct_ValidationError_1"
	KeyCategoryConflict       = "ProductUpdateRequest_ValidationError_1"
	KeyProductNotFound        = "ProductsService_ProductNotFound"
	KeyCategoryNotFound       = "ProductsService_CategoryNotFound"
	KeyTypeNotFound           = "ProductsService_TypeNotFound"

	KeyDatabaseError   = "Common_DatabaseError"
	KeyInvalidRequest  = "Common_InvalidRequest"
	KeyUnexpectedError = "Common_UnexpectedError"
)

// Supported cultures. English is the fallback.
var (
	English = language.English
	Russian = language.Russian

	supported = []language.Tag{English, Russian}
)

var phrases = map[language.Tag]map[string]string{
	English: {
		KeyRequired:    "%[1]v is required",
		KeyMaxLength:   "%[1]v must be at most %[2]v characters long",
		KeyMinValue:    "%[1]v must be greater than or equal to %[2]v",
		KeyGreaterThan: "%[1]v must be greater than %[2]v",
		KeyMaxValue:    "%[1]v must be less than or equal to %[2]v",
		KeyDateOrder:   "%[1]v must not be earlier than %[2]v",
		KeyOneOf:       "%[1]v must be one of: %[2]v",
		KeyInvalid:     "%[1]v is invalid",
		KeyNotBlank:    "%[1]v must not be blank",

		KeyProductNumberFormat:    "Product number '%[2]v' has an invalid format (standard cost %[1]v)",
		KeyProductNumberDuplicate: "A product with number '%[1]v' already exists",
		KeyCategoryConflict:       "product_category_id and product_category cannot be changed in the same request",
		KeyProductNotFound:        "Product %[1]v was not found",
		KeyCategoryNotFound:       "Product category %[1]v does not exist",
		KeyTypeNotFound:           "Product type %[1]v does not exist",

		KeyDatabaseError:   "The operation could not be completed because of a storage error",
		KeyInvalidRequest:  "The request is malformed: %[1]v",
		KeyUnexpectedError: "An unexpected error occurred",
	},
	Russian: {
		KeyRequired:    "Поле %[1]v обязательно",
		KeyMaxLength:   "Поле %[1]v должно быть не длиннее %[2]v символов",
		KeyMinValue:    "Поле %[1]v должно быть не меньше %[2]v",
		KeyGreaterThan: "Поле %[1]v должно быть больше %[2]v",
		KeyMaxValue:    "Поле %[1]v должно быть не больше %[2]v",
		KeyDateOrder:   "Поле %[1]v не может быть раньше %[2]v",
		KeyOneOf:       "Поле %[1]v должно быть одним из: %[2]v",
		KeyInvalid:     "Поле %[1]v заполнено неверно",
		KeyNotBlank:    "Поле %[1]v не может быть пустым",

		KeyProductNumberFormat:    "Номер продукта '%[2]v' имеет неверный формат (себестоимость %[1]v)",
		KeyProductNumberDuplicate: "Продукт с номером '%[1]v' уже существует",
		KeyCategoryConflict:       "product_category_id и product_category нельзя менять в одном запросе",
		KeyProductNotFound:        "Продукт %[1]v не найден",
		KeyCategoryNotFound:       "Категория продукта %[1]v не существует",
		KeyTypeNotFound:           "Тип продукта %[1]v не существует",

		KeyDatabaseError:   "Операция не выполнена из-за ошибки хранилища",
		KeyInvalidRequest:  "Некорректный запрос: %[1]v",
		KeyUnexpectedError: "Произошла непредвиденная ошибка",
	},
}

// Localizer форматирует фразы по ключу для культуры из context.
// Безопасен для конкурентного использования.
type Localizer struct {
	catalog  *catalog.Builder
	matcher  language.Matcher
	fallback language.Tag
}

// New создаёт Localizer с культурой по умолчанию (например, "en" или "ru").
func New(defaultCulture string) (*Localizer, error) {
	fallback, err := language.Parse(defaultCulture)
	if err != nil {
		return nil, fmt.Errorf("invalid default culture %q: %w", defaultCulture, err)
	}

	b := catalog.NewBuilder(catalog.Fallback(English))
	for tag, entries := range phrases {
		for key, msg := range entries {
			if err := b.SetString(tag, key, msg); err != nil {
				return nil, fmt.Errorf("failed to register phrase %s/%s: %w", tag, key, err)
			}
		}
	}

	l := &Localizer{
		catalog: b,
		matcher: language.NewMatcher(supported),
	}
	l.fallback = English
	if tag, ok := l.resolve(fallback); ok {
		l.fallback = tag
	}
	return l, nil
}

// MustNew - New для значений, известных как корректные. Panics otherwise.
func MustNew(defaultCulture string) *Localizer {
	l, err := New(defaultCulture)
	if err != nil {
		panic(err)
	}
	return l
}

// Default возвращает культуру по умолчанию.
func (l *Localizer) Default() language.Tag {
	return l.fallback
}

// Phrase форматирует фразу key с позиционными аргументами для культуры из ctx.
// Неизвестный ключ форматируется как есть.
func (l *Localizer) Phrase(ctx context.Context, key string, args ...any) string {
	tag := l.fallback
	if c, ok := CultureFrom(ctx); ok {
		if resolved, ok := l.resolve(c); ok {
			tag = resolved
		}
	}
	return message.NewPrinter(tag, message.Catalog(l.catalog)).Sprintf(key, args...)
}

// Match выбирает поддерживаемую культуру по заголовку Accept-Language.
// Пустой или нераспознанный заголовок даёт культуру по умолчанию.
func (l *Localizer) Match(acceptLanguage string) language.Tag {
	if acceptLanguage == "" {
		return l.fallback
	}
	tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(tags) == 0 {
		return l.fallback
	}
	_, idx, confidence := l.matcher.Match(tags...)
	if confidence == language.No {
		return l.fallback
	}
	return supported[idx]
}

func (l *Localizer) resolve(tag language.Tag) (language.Tag, bool) {
	_, idx, confidence := l.matcher.Match(tag)
	if confidence == language.No {
		return language.Und, false
	}
	return supported[idx], true
}

// ============================================
// Context
// ============================================

type cultureKey struct{}

// WithCulture сохраняет культуру запроса в context.
func WithCulture(ctx context.Context, tag language.Tag) context.Context {
	return context.WithValue(ctx, cultureKey{}, tag)
}

// CultureFrom извлекает культуру из context.
func CultureFrom(ctx context.Context) (language.Tag, bool) {
	tag, ok := ctx.Value(cultureKey{}).(language.Tag)
	return tag, ok
}
