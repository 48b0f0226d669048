package postgres

import (
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Haleralex/catalog/internal/domain/entities"
	"github.com/Haleralex/catalog/internal/domain/valueobjects"
)

// kind - тип колонки. Определяет cast плейсхолдера и приведение параметров критериев.
type kind int

const (
	kindInt kind = iota
	kindText
	kindMoney // numeric(19,4), читается как text
	kindFloat
	kindTime
)

// cast возвращает приведение для плейсхолдера ($n::...).
// Money передаётся строкой, поэтому сначала text, затем numeric.
func (k kind) cast() string {
	switch k {
	case kindInt:
		return "::int4"
	case kindMoney:
		return "::text::numeric"
	case kindFloat:
		return "::float8"
	case kindTime:
		return "::timestamptz"
	default:
		return "::text"
	}
}

// column описывает одно поле сущности и его колонку в таблице.
type column[T any] struct {
	field string // имя поля entities (для Criterion и OrderBy)
	name  string // имя колонки
	kind  kind
	dest  func(e *T) any // указатель для Scan
	value func(e *T) any // значение для INSERT/UPDATE
}

// expr - выражение в SELECT. numeric читается текстом, чтобы не терять точность.
func (c column[T]) expr() string {
	if c.kind == kindMoney {
		return c.name + "::text"
	}
	return c.name
}

// schema - описание таблицы: первая колонка всегда первичный ключ.
type schema[T any] struct {
	table   string
	columns []column[T]
}

func (s schema[T]) pk() column[T] {
	return s.columns[0]
}

func (s schema[T]) column(field string) (column[T], bool) {
	for _, c := range s.columns {
		if c.field == field {
			return c, true
		}
	}
	return column[T]{}, false
}

// selectList - "a, b::text, c" для SELECT.
func (s schema[T]) selectList() string {
	parts := make([]string, len(s.columns))
	for i, c := range s.columns {
		parts[i] = c.expr()
	}
	return strings.Join(parts, ", ")
}

func (s schema[T]) dests(e *T) []any {
	out := make([]any, len(s.columns))
	for i, c := range s.columns {
		out[i] = c.dest(e)
	}
	return out
}

// insertSQL строит INSERT ... RETURNING pk. withID - явный первичный ключ.
func (s schema[T]) insertSQL(e *T, withID bool) (string, []any) {
	cols := s.columns
	if !withID {
		cols = cols[1:]
	}

	names := make([]string, len(cols))
	holders := make([]string, len(cols))
	args := make([]any, len(cols))
	for i, c := range cols {
		names[i] = c.name
		holders[i] = "$" + strconv.Itoa(i+1) + c.kind.cast()
		args[i] = c.value(e)
	}

	sql := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) RETURNING %s",
		s.table, strings.Join(names, ", "), strings.Join(holders, ", "), s.pk().name)
	return sql, args
}

// updateSQL строит UPDATE всех колонок по первичному ключу ($1).
func (s schema[T]) updateSQL(e *T) (string, []any) {
	pk := s.pk()
	sets := make([]string, 0, len(s.columns)-1)
	args := []any{pk.value(e)}
	for _, c := range s.columns[1:] {
		args = append(args, c.value(e))
		sets = append(sets, fmt.Sprintf("%s = $%d%s", c.name, len(args), c.kind.cast()))
	}

	sql := fmt.Sprintf("UPDATE %s SET %s WHERE %s = $1", s.table, strings.Join(sets, ", "), pk.name)
	return sql, args
}

// ============================================
// Параметры
// ============================================

// bind приводит значение Criterion к параметру колонки kind.
// nil и nil-указатели становятся NULL (сравнение с ним в SQL ложно).
func bind(k kind, v any) (any, error) {
	switch x := v.(type) {
	case nil:
		return nil, nil
	case *int:
		if x == nil {
			return nil, nil
		}
		return bind(k, *x)
	case *float64:
		if x == nil {
			return nil, nil
		}
		return bind(k, *x)
	case *string:
		if x == nil {
			return nil, nil
		}
		return bind(k, *x)
	case *time.Time:
		if x == nil {
			return nil, nil
		}
		return bind(k, *x)
	case *valueobjects.Money:
		if x == nil {
			return nil, nil
		}
		return bind(k, *x)
	}

	switch k {
	case kindInt:
		switch x := v.(type) {
		case int:
			return x, nil
		case int32:
			return int(x), nil
		case int64:
			return int(x), nil
		}
	case kindFloat:
		switch x := v.(type) {
		case int:
			return float64(x), nil
		case float64:
			return x, nil
		case valueobjects.Money:
			return x.Float64(), nil
		}
	case kindMoney:
		switch x := v.(type) {
		case valueobjects.Money:
			return x.Decimal(), nil
		case int:
			return valueobjects.MoneyFromFloat(float64(x)).Decimal(), nil
		case float64:
			return valueobjects.MoneyFromFloat(x).Decimal(), nil
		}
	case kindText:
		if s, ok := v.(string); ok {
			return s, nil
		}
	case kindTime:
		if t, ok := v.(time.Time); ok {
			return t, nil
		}
	}
	return nil, fmt.Errorf("cannot compare %T with column of this type", v)
}

// likePattern экранирует спецсимволы LIKE (ESCAPE '\').
func likePattern(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(s) + "%"
}

// ============================================
// Scanners
// ============================================

// moneyScanner читает numeric, выбранный как text, в valueobjects.Money.
type moneyScanner struct {
	dst *valueobjects.Money
}

var _ sql.Scanner = moneyScanner{}

// Scan implements sql.Scanner.
func (m moneyScanner) Scan(src any) error {
	var s string
	switch v := src.(type) {
	case nil:
		*m.dst = valueobjects.Zero()
		return nil
	case string:
		s = v
	case []byte:
		s = string(v)
	default:
		return fmt.Errorf("cannot scan %T into Money", src)
	}

	money, err := valueobjects.NewMoney(s)
	if err != nil {
		return err
	}
	*m.dst = money
	return nil
}

// ============================================
// Схемы таблиц
// ============================================

var productSchema = schema[entities.Product]{
	table: "product",
	columns: []column[entities.Product]{
		{entities.ProductFieldID, "product_id", kindInt,
			func(p *entities.Product) any { return &p.ProductID },
			func(p *entities.Product) any { return p.ProductID }},
		{entities.ProductFieldName, "name", kindText,
			func(p *entities.Product) any { return &p.Name },
			func(p *entities.Product) any { return p.Name }},
		{entities.ProductFieldProductNumber, "product_number", kindText,
			func(p *entities.Product) any { return &p.ProductNumber },
			func(p *entities.Product) any { return p.ProductNumber }},
		{entities.ProductFieldColor, "color", kindText,
			func(p *entities.Product) any { return &p.Color },
			func(p *entities.Product) any { return p.Color }},
		{entities.ProductFieldStandardCost, "standard_cost", kindMoney,
			func(p *entities.Product) any { return moneyScanner{&p.StandardCost} },
			func(p *entities.Product) any { return p.StandardCost.Decimal() }},
		{entities.ProductFieldListPrice, "list_price", kindMoney,
			func(p *entities.Product) any { return moneyScanner{&p.ListPrice} },
			func(p *entities.Product) any { return p.ListPrice.Decimal() }},
		{entities.ProductFieldSize, "size", kindText,
			func(p *entities.Product) any { return &p.Size },
			func(p *entities.Product) any { return p.Size }},
		{entities.ProductFieldWeight, "weight", kindFloat,
			func(p *entities.Product) any { return &p.Weight },
			func(p *entities.Product) any { return p.Weight }},
		{entities.ProductFieldProductCategoryID, "product_category_id", kindInt,
			func(p *entities.Product) any { return &p.ProductCategoryID },
			func(p *entities.Product) any { return p.ProductCategoryID }},
		{entities.ProductFieldProductTypeID, "product_type_id", kindInt,
			func(p *entities.Product) any { return &p.ProductTypeID },
			func(p *entities.Product) any { return p.ProductTypeID }},
		{entities.ProductFieldSellStartDate, "sell_start_date", kindTime,
			func(p *entities.Product) any { return &p.SellStartDate },
			func(p *entities.Product) any { return p.SellStartDate }},
		{entities.ProductFieldSellEndDate, "sell_end_date", kindTime,
			func(p *entities.Product) any { return &p.SellEndDate },
			func(p *entities.Product) any { return p.SellEndDate }},
		{entities.ProductFieldDiscontinuedDate, "discontinued_date", kindTime,
			func(p *entities.Product) any { return &p.DiscontinuedDate },
			func(p *entities.Product) any { return p.DiscontinuedDate }},
		{entities.ProductFieldModifiedDate, "modified_date", kindTime,
			func(p *entities.Product) any { return &p.ModifiedDate },
			func(p *entities.Product) any { return p.ModifiedDate }},
	},
}

var categorySchema = schema[entities.ProductCategory]{
	table: "product_category",
	columns: []column[entities.ProductCategory]{
		{entities.CategoryFieldID, "product_category_id", kindInt,
			func(c *entities.ProductCategory) any { return &c.ProductCategoryID },
			func(c *entities.ProductCategory) any { return c.ProductCategoryID }},
		{entities.CategoryFieldParentProductCategoryID, "parent_product_category_id", kindInt,
			func(c *entities.ProductCategory) any { return &c.ParentProductCategoryID },
			func(c *entities.ProductCategory) any { return c.ParentProductCategoryID }},
		{entities.CategoryFieldName, "name", kindText,
			func(c *entities.ProductCategory) any { return &c.Name },
			func(c *entities.ProductCategory) any { return c.Name }},
		{entities.CategoryFieldModifiedDate, "modified_date", kindTime,
			func(c *entities.ProductCategory) any { return &c.ModifiedDate },
			func(c *entities.ProductCategory) any { return c.ModifiedDate }},
	},
}

var typeSchema = schema[entities.ProductType]{
	table: "product_type",
	columns: []column[entities.ProductType]{
		{entities.TypeFieldID, "product_type_id", kindInt,
			func(t *entities.ProductType) any { return &t.ProductTypeID },
			func(t *entities.ProductType) any { return t.ProductTypeID }},
		{entities.TypeFieldName, "name", kindText,
			func(t *entities.ProductType) any { return &t.Name },
			func(t *entities.ProductType) any { return t.Name }},
		{entities.TypeFieldCatalogDescription, "catalog_description", kindText,
			func(t *entities.ProductType) any { return &t.CatalogDescription },
			func(t *entities.ProductType) any { return t.CatalogDescription }},
		{entities.TypeFieldModifiedDate, "modified_date", kindTime,
			func(t *entities.ProductType) any { return &t.ModifiedDate },
			func(t *entities.ProductType) any { return t.ModifiedDate }},
	},
}
