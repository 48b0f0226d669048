package memory

import (
	"cmp"
	"fmt"
	"strings"
	"time"

	"github.com/Haleralex/catalog/internal/application/ports"
	"github.com/Haleralex/catalog/internal/domain/entities"
	"github.com/Haleralex/catalog/internal/domain/valueobjects"
)

// matchAll проверяет все условия (AND).
func matchAll(rec entities.Record, criteria []ports.Criterion) (bool, error) {
	for _, c := range criteria {
		ok, err := match(rec, c)
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

// match вычисляет одно условие. Сравнение с NULL ложно, как в SQL.
func match(rec entities.Record, c ports.Criterion) (bool, error) {
	raw, ok := rec.FieldValue(c.Field)
	if !ok {
		return false, fmt.Errorf("unknown field %q", c.Field)
	}
	v := normalize(raw)

	switch c.Op {
	case ports.OpIsNull:
		return v == nil, nil
	case ports.OpNotNull:
		return v != nil, nil
	}

	want := normalize(c.Value)
	if v == nil || want == nil {
		return false, nil
	}

	if c.Op == ports.OpContains {
		s, ok1 := v.(string)
		sub, ok2 := want.(string)
		if !ok1 || !ok2 {
			return false, fmt.Errorf("field %q: contains requires strings", c.Field)
		}
		return strings.Contains(strings.ToLower(s), strings.ToLower(sub)), nil
	}

	n, ok := compare(v, want)
	if !ok {
		return false, fmt.Errorf("field %q: cannot compare %T with %T", c.Field, raw, c.Value)
	}

	switch c.Op {
	case ports.OpEq:
		return n == 0, nil
	case ports.OpNe:
		return n != 0, nil
	case ports.OpLt:
		return n < 0, nil
	case ports.OpLte:
		return n <= 0, nil
	case ports.OpGt:
		return n > 0, nil
	case ports.OpGte:
		return n >= 0, nil
	default:
		return false, fmt.Errorf("unknown operator %q", c.Op)
	}
}

// orderValues сравнивает значения для сортировки. NULL всегда в конце (NULLS LAST).
func orderValues(a, b any, desc bool) int {
	va, vb := normalize(a), normalize(b)
	switch {
	case va == nil && vb == nil:
		return 0
	case va == nil:
		return 1
	case vb == nil:
		return -1
	}
	n, _ := compare(va, vb)
	if desc {
		return -n
	}
	return n
}

// normalize сводит значения полей к float64 / string / time.Time / bool; nil - NULL.
func normalize(v any) any {
	switch x := v.(type) {
	case nil:
		return nil
	case int:
		return float64(x)
	case int32:
		return float64(x)
	case int64:
		return float64(x)
	case float32:
		return float64(x)
	case float64:
		return x
	case string, bool, time.Time:
		return x
	case valueobjects.Money:
		return x.Float64()
	case *int:
		if x == nil {
			return nil
		}
		return float64(*x)
	case *float64:
		if x == nil {
			return nil
		}
		return *x
	case *string:
		if x == nil {
			return nil
		}
		return *x
	case *time.Time:
		if x == nil {
			return nil
		}
		return *x
	case *valueobjects.Money:
		if x == nil {
			return nil
		}
		return x.Float64()
	default:
		return v
	}
}

func compare(a, b any) (int, bool) {
	switch x := a.(type) {
	case float64:
		y, ok := b.(float64)
		return cmp.Compare(x, y), ok
	case string:
		y, ok := b.(string)
		return cmp.Compare(x, y), ok
	case time.Time:
		y, ok := b.(time.Time)
		return x.Compare(y), ok
	case bool:
		y, ok := b.(bool)
		if !ok || x == y {
			return 0, ok
		}
		if x {
			return 1, true
		}
		return -1, true
	default:
		return 0, false
	}
}
