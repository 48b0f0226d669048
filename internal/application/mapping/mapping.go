// Package mapping - декларативные правила переноса полей между сущностями и моделями.
//
// SOLID Principles:
// - SRP: Map только переносит значения, не читает хранилище
// - OCP: Новые правила добавляются без изменения Map
//
// Pattern: Declarative Mapper
// - Field: безусловное копирование / переименование
// - Optional: копирование только явно заданных полей (partial update)
// - Nested: вложенная частичная модель, применяемая к связанной сущности
// - Bidirectional: прямая и обратная карта из одного объявления
package mapping

import "github.com/Haleralex/catalog/internal/pkg/optional"

// Rule переносит одно поле из S в D.
// apply возвращает true, если что-то было записано в D.
type Rule[S, D any] struct {
	name  string
	apply func(src *S, dst *D) bool
}

// Name возвращает имя правила (обычно имя целевого поля).
func (r Rule[S, D]) Name() string {
	return r.name
}

// Map - упорядоченный набор правил S -> D.
// Map не имеет состояния и безопасен для конкурентного использования.
type Map[S, D any] struct {
	rules []Rule[S, D]
}

// New создаёт Map из правил. Правила применяются в порядке объявления.
func New[S, D any](rules ...Rule[S, D]) *Map[S, D] {
	return &Map[S, D]{rules: rules}
}

// Apply применяет правила к существующему dst и возвращает имена правил, которые записали значение.
func (m *Map[S, D]) Apply(src *S, dst *D) []string {
	var written []string
	for _, r := range m.rules {
		if r.apply(src, dst) {
			written = append(written, r.name)
		}
	}
	return written
}

// To создаёт новый D из src.
func (m *Map[S, D]) To(src *S) *D {
	dst := new(D)
	m.Apply(src, dst)
	return dst
}

// ToSlice отображает список. Порядок сохраняется.
func (m *Map[S, D]) ToSlice(src []*S) []D {
	out := make([]D, 0, len(src))
	for _, s := range src {
		out = append(out, *m.To(s))
	}
	return out
}

// Rules возвращает количество правил (для тестов конфигурации).
func (m *Map[S, D]) Rules() int {
	return len(m.rules)
}

// Field копирует значение безусловно.
func Field[S, D, V any](name string, get func(*S) V, set func(*D, V)) Rule[S, D] {
	return Rule[S, D]{
		name: name,
		apply: func(src *S, dst *D) bool {
			set(dst, get(src))
			return true
		},
	}
}

// Optional копирует значение, только если оно было явно задано в источнике.
// Незаданное поле оставляет dst нетронутым; заданный nil (для указателей) очищает поле.
func Optional[S, D, V any](name string, get func(*S) optional.Value[V], set func(*D, V)) Rule[S, D] {
	return Rule[S, D]{
		name: name,
		apply: func(src *S, dst *D) bool {
			v, ok := get(src).Get()
			if !ok {
				return false
			}
			set(dst, v)
			return true
		},
	}
}

// Nested применяет вложенную частичную модель к связанной сущности.
// target возвращает связанную сущность dst (может создать её); nil означает "некуда применять".
// Правило срабатывает, если вложенная модель задана, не nil и записала хотя бы одно поле.
func Nested[S, D, NS, ND any](name string, get func(*S) optional.Value[*NS], target func(*D) *ND, m *Map[NS, ND]) Rule[S, D] {
	return Rule[S, D]{
		name: name,
		apply: func(src *S, dst *D) bool {
			nested, ok := get(src).Get()
			if !ok || nested == nil {
				return false
			}
			// пустая вложенная модель не должна создавать связанную сущность
			if len(m.Apply(nested, new(ND))) == 0 {
				return false
			}
			related := target(dst)
			if related == nil {
				return false
			}
			return len(m.Apply(nested, related)) > 0
		},
	}
}

// Custom - произвольное правило для случаев, которые не выражаются через Field.
func Custom[S, D any](name string, fn func(src *S, dst *D) bool) Rule[S, D] {
	return Rule[S, D]{name: name, apply: fn}
}

// ============================================
// Bidirectional (ReverseMap)
// ============================================

// Pair описывает одно соответствие полей A <-> B.
type Pair[A, B any] struct {
	forward Rule[A, B]
	reverse Rule[B, A]
}

// Bind объявляет соответствие поля A и поля B одного типа.
// name - имя поля на стороне B; reverse правило получает имя aName.
func Bind[A, B, V any](aName, bName string, getA func(*A) V, setA func(*A, V), getB func(*B) V, setB func(*B, V)) Pair[A, B] {
	return Pair[A, B]{
		forward: Field(bName, getA, setB),
		reverse: Field(aName, getB, setA),
	}
}

// Bidirectional строит прямую и обратную карты из одного объявления.
func Bidirectional[A, B any](pairs ...Pair[A, B]) (*Map[A, B], *Map[B, A]) {
	forward := make([]Rule[A, B], 0, len(pairs))
	reverse := make([]Rule[B, A], 0, len(pairs))
	for _, p := range pairs {
		forward = append(forward, p.forward)
		reverse = append(reverse, p.reverse)
	}
	return New(forward...), New(reverse...)
}
