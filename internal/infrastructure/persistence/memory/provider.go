package memory

import (
	"context"
	"fmt"
	"maps"
	"slices"

	"github.com/Haleralex/catalog/internal/application/ports"
	"github.com/Haleralex/catalog/internal/domain/entities"
	domainErrors "github.com/Haleralex/catalog/internal/domain/errors"
)

// SQLSTATE коды, которыми помечаются нарушения ограничений (совпадают с PostgreSQL).
const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
)

// record - ограничение для сущностей, которые хранит table.
type record[T any] interface {
	*T
	entities.Record
	Clone() *T
}

// table - generic Provider над одной map из dataset.
//
// Хранимые сущности никогда не отдаются наружу: чтение возвращает копию,
// запись сохраняет копию. Связи в хранилище не лежат, их собирает Include.
type table[T any, P record[T]] struct {
	sess  *session
	name  string
	rows  func(d *dataset) map[int]*T
	check func(d *dataset, e *T) error // ограничения перед Add/Update
	guard func(d *dataset, id int) error // ограничения перед Delete
	load  func(d *dataset, e *T, relation string) error
}

var _ ports.Provider[entities.ProductCategory] = (*table[entities.ProductCategory, *entities.ProductCategory])(nil)

func (t *table[T, P]) ready(ctx context.Context, op string) error {
	if err := t.sess.active(t.name + "." + op); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return domainErrors.NewDatabaseError(t.name+"."+op, err)
	}
	return nil
}

// GetAll возвращает ленивую выборку.
func (t *table[T, P]) GetAll() ports.Query[T] {
	return query[T, P]{t: t}
}

// GetByID возвращает копию сущности или ErrEntityNotFound.
func (t *table[T, P]) GetByID(ctx context.Context, id int) (*T, error) {
	if err := t.ready(ctx, "get"); err != nil {
		return nil, err
	}
	row, ok := t.rows(t.sess.data)[id]
	if !ok {
		return nil, fmt.Errorf("%s %d: %w", t.name, id, domainErrors.ErrEntityNotFound)
	}
	return P(row).Clone(), nil
}

// Add сохраняет новую сущность. Нулевой ID выдаётся счётчиком таблицы.
func (t *table[T, P]) Add(ctx context.Context, entity *T) error {
	op := t.name + ".add"
	if err := t.ready(ctx, "add"); err != nil {
		return err
	}

	d := t.sess.data
	rows := t.rows(d)
	e := P(entity)

	if id := e.Identity(); id != 0 {
		if _, exists := rows[id]; exists {
			return &domainErrors.DatabaseError{
				Op:         op,
				Code:       codeUniqueViolation,
				Constraint: t.name + "_pkey",
				Err:        domainErrors.ErrEntityAlreadyExists,
			}
		}
	}
	if t.check != nil {
		if err := t.check(d, entity); err != nil {
			return err
		}
	}

	if e.Identity() == 0 {
		e.AssignIdentity(d.nextID(t.name))
	} else {
		d.observeID(t.name, e.Identity())
	}
	rows[e.Identity()] = e.Clone()
	return nil
}

// Update перезаписывает все поля сохранённой сущности.
func (t *table[T, P]) Update(ctx context.Context, entity *T) error {
	if err := t.ready(ctx, "update"); err != nil {
		return err
	}

	d := t.sess.data
	rows := t.rows(d)
	e := P(entity)

	if _, ok := rows[e.Identity()]; !ok {
		return fmt.Errorf("%s %d: %w", t.name, e.Identity(), domainErrors.ErrEntityNotFound)
	}
	if t.check != nil {
		if err := t.check(d, entity); err != nil {
			return err
		}
	}
	rows[e.Identity()] = e.Clone()
	return nil
}

// Delete удаляет сущность. false - ID не существовал.
func (t *table[T, P]) Delete(ctx context.Context, id int) (bool, error) {
	if err := t.ready(ctx, "delete"); err != nil {
		return false, err
	}

	d := t.sess.data
	rows := t.rows(d)
	if _, ok := rows[id]; !ok {
		return false, nil
	}
	if t.guard != nil {
		if err := t.guard(d, id); err != nil {
			return false, err
		}
	}
	delete(rows, id)
	return true, nil
}

// ============================================
// Query
// ============================================

// query - неизменяемое описание выборки. Builder-методы работают с копией (value receiver).
type query[T any, P record[T]] struct {
	t        *table[T, P]
	criteria []ports.Criterion
	includes []string
	orderBy  string
	desc     bool
	offset   int
	limit    int
}

func (q query[T, P]) Where(c ports.Criterion) ports.Query[T] {
	q.criteria = append(slices.Clip(q.criteria), c)
	return q
}

func (q query[T, P]) Include(relations ...string) ports.Query[T] {
	q.includes = append(slices.Clip(q.includes), relations...)
	return q
}

func (q query[T, P]) OrderBy(field string, desc bool) ports.Query[T] {
	q.orderBy, q.desc = field, desc
	return q
}

func (q query[T, P]) Offset(n int) ports.Query[T] {
	q.offset = max(n, 0)
	return q
}

func (q query[T, P]) Limit(n int) ports.Query[T] {
	q.limit = max(n, 0)
	return q
}

// List материализует выборку: фильтр, сортировка (по умолчанию по ID), offset/limit, связи.
func (q query[T, P]) List(ctx context.Context) ([]*T, error) {
	rows, err := q.selectRows(ctx, "list")
	if err != nil {
		return nil, err
	}

	d := q.t.sess.data
	out := make([]*T, 0, len(rows))
	for _, row := range rows {
		e := P(row).Clone()
		for _, rel := range q.includes {
			if err := q.t.load(d, e, rel); err != nil {
				return nil, err
			}
		}
		out = append(out, e)
	}
	return out, nil
}

// First возвращает первую сущность выборки или ErrEntityNotFound.
func (q query[T, P]) First(ctx context.Context) (*T, error) {
	q.limit = 1
	list, err := q.List(ctx)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, fmt.Errorf("%s: %w", q.t.name, domainErrors.ErrEntityNotFound)
	}
	return list[0], nil
}

// Count возвращает число сущностей, которые вернул бы List.
func (q query[T, P]) Count(ctx context.Context) (int, error) {
	rows, err := q.selectRows(ctx, "count")
	if err != nil {
		return 0, err
	}
	return len(rows), nil
}

func (q query[T, P]) selectRows(ctx context.Context, op string) ([]*T, error) {
	if err := q.t.ready(ctx, op); err != nil {
		return nil, err
	}
	if err := q.validate(); err != nil {
		return nil, domainErrors.NewInvalidStateError(q.t.name+"."+op, err.Error())
	}

	all := q.t.rows(q.t.sess.data)
	rows := make([]*T, 0, len(all))
	for _, id := range slices.Sorted(maps.Keys(all)) {
		ok, err := matchAll(P(all[id]), q.criteria)
		if err != nil {
			return nil, domainErrors.NewInvalidStateError(q.t.name+"."+op, err.Error())
		}
		if ok {
			rows = append(rows, all[id])
		}
	}

	if q.orderBy != "" {
		slices.SortStableFunc(rows, func(a, b *T) int {
			va, _ := P(a).FieldValue(q.orderBy)
			vb, _ := P(b).FieldValue(q.orderBy)
			return orderValues(va, vb, q.desc)
		})
	}

	if q.offset >= len(rows) {
		return rows[:0], nil
	}
	rows = rows[q.offset:]
	if q.limit > 0 && q.limit < len(rows) {
		rows = rows[:q.limit]
	}
	return rows, nil
}

func (q query[T, P]) validate() error {
	probe := P(new(T))
	if q.orderBy != "" {
		if _, ok := probe.FieldValue(q.orderBy); !ok {
			return fmt.Errorf("unknown order field %q", q.orderBy)
		}
	}
	for _, rel := range q.includes {
		if q.t.load == nil {
			return fmt.Errorf("%s has no relation %q", q.t.name, rel)
		}
	}
	return nil
}
