package postgres

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/Haleralex/catalog/internal/application/ports"
	"github.com/Haleralex/catalog/internal/domain/entities"
	domainErrors "github.com/Haleralex/catalog/internal/domain/errors"
)

// record - ограничение для сущностей, которые читает и пишет table.
type record[T any] interface {
	*T
	entities.Record
}

// table - generic Provider над одной таблицей, работающий в транзакции сессии.
type table[T any, P record[T]] struct {
	sess   *session
	schema schema[T]
	// load заполняет связи у уже прочитанных строк (один запрос на связь).
	load func(ctx context.Context, sess *session, rows []*T, relation string) error
}

var _ ports.Provider[entities.ProductType] = (*table[entities.ProductType, *entities.ProductType])(nil)

func (t *table[T, P]) op(name string) string {
	return t.schema.table + "." + name
}

func (t *table[T, P]) ready(ctx context.Context, op string) error {
	if err := t.sess.active(t.op(op)); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return domainErrors.NewDatabaseError(t.op(op), err)
	}
	return nil
}

// GetAll возвращает ленивую выборку.
func (t *table[T, P]) GetAll() ports.Query[T] {
	return query[T, P]{t: t}
}

// GetByID загружает сущность по первичному ключу.
func (t *table[T, P]) GetByID(ctx context.Context, id int) (*T, error) {
	if err := t.ready(ctx, "get"); err != nil {
		return nil, err
	}
	defer observe("get", t.schema.table)()

	sql := fmt.Sprintf("SELECT %s FROM %s WHERE %s = $1",
		t.schema.selectList(), t.schema.table, t.schema.pk().name)

	e := new(T)
	if err := t.sess.querier().QueryRow(ctx, sql, id).Scan(t.schema.dests(e)...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%s %d: %w", t.schema.table, id, domainErrors.ErrEntityNotFound)
		}
		return nil, dbError(t.op("get"), err)
	}
	return e, nil
}

// Add вставляет сущность и записывает присвоенный ID.
// Ненулевой ID вставляется явно (identity BY DEFAULT).
func (t *table[T, P]) Add(ctx context.Context, entity *T) error {
	if err := t.ready(ctx, "add"); err != nil {
		return err
	}
	defer observe("add", t.schema.table)()

	e := P(entity)
	sql, args := t.schema.insertSQL(entity, e.Identity() != 0)

	var id int
	if err := t.sess.querier().QueryRow(ctx, sql, args...).Scan(&id); err != nil {
		return dbError(t.op("add"), err)
	}
	e.AssignIdentity(id)
	return nil
}

// Update записывает все колонки. ErrEntityNotFound - строки с таким ID нет.
func (t *table[T, P]) Update(ctx context.Context, entity *T) error {
	if err := t.ready(ctx, "update"); err != nil {
		return err
	}
	defer observe("update", t.schema.table)()

	sql, args := t.schema.updateSQL(entity)
	tag, err := t.sess.querier().Exec(ctx, sql, args...)
	if err != nil {
		return dbError(t.op("update"), err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s %d: %w", t.schema.table, P(entity).Identity(), domainErrors.ErrEntityNotFound)
	}
	return nil
}

// Delete удаляет строку. false - ID не существовал.
func (t *table[T, P]) Delete(ctx context.Context, id int) (bool, error) {
	if err := t.ready(ctx, "delete"); err != nil {
		return false, err
	}
	defer observe("delete", t.schema.table)()

	sql := fmt.Sprintf("DELETE FROM %s WHERE %s = $1", t.schema.table, t.schema.pk().name)
	tag, err := t.sess.querier().Exec(ctx, sql, id)
	if err != nil {
		return false, dbError(t.op("delete"), err)
	}
	return tag.RowsAffected() > 0, nil
}

// fetch выполняет SELECT и сканирует все строки.
func (t *table[T, P]) fetch(ctx context.Context, op, sql string, args ...any) ([]*T, error) {
	rows, err := t.sess.querier().Query(ctx, sql, args...)
	if err != nil {
		return nil, dbError(t.op(op), err)
	}
	defer rows.Close()

	var out []*T
	for rows.Next() {
		e := new(T)
		if err := rows.Scan(t.schema.dests(e)...); err != nil {
			return nil, dbError(t.op(op), err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, dbError(t.op(op), err)
	}
	return out, nil
}

// byIDs загружает строки по набору ID (для Include).
func (t *table[T, P]) byIDs(ctx context.Context, ids []int) (map[int]*T, error) {
	out := make(map[int]*T, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	defer observe("include", t.schema.table)()

	sql := fmt.Sprintf("SELECT %s FROM %s WHERE %s = ANY($1::int4[])",
		t.schema.selectList(), t.schema.table, t.schema.pk().name)
	rows, err := t.fetch(ctx, "include", sql, ids)
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[P(row).Identity()] = row
	}
	return out, nil
}

// ============================================
// Query
// ============================================

// query - неизменяемое описание выборки, превращаемое в один SELECT.
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

// List выполняет SELECT и догружает связи.
func (q query[T, P]) List(ctx context.Context) ([]*T, error) {
	if err := q.t.ready(ctx, "list"); err != nil {
		return nil, err
	}
	body, args, err := q.build()
	if err != nil {
		return nil, domainErrors.NewInvalidStateError(q.t.op("list"), err.Error())
	}

	done := observe("list", q.t.schema.table)
	rows, err := q.t.fetch(ctx, "list",
		fmt.Sprintf("SELECT %s %s", q.t.schema.selectList(), body), args...)
	done()
	if err != nil {
		return nil, err
	}

	for _, rel := range q.includes {
		if err := q.t.load(ctx, q.t.sess, rows, rel); err != nil {
			return nil, err
		}
	}
	if rows == nil {
		rows = []*T{}
	}
	return rows, nil
}

// First возвращает первую строку выборки или ErrEntityNotFound.
func (q query[T, P]) First(ctx context.Context) (*T, error) {
	q.limit = 1
	list, err := q.List(ctx)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, fmt.Errorf("%s: %w", q.t.schema.table, domainErrors.ErrEntityNotFound)
	}
	return list[0], nil
}

// Count возвращает число строк, которые вернул бы List (с учётом offset/limit).
func (q query[T, P]) Count(ctx context.Context) (int, error) {
	if err := q.t.ready(ctx, "count"); err != nil {
		return 0, err
	}
	body, args, err := q.build()
	if err != nil {
		return 0, domainErrors.NewInvalidStateError(q.t.op("count"), err.Error())
	}
	defer observe("count", q.t.schema.table)()

	var n int
	sql := fmt.Sprintf("SELECT count(*) FROM (SELECT 1 %s) AS page", body)
	if err := q.t.sess.querier().QueryRow(ctx, sql, args...).Scan(&n); err != nil {
		return 0, dbError(q.t.op("count"), err)
	}
	return n, nil
}

// build возвращает "FROM ... WHERE ... ORDER BY ... LIMIT ... OFFSET ..." и параметры.
func (q query[T, P]) build() (string, []any, error) {
	s := q.t.schema
	var (
		b    strings.Builder
		args []any
	)
	b.WriteString("FROM " + s.table)

	for i, c := range q.criteria {
		cond, err := q.condition(c, &args)
		if err != nil {
			return "", nil, err
		}
		if i == 0 {
			b.WriteString(" WHERE ")
		} else {
			b.WriteString(" AND ")
		}
		b.WriteString(cond)
	}

	b.WriteString(" ORDER BY ")
	if q.orderBy != "" {
		col, ok := s.column(q.orderBy)
		if !ok {
			return "", nil, fmt.Errorf("unknown order field %q", q.orderBy)
		}
		dir := "ASC"
		if q.desc {
			dir = "DESC"
		}
		fmt.Fprintf(&b, "%s %s NULLS LAST, ", col.name, dir)
	}
	b.WriteString(s.pk().name + " ASC")

	if q.limit > 0 {
		b.WriteString(" LIMIT " + strconv.Itoa(q.limit))
	}
	if q.offset > 0 {
		b.WriteString(" OFFSET " + strconv.Itoa(q.offset))
	}

	if len(q.includes) > 0 && q.t.load == nil {
		return "", nil, fmt.Errorf("%s has no relation %q", s.table, q.includes[0])
	}
	return b.String(), args, nil
}

// condition переводит Criterion в SQL. Параметры добавляются в args.
func (q query[T, P]) condition(c ports.Criterion, args *[]any) (string, error) {
	col, ok := q.t.schema.column(c.Field)
	if !ok {
		return "", fmt.Errorf("unknown field %q", c.Field)
	}

	switch c.Op {
	case ports.OpIsNull:
		return col.name + " IS NULL", nil
	case ports.OpNotNull:
		return col.name + " IS NOT NULL", nil
	}

	v, err := bind(col.kind, c.Value)
	if err != nil {
		return "", fmt.Errorf("field %q: %w", c.Field, err)
	}

	if c.Op == ports.OpContains {
		s, ok := v.(string)
		if col.kind != kindText || !ok {
			return "", fmt.Errorf("field %q: contains requires strings", c.Field)
		}
		*args = append(*args, likePattern(s))
		return fmt.Sprintf(`%s ILIKE $%d::text ESCAPE '\'`, col.name, len(*args)), nil
	}

	var sqlOp string
	switch c.Op {
	case ports.OpEq:
		sqlOp = "="
	case ports.OpNe:
		sqlOp = "<>"
	case ports.OpLt:
		sqlOp = "<"
	case ports.OpLte:
		sqlOp = "<="
	case ports.OpGt:
		sqlOp = ">"
	case ports.OpGte:
		sqlOp = ">="
	default:
		return "", fmt.Errorf("unknown operator %q", c.Op)
	}

	*args = append(*args, v)
	return fmt.Sprintf("%s %s $%d%s", col.name, sqlOp, len(*args), col.kind.cast()), nil
}
