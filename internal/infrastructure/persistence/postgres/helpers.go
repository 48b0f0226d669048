// Package postgres - вспомогательные функции для работы с PostgreSQL.
package postgres

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	domainErrors "github.com/Haleralex/catalog/internal/domain/errors"
	"github.com/Haleralex/catalog/internal/pkg/metrics"
)

// querier - абстракция для выполнения запросов.
// Позволяет использовать как pool, так и transaction.
type querier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// session - одна транзакция UnitOfWork и выданные на неё провайдеры.
type session struct {
	factory *UnitOfWorkFactory
	tx      pgx.Tx
	uow     *unitOfWork
	done    atomic.Bool

	// rollbackOnly - вложенная работа завершилась ошибкой
	rollbackOnly atomic.Bool
}

// active возвращает *InvalidStateError, если транзакция уже завершена.
func (s *session) active(op string) error {
	if s.done.Load() {
		return domainErrors.NewInvalidStateError(op, domainErrors.ErrUnitOfWorkFinished.Error())
	}
	return nil
}

func (s *session) finish() {
	s.done.Store(true)
}

func (s *session) markRollbackOnly() {
	s.rollbackOnly.Store(true)
}

func (s *session) isRollbackOnly() bool {
	return s.rollbackOnly.Load()
}

// querier возвращает транзакцию сессии.
func (s *session) querier() querier {
	return s.tx
}

// txKey - ключ для хранения сессии в context.
type txKey struct{}

// injectTx добавляет сессию в context.
// Используется UnitOfWorkFactory для передачи транзакции во вложенные Execute.
func injectTx(ctx context.Context, s *session) context.Context {
	return context.WithValue(ctx, txKey{}, s)
}

// extractTx извлекает сессию из context.
// Возвращает nil если транзакции нет.
func extractTx(ctx context.Context) *session {
	s, ok := ctx.Value(txKey{}).(*session)
	if !ok {
		return nil
	}
	return s
}

// PostgreSQL error codes
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgCheckViolation      = "23514"
)

// asPgError извлекает *pgconn.PgError из цепочки ошибок.
func asPgError(err error) (*pgconn.PgError, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr, true
	}
	return nil, false
}

// dbError переводит ошибку драйвера в *errors.DatabaseError и учитывает её в метриках.
// pgx.ErrNoRows сюда не попадает: его переводят в ErrEntityNotFound вызывающие методы.
func dbError(op string, err error) error {
	dbErr := &domainErrors.DatabaseError{Op: op, Err: err}
	if pgErr, ok := asPgError(err); ok {
		dbErr.Code = pgErr.Code
		dbErr.Constraint = pgErr.ConstraintName
	}

	code := dbErr.Code
	if code == "" {
		code = "other"
	}
	metrics.RecordDBError(op, code)
	return dbErr
}

// observe записывает длительность запроса. Использование: defer observe(op, table)()
func observe(operation, table string) func() {
	start := time.Now()
	return func() {
		metrics.RecordDBQuery(operation, table, time.Since(start))
	}
}
