// Package postgres - UnitOfWork implementation для PostgreSQL.
//
// Unit of Work Pattern:
// - Управляет границами транзакций
// - Выдаёт провайдеры, привязанные к одной pgx.Tx
// - Автоматический ROLLBACK при ошибках и panic
// - Automatic COMMIT при успехе
//
// Usage:
//
//	err := factory.Execute(ctx, func(ctx context.Context, uow ports.UnitOfWork) error {
//	    product, err := uow.Products().GetByID(ctx, 680)
//	    if err != nil {
//	        return err // ROLLBACK
//	    }
//	    product.Name = "HL Road Frame - Black, 60"
//	    return uow.Products().Update(ctx, product) // COMMIT
//	})
package postgres

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Haleralex/catalog/internal/application/ports"
	"github.com/Haleralex/catalog/internal/domain/entities"
	domainErrors "github.com/Haleralex/catalog/internal/domain/errors"
)

// Compile-time check
var _ ports.UnitOfWorkFactory = (*UnitOfWorkFactory)(nil)
var _ ports.UnitOfWork = (*unitOfWork)(nil)
var _ ports.TransactionScope = (*scope)(nil)

// UnitOfWorkFactory реализует ports.UnitOfWorkFactory с PostgreSQL транзакциями.
//
// Thread-safe: использует connection pool.
// Transaction isolation: по умолчанию READ COMMITTED.
type UnitOfWorkFactory struct {
	pool *pgxpool.Pool
	opts pgx.TxOptions
}

// NewUnitOfWorkFactory создаёт фабрику с уровнем изоляции READ COMMITTED.
func NewUnitOfWorkFactory(pool *pgxpool.Pool) *UnitOfWorkFactory {
	return NewUnitOfWorkFactoryWithIsolation(pool, pgx.ReadCommitted)
}

// NewUnitOfWorkFactoryWithIsolation создаёт фабрику с указанным уровнем изоляции.
//
// Уровни изоляции:
// - pgx.ReadCommitted (default): стандартный уровень, подходит для большинства случаев
// - pgx.RepeatableRead: гарантирует консистентность чтения в рамках транзакции
// - pgx.Serializable: полная изоляция, самая строгая (может вызвать retry при конфликтах)
func NewUnitOfWorkFactoryWithIsolation(pool *pgxpool.Pool, isolation pgx.TxIsoLevel) *UnitOfWorkFactory {
	return &UnitOfWorkFactory{
		pool: pool,
		opts: pgx.TxOptions{IsoLevel: isolation},
	}
}

// Ping проверяет доступность БД (readiness probe).
func (f *UnitOfWorkFactory) Ping(ctx context.Context) error {
	return HealthCheck(ctx, f.pool)
}

// Stats возвращает статистику пула для detailed health check.
func (f *UnitOfWorkFactory) Stats() map[string]string {
	stats := GetPoolStats(f.pool)
	return map[string]string{
		"db_total_conns":    strconv.Itoa(int(stats.TotalConns)),
		"db_idle_conns":     strconv.Itoa(int(stats.IdleConns)),
		"db_acquired_conns": strconv.Itoa(int(stats.AcquiredConns)),
		"db_max_conns":      strconv.Itoa(int(stats.MaxConns)),
	}
}

// Execute выполняет fn внутри транзакции.
//
// Поведение:
// - Если ctx уже несёт транзакцию этой фабрики - fn присоединяется к ней;
//   ошибка fn помечает транзакцию rollback-only
// - Иначе начинает транзакцию и внедряет её в context
// - Если fn возвращает nil: COMMIT
// - Если fn возвращает error: ROLLBACK
// - Если panic: ROLLBACK + re-panic
func (f *UnitOfWorkFactory) Execute(ctx context.Context, fn func(ctx context.Context, uow ports.UnitOfWork) error) error {
	// PostgreSQL не поддерживает true nested transactions, вложенный вызов работает в той же
	if sess := extractTx(ctx); sess != nil && sess.factory == f {
		if err := sess.active("postgres.execute"); err != nil {
			return err
		}
		defer func() {
			if r := recover(); r != nil {
				sess.markRollbackOnly()
				panic(r)
			}
		}()
		if err := fn(ctx, sess.uow); err != nil {
			sess.markRollbackOnly()
			return err
		}
		return nil
	}

	sess, err := f.open(ctx)
	if err != nil {
		return err
	}

	// Defer для гарантированного cleanup
	defer func() {
		if r := recover(); r != nil {
			// Panic - откатываем и re-panic
			sess.finish()
			_ = sess.tx.Rollback(context.WithoutCancel(ctx))
			panic(r)
		}
	}()

	if err := fn(injectTx(ctx, sess), sess.uow); err != nil {
		sess.finish()
		if rbErr := sess.tx.Rollback(context.WithoutCancel(ctx)); rbErr != nil {
			return fmt.Errorf("rollback failed: %v (original error: %w)", rbErr, err)
		}
		return err
	}

	sess.finish()
	if sess.isRollbackOnly() {
		if err := sess.tx.Rollback(context.WithoutCancel(ctx)); err != nil {
			return dbError("postgres.rollback", err)
		}
		return domainErrors.ErrRollbackOnly
	}
	if err := sess.tx.Commit(ctx); err != nil {
		return dbError("postgres.commit", err)
	}
	return nil
}

// Begin открывает явный TransactionScope.
// Если ctx уже несёт транзакцию, scope присоединяется к ней: решение о COMMIT за внешним.
func (f *UnitOfWorkFactory) Begin(ctx context.Context) (ports.TransactionScope, error) {
	if sess := extractTx(ctx); sess != nil && sess.factory == f {
		if err := sess.active("postgres.begin"); err != nil {
			return nil, err
		}
		return &scope{sess: sess, ctx: ctx, joined: true}, nil
	}

	sess, err := f.open(ctx)
	if err != nil {
		return nil, err
	}
	return &scope{sess: sess, ctx: injectTx(ctx, sess)}, nil
}

func (f *UnitOfWorkFactory) open(ctx context.Context) (*session, error) {
	tx, err := f.pool.BeginTx(ctx, f.opts)
	if err != nil {
		return nil, dbError("postgres.begin", err)
	}
	sess := &session{factory: f, tx: tx}
	sess.uow = newUnitOfWork(sess)
	return sess, nil
}

// ============================================
// TransactionScope
// ============================================

// scope - транзакция, переживающая несколько Execute.
type scope struct {
	sess   *session
	ctx    context.Context
	joined bool

	mu     sync.Mutex
	closed bool
}

func (sc *scope) Context() context.Context {
	return sc.ctx
}

// Complete делает COMMIT. Повторный вызов - ErrScopeClosed.
// Транзакция с пометкой rollback-only откатывается, Complete возвращает ErrRollbackOnly.
func (sc *scope) Complete(ctx context.Context) error {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if sc.closed {
		return domainErrors.ErrScopeClosed
	}
	sc.closed = true
	if sc.joined {
		return nil
	}

	sc.sess.finish()
	if sc.sess.isRollbackOnly() {
		if err := sc.sess.tx.Rollback(context.WithoutCancel(ctx)); err != nil {
			return dbError("postgres.rollback", err)
		}
		return domainErrors.ErrRollbackOnly
	}
	if err := sc.sess.tx.Commit(ctx); err != nil {
		return dbError("postgres.commit", err)
	}
	return nil
}

// Close делает ROLLBACK, если Complete не вызывался. Идемпотентен.
// Вложенный scope, закрытый без Complete, помечает внешнюю транзакцию rollback-only.
func (sc *scope) Close(ctx context.Context) error {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if sc.closed {
		return nil
	}
	sc.closed = true
	if sc.joined {
		sc.sess.markRollbackOnly()
		return nil
	}

	sc.sess.finish()
	if err := sc.sess.tx.Rollback(context.WithoutCancel(ctx)); err != nil {
		return dbError("postgres.rollback", err)
	}
	return nil
}

// ============================================
// UnitOfWork
// ============================================

// unitOfWork - набор провайдеров одной сессии.
type unitOfWork struct {
	products   *productProvider
	categories *table[entities.ProductCategory, *entities.ProductCategory]
	types      *table[entities.ProductType, *entities.ProductType]
	outbox     *outboxRepository
}

func newUnitOfWork(sess *session) *unitOfWork {
	return &unitOfWork{
		products:   newProductProvider(sess),
		categories: newCategoryTable(sess),
		types:      newTypeTable(sess),
		outbox:     &outboxRepository{sess: sess},
	}
}

func (u *unitOfWork) Products() ports.ProductProvider { return u.products }

func (u *unitOfWork) ProductCategories() ports.Provider[entities.ProductCategory] {
	return u.categories
}

func (u *unitOfWork) ProductTypes() ports.Provider[entities.ProductType] { return u.types }

func (u *unitOfWork) Outbox() ports.OutboxRepository { return u.outbox }
