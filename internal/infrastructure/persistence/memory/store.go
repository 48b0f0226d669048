// Package memory - in-process реализация UnitOfWork и провайдеров.
//
// Каждый UnitOfWork работает с копией данных, снятой при открытии (copy-on-begin),
// и подменяет ею общее состояние при COMMIT. ROLLBACK - просто отбросить копию.
// Store допускает один открытый UnitOfWork за раз: остальные ждут
// (или выходят по ctx.Done()).
//
// Используется в unit-тестах и при database.driver=memory.
//
// Pattern: Unit of Work + Snapshot Isolation (single writer)
package memory

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/Haleralex/catalog/internal/application/ports"
	"github.com/Haleralex/catalog/internal/domain/entities"
	domainErrors "github.com/Haleralex/catalog/internal/domain/errors"
)

// Compile-time check
var _ ports.UnitOfWorkFactory = (*Store)(nil)

// Table names (используются в Op ошибок и в счётчиках идентификаторов).
const (
	tableProduct         = "product"
	tableProductCategory = "product_category"
	tableProductType     = "product_type"
)

// dataset - полное состояние хранилища.
type dataset struct {
	products   map[int]*entities.Product
	categories map[int]*entities.ProductCategory
	types      map[int]*entities.ProductType
	outbox     []ports.OutboxRecord
	seq        map[string]int // последний выданный ID по таблице
}

func newDataset() *dataset {
	return &dataset{
		products:   make(map[int]*entities.Product),
		categories: make(map[int]*entities.ProductCategory),
		types:      make(map[int]*entities.ProductType),
		seq:        make(map[string]int),
	}
}

func (d *dataset) clone() *dataset {
	c := &dataset{
		products:   make(map[int]*entities.Product, len(d.products)),
		categories: make(map[int]*entities.ProductCategory, len(d.categories)),
		types:      make(map[int]*entities.ProductType, len(d.types)),
		outbox:     slices.Clone(d.outbox),
		seq:        maps.Clone(d.seq),
	}
	for id, p := range d.products {
		c.products[id] = p.Clone()
	}
	for id, pc := range d.categories {
		c.categories[id] = pc.Clone()
	}
	for id, pt := range d.types {
		c.types[id] = pt.Clone()
	}
	return c
}

// nextID выдаёт следующий ID таблицы (аналог SERIAL).
func (d *dataset) nextID(table string) int {
	d.seq[table]++
	return d.seq[table]
}

// observeID сдвигает счётчик, если сущность добавлена с явным ID.
func (d *dataset) observeID(table string, id int) {
	if id > d.seq[table] {
		d.seq[table] = id
	}
}

// Store - in-memory хранилище каталога и фабрика UnitOfWork.
//
// Thread-safe: UnitOfWork сериализуются семафором.
type Store struct {
	sem  chan struct{}
	data *dataset
}

// NewStore создаёт пустое хранилище.
func NewStore() *Store {
	return &Store{
		sem:  make(chan struct{}, 1),
		data: newDataset(),
	}
}

func (s *Store) acquire(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return domainErrors.NewDatabaseError("memory.begin", err)
	}
	select {
	case s.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return domainErrors.NewDatabaseError("memory.begin", ctx.Err())
	}
}

func (s *Store) release() {
	<-s.sem
}

// Ping всегда успешен: хранилище живёт в процессе.
func (s *Store) Ping(ctx context.Context) error {
	return ctx.Err()
}

// Execute выполняет fn внутри UnitOfWork.
//
// Поведение:
// - Если ctx несёт сессию этого Store - fn присоединяется к ней;
//   ошибка или panic fn помечает сессию rollback-only, COMMIT внешнего scope станет ROLLBACK
// - Иначе снимает копию данных, выполняет fn, при nil подменяет состояние (COMMIT)
// - При error или panic копия отбрасывается (ROLLBACK), panic всплывает дальше
func (s *Store) Execute(ctx context.Context, fn func(ctx context.Context, uow ports.UnitOfWork) error) error {
	if sess := sessionFrom(ctx); sess != nil && sess.store == s {
		if err := sess.active("memory.execute"); err != nil {
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

	if err := s.acquire(ctx); err != nil {
		return err
	}
	defer s.release()

	sess := s.open()
	defer sess.finish()

	if err := fn(withSession(ctx, sess), sess.uow); err != nil {
		return err
	}
	if sess.isRollbackOnly() {
		return domainErrors.ErrRollbackOnly
	}

	s.data = sess.data
	return nil
}

// Begin открывает явный TransactionScope. Store занят до Complete/Close.
// Begin с контекстом, уже несущим сессию, присоединяется к ней: решение о COMMIT
// принимает внешний scope.
func (s *Store) Begin(ctx context.Context) (ports.TransactionScope, error) {
	if sess := sessionFrom(ctx); sess != nil && sess.store == s {
		if err := sess.active("memory.begin"); err != nil {
			return nil, err
		}
		return &scope{ctx: ctx, sess: sess, joined: true}, nil
	}

	if err := s.acquire(ctx); err != nil {
		return nil, err
	}

	sess := s.open()
	return &scope{store: s, sess: sess, ctx: withSession(ctx, sess)}, nil
}

func (s *Store) open() *session {
	sess := &session{store: s, data: s.data.clone()}
	sess.uow = newUnitOfWork(sess)
	return sess
}

// ============================================
// Session
// ============================================

// session - одна транзакция: рабочая копия данных и выданные провайдеры.
type session struct {
	store *Store
	data  *dataset
	uow   *unitOfWork
	done  atomic.Bool

	// rollbackOnly - вложенная работа завершилась ошибкой
	rollbackOnly atomic.Bool
}

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

type sessionKey struct{}

func withSession(ctx context.Context, sess *session) context.Context {
	return context.WithValue(ctx, sessionKey{}, sess)
}

func sessionFrom(ctx context.Context) *session {
	sess, _ := ctx.Value(sessionKey{}).(*session)
	return sess
}

// ============================================
// TransactionScope
// ============================================

var _ ports.TransactionScope = (*scope)(nil)

type scope struct {
	store  *Store
	sess   *session
	ctx    context.Context
	joined bool

	mu     sync.Mutex
	closed bool
}

func (sc *scope) Context() context.Context {
	return sc.ctx
}

// Complete фиксирует изменения сессии.
// Сессия с пометкой rollback-only откатывается, Complete возвращает ErrRollbackOnly.
func (sc *scope) Complete(_ context.Context) error {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if sc.closed {
		return domainErrors.ErrScopeClosed
	}
	sc.closed = true
	if sc.joined {
		return nil
	}

	if err := sc.sess.active("memory.complete"); err != nil {
		return fmt.Errorf("failed to commit scope: %w", err)
	}
	sc.sess.finish()
	defer sc.store.release()
	if sc.sess.isRollbackOnly() {
		return domainErrors.ErrRollbackOnly
	}
	sc.store.data = sc.sess.data
	return nil
}

// Close отбрасывает изменения, если Complete не вызывался.
// Вложенный scope, закрытый без Complete, помечает внешнюю сессию rollback-only.
func (sc *scope) Close(_ context.Context) error {
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
	sc.store.release()
	return nil
}

// ============================================
// UnitOfWork
// ============================================

var _ ports.UnitOfWork = (*unitOfWork)(nil)

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
