// Package ports определяет интерфейсы (порты) для внешних зависимостей.
// Эти интерфейсы реализуются в Infrastructure Layer.
//
// SOLID Principles:
// - DIP: Application зависит от абстракций, не от конкретных реализаций
// - ISP: Provider покрывает CRUD одной сущности, специализированные методы в отдельных интерфейсах
// - SRP: Provider отвечает только за persistence
//
// Pattern: Generic Repository (Provider) + Ports & Adapters (Hexagonal Architecture)
package ports

import (
	"context"

	"github.com/Haleralex/catalog/internal/domain/entities"
)

// Operator - оператор сравнения в Criterion.
type Operator string

const (
	OpEq       Operator = "eq"
	OpNe       Operator = "ne"
	OpLt       Operator = "lt"
	OpLte      Operator = "lte"
	OpGt       Operator = "gt"
	OpGte      Operator = "gte"
	OpContains Operator = "contains" // case-insensitive substring
	OpIsNull   Operator = "is_null"
	OpNotNull  Operator = "not_null"
)

// Criterion - одно условие фильтрации: Field Op Value.
// Field - имя поля сущности (константы из entities).
type Criterion struct {
	Field string
	Op    Operator
	Value any
}

func Eq(field string, v any) Criterion       { return Criterion{Field: field, Op: OpEq, Value: v} }
func Ne(field string, v any) Criterion       { return Criterion{Field: field, Op: OpNe, Value: v} }
func Lt(field string, v any) Criterion       { return Criterion{Field: field, Op: OpLt, Value: v} }
func Lte(field string, v any) Criterion      { return Criterion{Field: field, Op: OpLte, Value: v} }
func Gt(field string, v any) Criterion       { return Criterion{Field: field, Op: OpGt, Value: v} }
func Gte(field string, v any) Criterion      { return Criterion{Field: field, Op: OpGte, Value: v} }
func Contains(field, s string) Criterion     { return Criterion{Field: field, Op: OpContains, Value: s} }
func IsNull(field string) Criterion          { return Criterion{Field: field, Op: OpIsNull} }
func NotNull(field string) Criterion         { return Criterion{Field: field, Op: OpNotNull} }

// Query - ленивая выборка. Ничего не читает из хранилища до List/First/Count.
// Каждый вызов builder-метода возвращает новый Query, исходный не меняется.
type Query[T any] interface {
	Where(c Criterion) Query[T]
	// Include загружает связи (entities.RelationCategory, entities.RelationType).
	Include(relations ...string) Query[T]
	OrderBy(field string, desc bool) Query[T]
	Offset(n int) Query[T]
	Limit(n int) Query[T]

	List(ctx context.Context) ([]*T, error)
	// First возвращает errors.ErrEntityNotFound если выборка пуста.
	First(ctx context.Context) (*T, error)
	Count(ctx context.Context) (int, error)
}

// Provider определяет CRUD контракт над одной сущностью, привязанный к сессии UnitOfWork.
//
// Ошибки:
// - errors.ErrEntityNotFound - только GetByID/First при отсутствии записи
// - *errors.DatabaseError - любой сбой хранилища (никогда не превращается в NotFound)
// - *errors.InvalidStateError - Provider используется после завершения UnitOfWork
type Provider[T any] interface {
	// GetAll возвращает ленивую выборку всех сущностей.
	GetAll() Query[T]

	// GetByID загружает сущность по ID.
	GetByID(ctx context.Context, id int) (*T, error)

	// Add сохраняет новую сущность и записывает присвоенный ID в entity.
	Add(ctx context.Context, entity *T) error

	// Update записывает все колонки entity.
	Update(ctx context.Context, entity *T) error

	// Delete удаляет сущность и сообщает, существовал ли ID.
	Delete(ctx context.Context, id int) (bool, error)
}

// ProductProvider - Provider продуктов с проверкой уникальности номера.
type ProductProvider interface {
	Provider[entities.Product]

	// ExistsByProductNumber проверяет существование без загрузки всей entity.
	// excludeID > 0 исключает продукт с этим ID (для update).
	ExistsByProductNumber(ctx context.Context, number string, excludeID int) (bool, error)
}
