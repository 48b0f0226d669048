// Package ports - UnitOfWork паттерн для управления транзакциями.
//
// SOLID Principles:
// - SRP: UnitOfWork отвечает только за границы транзакций и выдачу провайдеров
// - DIP: Application не знает о деталях БД транзакций
//
// Pattern: Unit of Work
// - Один UnitOfWork = одна сессия/транзакция
// - Все Provider из одного UnitOfWork разделяют транзакцию
// - Автоматический rollback при ошибке или panic
package ports

import (
	"context"

	"github.com/Haleralex/catalog/internal/domain/entities"
)

// UnitOfWork выдаёт типизированные провайдеры, привязанные к одной транзакции.
//
// Провайдеры нельзя сохранять за пределами Execute: после завершения
// UnitOfWork любой вызов вернёт *errors.InvalidStateError.
type UnitOfWork interface {
	Products() ProductProvider
	ProductCategories() Provider[entities.ProductCategory]
	ProductTypes() Provider[entities.ProductType]

	// Outbox пишет события в той же транзакции (Transactional Outbox).
	Outbox() OutboxRepository
}

// UnitOfWorkFactory открывает UnitOfWork на время одной логической операции.
//
// Пример использования:
//
//	err := factory.Execute(ctx, func(ctx context.Context, uow ports.UnitOfWork) error {
//	    product, err := uow.Products().GetByID(ctx, id)
//	    if err != nil {
//	        return err // Автоматический rollback
//	    }
//	    product.Name = "New name"
//	    return uow.Products().Update(ctx, product) // COMMIT после возврата nil
//	})
type UnitOfWorkFactory interface {
	// Execute выполняет fn внутри транзакции.
	//
	// Поведение:
	// - Если ctx несёт ambient scope (см. Begin) - fn присоединяется к нему, commit не делается
	//   ошибка fn помечает транзакцию rollback-only
	// - Иначе начинает транзакцию, COMMIT при nil, ROLLBACK при error или panic (panic re-raised)
	Execute(ctx context.Context, fn func(ctx context.Context, uow UnitOfWork) error) error

	// Begin открывает явный TransactionScope. Все Execute с scope.Context()
	// работают в одной транзакции до Complete/Close.
	Begin(ctx context.Context) (TransactionScope, error)
}

// TransactionScope - явная граница транзакции, переживающая несколько Execute.
//
// Usage (тесты, пакетные операции):
//
//	scope, err := factory.Begin(ctx)
//	defer scope.Close(ctx) // ROLLBACK если Complete не вызван
//	svc.AddProduct(scope.Context(), req)
//	return scope.Complete(ctx)
type TransactionScope interface {
	// Context возвращает context с ambient транзакцией.
	Context() context.Context

	// Complete фиксирует транзакцию. Повторный вызов возвращает errors.ErrScopeClosed.
	// Если вложенный Execute вернул ошибку (или вложенный scope закрыт без Complete),
	// транзакция откатывается и Complete возвращает errors.ErrRollbackOnly.
	Complete(ctx context.Context) error

	// Close откатывает транзакцию, если Complete не был вызван. Идемпотентен.
	// Вложенный scope не откатывает сам, а помечает внешнюю транзакцию rollback-only.
	Close(ctx context.Context) error
}
