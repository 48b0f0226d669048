package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Haleralex/catalog/internal/application/ports"
	"github.com/Haleralex/catalog/internal/domain/entities"
	domainErrors "github.com/Haleralex/catalog/internal/domain/errors"
	"github.com/Haleralex/catalog/internal/domain/valueobjects"
)

// inScope выполняет fn в scope, который откатывается после теста.
func inScope(t *testing.T, fn func(ctx context.Context, uow ports.UnitOfWork)) {
	t.Helper()
	s := seededStore(t)
	ctx := context.Background()

	scope, err := s.Begin(ctx)
	require.NoError(t, err)
	t.Cleanup(func() { _ = scope.Close(ctx) })

	require.NoError(t, s.Execute(scope.Context(), func(ctx context.Context, uow ports.UnitOfWork) error {
		fn(ctx, uow)
		return nil
	}))
}

func ids(products []*entities.Product) []int {
	out := make([]int, 0, len(products))
	for _, p := range products {
		out = append(out, p.ProductID)
	}
	return out
}

func TestGetByID(t *testing.T) {
	inScope(t, func(ctx context.Context, uow ports.UnitOfWork) {
		p, err := uow.Products().GetByID(ctx, 680)
		require.NoError(t, err)
		assert.Equal(t, "HL Road Frame - Black, 58", p.Name)
		assert.Nil(t, p.Category, "relations are not loaded by GetByID")

		_, err = uow.Products().GetByID(ctx, 1)
		assert.ErrorIs(t, err, domainErrors.ErrEntityNotFound)
	})
}

func TestGetByID_ReturnsCopy(t *testing.T) {
	inScope(t, func(ctx context.Context, uow ports.UnitOfWork) {
		p, err := uow.Products().GetByID(ctx, 680)
		require.NoError(t, err)
		p.Name = "changed without Update"

		again, err := uow.Products().GetByID(ctx, 680)
		require.NoError(t, err)
		assert.Equal(t, "HL Road Frame - Black, 58", again.Name)
	})
}

func TestAdd_UniqueProductNumber(t *testing.T) {
	inScope(t, func(ctx context.Context, uow ports.UnitOfWork) {
		err := uow.Products().Add(ctx, newProduct("HL-U509"))

		require.Error(t, err)
		assert.True(t, domainErrors.IsUniqueViolation(err))
		assert.False(t, domainErrors.IsNotFound(err))

		var dbErr *domainErrors.DatabaseError
		require.ErrorAs(t, err, &dbErr)
		assert.Equal(t, constraintProductNumber, dbErr.Constraint)
	})
}

func TestAdd_ForeignKey(t *testing.T) {
	inScope(t, func(ctx context.Context, uow ports.UnitOfWork) {
		p := newProduct("A62037")
		missing := 9999
		p.ProductCategoryID = &missing

		err := uow.Products().Add(ctx, p)

		assert.True(t, domainErrors.IsDatabaseError(err))
		assert.False(t, domainErrors.IsNotFound(err), "storage faults are never not-found")
		assert.Zero(t, p.ProductID)
	})
}

func TestAdd_DuplicateIdentity(t *testing.T) {
	inScope(t, func(ctx context.Context, uow ports.UnitOfWork) {
		err := uow.ProductCategories().Add(ctx, &entities.ProductCategory{ProductCategoryID: 18, Name: "Again"})
		assert.True(t, domainErrors.IsUniqueViolation(err))
	})
}

func TestUpdate(t *testing.T) {
	inScope(t, func(ctx context.Context, uow ports.UnitOfWork) {
		p, err := uow.Products().GetByID(ctx, 680)
		require.NoError(t, err)

		p.ListPrice = valueobjects.MustMoney("10")
		require.NoError(t, uow.Products().Update(ctx, p))

		again, err := uow.Products().GetByID(ctx, 680)
		require.NoError(t, err)
		assert.Equal(t, "10", again.ListPrice.String())

		err = uow.Products().Update(ctx, &entities.Product{ProductID: 1, ProductNumber: "ZZ-1"})
		assert.ErrorIs(t, err, domainErrors.ErrEntityNotFound)
	})
}

func TestUpdate_ProductNumberTakenByOther(t *testing.T) {
	inScope(t, func(ctx context.Context, uow ports.UnitOfWork) {
		p, err := uow.Products().GetByID(ctx, 680)
		require.NoError(t, err)

		require.NoError(t, uow.Products().Update(ctx, p), "own number does not conflict")

		p.ProductNumber = "HL-U509"
		assert.True(t, domainErrors.IsUniqueViolation(uow.Products().Update(ctx, p)))
	})
}

func TestDelete(t *testing.T) {
	inScope(t, func(ctx context.Context, uow ports.UnitOfWork) {
		existed, err := uow.Products().Delete(ctx, 680)
		require.NoError(t, err)
		assert.True(t, existed)

		existed, err = uow.Products().Delete(ctx, -9876)
		require.NoError(t, err)
		assert.False(t, existed)

		_, err = uow.Products().GetByID(ctx, 680)
		assert.ErrorIs(t, err, domainErrors.ErrEntityNotFound)
	})
}

func TestDelete_ReferencedCategory(t *testing.T) {
	inScope(t, func(ctx context.Context, uow ports.UnitOfWork) {
		existed, err := uow.ProductCategories().Delete(ctx, 18)

		assert.False(t, existed)
		assert.True(t, domainErrors.IsDatabaseError(err))
	})
}

func TestExistsByProductNumber(t *testing.T) {
	inScope(t, func(ctx context.Context, uow ports.UnitOfWork) {
		exists, err := uow.Products().ExistsByProductNumber(ctx, "HL-U509", 0)
		require.NoError(t, err)
		assert.True(t, exists)

		exists, err = uow.Products().ExistsByProductNumber(ctx, "HL-U509", 708)
		require.NoError(t, err)
		assert.False(t, exists)
	})
}

func TestQuery_Where(t *testing.T) {
	inScope(t, func(ctx context.Context, uow ports.UnitOfWork) {
		q := uow.Products().GetAll()

		byCategory, err := q.Where(ports.Eq(entities.ProductFieldProductCategoryID, 18)).List(ctx)
		require.NoError(t, err)
		assert.Equal(t, []int{680, 706}, ids(byCategory))

		byName, err := q.Where(ports.Contains(entities.ProductFieldName, "helmet")).List(ctx)
		require.NoError(t, err)
		assert.Equal(t, []int{707, 708}, ids(byName))

		expensive, err := q.Where(ports.Gte(entities.ProductFieldListPrice, 1431.5)).List(ctx)
		require.NoError(t, err)
		assert.Equal(t, []int{680, 706, 771}, ids(expensive))

		noSize, err := q.Where(ports.IsNull(entities.ProductFieldSize)).List(ctx)
		require.NoError(t, err)
		assert.Equal(t, []int{707, 708}, ids(noSize))

		combined, err := q.
			Where(ports.Eq(entities.ProductFieldColor, "Red")).
			Where(ports.Lt(entities.ProductFieldListPrice, valueobjects.MustMoney("100"))).
			List(ctx)
		require.NoError(t, err)
		assert.Equal(t, []int{707}, ids(combined))

		all, err := q.List(ctx)
		require.NoError(t, err)
		assert.Len(t, all, 5, "builder calls do not modify the original query")
	})
}

func TestQuery_NullNeverEquals(t *testing.T) {
	inScope(t, func(ctx context.Context, uow ports.UnitOfWork) {
		n, err := uow.Products().GetAll().Where(ports.Ne(entities.ProductFieldSize, "58")).Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, n, "rows with NULL size do not match <>")
	})
}

func TestQuery_OrderAndPage(t *testing.T) {
	inScope(t, func(ctx context.Context, uow ports.UnitOfWork) {
		q := uow.Products().GetAll().OrderBy(entities.ProductFieldListPrice, true)

		page, err := q.Offset(1).Limit(2).List(ctx)
		require.NoError(t, err)
		assert.Equal(t, []int{680, 706}, ids(page), "ties keep id order")

		bySize, err := uow.Products().GetAll().OrderBy(entities.ProductFieldSize, false).List(ctx)
		require.NoError(t, err)
		assert.Equal(t, []int{771, 680, 706, 707, 708}, ids(bySize), "nulls last")

		beyond, err := q.Offset(10).List(ctx)
		require.NoError(t, err)
		assert.Empty(t, beyond)
	})
}

func TestQuery_First(t *testing.T) {
	inScope(t, func(ctx context.Context, uow ports.UnitOfWork) {
		p, err := uow.Products().GetAll().Where(ports.Eq(entities.ProductFieldProductNumber, "HL-U509")).First(ctx)
		require.NoError(t, err)
		assert.Equal(t, 708, p.ProductID)

		_, err = uow.Products().GetAll().Where(ports.Eq(entities.ProductFieldID, 1)).First(ctx)
		assert.ErrorIs(t, err, domainErrors.ErrEntityNotFound)
	})
}

func TestQuery_Include(t *testing.T) {
	inScope(t, func(ctx context.Context, uow ports.UnitOfWork) {
		p, err := uow.Products().GetAll().
			Where(ports.Eq(entities.ProductFieldID, 680)).
			Include(entities.RelationCategory, entities.RelationType).
			First(ctx)
		require.NoError(t, err)

		require.NotNil(t, p.Category)
		assert.Equal(t, "Road Frames", p.Category.Name)
		require.NotNil(t, p.Type)
		assert.Equal(t, "HL Road Frame", p.Type.Name)
	})
}

func TestQuery_InvalidField(t *testing.T) {
	inScope(t, func(ctx context.Context, uow ports.UnitOfWork) {
		_, err := uow.Products().GetAll().Where(ports.Eq("Nope", 1)).List(ctx)
		assert.True(t, domainErrors.IsInvalidState(err))

		_, err = uow.Products().GetAll().OrderBy("Nope", false).List(ctx)
		assert.True(t, domainErrors.IsInvalidState(err))

		_, err = uow.Products().GetAll().Include("Nope").List(ctx)
		assert.True(t, domainErrors.IsInvalidState(err))

		_, err = uow.ProductTypes().GetAll().Include(entities.RelationCategory).List(ctx)
		assert.True(t, domainErrors.IsInvalidState(err))
	})
}
