// Сценарии сервиса против настоящего PostgreSQL (testcontainers).
//
// Каждый тест работает в TransactionScope, который откатывается в Cleanup:
// образец каталога из migrations/ остаётся нетронутым.
package services

import (
	"context"
	"flag"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Haleralex/catalog/internal/application/dtos"
	"github.com/Haleralex/catalog/internal/application/validation"
	"github.com/Haleralex/catalog/internal/domain/result"
	"github.com/Haleralex/catalog/internal/infrastructure/persistence/postgres"
	"github.com/Haleralex/catalog/internal/infrastructure/persistence/postgres/pgtest"
	"github.com/Haleralex/catalog/internal/pkg/localization"
	"github.com/Haleralex/catalog/internal/pkg/optional"
)

var (
	sharedContainer *pgtest.Container
	containerErr    error
)

func TestMain(m *testing.M) {
	flag.Parse()
	if !testing.Short() {
		sharedContainer, containerErr = pgtest.Start(context.Background())
	}

	code := m.Run()

	if sharedContainer != nil {
		_ = sharedContainer.Close()
	}
	os.Exit(code)
}

// pgService возвращает сервис над PostgreSQL и context откатываемого scope.
func pgService(t *testing.T) (*ProductsService, context.Context, *localization.Localizer) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	if sharedContainer == nil {
		t.Skipf("postgres container is not available: %v", containerErr)
	}

	factory := postgres.NewUnitOfWorkFactory(sharedContainer.Pool)
	ctx := context.Background()
	scope, err := factory.Begin(ctx)
	require.NoError(t, err)
	t.Cleanup(func() { _ = scope.Close(ctx) })

	loc := localization.MustNew("en")
	return NewProductsService(factory, validation.New(loc), loc), scope.Context(), loc
}

func TestPostgres_AddThenGet(t *testing.T) {
	svc, ctx, _ := pgService(t)
	start := time.Now().Add(-time.Second)
	req := validCreate()

	added := svc.AddProduct(ctx, req)
	require.True(t, added.Success(), "messages: %v", added.Messages())

	got := svc.GetProductByID(ctx, added.Value())
	require.True(t, got.Success(), "messages: %v", got.Messages())

	p := got.Value()
	assert.Equal(t, req.Name, p.Name)
	assert.Equal(t, req.ProductNumber, p.ProductNumber)
	assert.Equal(t, req.Color, p.Color)
	assert.Equal(t, "999.9", p.ListPrice.String())
	assert.Equal(t, "324.23", p.StandardCost.String())
	assert.True(t, req.SellStartDate.Equal(p.SellStartDate))
	assert.True(t, p.LastModifiedDate.After(start))
	assert.False(t, p.LastModifiedDate.After(time.Now()))
}

func TestPostgres_AddInvalidNumber(t *testing.T) {
	svc, ctx, loc := pgService(t)
	req := validCreate()
	req.ProductNumber = "bad number"

	r := svc.AddProduct(ctx, req)

	require.True(t, r.Failure())
	assert.Contains(t, phrases(r), loc.Phrase(ctx, localization.KeyProductNumberFormat, "324.23", "bad number"))
}

func TestPostgres_AddDuplicateNumber(t *testing.T) {
	svc, ctx, loc := pgService(t)
	req := validCreate()
	req.ProductNumber = "HL-U509"

	r := svc.AddProduct(ctx, req)

	require.True(t, r.Failure())
	assert.Equal(t, []string{loc.Phrase(ctx, localization.KeyProductNumberDuplicate, "HL-U509")}, phrases(r))
}

func TestPostgres_GetMissing(t *testing.T) {
	svc, ctx, _ := pgService(t)

	r := svc.GetProductByID(ctx, 1)

	assert.True(t, r.NotFound())
	assert.True(t, r.HasCode(result.CodeNotFound))
}

func TestPostgres_UpdateNestedCategoryName(t *testing.T) {
	svc, ctx, _ := pgService(t)

	req := dtos.ProductUpdateRequest{ProductID: 680}
	req.ProductCategory.Set(&dtos.ProductCategoryUpdate{Name: optional.Of("Road Frames 2024")})

	r := svc.UpdateProduct(ctx, req)
	require.True(t, r.Success(), "messages: %v", r.Messages())

	details := svc.GetProductsWithDetails(ctx, &dtos.ProductFilter{ProductCategoryID: ptr(18)})
	require.True(t, details.Success())
	require.Len(t, details.Value(), 2)
	for _, p := range details.Value() {
		assert.Equal(t, "Road Frames 2024", p.CategoryName)
	}
}

func TestPostgres_RejectedUpdateLeavesCategory(t *testing.T) {
	svc, ctx, _ := pgService(t)

	req := dtos.ProductUpdateRequest{ProductID: 680}
	req.ProductCategory.Set(&dtos.ProductCategoryUpdate{Name: optional.Of("Leaked")})
	req.SellEndDate.Set(ptr(time.Date(2001, 1, 1, 0, 0, 0, 0, time.UTC)))

	r := svc.UpdateProduct(ctx, req)
	require.True(t, r.Failure())
	assert.True(t, validation.Failed(r.Messages(), validation.FieldSellEndDate))

	got := svc.GetProductByID(ctx, 706)
	require.True(t, got.Success(), "messages: %v", got.Messages())
	assert.Equal(t, "Road Frames", got.Value().CategoryName)
}

func TestPostgres_AddMergesTagAndLookupMessages(t *testing.T) {
	svc, ctx, loc := pgService(t)
	req := validCreate()
	req.Name = strings.Repeat("x", 60)
	req.ProductTypeID = ptr(404)

	r := svc.AddProduct(ctx, req)

	require.True(t, r.Failure())
	require.Len(t, r.Messages(), 2)
	assert.True(t, validation.Failed(r.Messages(), validation.FieldName))
	assert.Contains(t, phrases(r), loc.Phrase(ctx, localization.KeyTypeNotFound, 404))
}

func TestPostgres_UpdateRelinksCategory(t *testing.T) {
	svc, ctx, _ := pgService(t)

	req := dtos.ProductUpdateRequest{ProductID: 680}
	req.ProductCategoryID.Set(ptr(12))

	r := svc.UpdateProduct(ctx, req)
	require.True(t, r.Success(), "messages: %v", r.Messages())

	moved := svc.GetProductByID(ctx, 680).Value()
	assert.Equal(t, "Mountain Frames", moved.CategoryName)

	sibling := svc.GetProductByID(ctx, 706).Value()
	assert.Equal(t, "Road Frames", sibling.CategoryName)
}

func TestPostgres_Delete(t *testing.T) {
	svc, ctx, _ := pgService(t)

	require.True(t, svc.DeleteProduct(ctx, 771).Success())
	assert.True(t, svc.GetProductByID(ctx, 771).NotFound())
	assert.True(t, svc.DeleteProduct(ctx, 771).NotFound())
}

func TestPostgres_RoundTripIsNoop(t *testing.T) {
	svc, ctx, _ := pgService(t)

	before := svc.GetProductByID(ctx, 680).Value()
	r := svc.UpdateProduct(ctx, *dtos.ResponseToUpdateRequest.To(&before))
	require.True(t, r.Success(), "messages: %v", r.Messages())

	after := svc.GetProductByID(ctx, 680).Value()
	assert.Equal(t, before.Name, after.Name)
	assert.Equal(t, before.ProductNumber, after.ProductNumber)
	assert.Equal(t, before.Color, after.Color)
	assert.Equal(t, before.StandardCost.String(), after.StandardCost.String())
	assert.Equal(t, before.ListPrice.String(), after.ListPrice.String())
	assert.Equal(t, before.Size, after.Size)
	assert.Equal(t, before.Weight, after.Weight)
	assert.Equal(t, before.ProductCategoryID, after.ProductCategoryID)
	assert.Equal(t, before.ProductTypeID, after.ProductTypeID)
	assert.True(t, before.SellStartDate.Equal(after.SellStartDate))
	assert.Equal(t, before.SellEndDate, after.SellEndDate)
	assert.Equal(t, before.DiscontinuedDate, after.DiscontinuedDate)
}
