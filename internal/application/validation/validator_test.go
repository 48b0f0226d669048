package validation

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Haleralex/catalog/internal/application/dtos"
	"github.com/Haleralex/catalog/internal/domain/entities"
	"github.com/Haleralex/catalog/internal/domain/result"
	"github.com/Haleralex/catalog/internal/domain/valueobjects"
	"github.com/Haleralex/catalog/internal/pkg/localization"
	"github.com/Haleralex/catalog/internal/pkg/optional"
)

func newValidator() (*Validator, *localization.Localizer) {
	loc := localization.MustNew("en")
	return New(loc), loc
}

func validCreate() *dtos.ProductCreateRequest {
	return &dtos.ProductCreateRequest{
		Name:          "iPhone 7",
		ProductNumber: "A62037",
		ListPrice:     valueobjects.MustMoney("999.90"),
		StandardCost:  valueobjects.MustMoney("324.23"),
		SellStartDate: time.Now(),
	}
}

func phrases(messages []result.Message) []string {
	out := make([]string, 0, len(messages))
	for _, m := range messages {
		out = append(out, m.Phrase)
	}
	return out
}

func TestIsValidProductNumber(t *testing.T) {
	valid := []string{"A62037", "HL-U509", "FR-R92B-58", "BK-M68B-42", "AB1"}
	invalid := []string{"1", "", "a62037", "HL--U509", "HL-", "A-62037-abc", "AAA-123456789012345678901234"}

	for _, s := range valid {
		assert.True(t, IsValidProductNumber(s), s)
	}
	for _, s := range invalid {
		assert.False(t, IsValidProductNumber(s), s)
	}
}

func TestProductCreate_Valid(t *testing.T) {
	v, _ := newValidator()
	assert.Empty(t, v.ProductCreate(context.Background(), validCreate()))
}

func TestProductCreate_ProductNumberFormat(t *testing.T) {
	v, loc := newValidator()
	ctx := context.Background()
	req := validCreate()
	req.ProductNumber = "1"

	messages := v.ProductCreate(ctx, req)

	require.Len(t, messages, 1)
	assert.Equal(t, result.CodeValidationError, messages[0].Code)
	assert.Equal(t, FieldProductNumber, messages[0].Field)
	assert.Equal(t, loc.Phrase(ctx, localization.KeyProductNumberFormat, req.StandardCost.String(), req.ProductNumber), messages[0].Phrase)
	assert.Equal(t, "Product number '1' has an invalid format (standard cost 324.23)", messages[0].Phrase)
}

func TestProductCreate_AccumulatesAllFailures(t *testing.T) {
	v, _ := newValidator()
	req := validCreate()
	req.Name = ""
	req.ProductNumber = "bad"
	req.ListPrice = valueobjects.MustMoney("-1")
	weight := -3.0
	req.Weight = &weight

	messages := v.ProductCreate(context.Background(), req)

	require.Len(t, messages, 4)
	assert.True(t, Failed(messages, "name"))
	assert.True(t, Failed(messages, "product_number"))
	assert.True(t, Failed(messages, "list_price"))
	assert.True(t, Failed(messages, "weight"))
	assert.Contains(t, phrases(messages), "name is required")
	assert.Contains(t, phrases(messages), "list_price must be greater than or equal to 0")
	assert.Contains(t, phrases(messages), "weight must be greater than 0")
}

func TestProductCreate_MaxLength(t *testing.T) {
	v, _ := newValidator()
	req := validCreate()
	color := "Ultraviolet Metallic"
	req.Color = &color

	messages := v.ProductCreate(context.Background(), req)

	require.Len(t, messages, 1)
	assert.Equal(t, "color must be at most 15 characters long", messages[0].Phrase)
}

func TestProductCreate_DateOrder(t *testing.T) {
	v, _ := newValidator()
	req := validCreate()
	end := req.SellStartDate.Add(-24 * time.Hour)
	req.SellEndDate = &end

	messages := v.ProductCreate(context.Background(), req)

	require.Len(t, messages, 1)
	assert.Equal(t, FieldSellEndDate, messages[0].Field)
	assert.Equal(t, "sell_end_date must not be earlier than sell_start_date", messages[0].Phrase)
}

func TestProductCreate_LocalizedPhrase(t *testing.T) {
	v, _ := newValidator()
	ctx := localization.WithCulture(context.Background(), localization.Russian)
	req := validCreate()
	req.Name = ""

	messages := v.ProductCreate(ctx, req)

	require.Len(t, messages, 1)
	assert.Equal(t, "Поле name обязательно", messages[0].Phrase)
}

func TestProductUpdate_UnsetFieldsAreNotValidated(t *testing.T) {
	v, _ := newValidator()

	messages := v.ProductUpdate(context.Background(), &dtos.ProductUpdateRequest{ProductID: 680})

	assert.Empty(t, messages)
}

func TestProductUpdate_SetFieldsAreValidated(t *testing.T) {
	v, _ := newValidator()
	req := &dtos.ProductUpdateRequest{
		ProductID:     680,
		ProductNumber: optional.Of("x"),
		ListPrice:     optional.Of(valueobjects.MustMoney("-5")),
		Color:         optional.Of[*string](nil),
	}

	messages := v.ProductUpdate(context.Background(), req)

	require.Len(t, messages, 2)
	assert.True(t, Failed(messages, FieldProductNumber))
	assert.True(t, Failed(messages, "list_price"))
}

func TestProductUpdate_MissingID(t *testing.T) {
	v, _ := newValidator()

	messages := v.ProductUpdate(context.Background(), &dtos.ProductUpdateRequest{})

	require.Len(t, messages, 1)
	assert.Equal(t, "product_id", messages[0].Field)
}

func TestProductUpdate_BlankValues(t *testing.T) {
	v, _ := newValidator()
	req := &dtos.ProductUpdateRequest{
		ProductID:       680,
		Name:            optional.Of("  "),
		ProductCategory: optional.Of(&dtos.ProductCategoryUpdate{Name: optional.Of("")}),
	}

	messages := v.ProductUpdate(context.Background(), req)

	assert.True(t, Failed(messages, FieldName))
	assert.True(t, Failed(messages, FieldCategoryName))
}

func TestProductUpdate_NestedCategoryRules(t *testing.T) {
	v, _ := newValidator()
	long := "A category name that is definitely longer than fifty characters"
	req := &dtos.ProductUpdateRequest{
		ProductID:       680,
		ProductCategory: optional.Of(&dtos.ProductCategoryUpdate{Name: optional.Of(long)}),
	}

	messages := v.ProductUpdate(context.Background(), req)

	require.Len(t, messages, 1)
	assert.Equal(t, FieldCategoryName, messages[0].Field)
}

func TestProductUpdate_CategoryConflict(t *testing.T) {
	v, loc := newValidator()
	ctx := context.Background()
	id := 5
	req := &dtos.ProductUpdateRequest{
		ProductID:         680,
		ProductCategoryID: optional.Of(&id),
		ProductCategory:   optional.Of(&dtos.ProductCategoryUpdate{Name: optional.Of("Nana")}),
	}

	messages := v.ProductUpdate(ctx, req)

	require.Len(t, messages, 1)
	assert.Equal(t, FieldProductCategory, messages[0].Field)
	assert.Equal(t, loc.Phrase(ctx, localization.KeyCategoryConflict), messages[0].Phrase)
}

func TestProductFilter(t *testing.T) {
	v, _ := newValidator()
	ctx := context.Background()

	assert.Empty(t, v.ProductFilter(ctx, nil))
	assert.Empty(t, v.ProductFilter(ctx, &dtos.ProductFilter{Name: "frame", Limit: 10}))

	lo, hi := 100.0, 10.0
	messages := v.ProductFilter(ctx, &dtos.ProductFilter{MinListPrice: &lo, MaxListPrice: &hi, OrderBy: "weight", Limit: -1})
	assert.True(t, Failed(messages, FieldMaxListPrice))
	assert.True(t, Failed(messages, "order_by"))
	assert.True(t, Failed(messages, "limit"))
}

func TestProductDates(t *testing.T) {
	v, _ := newValidator()
	start := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	before := start.Add(-time.Hour)
	after := start.Add(time.Hour)

	assert.Empty(t, v.ProductDates(context.Background(), &entities.Product{SellStartDate: start}))
	assert.Empty(t, v.ProductDates(context.Background(), &entities.Product{SellStartDate: start, SellEndDate: &after}))
	assert.Len(t, v.ProductDates(context.Background(), &entities.Product{SellStartDate: start, SellEndDate: &before}), 1)
}

func TestToSnake(t *testing.T) {
	assert.Equal(t, "sell_start_date", toSnake("SellStartDate"))
	assert.Equal(t, "name", toSnake("Name"))
}
