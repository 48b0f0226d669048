package result

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainErrors "github.com/Haleralex/catalog/internal/domain/errors"
)

func TestOk(t *testing.T) {
	r := Ok(42)

	assert.True(t, r.Success())
	assert.False(t, r.Failure())
	assert.False(t, r.NotFound())
	assert.True(t, r.HasValue())
	assert.Empty(t, r.Messages())
	assert.Equal(t, 42, r.Value())
	assert.Equal(t, StatusSuccess, r.Status())
}

func TestOkVoid(t *testing.T) {
	r := OkVoid()

	assert.True(t, r.Success())
	assert.Equal(t, Void{}, r.Value())
}

func TestZeroResult_IsNotSuccess(t *testing.T) {
	var r Result[int]

	assert.False(t, r.Success())
	assert.True(t, r.Failure())
	assert.Equal(t, StatusFailure, r.Status())
}

func TestFail(t *testing.T) {
	t.Run("Validation", func(t *testing.T) {
		r := Fail[int](
			ValidationMessage("name", "name is required"),
			ValidationMessage("product_number", "bad format"),
		)

		assert.True(t, r.Failure())
		assert.False(t, r.NotFound())
		require.Len(t, r.Messages(), 2)
		assert.Equal(t, "name", r.Messages()[0].Field)
		assert.True(t, r.HasCode(CodeValidationError))
	})

	t.Run("NotFoundCodeSetsFlag", func(t *testing.T) {
		r := Fail[int](NotFoundMessage("product 1 was not found"))

		assert.True(t, r.Failure())
		assert.True(t, r.NotFound())
		assert.True(t, r.HasCode(CodeNotFound))
		assert.Equal(t, StatusNotFound, r.Status())
	})

	t.Run("NotFoundAmongOthers", func(t *testing.T) {
		r := Fail[int](ValidationMessage("x", "bad"), NotFoundMessage("missing"))
		assert.True(t, r.NotFound())
	})

	t.Run("WithoutMessagesIsInvalidState", func(t *testing.T) {
		r := Fail[int]()

		assert.True(t, r.Failure())
		require.Len(t, r.Messages(), 1)
		assert.Equal(t, CodeInvalidState, r.Messages()[0].Code)
	})

	t.Run("OnlyWarningsStillFails", func(t *testing.T) {
		r := Fail[int](Warning(CodeValidationError, "soft"))

		assert.True(t, r.Failure())
		assert.True(t, r.HasCode(CodeInvalidState))
	})
}

func TestOkWithNotes(t *testing.T) {
	r := OkWithNotes("v", Warning(CodeConflict, "stale read"))
	assert.True(t, r.Success())
	assert.Len(t, r.Messages(), 1)

	failed := OkWithNotes("v", NewMessage(CodeDatabaseError, "boom"))
	assert.True(t, failed.Failure())
	assert.False(t, failed.HasValue())
}

func TestValue_PanicsOnFailure(t *testing.T) {
	r := Fail[string](DatabaseMessage("storage unavailable"))

	defer func() {
		rec := recover()
		require.NotNil(t, rec)
		err, ok := rec.(error)
		require.True(t, ok)
		assert.True(t, domainErrors.IsInvalidState(err))
	}()

	_ = r.Value()
	t.Fatal("Value should have panicked")
}

func TestGet(t *testing.T) {
	v, ok := Ok("x").Get()
	assert.True(t, ok)
	assert.Equal(t, "x", v)

	v, ok = Fail[string](DatabaseMessage("boom")).Get()
	assert.False(t, ok)
	assert.Empty(t, v)
}

func TestMessages_ReturnsCopy(t *testing.T) {
	r := Fail[int](ValidationMessage("a", "first"))
	msgs := r.Messages()
	msgs[0].Phrase = "mutated"

	assert.Equal(t, "first", r.Messages()[0].Phrase)
}

func TestFailFrom_PropagatesUnchanged(t *testing.T) {
	inner := Fail[int](NotFoundMessage("product 7 was not found"), ValidationMessage("id", "bad"))

	outer := FailFrom[string](inner)

	assert.True(t, outer.NotFound())
	assert.Equal(t, inner.Messages(), outer.Messages())
}

func TestFailFrom_SuccessIsContractViolation(t *testing.T) {
	outer := FailFrom[string](Ok(1))

	assert.True(t, outer.Failure())
	assert.True(t, outer.HasCode(CodeInvalidState))
}

func TestThen(t *testing.T) {
	calls := 0
	double := func(v int) Result[int] {
		calls++
		return Ok(v * 2)
	}

	assert.Equal(t, 4, Then(Ok(2), double).Value())
	assert.Equal(t, 1, calls)

	failed := Then(Fail[int](ValidationMessage("x", "bad")), double)
	assert.True(t, failed.Failure())
	assert.Equal(t, 1, calls, "fn must not run after a failure")
}

func TestMap(t *testing.T) {
	r := Map(Ok(3), func(v int) string { return "n=" + string(rune('0'+v)) })
	assert.Equal(t, "n=3", r.Value())

	nf := Map(Fail[int](NotFoundMessage("nope")), func(v int) string { return "" })
	assert.True(t, nf.NotFound())
}

func TestMarshalJSON(t *testing.T) {
	t.Run("SuccessWithValue", func(t *testing.T) {
		data, err := json.Marshal(Ok(5))
		require.NoError(t, err)
		assert.JSONEq(t, `{"success":true,"not_found":false,"value":5,"messages":[]}`, string(data))
	})

	t.Run("VoidOmitsValue", func(t *testing.T) {
		data, err := json.Marshal(OkVoid())
		require.NoError(t, err)
		assert.JSONEq(t, `{"success":true,"not_found":false,"messages":[]}`, string(data))
	})

	t.Run("NotFound", func(t *testing.T) {
		data, err := json.Marshal(Fail[int](NotFoundMessage("gone")))
		require.NoError(t, err)
		assert.JSONEq(t, `{"success":false,"not_found":true,"messages":[{"code":"NOT_FOUND","phrase":"gone","severity":"error"}]}`, string(data))
	})
}

func TestMessageCode_Text(t *testing.T) {
	text, err := CodeDatabaseError.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "DATABASE_ERROR", string(text))

	var code MessageCode
	require.NoError(t, code.UnmarshalText([]byte("NOT_FOUND")))
	assert.Equal(t, CodeNotFound, code)
	assert.Error(t, code.UnmarshalText([]byte("NOPE")))

	assert.Equal(t, "CODE_42", MessageCode(42).String())
}
