package vm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValuesEqual(t *testing.T) {
	h := NewHeap()

	assert.True(t, ValuesEqual(h, Nil(), Nil()))
	assert.False(t, ValuesEqual(h, Nil(), Bool(false)))
	assert.True(t, ValuesEqual(h, Int(3), Int(3)))
	assert.False(t, ValuesEqual(h, Int(3), Int(4)))
	assert.True(t, ValuesEqual(h, Num(1.5), Num(1.5)))

	a := Obj(h.AllocString([]byte("hi")))
	b := Obj(h.AllocString([]byte("hi")))
	assert.True(t, ValuesEqual(h, a, b), "strings compare by content, not handle identity")

	s1 := Obj(h.AllocStruct([]Value{Int(1)}))
	s2 := Obj(h.AllocStruct([]Value{Int(1)}))
	assert.False(t, ValuesEqual(h, s1, s2), "structs compare by handle identity")
	assert.True(t, ValuesEqual(h, s1, s1))
}

func TestStringify(t *testing.T) {
	h := NewHeap()

	cases := []struct {
		in   Value
		want string
	}{
		{Bool(true), "true"},
		{Bool(false), "false"},
		{Nil(), "nil"},
		{Int(-12), "-12"},
	}
	for _, c := range cases {
		out, err := Stringify(h, c.in)
		require.NoError(t, err)
		bytes, ok := h.AsString(out.Handle())
		require.True(t, ok)
		assert.Equal(t, c.want, string(bytes))
	}
}

func TestCoerceBoolFuzzyZero(t *testing.T) {
	// sign-dependent fuzzy-zero test, not a plain is-zero check.
	v, err := coerceBool(Num(1e-8), numPrecision)
	require.NoError(t, err)
	assert.True(t, v.BoolVal())

	v, err = coerceBool(Num(-1e-8), numPrecision)
	require.NoError(t, err)
	assert.True(t, v.BoolVal())

	v, err = coerceBool(Num(1.0), numPrecision)
	require.NoError(t, err)
	assert.False(t, v.BoolVal())

	v, err = coerceBool(Num(-1.0), numPrecision)
	require.NoError(t, err)
	assert.False(t, v.BoolVal())
}

func TestCoerceIntNum(t *testing.T) {
	v, err := coerceInt(Bool(true))
	require.NoError(t, err)
	assert.Equal(t, int32(1), v.IntVal())

	v, err = coerceInt(Num(3.9))
	require.NoError(t, err)
	assert.Equal(t, int32(3), v.IntVal(), "truncates toward zero")

	v, err = coerceNum(Int(7))
	require.NoError(t, err)
	assert.Equal(t, 7.0, v.NumVal())

	_, err = coerceInt(Obj(0))
	assert.ErrorIs(t, err, ErrTypeMismatch)
}

func TestNumericComparisons(t *testing.T) {
	assert.True(t, numericLess(1.0, 1.0+2*numPrecision, numPrecision))
	assert.False(t, numericLess(1.0, 1.0+numPrecision/2, numPrecision))
	assert.True(t, numericGreater(1.0+2*numPrecision, 1.0, numPrecision))
}
