package vm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHeapStringInterning(t *testing.T) {
	h := NewHeap()
	a := h.InternString([]byte("shared"))
	b := h.InternString([]byte("shared"))
	assert.Equal(t, a, b, "identical constant-pool strings dedup to one handle")

	c := h.AllocString([]byte("shared"))
	assert.NotEqual(t, a, c, "AllocString never interns")
}

func TestHeapConcatNeverMutatesSources(t *testing.T) {
	h := NewHeap()
	a := h.AllocString([]byte("foo"))
	b := h.AllocString([]byte("bar"))

	cat, err := h.Concat(a, b)
	require.NoError(t, err)

	catBytes, _ := h.AsString(cat)
	assert.Equal(t, "foobar", string(catBytes))

	aBytes, _ := h.AsString(a)
	bBytes, _ := h.AsString(b)
	assert.Equal(t, "foo", string(aBytes))
	assert.Equal(t, "bar", string(bBytes))
}

func TestHeapStructFields(t *testing.T) {
	h := NewHeap()
	s := h.AllocStruct([]Value{Int(1), Int(2)})

	v, err := h.GetField(s, 1)
	require.NoError(t, err)
	assert.Equal(t, int32(2), v.IntVal())

	require.NoError(t, h.SetField(s, 1, Int(99)))
	v, err = h.GetField(s, 1)
	require.NoError(t, err)
	assert.Equal(t, int32(99), v.IntVal())

	_, err = h.GetField(s, 5)
	assert.ErrorIs(t, err, ErrFieldOutOfRange)
}

func TestHeapTeardownClearsObjects(t *testing.T) {
	h := NewHeap()
	s := h.AllocString([]byte("x"))
	assert.Equal(t, 1, h.Len())
	h.Teardown()
	_, ok := h.AsString(s)
	assert.False(t, ok)
}
