package vm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// These exercise the REF_LOCAL/DEREF/SET_REF/pop machinery directly,
// beneath CALL/FUNCTION, to pin the open/closed transition independently
// of the closure-counter end-to-end scenario.
func TestUpvalueOpenReadsLiveSlot(t *testing.T) {
	m := NewDefault()
	require.NoError(t, m.push(Int(10)))

	handle := m.refLocal(0)
	cell, ok := m.heap.Upvalue(handle)
	require.True(t, ok)
	assert.True(t, cell.open)

	v, err := m.derefUpvalue(handle)
	require.NoError(t, err)
	assert.Equal(t, int32(10), v.IntVal())

	// mutate the slot directly; an open upvalue must observe it.
	m.setLocal(0, Int(20))
	v, err = m.derefUpvalue(handle)
	require.NoError(t, err)
	assert.Equal(t, int32(20), v.IntVal())
}

func TestUpvalueClosesOnPop(t *testing.T) {
	m := NewDefault()
	require.NoError(t, m.push(Int(5)))
	handle := m.refLocal(0)

	_, err := m.pop()
	require.NoError(t, err)

	cell, ok := m.heap.Upvalue(handle)
	require.True(t, ok)
	assert.False(t, cell.open, "pop must close upvalues chained to the popped slot")

	v, err := m.derefUpvalue(handle)
	require.NoError(t, err)
	assert.Equal(t, int32(5), v.IntVal(), "a closed upvalue keeps the value it had at close time")
}

func TestSetRefOnClosedUpvalueWritesOwnedValue(t *testing.T) {
	m := NewDefault()
	require.NoError(t, m.push(Int(1)))
	handle := m.refLocal(0)
	_, err := m.pop()
	require.NoError(t, err)

	require.NoError(t, m.setRefUpvalue(handle, Int(99)))
	v, err := m.derefUpvalue(handle)
	require.NoError(t, err)
	assert.Equal(t, int32(99), v.IntVal())
}

func TestSetLocalPreservesBackChain(t *testing.T) {
	m := NewDefault()
	require.NoError(t, m.push(Int(1)))
	handle := m.refLocal(0)

	m.setLocal(0, Int(2))
	assert.NotNil(t, m.stack[0].refs, "SET_LOCAL must keep the slot's upvalue chain, not the old value's")

	v, err := m.derefUpvalue(handle)
	require.NoError(t, err)
	assert.Equal(t, int32(2), v.IntVal())
}
