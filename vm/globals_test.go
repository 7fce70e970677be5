package vm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGlobalsUndefinedRead(t *testing.T) {
	g := NewGlobals(4)
	_, err := g.Get(0)
	assert.ErrorIs(t, err, ErrUndefinedGlobal, "an unwritten slot must fail, not return Nil")
}

func TestGlobalsOutOfRange(t *testing.T) {
	g := NewGlobals(2)
	assert.ErrorIs(t, g.Set(2, Int(1)), ErrGlobalOutOfRange)
	_, err := g.Get(-1)
	assert.ErrorIs(t, err, ErrGlobalOutOfRange)
}

func TestGlobalsRoundTrip(t *testing.T) {
	g := NewGlobals(4)
	require.NoError(t, g.Set(1, Int(42)))
	v, err := g.Get(1)
	require.NoError(t, err)
	assert.Equal(t, int32(42), v.IntVal())
	assert.Equal(t, 4, g.Max())
}
