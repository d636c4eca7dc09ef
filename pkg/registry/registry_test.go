package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBaseRegistry_RegisterGetListNamesCount(t *testing.T) {
	r := New[int]()
	require.NoError(t, r.Register("a", 1))
	require.NoError(t, r.Register("b", 2))

	assert.Equal(t, 2, r.Count())
	v, ok := r.Get("a")
	require.True(t, ok)
	assert.Equal(t, 1, v)

	assert.ElementsMatch(t, []int{1, 2}, r.List())
	assert.ElementsMatch(t, []string{"a", "b"}, r.Names())
}

func TestBaseRegistry_RegisterRejectsEmptyNameAndDuplicates(t *testing.T) {
	r := New[int]()
	assert.Error(t, r.Register("", 1))

	require.NoError(t, r.Register("a", 1))
	assert.Error(t, r.Register("a", 2))
}

func TestBaseRegistry_GetMissingReturnsFalse(t *testing.T) {
	r := New[string]()
	_, ok := r.Get("missing")
	assert.False(t, ok)
}

func TestBaseRegistry_Remove(t *testing.T) {
	r := New[int]()
	require.NoError(t, r.Register("a", 1))

	require.NoError(t, r.Remove("a"))
	assert.Equal(t, 0, r.Count())
	assert.Error(t, r.Remove("a"), "removing an already-removed name is an error")
}
