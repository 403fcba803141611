package ordered

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIndexFirstSeenWinsPosition(t *testing.T) {
	var idx Index[string]

	pos, added := idx.Add("b")
	assert.Equal(t, 0, pos)
	assert.True(t, added)

	pos, added = idx.Add("a")
	assert.Equal(t, 1, pos)
	assert.True(t, added)

	pos, added = idx.Add("b")
	assert.Equal(t, 0, pos)
	assert.False(t, added)

	require.Len(t, idx.Keys(), 2)
	assert.Equal(t, []string{"b", "a"}, idx.Keys())
}

func TestIndexStructKeysCompareByField(t *testing.T) {
	type key struct{ title, url string }
	var idx Index[key]
	idx.Add(key{"CF", "http://cf"})

	p, added := idx.Add(key{"CF", ""})
	require.True(t, added)
	assert.Equal(t, 1, p)

	p, added = idx.Add(key{"CF", "http://cf"})
	assert.False(t, added)
	assert.Equal(t, 0, p)
}

func TestIndexKeysIsCopy(t *testing.T) {
	var idx Index[int]
	idx.Add(7)
	keys := idx.Keys()
	keys[0] = 99
	assert.Equal(t, []int{7}, idx.Keys())

	var empty Index[int]
	assert.Empty(t, empty.Keys())
}
