package vector

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCache_PutAndGet(t *testing.T) {
	c, err := NewCache(4)
	require.NoError(t, err)

	c.Put("model-a", "hello", []float32{1, 2, 3})
	v, ok := c.Get("model-a", "hello")
	require.True(t, ok)
	assert.Equal(t, []float32{1, 2, 3}, v)
}

func TestCache_MissOnDifferentModel(t *testing.T) {
	c, err := NewCache(4)
	require.NoError(t, err)

	c.Put("model-a", "hello", []float32{1, 2, 3})
	_, ok := c.Get("model-b", "hello")
	assert.False(t, ok)
}

func TestCache_EvictsLeastRecentlyUsed(t *testing.T) {
	c, err := NewCache(2)
	require.NoError(t, err)

	c.Put("m", "a", []float32{1})
	c.Put("m", "b", []float32{2})
	c.Put("m", "c", []float32{3}) // evicts "a"

	_, ok := c.Get("m", "a")
	assert.False(t, ok)
	_, ok = c.Get("m", "b")
	assert.True(t, ok)
	assert.Equal(t, 2, c.Len())
}

func TestCache_GetReturnsACopy(t *testing.T) {
	c, err := NewCache(4)
	require.NoError(t, err)

	c.Put("m", "a", []float32{1, 2, 3})
	v, _ := c.Get("m", "a")
	v[0] = 999

	v2, _ := c.Get("m", "a")
	assert.Equal(t, float32(1), v2[0])
}
