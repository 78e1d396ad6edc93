package index

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBucketIndex_AddAndAtLeast(t *testing.T) {
	idx := NewBucketIndex()
	idx.Add("low", 0.1)
	idx.Add("mid", 0.55)
	idx.Add("high", 0.95)

	assert.ElementsMatch(t, []string{"mid", "high"}, idx.AtLeast(0.5))
	assert.ElementsMatch(t, []string{"high"}, idx.AtLeast(0.9))
	assert.ElementsMatch(t, []string{"low", "mid", "high"}, idx.AtLeast(0))
}

func TestBucketIndex_AtLeastBoundaryIsInclusive(t *testing.T) {
	idx := NewBucketIndex()
	idx.Add("exact", 0.5)

	assert.ElementsMatch(t, []string{"exact"}, idx.AtLeast(0.5))
}

func TestBucketIndex_AddRebucketsOnUpdate(t *testing.T) {
	idx := NewBucketIndex()
	idx.Add("e1", 0.1)
	idx.Add("e1", 0.9)

	assert.Equal(t, []string{"e1"}, idx.AtLeast(0))
	assert.ElementsMatch(t, []string{"e1"}, idx.AtLeast(0.5))
}

func TestBucketIndex_Remove(t *testing.T) {
	idx := NewBucketIndex()
	idx.Add("e1", 0.7)
	idx.Remove("e1")

	assert.Empty(t, idx.AtLeast(0))
	v, ok := idx.Value("e1")
	assert.False(t, ok)
	assert.Zero(t, v)
}
