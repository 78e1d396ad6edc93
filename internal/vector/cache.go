package vector

import (
	lru "github.com/hashicorp/golang-lru/v2"
)

// cacheKey identifies a cached embedding by model and exact input text.
type cacheKey struct {
	model string
	text  string
}

// Cache is a bounded LRU over (model, text) -> vector, sized by entry
// count rather than byte size.
type Cache struct {
	inner *lru.Cache[cacheKey, []float32]
}

// NewCache returns a cache holding up to size entries. size <= 0 does not
// disable caching: it is raised to a single-entry cache.
func NewCache(size int) (*Cache, error) {
	if size <= 0 {
		size = 1
	}
	inner, err := lru.New[cacheKey, []float32](size)
	if err != nil {
		return nil, err
	}
	return &Cache{inner: inner}, nil
}

// Get returns a copy of the cached vector for (model, text), if present.
func (c *Cache) Get(model, text string) ([]float32, bool) {
	v, ok := c.inner.Get(cacheKey{model: model, text: text})
	if !ok {
		return nil, false
	}
	out := make([]float32, len(v))
	copy(out, v)
	return out, true
}

// Put stores a copy of vec under (model, text).
func (c *Cache) Put(model, text string, vec []float32) {
	cp := make([]float32, len(vec))
	copy(cp, vec)
	c.inner.Add(cacheKey{model: model, text: text}, cp)
}

// Len returns the number of entries currently cached.
func (c *Cache) Len() int { return c.inner.Len() }
