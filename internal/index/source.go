package index

// SourceIndex maps a source string to the set of engram ids with that
// source.
type SourceIndex struct {
	bySource map[string]map[string]struct{}
	current  map[string]string // engram id -> last-indexed source, for Update/Remove
}

// NewSourceIndex returns an empty source index.
func NewSourceIndex() *SourceIndex {
	return &SourceIndex{
		bySource: map[string]map[string]struct{}{},
		current:  map[string]string{},
	}
}

// Add indexes id under source. Idempotent, and handles re-indexing under a
// new source if id was previously indexed differently (acts as Update).
func (idx *SourceIndex) Add(id, source string) {
	if prev, ok := idx.current[id]; ok && prev != source {
		removeFrom(idx.bySource, prev, id)
	}
	idx.current[id] = source
	addTo(idx.bySource, source, id)
}

// Remove deletes id from the index entirely.
func (idx *SourceIndex) Remove(id string) {
	source, ok := idx.current[id]
	if !ok {
		return
	}
	removeFrom(idx.bySource, source, id)
	delete(idx.current, id)
}

// Lookup returns the engram ids with the given exact source.
func (idx *SourceIndex) Lookup(source string) []string {
	return sortedKeys(idx.bySource[source])
}
