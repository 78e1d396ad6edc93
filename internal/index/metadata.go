package index

import "github.com/engramai/engramlite/pkg/types"

// MetadataIndex is a nested map from metadata key to canonical value string
// to the set of engram ids carrying that (key, value) pair.
type MetadataIndex struct {
	byKeyValue map[string]map[string]map[string]struct{} // key -> value string -> ids
	current    map[string]map[string]string              // engram id -> key -> value string, for clean Remove/Update
}

// NewMetadataIndex returns an empty metadata index.
func NewMetadataIndex() *MetadataIndex {
	return &MetadataIndex{
		byKeyValue: map[string]map[string]map[string]struct{}{},
		current:    map[string]map[string]string{},
	}
}

// Add indexes every (key, value) pair of metadata under id. Idempotent,
// and clears any previously indexed pairs for id first so re-indexing acts
// as Update.
func (idx *MetadataIndex) Add(id string, metadata map[string]interface{}) {
	idx.Remove(id)
	if len(metadata) == 0 {
		return
	}
	pairs := make(map[string]string, len(metadata))
	for key, value := range metadata {
		valueStr := types.MetadataValueString(value)
		pairs[key] = valueStr
		if idx.byKeyValue[key] == nil {
			idx.byKeyValue[key] = map[string]map[string]struct{}{}
		}
		if idx.byKeyValue[key][valueStr] == nil {
			idx.byKeyValue[key][valueStr] = map[string]struct{}{}
		}
		idx.byKeyValue[key][valueStr][id] = struct{}{}
	}
	idx.current[id] = pairs
}

// Remove deletes every indexed metadata pair for id.
func (idx *MetadataIndex) Remove(id string) {
	pairs, ok := idx.current[id]
	if !ok {
		return
	}
	for key, valueStr := range pairs {
		if set, ok := idx.byKeyValue[key][valueStr]; ok {
			delete(set, id)
			if len(set) == 0 {
				delete(idx.byKeyValue[key], valueStr)
			}
		}
		if len(idx.byKeyValue[key]) == 0 {
			delete(idx.byKeyValue, key)
		}
	}
	delete(idx.current, id)
}

// LookupExact returns the engram ids with exactly (key, value).
func (idx *MetadataIndex) LookupExact(key string, value interface{}) []string {
	valueStr := types.MetadataValueString(value)
	return sortedKeys(idx.byKeyValue[key][valueStr])
}

// LookupKey returns the union of engram ids carrying any value for key.
func (idx *MetadataIndex) LookupKey(key string) []string {
	set := map[string]struct{}{}
	for _, ids := range idx.byKeyValue[key] {
		for id := range ids {
			set[id] = struct{}{}
		}
	}
	return sortedKeys(set)
}

// LookupSubstring returns the engram ids whose canonical value string for
// key contains substr, supporting the query engine's substring metadata
// matching mode.
func (idx *MetadataIndex) LookupSubstring(key, substr string) []string {
	set := map[string]struct{}{}
	for valueStr, ids := range idx.byKeyValue[key] {
		if containsFold(valueStr, substr) {
			for id := range ids {
				set[id] = struct{}{}
			}
		}
	}
	return sortedKeys(set)
}
