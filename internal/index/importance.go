package index

import (
	"sort"
	"time"
)

// importanceRecord is the per-engram state the importance/access index
// needs to answer its queries without consulting the store.
type importanceRecord struct {
	importance   float64
	accessCount  uint64
	lastAccessed time.Time
	ttlSeconds   *uint64
}

// ImportanceAccessIndex buckets importance like the confidence index and
// keeps per-engram records of access_count, last_accessed, and ttl_seconds.
// No sorted lists are stored; sorted views are computed on each call.
type ImportanceAccessIndex struct {
	importanceBuckets *BucketIndex
	records           map[string]importanceRecord
}

// NewImportanceAccessIndex returns an empty importance/access index.
func NewImportanceAccessIndex() *ImportanceAccessIndex {
	return &ImportanceAccessIndex{
		importanceBuckets: NewBucketIndex(),
		records:           map[string]importanceRecord{},
	}
}

// Add indexes or re-indexes id's importance/access state. Idempotent.
func (idx *ImportanceAccessIndex) Add(id string, importance float64, accessCount uint64, lastAccessed time.Time, ttlSeconds *uint64) {
	idx.importanceBuckets.Add(id, importance)
	idx.records[id] = importanceRecord{
		importance:   importance,
		accessCount:  accessCount,
		lastAccessed: lastAccessed,
		ttlSeconds:   ttlSeconds,
	}
}

// Remove deletes id from the index.
func (idx *ImportanceAccessIndex) Remove(id string) {
	idx.importanceBuckets.Remove(id)
	delete(idx.records, id)
}

// MinImportance returns engram ids with importance >= threshold.
func (idx *ImportanceAccessIndex) MinImportance(threshold float64) []string {
	return idx.importanceBuckets.AtLeast(threshold)
}

// MinAccessCount returns engram ids with access_count >= threshold.
func (idx *ImportanceAccessIndex) MinAccessCount(threshold uint64) []string {
	var out []string
	for id, rec := range idx.records {
		if rec.accessCount >= threshold {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}

// MostRecentlyAccessed returns the k engram ids with the most recent
// last_accessed timestamps.
func (idx *ImportanceAccessIndex) MostRecentlyAccessed(k int) []string {
	type pair struct {
		id string
		ts time.Time
	}
	pairs := make([]pair, 0, len(idx.records))
	for id, rec := range idx.records {
		pairs = append(pairs, pair{id, rec.lastAccessed})
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].ts.Equal(pairs[j].ts) {
			return pairs[i].id < pairs[j].id
		}
		return pairs[i].ts.After(pairs[j].ts)
	})
	if k > len(pairs) {
		k = len(pairs)
	}
	out := make([]string, k)
	for i := 0; i < k; i++ {
		out[i] = pairs[i].id
	}
	return out
}

// Expired returns engram ids whose last_accessed + ttl_seconds <= now.
func (idx *ImportanceAccessIndex) Expired(now time.Time) []string {
	var out []string
	for id, rec := range idx.records {
		if rec.ttlSeconds == nil {
			continue
		}
		deadline := rec.lastAccessed.Add(time.Duration(*rec.ttlSeconds) * time.Second)
		if !now.Before(deadline) {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}

// Importance returns the currently indexed importance value for id.
func (idx *ImportanceAccessIndex) Importance(id string) (float64, bool) {
	rec, ok := idx.records[id]
	return rec.importance, ok
}

// SortedByImportance returns every indexed engram id ordered by descending
// importance, ties broken by id for determinism.
func (idx *ImportanceAccessIndex) SortedByImportance() []string {
	type pair struct {
		id    string
		score float64
	}
	pairs := make([]pair, 0, len(idx.records))
	for id, rec := range idx.records {
		pairs = append(pairs, pair{id, rec.importance})
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].score == pairs[j].score {
			return pairs[i].id < pairs[j].id
		}
		return pairs[i].score > pairs[j].score
	})
	out := make([]string, len(pairs))
	for i, p := range pairs {
		out[i] = p.id
	}
	return out
}
