package query

import (
	"sort"
	"time"

	"github.com/engramai/engramlite/internal/index"
)

// SortOrder selects how EngramQuery results are ordered. SortRelevance
// orders by BM25 score and leaves the order unchanged without a text query;
// the other orders ignore scores. Ties are broken by id.
type SortOrder string

const (
	SortRecency    SortOrder = "recency"
	SortImportance SortOrder = "importance"
	SortRelevance  SortOrder = "relevance"
)

// MetadataMatchMode selects how EngramQuery's metadata constraint is
// evaluated.
type MetadataMatchMode int

const (
	// MetadataAnyValue matches any engram carrying a value for Key.
	MetadataAnyValue MetadataMatchMode = iota
	// MetadataExact matches engrams whose Key carries exactly Value.
	MetadataExact
	// MetadataSubstring matches engrams whose canonical value string for
	// Key contains Value (which must be a string).
	MetadataSubstring
)

// MetadataConstraint narrows an EngramQuery by a metadata key and, depending
// on Mode, an exact or substring value match.
type MetadataConstraint struct {
	Key   string
	Value interface{}
	Mode  MetadataMatchMode
}

// EngramQuery is a record of optional constraints over the engram indexes,
// combined with AND semantics. A nil/zero field means the constraint is not
// applied.
type EngramQuery struct {
	Source         *string
	MinConfidence  *float64
	Metadata       *MetadataConstraint
	TextQuery      string
	TextFuzzy      bool
	Before         *time.Time
	After          *time.Time
	MinImportance  *float64
	MinAccessCount *uint64
	Sort           SortOrder
	Limit          int
}

// Indexes bundles the secondary indexes an EngramQuery plans against.
type Indexes struct {
	Source           *index.SourceIndex
	Confidence       *index.BucketIndex
	Metadata         *index.MetadataIndex
	Text             *index.TextIndex
	Temporal         *index.TemporalIndex
	ImportanceAccess *index.ImportanceAccessIndex
}

// Result is an EngramQuery's output: the matching ids in their final sort
// order, plus BM25 scores keyed by id when a text query was present.
type Result struct {
	IDs    []string
	Scores map[string]float64
}

// Execute plans and runs the query: it gathers one candidate set per
// present constraint, intersects them using the smallest as the driver,
// scores by BM25 when a text query is present, and sorts per Sort before
// truncating to Limit (0 means unlimited).
func (q EngramQuery) Execute(idx Indexes) Result {
	var sets []candidatePair

	if q.Source != nil {
		sets = append(sets, candidatePair{"source", idx.Source.Lookup(*q.Source)})
	}
	if q.MinConfidence != nil {
		sets = append(sets, candidatePair{"confidence", idx.Confidence.AtLeast(*q.MinConfidence)})
	}
	if q.Metadata != nil {
		sets = append(sets, candidatePair{"metadata", q.Metadata.resolve(idx.Metadata)})
	}
	if q.TextQuery != "" {
		var ids []string
		if q.TextFuzzy {
			ids = idx.Text.SearchFuzzy(q.TextQuery)
		} else {
			ids = idx.Text.SearchExact(q.TextQuery)
		}
		sets = append(sets, candidatePair{"text", ids})
	}
	if q.Before != nil {
		sets = append(sets, candidatePair{"before", idx.Temporal.Before(*q.Before)})
	}
	if q.After != nil {
		sets = append(sets, candidatePair{"after", idx.Temporal.After(*q.After)})
	}
	if q.MinImportance != nil {
		sets = append(sets, candidatePair{"importance", idx.ImportanceAccess.MinImportance(*q.MinImportance)})
	}
	if q.MinAccessCount != nil {
		sets = append(sets, candidatePair{"access_count", idx.ImportanceAccess.MinAccessCount(*q.MinAccessCount)})
	}

	var ids []string
	if len(sets) == 0 {
		// No constraints at all: the importance/access index tracks every
		// live engram, so it doubles as the query universe.
		ids = idx.ImportanceAccess.SortedByImportance()
	} else {
		ids = intersectCandidates(sets)
	}

	var scores map[string]float64
	if q.TextQuery != "" {
		scores = idx.Text.BM25(q.TextQuery, ids)
	}

	sortResults(ids, q.Sort, scores, idx.Temporal, idx.ImportanceAccess)

	if q.Limit > 0 && len(ids) > q.Limit {
		ids = ids[:q.Limit]
	}

	return Result{IDs: ids, Scores: scores}
}

func (m MetadataConstraint) resolve(idx *index.MetadataIndex) []string {
	switch m.Mode {
	case MetadataExact:
		return idx.LookupExact(m.Key, m.Value)
	case MetadataSubstring:
		substr, _ := m.Value.(string)
		return idx.LookupSubstring(m.Key, substr)
	default:
		return idx.LookupKey(m.Key)
	}
}

// sortResults orders ids in place. Relevance sorts by descending BM25 score
// (a no-op when scores is nil, e.g. a relevance sort with no text query).
// Importance and recency consult the live index values directly rather than
// each index's own globally-sorted list, since only the already-intersected
// subset is being ordered here.
func sortResults(ids []string, order SortOrder, scores map[string]float64, temporal *index.TemporalIndex, ia *index.ImportanceAccessIndex) {
	switch order {
	case SortRelevance:
		if scores == nil {
			return
		}
		sort.Slice(ids, func(i, j int) bool {
			si, sj := scores[ids[i]], scores[ids[j]]
			if si == sj {
				return ids[i] < ids[j]
			}
			return si > sj
		})
	case SortImportance:
		sort.Slice(ids, func(i, j int) bool {
			vi, _ := ia.Importance(ids[i])
			vj, _ := ia.Importance(ids[j])
			if vi == vj {
				return ids[i] < ids[j]
			}
			return vi > vj
		})
	case SortRecency:
		sort.Slice(ids, func(i, j int) bool {
			ti, _ := temporal.Timestamp(ids[i])
			tj, _ := temporal.Timestamp(ids[j])
			if ti.Equal(tj) {
				return ids[i] < ids[j]
			}
			return ti.After(tj)
		})
	default:
		sort.Strings(ids)
	}
}
