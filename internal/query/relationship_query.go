package query

import (
	"sort"

	"github.com/engramai/engramlite/internal/graph"
	"github.com/engramai/engramlite/internal/index"
)

// RelationshipQuery narrows connections by source engram, target engram,
// relationship type, and a minimum weight, all AND-combined and all
// optional.
type RelationshipQuery struct {
	SourceID         *string
	TargetID         *string
	RelationshipType *string
	MinWeight        *float64
}

// Execute intersects the relevant relationship-index projections (using the
// smallest as driver, same as EngramQuery), then applies the weight filter
// against the graph mirror since weight is not itself indexed. At least one
// of SourceID/TargetID/RelationshipType must be set; an all-nil query
// returns nil rather than scanning the full connection set.
func (q RelationshipQuery) Execute(idx *index.RelationshipIndex, g *graph.Graph) []string {
	var sets []candidatePair

	if q.SourceID != nil {
		sets = append(sets, candidatePair{"source_id", idx.Outgoing(*q.SourceID)})
	}
	if q.TargetID != nil {
		sets = append(sets, candidatePair{"target_id", idx.Incoming(*q.TargetID)})
	}
	if q.RelationshipType != nil {
		sets = append(sets, candidatePair{"relationship_type", idx.ByType(*q.RelationshipType)})
	}
	if len(sets) == 0 {
		return nil
	}

	ids := intersectCandidates(sets)

	if q.MinWeight != nil {
		filtered := ids[:0:0]
		for _, id := range ids {
			if edge, ok := g.Edge(id); ok && edge.Weight >= *q.MinWeight {
				filtered = append(filtered, id)
			}
		}
		ids = filtered
	}

	sort.Strings(ids)
	return ids
}
