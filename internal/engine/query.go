package engine

import (
	"context"

	"github.com/engramai/engramlite/internal/hybrid"
	"github.com/engramai/engramlite/internal/query"
	"github.com/engramai/engramlite/internal/vector"
	"github.com/engramai/engramlite/pkg/types"
)

// Query plans and runs q against the live secondary indexes, then
// materializes the full engram records for the matching ids after
// releasing the shared lock, so slow disk reads never hold up writers.
func (e *Engine) Query(q query.EngramQuery) ([]*EngramResult, error) {
	e.mu.RLock()
	idx := query.Indexes{
		Source:           e.sourceIdx,
		Confidence:       e.confidenceIdx,
		Metadata:         e.metadataIdx,
		Text:             e.textIdx,
		Temporal:         e.temporalIdx,
		ImportanceAccess: e.importanceIdx,
	}
	result := q.Execute(idx)
	e.mu.RUnlock()

	return e.materialize(result.IDs, result.Scores)
}

// EngramResult pairs a materialized engram with its relevance score, if
// the query that produced it carried one (0 otherwise).
type EngramResult struct {
	Engram *types.Engram
	Score  float64
}

// materialize looks up each id's full record without holding any lock
// across the batch of reads, skipping ids that vanished between candidate
// assembly and materialization (a benign race under the read/then-release
// discipline, not an error).
func (e *Engine) materialize(ids []string, scores map[string]float64) ([]*EngramResult, error) {
	out := make([]*EngramResult, 0, len(ids))
	for _, id := range ids {
		e.mu.RLock()
		eng, err := e.getEngramLocked(id)
		e.mu.RUnlock()
		if err != nil {
			continue
		}
		out = append(out, &EngramResult{Engram: eng, Score: scores[id]})
	}
	return out, nil
}

// RelationshipQuery runs q against the relationship index and graph mirror.
func (e *Engine) RelationshipQuery(q query.RelationshipQuery) []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return q.Execute(e.relationshipIdx, e.graph)
}

// Traversal runs a bounded depth-first walk of the connection graph from
// startID.
func (e *Engine) Traversal(t query.Traversal, startID string) ([]query.Path, []string) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return t.Walk(e.graph, startID)
}

// HybridSearch fuses keyword, vector, and filter retrieval per req. A text
// vector query with no pre-supplied Vector is resolved via the configured
// embedding service.
func (e *Engine) HybridSearch(ctx context.Context, req hybrid.Request) []hybrid.Hit {
	e.mu.RLock()
	defer e.mu.RUnlock()

	idx := hybrid.Indexes{
		Source:     e.sourceIdx,
		Confidence: e.confidenceIdx,
		Metadata:   e.metadataIdx,
		Text:       e.textIdx,
	}
	embed := func(text string) []float32 {
		return e.embedding.Embed(ctx, text, vector.PurposeQuery)
	}
	return hybrid.Search(req, idx, e.ann, embed)
}
