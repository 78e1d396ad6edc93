// Package hybrid fuses keyword (BM25), vector (ANN), and filter retrieval
// into a single ranked result, on top of internal/index and internal/vector.
package hybrid

import (
	"sort"

	"github.com/engramai/engramlite/internal/index"
	"github.com/engramai/engramlite/internal/query"
	"github.com/engramai/engramlite/internal/vector"
)

// Combination selects how per-component scores are fused into one.
type Combination string

const (
	CombineSum      Combination = "sum"
	CombineMax      Combination = "max"
	CombineWeighted Combination = "weighted"
)

const (
	defaultOversample = 4
	minANNCandidates  = 50
)

// Filters narrows the candidate universe before scoring. An empty Filters
// means every engram is a candidate. CollectionEngramIDs is resolved by the
// caller (collection membership is not one of the secondary indexes) and,
// when non-nil, is intersected like any other filter.
type Filters struct {
	Source              *string
	MinConfidence        *float64
	Metadata             *query.MetadataConstraint
	CollectionEngramIDs  []string
}

func (f Filters) isEmpty() bool {
	return f.Source == nil && f.MinConfidence == nil && f.Metadata == nil && f.CollectionEngramIDs == nil
}

// Indexes bundles the secondary indexes hybrid search filters and scores
// against.
type Indexes struct {
	Source     *index.SourceIndex
	Confidence *index.BucketIndex
	Metadata   *index.MetadataIndex
	Text       *index.TextIndex
}

// VectorQuery is the vector half of a hybrid request: either a pre-supplied
// embedding, or raw text the caller's embedder resolves to one.
type VectorQuery struct {
	Vector []float32
	Text   string
}

// Weights supplies the per-component weights for CombineWeighted; they must
// sum to 1 (not enforced here — the caller validates its own configuration).
type Weights struct {
	Text   float64
	Vector float64
}

// Request is one hybrid search: an optional text query, an optional vector
// query, a filter set, a fusion method, and a result limit.
type Request struct {
	Text        string
	Vector      *VectorQuery
	Filters     Filters
	Combination Combination
	Weights     Weights
	Limit       int
	// Oversample scales Limit into the ANN candidate count m = max(Limit *
	// Oversample, 50). Defaults to 4 when <= 0.
	Oversample int
}

// Hit is one fused result: the overall fused score plus the normalized
// per-component scores that produced it (0 for a component that did not
// run or did not match this id).
type Hit struct {
	ID          string
	Score       float64
	TextScore   float64
	VectorScore float64
}

// Embedder resolves raw text to a vector for a VectorQuery that does not
// already carry one.
type Embedder func(text string) []float32

// Search resolves req's filter set, scores the result by BM25 and/or ANN
// similarity, normalizes and fuses the component scores, and returns the
// top Limit hits in descending fused-score order.
func Search(req Request, idx Indexes, ann *vector.HNSW, embed Embedder) []Hit {
	candidates := resolveFilters(req.Filters, idx)

	var textScores map[string]float64
	if req.Text != "" {
		textScores = idx.Text.BM25(req.Text, candidates)
	}

	vectorScores := resolveVectorScores(req, candidates, ann, embed)

	normalizeToUnit(textScores)
	normalizeToUnit(vectorScores)

	hits := fuse(req, candidates, textScores, vectorScores)

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score == hits[j].Score {
			return hits[i].ID < hits[j].ID
		}
		return hits[i].Score > hits[j].Score
	})

	limit := req.Limit
	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}
	return hits
}

// resolveFilters intersects every present filter's candidate set, using the
// smallest set as driver exactly like the query engines. A nil return means
// no filters were set; callers then treat the score maps themselves as
// defining the result universe (the index package has no single "every id"
// accessor independent of a specific constraint).
func resolveFilters(f Filters, idx Indexes) []string {
	if f.isEmpty() {
		return nil
	}
	var sets [][]string
	if f.Source != nil {
		sets = append(sets, idx.Source.Lookup(*f.Source))
	}
	if f.MinConfidence != nil {
		sets = append(sets, idx.Confidence.AtLeast(*f.MinConfidence))
	}
	if f.Metadata != nil {
		sets = append(sets, resolveMetadata(*f.Metadata, idx.Metadata))
	}
	if f.CollectionEngramIDs != nil {
		sets = append(sets, f.CollectionEngramIDs)
	}
	out := intersectSets(sets)
	if out == nil {
		// Filters were set but matched nothing: return an empty, non-nil
		// set so the search stays restricted rather than unrestricted.
		out = []string{}
	}
	return out
}

func resolveMetadata(m query.MetadataConstraint, idx *index.MetadataIndex) []string {
	switch m.Mode {
	case query.MetadataExact:
		return idx.LookupExact(m.Key, m.Value)
	case query.MetadataSubstring:
		substr, _ := m.Value.(string)
		return idx.LookupSubstring(m.Key, substr)
	default:
		return idx.LookupKey(m.Key)
	}
}

// intersectSets returns the intersection of every set, using the smallest
// as the driver and the rest as O(1) membership filters.
func intersectSets(sets [][]string) []string {
	if len(sets) == 0 {
		return nil
	}
	sort.Slice(sets, func(i, j int) bool { return len(sets[i]) < len(sets[j]) })

	driver := sets[0]
	if len(sets) == 1 {
		out := append([]string(nil), driver...)
		sort.Strings(out)
		return out
	}

	memberships := make([]map[string]struct{}, len(sets)-1)
	for i, s := range sets[1:] {
		m := make(map[string]struct{}, len(s))
		for _, id := range s {
			m[id] = struct{}{}
		}
		memberships[i] = m
	}

	var out []string
driverLoop:
	for _, id := range driver {
		for _, m := range memberships {
			if _, ok := m[id]; !ok {
				continue driverLoop
			}
		}
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

func resolveVectorScores(req Request, candidates []string, ann *vector.HNSW, embed Embedder) map[string]float64 {
	if req.Vector == nil || ann == nil {
		return nil
	}
	qv := req.Vector.Vector
	if qv == nil {
		if embed == nil {
			return nil
		}
		qv = embed(req.Vector.Text)
	}
	if qv == nil {
		return nil
	}

	m := req.Oversample
	if m <= 0 {
		m = defaultOversample
	}
	limit := req.Limit
	if limit <= 0 {
		limit = 1
	}
	mCount := limit * m
	if mCount < minANNCandidates {
		mCount = minANNCandidates
	}

	var candidateSet map[string]struct{}
	if candidates != nil {
		candidateSet = make(map[string]struct{}, len(candidates))
		for _, id := range candidates {
			candidateSet[id] = struct{}{}
		}
	}
	filter := func(id string) bool {
		if candidateSet == nil {
			return true
		}
		_, ok := candidateSet[id]
		return ok
	}

	matches, err := ann.Search(qv, mCount, filter)
	if err != nil {
		return nil
	}
	scores := make(map[string]float64, len(matches))
	for _, m := range matches {
		scores[m.ID] = float64(vector.CosineSimilarity(m.Distance))
	}
	return scores
}

// normalizeToUnit divides every score by the maximum present, so the
// largest score in the result becomes 1. A nil/empty map or an all-zero map
// is left alone.
func normalizeToUnit(scores map[string]float64) {
	if len(scores) == 0 {
		return
	}
	max := 0.0
	for _, s := range scores {
		if s > max {
			max = s
		}
	}
	if max == 0 {
		return
	}
	for id, s := range scores {
		scores[id] = s / max
	}
}

func fuse(req Request, candidates []string, textScores, vectorScores map[string]float64) []Hit {
	ids := unionIDs(candidates, textScores, vectorScores)
	hits := make([]Hit, 0, len(ids))
	for id := range ids {
		ts := textScores[id]
		vs := vectorScores[id]
		hits = append(hits, Hit{
			ID:          id,
			TextScore:   ts,
			VectorScore: vs,
			Score:       combine(req.Combination, req.Weights, ts, vs, textScores != nil, vectorScores != nil),
		})
	}
	return hits
}

func combine(method Combination, w Weights, textScore, vectorScore float64, hasText, hasVector bool) float64 {
	switch method {
	case CombineMax:
		if textScore > vectorScore {
			return textScore
		}
		return vectorScore
	case CombineWeighted:
		var score float64
		if hasText {
			score += w.Text * textScore
		}
		if hasVector {
			score += w.Vector * vectorScore
		}
		return score
	default: // CombineSum
		return textScore + vectorScore
	}
}

// unionIDs returns every id that is a viable result: every candidate when a
// filter ran, plus every id either scoring component actually matched
// (covers the no-filter case, where the score maps alone define the
// universe).
func unionIDs(candidates []string, textScores, vectorScores map[string]float64) map[string]struct{} {
	set := map[string]struct{}{}
	if candidates != nil {
		for _, id := range candidates {
			set[id] = struct{}{}
		}
		return set
	}
	for id := range textScores {
		set[id] = struct{}{}
	}
	for id := range vectorScores {
		set[id] = struct{}{}
	}
	return set
}
