package hybrid

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/engramai/engramlite/internal/index"
	"github.com/engramai/engramlite/internal/query"
	"github.com/engramai/engramlite/internal/vector"
)

func buildHybridIndexes(t *testing.T) (Indexes, map[string][]float32) {
	t.Helper()
	idx := Indexes{
		Source:     index.NewSourceIndex(),
		Confidence: index.NewBucketIndex(),
		Metadata:   index.NewMetadataIndex(),
		Text:       index.NewTextIndex(),
	}

	docs := map[string]string{
		"e1": "the quick brown fox jumps",
		"e2": "quick quick fox sighting report",
		"e3": "completely unrelated gardening notes",
	}
	vecs := map[string][]float32{
		"e1": {1, 0, 0, 0},
		"e2": {0.9, 0.1, 0, 0},
		"e3": {0, 0, 0, 1},
	}
	for id, content := range docs {
		idx.Source.Add(id, "agent-a")
		idx.Confidence.Add(id, 0.8)
		idx.Text.Add(id, content)
	}
	return idx, vecs
}

func buildHNSW(t *testing.T, vecs map[string][]float32) *vector.HNSW {
	t.Helper()
	h := vector.NewHNSW(vector.HNSWConfig{Dim: 4, M: 8, EfConstruction: 32, EfSearch: 32, Distance: vector.DistanceCosine})
	for id, v := range vecs {
		require.NoError(t, h.Add(id, v))
	}
	return h
}

func TestHybridSearch_TextOnly(t *testing.T) {
	idx, _ := buildHybridIndexes(t)
	req := Request{Text: "quick fox", Combination: CombineSum, Limit: 10}
	hits := Search(req, idx, nil, nil)

	require.NotEmpty(t, hits)
	assert.Equal(t, "e2", hits[0].ID)
	assert.Zero(t, hits[0].VectorScore)
}

func TestHybridSearch_VectorOnly(t *testing.T) {
	idx, vecs := buildHybridIndexes(t)
	ann := buildHNSW(t, vecs)

	req := Request{
		Vector:      &VectorQuery{Vector: []float32{1, 0, 0, 0}},
		Combination: CombineSum,
		Limit:       2,
	}
	hits := Search(req, idx, ann, nil)

	require.NotEmpty(t, hits)
	assert.Equal(t, "e1", hits[0].ID)
	assert.InDelta(t, 1.0, hits[0].VectorScore, 1e-6)
}

func TestHybridSearch_FiltersRestrictCandidates(t *testing.T) {
	idx, vecs := buildHybridIndexes(t)
	ann := buildHNSW(t, vecs)
	idx.Source.Add("e4", "agent-b")

	req := Request{
		Vector:      &VectorQuery{Vector: []float32{1, 0, 0, 0}},
		Filters:     Filters{Source: strPtr("agent-b")},
		Combination: CombineSum,
		Limit:       5,
	}
	hits := Search(req, idx, ann, nil)
	require.Len(t, hits, 1)
	assert.Equal(t, "e4", hits[0].ID)
}

func TestHybridSearch_WeightedCombination(t *testing.T) {
	idx, vecs := buildHybridIndexes(t)
	ann := buildHNSW(t, vecs)

	req := Request{
		Text:        "quick fox",
		Vector:      &VectorQuery{Vector: []float32{1, 0, 0, 0}},
		Combination: CombineWeighted,
		Weights:     Weights{Text: 0.3, Vector: 0.7},
		Limit:       5,
	}
	hits := Search(req, idx, ann, nil)
	require.NotEmpty(t, hits)
	for _, h := range hits {
		assert.LessOrEqual(t, h.Score, 1.0001)
	}
}

func TestHybridSearch_EmbedderResolvesTextVectorQuery(t *testing.T) {
	idx, vecs := buildHybridIndexes(t)
	ann := buildHNSW(t, vecs)

	called := false
	embed := func(text string) []float32 {
		called = true
		assert.Equal(t, "fox photo", text)
		return []float32{1, 0, 0, 0}
	}

	req := Request{
		Vector:      &VectorQuery{Text: "fox photo"},
		Combination: CombineMax,
		Limit:       3,
	}
	hits := Search(req, idx, ann, embed)
	assert.True(t, called)
	require.NotEmpty(t, hits)
}

func TestHybridSearch_MetadataFilter(t *testing.T) {
	idx, _ := buildHybridIndexes(t)
	idx.Metadata.Add("e1", map[string]interface{}{"kind": "sighting"})
	idx.Metadata.Add("e2", map[string]interface{}{"kind": "sighting"})
	idx.Metadata.Add("e3", map[string]interface{}{"kind": "notes"})

	req := Request{
		Text:        "quick",
		Filters:     Filters{Metadata: &query.MetadataConstraint{Key: "kind", Value: "sighting", Mode: query.MetadataExact}},
		Combination: CombineSum,
		Limit:       5,
	}
	hits := Search(req, idx, nil, nil)
	ids := make([]string, len(hits))
	for i, h := range hits {
		ids[i] = h.ID
	}
	assert.ElementsMatch(t, []string{"e1", "e2"}, ids)
}

func strPtr(s string) *string { return &s }
