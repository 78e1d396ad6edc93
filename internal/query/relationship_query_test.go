package query

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/engramai/engramlite/internal/graph"
	"github.com/engramai/engramlite/internal/index"
)

func buildRelFixture() (*index.RelationshipIndex, *graph.Graph) {
	idx := index.NewRelationshipIndex()
	g := graph.New()

	add := func(connID, sourceID, targetID, relType string, weight float64) {
		idx.Add(connID, sourceID, targetID, relType)
		g.AddEdge(graph.Edge{ID: connID, Kind: graph.EdgeConnection, From: sourceID, To: targetID, Weight: weight, RelationshipType: relType})
	}
	add("c1", "e1", "e2", "supports", 0.9)
	add("c2", "e1", "e3", "contradicts", 0.1)
	add("c3", "e4", "e2", "supports", 0.4)

	return idx, g
}

func TestRelationshipQuery_BySourceID(t *testing.T) {
	idx, g := buildRelFixture()
	res := RelationshipQuery{SourceID: strPtr("e1")}.Execute(idx, g)
	assert.Equal(t, []string{"c1", "c2"}, res)
}

func TestRelationshipQuery_ANDSourceAndType(t *testing.T) {
	idx, g := buildRelFixture()
	res := RelationshipQuery{SourceID: strPtr("e1"), RelationshipType: strPtr("supports")}.Execute(idx, g)
	assert.Equal(t, []string{"c1"}, res)
}

func TestRelationshipQuery_MinWeightFiltersAgainstGraph(t *testing.T) {
	idx, g := buildRelFixture()
	res := RelationshipQuery{RelationshipType: strPtr("supports"), MinWeight: f64Ptr(0.5)}.Execute(idx, g)
	assert.Equal(t, []string{"c1"}, res)
}

func TestRelationshipQuery_NoConstraintsReturnsNil(t *testing.T) {
	idx, g := buildRelFixture()
	res := RelationshipQuery{}.Execute(idx, g)
	assert.Nil(t, res)
}

func TestRelationshipQuery_TargetID(t *testing.T) {
	idx, g := buildRelFixture()
	res := RelationshipQuery{TargetID: strPtr("e2")}.Execute(idx, g)
	assert.Equal(t, []string{"c1", "c3"}, res)
}
