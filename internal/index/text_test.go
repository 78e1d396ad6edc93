package index

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenize_LowercasesStripsPunctuationAndStems(t *testing.T) {
	tokens := Tokenize("Running Tests, Quickly!")
	assert.Equal(t, []string{"runn", "test", "quickly"}, tokens)
}

func TestTokenize_ShortStemsAreNotStripped(t *testing.T) {
	tokens := Tokenize("gas")
	assert.Equal(t, []string{"gas"}, tokens)
}

func TestTextIndex_SearchExactIntersects(t *testing.T) {
	idx := NewTextIndex()
	idx.Add("e1", "the rocket launched successfully")
	idx.Add("e2", "the rocket failed")
	idx.Add("e3", "completely unrelated content")

	assert.ElementsMatch(t, []string{"e1", "e2"}, idx.SearchExact("rocket"))
	assert.ElementsMatch(t, []string{"e1"}, idx.SearchExact("rocket launched"))
}

func TestTextIndex_SearchFuzzyUnions(t *testing.T) {
	idx := NewTextIndex()
	idx.Add("e1", "rocket launch")
	idx.Add("e2", "satellite orbit")

	assert.ElementsMatch(t, []string{"e1", "e2"}, idx.SearchFuzzy("rocket orbit"))
}

func TestTextIndex_RemoveCleansPostingsAndDocLength(t *testing.T) {
	idx := NewTextIndex()
	idx.Add("e1", "rocket launch")
	require.Equal(t, 2, idx.DocLength("e1"))

	idx.Remove("e1")
	assert.Empty(t, idx.SearchFuzzy("rocket"))
	assert.Equal(t, 0, idx.DocLength("e1"))
	assert.Equal(t, 0, idx.DocCount())
}

func TestTextIndex_BM25Groundwork(t *testing.T) {
	idx := NewTextIndex()
	idx.Add("e1", "rocket rocket launch")
	idx.Add("e2", "satellite orbit")

	assert.Equal(t, 2, idx.DocCount())
	assert.Equal(t, 1, idx.DocFreq("rocket"))
	assert.Equal(t, 2, idx.TermFreq("e1", "rocket"))
	assert.InDelta(t, 2.5, idx.AverageDocLength(), 0.001)
}

func TestTextIndex_AddReindexesOnUpdate(t *testing.T) {
	idx := NewTextIndex()
	idx.Add("e1", "rocket launch")
	idx.Add("e1", "satellite orbit")

	assert.Empty(t, idx.SearchFuzzy("rocket"))
	assert.ElementsMatch(t, []string{"e1"}, idx.SearchFuzzy("satellite"))
}
