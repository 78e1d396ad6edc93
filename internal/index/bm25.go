package index

import "math"

const (
	bm25K1 = 1.2
	bm25B  = 0.75
)

// BM25 scores query against candidates using Okapi BM25 (k1=1.2, b=0.75),
// using this index's running document-frequency and average document-length
// statistics. Candidates with no overlapping terms score zero rather than
// being omitted. A nil candidates means "every indexed document is a
// candidate" (mirrors resolveVectorScores's nil-means-unrestricted
// convention); pass an explicit empty, non-nil slice to score nothing.
func (idx *TextIndex) BM25(query string, candidates []string) map[string]float64 {
	ids := candidates
	if ids == nil {
		ids = idx.AllIDs()
	}

	scores := make(map[string]float64, len(ids))
	tokens := Tokenize(query)
	if len(tokens) == 0 || len(ids) == 0 {
		return scores
	}

	n := idx.DocCount()
	avgdl := idx.AverageDocLength()
	if avgdl == 0 {
		avgdl = 1
	}

	idf := make(map[string]float64, len(tokens))
	for _, tok := range tokens {
		df := idx.DocFreq(tok)
		idf[tok] = math.Log(1 + (float64(n)-float64(df)+0.5)/(float64(df)+0.5))
	}

	for _, id := range ids {
		docLen := float64(idx.DocLength(id))
		var score float64
		for _, tok := range tokens {
			tf := float64(idx.TermFreq(id, tok))
			if tf == 0 {
				continue
			}
			denom := tf + bm25K1*(1-bm25B+bm25B*docLen/avgdl)
			score += idf[tok] * (tf * (bm25K1 + 1) / denom)
		}
		scores[id] = score
	}
	return scores
}
