package index

import (
	"sort"
	"strings"
	"unicode"
)

// TextIndex is an inverted index from lowercased, stemmed tokens to the set
// of engram ids whose content contains them.
type TextIndex struct {
	postings map[string]map[string]struct{} // token -> engram ids
	tokensOf map[string][]string            // engram id -> its token list, for Remove/Update and BM25 doc length
	totalTokens int
}

// NewTextIndex returns an empty text index.
func NewTextIndex() *TextIndex {
	return &TextIndex{
		postings: map[string]map[string]struct{}{},
		tokensOf: map[string][]string{},
	}
}

// Add tokenizes content and indexes id under every resulting token.
// Idempotent, and re-indexes cleanly on update.
func (idx *TextIndex) Add(id, content string) {
	idx.Remove(id)
	tokens := Tokenize(content)
	idx.tokensOf[id] = tokens
	idx.totalTokens += len(tokens)
	for _, tok := range tokens {
		addTo(idx.postings, tok, id)
	}
}

// Remove deletes id's postings entirely.
func (idx *TextIndex) Remove(id string) {
	tokens, ok := idx.tokensOf[id]
	if !ok {
		return
	}
	for _, tok := range tokens {
		removeFrom(idx.postings, tok, id)
	}
	idx.totalTokens -= len(tokens)
	delete(idx.tokensOf, id)
}

// SearchExact intersects the posting lists of every query token —
// engrams containing all query tokens. Case-insensitive, as is all
// tokenization.
func (idx *TextIndex) SearchExact(query string) []string {
	tokens := Tokenize(query)
	if len(tokens) == 0 {
		return nil
	}
	var result map[string]struct{}
	for _, tok := range tokens {
		posting := idx.postings[tok]
		if result == nil {
			result = cloneSet(posting)
			continue
		}
		for id := range result {
			if _, ok := posting[id]; !ok {
				delete(result, id)
			}
		}
	}
	return sortedKeys(result)
}

// SearchFuzzy unions the posting lists of every query token.
func (idx *TextIndex) SearchFuzzy(query string) []string {
	tokens := Tokenize(query)
	set := map[string]struct{}{}
	for _, tok := range tokens {
		for id := range idx.postings[tok] {
			set[id] = struct{}{}
		}
	}
	return sortedKeys(set)
}

// DocLength returns the number of indexed tokens for id (BM25 document
// length).
func (idx *TextIndex) DocLength(id string) int {
	return len(idx.tokensOf[id])
}

// AverageDocLength returns the running average document length across all
// indexed engrams, maintained incrementally.
func (idx *TextIndex) AverageDocLength() float64 {
	if len(idx.tokensOf) == 0 {
		return 0
	}
	return float64(idx.totalTokens) / float64(len(idx.tokensOf))
}

// DocFreq returns the number of engrams containing tok at least once, used
// by BM25's inverse document frequency term.
func (idx *TextIndex) DocFreq(tok string) int {
	return len(idx.postings[tok])
}

// TermFreq returns how many times tok appears in id's content.
func (idx *TextIndex) TermFreq(id, tok string) int {
	count := 0
	for _, t := range idx.tokensOf[id] {
		if t == tok {
			count++
		}
	}
	return count
}

// DocCount returns the number of engrams currently indexed.
func (idx *TextIndex) DocCount() int { return len(idx.tokensOf) }

// AllIDs returns every engram id currently indexed, sorted. Used by BM25
// when scoring is unrestricted by any candidate set.
func (idx *TextIndex) AllIDs() []string {
	out := make([]string, 0, len(idx.tokensOf))
	for id := range idx.tokensOf {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Tokenize lowercases content, strips punctuation, splits on whitespace,
// and lightly stems each token (strips a trailing s, es, ed, or ing if the
// resulting stem length remains >= 3).
func Tokenize(content string) []string {
	lower := strings.ToLower(content)
	var tokens []string
	var current strings.Builder
	flush := func() {
		if current.Len() > 0 {
			tokens = append(tokens, stem(current.String()))
			current.Reset()
		}
	}
	for _, r := range lower {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			current.WriteRune(r)
		} else {
			flush()
		}
	}
	flush()
	return tokens
}

// stem applies the light suffix stripper described above.
func stem(token string) string {
	suffixes := []string{"ing", "ed", "es", "s"}
	for _, suffix := range suffixes {
		if strings.HasSuffix(token, suffix) {
			stem := strings.TrimSuffix(token, suffix)
			if len(stem) >= 3 {
				return stem
			}
		}
	}
	return token
}

func cloneSet(set map[string]struct{}) map[string]struct{} {
	out := make(map[string]struct{}, len(set))
	for k := range set {
		out[k] = struct{}{}
	}
	return out
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}
