package index

import (
	"math"
	"regexp"
	"strings"

	"github.com/arturoeanton/bizreg-assistant/internal/domain"
	"github.com/arturoeanton/bizreg-assistant/internal/port"
)

var wordRe = regexp.MustCompile(`[\p{L}\p{N}]+(?:['’][\p{L}]+)*`)

var stopwords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {}, "be": {}, "by": {},
	"can": {}, "do": {}, "does": {}, "for": {}, "from": {}, "how": {}, "i": {},
	"if": {}, "in": {}, "is": {}, "it": {}, "me": {}, "my": {}, "need": {}, "of": {},
	"on": {}, "or": {}, "should": {}, "the": {}, "to": {}, "what": {}, "when": {},
	"which": {}, "who": {}, "will": {}, "with": {}, "you": {}, "your": {},
}

// KeywordIndex is the degraded-mode index used when embeddings are
// unavailable. It ranks chunks by the Ochiai coefficient between the query's
// and the chunk's distinct word sets. Chunks that share no word with the
// query score 0 and keep their insertion order, so a query with no overlap
// returns the first k chunks.
type KeywordIndex struct {
	chunks []domain.Chunk
	tokens []map[string]struct{}
}

var _ port.VectorIndex = (*KeywordIndex)(nil)

// NewKeywordIndex builds a keyword index over chunks.
func NewKeywordIndex(chunks []domain.Chunk) *KeywordIndex {
	idx := &KeywordIndex{
		chunks: make([]domain.Chunk, len(chunks)),
		tokens: make([]map[string]struct{}, len(chunks)),
	}
	copy(idx.chunks, chunks)
	for i, c := range idx.chunks {
		idx.tokens[i] = tokenSet(c.Content)
	}
	return idx
}

// Kind implements port.VectorIndex.
func (k *KeywordIndex) Kind() string { return KindKeyword }

// NeedsVector implements port.VectorIndex.
func (k *KeywordIndex) NeedsVector() bool { return false }

// Len implements port.VectorIndex.
func (k *KeywordIndex) Len() int { return len(k.chunks) }

// Search ranks chunks by word overlap with q.Text.
func (k *KeywordIndex) Search(q port.SearchQuery, limit int) domain.RetrievalResult {
	if limit <= 0 || len(k.chunks) == 0 {
		return domain.RetrievalResult{}
	}

	qset := tokenSet(q.Text)
	scored := make(domain.RetrievalResult, len(k.chunks))
	for i, c := range k.chunks {
		scored[i] = domain.ScoredChunk{Chunk: c, Score: ochiai(qset, k.tokens[i])}
	}
	return topK(scored, limit)
}

func tokenSet(s string) map[string]struct{} {
	words := wordRe.FindAllString(strings.ToLower(s), -1)
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		if _, stop := stopwords[w]; stop {
			continue
		}
		set[w] = struct{}{}
	}
	return set
}

// ochiai is |A∩B| / sqrt(|A|·|B|).
func ochiai(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	small, large := a, b
	if len(small) > len(large) {
		small, large = large, small
	}
	inter := 0
	for w := range small {
		if _, ok := large[w]; ok {
			inter++
		}
	}
	return float64(inter) / math.Sqrt(float64(len(a))*float64(len(b)))
}
