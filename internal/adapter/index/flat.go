// Package index holds the in-memory knowledge indexes. Both implementations
// are immutable after construction and safe for concurrent Search calls.
package index

import (
	"math"
	"sort"

	"github.com/arturoeanton/bizreg-assistant/internal/domain"
	"github.com/arturoeanton/bizreg-assistant/internal/port"
)

// Index kinds reported by port.VectorIndex.Kind.
const (
	KindSimilarity = "similarity"
	KindKeyword    = "keyword"
)

// FlatIndex is a brute-force cosine similarity index.
type FlatIndex struct {
	entries []domain.IndexEntry
	norms   []float64
}

var _ port.VectorIndex = (*FlatIndex)(nil)

// NewFlatIndex builds an index over entries. The slice is copied; later
// changes by the caller are not observed.
func NewFlatIndex(entries []domain.IndexEntry) *FlatIndex {
	idx := &FlatIndex{
		entries: make([]domain.IndexEntry, len(entries)),
		norms:   make([]float64, len(entries)),
	}
	copy(idx.entries, entries)
	for i, e := range idx.entries {
		idx.norms[i] = norm(e.Vector)
	}
	return idx
}

// Kind implements port.VectorIndex.
func (f *FlatIndex) Kind() string { return KindSimilarity }

// NeedsVector implements port.VectorIndex.
func (f *FlatIndex) NeedsVector() bool { return true }

// Len implements port.VectorIndex.
func (f *FlatIndex) Len() int { return len(f.entries) }

// Search returns the k entries most similar to q.Vector.
func (f *FlatIndex) Search(q port.SearchQuery, k int) domain.RetrievalResult {
	if k <= 0 || len(f.entries) == 0 {
		return domain.RetrievalResult{}
	}

	qn := norm(q.Vector)
	scored := make(domain.RetrievalResult, len(f.entries))
	for i, e := range f.entries {
		scored[i] = domain.ScoredChunk{
			Chunk: e.Chunk,
			Score: cosine(q.Vector, qn, e.Vector, f.norms[i]),
		}
	}
	return topK(scored, k)
}

// topK orders scored by descending score, keeping insertion order for ties,
// and truncates it to k.
func topK(scored domain.RetrievalResult, k int) domain.RetrievalResult {
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})
	if k < len(scored) {
		scored = scored[:k]
	}
	return scored
}

// cosine returns 0 when either vector is zero, the dimensions differ, or a
// component is NaN or infinite.
func cosine(a []float32, an float64, b []float32, bn float64) float64 {
	if len(a) != len(b) || an == 0 || bn == 0 {
		return 0
	}
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	s := dot / (an * bn)
	if math.IsNaN(s) || math.IsInf(s, 0) {
		return 0
	}
	return s
}

func norm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}
