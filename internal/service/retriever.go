package service

import (
	"context"
	"fmt"

	"github.com/arturoeanton/bizreg-assistant/internal/domain"
	"github.com/arturoeanton/bizreg-assistant/internal/port"
)

// DefaultTopK is the number of chunks retrieved per query.
const DefaultTopK = 3

// IndexSource exposes the index currently serving queries.
type IndexSource interface {
	Active() (domain.IndexState, port.VectorIndex)
}

// Retriever fetches the chunks most relevant to a query from whichever index
// is active.
type Retriever struct {
	indexes  IndexSource
	embedder port.Embedder
	topK     int
}

// NewRetriever creates a retriever. topK <= 0 selects DefaultTopK.
func NewRetriever(indexes IndexSource, embedder port.Embedder, topK int) *Retriever {
	if topK <= 0 {
		topK = DefaultTopK
	}
	return &Retriever{indexes: indexes, embedder: embedder, topK: topK}
}

// Retrieve returns up to k chunks (the configured default when k <= 0).
// It never waits for a build: before the first build completes it returns
// an empty result. The query is embedded only when the active index needs a
// vector, so a degraded index keeps serving without the embedding service.
func (r *Retriever) Retrieve(ctx context.Context, text string, k int) (domain.RetrievalResult, error) {
	state, idx := r.indexes.Active()
	if !state.Built() || idx == nil || idx.Len() == 0 {
		return domain.RetrievalResult{}, nil
	}
	if k <= 0 {
		k = r.topK
	}

	q := port.SearchQuery{Text: text}
	if idx.NeedsVector() {
		vec, err := r.embedder.Embed(ctx, text)
		if err != nil {
			return domain.RetrievalResult{}, fmt.Errorf("embed query: %w", err)
		}
		q.Vector = vec
	}
	return idx.Search(q, k), nil
}
