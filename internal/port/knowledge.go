package port

import (
	"context"

	"github.com/arturoeanton/bizreg-assistant/internal/domain"
)

// DocumentLoader reads the knowledge base.
type DocumentLoader interface {
	// Load returns every readable document under dir. It fails with a
	// *LoadError only when dir itself cannot be read.
	Load(ctx context.Context, dir string) ([]domain.SourceDocument, error)
}

// Chunker splits a document into overlapping chunks. Implementations must be
// deterministic.
type Chunker interface {
	Split(doc domain.SourceDocument) []domain.Chunk
}

// SearchQuery carries both forms of a query so that any index can serve it.
type SearchQuery struct {
	Text   string
	Vector []float32
}

// VectorIndex is an immutable, concurrently readable index of chunks.
type VectorIndex interface {
	// Kind names the ranking strategy ("similarity" or "keyword").
	Kind() string

	// NeedsVector reports whether Search reads SearchQuery.Vector.
	NeedsVector() bool

	// Len returns the number of stored entries.
	Len() int

	// Search returns at most k entries ordered by descending score, ties in
	// insertion order. An empty index yields an empty result.
	Search(q SearchQuery, k int) domain.RetrievalResult
}
