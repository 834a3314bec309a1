package domain

import "time"

// IndexEntry pairs a chunk with its embedding vector. Vector is nil for
// entries held by the keyword index.
type IndexEntry struct {
	Chunk  Chunk     `json:"chunk"`
	Vector []float32 `json:"-"`
}

// ScoredChunk is a single retrieval hit.
type ScoredChunk struct {
	Chunk Chunk   `json:"chunk"`
	Score float64 `json:"score"`
}

// RetrievalResult is ordered by descending score.
type RetrievalResult []ScoredChunk

// Empty reports whether nothing was retrieved.
func (r RetrievalResult) Empty() bool {
	return len(r) == 0
}

// IndexState is the lifecycle of the process-wide knowledge index.
type IndexState string

// Index lifecycle states.
const (
	IndexUninitialized IndexState = "UNINITIALIZED"
	IndexLoading       IndexState = "LOADING"
	IndexReady         IndexState = "READY"
	IndexDegraded      IndexState = "DEGRADED"
)

// Built reports whether a build attempt has finished, successfully or not.
func (s IndexState) Built() bool {
	return s == IndexReady || s == IndexDegraded
}

// IndexStatus is the externally visible view of the index lifecycle.
type IndexStatus struct {
	State       IndexState `json:"state"`
	Kind        string     `json:"kind,omitempty"` // similarity, keyword
	Entries     int        `json:"entries"`
	Documents   []string   `json:"documents"`
	Error       string     `json:"error,omitempty"`
	StartedAt   time.Time  `json:"started_at,omitempty"`
	CompletedAt time.Time  `json:"completed_at,omitempty"`
}
