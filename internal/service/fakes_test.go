package service

import (
	"context"
	"errors"
	"hash/fnv"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/arturoeanton/bizreg-assistant/internal/domain"
	"github.com/arturoeanton/bizreg-assistant/internal/port"
)

// --- Mock implementations ---

// mockLoader implements port.DocumentLoader for testing.
type mockLoader struct {
	docs []domain.SourceDocument
	err  error
}

func (m *mockLoader) Load(_ context.Context, _ string) ([]domain.SourceDocument, error) {
	return m.docs, m.err
}

// hashEmbedder implements port.Embedder with a bag-of-words hash so that
// texts sharing words get similar vectors.
type hashEmbedder struct {
	mu        sync.Mutex
	calls     int32
	failOn    int32 // 1-based EmbedBatch call that fails; 0 = never
	failErr   error
	embedErr  error
	block     chan struct{}
	embedSeen []string
}

func (m *hashEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	m.mu.Lock()
	m.embedSeen = append(m.embedSeen, text)
	m.mu.Unlock()
	if m.embedErr != nil {
		return nil, m.embedErr
	}
	return hashVector(text), nil
}

func (m *hashEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	n := atomic.AddInt32(&m.calls, 1)
	if m.block != nil {
		select {
		case <-m.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if m.failOn > 0 && n >= m.failOn {
		return nil, m.failErr
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = hashVector(t)
	}
	return out, nil
}

func (m *hashEmbedder) embedCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.embedSeen)
}

func hashVector(text string) []float32 {
	vec := make([]float32, 32)
	for _, w := range strings.Fields(strings.ToLower(text)) {
		w = strings.Trim(w, ".,?!:;")
		if w == "" {
			continue
		}
		h := fnv.New32a()
		_, _ = h.Write([]byte(w))
		vec[h.Sum32()%32]++
	}
	return vec
}

// mockGenerator implements port.Generator for testing.
type mockGenerator struct {
	text       string
	err        error
	panicValue interface{}
	lastPrompt string
}

func (m *mockGenerator) ModelName() string { return "mock" }

func (m *mockGenerator) Complete(_ context.Context, prompt string) (string, error) {
	m.lastPrompt = prompt
	if m.panicValue != nil {
		panic(m.panicValue)
	}
	if m.err != nil {
		return "", m.err
	}
	return m.text, nil
}

// staticIndexes implements IndexSource with a fixed state and index.
type staticIndexes struct {
	state domain.IndexState
	index port.VectorIndex
}

func (s staticIndexes) Active() (domain.IndexState, port.VectorIndex) {
	return s.state, s.index
}

// fixedIndex implements port.VectorIndex returning a canned result.
type fixedIndex struct {
	size   int
	result domain.RetrievalResult
}

func (f fixedIndex) Kind() string      { return "fixed" }
func (f fixedIndex) NeedsVector() bool { return false }
func (f fixedIndex) Len() int          { return f.size }
func (f fixedIndex) Search(_ port.SearchQuery, k int) domain.RetrievalResult {
	if k < len(f.result) {
		return f.result[:k]
	}
	return f.result
}

func scored(source, content string, score float64) domain.ScoredChunk {
	return domain.ScoredChunk{
		Chunk: domain.Chunk{Content: content, Metadata: domain.DocumentMetadata{SourceName: source}},
		Score: score,
	}
}

func sourceDoc(name, content string) domain.SourceDocument {
	return domain.SourceDocument{ID: name, Content: content, Metadata: domain.DocumentMetadata{SourceName: name}}
}

var errUpstream = errors.New("upstream failed")
