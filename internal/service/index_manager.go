package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/arturoeanton/bizreg-assistant/internal/adapter/index"
	"github.com/arturoeanton/bizreg-assistant/internal/domain"
	"github.com/arturoeanton/bizreg-assistant/internal/port"
)

// IndexManagerConfig controls a build.
type IndexManagerConfig struct {
	Dir         string // knowledge directory
	BatchSize   int    // texts per embedding call
	Concurrency int    // embedding calls in flight
}

// indexSnapshot is published as a whole; readers never see a partly built
// index.
type indexSnapshot struct {
	status domain.IndexStatus
	index  port.VectorIndex
}

// IndexManager owns the process-wide knowledge index and its lifecycle
// UNINITIALIZED → LOADING → READY | DEGRADED.
type IndexManager struct {
	loader   port.DocumentLoader
	chunker  port.Chunker
	embedder port.Embedder
	cfg      IndexManagerConfig

	current  atomic.Pointer[indexSnapshot]
	building sync.Mutex

	subMu sync.Mutex
	subs  map[chan domain.IndexStatus]struct{}
}

// NewIndexManager creates a manager in the UNINITIALIZED state.
func NewIndexManager(loader port.DocumentLoader, chunker port.Chunker, embedder port.Embedder, cfg IndexManagerConfig) *IndexManager {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 64
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	m := &IndexManager{
		loader:   loader,
		chunker:  chunker,
		embedder: embedder,
		cfg:      cfg,
		subs:     make(map[chan domain.IndexStatus]struct{}),
	}
	m.current.Store(&indexSnapshot{status: domain.IndexStatus{
		State:     domain.IndexUninitialized,
		Documents: []string{},
	}})
	return m
}

// Active returns the current state and the index serving queries. The index
// is nil unless the state is READY or DEGRADED.
func (m *IndexManager) Active() (domain.IndexState, port.VectorIndex) {
	snap := m.current.Load()
	return snap.status.State, snap.index
}

// Status returns a copy of the current lifecycle status.
func (m *IndexManager) Status() domain.IndexStatus {
	st := m.current.Load().status
	st.Documents = cloneStrings(st.Documents)
	return st
}

// Start launches a build in the background and returns immediately. It is
// used both at startup and for explicit rebuilds. ErrBuildInProgress is
// returned when a build is already running.
func (m *IndexManager) Start(ctx context.Context) error {
	if !m.building.TryLock() {
		return port.ErrBuildInProgress
	}
	go func() {
		defer m.building.Unlock()
		m.build(ctx)
	}()
	return nil
}

// Build runs a build to completion and returns the final status. Build
// failures are reported through the status, not the error; the error is
// ErrBuildInProgress when another build holds the manager.
func (m *IndexManager) Build(ctx context.Context) (domain.IndexStatus, error) {
	if !m.building.TryLock() {
		return m.Status(), port.ErrBuildInProgress
	}
	defer m.building.Unlock()
	return m.build(ctx), nil
}

func (m *IndexManager) build(ctx context.Context) domain.IndexStatus {
	started := time.Now()
	m.publish(&indexSnapshot{status: domain.IndexStatus{
		State:     domain.IndexLoading,
		Documents: []string{},
		StartedAt: started,
	}})
	slog.Info("knowledge index build started", "dir", m.cfg.Dir)

	docs, err := m.loader.Load(ctx, m.cfg.Dir)
	if err == nil && len(docs) == 0 {
		err = &port.LoadError{Dir: m.cfg.Dir, Err: port.ErrNoDocuments}
	}
	if err != nil {
		return m.degrade(started, nil, nil, err)
	}

	names := make([]string, len(docs))
	var chunks []domain.Chunk
	for i, doc := range docs {
		names[i] = doc.Metadata.SourceName
		chunks = append(chunks, m.chunker.Split(doc)...)
	}
	slog.Info("knowledge documents chunked", "documents", len(docs), "chunks", len(chunks))

	if len(chunks) == 0 {
		return m.degrade(started, names, nil, &port.LoadError{Dir: m.cfg.Dir, Err: port.ErrNoDocuments})
	}

	vectors, err := m.embedAll(ctx, chunks)
	if err != nil {
		return m.degrade(started, names, chunks, err)
	}

	entries := make([]domain.IndexEntry, len(chunks))
	for i, c := range chunks {
		entries[i] = domain.IndexEntry{Chunk: c, Vector: vectors[i]}
	}
	idx := index.NewFlatIndex(entries)

	snap := &indexSnapshot{
		index: idx,
		status: domain.IndexStatus{
			State:       domain.IndexReady,
			Kind:        idx.Kind(),
			Entries:     idx.Len(),
			Documents:   names,
			StartedAt:   started,
			CompletedAt: time.Now(),
		},
	}
	m.publish(snap)
	slog.Info("knowledge index ready", "entries", idx.Len(), "duration", time.Since(started).String())
	return snap.status
}

// degrade publishes a keyword index over whatever chunks were produced.
func (m *IndexManager) degrade(started time.Time, names []string, chunks []domain.Chunk, cause error) domain.IndexStatus {
	if names == nil {
		names = []string{}
	}
	idx := index.NewKeywordIndex(chunks)
	snap := &indexSnapshot{
		index: idx,
		status: domain.IndexStatus{
			State:       domain.IndexDegraded,
			Kind:        idx.Kind(),
			Entries:     idx.Len(),
			Documents:   names,
			Error:       cause.Error(),
			StartedAt:   started,
			CompletedAt: time.Now(),
		},
	}
	m.publish(snap)
	slog.Warn("knowledge index degraded",
		"entries", idx.Len(),
		"failure_kind", port.KindOf(cause),
		"error", cause,
	)
	return snap.status
}

// embedAll embeds every chunk or fails as a whole.
func (m *IndexManager) embedAll(ctx context.Context, chunks []domain.Chunk) ([][]float32, error) {
	vectors := make([][]float32, len(chunks))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.cfg.Concurrency)

	for start := 0; start < len(chunks); start += m.cfg.BatchSize {
		end := start + m.cfg.BatchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		texts := make([]string, end-start)
		for i := range texts {
			texts[i] = chunks[start+i].Content
		}

		g.Go(func() error {
			vecs, err := m.embedder.EmbedBatch(gctx, texts)
			if err != nil {
				return fmt.Errorf("embed chunks %d-%d: %w", start, start+len(texts)-1, err)
			}
			if len(vecs) != len(texts) {
				return &port.EmbeddingError{
					Kind: port.FailureUnknown,
					Err:  fmt.Errorf("embed chunks %d-%d: got %d vectors", start, start+len(texts)-1, len(vecs)),
				}
			}
			copy(vectors[start:], vecs)
			slog.Debug("embedded chunk batch", "from", start, "count", len(texts))
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return vectors, nil
}

func (m *IndexManager) publish(snap *indexSnapshot) {
	m.current.Store(snap)

	status := snap.status
	m.subMu.Lock()
	defer m.subMu.Unlock()
	for ch := range m.subs {
		select {
		case ch <- status:
		default:
		}
	}
}

// Subscribe returns a channel of status changes and a function that ends
// the subscription. Slow readers miss intermediate updates.
func (m *IndexManager) Subscribe() (<-chan domain.IndexStatus, func()) {
	ch := make(chan domain.IndexStatus, 8)
	m.subMu.Lock()
	m.subs[ch] = struct{}{}
	m.subMu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			m.subMu.Lock()
			delete(m.subs, ch)
			m.subMu.Unlock()
			close(ch)
		})
	}
}
