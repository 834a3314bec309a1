package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arturoeanton/bizreg-assistant/internal/adapter/chunker"
	"github.com/arturoeanton/bizreg-assistant/internal/adapter/index"
	"github.com/arturoeanton/bizreg-assistant/internal/domain"
	"github.com/arturoeanton/bizreg-assistant/internal/port"
)

func knowledgeDocs() []domain.SourceDocument {
	return []domain.SourceDocument{
		sourceDoc("fssai.txt", "FSSAI licence is mandatory for every food business operating in Delhi."),
		sourceDoc("gst.txt", "GST registration requires PAN and address proof."),
		sourceDoc("long.txt", strings.Repeat("Shops and Establishment Act registration is handled by the Labour Department. ", 30)),
	}
}

func newManager(loader port.DocumentLoader, emb port.Embedder, batch, conc int) *IndexManager {
	return NewIndexManager(loader, chunker.New(), emb, IndexManagerConfig{Dir: "/kb", BatchSize: batch, Concurrency: conc})
}

func TestIndexManager_StartsUninitialized(t *testing.T) {
	m := newManager(&mockLoader{}, &hashEmbedder{}, 0, 0)

	state, idx := m.Active()

	assert.Equal(t, domain.IndexUninitialized, state)
	assert.Nil(t, idx)
	assert.Equal(t, domain.IndexUninitialized, m.Status().State)
}

func TestIndexManager_BuildReady(t *testing.T) {
	emb := &hashEmbedder{}
	m := newManager(&mockLoader{docs: knowledgeDocs()}, emb, 2, 3)

	status, err := m.Build(context.Background())

	require.NoError(t, err)
	assert.Equal(t, domain.IndexReady, status.State)
	assert.Equal(t, index.KindSimilarity, status.Kind)
	assert.Equal(t, []string{"fssai.txt", "gst.txt", "long.txt"}, status.Documents)
	assert.Greater(t, status.Entries, 3, "long.txt must produce several chunks")
	assert.Empty(t, status.Error)
	assert.False(t, status.CompletedAt.Before(status.StartedAt))

	state, idx := m.Active()
	assert.Equal(t, domain.IndexReady, state)
	require.NotNil(t, idx)
	assert.Equal(t, status.Entries, idx.Len())
	assert.True(t, idx.NeedsVector())
}

func TestIndexManager_EmbeddingFailureDegradesWholeIndex(t *testing.T) {
	emb := &hashEmbedder{
		failOn:  3,
		failErr: &port.EmbeddingError{Kind: port.FailureRateLimit, Err: errUpstream},
	}
	m := newManager(&mockLoader{docs: knowledgeDocs()}, emb, 1, 1)

	status, err := m.Build(context.Background())

	require.NoError(t, err)
	assert.Equal(t, domain.IndexDegraded, status.State)
	assert.Equal(t, index.KindKeyword, status.Kind)
	assert.Contains(t, status.Error, "RATE_LIMIT")

	_, idx := m.Active()
	require.NotNil(t, idx)
	assert.False(t, idx.NeedsVector(), "no vector-backed entries survive a failed build")
	assert.Equal(t, status.Entries, idx.Len(), "degraded index keeps every chunk")
}

func TestIndexManager_EmptyDirectoryDegradesWithZeroEntries(t *testing.T) {
	m := newManager(&mockLoader{}, &hashEmbedder{}, 0, 0)

	status, err := m.Build(context.Background())

	require.NoError(t, err)
	assert.Equal(t, domain.IndexDegraded, status.State)
	assert.Equal(t, 0, status.Entries)
	assert.Contains(t, status.Error, port.ErrNoDocuments.Error())
}

func TestIndexManager_LoadErrorDegrades(t *testing.T) {
	loadErr := &port.LoadError{Dir: "/kb", Err: errors.New("permission denied")}
	m := newManager(&mockLoader{err: loadErr}, &hashEmbedder{}, 0, 0)

	status, err := m.Build(context.Background())

	require.NoError(t, err)
	assert.Equal(t, domain.IndexDegraded, status.State)
	assert.Equal(t, 0, status.Entries)
	assert.Contains(t, status.Error, "permission denied")
}

func TestIndexManager_WhitespaceDocumentsDegrade(t *testing.T) {
	m := newManager(&mockLoader{docs: []domain.SourceDocument{sourceDoc("blank.txt", "  \n")}}, &hashEmbedder{}, 0, 0)

	status, err := m.Build(context.Background())

	require.NoError(t, err)
	assert.Equal(t, domain.IndexDegraded, status.State)
	assert.Equal(t, []string{"blank.txt"}, status.Documents)
}

func TestIndexManager_NeverPublishesHalfBuiltIndex(t *testing.T) {
	emb := &hashEmbedder{block: make(chan struct{})}
	m := newManager(&mockLoader{docs: knowledgeDocs()}, emb, 1, 2)

	updates, cancel := m.Subscribe()
	defer cancel()

	require.NoError(t, m.Start(context.Background()))

	first := <-updates
	assert.Equal(t, domain.IndexLoading, first.State)

	var wg sync.WaitGroup
	stop := make(chan struct{})
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			default:
			}
			state, idx := m.Active()
			switch state {
			case domain.IndexLoading:
				assert.Nil(t, idx)
			case domain.IndexReady:
				if assert.NotNil(t, idx) {
					assert.Equal(t, m.Status().Entries, idx.Len())
				}
			}
		}
	}()

	_, err := m.Build(context.Background())
	assert.ErrorIs(t, err, port.ErrBuildInProgress)
	assert.ErrorIs(t, m.Start(context.Background()), port.ErrBuildInProgress)

	close(emb.block)

	select {
	case final := <-updates:
		assert.Equal(t, domain.IndexReady, final.State)
	case <-time.After(5 * time.Second):
		t.Fatal("build did not finish")
	}
	close(stop)
	wg.Wait()

	assert.Eventually(t, func() bool {
		status, err := m.Build(context.Background())
		return err == nil && status.State == domain.IndexReady
	}, 5*time.Second, 10*time.Millisecond, "a finished build releases the manager")
}

func TestIndexManager_StatusReturnsCopy(t *testing.T) {
	m := newManager(&mockLoader{docs: knowledgeDocs()}, &hashEmbedder{}, 0, 0)
	_, err := m.Build(context.Background())
	require.NoError(t, err)

	st := m.Status()
	st.Documents[0] = "mutated"

	assert.Equal(t, "fssai.txt", m.Status().Documents[0])
}

func TestIndexManager_UnsubscribeIsIdempotent(t *testing.T) {
	m := newManager(&mockLoader{}, &hashEmbedder{}, 0, 0)
	ch, cancel := m.Subscribe()
	cancel()
	cancel()

	_, open := <-ch
	assert.False(t, open)
	_, err := m.Build(context.Background())
	assert.NoError(t, err)
}
