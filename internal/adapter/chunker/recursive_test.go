package chunker

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arturoeanton/bizreg-assistant/internal/domain"
)

func doc(content string) domain.SourceDocument {
	return domain.SourceDocument{
		ID:       "doc-1",
		Content:  content,
		Metadata: domain.DocumentMetadata{SourceName: "fssai.txt"},
	}
}

// longText builds a multi-paragraph document well above the default chunk size.
func longText() string {
	var b strings.Builder
	for p := 0; p < 12; p++ {
		for s := 0; s < 6; s++ {
			b.WriteString("Every food business operator in Delhi must display the FSSAI licence number at the premises. ")
		}
		b.WriteString("\n\n")
	}
	return b.String()
}

func TestNew(t *testing.T) {
	t.Run("default values", func(t *testing.T) {
		c := New()
		assert.Equal(t, DefaultChunkSize, c.ChunkSize())
		assert.Equal(t, DefaultChunkOverlap, c.Overlap())
	})

	t.Run("custom values", func(t *testing.T) {
		c := New(WithChunkSize(500), WithOverlap(50))
		assert.Equal(t, 500, c.ChunkSize())
		assert.Equal(t, 50, c.Overlap())
	})

	t.Run("overlap exceeding chunk size is reduced", func(t *testing.T) {
		c := New(WithChunkSize(100), WithOverlap(150))
		assert.Less(t, c.Overlap(), c.ChunkSize())
	})

	t.Run("invalid values ignored", func(t *testing.T) {
		c := New(WithChunkSize(0), WithOverlap(-1))
		assert.Equal(t, DefaultChunkSize, c.ChunkSize())
		assert.Equal(t, DefaultChunkOverlap, c.Overlap())
	})
}

func TestSplit_EmptyDocument(t *testing.T) {
	c := New()
	assert.Empty(t, c.Split(doc("")))
	assert.Empty(t, c.Split(doc("  \n\n\t ")))
}

func TestSplit_ShortDocument(t *testing.T) {
	c := New()
	content := "GST registration requires PAN and address proof."

	chunks := c.Split(doc(content))

	require.Len(t, chunks, 1)
	assert.Equal(t, content, chunks[0].Content)
	assert.Equal(t, 0, chunks[0].SequenceIndex)
	assert.Equal(t, "doc-1", chunks[0].ParentDocID)
	assert.Equal(t, "fssai.txt", chunks[0].SourceName())
}

func TestSplit_ExactlyChunkSize(t *testing.T) {
	c := New(WithChunkSize(10), WithOverlap(2))
	chunks := c.Split(doc("abcdefghij"))
	require.Len(t, chunks, 1)
	assert.Equal(t, "abcdefghij", chunks[0].Content)
}

func TestSplit_RawCharacterFallback(t *testing.T) {
	c := New()
	content := strings.Repeat("a", 2500)

	chunks := c.Split(doc(content))

	require.Len(t, chunks, 3)
	assert.Equal(t, 1000, utf8.RuneCountInString(chunks[0].Content))
	assert.Equal(t, 1000, utf8.RuneCountInString(chunks[1].Content))
	assert.Equal(t, 900, utf8.RuneCountInString(chunks[2].Content))
}

func TestSplit_PrefersParagraphBoundary(t *testing.T) {
	c := New()
	first := strings.Repeat("Shop licence rules apply. ", 28) // 728 runes
	content := first + "\n\n" + strings.Repeat("Renewal is annual. ", 60)

	chunks := c.Split(doc(content))

	require.Greater(t, len(chunks), 1)
	assert.True(t, strings.HasSuffix(chunks[0].Content, "\n\n"), "first chunk should end at the paragraph break")
	assert.Equal(t, utf8.RuneCountInString(first)+2, utf8.RuneCountInString(chunks[0].Content))
}

func TestSplit_PrefersSentenceOverWord(t *testing.T) {
	c := New(WithChunkSize(100), WithOverlap(10))
	content := strings.Repeat("word ", 14) + "end. " + strings.Repeat("tail ", 40)

	chunks := c.Split(doc(content))

	require.Greater(t, len(chunks), 1)
	assert.True(t, strings.HasSuffix(chunks[0].Content, "end. "))
}

func TestSplit_BoundsAndOverlap(t *testing.T) {
	configs := []struct {
		size, overlap int
	}{
		{DefaultChunkSize, DefaultChunkOverlap},
		{300, 50},
		{120, 0},
		{64, 31},
	}

	for _, cfg := range configs {
		c := New(WithChunkSize(cfg.size), WithOverlap(cfg.overlap))
		content := longText()

		chunks := c.Split(doc(content))
		require.Greater(t, len(chunks), 1)

		rebuilt := chunks[0].Content
		for i, ch := range chunks {
			runes := []rune(ch.Content)
			assert.Equal(t, i, ch.SequenceIndex)
			assert.LessOrEqual(t, len(runes), cfg.size, "chunk %d exceeds max size", i)

			if i == 0 {
				continue
			}
			prev := []rune(chunks[i-1].Content)
			require.GreaterOrEqual(t, len(prev), cfg.overlap)
			assert.Equal(t,
				string(prev[len(prev)-cfg.overlap:]),
				string(runes[:cfg.overlap]),
				"chunks %d and %d must overlap by exactly %d characters", i-1, i, cfg.overlap)
			rebuilt += string(runes[cfg.overlap:])
		}
		assert.Equal(t, content, rebuilt, "chunks minus overlap must reassemble the document")
	}
}

func TestSplit_Idempotent(t *testing.T) {
	c := New(WithChunkSize(250), WithOverlap(40))
	content := longText()

	first := c.Split(doc(content))
	second := c.Split(doc(content))

	assert.Equal(t, first, second)
}

func TestSplit_MultiByteRunes(t *testing.T) {
	c := New(WithChunkSize(50), WithOverlap(10))
	content := strings.Repeat("₹20 लाख ", 40)

	chunks := c.Split(doc(content))

	require.Greater(t, len(chunks), 1)
	for _, ch := range chunks {
		assert.True(t, utf8.ValidString(ch.Content))
		assert.LessOrEqual(t, utf8.RuneCountInString(ch.Content), 50)
	}
}
