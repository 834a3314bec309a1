// Package chunker splits knowledge documents into overlapping segments.
package chunker

import (
	"strings"

	"github.com/arturoeanton/bizreg-assistant/internal/domain"
)

// DefaultChunkSize is the default maximum number of characters per chunk.
const DefaultChunkSize = 1000

// DefaultChunkOverlap is the default number of characters shared by
// consecutive chunks.
const DefaultChunkOverlap = 200

// separators are tried in order; the first one found inside the cut window
// wins. Each entry is a group of equally ranked separators.
var separators = [][]string{
	{"\n\n"},
	{". ", "! ", "? ", ".\n", "!\n", "?\n", "\n"},
	{" ", "\t"},
}

// Recursive splits text at the coarsest boundary that keeps a chunk within
// the size limit: paragraph, then sentence, then word, then raw character.
// Sizes are counted in runes.
type Recursive struct {
	chunkSize int
	overlap   int
}

// Option configures the chunker.
type Option func(*Recursive)

// WithChunkSize sets the maximum chunk size in characters.
func WithChunkSize(size int) Option {
	return func(r *Recursive) {
		if size > 0 {
			r.chunkSize = size
		}
	}
}

// WithOverlap sets the overlap between consecutive chunks in characters.
func WithOverlap(overlap int) Option {
	return func(r *Recursive) {
		if overlap >= 0 {
			r.overlap = overlap
		}
	}
}

// New creates a chunker with the given options.
func New(opts ...Option) *Recursive {
	r := &Recursive{
		chunkSize: DefaultChunkSize,
		overlap:   DefaultChunkOverlap,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.overlap >= r.chunkSize {
		r.overlap = r.chunkSize / 4
	}
	return r
}

// ChunkSize returns the configured maximum chunk size.
func (r *Recursive) ChunkSize() int { return r.chunkSize }

// Overlap returns the configured overlap.
func (r *Recursive) Overlap() int { return r.overlap }

// Split implements port.Chunker. Whitespace-only documents produce no chunks.
func (r *Recursive) Split(doc domain.SourceDocument) []domain.Chunk {
	if strings.TrimSpace(doc.Content) == "" {
		return nil
	}

	text := []rune(doc.Content)
	n := len(text)

	var chunks []domain.Chunk
	emit := func(from, to int) {
		chunks = append(chunks, domain.Chunk{
			ParentDocID:   doc.ID,
			Content:       string(text[from:to]),
			SequenceIndex: len(chunks),
			Metadata:      doc.Metadata,
		})
	}

	start := 0
	for {
		end := start + r.chunkSize
		if end >= n {
			emit(start, n)
			return chunks
		}
		cut := r.cutPoint(text, start, end)
		emit(start, cut)
		start = cut - r.overlap
	}
}

// cutPoint returns the end offset of the chunk that begins at start. The
// result lies in (start+overlap, end] and is at least half a chunk from start,
// so every chunk makes progress and the next one can begin exactly overlap
// runes before it.
func (r *Recursive) cutPoint(text []rune, start, end int) int {
	lo := start + r.chunkSize/2
	if floor := start + r.overlap + 1; lo < floor {
		lo = floor
	}
	if lo > end {
		return end
	}

	window := string(text[lo:end])
	for _, group := range separators {
		best := -1
		for _, sep := range group {
			if i := lastRuneIndex(window, sep); i >= 0 {
				if after := i + len([]rune(sep)); after > best {
					best = after
				}
			}
		}
		if best > 0 {
			return lo + best
		}
	}
	return end
}

// lastRuneIndex is strings.LastIndex measured in runes.
func lastRuneIndex(s, sep string) int {
	i := strings.LastIndex(s, sep)
	if i < 0 {
		return -1
	}
	return len([]rune(s[:i]))
}
