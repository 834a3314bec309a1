package port

import "context"

// Embedder converts text to fixed-dimension vectors.
// Implementations return errors that satisfy KindOf so callers never parse
// upstream error text.
type Embedder interface {
	// Embed generates a vector embedding for the given text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts in one call.
	// The result has the same length and order as texts.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// Generator produces a completion for a fully composed prompt.
type Generator interface {
	// ModelName returns the identifier of the model being used.
	ModelName() string

	// Complete sends the prompt and returns the generated text.
	Complete(ctx context.Context, prompt string) (string, error)
}

// AIProvider is a backend that can both embed and generate.
type AIProvider interface {
	Embedder
	Generator
}
