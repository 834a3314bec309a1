package ai

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/arturoeanton/bizreg-assistant/internal/port"
)

// OpenAIConfig configures an OpenAI-compatible API.
type OpenAIConfig struct {
	BaseURL    string // e.g. https://api.openai.com/v1
	APIKey     string
	EmbedModel string // e.g. text-embedding-ada-002
	ChatModel  string // e.g. gpt-3.5-turbo
}

// OpenAIProvider implements port.AIProvider against /embeddings and
// /chat/completions.
type OpenAIProvider struct {
	cfg    OpenAIConfig
	client *client
}

var _ port.AIProvider = (*OpenAIProvider)(nil)

// NewOpenAIProvider creates a provider for an OpenAI-compatible API.
func NewOpenAIProvider(cfg OpenAIConfig, opts Options) *OpenAIProvider {
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &OpenAIProvider{cfg: cfg, client: newClient("openai", opts)}
}

// ModelName returns the chat model identifier.
func (p *OpenAIProvider) ModelName() string {
	return p.cfg.ChatModel
}

// Embed generates a vector embedding for the given text.
func (p *OpenAIProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := p.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch generates embeddings for multiple texts in one call.
func (p *OpenAIProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	payload := map[string]interface{}{
		"model": p.cfg.EmbedModel,
		"input": texts,
	}

	var resp struct {
		Data []struct {
			Index     int       `json:"index"`
			Embedding []float32 `json:"embedding"`
		} `json:"data"`
	}
	if err := p.client.post(ctx, p.cfg.BaseURL+"/embeddings", p.cfg.APIKey, payload, &resp); err != nil {
		return nil, embeddingError(fmt.Errorf("openai embeddings: %w", err))
	}
	if len(resp.Data) != len(texts) {
		return nil, embeddingError(fmt.Errorf("openai embeddings: got %d vectors for %d texts", len(resp.Data), len(texts)))
	}

	sort.Slice(resp.Data, func(i, j int) bool { return resp.Data[i].Index < resp.Data[j].Index })
	out := make([][]float32, len(resp.Data))
	for i, d := range resp.Data {
		out[i] = d.Embedding
	}
	return out, nil
}

// Complete sends the prompt as a single user message and returns the reply.
func (p *OpenAIProvider) Complete(ctx context.Context, prompt string) (string, error) {
	payload := map[string]interface{}{
		"model": p.cfg.ChatModel,
		"messages": []map[string]string{
			{"role": "user", "content": prompt},
		},
		"temperature": 0,
	}

	var resp struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := p.client.post(ctx, p.cfg.BaseURL+"/chat/completions", p.cfg.APIKey, payload, &resp); err != nil {
		return "", generationError(fmt.Errorf("openai chat: %w", err))
	}
	if len(resp.Choices) == 0 {
		return "", generationError(fmt.Errorf("openai chat: no choices in response"))
	}
	return resp.Choices[0].Message.Content, nil
}
