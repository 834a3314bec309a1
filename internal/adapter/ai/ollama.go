package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/arturoeanton/bizreg-assistant/internal/port"
)

// OllamaEndpointConfig holds the configuration for a single Ollama endpoint.
type OllamaEndpointConfig struct {
	BaseURL string // e.g. http://localhost:11434 or https://api.ollama.com
	Model   string // e.g. bge-m3, qwen3
	Token   string // Bearer token for Ollama Cloud (empty = no auth)
}

// OllamaProvider implements port.AIProvider using the Ollama REST API.
// Embed and chat may live on different hosts with different tokens.
type OllamaProvider struct {
	embed  OllamaEndpointConfig
	chat   OllamaEndpointConfig
	client *client
}

var _ port.AIProvider = (*OllamaProvider)(nil)

// NewOllamaProvider creates a new Ollama-backed AI provider with separate embed/chat configs.
func NewOllamaProvider(embed, chat OllamaEndpointConfig, opts Options) *OllamaProvider {
	embed.BaseURL = strings.TrimRight(embed.BaseURL, "/")
	chat.BaseURL = strings.TrimRight(chat.BaseURL, "/")
	return &OllamaProvider{
		embed:  embed,
		chat:   chat,
		client: newClient("ollama", opts),
	}
}

// ModelName returns the chat model identifier.
func (o *OllamaProvider) ModelName() string {
	return o.chat.Model
}

type ollamaEmbedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

// Embed generates a vector embedding for the given text.
func (o *OllamaProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	payload := map[string]interface{}{
		"model": o.embed.Model,
		"input": text,
	}

	var resp ollamaEmbedResponse
	if err := o.client.post(ctx, o.embed.BaseURL+"/api/embed", o.embed.Token, payload, &resp); err != nil {
		return nil, embeddingError(fmt.Errorf("ollama embed: %w", err))
	}
	if len(resp.Embeddings) == 0 {
		return nil, embeddingError(fmt.Errorf("ollama embed: empty response"))
	}
	return resp.Embeddings[0], nil
}

// EmbedBatch generates embeddings for multiple texts in one call.
func (o *OllamaProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	payload := map[string]interface{}{
		"model": o.embed.Model,
		"input": texts,
	}

	var resp ollamaEmbedResponse
	if err := o.client.post(ctx, o.embed.BaseURL+"/api/embed", o.embed.Token, payload, &resp); err != nil {
		return nil, embeddingError(fmt.Errorf("ollama embed batch: %w", err))
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, embeddingError(fmt.Errorf("ollama embed batch: got %d vectors for %d texts", len(resp.Embeddings), len(texts)))
	}
	return resp.Embeddings, nil
}

// Complete sends the prompt as a single user message and returns the reply.
func (o *OllamaProvider) Complete(ctx context.Context, prompt string) (string, error) {
	payload := map[string]interface{}{
		"model": o.chat.Model,
		"messages": []map[string]string{
			{"role": "user", "content": prompt},
		},
		"stream":  false,
		"options": map[string]interface{}{"temperature": 0},
	}

	var resp struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	}
	if err := o.client.post(ctx, o.chat.BaseURL+"/api/chat", o.chat.Token, payload, &resp); err != nil {
		return "", generationError(fmt.Errorf("ollama chat: %w", err))
	}
	return resp.Message.Content, nil
}
