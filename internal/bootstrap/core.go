// Package bootstrap assembles the assistant core from configuration. The
// server and the CLI share it.
package bootstrap

import (
	"fmt"

	"github.com/arturoeanton/bizreg-assistant/internal/adapter/ai"
	"github.com/arturoeanton/bizreg-assistant/internal/adapter/chunker"
	"github.com/arturoeanton/bizreg-assistant/internal/adapter/loader"
	"github.com/arturoeanton/bizreg-assistant/internal/port"
	"github.com/arturoeanton/bizreg-assistant/internal/service"
	"github.com/arturoeanton/bizreg-assistant/pkg/config"
)

// Core is the wired assistant.
type Core struct {
	Provider  port.AIProvider
	Indexes   *service.IndexManager
	Assistant *service.Assistant
	Rules     *service.RuleBook
}

// NewProvider returns the AI provider selected by cfg.AIProvider.
func NewProvider(cfg *config.Config) (port.AIProvider, error) {
	opts := ai.Options{
		Timeout:           cfg.AITimeout,
		RequestsPerSecond: cfg.AIRequestsPerSecond,
	}

	switch cfg.AIProvider {
	case config.ProviderOllama:
		return ai.NewOllamaProvider(
			ai.OllamaEndpointConfig{
				BaseURL: cfg.OllamaEmbedURL,
				Model:   cfg.OllamaEmbedModel,
				Token:   cfg.OllamaEmbedToken,
			},
			ai.OllamaEndpointConfig{
				BaseURL: cfg.OllamaChatURL,
				Model:   cfg.OllamaChatModel,
				Token:   cfg.OllamaChatToken,
			},
			opts,
		), nil
	case config.ProviderOpenAI:
		return ai.NewOpenAIProvider(ai.OpenAIConfig{
			BaseURL:    cfg.OpenAIBaseURL,
			APIKey:     cfg.OpenAIAPIKey,
			EmbedModel: cfg.OpenAIEmbedModel,
			ChatModel:  cfg.OpenAIChatModel,
		}, opts), nil
	default:
		return nil, fmt.Errorf("unknown AI provider %q", cfg.AIProvider)
	}
}

// NewCore wires loader, chunker, provider, index manager and assistant. The
// index is left UNINITIALIZED; callers decide when to build it.
func NewCore(cfg *config.Config) (*Core, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	rules, err := service.LoadRuleBook(cfg.RulesFile)
	if err != nil {
		return nil, err
	}

	provider, err := NewProvider(cfg)
	if err != nil {
		return nil, err
	}
	return newCore(cfg, provider, rules), nil
}

func newCore(cfg *config.Config, provider port.AIProvider, rules *service.RuleBook) *Core {
	indexes := service.NewIndexManager(
		loader.NewDirLoader(),
		chunker.New(chunker.WithChunkSize(cfg.ChunkSize), chunker.WithOverlap(cfg.ChunkOverlap)),
		provider,
		service.IndexManagerConfig{
			Dir:         cfg.KnowledgeDir,
			BatchSize:   cfg.EmbedBatchSize,
			Concurrency: cfg.EmbedConcurrency,
		},
	)
	retriever := service.NewRetriever(indexes, provider, cfg.RetrievalTopK)

	return &Core{
		Provider:  provider,
		Indexes:   indexes,
		Assistant: service.NewAssistant(indexes, retriever, provider, rules),
		Rules:     rules,
	}
}
