package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// AI providers.
const (
	ProviderOllama = "ollama"
	ProviderOpenAI = "openai"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	// Server
	Port        string
	AppName     string
	FrontendURL string

	// Knowledge base
	KnowledgeDir  string
	ChunkSize     int
	ChunkOverlap  int
	RetrievalTopK int
	RulesFile     string

	// AI
	AIProvider          string
	AITimeout           time.Duration
	AIRequestsPerSecond float64
	EmbedBatchSize      int
	EmbedConcurrency    int

	// Ollama embed endpoint
	OllamaEmbedURL   string
	OllamaEmbedModel string
	OllamaEmbedToken string // Bearer token for Ollama Cloud (empty = local)

	// Ollama chat endpoint
	OllamaChatURL   string
	OllamaChatModel string
	OllamaChatToken string

	// OpenAI-compatible endpoint
	OpenAIBaseURL    string
	OpenAIAPIKey     string
	OpenAIEmbedModel string
	OpenAIChatModel  string

	// Database (optional; audit goes to the log when empty)
	DatabaseURL string

	// JWT
	JWTSecret     string
	JWTIssuer     string
	JWTExpiration int // hours
	AdminToken    string

	// MCP
	MCPEnabled bool
	MCPPort    string

	// Logging
	LogLevel  string
	LogFormat string
}

// Load reads configuration from environment variables with sensible defaults.
func Load() *Config {
	return &Config{
		Port:        envOrDefault("PORT", "5000"),
		AppName:     envOrDefault("APP_NAME", "BizReg Assistant"),
		FrontendURL: envOrDefault("FRONTEND_URL", "http://localhost:3000"),

		KnowledgeDir:  envOrDefault("KNOWLEDGE_DIR", "data/knowledge"),
		ChunkSize:     envOrDefaultInt("CHUNK_SIZE", 1000),
		ChunkOverlap:  envOrDefaultInt("CHUNK_OVERLAP", 200),
		RetrievalTopK: envOrDefaultInt("RETRIEVAL_TOP_K", 3),
		RulesFile:     os.Getenv("RULES_FILE"),

		AIProvider:          strings.ToLower(envOrDefault("AI_PROVIDER", ProviderOllama)),
		AITimeout:           time.Duration(envOrDefaultInt("AI_TIMEOUT_SECONDS", 30)) * time.Second,
		AIRequestsPerSecond: envOrDefaultFloat("AI_REQUESTS_PER_SECOND", 0),
		EmbedBatchSize:      envOrDefaultInt("EMBED_BATCH_SIZE", 64),
		EmbedConcurrency:    envOrDefaultInt("EMBED_CONCURRENCY", 2),

		OllamaEmbedURL:   envOrDefault("OLLAMA_EMBED_URL", envOrDefault("OLLAMA_BASE_URL", "http://localhost:11434")),
		OllamaEmbedModel: envOrDefault("OLLAMA_EMBED_MODEL", "nomic-embed-text"),
		OllamaEmbedToken: os.Getenv("OLLAMA_EMBED_TOKEN"),

		OllamaChatURL:   envOrDefault("OLLAMA_CHAT_URL", envOrDefault("OLLAMA_BASE_URL", "http://localhost:11434")),
		OllamaChatModel: envOrDefault("OLLAMA_CHAT_MODEL", "llama3.1"),
		OllamaChatToken: os.Getenv("OLLAMA_CHAT_TOKEN"),

		OpenAIBaseURL:    envOrDefault("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		OpenAIAPIKey:     os.Getenv("OPENAI_API_KEY"),
		OpenAIEmbedModel: envOrDefault("OPENAI_EMBED_MODEL", "text-embedding-3-small"),
		OpenAIChatModel:  envOrDefault("OPENAI_CHAT_MODEL", "gpt-3.5-turbo"),

		DatabaseURL: os.Getenv("DATABASE_URL"),

		JWTSecret:     envOrDefault("JWT_SECRET", "change-me-in-production"),
		JWTIssuer:     envOrDefault("JWT_ISSUER", "bizreg-assistant"),
		JWTExpiration: envOrDefaultInt("JWT_EXPIRATION_HOURS", 24),
		AdminToken:    os.Getenv("ADMIN_TOKEN"),

		MCPEnabled: envOrDefaultBool("MCP_ENABLED", false),
		MCPPort:    envOrDefault("MCP_PORT", "5002"),

		LogLevel:  envOrDefault("LOG_LEVEL", "info"),
		LogFormat: envOrDefault("LOG_FORMAT", "text"),
	}
}

// Validate reports every inconsistent setting at once.
func (c *Config) Validate() error {
	var errs []error
	if c.ChunkSize <= 0 {
		errs = append(errs, fmt.Errorf("CHUNK_SIZE must be positive, got %d", c.ChunkSize))
	}
	if c.ChunkOverlap < 0 || (c.ChunkSize > 0 && c.ChunkOverlap >= c.ChunkSize) {
		errs = append(errs, fmt.Errorf("CHUNK_OVERLAP must be in [0, CHUNK_SIZE), got %d", c.ChunkOverlap))
	}
	if c.RetrievalTopK <= 0 {
		errs = append(errs, fmt.Errorf("RETRIEVAL_TOP_K must be positive, got %d", c.RetrievalTopK))
	}
	if c.EmbedBatchSize <= 0 || c.EmbedConcurrency <= 0 {
		errs = append(errs, errors.New("EMBED_BATCH_SIZE and EMBED_CONCURRENCY must be positive"))
	}
	if c.AITimeout <= 0 {
		errs = append(errs, errors.New("AI_TIMEOUT_SECONDS must be positive"))
	}
	switch c.AIProvider {
	case ProviderOllama:
	case ProviderOpenAI:
		if c.OpenAIAPIKey == "" {
			errs = append(errs, errors.New("OPENAI_API_KEY is required when AI_PROVIDER=openai"))
		}
	default:
		errs = append(errs, fmt.Errorf("AI_PROVIDER must be %q or %q, got %q", ProviderOllama, ProviderOpenAI, c.AIProvider))
	}
	return errors.Join(errs...)
}

// DSN returns the database location for logging (credentials masked).
func (c *Config) DSN() string {
	if c.DatabaseURL == "" {
		return "(none)"
	}
	if at := strings.LastIndex(c.DatabaseURL, "@"); at >= 0 {
		return "postgres://***" + c.DatabaseURL[at:]
	}
	return "postgres://***"
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envOrDefaultInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return fallback
}

func envOrDefaultFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err == nil {
			return f
		}
	}
	return fallback
}

func envOrDefaultBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return fallback
}
