package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"raggedbooks/internal/apperr"
	"raggedbooks/internal/rag"
)

// Vector store backends.
const (
	VectorStoreQdrant = "qdrant"
	VectorStoreMemory = "memory"
)

// Token counters.
const (
	TokenCounterWords    = "words"
	TokenCounterEstimate = "estimate"
)

// Config holds all configuration for the application.
type Config struct {
	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`

	PDFFolder   string `mapstructure:"pdf_folder"`
	BrowserPath string `mapstructure:"browser_path"`

	EmbeddingBaseURL    string `mapstructure:"embedding_base_url"`
	EmbeddingModel      string `mapstructure:"embedding_model"`
	EmbeddingAPIKey     string `mapstructure:"embedding_api_key"`
	EmbeddingDimensions int    `mapstructure:"embedding_dimensions"`

	ChatBaseURL     string  `mapstructure:"chat_base_url"`
	ChatModel       string  `mapstructure:"chat_model"`
	ChatAPIKey      string  `mapstructure:"chat_api_key"`
	ChatTemperature float64 `mapstructure:"chat_temperature"`

	OllamaURL         string `mapstructure:"ollama_url"`
	OllamaPullOnStart bool   `mapstructure:"ollama_pull_on_start"`

	VectorStore      string `mapstructure:"vector_store"`
	QdrantURL        string `mapstructure:"qdrant_url"`
	QdrantAPIKey     string `mapstructure:"qdrant_api_key"`
	QdrantCollection string `mapstructure:"qdrant_collection"`

	MaxTokensPerLine      int    `mapstructure:"max_tokens_per_line"`
	MaxTokensPerParagraph int    `mapstructure:"max_tokens_per_paragraph"`
	OverlapTokens         int    `mapstructure:"overlap_tokens"`
	TokenCounter          string `mapstructure:"token_counter"`

	SearchTopK int `mapstructure:"search_top_k"`
	LookupTopK int `mapstructure:"lookup_top_k"`

	ImportConcurrency int           `mapstructure:"import_concurrency"`
	ImportPattern     string        `mapstructure:"import_pattern"`
	WatchDebounce     time.Duration `mapstructure:"watch_debounce"`

	ProviderTimeout    time.Duration `mapstructure:"provider_timeout"`
	ProviderMaxRetries int           `mapstructure:"provider_max_retries"`

	DBPath string `mapstructure:"db_path"`

	RedisAddr         string        `mapstructure:"redis_addr"`
	RedisPassword     string        `mapstructure:"redis_password"`
	RedisDB           int           `mapstructure:"redis_db"`
	EmbeddingCacheTTL time.Duration `mapstructure:"embedding_cache_ttl"`

	APIAddr string `mapstructure:"api_addr"`
}

var defaults = map[string]any{
	"log_level":                "info",
	"log_format":               "text",
	"pdf_folder":               "",
	"browser_path":             "",
	"embedding_base_url":       "http://localhost:11434",
	"embedding_model":          "nomic-embed-text",
	"embedding_api_key":        "",
	"embedding_dimensions":     768,
	"chat_base_url":            "http://localhost:11434",
	"chat_model":               "llama3.1",
	"chat_api_key":             "",
	"chat_temperature":         0.2,
	"ollama_url":               "http://localhost:11434",
	"ollama_pull_on_start":     false,
	"vector_store":             VectorStoreQdrant,
	"qdrant_url":               "http://localhost:6333",
	"qdrant_api_key":           "",
	"qdrant_collection":        "books",
	"max_tokens_per_line":      300,
	"max_tokens_per_paragraph": 512,
	"overlap_tokens":           100,
	"token_counter":            TokenCounterWords,
	"search_top_k":             5,
	"lookup_top_k":             3,
	"import_concurrency":       2,
	"import_pattern":           "*.pdf",
	"watch_debounce":           "2s",
	"provider_timeout":         "120s",
	"provider_max_retries":     0,
	"db_path":                  "./data/raggedbooks.db",
	"redis_addr":               "",
	"redis_password":           "",
	"redis_db":                 0,
	"embedding_cache_ttl":      "24h",
	"api_addr":                 ":9000",
}

// Load builds the configuration from defaults, an optional config file and
// the environment, in increasing order of precedence. A .env file in the
// current directory or up to five parents is loaded first; variables that
// are already set win over it. An explicit path must exist; otherwise a
// raggedbooks.{yaml,toml,json} in the working directory is used if present.
func Load(path string) (*Config, error) {
	loadDotEnv()

	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, apperr.Configuration("read config file %s: %v", path, err)
		}
	} else {
		v.SetConfigName("raggedbooks")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, apperr.Configuration("read config file: %v", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, apperr.Configuration("decode config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// loadDotEnv loads the nearest .env file, ignoring a missing one.
func loadDotEnv() {
	wd, err := os.Getwd()
	if err != nil {
		return
	}
	dir := wd
	for i := 0; i < 5; i++ {
		envPath := filepath.Join(dir, ".env")
		if _, err := os.Stat(envPath); err == nil {
			_ = godotenv.Load(envPath)
			return
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return
		}
		dir = parent
	}
}

// Validate checks required fields and value ranges.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.PDFFolder) == "" {
		return apperr.Configuration("PDF_FOLDER is required")
	}
	if strings.TrimSpace(c.EmbeddingModel) == "" {
		return apperr.Configuration("EMBEDDING_MODEL is required")
	}
	if strings.TrimSpace(c.ChatModel) == "" {
		return apperr.Configuration("CHAT_MODEL is required")
	}
	if strings.TrimSpace(c.QdrantCollection) == "" {
		return apperr.Configuration("QDRANT_COLLECTION is required")
	}
	if c.EmbeddingDimensions <= 0 {
		return apperr.Configuration("EMBEDDING_DIMENSIONS must be greater than 0, got %d", c.EmbeddingDimensions)
	}
	if c.ChatTemperature < 0 || c.ChatTemperature > 2 {
		return apperr.Configuration("CHAT_TEMPERATURE must be between 0 and 2, got %g", c.ChatTemperature)
	}

	for name, raw := range map[string]string{
		"EMBEDDING_BASE_URL": c.EmbeddingBaseURL,
		"CHAT_BASE_URL":      c.ChatBaseURL,
		"OLLAMA_URL":         c.OllamaURL,
	} {
		if err := validateURL(raw); err != nil {
			return apperr.Configuration("%s: %v", name, err)
		}
	}

	switch c.VectorStore {
	case VectorStoreQdrant:
		if err := validateURL(c.QdrantURL); err != nil {
			return apperr.Configuration("QDRANT_URL: %v", err)
		}
	case VectorStoreMemory:
	default:
		return apperr.Configuration("VECTOR_STORE must be %q or %q, got %q", VectorStoreQdrant, VectorStoreMemory, c.VectorStore)
	}

	if c.MaxTokensPerLine <= 0 {
		return apperr.Configuration("MAX_TOKENS_PER_LINE must be greater than 0, got %d", c.MaxTokensPerLine)
	}
	if c.MaxTokensPerParagraph < c.MaxTokensPerLine {
		return apperr.Configuration("MAX_TOKENS_PER_PARAGRAPH (%d) must be at least MAX_TOKENS_PER_LINE (%d)",
			c.MaxTokensPerParagraph, c.MaxTokensPerLine)
	}
	if c.OverlapTokens < 0 || c.OverlapTokens >= c.MaxTokensPerParagraph {
		return apperr.Configuration("OVERLAP_TOKENS must be in [0, %d), got %d", c.MaxTokensPerParagraph, c.OverlapTokens)
	}
	switch c.TokenCounter {
	case TokenCounterWords, TokenCounterEstimate:
	default:
		return apperr.Configuration("TOKEN_COUNTER must be %q or %q, got %q", TokenCounterWords, TokenCounterEstimate, c.TokenCounter)
	}

	if c.SearchTopK <= 0 || c.SearchTopK > rag.MaxTopK {
		return apperr.Configuration("SEARCH_TOP_K must be in [1, %d], got %d", rag.MaxTopK, c.SearchTopK)
	}
	if c.LookupTopK <= 0 || c.LookupTopK > rag.MaxTopK {
		return apperr.Configuration("LOOKUP_TOP_K must be in [1, %d], got %d", rag.MaxTopK, c.LookupTopK)
	}
	if c.ImportConcurrency <= 0 {
		return apperr.Configuration("IMPORT_CONCURRENCY must be greater than 0, got %d", c.ImportConcurrency)
	}
	if c.ProviderTimeout <= 0 {
		return apperr.Configuration("PROVIDER_TIMEOUT must be positive")
	}
	if c.ProviderMaxRetries < 0 {
		return apperr.Configuration("PROVIDER_MAX_RETRIES must not be negative")
	}
	if c.RedisAddr != "" && c.EmbeddingCacheTTL < 0 {
		return apperr.Configuration("EMBEDDING_CACHE_TTL must not be negative")
	}
	if _, err := c.SlogLevel(); err != nil {
		return err
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		return apperr.Configuration("LOG_FORMAT must be \"text\" or \"json\", got %q", c.LogFormat)
	}
	return nil
}

// SlogLevel parses LogLevel.
func (c *Config) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo, apperr.Configuration("LOG_LEVEL: %v", err)
	}
	return level, nil
}

// NewLogger builds the process logger described by LogLevel and LogFormat.
func (c *Config) NewLogger() *slog.Logger {
	level, _ := c.SlogLevel()
	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if c.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	return slog.New(handler)
}

func validateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("scheme must be http or https, got %q", raw)
	}
	if u.Host == "" {
		return fmt.Errorf("missing host in %q", raw)
	}
	return nil
}
