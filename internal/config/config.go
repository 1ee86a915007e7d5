// Package config provides file-based configuration for cafebot.
// Configuration is loaded with a layered precedence: defaults → config file → env vars.
// Environment variables always win, so container deployments can override any key.
//
// File search order:
//  1. --config CLI flag (explicit path)
//  2. CAFEBOT_CONFIG environment variable
//  3. ~/.cafebot/config.yaml
//  4. ./cafebot.yaml
//  5. ./cafebot.toml
//
// Files ending in .toml are decoded as TOML; every other extension is YAML.
// If no file is found the system runs entirely from env vars.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Config is the top-level configuration structure.
// Field names use tags that mirror the env var naming (lowercase, underscored).
type Config struct {
	// Chatbot configures query matching.
	Chatbot ChatbotConfig `yaml:"chatbot" toml:"chatbot"`

	// Cafe configures the live cafe data source used by function answers.
	Cafe CafeConfig `yaml:"cafe" toml:"cafe"`

	// Embedding configures the embedding provider.
	Embedding EmbeddingConfig `yaml:"embedding" toml:"embedding"`

	// VectorStore configures where QA records are stored.
	VectorStore VectorStoreConfig `yaml:"vector_store" toml:"vector_store"`

	// Store configures the local SQLite database for the embedding cache and query log.
	Store StoreConfig `yaml:"store" toml:"store"`

	// Model configures the chat model used for paraphrase suggestions.
	Model ModelConfig `yaml:"model" toml:"model"`

	// Server configures the HTTP server.
	Server ServerConfig `yaml:"server" toml:"server"`

	// Logging configures structured logging.
	Logging LoggingConfig `yaml:"logging" toml:"logging"`

	// Tracing configures Langfuse tracing integration.
	Tracing TracingConfig `yaml:"tracing" toml:"tracing"`
}

// ChatbotConfig holds matching settings.
type ChatbotConfig struct {
	// Collection is the default knowledge-base collection name.
	Collection string `yaml:"collection" toml:"collection"`
	// TopK is the default number of answers requested per query.
	TopK int `yaml:"top_k" toml:"top_k"`
	// OverFetch multiplies TopK when querying the vector store.
	OverFetch int `yaml:"over_fetch" toml:"over_fetch"`
	// QueryTimeout bounds a single query, e.g. "15s".
	QueryTimeout string `yaml:"query_timeout" toml:"query_timeout"`
}

// CafeConfig holds cafe data settings.
type CafeConfig struct {
	// DataFile is the path to the cafe JSON data file. Empty uses the built-in sample.
	DataFile string `yaml:"data_file" toml:"data_file"`
	// Timezone is the IANA zone used for business-hours checks.
	Timezone string `yaml:"timezone" toml:"timezone"`
}

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	// Provider selects the embedding backend (ollama, openai, azure).
	Provider string `yaml:"provider" toml:"provider"`
	// Model is the embedding model name.
	Model string `yaml:"model" toml:"model"`
	// Dimensions overrides the embedding vector size.
	Dimensions int `yaml:"dimensions" toml:"dimensions"`
	// APIKey is the embedding API key. Prefer env var EMBEDDING_API_KEY.
	APIKey string `yaml:"api_key" toml:"api_key"`
	// Endpoint is the embedding API endpoint.
	Endpoint string `yaml:"endpoint" toml:"endpoint"`
	// Cache enables the SQLite embedding cache.
	Cache bool `yaml:"cache" toml:"cache"`
}

// VectorStoreConfig holds vector store settings.
type VectorStoreConfig struct {
	// Backend selects the store: qdrant or sqlite.
	Backend string `yaml:"backend" toml:"backend"`
	// SQLitePath is the database file for the sqlite backend.
	SQLitePath string `yaml:"sqlite_path" toml:"sqlite_path"`
	// Qdrant holds Qdrant connection settings.
	Qdrant QdrantConfig `yaml:"qdrant" toml:"qdrant"`
}

// QdrantConfig holds Qdrant vector store settings.
type QdrantConfig struct {
	// Host is the Qdrant server hostname.
	Host string `yaml:"host" toml:"host"`
	// Port is the Qdrant gRPC port.
	Port int `yaml:"port" toml:"port"`
	// APIKey is the Qdrant API key. Prefer env var QDRANT_API_KEY.
	APIKey string `yaml:"api_key" toml:"api_key"`
	// TLS enables TLS for the Qdrant connection.
	TLS bool `yaml:"tls" toml:"tls"`
}

// StoreConfig holds local database settings.
type StoreConfig struct {
	// DBPath is the SQLite database path. Set to "disabled" to disable.
	DBPath string `yaml:"db_path" toml:"db_path"`
}

// ModelConfig holds chat model settings.
type ModelConfig struct {
	// Provider selects the backend: ollama, openai, azure, ark, gemini.
	Provider string `yaml:"provider" toml:"provider"`

	// MaxTokens is the maximum number of tokens in the response.
	MaxTokens int `yaml:"max_tokens" toml:"max_tokens"`

	// Temperature controls response randomness (0.0–1.0).
	Temperature float32 `yaml:"temperature" toml:"temperature"`

	// Ollama holds Ollama-specific settings.
	Ollama OllamaConfig `yaml:"ollama" toml:"ollama"`

	// OpenAI holds OpenAI-specific settings.
	OpenAI OpenAIConfig `yaml:"openai" toml:"openai"`

	// Azure holds Azure OpenAI-specific settings.
	Azure AzureConfig `yaml:"azure" toml:"azure"`

	// Ark holds Volcengine Ark settings.
	Ark ArkConfig `yaml:"ark" toml:"ark"`

	// Gemini holds Google Gemini-specific settings.
	Gemini GeminiConfig `yaml:"gemini" toml:"gemini"`
}

// OllamaConfig holds Ollama provider settings.
type OllamaConfig struct {
	// Host is the Ollama API endpoint.
	Host string `yaml:"host" toml:"host"`
	// Model is the Ollama model name.
	Model string `yaml:"model" toml:"model"`
}

// OpenAIConfig holds OpenAI provider settings.
type OpenAIConfig struct {
	// APIKey is the OpenAI API key. Prefer env var OPENAI_API_KEY.
	APIKey string `yaml:"api_key" toml:"api_key"`
	// Model is the OpenAI model name.
	Model string `yaml:"model" toml:"model"`
}

// AzureConfig holds Azure OpenAI provider settings.
type AzureConfig struct {
	// APIKey is the Azure OpenAI API key. Prefer env var AZURE_OPENAI_API_KEY.
	APIKey string `yaml:"api_key" toml:"api_key"`
	// Endpoint is the Azure OpenAI resource endpoint.
	Endpoint string `yaml:"endpoint" toml:"endpoint"`
	// Deployment is the Azure OpenAI deployment name.
	Deployment string `yaml:"deployment" toml:"deployment"`
	// APIVersion is the Azure OpenAI API version.
	APIVersion string `yaml:"api_version" toml:"api_version"`
}

// ArkConfig holds Volcengine Ark provider settings.
type ArkConfig struct {
	// APIKey is the Ark API key. Prefer env var ARK_API_KEY.
	APIKey string `yaml:"api_key" toml:"api_key"`
	// Model is the Ark endpoint/model id.
	Model string `yaml:"model" toml:"model"`
}

// GeminiConfig holds Google Gemini provider settings.
type GeminiConfig struct {
	// APIKey is the Google API key. Prefer env var GOOGLE_API_KEY.
	APIKey string `yaml:"api_key" toml:"api_key"`
	// Model is the Gemini model name.
	Model string `yaml:"model" toml:"model"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the bind address.
	Host string `yaml:"host" toml:"host"`
	// Port is the TCP port.
	Port int `yaml:"port" toml:"port"`
	// APIKey is the Bearer token guarding ingestion routes. Prefer env var CAFEBOT_API_KEY.
	APIKey string `yaml:"api_key" toml:"api_key"`
	// RateLimit is the per-client requests per second on the query route.
	RateLimit float64 `yaml:"rate_limit" toml:"rate_limit"`
	// RateBurst is the per-client burst size.
	RateBurst int `yaml:"rate_burst" toml:"rate_burst"`
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error.
	Level string `yaml:"level" toml:"level"`
	// Format is the log output format: json, text.
	Format string `yaml:"format" toml:"format"`
}

// TracingConfig holds Langfuse tracing settings.
type TracingConfig struct {
	// PublicKey is the Langfuse public key. Prefer env var LANGFUSE_PUBLIC_KEY.
	PublicKey string `yaml:"public_key" toml:"public_key"`
	// SecretKey is the Langfuse secret key. Prefer env var LANGFUSE_SECRET_KEY.
	SecretKey string `yaml:"secret_key" toml:"secret_key"`
	// Host is the Langfuse API host.
	Host string `yaml:"host" toml:"host"`
}

// envMapping maps config fields to their corresponding env var names.
// Only non-empty file values are applied; env vars always take precedence.
var envMapping = []struct {
	envKey string
	value  func(*Config) string
}{
	{"CAFEBOT_COLLECTION", func(c *Config) string { return c.Chatbot.Collection }},
	{"CAFEBOT_TOP_K", func(c *Config) string { return intStr(c.Chatbot.TopK) }},
	{"CAFEBOT_OVER_FETCH", func(c *Config) string { return intStr(c.Chatbot.OverFetch) }},
	{"CAFEBOT_QUERY_TIMEOUT", func(c *Config) string { return c.Chatbot.QueryTimeout }},
	{"CAFE_DATA_FILE", func(c *Config) string { return c.Cafe.DataFile }},
	{"CAFE_TIMEZONE", func(c *Config) string { return c.Cafe.Timezone }},
	{"EMBEDDING_PROVIDER", func(c *Config) string { return c.Embedding.Provider }},
	{"EMBEDDING_MODEL", func(c *Config) string { return c.Embedding.Model }},
	{"EMBEDDING_DIMENSIONS", func(c *Config) string { return intStr(c.Embedding.Dimensions) }},
	{"EMBEDDING_API_KEY", func(c *Config) string { return c.Embedding.APIKey }},
	{"EMBEDDING_ENDPOINT", func(c *Config) string { return c.Embedding.Endpoint }},
	{"EMBEDDING_CACHE", func(c *Config) string { return boolStr(c.Embedding.Cache) }},
	{"VECTOR_BACKEND", func(c *Config) string { return c.VectorStore.Backend }},
	{"VECTOR_SQLITE_PATH", func(c *Config) string { return c.VectorStore.SQLitePath }},
	{"QDRANT_HOST", func(c *Config) string { return c.VectorStore.Qdrant.Host }},
	{"QDRANT_PORT", func(c *Config) string { return intStr(c.VectorStore.Qdrant.Port) }},
	{"QDRANT_API_KEY", func(c *Config) string { return c.VectorStore.Qdrant.APIKey }},
	{"QDRANT_TLS", func(c *Config) string { return boolStr(c.VectorStore.Qdrant.TLS) }},
	{"CAFEBOT_DB_PATH", func(c *Config) string { return c.Store.DBPath }},
	{"MODEL_PROVIDER", func(c *Config) string { return c.Model.Provider }},
	{"MODEL_MAX_TOKENS", func(c *Config) string { return intStr(c.Model.MaxTokens) }},
	{"MODEL_TEMPERATURE", func(c *Config) string { return float32Str(c.Model.Temperature) }},
	{"OLLAMA_HOST", func(c *Config) string { return c.Model.Ollama.Host }},
	{"OLLAMA_MODEL", func(c *Config) string { return c.Model.Ollama.Model }},
	{"OPENAI_API_KEY", func(c *Config) string { return c.Model.OpenAI.APIKey }},
	{"OPENAI_MODEL", func(c *Config) string { return c.Model.OpenAI.Model }},
	{"AZURE_OPENAI_API_KEY", func(c *Config) string { return c.Model.Azure.APIKey }},
	{"AZURE_OPENAI_ENDPOINT", func(c *Config) string { return c.Model.Azure.Endpoint }},
	{"AZURE_OPENAI_DEPLOYMENT", func(c *Config) string { return c.Model.Azure.Deployment }},
	{"AZURE_OPENAI_API_VERSION", func(c *Config) string { return c.Model.Azure.APIVersion }},
	{"ARK_API_KEY", func(c *Config) string { return c.Model.Ark.APIKey }},
	{"ARK_MODEL", func(c *Config) string { return c.Model.Ark.Model }},
	{"GOOGLE_API_KEY", func(c *Config) string { return c.Model.Gemini.APIKey }},
	{"GEMINI_MODEL", func(c *Config) string { return c.Model.Gemini.Model }},
	{"CAFEBOT_HOST", func(c *Config) string { return c.Server.Host }},
	{"CAFEBOT_PORT", func(c *Config) string { return intStr(c.Server.Port) }},
	{"CAFEBOT_API_KEY", func(c *Config) string { return c.Server.APIKey }},
	{"CAFEBOT_RATE_LIMIT", func(c *Config) string { return float64Str(c.Server.RateLimit) }},
	{"CAFEBOT_RATE_BURST", func(c *Config) string { return intStr(c.Server.RateBurst) }},
	{"LOG_LEVEL", func(c *Config) string { return c.Logging.Level }},
	{"LOG_FORMAT", func(c *Config) string { return c.Logging.Format }},
	{"LANGFUSE_PUBLIC_KEY", func(c *Config) string { return c.Tracing.PublicKey }},
	{"LANGFUSE_SECRET_KEY", func(c *Config) string { return c.Tracing.SecretKey }},
	{"LANGFUSE_HOST", func(c *Config) string { return c.Tracing.Host }},
}

// Load reads a config file and applies non-empty values as environment
// variables. Existing env vars are never overwritten (env always wins).
// Returns the path that was loaded, or empty string if no file was found.
func Load(explicitPath string, log *slog.Logger) (string, error) {
	path := resolveConfigPath(explicitPath)
	if path == "" {
		log.Debug("config: no config file found, using env vars only")
		return "", nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("config: failed to read %s: %w", path, err)
	}

	cfg, err := decode(path, data)
	if err != nil {
		return "", err
	}

	applied := 0
	for _, m := range envMapping {
		fileVal := m.value(cfg)
		if fileVal == "" || fileVal == "0" || fileVal == "false" {
			continue
		}
		if os.Getenv(m.envKey) != "" {
			continue // env var already set; do not override
		}
		os.Setenv(m.envKey, fileVal)
		applied++
	}

	log.Info("config: loaded config file",
		slog.String("path", path),
		slog.Int("keys_applied", applied),
	)

	return path, nil
}

// decode parses data as TOML or YAML depending on the file extension.
func decode(path string, data []byte) (*Config, error) {
	var cfg Config
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("config: failed to parse TOML %s: %w", path, err)
		}
		return &cfg, nil
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: failed to parse %s: %w", path, err)
	}
	return &cfg, nil
}

// resolveConfigPath returns the first config file path that exists.
func resolveConfigPath(explicit string) string {
	if explicit != "" {
		if _, err := os.Stat(explicit); err == nil {
			return explicit
		}
		return ""
	}

	if envPath := os.Getenv("CAFEBOT_CONFIG"); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	home, err := os.UserHomeDir()
	if err == nil {
		p := filepath.Join(home, ".cafebot", "config.yaml")
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	for _, p := range []string{"cafebot.yaml", "cafebot.toml"} {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	return ""
}

// intStr converts an int to string, returning "" for zero values.
func intStr(v int) string {
	if v == 0 {
		return ""
	}
	return fmt.Sprintf("%d", v)
}

// float32Str converts a float32 to string, returning "" for zero values.
func float32Str(v float32) string {
	if v == 0 {
		return ""
	}
	return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.4f", v), "0"), ".")
}

// float64Str converts a float64 to string, returning "" for zero values.
func float64Str(v float64) string {
	if v == 0 {
		return ""
	}
	return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.4f", v), "0"), ".")
}

// boolStr converts a bool to string, returning "" for false.
func boolStr(v bool) string {
	if !v {
		return ""
	}
	return "true"
}
