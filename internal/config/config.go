package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration values.
type Config struct {
	// SurrealDB connection
	SurrealDBURL       string `yaml:"surrealdb_url"`
	SurrealDBNamespace string `yaml:"surrealdb_namespace"`
	SurrealDBDatabase  string `yaml:"surrealdb_database"`
	SurrealDBUser      string `yaml:"surrealdb_user"`
	SurrealDBPass      string `yaml:"surrealdb_pass"`

	// Embedding provider
	EmbedProvider  string `yaml:"embed_provider"`
	EmbeddingModel string `yaml:"embedding_model"`
	EmbedDimension int    `yaml:"embed_dimension"`
	OpenAIAPIKey   string `yaml:"openai_api_key"`
	OllamaHost     string `yaml:"ollama_host"`
	BedrockRegion  string `yaml:"bedrock_region"`

	// Document Intelligence OCR
	DocIntelEndpoint string `yaml:"docintel_endpoint"`
	DocIntelAPIKey   string `yaml:"docintel_api_key"`

	// Artifact cache
	CacheDir string `yaml:"cache_dir"`

	// Pipeline
	Workers        int           `yaml:"workers"`
	ChunkMaxTokens int           `yaml:"chunk_max_tokens"`
	ChunkOverlap   int           `yaml:"chunk_overlap"`
	ReservationTTL time.Duration `yaml:"reservation_ttl"`

	// Server
	ServerAddr string `yaml:"server_addr"`

	// Logging
	LogFile  string     `yaml:"log_file"`
	LogLevel slog.Level `yaml:"-"`
}

// Load reads configuration from environment variables, overlaid on an
// optional YAML file pointed at by DOXAI_CONFIG. Environment variables
// win over the file; defaults fill the rest.
func Load() (Config, error) {
	cfg := defaults()

	if path := os.Getenv("DOXAI_CONFIG"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}

	applyEnv(&cfg)
	cfg.LogLevel = parseLogLevel(getEnv("DOXAI_LOG_LEVEL", "INFO"))
	return cfg, nil
}

func defaults() Config {
	return Config{
		SurrealDBURL:       "ws://localhost:8000/rpc",
		SurrealDBNamespace: "doxai",
		SurrealDBDatabase:  "indexer",
		SurrealDBUser:      "root",
		SurrealDBPass:      "root",

		EmbedProvider:  "ollama",
		EmbeddingModel: "all-minilm:l6-v2",
		EmbedDimension: 384,
		OllamaHost:     "http://localhost:11434",
		BedrockRegion:  "us-east-1",

		CacheDir: "/tmp/doxai-cache",

		Workers:        4,
		ChunkMaxTokens: 400,
		ChunkOverlap:   60,
		ReservationTTL: 30 * time.Minute,

		ServerAddr: ":8080",

		LogFile:  "/tmp/doxai-indexer.log",
		LogLevel: slog.LevelInfo,
	}
}

func applyEnv(cfg *Config) {
	setStr := func(dst *string, key string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	setInt := func(dst *int, key string) {
		if v := os.Getenv(key); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				*dst = n
			}
		}
	}

	setStr(&cfg.SurrealDBURL, "SURREALDB_URL")
	setStr(&cfg.SurrealDBNamespace, "SURREALDB_NAMESPACE")
	setStr(&cfg.SurrealDBDatabase, "SURREALDB_DATABASE")
	setStr(&cfg.SurrealDBUser, "SURREALDB_USER")
	setStr(&cfg.SurrealDBPass, "SURREALDB_PASS")

	setStr(&cfg.EmbedProvider, "DOXAI_EMBED_PROVIDER")
	setStr(&cfg.EmbeddingModel, "DOXAI_EMBEDDING_MODEL")
	setInt(&cfg.EmbedDimension, "DOXAI_EMBED_DIMENSION")
	setStr(&cfg.OpenAIAPIKey, "OPENAI_API_KEY")
	setStr(&cfg.OllamaHost, "OLLAMA_HOST")
	setStr(&cfg.BedrockRegion, "AWS_REGION")

	setStr(&cfg.DocIntelEndpoint, "DOXAI_DOCINTEL_ENDPOINT")
	setStr(&cfg.DocIntelAPIKey, "DOXAI_DOCINTEL_KEY")

	setStr(&cfg.CacheDir, "DOXAI_CACHE_DIR")

	setInt(&cfg.Workers, "DOXAI_WORKERS")
	setInt(&cfg.ChunkMaxTokens, "DOXAI_CHUNK_MAX_TOKENS")
	setInt(&cfg.ChunkOverlap, "DOXAI_CHUNK_OVERLAP")
	if v := os.Getenv("DOXAI_RESERVATION_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.ReservationTTL = d
		}
	}

	setStr(&cfg.ServerAddr, "DOXAI_SERVER_ADDR")
	setStr(&cfg.LogFile, "DOXAI_LOG_FILE")
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
