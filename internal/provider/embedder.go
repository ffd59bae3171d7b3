// Package provider wraps the external services the pipeline calls:
// embedding models and document OCR.
package provider

import (
	"context"
	"fmt"
)

// Embedder defines the interface for text embedding providers.
type Embedder interface {
	// EmbedBatch generates embeddings for multiple texts. The result
	// has exactly one vector per input text, in input order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Model returns the name of the embedding model being used.
	Model() string

	// Dimension returns the embedding vector dimension.
	Dimension() int
}

// ProviderType identifies the embedding provider.
type ProviderType string

const (
	// ProviderOllama uses a local Ollama server for embeddings.
	ProviderOllama ProviderType = "ollama"

	// ProviderOpenAI uses the OpenAI embeddings API.
	ProviderOpenAI ProviderType = "openai"

	// ProviderBedrock uses Amazon Bedrock Titan embeddings.
	ProviderBedrock ProviderType = "bedrock"
)

// EmbedderConfig holds configuration for creating an Embedder.
type EmbedderConfig struct {
	// Provider specifies which embedding backend to use.
	Provider ProviderType

	// Model is the embedding model name (provider-specific).
	// Ollama: "all-minilm:l6-v2" (384-dim), "nomic-embed-text" (768-dim)
	// OpenAI: "text-embedding-3-small", "text-embedding-3-large"
	// Bedrock: "amazon.titan-embed-text-v2:0"
	Model string

	// Dimension is the required output dimension. Validated against
	// the model's allowed set before any provider call.
	Dimension int

	// OpenAI-specific
	OpenAIAPIKey string

	// Ollama-specific (uses OLLAMA_HOST env var if empty)
	OllamaHost string

	// Bedrock-specific
	BedrockRegion string
}

// allowedDimensions maps known models to the dimensions they support.
// Models absent from the map accept any positive dimension.
var allowedDimensions = map[string][]int{
	"text-embedding-3-small":       {512, 1536},
	"text-embedding-3-large":       {256, 1024, 3072},
	"amazon.titan-embed-text-v2:0": {256, 512, 1024},
	"all-minilm:l6-v2":             {384},
	"nomic-embed-text":             {768},
}

// ValidateDimension checks that dim is valid for the given model.
func ValidateDimension(model string, dim int) error {
	if dim <= 0 {
		return fmt.Errorf("embedding dimension must be positive, got %d", dim)
	}
	allowed, ok := allowedDimensions[model]
	if !ok {
		return nil
	}
	for _, d := range allowed {
		if d == dim {
			return nil
		}
	}
	return fmt.Errorf("model %s does not support dimension %d (allowed: %v)", model, dim, allowed)
}

// NewEmbedder creates an Embedder based on the provided configuration.
func NewEmbedder(ctx context.Context, cfg EmbedderConfig) (Embedder, error) {
	if err := ValidateDimension(cfg.Model, cfg.Dimension); err != nil {
		return nil, err
	}

	switch cfg.Provider {
	case ProviderOllama, ProviderOpenAI:
		return newLangchainEmbedder(cfg)
	case ProviderBedrock:
		return newBedrockEmbedder(ctx, cfg)
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", cfg.Provider)
	}
}

// validateVectors checks batch shape: one vector per text, each with
// the expected dimension.
func validateVectors(vectors [][]float32, want, dimension int) error {
	if len(vectors) != want {
		return fmt.Errorf("embedding count mismatch: got %d, want %d", len(vectors), want)
	}
	for i, v := range vectors {
		if len(v) != dimension {
			return fmt.Errorf("embedding %d dimension mismatch: got %d, want %d", i, len(v), dimension)
		}
	}
	return nil
}
