package provider

import (
	"context"
	"encoding/json"
	"fmt"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
)

// BedrockEmbedder generates embeddings via Amazon Bedrock Titan models.
type BedrockEmbedder struct {
	client    *bedrockruntime.Client
	dimension int
	modelName string
}

var _ Embedder = (*BedrockEmbedder)(nil)

func newBedrockEmbedder(ctx context.Context, cfg EmbedderConfig) (*BedrockEmbedder, error) {
	opts := []func(*awsconfig.LoadOptions) error{}
	if cfg.BedrockRegion != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.BedrockRegion))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	return &BedrockEmbedder{
		client:    bedrockruntime.NewFromConfig(awsCfg),
		dimension: cfg.Dimension,
		modelName: cfg.Model,
	}, nil
}

// titanRequest is the request format for Titan embedding models.
type titanRequest struct {
	InputText  string `json:"inputText"`
	Dimensions int    `json:"dimensions,omitempty"`
}

// titanResponse is the response format from Titan embedding models.
type titanResponse struct {
	Embedding           []float32 `json:"embedding"`
	InputTextTokenCount int       `json:"inputTextTokenCount"`
}

// EmbedBatch generates embeddings for multiple texts. Titan models
// accept one input per invocation, so the batch is a sequence of
// InvokeModel calls.
func (e *BedrockEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		body, err := json.Marshal(titanRequest{
			InputText:  text,
			Dimensions: e.dimension,
		})
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}

		modelID := e.modelName
		contentType := "application/json"
		out, err := e.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
			ModelId:     &modelID,
			ContentType: &contentType,
			Body:        body,
		})
		if err != nil {
			return nil, fmt.Errorf("invoke model %s: %w", e.modelName, err)
		}

		var resp titanResponse
		if err := json.Unmarshal(out.Body, &resp); err != nil {
			return nil, fmt.Errorf("decode response: %w", err)
		}
		vectors[i] = resp.Embedding
	}

	if err := validateVectors(vectors, len(texts), e.dimension); err != nil {
		return nil, err
	}
	return vectors, nil
}

// Model returns the embedding model name.
func (e *BedrockEmbedder) Model() string {
	return e.modelName
}

// Dimension returns the expected embedding dimension.
func (e *BedrockEmbedder) Dimension() int {
	return e.dimension
}
