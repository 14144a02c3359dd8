package vector

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"

	"github.com/claimscope/claimscope/internal/model"
)

// Embedder turns text into dense vectors
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	Model() string
}

// OpenAIEmbedder embeds text via the OpenAI embeddings API
type OpenAIEmbedder struct {
	client *openai.Client
	model  string
}

// NewOpenAIEmbedder creates an embedder from LLM credentials and the
// configured embedding model
func NewOpenAIEmbedder(llmCfg model.LLMConfig, embeddingModel string) (*OpenAIEmbedder, error) {
	if llmCfg.APIKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required for embeddings")
	}
	if embeddingModel == "" {
		embeddingModel = "text-embedding-3-small"
	}

	config := openai.DefaultConfig(llmCfg.APIKey)
	if llmCfg.BaseURL != "" {
		config.BaseURL = llmCfg.BaseURL
	}

	return &OpenAIEmbedder{
		client: openai.NewClientWithConfig(config),
		model:  embeddingModel,
	}, nil
}

// Embed returns one vector per input text, in input order
func (e *OpenAIEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: texts,
		Model: openai.EmbeddingModel(e.model),
	})
	if err != nil {
		return nil, fmt.Errorf("create embeddings: %w", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("embeddings: got %d vectors for %d inputs", len(resp.Data), len(texts))
	}

	vectors := make([][]float32, len(resp.Data))
	for i, d := range resp.Data {
		vectors[i] = d.Embedding
	}
	return vectors, nil
}

// Model returns the embedding model name
func (e *OpenAIEmbedder) Model() string {
	return e.model
}
