package embedding

import (
	"context"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"

	"dataset-processor/internal/config"
)

// Embedder turns text into vectors. EmbedTexts returns one vector per input,
// in input order.
type Embedder interface {
	EmbedText(ctx context.Context, text string) ([]float32, error)
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// OpenAIEmbedder implements Embedder against an OpenAI compatible
// embeddings endpoint.
type OpenAIEmbedder struct {
	embedder embeddings.Embedder
	model    string
}

var _ Embedder = (*OpenAIEmbedder)(nil)

// NewEmbedder creates a new embedder. batchSize bounds the number of inputs
// sent in a single request.
func NewEmbedder(llmConfig *config.LLMConfig, batchSize int) (*OpenAIEmbedder, error) {
	log.Debug().Interface("config", map[string]string{
		"base_url":        llmConfig.BaseURL,
		"embedding_model": llmConfig.Model,
	}).Msg("Creating embedder")

	opts := []openai.Option{openai.WithEmbeddingModel(llmConfig.Model)}
	if llmConfig.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(llmConfig.BaseURL))
	}
	if llmConfig.Key != "" {
		opts = append(opts, openai.WithToken(strings.TrimPrefix(llmConfig.Key, "Bearer ")))
	}

	llm, err := openai.New(opts...)
	if err != nil {
		return nil, err
	}

	// newlines separate table rows and must reach the provider untouched
	embedder, err := embeddings.NewEmbedder(llm,
		embeddings.WithStripNewLines(false),
		embeddings.WithBatchSize(max(batchSize, 1)),
	)
	if err != nil {
		return nil, err
	}
	return &OpenAIEmbedder{embedder: embedder, model: llmConfig.Model}, nil
}

func (e *OpenAIEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	log.Debug().Str("model", e.model).Int("length", len(text)).Msg("Embedding text")
	vectors, err := e.embedder.EmbedDocuments(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, nil
	}
	return vectors[0], nil
}

func (e *OpenAIEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	log.Debug().Str("model", e.model).Int("count", len(texts)).Msg("Embedding texts")
	return e.embedder.EmbedDocuments(ctx, texts)
}
