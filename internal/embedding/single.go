package embedding

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"dataset-processor/internal/models"
)

// SingleEmbedder submits one provider request per chunk, without batching
// or throttling.
type SingleEmbedder struct {
	embedder  Embedder
	counter   TokenCounter
	maxTokens int
	dimension int
}

var _ ChunkEmbedder = (*SingleEmbedder)(nil)

// NewSingleEmbedder rejects chunks above maxTokens as counted by counter.
// A nil counter falls back to word counting.
func NewSingleEmbedder(embedder Embedder, counter TokenCounter, maxTokens, dimension int) *SingleEmbedder {
	if counter == nil {
		counter = WordCounter{}
	}
	return &SingleEmbedder{
		embedder:  embedder,
		counter:   counter,
		maxTokens: maxTokens,
		dimension: dimension,
	}
}

// Embed validates every chunk against the token budget before the first
// request, so an oversized chunk fails the run without spending any calls.
func (s *SingleEmbedder) Embed(ctx context.Context, chunks []models.Chunk) ([][]float32, error) {
	if s.maxTokens > 0 {
		for i, chunk := range chunks {
			if n := s.counter.Count(chunk.Content); n > s.maxTokens {
				return nil, fmt.Errorf("%w: chunk %d has %d tokens, limit %d", ErrTokenBudgetExceeded, i, n, s.maxTokens)
			}
		}
	}

	result := make([][]float32, 0, len(chunks))
	for i := range chunks {
		vector, err := s.embedder.EmbedText(ctx, chunks[i].Content)
		if err != nil {
			log.Error().Err(err).Int("chunk", i).Msg("Error generating embedding for chunk")
			return nil, fmt.Errorf("%w: chunk %d: %w", ErrProvider, i, err)
		}
		if err := checkDimension(vector, s.dimension); err != nil {
			return nil, fmt.Errorf("chunk %d: %w", i, err)
		}
		chunks[i].Embedding = vector
		result = append(result, vector)
	}
	return result, nil
}
