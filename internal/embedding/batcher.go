package embedding

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"dataset-processor/internal/chunker"
	"dataset-processor/internal/models"
)

// ChunkEmbedder attaches an embedding to every chunk and returns the
// embeddings in chunk order.
type ChunkEmbedder interface {
	Embed(ctx context.Context, chunks []models.Chunk) ([][]float32, error)
}

// Sleeper suspends the caller for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// Batcher submits chunks in fixed-size batches and throttles each batch
// ahead of submission so the estimated token usage stays under a
// tokens-per-minute ceiling.
type Batcher struct {
	embedder  Embedder
	batchSize int
	tpmLimit  int
	dimension int
	sleep     Sleeper
}

var _ ChunkEmbedder = (*Batcher)(nil)

type BatcherOption func(*Batcher)

// WithDimension makes the batcher reject vectors of any other length.
func WithDimension(dimension int) BatcherOption {
	return func(b *Batcher) { b.dimension = dimension }
}

func WithSleeper(sleep Sleeper) BatcherOption {
	return func(b *Batcher) { b.sleep = sleep }
}

func NewBatcher(embedder Embedder, batchSize, tpmLimit int, opts ...BatcherOption) *Batcher {
	b := &Batcher{
		embedder:  embedder,
		batchSize: batchSize,
		tpmLimit:  tpmLimit,
		sleep:     sleepContext,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Embed embeds chunks batch by batch. The first failing batch aborts the
// whole run; there is no retry.
func (b *Batcher) Embed(ctx context.Context, chunks []models.Chunk) ([][]float32, error) {
	result := make([][]float32, 0, len(chunks))

	start := 0
	for _, batch := range Batches(chunks, b.batchSize) {
		end := start + len(batch)
		texts := chunker.Contents(batch)

		tokens := EstimateTokens(texts)
		if wait := WaitDuration(tokens, b.tpmLimit); wait > 0 {
			log.Info().Int("tokens", tokens).Int("tpm_limit", b.tpmLimit).Dur("wait", wait).
				Msgf("Rate limit reached. Waiting for %.2f seconds...", wait.Seconds())
			if err := b.sleep(ctx, wait); err != nil {
				return nil, err
			}
		}

		vectors, err := b.embedder.EmbedTexts(ctx, texts)
		if err != nil {
			return nil, fmt.Errorf("%w: batch %d-%d: %w", ErrProvider, start, end, err)
		}
		if len(vectors) != len(batch) {
			return nil, fmt.Errorf("%w: batch %d-%d: expected %d embeddings, received %d",
				ErrProvider, start, end, len(batch), len(vectors))
		}

		for j, vector := range vectors {
			if err := checkDimension(vector, b.dimension); err != nil {
				return nil, fmt.Errorf("batch %d-%d: %w", start, end, err)
			}
			batch[j].Embedding = vector
			result = append(result, vector)
		}

		log.Debug().Int("start", start).Int("end", end).Int("tokens", tokens).Msg("Embedded batch")
		start = end
	}
	return result, nil
}

// Batches partitions chunks into consecutive sub-slices of at most size
// chunks. The sub-slices share the backing array of chunks.
func Batches(chunks []models.Chunk, size int) [][]models.Chunk {
	if size <= 0 {
		size = len(chunks)
	}
	var batches [][]models.Chunk
	for i := 0; i < len(chunks); i += size {
		batches = append(batches, chunks[i:min(i+size, len(chunks))])
	}
	return batches
}

// EstimateTokens approximates the token cost of texts as the number of
// whitespace separated words. Real tokenizers usually count more.
func EstimateTokens(texts []string) int {
	total := 0
	for _, text := range texts {
		total += len(strings.Fields(text))
	}
	return total
}

// WaitDuration is the predictive pause before submitting a batch of tokens
// under tpmLimit tokens per minute. Batches within the limit do not wait.
func WaitDuration(tokens, tpmLimit int) time.Duration {
	if tpmLimit <= 0 || tokens <= tpmLimit {
		return 0
	}
	return time.Duration(float64(tokens) / float64(tpmLimit) * float64(time.Minute))
}

func checkDimension(vector []float32, dimension int) error {
	if len(vector) == 0 {
		return fmt.Errorf("%w: empty vector", ErrDimensionMismatch)
	}
	if dimension > 0 && len(vector) != dimension {
		return fmt.Errorf("%w: expected %d, got %d", ErrDimensionMismatch, dimension, len(vector))
	}
	return nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
