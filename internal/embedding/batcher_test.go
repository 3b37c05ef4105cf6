package embedding

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dataset-processor/internal/embedding/mock"
	"dataset-processor/internal/models"
)

const testDim = 8

func makeChunks(n int) []models.Chunk {
	chunks := make([]models.Chunk, n)
	for i := range chunks {
		chunks[i] = models.Chunk{DatasetID: "ds", Content: fmt.Sprintf("chunk %d", i)}
	}
	return chunks
}

type recordedSleeps struct {
	waits []time.Duration
}

func (r *recordedSleeps) sleep(_ context.Context, d time.Duration) error {
	r.waits = append(r.waits, d)
	return nil
}

func TestBatches(t *testing.T) {
	batches := Batches(makeChunks(120), 50)
	require.Len(t, batches, 3)
	assert.Len(t, batches[0], 50)
	assert.Len(t, batches[1], 50)
	assert.Len(t, batches[2], 20)
	assert.Equal(t, "chunk 50", batches[1][0].Content)

	assert.Empty(t, Batches(nil, 50))
	assert.Len(t, Batches(makeChunks(3), 0), 1)
}

func TestEstimateTokens(t *testing.T) {
	assert.Equal(t, 0, EstimateTokens(nil))
	assert.Equal(t, 5, EstimateTokens([]string{"a b  c", "\td\ne "}))
}

func TestWaitDuration(t *testing.T) {
	assert.Equal(t, 120*time.Second, WaitDuration(200, 100))
	assert.Equal(t, time.Duration(0), WaitDuration(100, 100))
	assert.Equal(t, time.Duration(0), WaitDuration(50, 100))
	assert.Equal(t, time.Duration(0), WaitDuration(50, 0))
	assert.Equal(t, 90*time.Second, WaitDuration(150, 100))
}

func TestBatcher_Embed(t *testing.T) {
	t.Run("Count And Order", func(t *testing.T) {
		embedder := mock.NewMockEmbedder(testDim)
		chunks := makeChunks(120)

		vectors, err := NewBatcher(embedder, 50, 1000000, WithDimension(testDim)).Embed(context.Background(), chunks)
		require.NoError(t, err)

		require.Len(t, vectors, 120)
		require.Len(t, embedder.TextsCalls, 3)
		assert.Len(t, embedder.TextsCalls[2], 20)
		for i, chunk := range chunks {
			want := mock.Vector(chunk.Content, testDim)
			assert.Equal(t, want, vectors[i])
			assert.Equal(t, want, chunk.Embedding, "embedding must be attached to chunk %d", i)
		}
	})

	t.Run("Predictive Throttle", func(t *testing.T) {
		embedder := mock.NewMockEmbedder(testDim)
		sleeps := &recordedSleeps{}
		chunks := []models.Chunk{
			{Content: strings.Repeat("word ", 150)},
			{Content: strings.Repeat("word ", 50)},
			{Content: "small"},
		}

		_, err := NewBatcher(embedder, 2, 100, WithSleeper(sleeps.sleep)).Embed(context.Background(), chunks)
		require.NoError(t, err)

		assert.Equal(t, []time.Duration{120 * time.Second}, sleeps.waits, "only the 200 word batch waits")
		assert.Len(t, embedder.TextsCalls, 2)
	})

	t.Run("Cancelled While Waiting", func(t *testing.T) {
		embedder := mock.NewMockEmbedder(testDim)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := NewBatcher(embedder, 10, 1).Embed(ctx, []models.Chunk{{Content: "two words"}})
		assert.ErrorIs(t, err, context.Canceled)
		assert.Zero(t, embedder.CallCount())
	})

	t.Run("Fail Fast", func(t *testing.T) {
		embedder := mock.NewMockEmbedder(testDim)
		calls := 0
		embedder.EmbedTextsFunc = func(_ context.Context, texts []string) ([][]float32, error) {
			calls++
			if calls == 2 {
				return nil, errors.New("boom")
			}
			out := make([][]float32, len(texts))
			for i, text := range texts {
				out[i] = mock.Vector(text, testDim)
			}
			return out, nil
		}

		vectors, err := NewBatcher(embedder, 50, 1000000).Embed(context.Background(), makeChunks(120))
		assert.ErrorIs(t, err, ErrProvider)
		assert.Contains(t, err.Error(), "batch 50-100")
		assert.Nil(t, vectors)
		assert.Equal(t, 2, calls, "no batch after the failing one is submitted")
	})

	t.Run("Count Mismatch", func(t *testing.T) {
		embedder := mock.NewMockEmbedder(testDim)
		embedder.EmbedTextsFunc = func(_ context.Context, texts []string) ([][]float32, error) {
			return [][]float32{mock.Vector("x", testDim)}, nil
		}
		_, err := NewBatcher(embedder, 50, 1000000).Embed(context.Background(), makeChunks(3))
		assert.ErrorIs(t, err, ErrProvider)
	})

	t.Run("Dimension Mismatch", func(t *testing.T) {
		embedder := mock.NewMockEmbedder(4)
		_, err := NewBatcher(embedder, 50, 1000000, WithDimension(testDim)).Embed(context.Background(), makeChunks(3))
		assert.ErrorIs(t, err, ErrDimensionMismatch)
	})
}
