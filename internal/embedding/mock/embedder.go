// Package mock provides a test double for embedding.Embedder.
package mock

import (
	"context"
	"hash/fnv"
)

// MockEmbedder returns deterministic vectors unless a func field overrides
// the behaviour. It records every request it receives.
type MockEmbedder struct {
	Dimension int

	EmbedTextFunc  func(ctx context.Context, text string) ([]float32, error)
	EmbedTextsFunc func(ctx context.Context, texts []string) ([][]float32, error)

	TextCalls  []string
	TextsCalls [][]string
}

func NewMockEmbedder(dimension int) *MockEmbedder {
	return &MockEmbedder{Dimension: dimension}
}

func (m *MockEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	m.TextCalls = append(m.TextCalls, text)
	if m.EmbedTextFunc != nil {
		return m.EmbedTextFunc(ctx, text)
	}
	return Vector(text, m.Dimension), nil
}

func (m *MockEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	m.TextsCalls = append(m.TextsCalls, append([]string(nil), texts...))
	if m.EmbedTextsFunc != nil {
		return m.EmbedTextsFunc(ctx, texts)
	}
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vectors[i] = Vector(text, m.Dimension)
	}
	return vectors, nil
}

// CallCount is the number of provider requests made.
func (m *MockEmbedder) CallCount() int {
	return len(m.TextCalls) + len(m.TextsCalls)
}

// Vector derives a deterministic vector of length dim from text.
func Vector(text string, dim int) []float32 {
	h := fnv.New32a()
	h.Write([]byte(text))
	seed := h.Sum32()

	vector := make([]float32, dim)
	for i := range vector {
		seed = seed*1664525 + 1013904223
		vector[i] = float32(seed%1000) / 1000.0
	}
	return vector
}
