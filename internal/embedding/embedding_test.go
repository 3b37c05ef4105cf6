package embedding

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dataset-processor/internal/config"
)

// fakeOpenAI serves the embeddings endpoint, answering each input with a
// vector that encodes its position and length.
func fakeOpenAI(t *testing.T, requests *[][]string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/embeddings") {
			http.NotFound(w, r)
			return
		}
		var payload struct {
			Model string   `json:"model"`
			Input []string `json:"input"`
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		*requests = append(*requests, payload.Input)

		type datum struct {
			Object    string    `json:"object"`
			Embedding []float32 `json:"embedding"`
			Index     int       `json:"index"`
		}
		resp := struct {
			Object string  `json:"object"`
			Data   []datum `json:"data"`
			Model  string  `json:"model"`
		}{Object: "list", Model: payload.Model}
		for i, in := range payload.Input {
			resp.Data = append(resp.Data, datum{
				Object:    "embedding",
				Embedding: []float32{float32(i), float32(len(in))},
				Index:     i,
			})
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
}

func TestOpenAIEmbedder(t *testing.T) {
	var requests [][]string
	server := fakeOpenAI(t, &requests)
	defer server.Close()

	embedder, err := NewEmbedder(&config.LLMConfig{
		BaseURL: server.URL + "/v1",
		Key:     "Bearer test-key",
		Model:   config.DefaultEmbeddingModel,
	}, 50)
	require.NoError(t, err)

	vectors, err := embedder.EmbedTexts(context.Background(), []string{"a: 1\na: 2", "bb"})
	require.NoError(t, err)
	require.Len(t, vectors, 2)
	assert.Equal(t, []float32{0, 9}, vectors[0])
	assert.Equal(t, []float32{1, 2}, vectors[1])

	require.Len(t, requests, 1, "a batch is a single request")
	assert.Equal(t, "a: 1\na: 2", requests[0][0], "newlines are preserved")

	vector, err := embedder.EmbedText(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, []float32{0, 5}, vector)
}
