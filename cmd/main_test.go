package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dataset-processor/internal/models"
	"dataset-processor/internal/processor"
)

func TestExitCode(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{nil, exitOK},
		{errors.New("boom"), exitFailure},
		{fmt.Errorf("%w: x", processor.ErrInvalidPayload), exitUsage},
		{fmt.Errorf("%w: 404", processor.ErrDownload), exitDownload},
		{fmt.Errorf("%w: \".docx\"", processor.ErrUnsupportedFileType), exitUnsupported},
		{fmt.Errorf("%w: bad pdf", processor.ErrParse), exitFailure},
		{fmt.Errorf("%w: 429", processor.ErrEmbeddingProvider), exitEmbedding},
		{fmt.Errorf("%w: tx", processor.ErrPersistence), exitPersistence},
		{fmt.Errorf("%w: no chunks", processor.ErrEmptyDocument), exitEmptyDocument},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, exitCode(tt.err), "%v", tt.err)
	}
}

func TestRunUsage(t *testing.T) {
	var stderr bytes.Buffer
	assert.Equal(t, exitUsage, run(context.Background(), nil, &stderr))
	assert.Contains(t, stderr.String(), "Usage: dataset-processor")

	stderr.Reset()
	assert.Equal(t, exitUsage, run(context.Background(), []string{"a.json", "b.json"}, &stderr))
}

func TestRunBadPayload(t *testing.T) {
	dir := t.TempDir()

	missing := filepath.Join(dir, "missing.json")
	assert.Equal(t, exitUsage, run(context.Background(), []string{missing}, &bytes.Buffer{}))

	malformed := filepath.Join(dir, "payload.json")
	require.NoError(t, os.WriteFile(malformed, []byte(`{"id":`), 0o644))
	assert.Equal(t, exitUsage, run(context.Background(), []string{malformed}, &bytes.Buffer{}))
}

func TestReadPayload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "payload.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"id":"abc","URI":"https://example.com/data.csv"}`), 0o644))

	payload, err := readPayload(path)
	require.NoError(t, err)
	assert.Equal(t, models.Payload{ID: "abc", URI: "https://example.com/data.csv"}, payload)
}

func TestDatasetSummary(t *testing.T) {
	dataset := &models.Dataset{
		ID:        "abc",
		Tags:      []models.Tag{{Name: "a"}},
		Embedding: make([]float32, 4),
		Rows: []models.Chunk{
			{Content: strings.Repeat("é", 100), Metadata: map[string]any{models.MetaChunkStart: 0}},
			{Content: "short"},
		},
	}

	s := datasetSummary(dataset)
	assert.Equal(t, 4, s.Dimension)
	require.Len(t, s.Rows, 2)
	assert.Equal(t, previewLength+1, len([]rune(s.Rows[0].Preview)))
	assert.Equal(t, "short", s.Rows[1].Preview)
	assert.NotEqual(t, s.Rows[0].ID, s.Rows[1].ID)
}
