// Package chunker splits decoded documents into ordered, bounded-size chunks.
package chunker

import (
	"strings"

	"dataset-processor/internal/models"
)

const (
	defaultRowsPerChunk  = 50
	defaultCharsPerChunk = 1000
)

// TableChunks groups table rows into windows of chunkSize rows. Each chunk
// carries a half-open [chunk_start, chunk_end) row range; offset shifts that
// range so that a table read in pages keeps document-wide row indices.
func TableChunks(datasetID string, table models.Table, chunkSize, offset int) []models.Chunk {
	if chunkSize <= 0 {
		chunkSize = defaultRowsPerChunk
	}
	if len(table.Rows) == 0 {
		return nil
	}

	chunks := make([]models.Chunk, 0, (len(table.Rows)+chunkSize-1)/chunkSize)
	for start := 0; start < len(table.Rows); start += chunkSize {
		end := min(start+chunkSize, len(table.Rows))

		lines := make([]string, 0, end-start)
		for _, row := range table.Rows[start:end] {
			lines = append(lines, RenderRow(table.Columns, row))
		}

		chunks = append(chunks, models.Chunk{
			DatasetID: datasetID,
			Content:   strings.Join(lines, "\n"),
			Metadata: map[string]any{
				models.MetaChunkStart: offset + start,
				models.MetaChunkEnd:   offset + end,
			},
		})
	}
	return chunks
}

// RenderRow renders a row as space separated "column: value" tokens,
// skipping absent values.
func RenderRow(columns []string, row []models.Cell) string {
	tokens := make([]string, 0, len(row))
	for i, cell := range row {
		if !cell.Valid || i >= len(columns) {
			continue
		}
		tokens = append(tokens, columns[i]+": "+cell.Value)
	}
	return strings.Join(tokens, " ")
}

// TextChunks slices text into consecutive windows of size characters with
// no overlap. The last window may be shorter. Windows are counted in runes
// so multi-byte characters are never split.
func TextChunks(datasetID, text string, size int) []models.Chunk {
	if size <= 0 {
		size = defaultCharsPerChunk
	}
	if text == "" {
		return nil
	}

	var chunks []models.Chunk
	runes := []rune(text)
	for start := 0; start < len(runes); start += size {
		end := min(start+size, len(runes))
		chunks = append(chunks, models.Chunk{
			DatasetID: datasetID,
			Content:   string(runes[start:end]),
			Metadata:  map[string]any{},
		})
	}
	return chunks
}

// Contents returns the chunk contents in order.
func Contents(chunks []models.Chunk) []string {
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}
	return texts
}
