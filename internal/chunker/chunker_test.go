package chunker

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dataset-processor/internal/models"
)

func valid(v string) models.Cell { return models.Cell{Value: v, Valid: true} }

func makeTable(rows int) models.Table {
	table := models.Table{Columns: []string{"id", "name"}}
	for i := 0; i < rows; i++ {
		table.Rows = append(table.Rows, []models.Cell{valid(fmt.Sprint(i)), valid(fmt.Sprintf("n%d", i))})
	}
	return table
}

func TestTableChunks(t *testing.T) {
	t.Run("Row Rendering", func(t *testing.T) {
		table := models.Table{
			Columns: []string{"a", "b", "c"},
			Rows: [][]models.Cell{
				{valid("1"), {}, valid("x")},
				{valid("2"), valid("y"), valid("z")},
			},
		}
		chunks := TableChunks("ds", table, 50, 0)
		require.Len(t, chunks, 1)
		assert.Equal(t, "a: 1 c: x\na: 2 b: y c: z", chunks[0].Content)
		assert.Equal(t, "ds", chunks[0].DatasetID)
		assert.Equal(t, 0, chunks[0].Metadata[models.MetaChunkStart])
		assert.Equal(t, 2, chunks[0].Metadata[models.MetaChunkEnd])
		assert.Nil(t, chunks[0].Embedding)
	})

	t.Run("Partition", func(t *testing.T) {
		tests := []struct {
			rows, size, want int
		}{
			{1, 50, 1},
			{50, 50, 1},
			{51, 50, 2},
			{120, 50, 3},
			{7, 3, 3},
			{10, 1, 10},
		}
		for _, tt := range tests {
			chunks := TableChunks("ds", makeTable(tt.rows), tt.size, 0)
			require.Len(t, chunks, tt.want, "rows=%d size=%d", tt.rows, tt.size)

			next := 0
			for _, c := range chunks {
				start := c.Metadata[models.MetaChunkStart].(int)
				end := c.Metadata[models.MetaChunkEnd].(int)
				assert.Equal(t, next, start, "ranges must be contiguous")
				assert.Greater(t, end, start)
				assert.LessOrEqual(t, end-start, tt.size)
				assert.Equal(t, end-start, strings.Count(c.Content, "\n")+1)
				next = end
			}
			assert.Equal(t, tt.rows, next, "ranges must cover every row")
		}
	})

	t.Run("Offset", func(t *testing.T) {
		chunks := TableChunks("ds", makeTable(5), 2, 100)
		require.Len(t, chunks, 3)
		assert.Equal(t, 100, chunks[0].Metadata[models.MetaChunkStart])
		assert.Equal(t, 105, chunks[2].Metadata[models.MetaChunkEnd])
	})

	t.Run("Empty", func(t *testing.T) {
		assert.Empty(t, TableChunks("ds", models.Table{Columns: []string{"a"}}, 50, 0))
	})

	t.Run("Default Size", func(t *testing.T) {
		assert.Len(t, TableChunks("ds", makeTable(120), 0, 0), 3)
	})
}

func TestTextChunks(t *testing.T) {
	t.Run("Reconstruction", func(t *testing.T) {
		tests := []struct {
			length, size int
		}{
			{1, 1000},
			{999, 1000},
			{1000, 1000},
			{1001, 1000},
			{2500, 1000},
			{10, 3},
		}
		for _, tt := range tests {
			text := strings.Repeat("abcdefghij", tt.length/10+1)[:tt.length]
			chunks := TextChunks("ds", text, tt.size)

			want := (tt.length + tt.size - 1) / tt.size
			require.Len(t, chunks, want)

			var b strings.Builder
			for i, c := range chunks {
				assert.Equal(t, "ds", c.DatasetID)
				assert.Empty(t, c.Metadata)
				if i < len(chunks)-1 {
					assert.Len(t, c.Content, tt.size)
				}
				b.WriteString(c.Content)
			}
			assert.Equal(t, text, b.String())
		}
	})

	t.Run("Multibyte", func(t *testing.T) {
		text := "héllo wörld ✓"
		chunks := TextChunks("ds", text, 4)
		assert.Len(t, chunks, 4)
		assert.Equal(t, text, strings.Join(Contents(chunks), ""))
	})

	t.Run("Empty", func(t *testing.T) {
		assert.Empty(t, TextChunks("ds", "", 1000))
	})
}
