package models

// Payload is the job description handed to the processor.
type Payload struct {
	ID  string `json:"id"`
	URI string `json:"URI"`
}

// Chunk is one unit of embedding work. Embedding is nil until the batcher
// attaches the provider's vector.
type Chunk struct {
	DatasetID string         `json:"dataset_id"`
	Content   string         `json:"content"`
	Metadata  map[string]any `json:"metadata"`
	Embedding []float32      `json:"embedding,omitempty"`
}

// Cell is a single table value; Valid is false for an absent or null value.
type Cell struct {
	Value string
	Valid bool
}

// Table is a decoded tabular document.
type Table struct {
	Columns []string
	Rows    [][]Cell
}

type Field struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

type Schema struct {
	Fields []Field `json:"fields"`
}

type Tag struct {
	Name string `json:"name"`
}

// Dataset is the processed document ready for persistence.
type Dataset struct {
	ID        string
	Schema    *Schema
	Tags      []Tag
	Embedding []float32
	Rows      []Chunk
}
