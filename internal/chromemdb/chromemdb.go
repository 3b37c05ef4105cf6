package chromemdb

import (
	"context"
	"encoding/json"
	"fmt"
	"runtime"
	"strconv"

	"github.com/philippgille/chromem-go"
	"github.com/rs/zerolog/log"

	"dataset-processor/internal/helper"
	"dataset-processor/internal/models"
)

const (
	DatasetsCollection = "datasets"
	RowsCollection     = "dataset_rows"

	compress = false
)

// Store keeps processed datasets in a local chromem-go database, one
// collection for dataset records and one for their rows.
type Store struct {
	db       *chromem.DB
	datasets *chromem.Collection
	rows     *chromem.Collection
}

// NewStore opens the database at dbPath, or an in-memory one when inMemory
// is set.
func NewStore(dbPath string, inMemory bool) (*Store, error) {
	var db *chromem.DB
	var err error
	if inMemory {
		db = chromem.NewDB()
	} else {
		db, err = chromem.NewPersistentDB(dbPath, compress)
		if err != nil {
			return nil, fmt.Errorf("failed to create database: %w", err)
		}
	}

	datasets, err := db.GetOrCreateCollection(DatasetsCollection, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create/get collection: %w", err)
	}
	rows, err := db.GetOrCreateCollection(RowsCollection, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create/get collection: %w", err)
	}
	return &Store{db: db, datasets: datasets, rows: rows}, nil
}

// SaveDataset replaces the rows of the dataset and writes its record.
// Rows are written first, so a dataset record is never visible without them.
func (s *Store) SaveDataset(ctx context.Context, dataset *models.Dataset) error {
	schema, err := json.Marshal(dataset.Schema)
	if err != nil {
		return fmt.Errorf("failed to encode schema: %w", err)
	}
	tags := dataset.Tags
	if tags == nil {
		tags = []models.Tag{}
	}
	tagsJSON, err := json.Marshal(tags)
	if err != nil {
		return fmt.Errorf("failed to encode tags: %w", err)
	}

	docs := make([]chromem.Document, len(dataset.Rows))
	for i, chunk := range dataset.Rows {
		metadata, err := rowMetadata(chunk)
		if err != nil {
			return err
		}
		docs[i] = chromem.Document{
			ID:        helper.RowID(chunk.DatasetID, i),
			Content:   chunk.Content,
			Metadata:  metadata,
			Embedding: chunk.Embedding,
		}
	}

	if s.rows.Count() > 0 {
		if err := s.rows.Delete(ctx, map[string]string{"dataset_id": dataset.ID}, nil); err != nil {
			return fmt.Errorf("failed to delete previous rows: %w", err)
		}
	}
	if len(docs) > 0 {
		if err := s.rows.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
			return fmt.Errorf("failed to add rows: %w", err)
		}
	}

	err = s.datasets.AddDocument(ctx, chromem.Document{
		ID:      dataset.ID,
		Content: dataset.ID,
		Metadata: map[string]string{
			"schema": string(schema),
			"tags":   string(tagsJSON),
		},
		Embedding: dataset.Embedding,
	})
	if err != nil {
		return fmt.Errorf("failed to add dataset: %w", err)
	}

	log.Info().Str("dataset_id", dataset.ID).Int("rows", len(docs)).Msg("Saved dataset to chromem")
	return nil
}

// Dataset returns the stored record of a dataset.
func (s *Store) Dataset(ctx context.Context, id string) (chromem.Document, error) {
	return s.datasets.GetByID(ctx, id)
}

// RowCount is the number of rows stored across all datasets.
func (s *Store) RowCount() int {
	return s.rows.Count()
}

func rowMetadata(chunk models.Chunk) (map[string]string, error) {
	metadata := map[string]string{"dataset_id": chunk.DatasetID}
	for _, key := range []string{models.MetaChunkStart, models.MetaChunkEnd} {
		if v, ok := chunk.Metadata[key].(int); ok {
			metadata[key] = strconv.Itoa(v)
		}
	}
	raw, err := json.Marshal(chunk.Metadata)
	if err != nil {
		return nil, fmt.Errorf("failed to encode row metadata: %w", err)
	}
	metadata["metadata"] = string(raw)
	return metadata, nil
}
