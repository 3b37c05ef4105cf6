package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	_ "github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
	"github.com/rs/zerolog/log"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/extra/bundebug"

	"dataset-processor/internal/config"
	"dataset-processor/internal/helper"
	"dataset-processor/internal/models"
)

// ErrDatasetNotFound is returned when the dataset update matches no row.
var ErrDatasetNotFound = errors.New("dataset not found")

type Dataset struct {
	bun.BaseModel `bun:"table:datasets,alias:d"`
	ID            string          `bun:"id,pk"`
	Schema        string          `bun:"schema"`
	Tags          string          `bun:"tags"`
	Embedding     pgvector.Vector `bun:"embedding,type:vector"`
}

type DatasetRow struct {
	bun.BaseModel `bun:"table:dataset_rows,alias:r"`
	ID            string          `bun:"id,pk,type:uuid"`
	DatasetID     string          `bun:"dataset_id,notnull"`
	Content       string          `bun:"content,notnull"`
	Embedding     pgvector.Vector `bun:"embedding,type:vector"`
	Metadata      map[string]any  `bun:"metadata,type:jsonb"`
}

func NewDB(sqldb *sql.DB, debug bool) *bun.DB {
	db := bun.NewDB(sqldb, pgdialect.New())
	if debug {
		db.AddQueryHook(bundebug.NewQueryHook(bundebug.WithVerbose(true)))
	}
	return db
}

// ConnectDB opens the Supabase Postgres database with the configured driver.
func ConnectDB(cfg *config.DatabaseConfig) (*sql.DB, error) {
	dsn := withSSLMode(cfg.URL, cfg.SSLMode)
	switch cfg.Driver {
	case "postgres":
		return sql.Open("postgres", dsn)
	default:
		opts := []pgdriver.Option{pgdriver.WithDSN(dsn)}
		if cfg.Password != "" {
			opts = append(opts, pgdriver.WithPassword(cfg.Password))
		}
		return sql.OpenDB(pgdriver.NewConnector(opts...)), nil
	}
}

func withSSLMode(dsn, mode string) string {
	if mode == "" || strings.Contains(dsn, "sslmode=") {
		return dsn
	}
	if strings.Contains(dsn, "?") {
		return dsn + "&sslmode=" + mode
	}
	return dsn + "?sslmode=" + mode
}

// InitDB creates the vector extension and both tables if they are missing.
func InitDB(ctx context.Context, db *bun.DB) error {
	if _, err := db.ExecContext(ctx, "CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
		return err
	}
	if _, err := db.NewCreateTable().Model((*Dataset)(nil)).IfNotExists().Exec(ctx); err != nil {
		return err
	}
	_, err := db.NewCreateTable().Model((*DatasetRow)(nil)).IfNotExists().Exec(ctx)
	return err
}

// Store persists processed datasets to Supabase.
type Store struct {
	db *bun.DB
}

func NewStore(db *bun.DB) *Store {
	return &Store{db: db}
}

// SaveDataset updates the dataset record and upserts all of its rows in
// one transaction, so either both are written or neither is.
func (s *Store) SaveDataset(ctx context.Context, dataset *models.Dataset) error {
	record, err := toDatasetRecord(dataset)
	if err != nil {
		return err
	}
	rows := toRowRecords(dataset)

	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := UpdateDataset(ctx, tx, record); err != nil {
			return err
		}
		log.Info().Str("dataset_id", dataset.ID).Msg("Dataset update successful")

		if err := UpsertRows(ctx, tx, rows); err != nil {
			return err
		}
		log.Info().Str("dataset_id", dataset.ID).Int("rows", len(rows)).Msg("Rows successfully upserted into dataset_rows")
		return nil
	})
}

// UpdateDataset writes schema, tags and embedding of an existing dataset.
func UpdateDataset(ctx context.Context, db bun.IDB, record *Dataset) error {
	res, err := db.NewUpdate().
		Model(record).
		Column("schema", "tags", "embedding").
		WherePK().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to update dataset %s: %w", record.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update dataset %s: %w", record.ID, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrDatasetNotFound, record.ID)
	}
	return nil
}

// UpsertRows inserts rows, overwriting rows that already exist by id.
func UpsertRows(ctx context.Context, db bun.IDB, rows []DatasetRow) error {
	if len(rows) == 0 {
		return nil
	}
	_, err := db.NewInsert().
		Model(&rows).
		On("CONFLICT (id) DO UPDATE").
		Set("dataset_id = EXCLUDED.dataset_id").
		Set("content = EXCLUDED.content").
		Set("embedding = EXCLUDED.embedding").
		Set("metadata = EXCLUDED.metadata").
		Returning("NULL").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to upsert %d rows: %w", len(rows), err)
	}
	return nil
}

func toDatasetRecord(dataset *models.Dataset) (*Dataset, error) {
	schema, err := json.Marshal(dataset.Schema)
	if err != nil {
		return nil, fmt.Errorf("failed to encode schema: %w", err)
	}
	tags := dataset.Tags
	if tags == nil {
		tags = []models.Tag{}
	}
	tagsJSON, err := json.Marshal(tags)
	if err != nil {
		return nil, fmt.Errorf("failed to encode tags: %w", err)
	}
	return &Dataset{
		ID:        dataset.ID,
		Schema:    string(schema),
		Tags:      string(tagsJSON),
		Embedding: pgvector.NewVector(dataset.Embedding),
	}, nil
}

func toRowRecords(dataset *models.Dataset) []DatasetRow {
	rows := make([]DatasetRow, len(dataset.Rows))
	for i, chunk := range dataset.Rows {
		metadata := chunk.Metadata
		if metadata == nil {
			metadata = map[string]any{}
		}
		rows[i] = DatasetRow{
			ID:        helper.RowID(chunk.DatasetID, i),
			DatasetID: chunk.DatasetID,
			Content:   chunk.Content,
			Embedding: pgvector.NewVector(chunk.Embedding),
			Metadata:  metadata,
		}
	}
	return rows
}
