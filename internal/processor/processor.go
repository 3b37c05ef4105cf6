// Package processor turns a dataset source file into embedded rows and a
// dataset-level embedding, and hands both to a store.
package processor

import (
	"context"
	"fmt"
	"net/url"
	"path"
	"strings"

	"github.com/rs/zerolog/log"

	"dataset-processor/internal/chunker"
	"dataset-processor/internal/config"
	"dataset-processor/internal/embedding"
	"dataset-processor/internal/models"
	"dataset-processor/internal/parser"
)

// Fetcher stages the file behind a URI locally and returns its path.
type Fetcher interface {
	Fetch(ctx context.Context, uri string) (string, error)
}

// Store persists a processed dataset. Implementations write the dataset
// record and its rows together or not at all.
type Store interface {
	SaveDataset(ctx context.Context, dataset *models.Dataset) error
}

// Result summarizes a successful run.
type Result struct {
	DatasetID string
	FileType  string
	Chunks    int
	Dimension int
}

type Processor struct {
	fetcher  Fetcher
	embedder embedding.Embedder
	store    Store
	cfg      config.PipelineConfig
	counter  embedding.TokenCounter
	sleep    embedding.Sleeper
}

type Option func(*Processor)

// WithTokenCounter sets the counter used to enforce the per-chunk token
// budget on unbatched documents.
func WithTokenCounter(counter embedding.TokenCounter) Option {
	return func(p *Processor) { p.counter = counter }
}

// WithSleeper replaces the rate-limit pause.
func WithSleeper(sleep embedding.Sleeper) Option {
	return func(p *Processor) { p.sleep = sleep }
}

func New(fetcher Fetcher, embedder embedding.Embedder, store Store, cfg config.PipelineConfig, opts ...Option) *Processor {
	cfg.ApplyDefaults()
	p := &Processor{
		fetcher:  fetcher,
		embedder: embedder,
		store:    store,
		cfg:      cfg,
		counter:  embedding.WordCounter{},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Process runs the whole pipeline for one dataset. Nothing is persisted
// unless every stage succeeds.
func (p *Processor) Process(ctx context.Context, payload models.Payload) (*Result, error) {
	if payload.ID == "" || payload.URI == "" {
		return nil, fmt.Errorf("%w: id and URI are required", ErrInvalidPayload)
	}
	logger := log.With().Str("dataset_id", payload.ID).Logger()
	logger.Info().Str("uri", payload.URI).Msg("Processing dataset")

	ext := FileType(payload.URI)
	if !Supported(ext) {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFileType, ext)
	}

	filePath, err := p.fetcher.Fetch(ctx, payload.URI)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDownload, err)
	}

	var dataset *models.Dataset
	switch ext {
	case models.ExtCSV:
		dataset, err = p.processCSV(ctx, payload.ID, filePath)
	case models.ExtXLS, models.ExtXLSX:
		dataset, err = p.processSpreadsheet(ctx, payload.ID, filePath)
	case models.ExtPDF:
		dataset, err = p.processPDF(ctx, payload.ID, filePath)
	case models.ExtMD, models.ExtTXT:
		dataset, err = p.processText(ctx, payload.ID, filePath, ext == models.ExtMD)
	}
	if err != nil {
		return nil, err
	}

	vectors := make([][]float32, len(dataset.Rows))
	for i, row := range dataset.Rows {
		vectors[i] = row.Embedding
	}
	dataset.Embedding, err = embedding.Aggregate(vectors)
	if err != nil {
		return nil, classifyEmbedding(err)
	}
	logger.Info().Int("chunks", len(dataset.Rows)).Int("dimension", len(dataset.Embedding)).Msg("Aggregated dataset embedding")

	if err := p.store.SaveDataset(ctx, dataset); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	logger.Info().Msg("Successfully processed dataset")

	return &Result{
		DatasetID: payload.ID,
		FileType:  ext,
		Chunks:    len(dataset.Rows),
		Dimension: len(dataset.Embedding),
	}, nil
}

// FileType returns the lower-cased extension of the file a URI points to.
func FileType(uri string) string {
	p := uri
	if u, err := url.Parse(uri); err == nil && u.Path != "" {
		p = u.Path
	}
	return strings.ToLower(path.Ext(p))
}

func Supported(ext string) bool {
	switch ext {
	case models.ExtCSV, models.ExtPDF, models.ExtMD, models.ExtTXT, models.ExtXLS, models.ExtXLSX:
		return true
	}
	return false
}

func (p *Processor) batcher() *embedding.Batcher {
	opts := []embedding.BatcherOption{embedding.WithDimension(p.cfg.Dimension)}
	if p.sleep != nil {
		opts = append(opts, embedding.WithSleeper(p.sleep))
	}
	return embedding.NewBatcher(p.embedder, p.cfg.BatchSize, p.cfg.TPMLimit, opts...)
}

func (p *Processor) single() *embedding.SingleEmbedder {
	return embedding.NewSingleEmbedder(p.embedder, p.counter, p.cfg.MaxTokens, p.cfg.Dimension)
}

func (p *Processor) processCSV(ctx context.Context, datasetID, filePath string) (*models.Dataset, error) {
	table, err := parser.ParseCSV(filePath)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrParse, err)
	}

	chunks := chunker.TableChunks(datasetID, table, p.cfg.TableChunkSize, 0)
	if err := embedChunks(ctx, p.batcher(), chunks); err != nil {
		return nil, err
	}

	return &models.Dataset{
		ID:     datasetID,
		Schema: parser.InferSchema(table),
		Tags:   parser.ColumnTags(table.Columns),
		Rows:   chunks,
	}, nil
}

// processSpreadsheet embeds the workbook page by page and accumulates rows
// and schema across every page.
func (p *Processor) processSpreadsheet(ctx context.Context, datasetID, filePath string) (*models.Dataset, error) {
	dataset := &models.Dataset{ID: datasetID}
	batcher := p.batcher()

	var columns []string
	err := parser.SpreadsheetPages(filePath, p.cfg.PageSize, func(page models.Table, offset int) error {
		chunks := chunker.TableChunks(datasetID, page, p.cfg.TableChunkSize, offset)
		if err := embedChunks(ctx, batcher, chunks); err != nil {
			return err
		}
		dataset.Rows = append(dataset.Rows, chunks...)
		dataset.Schema = parser.MergeSchema(dataset.Schema, parser.InferSchema(page))
		columns = page.Columns
		return nil
	})
	if err != nil {
		if Kind(err) == nil {
			return nil, fmt.Errorf("%w: %w", ErrParse, err)
		}
		return nil, err
	}

	dataset.Tags = parser.ColumnTags(columns)
	return dataset, nil
}

func (p *Processor) processPDF(ctx context.Context, datasetID, filePath string) (*models.Dataset, error) {
	content, err := parser.ParsePDF(filePath)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrParse, err)
	}
	return p.processUnstructured(ctx, datasetID, content, []models.Tag{})
}

func (p *Processor) processText(ctx context.Context, datasetID, filePath string, markdown bool) (*models.Dataset, error) {
	content, err := parser.ParseText(filePath)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrParse, err)
	}
	tags := []models.Tag{}
	if markdown {
		tags = parser.HeadingTags(content)
	}
	return p.processUnstructured(ctx, datasetID, content, tags)
}

func (p *Processor) processUnstructured(ctx context.Context, datasetID, content string, tags []models.Tag) (*models.Dataset, error) {
	chunks := chunker.TextChunks(datasetID, content, p.cfg.TextChunkSize)
	if err := embedChunks(ctx, p.single(), chunks); err != nil {
		return nil, err
	}
	return &models.Dataset{ID: datasetID, Tags: tags, Rows: chunks}, nil
}

func embedChunks(ctx context.Context, embedder embedding.ChunkEmbedder, chunks []models.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	log.Debug().Int("chunks", len(chunks)).Msg("Generating embeddings")
	if _, err := embedder.Embed(ctx, chunks); err != nil {
		return classifyEmbedding(err)
	}
	return nil
}
