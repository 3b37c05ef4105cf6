package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"dataset-processor/internal/chromemdb"
	"dataset-processor/internal/config"
	"dataset-processor/internal/db"
	"dataset-processor/internal/download"
	"dataset-processor/internal/embedding"
	"dataset-processor/internal/helper"
	"dataset-processor/internal/models"
	"dataset-processor/internal/processor"
)

// Exit codes.
const (
	exitOK = iota
	exitUsage
	exitFailure
	exitDownload
	exitUnsupported
	exitEmbedding
	exitPersistence
	exitEmptyDocument
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).With().Caller().Logger()

	os.Exit(run(context.Background(), os.Args[1:], os.Stderr))
}

func run(ctx context.Context, args []string, stderr io.Writer) int {
	fs := flag.NewFlagSet("dataset-processor", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", config.DefaultConfigPath, "Path to the config file")
	initDB := fs.Bool("init-db", false, "Create the datasets tables before processing")
	dryRun := fs.Bool("dry-run", false, "Dry run, print the result instead of saving it")
	fs.Usage = func() {
		fmt.Fprintln(stderr, "Usage: dataset-processor [-config path] [-init-db] [-dry-run] <payload.json>")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return exitUsage
	}

	payload, err := readPayload(fs.Arg(0))
	if err != nil {
		log.Error().Err(err).Str("file", fs.Arg(0)).Msg("Error reading payload")
		return exitUsage
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Error().Err(err).Msg("Error loading config")
		return exitUsage
	}
	if level, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(level)
	}

	embedder, err := embedding.NewEmbedder(&cfg.EmbedLLM, cfg.Pipeline.BatchSize)
	if err != nil {
		log.Error().Err(err).Msg("Error initializing embedder")
		return exitFailure
	}

	store, closeStore, err := openStore(ctx, cfg, *initDB, *dryRun)
	if err != nil {
		log.Error().Err(err).Str("backend", cfg.Storage.Backend).Msg("Error opening store")
		return exitPersistence
	}
	defer closeStore()

	fetcher := download.NewFetcher(cfg.Download.StagingDir, time.Duration(cfg.Download.TimeoutSeconds)*time.Second)

	var opts []processor.Option
	if counter, err := embedding.NewTiktokenCounter(); err != nil {
		log.Warn().Err(err).Msg("Tokenizer unavailable, counting words instead")
	} else {
		opts = append(opts, processor.WithTokenCounter(counter))
	}

	result, err := processor.New(fetcher, embedder, store, cfg.Pipeline, opts...).Process(ctx, payload)
	if err != nil {
		log.Error().Err(err).Str("dataset_id", payload.ID).Str("kind", kindName(err)).Msg("Error processing dataset")
		return exitCode(err)
	}

	log.Info().Str("dataset_id", result.DatasetID).Str("file_type", result.FileType).
		Int("chunks", result.Chunks).Int("dimension", result.Dimension).Msg("Done")
	return exitOK
}

func readPayload(path string) (models.Payload, error) {
	var payload models.Payload
	data, err := os.ReadFile(path)
	if err != nil {
		return payload, err
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return payload, fmt.Errorf("malformed payload: %w", err)
	}
	return payload, nil
}

// openStore returns the sink selected by configuration and a func that
// releases it.
func openStore(ctx context.Context, cfg *config.Config, initDB, dryRun bool) (processor.Store, func(), error) {
	if dryRun {
		return printStore{}, func() {}, nil
	}

	switch cfg.Storage.Backend {
	case config.BackendChromem:
		if err := helper.CreateFolder(cfg.Storage.ChromemPath); err != nil {
			return nil, nil, err
		}
		store, err := chromemdb.NewStore(cfg.Storage.ChromemPath, false)
		if err != nil {
			return nil, nil, err
		}
		return store, func() {}, nil
	default:
		sqldb, err := db.ConnectDB(&cfg.Database)
		if err != nil {
			return nil, nil, err
		}
		bunDB := db.NewDB(sqldb, cfg.Database.Debug)
		if initDB {
			if err := db.InitDB(ctx, bunDB); err != nil {
				bunDB.Close()
				return nil, nil, fmt.Errorf("failed to initialize database: %w", err)
			}
		}
		return db.NewStore(bunDB), func() { bunDB.Close() }, nil
	}
}

// printStore prints a summary of the dataset instead of saving it.
type printStore struct{}

func (printStore) SaveDataset(_ context.Context, dataset *models.Dataset) error {
	helper.PrettyPrint(datasetSummary(dataset))
	return nil
}

type summary struct {
	ID        string         `json:"id"`
	Schema    *models.Schema `json:"schema"`
	Tags      []models.Tag   `json:"tags"`
	Dimension int            `json:"dimension"`
	Rows      []rowSummary   `json:"rows"`
}

type rowSummary struct {
	ID       string         `json:"id"`
	Metadata map[string]any `json:"metadata"`
	Preview  string         `json:"preview"`
}

const previewLength = 80

func datasetSummary(dataset *models.Dataset) summary {
	s := summary{
		ID:        dataset.ID,
		Schema:    dataset.Schema,
		Tags:      dataset.Tags,
		Dimension: len(dataset.Embedding),
		Rows:      make([]rowSummary, len(dataset.Rows)),
	}
	for i, row := range dataset.Rows {
		preview := []rune(row.Content)
		if len(preview) > previewLength {
			preview = append(preview[:previewLength], '…')
		}
		s.Rows[i] = rowSummary{
			ID:       helper.RowID(dataset.ID, i),
			Metadata: row.Metadata,
			Preview:  string(preview),
		}
	}
	return s
}

func exitCode(err error) int {
	if err == nil {
		return exitOK
	}
	switch processor.Kind(err) {
	case processor.ErrInvalidPayload:
		return exitUsage
	case processor.ErrDownload:
		return exitDownload
	case processor.ErrUnsupportedFileType:
		return exitUnsupported
	case processor.ErrEmbeddingProvider:
		return exitEmbedding
	case processor.ErrPersistence:
		return exitPersistence
	case processor.ErrEmptyDocument:
		return exitEmptyDocument
	default:
		return exitFailure
	}
}

func kindName(err error) string {
	if kind := processor.Kind(err); kind != nil {
		return kind.Error()
	}
	if errors.Is(err, context.Canceled) {
		return "canceled"
	}
	return "unknown"
}
