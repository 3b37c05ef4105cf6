package processor

import (
	"errors"
	"fmt"

	"dataset-processor/internal/embedding"
)

// Error kinds a processing run can fail with. Returned errors wrap exactly
// one of them; use errors.Is or Kind to classify.
var (
	ErrInvalidPayload      = errors.New("invalid payload")
	ErrDownload            = errors.New("download failure")
	ErrUnsupportedFileType = errors.New("unsupported file type")
	ErrParse               = errors.New("parse failure")
	ErrEmbeddingProvider   = errors.New("embedding provider failure")
	ErrEmptyDocument       = errors.New("empty document")
	ErrPersistence         = errors.New("persistence failure")
)

var kinds = []error{
	ErrInvalidPayload,
	ErrDownload,
	ErrUnsupportedFileType,
	ErrParse,
	ErrEmptyDocument,
	ErrEmbeddingProvider,
	ErrPersistence,
}

// Kind returns the error kind err wraps, or nil if it wraps none.
func Kind(err error) error {
	for _, kind := range kinds {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}

func classifyEmbedding(err error) error {
	if errors.Is(err, embedding.ErrEmptyDocument) {
		return fmt.Errorf("%w: %w", ErrEmptyDocument, err)
	}
	return fmt.Errorf("%w: %w", ErrEmbeddingProvider, err)
}
