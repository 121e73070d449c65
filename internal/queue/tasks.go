package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"github.com/Udonwajnr/chatpdf/internal/logger"
	"github.com/Udonwajnr/chatpdf/services"
)

const (
	TaskIngestDocument = "document:ingest"
)

type IngestPayload struct {
	FileKey string `json:"file_key"`
}

// NewIngestTask builds the background task that runs the full pipeline
// for one uploaded document.
func NewIngestTask(fileKey string) (*asynq.Task, error) {
	payload, err := json.Marshal(IngestPayload{FileKey: fileKey})
	if err != nil {
		return nil, err
	}

	return asynq.NewTask(
		TaskIngestDocument,
		payload,
		asynq.MaxRetry(3),
		asynq.Timeout(10*time.Minute),
		asynq.Queue("critical"),
	), nil
}

// TaskProcessor holds the handlers registered on the worker mux.
type TaskProcessor struct {
	ingest *services.IngestService
}

func NewTaskProcessor(ingest *services.IngestService) *TaskProcessor {
	return &TaskProcessor{ingest: ingest}
}

// HandleIngest runs the ingestion pipeline. Ingest upserts are keyed by
// content hash, so retries after a partial failure are safe. Download
// and extraction failures are permanent for the file and skip retry;
// embedding and upsert failures are usually transient and retry.
func (p *TaskProcessor) HandleIngest(ctx context.Context, t *asynq.Task) error {
	var payload IngestPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal ingest payload: %v: %w", err, asynq.SkipRetry)
	}
	if payload.FileKey == "" {
		return fmt.Errorf("empty file key: %w", asynq.SkipRetry)
	}

	logger.Info("ingest task started", "file_key", payload.FileKey)

	summary, err := p.ingest.Ingest(ctx, payload.FileKey)
	if err != nil {
		if errors.Is(err, services.ErrDownload) || errors.Is(err, services.ErrExtraction) {
			return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
		}
		return err
	}

	logger.Info("ingest task finished",
		"file_key", summary.FileKey,
		"namespace", summary.Namespace,
		"vectors", summary.Vectors)
	return nil
}
