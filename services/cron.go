package services

import (
	"context"
	"time"

	"github.com/hibiken/asynq"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/Udonwajnr/chatpdf/internal/logger"
	"github.com/Udonwajnr/chatpdf/models"
)

// StuckDocumentSweeper periodically requeues documents that have sat in
// the processing state too long, typically after a worker crash. Tasks
// are idempotent, so requeuing a document that is actually still being
// processed is harmless.
type StuckDocumentSweeper struct {
	docs      *mongo.Collection
	client    *asynq.Client
	newTask   func(fileKey string) (*asynq.Task, error)
	staleness time.Duration
	interval  time.Duration
}

func NewStuckDocumentSweeper(docs *mongo.Collection, client *asynq.Client, newTask func(string) (*asynq.Task, error)) *StuckDocumentSweeper {
	return &StuckDocumentSweeper{
		docs:      docs,
		client:    client,
		newTask:   newTask,
		staleness: 30 * time.Minute,
		interval:  5 * time.Minute,
	}
}

// Run sweeps on a fixed interval until ctx is cancelled.
func (sw *StuckDocumentSweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(sw.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sw.sweep(ctx)
		}
	}
}

func (sw *StuckDocumentSweeper) sweep(ctx context.Context) {
	cutoff := time.Now().Add(-sw.staleness)
	cursor, err := sw.docs.Find(ctx, bson.M{
		"status":      bson.M{"$in": []string{models.StatusPending, models.StatusProcessing}},
		"uploaded_at": bson.M{"$lt": cutoff},
	})
	if err != nil {
		logger.Error("stuck document sweep query failed", "error", err)
		return
	}
	defer cursor.Close(ctx)

	requeued := 0
	for cursor.Next(ctx) {
		var doc models.Document
		if err := cursor.Decode(&doc); err != nil {
			logger.Error("stuck document decode failed", "error", err)
			continue
		}

		task, err := sw.newTask(doc.FileKey)
		if err != nil {
			logger.Error("stuck document task build failed", "file_key", doc.FileKey, "error", err)
			continue
		}
		if _, err := sw.client.EnqueueContext(ctx, task); err != nil {
			logger.Error("stuck document requeue failed", "file_key", doc.FileKey, "error", err)
			continue
		}
		requeued++
	}

	if requeued > 0 {
		logger.Info("requeued stuck documents", "count", requeued)
	}
}
