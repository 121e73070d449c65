package services

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/Udonwajnr/chatpdf/internal/ai"
	"github.com/Udonwajnr/chatpdf/internal/logger"
	"github.com/Udonwajnr/chatpdf/internal/pinecone"
	"github.com/Udonwajnr/chatpdf/models"
	"github.com/Udonwajnr/chatpdf/utils"
)

// VectorIndex is the slice of the vector database the ingest and
// context services need.
type VectorIndex interface {
	Upsert(ctx context.Context, namespace string, vectors []pinecone.Vector) (int, error)
	Query(ctx context.Context, namespace string, vector []float32, topK int) ([]pinecone.Match, error)
	DeleteNamespace(ctx context.Context, namespace string) error
}

// IngestService runs the full pipeline for one document: fetch the PDF,
// extract pages, chunk, embed, and upsert into the document's own index
// namespace. Vector IDs are content hashes, so re-running a partially
// completed ingestion converges on the same index state.
type IngestService struct {
	storage   ObjectStorage
	extractor PageExtractor
	chunker   *Chunker
	embedder  ai.Embedder
	index     VectorIndex
	docs      *mongo.Collection // nil disables status tracking

	embedConcurrency int
	upsertBatchSize  int
}

func NewIngestService(
	storage ObjectStorage,
	extractor PageExtractor,
	chunker *Chunker,
	embedder ai.Embedder,
	index VectorIndex,
	docs *mongo.Collection,
	embedConcurrency, upsertBatchSize int,
) *IngestService {
	if embedConcurrency <= 0 {
		embedConcurrency = 8
	}
	if upsertBatchSize <= 0 {
		upsertBatchSize = 100
	}
	return &IngestService{
		storage:          storage,
		extractor:        extractor,
		chunker:          chunker,
		embedder:         embedder,
		index:            index,
		docs:             docs,
		embedConcurrency: embedConcurrency,
		upsertBatchSize:  upsertBatchSize,
	}
}

// Ingest processes the document identified by fileKey end to end. A
// document with no extractable text succeeds with zero vectors.
func (s *IngestService) Ingest(ctx context.Context, fileKey string) (*models.IngestSummary, error) {
	tracer := otel.Tracer("ingest-service")
	ctx, span := tracer.Start(ctx, "ingest.document")
	defer span.End()
	span.SetAttributes(attribute.String("ingest.file_key", fileKey))

	start := time.Now()
	namespace := utils.DeriveNamespace(fileKey)
	s.updateStatus(ctx, fileKey, models.StatusProcessing, 10, "")

	content, err := s.storage.Fetch(fileKey)
	if err != nil {
		err = fmt.Errorf("%w: %s: %v", ErrDownload, fileKey, err)
		s.failDocument(ctx, fileKey, err)
		return nil, err
	}

	extraction, err := s.extractor.ExtractPages(ctx, content)
	if err != nil {
		err = fmt.Errorf("%w: %s: %v", ErrExtraction, fileKey, err)
		s.failDocument(ctx, fileKey, err)
		return nil, err
	}
	s.updateStatus(ctx, fileKey, models.StatusProcessing, 40, "")

	chunks := s.chunker.ChunkPages(extraction.Pages)
	span.SetAttributes(
		attribute.Int("ingest.pages", len(extraction.Pages)),
		attribute.Int("ingest.chunks", len(chunks)),
		attribute.String("ingest.extraction_method", extraction.Method),
	)

	summary := &models.IngestSummary{
		FileKey:   fileKey,
		Namespace: namespace,
		Pages:     len(extraction.Pages),
		Chunks:    len(chunks),
	}

	if len(chunks) == 0 {
		logger.Warn("document produced no chunks", "file_key", fileKey)
		summary.Elapsed = time.Since(start)
		s.completeDocument(ctx, fileKey, summary, extraction)
		return summary, nil
	}

	vectors, err := s.embedChunks(ctx, chunks)
	if err != nil {
		s.failDocument(ctx, fileKey, err)
		return nil, err
	}
	s.updateStatus(ctx, fileKey, models.StatusProcessing, 70, "")

	upserted, err := s.upsertBatches(ctx, namespace, vectors)
	if err != nil {
		s.failDocument(ctx, fileKey, err)
		return nil, err
	}

	summary.Vectors = upserted
	summary.Elapsed = time.Since(start)
	s.completeDocument(ctx, fileKey, summary, extraction)

	logger.Info("document ingested",
		"file_key", fileKey,
		"namespace", namespace,
		"pages", summary.Pages,
		"chunks", summary.Chunks,
		"vectors", summary.Vectors,
		"elapsed_ms", summary.Elapsed.Milliseconds())
	return summary, nil
}

// embedChunks embeds all chunks with bounded concurrency, preserving
// chunk order in the returned vectors.
func (s *IngestService) embedChunks(ctx context.Context, chunks []models.Chunk) ([]pinecone.Vector, error) {
	vectors := make([]pinecone.Vector, len(chunks))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.embedConcurrency)

	for i, ch := range chunks {
		g.Go(func() error {
			values, err := s.embedder.Embed(gctx, ch.Text)
			if err != nil {
				return fmt.Errorf("%w: chunk %s (page %d): %v", ErrEmbedding, ch.Hash, ch.PageNumber, err)
			}
			vectors[i] = pinecone.Vector{
				ID:     ch.Hash,
				Values: values,
				Metadata: map[string]interface{}{
					"text":       ch.MetaText,
					"pageNumber": ch.PageNumber,
				},
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return vectors, nil
}

func (s *IngestService) upsertBatches(ctx context.Context, namespace string, vectors []pinecone.Vector) (int, error) {
	total := 0
	for i := 0; i < len(vectors); i += s.upsertBatchSize {
		end := i + s.upsertBatchSize
		if end > len(vectors) {
			end = len(vectors)
		}
		count, err := s.index.Upsert(ctx, namespace, vectors[i:end])
		if err != nil {
			return total, fmt.Errorf("%w: vectors %d-%d of %d: %v", ErrUpsert, i, end-1, len(vectors), err)
		}
		total += count
	}
	return total, nil
}

// DeleteDocument removes every vector in the document's namespace.
func (s *IngestService) DeleteDocument(ctx context.Context, fileKey string) error {
	return s.index.DeleteNamespace(ctx, utils.DeriveNamespace(fileKey))
}

func (s *IngestService) updateStatus(ctx context.Context, fileKey, status string, progress int, errMsg string) {
	if s.docs == nil {
		return
	}
	update := bson.M{"status": status, "progress": progress}
	if errMsg != "" {
		update["error_message"] = errMsg
	}
	_, err := s.docs.UpdateOne(ctx, bson.M{"file_key": fileKey}, bson.M{"$set": update})
	if err != nil {
		logger.Error("failed to update document status", "file_key", fileKey, "error", err)
	}
}

func (s *IngestService) failDocument(ctx context.Context, fileKey string, cause error) {
	logger.Error("document ingestion failed", "file_key", fileKey, "error", cause)
	s.updateStatus(ctx, fileKey, models.StatusFailed, 0, cause.Error())
}

func (s *IngestService) completeDocument(ctx context.Context, fileKey string, summary *models.IngestSummary, extraction *ExtractionResult) {
	if s.docs == nil {
		return
	}
	now := time.Now()
	_, err := s.docs.UpdateOne(ctx,
		bson.M{"file_key": fileKey},
		bson.M{"$set": bson.M{
			"status":                       models.StatusCompleted,
			"progress":                     100,
			"error_message":                "",
			"processed_at":                 now,
			"metadata.pages":               summary.Pages,
			"metadata.chunk_count":         summary.Chunks,
			"metadata.vector_count":        summary.Vectors,
			"metadata.processing_time_ms":  summary.Elapsed.Milliseconds(),
			"metadata.extraction_method":   extraction.Method,
			"metadata.quality_score":       extraction.QualityScore,
		}},
	)
	if err != nil {
		logger.Error("failed to mark document completed", "file_key", fileKey, "error", err)
	}
}
