package routes

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/Udonwajnr/chatpdf/internal/config"
	"github.com/Udonwajnr/chatpdf/internal/logger"
	"github.com/Udonwajnr/chatpdf/internal/queue"
	"github.com/Udonwajnr/chatpdf/models"
	"github.com/Udonwajnr/chatpdf/services"
	"github.com/Udonwajnr/chatpdf/utils"
)

// HandleUpload accepts a PDF upload, stores it, records the document
// and queues the ingestion task. Responds 202: processing is async.
func HandleUpload(cfg *config.Config, storage services.ObjectStorage, docs *mongo.Collection, queueClient *asynq.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := c.Request.ParseMultipartForm(cfg.MaxFileSize); err != nil {
			utils.RespondWithBadRequest(c, "File size exceeds maximum limit", nil)
			return
		}

		file, header, err := c.Request.FormFile("pdf")
		if err != nil {
			utils.RespondWithBadRequest(c, "No PDF file provided", nil)
			return
		}
		defer file.Close()

		ct := header.Header.Get("Content-Type")
		if !strings.Contains(ct, "pdf") && !strings.HasSuffix(strings.ToLower(header.Filename), ".pdf") {
			utils.RespondWithBadRequest(c, "Only PDF files are allowed", nil)
			return
		}
		if header.Size > cfg.MaxFileSize {
			utils.RespondWithBadRequest(c, "File size exceeds maximum limit", nil)
			return
		}

		fileKey, filePath, fileHash, size, err := storage.Store(header.Filename, file)
		if err != nil {
			utils.RespondWithBadRequest(c, "File does not appear to be a valid PDF", gin.H{"detail": err.Error()})
			return
		}

		// Same content already ingested: point the caller at the
		// existing document instead of reprocessing.
		var existing models.Document
		err = docs.FindOne(c.Request.Context(), bson.M{
			"file_hash": fileHash,
			"status":    bson.M{"$ne": models.StatusFailed},
		}).Decode(&existing)
		if err == nil {
			c.JSON(http.StatusOK, models.UploadResponse{
				FileKey: existing.FileKey,
				Status:  existing.Status,
				Message: "Document already uploaded",
			})
			return
		}

		doc := models.Document{
			FileKey:      fileKey,
			OriginalName: header.Filename,
			FilePath:     filePath,
			FileHash:     fileHash,
			Status:       models.StatusPending,
			UploadedAt:   time.Now(),
			Metadata:     models.DocumentMetadata{Size: size},
		}
		if _, err := docs.InsertOne(c.Request.Context(), doc); err != nil {
			utils.RespondWithInternalError(c, "Failed to record document", nil)
			return
		}

		task, err := queue.NewIngestTask(fileKey)
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to build ingestion task", nil)
			return
		}
		if _, err := queueClient.EnqueueContext(c.Request.Context(), task); err != nil {
			logger.Error("failed to enqueue ingest task", "file_key", fileKey, "error", err)
			utils.RespondWithInternalError(c, "Failed to queue document for processing", nil)
			return
		}

		c.JSON(http.StatusAccepted, models.UploadResponse{
			FileKey: fileKey,
			Status:  models.StatusPending,
			Message: "Document queued for processing",
		})
	}
}

// HandleDocumentStatus reports the processing state of a document.
func HandleDocumentStatus(docs *mongo.Collection) gin.HandlerFunc {
	return func(c *gin.Context) {
		fileKey := c.Param("fileKey")

		var doc models.Document
		err := docs.FindOne(c.Request.Context(), bson.M{"file_key": fileKey}).Decode(&doc)
		if err == mongo.ErrNoDocuments {
			utils.RespondWithNotFound(c, "Document not found")
			return
		}
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to load document", nil)
			return
		}

		c.JSON(http.StatusOK, doc)
	}
}

// HandleDeleteDocument removes the document record and every vector in
// its namespace.
func HandleDeleteDocument(docs *mongo.Collection, ingest *services.IngestService, cache *services.ContextCache) gin.HandlerFunc {
	return func(c *gin.Context) {
		fileKey := c.Param("fileKey")

		var doc models.Document
		err := docs.FindOne(c.Request.Context(), bson.M{"file_key": fileKey}).Decode(&doc)
		if err == mongo.ErrNoDocuments {
			utils.RespondWithNotFound(c, "Document not found")
			return
		}
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to load document", nil)
			return
		}

		if err := ingest.DeleteDocument(c.Request.Context(), fileKey); err != nil {
			logger.Error("failed to delete vectors", "file_key", fileKey, "error", err)
			utils.RespondWithInternalError(c, "Failed to delete document vectors", nil)
			return
		}
		if cache != nil {
			cache.InvalidateNamespace(c.Request.Context(), utils.DeriveNamespace(fileKey))
		}

		if _, err := docs.DeleteOne(c.Request.Context(), bson.M{"file_key": fileKey}); err != nil {
			utils.RespondWithInternalError(c, "Failed to delete document record", nil)
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "Document deleted", "file_key": fileKey})
	}
}
