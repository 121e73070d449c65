package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/Udonwajnr/chatpdf/internal/ai"
	"github.com/Udonwajnr/chatpdf/internal/config"
	"github.com/Udonwajnr/chatpdf/services"
)

// SetupDocumentRoutes registers the document lifecycle endpoints.
func SetupDocumentRoutes(router *gin.Engine, cfg *config.Config, storage services.ObjectStorage, docs *mongo.Collection, queueClient *asynq.Client, ingest *services.IngestService, cache *services.ContextCache) {
	api := router.Group("/api")
	{
		api.POST("/documents", HandleUpload(cfg, storage, docs, queueClient))
		api.GET("/documents/:fileKey", HandleDocumentStatus(docs))
		api.DELETE("/documents/:fileKey", HandleDeleteDocument(docs, ingest, cache))
	}
}

// SetupChatRoutes registers the chat endpoint.
func SetupChatRoutes(router *gin.Engine, docs *mongo.Collection, contextSvc *services.ContextService, chatClient *ai.ChatClient) {
	api := router.Group("/api")
	{
		api.POST("/chat", HandleChat(docs, contextSvc, chatClient))
	}
}
