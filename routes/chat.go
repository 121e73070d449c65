package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/Udonwajnr/chatpdf/internal/ai"
	"github.com/Udonwajnr/chatpdf/internal/logger"
	"github.com/Udonwajnr/chatpdf/models"
	"github.com/Udonwajnr/chatpdf/services"
	"github.com/Udonwajnr/chatpdf/utils"
)

type chatRequest struct {
	FileKey string `json:"file_key" binding:"required"`
	Message string `json:"message" binding:"required"`
}

type chatResponse struct {
	Answer  string `json:"answer"`
	FileKey string `json:"file_key"`
}

// HandleChat answers a question about one document. Context retrieval
// failures degrade to an empty context rather than failing the chat:
// the model then answers that it does not know.
func HandleChat(docs *mongo.Collection, contextSvc *services.ContextService, chatClient *ai.ChatClient) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req chatRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.RespondWithBadRequest(c, "file_key and message are required", nil)
			return
		}

		var doc models.Document
		err := docs.FindOne(c.Request.Context(), bson.M{"file_key": req.FileKey}).Decode(&doc)
		if err == mongo.ErrNoDocuments {
			utils.RespondWithNotFound(c, "Document not found")
			return
		}
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to load document", nil)
			return
		}
		if doc.Status != models.StatusCompleted {
			utils.RespondWithBadRequest(c, "Document is still processing", gin.H{"status": doc.Status})
			return
		}

		contextBlock, err := contextSvc.GetContext(c.Request.Context(), req.FileKey, req.Message)
		if err != nil {
			logger.Warn("context retrieval failed, answering without context",
				"file_key", req.FileKey, "error", err)
			contextBlock = ""
		}

		answer, err := chatClient.GenerateAnswer(c.Request.Context(), req.Message, contextBlock)
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to generate answer", nil)
			return
		}

		c.JSON(http.StatusOK, chatResponse{Answer: answer, FileKey: req.FileKey})
	}
}
