package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/Udonwajnr/chatpdf/internal/ai"
	"github.com/Udonwajnr/chatpdf/internal/config"
	"github.com/Udonwajnr/chatpdf/internal/logger"
	"github.com/Udonwajnr/chatpdf/internal/pinecone"
	"github.com/Udonwajnr/chatpdf/internal/telemetry"
	"github.com/Udonwajnr/chatpdf/middleware"
	"github.com/Udonwajnr/chatpdf/routes"
	"github.com/Udonwajnr/chatpdf/services"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}
	logger.InitLogger(cfg)

	shutdownTracer, err := telemetry.InitTracer(cfg.ServiceName, cfg.OTLPEndpoint)
	if err != nil {
		logger.Warn("tracing disabled", "error", err)
	} else {
		defer shutdownTracer()
	}

	mongoClient, err := config.ConnectMongoDB(cfg)
	if err != nil {
		log.Fatal("Failed to connect to MongoDB:", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		mongoClient.Disconnect(ctx)
	}()
	docs := mongoClient.Database(cfg.DBName).Collection("documents")

	redisClient, err := config.NewRedisClient(cfg)
	if err != nil {
		log.Fatal("Failed to connect to Redis:", err)
	}
	defer redisClient.Close()

	storage, err := services.NewLocalStorage(cfg.FileStorageDir)
	if err != nil {
		log.Fatal("Failed to initialize storage:", err)
	}

	pineconeClient, err := pinecone.NewClient(pinecone.Config{APIKey: cfg.PineconeAPIKey})
	if err != nil {
		log.Fatal("Failed to initialize Pinecone client:", err)
	}
	index := pinecone.NewIndex(pineconeClient, cfg.PineconeIndexName, cfg.PineconeHost)

	ctx := context.Background()
	embedder, err := ai.NewGeminiEmbedder(ctx, cfg.GeminiAPIKey, cfg.EmbeddingModel)
	if err != nil {
		log.Fatal("Failed to initialize embedder:", err)
	}
	defer embedder.Close()

	chatClient, err := ai.NewChatClient(ctx, cfg.GeminiAPIKey, cfg.ChatModel)
	if err != nil {
		log.Fatal("Failed to initialize chat client:", err)
	}
	defer chatClient.Close()

	cache := services.NewContextCache(redisClient, 15*time.Minute)
	contextSvc := services.NewContextService(embedder, index, cache, cfg.TopK, float32(cfg.MinScore), cfg.ContextMaxLength)
	chunker := services.NewChunker(cfg.MaxChunkSize, cfg.ChunkOverlap, cfg.MetaTextBytes)
	ingestSvc := services.NewIngestService(storage, services.NewPDFExtractor(), chunker, embedder, index, docs, cfg.EmbedConcurrency, cfg.UpsertBatchSize)

	queueClient := asynq.NewClient(asynq.RedisClientOpt{
		Addr:     cfg.RedisURL,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	defer queueClient.Close()

	if cfg.GinMode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(otelgin.Middleware(cfg.ServiceName))

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.CORSOrigins
	corsConfig.AllowMethods = []string{"GET", "POST", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "X-Requested-With"}
	corsConfig.AllowCredentials = true
	router.Use(cors.New(corsConfig))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy", "timestamp": time.Now()})
	})

	routes.SetupDocumentRoutes(router, cfg, storage, docs, queueClient, ingestSvc, cache)
	routes.SetupChatRoutes(router, docs, contextSvc, chatClient)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		logger.Info("server starting", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	logger.Info("server exited")
}
