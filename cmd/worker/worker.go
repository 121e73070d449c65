package main

import (
	"context"
	"log"
	"time"

	"github.com/hibiken/asynq"

	"github.com/Udonwajnr/chatpdf/internal/ai"
	"github.com/Udonwajnr/chatpdf/internal/config"
	"github.com/Udonwajnr/chatpdf/internal/logger"
	"github.com/Udonwajnr/chatpdf/internal/pinecone"
	"github.com/Udonwajnr/chatpdf/internal/queue"
	"github.com/Udonwajnr/chatpdf/internal/telemetry"
	"github.com/Udonwajnr/chatpdf/services"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}
	logger.InitLogger(cfg)

	shutdownTracer, err := telemetry.InitTracer(cfg.ServiceName+"-worker", cfg.OTLPEndpoint)
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

	chunker := services.NewChunker(cfg.MaxChunkSize, cfg.ChunkOverlap, cfg.MetaTextBytes)
	ingestSvc := services.NewIngestService(storage, services.NewPDFExtractor(), chunker, embedder, index, docs, cfg.EmbedConcurrency, cfg.UpsertBatchSize)

	redisOpt := asynq.RedisClientOpt{
		Addr:     cfg.RedisURL,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}

	server := asynq.NewServer(
		redisOpt,
		asynq.Config{
			Concurrency: 20,
			Queues: map[string]int{
				"critical": 6,
				"default":  3,
				"low":      1,
			},
			StrictPriority: true,
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				logger.Error("task failed", "type", task.Type(), "error", err)
			}),
		},
	)

	processor := queue.NewTaskProcessor(ingestSvc)
	mux := asynq.NewServeMux()
	mux.HandleFunc(queue.TaskIngestDocument, processor.HandleIngest)

	// Requeue documents orphaned by a crashed worker.
	queueClient := asynq.NewClient(redisOpt)
	defer queueClient.Close()
	sweeper := services.NewStuckDocumentSweeper(docs, queueClient, queue.NewIngestTask)
	sweepCtx, cancelSweep := context.WithCancel(context.Background())
	defer cancelSweep()
	go sweeper.Run(sweepCtx)

	logger.Info("starting worker",
		"concurrency", 20,
		"redis", redisOpt.Addr)

	if err := server.Run(mux); err != nil {
		log.Fatal("Failed to start worker:", err)
	}
}
