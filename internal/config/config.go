package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	MongoURI string
	DBName   string
	Port     string
	GinMode  string

	CORSOrigins []string

	MaxFileSize    int64
	FileStorageDir string

	// Redis Configuration
	RedisURL      string
	RedisPassword string
	RedisDB       int

	// Gemini Configuration
	GeminiAPIKey   string
	EmbeddingModel string
	ChatModel      string

	// Pinecone Configuration
	PineconeAPIKey    string
	PineconeIndexName string
	PineconeHost      string // optional; resolved via the control plane when empty

	// Chunking
	MaxChunkSize  int
	ChunkOverlap  int
	MetaTextBytes int

	// Retrieval
	TopK             int
	MinScore         float64
	ContextMaxLength int

	// Pipeline tuning
	EmbedConcurrency int
	UpsertBatchSize  int

	// Telemetry
	OTLPEndpoint string
	ServiceName  string
}

func LoadConfig() (*Config, error) {
	// Load .env file if exists
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			return nil, fmt.Errorf("error loading .env file: %v", err)
		}
	}

	cfg := &Config{
		MongoURI: getEnv("MONGO_URI", "mongodb://localhost:27017/chatpdf"),
		DBName:   getEnv("DB_NAME", "chatpdf"),
		Port:     getEnv("PORT", "8080"),
		GinMode:  getEnv("GIN_MODE", "debug"),

		CORSOrigins: strings.Split(getEnv("CORS_ORIGINS", "http://localhost:3000"), ","),

		MaxFileSize:    getEnvInt64("MAX_FILE_SIZE", 104857600), // 100MB
		FileStorageDir: getEnv("FILE_STORAGE_DIR", "./storage"),

		RedisURL:      getEnv("REDIS_URL", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		GeminiAPIKey:   getEnv("GEMINI_API_KEY", ""),
		EmbeddingModel: getEnv("EMBEDDING_MODEL", "text-embedding-004"),
		ChatModel:      getEnv("CHAT_MODEL", "gemini-2.0-flash"),

		PineconeAPIKey:    getEnv("PINECONE_API_KEY", ""),
		PineconeIndexName: getEnv("PINECONE_INDEX_NAME", "chatpdf"),
		PineconeHost:      getEnv("PINECONE_HOST", ""),

		MaxChunkSize:  getEnvInt("MAX_CHUNK_SIZE", 1000),
		ChunkOverlap:  getEnvInt("CHUNK_OVERLAP", 200),
		MetaTextBytes: getEnvInt("META_TEXT_BYTES", 36000),

		TopK:             getEnvInt("RETRIEVAL_TOP_K", 10),
		MinScore:         getEnvFloat64("RETRIEVAL_MIN_SCORE", 0.7),
		ContextMaxLength: getEnvInt("CONTEXT_MAX_LENGTH", 3000),

		EmbedConcurrency: getEnvInt("EMBED_CONCURRENCY", 8),
		UpsertBatchSize:  getEnvInt("UPSERT_BATCH_SIZE", 100),

		OTLPEndpoint: getEnv("OTLP_ENDPOINT", ""),
		ServiceName:  getEnv("SERVICE_NAME", "chatpdf"),
	}

	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is required - set it in .env file")
	}
	if cfg.PineconeAPIKey == "" {
		return nil, fmt.Errorf("PINECONE_API_KEY is required - set it in .env file")
	}
	if cfg.ChunkOverlap >= cfg.MaxChunkSize {
		return nil, fmt.Errorf("CHUNK_OVERLAP (%d) must be smaller than MAX_CHUNK_SIZE (%d)", cfg.ChunkOverlap, cfg.MaxChunkSize)
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloat64(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}
