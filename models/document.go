package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Document lifecycle states.
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// Document is the ingestion record stored in MongoDB. One record per
// uploaded file; Status and Progress track the background pipeline.
type Document struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	FileKey      string             `bson:"file_key" json:"file_key"`
	OriginalName string             `bson:"original_name" json:"original_name"`
	FilePath     string             `bson:"file_path" json:"-"`
	FileHash     string             `bson:"file_hash" json:"file_hash"`
	Status       string             `bson:"status" json:"status"`
	Progress     int                `bson:"progress" json:"progress"`
	ErrorMessage string             `bson:"error_message,omitempty" json:"error_message,omitempty"`
	UploadedAt   time.Time          `bson:"uploaded_at" json:"uploaded_at"`
	ProcessedAt  *time.Time         `bson:"processed_at,omitempty" json:"processed_at,omitempty"`
	Metadata     DocumentMetadata   `bson:"metadata" json:"metadata"`
}

// DocumentMetadata holds pipeline statistics filled in as processing runs.
type DocumentMetadata struct {
	Size             int64   `bson:"size" json:"size"`
	Pages            int     `bson:"pages" json:"pages"`
	ChunkCount       int     `bson:"chunk_count" json:"chunk_count"`
	VectorCount      int     `bson:"vector_count" json:"vector_count"`
	ProcessingTimeMs int64   `bson:"processing_time_ms" json:"processing_time_ms"`
	ExtractionMethod string  `bson:"extraction_method,omitempty" json:"extraction_method,omitempty"`
	QualityScore     float64 `bson:"quality_score,omitempty" json:"quality_score,omitempty"`
}

// Page is a single page of extracted text. Number is 1-based.
type Page struct {
	Number int
	Text   string
}

// Chunk is one embeddable slice of a page. Text is what gets embedded;
// MetaText is the (possibly truncated) copy stored as vector metadata.
// StartIndex and EndIndex are byte offsets into the page's normalized
// text, so [StartIndex, EndIndex) reconstructs Text.
type Chunk struct {
	Hash       string
	PageNumber int
	Text       string
	MetaText   string
	StartIndex int
	EndIndex   int
}

// IngestSummary reports what an ingestion run produced.
type IngestSummary struct {
	FileKey   string        `json:"file_key"`
	Namespace string        `json:"namespace"`
	Pages     int           `json:"pages"`
	Chunks    int           `json:"chunks"`
	Vectors   int           `json:"vectors"`
	Elapsed   time.Duration `json:"-"`
}

// UploadResponse is returned by the upload endpoint once the document
// is stored and queued.
type UploadResponse struct {
	FileKey string `json:"file_key"`
	Status  string `json:"status"`
	Message string `json:"message"`
}
