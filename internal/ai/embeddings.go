package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/time/rate"
	"google.golang.org/api/option"

	genai "github.com/google/generative-ai-go/genai"

	"github.com/Udonwajnr/chatpdf/utils"
)

const (
	// DefaultEmbeddingModel is the Gemini model used for all embeddings.
	// Ingestion and query must use the same model or scores are meaningless.
	DefaultEmbeddingModel = "text-embedding-004"

	// maxEmbedInputBytes caps a single embedding input. Longer text is
	// truncated on a rune boundary before the API call.
	maxEmbedInputBytes = 8000
)

// Embedder turns text into a dense vector. Implementations must be
// deterministic per input for the idempotent-ingest guarantee to hold.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// GeminiEmbedder calls the Gemini embedding API behind a rate limiter
// and a circuit breaker.
type GeminiEmbedder struct {
	client      *genai.Client
	model       string
	breaker     *gobreaker.CircuitBreaker
	rateLimiter *rate.Limiter
}

// NewGeminiEmbedder builds an embedder for the given model. An empty
// model falls back to DefaultEmbeddingModel.
func NewGeminiEmbedder(ctx context.Context, apiKey, model string) (*GeminiEmbedder, error) {
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}
	if model == "" {
		model = DefaultEmbeddingModel
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "GeminiEmbeddings",
		MaxRequests: 5,
		Interval:    10 * time.Second,
		Timeout:     60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
	})

	// Free tier allows ~1500 embedding requests per minute; stay under it.
	rateLimiter := rate.NewLimiter(rate.Limit(20), 40)

	return &GeminiEmbedder{
		client:      client,
		model:       model,
		breaker:     breaker,
		rateLimiter: rateLimiter,
	}, nil
}

// Embed returns the embedding vector for text. Empty or whitespace-only
// input is an error; the caller should have filtered it out.
func (ge *GeminiEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	tracer := otel.Tracer("gemini-embedder")
	ctx, span := tracer.Start(ctx, "gemini.embed_content")
	defer span.End()

	if strings.TrimSpace(text) == "" {
		return nil, errors.New("cannot embed empty text")
	}
	text = utils.TruncateStringByBytes(text, maxEmbedInputBytes)

	span.SetAttributes(
		attribute.String("gemini.model", ge.model),
		attribute.Int("gemini.input_bytes", len(text)),
	)

	if err := ge.rateLimiter.Wait(ctx); err != nil {
		span.SetAttributes(attribute.Bool("gemini.rate_limited", true))
		return nil, err
	}

	result, err := ge.breaker.Execute(func() (interface{}, error) {
		em := ge.client.EmbeddingModel(ge.model)
		resp, err := em.EmbedContent(ctx, genai.Text(text))
		if err != nil {
			span.SetAttributes(attribute.Bool("gemini.error", true))
			return nil, err
		}
		if resp.Embedding == nil || len(resp.Embedding.Values) == 0 {
			return nil, errors.New("empty embedding in response")
		}
		return resp.Embedding.Values, nil
	})
	if err != nil {
		if err == gobreaker.ErrOpenState {
			span.SetAttributes(attribute.Bool("gemini.circuit_breaker_open", true))
		}
		return nil, err
	}

	values := result.([]float32)
	span.SetAttributes(attribute.Int("gemini.embedding_dimension", len(values)))
	return values, nil
}

// Close releases the underlying API client.
func (ge *GeminiEmbedder) Close() error {
	if ge.client != nil {
		return ge.client.Close()
	}
	return nil
}
