package ai

import (
	"context"
	"fmt"
	"time"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/time/rate"
	"google.golang.org/api/option"

	genai "github.com/google/generative-ai-go/genai"
)

// DefaultChatModel answers grounded questions over retrieved context.
const DefaultChatModel = "gemini-2.0-flash"

const systemPrompt = `You are a helpful assistant answering questions about a PDF document.
The CONTEXT BLOCK below contains excerpts from the document; each line starts with the page it came from.
Use only the CONTEXT BLOCK to answer. If the answer is not in the context, say "I'm sorry, but I don't know the answer to that question."
Do not invent information that is not drawn directly from the context.`

// ChatClient generates answers with the Gemini chat API, grounded on a
// context string assembled from vector search results.
type ChatClient struct {
	client      *genai.Client
	model       string
	breaker     *gobreaker.CircuitBreaker
	rateLimiter *rate.Limiter
}

func NewChatClient(ctx context.Context, apiKey, model string) (*ChatClient, error) {
	if model == "" {
		model = DefaultChatModel
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "GeminiChat",
		MaxRequests: 5,
		Interval:    10 * time.Second,
		Timeout:     60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
	})

	return &ChatClient{
		client:      client,
		model:       model,
		breaker:     breaker,
		rateLimiter: rate.NewLimiter(rate.Limit(0.15), 3),
	}, nil
}

// GenerateAnswer answers question using contextBlock as the only source
// of document knowledge. An empty contextBlock is allowed; the model
// then answers that it does not know.
func (cc *ChatClient) GenerateAnswer(ctx context.Context, question, contextBlock string) (string, error) {
	tracer := otel.Tracer("gemini-chat")
	ctx, span := tracer.Start(ctx, "gemini.generate_answer")
	defer span.End()

	span.SetAttributes(
		attribute.String("gemini.model", cc.model),
		attribute.Int("gemini.context_bytes", len(contextBlock)),
	)

	if err := cc.rateLimiter.Wait(ctx); err != nil {
		span.SetAttributes(attribute.Bool("gemini.rate_limited", true))
		return "", err
	}

	prompt := fmt.Sprintf("%s\n\nSTART CONTEXT BLOCK\n%s\nEND OF CONTEXT BLOCK\n\nQuestion: %s", systemPrompt, contextBlock, question)

	result, err := cc.breaker.Execute(func() (interface{}, error) {
		model := cc.client.GenerativeModel(cc.model)
		model.SetTemperature(0.3)
		model.SetMaxOutputTokens(2048)

		resp, err := model.GenerateContent(ctx, genai.Text(prompt))
		if err != nil {
			span.SetAttributes(attribute.Bool("gemini.error", true))
			return nil, err
		}
		return flattenResponse(resp), nil
	})
	if err != nil {
		if err == gobreaker.ErrOpenState {
			span.SetAttributes(attribute.Bool("gemini.circuit_breaker_open", true))
			return "I'm experiencing high demand right now. Please try again in a moment.", nil
		}
		return "", err
	}

	answer := result.(string)
	span.SetAttributes(attribute.Int("gemini.answer_bytes", len(answer)))
	return answer, nil
}

func flattenResponse(resp *genai.GenerateContentResponse) string {
	text := ""
	for _, candidate := range resp.Candidates {
		if candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if t, ok := part.(genai.Text); ok {
				text += string(t)
			}
		}
	}
	return text
}

func (cc *ChatClient) Close() error {
	if cc.client != nil {
		return cc.client.Close()
	}
	return nil
}
