package services

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/Udonwajnr/chatpdf/internal/ai"
	"github.com/Udonwajnr/chatpdf/internal/logger"
	"github.com/Udonwajnr/chatpdf/internal/pinecone"
	"github.com/Udonwajnr/chatpdf/utils"
)

// ContextService answers "what does this document say about X" by
// embedding the query, searching the document's namespace, and packing
// the best matches into a bounded context string for the chat model.
type ContextService struct {
	embedder ai.Embedder
	index    VectorIndex
	cache    *ContextCache // nil disables caching

	topK      int
	minScore  float32
	maxLength int
}

func NewContextService(embedder ai.Embedder, index VectorIndex, cache *ContextCache, topK int, minScore float32, maxLength int) *ContextService {
	if topK <= 0 {
		topK = 10
	}
	if maxLength <= 0 {
		maxLength = 3000
	}
	return &ContextService{
		embedder:  embedder,
		index:     index,
		cache:     cache,
		topK:      topK,
		minScore:  minScore,
		maxLength: maxLength,
	}
}

// GetContext returns a context string of at most maxLength bytes built
// from the chunks most similar to query in fileKey's namespace. No
// sufficiently similar chunks is not an error: the result is "".
func (s *ContextService) GetContext(ctx context.Context, fileKey, query string) (string, error) {
	tracer := otel.Tracer("context-service")
	ctx, span := tracer.Start(ctx, "context.get")
	defer span.End()

	namespace := utils.DeriveNamespace(fileKey)
	span.SetAttributes(
		attribute.String("context.namespace", namespace),
		attribute.Int("context.top_k", s.topK),
	)

	if s.cache != nil {
		if cached, ok := s.cache.Get(ctx, namespace, query); ok {
			span.SetAttributes(attribute.Bool("context.cache_hit", true))
			return cached, nil
		}
	}

	embedding, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return "", fmt.Errorf("%w: query: %v", ErrEmbedding, err)
	}

	matches, err := s.index.Query(ctx, namespace, embedding, s.topK)
	if err != nil {
		return "", fmt.Errorf("%w: namespace %s: %v", ErrQuery, namespace, err)
	}
	span.SetAttributes(attribute.Int("context.matches", len(matches)))

	result := s.buildContext(matches)
	span.SetAttributes(attribute.Int("context.bytes", len(result)))

	if s.cache != nil {
		s.cache.Set(ctx, namespace, query, result)
	}
	return result, nil
}

// buildContext packs match texts into the byte budget, best match
// first. Each block is prefixed with the page it came from; the last
// block that does not fit whole is truncated on a rune boundary rather
// than dropped.
func (s *ContextService) buildContext(matches []pinecone.Match) string {
	var b strings.Builder
	for _, m := range matches {
		if m.Score < s.minScore {
			continue
		}
		text := matchText(m)
		if text == "" {
			continue
		}
		block := fmt.Sprintf("[page %d] %s", matchPage(m), text)

		sep := ""
		if b.Len() > 0 {
			sep = "\n"
		}
		if b.Len()+len(sep)+len(block) <= s.maxLength {
			b.WriteString(sep)
			b.WriteString(block)
			continue
		}

		remaining := s.maxLength - b.Len() - len(sep)
		if remaining > 0 {
			b.WriteString(sep)
			b.WriteString(utils.TruncateStringByBytes(block, remaining))
		}
		break
	}
	return b.String()
}

func matchText(m pinecone.Match) string {
	text, ok := m.Metadata["text"].(string)
	if !ok {
		logger.Debug("match missing text metadata", "id", m.ID)
		return ""
	}
	return text
}

// matchPage reads the pageNumber metadata field. JSON decoding turns
// numbers into float64, but fake stores in tests keep them as int.
func matchPage(m pinecone.Match) int {
	switch v := m.Metadata["pageNumber"].(type) {
	case float64:
		return int(v)
	case int:
		return v
	default:
		return 0
	}
}
