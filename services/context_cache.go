package services

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Udonwajnr/chatpdf/internal/logger"
	"github.com/Udonwajnr/chatpdf/utils"
)

// ContextCache memoizes built context strings in Redis, keyed by
// namespace and query hash. Cache failures are logged and swallowed:
// retrieval must keep working when Redis is down.
type ContextCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewContextCache(client *redis.Client, ttl time.Duration) *ContextCache {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &ContextCache{client: client, ttl: ttl}
}

func cacheKey(namespace, query string) string {
	return "ctx:" + namespace + ":" + utils.QueryHash(query)
}

// Cached entries are framed as algorithm + ':' + payload so Get knows
// how to decompress.
func frame(algorithm utils.CompressionAlgorithm, payload []byte) []byte {
	return append([]byte(string(algorithm)+":"), payload...)
}

func unframe(data []byte) (utils.CompressionAlgorithm, []byte, bool) {
	for i, b := range data {
		if b == ':' {
			return utils.CompressionAlgorithm(data[:i]), data[i+1:], true
		}
		if i > 8 {
			break
		}
	}
	return "", nil, false
}

// Get returns the cached context for (namespace, query) and whether it
// was present. An empty cached context is a valid hit.
func (cc *ContextCache) Get(ctx context.Context, namespace, query string) (string, bool) {
	data, err := cc.client.Get(ctx, cacheKey(namespace, query)).Bytes()
	if err == redis.Nil {
		return "", false
	}
	if err != nil {
		logger.Warn("context cache get failed", "error", err)
		return "", false
	}
	algorithm, payload, ok := unframe(data)
	if !ok {
		logger.Warn("context cache entry malformed", "namespace", namespace)
		return "", false
	}
	text, err := utils.DecompressText(payload, algorithm)
	if err != nil {
		logger.Warn("context cache entry corrupted", "error", err)
		return "", false
	}
	return text, true
}

// Set stores the context for (namespace, query) with the cache TTL.
func (cc *ContextCache) Set(ctx context.Context, namespace, query, contextStr string) {
	payload, algorithm, err := utils.CompressText(contextStr)
	if err != nil {
		logger.Warn("context cache compress failed", "error", err)
		return
	}
	if err := cc.client.Set(ctx, cacheKey(namespace, query), frame(algorithm, payload), cc.ttl).Err(); err != nil {
		logger.Warn("context cache set failed", "error", err)
	}
}

// InvalidateNamespace drops every cached context for a namespace, used
// when the document's vectors are deleted or re-ingested.
func (cc *ContextCache) InvalidateNamespace(ctx context.Context, namespace string) {
	pattern := "ctx:" + namespace + ":*"
	iter := cc.client.Scan(ctx, 0, pattern, 100).Iterator()
	for iter.Next(ctx) {
		if err := cc.client.Del(ctx, iter.Val()).Err(); err != nil {
			logger.Warn("context cache invalidate failed", "key", iter.Val(), "error", err)
		}
	}
	if err := iter.Err(); err != nil {
		logger.Warn("context cache scan failed", "error", err)
	}
}
