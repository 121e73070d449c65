package pinecone

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sony/gobreaker"
)

// Index binds a Client to one named index. The data-plane host is
// resolved lazily on first use and cached, and every call runs through
// a circuit breaker so a flapping index does not pile up requests.
type Index struct {
	client *Client
	name   string
	cb     *gobreaker.CircuitBreaker

	mu   sync.Mutex
	host string
}

// NewIndex wraps client for the named index. If host is non-empty the
// control-plane lookup is skipped entirely.
func NewIndex(client *Client, name, host string) *Index {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "pinecone-" + name,
		MaxRequests: 5,
		Interval:    10 * time.Second,
		Timeout:     60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 10 && failureRatio >= 0.6
		},
	})
	return &Index{client: client, name: name, cb: cb, host: host}
}

func (ix *Index) resolveHost(ctx context.Context) (string, error) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if ix.host != "" {
		return ix.host, nil
	}
	desc, err := ix.client.DescribeIndex(ctx, ix.name)
	if err != nil {
		return "", fmt.Errorf("resolve index %q: %w", ix.name, err)
	}
	if desc.Host == "" {
		return "", fmt.Errorf("index %q has no host yet (state %s)", ix.name, desc.Status.State)
	}
	ix.host = desc.Host
	return ix.host, nil
}

// Upsert writes vectors into namespace.
func (ix *Index) Upsert(ctx context.Context, namespace string, vectors []Vector) (int, error) {
	host, err := ix.resolveHost(ctx)
	if err != nil {
		return 0, err
	}
	result, err := ix.cb.Execute(func() (interface{}, error) {
		return ix.client.Upsert(ctx, host, &UpsertRequest{Vectors: vectors, Namespace: namespace})
	})
	if err != nil {
		return 0, err
	}
	return result.(*UpsertResponse).UpsertedCount, nil
}

// Query returns the topK nearest matches to vector in namespace,
// metadata included.
func (ix *Index) Query(ctx context.Context, namespace string, vector []float32, topK int) ([]Match, error) {
	host, err := ix.resolveHost(ctx)
	if err != nil {
		return nil, err
	}
	result, err := ix.cb.Execute(func() (interface{}, error) {
		return ix.client.Query(ctx, host, &QueryRequest{
			Vector:          vector,
			TopK:            topK,
			Namespace:       namespace,
			IncludeMetadata: true,
		})
	})
	if err != nil {
		return nil, err
	}
	return result.(*QueryResponse).Matches, nil
}

// DeleteNamespace drops all vectors for namespace.
func (ix *Index) DeleteNamespace(ctx context.Context, namespace string) error {
	host, err := ix.resolveHost(ctx)
	if err != nil {
		return err
	}
	_, err = ix.cb.Execute(func() (interface{}, error) {
		return nil, ix.client.DeleteNamespace(ctx, host, namespace)
	})
	return err
}
