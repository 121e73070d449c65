// Package pinecone implements a minimal HTTP client for the Pinecone
// vector database: control-plane index description plus data-plane
// upsert and query against the index host.
package pinecone

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	defaultAPIVersion = "2025-04"
	defaultBaseURL    = "https://api.pinecone.io"
	defaultTimeout    = 30 * time.Second
)

// Config carries the credentials and endpoints for a Client.
type Config struct {
	APIKey     string
	APIVersion string
	BaseURL    string
	Timeout    time.Duration
}

// Client talks to the Pinecone REST API.
type Client struct {
	apiKey     string
	apiVersion string
	baseURL    string
	httpClient *http.Client
}

// NewClient builds a Client from cfg, filling in API defaults.
func NewClient(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("pinecone: api key is required")
	}
	if cfg.APIVersion == "" {
		cfg.APIVersion = defaultAPIVersion
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	return &Client{
		apiKey:     cfg.APIKey,
		apiVersion: cfg.APIVersion,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

// Vector is one record in an index namespace.
type Vector struct {
	ID       string                 `json:"id"`
	Values   []float32              `json:"values"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// UpsertRequest writes vectors into a namespace.
type UpsertRequest struct {
	Vectors   []Vector `json:"vectors"`
	Namespace string   `json:"namespace,omitempty"`
}

// UpsertResponse reports how many vectors the index accepted.
type UpsertResponse struct {
	UpsertedCount int `json:"upsertedCount"`
}

// QueryRequest searches a namespace by vector similarity.
type QueryRequest struct {
	Vector          []float32 `json:"vector"`
	TopK            int       `json:"topK"`
	Namespace       string    `json:"namespace,omitempty"`
	IncludeValues   bool      `json:"includeValues"`
	IncludeMetadata bool      `json:"includeMetadata"`
}

// Match is a single query result.
type Match struct {
	ID       string                 `json:"id"`
	Score    float32                `json:"score"`
	Values   []float32              `json:"values,omitempty"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// QueryResponse holds the matches for a query, best first.
type QueryResponse struct {
	Matches   []Match `json:"matches"`
	Namespace string  `json:"namespace"`
}

type deleteRequest struct {
	DeleteAll bool   `json:"deleteAll,omitempty"`
	Namespace string `json:"namespace,omitempty"`
}

// IndexDescription is the control-plane view of an index. Host is the
// data-plane endpoint the vector operations run against.
type IndexDescription struct {
	Name      string `json:"name"`
	Dimension int    `json:"dimension"`
	Metric    string `json:"metric"`
	Host      string `json:"host"`
	Status    struct {
		Ready bool   `json:"ready"`
		State string `json:"state"`
	} `json:"status"`
}

// DescribeIndex resolves an index by name, returning its data-plane host.
func (c *Client) DescribeIndex(ctx context.Context, name string) (*IndexDescription, error) {
	url := c.baseURL + "/indexes/" + name
	return doJSON[IndexDescription](ctx, c, http.MethodGet, url, nil)
}

// Upsert writes vectors to the index behind host.
func (c *Client) Upsert(ctx context.Context, host string, req *UpsertRequest) (*UpsertResponse, error) {
	return doJSON[UpsertResponse](ctx, c, http.MethodPost, hostURL(host)+"/vectors/upsert", req)
}

// Query runs a similarity search against the index behind host.
func (c *Client) Query(ctx context.Context, host string, req *QueryRequest) (*QueryResponse, error) {
	return doJSON[QueryResponse](ctx, c, http.MethodPost, hostURL(host)+"/query", req)
}

// DeleteNamespace removes every vector in the given namespace.
func (c *Client) DeleteNamespace(ctx context.Context, host, namespace string) error {
	req := &deleteRequest{DeleteAll: true, Namespace: namespace}
	_, err := doJSON[struct{}](ctx, c, http.MethodPost, hostURL(host)+"/vectors/delete", req)
	return err
}

// hostURL normalizes a data-plane host into a base URL. Hosts returned
// by DescribeIndex are bare, but hosts carrying a scheme pass through
// unchanged.
func hostURL(host string) string {
	if strings.Contains(host, "://") {
		return strings.TrimRight(host, "/")
	}
	return "https://" + strings.TrimRight(host, "/")
}

func doJSON[T any](ctx context.Context, c *Client, method, url string, body interface{}) (*T, error) {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("pinecone: encode request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, fmt.Errorf("pinecone: build request: %w", err)
	}
	req.Header.Set("Api-Key", c.apiKey)
	req.Header.Set("X-Pinecone-Api-Version", c.apiVersion)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("pinecone: %s %s: %w", method, url, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("pinecone: read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("pinecone: %s %s: status %d: %s", method, url, resp.StatusCode, truncateBody(data))
	}

	out := new(T)
	if len(data) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return nil, fmt.Errorf("pinecone: decode response: %w", err)
		}
	}
	return out, nil
}

func truncateBody(data []byte) string {
	const max = 512
	if len(data) > max {
		return string(data[:max]) + "..."
	}
	return string(data)
}
