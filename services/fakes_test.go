package services

import (
	"context"
	"fmt"
	"io"
	"math"
	"sort"
	"strings"
	"sync"

	"github.com/Udonwajnr/chatpdf/internal/pinecone"
	"github.com/Udonwajnr/chatpdf/models"
)

// fakeEmbedder maps text to a deterministic 8-dimensional bag-of-words
// vector. Texts sharing words get high cosine similarity, unrelated
// texts get low similarity, which is enough to drive real retrieval
// through the pipeline.
type fakeEmbedder struct {
	mu    sync.Mutex
	calls int
	fail  bool
}

func (f *fakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	f.mu.Lock()
	f.calls++
	fail := f.fail
	f.mu.Unlock()
	if fail {
		return nil, fmt.Errorf("embedder unavailable")
	}
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("cannot embed empty text")
	}

	vec := make([]float32, 8)
	for _, word := range strings.Fields(strings.ToLower(text)) {
		h := 0
		for _, r := range word {
			h = h*31 + int(r)
		}
		if h < 0 {
			h = -h
		}
		vec[h%8]++
	}
	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm > 0 {
		norm = math.Sqrt(norm)
		for i := range vec {
			vec[i] = float32(float64(vec[i]) / norm)
		}
	}
	return vec, nil
}

// fakeIndex is an in-memory vector store with per-namespace cosine
// similarity search.
type fakeIndex struct {
	mu         sync.Mutex
	namespaces map[string]map[string]pinecone.Vector
	upserts    int
	failUpsert bool
	failQuery  bool
}

func newFakeIndex() *fakeIndex {
	return &fakeIndex{namespaces: make(map[string]map[string]pinecone.Vector)}
}

func (f *fakeIndex) Upsert(_ context.Context, namespace string, vectors []pinecone.Vector) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failUpsert {
		return 0, fmt.Errorf("index unavailable")
	}
	ns, ok := f.namespaces[namespace]
	if !ok {
		ns = make(map[string]pinecone.Vector)
		f.namespaces[namespace] = ns
	}
	for _, v := range vectors {
		ns[v.ID] = v
	}
	f.upserts++
	return len(vectors), nil
}

func (f *fakeIndex) Query(_ context.Context, namespace string, vector []float32, topK int) ([]pinecone.Match, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failQuery {
		return nil, fmt.Errorf("index unavailable")
	}

	var matches []pinecone.Match
	for id, v := range f.namespaces[namespace] {
		matches = append(matches, pinecone.Match{
			ID:       id,
			Score:    cosine(vector, v.Values),
			Metadata: v.Metadata,
		})
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].Score > matches[j].Score })
	if len(matches) > topK {
		matches = matches[:topK]
	}
	return matches, nil
}

func (f *fakeIndex) DeleteNamespace(_ context.Context, namespace string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.namespaces, namespace)
	return nil
}

func (f *fakeIndex) count(namespace string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.namespaces[namespace])
}

func cosine(a, b []float32) float32 {
	if len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(na) * math.Sqrt(nb)))
}

// fakeStorage serves preset content by file key.
type fakeStorage struct {
	files map[string][]byte
}

func (f *fakeStorage) Store(fileName string, _ io.Reader) (string, string, string, int64, error) {
	return "", "", "", 0, fmt.Errorf("not implemented")
}

func (f *fakeStorage) Fetch(fileKey string) ([]byte, error) {
	data, ok := f.files[fileKey]
	if !ok {
		return nil, fmt.Errorf("no such file %q", fileKey)
	}
	return data, nil
}

// fakeExtractor returns preset pages regardless of content.
type fakeExtractor struct {
	pages []models.Page
	err   error
}

func (f *fakeExtractor) ExtractPages(_ context.Context, _ []byte) (*ExtractionResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &ExtractionResult{Pages: f.pages, Method: "fake", QualityScore: 1.0}, nil
}
