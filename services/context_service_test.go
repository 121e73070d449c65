package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/Udonwajnr/chatpdf/internal/pinecone"
	"github.com/Udonwajnr/chatpdf/models"
)

func testVector(id string, page int, text string, values []float32) []pinecone.Vector {
	return []pinecone.Vector{{
		ID:     id,
		Values: values,
		Metadata: map[string]interface{}{
			"text":       text,
			"pageNumber": page,
		},
	}}
}

func TestGetContextReturnsRelevantPages(t *testing.T) {
	storage := &fakeStorage{files: map[string][]byte{"finance.pdf": []byte("%PDF")}}
	extractor := &fakeExtractor{pages: []models.Page{
		{Number: 1, Text: "Introduction and company overview."},
		{Number: 2, Text: "Revenue grew 45% year over year."},
		{Number: 3, Text: "Office locations and contact details."},
	}}
	embedder := &fakeEmbedder{}
	index := newFakeIndex()
	ingest := newTestIngestService(storage, extractor, embedder, index)
	if _, err := ingest.Ingest(context.Background(), "finance.pdf"); err != nil {
		t.Fatalf("Ingest: %v", err)
	}

	// minScore 0 so the bag-of-words fake only has to rank, not clear
	// a production-tuned threshold.
	svc := NewContextService(embedder, index, nil, 10, 0, 3000)
	got, err := svc.GetContext(context.Background(), "finance.pdf", "revenue grew year over year")
	if err != nil {
		t.Fatalf("GetContext: %v", err)
	}

	if !strings.Contains(got, "45%") {
		t.Errorf("context does not contain the revenue figure: %q", got)
	}
	if !strings.Contains(got, "[page 2]") {
		t.Errorf("context does not reference page 2: %q", got)
	}
	if !strings.HasPrefix(got, "[page 2]") {
		t.Errorf("best match is not first: %q", got)
	}
}

func TestGetContextRespectsBudget(t *testing.T) {
	index := newFakeIndex()
	embedder := &fakeEmbedder{}
	ns := "bigdoc"

	ctx := context.Background()
	for i := 0; i < 10; i++ {
		text := strings.Repeat(fmt.Sprintf("block %d content ", i), 30)
		vec, _ := embedder.Embed(ctx, text)
		index.Upsert(ctx, ns, testVector(fmt.Sprintf("v%d", i), i+1, text, vec))
	}

	svc := NewContextService(embedder, index, nil, 10, 0, 500)
	got, err := svc.GetContext(ctx, "bigdoc", "block content")
	if err != nil {
		t.Fatalf("GetContext: %v", err)
	}
	if len(got) > 500 {
		t.Errorf("context is %d bytes, budget is 500", len(got))
	}
	if got == "" {
		t.Error("context is empty despite matches under budget")
	}
}

// fixedEmbedder returns the same vector for every input.
type fixedEmbedder struct {
	vec []float32
}

func (f *fixedEmbedder) Embed(context.Context, string) ([]float32, error) {
	return f.vec, nil
}

func TestGetContextMinScoreFilter(t *testing.T) {
	index := newFakeIndex()
	ctx := context.Background()

	// Stored vector is near-orthogonal to every query: cosine 0.
	index.Upsert(ctx, "doc", testVector("v1", 1, "unrelated content", []float32{0, 1, 0, 0}))
	index.Upsert(ctx, "doc", testVector("v2", 2, "exact match content", []float32{1, 0, 0, 0}))

	embedder := &fixedEmbedder{vec: []float32{1, 0, 0, 0}}
	svc := NewContextService(embedder, index, nil, 10, 0.7, 3000)
	got, err := svc.GetContext(ctx, "doc", "anything")
	if err != nil {
		t.Fatalf("GetContext: %v", err)
	}
	if !strings.Contains(got, "exact match content") {
		t.Errorf("high-similarity match missing from context: %q", got)
	}
	if strings.Contains(got, "unrelated content") {
		t.Errorf("low-similarity match leaked through the score filter: %q", got)
	}
}

func TestBuildContextOrderAndDelimiter(t *testing.T) {
	svc := NewContextService(nil, nil, nil, 10, 0.5, 3000)

	// Matches arrive from the index best-first; ties keep index order.
	matches := []pinecone.Match{
		{ID: "a", Score: 0.9, Metadata: map[string]interface{}{"text": "first", "pageNumber": 1}},
		{ID: "b", Score: 0.8, Metadata: map[string]interface{}{"text": "second", "pageNumber": 2}},
		{ID: "c", Score: 0.8, Metadata: map[string]interface{}{"text": "third", "pageNumber": 3}},
		{ID: "d", Score: 0.4, Metadata: map[string]interface{}{"text": "filtered", "pageNumber": 4}},
	}

	got := svc.buildContext(matches)
	want := "[page 1] first\n[page 2] second\n[page 3] third"
	if got != want {
		t.Errorf("buildContext = %q, want %q", got, want)
	}
}

func TestBuildContextFloatPageNumbers(t *testing.T) {
	// JSON-decoded metadata carries numbers as float64.
	svc := NewContextService(nil, nil, nil, 10, 0, 3000)
	matches := []pinecone.Match{
		{ID: "a", Score: 0.9, Metadata: map[string]interface{}{"text": "body", "pageNumber": float64(5)}},
	}
	if got := svc.buildContext(matches); got != "[page 5] body" {
		t.Errorf("buildContext = %q", got)
	}
}

func TestGetContextEmptyNamespace(t *testing.T) {
	svc := NewContextService(&fakeEmbedder{}, newFakeIndex(), nil, 10, 0.7, 3000)
	got, err := svc.GetContext(context.Background(), "never-ingested.pdf", "anything")
	if err != nil {
		t.Fatalf("empty namespace should not error: %v", err)
	}
	if got != "" {
		t.Errorf("expected empty context, got %q", got)
	}
}

func TestGetContextQueryFailure(t *testing.T) {
	index := newFakeIndex()
	index.failQuery = true
	svc := NewContextService(&fakeEmbedder{}, index, nil, 10, 0, 3000)
	_, err := svc.GetContext(context.Background(), "doc.pdf", "question")
	if !errors.Is(err, ErrQuery) {
		t.Errorf("err = %v, want ErrQuery", err)
	}
}

func TestGetContextEmbeddingFailure(t *testing.T) {
	svc := NewContextService(&fakeEmbedder{fail: true}, newFakeIndex(), nil, 10, 0, 3000)
	_, err := svc.GetContext(context.Background(), "doc.pdf", "question")
	if !errors.Is(err, ErrEmbedding) {
		t.Errorf("err = %v, want ErrEmbedding", err)
	}
}
