package services

import (
	"context"
	"strings"
	"testing"
)

func TestEvaluateTextQuality(t *testing.T) {
	prose := strings.Repeat("The annual report describes the revenue and the outlook of the company in detail. ", 5)
	if q := evaluateTextQuality(prose); q < 0.7 {
		t.Errorf("clean prose scored %.2f, want >= 0.7", q)
	}

	garbage := strings.Repeat("��\x01\x02", 50)
	if q := evaluateTextQuality(garbage); q > 0.3 {
		t.Errorf("corrupted text scored %.2f, want <= 0.3", q)
	}

	if q := evaluateTextQuality(""); q != 0 {
		t.Errorf("empty text scored %.2f, want 0", q)
	}
	if q := evaluateTextQuality("hi"); q > 0.2 {
		t.Errorf("trivially short text scored %.2f", q)
	}
}

func TestExtractPagesRejectsEmptyAndOversized(t *testing.T) {
	e := NewPDFExtractor()
	if _, err := e.ExtractPages(context.Background(), nil); err == nil {
		t.Error("expected error for empty content")
	}
	if _, err := e.ExtractPages(context.Background(), make([]byte, maxPDFSize+1)); err == nil {
		t.Error("expected error for oversized content")
	}
}

func TestExtractPagesInvalidPDF(t *testing.T) {
	e := NewPDFExtractor()
	if _, err := e.ExtractPages(context.Background(), []byte("not a pdf at all")); err == nil {
		t.Error("expected error for invalid PDF bytes")
	}
}
