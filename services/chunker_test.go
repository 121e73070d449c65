package services

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/Udonwajnr/chatpdf/models"
	"github.com/Udonwajnr/chatpdf/utils"
)

func TestChunkPageEmpty(t *testing.T) {
	c := NewChunker(1000, 200, 36000)
	if got := c.ChunkPage(models.Page{Number: 1, Text: ""}); got != nil {
		t.Errorf("empty page produced %d chunks, want 0", len(got))
	}
	if got := c.ChunkPage(models.Page{Number: 1, Text: " \n\t "}); got != nil {
		t.Errorf("whitespace-only page produced %d chunks, want 0", len(got))
	}
}

func TestChunkPageShortText(t *testing.T) {
	c := NewChunker(1000, 200, 36000)
	chunks := c.ChunkPage(models.Page{Number: 3, Text: "A short page."})
	if len(chunks) != 1 {
		t.Fatalf("got %d chunks, want 1", len(chunks))
	}
	ch := chunks[0]
	if ch.Text != "A short page." {
		t.Errorf("chunk text = %q", ch.Text)
	}
	if ch.PageNumber != 3 {
		t.Errorf("page number = %d, want 3", ch.PageNumber)
	}
	if ch.StartIndex != 0 || ch.EndIndex != len(ch.Text) {
		t.Errorf("span = [%d,%d), want [0,%d)", ch.StartIndex, ch.EndIndex, len(ch.Text))
	}
	if ch.Hash != utils.ChunkHash(3, ch.Text) {
		t.Error("chunk hash does not match content hash")
	}
}

func TestChunkPageBoundsAndCoverage(t *testing.T) {
	c := NewChunker(200, 40, 36000)

	text := strings.Repeat("The annual report covers revenue, expenses and forecasts. ", 40)
	page := models.Page{Number: 1, Text: text}
	normalized := utils.NormalizeWhitespace(text)

	chunks := c.ChunkPage(page)
	if len(chunks) < 2 {
		t.Fatalf("got %d chunks, want several", len(chunks))
	}

	prevStart := -1
	for i, ch := range chunks {
		if len(ch.Text) > 200 {
			t.Errorf("chunk %d is %d bytes, exceeds max 200", i, len(ch.Text))
		}
		if !utf8.ValidString(ch.Text) {
			t.Errorf("chunk %d is not valid UTF-8", i)
		}
		if got := normalized[ch.StartIndex:ch.EndIndex]; got != ch.Text {
			t.Errorf("chunk %d span does not reconstruct its text", i)
		}
		if ch.StartIndex <= prevStart {
			t.Errorf("chunk %d start %d does not advance past %d", i, ch.StartIndex, prevStart)
		}
		// Consecutive chunks must overlap or touch, never leave a gap.
		if i > 0 && ch.StartIndex > chunks[i-1].EndIndex {
			t.Errorf("gap between chunk %d (end %d) and chunk %d (start %d)",
				i-1, chunks[i-1].EndIndex, i, ch.StartIndex)
		}
		prevStart = ch.StartIndex
	}

	if chunks[0].StartIndex != 0 {
		t.Error("first chunk does not start at 0")
	}
	if last := chunks[len(chunks)-1]; last.EndIndex != len(normalized) {
		t.Errorf("last chunk ends at %d, text is %d bytes", last.EndIndex, len(normalized))
	}
}

func TestChunkPageMultibyteText(t *testing.T) {
	c := NewChunker(100, 20, 36000)
	text := strings.Repeat("世界 héllo wörld 文字 ", 30)
	chunks := c.ChunkPage(models.Page{Number: 1, Text: text})
	if len(chunks) == 0 {
		t.Fatal("no chunks produced")
	}
	for i, ch := range chunks {
		if !utf8.ValidString(ch.Text) {
			t.Errorf("chunk %d split a multi-byte rune", i)
		}
	}
}

func TestChunkMetaTextTruncation(t *testing.T) {
	c := NewChunker(500, 100, 50)
	text := strings.Repeat("word ", 200)
	chunks := c.ChunkPage(models.Page{Number: 1, Text: text})
	for i, ch := range chunks {
		if len(ch.MetaText) > 50 {
			t.Errorf("chunk %d meta text is %d bytes, cap is 50", i, len(ch.MetaText))
		}
		if !strings.HasPrefix(ch.Text, ch.MetaText) {
			t.Errorf("chunk %d meta text is not a prefix of the chunk text", i)
		}
	}
}

func TestChunkPagesKeepsPageNumbers(t *testing.T) {
	c := NewChunker(1000, 200, 36000)
	pages := []models.Page{
		{Number: 1, Text: "first page text"},
		{Number: 2, Text: ""},
		{Number: 3, Text: "third page text"},
	}
	chunks := c.ChunkPages(pages)
	if len(chunks) != 2 {
		t.Fatalf("got %d chunks, want 2", len(chunks))
	}
	if chunks[0].PageNumber != 1 || chunks[1].PageNumber != 3 {
		t.Errorf("page numbers = %d, %d; want 1, 3", chunks[0].PageNumber, chunks[1].PageNumber)
	}
}
