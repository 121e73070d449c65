package services

import (
	"unicode/utf8"

	"github.com/Udonwajnr/chatpdf/models"
	"github.com/Udonwajnr/chatpdf/utils"
)

// Chunker splits page text into overlapping, embeddable chunks.
// Chunks carry byte offsets into the normalized page text so that
// [StartIndex, EndIndex) always reconstructs the chunk exactly.
type Chunker struct {
	maxChunkSize  int // max chunk size in bytes
	overlap       int // bytes of trailing text repeated in the next chunk
	metaTextBytes int // cap on the metadata copy kept per vector
}

func NewChunker(maxChunkSize, overlap, metaTextBytes int) *Chunker {
	if maxChunkSize <= 0 {
		maxChunkSize = 1000
	}
	if overlap < 0 || overlap >= maxChunkSize {
		overlap = maxChunkSize / 5
	}
	if metaTextBytes <= 0 {
		metaTextBytes = 36000
	}
	return &Chunker{
		maxChunkSize:  maxChunkSize,
		overlap:       overlap,
		metaTextBytes: metaTextBytes,
	}
}

// ChunkPage splits one page into chunks. Whitespace runs (including
// newlines) are collapsed to single spaces first; an empty or
// whitespace-only page yields no chunks.
func (c *Chunker) ChunkPage(page models.Page) []models.Chunk {
	text := utils.NormalizeWhitespace(page.Text)
	if text == "" {
		return nil
	}

	var chunks []models.Chunk
	start := 0
	for start < len(text) {
		end := start + c.maxChunkSize
		if end >= len(text) {
			end = len(text)
		} else {
			end = c.splitPoint(text, start, end)
		}

		chunkText := text[start:end]
		chunks = append(chunks, models.Chunk{
			Hash:       utils.ChunkHash(page.Number, chunkText),
			PageNumber: page.Number,
			Text:       chunkText,
			MetaText:   utils.TruncateStringByBytes(chunkText, c.metaTextBytes),
			StartIndex: start,
			EndIndex:   end,
		})

		if end >= len(text) {
			break
		}

		next := end - c.overlap
		for next > 0 && !utf8.RuneStart(text[next]) {
			next++
		}
		if next <= start {
			next = start + 1
			for next < len(text) && !utf8.RuneStart(text[next]) {
				next++
			}
		}
		start = next
	}

	return chunks
}

// ChunkPages chunks every page in order.
func (c *Chunker) ChunkPages(pages []models.Page) []models.Chunk {
	var all []models.Chunk
	for _, page := range pages {
		all = append(all, c.ChunkPage(page)...)
	}
	return all
}

// splitPoint picks a cut position at or before limit, preferring a
// sentence boundary in the back half of the window, then a space, then
// a hard cut backed up to a rune start.
func (c *Chunker) splitPoint(text string, start, limit int) int {
	half := start + c.maxChunkSize/2

	for i := limit - 1; i > half; i-- {
		if text[i] == ' ' && i > start+1 {
			prev := text[i-1]
			if prev == '.' || prev == '!' || prev == '?' {
				return i + 1
			}
		}
	}
	for i := limit - 1; i > half; i-- {
		if text[i] == ' ' {
			return i + 1
		}
	}

	cut := limit
	for cut > start && !utf8.RuneStart(text[cut]) {
		cut--
	}
	if cut == start {
		cut = limit
		for cut < len(text) && !utf8.RuneStart(text[cut]) {
			cut++
		}
	}
	return cut
}
