package services

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/ledongthuc/pdf"

	"github.com/Udonwajnr/chatpdf/internal/logger"
	"github.com/Udonwajnr/chatpdf/models"
)

// PageExtractor produces per-page text from raw PDF bytes. Page
// boundaries must be preserved: every chunk is later tagged with the
// page it came from.
type PageExtractor interface {
	ExtractPages(ctx context.Context, content []byte) (*ExtractionResult, error)
}

// ExtractionResult is the outcome of one extraction run.
type ExtractionResult struct {
	Pages          []models.Page
	Method         string
	QualityScore   float64
	ProcessingTime time.Duration
}

// PDFExtractor extracts text page by page, trying the in-process PDF
// library first and falling back to pdftotext when the library output
// is too corrupted to use.
type PDFExtractor struct{}

func NewPDFExtractor() *PDFExtractor {
	return &PDFExtractor{}
}

const (
	goodQuality   = 0.7
	usableQuality = 0.3
	maxPDFSize    = 200 << 20
)

// ExtractPages runs the extraction methods in order of preference and
// returns the first result of good quality, or the best usable result.
func (e *PDFExtractor) ExtractPages(ctx context.Context, content []byte) (*ExtractionResult, error) {
	start := time.Now()

	if len(content) == 0 {
		return nil, fmt.Errorf("empty PDF content")
	}
	if len(content) > maxPDFSize {
		return nil, fmt.Errorf("pdf too large for in-memory extraction (%d bytes)", len(content))
	}

	methods := []struct {
		name    string
		extract func(context.Context, []byte) ([]models.Page, error)
	}{
		{"go-pdf", e.extractWithGoPDF},
		{"poppler", e.extractWithPoppler},
	}

	var lastErr error
	var best *ExtractionResult

	for _, method := range methods {
		pages, err := method.extract(ctx, content)
		if err != nil {
			logger.Debug("extraction method failed", "method", method.name, "error", err)
			lastErr = err
			continue
		}

		result := &ExtractionResult{
			Pages:          pages,
			Method:         method.name,
			QualityScore:   evaluateTextQuality(joinPages(pages)),
			ProcessingTime: time.Since(start),
		}

		if result.QualityScore >= goodQuality {
			return result, nil
		}
		if best == nil || result.QualityScore > best.QualityScore {
			best = result
		}
	}

	if best != nil && best.QualityScore >= usableQuality {
		logger.Warn("using degraded extraction result",
			"method", best.Method, "quality", best.QualityScore)
		return best, nil
	}

	return nil, fmt.Errorf("all extraction methods failed: %w", lastErr)
}

func (e *PDFExtractor) extractWithGoPDF(ctx context.Context, content []byte) ([]models.Page, error) {
	reader, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, fmt.Errorf("create PDF reader: %w", err)
	}

	numPages := reader.NumPage()
	pages := make([]models.Page, 0, numPages)
	extracted := false

	for i := 1; i <= numPages; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		page := reader.Page(i)
		if page.V.IsNull() {
			pages = append(pages, models.Page{Number: i})
			continue
		}

		fonts := make(map[string]*pdf.Font)
		text, err := page.GetPlainText(fonts)
		if err != nil {
			logger.Debug("page extraction failed", "page", i, "error", err)
			pages = append(pages, models.Page{Number: i})
			continue
		}
		if strings.TrimSpace(text) != "" {
			extracted = true
		}
		pages = append(pages, models.Page{Number: i, Text: text})
	}

	if !extracted {
		return nil, fmt.Errorf("no text extracted by go-pdf")
	}
	return pages, nil
}

// extractWithPoppler shells out to pdftotext. Form feeds in its output
// mark page boundaries, which keeps the page numbering intact.
func (e *PDFExtractor) extractWithPoppler(ctx context.Context, content []byte) ([]models.Page, error) {
	if _, err := exec.LookPath("pdftotext"); err != nil {
		return nil, fmt.Errorf("pdftotext not available")
	}

	extractCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	cmd := exec.CommandContext(extractCtx, "pdftotext", "-layout", "-", "-")
	cmd.Stdin = bytes.NewReader(content)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("pdftotext failed: %v, stderr: %s", err, stderr.String())
	}

	output := strings.TrimSuffix(stdout.String(), "\f")
	if strings.TrimSpace(output) == "" {
		return nil, fmt.Errorf("no text extracted by pdftotext")
	}

	parts := strings.Split(output, "\f")
	pages := make([]models.Page, len(parts))
	for i, part := range parts {
		pages[i] = models.Page{Number: i + 1, Text: part}
	}
	return pages, nil
}

func joinPages(pages []models.Page) string {
	var b strings.Builder
	for _, p := range pages {
		b.WriteString(p.Text)
		b.WriteByte('\n')
	}
	return b.String()
}

// evaluateTextQuality scores extracted text between 0 and 1 based on
// how much of it looks like readable prose versus corruption.
func evaluateTextQuality(text string) float64 {
	text = strings.TrimSpace(text)
	if len(text) == 0 {
		return 0.0
	}
	if len(text) < 10 {
		return 0.1
	}

	var alphanumeric, printable, corrupted int
	for _, r := range text {
		switch {
		case (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9'):
			alphanumeric++
			printable++
		case r == ' ' || r == '\n' || r == '\t' || r == '\f':
			printable++
		case r == '�':
			corrupted++
		case r >= 32 && r <= 126:
			printable++
		case r > 127:
			printable++
		default:
			corrupted++
		}
	}

	total := len([]rune(text))
	alphanumericRatio := float64(alphanumeric) / float64(total)
	printableRatio := float64(printable) / float64(total)
	corruptedRatio := float64(corrupted) / float64(total)

	score := printableRatio * 0.4
	if alphanumericRatio >= 0.3 {
		score += 0.3
	} else {
		score += alphanumericRatio
	}
	score -= corruptedRatio * 2.0
	if len(text) > 100 {
		score += 0.1
	}
	if hasProsePatterns(text) {
		score += 0.2
	}

	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}

func hasProsePatterns(text string) bool {
	lower := strings.ToLower(text)
	hits := 0
	for _, word := range []string{" the ", " and ", " of ", " to ", " in "} {
		if strings.Contains(lower, word) {
			hits++
		}
	}
	return hits >= 3
}
