package extract

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ledongthuc/pdf"
)

// Config for the PDF extractor.
type Config struct {
	MaxPages int // 0 = no limit
}

// PDFExtractor reads the text layer of a PDF held in memory.
type PDFExtractor struct {
	cfg    Config
	logger *slog.Logger
}

func NewPDFExtractor(cfg Config, logger *slog.Logger) *PDFExtractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &PDFExtractor{cfg: cfg, logger: logger}
}

// Extract returns the document text. Whitespace-only output is reported as ErrNoText.
func (e *PDFExtractor) Extract(ctx context.Context, data []byte) (TextExtractionResult, error) {
	start := time.Now()
	res := TextExtractionResult{Method: "pdf-text"}

	text, pages, warns, err := e.pdfToText(ctx, data)
	res.Pages = pages
	res.Warnings = warns
	res.Duration = time.Since(start)
	if err != nil {
		e.logger.Error("extract.pdf.failed", "error", err, "bytes", len(data), "elapsed_ms", res.Duration.Milliseconds())
		return res, err
	}

	res.Text = Normalize(text)
	if strings.TrimSpace(res.Text) == "" {
		e.logger.Warn("extract.pdf.no_text", "pages", pages, "warnings", len(warns))
		return res, ErrNoText
	}
	res.Signal = invoiceSignal(res.Text)

	e.logger.Debug("extract.pdf.ok",
		"pages", pages,
		"chars", len(res.Text),
		"signal", res.Signal,
		"warnings", len(warns),
		"elapsed_ms", res.Duration.Milliseconds(),
	)
	return res, nil
}

func (e *PDFExtractor) pdfToText(ctx context.Context, data []byte) (text string, pages int, warnings []string, err error) {
	// the parser panics on some malformed inputs
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pdf parser panic: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", 0, nil, fmt.Errorf("open pdf: %w", err)
	}

	pages = reader.NumPage()
	limit := pages
	if e.cfg.MaxPages > 0 && limit > e.cfg.MaxPages {
		limit = e.cfg.MaxPages
		warnings = append(warnings, fmt.Sprintf("only first %d of %d pages read", limit, pages))
	}

	var b strings.Builder
	for i := 1; i <= limit; i++ {
		if err := ctx.Err(); err != nil {
			return "", pages, warnings, err
		}
		page := reader.Page(i)
		if page.V.IsNull() {
			warnings = append(warnings, fmt.Sprintf("page %d: empty", i))
			continue
		}
		txt, perr := page.GetPlainText(nil)
		if perr != nil {
			warnings = append(warnings, fmt.Sprintf("page %d: %v", i, perr))
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString(txt)
	}
	return b.String(), pages, warnings, nil
}
