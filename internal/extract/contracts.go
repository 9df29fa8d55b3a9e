package extract

import (
	"context"
	"errors"
	"time"
)

// ErrNoText is returned when a document parses but yields no text.
var ErrNoText = errors.New("no text found in document")

// TextExtractor is Stage 1: document bytes -> text.
type TextExtractor interface {
	Extract(ctx context.Context, data []byte) (TextExtractionResult, error)
}

type TextExtractionResult struct {
	Text     string
	Pages    int
	Method   string // "pdf-text"
	Duration time.Duration
	Warnings []string
	Signal   float32 // 0..1, how much the text looks like an invoice; diagnostics only
}
