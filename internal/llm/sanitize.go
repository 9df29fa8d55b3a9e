package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrNotJSON is returned when the unwrapped completion is not a JSON document.
var ErrNotJSON = errors.New("completion is not valid json")

var reFence = regexp.MustCompile("(?i)```(?:json)?")

// StripCodeFences removes Markdown code-fence markers (```json, ```JSON or bare ```)
// wherever they appear and trims surrounding whitespace. Text without fences only gets trimmed.
func StripCodeFences(s string) string {
	return strings.TrimSpace(reFence.ReplaceAllString(s, ""))
}

// UnwrapCompletion strips fences and checks the remainder is one JSON value.
// No repair is attempted.
func UnwrapCompletion(completion string) ([]byte, error) {
	s := StripCodeFences(completion)
	if s == "" {
		return nil, fmt.Errorf("%w: empty completion", ErrNotJSON)
	}
	raw := []byte(s)
	if !json.Valid(raw) {
		return nil, ErrNotJSON
	}
	return raw, nil
}

// DecodeInvoice decodes unwrapped completion JSON into an ExtractedInvoice.
// With validate set, the document must first match InvoiceJSONSchema.
func DecodeInvoice(raw []byte, validate bool) (ExtractedInvoice, error) {
	if validate {
		if err := ValidateInvoiceJSON(raw); err != nil {
			return ExtractedInvoice{}, err
		}
	}
	var out ExtractedInvoice
	if err := json.Unmarshal(raw, &out); err != nil {
		return ExtractedInvoice{}, fmt.Errorf("unmarshal invoice: %w", err)
	}
	if out.Items == nil {
		out.Items = []LineItem{}
	}
	return out, nil
}

// ParseInvoice is UnwrapCompletion followed by DecodeInvoice. It also returns the unwrapped JSON.
func ParseInvoice(completion string, validate bool) (ExtractedInvoice, []byte, error) {
	raw, err := UnwrapCompletion(completion)
	if err != nil {
		return ExtractedInvoice{}, nil, err
	}
	inv, err := DecodeInvoice(raw, validate)
	if err != nil {
		return ExtractedInvoice{}, raw, err
	}
	return inv, raw, nil
}
