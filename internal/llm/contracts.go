package llm

import (
	"context"
	"fmt"
)

// LineItem is one row of the invoice's item list.
type LineItem struct {
	Description *string  `json:"descricao"`
	Quantity    *float64 `json:"quantidade"`
	UnitPrice   *float64 `json:"valor_unitario"`
}

// ExtractedInvoice is the shape we ask the model for. Missing scalars stay nil and are
// emitted as explicit nulls; Items is never nil after decoding.
type ExtractedInvoice struct {
	InvoiceNumber *string    `json:"numero_fatura"`
	IssueDate     *string    `json:"data_emissao"`    // YYYY-MM-DD
	DueDate       *string    `json:"data_vencimento"` // YYYY-MM-DD
	TotalAmount   *float64   `json:"valor_total"`
	Currency      *string    `json:"moeda"`
	SupplierName  *string    `json:"nome_fornecedor"`
	SupplierTaxID *string    `json:"cnpj_fornecedor"` // CNPJ or other tax id
	CustomerName  *string    `json:"nome_cliente"`
	Items         []LineItem `json:"itens"`
}

// Completer sends one prompt to a text-generation model and returns the raw completion.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// ProviderError is a failed or refused generation call.
type ProviderError struct {
	Provider string
	Status   int    // HTTP status; 0 when no response was received
	Reason   string // finish/block reason or API status, safe to show to users
	Err      error
}

func (e *ProviderError) Error() string {
	msg := e.Provider
	if e.Status != 0 {
		msg += fmt.Sprintf(" status %d", e.Status)
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ProviderError) Unwrap() error { return e.Err }
