package export

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/jvictorpdl/MVP-Extracao-de-Dados-Nao-Estruturados/internal/llm"
)

// Sheet names of the exported workbook.
const (
	SheetInvoice = "Fatura"
	SheetItems   = "Itens"
)

const notAvailable = "N/A"

// Service renders an extracted invoice as an XLSX workbook. It keeps no state.
type Service struct {
	logger *slog.Logger
}

func NewService(logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{logger: logger}
}

// InvoiceXLSX returns the workbook bytes for inv: one label/value sheet for the header
// fields and one sheet with a row per line item.
func (s *Service) InvoiceXLSX(inv llm.ExtractedInvoice) ([]byte, error) {
	start := time.Now()

	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			s.logger.Warn("export.xlsx.close_error", "error", err)
		}
	}()

	// the default "Sheet1" becomes the header sheet
	if err := f.SetSheetName(f.GetSheetName(0), SheetInvoice); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}
	if _, err := f.NewSheet(SheetItems); err != nil {
		return nil, fmt.Errorf("new sheet: %w", err)
	}
	f.SetActiveSheet(0)

	if err := writeHeader(f, inv); err != nil {
		return nil, err
	}
	if err := writeItems(f, inv.Items); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("export.xlsx.ok",
		"items", len(inv.Items),
		"bytes", buf.Len(),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

func writeHeader(f *excelize.File, inv llm.ExtractedInvoice) error {
	rows := [][2]any{
		{"Número da Fatura", str(inv.InvoiceNumber)},
		{"Data de Emissão", str(inv.IssueDate)},
		{"Data de Vencimento", str(inv.DueDate)},
		{"Valor Total", num(inv.TotalAmount)},
		{"Moeda", str(inv.Currency)},
		{"Fornecedor", str(inv.SupplierName)},
		{"CNPJ do Fornecedor", str(inv.SupplierTaxID)},
		{"Cliente", str(inv.CustomerName)},
	}
	for i, r := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(SheetInvoice, cell, &[]any{r[0], r[1]}); err != nil {
			return fmt.Errorf("write header row %d: %w", i+1, err)
		}
	}
	_ = f.SetColWidth(SheetInvoice, "A", "A", 22)
	_ = f.SetColWidth(SheetInvoice, "B", "B", 40)
	return nil
}

func writeItems(f *excelize.File, items []llm.LineItem) error {
	headers := []any{"Descrição", "Quantidade", "Valor Unitário", "Valor Total"}
	if err := f.SetSheetRow(SheetItems, "A1", &headers); err != nil {
		return fmt.Errorf("write items header: %w", err)
	}
	for i, it := range items {
		var total any = notAvailable
		if it.Quantity != nil && it.UnitPrice != nil {
			total = *it.Quantity * *it.UnitPrice
		}
		row := []any{str(it.Description), num(it.Quantity), num(it.UnitPrice), total}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(SheetItems, cell, &row); err != nil {
			return fmt.Errorf("write item row %d: %w", i+1, err)
		}
	}
	_ = f.SetColWidth(SheetItems, "A", "A", 48)
	_ = f.SetColWidth(SheetItems, "B", "D", 16)
	return nil
}

func str(p *string) any {
	if p == nil {
		return notAvailable
	}
	return *p
}

func num(p *float64) any {
	if p == nil {
		return notAvailable
	}
	return *p
}
