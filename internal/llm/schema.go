package llm

// BuildInvoiceJSONSchema returns a JSON-Schema (draft 2020-12 subset) as a generic map.
// Every field may be null or absent; types and date format are enforced when present.
// Extra keys are tolerated and dropped when decoding.
func BuildInvoiceJSONSchema() map[string]any {
	item := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"descricao":      nullable("string"),
			"quantidade":     nullable("number"),
			"valor_unitario": nullable("number"),
		},
	}

	props := map[string]any{
		"numero_fatura":   nullable("string"),
		"data_emissao":    dateProp(),
		"data_vencimento": dateProp(),
		"valor_total":     nullable("number"),
		"moeda":           nullable("string"),
		"nome_fornecedor": nullable("string"),
		"cnpj_fornecedor": nullable("string"),
		"nome_cliente":    nullable("string"),
		"itens": map[string]any{
			"type":  []any{"array", "null"},
			"items": item,
		},
	}

	return map[string]any{
		"type":       "object",
		"properties": props,
	}
}

func nullable(t string) map[string]any {
	return map[string]any{"type": []any{t, "null"}}
}

func dateProp() map[string]any {
	return map[string]any{
		"type":    []any{"string", "null"},
		"pattern": `^\d{4}-\d{2}-\d{2}$`,
	}
}
