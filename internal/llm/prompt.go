package llm

import "strings"

// ExampleInvoiceJSON is the worked example embedded in the prompt.
const ExampleInvoiceJSON = `{
  "numero_fatura": "INV-2023-001",
  "data_emissao": "2023-01-15",
  "data_vencimento": "2023-02-15",
  "valor_total": 1500.75,
  "moeda": "BRL",
  "nome_fornecedor": "Empresa ABC Ltda.",
  "cnpj_fornecedor": "12.345.678/0001-90",
  "nome_cliente": "Cliente Exemplo S.A.",
  "itens": [
    { "descricao": "Serviço de Consultoria", "quantidade": 1, "valor_unitario": 1000.00 },
    { "descricao": "Licença de Software", "quantidade": 5, "valor_unitario": 100.15 }
  ]
}`

const promptInstructions = `Extraia os seguintes detalhes da fatura/recibo fornecido.
Retorne os resultados em formato JSON. Se um campo não for encontrado, use null.
As datas devem estar no formato YYYY-MM-DD. Valores monetários devem ser números (float ou int).

Campos a extrair:
- "numero_fatura": O número de identificação da fatura.
- "data_emissao": A data em que a fatura foi emitida.
- "data_vencimento": A data de vencimento da fatura.
- "valor_total": O valor total da fatura.
- "moeda": A moeda do valor total (ex: "BRL", "USD", "EUR").
- "nome_fornecedor": O nome da empresa que emitiu a fatura.
- "cnpj_fornecedor": O CNPJ ou ID fiscal do fornecedor.
- "nome_cliente": O nome do cliente para quem a fatura foi emitida.
- "itens": Uma lista de objetos, onde cada objeto tem "descricao" (string), "quantidade" (int) e "valor_unitario" (float). Se não houver itens detalhados, uma lista vazia.

Exemplo de formato de saída JSON:
`

// BuildPrompt formats the fixed instruction template with the invoice text appended verbatim.
// Output depends only on text.
func BuildPrompt(text string) string {
	var b strings.Builder
	b.Grow(len(promptInstructions) + len(ExampleInvoiceJSON) + len(text) + 32)
	b.WriteString(promptInstructions)
	b.WriteString(ExampleInvoiceJSON)
	b.WriteString("\n\nTexto da Fatura:\n")
	b.WriteString(text)
	b.WriteString("\n")
	return b.String()
}
