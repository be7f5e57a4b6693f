package generate

import (
	"fmt"
	"strings"

	"github.com/sells-group/market-intel/internal/model"
)

const systemPrompt = `Você é um especialista em pesquisa de mercado B2B brasileiro.
Analise a empresa informada e gere inteligência de mercado acionável.

Regras:
- Liste apenas empresas reais que existem no Brasil; se não souber, omita.
- Concorrentes competem diretamente pelos mesmos clientes, com porte e região semelhantes.
- Leads precisam de um motivo concreto para comprar; explique na justificativa.
- Responda somente com um objeto JSON válido, sem markdown ou comentários.`

const responseShape = `{
  "client": {
    "site": "", "product_description": "", "city": "", "state": "UF",
    "industry_code": "CNAE", "size_class": "Pequeno|Médio|Grande",
    "segmentation": "B2B|B2C|B2G", "email": "", "phone": "",
    "latitude": 0.0, "longitude": 0.0
  },
  "markets": [
    {
      "name": "", "category": "B2B|B2C|B2G", "segmentation": "", "estimated_size": "",
      "products": [{"name": "", "description": "", "category": ""}],
      "competitors": [{"name": "", "description": "", "tax_id": "", "site": "", "city": "", "state": "", "size_class": ""}],
      "leads": [{"name": "", "segment": "", "potential": "Alto|Médio|Baixo", "justification": "", "size_class": "", "city": "", "state": ""}]
    }
  ]
}`

// buildUserPrompt renders the client seed and the expected response shape.
func buildUserPrompt(seed model.ClientSeed) string {
	var sb strings.Builder
	sb.WriteString("EMPRESA PARA ANÁLISE\n")
	fmt.Fprintf(&sb, "Nome: %s\n", seed.Name)
	writeField(&sb, "CNPJ", seed.TaxID, "")
	writeField(&sb, "Produto principal", seed.ProductDescription, "Não informado")
	writeField(&sb, "Site", seed.Site, "Não informado")
	writeField(&sb, "Cidade", seed.City, "Brasil")
	writeField(&sb, "UF", seed.State, "")

	sb.WriteString("\nTAREFA\n")
	sb.WriteString("Complete os dados cadastrais da empresa e identifique 2 mercados onde ela atua.\n")
	sb.WriteString("Para cada mercado: 3 produtos, 10 concorrentes diretos e 5 leads qualificados.\n")
	sb.WriteString("\nFORMATO JSON ESPERADO\n")
	sb.WriteString(responseShape)
	return sb.String()
}

func writeField(sb *strings.Builder, label, value, fallback string) {
	value = strings.TrimSpace(value)
	if value == "" {
		value = fallback
	}
	if value == "" {
		return
	}
	fmt.Fprintf(sb, "%s: %s\n", label, value)
}
