package importer

import (
	"strings"

	"github.com/sells-group/market-intel/internal/dedup"
	"github.com/sells-group/market-intel/internal/model"
)

type field int

const (
	fieldName field = iota + 1
	fieldTaxID
	fieldSite
	fieldProduct
	fieldCity
	fieldState
	fieldEmail
	fieldPhone
	fieldSize
	fieldSegmentation
)

// headerAliases maps headers, as folded by dedup.Normalize, to client fields.
var headerAliases = map[string]field{
	"nome": fieldName, "name": fieldName, "cliente": fieldName, "empresa": fieldName,
	"company": fieldName, "razao social": fieldName,

	"cnpj": fieldTaxID, "cpfcnpj": fieldTaxID, "tax id": fieldTaxID, "taxid": fieldTaxID,

	"site": fieldSite, "website": fieldSite, "url": fieldSite, "web": fieldSite,

	"produto": fieldProduct, "produtos": fieldProduct, "product": fieldProduct,
	"descricao": fieldProduct, "description": fieldProduct, "produto principal": fieldProduct,

	"cidade": fieldCity, "city": fieldCity, "municipio": fieldCity,

	"estado": fieldState, "uf": fieldState, "state": fieldState,

	"email": fieldEmail, "correio eletronico": fieldEmail,

	"telefone": fieldPhone, "phone": fieldPhone, "tel": fieldPhone, "fone": fieldPhone,

	"porte": fieldSize, "size": fieldSize, "tamanho": fieldSize,

	"segmentacao": fieldSegmentation, "segmentation": fieldSegmentation, "segmento": fieldSegmentation,
}

// columnMap resolves header positions. Unknown headers are ignored; the
// first column mapped to a field wins.
func columnMap(header []string) map[field]int {
	cols := make(map[field]int, len(header))
	for i, h := range header {
		f, ok := headerAliases[dedup.Normalize(h)]
		if !ok {
			continue
		}
		if _, seen := cols[f]; !seen {
			cols[f] = i
		}
	}
	return cols
}

// toClient builds a client from a row. It returns the validation problems
// found, if any.
func toClient(row []string, cols map[field]int) (model.Client, []string) {
	get := func(f field) string {
		i, ok := cols[f]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	c := model.Client{
		Name:               get(fieldName),
		TaxID:              get(fieldTaxID),
		Site:               get(fieldSite),
		ProductDescription: get(fieldProduct),
		City:               get(fieldCity),
		State:              strings.ToUpper(get(fieldState)),
		Email:              get(fieldEmail),
		Phone:              get(fieldPhone),
		SizeClass:          get(fieldSize),
		Segmentation:       get(fieldSegmentation),
		ValidationStatus:   model.ValidationPending,
	}

	var problems []string
	if c.Name == "" {
		problems = append(problems, "name is required")
	}
	if c.TaxID != "" {
		if n := len(dedup.NormalizeTaxID(c.TaxID)); n != 11 && n != 14 {
			problems = append(problems, "tax id must have 11 or 14 digits")
		}
	}
	if c.State != "" && model.RegionForState(c.State) == "" {
		problems = append(problems, "unknown state "+c.State)
	}
	if c.Email != "" && !strings.Contains(c.Email, "@") {
		problems = append(problems, "invalid email")
	}
	return c, problems
}

func blank(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
