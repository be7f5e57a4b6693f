package generate

import (
	"encoding/json"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/market-intel/internal/model"
	"github.com/sells-group/market-intel/pkg/anthropic"
)

// parseResponse decodes and validates a model response. Markets and
// entities without a name are dropped; an empty market list is invalid.
func parseResponse(resp *anthropic.MessageResponse) (*model.GeneratedData, error) {
	text := cleanJSON(resp.Text())
	if text == "" || !strings.HasPrefix(text, "{") {
		return nil, eris.Wrap(ErrMalformedResponse, "no json object in response")
	}

	var raw struct {
		Client  *model.ClientEnrichment `json:"client"`
		Markets *[]model.MarketBundle   `json:"markets"`
	}
	if err := json.Unmarshal([]byte(text), &raw); err != nil {
		return nil, eris.Wrapf(ErrMalformedResponse, "decode: %v", err)
	}
	if raw.Markets == nil {
		return nil, eris.Wrap(ErrInvalidStructure, "missing markets array")
	}

	markets := make([]model.MarketBundle, 0, len(*raw.Markets))
	for _, m := range *raw.Markets {
		m.Name = strings.TrimSpace(m.Name)
		if m.Name == "" {
			continue
		}
		m.Products = namedProducts(m.Products)
		m.Competitors = namedCompanies(m.Competitors)
		m.Leads = namedCompanies(m.Leads)
		markets = append(markets, m)
	}
	if len(markets) == 0 {
		return nil, eris.Wrap(ErrInvalidStructure, "empty markets array")
	}

	return &model.GeneratedData{Client: raw.Client, Markets: markets}, nil
}

func namedProducts(in []model.GeneratedProduct) []model.GeneratedProduct {
	out := in[:0]
	for _, p := range in {
		p.Name = strings.TrimSpace(p.Name)
		if p.Name != "" {
			out = append(out, p)
		}
	}
	return out
}

func namedCompanies(in []model.GeneratedCompany) []model.GeneratedCompany {
	out := in[:0]
	for _, c := range in {
		c.Name = strings.TrimSpace(c.Name)
		if c.Name != "" {
			out = append(out, c)
		}
	}
	return out
}

// cleanJSON strips markdown fences and extracts the outermost JSON object.
func cleanJSON(text string) string {
	text = strings.TrimSpace(text)

	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimPrefix(text, "```")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		text = text[start : end+1]
	}

	return strings.TrimSpace(text)
}
