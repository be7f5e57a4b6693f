package model

import "github.com/sells-group/market-intel/internal/dedup"

// ClientSeed is the client data given to the generative model.
type ClientSeed struct {
	ClientID           int64  `json:"-"`
	Name               string `json:"name"`
	TaxID              string `json:"tax_id,omitempty"`
	Site               string `json:"site,omitempty"`
	ProductDescription string `json:"product_description,omitempty"`
	City               string `json:"city,omitempty"`
	State              string `json:"state,omitempty"`
}

// ClientEnrichment holds the client fields returned by the model.
type ClientEnrichment struct {
	Site               string   `json:"site,omitempty"`
	ProductDescription string   `json:"product_description,omitempty"`
	City               string   `json:"city,omitempty"`
	State              string   `json:"state,omitempty"`
	IndustryCode       string   `json:"industry_code,omitempty"`
	SizeClass          string   `json:"size_class,omitempty"`
	Segmentation       string   `json:"segmentation,omitempty"`
	Email              string   `json:"email,omitempty"`
	Phone              string   `json:"phone,omitempty"`
	Latitude           *float64 `json:"latitude,omitempty"`
	Longitude          *float64 `json:"longitude,omitempty"`
}

// GeneratedProduct is a product as returned by the model.
type GeneratedProduct struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Category    string `json:"category,omitempty"`
}

// GeneratedCompany is a competitor or lead as returned by the model.
type GeneratedCompany struct {
	Name          string   `json:"name"`
	Description   string   `json:"description,omitempty"`
	TaxID         string   `json:"tax_id,omitempty"`
	Site          string   `json:"site,omitempty"`
	City          string   `json:"city,omitempty"`
	State         string   `json:"state,omitempty"`
	SizeClass     string   `json:"size_class,omitempty"`
	IndustryCode  string   `json:"industry_code,omitempty"`
	Segment       string   `json:"segment,omitempty"`
	Potential     string   `json:"potential,omitempty"`
	Justification string   `json:"justification,omitempty"`
	Latitude      *float64 `json:"latitude,omitempty"`
	Longitude     *float64 `json:"longitude,omitempty"`
}

// DedupEntry implements dedup.Candidate.
func (g GeneratedCompany) DedupEntry() dedup.Entry {
	return dedup.Entry{Name: g.Name, TaxID: g.TaxID}
}

// MarketBundle is one market with the records generated for it.
type MarketBundle struct {
	Name          string             `json:"name"`
	Category      string             `json:"category"`
	Segmentation  string             `json:"segmentation,omitempty"`
	EstimatedSize string             `json:"estimated_size,omitempty"`
	Products      []GeneratedProduct `json:"products"`
	Competitors   []GeneratedCompany `json:"competitors"`
	Leads         []GeneratedCompany `json:"leads"`
}

// GeneratedData is the full structured response of one generative call.
type GeneratedData struct {
	Client  *ClientEnrichment `json:"client,omitempty"`
	Markets []MarketBundle    `json:"markets"`
	Usage   TokenUsage        `json:"-"`
}

// Caps bounds how many generated records are kept.
type Caps struct {
	Markets     int `json:"markets"`
	Products    int `json:"products"`
	Competitors int `json:"competitors"`
	Leads       int `json:"leads"`
}

// DefaultCaps returns 2 markets with 3 products, 10 competitors and 5 leads each.
func DefaultCaps() Caps {
	return Caps{Markets: 2, Products: 3, Competitors: 10, Leads: 5}
}

// Truncate drops records beyond the caps. Non-positive caps leave the
// corresponding list untouched.
func (d *GeneratedData) Truncate(c Caps) {
	d.Markets = limit(d.Markets, c.Markets)
	for i := range d.Markets {
		m := &d.Markets[i]
		m.Products = limit(m.Products, c.Products)
		m.Competitors = limit(m.Competitors, c.Competitors)
		m.Leads = limit(m.Leads, c.Leads)
	}
}

func limit[T any](items []T, n int) []T {
	if n > 0 && len(items) > n {
		return items[:n]
	}
	return items
}
