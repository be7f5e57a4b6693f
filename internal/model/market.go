package model

import (
	"time"

	"github.com/sells-group/market-intel/internal/dedup"
)

// Market is a market a client participates in. Unique per project by Hash.
type Market struct {
	ID            int64     `json:"id"`
	ProjectID     int64     `json:"project_id"`
	SurveyID      *int64    `json:"survey_id,omitempty"`
	Name          string    `json:"name"`
	Category      string    `json:"category"`
	Segmentation  string    `json:"segmentation,omitempty"`
	EstimatedSize string    `json:"estimated_size,omitempty"`
	Hash          string    `json:"hash"`
	CreatedAt     time.Time `json:"created_at"`
}

// Product is something a client sells into a market. Unique per market by Hash.
type Product struct {
	ID          int64     `json:"id"`
	ProjectID   int64     `json:"project_id"`
	ClientID    int64     `json:"client_id"`
	MarketID    int64     `json:"market_id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Category    string    `json:"category,omitempty"`
	Hash        string    `json:"hash"`
	CreatedAt   time.Time `json:"created_at"`
}

// Competitor is a company competing in a market. Unique per market by Hash.
type Competitor struct {
	ID               int64            `json:"id"`
	ProjectID        int64            `json:"project_id"`
	MarketID         int64            `json:"market_id"`
	Name             string           `json:"name"`
	Description      string           `json:"description,omitempty"`
	TaxID            string           `json:"tax_id,omitempty"`
	Site             string           `json:"site,omitempty"`
	City             string           `json:"city,omitempty"`
	State            string           `json:"state,omitempty"`
	SizeClass        string           `json:"size_class,omitempty"`
	IndustryCode     string           `json:"industry_code,omitempty"`
	Latitude         *float64         `json:"latitude,omitempty"`
	Longitude        *float64         `json:"longitude,omitempty"`
	QualityScore     int              `json:"quality_score"`
	QualityClass     string           `json:"quality_class,omitempty"`
	ValidationStatus ValidationStatus `json:"validation_status"`
	Hash             string           `json:"hash"`
	CreatedAt        time.Time        `json:"created_at"`
}

// DedupEntry implements dedup.Candidate.
func (c Competitor) DedupEntry() dedup.Entry {
	return dedup.Entry{Name: c.Name, TaxID: c.TaxID}
}

// Lead is a prospective customer in a market. Unique per market by Hash.
type Lead struct {
	ID               int64            `json:"id"`
	ProjectID        int64            `json:"project_id"`
	MarketID         int64            `json:"market_id"`
	Name             string           `json:"name"`
	Segment          string           `json:"segment,omitempty"`
	Potential        string           `json:"potential,omitempty"`
	Justification    string           `json:"justification,omitempty"`
	TaxID            string           `json:"tax_id,omitempty"`
	Site             string           `json:"site,omitempty"`
	City             string           `json:"city,omitempty"`
	State            string           `json:"state,omitempty"`
	SizeClass        string           `json:"size_class,omitempty"`
	IndustryCode     string           `json:"industry_code,omitempty"`
	Latitude         *float64         `json:"latitude,omitempty"`
	Longitude        *float64         `json:"longitude,omitempty"`
	QualityScore     int              `json:"quality_score"`
	QualityClass     string           `json:"quality_class,omitempty"`
	ValidationStatus ValidationStatus `json:"validation_status"`
	Stage            string           `json:"stage"`
	Hash             string           `json:"hash"`
	CreatedAt        time.Time        `json:"created_at"`
}

// DedupEntry implements dedup.Candidate.
func (l Lead) DedupEntry() dedup.Entry {
	return dedup.Entry{Name: l.Name, TaxID: l.TaxID}
}

// DedupEntry lets clients act as dedup references.
func (c Client) DedupEntry() dedup.Entry {
	return dedup.Entry{Name: c.Name, TaxID: c.TaxID}
}

// LeadStageNew is the stage assigned to freshly generated leads.
const LeadStageNew = "new"
