// Package model defines the records handled by the enrichment pipeline.
package model

import (
	"strings"
	"time"
)

// ValidationStatus is the human review state of a record.
type ValidationStatus string

const (
	ValidationPending   ValidationStatus = "pending"
	ValidationRich      ValidationStatus = "rich"
	ValidationNeedsWork ValidationStatus = "needs_adjustment"
	ValidationDiscarded ValidationStatus = "discarded"
)

// Client is a company the user already serves. It is the seed of every
// enrichment run.
type Client struct {
	ID                 int64            `json:"id"`
	ProjectID          int64            `json:"project_id"`
	SurveyID           *int64           `json:"survey_id,omitempty"`
	Name               string           `json:"name"`
	TaxID              string           `json:"tax_id,omitempty"`
	Site               string           `json:"site,omitempty"`
	ProductDescription string           `json:"product_description,omitempty"`
	City               string           `json:"city,omitempty"`
	State              string           `json:"state,omitempty"`
	Region             string           `json:"region,omitempty"`
	IndustryCode       string           `json:"industry_code,omitempty"`
	SizeClass          string           `json:"size_class,omitempty"`
	Segmentation       string           `json:"segmentation,omitempty"`
	Email              string           `json:"email,omitempty"`
	Phone              string           `json:"phone,omitempty"`
	Latitude           *float64         `json:"latitude,omitempty"`
	Longitude          *float64         `json:"longitude,omitempty"`
	GeocodedAt         *time.Time       `json:"geocoded_at,omitempty"`
	ValidationStatus   ValidationStatus `json:"validation_status"`
	QualityScore       int              `json:"quality_score"`
	QualityClass       string           `json:"quality_class,omitempty"`
	Enriched           bool             `json:"enriched"`
	EnrichedAt         *time.Time       `json:"enriched_at,omitempty"`
	CreatedAt          time.Time        `json:"created_at"`
	UpdatedAt          time.Time        `json:"updated_at"`
}

// HasCoordinates reports whether both latitude and longitude are set.
func (c *Client) HasCoordinates() bool {
	return c.Latitude != nil && c.Longitude != nil
}

// Seed returns the subset of the client sent to the generative model.
func (c *Client) Seed() ClientSeed {
	return ClientSeed{
		ClientID:           c.ID,
		Name:               c.Name,
		TaxID:              c.TaxID,
		Site:               c.Site,
		ProductDescription: c.ProductDescription,
		City:               c.City,
		State:              c.State,
	}
}

// PopulationSelector chooses the clients a batch job works on.
type PopulationSelector struct {
	ProjectID int64  `json:"project_id"`
	SurveyID  *int64 `json:"survey_id,omitempty"`
}

// regionsByState maps Brazilian state codes to their macro-region.
var regionsByState = map[string]string{
	"AC": "Norte", "AP": "Norte", "AM": "Norte", "PA": "Norte", "RO": "Norte", "RR": "Norte", "TO": "Norte",
	"AL": "Nordeste", "BA": "Nordeste", "CE": "Nordeste", "MA": "Nordeste", "PB": "Nordeste",
	"PE": "Nordeste", "PI": "Nordeste", "RN": "Nordeste", "SE": "Nordeste",
	"DF": "Centro-Oeste", "GO": "Centro-Oeste", "MT": "Centro-Oeste", "MS": "Centro-Oeste",
	"ES": "Sudeste", "MG": "Sudeste", "RJ": "Sudeste", "SP": "Sudeste",
	"PR": "Sul", "RS": "Sul", "SC": "Sul",
}

// RegionForState returns the macro-region of a two-letter state code, or ""
// when the code is unknown.
func RegionForState(state string) string {
	return regionsByState[strings.ToUpper(strings.TrimSpace(state))]
}
