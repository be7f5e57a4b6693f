package enrich

import (
	"strings"
	"time"

	"github.com/sells-group/market-intel/internal/model"
	"github.com/sells-group/market-intel/internal/quality"
)

// mergeClient copies generated values into empty client fields. Present
// values are never overwritten. Coordinates are taken only as a valid pair,
// and GeocodedAt is set only when they are.
func mergeClient(c *model.Client, e *model.ClientEnrichment, now time.Time, scorer *quality.Scorer) {
	if e != nil {
		fill(&c.Site, e.Site)
		fill(&c.ProductDescription, e.ProductDescription)
		fill(&c.City, e.City)
		fill(&c.State, strings.ToUpper(strings.TrimSpace(e.State)))
		fill(&c.IndustryCode, e.IndustryCode)
		fill(&c.SizeClass, e.SizeClass)
		fill(&c.Segmentation, e.Segmentation)
		fill(&c.Email, e.Email)
		fill(&c.Phone, e.Phone)

		if !c.HasCoordinates() && usableCoordinates(e.Latitude, e.Longitude) {
			lat, lng := *e.Latitude, *e.Longitude
			c.Latitude, c.Longitude = &lat, &lng
			at := now
			c.GeocodedAt = &at
		}
	}
	fill(&c.Region, model.RegionForState(c.State))

	score, _ := scorer.Evaluate(quality.Fields{
		Name:           c.Name,
		Description:    c.ProductDescription,
		SizeClass:      c.SizeClass,
		City:           c.City,
		TaxID:          c.TaxID,
		IndustryCode:   c.IndustryCode,
		HasCoordinates: c.HasCoordinates(),
	})
	c.QualityScore = quality.Keep(c.QualityScore, score)
	c.QualityClass = string(scorer.Classify(c.QualityScore))
}

func fill(dst *string, v string) {
	if strings.TrimSpace(*dst) != "" {
		return
	}
	if v = strings.TrimSpace(v); v != "" {
		*dst = v
	}
}

// usableCoordinates rejects missing, out-of-range and null-island pairs.
func usableCoordinates(lat, lng *float64) bool {
	if lat == nil || lng == nil {
		return false
	}
	if *lat == 0 && *lng == 0 {
		return false
	}
	return model.ValidCoordinates(*lat, *lng)
}
