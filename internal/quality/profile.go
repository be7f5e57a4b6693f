// Package quality scores how complete a company record is.
package quality

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Weights holds the points awarded for each populated field.
type Weights struct {
	Base         int `yaml:"base"`
	Name         int `yaml:"name"`
	Description  int `yaml:"description"`
	SizeClass    int `yaml:"size_class"`
	City         int `yaml:"city"`
	TaxID        int `yaml:"tax_id"`
	IndustryCode int `yaml:"industry_code"`
	Coordinates  int `yaml:"coordinates"`
}

// Bands holds the minimum score of each class.
type Bands struct {
	Excellent int `yaml:"excellent"`
	Good      int `yaml:"good"`
	Regular   int `yaml:"regular"`
}

// Profile is a scoring configuration.
type Profile struct {
	Weights Weights `yaml:"weights"`
	Bands   Bands   `yaml:"bands"`
}

// DefaultProfile returns the built-in weights. A fully populated record
// scores exactly 100.
func DefaultProfile() Profile {
	return Profile{
		Weights: Weights{
			Base:         50,
			Name:         10,
			Description:  15,
			SizeClass:    10,
			City:         5,
			TaxID:        5,
			IndustryCode: 3,
			Coordinates:  2,
		},
		Bands: Bands{Excellent: 90, Good: 75, Regular: 60},
	}
}

// LoadProfile reads a profile from a YAML file with a top-level "quality"
// key. Keys missing from the file keep their default values.
func LoadProfile(path string) (Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Profile{}, eris.Wrapf(err, "quality: read profile %s", path)
	}

	wrapper := struct {
		Quality Profile `yaml:"quality"`
	}{Quality: DefaultProfile()}
	if err := yaml.Unmarshal(data, &wrapper); err != nil {
		return Profile{}, eris.Wrap(err, "quality: parse profile")
	}

	p := wrapper.Quality
	if p.Bands.Excellent < p.Bands.Good || p.Bands.Good < p.Bands.Regular {
		return Profile{}, eris.Errorf("quality: bands must be descending (excellent %d, good %d, regular %d)",
			p.Bands.Excellent, p.Bands.Good, p.Bands.Regular)
	}
	return p, nil
}
