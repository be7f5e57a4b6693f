package dedup

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type company struct {
	name  string
	taxID string
}

func (c company) DedupEntry() Entry { return Entry{Name: c.name, TaxID: c.taxID} }

func TestIsDuplicate_TaxIDWins(t *testing.T) {
	existing := []Entry{{Name: "Acme", TaxID: "12.345.678/0001-90"}}

	assert.True(t, IsDuplicate(Entry{Name: "Totally Different", TaxID: "12345678000190"}, existing, DefaultThreshold))
	assert.False(t, IsDuplicate(Entry{Name: "Totally Different", TaxID: "99999999000199"}, existing, DefaultThreshold))
}

func TestIsDuplicate_EmptyTaxIDsDoNotMatch(t *testing.T) {
	existing := []Entry{{Name: "Alpha Comércio", TaxID: ""}}
	assert.False(t, IsDuplicate(Entry{Name: "Beta Serviços", TaxID: ""}, existing, DefaultThreshold))
}

func TestIsDuplicate_FuzzyName(t *testing.T) {
	existing := []Entry{{Name: "Distribuidora Águia Dourada"}}
	assert.True(t, IsDuplicate(Entry{Name: "DISTRIBUIDORA AGUIA DOURADA"}, existing, DefaultThreshold))
	assert.False(t, IsDuplicate(Entry{Name: ""}, []Entry{{Name: ""}}, DefaultThreshold))
}

func TestIsDuplicate_ThresholdIsCallerControlled(t *testing.T) {
	existing := []Entry{{Name: "kitten"}}
	assert.False(t, IsDuplicate(Entry{Name: "sitting"}, existing, DefaultThreshold))
	assert.True(t, IsDuplicate(Entry{Name: "sitting"}, existing, 0.5))
}

func TestFilterDuplicates_AgainstReferences(t *testing.T) {
	clients := []Entry{{Name: "Cliente Um", TaxID: "11111111000111"}}
	competitors := []Entry{{Name: "Concorrente Forte"}}

	candidates := []company{
		{name: "Other Name", taxID: "11.111.111/0001-11"},
		{name: "Concorrente Fortes"},
		{name: "Lead Novo"},
	}

	got := FilterDuplicates(candidates, DefaultThreshold, clients, competitors)
	assert.Equal(t, []company{{name: "Lead Novo"}}, got)
}

func TestFilterDuplicates_FirstOccurrenceWins(t *testing.T) {
	candidates := []company{
		{name: "Alfa Tecnologia"},
		{name: "Beta Logística"},
		{name: "ALFA TECNOLOGIA."},
		{name: "Gama", taxID: "123"},
		{name: "Delta", taxID: "123"},
	}

	got := FilterDuplicates(candidates, DefaultThreshold)
	assert.Equal(t, []company{
		{name: "Alfa Tecnologia"},
		{name: "Beta Logística"},
		{name: "Gama", taxID: "123"},
	}, got)
}

func TestFilterDuplicates_Empty(t *testing.T) {
	assert.Empty(t, FilterDuplicates([]company{}, DefaultThreshold, []Entry{{Name: "x"}}))
}

func TestEntries(t *testing.T) {
	got := Entries([]company{{name: "a", taxID: "1"}})
	assert.Equal(t, []Entry{{Name: "a", TaxID: "1"}}, got)
}
