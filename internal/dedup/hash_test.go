package dedup

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContentHash_Stable(t *testing.T) {
	a := ContentHash("Mercado de Embalagens", "Indústria")
	b := ContentHash("Mercado de Embalagens", "Indústria")
	assert.Equal(t, a, b)
	assert.Len(t, a, 64)
}

func TestContentHash_IgnoresCosmeticDifferences(t *testing.T) {
	assert.Equal(t,
		ContentHash("Mercado de Embalagens", "Indústria"),
		ContentHash("  MERCADO DE EMBALAGENS ", "industria"),
	)
}

func TestContentHash_PartsAreSeparated(t *testing.T) {
	assert.NotEqual(t, ContentHash("ab", "c"), ContentHash("a", "bc"))
	assert.NotEqual(t, ContentHash("Acme", "1"), ContentHash("Acme", "2"))
}
