// Package dedup decides whether candidate companies duplicate records that
// are already known, by tax id first and by fuzzy name similarity second.
package dedup

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// foldChain decomposes accented characters and drops the marks, punctuation
// and symbols that remain.
func foldChain() transform.Transformer {
	return transform.Chain(
		norm.NFD,
		runes.Remove(runes.In(unicode.Mn)),
		runes.Remove(runes.Predicate(func(r rune) bool {
			return unicode.IsPunct(r) || unicode.IsSymbol(r)
		})),
	)
}

// Normalize standardizes an entity name for matching by:
//  1. Lower-casing
//  2. Decomposing (NFD) and dropping diacritics
//  3. Stripping punctuation and symbols
//  4. Collapsing runs of whitespace into single spaces
//
// Normalize is idempotent.
func Normalize(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}

	// Lower-casing first keeps the result stable: some upper-case runes
	// lower into a base letter plus a combining mark.
	folded, _, err := transform.String(foldChain(), strings.ToLower(name))
	if err != nil {
		folded = strings.ToLower(name)
	}

	return strings.Join(strings.Fields(folded), " ")
}

// NormalizeTaxID keeps only the digits of a tax id (CNPJ/CPF/EIN), so that
// "12.345.678/0001-90" and "12345678000190" compare equal.
func NormalizeTaxID(id string) string {
	var b strings.Builder
	b.Grow(len(id))
	for _, r := range id {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
